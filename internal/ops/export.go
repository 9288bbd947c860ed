package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/errors"
	"github.com/hpungsan/pngme/internal/png"
)

const exportFileMode os.FileMode = 0600

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path   string // required, source .png
	Output string // optional, default: ~/.pngme/exports/<name>-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Output     string `json:"output"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader represents the header line in a JSONL export file.
type ExportHeader struct {
	PngmeExport   bool   `json:"_pngme_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
	Source        string `json:"source"`
	Chunks        int    `json:"chunks"`
}

// Export writes the chunks of a PNG file to a JSONL file: one header line,
// then one record per chunk in file order.
func Export(ctx context.Context, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	if err := checkContext(ctx, "export"); err != nil {
		return nil, err
	}
	now := time.Now()

	p, _, err := loadPNG(input.Path, cfg)
	if err != nil {
		return nil, err
	}

	output := input.Output
	if output == "" {
		output, err = defaultExportPath(input.Path, now)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(output, PathCheckWrite, ExtJSONL, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	chunks := p.Chunks()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	header := ExportHeader{
		PngmeExport:   true,
		SchemaVersion: png.ExportSchemaVersion,
		ExportedAt:    now.Unix(),
		Source:        absPath(input.Path),
		Chunks:        len(chunks),
	}
	if err := enc.Encode(header); err != nil {
		return nil, errors.NewInternal(err)
	}
	for i, c := range chunks {
		if err := checkContext(ctx, "export"); err != nil {
			return nil, err
		}
		if err := enc.Encode(png.ChunkToExportRecord(i, c)); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	if err := writeFileAtomic(output, buf.Bytes(), exportFileMode); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       input.Path,
		Output:     output,
		Count:      len(chunks),
		ExportedAt: now.Unix(),
	}, nil
}

// defaultExportPath generates the default export path.
// Format: ~/.pngme/exports/<png base name>-<timestamp>.jsonl
func defaultExportPath(source string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	base := filepath.Base(source)
	name := SanitizeForFilename(strings.TrimSuffix(base, filepath.Ext(base)))
	filename := fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405"))
	return filepath.Join(dir, filename), nil
}
