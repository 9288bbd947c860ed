package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/db"
	"github.com/hpungsan/pngme/internal/errors"
	"github.com/hpungsan/pngme/internal/png"
)

// ImportMode controls how records are applied to the target PNG.
type ImportMode string

const (
	ImportModeAppend       ImportMode = "append"        // append every record; any bad record aborts (atomic)
	ImportModeSkipExisting ImportMode = "skip-existing" // skip bad records and types already present
)

// maxImportLine bounds a single JSONL record.
const maxImportLine = 16 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path   string     // required, target .png
	Source string     // required, .jsonl export file
	Mode   ImportMode // default: append
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported     int           `json:"imported"`
	Skipped      int           `json:"skipped"`
	Chunks       int           `json:"chunks"`
	Errors       []ImportError `json:"errors"`
	JournalIDs   []string      `json:"journal_ids,omitempty"`
	JournalError string        `json:"journal_error,omitempty"` // set when the file changed but journaling failed
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line      int    `json:"line"`
	ChunkType string `json:"chunk_type,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Import appends the chunks of a JSONL export file to a PNG file and
// rewrites it. Length and CRC are recomputed from each record's data.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := checkContext(ctx, "import"); err != nil {
		return nil, err
	}
	if input.Mode == "" {
		input.Mode = ImportModeAppend
	}
	if input.Mode != ImportModeAppend && input.Mode != ImportModeSkipExisting {
		return nil, errors.NewInvalidRequest("mode must be one of: append, skip-existing")
	}
	if input.Source == "" {
		return nil, errors.NewInvalidRequest("source is required")
	}
	if err := ValidatePath(input.Source, PathCheckRead, ExtJSONL, cfg); err != nil {
		return nil, err
	}

	p, _, err := loadPNG(input.Path, cfg)
	if err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Source)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file, cfg.MessageMaxBytes)

	if input.Mode == ImportModeAppend && len(parseErrors) > 0 {
		return &ImportOutput{
			Chunks: p.Len(),
			Errors: parseErrors,
		}, nil
	}

	out := &ImportOutput{Errors: parseErrors}
	if out.Errors == nil {
		out.Errors = []ImportError{}
	}
	out.Skipped = len(parseErrors)

	var appended []*png.Chunk
	for _, c := range records {
		if err := checkContext(ctx, "import"); err != nil {
			return nil, err
		}
		if input.Mode == ImportModeSkipExisting && p.ChunkByType(c.Type()) != nil {
			out.Skipped++
			continue
		}
		p.AppendChunk(c)
		appended = append(appended, c)
	}

	out.Imported = len(appended)
	out.Chunks = p.Len()
	if len(appended) == 0 {
		return out, nil
	}

	if err := writeFileAtomic(input.Path, p.Bytes(), defaultFileMode); err != nil {
		return nil, err
	}

	target := absPath(input.Path)
	for _, c := range appended {
		id, failure := recordJournal(ctx, database, db.OpImport, target, c)
		if failure != "" {
			out.JournalError = failure
			break
		}
		if id != "" {
			out.JournalIDs = append(out.JournalIDs, id)
		}
	}
	return out, nil
}

// parseExportFile parses a JSONL export file into chunks.
// Records whose data exceeds maxBytes (when positive) are rejected.
func parseExportFile(r io.Reader, maxBytes int) ([]*png.Chunk, []ImportError) {
	var records []*png.Chunk
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record png.ExportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if record.PngmeExport {
			continue
		}

		chunk, err := record.ToChunk()
		if err != nil {
			ie := ImportError{
				Line:      lineNum,
				ChunkType: record.ChunkType,
				Code:      "INVALID_RECORD",
				Message:   err.Error(),
			}
			if pErr, ok := errors.As(err); ok {
				ie.Code = string(pErr.Code)
				ie.Message = pErr.Message
			}
			parseErrors = append(parseErrors, ie)
			continue
		}

		if maxBytes > 0 && len(chunk.Data()) > maxBytes {
			tooLarge := errors.NewMessageTooLarge(maxBytes, len(chunk.Data()))
			parseErrors = append(parseErrors, ImportError{
				Line:      lineNum,
				ChunkType: record.ChunkType,
				Code:      string(tooLarge.Code),
				Message:   tooLarge.Message,
			})
			continue
		}

		records = append(records, chunk)
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}
