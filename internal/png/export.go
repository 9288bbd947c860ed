package png

import (
	"encoding/base64"
	"fmt"

	"github.com/hpungsan/pngme/internal/errors"
)

// ExportSchemaVersion is written in the header line of export files.
const ExportSchemaVersion = "1.0"

// ExportRecord represents a chunk record in JSONL export format.
// It is used for parsing export files during import.
type ExportRecord struct {
	// Header detection field - true only for header line
	PngmeExport bool `json:"_pngme_export,omitempty"`

	// Header fields (only present in header line)
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`
	Source        string `json:"source,omitempty"`

	// Chunk fields
	Index     int    `json:"index"`
	ChunkType string `json:"chunk_type,omitempty"`
	Length    uint32 `json:"length"` // IGNORED on import, recomputed
	CRC       uint32 `json:"crc"`    // IGNORED on import, recomputed
	Data      string `json:"data"`   // base64 (std encoding)
}

// ToChunk converts an ExportRecord to a Chunk, recomputing length and CRC.
// The type code must pass the strict constructor.
func (r *ExportRecord) ToChunk() (*Chunk, error) {
	if len(r.ChunkType) != 4 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("chunk_type must be 4 letters, got %q", r.ChunkType))
	}
	var b [4]byte
	copy(b[:], r.ChunkType)
	t, err := ParseChunkTypeBytes(b)
	if err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(r.Data)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("data is not valid base64: %v", err))
	}
	return NewChunk(t, data), nil
}

// ChunkToExportRecord converts a Chunk to an ExportRecord for export.
func ChunkToExportRecord(index int, c *Chunk) *ExportRecord {
	return &ExportRecord{
		Index:     index,
		ChunkType: c.Type().String(),
		Length:    c.Length(),
		CRC:       c.CRC(),
		Data:      base64.StdEncoding.EncodeToString(c.Data()),
	}
}
