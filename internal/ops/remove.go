package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/db"
)

// RemoveInput contains parameters for the Remove operation.
type RemoveInput struct {
	Path      string // required
	ChunkType string // required
}

// RemoveOutput contains the result of the Remove operation.
type RemoveOutput struct {
	Removed bool   `json:"removed"`
	Path    string `json:"path"`
	ChunkRef
	Message      *string `json:"message"` // nil when the payload is not UTF-8
	Chunks       int     `json:"chunks"`  // remaining
	JournalID    string  `json:"journal_id,omitempty"`
	JournalError string  `json:"journal_error,omitempty"` // set when the file changed but journaling failed
}

// Remove deletes the first chunk with the given type and rewrites the file.
// The removed chunk is kept in the journal.
func Remove(ctx context.Context, database *sql.DB, cfg *config.Config, input RemoveInput) (*RemoveOutput, error) {
	if err := checkContext(ctx, "remove"); err != nil {
		return nil, err
	}

	chunkType, err := lookupChunkType(input.ChunkType)
	if err != nil {
		return nil, err
	}

	p, _, err := loadPNG(input.Path, cfg)
	if err != nil {
		return nil, err
	}

	removed, err := p.RemoveFirstChunk(chunkType)
	if err != nil {
		return nil, err
	}

	if err := checkContext(ctx, "remove"); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(input.Path, p.Bytes(), defaultFileMode); err != nil {
		return nil, err
	}

	journalID, journalErr := recordJournal(ctx, database, db.OpRemove, absPath(input.Path), removed)

	out := &RemoveOutput{
		Removed:      true,
		Path:         input.Path,
		ChunkRef:     chunkRef(removed),
		Chunks:       p.Len(),
		JournalID:    journalID,
		JournalError: journalErr,
	}
	if text, err := removed.DataAsString(); err == nil {
		out.Message = &text
	}
	return out, nil
}
