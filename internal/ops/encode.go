package ops

import (
	"bytes"
	"context"
	"database/sql"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/db"
	"github.com/hpungsan/pngme/internal/errors"
	"github.com/hpungsan/pngme/internal/png"
)

// EncodeInput contains parameters for the Encode operation.
type EncodeInput struct {
	Path      string // required, existing .png file
	ChunkType string // required, exactly 4 letters
	Message   string
	Output    string // optional; write the result here instead of modifying Path
}

// EncodeOutput contains the result of the Encode operation.
type EncodeOutput struct {
	Path string `json:"path"` // file that was written
	ChunkRef
	Chunks       int    `json:"chunks"`
	Rewritten    bool   `json:"rewritten"` // false when the chunk was appended in place
	JournalID    string `json:"journal_id,omitempty"`
	JournalError string `json:"journal_error,omitempty"` // set when the file changed but journaling failed
}

// Encode appends a chunk holding Message to a PNG file.
func Encode(ctx context.Context, database *sql.DB, cfg *config.Config, input EncodeInput) (*EncodeOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := checkContext(ctx, "encode"); err != nil {
		return nil, err
	}

	chunkType, err := writableChunkType(input.ChunkType)
	if err != nil {
		return nil, err
	}
	if cfg.MessageMaxBytes > 0 && len(input.Message) > cfg.MessageMaxBytes {
		return nil, errors.NewMessageTooLarge(cfg.MessageMaxBytes, len(input.Message))
	}
	if input.Output != "" {
		if err := ValidatePath(input.Output, PathCheckWrite, ExtPNG, cfg); err != nil {
			return nil, err
		}
	}

	p, raw, err := loadPNG(input.Path, cfg)
	if err != nil {
		return nil, err
	}

	// A trailing chunk without a CRC is completed during parsing, so the
	// on-disk bytes only admit a plain append when they serialize unchanged.
	inPlace := input.Output == "" && bytes.Equal(p.Bytes(), raw)

	chunk := png.NewChunk(chunkType, []byte(input.Message))
	p.AppendChunk(chunk)

	if err := checkContext(ctx, "encode"); err != nil {
		return nil, err
	}

	target := input.Path
	if input.Output != "" {
		target = input.Output
	}
	if inPlace {
		err = appendFile(target, chunk.Bytes())
	} else {
		err = writeFileAtomic(target, p.Bytes(), defaultFileMode)
	}
	if err != nil {
		return nil, err
	}

	journalID, journalErr := recordJournal(ctx, database, db.OpEncode, absPath(target), chunk)

	return &EncodeOutput{
		Path:         target,
		ChunkRef:     chunkRef(chunk),
		Chunks:       p.Len(),
		Rewritten:    !inPlace,
		JournalID:    journalID,
		JournalError: journalErr,
	}, nil
}
