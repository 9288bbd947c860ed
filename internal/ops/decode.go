package ops

import (
	"context"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/errors"
)

// DecodeInput contains parameters for the Decode operation.
type DecodeInput struct {
	Path      string // required
	ChunkType string // required
}

// DecodeOutput contains the result of the Decode operation.
type DecodeOutput struct {
	Path string `json:"path"`
	ChunkRef
	Message string `json:"message"`
}

// Decode returns the text of the first chunk with the given type.
func Decode(ctx context.Context, cfg *config.Config, input DecodeInput) (*DecodeOutput, error) {
	if err := checkContext(ctx, "decode"); err != nil {
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

	chunk := p.ChunkByType(chunkType)
	if chunk == nil {
		return nil, errors.NewChunkNotFound(chunkType.String())
	}

	message, err := chunk.DataAsString()
	if err != nil {
		return nil, err
	}

	return &DecodeOutput{
		Path:     input.Path,
		ChunkRef: chunkRef(chunk),
		Message:  message,
	}, nil
}
