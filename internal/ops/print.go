package ops

import (
	"context"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/png"
)

// PrintInput contains parameters for the Print operation.
type PrintInput struct {
	Path string // required
}

// PrintOutput describes every chunk of a PNG file.
type PrintOutput struct {
	Path   string      `json:"path"`
	Header [8]byte     `json:"header"`
	Size   int         `json:"size"`
	Chunks []ChunkInfo `json:"chunks"`
}

// ChunkInfo describes one chunk, including its type properties.
type ChunkInfo struct {
	Index int `json:"index"`
	ChunkRef
	Critical         bool    `json:"critical"`
	Public           bool    `json:"public"`
	ReservedBitValid bool    `json:"reserved_bit_valid"`
	SafeToCopy       bool    `json:"safe_to_copy"`
	Text             *string `json:"text"`
	NotUTF8          bool    `json:"not_utf8,omitempty"`
}

// Print lists the header and chunks of a PNG file.
func Print(ctx context.Context, cfg *config.Config, input PrintInput) (*PrintOutput, error) {
	if err := checkContext(ctx, "print"); err != nil {
		return nil, err
	}

	p, raw, err := loadPNG(input.Path, cfg)
	if err != nil {
		return nil, err
	}

	return &PrintOutput{
		Path:   input.Path,
		Header: p.Header(),
		Size:   len(raw),
		Chunks: DescribeChunks(p),
	}, nil
}

// DescribeChunks returns a ChunkInfo for each chunk of p, in order.
func DescribeChunks(p *png.PNG) []ChunkInfo {
	chunks := p.Chunks()
	infos := make([]ChunkInfo, 0, len(chunks))
	for i, c := range chunks {
		t := c.Type()
		info := ChunkInfo{
			Index:            i,
			ChunkRef:         chunkRef(c),
			Critical:         t.IsCritical(),
			Public:           t.IsPublic(),
			ReservedBitValid: t.IsReservedBitValid(),
			SafeToCopy:       t.IsSafeToCopy(),
		}
		if text, err := c.DataAsString(); err == nil {
			info.Text = &text
		} else {
			info.NotUTF8 = true
		}
		infos = append(infos, info)
	}
	return infos
}
