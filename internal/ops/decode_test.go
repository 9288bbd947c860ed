package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/errors"
	"github.com/hpungsan/pngme/internal/png"
)

func TestDecode(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), "dice.png", testChunks()...)

	out, err := Decode(context.Background(), config.DefaultConfig(), DecodeInput{Path: path, ChunkType: "miDl"})
	require.NoError(t, err)
	require.Equal(t, "I am another chunk", out.Message)
	require.Equal(t, "miDl", out.ChunkType)
	require.Equal(t, uint32(3346321170), out.CRC)
	require.Equal(t, uint32(18), out.Length)
}

func TestDecode_FirstMatchWins(t *testing.T) {
	chunks := append(testChunks(), png.NewChunk(png.MustChunkType("FrSt"), []byte("second")))
	path := writeTestPNG(t, t.TempDir(), "dice.png", chunks...)

	out, err := Decode(context.Background(), nil, DecodeInput{Path: path, ChunkType: "FrSt"})
	require.NoError(t, err)
	require.Equal(t, "I am the first chunk", out.Message)
}

func TestDecode_Errors(t *testing.T) {
	chunks := append(testChunks(), png.NewChunk(png.MustChunkType("BiNa"), []byte{0xff, 0xfe, 0xfd}))
	path := writeTestPNG(t, t.TempDir(), "dice.png", chunks...)

	tests := []struct {
		name      string
		chunkType string
		want      errors.ErrorCode
	}{
		{"absent", "RuSt", errors.ErrChunkNotFound},
		{"not utf8", "BiNa", errors.ErrNotUTF8},
		{"empty type", "", errors.ErrInvalidRequest},
		{"bad type", "R!St", errors.ErrInvalidTypeByte},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(context.Background(), nil, DecodeInput{Path: path, ChunkType: tc.chunkType})
			require.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}
