package ops

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pngme/internal/errors"
	"github.com/hpungsan/pngme/internal/png"
)

func TestPrint(t *testing.T) {
	chunks := append(testChunks(), png.NewChunk(png.MustChunkType("BiNa"), []byte{0xff}))
	path := writeTestPNG(t, t.TempDir(), "dice.png", chunks...)

	out, err := Print(context.Background(), nil, PrintInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, png.StandardHeader, out.Header)
	require.Equal(t, len(png.FromChunks(chunks).Bytes()), out.Size)
	require.Len(t, out.Chunks, 4)

	first := out.Chunks[0]
	require.Equal(t, 0, first.Index)
	require.Equal(t, "FrSt", first.ChunkType)
	require.Equal(t, uint32(920434671), first.CRC)
	require.True(t, first.Critical)
	require.False(t, first.Public)
	require.True(t, first.ReservedBitValid)
	require.True(t, first.SafeToCopy)
	require.NotNil(t, first.Text)
	require.Equal(t, "I am the first chunk", *first.Text)

	last := out.Chunks[3]
	require.Nil(t, last.Text)
	require.True(t, last.NotUTF8)
}

func TestPrint_JSONShape(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), "dice.png", testChunks()[:1]...)

	out, err := Print(context.Background(), nil, PrintInput{Path: path})
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, []any{137.0, 80.0, 78.0, 71.0, 13.0, 10.0, 26.0, 10.0}, decoded["header"])

	chunk := decoded["chunks"].([]any)[0].(map[string]any)
	require.Equal(t, "FrSt", chunk["chunk_type"])
	require.Equal(t, 20.0, chunk["length"])
	require.NotContains(t, chunk, "not_utf8")
}

func TestPrintMany(t *testing.T) {
	dir := t.TempDir()
	a := writeTestPNG(t, dir, "a.png", testChunks()...)
	b := writeTestPNG(t, dir, "b.png", testChunks()[:1]...)
	missing := filepath.Join(dir, "missing.png")

	out, err := PrintMany(context.Background(), nil, PrintManyInput{Paths: []string{a, missing, b}})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	require.Equal(t, a, out.Items[0].Path)
	require.Len(t, out.Items[0].Chunks, 3)
	require.Equal(t, b, out.Items[1].Path)
	require.Len(t, out.Items[1].Chunks, 1)

	require.Len(t, out.Errors, 1)
	require.Equal(t, missing, out.Errors[0].Path)
	require.Equal(t, string(errors.ErrFileNotFound), out.Errors[0].Code)
}

func TestPrintMany_Limits(t *testing.T) {
	_, err := PrintMany(context.Background(), nil, PrintManyInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	paths := make([]string, MaxPrintManyItems+1)
	for i := range paths {
		paths[i] = "x.png"
	}
	_, err = PrintMany(context.Background(), nil, PrintManyInput{Paths: paths})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestPrintMany_Cancelled(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), "a.png", testChunks()...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PrintMany(ctx, nil, PrintManyInput{Paths: []string{path}})
	require.True(t, errors.Is(err, errors.ErrCancelled))
}
