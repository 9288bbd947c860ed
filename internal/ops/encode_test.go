package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/db"
	"github.com/hpungsan/pngme/internal/errors"
	"github.com/hpungsan/pngme/internal/png"
)

func TestEncode_AppendsInPlace(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "dice.png", testChunks()...)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	out, err := Encode(context.Background(), nil, config.DefaultConfig(), EncodeInput{
		Path:      path,
		ChunkType: "RuSt",
		Message:   secretMessage,
	})
	require.NoError(t, err)
	require.Equal(t, path, out.Path)
	require.Equal(t, "RuSt", out.ChunkType)
	require.Equal(t, uint32(42), out.Length)
	require.Equal(t, uint32(2882656334), out.CRC)
	require.Equal(t, 4, out.Chunks)
	require.False(t, out.Rewritten)
	require.Empty(t, out.JournalID)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after[:len(before)])

	// The appended bytes equal a full serialization of the new container.
	p := readTestPNG(t, path)
	require.Equal(t, after, p.Bytes())
	c := p.ChunkByType(png.MustChunkType("RuSt"))
	require.NotNil(t, c)
	require.Equal(t, secretMessage, string(c.Data()))
}

func TestEncode_Output(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "dice.png", testChunks()...)
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	outPath := filepath.Join(dir, "out.png")

	out, err := Encode(context.Background(), nil, config.DefaultConfig(), EncodeInput{
		Path:      path,
		ChunkType: "RuSt",
		Message:   secretMessage,
		Output:    outPath,
	})
	require.NoError(t, err)
	require.Equal(t, outPath, out.Path)
	require.True(t, out.Rewritten)

	unchanged, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, unchanged)

	p := readTestPNG(t, outPath)
	require.Equal(t, 4, p.Len())
	require.Equal(t, "RuSt", p.Chunks()[3].Type().String())
}

func TestEncode_LastChunkWithoutCRCRewrites(t *testing.T) {
	dir := t.TempDir()
	full := png.FromChunks(testChunks()).Bytes()
	path := filepath.Join(dir, "short.png")
	require.NoError(t, os.WriteFile(path, full[:len(full)-4], 0644))

	out, err := Encode(context.Background(), nil, config.DefaultConfig(), EncodeInput{
		Path:      path,
		ChunkType: "RuSt",
		Message:   "hi",
	})
	require.NoError(t, err)
	require.True(t, out.Rewritten)

	p := readTestPNG(t, path)
	require.Equal(t, 4, p.Len())
	require.Equal(t, "LASt", p.Chunks()[2].Type().String())
}

func TestEncode_RecordsJournal(t *testing.T) {
	database := setupJournal(t)
	ctx := context.Background()
	path := writeTestPNG(t, t.TempDir(), "dice.png", testChunks()...)

	out, err := Encode(ctx, database, config.DefaultConfig(), EncodeInput{
		Path:      path,
		ChunkType: "RuSt",
		Message:   secretMessage,
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.JournalID)

	entry, err := db.GetEntry(ctx, database, out.JournalID)
	require.NoError(t, err)
	require.Equal(t, db.OpEncode, entry.Op)
	require.Equal(t, absPath(path), entry.Path)
	require.Equal(t, "RuSt", entry.ChunkType)
	require.Equal(t, uint32(2882656334), entry.CRC)

	c, _, err := png.ParseChunk(entry.Chunk)
	require.NoError(t, err)
	require.Equal(t, secretMessage, string(c.Data()))
}

func TestEncode_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPNG(t, dir, "dice.png", testChunks()...)
	cfg := config.DefaultConfig()
	cfg.MessageMaxBytes = 10

	tests := []struct {
		name  string
		input EncodeInput
		want  errors.ErrorCode
	}{
		{"type too long", EncodeInput{Path: path, ChunkType: "RuStY", Message: "x"}, errors.ErrTooLong},
		{"bad type byte", EncodeInput{Path: path, ChunkType: "Ru5t", Message: "x"}, errors.ErrInvalidTypeByte},
		{"reserved bit", EncodeInput{Path: path, ChunkType: "Rust", Message: "x"}, errors.ErrReservedBitSet},
		{"message too large", EncodeInput{Path: path, ChunkType: "RuSt", Message: strings.Repeat("x", 11)}, errors.ErrMessageTooLarge},
		{"missing file", EncodeInput{Path: filepath.Join(dir, "nope.png"), ChunkType: "RuSt"}, errors.ErrFileNotFound},
		{"wrong extension", EncodeInput{Path: filepath.Join(dir, "dice.gif"), ChunkType: "RuSt"}, errors.ErrInvalidRequest},
		{"bad output", EncodeInput{Path: path, ChunkType: "RuSt", Output: filepath.Join(dir, "out.txt")}, errors.ErrInvalidRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Encode(context.Background(), nil, cfg, tc.input)
			require.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	// Nothing was written by the failed calls.
	require.Equal(t, 3, readTestPNG(t, path).Len())
}

func TestEncode_NotAPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.png")
	require.NoError(t, os.WriteFile(path, []byte("GIF89a not a png"), 0644))

	_, err := Encode(context.Background(), nil, nil, EncodeInput{Path: path, ChunkType: "RuSt", Message: "x"})
	require.True(t, errors.Is(err, errors.ErrBadSignature), "got %v", err)
}

func TestEncode_Cancelled(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), "dice.png", testChunks()...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Encode(ctx, nil, nil, EncodeInput{Path: path, ChunkType: "RuSt", Message: "x"})
	require.True(t, errors.Is(err, errors.ErrCancelled))
}

func TestEncode_JournalFailureKeepsWrite(t *testing.T) {
	database := setupJournal(t)
	require.NoError(t, database.Close())
	path := writeTestPNG(t, t.TempDir(), "dice.png", testChunks()...)
	input := EncodeInput{Path: path, ChunkType: "ruSt", Message: secretMessage}

	out, err := Encode(context.Background(), database, nil, input)
	require.NoError(t, err)
	require.Empty(t, out.JournalID)
	require.NotEmpty(t, out.JournalError)
	require.Equal(t, 4, out.Chunks)
	require.Equal(t, 4, readTestPNG(t, path).Len())

	// The caller sees success, so it has no reason to retry and double-append.
	require.Equal(t, 1, countChunks(readTestPNG(t, path), "ruSt"))
}

func countChunks(p *png.PNG, chunkType string) int {
	n := 0
	for _, c := range p.Chunks() {
		if c.Type().String() == chunkType {
			n++
		}
	}
	return n
}
