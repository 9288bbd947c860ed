package ops

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pngme/internal/db"
	"github.com/hpungsan/pngme/internal/errors"
	"github.com/hpungsan/pngme/internal/png"
)

const secretMessage = "This is where your secret message will be!"

func testChunks() []*png.Chunk {
	return []*png.Chunk{
		png.NewChunk(png.MustChunkType("FrSt"), []byte("I am the first chunk")),
		png.NewChunk(png.MustChunkType("miDl"), []byte("I am another chunk")),
		png.NewChunk(png.MustChunkType("LASt"), []byte("I am the last chunk")),
	}
}

// writeTestPNG writes a PNG made of chunks to dir/name and returns its path.
func writeTestPNG(t *testing.T, dir, name string, chunks ...*png.Chunk) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, png.FromChunks(chunks).Bytes(), 0644))
	return path
}

func readTestPNG(t *testing.T, path string) *png.PNG {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	p, err := png.Parse(raw)
	require.NoError(t, err)
	return p
}

func setupJournal(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestWritableChunkType(t *testing.T) {
	ct, err := writableChunkType(" RuSt ")
	require.NoError(t, err)
	require.Equal(t, "RuSt", ct.String())

	tests := []struct {
		name string
		code string
		want errors.ErrorCode
	}{
		{"empty", "", errors.ErrInvalidRequest},
		{"too long", "RuStY", errors.ErrTooLong},
		{"too short", "RuS", errors.ErrInvalidRequest},
		{"digit", "Ru1t", errors.ErrInvalidTypeByte},
		{"reserved bit", "Rust", errors.ErrReservedBitSet},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := writableChunkType(tc.code)
			require.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestLookupChunkType(t *testing.T) {
	// Lookups accept the reserved bit so any stored chunk can be addressed.
	ct, err := lookupChunkType("Rust")
	require.NoError(t, err)
	require.Equal(t, "Rust", ct.String())

	_, err = lookupChunkType("")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = lookupChunkType("RustY")
	require.True(t, errors.Is(err, errors.ErrTooLong))
}

func TestNewEntryID_Monotonic(t *testing.T) {
	now := time.Now()
	a, err := newEntryID(now)
	require.NoError(t, err)
	b, err := newEntryID(now)
	require.NoError(t, err)
	require.Len(t, a, 26)
	require.Less(t, a, b)
}

func TestReadFile_NotFound(t *testing.T) {
	_, err := readFile(filepath.Join(t.TempDir(), "missing.png"))
	require.True(t, errors.Is(err, errors.ErrFileNotFound))
}
