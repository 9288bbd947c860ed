package png

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pngme/internal/errors"
)

func TestChunkToExportRecord(t *testing.T) {
	c := chunkFromStrings(t, "RuSt", "This is where your secret message will be!")

	rec := ChunkToExportRecord(3, c)
	require.Equal(t, 3, rec.Index)
	require.Equal(t, "RuSt", rec.ChunkType)
	require.Equal(t, uint32(42), rec.Length)
	require.Equal(t, uint32(2882656334), rec.CRC)
	require.Equal(t, "VGhpcyBpcyB3aGVyZSB5b3VyIHNlY3JldCBtZXNzYWdlIHdpbGwgYmUh", rec.Data)
	require.False(t, rec.PngmeExport)
}

func TestExportRecord_ToChunk(t *testing.T) {
	orig := chunkFromStrings(t, "RuSt", "hello")
	rec := ChunkToExportRecord(0, orig)

	// stale length and CRC are recomputed
	rec.Length = 999
	rec.CRC = 1

	c, err := rec.ToChunk()
	require.NoError(t, err)
	require.Equal(t, orig.Bytes(), c.Bytes())
}

func TestExportRecord_ToChunkErrors(t *testing.T) {
	tests := []struct {
		name string
		rec  ExportRecord
		code errors.ErrorCode
	}{
		{"short type", ExportRecord{ChunkType: "abc"}, errors.ErrInvalidRequest},
		{"long type", ExportRecord{ChunkType: "abcde"}, errors.ErrInvalidRequest},
		{"non-letter", ExportRecord{ChunkType: "ab1d"}, errors.ErrInvalidTypeByte},
		{"reserved bit", ExportRecord{ChunkType: "RUst"}, errors.ErrReservedBitSet},
		{"bad base64", ExportRecord{ChunkType: "RuSt", Data: "!!!"}, errors.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.rec.ToChunk()
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestExportRecord_HeaderLine(t *testing.T) {
	line := `{"_pngme_export":true,"schema_version":"1.0","exported_at":1700000000,"source":"/tmp/a.png","index":0,"length":0,"crc":0,"data":""}`

	var rec ExportRecord
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	require.True(t, rec.PngmeExport)
	require.Equal(t, ExportSchemaVersion, rec.SchemaVersion)
	require.Equal(t, "/tmp/a.png", rec.Source)
}
