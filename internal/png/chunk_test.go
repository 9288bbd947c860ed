package png

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pngme/internal/errors"
)

const (
	testMessage = "This is where your secret message will be!"
	testCRC     = uint32(2882656334)
)

// chunkBytes lays out a raw chunk record without computing anything.
func chunkBytes(length uint32, chunkType string, data []byte, crc uint32) []byte {
	out := binary.BigEndian.AppendUint32(nil, length)
	out = append(out, chunkType...)
	out = append(out, data...)
	return binary.BigEndian.AppendUint32(out, crc)
}

func testingChunk(t *testing.T) *Chunk {
	t.Helper()
	c, n, err := ParseChunk(chunkBytes(42, "RuSt", []byte(testMessage), testCRC))
	require.NoError(t, err)
	require.Equal(t, 54, n)
	return c
}

func TestNewChunk(t *testing.T) {
	c := NewChunk(MustChunkType("RuSt"), []byte(testMessage))

	require.Equal(t, uint32(42), c.Length())
	require.Equal(t, testCRC, c.CRC())
	require.Equal(t, "RuSt", c.Type().String())
}

func TestNewChunk_CopiesData(t *testing.T) {
	data := []byte("mutable")
	c := NewChunk(MustChunkType("RuSt"), data)
	data[0] = 'X'
	require.Equal(t, "mutable", string(c.Data()))
}

func TestNewChunk_Deterministic(t *testing.T) {
	a := NewChunk(MustChunkType("teSt"), []byte("same input"))
	b := NewChunk(MustChunkType("teSt"), []byte("same input"))
	require.Equal(t, a.CRC(), b.CRC())

	want := crc32.ChecksumIEEE(append([]byte("teSt"), "same input"...))
	require.Equal(t, want, a.CRC())
}

func TestNewChunk_Empty(t *testing.T) {
	c := NewChunk(MustChunkType("IEND"), nil)
	require.Equal(t, uint32(0), c.Length())
	require.Equal(t, crc32.ChecksumIEEE([]byte("IEND")), c.CRC())
	require.Len(t, c.Bytes(), ChunkOverhead)
}

func TestParseChunk(t *testing.T) {
	c := testingChunk(t)

	require.Equal(t, uint32(42), c.Length())
	require.Equal(t, "RuSt", c.Type().String())
	require.Equal(t, testCRC, c.CRC())

	text, err := c.DataAsString()
	require.NoError(t, err)
	require.Equal(t, testMessage, text)
}

func TestParseChunk_ChecksumMismatch(t *testing.T) {
	_, _, err := ParseChunk(chunkBytes(42, "RuSt", []byte(testMessage), testCRC-1))
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrChecksumMismatch))
}

func TestParseChunk_SkipChecksumKeepsStoredValue(t *testing.T) {
	c, _, err := ParseChunkWith(chunkBytes(42, "RuSt", []byte(testMessage), testCRC-1), ParseOptions{SkipChecksum: true})
	require.NoError(t, err)
	require.Equal(t, testCRC-1, c.CRC())
}

func TestParseChunk_MissingCRCIsComputed(t *testing.T) {
	buf := chunkBytes(42, "RuSt", []byte(testMessage), 0)
	buf = buf[:len(buf)-crcSize]

	c, n, err := ParseChunk(buf)
	require.NoError(t, err)
	require.Equal(t, 50, n)
	require.Equal(t, testCRC, c.CRC())
}

func TestParseChunk_Errors(t *testing.T) {
	full := chunkBytes(42, "RuSt", []byte(testMessage), testCRC)

	tests := []struct {
		name string
		buf  []byte
		code errors.ErrorCode
	}{
		{name: "empty", buf: nil, code: errors.ErrMalformedChunk},
		{name: "length only", buf: full[:4], code: errors.ErrMalformedChunk},
		{name: "partial type", buf: full[:7], code: errors.ErrMalformedChunk},
		{name: "bad type byte", buf: chunkBytes(1, "Ru1t", []byte("x"), 0), code: errors.ErrInvalidTypeByte},
		{name: "truncated data", buf: full[:20], code: errors.ErrTruncatedPayload},
		{name: "huge length", buf: chunkBytes(0xFFFFFFFF, "RuSt", []byte("x"), 0), code: errors.ErrTruncatedPayload},
		{name: "truncated crc", buf: full[:len(full)-2], code: errors.ErrMalformedChunk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, n, err := ParseChunk(tt.buf)
			require.Error(t, err)
			require.Nil(t, c)
			require.Zero(t, n)
			require.True(t, errors.Is(err, tt.code), "got %v, want code %s", err, tt.code)
		})
	}
}

func TestParseChunk_BadTypeIsMalformed(t *testing.T) {
	_, _, err := ParseChunk(chunkBytes(1, "Ru1t", []byte("x"), 0))
	require.True(t, errors.Is(err, errors.ErrMalformedChunk))
	require.True(t, errors.Is(err, errors.ErrInvalidTypeByte))
}

func TestParseChunk_ReservedBitTolerated(t *testing.T) {
	c := NewChunk(MustChunkType("Rust"), []byte("lowercase third byte"))
	parsed, _, err := ParseChunk(c.Bytes())
	require.NoError(t, err)
	require.False(t, parsed.Type().IsValid())
}

func TestParseChunk_IgnoresTrailingBytes(t *testing.T) {
	buf := append(chunkBytes(42, "RuSt", []byte(testMessage), testCRC), "next record"...)
	c, n, err := ParseChunk(buf)
	require.NoError(t, err)
	require.Equal(t, 54, n)
	require.Equal(t, uint32(42), c.Length())
}

func TestChunkRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		data []byte
	}{
		{name: "text", typ: "RuSt", data: []byte(testMessage)},
		{name: "empty", typ: "IEND", data: []byte{}},
		{name: "binary", typ: "biNa", data: []byte{0, 1, 2, 0xff, 0xfe, 137, 80, 78, 71}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChunk(MustChunkType(tt.typ), tt.data)
			parsed, n, err := ParseChunk(c.Bytes())
			require.NoError(t, err)
			require.Equal(t, len(c.Bytes()), n)
			require.Equal(t, c, parsed)
		})
	}
}

func TestChunkBytes_Layout(t *testing.T) {
	c := NewChunk(MustChunkType("RuSt"), []byte(testMessage))
	require.Equal(t, chunkBytes(42, "RuSt", []byte(testMessage), testCRC), c.Bytes())
	require.Equal(t, 54, c.Size())
}

func TestDataAsString_NotUTF8(t *testing.T) {
	c := NewChunk(MustChunkType("RuSt"), []byte{0xff, 0xfe, 0xfd})
	_, err := c.DataAsString()
	require.True(t, errors.Is(err, errors.ErrNotUTF8))
}

func TestChunkString(t *testing.T) {
	c := testingChunk(t)
	require.Equal(t, "Chunk{length: 42, type: RuSt, crc: abd1d84e}", c.String())
}
