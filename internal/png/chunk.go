package png

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"unicode/utf8"

	"github.com/hpungsan/pngme/internal/errors"
)

// Record layout sizes.
const (
	lengthSize = 4
	typeSize   = 4
	crcSize    = 4

	// chunkPrefixSize is the length and type fields that precede the data.
	chunkPrefixSize = lengthSize + typeSize

	// ChunkOverhead is the number of bytes a chunk record adds around its data.
	ChunkOverhead = chunkPrefixSize + crcSize
)

// ParseOptions controls how strictly records are parsed.
type ParseOptions struct {
	// SkipChecksum keeps a stored CRC as-is instead of verifying it.
	SkipChecksum bool
}

// Chunk is a single length-prefixed, checksummed PNG record.
// A Chunk is not modified after construction.
type Chunk struct {
	length    uint32
	chunkType ChunkType
	data      []byte
	crc       uint32
}

// NewChunk builds a chunk from a type and data, computing its CRC.
func NewChunk(t ChunkType, data []byte) *Chunk {
	owned := make([]byte, len(data))
	copy(owned, data)
	return &Chunk{
		length:    uint32(len(owned)),
		chunkType: t,
		data:      owned,
		crc:       checksum(t, owned),
	}
}

// ParseChunk reads one chunk record from the start of buf and verifies its CRC.
// It returns the chunk and the number of bytes consumed.
func ParseChunk(buf []byte) (*Chunk, int, error) {
	return ParseChunkWith(buf, ParseOptions{})
}

// ParseChunkWith reads one chunk record from the start of buf.
//
// When buf ends exactly at the end of the data, the CRC is computed rather than
// read. Between one and three trailing bytes is a truncated CRC and fails.
func ParseChunkWith(buf []byte, opts ParseOptions) (*Chunk, int, error) {
	if len(buf) < chunkPrefixSize {
		return nil, 0, errors.NewMalformedChunk(
			fmt.Sprintf("need at least %d bytes for length and type, have %d", chunkPrefixSize, len(buf)), nil)
	}

	length := binary.BigEndian.Uint32(buf[:lengthSize])

	var typeBytes [4]byte
	copy(typeBytes[:], buf[lengthSize:chunkPrefixSize])
	t, err := rawChunkType(typeBytes)
	if err != nil {
		return nil, 0, errors.NewMalformedChunk("invalid chunk type", err)
	}

	rest := buf[chunkPrefixSize:]
	if uint64(len(rest)) < uint64(length) {
		return nil, 0, errors.NewTruncatedPayload(length, len(rest))
	}
	data := make([]byte, length)
	copy(data, rest[:length])
	rest = rest[length:]

	computed := checksum(t, data)
	c := &Chunk{
		length:    length,
		chunkType: t,
		data:      data,
		crc:       computed,
	}

	switch {
	case len(rest) == 0:
		return c, chunkPrefixSize + int(length), nil
	case len(rest) < crcSize:
		return nil, 0, errors.NewMalformedChunk(
			fmt.Sprintf("chunk %s has a truncated crc (%d of %d bytes)", t, len(rest), crcSize), nil)
	}

	stored := binary.BigEndian.Uint32(rest[:crcSize])
	if stored != computed && !opts.SkipChecksum {
		return nil, 0, errors.NewChecksumMismatch(t.String(), stored, computed)
	}
	c.crc = stored
	return c, ChunkOverhead + int(length), nil
}

// Length returns the number of data bytes.
func (c *Chunk) Length() uint32 {
	return c.length
}

// Type returns the chunk type.
func (c *Chunk) Type() ChunkType {
	return c.chunkType
}

// Data returns the chunk data. Callers must not modify it.
func (c *Chunk) Data() []byte {
	return c.data
}

// CRC returns the chunk's checksum.
func (c *Chunk) CRC() uint32 {
	return c.crc
}

// DataAsString returns the data as text, failing if it is not valid UTF-8.
func (c *Chunk) DataAsString() (string, error) {
	if !utf8.Valid(c.data) {
		return "", errors.NewNotUTF8(c.chunkType.String())
	}
	return string(c.data), nil
}

// Bytes serializes the chunk as length | type | data | crc.
func (c *Chunk) Bytes() []byte {
	out := make([]byte, 0, ChunkOverhead+len(c.data))
	return c.appendTo(out)
}

func (c *Chunk) appendTo(out []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, c.length)
	out = append(out, c.chunkType[:]...)
	out = append(out, c.data...)
	return binary.BigEndian.AppendUint32(out, c.crc)
}

// Size returns the serialized size of the chunk in bytes.
func (c *Chunk) Size() int {
	return ChunkOverhead + len(c.data)
}

// String implements fmt.Stringer.
func (c *Chunk) String() string {
	return fmt.Sprintf("Chunk{length: %d, type: %s, crc: %08x}", c.length, c.chunkType, c.crc)
}

// checksum computes CRC-32/ISO-HDLC over the type bytes followed by the data.
func checksum(t ChunkType, data []byte) uint32 {
	crc := crc32.Update(0, crc32.IEEETable, t[:])
	return crc32.Update(crc, crc32.IEEETable, data)
}
