package png

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/hpungsan/pngme/internal/errors"
)

// StandardHeader is the 8-byte signature every PNG file starts with.
var StandardHeader = [8]byte{137, 80, 78, 71, 13, 10, 26, 10}

// PNG is a signature followed by an ordered list of chunks.
// It only guarantees the list round-trips through Bytes and Parse; it does not
// check for IHDR, IDAT or IEND.
//
// A PNG is owned by one caller at a time and has no internal locking.
type PNG struct {
	header [8]byte
	chunks []*Chunk
}

// FromChunks builds a PNG with the standard header around the given chunks.
func FromChunks(chunks []*Chunk) *PNG {
	owned := make([]*Chunk, len(chunks))
	copy(owned, chunks)
	return &PNG{
		header: StandardHeader,
		chunks: owned,
	}
}

// Parse reads a full PNG byte stream, verifying every chunk's CRC.
func Parse(buf []byte) (*PNG, error) {
	return ParseWith(buf, ParseOptions{})
}

// ParseWith reads a full PNG byte stream.
// Chunk errors are wrapped as MALFORMED_CHUNK with the record's index and offset.
func ParseWith(buf []byte, opts ParseOptions) (*PNG, error) {
	if len(buf) < len(StandardHeader) || !bytes.Equal(buf[:len(StandardHeader)], StandardHeader[:]) {
		return nil, errors.NewBadSignature()
	}

	p := &PNG{header: StandardHeader}
	offset := len(StandardHeader)
	for offset < len(buf) {
		c, n, err := ParseChunkWith(buf[offset:], opts)
		if err != nil {
			return nil, errors.NewMalformedChunkAt(len(p.chunks), offset, err)
		}
		p.chunks = append(p.chunks, c)
		offset += n
	}
	return p, nil
}

// AppendChunk adds a chunk to the end of the list.
func (p *PNG) AppendChunk(c *Chunk) {
	p.chunks = append(p.chunks, c)
}

// RemoveFirstChunk removes and returns the first chunk of the given type.
// The PNG is unchanged when no chunk matches.
func (p *PNG) RemoveFirstChunk(t ChunkType) (*Chunk, error) {
	i := p.indexOf(t)
	if i < 0 {
		return nil, errors.NewChunkNotFound(t.String())
	}
	removed := p.chunks[i]
	p.chunks = slices.Delete(p.chunks, i, i+1)
	return removed, nil
}

// ChunkByType returns the first chunk of the given type, or nil.
func (p *PNG) ChunkByType(t ChunkType) *Chunk {
	if i := p.indexOf(t); i >= 0 {
		return p.chunks[i]
	}
	return nil
}

func (p *PNG) indexOf(t ChunkType) int {
	for i, c := range p.chunks {
		if c.Type() == t {
			return i
		}
	}
	return -1
}

// Header returns the 8-byte signature.
func (p *PNG) Header() [8]byte {
	return p.header
}

// Chunks returns the chunks in file order. The returned slice is a copy.
func (p *PNG) Chunks() []*Chunk {
	out := make([]*Chunk, len(p.chunks))
	copy(out, p.chunks)
	return out
}

// Len returns the number of chunks.
func (p *PNG) Len() int {
	return len(p.chunks)
}

// Bytes serializes the header followed by every chunk in order.
func (p *PNG) Bytes() []byte {
	size := len(p.header)
	for _, c := range p.chunks {
		size += c.Size()
	}
	out := make([]byte, 0, size)
	out = append(out, p.header[:]...)
	for _, c := range p.chunks {
		out = c.appendTo(out)
	}
	return out
}

// String implements fmt.Stringer.
func (p *PNG) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PNG{header: %v, chunks: [", p.header)
	for i, c := range p.chunks {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Type().String())
	}
	b.WriteString("]}")
	return b.String()
}
