package png

import (
	"github.com/hpungsan/pngme/internal/errors"
)

// propertyBit is the bit that distinguishes upper from lower case ASCII letters.
// Its value in each of the four type bytes encodes one chunk property.
const propertyBit = 0x20

// ChunkType is the 4-byte tag that names a chunk.
// It is a value type; two ChunkTypes are equal when their bytes are equal.
type ChunkType [4]byte

// ParseChunkTypeBytes builds a ChunkType for a newly authored chunk.
// Every byte must be an ASCII letter and the reserved bit (byte 2) must be clear.
func ParseChunkTypeBytes(b [4]byte) (ChunkType, error) {
	t, err := rawChunkType(b)
	if err != nil {
		return ChunkType{}, err
	}
	if !t.IsReservedBitValid() {
		return ChunkType{}, errors.NewReservedBitSet(t.String())
	}
	return t, nil
}

// rawChunkType accepts any four ASCII letters. The chunk parser uses it so that
// chunks carrying a set reserved bit can still be read.
func rawChunkType(b [4]byte) (ChunkType, error) {
	for _, c := range b {
		if !isLetter(c) {
			return ChunkType{}, errors.NewInvalidTypeByte(c)
		}
	}
	return ChunkType(b), nil
}

// ParseChunkType parses a textual type code of at most four ASCII letters.
// Shorter codes are right-padded with zero bytes, which IsValid rejects.
// The reserved bit is not checked.
func ParseChunkType(s string) (ChunkType, error) {
	if len(s) > 4 {
		return ChunkType{}, errors.NewTooLong(s)
	}
	var t ChunkType
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) {
			return ChunkType{}, errors.NewInvalidTypeByte(s[i])
		}
		t[i] = s[i]
	}
	return t, nil
}

// MustChunkType is like ParseChunkType but panics on error.
// It is meant for literals known at compile time.
func MustChunkType(s string) ChunkType {
	t, err := ParseChunkType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Bytes returns the raw type bytes.
func (t ChunkType) Bytes() [4]byte {
	return t
}

// IsValid reports whether all bytes are letters and the reserved bit is clear.
func (t ChunkType) IsValid() bool {
	for _, c := range t {
		if !isLetter(c) {
			return false
		}
	}
	return t.IsReservedBitValid()
}

// IsCritical reports whether decoders must understand the chunk (byte 0 uppercase).
func (t ChunkType) IsCritical() bool {
	return t[0]&propertyBit == 0
}

// IsPublic reports whether the type is registered publicly (byte 1 uppercase).
func (t ChunkType) IsPublic() bool {
	return t[1]&propertyBit == 0
}

// IsReservedBitValid reports whether byte 2 is uppercase.
func (t ChunkType) IsReservedBitValid() bool {
	return t[2]&propertyBit == 0
}

// IsSafeToCopy reports whether editors may copy the chunk unchanged (byte 3 lowercase).
func (t ChunkType) IsSafeToCopy() bool {
	return t[3]&propertyBit != 0
}

// String returns the type bytes as ASCII characters.
func (t ChunkType) String() string {
	return string(t[:])
}

// MarshalText implements encoding.TextMarshaler.
func (t ChunkType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ChunkType) UnmarshalText(text []byte) error {
	parsed, err := ParseChunkType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
