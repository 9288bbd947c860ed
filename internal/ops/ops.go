package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/db"
	"github.com/hpungsan/pngme/internal/errors"
	"github.com/hpungsan/pngme/internal/png"
)

// Pagination limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
	MaxPrintManyItems   = 50
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// ChunkRef describes a chunk without its payload.
type ChunkRef struct {
	ChunkType string `json:"chunk_type"`
	Length    uint32 `json:"length"`
	CRC       uint32 `json:"crc"`
}

func chunkRef(c *png.Chunk) ChunkRef {
	return ChunkRef{
		ChunkType: c.Type().String(),
		Length:    c.Length(),
		CRC:       c.CRC(),
	}
}

// writableChunkType builds the type code for a chunk about to be written.
// Unlike lookups, it requires exactly four letters with the reserved bit clear.
func writableChunkType(code string) (png.ChunkType, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return png.ChunkType{}, errors.NewInvalidRequest("chunk_type is required")
	}
	t, err := png.ParseChunkType(code)
	if err != nil {
		return png.ChunkType{}, err
	}
	if len(code) != 4 {
		return png.ChunkType{}, errors.NewInvalidRequest(fmt.Sprintf("chunk_type must be exactly 4 letters, got %q", code))
	}
	if !t.IsReservedBitValid() {
		return png.ChunkType{}, errors.NewReservedBitSet(code)
	}
	return t, nil
}

// lookupChunkType builds the type code used to find an existing chunk.
func lookupChunkType(code string) (png.ChunkType, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return png.ChunkType{}, errors.NewInvalidRequest("chunk_type is required")
	}
	return png.ParseChunkType(code)
}

func parseOptions(cfg *config.Config) png.ParseOptions {
	return png.ParseOptions{SkipChecksum: cfg != nil && cfg.SkipChecksumVerify}
}

// readFile reads path without following a final symlink.
func readFile(path string) ([]byte, error) {
	f, err := openFileNoFollowRead(path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open %s: %w", path, err))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read %s: %w", path, err))
	}
	return data, nil
}

// loadPNG validates, reads and parses a PNG file. The raw bytes are returned
// alongside the parsed container.
func loadPNG(path string, cfg *config.Config) (*png.PNG, []byte, error) {
	if err := ValidatePath(path, PathCheckRead, ExtPNG, cfg); err != nil {
		return nil, nil, err
	}
	raw, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}
	p, err := png.ParseWith(raw, parseOptions(cfg))
	if err != nil {
		return nil, nil, err
	}
	return p, raw, nil
}

func checkContext(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return errors.NewCancelled(op)
	default:
		return nil
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newEntryID(now time.Time) (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to generate ULID: %w", err))
	}
	return id.String(), nil
}

// recordJournal stores c in the journal after the file has been written.
// It is a no-op when the journal is disabled (database is nil). A failed
// insert does not undo the write, so it is reported as a message instead of
// an error and the returned entry ID is empty.
func recordJournal(ctx context.Context, database *sql.DB, op, path string, c *png.Chunk) (id string, failure string) {
	if database == nil {
		return "", ""
	}
	now := time.Now()
	id, err := newEntryID(now)
	if err != nil {
		return "", journalFailure(err)
	}
	entry := &db.Entry{
		ID:        id,
		Op:        op,
		Path:      path,
		ChunkType: c.Type().String(),
		Length:    c.Length(),
		CRC:       c.CRC(),
		Chunk:     c.Bytes(),
		CreatedAt: now.Unix(),
	}
	if err := db.InsertEntry(ctx, database, entry); err != nil {
		return "", journalFailure(err)
	}
	return id, ""
}

func journalFailure(err error) string {
	return fmt.Sprintf("file was written but the journal entry was not recorded: %v", err)
}
