package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/pngme/internal/errors"
)

// Journal operations.
const (
	OpEncode = "encode"
	OpRemove = "remove"
	OpImport = "import"
)

// Entry is one journal record: a chunk that was added to or removed from a file.
type Entry struct {
	ID        string `json:"id"`
	Op        string `json:"op"`
	Path      string `json:"path"`
	ChunkType string `json:"chunk_type"`
	Length    uint32 `json:"length"`
	CRC       uint32 `json:"crc"`
	Chunk     []byte `json:"-"` // serialized chunk record
	CreatedAt int64  `json:"created_at"`
}

// EntryFilter narrows ListEntries, CountEntries and PruneEntries.
type EntryFilter struct {
	Path *string
	Op   *string
}

// InsertEntry stores a journal entry.
func InsertEntry(ctx context.Context, db *sql.DB, e *Entry) error {
	query := `
		INSERT INTO journal (id, op, path, chunk_type, length, crc, chunk, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		e.ID, e.Op, e.Path, e.ChunkType, int64(e.Length), int64(e.CRC), e.Chunk, e.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetEntry retrieves a journal entry by its ULID.
func GetEntry(ctx context.Context, db *sql.DB, id string) (*Entry, error) {
	query := `
		SELECT id, op, path, chunk_type, length, crc, chunk, created_at
		FROM journal
		WHERE id = ?
	`

	e, err := scanEntry(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return e, nil
}

// ListEntries returns journal entries newest first.
func ListEntries(ctx context.Context, db *sql.DB, filter EntryFilter, limit, offset int) ([]Entry, error) {
	where, args := filterClause(filter)
	query := `
		SELECT id, op, path, chunk_type, length, crc, chunk, created_at
		FROM journal` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}

// CountEntries returns the number of entries matching the filter.
func CountEntries(ctx context.Context, db *sql.DB, filter EntryFilter) (int, error) {
	where, args := filterClause(filter)
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM journal"+where, args...).Scan(&count); err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// PruneEntries permanently deletes entries matching the filter.
// If olderThanDays is set, only entries created more than N days ago are deleted.
func PruneEntries(ctx context.Context, db *sql.DB, filter EntryFilter, olderThanDays *int) (int, error) {
	where, args := filterClause(filter)
	if olderThanDays != nil {
		cutoff := time.Now().AddDate(0, 0, -*olderThanDays).Unix()
		if where == "" {
			where = " WHERE created_at < ?"
		} else {
			where += " AND created_at < ?"
		}
		args = append(args, cutoff)
	}

	result, err := db.ExecContext(ctx, "DELETE FROM journal"+where, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// filterClause builds a WHERE clause (with leading space) and its arguments.
func filterClause(filter EntryFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Path != nil {
		clauses = append(clauses, "path = ?")
		args = append(args, *filter.Path)
	}
	if filter.Op != nil {
		clauses = append(clauses, "op = ?")
		args = append(args, *filter.Op)
	}
	if len(clauses) == 0 {
		return "", args
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry scans a single row into an Entry.
func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e      Entry
		length int64
		crc    int64
	)
	if err := row.Scan(&e.ID, &e.Op, &e.Path, &e.ChunkType, &length, &crc, &e.Chunk, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Length = uint32(length)
	e.CRC = uint32(crc)
	return &e, nil
}
