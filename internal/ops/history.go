package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/pngme/internal/db"
	"github.com/hpungsan/pngme/internal/errors"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	Path   string // optional filter; compared as an absolute path
	Op     string // optional filter: encode, remove, import
	Limit  int    // default 20, max 100
	Offset int
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []db.Entry `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// History lists journal entries, newest first.
func History(ctx context.Context, database *sql.DB, input HistoryInput) (*HistoryOutput, error) {
	if database == nil {
		return nil, errors.NewInvalidRequest("journal is disabled")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	filter, err := journalFilter(input.Path, input.Op)
	if err != nil {
		return nil, err
	}

	items, err := db.ListEntries(ctx, database, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := db.CountEntries(ctx, database, filter)
	if err != nil {
		return nil, err
	}

	return &HistoryOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}

func journalFilter(path, op string) (db.EntryFilter, error) {
	var filter db.EntryFilter
	if path = strings.TrimSpace(path); path != "" {
		abs := absPath(path)
		filter.Path = &abs
	}
	if op = strings.TrimSpace(op); op != "" {
		switch op {
		case db.OpEncode, db.OpRemove, db.OpImport:
			filter.Op = &op
		default:
			return filter, errors.NewInvalidRequest("op must be one of: encode, remove, import")
		}
	}
	return filter, nil
}
