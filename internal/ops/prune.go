package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/pngme/internal/db"
	"github.com/hpungsan/pngme/internal/errors"
)

// PruneInput contains parameters for the Prune operation.
type PruneInput struct {
	Path          string // optional filter
	OlderThanDays *int   // optional, only prune entries created more than N days ago
}

// PruneOutput contains the result of the Prune operation.
type PruneOutput struct {
	Pruned  int    `json:"pruned"`
	Message string `json:"message"`
}

// Prune permanently deletes journal entries.
func Prune(ctx context.Context, database *sql.DB, input PruneInput) (*PruneOutput, error) {
	if database == nil {
		return nil, errors.NewInvalidRequest("journal is disabled")
	}
	if input.OlderThanDays != nil && *input.OlderThanDays < 0 {
		return nil, errors.NewInvalidRequest("older_than_days must not be negative")
	}

	filter, err := journalFilter(input.Path, "")
	if err != nil {
		return nil, err
	}

	count, err := db.PruneEntries(ctx, database, filter, input.OlderThanDays)
	if err != nil {
		return nil, err
	}

	return &PruneOutput{
		Pruned:  count,
		Message: formatPruneMessage(count, filter.Path, input.OlderThanDays),
	}, nil
}

// formatPruneMessage creates a human-readable message for the prune result.
func formatPruneMessage(count int, path *string, olderThanDays *int) string {
	if count == 0 {
		return "No journal entries to prune"
	}

	entryWord := "entry"
	if count > 1 {
		entryWord = "entries"
	}

	msg := fmt.Sprintf("Permanently deleted %d journal %s", count, entryWord)

	if path != nil {
		msg += fmt.Sprintf(" for %q", *path)
	}

	if olderThanDays != nil {
		msg += fmt.Sprintf(" (older than %d days)", *olderThanDays)
	}

	return msg
}
