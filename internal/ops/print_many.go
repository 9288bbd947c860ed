package ops

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/errors"
)

// PrintManyInput contains parameters for the PrintMany operation.
type PrintManyInput struct {
	Paths []string
}

// PrintManyOutput contains the result of the PrintMany operation.
type PrintManyOutput struct {
	Items  []PrintOutput    `json:"items"`
	Errors []PrintManyError `json:"errors"`
}

// PrintManyError represents an error for a specific path.
type PrintManyError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PrintMany prints several files concurrently.
// Returns partial success with items and errors arrays, both in input order.
func PrintMany(ctx context.Context, cfg *config.Config, input PrintManyInput) (*PrintManyOutput, error) {
	if len(input.Paths) == 0 {
		return nil, errors.NewInvalidRequest("paths must not be empty")
	}
	if len(input.Paths) > MaxPrintManyItems {
		return nil, errors.NewInvalidRequest(
			fmt.Sprintf("paths exceeds maximum of %d", MaxPrintManyItems))
	}

	results := make([]*PrintOutput, len(input.Paths))
	failures := make([]error, len(input.Paths))

	// Per-path failures are collected rather than returned, so the group
	// only stops early on cancellation.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range input.Paths {
		g.Go(func() error {
			out, err := Print(gctx, cfg, PrintInput{Path: path})
			if err != nil {
				if errors.Is(err, errors.ErrCancelled) {
					return err
				}
				failures[i] = err
				return nil
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	output := &PrintManyOutput{
		Items:  []PrintOutput{},
		Errors: []PrintManyError{},
	}
	for i, path := range input.Paths {
		if results[i] != nil {
			output.Items = append(output.Items, *results[i])
			continue
		}
		output.Errors = append(output.Errors, toPrintManyError(path, failures[i]))
	}
	return output, nil
}

func toPrintManyError(path string, err error) PrintManyError {
	if pErr, ok := errors.As(err); ok {
		return PrintManyError{Path: path, Code: string(pErr.Code), Message: pErr.Message}
	}
	return PrintManyError{Path: path, Code: string(errors.ErrInternal), Message: err.Error()}
}
