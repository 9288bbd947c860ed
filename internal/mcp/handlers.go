package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/errors"
	"github.com/hpungsan/pngme/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	log *zap.SugaredLogger
}

// NewHandlers creates a new Handlers instance. A nil db disables the journal;
// a nil log discards log output.
func NewHandlers(db *sql.DB, cfg *config.Config, log *zap.SugaredLogger) *Handlers {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handlers{db: db, cfg: cfg, log: log}
}

// Request types for each tool

// EncodeRequest represents the arguments for png_encode.
type EncodeRequest struct {
	Path      string `json:"path"`
	ChunkType string `json:"chunk_type"`
	Message   string `json:"message"`
	Output    string `json:"output,omitempty"`
}

// ChunkRequest represents the arguments for png_decode and png_remove.
type ChunkRequest struct {
	Path      string `json:"path"`
	ChunkType string `json:"chunk_type"`
}

// PrintRequest represents the arguments for png_print.
type PrintRequest struct {
	Path  string   `json:"path,omitempty"`
	Paths []string `json:"paths,omitempty"`
}

// ExportRequest represents the arguments for png_export.
type ExportRequest struct {
	Path   string `json:"path"`
	Output string `json:"output,omitempty"`
}

// ImportRequest represents the arguments for png_import.
type ImportRequest struct {
	Path   string `json:"path"`
	Source string `json:"source"`
	Mode   string `json:"mode,omitempty"`
}

// HistoryRequest represents the arguments for journal_history.
type HistoryRequest struct {
	Path   string `json:"path,omitempty"`
	Op     string `json:"op,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// PruneRequest represents the arguments for journal_prune.
type PruneRequest struct {
	Path          string `json:"path,omitempty"`
	OlderThanDays *int   `json:"older_than_days,omitempty"`
}

// HandleEncode handles the png_encode tool call.
func (h *Handlers) HandleEncode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EncodeRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Encode(ctx, h.db, h.cfg, ops.EncodeInput{
		Path:      input.Path,
		ChunkType: input.ChunkType,
		Message:   input.Message,
		Output:    input.Output,
	})
	if err != nil {
		return h.fail("png_encode", err), nil
	}

	h.log.Infow("encoded chunk", "path", result.Path, "chunk_type", result.ChunkType, "rewritten", result.Rewritten)
	h.warnJournal("png_encode", result.JournalError)
	return successResult(result)
}

// HandleDecode handles the png_decode tool call.
func (h *Handlers) HandleDecode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ChunkRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Decode(ctx, h.cfg, ops.DecodeInput{
		Path:      input.Path,
		ChunkType: input.ChunkType,
	})
	if err != nil {
		return h.fail("png_decode", err), nil
	}

	return successResult(result)
}

// HandleRemove handles the png_remove tool call.
func (h *Handlers) HandleRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ChunkRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Remove(ctx, h.db, h.cfg, ops.RemoveInput{
		Path:      input.Path,
		ChunkType: input.ChunkType,
	})
	if err != nil {
		return h.fail("png_remove", err), nil
	}

	h.log.Infow("removed chunk", "path", result.Path, "chunk_type", result.ChunkType)
	h.warnJournal("png_remove", result.JournalError)
	return successResult(result)
}

// HandlePrint handles the png_print tool call.
// Exactly one of path or paths must be given.
func (h *Handlers) HandlePrint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PrintRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	if (input.Path == "") == (len(input.Paths) == 0) {
		return errorResult(errors.NewInvalidRequest("specify exactly one of path or paths")), nil
	}

	if input.Path != "" {
		result, err := ops.Print(ctx, h.cfg, ops.PrintInput{Path: input.Path})
		if err != nil {
			return h.fail("png_print", err), nil
		}
		return successResult(result)
	}

	result, err := ops.PrintMany(ctx, h.cfg, ops.PrintManyInput{Paths: input.Paths})
	if err != nil {
		return h.fail("png_print", err), nil
	}
	return successResult(result)
}

// HandleExport handles the png_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Export(ctx, h.cfg, ops.ExportInput{
		Path:   input.Path,
		Output: input.Output,
	})
	if err != nil {
		return h.fail("png_export", err), nil
	}

	return successResult(result)
}

// HandleImport handles the png_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Path:   input.Path,
		Source: input.Source,
		Mode:   ops.ImportMode(input.Mode),
	})
	if err != nil {
		return h.fail("png_import", err), nil
	}
	h.warnJournal("png_import", result.JournalError)

	return successResult(result)
}

// HandleHistory handles the journal_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.History(ctx, h.db, ops.HistoryInput{
		Path:   input.Path,
		Op:     input.Op,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return h.fail("journal_history", err), nil
	}

	return successResult(result)
}

// HandlePrune handles the journal_prune tool call.
func (h *Handlers) HandlePrune(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PruneRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Prune(ctx, h.db, ops.PruneInput{
		Path:          input.Path,
		OlderThanDays: input.OlderThanDays,
	})
	if err != nil {
		return h.fail("journal_prune", err), nil
	}

	return successResult(result)
}

// Result helpers

// fail logs internal errors with their cause and converts err to an error result.
func (h *Handlers) fail(tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, errors.ErrInternal) {
		h.log.Errorw("tool failed", "tool", tool, "error", err)
	} else {
		h.log.Debugw("tool rejected request", "tool", tool, "error", err)
	}
	return errorResult(err)
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if pErr, ok := errors.As(err); ok {
		message := pErr.Message
		// Keep context added by fmt.Errorf("...: %w") wrappers.
		if err != error(pErr) && pErr.Code != errors.ErrInternal {
			message = err.Error()
		}
		errorObj := map[string]any{
			"code":    pErr.Code,
			"message": message,
			"status":  pErr.Status,
		}
		if pErr.Code != errors.ErrInternal {
			if pErr.Details != nil {
				errorObj["details"] = pErr.Details
			}
			if cause, ok := errors.As(pErr.Cause); ok {
				errorObj["cause"] = map[string]any{
					"code":    cause.Code,
					"message": cause.Message,
				}
			}
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, err := json.Marshal(payload)
	if err != nil {
		content = []byte(fmt.Sprintf(`{"error":{"code":%q,"message":"an internal error occurred","status":500}}`, errors.ErrInternal))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

func (h *Handlers) warnJournal(tool, failure string) {
	if failure != "" {
		h.log.Warnw("journal entry not recorded", "tool", tool, "error", failure)
	}
}
