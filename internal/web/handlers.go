package web

import (
	"database/sql"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/errors"
	"github.com/hpungsan/pngme/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
}

func (h *Handlers) pageData(title, nav string) PageData {
	return PageData{
		Title:   title,
		Version: h.renderer.version,
		Nav:     nav,
		Journal: h.db != nil,
	}
}

// HandleIndex handles GET / by redirecting to the inspector.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/inspect", http.StatusFound)
}

// HandleInspect handles GET /inspect?path= — list the chunks of a PNG file.
// Without a path it renders the empty form.
func (h *Handlers) HandleInspect(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	data := InspectPageData{
		PageData: h.pageData("Inspect", "inspect"),
		Path:     path,
	}

	if path == "" {
		if wantsJSON(r) {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("path is required"))
			return
		}
		h.renderer.renderPage(w, r, "inspect", data)
		return
	}

	result, err := ops.Print(r.Context(), h.cfg, ops.PrintInput{Path: path})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data.Title = result.Path
	data.File = result
	data.Chunks = make([]ChunkView, 0, len(result.Chunks))
	for _, c := range result.Chunks {
		view := ChunkView{ChunkInfo: c}
		if c.Text != nil {
			view.RenderedHTML = renderMarkdown(*c.Text)
		}
		data.Chunks = append(data.Chunks, view)
	}

	h.renderer.renderPage(w, r, "inspect", data)
}

// HandleHistory handles GET /history — list journal entries.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	input := ops.HistoryInput{
		Path:   r.URL.Query().Get("path"),
		Op:     r.URL.Query().Get("op"),
		Limit:  parseIntParam(r, "limit", ops.DefaultHistoryLimit),
		Offset: parseIntParam(r, "offset", 0),
	}

	result, err := ops.History(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "history", HistoryPageData{
		PageData:   h.pageData("History", "history"),
		Items:      result.Items,
		Pagination: result.Pagination,
		Path:       input.Path,
		Op:         input.Op,
	})
}

// HandlePrune handles POST /history/prune — permanently delete journal entries.
func (h *Handlers) HandlePrune(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	input := ops.PruneInput{Path: r.FormValue("path")}

	if days := r.FormValue("older_than_days"); days != "" {
		d, err := strconv.Atoi(days)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("older_than_days must be an integer"))
			return
		}
		input.OlderThanDays = &d
	}

	result, err := ops.Prune(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<div class="prune-result">` + template.HTMLEscapeString(result.Message) + `</div>`))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/history", http.StatusFound)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
