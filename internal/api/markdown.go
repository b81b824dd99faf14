package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notely/internal/markdown"
)

// ExportNote handles GET /api/notes/{id}/markdown.
//
//	@Summary		Export a note as Markdown with a YAML header
//	@Tags			notes
//	@Produce		text/markdown
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/markdown [get]
func (h *Handler) ExportNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.ownedNote(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeError(w, err, "export note failed", slog.String("id", id))
		return
	}
	out, err := markdown.Render(*note)
	if err != nil {
		writeError(w, err, "export note failed", slog.String("id", id))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// ImportNote handles POST /api/notes/import. The body is a Markdown
// document; its header may set title, tags, favorite and summary.
//
//	@Summary		Create a note from a Markdown document
//	@Tags			notes
//	@Accept			text/markdown
//	@Produce		json
//	@Success		201	{object}	models.Note
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/import [post]
func (h *Handler) ImportNote(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("document too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("unreadable body"))
		return
	}

	user := currentUser(r)
	doc := markdown.Parse(data)
	note, err := h.svc.Create(r.Context(), user.ID, doc.Input())
	if err != nil {
		writeError(w, err, "import note failed", slog.String("user", user.ID))
		return
	}
	id := note.ID
	if doc.Summary != "" {
		if note, err = h.svc.AttachSummary(r.Context(), id, doc.Summary); err != nil {
			writeError(w, err, "import note failed", slog.String("id", id))
			return
		}
	}
	if doc.Favorite {
		if note, err = h.svc.ToggleFavorite(r.Context(), id); err != nil {
			writeError(w, err, "import note failed", slog.String("id", id))
			return
		}
	}
	writeJSON(w, http.StatusCreated, note)
}
