package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// SummarizeNote handles POST /api/notes/{id}/summary. The summary is
// returned, not stored.
//
//	@Summary		Generate a summary of a note's content
//	@Tags			summary
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	summary.Result
//	@Failure		404	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/summary [post]
func (h *Handler) SummarizeNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.ownedNote(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeError(w, err, "summarize note failed", slog.String("id", id))
		return
	}
	res, err := h.summarizer.Summarize(r.Context(), note.Content)
	if err != nil {
		writeError(w, err, "summarize note failed", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AttachSummary handles PUT /api/notes/{id}/summary.
//
//	@Summary		Store a summary on a note
//	@Tags			summary
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Note id"
//	@Param			body	body		SummaryRequest	true	"Summary text"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/summary [put]
func (h *Handler) AttachSummary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "attach summary failed")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.ownedNote(r.Context(), currentUser(r).ID, id); err != nil {
		writeError(w, err, "attach summary failed", slog.String("id", id))
		return
	}
	note, err := h.svc.AttachSummary(r.Context(), id, req.Summary)
	if err != nil {
		writeError(w, err, "attach summary failed", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// SaveSummaryAsNote handles POST /api/notes/{id}/summary/note. With an
// empty body the note's attached summary is used.
//
//	@Summary		Save a summary as a new note
//	@Tags			summary
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Source note id"
//	@Param			body	body		SummaryRequest	false	"Summary text"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/summary/note [post]
func (h *Handler) SaveSummaryAsNote(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	src, err := h.ownedNote(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeError(w, err, "save summary failed", slog.String("id", id))
		return
	}
	if strings.TrimSpace(req.Summary) == "" && src.Summary != nil {
		req.Summary = *src.Summary
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "save summary failed")
		return
	}
	note, err := h.svc.SaveSummaryAsNote(r.Context(), id, req.Summary)
	if err != nil {
		writeError(w, err, "save summary failed", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// Summarize handles POST /api/summarize for arbitrary text. Provider
// credentials stay on the server.
//
//	@Summary		Summarize text
//	@Tags			summary
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SummarizeRequest	true	"Text to summarize"
//	@Success		200		{object}	summary.Result
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/summarize [post]
func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err, "summarize failed")
		return
	}
	res, err := h.summarizer.Summarize(r.Context(), req.Text)
	if err != nil {
		writeError(w, err, "summarize failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
