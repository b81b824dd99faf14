package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/identity"
	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/noteservice"
	"github.com/starford/notely/internal/summary"
)

// Handler holds API route handlers.
type Handler struct {
	svc        *noteservice.Service
	summarizer *summary.Requestor
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, summarizer *summary.Requestor) *Handler {
	return &Handler{svc: svc, summarizer: summarizer}
}

// currentUser returns the caller placed in the context by AuthMiddleware.
func currentUser(r *http.Request) models.User {
	u, _ := identity.FromContext(r.Context())
	return u
}

// ownedNote loads the note named by the {id} URL parameter. Notes of other
// owners are reported as not found.
func (h *Handler) ownedNote(ctx context.Context, ownerID, id string) (*models.Note, error) {
	n, ok, err := h.svc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok || n.OwnerID != ownerID {
		return nil, apperr.ErrNotFound
	}
	return n, nil
}

// Me handles GET /api/me.
//
//	@Summary		Current user
//	@Tags			identity
//	@Produce		json
//	@Success		200	{object}	models.User
//	@Security		BearerAuth
//	@Router			/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List the caller's notes with optional filtering
//	@Tags			notes
//	@Produce		json
//	@Param			q			query		string	false	"Search text"
//	@Param			favorite	query		bool	false	"Only favorites"
//	@Param			tag			query		string	false	"Filter by tag"
//	@Success		200			{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := r.URL.Query()

	var (
		notes []models.Note
		err   error
	)
	if tag := q.Get("tag"); tag != "" {
		notes, err = h.svc.ListByTag(r.Context(), user.ID, tag)
		notes = noteservice.Filter(notes, q.Get("q"))
	} else {
		notes, err = h.svc.Search(r.Context(), user.ID, q.Get("q"))
	}
	if err != nil {
		writeError(w, err, "list notes failed", slog.String("user", user.ID))
		return
	}
	if fav, _ := strconv.ParseBool(q.Get("favorite")); fav {
		notes = filterFavorites(notes)
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.ownedNote(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeError(w, err, "get note failed", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user := currentUser(r)
	note, err := h.svc.Create(r.Context(), user.ID, req.input())
	if err != nil {
		writeError(w, err, "create note failed", slog.String("user", user.ID))
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT and PATCH /api/notes/{id}.
//
//	@Summary		Partially update a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [patch]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.ownedNote(r.Context(), currentUser(r).ID, id); err != nil {
		writeError(w, err, "update note failed", slog.String("id", id))
		return
	}
	note, err := h.svc.Update(r.Context(), id, req.patch())
	if err != nil {
		writeError(w, err, "update note failed", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}. Unknown ids succeed too.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, err := h.ownedNote(r.Context(), currentUser(r).ID, id)
	switch {
	case err == nil:
		if err := h.svc.Delete(r.Context(), id); err != nil {
			writeError(w, err, "delete note failed", slog.String("id", id))
			return
		}
	case !isNotFound(err):
		writeError(w, err, "delete note failed", slog.String("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFavorite handles POST /api/notes/{id}/favorite.
//
//	@Summary		Flip a note's favorite flag
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/favorite [post]
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.ownedNote(r.Context(), currentUser(r).ID, id); err != nil {
		writeError(w, err, "toggle favorite failed", slog.String("id", id))
		return
	}
	note, err := h.svc.ToggleFavorite(r.Context(), id)
	if err != nil {
		writeError(w, err, "toggle favorite failed", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Favorites handles GET /api/favorites.
//
//	@Summary		List the caller's favorite notes
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/favorites [get]
func (h *Handler) Favorites(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	notes, err := h.svc.ListFavorites(r.Context(), user.ID)
	if err != nil {
		writeError(w, err, "list favorites failed", slog.String("user", user.ID))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// Search handles GET /api/search. A blank query returns every note.
//
//	@Summary		Case-insensitive search over title, content and tags
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	false	"Search text"
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := r.URL.Query().Get("q")
	notes, err := h.svc.Search(r.Context(), user.ID, q)
	if err != nil {
		writeError(w, err, "search failed", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// Tags handles GET /api/tags.
//
//	@Summary		List the caller's tags with usage counts
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	TagListResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	tags, err := h.svc.Tags(r.Context(), user.ID)
	if err != nil {
		writeError(w, err, "list tags failed", slog.String("user", user.ID))
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

func filterFavorites(notes []models.Note) []models.Note {
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if n.IsFavorite {
			out = append(out, n)
		}
	}
	return out
}
