package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notely/internal/noteservice"
	"github.com/starford/notely/internal/summary"
)

// NewRouter creates a chi router with all API routes mounted.
// auth controls how callers are identified.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, summarizer *summary.Requestor, auth AuthConfig, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, summarizer)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(auth))
	r.Use(WelcomeMiddleware(svc))

	r.Get("/me", h.Me)

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/import", h.ImportNote)
	r.Route("/notes/{id}", func(r chi.Router) {
		r.Get("/", h.GetNote)
		r.Put("/", h.UpdateNote)
		r.Patch("/", h.UpdateNote)
		r.Delete("/", h.DeleteNote)
		r.Post("/favorite", h.ToggleFavorite)
		r.Get("/markdown", h.ExportNote)

		// Summaries.
		r.Post("/summary", h.SummarizeNote)
		r.Put("/summary", h.AttachSummary)
		r.Post("/summary/note", h.SaveSummaryAsNote)
	})

	// Queries.
	r.Get("/favorites", h.Favorites)
	r.Get("/search", h.Search)
	r.Get("/tags", h.Tags)

	r.Post("/summarize", h.Summarize)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
