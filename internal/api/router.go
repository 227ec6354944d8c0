package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/bases"
	"github.com/starford/raido/internal/graph"
	"github.com/starford/raido/internal/notes"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *notes.Service, graphs *graph.Builder, engine *bases.Engine, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, graphs, engine)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)

	// Search.
	r.Get("/search", h.Search)

	// Link graph.
	r.Get("/graph", h.Graph)
	r.Get("/graph/stats", h.GraphStats)
	r.Get("/graph/orphans", h.GraphOrphans)
	r.Get("/graph/links", h.GraphLinks)
	r.Get("/graph/neighbors", h.GraphNeighbors)
	r.Get("/graph/path", h.GraphPath)

	// Bases queries.
	r.Post("/bases/query", h.QueryBase)

	// Conversation analysis.
	r.Get("/conversation", h.Conversation)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
