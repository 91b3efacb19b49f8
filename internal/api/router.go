package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/whitfield/tome/internal/vaultservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *vaultservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Pages.
	r.Post("/pages", h.CreatePage)
	r.Get("/pages/*", h.GetPage)
	r.Put("/pages/*", h.SavePage)

	// Hierarchy.
	r.Get("/tree", h.Tree)
	r.Get("/directory", h.ListDirectory)
	r.Get("/directory/*", h.ListDirectory)
	r.Post("/directories", h.CreateDirectory)

	// Asset operations.
	r.Post("/rename", h.Rename)
	r.Post("/move", h.Move)
	r.Post("/duplicate", h.Duplicate)
	r.Delete("/assets/*", h.DeleteAsset)

	// Link graph.
	r.Get("/tags", h.AllTags)
	r.Get("/tags/{tag}", h.PagesForTag)
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/resolve", h.Resolve)

	// Rendering.
	r.Post("/render/preview", h.RenderPreview)
	r.Post("/render/markdown", h.RenderMarkdown)

	// Search and reports.
	r.Get("/search", h.Search)
	r.Get("/reports/parse-errors", h.ParseErrors)
	r.Get("/reports/broken-links", h.BrokenLinks)
	r.Get("/reports/broken-images", h.BrokenImages)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
