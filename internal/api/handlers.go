package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/whitfield/tome/internal/vaultservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *vaultservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *vaultservice.Service) *Handler {
	return &Handler{svc: svc}
}

// wildcardPath extracts the vault path from the URL wildcard. Supports
// encoded slashes from clients (e.g. lore%2FDragons.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetPage handles GET /api/pages/*.
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	view, err := h.svc.GetPage(r.Context(), path)
	if err != nil {
		respondError(w, "get page", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SavePage handles PUT /api/pages/*. A non-empty If-Match header is
// compared against the page's current checksum.
func (h *Handler) SavePage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req SavePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	if err := h.svc.SavePage(r.Context(), path, []byte(req.Content), ifMatch); err != nil {
		respondError(w, "save page", err)
		return
	}
	view, err := h.svc.GetPage(r.Context(), path)
	if err != nil {
		respondError(w, "save page", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CreatePage handles POST /api/pages.
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	path, err := h.svc.CreatePage(r.Context(), req.ParentDir, req.Name, req.TemplatePath)
	if err != nil {
		respondError(w, "create page", err)
		return
	}
	writeJSON(w, http.StatusCreated, PathResponse{Path: path})
}

// CreateDirectory handles POST /api/directories.
func (h *Handler) CreateDirectory(w http.ResponseWriter, r *http.Request) {
	var req CreateDirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	path, err := h.svc.CreateDirectory(r.Context(), req.ParentDir, req.Name)
	if err != nil {
		respondError(w, "create directory", err)
		return
	}
	writeJSON(w, http.StatusCreated, PathResponse{Path: path})
}

// ListDirectory handles GET /api/directory and GET /api/directory/*.
func (h *Handler) ListDirectory(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListDirectory(wildcardPath(r))
	if err != nil {
		respondError(w, "list directory", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Tree handles GET /api/tree.
func (h *Handler) Tree(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tree": h.svc.Tree()})
}

// Rename handles POST /api/rename.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.NewName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and new_name are required"))
		return
	}
	path, err := h.svc.Rename(r.Context(), req.Path, req.NewName)
	if err != nil {
		respondError(w, "rename", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: path})
}

// Move handles POST /api/move.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	path, err := h.svc.Move(r.Context(), req.Path, req.NewParent)
	if err != nil {
		respondError(w, "move", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: path})
}

// Duplicate handles POST /api/duplicate.
func (h *Handler) Duplicate(w http.ResponseWriter, r *http.Request) {
	var req DuplicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	path, err := h.svc.Duplicate(r.Context(), req.Path)
	if err != nil {
		respondError(w, "duplicate", err)
		return
	}
	writeJSON(w, http.StatusCreated, PathResponse{Path: path})
}

// DeleteAsset handles DELETE /api/assets/*.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.Delete(r.Context(), path); err != nil {
		respondError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AllTags handles GET /api/tags.
func (h *Handler) AllTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.svc.AllTags()})
}

// PagesForTag handles GET /api/tags/{tag}.
func (h *Handler) PagesForTag(w http.ResponseWriter, r *http.Request) {
	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil || tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("tag is required"))
		return
	}
	pages := h.svc.PagesForTag(tag)
	if pages == nil {
		pages = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

// Backlinks handles GET /api/backlinks/*.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": h.svc.Backlinks(path)})
}

// Resolve handles GET /api/resolve?target=.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'target' is required"))
		return
	}
	resolved := h.svc.ResolveWikilink(target)
	writeJSON(w, http.StatusOK, map[string]any{"target": target, "path": resolved})
}

// RenderPreview handles POST /api/render/preview.
func (h *Handler) RenderPreview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.RenderPreview(r.Context(), []byte(req.Content))
	if err != nil {
		respondError(w, "render preview", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RenderMarkdown handles POST /api/render/markdown. Wikilink syntax
// stays literal; used for static content.
func (h *Handler) RenderMarkdown(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	html, err := h.svc.RenderMarkdown(r.Context(), []byte(req.Content))
	if err != nil {
		respondError(w, "render markdown", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"html": html})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		respondError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// ParseErrors handles GET /api/reports/parse-errors.
func (h *Handler) ParseErrors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"failures": h.svc.ParseFailures()})
}

// BrokenLinks handles GET /api/reports/broken-links.
func (h *Handler) BrokenLinks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"links": h.svc.BrokenLinks()})
}

// BrokenImages handles GET /api/reports/broken-images.
func (h *Handler) BrokenImages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"images": h.svc.BrokenImages()})
}
