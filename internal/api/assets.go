package api

import (
	"net/http"

	"github.com/whitfield/tome/internal/vaultservice"
)

// AssetHandler streams raw asset bytes (images and other opaque files)
// addressed by vault-relative path.
type AssetHandler struct {
	svc *vaultservice.Service
}

// NewAssetHandler creates a handler over the vault service.
func NewAssetHandler(svc *vaultservice.Service) *AssetHandler {
	return &AssetHandler{svc: svc}
}

// ServeAsset handles GET /assets/*. The service validates the path
// against the vault root before any disk read.
func (h *AssetHandler) ServeAsset(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	data, contentType, err := h.svc.ReadAsset(path)
	if err != nil {
		respondError(w, "serve asset", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}
