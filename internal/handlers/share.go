package handlers

import (
	"net/http"

	"filehost-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// ShareHandler serves albums to holders of a share link, without an API key
type ShareHandler struct {
	links
	albumService *services.AlbumService
}

// NewShareHandler creates a new share handler
func NewShareHandler(albumService *services.AlbumService, publicURL string) *ShareHandler {
	return &ShareHandler{
		links:        links{base: publicURL},
		albumService: albumService,
	}
}

// GetShared handles GET /share/{token}
func (h *ShareHandler) GetShared(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	shared, err := h.albumService.ResolveShareToken(r.Context(), token)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.sharedAlbumResponse(token, shared))
}

// GetSharedFile handles GET /share/{token}/files/{file_id}
func (h *ShareHandler) GetSharedFile(w http.ResponseWriter, r *http.Request) {
	file, rc, err := h.albumService.OpenSharedImage(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "file_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer rc.Close()

	streamFile(w, r, file, rc, false)
}
