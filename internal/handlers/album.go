package handlers

import (
	"net/http"
	"time"

	"filehost-backend/internal/middleware"
	"filehost-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// AlbumHandler handles albums and their share links
type AlbumHandler struct {
	links
	albumService *services.AlbumService
}

// NewAlbumHandler creates a new album handler
func NewAlbumHandler(albumService *services.AlbumService, publicURL string) *AlbumHandler {
	return &AlbumHandler{
		links:        links{base: publicURL},
		albumService: albumService,
	}
}

// CreateAlbumRequest is the body of POST /api/v1/albums
type CreateAlbumRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	UserID      string  `json:"user_id"`
}

// UpdateAlbumRequest is the body of PATCH /api/v1/albums/{album_id}
type UpdateAlbumRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// AddImagesRequest is the body of POST /api/v1/albums/{album_id}/images
type AddImagesRequest struct {
	FileIDs []string `json:"file_ids"`
}

// CreateShareRequest is the body of POST /api/v1/albums/{album_id}/share
type CreateShareRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}

// CreateAlbum handles POST /api/v1/albums
func (h *AlbumHandler) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	var req CreateAlbumRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	album, err := h.albumService.CreateAlbum(r.Context(), client.ID, services.AlbumInput{
		Name:            req.Name,
		Description:     req.Description,
		OwnerExternalID: req.UserID,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, albumResponse(album))
}

// ListAlbums handles GET /api/v1/albums
func (h *AlbumHandler) ListAlbums(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	albums, err := h.albumService.ListAlbums(r.Context(), client.ID, r.URL.Query().Get("user_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]AlbumResponse, 0, len(albums))
	for _, a := range albums {
		out = append(out, albumResponse(a))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"albums": out,
		"total":  len(out),
	})
}

// GetAlbum handles GET /api/v1/albums/{album_id}; the response includes every image
func (h *AlbumHandler) GetAlbum(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())
	albumID := chi.URLParam(r, "album_id")

	album, err := h.albumService.GetAlbum(r.Context(), client.ID, albumID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	images, err := h.albumService.ListImages(r.Context(), client.ID, albumID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := albumResponse(album)
	resp.Images = h.fileResponses(images)
	respondJSON(w, http.StatusOK, resp)
}

// UpdateAlbum handles PATCH /api/v1/albums/{album_id}
func (h *AlbumHandler) UpdateAlbum(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	var req UpdateAlbumRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	album, err := h.albumService.UpdateAlbum(r.Context(), client.ID, chi.URLParam(r, "album_id"), services.AlbumPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, albumResponse(album))
}

// DeleteAlbum handles DELETE /api/v1/albums/{album_id}
func (h *AlbumHandler) DeleteAlbum(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	if err := h.albumService.DeleteAlbum(r.Context(), client.ID, chi.URLParam(r, "album_id")); err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddImages handles POST /api/v1/albums/{album_id}/images
func (h *AlbumHandler) AddImages(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	var req AddImagesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	album, err := h.albumService.AddImages(r.Context(), client.ID, chi.URLParam(r, "album_id"), req.FileIDs)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, albumResponse(album))
}

// RemoveImage handles DELETE /api/v1/albums/{album_id}/images/{file_id}
func (h *AlbumHandler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	err := h.albumService.RemoveImage(r.Context(), client.ID, chi.URLParam(r, "album_id"), chi.URLParam(r, "file_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateShare handles POST /api/v1/albums/{album_id}/share. An empty body creates a link without expiry.
func (h *AlbumHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	var req CreateShareRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondServiceError(w, r, err)
			return
		}
	}

	link, err := h.albumService.CreateShareToken(r.Context(), client.ID, chi.URLParam(r, "album_id"), req.ExpiresAt)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := shareTokenResponse(link.AlbumToken)
	resp.Token = link.Token
	resp.URL = h.base + "/share/" + link.Token
	respondJSON(w, http.StatusCreated, resp)
}

// ListShares handles GET /api/v1/albums/{album_id}/share
func (h *AlbumHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	tokens, err := h.albumService.ListShareTokens(r.Context(), client.ID, chi.URLParam(r, "album_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]ShareTokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, shareTokenResponse(t))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": out,
	})
}

// DeleteShare handles DELETE /api/v1/albums/{album_id}/share/{token_id}
func (h *AlbumHandler) DeleteShare(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	err := h.albumService.DeleteShareToken(r.Context(), client.ID, chi.URLParam(r, "album_id"), chi.URLParam(r, "token_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
