package handlers

import (
	"net/http"

	"filehost-backend/internal/middleware"
	"filehost-backend/internal/models"
	"filehost-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// UserHandler handles tenant users and avatars
type UserHandler struct {
	links
	userService *services.UserService
	maxBytes    int64
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, publicURL string, maxBytes int64) *UserHandler {
	return &UserHandler{
		links:       links{base: publicURL},
		userService: userService,
		maxBytes:    maxBytes,
	}
}

// UpsertUserRequest is the body of POST /api/v1/users
type UpsertUserRequest struct {
	ExternalID string  `json:"external_id"`
	Email      *string `json:"email"`
	Username   *string `json:"username"`
}

// UpsertUser handles POST /api/v1/users. Omitted email or username clears the stored value.
func (h *UserHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	var req UpsertUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	user, err := h.userService.GetOrCreateUser(r.Context(), client.ID, req.ExternalID, req.Email, req.Username)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, h.userResponse(user))
}

// ListUsers handles GET /api/v1/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	users, err := h.userService.ListUsers(r.Context(), client.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, h.userResponse(u))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": out,
		"total": len(out),
	})
}

// GetUser handles GET /api/v1/users/{external_id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	user, err := h.userService.GetUserByExternalID(r.Context(), client.ID, chi.URLParam(r, "external_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if user == nil {
		respondError(w, r, "User not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, h.userResponse(user))
}

// PutAvatar handles PUT /api/v1/users/{external_id}/avatar
func (h *UserHandler) PutAvatar(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	form, err := readUpload(w, r, h.maxBytes)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer form.Close()

	user, file, err := h.userService.SetAvatar(r.Context(), client.ID, chi.URLParam(r, "external_id"), form.input(models.KindAvatar))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":   h.userResponse(user),
		"avatar": h.fileResponse(file),
	})
}

// GetAvatar handles GET /api/v1/users/{external_id}/avatar
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	file, rc, err := h.userService.OpenAvatar(r.Context(), client.ID, chi.URLParam(r, "external_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer rc.Close()

	streamFile(w, r, file, rc, false)
}
