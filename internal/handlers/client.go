package handlers

import (
	"net/http"

	"filehost-backend/internal/middleware"
	"filehost-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ClientHandler handles client provisioning and the tenant's own profile
type ClientHandler struct {
	clientService *services.ClientService
	events        *services.EventHub
}

// NewClientHandler creates a new client handler
func NewClientHandler(clientService *services.ClientService, events *services.EventHub) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
		events:        events,
	}
}

// CreateClientRequest is the body of POST /api/v1/clients
type CreateClientRequest struct {
	Name   string  `json:"name"`
	Domain *string `json:"domain"`
	Active *bool   `json:"active"`
}

// UpdateClientRequest is the body of PATCH /api/v1/clients/{client_id}
type UpdateClientRequest struct {
	Active *bool `json:"active"`
}

// CreateClient handles POST /api/v1/clients
func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	client, err := h.clientService.CreateClient(r.Context(), req.Name, req.Domain, active)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, provisionedClientResponse(client))
}

// GetClient handles GET /api/v1/clients/{client_id}
func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	client, err := h.clientService.GetClientByID(r.Context(), chi.URLParam(r, "client_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if client == nil {
		respondError(w, r, "Client not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, clientResponse(client))
}

// UpdateClient handles PATCH /api/v1/clients/{client_id}
func (h *ClientHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req UpdateClientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if req.Active == nil {
		respondError(w, r, "Invalid request body", http.StatusBadRequest, "active is required")
		return
	}

	client, err := h.clientService.SetClientActive(r.Context(), chi.URLParam(r, "client_id"), *req.Active)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, clientResponse(client))
}

// Me handles GET /api/v1/me
func (h *ClientHandler) Me(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())
	log.Debug().Str("client_id", client.ID).Msg("Client profile requested")
	respondJSON(w, http.StatusOK, MeResponse{
		ClientResponse: clientResponse(client),
		Connected:      h.events.IsOnline(client.ID),
	})
}
