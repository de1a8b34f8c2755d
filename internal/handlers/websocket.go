package handlers

import (
	"net/http"

	"filehost-backend/internal/middleware"
	"filehost-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // tenants authenticate with their API key, not cookies
	},
}

// EventsHandler streams a client's events over a websocket
type EventsHandler struct {
	hub *services.EventHub
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *services.EventHub) *EventsHandler {
	return &EventsHandler{
		hub: hub,
	}
}

// HandleWebSocket handles GET /ws. Incoming messages are read and discarded
// so that close frames and pings are processed.
func (h *EventsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	client := middleware.GetClient(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("client_id", client.ID).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(client.ID, conn)
	defer h.hub.Unregister(client.ID, conn)

	if err := h.hub.SendTo(client.ID, conn, services.NewEvent(services.EventConnected, map[string]interface{}{
		"client_id": client.ID,
	})); err != nil {
		log.Error().Err(err).Str("client_id", client.ID).Msg("Failed to send connected event")
		return
	}

	log.Info().Str("client_id", client.ID).Msg("WebSocket connection established")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("client_id", client.ID).Msg("WebSocket error")
			}
			return
		}
	}
}
