package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types published to connected clients
const (
	EventConnected    = "connected"
	EventFileUploaded = "file.uploaded"
	EventFileDeleted  = "file.deleted"
	EventAlbumCreated = "album.created"
	EventAlbumDeleted = "album.deleted"
	EventAlbumShared  = "album.shared"
)

const eventWriteTimeout = 5 * time.Second

// Event represents a message sent over the event stream
type Event struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// NewEvent creates an event stamped with the current time
func NewEvent(eventType string, data interface{}) Event {
	return Event{Type: eventType, Timestamp: time.Now().UnixMilli(), Data: data}
}

// EventConn is the part of a websocket connection the hub writes to
type EventConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// hubConn serializes writes, a websocket connection allows one writer at a time
type hubConn struct {
	mu   sync.Mutex
	conn EventConn
}

func (c *hubConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// EventHub fans client events out to that client's open connections.
// A nil hub drops every event.
type EventHub struct {
	mu          sync.RWMutex
	connections map[string]map[EventConn]*hubConn
}

// NewEventHub creates a new event hub
func NewEventHub() *EventHub {
	return &EventHub{
		connections: make(map[string]map[EventConn]*hubConn),
	}
}

// Register adds a connection for a client
func (h *EventHub) Register(clientID string, conn EventConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.connections[clientID]
	if !ok {
		conns = make(map[EventConn]*hubConn)
		h.connections[clientID] = conns
	}
	conns[conn] = &hubConn{conn: conn}

	log.Info().Str("client_id", clientID).Int("connections", len(conns)).Msg("Event connection registered")
}

// Unregister removes and closes a connection of a client
func (h *EventHub) Unregister(clientID string, conn EventConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.connections[clientID]
	if !ok {
		return
	}
	if _, exists := conns[conn]; !exists {
		return
	}

	conn.Close()
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.connections, clientID)
	}
	log.Info().Str("client_id", clientID).Msg("Event connection unregistered")
}

// IsOnline reports whether a client has at least one open connection
func (h *EventHub) IsOnline(clientID string) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[clientID]) > 0
}

// SendTo sends an event to a single connection
func (h *EventHub) SendTo(clientID string, conn EventConn, event Event) error {
	h.mu.RLock()
	hc, exists := h.connections[clientID][conn]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("connection is not registered for client %s", clientID)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := hc.write(data); err != nil {
		h.Unregister(clientID, conn)
		return fmt.Errorf("failed to send event: %w", err)
	}
	return nil
}

// Publish sends an event to every connection of a client. Connections that
// fail to accept the write are dropped.
func (h *EventHub) Publish(clientID string, event Event) {
	if h == nil {
		return
	}

	h.mu.RLock()
	targets := make([]*hubConn, 0, len(h.connections[clientID]))
	for _, hc := range h.connections[clientID] {
		targets = append(targets, hc)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to marshal event")
		return
	}

	for _, hc := range targets {
		if err := hc.write(data); err != nil {
			log.Warn().Err(err).Str("client_id", clientID).Str("type", event.Type).Msg("Failed to deliver event")
			h.Unregister(clientID, hc.conn)
		}
	}
}
