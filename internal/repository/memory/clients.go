package memory

import (
	"context"
	"fmt"
	"time"

	"filehost-backend/internal/models"
)

// ClientRepository stores clients in memory
type ClientRepository struct {
	s *Store
}

// Create creates a new client; API keys are unique
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.clients {
		if c.APIKey == client.APIKey {
			return fmt.Errorf("failed to create client: duplicate api key")
		}
	}
	r.s.clients[client.ID] = copyClient(client)
	return nil
}

// GetByID retrieves a client by ID
func (r *ClientRepository) GetByID(ctx context.Context, id string) (*models.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.clients[id]
	if !ok {
		return nil, notFound("client")
	}
	return copyClient(c), nil
}

// GetByAPIKey retrieves a client by its API key
func (r *ClientRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.clients {
		if c.APIKey == apiKey {
			return copyClient(c), nil
		}
	}
	return nil, notFound("client")
}

// SetActive toggles the active flag of a client
func (r *ClientRepository) SetActive(ctx context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.clients[id]
	if !ok {
		return notFound("client")
	}
	c.Active = active
	c.UpdatedAt = time.Now().UTC()
	return nil
}
