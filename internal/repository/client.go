package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"filehost-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const clientColumns = `id, name, api_key, domain, active, created_at, updated_at`

// ClientRepository handles database operations for clients
type ClientRepository struct {
	db *pgxpool.Pool
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{db: db}
}

func scanClient(row pgx.Row) (*models.Client, error) {
	var c models.Client
	err := row.Scan(&c.ID, &c.Name, &c.APIKey, &c.Domain, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create creates a new client
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		client.ID, client.Name, client.APIKey, client.Domain, client.Active,
		client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// GetByID retrieves a client by ID
func (r *ClientRepository) GetByID(ctx context.Context, id string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	client, err := scanClient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

// GetByAPIKey retrieves a client by API key
func (r *ClientRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE api_key = $1`
	client, err := scanClient(r.db.QueryRow(ctx, query, apiKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get client by api key: %w", err)
	}
	return client, nil
}

// SetActive toggles the active flag of a client
func (r *ClientRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE clients SET active = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.Exec(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("client not found: %w", ErrNotFound)
	}
	return nil
}
