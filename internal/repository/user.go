package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"filehost-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, client_id, external_id, email, username, avatar_file_id, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.ClientID, &u.ExternalID, &u.Email, &u.Username,
		&u.AvatarFileID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.ClientID, user.ExternalID, user.Email, user.Username,
		user.AvatarFileID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Upsert inserts the user or overwrites email and username of the existing
// (client_id, external_id) row with the given values, NULLs included.
func (r *UserRepository) Upsert(ctx context.Context, clientID, externalID string, email, username *string) (*models.User, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (id, client_id, external_id, email, username, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (client_id, external_id)
		DO UPDATE SET email = EXCLUDED.email, username = EXCLUDED.username, updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query,
		uuid.New().String(), clientID, externalID, email, username, now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

// CreateIfAbsent inserts the user unless (client_id, external_id) already exists,
// and returns the stored row either way.
func (r *UserRepository) CreateIfAbsent(ctx context.Context, clientID, externalID string) (*models.User, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (id, client_id, external_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (client_id, external_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, uuid.New().String(), clientID, externalID, now); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return r.GetByExternalID(ctx, clientID, externalID)
}

// GetByID retrieves a user by ID within a client
func (r *UserRepository) GetByID(ctx context.Context, clientID, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND client_id = $2`
	user, err := scanUser(r.db.QueryRow(ctx, query, id, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByExternalID retrieves a user by the client's external ID
func (r *UserRepository) GetByExternalID(ctx context.Context, clientID, externalID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE client_id = $1 AND external_id = $2`
	user, err := scanUser(r.db.QueryRow(ctx, query, clientID, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by external id: %w", err)
	}
	return user, nil
}

// ListByClient lists all users of a client
func (r *UserRepository) ListByClient(ctx context.Context, clientID string) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE client_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// CountByClient counts the users of a client
func (r *UserRepository) CountByClient(ctx context.Context, clientID string) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE client_id = $1`
	var count int
	if err := r.db.QueryRow(ctx, query, clientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// SetAvatar points the user at an avatar file, or clears it when fileID is nil
func (r *UserRepository) SetAvatar(ctx context.Context, clientID, userID string, fileID *string) error {
	query := `UPDATE users SET avatar_file_id = $1, updated_at = $2 WHERE id = $3 AND client_id = $4`
	result, err := r.db.Exec(ctx, query, fileID, time.Now().UTC(), userID, clientID)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return nil
}
