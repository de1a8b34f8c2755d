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

const albumSelect = `
	SELECT a.id, a.client_id, a.user_id, a.name, a.description,
		(SELECT COUNT(*) FROM album_images ai WHERE ai.album_id = a.id),
		a.created_at, a.updated_at
	FROM albums a
`

// AlbumRepository handles database operations for albums and their share tokens
type AlbumRepository struct {
	db *pgxpool.Pool
}

// NewAlbumRepository creates a new album repository
func NewAlbumRepository(db *pgxpool.Pool) *AlbumRepository {
	return &AlbumRepository{db: db}
}

func scanAlbum(row pgx.Row) (*models.Album, error) {
	var a models.Album
	err := row.Scan(
		&a.ID, &a.ClientID, &a.UserID, &a.Name, &a.Description,
		&a.ImageCount, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create creates a new album
func (r *AlbumRepository) Create(ctx context.Context, album *models.Album) error {
	query := `
		INSERT INTO albums (id, client_id, user_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		album.ID, album.ClientID, album.UserID, album.Name, album.Description,
		album.CreatedAt, album.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create album: %w", err)
	}
	return nil
}

// GetByID retrieves an album by ID within a client
func (r *AlbumRepository) GetByID(ctx context.Context, clientID, id string) (*models.Album, error) {
	album, err := scanAlbum(r.db.QueryRow(ctx, albumSelect+` WHERE a.id = $1 AND a.client_id = $2`, id, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("album not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get album: %w", err)
	}
	return album, nil
}

// List lists a client's albums, optionally only those owned by userID
func (r *AlbumRepository) List(ctx context.Context, clientID string, userID *string) ([]*models.Album, error) {
	query := albumSelect + ` WHERE a.client_id = $1 AND ($2::uuid IS NULL OR a.user_id = $2) ORDER BY a.created_at DESC`
	rows, err := r.db.Query(ctx, query, clientID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	defer rows.Close()

	albums := []*models.Album{}
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating albums: %w", err)
	}
	return albums, nil
}

// Update writes the album name and description
func (r *AlbumRepository) Update(ctx context.Context, album *models.Album) error {
	album.UpdatedAt = time.Now().UTC()
	query := `UPDATE albums SET name = $1, description = $2, updated_at = $3 WHERE id = $4 AND client_id = $5`
	result, err := r.db.Exec(ctx, query, album.Name, album.Description, album.UpdatedAt, album.ID, album.ClientID)
	if err != nil {
		return fmt.Errorf("failed to update album: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("album not found: %w", ErrNotFound)
	}
	return nil
}

// Delete deletes an album; its image links and share tokens go with it
func (r *AlbumRepository) Delete(ctx context.Context, clientID, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM albums WHERE id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete album: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("album not found: %w", ErrNotFound)
	}
	return nil
}

// AddImages links files to an album, ignoring links that already exist.
// Only image files of the album's client are linked.
func (r *AlbumRepository) AddImages(ctx context.Context, clientID, albumID string, fileIDs []string) (int64, error) {
	query := `
		INSERT INTO album_images (album_id, file_id, added_at)
		SELECT $1, f.id, $4 FROM files f
		WHERE f.id = ANY($2::uuid[]) AND f.client_id = $3 AND f.kind = 'image'
		ON CONFLICT (album_id, file_id) DO NOTHING
	`
	result, err := r.db.Exec(ctx, query, albumID, fileIDs, clientID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to add album images: %w", err)
	}
	return result.RowsAffected(), nil
}

// RemoveImage unlinks a file from an album
func (r *AlbumRepository) RemoveImage(ctx context.Context, albumID, fileID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM album_images WHERE album_id = $1 AND file_id = $2`, albumID, fileID)
	if err != nil {
		return fmt.Errorf("failed to remove album image: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("album image not found: %w", ErrNotFound)
	}
	return nil
}

// ListImages lists the files of an album in the order they were added
func (r *AlbumRepository) ListImages(ctx context.Context, clientID, albumID string, includePrivate bool) ([]*models.File, error) {
	query := `
		SELECT ` + prefixed("f.", fileColumns) + `
		FROM album_images ai
		JOIN files f ON f.id = ai.file_id
		WHERE ai.album_id = $1 AND f.client_id = $2 AND ($3 OR NOT f.private)
		ORDER BY ai.added_at
	`
	rows, err := r.db.Query(ctx, query, albumID, clientID, includePrivate)
	if err != nil {
		return nil, fmt.Errorf("failed to list album images: %w", err)
	}
	defer rows.Close()

	files := []*models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan album image: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating album images: %w", err)
	}
	return files, nil
}

// CreateToken stores a share token
func (r *AlbumRepository) CreateToken(ctx context.Context, token *models.AlbumToken) error {
	query := `
		INSERT INTO album_tokens (id, album_id, client_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, token.ID, token.AlbumID, token.ClientID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create album token: %w", err)
	}
	return nil
}

// GetToken retrieves a share token by ID
func (r *AlbumRepository) GetToken(ctx context.Context, id string) (*models.AlbumToken, error) {
	query := `SELECT id, album_id, client_id, expires_at, created_at FROM album_tokens WHERE id = $1`
	var t models.AlbumToken
	err := r.db.QueryRow(ctx, query, id).Scan(&t.ID, &t.AlbumID, &t.ClientID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("album token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get album token: %w", err)
	}
	return &t, nil
}

// ListTokens lists the share tokens of an album
func (r *AlbumRepository) ListTokens(ctx context.Context, clientID, albumID string) ([]*models.AlbumToken, error) {
	query := `
		SELECT id, album_id, client_id, expires_at, created_at
		FROM album_tokens
		WHERE album_id = $1 AND client_id = $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, albumID, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list album tokens: %w", err)
	}
	defer rows.Close()

	tokens := []*models.AlbumToken{}
	for rows.Next() {
		var t models.AlbumToken
		if err := rows.Scan(&t.ID, &t.AlbumID, &t.ClientID, &t.ExpiresAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan album token: %w", err)
		}
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating album tokens: %w", err)
	}
	return tokens, nil
}

// DeleteToken deletes a share token of an album
func (r *AlbumRepository) DeleteToken(ctx context.Context, clientID, albumID, id string) error {
	query := `DELETE FROM album_tokens WHERE id = $1 AND album_id = $2 AND client_id = $3`
	result, err := r.db.Exec(ctx, query, id, albumID, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete album token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("album token not found: %w", ErrNotFound)
	}
	return nil
}

// DeleteExpiredTokens deletes every token whose expiry is at or before now
func (r *AlbumRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM album_tokens WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired album tokens: %w", err)
	}
	return result.RowsAffected(), nil
}
