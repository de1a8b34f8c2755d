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

const fileColumns = `id, client_id, user_id, kind, filename, storage_key, mime_type, size, width, height,
	description, tags, views, downloads, private, optimized, created_at, updated_at`

// FileRepository handles database operations for files
type FileRepository struct {
	db *pgxpool.Pool
}

// NewFileRepository creates a new file repository
func NewFileRepository(db *pgxpool.Pool) *FileRepository {
	return &FileRepository{db: db}
}

func scanFile(row pgx.Row) (*models.File, error) {
	var f models.File
	err := row.Scan(
		&f.ID, &f.ClientID, &f.UserID, &f.Kind, &f.Filename, &f.StorageKey, &f.MimeType,
		&f.Size, &f.Width, &f.Height, &f.Description, &f.Tags, &f.Views, &f.Downloads,
		&f.Private, &f.Optimized, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}
	return &f, nil
}

// Create creates a new file record
func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	tags := file.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.db.Exec(ctx, query,
		file.ID, file.ClientID, file.UserID, file.Kind, file.Filename, file.StorageKey,
		file.MimeType, file.Size, file.Width, file.Height, file.Description, tags,
		file.Views, file.Downloads, file.Private, file.Optimized, file.CreatedAt, file.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

// GetByID retrieves a file by ID within a client
func (r *FileRepository) GetByID(ctx context.Context, clientID, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND client_id = $2`
	file, err := scanFile(r.db.QueryRow(ctx, query, id, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("file not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return file, nil
}

// List retrieves the client's files matching the filter, newest first, with the total match count
func (r *FileRepository) List(ctx context.Context, clientID string, filter FileFilter) ([]*models.File, int, error) {
	where, args := filter.where(clientID)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM files `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count files: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM files %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		fileColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	files := []*models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating files: %w", err)
	}

	return files, total, nil
}

// IncrementViews bumps the view counter and returns the updated file
func (r *FileRepository) IncrementViews(ctx context.Context, clientID, id string) (*models.File, error) {
	return r.increment(ctx, "views", clientID, id)
}

// IncrementDownloads bumps the download counter and returns the updated file
func (r *FileRepository) IncrementDownloads(ctx context.Context, clientID, id string) (*models.File, error) {
	return r.increment(ctx, "downloads", clientID, id)
}

func (r *FileRepository) increment(ctx context.Context, column, clientID, id string) (*models.File, error) {
	query := fmt.Sprintf(`UPDATE files SET %[1]s = %[1]s + 1 WHERE id = $1 AND client_id = $2 RETURNING %[2]s`,
		column, fileColumns)
	file, err := scanFile(r.db.QueryRow(ctx, query, id, clientID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("file not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to increment %s: %w", column, err)
	}
	return file, nil
}

// UpdateMetadata writes the mutable metadata fields of a file
func (r *FileRepository) UpdateMetadata(ctx context.Context, file *models.File) error {
	file.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE files
		SET description = $1, tags = $2, private = $3, optimized = $4, updated_at = $5
		WHERE id = $6 AND client_id = $7
	`
	result, err := r.db.Exec(ctx, query,
		file.Description, file.Tags, file.Private, file.Optimized, file.UpdatedAt,
		file.ID, file.ClientID,
	)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("file not found: %w", ErrNotFound)
	}
	return nil
}

// Delete deletes a file record
func (r *FileRepository) Delete(ctx context.Context, clientID, id string) error {
	query := `DELETE FROM files WHERE id = $1 AND client_id = $2`
	result, err := r.db.Exec(ctx, query, id, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("file not found: %w", ErrNotFound)
	}
	return nil
}
