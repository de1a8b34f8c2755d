// Package storage persists binary file content behind a driver-neutral interface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"filehost-backend/internal/config"

	"github.com/spf13/afero"
)

// ErrNotFound is returned by Open and Delete when the object does not exist
var ErrNotFound = errors.New("object not found")

// Storage stores file content by key
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Key builds the object key of a file: {client_id}/{kind}s/{file_id}{ext}
func Key(clientID, kind, fileID, ext string) string {
	return path.Join(clientID, kind+"s", fileID+ext)
}

// New creates the storage driver selected in the configuration
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "local":
		return NewLocalStorage(afero.NewBasePathFs(afero.NewOsFs(), cfg.LocalDir)), nil
	case "s3":
		return NewS3Storage(ctx, cfg.AWS)
	case "minio":
		return NewMinioStorage(cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
