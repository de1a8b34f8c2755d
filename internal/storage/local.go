package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// LocalStorage stores content on a filesystem
type LocalStorage struct {
	fs afero.Fs
}

// NewLocalStorage creates a storage rooted at the given filesystem
func NewLocalStorage(fs afero.Fs) *LocalStorage {
	return &LocalStorage{fs: fs}
}

// Put writes content to a temporary file and renames it into place, so a
// partially written object is never visible under its key.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := s.fs.MkdirAll(filepath.Dir(key), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := key + ".part"
	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		s.fs.Remove(tmp)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := s.fs.Rename(tmp, key); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

// Open opens stored content for reading
func (s *LocalStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := s.fs.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete removes stored content
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := s.fs.Remove(key); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
