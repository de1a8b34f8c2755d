// Package memory keeps all records in process memory. It backs the "memory"
// database driver and the service and handler tests.
package memory

import (
	"fmt"
	"sync"
	"time"

	"filehost-backend/internal/models"
	"filehost-backend/internal/repository"
)

type albumImage struct {
	fileID  string
	addedAt time.Time
}

type fileRow struct {
	file *models.File
	seq  int64
}

// Store holds every table. The repositories built from it share one lock.
type Store struct {
	mu          sync.RWMutex
	clients     map[string]*models.Client
	users       map[string]*models.User
	files       map[string]*fileRow
	albums      map[string]*models.Album
	albumImages map[string][]albumImage
	tokens      map[string]*models.AlbumToken
	seq         int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		clients:     make(map[string]*models.Client),
		users:       make(map[string]*models.User),
		files:       make(map[string]*fileRow),
		albums:      make(map[string]*models.Album),
		albumImages: make(map[string][]albumImage),
		tokens:      make(map[string]*models.AlbumToken),
	}
}

// Clients returns the client repository of the store
func (s *Store) Clients() *ClientRepository { return &ClientRepository{s: s} }

// Users returns the user repository of the store
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Files returns the file repository of the store
func (s *Store) Files() *FileRepository { return &FileRepository{s: s} }

// Albums returns the album repository of the store
func (s *Store) Albums() *AlbumRepository { return &AlbumRepository{s: s} }

func notFound(what string) error {
	return fmt.Errorf("%s not found: %w", what, repository.ErrNotFound)
}

func copyClient(c *models.Client) *models.Client {
	cp := *c
	return &cp
}

func copyUser(u *models.User) *models.User {
	cp := *u
	return &cp
}

func copyFile(f *models.File) *models.File {
	cp := *f
	cp.Tags = append([]string{}, f.Tags...)
	return &cp
}

func copyAlbum(a *models.Album) *models.Album {
	cp := *a
	return &cp
}

func copyToken(t *models.AlbumToken) *models.AlbumToken {
	cp := *t
	return &cp
}
