package memory

import (
	"context"
	"sort"
	"time"

	"filehost-backend/internal/models"
)

// AlbumRepository stores albums, album membership and share tokens in memory
type AlbumRepository struct {
	s *Store
}

// withCount must be called with the lock held
func (r *AlbumRepository) withCount(a *models.Album) *models.Album {
	cp := copyAlbum(a)
	cp.ImageCount = len(r.s.albumImages[a.ID])
	return cp
}

// Create creates a new album
func (r *AlbumRepository) Create(ctx context.Context, album *models.Album) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.albums[album.ID] = copyAlbum(album)
	return nil
}

// GetByID retrieves an album by ID within a client
func (r *AlbumRepository) GetByID(ctx context.Context, clientID, id string) (*models.Album, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.albums[id]
	if !ok || a.ClientID != clientID {
		return nil, notFound("album")
	}
	return r.withCount(a), nil
}

// List lists a client's albums newest first, optionally only those owned by userID
func (r *AlbumRepository) List(ctx context.Context, clientID string, userID *string) ([]*models.Album, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	albums := []*models.Album{}
	for _, a := range r.s.albums {
		if a.ClientID != clientID {
			continue
		}
		if userID != nil && (a.UserID == nil || *a.UserID != *userID) {
			continue
		}
		albums = append(albums, r.withCount(a))
	}
	sort.SliceStable(albums, func(i, j int) bool {
		return albums[i].CreatedAt.After(albums[j].CreatedAt)
	})
	return albums, nil
}

// Update writes the album name and description
func (r *AlbumRepository) Update(ctx context.Context, album *models.Album) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.albums[album.ID]
	if !ok || a.ClientID != album.ClientID {
		return notFound("album")
	}
	album.UpdatedAt = time.Now().UTC()
	a.Name, a.Description, a.UpdatedAt = album.Name, album.Description, album.UpdatedAt
	return nil
}

// Delete deletes an album with its image links and share tokens
func (r *AlbumRepository) Delete(ctx context.Context, clientID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.albums[id]
	if !ok || a.ClientID != clientID {
		return notFound("album")
	}
	delete(r.s.albums, id)
	delete(r.s.albumImages, id)
	for tokenID, t := range r.s.tokens {
		if t.AlbumID == id {
			delete(r.s.tokens, tokenID)
		}
	}
	return nil
}

// AddImages links image files of the client to an album, ignoring existing links
func (r *AlbumRepository) AddImages(ctx context.Context, clientID, albumID string, fileIDs []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	images := r.s.albumImages[albumID]
	linked := make(map[string]bool, len(images))
	for _, img := range images {
		linked[img.fileID] = true
	}

	now := time.Now().UTC()
	var added int64
	for _, id := range fileIDs {
		row, ok := r.s.files[id]
		if !ok || linked[id] || row.file.ClientID != clientID || row.file.Kind != models.KindImage {
			continue
		}
		linked[id] = true
		images = append(images, albumImage{fileID: id, addedAt: now})
		added++
	}
	r.s.albumImages[albumID] = images
	return added, nil
}

// RemoveImage unlinks a file from an album
func (r *AlbumRepository) RemoveImage(ctx context.Context, albumID, fileID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	images := r.s.albumImages[albumID]
	for i, img := range images {
		if img.fileID == fileID {
			r.s.albumImages[albumID] = append(images[:i:i], images[i+1:]...)
			return nil
		}
	}
	return notFound("album image")
}

// ListImages lists the files of an album in the order they were added
func (r *AlbumRepository) ListImages(ctx context.Context, clientID, albumID string, includePrivate bool) ([]*models.File, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	files := []*models.File{}
	for _, img := range r.s.albumImages[albumID] {
		row, ok := r.s.files[img.fileID]
		if !ok || row.file.ClientID != clientID {
			continue
		}
		if row.file.Private && !includePrivate {
			continue
		}
		files = append(files, copyFile(row.file))
	}
	return files, nil
}

// CreateToken stores a share token
func (r *AlbumRepository) CreateToken(ctx context.Context, token *models.AlbumToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.tokens[token.ID] = copyToken(token)
	return nil
}

// GetToken retrieves a share token by ID
func (r *AlbumRepository) GetToken(ctx context.Context, id string) (*models.AlbumToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[id]
	if !ok {
		return nil, notFound("album token")
	}
	return copyToken(t), nil
}

// ListTokens lists the share tokens of an album, newest first
func (r *AlbumRepository) ListTokens(ctx context.Context, clientID, albumID string) ([]*models.AlbumToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tokens := []*models.AlbumToken{}
	for _, t := range r.s.tokens {
		if t.AlbumID == albumID && t.ClientID == clientID {
			tokens = append(tokens, copyToken(t))
		}
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.After(tokens[j].CreatedAt)
	})
	return tokens, nil
}

// DeleteToken deletes a share token of an album
func (r *AlbumRepository) DeleteToken(ctx context.Context, clientID, albumID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[id]
	if !ok || t.AlbumID != albumID || t.ClientID != clientID {
		return notFound("album token")
	}
	delete(r.s.tokens, id)
	return nil
}

// DeleteExpiredTokens deletes every token whose expiry is at or before now
func (r *AlbumRepository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var deleted int64
	for id, t := range r.s.tokens {
		if t.Expired(now) {
			delete(r.s.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}
