package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"filehost-backend/internal/models"
	"filehost-backend/internal/repository"
)

// FileRepository stores file metadata in memory
type FileRepository struct {
	s *Store
}

// Create creates a new file record
func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.files[file.ID]; exists {
		return fmt.Errorf("failed to create file: duplicate id %s", file.ID)
	}
	r.s.seq++
	r.s.files[file.ID] = &fileRow{file: copyFile(file), seq: r.s.seq}
	return nil
}

// get must be called with the lock held
func (r *FileRepository) get(clientID, id string) (*fileRow, error) {
	row, ok := r.s.files[id]
	if !ok || row.file.ClientID != clientID {
		return nil, notFound("file")
	}
	return row, nil
}

// GetByID retrieves a file by ID within a client
func (r *FileRepository) GetByID(ctx context.Context, clientID, id string) (*models.File, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, err := r.get(clientID, id)
	if err != nil {
		return nil, err
	}
	return copyFile(row.file), nil
}

// List retrieves the client's files matching the filter, newest first, with the total match count
func (r *FileRepository) List(ctx context.Context, clientID string, filter repository.FileFilter) ([]*models.File, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var rows []*fileRow
	for _, row := range r.s.files {
		if row.file.ClientID == clientID && filter.Matches(row.file) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.file.CreatedAt.Equal(b.file.CreatedAt) {
			return a.file.CreatedAt.After(b.file.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := len(rows)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	files := make([]*models.File, 0, end-start)
	for _, row := range rows[start:end] {
		files = append(files, copyFile(row.file))
	}
	return files, total, nil
}

// IncrementViews bumps the view counter and returns the updated file
func (r *FileRepository) IncrementViews(ctx context.Context, clientID, id string) (*models.File, error) {
	return r.increment(clientID, id, func(f *models.File) { f.Views++ })
}

// IncrementDownloads bumps the download counter and returns the updated file
func (r *FileRepository) IncrementDownloads(ctx context.Context, clientID, id string) (*models.File, error) {
	return r.increment(clientID, id, func(f *models.File) { f.Downloads++ })
}

func (r *FileRepository) increment(clientID, id string, bump func(*models.File)) (*models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, err := r.get(clientID, id)
	if err != nil {
		return nil, err
	}
	bump(row.file)
	return copyFile(row.file), nil
}

// UpdateMetadata writes the mutable metadata fields of a file
func (r *FileRepository) UpdateMetadata(ctx context.Context, file *models.File) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, err := r.get(file.ClientID, file.ID)
	if err != nil {
		return err
	}
	file.UpdatedAt = time.Now().UTC()
	row.file.Description = file.Description
	row.file.Tags = append([]string{}, file.Tags...)
	row.file.Private = file.Private
	row.file.Optimized = file.Optimized
	row.file.UpdatedAt = file.UpdatedAt
	return nil
}

// Delete deletes a file record, unlinking it from albums and avatars
func (r *FileRepository) Delete(ctx context.Context, clientID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.get(clientID, id); err != nil {
		return err
	}
	delete(r.s.files, id)

	for albumID, images := range r.s.albumImages {
		kept := images[:0]
		for _, img := range images {
			if img.fileID != id {
				kept = append(kept, img)
			}
		}
		r.s.albumImages[albumID] = kept
	}
	for _, u := range r.s.users {
		if u.AvatarFileID != nil && *u.AvatarFileID == id {
			u.AvatarFileID = nil
		}
	}
	return nil
}
