package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"filehost-backend/internal/models"

	"github.com/google/uuid"
)

// UserRepository stores users in memory
type UserRepository struct {
	s *Store
}

// byExternalID must be called with the lock held
func (r *UserRepository) byExternalID(clientID, externalID string) *models.User {
	for _, u := range r.s.users {
		if u.ClientID == clientID && u.ExternalID == externalID {
			return u
		}
	}
	return nil
}

// Create creates a new user; (client, external id) is unique
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.byExternalID(user.ClientID, user.ExternalID) != nil {
		return fmt.Errorf("failed to create user: duplicate external id %q", user.ExternalID)
	}
	r.s.users[user.ID] = copyUser(user)
	return nil
}

// Upsert inserts the user or overwrites email and username, nils included
func (r *UserRepository) Upsert(ctx context.Context, clientID, externalID string, email, username *string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	if u := r.byExternalID(clientID, externalID); u != nil {
		u.Email, u.Username, u.UpdatedAt = email, username, now
		return copyUser(u), nil
	}

	u := &models.User{
		ID:         uuid.New().String(),
		ClientID:   clientID,
		ExternalID: externalID,
		Email:      email,
		Username:   username,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.s.users[u.ID] = u
	return copyUser(u), nil
}

// CreateIfAbsent inserts the user unless it exists and returns the stored row
func (r *UserRepository) CreateIfAbsent(ctx context.Context, clientID, externalID string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u := r.byExternalID(clientID, externalID); u != nil {
		return copyUser(u), nil
	}

	now := time.Now().UTC()
	u := &models.User{
		ID:         uuid.New().String(),
		ClientID:   clientID,
		ExternalID: externalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.s.users[u.ID] = u
	return copyUser(u), nil
}

// GetByID retrieves a user by ID within a client
func (r *UserRepository) GetByID(ctx context.Context, clientID, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok || u.ClientID != clientID {
		return nil, notFound("user")
	}
	return copyUser(u), nil
}

// GetByExternalID retrieves a user by the client's external ID
func (r *UserRepository) GetByExternalID(ctx context.Context, clientID, externalID string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u := r.byExternalID(clientID, externalID)
	if u == nil {
		return nil, notFound("user")
	}
	return copyUser(u), nil
}

// ListByClient lists all users of a client, oldest first
func (r *UserRepository) ListByClient(ctx context.Context, clientID string) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := []*models.User{}
	for _, u := range r.s.users {
		if u.ClientID == clientID {
			users = append(users, copyUser(u))
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ExternalID < users[j].ExternalID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// CountByClient counts the users of a client
func (r *UserRepository) CountByClient(ctx context.Context, clientID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, u := range r.s.users {
		if u.ClientID == clientID {
			count++
		}
	}
	return count, nil
}

// SetAvatar points the user at an avatar file, or clears it when fileID is nil
func (r *UserRepository) SetAvatar(ctx context.Context, clientID, userID string, fileID *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok || u.ClientID != clientID {
		return notFound("user")
	}
	if fileID != nil {
		if _, ok := r.s.files[*fileID]; !ok {
			return fmt.Errorf("failed to update avatar: file %s does not exist", *fileID)
		}
		id := *fileID
		fileID = &id
	}
	u.AvatarFileID = fileID
	u.UpdatedAt = time.Now().UTC()
	return nil
}
