package services

import (
	"context"
	"time"

	"filehost-backend/internal/models"
	"filehost-backend/internal/repository"
)

// ClientStore persists clients
type ClientStore interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id string) (*models.Client, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Client, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// UserStore persists users
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Upsert(ctx context.Context, clientID, externalID string, email, username *string) (*models.User, error)
	CreateIfAbsent(ctx context.Context, clientID, externalID string) (*models.User, error)
	GetByID(ctx context.Context, clientID, id string) (*models.User, error)
	GetByExternalID(ctx context.Context, clientID, externalID string) (*models.User, error)
	ListByClient(ctx context.Context, clientID string) ([]*models.User, error)
	CountByClient(ctx context.Context, clientID string) (int, error)
	SetAvatar(ctx context.Context, clientID, userID string, fileID *string) error
}

// FileStore persists file metadata
type FileStore interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, clientID, id string) (*models.File, error)
	List(ctx context.Context, clientID string, filter repository.FileFilter) ([]*models.File, int, error)
	IncrementViews(ctx context.Context, clientID, id string) (*models.File, error)
	IncrementDownloads(ctx context.Context, clientID, id string) (*models.File, error)
	UpdateMetadata(ctx context.Context, file *models.File) error
	Delete(ctx context.Context, clientID, id string) error
}

// AlbumStore persists albums, album membership and share tokens
type AlbumStore interface {
	Create(ctx context.Context, album *models.Album) error
	GetByID(ctx context.Context, clientID, id string) (*models.Album, error)
	List(ctx context.Context, clientID string, userID *string) ([]*models.Album, error)
	Update(ctx context.Context, album *models.Album) error
	Delete(ctx context.Context, clientID, id string) error
	AddImages(ctx context.Context, clientID, albumID string, fileIDs []string) (int64, error)
	RemoveImage(ctx context.Context, albumID, fileID string) error
	ListImages(ctx context.Context, clientID, albumID string, includePrivate bool) ([]*models.File, error)
	CreateToken(ctx context.Context, token *models.AlbumToken) error
	GetToken(ctx context.Context, id string) (*models.AlbumToken, error)
	ListTokens(ctx context.Context, clientID, albumID string) ([]*models.AlbumToken, error)
	DeleteToken(ctx context.Context, clientID, albumID, id string) error
	TokenSweeper
}

// TokenSweeper deletes expired share tokens
type TokenSweeper interface {
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

var (
	_ ClientStore = (*repository.ClientRepository)(nil)
	_ UserStore   = (*repository.UserRepository)(nil)
	_ FileStore   = (*repository.FileRepository)(nil)
	_ AlbumStore  = (*repository.AlbumRepository)(nil)
)
