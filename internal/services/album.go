package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"filehost-backend/internal/models"
	"filehost-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxAlbumNameLength = 200

// AlbumInput describes a new album
type AlbumInput struct {
	Name            string
	Description     *string
	OwnerExternalID string
}

// AlbumPatch holds album changes; nil fields are left unchanged
type AlbumPatch struct {
	Name        *string
	Description *string
}

// ShareLink is a freshly issued share token
type ShareLink struct {
	Token      string
	AlbumToken *models.AlbumToken
}

// SharedAlbum is what a share token grants access to
type SharedAlbum struct {
	Album  *models.Album
	Images []*models.File
	Token  *models.AlbumToken
}

// shareClaims binds a share token to its album and client. The token row is
// the authority, the signature keeps ids from being guessed.
type shareClaims struct {
	ClientID string `json:"cid"`
	jwt.RegisteredClaims
}

// AlbumService handles albums and album share tokens
type AlbumService struct {
	albumRepo   AlbumStore
	userRepo    UserStore
	fileService *FileService
	events      *EventHub
	shareSecret []byte
	now         func() time.Time
}

// NewAlbumService creates a new album service
func NewAlbumService(albumRepo AlbumStore, userRepo UserStore, fileService *FileService, events *EventHub, shareSecret string) *AlbumService {
	return &AlbumService{
		albumRepo:   albumRepo,
		userRepo:    userRepo,
		fileService: fileService,
		events:      events,
		shareSecret: []byte(shareSecret),
		now:         time.Now,
	}
}

func validateAlbumName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", newValidationError("invalid album", "name is required")
	}
	if len(name) > maxAlbumNameLength {
		return "", newValidationError("invalid album", fmt.Sprintf("name must be at most %d characters", maxAlbumNameLength))
	}
	return name, nil
}

// CreateAlbum creates an album, optionally owned by a user
func (s *AlbumService) CreateAlbum(ctx context.Context, clientID string, in AlbumInput) (*models.Album, error) {
	name, err := validateAlbumName(in.Name)
	if err != nil {
		return nil, err
	}

	var userID *string
	if in.OwnerExternalID != "" {
		if err := validateExternalID(in.OwnerExternalID); err != nil {
			return nil, err
		}
		owner, err := s.userRepo.CreateIfAbsent(ctx, clientID, in.OwnerExternalID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve owner: %w", err)
		}
		userID = &owner.ID
	}

	now := s.now().UTC()
	album := &models.Album{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		UserID:      userID,
		Name:        name,
		Description: emptyToNil(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.albumRepo.Create(ctx, album); err != nil {
		return nil, fmt.Errorf("failed to create album: %w", err)
	}

	s.events.Publish(clientID, NewEvent(EventAlbumCreated, map[string]interface{}{"album_id": album.ID}))
	log.Info().Str("client_id", clientID).Str("album_id", album.ID).Msg("Album created")
	return album, nil
}

// GetAlbum returns an album of the client
func (s *AlbumService) GetAlbum(ctx context.Context, clientID, id string) (*models.Album, error) {
	if err := parseID(id); err != nil {
		return nil, err
	}
	album, err := s.albumRepo.GetByID(ctx, clientID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return album, nil
}

// ListAlbums lists the client's albums, optionally only those of one user
func (s *AlbumService) ListAlbums(ctx context.Context, clientID, ownerExternalID string) ([]*models.Album, error) {
	var userID *string
	if ownerExternalID != "" {
		owner, err := s.userRepo.GetByExternalID(ctx, clientID, ownerExternalID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return []*models.Album{}, nil
			}
			return nil, err
		}
		userID = &owner.ID
	}
	return s.albumRepo.List(ctx, clientID, userID)
}

// UpdateAlbum applies an album patch
func (s *AlbumService) UpdateAlbum(ctx context.Context, clientID, id string, patch AlbumPatch) (*models.Album, error) {
	album, err := s.GetAlbum(ctx, clientID, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name, err := validateAlbumName(*patch.Name)
		if err != nil {
			return nil, err
		}
		album.Name = name
	}
	if patch.Description != nil {
		album.Description = emptyToNil(patch.Description)
	}

	if err := s.albumRepo.Update(ctx, album); err != nil {
		return nil, notFound(err)
	}
	return album, nil
}

// DeleteAlbum deletes an album together with its share tokens. Images are kept.
func (s *AlbumService) DeleteAlbum(ctx context.Context, clientID, id string) error {
	if err := parseID(id); err != nil {
		return err
	}
	if err := s.albumRepo.Delete(ctx, clientID, id); err != nil {
		return notFound(err)
	}

	s.events.Publish(clientID, NewEvent(EventAlbumDeleted, map[string]interface{}{"album_id": id}))
	log.Info().Str("client_id", clientID).Str("album_id", id).Msg("Album deleted")
	return nil
}

// AddImages adds images of the same client to an album. Already present images are ignored.
func (s *AlbumService) AddImages(ctx context.Context, clientID, albumID string, fileIDs []string) (*models.Album, error) {
	if _, err := s.GetAlbum(ctx, clientID, albumID); err != nil {
		return nil, err
	}
	if len(fileIDs) == 0 {
		return nil, newValidationError("invalid album images", "file_ids must not be empty")
	}

	var ids, problems []string
	seen := make(map[string]struct{}, len(fileIDs))
	for _, id := range fileIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		file, err := s.fileService.Lookup(ctx, clientID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				problems = append(problems, fmt.Sprintf("file %s not found", id))
				continue
			}
			return nil, err
		}
		if file.Kind != models.KindImage {
			problems = append(problems, fmt.Sprintf("file %s is not an image", id))
			continue
		}
		ids = append(ids, id)
	}
	if len(problems) > 0 {
		return nil, newValidationError("invalid album images", problems...)
	}

	added, err := s.albumRepo.AddImages(ctx, clientID, albumID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to add images: %w", err)
	}

	log.Info().Str("client_id", clientID).Str("album_id", albumID).Int64("added", added).Msg("Album images added")
	return s.GetAlbum(ctx, clientID, albumID)
}

// RemoveImage removes an image from an album
func (s *AlbumService) RemoveImage(ctx context.Context, clientID, albumID, fileID string) error {
	if _, err := s.GetAlbum(ctx, clientID, albumID); err != nil {
		return err
	}
	if err := parseID(fileID); err != nil {
		return err
	}
	if err := s.albumRepo.RemoveImage(ctx, albumID, fileID); err != nil {
		return notFound(err)
	}
	return nil
}

// ListImages lists every image of an album, private ones included
func (s *AlbumService) ListImages(ctx context.Context, clientID, albumID string) ([]*models.File, error) {
	if _, err := s.GetAlbum(ctx, clientID, albumID); err != nil {
		return nil, err
	}
	return s.albumRepo.ListImages(ctx, clientID, albumID, true)
}

// CreateShareToken issues a share token for an album. A nil expiry never expires.
func (s *AlbumService) CreateShareToken(ctx context.Context, clientID, albumID string, expiresAt *time.Time) (*ShareLink, error) {
	if _, err := s.GetAlbum(ctx, clientID, albumID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if expiresAt != nil {
		exp := expiresAt.UTC()
		if !exp.After(now) {
			return nil, newValidationError("invalid share link", "expires_at must be in the future")
		}
		expiresAt = &exp
	}

	token := &models.AlbumToken{
		ID:        uuid.New().String(),
		AlbumID:   albumID,
		ClientID:  clientID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}

	claims := shareClaims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       token.ID,
			Subject:  albumID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if expiresAt != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*expiresAt)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.shareSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign share token: %w", err)
	}

	if err := s.albumRepo.CreateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store share token: %w", err)
	}

	s.events.Publish(clientID, NewEvent(EventAlbumShared, map[string]interface{}{
		"album_id": albumID,
		"token_id": token.ID,
	}))
	log.Info().
		Str("client_id", clientID).
		Str("album_id", albumID).
		Str("token_id", token.ID).
		Msg("Album share token created")

	return &ShareLink{Token: signed, AlbumToken: token}, nil
}

// ResolveShareToken returns the album a share token grants access to. Expiry
// is checked here, whether or not the sweeper has removed the token yet.
func (s *AlbumService) ResolveShareToken(ctx context.Context, tokenString string) (*SharedAlbum, error) {
	now := s.now()

	claims := &shareClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.shareSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, ErrShareTokenInvalid
	}

	token, err := s.albumRepo.GetToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrShareTokenInvalid
		}
		return nil, err
	}
	if token.ClientID != claims.ClientID || token.AlbumID != claims.Subject || token.Expired(now) {
		return nil, ErrShareTokenInvalid
	}

	album, err := s.albumRepo.GetByID(ctx, token.ClientID, token.AlbumID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrShareTokenInvalid
		}
		return nil, err
	}

	images, err := s.albumRepo.ListImages(ctx, token.ClientID, token.AlbumID, false)
	if err != nil {
		return nil, err
	}

	return &SharedAlbum{Album: album, Images: images, Token: token}, nil
}

// OpenSharedImage opens an image through a share token and counts a view
func (s *AlbumService) OpenSharedImage(ctx context.Context, tokenString, fileID string) (*models.File, io.ReadCloser, error) {
	shared, err := s.ResolveShareToken(ctx, tokenString)
	if err != nil {
		return nil, nil, err
	}

	for _, img := range shared.Images {
		if img.ID == fileID {
			return s.fileService.Open(ctx, shared.Album.ClientID, fileID, CountView)
		}
	}
	return nil, nil, ErrNotFound
}

// ListShareTokens lists the share tokens of an album
func (s *AlbumService) ListShareTokens(ctx context.Context, clientID, albumID string) ([]*models.AlbumToken, error) {
	if _, err := s.GetAlbum(ctx, clientID, albumID); err != nil {
		return nil, err
	}
	return s.albumRepo.ListTokens(ctx, clientID, albumID)
}

// DeleteShareToken revokes a share token
func (s *AlbumService) DeleteShareToken(ctx context.Context, clientID, albumID, tokenID string) error {
	if err := parseID(albumID); err != nil {
		return err
	}
	if err := parseID(tokenID); err != nil {
		return err
	}
	if err := s.albumRepo.DeleteToken(ctx, clientID, albumID, tokenID); err != nil {
		return notFound(err)
	}
	log.Info().Str("client_id", clientID).Str("album_id", albumID).Str("token_id", tokenID).Msg("Album share token deleted")
	return nil
}
