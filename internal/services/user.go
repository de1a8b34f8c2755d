package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"filehost-backend/internal/models"
	"filehost-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

const maxExternalIDLength = 255

// UserService handles tenant users and their avatars
type UserService struct {
	userRepo    UserStore
	fileService *FileService
}

// NewUserService creates a new user service
func NewUserService(userRepo UserStore, fileService *FileService) *UserService {
	return &UserService{
		userRepo:    userRepo,
		fileService: fileService,
	}
}

func validateExternalID(externalID string) error {
	if strings.TrimSpace(externalID) == "" {
		return newValidationError("invalid user", "external_id is required")
	}
	if len(externalID) > maxExternalIDLength {
		return newValidationError("invalid user", fmt.Sprintf("external_id must be at most %d characters", maxExternalIDLength))
	}
	return nil
}

// GetOrCreateUser upserts the user keyed by (clientID, externalID). Email and
// username are always overwritten, so a nil value clears the stored one.
func (s *UserService) GetOrCreateUser(ctx context.Context, clientID, externalID string, email, username *string) (*models.User, error) {
	if err := validateExternalID(externalID); err != nil {
		return nil, err
	}

	user, err := s.userRepo.Upsert(ctx, clientID, externalID, email, username)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

// GetUserByExternalID returns the user, or nil when it does not exist
func (s *UserService) GetUserByExternalID(ctx context.Context, clientID, externalID string) (*models.User, error) {
	user, err := s.userRepo.GetByExternalID(ctx, clientID, externalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// EnsureUser creates the user if it does not exist, leaving an existing row untouched
func (s *UserService) EnsureUser(ctx context.Context, clientID, externalID string) (*models.User, error) {
	if err := validateExternalID(externalID); err != nil {
		return nil, err
	}
	return s.userRepo.CreateIfAbsent(ctx, clientID, externalID)
}

// ListUsers lists the users of a client
func (s *UserService) ListUsers(ctx context.Context, clientID string) ([]*models.User, error) {
	users, err := s.userRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// SetAvatar stores an image as the user's avatar and removes the previous one
func (s *UserService) SetAvatar(ctx context.Context, clientID, externalID string, in UploadInput) (*models.User, *models.File, error) {
	user, err := s.EnsureUser(ctx, clientID, externalID)
	if err != nil {
		return nil, nil, err
	}

	in.Kind = models.KindAvatar
	in.OwnerExternalID = externalID
	file, err := s.fileService.Upload(ctx, clientID, in)
	if err != nil {
		return nil, nil, err
	}

	if err := s.userRepo.SetAvatar(ctx, clientID, user.ID, &file.ID); err != nil {
		if delErr := s.fileService.Delete(ctx, clientID, file.ID); delErr != nil {
			log.Error().Err(delErr).Str("file_id", file.ID).Msg("Failed to remove unused avatar")
		}
		return nil, nil, fmt.Errorf("failed to set avatar: %w", err)
	}

	if previous := user.AvatarFileID; previous != nil && *previous != file.ID {
		if err := s.fileService.Delete(ctx, clientID, *previous); err != nil && !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("file_id", *previous).Msg("Failed to remove previous avatar")
		}
	}

	user.AvatarFileID = &file.ID
	log.Info().
		Str("client_id", clientID).
		Str("external_id", externalID).
		Str("file_id", file.ID).
		Msg("Avatar updated")

	return user, file, nil
}

// OpenAvatar returns the user's avatar metadata and content
func (s *UserService) OpenAvatar(ctx context.Context, clientID, externalID string) (*models.File, io.ReadCloser, error) {
	user, err := s.GetUserByExternalID(ctx, clientID, externalID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || user.AvatarFileID == nil {
		return nil, nil, ErrNotFound
	}
	return s.fileService.Open(ctx, clientID, *user.AvatarFileID, CountNone)
}
