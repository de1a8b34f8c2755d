package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"filehost-backend/internal/models"
	"filehost-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	apiKeyPrefix      = "fh_"
	apiKeyRandomBytes = 24
	apiKeyMinLength   = 60
)

var apiKeyPattern = regexp.MustCompile(`^fh_[0-9a-f]{48}_[0-9a-z]+$`)

// SeedUsers are created for every new client that has no users yet
var SeedUsers = []string{"administrator", "system"}

// ClientService handles client provisioning and API key validation
type ClientService struct {
	clientRepo ClientStore
	userRepo   UserStore
}

// NewClientService creates a new client service
func NewClientService(clientRepo ClientStore, userRepo UserStore) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		userRepo:   userRepo,
	}
}

// GenerateAPIKey returns fh_ + 48 random hex chars + _ + base36 unix milliseconds
func GenerateAPIKey() (string, error) {
	buf := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	suffix := strconv.FormatInt(time.Now().UnixMilli(), 36)
	return apiKeyPrefix + hex.EncodeToString(buf) + "_" + suffix, nil
}

// ValidAPIKeyFormat reports whether key has the shape GenerateAPIKey produces
func ValidAPIKeyFormat(key string) bool {
	return len(key) >= apiKeyMinLength && apiKeyPattern.MatchString(key)
}

// ValidateClient returns the active client owning apiKey
func (s *ClientService) ValidateClient(ctx context.Context, apiKey string) (*models.Client, error) {
	if !ValidAPIKeyFormat(apiKey) {
		return nil, ErrInvalidAPIKey
	}

	client, err := s.clientRepo.GetByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}

	if !client.Active {
		return nil, ErrInvalidAPIKey
	}
	return client, nil
}

// GetClientByID returns the client, or nil when it does not exist
func (s *ClientService) GetClientByID(ctx context.Context, id string) (*models.Client, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return client, nil
}

// CreateClient provisions a client with a fresh API key and seeds its default users
func (s *ClientService) CreateClient(ctx context.Context, name string, domain *string, active bool) (*models.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newValidationError("invalid client", "name is required")
	}
	if domain != nil {
		d := strings.TrimSpace(*domain)
		domain = &d
		if d == "" {
			domain = nil
		}
	}

	apiKey, err := GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate api key: %w", err)
	}

	now := time.Now().UTC()
	client := &models.Client{
		ID:        uuid.New().String(),
		Name:      name,
		APIKey:    apiKey,
		Domain:    domain,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := s.seedUsers(ctx, client.ID); err != nil {
		return nil, err
	}

	log.Info().
		Str("client_id", client.ID).
		Str("name", client.Name).
		Bool("active", client.Active).
		Msg("Client created")

	return client, nil
}

// seedUsers creates the default users, but only for a client without users
func (s *ClientService) seedUsers(ctx context.Context, clientID string) error {
	count, err := s.userRepo.CountByClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, name := range SeedUsers {
		username := name
		user := &models.User{
			ID:         uuid.New().String(),
			ClientID:   clientID,
			ExternalID: name,
			Username:   &username,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return fmt.Errorf("failed to create seed user %s: %w", name, err)
		}
	}
	return nil
}

// SetClientActive activates or deactivates a client
func (s *ClientService) SetClientActive(ctx context.Context, id string, active bool) (*models.Client, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	if err := s.clientRepo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	log.Info().Str("client_id", id).Bool("active", active).Msg("Client activation changed")
	return s.clientRepo.GetByID(ctx, id)
}
