package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"filehost-backend/internal/metrics"
	"filehost-backend/internal/models"
	"filehost-backend/internal/repository"
	"filehost-backend/internal/storage"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultListLimit  = 50
	maxListLimit      = 100
	maxFilenameLength = 255
)

// AccessCounter selects which counter a content access increments
type AccessCounter int

const (
	CountNone AccessCounter = iota
	CountView
	CountDownload
)

// FileServiceConfig holds upload limits
type FileServiceConfig struct {
	MaxBytes          int64
	AllowedImageTypes []string
	AllowedFileTypes  []string // empty allows any type
}

// UploadInput describes an upload
type UploadInput struct {
	Kind            string
	Filename        string
	Content         io.Reader
	OwnerExternalID string
	Description     *string
	Tags            []string
	Private         bool
}

// FileQuery filters a file listing
type FileQuery struct {
	Kind            string
	Tags            []string
	Description     string
	Filename        string
	OwnerExternalID string
	Limit           int
	Offset          int
}

// FilePatch holds metadata changes; nil fields are left unchanged
type FilePatch struct {
	Description *string
	Tags        *[]string
	Private     *bool
	Optimized   *bool
}

// FileService handles uploads, retrieval, filtering and deletion of files
type FileService struct {
	fileRepo FileStore
	userRepo UserStore
	storage  storage.Storage
	events   *EventHub
	cfg      FileServiceConfig
	now      func() time.Time
}

// NewFileService creates a new file service
func NewFileService(fileRepo FileStore, userRepo UserStore, store storage.Storage, events *EventHub, cfg FileServiceConfig) *FileService {
	return &FileService{
		fileRepo: fileRepo,
		userRepo: userRepo,
		storage:  store,
		events:   events,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ParseTags splits a comma-separated tag string
func ParseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return normalizeTags(strings.Split(s, ","))
}

// normalizeTags trims, lowercases and de-duplicates tags, dropping empty ones
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// cleanFilename keeps the base name as valid UTF-8 without NUL bytes, trimmed to
// its last maxFilenameLength bytes on a rune boundary
func cleanFilename(name, ext string) string {
	name = strings.ToValidUTF8(name, "")
	name = strings.ReplaceAll(name, "\x00", "")
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	if len(name) > maxFilenameLength {
		cut := len(name) - maxFilenameLength
		for cut < len(name) && !utf8.RuneStart(name[cut]) {
			cut++
		}
		name = name[cut:]
	}
	if name == "" || name == "." || name == "/" {
		name = "upload" + ext
	}
	return name
}

func validKind(kind string) bool {
	switch kind {
	case models.KindImage, models.KindFile, models.KindAvatar:
		return true
	}
	return false
}

func parseID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Upload stores the content and records its metadata. The content is written
// before the record is inserted, so a visible record always has its content;
// if the insert fails the content is removed again.
func (s *FileService) Upload(ctx context.Context, clientID string, in UploadInput) (*models.File, error) {
	if !validKind(in.Kind) {
		return nil, newValidationError("invalid upload", fmt.Sprintf("unknown kind %q", in.Kind))
	}
	if in.Content == nil {
		return nil, newValidationError("invalid upload", "file is required")
	}

	data, err := io.ReadAll(io.LimitReader(in.Content, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		metrics.UploadsTotal.WithLabelValues(in.Kind, "rejected").Inc()
		return nil, newValidationError("invalid upload",
			fmt.Sprintf("file exceeds the maximum size of %s", humanize.Bytes(uint64(s.cfg.MaxBytes))))
	}
	if len(data) == 0 {
		metrics.UploadsTotal.WithLabelValues(in.Kind, "rejected").Inc()
		return nil, newValidationError("invalid upload", "file is empty")
	}

	detected := mimetype.Detect(data)
	mimeType := strings.TrimSpace(strings.Split(detected.String(), ";")[0])
	if err := s.checkType(in.Kind, mimeType); err != nil {
		metrics.UploadsTotal.WithLabelValues(in.Kind, "rejected").Inc()
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

	ext := detected.Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(in.Filename))
	}

	now := s.now().UTC()
	file := &models.File{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		UserID:      userID,
		Kind:        in.Kind,
		Filename:    cleanFilename(in.Filename, ext),
		MimeType:    mimeType,
		Size:        int64(len(data)),
		Description: emptyToNil(in.Description),
		Tags:        normalizeTags(in.Tags),
		Private:     in.Private,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	file.StorageKey = storage.Key(clientID, in.Kind, file.ID, ext)

	if in.Kind != models.KindFile {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			file.Width, file.Height = &cfg.Width, &cfg.Height
		}
	}

	if err := s.storage.Put(ctx, file.StorageKey, bytes.NewReader(data), file.Size, mimeType); err != nil {
		metrics.UploadsTotal.WithLabelValues(in.Kind, "failed").Inc()
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	if err := s.fileRepo.Create(ctx, file); err != nil {
		metrics.UploadsTotal.WithLabelValues(in.Kind, "failed").Inc()
		if delErr := s.storage.Delete(ctx, file.StorageKey); delErr != nil {
			metrics.OrphanedObjectsTotal.Inc()
			log.Error().Err(delErr).Str("storage_key", file.StorageKey).Msg("Failed to remove stored file after insert failure")
		}
		return nil, fmt.Errorf("failed to record file: %w", err)
	}

	metrics.UploadsTotal.WithLabelValues(in.Kind, "ok").Inc()
	metrics.UploadBytesTotal.Add(float64(file.Size))
	s.events.Publish(clientID, NewEvent(EventFileUploaded, map[string]interface{}{
		"file_id": file.ID,
		"kind":    file.Kind,
	}))

	log.Info().
		Str("client_id", clientID).
		Str("file_id", file.ID).
		Str("kind", file.Kind).
		Str("mime_type", file.MimeType).
		Int64("size", file.Size).
		Msg("File uploaded")

	return file, nil
}

func (s *FileService) checkType(kind, mimeType string) error {
	var allowed []string
	switch kind {
	case models.KindImage, models.KindAvatar:
		allowed = s.cfg.AllowedImageTypes
		if !strings.HasPrefix(mimeType, "image/") {
			return newValidationError("invalid upload", fmt.Sprintf("file type %s is not an image", mimeType))
		}
	default:
		allowed = s.cfg.AllowedFileTypes
	}
	if len(allowed) > 0 && !mimetype.EqualsAny(mimeType, allowed...) {
		return newValidationError("invalid upload", fmt.Sprintf("file type %s is not allowed", mimeType))
	}
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Lookup returns file metadata without touching any counter
func (s *FileService) Lookup(ctx context.Context, clientID, id string) (*models.File, error) {
	if err := parseID(id); err != nil {
		return nil, err
	}
	file, err := s.fileRepo.GetByID(ctx, clientID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return file, nil
}

// Get returns file metadata and counts a view
func (s *FileService) Get(ctx context.Context, clientID, id string) (*models.File, error) {
	if err := parseID(id); err != nil {
		return nil, err
	}
	file, err := s.fileRepo.IncrementViews(ctx, clientID, id)
	if err != nil {
		return nil, notFound(err)
	}
	metrics.FileAccessTotal.WithLabelValues("view").Inc()
	return file, nil
}

// Open returns file metadata and content. The counter is only incremented once
// the content could be opened.
func (s *FileService) Open(ctx context.Context, clientID, id string, counter AccessCounter) (*models.File, io.ReadCloser, error) {
	file, err := s.Lookup(ctx, clientID, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.storage.Open(ctx, file.StorageKey)
	if err != nil {
		log.Error().Err(err).Str("file_id", file.ID).Str("storage_key", file.StorageKey).Msg("Failed to open stored file")
		return nil, nil, fmt.Errorf("failed to open file content: %w", err)
	}

	var updated *models.File
	switch counter {
	case CountView:
		updated, err = s.fileRepo.IncrementViews(ctx, clientID, id)
		metrics.FileAccessTotal.WithLabelValues("view").Inc()
	case CountDownload:
		updated, err = s.fileRepo.IncrementDownloads(ctx, clientID, id)
		metrics.FileAccessTotal.WithLabelValues("download").Inc()
	}
	if err != nil {
		log.Warn().Err(err).Str("file_id", id).Msg("Failed to increment file counter")
	} else if updated != nil {
		file = updated
	}

	return file, rc, nil
}

// List returns the client's files matching the query and the total match count
func (s *FileService) List(ctx context.Context, clientID string, q FileQuery) ([]*models.File, int, error) {
	if q.Kind != "" && !validKind(q.Kind) {
		return nil, 0, newValidationError("invalid query", fmt.Sprintf("unknown type %q", q.Kind))
	}

	filter := repository.FileFilter{
		Kind:        q.Kind,
		Tags:        normalizeTags(q.Tags),
		Description: strings.TrimSpace(q.Description),
		Filename:    strings.TrimSpace(q.Filename),
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if len(filter.Tags) == 0 {
		filter.Tags = nil
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if q.OwnerExternalID != "" {
		owner, err := s.userRepo.GetByExternalID(ctx, clientID, q.OwnerExternalID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return []*models.File{}, 0, nil
			}
			return nil, 0, err
		}
		filter.UserID = owner.ID
	}

	return s.fileRepo.List(ctx, clientID, filter)
}

// UpdateMetadata applies a metadata patch
func (s *FileService) UpdateMetadata(ctx context.Context, clientID, id string, patch FilePatch) (*models.File, error) {
	file, err := s.Lookup(ctx, clientID, id)
	if err != nil {
		return nil, err
	}

	if patch.Description != nil {
		file.Description = emptyToNil(patch.Description)
	}
	if patch.Tags != nil {
		file.Tags = normalizeTags(*patch.Tags)
	}
	if patch.Private != nil {
		file.Private = *patch.Private
	}
	if patch.Optimized != nil {
		file.Optimized = *patch.Optimized
	}

	if err := s.fileRepo.UpdateMetadata(ctx, file); err != nil {
		return nil, notFound(err)
	}
	return file, nil
}

// Delete removes the record first and the content second. A failed content
// removal leaves an orphaned object, never a record without content.
func (s *FileService) Delete(ctx context.Context, clientID, id string) error {
	file, err := s.Lookup(ctx, clientID, id)
	if err != nil {
		return err
	}

	if err := s.fileRepo.Delete(ctx, clientID, id); err != nil {
		return notFound(err)
	}

	if err := s.storage.Delete(ctx, file.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		metrics.OrphanedObjectsTotal.Inc()
		log.Warn().
			Err(err).
			Str("file_id", file.ID).
			Str("storage_key", file.StorageKey).
			Msg("Failed to remove stored file, object is orphaned")
	}

	s.events.Publish(clientID, NewEvent(EventFileDeleted, map[string]interface{}{
		"file_id": file.ID,
	}))

	log.Info().Str("client_id", clientID).Str("file_id", file.ID).Msg("File deleted")
	return nil
}
