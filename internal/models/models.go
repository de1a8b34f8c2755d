package models

import "time"

// File kinds
const (
	KindImage  = "image"
	KindFile   = "file"
	KindAvatar = "avatar"
)

// Client represents a tenant identified by its API key
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	APIKey    string    `json:"-"`
	Domain    *string   `json:"domain,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents a tenant's user, keyed by the tenant's own external id
type User struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"client_id"`
	ExternalID   string    `json:"external_id"`
	Email        *string   `json:"email,omitempty"`
	Username     *string   `json:"username,omitempty"`
	AvatarFileID *string   `json:"avatar_file_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// File represents an uploaded image, file or avatar
type File struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	UserID      *string   `json:"user_id,omitempty"`
	Kind        string    `json:"kind"`
	Filename    string    `json:"filename"`
	StorageKey  string    `json:"-"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	Width       *int      `json:"width,omitempty"`
	Height      *int      `json:"height,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	Views       int64     `json:"views"`
	Downloads   int64     `json:"downloads"`
	Private     bool      `json:"private"`
	Optimized   bool      `json:"optimized"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Album represents a named collection of images
type Album struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	UserID      *string   `json:"user_id,omitempty"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	ImageCount  int       `json:"image_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AlbumToken represents a share link for an album
type AlbumToken struct {
	ID        string     `json:"id"`
	AlbumID   string     `json:"album_id"`
	ClientID  string     `json:"client_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the token can no longer authorize access at now.
func (t *AlbumToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}
