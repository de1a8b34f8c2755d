package handlers

import (
	"net/url"
	"time"

	"filehost-backend/internal/models"
	"filehost-backend/internal/services"
)

// links derives public URLs from the configured public base URL
type links struct {
	base string
}

// ClientResponse is a tenant as seen by itself or the admin
type ClientResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    *string   `json:"domain"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProvisionedClientResponse is the only response that carries the API key
type ProvisionedClientResponse struct {
	ClientResponse
	APIKey string `json:"api_key"`
}

// MeResponse is the tenant's own profile with its event feed status
type MeResponse struct {
	ClientResponse
	Connected bool `json:"connected"`
}

func clientResponse(c *models.Client) ClientResponse {
	return ClientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Domain:    c.Domain,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func provisionedClientResponse(c *models.Client) ProvisionedClientResponse {
	return ProvisionedClientResponse{ClientResponse: clientResponse(c), APIKey: c.APIKey}
}

// UserResponse is a tenant user
type UserResponse struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"external_id"`
	Email        *string   `json:"email"`
	Username     *string   `json:"username"`
	AvatarFileID *string   `json:"avatar_file_id"`
	AvatarURL    *string   `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (l links) userResponse(u *models.User) UserResponse {
	resp := UserResponse{
		ID:           u.ID,
		ExternalID:   u.ExternalID,
		Email:        u.Email,
		Username:     u.Username,
		AvatarFileID: u.AvatarFileID,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.AvatarFileID != nil {
		avatarURL := l.base + "/api/v1/users/" + url.PathEscape(u.ExternalID) + "/avatar"
		resp.AvatarURL = &avatarURL
	}
	return resp
}

// FileResponse is file metadata with its derived URLs
type FileResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	Width       *int      `json:"width"`
	Height      *int      `json:"height"`
	Description *string   `json:"description"`
	Tags        []string  `json:"tags"`
	Views       int64     `json:"views"`
	Downloads   int64     `json:"downloads"`
	Private     bool      `json:"private"`
	Optimized   bool      `json:"optimized"`
	UserID      *string   `json:"user_id"`
	URL         string    `json:"url"`
	DownloadURL string    `json:"download_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (l links) fileResponse(f *models.File) FileResponse {
	base := l.base + "/api/v1/files/" + f.ID
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	return FileResponse{
		ID:          f.ID,
		Kind:        f.Kind,
		Filename:    f.Filename,
		MimeType:    f.MimeType,
		Size:        f.Size,
		Width:       f.Width,
		Height:      f.Height,
		Description: f.Description,
		Tags:        tags,
		Views:       f.Views,
		Downloads:   f.Downloads,
		Private:     f.Private,
		Optimized:   f.Optimized,
		UserID:      f.UserID,
		URL:         base + "/raw",
		DownloadURL: base + "/download",
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

func (l links) fileResponses(files []*models.File) []FileResponse {
	out := make([]FileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, l.fileResponse(f))
	}
	return out
}

// SharedFileResponse is an album image reached through a share link.
// Counters and owner stay hidden.
type SharedFileResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Width    *int   `json:"width"`
	Height   *int   `json:"height"`
	URL      string `json:"url"`
}

// AlbumResponse is an album, with its images when they were loaded
type AlbumResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	UserID      *string        `json:"user_id"`
	ImageCount  int            `json:"image_count"`
	Images      []FileResponse `json:"images,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func albumResponse(a *models.Album) AlbumResponse {
	return AlbumResponse{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		UserID:      a.UserID,
		ImageCount:  a.ImageCount,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// ShareTokenResponse describes a share link. Token is only set on creation.
type ShareTokenResponse struct {
	ID        string     `json:"id"`
	AlbumID   string     `json:"album_id"`
	Token     string     `json:"token,omitempty"`
	URL       string     `json:"url,omitempty"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func shareTokenResponse(t *models.AlbumToken) ShareTokenResponse {
	return ShareTokenResponse{
		ID:        t.ID,
		AlbumID:   t.AlbumID,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}
}

// SharedAlbumResponse is the public view of a shared album
type SharedAlbumResponse struct {
	Name        string               `json:"name"`
	Description *string              `json:"description"`
	ExpiresAt   *time.Time           `json:"expires_at"`
	Images      []SharedFileResponse `json:"images"`
}

func (l links) sharedAlbumResponse(token string, shared *services.SharedAlbum) SharedAlbumResponse {
	images := make([]SharedFileResponse, 0, len(shared.Images))
	for _, f := range shared.Images {
		images = append(images, SharedFileResponse{
			ID:       f.ID,
			Filename: f.Filename,
			MimeType: f.MimeType,
			Size:     f.Size,
			Width:    f.Width,
			Height:   f.Height,
			URL:      l.base + "/share/" + token + "/files/" + f.ID,
		})
	}
	return SharedAlbumResponse{
		Name:        shared.Album.Name,
		Description: shared.Album.Description,
		ExpiresAt:   shared.Token.ExpiresAt,
		Images:      images,
	}
}
