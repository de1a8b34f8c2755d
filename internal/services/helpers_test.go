package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"filehost-backend/internal/models"
	"filehost-backend/internal/repository/memory"
	"filehost-backend/internal/storage"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var (
	_ ClientStore = (*memory.ClientRepository)(nil)
	_ UserStore   = (*memory.UserRepository)(nil)
	_ FileStore   = (*memory.FileRepository)(nil)
	_ AlbumStore  = (*memory.AlbumRepository)(nil)
)

const testShareSecret = "test-share-secret"

type testEnv struct {
	store   *memory.Store
	fs      afero.Fs
	events  *EventHub
	clients *ClientService
	users   *UserService
	files   *FileService
	albums  *AlbumService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithFiles(t, nil)
}

// newTestEnvWithFiles lets a test wrap the file store, e.g. for failure injection
func newTestEnvWithFiles(t *testing.T, wrap func(FileStore) FileStore) *testEnv {
	t.Helper()

	store := memory.NewStore()
	fs := afero.NewMemMapFs()
	events := NewEventHub()
	var fileStore FileStore = store.Files()
	if wrap != nil {
		fileStore = wrap(fileStore)
	}

	files := NewFileService(fileStore, store.Users(), storage.NewLocalStorage(fs), events, FileServiceConfig{
		MaxBytes:          1 << 20,
		AllowedImageTypes: []string{"image/png", "image/jpeg", "image/gif"},
	})

	return &testEnv{
		store:   store,
		fs:      fs,
		events:  events,
		clients: NewClientService(store.Clients(), store.Users()),
		users:   NewUserService(store.Users(), files),
		files:   files,
		albums:  NewAlbumService(store.Albums(), store.Users(), files, events, testShareSecret),
	}
}

func (e *testEnv) newClient(t *testing.T, name string) *models.Client {
	t.Helper()
	client, err := e.clients.CreateClient(context.Background(), name, nil, true)
	require.NoError(t, err)
	return client
}

func (e *testEnv) uploadImage(t *testing.T, clientID string, in UploadInput) *models.File {
	t.Helper()
	in.Kind = models.KindImage
	if in.Content == nil {
		in.Content = bytes.NewReader(pngBytes(t, 4, 3))
	}
	if in.Filename == "" {
		in.Filename = "photo.png"
	}
	file, err := e.files.Upload(context.Background(), clientID, in)
	require.NoError(t, err)
	return file
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func strPtr(s string) *string { return &s }
