package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"filehost-backend/internal/models"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{}, ParseTags(""))
	assert.Equal(t, []string{}, ParseTags(" , ,"))
	assert.Equal(t, []string{"nature", "landscape"}, ParseTags("Nature, landscape ,nature,"))
}

func TestFileService_UploadImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")

	file, err := env.files.Upload(ctx, client.ID, UploadInput{
		Kind:            models.KindImage,
		Filename:        "../../etc/sunset.png",
		Content:         bytes.NewReader(pngBytes(t, 4, 3)),
		OwnerExternalID: "alice",
		Description:     strPtr("sunset over hills"),
		Tags:            []string{"Nature", "landscape"},
	})
	require.NoError(t, err)

	assert.Equal(t, "image/png", file.MimeType)
	assert.Equal(t, "sunset.png", file.Filename)
	assert.Equal(t, []string{"nature", "landscape"}, file.Tags)
	require.NotNil(t, file.Width)
	assert.Equal(t, 4, *file.Width)
	assert.Equal(t, 3, *file.Height)
	assert.Zero(t, file.Views)
	assert.Zero(t, file.Downloads)

	exists, err := afero.Exists(env.fs, file.StorageKey)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, strings.HasPrefix(file.StorageKey, client.ID+"/images/"))

	owner, err := env.users.GetUserByExternalID(ctx, client.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, owner.ID, *file.UserID)
}

func TestFileService_UploadRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")

	tests := []struct {
		name string
		in   UploadInput
	}{
		{"unknown kind", UploadInput{Kind: "video", Content: strings.NewReader("x")}},
		{"no content", UploadInput{Kind: models.KindFile}},
		{"empty content", UploadInput{Kind: models.KindFile, Content: strings.NewReader("")}},
		{"oversize", UploadInput{Kind: models.KindFile, Content: bytes.NewReader(make([]byte, (1<<20)+1))}},
		{"text as image", UploadInput{Kind: models.KindImage, Content: strings.NewReader("hello world")}},
		{"long owner id", UploadInput{Kind: models.KindFile, Content: strings.NewReader("hi"), OwnerExternalID: strings.Repeat("a", 256)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.files.Upload(ctx, client.ID, tt.in)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}

	files, total, err := env.files.List(ctx, client.ID, FileQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, files)
}

func TestFileService_UploadPlainFile(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t, "acme")

	file, err := env.files.Upload(context.Background(), client.ID, UploadInput{
		Kind:     models.KindFile,
		Filename: "notes.txt",
		Content:  strings.NewReader("hello world"),
	})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", file.MimeType)
	assert.Nil(t, file.Width)
	assert.Nil(t, file.UserID)
}

func TestCleanFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "notes.txt", "notes.txt"},
		{"directory stripped", `C:\Users\me\notes.txt`, "notes.txt"},
		{"empty", "  ", "upload.txt"},
		{"invalid utf8 dropped", "caf\xe9.txt", "caf.txt"},
		{"nul dropped", "a\x00b.txt", "ab.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanFilename(tt.in, ".txt"))
		})
	}
}

func TestCleanFilename_LongMultibyte(t *testing.T) {
	name := strings.Repeat("ж", 130) + ".txt"
	require.Greater(t, len(name), maxFilenameLength)

	got := cleanFilename(name, ".txt")
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxFilenameLength)
	assert.True(t, strings.HasSuffix(got, "ж.txt"))
}

func TestFileService_UploadLongMultibyteFilename(t *testing.T) {
	env := newTestEnv(t)
	client := env.newClient(t, "acme")

	file, err := env.files.Upload(context.Background(), client.ID, UploadInput{
		Kind:     models.KindFile,
		Filename: strings.Repeat("я", 130) + ".txt",
		Content:  strings.NewReader("hello world"),
	})
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(file.Filename))
	assert.LessOrEqual(t, len(file.Filename), maxFilenameLength)
}

type failingCreate struct {
	FileStore
}

func (failingCreate) Create(ctx context.Context, file *models.File) error {
	return errors.New("database is gone")
}

func TestFileService_UploadRemovesContentWhenInsertFails(t *testing.T) {
	env := newTestEnvWithFiles(t, func(fs FileStore) FileStore { return failingCreate{fs} })
	client := env.newClient(t, "acme")

	_, err := env.files.Upload(context.Background(), client.ID, UploadInput{
		Kind:    models.KindImage,
		Content: bytes.NewReader(pngBytes(t, 2, 2)),
	})
	require.Error(t, err)

	entries, err := afero.ReadDir(env.fs, client.ID+"/images")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileService_ListFiltersAndCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")

	sunset := env.uploadImage(t, client.ID, UploadInput{
		Description: strPtr("sunset over hills"),
		Tags:        ParseTags("nature,landscape"),
	})
	env.uploadImage(t, client.ID, UploadInput{
		Description: strPtr("city at night"),
		Tags:        ParseTags("urban"),
	})

	files, total, err := env.files.List(ctx, client.ID, FileQuery{
		Tags:        []string{"nature"},
		Description: "SUNSET",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, files, 1)
	assert.Equal(t, sunset.ID, files[0].ID)
	assert.Zero(t, files[0].Views)
	assert.Zero(t, files[0].Downloads)

	got, err := env.files.Get(ctx, client.ID, sunset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Views)

	_, _, err = env.files.List(ctx, client.ID, FileQuery{Kind: "video"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	files, total, err = env.files.List(ctx, client.ID, FileQuery{OwnerExternalID: "nobody"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, files)
}

func TestFileService_TenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acme := env.newClient(t, "acme")
	globex := env.newClient(t, "globex")

	file := env.uploadImage(t, acme.ID, UploadInput{})

	_, err := env.files.Get(ctx, globex.ID, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = env.files.Open(ctx, globex.ID, file.ID, CountDownload)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.files.Delete(ctx, globex.ID, file.ID), ErrNotFound)

	_, total, err := env.files.List(ctx, globex.ID, FileQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = env.files.Get(ctx, acme.ID, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileService_OpenCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")
	content := pngBytes(t, 5, 5)
	file := env.uploadImage(t, client.ID, UploadInput{Content: bytes.NewReader(content)})

	got, rc, err := env.files.Open(ctx, client.ID, file.ID, CountDownload)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, content, data)
	assert.Equal(t, int64(1), got.Downloads)
	assert.Zero(t, got.Views)

	got, rc, err = env.files.Open(ctx, client.ID, file.ID, CountView)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, int64(1), got.Views)

	got, rc, err = env.files.Open(ctx, client.ID, file.ID, CountNone)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, int64(1), got.Views)
	assert.Equal(t, int64(1), got.Downloads)
}

func TestFileService_UpdateMetadata(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")
	file := env.uploadImage(t, client.ID, UploadInput{Description: strPtr("old"), Tags: []string{"a"}})

	tags := []string{"B", "c", "b"}
	private := true
	got, err := env.files.UpdateMetadata(ctx, client.ID, file.ID, FilePatch{
		Description: strPtr(" "),
		Tags:        &tags,
		Private:     &private,
	})
	require.NoError(t, err)
	assert.Nil(t, got.Description)
	assert.Equal(t, []string{"b", "c"}, got.Tags)
	assert.True(t, got.Private)
	assert.False(t, got.Optimized)

	stored, err := env.files.Lookup(ctx, client.ID, file.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Tags, stored.Tags)
}

func TestFileService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")
	file := env.uploadImage(t, client.ID, UploadInput{})

	require.NoError(t, env.files.Delete(ctx, client.ID, file.ID))

	_, err := env.files.Lookup(ctx, client.ID, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	exists, err := afero.Exists(env.fs, file.StorageKey)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileService_DeleteSurvivesMissingContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")
	file := env.uploadImage(t, client.ID, UploadInput{})

	require.NoError(t, env.fs.Remove(file.StorageKey))
	require.NoError(t, env.files.Delete(ctx, client.ID, file.ID))

	_, err := env.files.Lookup(ctx, client.ID, file.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileService_ListByTagAndFilename(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")

	match := env.uploadImage(t, client.ID, UploadInput{Filename: "Sunset_beach.png", Tags: []string{"nature"}})
	env.uploadImage(t, client.ID, UploadInput{Filename: "sunset_city.png", Tags: []string{"urban"}})
	env.uploadImage(t, client.ID, UploadInput{Filename: "forest.png", Tags: []string{"nature"}})

	files, total, err := env.files.List(ctx, client.ID, FileQuery{Tags: []string{"nature"}, Filename: "sunset"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, files, 1)
	assert.Equal(t, match.ID, files[0].ID)
}
