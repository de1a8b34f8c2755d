package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"filehost-backend/internal/models"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_GetOrCreateUserOverwrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")

	first, err := env.users.GetOrCreateUser(ctx, client.ID, "alice", strPtr("alice@example.com"), strPtr("alice"))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", *first.Email)

	second, err := env.users.GetOrCreateUser(ctx, client.ID, "alice", nil, strPtr("al"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Nil(t, second.Email, "omitted email clears the stored one")
	assert.Equal(t, "al", *second.Username)

	_, err = env.users.GetOrCreateUser(ctx, client.ID, "", nil, nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUserService_EnsureUserKeepsExisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")

	created, err := env.users.GetOrCreateUser(ctx, client.ID, "bob", strPtr("bob@example.com"), nil)
	require.NoError(t, err)

	ensured, err := env.users.EnsureUser(ctx, client.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, created.ID, ensured.ID)
	require.NotNil(t, ensured.Email)
	assert.Equal(t, "bob@example.com", *ensured.Email)
}

func TestUserService_GetUserByExternalID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acme := env.newClient(t, "acme")
	globex := env.newClient(t, "globex")

	_, err := env.users.EnsureUser(ctx, acme.ID, "carol")
	require.NoError(t, err)

	user, err := env.users.GetUserByExternalID(ctx, globex.ID, "carol")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUserService_SetAvatarReplacesPrevious(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")

	user, first, err := env.users.SetAvatar(ctx, client.ID, "dave", UploadInput{
		Filename: "me.png",
		Content:  bytes.NewReader(pngBytes(t, 8, 8)),
	})
	require.NoError(t, err)
	assert.Equal(t, models.KindAvatar, first.Kind)
	assert.Equal(t, first.ID, *user.AvatarFileID)

	second := pngBytes(t, 16, 16)
	user, replaced, err := env.users.SetAvatar(ctx, client.ID, "dave", UploadInput{
		Filename: "me2.png",
		Content:  bytes.NewReader(second),
	})
	require.NoError(t, err)
	assert.Equal(t, replaced.ID, *user.AvatarFileID)

	_, err = env.files.Lookup(ctx, client.ID, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	exists, err := afero.Exists(env.fs, first.StorageKey)
	require.NoError(t, err)
	assert.False(t, exists)

	file, rc, err := env.users.OpenAvatar(ctx, client.ID, "dave")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, second, data)
	assert.Zero(t, file.Views, "avatar reads are not counted")

	_, total, err := env.files.List(ctx, client.ID, FileQuery{})
	require.NoError(t, err)
	assert.Zero(t, total, "avatars stay out of the default listing")
}

func TestUserService_SetAvatarRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")

	_, _, err := env.users.SetAvatar(ctx, client.ID, "erin", UploadInput{
		Filename: "me.txt",
		Content:  strings.NewReader("not an image"),
	})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, _, err = env.users.OpenAvatar(ctx, client.ID, "erin")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = env.users.OpenAvatar(ctx, client.ID, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
