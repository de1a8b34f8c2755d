package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	a, err := GenerateAPIKey()
	require.NoError(t, err)
	b, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "fh_"))
	assert.GreaterOrEqual(t, len(a), 60)
	assert.True(t, ValidAPIKeyFormat(a))
}

func TestValidAPIKeyFormat(t *testing.T) {
	assert.False(t, ValidAPIKeyFormat(""))
	assert.False(t, ValidAPIKeyFormat("fh_short_abc"))
	assert.False(t, ValidAPIKeyFormat("xx_"+strings.Repeat("a", 48)+"_lzx1"))
	assert.False(t, ValidAPIKeyFormat("fh_"+strings.Repeat("A", 48)+"_lzx1abcdef"))
	assert.True(t, ValidAPIKeyFormat("fh_"+strings.Repeat("0f", 24)+"_lzx1abcd"))
}

func TestClientService_CreateClientSeedsUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	client, err := env.clients.CreateClient(ctx, "  Acme  ", strPtr(" acme.example "), true)
	require.NoError(t, err)
	assert.Equal(t, "Acme", client.Name)
	require.NotNil(t, client.Domain)
	assert.Equal(t, "acme.example", *client.Domain)

	users, err := env.users.ListUsers(ctx, client.ID)
	require.NoError(t, err)
	require.Len(t, users, len(SeedUsers))
	names := []string{users[0].ExternalID, users[1].ExternalID}
	assert.ElementsMatch(t, SeedUsers, names)

	_, err = env.clients.CreateClient(ctx, " ", nil, true)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestClientService_ValidateClient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")

	got, err := env.clients.ValidateClient(ctx, client.APIKey)
	require.NoError(t, err)
	assert.Equal(t, client.ID, got.ID)

	unknown, err := GenerateAPIKey()
	require.NoError(t, err)
	_, err = env.clients.ValidateClient(ctx, unknown)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	_, err = env.clients.ValidateClient(ctx, "not-a-key")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	_, err = env.clients.SetClientActive(ctx, client.ID, false)
	require.NoError(t, err)
	_, err = env.clients.ValidateClient(ctx, client.APIKey)
	assert.ErrorIs(t, err, ErrInvalidAPIKey, "inactive clients look exactly like unknown ones")
}

func TestClientService_GetClientByID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")

	got, err := env.clients.GetClientByID(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, client.Name, got.Name)

	got, err = env.clients.GetClientByID(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = env.clients.SetClientActive(ctx, "not-a-uuid", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientService_SeedsOnlyEmptyClients(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")

	require.NoError(t, env.clients.seedUsers(ctx, client.ID))

	count, err := env.store.Users().CountByClient(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "a client that already has users gets no seed users")
}
