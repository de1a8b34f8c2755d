package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSweeper struct {
	mock.Mock
}

func (m *mockSweeper) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func TestNewSweeper_RejectsBadTime(t *testing.T) {
	_, err := NewSweeper(&mockSweeper{}, "3am", time.UTC)
	assert.Error(t, err)
}

func TestSweeper_NextRun(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	s, err := NewSweeper(&mockSweeper{}, "03:00", berlin)
	require.NoError(t, err)

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"before today's run", time.Date(2026, 3, 10, 1, 0, 0, 0, berlin), time.Date(2026, 3, 10, 3, 0, 0, 0, berlin)},
		{"exactly at run time", time.Date(2026, 3, 10, 3, 0, 0, 0, berlin), time.Date(2026, 3, 11, 3, 0, 0, 0, berlin)},
		{"after today's run", time.Date(2026, 3, 10, 18, 0, 0, 0, berlin), time.Date(2026, 3, 11, 3, 0, 0, 0, berlin)},
		{"from another zone", time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC), time.Date(2026, 3, 11, 3, 0, 0, 0, berlin)},
		{"month rollover", time.Date(2026, 1, 31, 12, 0, 0, 0, berlin), time.Date(2026, 2, 1, 3, 0, 0, 0, berlin)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(s.NextRun(tt.from)), "got %s", s.NextRun(tt.from))
		})
	}
}

func TestSweeper_RunOnce(t *testing.T) {
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	m := &mockSweeper{}
	m.On("DeleteExpiredTokens", mock.Anything, now).Return(int64(3), nil).Once()

	s, err := NewSweeper(m, "03:00", time.UTC)
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	assert.Equal(t, int64(3), s.RunOnce(context.Background()))
	m.AssertExpectations(t)
}

func TestSweeper_RunOnceSwallowsFailures(t *testing.T) {
	m := &mockSweeper{}
	m.On("DeleteExpiredTokens", mock.Anything, mock.Anything).Return(int64(0), errors.New("connection refused")).Once()

	s, err := NewSweeper(m, "03:00", time.UTC)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		assert.Zero(t, s.RunOnce(context.Background()))
	})
	m.AssertExpectations(t)
}

type panickingSweeper struct{}

func (panickingSweeper) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	panic("unexpected")
}

func TestSweeper_RunOnceRecoversPanics(t *testing.T) {
	s, err := NewSweeper(panickingSweeper{}, "03:00", time.UTC)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		assert.Zero(t, s.RunOnce(context.Background()))
	})
}

func TestSweeper_RemovesOnlyExpiredTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client := env.newClient(t, "acme")
	album, err := env.albums.CreateAlbum(ctx, client.ID, AlbumInput{Name: "a"})
	require.NoError(t, err)

	now := time.Now().UTC()
	soon := now.Add(time.Minute)
	later := now.Add(48 * time.Hour)
	expiring, err := env.albums.CreateShareToken(ctx, client.ID, album.ID, &soon)
	require.NoError(t, err)
	_, err = env.albums.CreateShareToken(ctx, client.ID, album.ID, &later)
	require.NoError(t, err)
	_, err = env.albums.CreateShareToken(ctx, client.ID, album.ID, nil)
	require.NoError(t, err)

	s, err := NewSweeper(env.store.Albums(), "03:00", time.UTC)
	require.NoError(t, err)
	s.now = func() time.Time { return now.Add(time.Hour) }

	assert.Equal(t, int64(1), s.RunOnce(ctx))

	tokens, err := env.albums.ListShareTokens(ctx, client.ID, album.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
	for _, tok := range tokens {
		assert.NotEqual(t, expiring.AlbumToken.ID, tok.ID)
	}
}

func TestSweeper_StartStopsOnCancel(t *testing.T) {
	s, err := NewSweeper(&mockSweeper{}, "03:00", time.UTC)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
