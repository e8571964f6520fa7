package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/backend/internal/domain/marketplace"
)

type fakeExpiring struct {
	mu      sync.Mutex
	creds   []*marketplace.Credentials
	err     error
	before  time.Time
	limit   int
	queried int
}

func (f *fakeExpiring) ListExpiring(_ context.Context, before time.Time, limit int) ([]*marketplace.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.before = before
	f.limit = limit
	f.queried++
	return f.creds, f.err
}

func (f *fakeExpiring) queries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queried
}

type fakeRefresher struct {
	mu        sync.Mutex
	failFor   map[string]error
	refreshed []string
}

func (f *fakeRefresher) RefreshCredentials(_ context.Context, creds *marketplace.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[creds.UserID]; err != nil {
		return err
	}
	f.refreshed = append(f.refreshed, creds.UserID)
	return nil
}

func testConfig() TokenRefreshConfig {
	return TokenRefreshConfig{Interval: time.Hour, Window: 30 * time.Minute, BatchSize: 10}
}

func TestNewTokenRefreshScheduler_Config(t *testing.T) {
	tests := []struct {
		name    string
		config  TokenRefreshConfig
		wantErr bool
	}{
		{"valid", testConfig(), false},
		{"zero interval", TokenRefreshConfig{Window: time.Hour}, true},
		{"zero window", TokenRefreshConfig{Interval: time.Hour}, true},
		{"defaults", DefaultTokenRefreshConfig(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewTokenRefreshScheduler(tt.config, &fakeExpiring{}, &fakeRefresher{}, nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Positive(t, s.config.BatchSize)
			assert.Positive(t, s.config.JobTimeout)
		})
	}
}

func TestTokenRefreshScheduler_RunOnce(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	source := &fakeExpiring{creds: []*marketplace.Credentials{
		{UserID: "a"}, {UserID: "b"}, {UserID: "c"},
	}}
	refresher := &fakeRefresher{failFor: map[string]error{
		"b": marketplace.NewBusinessError(105002, "refresh token expired", "req-1"),
	}}

	s, err := NewTokenRefreshScheduler(testConfig(), source, refresher, nil,
		WithSchedulerClock(func() time.Time { return now }))
	require.NoError(t, err)

	stats, err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.Equal(t, RunStats{Checked: 3, Refreshed: 2, Failed: 1}, stats)
	assert.Equal(t, []string{"a", "c"}, refresher.refreshed)
	assert.Equal(t, now.Add(30*time.Minute), source.before)
	assert.Equal(t, 10, source.limit)
}

func TestTokenRefreshScheduler_RunOnceNothingToDo(t *testing.T) {
	s, err := NewTokenRefreshScheduler(testConfig(), &fakeExpiring{}, &fakeRefresher{}, nil)
	require.NoError(t, err)

	stats, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Checked)
}

func TestTokenRefreshScheduler_RunOnceListError(t *testing.T) {
	source := &fakeExpiring{err: errors.New("connection refused")}
	s, err := NewTokenRefreshScheduler(testConfig(), source, &fakeRefresher{}, nil)
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRefreshFailed)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestTokenRefreshScheduler_RunOnceStopsOnCancel(t *testing.T) {
	source := &fakeExpiring{creds: []*marketplace.Credentials{{UserID: "a"}, {UserID: "b"}}}
	refresher := &fakeRefresher{}
	s, err := NewTokenRefreshScheduler(testConfig(), source, refresher, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := s.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Checked)
	assert.Empty(t, refresher.refreshed)
}

func TestTokenRefreshScheduler_StartStop(t *testing.T) {
	source := &fakeExpiring{creds: []*marketplace.Credentials{{UserID: "a"}}}
	refresher := &fakeRefresher{}
	cfg := testConfig()
	cfg.Interval = 20 * time.Millisecond

	s, err := NewTokenRefreshScheduler(cfg, source, refresher, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	// a second start is a no-op
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool { return source.queries() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx))

	after := source.queries()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, source.queries())
}
