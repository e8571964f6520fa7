// Package scheduler runs background jobs of the dashboard backend.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopdesk/backend/internal/domain/marketplace"
	"go.uber.org/zap"
)

// ExpiringCredentials lists credential sets whose access token is about to expire
type ExpiringCredentials interface {
	ListExpiring(ctx context.Context, before time.Time, limit int) ([]*marketplace.Credentials, error)
}

// CredentialRefresher renews the access token of one credential set and stores it
type CredentialRefresher interface {
	RefreshCredentials(ctx context.Context, creds *marketplace.Credentials) error
}

// TokenRefreshConfig holds token refresh scheduler configuration
type TokenRefreshConfig struct {
	// Interval between two sweeps
	Interval time.Duration
	// Window selects access tokens expiring within it
	Window time.Duration
	// BatchSize caps the credentials handled per sweep
	BatchSize int
	// JobTimeout bounds a single sweep
	JobTimeout time.Duration
}

// DefaultTokenRefreshConfig returns default token refresh configuration
func DefaultTokenRefreshConfig() TokenRefreshConfig {
	return TokenRefreshConfig{
		Interval:   15 * time.Minute,
		Window:     time.Hour,
		BatchSize:  100,
		JobTimeout: 5 * time.Minute,
	}
}

func (c TokenRefreshConfig) validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive", ErrInvalidConfig)
	}
	return nil
}

// RunStats summarizes one sweep
type RunStats struct {
	Checked   int
	Refreshed int
	Failed    int
}

// TokenRefreshScheduler renews expiring access tokens in the background so
// dashboard requests rarely pay for a refresh round trip.
type TokenRefreshScheduler struct {
	config    TokenRefreshConfig
	source    ExpiringCredentials
	refresher CredentialRefresher
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweepMu   sync.Mutex
}

// TokenRefreshOption is a functional option for TokenRefreshScheduler
type TokenRefreshOption func(*TokenRefreshScheduler)

// WithSchedulerClock replaces the time source
func WithSchedulerClock(now func() time.Time) TokenRefreshOption {
	return func(s *TokenRefreshScheduler) {
		s.now = now
	}
}

// NewTokenRefreshScheduler creates a new scheduler instance
func NewTokenRefreshScheduler(
	config TokenRefreshConfig,
	source ExpiringCredentials,
	refresher CredentialRefresher,
	logger *zap.Logger,
	opts ...TokenRefreshOption,
) (*TokenRefreshScheduler, error) {
	defaults := DefaultTokenRefreshConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &TokenRefreshScheduler{
		config:    config,
		source:    source,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start runs a first sweep right away and then one per interval
func (s *TokenRefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Token refresh scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("window", s.config.Window),
		zap.Int("batch_size", s.config.BatchSize),
	)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running sweep
func (s *TokenRefreshScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Token refresh scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Token refresh scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the background loop is active
func (s *TokenRefreshScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *TokenRefreshScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *TokenRefreshScheduler) sweep(ctx context.Context) {
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	stats, err := s.RunOnce(jobCtx)
	if err != nil && !errors.Is(err, ErrRefreshFailed) {
		s.logger.Error("Token refresh sweep failed", zap.Error(err))
		return
	}
	if stats.Checked > 0 {
		s.logger.Info("Token refresh sweep completed",
			zap.Int("checked", stats.Checked),
			zap.Int("refreshed", stats.Refreshed),
			zap.Int("failed", stats.Failed),
		)
	}
}

// RunOnce refreshes every credential set whose access token expires within
// the window. A failed refresh does not stop the sweep; ErrRefreshFailed is
// returned afterwards.
func (s *TokenRefreshScheduler) RunOnce(ctx context.Context) (RunStats, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	var stats RunStats
	expiring, err := s.source.ListExpiring(ctx, s.now().Add(s.config.Window), s.config.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("list expiring credentials: %w", err)
	}

	for _, creds := range expiring {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Checked++

		if err := s.refresher.RefreshCredentials(ctx, creds); err != nil {
			stats.Failed++
			s.logger.Warn("Background token refresh failed",
				zap.Object("credentials", creds),
				zap.String("kind", marketplace.KindOf(err).String()),
				zap.Error(err),
			)
			continue
		}
		stats.Refreshed++
	}

	if stats.Failed > 0 {
		return stats, ErrRefreshFailed
	}
	return stats, nil
}
