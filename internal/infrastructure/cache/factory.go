package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopdesk/backend/internal/domain/marketplace"
	"github.com/shopdesk/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ShipmentGuardFactory creates shipment guards based on configuration
type ShipmentGuardFactory struct {
	redisConfig           config.RedisConfig
	hold                  time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ShipmentGuardFactoryOption is a functional option for configuring the factory
type ShipmentGuardFactoryOption func(*ShipmentGuardFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ShipmentGuardFactoryOption {
	return func(f *ShipmentGuardFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to the
// in-memory guard. Default is true.
func WithInMemoryFallback(allow bool) ShipmentGuardFactoryOption {
	return func(f *ShipmentGuardFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithHold sets how long a shipped package stays locked
func WithHold(d time.Duration) ShipmentGuardFactoryOption {
	return func(f *ShipmentGuardFactory) {
		f.hold = d
	}
}

// NewShipmentGuardFactory creates a new factory
func NewShipmentGuardFactory(cfg config.RedisConfig, opts ...ShipmentGuardFactoryOption) *ShipmentGuardFactory {
	f := &ShipmentGuardFactory{
		redisConfig:           cfg,
		hold:                  DefaultShipmentHold,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ShipmentGuard is a guard that owns resources released by Close
type ShipmentGuard interface {
	marketplace.ShipmentGuard
	io.Closer
}

// Create returns a Redis guard when Redis is enabled and reachable, otherwise an
// in-memory guard if fallback is allowed.
func (f *ShipmentGuardFactory) Create(ctx context.Context) (ShipmentGuard, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory shipment guard")
		return NewInMemoryShipmentGuard(f.hold), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig.Addr(), f.redisConfig.Password, f.redisConfig.DB)
	if err == nil {
		f.logger.Info("Using Redis shipment guard", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisShipmentGuard(client, "", f.hold), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for shipment guard but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory shipment guard. "+
		"Concurrent instances may ship the same package twice.",
		zap.Error(err),
	)
	return NewInMemoryShipmentGuard(f.hold), nil
}
