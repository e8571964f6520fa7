package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopdesk/backend/internal/domain/marketplace"
)

const (
	// DefaultShipmentKeyPrefix namespaces shipment guard keys
	DefaultShipmentKeyPrefix = "shopdesk:shipment:"
	// DefaultShipmentHold is how long a shipped package stays locked
	DefaultShipmentHold = 24 * time.Hour
)

// RedisShipmentGuard implements marketplace.ShipmentGuard using Redis.
// It is suitable for deployments where several instances ship for the same shop.
type RedisShipmentGuard struct {
	client    redis.UniversalClient
	keyPrefix string
	hold      time.Duration
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisShipmentGuard creates a guard on an existing client.
// Empty prefix and zero hold use the defaults.
func NewRedisShipmentGuard(client redis.UniversalClient, keyPrefix string, hold time.Duration) *RedisShipmentGuard {
	if keyPrefix == "" {
		keyPrefix = DefaultShipmentKeyPrefix
	}
	if hold <= 0 {
		hold = DefaultShipmentHold
	}
	return &RedisShipmentGuard{client: client, keyPrefix: keyPrefix, hold: hold}
}

// Acquire locks key with SET NX. It returns false if the key is already held.
func (g *RedisShipmentGuard) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.keyPrefix+key, time.Now().UTC().Format(time.RFC3339), g.hold).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire shipment guard: %w", err)
	}
	return ok, nil
}

// Release deletes key so the package may be shipped again
func (g *RedisShipmentGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release shipment guard: %w", err)
	}
	return nil
}

// Ping checks that Redis still answers
func (g *RedisShipmentGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (g *RedisShipmentGuard) Close() error {
	return g.client.Close()
}

// Ensure RedisShipmentGuard implements ShipmentGuard
var _ marketplace.ShipmentGuard = (*RedisShipmentGuard)(nil)
