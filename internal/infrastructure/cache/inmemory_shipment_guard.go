package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopdesk/backend/internal/domain/marketplace"
)

// InMemoryShipmentGuard implements marketplace.ShipmentGuard with a map.
// It only protects batches running in the same process.
type InMemoryShipmentGuard struct {
	mu        sync.Mutex
	held      map[string]time.Time // key -> expiry
	hold      time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryShipmentGuard creates a guard and starts its cleanup goroutine.
// A zero hold uses DefaultShipmentHold.
func NewInMemoryShipmentGuard(hold time.Duration) *InMemoryShipmentGuard {
	if hold <= 0 {
		hold = DefaultShipmentHold
	}
	g := &InMemoryShipmentGuard{
		held:     make(map[string]time.Time),
		hold:     hold,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	g.wg.Add(1)
	go g.cleanupLoop()

	return g
}

// Acquire returns false if key is held and not yet expired
func (g *InMemoryShipmentGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if exp, ok := g.held[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.held[key] = now.Add(g.hold)
	return true, nil
}

// Release frees key
func (g *InMemoryShipmentGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
	return nil
}

// Size returns the number of held keys, expired ones included until cleanup runs
func (g *InMemoryShipmentGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.held)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (g *InMemoryShipmentGuard) Close() error {
	g.closeOnce.Do(func() {
		close(g.stopChan)
		g.wg.Wait()
	})
	return nil
}

func (g *InMemoryShipmentGuard) cleanupLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			g.cleanup()
		}
	}
}

func (g *InMemoryShipmentGuard) cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, exp := range g.held {
		if !now.Before(exp) {
			delete(g.held, key)
		}
	}
}

// Ensure InMemoryShipmentGuard implements ShipmentGuard
var _ marketplace.ShipmentGuard = (*InMemoryShipmentGuard)(nil)
