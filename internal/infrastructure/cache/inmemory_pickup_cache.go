package cache

import (
	"context"
	"sync"
	"time"

	"github.com/storefront/backend/internal/application/checkout"
	domain "github.com/storefront/backend/internal/domain/checkout"
)

// entry represents a cached pickup listing with expiration
type entry struct {
	locations []domain.PickupLocation
	expiresAt time.Time
}

// InMemoryPickupCache implements checkout.PickupLocationCache using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryPickupCache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryPickupCache creates a new in-memory pickup cache.
// It starts a background goroutine to clean up expired entries.
func NewInMemoryPickupCache(ttl time.Duration) *InMemoryPickupCache {
	c := &InMemoryPickupCache{
		entries:  make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Get returns a copy of the cached listing for state
func (c *InMemoryPickupCache) Get(_ context.Context, state string) ([]domain.PickupLocation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[state]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return cloneLocations(e.locations), true
}

// Set stores a copy of the listing for state
func (c *InMemoryPickupCache) Set(_ context.Context, state string, locations []domain.PickupLocation) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[state] = entry{
		locations: cloneLocations(locations),
		expiresAt: c.now().Add(c.ttl),
	}
}

// Close stops the cleanup goroutine and releases resources.
// Safe to call multiple times.
func (c *InMemoryPickupCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemoryPickupCache) cleanupLoop() {
	defer c.wg.Done()

	interval := c.ttl
	if interval <= 0 || interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries
func (c *InMemoryPickupCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for state, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, state)
		}
	}
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemoryPickupCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cloneLocations(in []domain.PickupLocation) []domain.PickupLocation {
	out := make([]domain.PickupLocation, len(in))
	copy(out, in)
	return out
}

var _ checkout.PickupLocationCache = (*InMemoryPickupCache)(nil)
