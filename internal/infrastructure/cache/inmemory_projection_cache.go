package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	appcustomer "github.com/crm/backend/internal/application/customer"
)

// Constants for in-memory cache configuration
const (
	defaultCleanupInterval = 30 * time.Second
)

// InMemoryProjectionCache implements ProjectionCache using in-memory storage.
// This is designed to be used standalone in single-instance deployments or
// as L1 cache in front of Redis.
type InMemoryProjectionCache struct {
	entries sync.Map // map[string]*projectionEntry
	logger  *zap.Logger
	stopCh  chan struct{} // Channel to stop the cleanup goroutine
	stopped int32         // Atomic flag to track if cache is stopped

	// Stats for monitoring
	hits   int64
	misses int64
}

// projectionEntry wraps a cached projection with expiration time
type projectionEntry struct {
	value     []byte
	expiresAt time.Time
}

// isExpired checks if the cache entry has expired
func (e *projectionEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryProjectionCacheOption is a functional option for configuring the cache
type InMemoryProjectionCacheOption func(*InMemoryProjectionCache)

// WithProjectionCacheLogger sets the logger for the cache
func WithProjectionCacheLogger(logger *zap.Logger) InMemoryProjectionCacheOption {
	return func(c *InMemoryProjectionCache) {
		c.logger = logger
	}
}

// NewInMemoryProjectionCache creates a new in-memory projection cache
func NewInMemoryProjectionCache(opts ...InMemoryProjectionCacheOption) *InMemoryProjectionCache {
	cache := &InMemoryProjectionCache{
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	// Start background cleanup goroutine
	go cache.cleanupExpired()

	return cache
}

// Get retrieves a projection from cache. A miss returns (nil, nil).
func (c *InMemoryProjectionCache) Get(ctx context.Context, key string) ([]byte, error) {
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*projectionEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			c.logger.Debug("cache hit for projection", zap.String("key", key))
			return entry.value, nil
		}
		// Expired, remove from cache
		c.entries.Delete(key)
	}

	atomic.AddInt64(&c.misses, 1)
	c.logger.Debug("cache miss for projection", zap.String("key", key))
	return nil, nil
}

// Set stores a projection in cache with the given TTL
func (c *InMemoryProjectionCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if len(value) == 0 {
		return
	}
	if ttl <= 0 {
		ttl = appcustomer.DefaultProjectionTTL
	}

	c.entries.Store(key, &projectionEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
}

// Delete removes a projection from cache
func (c *InMemoryProjectionCache) Delete(ctx context.Context, key string) {
	c.entries.Delete(key)
}

// InvalidateAll removes all cached projections
func (c *InMemoryProjectionCache) InvalidateAll() {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
	c.logger.Info("invalidated all cached projections")
}

// Close stops the cleanup goroutine
func (c *InMemoryProjectionCache) Close() error {
	// Only close once
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryProjectionCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Count returns the number of entries in the cache
func (c *InMemoryProjectionCache) Count() (count int) {
	c.entries.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// cleanupExpired periodically removes expired entries from the cache
func (c *InMemoryProjectionCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("panic in cache cleanup", zap.Any("panic", r))
					}
				}()
				c.doCleanup()
			}()
		}
	}
}

// doCleanup removes expired entries
func (c *InMemoryProjectionCache) doCleanup() {
	var removed int

	c.entries.Range(func(key, value any) bool {
		if value.(*projectionEntry).isExpired() {
			c.entries.Delete(key)
			removed++
		}
		return true
	})

	if removed > 0 {
		c.logger.Debug("cleaned up expired cache entries", zap.Int("removed", removed))
	}
}

// Ensure InMemoryProjectionCache implements ProjectionCache
var _ appcustomer.ProjectionCache = (*InMemoryProjectionCache)(nil)
