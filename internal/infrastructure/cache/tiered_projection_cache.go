package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	appcustomer "github.com/crm/backend/internal/application/customer"
)

// defaultL1TTL keeps local entries shorter-lived than the shared tier so a
// stale L1 entry self-heals even if an invalidation message is lost.
const defaultL1TTL = 30 * time.Second

// TieredProjectionCache implements a two-tier caching strategy.
// L1: Local in-memory cache (fast, but local to instance)
// L2: Redis cache (slower, but shared across instances)
// Writes go to both tiers; evictions are broadcast over Pub/Sub so other
// instances drop their L1 copy.
type TieredProjectionCache struct {
	l1Cache     *InMemoryProjectionCache
	l2Cache     *RedisProjectionCache
	invalidator *RedisProjectionInvalidator
	l1TTL       time.Duration
	logger      *zap.Logger

	// Stats for monitoring
	l1Hits   int64
	l1Misses int64
	l2Hits   int64
	l2Misses int64
}

// TieredProjectionCacheOption is a functional option for configuring the cache
type TieredProjectionCacheOption func(*TieredProjectionCache)

// WithTieredL1TTL sets the TTL for local entries
func WithTieredL1TTL(ttl time.Duration) TieredProjectionCacheOption {
	return func(c *TieredProjectionCache) {
		c.l1TTL = ttl
	}
}

// WithTieredLogger sets the logger for the cache
func WithTieredLogger(logger *zap.Logger) TieredProjectionCacheOption {
	return func(c *TieredProjectionCache) {
		c.logger = logger
	}
}

// NewTieredProjectionCache creates a new tiered projection cache.
// The invalidator may be nil for single-instance deployments.
func NewTieredProjectionCache(
	l1Cache *InMemoryProjectionCache,
	l2Cache *RedisProjectionCache,
	invalidator *RedisProjectionInvalidator,
	opts ...TieredProjectionCacheOption,
) *TieredProjectionCache {
	cache := &TieredProjectionCache{
		l1Cache:     l1Cache,
		l2Cache:     l2Cache,
		invalidator: invalidator,
		l1TTL:       defaultL1TTL,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// StartInvalidationSubscription starts listening for eviction messages.
// This should be called once after creating the cache, in a goroutine.
func (c *TieredProjectionCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}

	return c.invalidator.Subscribe(ctx, func(msg InvalidationMessage) {
		bg := context.Background()
		switch msg.Action {
		case InvalidateActionEvict:
			c.l1Cache.Delete(bg, msg.Key)
			c.logger.Debug("evicted projection from local cache",
				zap.String("key", msg.Key))
		case InvalidateActionEvictAll:
			c.l1Cache.InvalidateAll()
		}
	})
}

// Get retrieves a projection (L1 -> L2). A miss in both tiers returns (nil, nil).
func (c *TieredProjectionCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.l1Cache.Get(ctx, key)
	if err == nil && value != nil {
		atomic.AddInt64(&c.l1Hits, 1)
		return value, nil
	}
	atomic.AddInt64(&c.l1Misses, 1)

	value, err = c.l2Cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if value != nil {
		atomic.AddInt64(&c.l2Hits, 1)
		// Populate L1 for subsequent local reads
		c.l1Cache.Set(ctx, key, value, c.l1TTL)
		return value, nil
	}
	atomic.AddInt64(&c.l2Misses, 1)

	return nil, nil
}

// Set stores a projection in both tiers
func (c *TieredProjectionCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.l2Cache.Set(ctx, key, value, ttl)
	c.l1Cache.Set(ctx, key, value, c.l1TTL)
}

// Delete removes a projection from both tiers and notifies other instances
func (c *TieredProjectionCache) Delete(ctx context.Context, key string) {
	c.l2Cache.Delete(ctx, key)
	c.l1Cache.Delete(ctx, key)

	if c.invalidator != nil {
		if err := c.invalidator.PublishEvict(ctx, key); err != nil {
			c.logger.Warn("failed to publish projection eviction",
				zap.String("key", key),
				zap.Error(err))
		}
	}
}

// Stats returns per-tier hit and miss counts
func (c *TieredProjectionCache) Stats() (l1Hits, l1Misses, l2Hits, l2Misses int64) {
	return atomic.LoadInt64(&c.l1Hits),
		atomic.LoadInt64(&c.l1Misses),
		atomic.LoadInt64(&c.l2Hits),
		atomic.LoadInt64(&c.l2Misses)
}

// Close releases resources held by the cache
func (c *TieredProjectionCache) Close() error {
	var lastErr error

	if c.invalidator != nil {
		if err := c.invalidator.Close(); err != nil {
			lastErr = err
		}
	}

	if err := c.l1Cache.Close(); err != nil {
		lastErr = err
	}

	return lastErr
}

var _ appcustomer.ProjectionCache = (*TieredProjectionCache)(nil)
