package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	appcustomer "github.com/crm/backend/internal/application/customer"
)

// RedisProjectionCache backs customer read model projections with Redis.
// Set and Delete swallow errors; the read model falls back to the database
// on a miss.
type RedisProjectionCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisProjectionCache creates a projection cache on an existing Redis client.
func NewRedisProjectionCache(client *redis.Client, keyPrefix string) *RedisProjectionCache {
	if keyPrefix == "" {
		keyPrefix = "crm:"
	}
	return &RedisProjectionCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached value for key, or (nil, nil) on a miss.
func (c *RedisProjectionCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Set stores value under key with the given TTL. Errors are ignored.
func (c *RedisProjectionCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.client.Set(ctx, c.keyPrefix+key, value, ttl)
}

// Delete removes key from the cache. Errors are ignored.
func (c *RedisProjectionCache) Delete(ctx context.Context, key string) {
	c.client.Del(ctx, c.keyPrefix+key)
}

var _ appcustomer.ProjectionCache = (*RedisProjectionCache)(nil)
