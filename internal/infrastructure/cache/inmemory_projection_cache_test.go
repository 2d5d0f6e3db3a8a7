package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryProjectionCache_Get(t *testing.T) {
	cache := NewInMemoryProjectionCache()
	defer cache.Close()

	ctx := context.Background()
	key := "customer:basic:abc"

	// Cache miss
	value, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, value)

	cache.Set(ctx, key, []byte(`{"id":"abc"}`), 5*time.Second)

	// Cache hit
	value, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"abc"}`), value)
}

func TestInMemoryProjectionCache_Set_EmptyValueIgnored(t *testing.T) {
	cache := NewInMemoryProjectionCache()
	defer cache.Close()

	ctx := context.Background()
	cache.Set(ctx, "empty", nil, 5*time.Second)

	value, err := cache.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Nil(t, value)
	assert.Equal(t, 0, cache.Count())
}

func TestInMemoryProjectionCache_Delete(t *testing.T) {
	cache := NewInMemoryProjectionCache()
	defer cache.Close()

	ctx := context.Background()
	key := "customer:basic:abc"

	cache.Set(ctx, key, []byte("v"), 5*time.Second)
	cache.Delete(ctx, key)

	value, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestInMemoryProjectionCache_Expiration(t *testing.T) {
	cache := NewInMemoryProjectionCache()
	defer cache.Close()

	ctx := context.Background()
	key := "customer:basic:abc"

	cache.Set(ctx, key, []byte("v"), 10*time.Millisecond)

	// Still present before expiry
	value, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, value)

	time.Sleep(20 * time.Millisecond)

	// Expired entries behave as misses
	value, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestInMemoryProjectionCache_InvalidateAll(t *testing.T) {
	cache := NewInMemoryProjectionCache()
	defer cache.Close()

	ctx := context.Background()
	cache.Set(ctx, "a", []byte("1"), 5*time.Second)
	cache.Set(ctx, "b", []byte("2"), 5*time.Second)
	require.Equal(t, 2, cache.Count())

	cache.InvalidateAll()
	assert.Equal(t, 0, cache.Count())
}

func TestInMemoryProjectionCache_Stats(t *testing.T) {
	cache := NewInMemoryProjectionCache()
	defer cache.Close()

	ctx := context.Background()
	cache.Set(ctx, "a", []byte("1"), 5*time.Second)

	_, _ = cache.Get(ctx, "a")
	_, _ = cache.Get(ctx, "missing")

	hits, misses := cache.GetStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestInMemoryProjectionCache_CloseIsIdempotent(t *testing.T) {
	cache := NewInMemoryProjectionCache()

	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close())
}
