package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redisCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, &redisCache{client: client, logger: zerolog.Nop(), prefix: "swingmech:"}
}

func TestRedisCacheSetGet(t *testing.T) {
	mr, c := setupRedis(t)
	ctx := context.Background()

	c.Set(ctx, "angles:492_1", []byte(`{"times":[0]}`), 5*time.Minute)

	val, found := c.Get(ctx, "angles:492_1")
	require.True(t, found)
	assert.Equal(t, []byte(`{"times":[0]}`), val)

	// Keys are namespaced on the wire.
	assert.True(t, mr.Exists("swingmech:angles:492_1"))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestRedisCacheMiss(t *testing.T) {
	_, c := setupRedis(t)

	_, found := c.Get(context.Background(), "nope")
	assert.False(t, found)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestRedisCacheTTL(t *testing.T) {
	mr, c := setupRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	mr.FastForward(2 * time.Minute)

	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestRedisCacheDeleteAndClear(t *testing.T) {
	_, c := setupRedis(t)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	c.Delete(ctx, "a")
	_, found := c.Get(ctx, "a")
	assert.False(t, found)

	c.Clear(ctx)
	_, found = c.Get(ctx, "b")
	assert.False(t, found)
}

func TestRedisCacheServerDown(t *testing.T) {
	mr, c := setupRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	mr.Close()

	// Errors degrade to misses.
	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}
