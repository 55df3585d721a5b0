package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemory(0)
	ctx := context.Background()

	c.Set(ctx, "angles:492_1", []byte(`{"columns":[]}`), time.Minute)

	val, found := c.Get(ctx, "angles:492_1")
	require.True(t, found)
	assert.Equal(t, []byte(`{"columns":[]}`), val)

	_, found = c.Get(ctx, "angles:492_2")
	assert.False(t, found)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemory(0)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), -time.Second)
	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	c := NewMemory(0)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	c.Delete(ctx, "a")
	_, found := c.Get(ctx, "a")
	assert.False(t, found)

	c.Clear(ctx)
	_, found = c.Get(ctx, "b")
	assert.False(t, found)
	assert.Equal(t, 0, c.Stats().CurrentSize)
}

func TestMemoryCacheJanitorEvictsExpired(t *testing.T) {
	c := NewMemory(0).(*memoryCache)
	ctx := context.Background()

	c.Set(ctx, "stale", []byte("v"), -time.Second)
	c.Set(ctx, "fresh", []byte("v"), time.Minute)

	assert.Equal(t, 1, c.deleteExpired())
	assert.Equal(t, 1, c.Stats().CurrentSize)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}
