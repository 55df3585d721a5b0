package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/obplab/swingmech/internal/metrics"
)

// redisCache is a Redis-backed implementation of Cache. Errors degrade to
// misses: a flaky Redis slows the API down but never breaks it.
type redisCache struct {
	client *redis.Client
	logger zerolog.Logger
	prefix string
	stats  struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// RedisConfig holds the Redis connection parameters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis creates a Redis-backed cache and verifies the connection.
func NewRedis(cfg RedisConfig, logger zerolog.Logger) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("event", "cache.redis_connected").
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to redis cache")

	return &redisCache{client: client, logger: logger, prefix: "swingmech:"}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.stats.misses.Add(1)
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		c.stats.misses.Add(1)
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		return nil, false
	}
	c.stats.hits.Add(1)
	metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
	return val, true
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
		return
	}
	c.stats.sets.Add(1)
}

func (c *redisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis delete failed")
	}
}

func (c *redisCache) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", iter.Val()).Msg("redis delete failed")
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis scan failed")
	}
}

func (c *redisCache) Stats() Stats {
	return Stats{
		Hits:   c.stats.hits.Load(),
		Misses: c.stats.misses.Load(),
		Sets:   c.stats.sets.Load(),
	}
}

// Close releases the underlying Redis connection.
func (c *redisCache) Close() error {
	return c.client.Close()
}
