package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/driftwatch/driftwatch/internal/config"
)

// RedisCache is the shared ResultCache backend. SET NX gives the write-once
// semantics across detector instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// newRedisCache creates a new Redis-backed result cache
func newRedisCache(cfg config.CacheConfig, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Not a URL, treat it as a plain address
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return data, true, nil
}

func (c *RedisCache) PutIfAbsent(ctx context.Context, key string, data []byte) (bool, error) {
	stored, err := c.client.SetNX(ctx, key, data, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return stored, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
