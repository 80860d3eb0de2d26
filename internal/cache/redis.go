package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "agrivoice:verdict:"

// RedisCache implements VerdictCache using Redis for distributed storage.
// Suitable for multi-instance deployments behind a load balancer.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed verdict cache.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis verdict cache connected", "ttl", ttl)

	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get retrieves a cached verdict.
func (c *RedisCache) Get(ctx context.Context, key string) (bool, bool, error) {
	val, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to get verdict from redis: %w", err)
	}
	return val == "1", true, nil
}

// Set stores a verdict.
func (c *RedisCache) Set(ctx context.Context, key string, inDomain bool) error {
	val := "0"
	if inDomain {
		val = "1"
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set verdict in redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
