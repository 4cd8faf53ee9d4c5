package terminology

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/curator/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "curator:expansion:"

// RedisCache shares expansions between processes through Redis.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a cache on top of an existing client. A zero ttl keeps entries
// until evicted by Redis.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: defaultKeyPrefix, ttl: ttl}
}

// NewRedisCacheFromURL connects to the redis:// URL and verifies the connection.
func NewRedisCacheFromURL(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCache(client, ttl), nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.Expansion, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to read expansion %s: %w", key, err)
	}

	var expansion models.Expansion
	if err := json.Unmarshal(raw, &expansion); err != nil {
		return nil, false, fmt.Errorf("failed to decode expansion %s: %w", key, err)
	}

	return &expansion, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, expansion *models.Expansion) error {
	raw, err := json.Marshal(expansion)
	if err != nil {
		return fmt.Errorf("failed to encode expansion %s: %w", key, err)
	}

	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store expansion %s: %w", key, err)
	}

	return nil
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
