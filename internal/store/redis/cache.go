package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache is the TTL key-value store behind the GET response cache.
// It implements middleware.ResponseCache.
type ResponseCache struct {
	client *Client
}

func NewResponseCache(client *Client) *ResponseCache {
	return &ResponseCache{client: client}
}

// Get returns the cached value and whether the key was present.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := c.client.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis.ResponseCache.Get: %w", err)
	}
	return v, true, nil
}

// Set stores a value that expires after ttl.
func (c *ResponseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis.ResponseCache.Set: %w", err)
	}
	return nil
}
