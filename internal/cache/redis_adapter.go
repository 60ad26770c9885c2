// Redis client adapter for github.com/redis/go-redis/v9. Implements
// RedisClient; its Set/Get/Del also satisfy the health probe's KV
// interface, and Client() exposes the raw go-redis client.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// GoRedisAdapter wraps a go-redis v9 client to implement RedisClient.
type GoRedisAdapter struct {
	client *redis.Client
}

// NewGoRedisClient parses a redis:// or rediss:// URL, connects, and pings
// it with a 5s timeout before returning.
func NewGoRedisClient(redisURL string) (*GoRedisAdapter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &GoRedisAdapter{client: client}, nil
}

// Client exposes the underlying go-redis client for callers that need
// operations beyond the narrow RedisClient interface.
func (a *GoRedisAdapter) Client() *redis.Client { return a.client }

func (a *GoRedisAdapter) Get(ctx context.Context, key string) (string, error) {
	return a.client.Get(ctx, key).Result()
}

func (a *GoRedisAdapter) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return a.client.Set(ctx, key, value, ttl).Err()
}

func (a *GoRedisAdapter) Del(ctx context.Context, keys ...string) error {
	return a.client.Del(ctx, keys...).Err()
}

func (a *GoRedisAdapter) Close() error {
	return a.client.Close()
}

func (a *GoRedisAdapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

// NewWithURL creates a TTLCache backed by Redis at redisURL, falling back
// to returning the connection error rather than silently degrading — the
// caller decides whether to retry or run cache-less.
func NewWithURL(redisURL string, cfg *Config) (*TTLCache, error) {
	adapter, err := NewGoRedisClient(redisURL)
	if err != nil {
		return nil, err
	}
	return NewWithClient(adapter, cfg), nil
}
