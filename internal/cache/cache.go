// Package cache provides the short-lived TTL cache that backs the health
// probe's 30s result cache. It falls back to an in-process map when no
// Redis-compatible client is configured, so the core can run standalone.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// TTLCache is a small Redis-backed cache with an in-memory fallback.
type TTLCache struct {
	memCache map[string]*cacheEntry
	memMu    sync.RWMutex

	redisClient RedisClient // nil if no kv backend is configured

	defaultTTL time.Duration
	maxMemSize int

	hits, misses int64
	statsMu      sync.RWMutex
}

// RedisClient is the narrow surface this cache needs from a kv backend.
// Satisfied by GoRedisAdapter (redis_adapter.go) wrapping
// github.com/redis/go-redis/v9.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Close() error
}

type cacheEntry struct {
	Value     []byte
	ExpiresAt time.Time
}

// Config controls TTLCache sizing.
type Config struct {
	DefaultTTL     time.Duration
	MaxMemoryItems int
}

func DefaultConfig() *Config {
	return &Config{
		DefaultTTL:     30 * time.Second,
		MaxMemoryItems: 10000,
	}
}

// New creates a cache with no Redis backend — in-memory only.
func New(cfg *Config) *TTLCache {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &TTLCache{
		memCache:   make(map[string]*cacheEntry),
		defaultTTL: cfg.DefaultTTL,
		maxMemSize: cfg.MaxMemoryItems,
	}
	go c.cleanupLoop()
	return c
}

// NewWithClient creates a cache backed by an existing Redis-compatible
// client, falling back to memory on any Redis error.
func NewWithClient(client RedisClient, cfg *Config) *TTLCache {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &TTLCache{
		memCache:    make(map[string]*cacheEntry),
		redisClient: client,
		defaultTTL:  cfg.DefaultTTL,
		maxMemSize:  cfg.MaxMemoryItems,
	}
	go c.cleanupLoop()
	return c
}

// Get retrieves a value, trying the Redis backend first when present.
func (c *TTLCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.redisClient != nil {
		val, err := c.redisClient.Get(ctx, key)
		if err == nil {
			c.recordHit()
			return []byte(val), nil
		}
	}

	c.memMu.RLock()
	entry, exists := c.memCache[key]
	c.memMu.RUnlock()

	if !exists {
		c.recordMiss()
		return nil, ErrCacheMiss
	}
	if time.Now().After(entry.ExpiresAt) {
		c.memMu.Lock()
		delete(c.memCache, key)
		c.memMu.Unlock()
		c.recordMiss()
		return nil, ErrCacheMiss
	}

	c.recordHit()
	return entry.Value, nil
}

// Set stores a value with the given TTL (or the cache default if ttl==0).
func (c *TTLCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	if c.redisClient != nil {
		if err := c.redisClient.Set(ctx, key, string(value), ttl); err == nil {
			return nil
		}
	}

	c.memMu.Lock()
	defer c.memMu.Unlock()

	if len(c.memCache) >= c.maxMemSize {
		c.evictOldest()
	}
	c.memCache[key] = &cacheEntry{Value: value, ExpiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes a key from both backends.
func (c *TTLCache) Delete(ctx context.Context, key string) error {
	if c.redisClient != nil {
		_ = c.redisClient.Del(ctx, key)
	}
	c.memMu.Lock()
	delete(c.memCache, key)
	c.memMu.Unlock()
	return nil
}

// GetJSON retrieves and unmarshals a JSON value.
func (c *TTLCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// SetJSON marshals and stores a JSON value.
func (c *TTLCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}

// GetOrSetJSON returns the cached value for key, or calls loader, caches its
// result, and returns that. This is the shape the health probe uses to wrap
// check_all(use_cache=true).
func (c *TTLCache) GetOrSetJSON(ctx context.Context, key string, ttl time.Duration, dest interface{}, loader func() (interface{}, error)) error {
	if err := c.GetJSON(ctx, key, dest); err == nil {
		return nil
	}

	value, err := loader()
	if err != nil {
		return err
	}
	if err := c.SetJSON(ctx, key, value, ttl); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Stats reports hit/miss counters.
type Stats struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRatio   float64 `json:"hit_ratio"`
	MemorySize int     `json:"memory_size"`
}

func (c *TTLCache) Stats() Stats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()

	c.memMu.RLock()
	memSize := len(c.memCache)
	c.memMu.RUnlock()

	total := c.hits + c.misses
	var ratio float64
	if total > 0 {
		ratio = float64(c.hits) / float64(total)
	}
	return Stats{Hits: c.hits, Misses: c.misses, HitRatio: ratio, MemorySize: memSize}
}

func (c *TTLCache) Close() error {
	if c.redisClient != nil {
		return c.redisClient.Close()
	}
	return nil
}

func (c *TTLCache) recordHit() {
	c.statsMu.Lock()
	c.hits++
	c.statsMu.Unlock()
}

func (c *TTLCache) recordMiss() {
	c.statsMu.Lock()
	c.misses++
	c.statsMu.Unlock()
}

func (c *TTLCache) evictOldest() {
	toEvict := c.maxMemSize / 10
	if toEvict < 1 {
		toEvict = 1
	}

	now := time.Now()
	evicted := 0
	for key, entry := range c.memCache {
		if evicted >= toEvict {
			break
		}
		if now.After(entry.ExpiresAt) {
			delete(c.memCache, key)
			evicted++
		}
	}
	if evicted < toEvict {
		for key := range c.memCache {
			if evicted >= toEvict {
				break
			}
			delete(c.memCache, key)
			evicted++
		}
	}
}

func (c *TTLCache) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		c.cleanup()
	}
}

func (c *TTLCache) cleanup() {
	c.memMu.Lock()
	defer c.memMu.Unlock()
	now := time.Now()
	for key, entry := range c.memCache {
		if now.After(entry.ExpiresAt) {
			delete(c.memCache, key)
		}
	}
}

// HealthResultKey is the single cache key the health probe reads/writes:
// check_all's result is keyed by nothing but its own identity (spec.md
// §4.F "cached for 30s keyed by the call").
const HealthResultKey = "health:check_all"

var ErrCacheMiss = fmt.Errorf("cache miss")
