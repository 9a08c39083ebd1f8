// Package cache is an optional Redis read-through cache for translate
// and price-suggest responses. A nil *Cache is valid and disabled;
// cache failures are logged and never affect the response.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mandi:cache"

// Cache wraps a Redis client for response caching.
type Cache struct {
	rdb *redis.Client
	log *slog.Logger
}

// New connects to redisURL (redis://host:port/db). An empty URL
// returns a nil cache, which disables caching entirely.
func New(redisURL string, log *slog.Logger) (*Cache, error) {
	if redisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return &Cache{rdb: redis.NewClient(opts), log: log}, nil
}

// Key builds a cache key from an endpoint name and the normalized
// request fields. Fields are hashed so arbitrary text stays out of the
// keyspace.
func Key(endpoint string, fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x00")))
	return keyPrefix + ":" + endpoint + ":" + hex.EncodeToString(sum[:16])
}

// Get loads a cached response into v. Returns false on miss, disabled
// cache, or any Redis error.
func (c *Cache) Get(ctx context.Context, key string, v any) bool {
	if c == nil {
		return false
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		c.log.Warn("cache entry corrupt, ignoring", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores v under key for ttl. Errors are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
}

// Close releases the Redis connection. Nil-safe.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
