package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// KeyPrefix namespaces raw upstream payloads, keyed by URL.
	KeyPrefix = "extraliga:raw:"
	// WarmedAtKey records when the collector last refreshed the cache.
	WarmedAtKey = "extraliga:warmed_at"
	WarmedAtTTL = 24 * time.Hour
)

// Cache stores raw upstream JSON in Redis. It satisfies fetch.Store.
type Cache struct {
	client *redis.Client
}

// New returns a Cache that uses the given Redis client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Key returns the Redis key for a raw payload URL.
func Key(url string) string {
	return KeyPrefix + url
}

// Load returns the stored payload. ok is false on a miss.
func (c *Cache) Load(ctx context.Context, url string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, Key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", url, err)
	}
	return b, true, nil
}

// Save stores data under url for ttl.
func (c *Cache) Save(ctx context.Context, url string, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, Key(url), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", url, err)
	}
	return nil
}

// MarkWarmed records the time of the last successful warm-up run.
func (c *Cache) MarkWarmed(ctx context.Context, at time.Time) error {
	return c.client.Set(ctx, WarmedAtKey, at.UTC().Format(time.RFC3339), WarmedAtTTL).Err()
}

// WarmedAt returns the last warm-up time, or the zero time if none is recorded.
func (c *Cache) WarmedAt(ctx context.Context) (time.Time, error) {
	s, err := c.client.Get(ctx, WarmedAtKey).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse warmed_at: %w", err)
	}
	return t, nil
}
