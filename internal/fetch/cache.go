package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheTTL matches the proxy's s-maxage.
	DefaultCacheTTL = 60 * time.Second
	// DefaultFillTimeout bounds a shared fill once it is detached from its callers.
	DefaultFillTimeout = 2 * time.Minute
)

// Store is an optional second cache tier shared between processes (Redis).
// Load reports ok=false on a miss.
type Store interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

type entry struct {
	at   time.Time
	data []byte
}

// Cache keeps raw upstream payloads by URL for a TTL and guarantees at most one
// in-flight fill per key: concurrent callers for the same key share the pending
// result.
type Cache struct {
	ttl   time.Duration
	store Store
	// writeOnly skips both read tiers so every Get refreshes the store.
	writeOnly bool

	mu      sync.Mutex
	entries map[string]entry
	group   singleflight.Group

	now func() time.Time
}

// NewCache returns a Cache with the given TTL. store may be nil.
func NewCache(ttl time.Duration, store Store) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		store:   store,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewWarmingCache returns a Cache that always fills from upstream and writes
// the result to store. Concurrent fills for a key are still shared.
func NewWarmingCache(ttl time.Duration, store Store) *Cache {
	c := NewCache(ttl, store)
	c.writeOnly = true
	return c
}

// Get returns the cached payload for key or runs fill once for all concurrent
// callers. Failed fills are not cached.
func (c *Cache) Get(ctx context.Context, key string, fill func(context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok := c.lookup(key); ok {
		return data, nil
	}
	v, err, shared := c.group.Do(key, func() (any, error) {
		if data, ok := c.lookup(key); ok {
			return data, nil
		}
		if data, ok := c.loadStore(ctx, key); ok {
			c.put(key, data)
			return data, nil
		}
		// A caller that gives up must not fail the others waiting on this key.
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultFillTimeout)
		defer cancel()
		data, err := fill(fillCtx)
		if err != nil {
			return nil, err
		}
		c.put(key, data)
		c.saveStore(ctx, key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("cache fill shared", "key", key)
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("cache: unexpected value type %T", v)
	}
	return data, nil
}

func (c *Cache) lookup(key string) ([]byte, bool) {
	if c.writeOnly {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.at) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

func (c *Cache) put(key string, data []byte) {
	c.mu.Lock()
	c.entries[key] = entry{at: c.now(), data: data}
	c.mu.Unlock()
}

func (c *Cache) loadStore(ctx context.Context, key string) ([]byte, bool) {
	if c.store == nil || c.writeOnly {
		return nil, false
	}
	data, ok, err := c.store.Load(ctx, key)
	if err != nil {
		slog.Warn("external cache load failed", "key", key, "error", err)
		return nil, false
	}
	return data, ok
}

func (c *Cache) saveStore(ctx context.Context, key string, data []byte) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(context.WithoutCancel(ctx), key, data, c.ttl); err != nil {
		slog.Warn("external cache save failed", "key", key, "error", err)
	}
}
