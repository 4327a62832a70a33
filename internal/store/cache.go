package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// CachingStore wraps a Store with a short-TTL read-through cache in front of
// player_game:* reads (spec §4.6): broadcast fan-out re-reads the same few
// keys far more often than they actually change, so a Get within CacheTTL of
// the last fetch is served from memory instead of hitting the backing store. Every Set/Del on a cached key invalidates it immediately,
// so a cache hit is never staler than CacheTTL and never survives a write.
type CachingStore struct {
	Store
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCachingStore wraps an existing Store. Only keys matching the
// player_game:* prefix participate in the cache; every other key passes
// through untouched.
func NewCachingStore(inner Store) *CachingStore {
	return &CachingStore{
		Store:   inner,
		entries: make(map[string]cacheEntry),
	}
}

func cacheable(key string) bool {
	return strings.HasPrefix(key, "player_game:")
}

func (c *CachingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if !cacheable(key) {
		return c.Store.Get(ctx, key)
	}

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.value, true, nil
	}

	val, found, err := c.Store.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if found {
		c.mu.Lock()
		c.entries[key] = cacheEntry{value: val, expiresAt: time.Now().Add(CacheTTL)}
		c.mu.Unlock()
	}
	return val, found, nil
}

func (c *CachingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.Store.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	c.invalidate(key)
	return nil
}

func (c *CachingStore) Del(ctx context.Context, key string) error {
	if err := c.Store.Del(ctx, key); err != nil {
		return err
	}
	c.invalidate(key)
	return nil
}

func (c *CachingStore) invalidate(key string) {
	if !cacheable(key) {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
