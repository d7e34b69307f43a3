package memory

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain"
)

type entry struct {
	value   []byte
	count   int64
	expires time.Time
}

func (e entry) live(now time.Time) bool {
	return e.expires.IsZero() || now.Before(e.expires)
}

// Cache is an in-process stand-in for Redis implementing both the list
// cache and the login attempt counter.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	gens    map[string]int64
	now     func() time.Time
}

var _ domain.ListCache = (*Cache)(nil)
var _ domain.AttemptCounter = (*Cache)(nil)

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		gens:    make(map[string]int64),
		now:     time.Now,
	}
}

// Ping always succeeds.
func (c *Cache) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (c *Cache) Close() error { return nil }

func (c *Cache) lookup(key string) (entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return entry{}, false
	}
	if !e.live(c.now()) {
		delete(c.entries, key)
		return entry{}, false
	}
	return e, true
}

// Get returns the cached value for key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok || e.value == nil {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Generation returns the invalidation generation of key.
func (c *Cache) Generation(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key], nil
}

// SetIfGeneration stores value while key's generation equals gen.
func (c *Cache) SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[key] != gen {
		return false, nil
	}
	c.entries[key] = entry{value: value, expires: c.now().Add(ttl)}
	return true, nil
}

// Invalidate drops key and advances its generation.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	c.gens[key]++
	return nil
}

// Reserve takes one attempt under key unless limit is reached.
func (c *Cache) Reserve(ctx context.Context, key string, limit int64, window time.Duration) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, _ := c.lookup(key)
	if e.count >= limit {
		return e.count, false, nil
	}
	e.count++
	e.expires = c.now().Add(window)
	c.entries[key] = e
	return e.count, true, nil
}

// Release returns one attempt under key.
func (c *Cache) Release(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		return nil
	}
	if e.count <= 1 {
		delete(c.entries, key)
		return nil
	}
	e.count--
	c.entries[key] = e
	return nil
}

// Reset clears key.
func (c *Cache) Reset(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}
