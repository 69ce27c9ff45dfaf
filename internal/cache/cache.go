package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is an in-memory TTL cache. Expired entries are swept periodically
// until Close is called.
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]item[V]
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

func New[V any](ttl, sweepEvery time.Duration) *Cache[V] {
	c := &Cache[V]{
		items: make(map[string]item[V]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	if sweepEvery > 0 {
		go c.cleanupLoop(sweepEvery)
	}
	return c
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item[V]{
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	it, exists := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !exists {
		return zero, false
	}
	if time.Now().After(it.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return zero, false
	}
	return it.value, true
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the sweeper. It is safe to call more than once.
func (c *Cache[V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

// Key hashes parts into a fixed-size cache key.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache[V]) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[V]) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, key)
		}
	}
}
