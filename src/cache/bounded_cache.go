package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Entry holds a cached value with expiration
type Entry struct {
	Value     any
	ExpiresAt time.Time
}

// BoundedCache is a thread-safe bounded cache with TTL support. When the
// capacity is reached the oldest inserted entry is evicted first (FIFO);
// reads do not refresh an entry's position.
type BoundedCache struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	fifo     *list.List
}

type entry struct {
	key   string
	value Entry
}

// NewBoundedCache creates a new cache with the given capacity and TTL
func NewBoundedCache(capacity int, ttl time.Duration) *BoundedCache {
	return &BoundedCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		fifo:     list.New(),
	}
}

// Get retrieves a value from the cache
func (c *BoundedCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}

	ent := elem.Value.(*entry)

	// Check if expired
	if time.Now().After(ent.value.ExpiresAt) {
		c.fifo.Remove(elem)
		delete(c.items, key)
		return nil, false
	}

	return ent.value.Value, true
}

// Set adds or updates a value in the cache
func (c *BoundedCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	// Update existing entry in place; its eviction position is unchanged.
	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry).value = Entry{
			Value:     value,
			ExpiresAt: expiresAt,
		}
		return
	}

	ent := &entry{
		key: key,
		value: Entry{
			Value:     value,
			ExpiresAt: expiresAt,
		},
	}
	elem := c.fifo.PushFront(ent)
	c.items[key] = elem

	// Evict oldest if over capacity
	if c.fifo.Len() > c.capacity {
		oldest := c.fifo.Back()
		if oldest != nil {
			c.fifo.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

// Invalidate removes a single entry. It reports whether the key was present.
func (c *BoundedCache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.fifo.Remove(elem)
	delete(c.items, key)
	return true
}

// Clear removes all entries from the cache
func (c *BoundedCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.capacity)
	c.fifo.Init()
}

// Len returns the number of items in the cache
func (c *BoundedCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fifo.Len()
}

// Fingerprint creates a stable cache key from a question or prompt string
func Fingerprint(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Dump returns a snapshot of cache entries for persistence
func (c *BoundedCache) Dump() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dump := make(map[string]Entry, len(c.items))
	for k, elem := range c.items {
		dump[k] = elem.Value.(*entry).value
	}
	return dump
}

// Restore populates the cache from a map of entries
func (c *BoundedCache) Restore(dump map[string]Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fifo.Init()
	c.items = make(map[string]*list.Element, c.capacity)

	for k, v := range dump {
		// Check expiry during restore
		if time.Now().After(v.ExpiresAt) {
			continue
		}

		ent := &entry{key: k, value: v}
		elem := c.fifo.PushFront(ent)
		c.items[k] = elem
	}

	// Enforce capacity
	for c.fifo.Len() > c.capacity {
		oldest := c.fifo.Back()
		if oldest != nil {
			c.fifo.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}
