package cache

import "sync"

const defaultLocalCapacity = 100_000

// Local is a process-local read-through map guarded by a generation counter.
//
// A reader takes Generation before loading from the source and passes it to Fill.
// Invalidate bumps the generation, so a fill whose load overlapped a write is
// discarded instead of re-populating a stale value.
type Local[K comparable, V any] struct {
	mu       sync.RWMutex
	gen      uint64
	items    map[K]V
	capacity int
}

// NewLocal creates a Local holding at most capacity entries. When full, the cache
// is emptied before the next insert. capacity <= 0 selects a default.
func NewLocal[K comparable, V any](capacity int) *Local[K, V] {
	if capacity <= 0 {
		capacity = defaultLocalCapacity
	}
	return &Local[K, V]{items: make(map[K]V), capacity: capacity}
}

// Get returns the cached value of key.
func (c *Local[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

// Generation returns the current generation.
func (c *Local[K, V]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Fill stores value under key unless an invalidation happened since gen was taken.
// It reports whether the value was stored.
func (c *Local[K, V]) Fill(gen uint64, key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	if len(c.items) >= c.capacity {
		clear(c.items)
	}
	c.items[key] = value
	return true
}

// Invalidate drops keys and starts a new generation.
func (c *Local[K, V]) Invalidate(keys ...K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for _, k := range keys {
		delete(c.items, k)
	}
}

// Len returns the number of cached entries.
func (c *Local[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
