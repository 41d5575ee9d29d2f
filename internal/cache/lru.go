// Package cache provides a generic least-recently-used cache with
// entry-count capacity and byte-size accounting.
//
// Recency is tracked by list position, not timestamps: Get and
// overwrite-Set move an entry to the front, and inserting at capacity evicts
// the single entry at the back. A pluggable size function keeps a running
// byte estimate consistent across insert, overwrite, delete, evict, and
// clear. Keys are strings so cached windows belonging to one computation
// target can be released in bulk by key prefix.
package cache

import (
	"container/list"
	"errors"
	"strings"
	"sync"
)

// ErrInvalidCapacity is returned by New for capacities below one entry.
var ErrInvalidCapacity = errors.New("cache capacity must be positive")

// SizeFunc measures the byte footprint of a value for the running total.
type SizeFunc[V any] func(V) int64

// LRU is a key→value store bounded by entry count. Safe for concurrent use.
type LRU[V any] struct {
	mu     sync.Mutex
	cap    int
	ll     *list.List
	items  map[string]*list.Element
	sizeOf SizeFunc[V]
	bytes  int64

	hits      int64
	misses    int64
	evictions int64
}

type entry[V any] struct {
	key   string
	value V
	size  int64
}

// New creates an LRU with the given entry capacity. sizeOf may be nil, in
// which case DefaultSize measures values by their binary buffer lengths.
func New[V any](capacity int, sizeOf SizeFunc[V]) (*LRU[V], error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if sizeOf == nil {
		sizeOf = func(v V) int64 { return DefaultSize(v) }
	}
	return &LRU[V]{
		cap:    capacity,
		ll:     list.New(),
		items:  make(map[string]*list.Element, capacity),
		sizeOf: sizeOf,
	}, nil
}

// Get returns the value for key and promotes it to most-recently-used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.ll.MoveToFront(el)
	return el.Value.(*entry[V]).value, true
}

// Set inserts or overwrites key, promoting it to most-recently-used.
// Inserting a new key at capacity evicts the least-recently-used entry.
func (c *LRU[V]) Set(key string, value V) {
	size := c.sizeOf(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		c.bytes += size - e.size
		e.value = value
		e.size = size
		c.ll.MoveToFront(el)
		return
	}

	if c.ll.Len() >= c.cap {
		c.evictOldest()
	}
	c.items[key] = c.ll.PushFront(&entry[V]{key: key, value: value, size: size})
	c.bytes += size
}

// evictOldest removes the back entry. Caller holds mu.
func (c *LRU[V]) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	e := el.Value.(*entry[V])
	c.ll.Remove(el)
	delete(c.items, e.key)
	c.bytes -= e.size
	c.evictions++
}

// Delete removes key, reporting whether it was present.
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	e := el.Value.(*entry[V])
	c.ll.Remove(el)
	delete(c.items, key)
	c.bytes -= e.size
	return true
}

// DeletePrefix removes every entry whose key starts with prefix and returns
// the number removed. Used to release all cached windows of one target.
func (c *LRU[V]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int
	for key, el := range c.items {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		e := el.Value.(*entry[V])
		c.ll.Remove(el)
		delete(c.items, key)
		c.bytes -= e.size
		removed++
	}
	return removed
}

// Clear drops every entry and zeroes the byte total.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[string]*list.Element, c.cap)
	c.bytes = 0
}

// Len returns the current entry count.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// EstimatedBytes returns the running byte total over held entries.
func (c *LRU[V]) EstimatedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// Stats holds cache counters for the stats endpoint.
type Stats struct {
	Entries        int
	EstimatedBytes int64
	Hits           int64
	Misses         int64
	Evictions      int64
}

// Snapshot returns current counters.
func (c *LRU[V]) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:        c.ll.Len(),
		EstimatedBytes: c.bytes,
		Hits:           c.hits,
		Misses:         c.misses,
		Evictions:      c.evictions,
	}
}
