// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ttlcache provides a bounded, time-expiring in-memory key/value
// store for search and availability results.
//
// The cache is process-lifetime and best-effort: it starts empty, is lost at
// process end, and never persists. Expired entries are deleted lazily on
// read; capacity pressure on write first sweeps expired entries and then
// evicts the single oldest-inserted entry (insertion order, not LRU).
//
// # Thread Safety
//
// Cache is safe for concurrent use. All operations take an internal mutex.
package ttlcache

import (
	"sync"
	"time"
)

// entry is a cached payload with its insertion timestamp.
type entry struct {
	value    any
	insertAt time.Time
}

// Cache is a bounded TTL key/value store.
//
// Two instances are typically created per pipeline: a short-lived general
// search cache and a longer-lived data-availability cache. Instances are
// injected into the pipeline constructor so tests can run isolated caches.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]entry
	order    []string // insertion order, oldest first

	// now is overridable in tests.
	now func() time.Time
}

// New creates a Cache with the given TTL and capacity bound.
//
// A capacity of 0 or less disables storage entirely; every Set becomes a
// no-op and every Get a miss.
func New(ttl time.Duration, capacity int) *Cache {
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]entry),
		now:      time.Now,
	}
}

// Get returns the cached value for key.
//
// A miss is reported both when the key is absent and when the stored entry
// has aged past the TTL; expired entries are deleted on read.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertAt) >= c.ttl {
		c.deleteLocked(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, enforcing the capacity bound.
//
// When the cache is full, expired entries are swept first; if the cache is
// still full, the oldest-inserted entry is evicted before the new entry is
// stored. Re-setting an existing key refreshes its timestamp and moves it to
// the back of the insertion order.
func (c *Cache) Set(key string, value any) {
	if c.capacity <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.deleteLocked(key)
	}

	if len(c.entries) >= c.capacity {
		c.sweepExpiredLocked()
	}
	if len(c.entries) >= c.capacity && len(c.order) > 0 {
		c.deleteLocked(c.order[0])
	}

	c.entries[key] = entry{value: value, insertAt: c.now()}
	c.order = append(c.order, key)
}

// Len returns the current number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweepExpiredLocked deletes every entry past its TTL. Caller holds mu.
func (c *Cache) sweepExpiredLocked() {
	now := c.now()
	// Walk a copy: deleteLocked mutates c.order.
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	for _, key := range keys {
		if e, ok := c.entries[key]; ok && now.Sub(e.insertAt) >= c.ttl {
			c.deleteLocked(key)
		}
	}
}

// deleteLocked removes key from the map and the insertion-order slice.
// Caller holds mu.
func (c *Cache) deleteLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
