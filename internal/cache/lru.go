// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package cache

import (
	"sync"
	"time"
)

type lruEntry struct {
	key       string
	expiresAt time.Time
	prev      *lruEntry
	next      *lruEntry
}

// LRUCache remembers recently seen keys for a TTL, evicting the least
// recently used key when full. Ingestion uses it to drop client retries of
// the same play.
//
// A doubly linked list gives O(1) insert, touch and eviction.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruEntry

	// head.next is the most recently used entry, tail.prev the least.
	head *lruEntry
	tail *lruEntry

	hits   int64
	misses int64
}

// NewLRUCache creates a cache holding at most capacity keys for ttl each.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// IsDuplicate reports whether key was seen within the TTL. A key that was
// not seen is recorded, so the next call with it returns true.
func (c *LRUCache) IsDuplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if e, ok := c.items[key]; ok {
		if !now.After(e.expiresAt) {
			c.moveToFront(e)
			c.hits++
			return true
		}
		c.removeEntry(e)
	}

	e := &lruEntry{key: key, expiresAt: now.Add(c.ttl)}
	c.addToFront(e)
	c.items[key] = e
	for len(c.items) > c.capacity {
		c.removeEntry(c.tail.prev)
	}

	c.misses++
	return false
}

// Remove forgets key, so a failed write can be retried.
func (c *LRUCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.removeEntry(e)
		return true
	}
	return false
}

// Len returns the number of remembered keys, expired ones included.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns duplicate hits, first sightings and current size.
func (c *LRUCache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// List helpers; callers hold mu.

func (c *LRUCache) addToFront(e *lruEntry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRUCache) moveToFront(e *lruEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *LRUCache) removeEntry(e *lruEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}
