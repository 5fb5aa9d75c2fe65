// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUCache_IsDuplicate(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	if c.IsDuplicate("play-1") {
		t.Error("first sighting reported as duplicate")
	}
	if !c.IsDuplicate("play-1") {
		t.Error("second sighting not reported as duplicate")
	}
	if c.IsDuplicate("play-2") {
		t.Error("different key reported as duplicate")
	}

	hits, misses, size := c.Stats()
	if hits != 1 || misses != 2 || size != 2 {
		t.Errorf("Stats() = %d, %d, %d", hits, misses, size)
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c := NewLRUCache(10, 10*time.Millisecond)
	c.IsDuplicate("k")
	time.Sleep(30 * time.Millisecond)

	if c.IsDuplicate("k") {
		t.Error("expired key reported as duplicate")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache(3, time.Minute)
	for i := 0; i < 3; i++ {
		c.IsDuplicate(fmt.Sprintf("k%d", i))
	}

	// Touch k0 so k1 becomes the eviction candidate.
	c.IsDuplicate("k0")
	c.IsDuplicate("k3")

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	if !c.IsDuplicate("k0") {
		t.Error("k0 should survive")
	}
	if c.IsDuplicate("k1") {
		t.Error("k1 should have been evicted")
	}
}

func TestLRUCache_Remove(t *testing.T) {
	c := NewLRUCache(10, time.Minute)
	c.IsDuplicate("k")

	if !c.Remove("k") {
		t.Error("Remove() = false for present key")
	}
	if c.Remove("k") {
		t.Error("Remove() = true for absent key")
	}
	if c.IsDuplicate("k") {
		t.Error("removed key reported as duplicate")
	}
}

func TestNewLRUCache_Defaults(t *testing.T) {
	c := NewLRUCache(0, 0)
	if c.capacity != 10000 || c.ttl != 5*time.Minute {
		t.Errorf("capacity = %d ttl = %v", c.capacity, c.ttl)
	}
}
