// Earmark - Listening History Moments Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/earmark

package cache

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache[string] {
	t.Helper()
	c := New[string](ttl)
	t.Cleanup(c.Close)
	return c
}

func TestCache_SetGet(t *testing.T) {
	c := newTestCache(t, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Errorf("Get(a) = %q, %v", got, ok)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Keys != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if rate := stats.HitRate(); rate != 50 {
		t.Errorf("HitRate() = %v, want 50", rate)
	}
}

func TestCache_Expiration(t *testing.T) {
	c := newTestCache(t, time.Minute)
	c.SetWithTTL("short", "v", 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("entry should have expired")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("evictions = %d, want 1", got)
	}
}

func TestCache_Cleanup(t *testing.T) {
	c := newTestCache(t, time.Minute)
	c.SetWithTTL("old", "v", time.Nanosecond)
	c.Set("fresh", "v")

	time.Sleep(5 * time.Millisecond)
	c.cleanup()

	if got := c.Stats().Keys; got != 1 {
		t.Errorf("keys after cleanup = %d, want 1", got)
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := newTestCache(t, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")

	c.Delete("a")
	c.Delete("nope")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still present")
	}

	c.Clear()
	stats := c.Stats()
	if stats.Keys != 0 || stats.Evictions != 3 {
		t.Errorf("stats after clear = %+v", stats)
	}
}

func TestCache_GetOrLoad(t *testing.T) {
	c := newTestCache(t, time.Minute)
	calls := 0
	load := func() (string, error) {
		calls++
		return "loaded", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		if err != nil || v != "loaded" {
			t.Fatalf("GetOrLoad() = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}

	errLoad := errors.New("boom")
	if _, err := c.GetOrLoad("bad", func() (string, error) { return "", errLoad }); !errors.Is(err, errLoad) {
		t.Errorf("err = %v", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("failed load should not be cached")
	}
}

func TestCache_CloseIdempotent(t *testing.T) {
	c := New[int](time.Minute)
	c.Close()
	c.Close()
}

func TestCache_Concurrent(t *testing.T) {
	c := newTestCache(t, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("k", "v")
				c.Get("k")
				if j%10 == 0 {
					c.Clear()
				}
			}
		}()
	}
	wg.Wait()
}
