package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestResultCache_PutGet(t *testing.T) {
	c := New(8, time.Minute)

	c.Put("q1", "ctx", "value-1", 0)
	got, ok := c.Get("q1", "ctx")
	if !ok {
		t.Fatal("expected hit")
	}
	if got != "value-1" {
		t.Fatalf("expected value-1, got %v", got)
	}

	// Different context is a different key.
	if _, ok := c.Get("q1", "other"); ok {
		t.Fatal("expected miss for different context")
	}
}

func TestResultCache_TTLExpiry(t *testing.T) {
	c := New(8, time.Minute)

	c.Put("q1", "ctx", "A", 50*time.Millisecond)
	if got, ok := c.Get("q1", "ctx"); !ok || got != "A" {
		t.Fatalf("expected immediate hit, got %v ok=%v", got, ok)
	}

	time.Sleep(120 * time.Millisecond)

	before := c.Stats().Misses
	if _, ok := c.Get("q1", "ctx"); ok {
		t.Fatal("expected expired entry to miss")
	}
	after := c.Stats()
	if after.Misses != before+1 {
		t.Fatalf("expected miss counter to increment, got %d -> %d", before, after.Misses)
	}
	if after.Size != 0 {
		t.Fatalf("expected expired entry removed, size=%d", after.Size)
	}
}

func TestResultCache_EvictsLowestAccessCount(t *testing.T) {
	c := New(3, time.Minute)

	c.Put("a", "", 1, 0)
	c.Put("b", "", 2, 0)
	c.Put("c", "", 3, 0)

	// Touch a and c so b stays coldest.
	c.Get("a", "")
	c.Get("c", "")

	c.Put("d", "", 4, 0)

	if _, ok := c.Get("b", ""); ok {
		t.Fatal("expected b evicted as lowest access count")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k, ""); !ok {
			t.Fatalf("expected %s to survive", k)
		}
	}
	if size := c.Stats().Size; size != 3 {
		t.Fatalf("expected exactly one eviction, size=%d", size)
	}
}

func TestResultCache_EvictionTieBreaksOldest(t *testing.T) {
	c := New(2, time.Minute)

	c.Put("old", "", 1, 0)
	time.Sleep(5 * time.Millisecond)
	c.Put("new", "", 2, 0)

	// Both untouched: tie on access count, oldest insert loses.
	c.Put("extra", "", 3, 0)

	if _, ok := c.Get("old", ""); ok {
		t.Fatal("expected oldest entry evicted on tie")
	}
	if _, ok := c.Get("new", ""); !ok {
		t.Fatal("expected newer entry to survive")
	}
}

func TestResultCache_CleanupExpired(t *testing.T) {
	c := New(16, time.Minute)

	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("short-%d", i), "", i, 20*time.Millisecond)
	}
	c.Put("long", "", "keep", time.Minute)

	time.Sleep(50 * time.Millisecond)

	if removed := c.CleanupExpired(); removed != 4 {
		t.Fatalf("expected 4 removed, got %d", removed)
	}
	if _, ok := c.Get("long", ""); !ok {
		t.Fatal("expected long-lived entry to survive sweep")
	}
}

func TestResultCache_StatsHitRate(t *testing.T) {
	c := New(8, time.Minute)

	c.Put("q", "", 1, 0)
	c.Get("q", "")
	c.Get("q", "")
	c.Get("missing", "")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Fatalf("expected 2 hits 1 miss, got %+v", s)
	}
	if s.HitRate < 0.66 || s.HitRate > 0.67 {
		t.Fatalf("unexpected hit rate %f", s.HitRate)
	}

	c.Clear()
	s = c.Stats()
	if s.Size != 0 || s.Hits != 0 || s.Misses != 0 {
		t.Fatalf("expected counters reset after clear, got %+v", s)
	}
}

func TestKey_Stable(t *testing.T) {
	if Key("a", "b") != Key("a", "b") {
		t.Fatal("key must be deterministic")
	}
	if Key("a", "b") == Key("ab", "") {
		t.Fatal("separator must keep components distinct")
	}
}
