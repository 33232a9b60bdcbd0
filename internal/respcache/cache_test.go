// File path: internal/respcache/cache_test.go
package respcache

import (
	"testing"
	"time"
)

func TestSetThenGetReturnsValue(t *testing.T) {
	cache := New(time.Minute, 8)
	cache.Set("k", "v")
	got, ok := cache.Get("k")
	if !ok {
		t.Fatalf("expected hit for key k")
	}
	if got.(string) != "v" {
		t.Fatalf("unexpected value: %v", got)
	}
}

func TestGetExpiredEntryIsAbsent(t *testing.T) {
	cache := New(10*time.Millisecond, 8)
	cache.Set("k", "v")
	time.Sleep(25 * time.Millisecond)
	if _, ok := cache.Get("k"); ok {
		t.Fatalf("expected expired entry to be absent")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected lazy purge on get, len=%d", cache.Len())
	}
}

func TestEvictsOldestInsertionWhenFull(t *testing.T) {
	cache := New(time.Minute, 2)
	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Set("c", 3)
	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected oldest key a to be evicted")
	}
	if _, ok := cache.Get("b"); !ok {
		t.Fatalf("expected key b to survive")
	}
	if _, ok := cache.Get("c"); !ok {
		t.Fatalf("expected key c to survive")
	}
}

func TestResetOverwritesAndRefreshesAge(t *testing.T) {
	cache := New(time.Minute, 2)
	cache.Set("a", 1)
	cache.Set("b", 2)
	// Re-setting a moves it to the back of the insertion order, so b
	// becomes the eviction candidate.
	cache.Set("a", 10)
	cache.Set("c", 3)
	if _, ok := cache.Get("b"); ok {
		t.Fatalf("expected b to be evicted after a was refreshed")
	}
	got, ok := cache.Get("a")
	if !ok || got.(int) != 10 {
		t.Fatalf("expected refreshed value for a, got %v ok=%v", got, ok)
	}
}

func TestCleanupReturnsRemovedCount(t *testing.T) {
	cache := New(10*time.Millisecond, 8)
	cache.Set("a", 1)
	cache.Set("b", 2)
	time.Sleep(25 * time.Millisecond)
	cache.Set("c", 3)
	if removed := cache.Cleanup(); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", cache.Len())
	}
}

func TestClearEmptiesCache(t *testing.T) {
	cache := New(time.Minute, 8)
	cache.Set("a", 1)
	cache.Clear()
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, len=%d", cache.Len())
	}
}

func TestBatchKeyMatchesJoinedSingleKey(t *testing.T) {
	joined := Key("alpha" + batchSeparator + "beta")
	if BatchKey([]string{"alpha", "beta"}) != joined {
		t.Fatalf("batch key does not match joined single key")
	}
	if BatchKey([]string{"alphabeta"}) == joined {
		t.Fatalf("separator failed to distinguish concatenated inputs")
	}
}
