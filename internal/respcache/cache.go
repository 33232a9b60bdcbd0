// File path: internal/respcache/cache.go

// Package respcache implements the process-wide TTL response cache shared
// by the embedding capability and the extraction pipeline.
package respcache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/corpusfuse/internal/common"
)

// batchSeparator joins batched inputs before hashing. The unit separator
// is vanishingly unlikely to occur in natural text, so batch and
// single-item calls over the same text derive consistent keys.
const batchSeparator = "\x1f"

type entry struct {
	key        string
	value      interface{}
	insertedAt time.Time
}

// Cache is a TTL-bounded key/value cache with oldest-insertion eviction
// once maxSize is reached. Entries are immutable once set; re-setting a
// key overwrites it and refreshes its insertion timestamp. All operations
// share a single mutex.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = oldest insertion
}

// New constructs a cache with the given TTL and maximum entry count.
// Non-positive arguments fall back to an hour and 1024 entries.
func New(ttl time.Duration, maxSize int) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		items:   make(map[string]*list.Element, maxSize),
		order:   list.New(),
	}
}

// Get returns the value stored under key. Entries older than the TTL are
// treated as absent and lazily purged.
func (c *Cache) Get(key string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(entry)
	if time.Since(ent.insertedAt) > c.ttl {
		c.removeLocked(elem)
		return nil, false
	}
	return ent.value, true
}

// Set stores value under key. Inserting a new distinct key while the
// cache is full evicts the single oldest entry by insertion time first.
func (c *Cache) Set(key string, value interface{}) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeLocked(elem)
	} else if c.order.Len() >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			c.removeLocked(oldest)
		}
	}
	elem := c.order.PushBack(entry{key: key, value: value, insertedAt: time.Now()})
	c.items[key] = elem
}

// Len reports the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.maxSize)
	c.order = list.New()
}

// Cleanup sweeps all expired entries and returns the count removed.
func (c *Cache) Cleanup() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if time.Since(elem.Value.(entry).insertedAt) > c.ttl {
			c.removeLocked(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// StartSweeper runs periodic Cleanup passes until ctx is canceled. Lazy
// expiry on Get keeps the cache correct without it; the sweeper only
// bounds idle memory on long-running processes.
func (c *Cache) StartSweeper(ctx context.Context, interval time.Duration) {
	if c == nil {
		return
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.Cleanup(); removed > 0 {
					common.Logger().Debug("respcache: sweep removed expired entries", "removed", removed)
				}
			}
		}
	}()
}

func (c *Cache) removeLocked(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(entry).key)
}

// Key derives the cache key for a single text input.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// BatchKey derives the cache key for a batched text input so that the
// batch and its individual items hash consistently.
func BatchKey(texts []string) string {
	return Key(strings.Join(texts, batchSeparator))
}
