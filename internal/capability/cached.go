// File path: internal/capability/cached.go
package capability

import (
	"context"

	"github.com/nicodishanthj/corpusfuse/internal/respcache"
)

// CachedEmbedder decorates an Embedder with the shared response cache.
// Each text is cached under its content hash, so batch and single-item
// calls over the same text resolve consistently and only misses reach the
// backend.
type CachedEmbedder struct {
	inner Embedder
	cache *respcache.Cache
}

func NewCachedEmbedder(inner Embedder, cache *respcache.Cache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (c *CachedEmbedder) Embed(ctx context.Context, input []string) ([][]float32, error) {
	if len(input) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, len(input))
	var missing []string
	var missingIdx []int
	for i, text := range input {
		if cached, ok := c.cache.Get(respcache.Key(text)); ok {
			if vec, ok := cached.([]float32); ok {
				vectors[i] = vec
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return vectors, nil
	}
	fresh, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, idx := range missingIdx {
		if j >= len(fresh) {
			break
		}
		vectors[idx] = fresh[j]
		c.cache.Set(respcache.Key(missing[j]), fresh[j])
	}
	return vectors, nil
}
