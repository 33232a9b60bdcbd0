// File path: internal/vector/memory.go
package vector

import (
	"context"
	"sort"
	"sync"

	"github.com/nicodishanthj/corpusfuse/internal/simmath"
)

// MemoryIndex is a cosine-similarity index held entirely in memory. It
// backs offline deployments and the test suite.
type MemoryIndex struct {
	mu     sync.RWMutex
	points map[string]Point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[string]Point)}
}

func (m *MemoryIndex) Available() bool {
	return m != nil
}

func (m *MemoryIndex) Upsert(ctx context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, point := range points {
		if point.ID == "" {
			continue
		}
		m.points[point.ID] = point
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		k = 5
	}
	m.mu.RLock()
	hits := make([]Hit, 0, len(m.points))
	for _, point := range m.points {
		score := simmath.Cosine(vector, point.Vector)
		hits = append(hits, Hit{
			ID:       point.ID,
			Text:     point.Text,
			Score:    float32(score),
			Metadata: point.Metadata,
		})
	}
	m.mu.RUnlock()
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MemoryIndex) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = make(map[string]Point)
	return nil
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

var _ Index = (*MemoryIndex)(nil)
