// File path: internal/vector/vector.go

// Package vector defines the passage index consumed by retrieval and
// ingestion, with an HTTP client for a ChromaDB-compatible service and an
// in-memory index for offline deployments and tests.
package vector

import "context"

// Point is one passage stored in the index.
type Point struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]interface{}
}

// Hit is one query result. Score is normalized so higher means closer.
type Hit struct {
	ID       string
	Text     string
	Score    float32
	Metadata map[string]interface{}
}

// Index is the vector store surface the pipeline depends on.
type Index interface {
	Available() bool
	Upsert(ctx context.Context, points []Point) error
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Reset(ctx context.Context) error
}
