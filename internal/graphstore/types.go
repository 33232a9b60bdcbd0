// File path: internal/graphstore/types.go
package graphstore

import "time"

// InvalidID is the sentinel returned when entity resolution fails
// entirely. Callers must skip edges referencing it.
const InvalidID int64 = -1

// Entity is one deduplicated node in the knowledge graph. Entities are
// created on first sighting and never mutated afterwards except to attach
// additional source-document provenance.
type Entity struct {
	ID        int64
	Name      string
	Type      string
	Embedding []float32
	SourceDoc string
	CreatedAt time.Time
}

// EntityRow is the undecoded form of an entity used by the manual-scan
// fallback: the embedding column is returned as stored so the caller can
// decode it itself.
type EntityRow struct {
	ID           int64  `db:"id"`
	Name         string `db:"name"`
	RawEmbedding string `db:"embedding"`
}

// ScoredEntity pairs an entity with the similarity score that matched it.
type ScoredEntity struct {
	Entity
	Score float64
}

// Relation is a directed edge between two entities. Relations are
// read-only after creation and removed only by a corpus reset. The
// endpoint names are joined in on the read path for rendering triples.
type Relation struct {
	ID         int64
	SourceID   int64
	TargetID   int64
	Type       string
	SourceDoc  string
	CreatedAt  time.Time
	SourceName string
	TargetName string
}
