// File path: internal/entity/resolver.go

// Package entity hosts the knowledge-graph side of the pipeline: the
// resolver that deduplicates surface forms into entities, and the triple
// retriever that walks relations for query nouns.
package entity

import (
	"context"
	"strings"

	"github.com/nicodishanthj/corpusfuse/internal/capability"
	"github.com/nicodishanthj/corpusfuse/internal/common"
	"github.com/nicodishanthj/corpusfuse/internal/graphstore"
	"github.com/nicodishanthj/corpusfuse/internal/simmath"
)

// Resolver maps (surface form, type) pairs onto entity ids, reusing an
// existing entity when one is similar enough. Deduplication is
// best-effort: two resolvers racing the same concept may create
// near-identical entities, which is tolerated rather than prevented.
type Resolver struct {
	store    *graphstore.Store
	embedder capability.Embedder
	cfg      Config
}

func NewResolver(store *graphstore.Store, embedder capability.Embedder, cfg Config) *Resolver {
	if cfg.EntitySimilarityThreshold <= 0 {
		cfg.EntitySimilarityThreshold = DefaultConfig().EntitySimilarityThreshold
	}
	return &Resolver{store: store, embedder: embedder, cfg: cfg}
}

// Resolve returns the id of an existing sufficiently-similar entity of
// the same type, or inserts a new one. It returns graphstore.InvalidID
// only when every lookup path failed; it never returns an error, and
// callers must skip edges referencing the sentinel.
func (r *Resolver) Resolve(ctx context.Context, surface, entityType, sourceDoc string) int64 {
	logger := common.Logger()
	surface = strings.TrimSpace(surface)
	entityType = strings.TrimSpace(strings.ToUpper(entityType))
	if surface == "" || entityType == "" {
		return graphstore.InvalidID
	}

	vec := r.embedSurface(ctx, surface)
	if len(vec) > 0 {
		if id, ok := r.findSimilar(ctx, entityType, vec, sourceDoc); ok {
			return id
		}
	}

	id, err := r.store.InsertEntity(ctx, surface, entityType, vec, sourceDoc)
	if err != nil {
		logger.Error("entity: insert failed", "surface", surface, "type", entityType, "error", err)
		return graphstore.InvalidID
	}
	return id
}

func (r *Resolver) embedSurface(ctx context.Context, surface string) []float32 {
	if r.embedder == nil {
		return nil
	}
	vectors, err := r.embedder.Embed(ctx, []string{surface})
	if err != nil {
		common.Logger().Warn("entity: embedding failed, resolving by exact surface only", "surface", surface, "error", err)
		return nil
	}
	return simmath.Normalize(vectors)
}

// findSimilar checks existing entities of the same type for a score at or
// above the dedup threshold. The store-side search is tried first; on
// failure it falls back to an exhaustive scan over manually decoded
// embedding columns.
func (r *Resolver) findSimilar(ctx context.Context, entityType string, vec []float32, sourceDoc string) (int64, bool) {
	logger := common.Logger()
	matches, err := r.store.SimilarEntities(ctx, entityType, vec, r.cfg.EntitySimilarityThreshold, 1)
	if err != nil {
		logger.Warn("entity: similarity search failed, scanning raw rows", "type", entityType, "error", err)
		matches = r.manualScan(ctx, entityType, vec)
	}
	if len(matches) == 0 {
		return graphstore.InvalidID, false
	}
	best := matches[0]
	if err := r.store.AppendEntitySource(ctx, best.ID, sourceDoc); err != nil {
		logger.Warn("entity: provenance update failed", "id", best.ID, "error", err)
	}
	return best.ID, true
}

func (r *Resolver) manualScan(ctx context.Context, entityType string, vec []float32) []graphstore.ScoredEntity {
	rows, err := r.store.EntityRows(ctx, entityType)
	if err != nil {
		common.Logger().Error("entity: manual scan failed", "type", entityType, "error", err)
		return nil
	}
	entities := make([]graphstore.Entity, 0, len(rows))
	for _, row := range rows {
		decoded := graphstore.DecodeEmbedding(row.RawEmbedding)
		if len(decoded) == 0 {
			continue
		}
		entities = append(entities, graphstore.Entity{ID: row.ID, Name: row.Name, Embedding: decoded})
	}
	return graphstore.ScoreEntities(entities, vec, r.cfg.EntitySimilarityThreshold, 1)
}
