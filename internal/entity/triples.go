// File path: internal/entity/triples.go
package entity

import (
	"context"
	"strings"
	"time"

	"github.com/nicodishanthj/corpusfuse/internal/capability"
	"github.com/nicodishanthj/corpusfuse/internal/common"
	"github.com/nicodishanthj/corpusfuse/internal/common/telemetry"
	"github.com/nicodishanthj/corpusfuse/internal/graphstore"
	"github.com/nicodishanthj/corpusfuse/internal/simmath"
)

// Triple is one knowledge-graph edge returned for a query, annotated with
// the entity that matched a query noun and how strongly it matched.
type Triple struct {
	Relation      graphstore.Relation
	MatchedEntity string
	Similarity    float64
}

// TripleRetriever finds graph edges relevant to a query by matching its
// nouns against stored entities. Matching is embedding-first with a
// deterministic text-match fallback per noun; results from all nouns are
// unioned without deduplication so the merger sees repeated edges as a
// relevance signal.
type TripleRetriever struct {
	store    *graphstore.Store
	embedder capability.Embedder
	tagger   capability.Tagger
	cfg      Config
}

func NewTripleRetriever(store *graphstore.Store, embedder capability.Embedder, tagger capability.Tagger, cfg Config) *TripleRetriever {
	if cfg.GraphSimilarityThreshold <= 0 {
		cfg.GraphSimilarityThreshold = DefaultConfig().GraphSimilarityThreshold
	}
	if cfg.TextMatchLimit <= 0 {
		cfg.TextMatchLimit = DefaultConfig().TextMatchLimit
	}
	return &TripleRetriever{store: store, embedder: embedder, tagger: tagger, cfg: cfg}
}

// Retrieve returns every relation touching an entity that matched a query
// noun. It never returns an error: failed nouns are logged and skipped so
// one bad lookup cannot empty the graph branch.
func (t *TripleRetriever) Retrieve(ctx context.Context, query string) []Triple {
	logger := common.Logger()
	started := time.Now()
	nouns := t.queryNouns(ctx, query)
	if len(nouns) == 0 {
		logger.Debug("entity: no query nouns to match", "query", query)
		return nil
	}

	entities, err := t.store.AllEntities(ctx)
	if err != nil {
		logger.Error("entity: loading entities for triple retrieval failed", "error", err)
		return nil
	}

	var triples []Triple
	for _, noun := range nouns {
		matches := t.matchNoun(ctx, noun, entities)
		for _, match := range matches {
			relations, err := t.store.FindRelationsByEntity(ctx, match.ID)
			if err != nil {
				logger.Warn("entity: relation lookup failed", "entity", match.Name, "error", err)
				continue
			}
			for _, rel := range relations {
				triples = append(triples, Triple{
					Relation:      rel,
					MatchedEntity: match.Name,
					Similarity:    match.Score,
				})
			}
		}
	}
	telemetry.RecordGraphQuery("triples", time.Since(started))
	logger.Debug("entity: triple retrieval complete", "nouns", len(nouns), "triples", len(triples))
	return triples
}

// queryNouns extracts lower-cased, deduplicated noun tokens from the
// query. Tags starting with "NN" cover singular, plural, and proper nouns.
func (t *TripleRetriever) queryNouns(ctx context.Context, query string) []string {
	if t.tagger == nil {
		return nil
	}
	tokens, err := t.tagger.Tag(ctx, query)
	if err != nil {
		common.Logger().Warn("entity: tagging failed", "query", query, "error", err)
		return nil
	}
	seen := make(map[string]struct{})
	var nouns []string
	for _, token := range tokens {
		if !strings.HasPrefix(token.Tag, "NN") {
			continue
		}
		lower := strings.ToLower(token.Token)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		nouns = append(nouns, lower)
	}
	return nouns
}

// matchNoun scores the noun against all entities by embedding similarity.
// When nothing clears the threshold, the deterministic text-match fallback
// runs and its hits carry a synthetic score equal to the threshold, so
// downstream consumers see them as minimally relevant.
func (t *TripleRetriever) matchNoun(ctx context.Context, noun string, entities []graphstore.Entity) []graphstore.ScoredEntity {
	logger := common.Logger()
	if vec := t.embedNoun(ctx, noun); len(vec) > 0 {
		matches := graphstore.ScoreEntities(entities, vec, t.cfg.GraphSimilarityThreshold, 0)
		if len(matches) > 0 {
			return matches
		}
	}
	fallback, err := t.store.FindEntitiesByTextMatch(ctx, noun, t.cfg.TextMatchLimit)
	if err != nil {
		logger.Warn("entity: text-match fallback failed", "noun", noun, "error", err)
		return nil
	}
	matches := make([]graphstore.ScoredEntity, 0, len(fallback))
	for _, ent := range fallback {
		matches = append(matches, graphstore.ScoredEntity{Entity: ent, Score: t.cfg.GraphSimilarityThreshold})
	}
	return matches
}

func (t *TripleRetriever) embedNoun(ctx context.Context, noun string) []float32 {
	if t.embedder == nil {
		return nil
	}
	vectors, err := t.embedder.Embed(ctx, []string{noun})
	if err != nil {
		common.Logger().Warn("entity: noun embedding failed", "noun", noun, "error", err)
		return nil
	}
	return simmath.Normalize(vectors)
}
