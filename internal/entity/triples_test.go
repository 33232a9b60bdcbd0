// File path: internal/entity/triples_test.go
package entity

import (
	"context"
	"testing"

	"github.com/nicodishanthj/corpusfuse/internal/capability"
	"github.com/nicodishanthj/corpusfuse/internal/graphstore"
)

func seedGraph(t *testing.T, store *graphstore.Store) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	embed := func(text string) []float32 {
		provider := capability.NewLocalProvider()
		vecs, err := provider.Embed(ctx, []string{text})
		if err != nil {
			t.Fatalf("embed %q: %v", text, err)
		}
		return vecs[0]
	}
	deforestation, err := store.InsertEntity(ctx, "deforestation", "CONCEPT", embed("deforestation"), "climate.txt")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	rainfall, err := store.InsertEntity(ctx, "rainfall", "CONCEPT", embed("rainfall"), "climate.txt")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.InsertRelation(ctx, deforestation, rainfall, "REDUCES", "climate.txt"); err != nil {
		t.Fatalf("insert relation: %v", err)
	}
	return deforestation, rainfall
}

func TestRetrieveMatchesNounsToTriples(t *testing.T) {
	store := openTestStore(t)
	seedGraph(t, store)

	retriever := NewTripleRetriever(store, capability.NewLocalProvider(), capability.NewLocalTagger(), DefaultConfig())
	triples := retriever.Retrieve(context.Background(), "How does deforestation affect rainfall?")
	if len(triples) == 0 {
		t.Fatalf("expected triples for matching nouns")
	}
	found := false
	for _, triple := range triples {
		if triple.Relation.Type == "REDUCES" &&
			triple.Relation.SourceName == "deforestation" &&
			triple.Relation.TargetName == "rainfall" {
			found = true
			if triple.Similarity < DefaultConfig().GraphSimilarityThreshold {
				t.Fatalf("similarity below threshold: %f", triple.Similarity)
			}
		}
	}
	if !found {
		t.Fatalf("expected the seeded edge among triples: %+v", triples)
	}
}

func TestRetrieveUnionKeepsDuplicateEdges(t *testing.T) {
	store := openTestStore(t)
	seedGraph(t, store)

	// Both nouns match entities on the same edge, so the edge appears once
	// per matched endpoint.
	retriever := NewTripleRetriever(store, capability.NewLocalProvider(), capability.NewLocalTagger(), DefaultConfig())
	triples := retriever.Retrieve(context.Background(), "deforestation rainfall")
	if len(triples) < 2 {
		t.Fatalf("expected the edge from both endpoints, got %d triples", len(triples))
	}
}

func TestRetrieveTextMatchFallbackUsesSyntheticScore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	// Entity stored without a useful embedding: only the text fallback can
	// find it.
	id, err := store.InsertEntity(ctx, "tropical rainfall belt", "CONCEPT", nil, "climate.txt")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	other, err := store.InsertEntity(ctx, "monsoon", "CONCEPT", nil, "climate.txt")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.InsertRelation(ctx, id, other, "DRIVES", "climate.txt"); err != nil {
		t.Fatalf("insert relation: %v", err)
	}

	cfg := DefaultConfig()
	retriever := NewTripleRetriever(store, capability.NewLocalProvider(), capability.NewLocalTagger(), cfg)
	triples := retriever.Retrieve(ctx, "rainfall")
	if len(triples) == 0 {
		t.Fatalf("expected fallback text match to surface the edge")
	}
	for _, triple := range triples {
		if triple.Similarity != cfg.GraphSimilarityThreshold {
			t.Fatalf("fallback matches must carry the synthetic threshold score, got %f", triple.Similarity)
		}
		if triple.MatchedEntity != "tropical rainfall belt" {
			t.Fatalf("unexpected matched entity %q", triple.MatchedEntity)
		}
	}
}

func TestRetrieveNoNounsReturnsNothing(t *testing.T) {
	store := openTestStore(t)
	seedGraph(t, store)
	retriever := NewTripleRetriever(store, capability.NewLocalProvider(), capability.NewLocalTagger(), DefaultConfig())
	if triples := retriever.Retrieve(context.Background(), "is the of and"); len(triples) != 0 {
		t.Fatalf("stopword-only query must yield no triples, got %d", len(triples))
	}
}
