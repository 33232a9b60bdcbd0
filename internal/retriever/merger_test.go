// File path: internal/retriever/merger_test.go
package retriever

import (
	"strings"
	"testing"

	"github.com/nicodishanthj/corpusfuse/internal/entity"
	"github.com/nicodishanthj/corpusfuse/internal/graphstore"
)

func testTriple(source, relation, target string) entity.Triple {
	return entity.Triple{
		Relation: graphstore.Relation{SourceName: source, Type: relation, TargetName: target},
	}
}

func TestMergeOrdersPassagesBeforeTriples(t *testing.T) {
	cfg := DefaultConfig()
	merger := NewMerger(cfg)
	passages := []RetrievedPassage{
		{Text: "first passage"},
		{Text: "second passage"},
	}
	triples := []entity.Triple{testTriple("deforestation", "REDUCES", "rainfall")}

	merged := merger.Merge(passages, triples)
	if merged.PassagesIncluded != 2 || merged.TriplesIncluded != 1 {
		t.Fatalf("unexpected counts: %+v", merged)
	}
	if len(merged.OrderedTexts) != 3 {
		t.Fatalf("expected 3 texts, got %d", len(merged.OrderedTexts))
	}
	if merged.OrderedTexts[0] != "first passage" || merged.OrderedTexts[2] != "deforestation REDUCES rainfall" {
		t.Fatalf("unexpected ordering: %v", merged.OrderedTexts)
	}
	if merged.TotalTokens != merged.PassageTokens+merged.TripleTokens {
		t.Fatalf("token accounting out of balance: %+v", merged)
	}
}

func TestMergeRespectsTokenBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContextWindowTokens = 100
	merger := NewMerger(cfg)
	if merged := merger.Merge(nil, nil); merged.TokenBudget != 40 {
		t.Fatalf("expected budget floor(100*0.4)=40, got %d", merged.TokenBudget)
	}

	long := strings.Repeat("deforestation rainfall watershed ", 40)
	passages := []RetrievedPassage{
		{Text: "short"},
		{Text: long},
		{Text: "also short"},
	}
	merged := merger.Merge(passages, []entity.Triple{testTriple("a", "R", "b")})
	if merged.TotalTokens > merged.TokenBudget {
		t.Fatalf("budget invariant violated: %d > %d", merged.TotalTokens, merged.TokenBudget)
	}
	// The oversized second passage overflows and halts iteration, so the
	// later short candidates never make the cut.
	if merged.PassagesIncluded != 1 || merged.TriplesIncluded != 0 {
		t.Fatalf("overflow must halt iteration: %+v", merged)
	}
}

func TestMergeZeroBudgetIncludesNothing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContextWindowTokens = 2
	merger := NewMerger(cfg)
	merged := merger.Merge([]RetrievedPassage{{Text: "anything"}}, nil)
	if merged.PassagesIncluded != 0 || merged.TotalTokens != 0 {
		t.Fatalf("zero budget must include nothing: %+v", merged)
	}
}

func TestMergeNeverIncludesMoreThanOffered(t *testing.T) {
	merger := NewMerger(DefaultConfig())
	passages := []RetrievedPassage{{Text: "one"}, {Text: "two"}}
	triples := []entity.Triple{testTriple("a", "R", "b")}
	merged := merger.Merge(passages, triples)
	if merged.PassagesIncluded > len(passages) || merged.TriplesIncluded > len(triples) {
		t.Fatalf("included more than offered: %+v", merged)
	}
}
