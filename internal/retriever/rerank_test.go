// File path: internal/retriever/rerank_test.go
package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/nicodishanthj/corpusfuse/internal/capability"
)

// fakeScorer scores passages from a fixed table, or fails.
type fakeScorer struct {
	scores    map[string]float64
	available bool
	err       error
	calls     int
}

func (f *fakeScorer) Available() bool { return f.available }

func (f *fakeScorer) ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	scores := make([]float64, len(passages))
	for i, passage := range passages {
		scores[i] = f.scores[passage]
	}
	return scores, nil
}

func testPassages() []RetrievedPassage {
	return []RetrievedPassage{
		{Text: "low", VectorScore: 0.9},
		{Text: "high", VectorScore: 0.8},
		{Text: "mid", VectorScore: 0.7},
	}
}

func TestRerankPrimaryOrdersByScore(t *testing.T) {
	primary := &fakeScorer{available: true, scores: map[string]float64{"low": 0.1, "high": 0.9, "mid": 0.5}}
	reranker := NewReranker(primary, &fakeScorer{}, capability.NewLocalProvider())

	ranked := reranker.Rerank(context.Background(), "query", testPassages(), 2)
	if len(ranked) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(ranked))
	}
	if ranked[0].Text != "high" || ranked[1].Text != "mid" {
		t.Fatalf("unexpected order: %q %q", ranked[0].Text, ranked[1].Text)
	}
	if ranked[0].RerankScore == nil || *ranked[0].RerankScore != 0.9 {
		t.Fatalf("rerank score not stamped: %+v", ranked[0])
	}
}

func TestRerankFallsBackToSecondary(t *testing.T) {
	primary := &fakeScorer{available: true, err: errors.New("primary down")}
	secondary := &fakeScorer{available: true, scores: map[string]float64{"low": 0.2, "high": 0.8, "mid": 0.5}}
	reranker := NewReranker(primary, secondary, capability.NewLocalProvider())

	ranked := reranker.Rerank(context.Background(), "query", testPassages(), 3)
	if ranked[0].Text != "high" {
		t.Fatalf("secondary ordering not applied: %q", ranked[0].Text)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Fatalf("expected both encoders attempted once, got %d and %d", primary.calls, secondary.calls)
	}
}

func TestRerankFallsBackToEmbeddingCosine(t *testing.T) {
	reranker := NewReranker(&fakeScorer{}, &fakeScorer{}, capability.NewLocalProvider())
	passages := []RetrievedPassage{
		{Text: "weather cycles"},
		{Text: "deforestation rainfall"},
	}
	ranked := reranker.Rerank(context.Background(), "deforestation rainfall", passages, 2)
	if ranked[0].Text != "deforestation rainfall" {
		t.Fatalf("embedding fallback must rank the overlapping passage first: %q", ranked[0].Text)
	}
	if ranked[0].RerankScore == nil {
		t.Fatalf("embedding fallback must stamp scores")
	}
}

func TestRerankPassthroughKeepsVectorOrder(t *testing.T) {
	reranker := NewReranker(&fakeScorer{}, &fakeScorer{}, nil)
	ranked := reranker.Rerank(context.Background(), "query", testPassages(), 2)
	if len(ranked) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(ranked))
	}
	if ranked[0].Text != "low" || ranked[1].Text != "high" {
		t.Fatalf("passthrough must keep original order: %q %q", ranked[0].Text, ranked[1].Text)
	}
	if ranked[0].RerankScore != nil {
		t.Fatalf("passthrough passages must stay unscored")
	}
}

func TestRerankEmptyInput(t *testing.T) {
	reranker := NewReranker(&fakeScorer{}, &fakeScorer{}, nil)
	if ranked := reranker.Rerank(context.Background(), "query", nil, 3); len(ranked) != 0 {
		t.Fatalf("expected no output for no input")
	}
}
