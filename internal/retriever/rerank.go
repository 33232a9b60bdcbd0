// File path: internal/retriever/rerank.go
package retriever

import (
	"context"
	"errors"
	"sort"

	"github.com/nicodishanthj/corpusfuse/internal/capability"
	"github.com/nicodishanthj/corpusfuse/internal/common"
	"github.com/nicodishanthj/corpusfuse/internal/common/telemetry"
	"github.com/nicodishanthj/corpusfuse/internal/simmath"
)

// BatchScorer is the contract a cross-encoder backend satisfies.
type BatchScorer interface {
	ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error)
	Available() bool
}

// rerankStrategy is one link of the fallback cascade. Links run in order;
// the first one that is available and succeeds determines the final
// ordering.
type rerankStrategy struct {
	name string
	rank func(ctx context.Context, query string, passages []RetrievedPassage) ([]RetrievedPassage, error)
}

// Reranker orders candidate passages best-first via a cascading fallback:
// primary cross-encoder, secondary cross-encoder, embedding cosine
// similarity, and finally the original vector order. Reranking can degrade
// but never fail the query.
type Reranker struct {
	strategies []rerankStrategy
}

func NewReranker(primary, secondary BatchScorer, embedder capability.Embedder) *Reranker {
	r := &Reranker{}
	r.strategies = []rerankStrategy{
		{name: "cross_encoder_primary", rank: crossEncoderRank(primary)},
		{name: "cross_encoder_secondary", rank: crossEncoderRank(secondary)},
		{name: "embedding_cosine", rank: embeddingRank(embedder)},
		{name: "passthrough", rank: passthroughRank},
	}
	return r
}

// Rerank returns up to topKRerank passages ordered best-first.
func (r *Reranker) Rerank(ctx context.Context, query string, passages []RetrievedPassage, topKRerank int) []RetrievedPassage {
	logger := common.Logger()
	if len(passages) == 0 {
		return nil
	}
	if topKRerank <= 0 {
		topKRerank = len(passages)
	}
	for i, strategy := range r.strategies {
		ranked, err := strategy.rank(ctx, query, passages)
		if err != nil {
			if i+1 < len(r.strategies) {
				logger.Warn("retriever: rerank link failed, falling back",
					"from", strategy.name, "to", r.strategies[i+1].name, "error", err)
			}
			continue
		}
		telemetry.RecordRerankStrategy(strategy.name)
		if len(ranked) > topKRerank {
			ranked = ranked[:topKRerank]
		}
		return ranked
	}
	// passthrough never errors, so this is unreachable in practice.
	if len(passages) > topKRerank {
		passages = passages[:topKRerank]
	}
	return passages
}

func crossEncoderRank(scorer BatchScorer) func(context.Context, string, []RetrievedPassage) ([]RetrievedPassage, error) {
	return func(ctx context.Context, query string, passages []RetrievedPassage) ([]RetrievedPassage, error) {
		if scorer == nil || !scorer.Available() {
			return nil, errors.New("cross-encoder unavailable")
		}
		texts := make([]string, len(passages))
		for i, passage := range passages {
			texts[i] = passage.Text
		}
		scores, err := scorer.ScoreBatch(ctx, query, texts)
		if err != nil {
			return nil, err
		}
		if len(scores) != len(passages) {
			return nil, errors.New("cross-encoder score count mismatch")
		}
		return sortByScores(passages, scores), nil
	}
}

func embeddingRank(embedder capability.Embedder) func(context.Context, string, []RetrievedPassage) ([]RetrievedPassage, error) {
	return func(ctx context.Context, query string, passages []RetrievedPassage) ([]RetrievedPassage, error) {
		if embedder == nil {
			return nil, errors.New("embedder unavailable")
		}
		inputs := make([]string, 0, len(passages)+1)
		inputs = append(inputs, query)
		for _, passage := range passages {
			inputs = append(inputs, passage.Text)
		}
		vectors, err := embedder.Embed(ctx, inputs)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(inputs) {
			return nil, errors.New("embedding count mismatch")
		}
		queryVec := vectors[0]
		scores := make([]float64, len(passages))
		for i := range passages {
			scores[i] = simmath.Cosine(queryVec, vectors[i+1])
		}
		return sortByScores(passages, scores), nil
	}
}

func passthroughRank(ctx context.Context, query string, passages []RetrievedPassage) ([]RetrievedPassage, error) {
	out := make([]RetrievedPassage, len(passages))
	copy(out, passages)
	return out, nil
}

// sortByScores stamps each passage with its score and orders descending,
// stable with respect to the incoming vector order.
func sortByScores(passages []RetrievedPassage, scores []float64) []RetrievedPassage {
	out := make([]RetrievedPassage, len(passages))
	for i, passage := range passages {
		score := scores[i]
		passage.RerankScore = &score
		out[i] = passage
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].RerankScore > *out[j].RerankScore
	})
	return out
}
