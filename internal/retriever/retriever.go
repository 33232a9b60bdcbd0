// File path: internal/retriever/retriever.go
package retriever

import (
	"context"

	"github.com/nicodishanthj/corpusfuse/internal/capability"
	"github.com/nicodishanthj/corpusfuse/internal/common"
	"github.com/nicodishanthj/corpusfuse/internal/simmath"
	"github.com/nicodishanthj/corpusfuse/internal/vector"
)

// RetrievedPassage is one candidate passage for a query. RerankScore is
// nil until a scoring rerank link has run; the passthrough link leaves
// passages unscored.
type RetrievedPassage struct {
	Text        string
	SourceFile  string
	VectorScore float64
	RerankScore *float64
}

// VectorRetriever fetches top-K candidate passages from the vector index.
type VectorRetriever struct {
	index    vector.Index
	embedder capability.Embedder
}

func NewVectorRetriever(index vector.Index, embedder capability.Embedder) *VectorRetriever {
	return &VectorRetriever{index: index, embedder: embedder}
}

// Retrieve embeds the query text and returns up to topK nearest passages.
// Any failure yields an empty list with the cause logged, never an error.
func (r *VectorRetriever) Retrieve(ctx context.Context, text string, topK int) []RetrievedPassage {
	logger := common.Logger()
	if r.embedder == nil || r.index == nil {
		return nil
	}
	vectors, err := r.embedder.Embed(ctx, []string{text})
	if err != nil {
		logger.Warn("retriever: query embedding failed", "error", err)
		return nil
	}
	return r.RetrieveByVector(ctx, simmath.Normalize(vectors), topK)
}

// RetrieveByVector queries with a precomputed embedding.
func (r *VectorRetriever) RetrieveByVector(ctx context.Context, vec []float32, topK int) []RetrievedPassage {
	logger := common.Logger()
	if r.index == nil || len(vec) == 0 {
		return nil
	}
	hits, err := r.index.Query(ctx, vec, topK)
	if err != nil {
		logger.Warn("retriever: vector query failed", "error", err)
		return nil
	}
	passages := make([]RetrievedPassage, 0, len(hits))
	for _, hit := range hits {
		passage := RetrievedPassage{Text: hit.Text, VectorScore: float64(hit.Score)}
		if source, ok := hit.Metadata["source"].(string); ok {
			passage.SourceFile = source
		}
		passages = append(passages, passage)
	}
	return passages
}
