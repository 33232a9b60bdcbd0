// File path: internal/retriever/orchestrator.go
package retriever

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nicodishanthj/corpusfuse/internal/common"
	"github.com/nicodishanthj/corpusfuse/internal/common/telemetry"
	"github.com/nicodishanthj/corpusfuse/internal/entity"
)

// Normalizer cleans up the raw query before retrieval. The default
// collapses whitespace; deployments may plug in language detection or
// spelling normalization.
type Normalizer func(query string) string

func defaultNormalizer(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// Orchestrator composes one query end to end: normalize, then the vector
// branch (retrieve then rerank) and the graph branch (triples) run
// concurrently, then the merge. It always returns a MergedContext; a
// capability outage empties a branch rather than failing the query.
type Orchestrator struct {
	retriever  *VectorRetriever
	reranker   *Reranker
	triples    *entity.TripleRetriever
	merger     *Merger
	normalizer Normalizer
	cfg        Config
}

func NewOrchestrator(retriever *VectorRetriever, reranker *Reranker, triples *entity.TripleRetriever, merger *Merger, cfg Config) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.TopKRerank <= 0 {
		cfg.TopKRerank = DefaultConfig().TopKRerank
	}
	return &Orchestrator{
		retriever:  retriever,
		reranker:   reranker,
		triples:    triples,
		merger:     merger,
		normalizer: defaultNormalizer,
		cfg:        cfg,
	}
}

// SetNormalizer replaces the query normalization hook.
func (o *Orchestrator) SetNormalizer(normalizer Normalizer) {
	if normalizer != nil {
		o.normalizer = normalizer
	}
}

// AnswerContext runs the full retrieval composition for one query.
func (o *Orchestrator) AnswerContext(ctx context.Context, query string) MergedContext {
	logger := common.Logger()
	ctx, endSpan := telemetry.StartSpan(ctx, "answer_context")
	defer endSpan("query_len", len(query))

	query = o.normalizer(query)
	if query == "" {
		return o.merger.Merge(nil, nil)
	}

	var (
		passages []RetrievedPassage
		triples  []entity.Triple
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		candidates := o.retriever.Retrieve(groupCtx, query, o.cfg.TopK)
		passages = o.reranker.Rerank(groupCtx, query, candidates, o.cfg.TopKRerank)
		return nil
	})
	group.Go(func() error {
		triples = o.triples.Retrieve(groupCtx, query)
		return nil
	})
	// Branches swallow their own failures, so Wait only synchronizes.
	if err := group.Wait(); err != nil {
		logger.Warn("retriever: branch error", "error", err)
	}

	merged := o.merger.Merge(passages, triples)
	logger.Debug("retriever: context merged",
		"passages", merged.PassagesIncluded,
		"triples", merged.TriplesIncluded,
		"tokens", merged.TotalTokens,
		"budget", merged.TokenBudget,
	)
	return merged
}
