// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/nicodishanthj/corpusfuse/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	vectorSearchTotal     *expvar.Int
	vectorSearchCacheHits *expvar.Int
	vectorSearchLatencyMS *expvar.Int

	graphQueryTotal     *expvar.Map
	graphQueryLatencyMS *expvar.Map

	rerankFallbackTotal *expvar.Map

	extractionAttempts *expvar.Int
	extractionRepaired *expvar.Int
	extractionFailed   *expvar.Int
	extractionCacheHit *expvar.Int

	ingestBatchTotal *expvar.Int
	ingestChunkTotal *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		vectorSearchTotal = expvar.NewInt("corpusfuse_vector_search_total")
		vectorSearchCacheHits = expvar.NewInt("corpusfuse_vector_search_cache_hits")
		vectorSearchLatencyMS = expvar.NewInt("corpusfuse_vector_search_latency_ms")

		graphQueryTotal = expvar.NewMap("corpusfuse_graph_query_total")
		graphQueryLatencyMS = expvar.NewMap("corpusfuse_graph_query_latency_ms")

		rerankFallbackTotal = expvar.NewMap("corpusfuse_rerank_strategy_total")

		extractionAttempts = expvar.NewInt("corpusfuse_extraction_attempts_total")
		extractionRepaired = expvar.NewInt("corpusfuse_extraction_repaired_total")
		extractionFailed = expvar.NewInt("corpusfuse_extraction_failed_total")
		extractionCacheHit = expvar.NewInt("corpusfuse_extraction_cache_hits")

		ingestBatchTotal = expvar.NewInt("corpusfuse_ingest_batches_total")
		ingestChunkTotal = expvar.NewInt("corpusfuse_ingest_chunks_total")
	})
}

// StartSpan records a debug-level span around an operation. The returned
// closure logs the duration together with any attributes supplied at end.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// SpanDuration reports the elapsed time of the span carried by ctx, if any.
func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}

func RecordVectorSearch(cacheHit bool, duration time.Duration) {
	ensureInit()
	vectorSearchTotal.Add(1)
	if cacheHit {
		vectorSearchCacheHits.Add(1)
	}
	if duration > 0 {
		vectorSearchLatencyMS.Add(duration.Milliseconds())
	}
}

func RecordGraphQuery(kind string, duration time.Duration) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(kind))
	if key == "" {
		key = "unknown"
	}
	graphQueryTotal.Add(key, 1)
	if duration > 0 {
		graphQueryLatencyMS.Add(key, duration.Milliseconds())
	}
}

// RecordRerankStrategy counts which link of the rerank cascade produced the
// final ordering.
func RecordRerankStrategy(name string) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(name))
	if key == "" {
		key = "unknown"
	}
	rerankFallbackTotal.Add(key, 1)
}

func RecordExtraction(repaired, failed, cacheHit bool) {
	ensureInit()
	extractionAttempts.Add(1)
	if repaired {
		extractionRepaired.Add(1)
	}
	if failed {
		extractionFailed.Add(1)
	}
	if cacheHit {
		extractionCacheHit.Add(1)
	}
}

func RecordIngestBatch(chunks int) {
	ensureInit()
	if chunks <= 0 {
		return
	}
	ingestBatchTotal.Add(1)
	ingestChunkTotal.Add(int64(chunks))
}
