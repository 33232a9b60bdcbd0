// File path: internal/extract/pipeline.go
package extract

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nicodishanthj/corpusfuse/internal/capability"
	"github.com/nicodishanthj/corpusfuse/internal/common"
	"github.com/nicodishanthj/corpusfuse/internal/common/telemetry"
	"github.com/nicodishanthj/corpusfuse/internal/respcache"
)

// Config tunes the extraction pipeline. Retry settings are configurable so
// tests can run without the production delay.
type Config struct {
	MaxRetries       int
	RetryDelay       time.Duration
	Temperature      float64
	MaxTokens        int
	BatchSize        int
	ConcurrencyLimit int
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:       3,
		RetryDelay:       2 * time.Second,
		Temperature:      0.1,
		MaxTokens:        2048,
		BatchSize:        8,
		ConcurrencyLimit: 4,
	}
}

// LoadConfig merges CORPUSFUSE_EXTRACT_* environment overrides onto the
// defaults.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_EXTRACT_RETRIES")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			cfg.MaxRetries = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_EXTRACT_RETRY_DELAY")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed >= 0 {
			cfg.RetryDelay = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_EXTRACT_BATCH_SIZE")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.BatchSize = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_EXTRACT_CONCURRENCY")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.ConcurrencyLimit = parsed
		}
	}
	return cfg
}

// Result is the outcome of extracting one chunk. Failure is represented by
// an empty edge list plus the per-attempt error record, never an error
// return.
type Result struct {
	Edges     []Edge
	Success   bool
	FromCache bool
	Attempts  int
	Strategy  string
	// Errors captures every strategy error from every attempt, for debug
	// inspection of chunks that resisted repair.
	Errors []string
}

// Progress is the cumulative state reported after each chunk completes
// during a batch run.
type Progress struct {
	ProcessedCount  int
	TotalChunks     int
	TotalEdgesSoFar int
	Batch           int
}

// Pipeline extracts edges from text chunks via the completion capability.
type Pipeline struct {
	completer capability.Completer
	cache     *respcache.Cache
	cfg       Config
}

func NewPipeline(completer capability.Completer, cache *respcache.Cache, cfg Config) *Pipeline {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.ConcurrencyLimit <= 0 {
		cfg.ConcurrencyLimit = DefaultConfig().ConcurrencyLimit
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	return &Pipeline{completer: completer, cache: cache, cfg: cfg}
}

// Extract turns one chunk into validated edges. The cache is consulted
// first; on a miss the model is called up to MaxRetries times with the
// repair cascade applied to each response. Extraction failure is terminal
// for the chunk but never an error for the caller.
func (p *Pipeline) Extract(ctx context.Context, text string) Result {
	logger := common.Logger()
	key := respcache.Key(text)
	if cached, ok := p.cache.Get(key); ok {
		if edges, ok := cached.([]Edge); ok {
			telemetry.RecordExtraction(false, false, true)
			return Result{Edges: edges, Success: true, FromCache: true}
		}
	}

	result := Result{}
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		result.Attempts = attempt
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("attempt %d: %v", attempt, err))
			break
		}
		raw, err := p.completer.Complete(ctx, systemPrompt, userPrompt(text), p.cfg.Temperature, p.cfg.MaxTokens)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("attempt %d: completion: %v", attempt, err))
			p.waitRetry(ctx, attempt)
			continue
		}
		edges, strategy, strategyErrs := repairResponse(raw)
		for _, serr := range strategyErrs {
			result.Errors = append(result.Errors, fmt.Sprintf("attempt %d: %v", attempt, serr))
		}
		if len(edges) == 0 {
			p.waitRetry(ctx, attempt)
			continue
		}
		for i := range edges {
			edges[i] = edges[i].normalize()
		}
		result.Edges = edges
		result.Success = true
		result.Strategy = strategy
		p.cache.Set(key, edges)
		telemetry.RecordExtraction(strategy != "array_parse", false, false)
		if strategy != "array_parse" {
			logger.Debug("extract: response repaired", "strategy", strategy, "edges", len(edges))
		}
		return result
	}

	telemetry.RecordExtraction(false, true, false)
	logger.Warn("extract: chunk failed after retries", "attempts", result.Attempts, "errors", len(result.Errors))
	return result
}

func (p *Pipeline) waitRetry(ctx context.Context, attempt int) {
	if attempt >= p.cfg.MaxRetries || p.cfg.RetryDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(p.cfg.RetryDelay):
	}
}

// BatchProcess partitions chunks into sequential batches and extracts the
// chunks of each batch concurrently, bounded by ConcurrencyLimit in-flight
// model calls. onProgress, when non-nil, fires after every chunk completes
// so observers see fine-grained progress rather than batch boundaries.
// Results are returned in chunk order.
func (p *Pipeline) BatchProcess(ctx context.Context, chunks []string, onProgress func(Progress)) []Result {
	results := make([]Result, len(chunks))
	if len(chunks) == 0 {
		return results
	}
	sem := semaphore.NewWeighted(int64(p.cfg.ConcurrencyLimit))
	var mu sync.Mutex
	processed := 0
	totalEdges := 0

	for batchStart := 0; batchStart < len(chunks); batchStart += p.cfg.BatchSize {
		batchEnd := batchStart + p.cfg.BatchSize
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}
		batchIndex := batchStart / p.cfg.BatchSize

		var wg sync.WaitGroup
		for i := batchStart; i < batchEnd; i++ {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = Result{Errors: []string{err.Error()}}
				continue
			}
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer sem.Release(1)
				res := p.Extract(ctx, chunks[i])
				mu.Lock()
				results[i] = res
				processed++
				totalEdges += len(res.Edges)
				progress := Progress{
					ProcessedCount:  processed,
					TotalChunks:     len(chunks),
					TotalEdgesSoFar: totalEdges,
					Batch:           batchIndex,
				}
				mu.Unlock()
				if onProgress != nil {
					onProgress(progress)
				}
			}(i)
		}
		wg.Wait()
		telemetry.RecordIngestBatch(batchEnd - batchStart)
	}
	return results
}
