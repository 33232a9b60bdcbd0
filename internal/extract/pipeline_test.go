// File path: internal/extract/pipeline_test.go
package extract

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nicodishanthj/corpusfuse/internal/respcache"
)

// scriptedCompleter replays canned responses in order, then repeats the
// last one. It counts calls so tests can assert retry behavior.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (s *scriptedCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	return s.responses[idx], nil
}

func (s *scriptedCompleter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = 0
	return cfg
}

func TestExtractParsesCleanResponse(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"[" + validEdge + "]"}}
	pipeline := NewPipeline(completer, respcache.New(time.Minute, 16), testConfig())

	result := pipeline.Extract(context.Background(), "some chunk")
	if !result.Success || result.FromCache {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Edges) != 1 || result.Edges[0].Relation != "REDUCES" {
		t.Fatalf("unexpected edges: %+v", result.Edges)
	}
	if result.Strategy != "array_parse" {
		t.Fatalf("clean response must parse strictly, got %q", result.Strategy)
	}
}

func TestExtractCachesByChunkHash(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"[" + validEdge + "]"}}
	pipeline := NewPipeline(completer, respcache.New(time.Minute, 16), testConfig())
	ctx := context.Background()

	first := pipeline.Extract(ctx, "chunk")
	second := pipeline.Extract(ctx, "chunk")
	if !second.FromCache {
		t.Fatalf("second extraction must hit the cache")
	}
	if len(second.Edges) != len(first.Edges) {
		t.Fatalf("cache must return the same edges")
	}
	if completer.callCount() != 1 {
		t.Fatalf("expected a single model call, got %d", completer.callCount())
	}
}

func TestExtractRetriesUntilRepairableResponse(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		"no json here",
		"still nothing",
		"[" + validEdge + "]",
	}}
	pipeline := NewPipeline(completer, respcache.New(time.Minute, 16), testConfig())

	result := pipeline.Extract(context.Background(), "chunk")
	if !result.Success {
		t.Fatalf("expected success on the third attempt: %+v", result.Errors)
	}
	if result.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", result.Attempts)
	}
	if len(result.Errors) == 0 {
		t.Fatalf("earlier strategy errors must be recorded")
	}
}

func TestExtractExhaustsRetriesWithoutRaising(t *testing.T) {
	completer := &scriptedCompleter{
		responses: []string{""},
		errs:      []error{errors.New("backend down")},
	}
	pipeline := NewPipeline(completer, respcache.New(time.Minute, 16), testConfig())

	result := pipeline.Extract(context.Background(), "chunk")
	if result.Success || len(result.Edges) != 0 {
		t.Fatalf("expected empty failure result: %+v", result)
	}
	if result.Attempts != 3 {
		t.Fatalf("expected retries to be exhausted, got %d attempts", result.Attempts)
	}
	if len(result.Errors) != 3 {
		t.Fatalf("expected one recorded error per attempt, got %d", len(result.Errors))
	}
}

func TestBatchProcessReportsPerChunkProgress(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"[" + validEdge + "]"}}
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.ConcurrencyLimit = 2
	pipeline := NewPipeline(completer, respcache.New(time.Minute, 16), cfg)

	chunks := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	var mu sync.Mutex
	var updates []Progress
	results := pipeline.BatchProcess(context.Background(), chunks, func(p Progress) {
		mu.Lock()
		updates = append(updates, p)
		mu.Unlock()
	})

	if len(results) != len(chunks) {
		t.Fatalf("expected %d results, got %d", len(chunks), len(results))
	}
	for i, res := range results {
		if !res.Success {
			t.Fatalf("chunk %d failed: %+v", i, res.Errors)
		}
	}
	if len(updates) != len(chunks) {
		t.Fatalf("expected one progress update per chunk, got %d", len(updates))
	}
	// Updates from concurrent chunks may arrive out of order; every
	// cumulative count must still appear exactly once.
	seen := make(map[int]bool)
	for _, update := range updates {
		if seen[update.ProcessedCount] {
			t.Fatalf("duplicate processed count %d", update.ProcessedCount)
		}
		seen[update.ProcessedCount] = true
		if update.TotalEdgesSoFar != update.ProcessedCount {
			t.Fatalf("edge total out of step: %+v", update)
		}
	}
	for i := 1; i <= len(chunks); i++ {
		if !seen[i] {
			t.Fatalf("missing progress update for count %d", i)
		}
	}
}
