// File path: internal/ingest/runner_test.go
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nicodishanthj/corpusfuse/internal/capability"
	"github.com/nicodishanthj/corpusfuse/internal/entity"
	"github.com/nicodishanthj/corpusfuse/internal/extract"
	"github.com/nicodishanthj/corpusfuse/internal/graphstore"
	"github.com/nicodishanthj/corpusfuse/internal/respcache"
	"github.com/nicodishanthj/corpusfuse/internal/vector"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	docs := map[string]string{
		"climate.txt": "Deforestation reduces Rainfall across the Amazon. Rainfall sustains the Forest canopy.",
		"soil.md":     "Erosion follows Deforestation in the Highlands. Flooding damages Farmland downstream.",
		"notes.bin":   "binary payload that must be ignored",
	}
	for name, content := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func newTestRunner(t *testing.T) (*Runner, *Manager, *graphstore.Store, *vector.MemoryIndex) {
	t.Helper()
	storeCfg := graphstore.DefaultConfig()
	storeCfg.Path = filepath.Join(t.TempDir(), "graph.db")
	store, err := graphstore.OpenWithConfig(storeCfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	provider := capability.NewLocalProvider()
	extractCfg := extract.DefaultConfig()
	extractCfg.RetryDelay = 0
	pipeline := extract.NewPipeline(provider, respcache.New(time.Minute, 64), extractCfg)
	resolver := entity.NewResolver(store, provider, entity.DefaultConfig())
	index := vector.NewMemoryIndex()
	manager := NewManager()
	runner := NewRunner(manager, provider, pipeline, resolver, store, index, DefaultRunnerConfig())
	return runner, manager, store, index
}

func TestRunIngestsCorpusEndToEnd(t *testing.T) {
	runner, manager, store, index := newTestRunner(t)
	dir := writeCorpus(t)
	ctx := context.Background()

	if !runner.Run(ctx, "corpus", dir) {
		t.Fatalf("run must start on an idle job")
	}
	state := manager.GetState("corpus")
	if state.Status != StatusCompleted {
		t.Fatalf("expected completed run, got %s (%s)", state.Status, state.ErrorMessage)
	}
	if state.ProgressPercent != 100 {
		t.Fatalf("expected clamped progress, got %f", state.ProgressPercent)
	}
	if state.Counters["files"] != 2 {
		t.Fatalf("expected the two text documents, got %d", state.Counters["files"])
	}
	if state.Counters["chunks"] == 0 || state.Counters["edges"] == 0 {
		t.Fatalf("expected chunk and edge counters: %+v", state.Counters)
	}
	if index.Len() == 0 {
		t.Fatalf("expected chunk passages in the vector index")
	}
	entities, relations, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if entities == 0 || relations == 0 {
		t.Fatalf("expected resolved graph rows, got %d entities %d relations", entities, relations)
	}
}

func TestRunRefusesConcurrentJob(t *testing.T) {
	runner, manager, _, _ := newTestRunner(t)
	dir := writeCorpus(t)
	if !manager.Start("corpus") {
		t.Fatalf("manual start failed")
	}
	if runner.Run(context.Background(), "corpus", dir) {
		t.Fatalf("run must refuse an already-running job id")
	}
	manager.Complete("corpus", true, "")
}

func TestRunFailsOnEmptyCorpus(t *testing.T) {
	runner, manager, _, _ := newTestRunner(t)
	if !runner.Run(context.Background(), "empty", t.TempDir()) {
		t.Fatalf("run should start and then record the failure")
	}
	state := manager.GetState("empty")
	if state.Status != StatusError {
		t.Fatalf("expected error state for empty corpus, got %s", state.Status)
	}
	if state.ErrorMessage == "" {
		t.Fatalf("error message must be recorded")
	}
}
