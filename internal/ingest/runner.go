// File path: internal/ingest/runner.go
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/nicodishanthj/corpusfuse/internal/capability"
	"github.com/nicodishanthj/corpusfuse/internal/common"
	"github.com/nicodishanthj/corpusfuse/internal/entity"
	"github.com/nicodishanthj/corpusfuse/internal/extract"
	"github.com/nicodishanthj/corpusfuse/internal/graphstore"
	"github.com/nicodishanthj/corpusfuse/internal/simmath"
	"github.com/nicodishanthj/corpusfuse/internal/vector"
)

// RunnerConfig tunes corpus walking and chunking.
type RunnerConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{ChunkSize: 1200, ChunkOverlap: 200}
}

// Runner drives one ingestion job: it walks a corpus directory, chunks
// each document, upserts chunk passages into the vector index, extracts
// edges from each chunk, and resolves them into graph entities and
// relations, reporting progress through the job manager throughout.
type Runner struct {
	manager  *Manager
	embedder capability.Embedder
	pipeline *extract.Pipeline
	resolver *entity.Resolver
	store    *graphstore.Store
	index    vector.Index
	cfg      RunnerConfig
}

func NewRunner(manager *Manager, embedder capability.Embedder, pipeline *extract.Pipeline, resolver *entity.Resolver, store *graphstore.Store, index vector.Index, cfg RunnerConfig) *Runner {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultRunnerConfig().ChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = DefaultRunnerConfig().ChunkOverlap
	}
	return &Runner{
		manager:  manager,
		embedder: embedder,
		pipeline: pipeline,
		resolver: resolver,
		store:    store,
		index:    index,
		cfg:      cfg,
	}
}

type chunk struct {
	id     string
	text   string
	source string
}

// Run executes the job synchronously and returns false when the job id is
// already running. Callers wanting a background run launch it on their own
// goroutine and observe progress through the manager.
func (r *Runner) Run(ctx context.Context, jobID, corpusDir string) bool {
	if !r.manager.Start(jobID) {
		return false
	}
	// recoveries surface as job errors, not process crashes
	defer func() {
		if rec := recover(); rec != nil {
			r.manager.Complete(jobID, false, fmt.Sprintf("ingestion panic: %v", rec))
		}
	}()
	if err := r.run(ctx, jobID, corpusDir); err != nil {
		common.Logger().Error("ingest: run failed", "job", jobID, "error", err)
		r.manager.Complete(jobID, false, err.Error())
		return true
	}
	r.manager.Complete(jobID, true, "")
	return true
}

func (r *Runner) run(ctx context.Context, jobID, corpusDir string) error {
	logger := common.Logger()

	r.setPhase(jobID, "scanning", 2, "walking corpus directory")
	files, err := corpusFiles(corpusDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .txt or .md documents under %s", corpusDir)
	}
	r.addCounter(jobID, "files", len(files))

	r.setPhase(jobID, "chunking", 10, "splitting documents")
	chunks, err := r.chunkFiles(jobID, files)
	if err != nil {
		return err
	}
	r.addCounter(jobID, "chunks", len(chunks))
	logger.Info("ingest: corpus chunked", "job", jobID, "files", len(files), "chunks", len(chunks))

	r.setPhase(jobID, "embedding", 30, "embedding and indexing passages")
	if err := r.indexChunks(ctx, chunks); err != nil {
		logger.Warn("ingest: vector indexing degraded", "job", jobID, "error", err)
		r.addCounter(jobID, "index_failures", 1)
	}

	r.setPhase(jobID, "extracting", 50, "extracting entity-relation edges")
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.text
	}
	results := r.pipeline.BatchProcess(ctx, texts, func(p extract.Progress) {
		progress := 50 + 35*float64(p.ProcessedCount)/float64(p.TotalChunks)
		r.manager.Update(jobID, func(state *JobState) {
			state.ProgressPercent = progress
			state.Message = fmt.Sprintf("extracted %d/%d chunks", p.ProcessedCount, p.TotalChunks)
			state.Counters["edges"] = p.TotalEdgesSoFar
		})
	})

	r.setPhase(jobID, "resolving", 85, "resolving edges into the graph")
	r.resolveEdges(ctx, jobID, chunks, results)
	return nil
}

func (r *Runner) chunkFiles(jobID string, files []string) ([]chunk, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(r.cfg.ChunkSize),
		textsplitter.WithChunkOverlap(r.cfg.ChunkOverlap),
	)
	var chunks []chunk
	for _, path := range files {
		r.manager.Update(jobID, func(state *JobState) { state.CurrentFile = path })
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		parts, err := splitter.SplitText(string(data))
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", path, err)
		}
		for _, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			chunks = append(chunks, chunk{id: uuid.NewString(), text: part, source: path})
		}
	}
	return chunks, nil
}

func (r *Runner) indexChunks(ctx context.Context, chunks []chunk) error {
	if r.index == nil || !r.index.Available() || len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.text
	}
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	points := make([]vector.Point, 0, len(chunks))
	for i, c := range chunks {
		var vec []float32
		if i < len(vectors) {
			vec = simmath.NormalizeAny(vectors[i])
		}
		points = append(points, vector.Point{
			ID:       c.id,
			Text:     c.text,
			Vector:   vec,
			Metadata: map[string]interface{}{"source": c.source},
		})
	}
	return r.index.Upsert(ctx, points)
}

func (r *Runner) resolveEdges(ctx context.Context, jobID string, chunks []chunk, results []extract.Result) {
	logger := common.Logger()
	entities := 0
	relations := 0
	skipped := 0
	for i, result := range results {
		source := ""
		if i < len(chunks) {
			source = chunks[i].source
		}
		for _, edge := range result.Edges {
			headID := r.resolver.Resolve(ctx, edge.Head, edge.HeadType, source)
			tailID := r.resolver.Resolve(ctx, edge.Tail, edge.TailType, source)
			if headID == graphstore.InvalidID || tailID == graphstore.InvalidID {
				skipped++
				continue
			}
			entities += 2
			if _, err := r.store.InsertRelation(ctx, headID, tailID, edge.Relation, source); err != nil {
				logger.Warn("ingest: relation insert failed", "job", jobID, "relation", edge.Relation, "error", err)
				skipped++
				continue
			}
			relations++
		}
	}
	r.manager.Update(jobID, func(state *JobState) {
		state.Counters["entities_resolved"] = entities
		state.Counters["relations"] = relations
		state.Counters["edges_skipped"] = skipped
		state.ProgressPercent = 95
		state.Message = "graph resolution complete"
	})
}

func (r *Runner) setPhase(jobID, phase string, progress float64, message string) {
	r.manager.Update(jobID, func(state *JobState) {
		state.Phase = phase
		state.ProgressPercent = progress
		state.Message = message
	})
}

func (r *Runner) addCounter(jobID, key string, delta int) {
	r.manager.Update(jobID, func(state *JobState) {
		state.Counters[key] += delta
	})
}

func corpusFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus %s: %w", dir, err)
	}
	return files, nil
}
