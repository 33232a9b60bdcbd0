// File path: cmd/corpusfuse/services.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nicodishanthj/corpusfuse/internal/capability"
	"github.com/nicodishanthj/corpusfuse/internal/common"
	"github.com/nicodishanthj/corpusfuse/internal/entity"
	"github.com/nicodishanthj/corpusfuse/internal/extract"
	"github.com/nicodishanthj/corpusfuse/internal/graphstore"
	"github.com/nicodishanthj/corpusfuse/internal/ingest"
	"github.com/nicodishanthj/corpusfuse/internal/respcache"
	"github.com/nicodishanthj/corpusfuse/internal/retriever"
	"github.com/nicodishanthj/corpusfuse/internal/vector"
)

// services wires every pipeline component for the lifetime of one command.
type services struct {
	store        *graphstore.Store
	index        vector.Index
	manager      *ingest.Manager
	runner       *ingest.Runner
	orchestrator *retriever.Orchestrator
	vectorClient *vector.Client
}

func buildServices(ctx context.Context) (*services, error) {
	logger := common.Logger()

	store, err := graphstore.Open("")
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}

	cache := respcache.New(time.Hour, 4096)
	cache.StartSweeper(ctx, 10*time.Minute)

	provider := capability.NewProvider()
	embedder := capability.NewCachedEmbedder(provider, cache)

	var index vector.Index
	var client *vector.Client
	if strings.EqualFold(strings.TrimSpace(os.Getenv("CORPUSFUSE_VECTOR_MODE")), "memory") {
		logger.Info("services: using in-memory vector index")
		index = vector.NewMemoryIndex()
	} else {
		client = vector.NewClient(ctx, vector.LoadConfig())
		if client.Available() {
			index = client
		} else {
			logger.Warn("services: vector service unreachable, using in-memory index")
			index = vector.NewMemoryIndex()
		}
	}

	entityCfg := entity.LoadConfig()
	resolver := entity.NewResolver(store, embedder, entityCfg)
	triples := entity.NewTripleRetriever(store, embedder, capability.NewLocalTagger(), entityCfg)

	pipeline := extract.NewPipeline(provider, cache, extract.LoadConfig())

	manager := ingest.NewManager()
	runner := ingest.NewRunner(manager, embedder, pipeline, resolver, store, index, ingest.DefaultRunnerConfig())

	retrieverCfg := retriever.LoadConfig()
	primary := capability.NewCrossEncoder(capability.LoadCrossEncoderConfig("RERANK_PRIMARY"))
	secondary := capability.NewCrossEncoder(capability.LoadCrossEncoderConfig("RERANK_SECONDARY"))
	orchestrator := retriever.NewOrchestrator(
		retriever.NewVectorRetriever(index, embedder),
		retriever.NewReranker(primary, secondary, embedder),
		triples,
		retriever.NewMerger(retrieverCfg),
		retrieverCfg,
	)

	return &services{
		store:        store,
		index:        index,
		manager:      manager,
		runner:       runner,
		orchestrator: orchestrator,
		vectorClient: client,
	}, nil
}

func (s *services) close() {
	if s.store != nil {
		s.store.Close()
	}
	if s.vectorClient != nil {
		s.vectorClient.Close()
	}
}
