// File path: internal/capability/capability.go

// Package capability defines the narrow interfaces through which the core
// pipeline consumes external models, plus the bundled providers. Every
// capability is usable as a local library call or a remote service call;
// the pipeline never depends on a concrete backend.
package capability

import "context"

// Embedder produces fixed-dimensionality vectors for text. Results are
// deterministic for identical input within one deployment.
type Embedder interface {
	Embed(ctx context.Context, input []string) ([][]float32, error)
}

// Completer performs a non-streaming completion against a language model.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)
}

// Scorer rates the joint relevance of a (query, passage) pair. Higher is
// more relevant.
type Scorer interface {
	Score(ctx context.Context, query, passage string) (float64, error)
	Available() bool
}

// TaggedToken is one (token, part-of-speech tag) pair.
type TaggedToken struct {
	Token string
	Tag   string
}

// Tagger annotates text with part-of-speech tags. Noun tags start with
// "NN" following the Penn treebank convention.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]TaggedToken, error)
}

// Provider groups the model-backed capabilities a deployment supplies
// from a single backend.
type Provider interface {
	Embedder
	Completer
	Name() string
}
