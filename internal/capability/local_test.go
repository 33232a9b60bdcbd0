// File path: internal/capability/local_test.go
package capability

import (
	"context"
	"testing"
	"time"

	"github.com/nicodishanthj/corpusfuse/internal/respcache"
)

func TestHashEmbeddingDeterministicAndNormalized(t *testing.T) {
	a := hashEmbedding("deforestation reduces rainfall")
	b := hashEmbedding("deforestation reduces rainfall")
	if len(a) != localEmbeddingDim {
		t.Fatalf("unexpected dimension %d", len(a))
	}
	var norm float64
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding must be deterministic")
		}
		norm += float64(a[i]) * float64(a[i])
	}
	if norm < 0.99 || norm > 1.01 {
		t.Fatalf("embedding must be unit length, got %f", norm)
	}
}

func TestLocalTaggerMarksNounsAndStopwords(t *testing.T) {
	tagger := NewLocalTagger()
	tokens, err := tagger.Tag(context.Background(), "How does deforestation affect rainfall in 2024?")
	if err != nil {
		t.Fatalf("tag: %v", err)
	}
	tags := make(map[string]string, len(tokens))
	for _, token := range tokens {
		tags[token.Token] = token.Tag
	}
	if tags["deforestation"] != "NN" || tags["rainfall"] != "NN" {
		t.Fatalf("content words must be nouns: %v", tags)
	}
	if tags["How"] == "NN" || tags["does"] == "NN" || tags["affect"] == "NN" {
		t.Fatalf("stopwords must not be nouns: %v", tags)
	}
	if tags["2024"] != "CD" {
		t.Fatalf("digits must tag as cardinal numbers: %v", tags)
	}
}

func TestLocalCompleteEmitsParseableEdges(t *testing.T) {
	provider := NewLocalProvider()
	out, err := provider.Complete(context.Background(), "system", "Deforestation reduces Rainfall across the Amazon.", 0, 0)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out == "[]" || out == "" {
		t.Fatalf("expected edges for capitalized terms, got %q", out)
	}
}

type countingEmbedder struct {
	inner Embedder
	calls int
	texts int
}

func (c *countingEmbedder) Embed(ctx context.Context, input []string) ([][]float32, error) {
	c.calls++
	c.texts += len(input)
	return c.inner.Embed(ctx, input)
}

func TestCachedEmbedderOnlyEmbedsMisses(t *testing.T) {
	counting := &countingEmbedder{inner: NewLocalProvider()}
	cached := NewCachedEmbedder(counting, respcache.New(time.Minute, 64))
	ctx := context.Background()

	first, err := cached.Embed(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, err := cached.Embed(ctx, []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if counting.texts != 3 {
		t.Fatalf("expected only misses to reach the backend, got %d texts", counting.texts)
	}
	if len(second) != 3 || len(first) != 2 {
		t.Fatalf("unexpected result shapes")
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("cached vector must match the original")
		}
	}
}
