// File path: internal/retriever/config.go

// Package retriever composes a query answer context: dense passage
// retrieval, the rerank cascade, graph triple retrieval, and the token
// budgeted merge.
package retriever

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// TopK passages fetched from the vector index per query.
	TopK int
	// TopKRerank passages kept after reranking.
	TopKRerank int
	// ContextWindowTokens is the full model context window the merged
	// context must fit a fraction of.
	ContextWindowTokens int
	// MaxContextFraction of the window allotted to retrieved context.
	MaxContextFraction float64
}

func DefaultConfig() Config {
	return Config{
		TopK:                10,
		TopKRerank:          3,
		ContextWindowTokens: 8192,
		MaxContextFraction:  0.4,
	}
}

// LoadConfig merges CORPUSFUSE_RETRIEVER_* environment overrides onto the
// defaults.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_RETRIEVER_TOP_K")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.TopK = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_RETRIEVER_TOP_K_RERANK")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.TopKRerank = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_CONTEXT_WINDOW")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.ContextWindowTokens = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_CONTEXT_FRACTION")); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 && parsed <= 1 {
			cfg.MaxContextFraction = parsed
		}
	}
	return cfg
}
