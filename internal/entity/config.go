// File path: internal/entity/config.go
package entity

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the similarity thresholds governing entity deduplication
// and graph retrieval.
type Config struct {
	// EntitySimilarityThreshold is the cosine score at or above which an
	// incoming surface form reuses an existing entity of the same type.
	EntitySimilarityThreshold float64
	// GraphSimilarityThreshold is the cosine score used when matching
	// query nouns against the entity store.
	GraphSimilarityThreshold float64
	// TextMatchLimit caps the deterministic text-match fallback.
	TextMatchLimit int
}

func DefaultConfig() Config {
	return Config{
		EntitySimilarityThreshold: 0.90,
		GraphSimilarityThreshold:  0.5,
		TextMatchLimit:            10,
	}
}

// LoadConfig merges CORPUSFUSE_* environment overrides onto the defaults.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_ENTITY_SIMILARITY")); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 && parsed <= 1 {
			cfg.EntitySimilarityThreshold = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_GRAPH_SIMILARITY")); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 && parsed <= 1 {
			cfg.GraphSimilarityThreshold = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_TEXT_MATCH_LIMIT")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.TextMatchLimit = parsed
		}
	}
	return cfg
}
