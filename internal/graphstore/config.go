// File path: internal/graphstore/config.go
package graphstore

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the SQLite connection pool backing the graph store.
type Config struct {
	Path string

	MaxOpenConns int
	MaxIdleConns int

	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	BusyTimeout     time.Duration
}

// DefaultConfig returns the pool settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Path:            "corpusfuse_graph.db",
		MaxOpenConns:    8,
		MaxIdleConns:    4,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		BusyTimeout:     5 * time.Second,
	}
}

// LoadConfig merges CORPUSFUSE_GRAPH_* environment overrides onto the
// defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if path := strings.TrimSpace(os.Getenv("CORPUSFUSE_GRAPH_DB")); path != "" {
		cfg.Path = path
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_GRAPH_MAX_OPEN_CONNS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.MaxOpenConns = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_GRAPH_MAX_IDLE_CONNS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			cfg.MaxIdleConns = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_GRAPH_BUSY_TIMEOUT")); raw != "" {
		if dur, err := time.ParseDuration(raw); err == nil && dur > 0 {
			cfg.BusyTimeout = dur
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_GRAPH_CONN_MAX_LIFETIME")); raw != "" {
		if dur, err := time.ParseDuration(raw); err == nil && dur > 0 {
			cfg.ConnMaxLifetime = dur
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_GRAPH_CONN_MAX_IDLE_TIME")); raw != "" {
		if dur, err := time.ParseDuration(raw); err == nil && dur > 0 {
			cfg.ConnMaxIdleTime = dur
		}
	}
	return cfg, nil
}
