// File path: internal/vector/config.go
package vector

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host       string
	Port       string
	Scheme     string
	Collection string
	APIKey     string

	Timeout time.Duration

	HTTPMaxIdleConns    int
	HTTPMaxIdlePerHost  int
	HTTPMaxConnsPerHost int
	HTTPIdleConnTimeout time.Duration
}

// Merge overlays the non-zero fields of override onto c.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.Host) != "" {
		result.Host = strings.TrimSpace(override.Host)
	}
	if strings.TrimSpace(override.Port) != "" {
		result.Port = strings.TrimSpace(override.Port)
	}
	if strings.TrimSpace(override.Scheme) != "" {
		result.Scheme = strings.TrimSpace(override.Scheme)
	}
	if strings.TrimSpace(override.Collection) != "" {
		result.Collection = strings.TrimSpace(override.Collection)
	}
	if strings.TrimSpace(override.APIKey) != "" {
		result.APIKey = override.APIKey
	}
	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	if override.HTTPMaxIdleConns > 0 {
		result.HTTPMaxIdleConns = override.HTTPMaxIdleConns
	}
	if override.HTTPMaxIdlePerHost > 0 {
		result.HTTPMaxIdlePerHost = override.HTTPMaxIdlePerHost
	}
	if override.HTTPMaxConnsPerHost > 0 {
		result.HTTPMaxConnsPerHost = override.HTTPMaxConnsPerHost
	}
	if override.HTTPIdleConnTimeout > 0 {
		result.HTTPIdleConnTimeout = override.HTTPIdleConnTimeout
	}
	return result
}

func DefaultConfig() Config {
	return Config{
		Host:                "localhost",
		Port:                "8000",
		Scheme:              "http",
		Collection:          "corpusfuse_passages",
		Timeout:             10 * time.Second,
		HTTPMaxIdleConns:    64,
		HTTPMaxIdlePerHost:  16,
		HTTPIdleConnTimeout: 90 * time.Second,
	}
}

// LoadConfig merges CORPUSFUSE_VECTOR_* environment overrides onto the
// defaults.
func LoadConfig() Config {
	cfg := DefaultConfig()
	env := Config{
		Host:       os.Getenv("CORPUSFUSE_VECTOR_HOST"),
		Port:       os.Getenv("CORPUSFUSE_VECTOR_PORT"),
		Scheme:     os.Getenv("CORPUSFUSE_VECTOR_SCHEME"),
		Collection: os.Getenv("CORPUSFUSE_VECTOR_COLLECTION"),
		APIKey:     os.Getenv("CORPUSFUSE_VECTOR_API_KEY"),
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_VECTOR_TIMEOUT")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			env.Timeout = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_VECTOR_MAX_IDLE_CONNS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			env.HTTPMaxIdleConns = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_VECTOR_MAX_IDLE_PER_HOST")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			env.HTTPMaxIdlePerHost = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("CORPUSFUSE_VECTOR_IDLE_CONN_TIMEOUT")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			env.HTTPIdleConnTimeout = parsed
		}
	}
	return cfg.Merge(env)
}
