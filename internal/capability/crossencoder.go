// File path: internal/capability/crossencoder.go
package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nicodishanthj/corpusfuse/internal/common"
)

// CrossEncoderConfig describes one rerank service endpoint. Primary and
// secondary checkpoints are configured independently so a failure to
// reach one never blocks the other.
type CrossEncoderConfig struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// LoadCrossEncoderConfig reads the config for the given prefix
// (RERANK_PRIMARY or RERANK_SECONDARY) from the environment.
func LoadCrossEncoderConfig(prefix string) CrossEncoderConfig {
	cfg := CrossEncoderConfig{
		Endpoint: strings.TrimSpace(os.Getenv(prefix + "_ENDPOINT")),
		Model:    strings.TrimSpace(os.Getenv(prefix + "_MODEL")),
		APIKey:   strings.TrimSpace(os.Getenv(prefix + "_API_KEY")),
		Timeout:  15 * time.Second,
	}
	if raw := strings.TrimSpace(os.Getenv(prefix + "_TIMEOUT")); raw != "" {
		if dur, err := time.ParseDuration(raw); err == nil && dur > 0 {
			cfg.Timeout = dur
		}
	}
	return cfg
}

// CrossEncoder scores (query, passage) pairs against a remote
// cross-encoder service speaking the common /rerank protocol.
type CrossEncoder struct {
	httpClient *http.Client
	endpoint   string
	model      string
	apiKey     string
}

// NewCrossEncoder builds a client for the configured endpoint. A client
// with no endpoint is valid but reports Available() == false, which the
// rerank cascade treats as a skip.
func NewCrossEncoder(cfg CrossEncoderConfig) *CrossEncoder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CrossEncoder{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
	}
}

func (c *CrossEncoder) Available() bool {
	return c != nil && c.endpoint != ""
}

// Score rates one (query, passage) pair; higher is more relevant.
func (c *CrossEncoder) Score(ctx context.Context, query, passage string) (float64, error) {
	scores, err := c.ScoreBatch(ctx, query, []string{passage})
	if err != nil {
		return 0, err
	}
	if len(scores) == 0 {
		return 0, errors.New("rerank service returned no scores")
	}
	return scores[0], nil
}

// ScoreBatch rates every passage against the query in one round trip.
func (c *CrossEncoder) ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error) {
	if !c.Available() {
		return nil, errors.New("rerank service not configured")
	}
	if len(passages) == 0 {
		return nil, nil
	}
	payload := map[string]interface{}{
		"query":     query,
		"passages":  passages,
		"raw_score": true,
	}
	if c.model != "" {
		payload["model"] = c.model
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/rerank", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank service %s failed: %s", c.endpoint, strings.TrimSpace(string(body)))
	}
	var decoded struct {
		Scores  []float64 `json:"scores"`
		Results []struct {
			Index int     `json:"index"`
			Score float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	if len(decoded.Scores) > 0 {
		return decoded.Scores, nil
	}
	// Some servers answer with indexed results instead of a flat array.
	if len(decoded.Results) > 0 {
		scores := make([]float64, len(passages))
		for _, res := range decoded.Results {
			if res.Index >= 0 && res.Index < len(scores) {
				scores[res.Index] = res.Score
			}
		}
		return scores, nil
	}
	common.Logger().Warn("capability: rerank response carried no scores", "endpoint", c.endpoint)
	return nil, errors.New("rerank service returned no scores")
}
