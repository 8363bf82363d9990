package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vordr-io/vordr-go/internal/config"
	"github.com/vordr-io/vordr-go/internal/store"
)

// apiKeyHeader carries the server key on every download request.
const apiKeyHeader = "VORDR-API-KEY"

// maxResponseBytes caps how much of a spec response is read. Rulesets
// are a few MB at the extreme; anything larger is a broken server.
const maxResponseBytes = 64 << 20

// HTTPSource downloads rulesets from a spec endpoint. The sinceTime
// query parameter lets the server answer cheap "nothing changed"
// responses.
type HTTPSource struct {
	client *http.Client
	url    string
	apiKey string
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource creates the source from configuration. The underlying
// client enforces the configured request timeout.
func NewHTTPSource(cfg *config.SourceConfig) *HTTPSource {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPSource{
		client: &http.Client{Timeout: timeout},
		url:    cfg.URL,
		apiKey: cfg.APIKey,
	}
}

// Fetch downloads the latest ruleset. A 204 response or a payload with
// has_updates=false both surface as a no-updates ruleset.
func (s *HTTPSource) Fetch(ctx context.Context, sinceTime int64) (*store.Ruleset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build spec request: %w", err)
	}

	q := req.URL.Query()
	q.Set("sinceTime", strconv.FormatInt(sinceTime, 10))
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spec request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotModified {
		return &store.Ruleset{HasUpdates: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("spec endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read spec response: %w", err)
	}

	var rs store.Ruleset
	if err := json.Unmarshal(body, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse spec response: %w", err)
	}
	return &rs, nil
}
