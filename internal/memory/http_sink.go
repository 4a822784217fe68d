// internal/memory/http_sink.go
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultHTTPTimeout = 30 * time.Second

// upsertRequest is the immediate-upsert payload for one observation.
type upsertRequest struct {
	Context      string   `json:"context,omitempty"`
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
}

// HTTPSink delivers each observation immediately as a per-entity upsert
// against a memory service endpoint.
type HTTPSink struct {
	endpoint     string
	contextLabel string
	logger       *zap.Logger
	httpClient   *http.Client
}

// NewHTTPSink creates an HTTP upsert sink.
func NewHTTPSink(endpoint, contextLabel string, logger *zap.Logger) (*HTTPSink, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("memory endpoint is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSink{
		endpoint:     endpoint,
		contextLabel: contextLabel,
		logger:       logger,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}, nil
}

// Record POSTs one observation upsert. Delivery is synchronous; an error
// means the observation was not accepted.
func (s *HTTPSink) Record(ctx context.Context, entity, observation string) error {
	payload := upsertRequest{
		Context:      s.contextLabel,
		Name:         entity,
		EntityType:   entityType,
		Observations: []string{observation},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal upsert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upsert request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upsert rejected (%d): %s", resp.StatusCode, string(body))
	}

	s.logger.Debug("upserted observation", zap.String("entity", entity))
	return nil
}

// Close is a no-op; the HTTP client holds no per-sink resources.
func (s *HTTPSink) Close() error {
	return nil
}

var _ Sink = (*HTTPSink)(nil)
