// Package summarize wraps the external summarization service.
//
// The adapter makes exactly one network call per invocation. Malformed
// model output is a degraded-but-successful outcome (empty Fields, nil
// error), not a failure: transient formatting drift must not halt the
// pipeline. Retry policy lives in the explicit RetryClient wrapper, see
// retry.go.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	defaultBaseURL  = "https://api.anthropic.com"
	defaultModel    = "claude-3-haiku-20240307"
	defaultMaxChars = 50000
	defaultTimeout  = 60 * time.Second
	maxTokens       = 1024
)

// Rate limiter defaults: 50 requests per minute.
const (
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5
)

// extractionPrompt is the fixed instruction preamble sent ahead of the
// transcript text.
const extractionPrompt = `Summarize this meeting transcript for work planning context.

Extract and return as JSON:
{
  "meeting_title": "Meeting name",
  "date": "YYYY-MM-DD",
  "project_client": "Client or project name",
  "attendees": ["Person1", "Person2"],
  "main_topics": ["Topic discussed"],
  "key_context": ["Important background info mentioned"],
  "implied_work": ["Things that might need follow-up even if not explicit action items"]
}

Keep it concise - this is for background context, not detailed notes.
Only include fields where you have clear information.

Transcript:
`

// Client extracts structured summary fields from raw transcript text.
type Client interface {
	Summarize(ctx context.Context, text string) (Fields, error)
}

// Config configures the Anthropic-backed client.
type Config struct {
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	MaxChars int
}

// anthropicClient implements Client against the Anthropic Messages API.
type anthropicClient struct {
	model      string
	apiKey     string
	baseURL    string
	maxChars   int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a summarization client.
func NewClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}

	return &anthropicClient{
		model:    model,
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		maxChars: maxChars,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}, nil
}

// anthropicRequest represents the request format for the Messages API.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

// anthropicMessage represents a message in the conversation.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse represents the Messages API response.
type anthropicResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// anthropicError represents an API error response.
type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize extracts structured fields from transcript text.
//
// Empty or whitespace-only input returns zero Fields without a network
// call. Input longer than the configured cap is truncated at a character
// boundary before sending.
func (a *anthropicClient) Summarize(ctx context.Context, text string) (Fields, error) {
	if strings.TrimSpace(text) == "" {
		return Fields{}, nil
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return Fields{}, fmt.Errorf("rate limiter error: %w", err)
	}

	scrubbed := scrubSecrets(text)
	if len(scrubbed) > a.maxChars {
		scrubbed = scrubbed[:a.maxChars]
	}

	req := anthropicRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		Messages: []anthropicMessage{
			{
				Role:    "user",
				Content: extractionPrompt + scrubbed,
			},
		},
	}

	return a.doRequest(ctx, req)
}

// doRequest performs the single HTTP request to the API.
func (a *anthropicClient) doRequest(ctx context.Context, req anthropicRequest) (Fields, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return Fields{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return Fields{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", a.apiKey)
	httpReq.Header.Set("Anthropic-Version", "2023-06-01")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return Fields{}, &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fields{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Fields{}, &retryableError{err: fmt.Errorf("rate limited (429)")}
	}
	if resp.StatusCode >= 500 {
		return Fields{}, &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))}
	}
	if resp.StatusCode != http.StatusOK {
		var errResp anthropicError
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return Fields{}, fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return Fields{}, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return Fields{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(apiResp.Content) == 0 {
		return Fields{}, nil
	}

	return ParseFields(apiResp.Content[0].Text), nil
}

// ParseFields parses the model's free-text response into Fields.
//
// LLMs sometimes wrap the JSON object in a markdown code fence, with or
// without a language tag; both fences are stripped before parsing. Parse
// failure returns zero Fields, never an error.
func ParseFields(content string) Fields {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var fields Fields
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return Fields{}
	}
	return fields
}

var _ Client = (*anthropicClient)(nil)
