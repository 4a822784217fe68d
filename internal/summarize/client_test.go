package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer returns a fake Messages API endpoint that replies with
// the given text content, plus a pointer to the number of calls seen.
func newTestServer(t *testing.T, responseText string) (*httptest.Server, *int, *string) {
	t.Helper()
	calls := 0
	var lastUserContent string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("Anthropic-Version"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req anthropicRequest
		require.NoError(t, json.Unmarshal(body, &req))
		require.Len(t, req.Messages, 1)
		lastUserContent = req.Messages[0].Content

		resp := map[string]any{
			"id":   "msg_test",
			"type": "message",
			"role": "assistant",
			"content": []map[string]string{
				{"type": "text", "text": responseText},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &lastUserContent
}

func newTestClient(t *testing.T, baseURL string, maxChars int) Client {
	t.Helper()
	c, err := NewClient(Config{
		APIKey:   "test-key",
		BaseURL:  baseURL,
		MaxChars: maxChars,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestSummarize_EmptyInputSkipsCall(t *testing.T) {
	srv, calls, _ := newTestServer(t, "{}")
	c := newTestClient(t, srv.URL, 0)

	for _, input := range []string{"", "   ", "\n\t  \n"} {
		fields, err := c.Summarize(context.Background(), input)
		require.NoError(t, err)
		assert.True(t, fields.IsEmpty())
	}
	assert.Equal(t, 0, *calls)
}

func TestSummarize_ParsesFields(t *testing.T) {
	srv, calls, _ := newTestServer(t, `{
		"meeting_title": "Asurion Weekly",
		"date": "2025-09-22",
		"main_topics": ["Roadmap", "Budget"],
		"key_context": ["Q1 deadline"],
		"implied_work": ["Prep doc"]
	}`)
	c := newTestClient(t, srv.URL, 0)

	fields, err := c.Summarize(context.Background(), "transcript text")
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, "Asurion Weekly", fields.MeetingTitle)
	assert.Equal(t, "2025-09-22", fields.Date)
	assert.Equal(t, []string{"Roadmap", "Budget"}, fields.MainTopics)
	assert.False(t, fields.IsEmpty())
}

func TestSummarize_TruncatesLongInput(t *testing.T) {
	srv, _, lastContent := newTestServer(t, "{}")
	c := newTestClient(t, srv.URL, 100)

	long := strings.Repeat("a", 500)
	_, err := c.Summarize(context.Background(), long)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(*lastContent, extractionPrompt))
	sent := strings.TrimPrefix(*lastContent, extractionPrompt)
	assert.Len(t, sent, 100)
}

func TestSummarize_UnparseableOutputIsDegradedSuccess(t *testing.T) {
	srv, _, _ := newTestServer(t, "Sorry, I could not produce JSON today.")
	c := newTestClient(t, srv.URL, 0)

	fields, err := c.Summarize(context.Background(), "transcript text")
	require.NoError(t, err)
	assert.True(t, fields.IsEmpty())
}

func TestSummarize_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv.URL, 0)

	_, err := c.Summarize(context.Background(), "transcript text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad model")
	assert.False(t, isRetryableError(err))
}

func TestSummarize_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv.URL, 0)

	_, err := c.Summarize(context.Background(), "transcript text")
	require.Error(t, err)
	assert.True(t, isRetryableError(err))
}

func TestSummarize_RateLimitedIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv.URL, 0)

	_, err := c.Summarize(context.Background(), "transcript text")
	require.Error(t, err)
	assert.True(t, isRetryableError(err))
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Fields
	}{
		{
			name:    "bare JSON",
			content: `{"date":"2025-01-15","main_topics":["Roadmap"]}`,
			want:    Fields{Date: "2025-01-15", MainTopics: []string{"Roadmap"}},
		},
		{
			name:    "json fence",
			content: "```json\n{\"date\":\"2025-01-15\"}\n```",
			want:    Fields{Date: "2025-01-15"},
		},
		{
			name:    "bare fence",
			content: "```\n{\"date\":\"2025-01-15\"}\n```",
			want:    Fields{Date: "2025-01-15"},
		},
		{
			name:    "surrounding whitespace",
			content: "  \n {\"date\":\"2025-01-15\"} \n ",
			want:    Fields{Date: "2025-01-15"},
		},
		{
			name:    "not JSON",
			content: "I had trouble with that transcript.",
			want:    Fields{},
		},
		{
			name:    "empty",
			content: "",
			want:    Fields{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFields(tt.content))
		})
	}
}

func TestScrubSecrets(t *testing.T) {
	in := "deploy with ANTHROPIC_API_KEY=sk-ant-REDACTED then log in, password: hunter42 done"
	out := scrubSecrets(in)

	assert.NotContains(t, out, "sk-ant-REDACTED")
	assert.NotContains(t, out, "hunter42")
	assert.Contains(t, out, "[REDACTED")
}

func TestFieldsIsEmpty(t *testing.T) {
	assert.True(t, Fields{}.IsEmpty())
	assert.False(t, Fields{Date: "2025-01-01"}.IsEmpty())
	assert.False(t, Fields{Attendees: []string{"A"}}.IsEmpty())
}
