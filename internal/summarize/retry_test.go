package summarize

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns the queued results in order, then repeats the
// last one.
type scriptedClient struct {
	results []error
	fields  Fields
	calls   int
}

func (s *scriptedClient) Summarize(ctx context.Context, text string) (Fields, error) {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	if err := s.results[idx]; err != nil {
		return Fields{}, err
	}
	return s.fields, nil
}

func fastRetry(inner Client, maxRetries int) *RetryClient {
	r := WithRetry(inner, maxRetries)
	r.baseBackoff = time.Millisecond
	return r
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	inner := &scriptedClient{
		results: []error{
			&retryableError{err: errors.New("rate limited (429)")},
			&retryableError{err: errors.New("server error (500)")},
			nil,
		},
		fields: Fields{Date: "2025-01-15"},
	}

	fields, err := fastRetry(inner, 3).Summarize(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15", fields.Date)
	assert.Equal(t, 3, inner.calls)
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	inner := &scriptedClient{
		results: []error{errors.New("API error (400): bad request")},
	}

	_, err := fastRetry(inner, 3).Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetry_ExhaustsBudget(t *testing.T) {
	inner := &scriptedClient{
		results: []error{&retryableError{err: errors.New("server error (503)")}},
	}

	_, err := fastRetry(inner, 2).Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, 3, inner.calls) // initial attempt + 2 retries
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	inner := &scriptedClient{
		results: []error{&retryableError{err: errors.New("server error (503)")}},
	}
	r := WithRetry(inner, 3)
	r.baseBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.Summarize(ctx, "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(errors.New("plain")))
	assert.True(t, isRetryableError(&retryableError{err: errors.New("x")}))

	// fmt.Errorf-wrapped retryable errors are still detected.
	wrapped := fmt.Errorf("attempt failed: %w", &retryableError{err: errors.New("inner")})
	assert.True(t, isRetryableError(wrapped))
}
