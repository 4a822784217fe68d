// internal/summarize/retry.go
package summarize

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultMaxRetries  = 3
	defaultBaseBackoff = 1 * time.Second
)

// RetryClient wraps a Client with bounded, idempotent retries for
// transient failures (connection errors, 429, 5xx). It exists as an
// explicit wrapper so the core adapter stays single-call; the
// orchestrator never retries on its own.
type RetryClient struct {
	inner       Client
	maxRetries  int
	baseBackoff time.Duration
}

// WithRetry wraps client with up to maxRetries retries and exponential
// backoff. maxRetries <= 0 selects the default.
func WithRetry(client Client, maxRetries int) *RetryClient {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &RetryClient{
		inner:       client,
		maxRetries:  maxRetries,
		baseBackoff: defaultBaseBackoff,
	}
}

// Summarize calls the wrapped client, retrying transient failures.
func (r *RetryClient) Summarize(ctx context.Context, text string) (Fields, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Fields{}, ctx.Err()
			}
		}

		fields, err := r.inner.Summarize(ctx, text)
		if err == nil {
			return fields, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return Fields{}, err
		}
	}
	return Fields{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	for e := err; e != nil; {
		if _, ok := e.(*retryableError); ok {
			return true
		}
		if unwrapper, ok := e.(interface{ Unwrap() error }); ok {
			e = unwrapper.Unwrap()
		} else {
			break
		}
	}
	return false
}

var _ Client = (*RetryClient)(nil)
