package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultMaxRetries is the number of additional attempts after the first.
	DefaultMaxRetries = 2
	// DefaultRetryBackoff is the fixed wait between attempts.
	DefaultRetryBackoff = time.Second
)

// RetryProvider wraps a Provider and retries transport failures and
// 404-class responses with a fixed backoff. Any other status fails at once.
type RetryProvider struct {
	provider   Provider
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// NewRetryProvider wraps provider with the default retry policy.
func NewRetryProvider(provider Provider, logger *slog.Logger) *RetryProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryProvider{
		provider:   provider,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultRetryBackoff,
		logger:     logger,
	}
}

// WithPolicy overrides the retry count and backoff.
func (r *RetryProvider) WithPolicy(maxRetries int, backoff time.Duration) *RetryProvider {
	r.maxRetries = maxRetries
	r.backoff = backoff
	return r
}

func (r *RetryProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff):
			}
		}

		resp, err := r.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !Retryable(err) {
			return nil, err
		}
		r.logger.Warn("completion attempt failed",
			"provider", r.provider.Name(),
			"request", req.Label,
			"attempt", attempt+1,
			"error", err,
		)
	}
	return nil, lastErr
}

// Retryable reports whether err should be retried: transport errors and
// 404 responses are, context cancellation and other statuses are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNotConfigured) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusNotFound
	}
	return true
}
