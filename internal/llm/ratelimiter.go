package llm

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// RateLimitedProvider spaces diagram requests to at most rpm per minute,
// allowing a burst of rpm after an idle minute.
type RateLimitedProvider struct {
	provider Provider
	interval time.Duration
	burst    float64
	logger   *slog.Logger

	mu     sync.Mutex
	tokens float64
	last   time.Time
	now    func() time.Time
}

// NewRateLimitedProvider wraps provider with a limit of rpm requests per
// minute. rpm <= 0 returns provider unchanged.
func NewRateLimitedProvider(provider Provider, rpm int, logger *slog.Logger) Provider {
	if rpm <= 0 {
		return provider
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimitedProvider{
		provider: provider,
		interval: time.Minute / time.Duration(rpm),
		burst:    float64(rpm),
		logger:   logger,
		tokens:   float64(rpm),
		last:     time.Now(),
		now:      time.Now,
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.wait(ctx, req.Label); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// take consumes a request slot, or returns how long until one frees up.
func (r *RateLimitedProvider) take() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.tokens = math.Min(r.burst, r.tokens+float64(now.Sub(r.last))/float64(r.interval))
	r.last = now

	if r.tokens >= 1 {
		r.tokens--
		return 0
	}
	return time.Duration((1 - r.tokens) * float64(r.interval))
}

func (r *RateLimitedProvider) wait(ctx context.Context, label string) error {
	for {
		delay := r.take()
		if delay == 0 {
			return nil
		}
		r.logger.Debug("diagram request waiting for rate limit",
			"provider", r.provider.Name(),
			"request", label,
			"delay", delay.Round(time.Millisecond),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
