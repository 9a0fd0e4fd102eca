package es

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
}

type RetryOption func(*retryConfig)

func WithMaxAttempts(n int) RetryOption {
	return func(c *retryConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithBaseDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) {
		if d >= 0 {
			c.baseDelay = d
		}
	}
}

func WithJitterFactor(f float64) RetryOption {
	return func(c *retryConfig) {
		if f >= 0 && f <= 1 {
			c.jitterFactor = f
		}
	}
}

// Retry runs fn with exponential backoff, reattempting only transient
// failures (see IsTransient). The first attempt is immediate; later
// attempts wait baseDelay*2^(n-1) plus jitter. Cancellation between
// attempts aborts with ctx.Err(), leaving no partial state because fn
// only ever commits atomically.
//
// Default schedule: 0ms, 10ms, 20ms, 40ms, 80ms, 160ms (30% jitter).
func Retry(ctx context.Context, fn func(context.Context) error, opts ...RetryOption) error {
	cfg := retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var lastErr error
	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
			jitter := time.Duration(rand.Float64() * float64(delay) * cfg.jitterFactor) //nolint:gosec // jitter only
			select {
			case <-time.After(delay + jitter):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
