package registry

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig controls retry behavior for transient registry failures.
type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryConfig returns retry settings suited to a rate-limited
// registry API.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       4,
		BackoffBase:       500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        8 * time.Second,
	}
}

// calculateBackoff computes exponential backoff duration with jitter.
// Jitter prevents thundering herd when multiple clients retry simultaneously.
func (rc RetryConfig) calculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= rc.BackoffMultiplier
	}

	backoff := time.Duration(float64(rc.BackoffBase) * multiplier)
	if backoff > rc.MaxBackoff {
		backoff = rc.MaxBackoff
	}

	// Add jitter: +/- 25% to prevent synchronized retries
	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}

// withRetry runs fn, retrying transient failures with exponential backoff.
// Fatal errors return immediately. Context cancellation wins over any
// pending backoff wait.
func withRetry(ctx context.Context, rc RetryConfig, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= rc.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsFatal(err) || !IsTransient(err) {
			return err
		}

		if attempt < rc.MaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(rc.calculateBackoff(attempt)):
			}
		}
	}
	return lastErr
}
