package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"reelsmith/internal/logging"
)

// RetryConfig controls the retry loop.
type RetryConfig struct {
	MaxRetries int           // Additional attempts after the first
	BaseDelay  time.Duration // Delay before the first retry
	Base       float64       // Exponential growth factor
	MaxDelay   time.Duration // Ceiling for the pre-jitter delay
	Jitter     float64       // Fractional jitter, e.g. 0.25 for ±25%
}

// DefaultRetryConfig returns the standard backoff schedule:
// 1s, 2s, 4s, ... capped at 32s, ±25% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1000 * time.Millisecond,
		Base:       2,
		MaxDelay:   32000 * time.Millisecond,
		Jitter:     0.25,
	}
}

// Backoff returns the pre-jitter delay for a 0-indexed attempt:
// min(BaseDelay * Base^attempt, MaxDelay).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.BaseDelay) * math.Pow(c.Base, float64(attempt)))
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// jittered applies ±Jitter to a delay.
func (c RetryConfig) jittered(d time.Duration) time.Duration {
	if c.Jitter <= 0 || d <= 0 {
		return d
	}
	span := float64(d) * c.Jitter
	offset := (rand.Float64()*2 - 1) * span
	out := time.Duration(float64(d) + offset)
	if out < 0 {
		out = 0
	}
	return out
}

// Operation is a unit of external work executed under retry protection.
type Operation func(ctx context.Context) error

// ExecuteWithRetry runs op up to MaxRetries+1 times. It stops immediately,
// returning the classified error, when the failure is not retryable or
// attempts are exhausted.
func ExecuteWithRetry(ctx context.Context, op Operation, config RetryConfig) error {
	var last *ClassifiedError

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := config.jittered(config.Backoff(attempt - 1))
			logging.ResilienceDebug("retry %d/%d after %s (%s)",
				attempt, config.MaxRetries, delay.Round(time.Millisecond), last.Category)
			if err := sleepWithContext(ctx, delay); err != nil {
				return Classify(err)
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		last = Classify(err)
		if !last.Retryable {
			return last
		}
	}

	return last
}

// sleepWithContext sleeps for d, returning early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
