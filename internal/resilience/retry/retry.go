// Package retry provides a policy-driven retry executor with exponential
// backoff and jitter. The executor is stateless: everything it needs is in
// the Policy value it is handed, and it never swallows the final error.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"meetscribe/internal/observability/metrics"
)

// Policy describes how an operation is retried. It is a value object,
// immutable per call; construct it ad hoc or start from a preset.
type Policy struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff factor between attempts.
	Multiplier float64

	// Jitter scales each delay by a uniform random factor in [0.5, 1.0]
	// to avoid synchronized retry storms.
	Jitter bool

	// RetryIf decides whether a failure is worth retrying. A nil predicate
	// retries every error.
	RetryIf func(error) bool
}

// Fast returns a policy for interactive paths where waiting is worse than
// failing: two quick attempts, tight delays.
func Fast() Policy {
	return Policy{
		MaxAttempts: 2,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Standard returns the default policy for API calls.
func Standard() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Slow returns a policy for rate-limited upstreams that need room to
// breathe before the next attempt.
func Slow() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Second,
		MaxDelay:    60 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Persistent returns a policy for background work where eventual success
// matters more than latency.
func Persistent() Policy {
	return Policy{
		MaxAttempts: 6,
		BaseDelay:   1 * time.Second,
		MaxDelay:    2 * time.Minute,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Do invokes fn up to p.MaxAttempts times, sleeping between attempts per
// the policy. It returns nil on the first success. A failure rejected by
// p.RetryIf propagates immediately; the final failure propagates unwrapped
// so callers can match on the original error.
func Do(ctx context.Context, p Policy, fn func() error) error {
	_, err := DoValue(ctx, p, func() (any, error) {
		return nil, fn()
	})
	return err
}

// DoValue is Do for operations that produce a result.
func DoValue(ctx context.Context, p Policy, fn func() (any, error)) (any, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			metrics.RecordRetryAttempt("success")
			if attempt > 1 {
				slog.Info("operation succeeded after retry", slog.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if p.RetryIf != nil && !p.RetryIf(err) {
			metrics.RecordRetryAttempt("abort")
			slog.Warn("non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			return nil, err
		}

		if attempt == p.MaxAttempts {
			metrics.RecordRetryAttempt("exhausted")
			break
		}

		delay := p.delay(attempt)
		metrics.RecordRetryAttempt("retry")
		slog.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.MaxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("retry aborted: %w", ctx.Err())
		}
	}

	return nil, lastErr
}

// delay computes the backoff delay after the given attempt (1-based):
// min(MaxDelay, BaseDelay * Multiplier^(attempt-1)), scaled by a uniform
// factor in [0.5, 1.0] when jitter is enabled.
func (p Policy) delay(attempt int) time.Duration {
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	d := time.Duration(float64(p.BaseDelay) * math.Pow(multiplier, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter {
		// #nosec G404 -- math/rand is fine for backoff jitter; cryptographic
		// randomness is not required here.
		d = time.Duration(float64(d) * (0.5 + rand.Float64()*0.5))
	}
	return d
}
