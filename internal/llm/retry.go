package llm

import (
	"context"
	"fmt"
	"time"
)

// Default retry parameters.
const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = time.Second
	defaultMultiplier   = 2.0
	defaultMaxDelay     = 10 * time.Second
)

// RetryPolicy runs an operation with bounded retries and exponential backoff.
// Unset fields fall back to the defaults, so a partially filled policy still
// backs off exponentially.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the delay before the second attempt.
	InitialDelay time.Duration
	// Multiplier scales the delay after each failed attempt.
	Multiplier float64
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
	// Retryable decides whether an error is worth another attempt. A nil
	// predicate retries transient provider and network errors.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns the standard policy: 3 attempts, 1s initial
// delay, doubling, capped at 10s, retrying transient errors.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
		Multiplier:   defaultMultiplier,
		MaxDelay:     defaultMaxDelay,
	}
}

// Do runs op until it succeeds, the attempts are exhausted, a non-retryable
// error occurs, or the context is cancelled. The attempt number passed to op
// is 1-indexed. On exhaustion the last error is returned.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransientError
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = defaultMultiplier
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	delay := p.InitialDelay
	if delay <= 0 {
		delay = defaultInitialDelay
	}
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled after %d attempts: %w", attempt-1, ctx.Err())
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * multiplier)
			if delay > maxDelay {
				delay = maxDelay
			}
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
