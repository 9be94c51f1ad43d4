// Package retry provides a reusable retry policy for fallible operations.
package retry

import (
	"context"
	"time"
)

// Policy describes how an operation is retried. The zero value performs a
// single attempt with no delay.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int

	// Delay is the wait before the first retry.
	Delay time.Duration

	// Multiplier scales the delay after each retry. Values <= 1 keep the
	// delay fixed.
	Multiplier float64

	// MaxDelay caps the backoff. Zero means uncapped.
	MaxDelay time.Duration

	// RetryIf decides whether an error is worth retrying. Nil retries all.
	RetryIf func(error) bool
}

// Fixed returns a fixed-delay policy with the given attempt count.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delay: delay}
}

// Backoff returns an exponential policy doubling up to maxDelay.
func Backoff(attempts int, initial, maxDelay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delay: initial, Multiplier: 2.0, MaxDelay: maxDelay}
}

// Do runs op until it succeeds, the attempts are exhausted, the error is not
// retryable, or ctx is cancelled. The last error is returned unwrapped so
// callers can inspect it with errors.Is/As.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.Delay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if p.RetryIf != nil && !p.RetryIf(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if p.Multiplier > 1 {
			delay = time.Duration(float64(delay) * p.Multiplier)
			if p.MaxDelay > 0 && delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}
	}
	return lastErr
}
