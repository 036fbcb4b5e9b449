// Package retry provides the single parameterized retry policy shared by
// every cache coordinator and the cart write-back.
package retry

import (
	"context"
	"time"
)

// Policy bounds retries for one logical operation. Retryable decides which
// failures are worth another attempt; everything else aborts immediately.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   func(error) bool
}

// Default returns the policy used when nothing is configured: the original
// attempt plus one retry of transient failures.
func Default(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 2,
		Delay:       250 * time.Millisecond,
		Retryable:   retryable,
	}
}

// Do runs op up to MaxAttempts times, sleeping Delay*attempt between
// attempts. It returns the last error, or the context error if the caller
// gave up first.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(p.Delay * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
