// file: internal/retry/retry.go
// version: 1.0.0
// guid: 6e5d4c3b-2a19-4807-9f6e-5d4c3b2a1906

// Package retry runs short, bounded retry loops for operations that fail
// while an upstream producer is still writing companion files. Waits are
// plain timer sleeps that respect context cancellation and never hold
// locks.
package retry

import (
	"context"
	"time"
)

// Policy bounds one retry loop.
type Policy struct {
	// MaxElapsed is the total budget; the operation fails with the last
	// error once it is exhausted.
	MaxElapsed time.Duration
	// Interval is the pause between attempts.
	Interval time.Duration
}

// DefaultPolicy matches the producer write-settle window: a handful of
// attempts over a few seconds.
var DefaultPolicy = Policy{MaxElapsed: 5 * time.Second, Interval: time.Second}

// Do calls fn until it succeeds, the policy budget is exhausted, or ctx
// is canceled. retryable decides whether an error is worth another
// attempt; a nil retryable retries every error. The returned error is the
// last error fn produced, or ctx.Err() on cancellation.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func() error) error {
	deadline := time.Now().Add(p.MaxElapsed)
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if time.Now().Add(p.Interval).After(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Interval):
		}
	}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, retryable func(error) bool, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, retryable, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}
