package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses) with this type
// so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. It returns nil for nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is, or wraps, a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Policy configures [Policy.Do].
type Policy struct {
	Attempts int           // total attempts, at least 1
	Delay    time.Duration // delay before the second attempt; doubles after each
}

// DefaultPolicy is 3 attempts starting with a 1 second delay.
var DefaultPolicy = Policy{Attempts: 3, Delay: time.Second}

// Do runs fn under the policy. See [Retry].
func (p Policy) Do(ctx context.Context, fn func() error) error {
	return Retry(ctx, p.Attempts, p.Delay, fn)
}

// Retry executes fn up to attempts times with exponential backoff.
// It only retries errors wrapped with [RetryableError]; other errors are
// returned immediately. The delay doubles after each failed attempt.
// Returns the last error if all attempts fail, or ctx.Err() if cancelled.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryWithBackoff runs fn under [DefaultPolicy].
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return DefaultPolicy.Do(ctx, fn)
}
