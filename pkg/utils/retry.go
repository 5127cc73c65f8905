package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry calls fn until it succeeds, returns an error retryable rejects, or
// attempts run out. The delay starts at baseDelay and doubles after every
// failed attempt. The last error from fn is returned, also when ctx ends the
// wait early.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, retryable func(error) bool, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = baseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	var lastErr error
	err := backoff.Retry(func() error {
		lastErr = fn(ctx)
		if lastErr != nil && (retryable == nil || !retryable(lastErr)) {
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx))

	if err != nil && lastErr != nil {
		return lastErr
	}
	return err
}
