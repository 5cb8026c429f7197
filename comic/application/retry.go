package application

import (
	"context"
	"time"

	"github.com/dfryer1193/dailycomic/comic/domain"
	"github.com/rs/zerolog/log"
)

// RetryPolicy controls how Retry repeats a failing operation.
type RetryPolicy struct {
	MaxAttempts int
	// Backoff returns how long to wait after the given (1-based) failed attempt.
	Backoff func(attempt int) time.Duration
	// Retryable decides whether an error is worth another attempt. Defaults to domain.IsNetworkError.
	Retryable func(err error) bool
	// Sleep waits for d or until ctx is done. Defaults to a timer honouring ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ExponentialBackoff returns base * 2^(attempt-1): base, 2*base, 4*base, ...
func ExponentialBackoff(base time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

// Retry runs op until it succeeds, returns a non-retryable error, or MaxAttempts is reached.
// There is no wait after the final attempt.
func Retry[T any](ctx context.Context, policy RetryPolicy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	maxAttempts := max(policy.MaxAttempts, 1)
	retryable := policy.Retryable
	if retryable == nil {
		retryable = domain.IsNetworkError
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) || attempt == maxAttempts {
			break
		}

		var wait time.Duration
		if policy.Backoff != nil {
			wait = policy.Backoff(attempt)
		}
		log.Debug().Err(err).Str("op", name).Int("attempt", attempt).Dur("backoff", wait).Msg("Attempt failed, retrying")

		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
