package resilience

import (
	"context"
	"time"
)

// Retry calls fn up to attempts times, waiting delay between failures, and
// returns the last error. Each call gets its own timeout when timeout > 0.
func Retry(ctx context.Context, attempts int, delay, timeout time.Duration, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		lastErr = fn(callCtx)
		cancel()
		if lastErr == nil {
			return nil
		}

		if onRetry != nil {
			onRetry(attempt, lastErr)
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}
