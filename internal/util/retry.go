package util

import (
	"context"
	"errors"
	"time"
)

// RetryWithContext calls fn up to maxTries times until it returns a nil error
// or ctx is done, sleeping backoff*attempt between attempts.
// Cancellation and deadline errors are never retried.
func RetryWithContext[T any](ctx context.Context, maxTries int, backoff time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zero T
	for i := 0; i < maxTries; i++ {
		if i > 0 && backoff > 0 {
			if err := sleepContext(ctx, backoff*time.Duration(i)); err != nil {
				return zero, err
			}
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if isContextErr(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

// RetryErrWithContext is RetryWithContext for functions without a result.
func RetryErrWithContext(ctx context.Context, maxTries int, backoff time.Duration, fn func(context.Context) error) error {
	_, err := RetryWithContext(ctx, maxTries, backoff, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
