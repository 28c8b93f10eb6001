package util

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetryWithContext_PersistentFailure(t *testing.T) {
	calls := 0
	_, err := RetryWithContext(context.Background(), 3, 0, func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("persistent")
	})
	if err == nil || err.Error() != "persistent" {
		t.Fatalf("expected persistent error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithContext_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := RetryWithContext(ctx, 3, 0, func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected 0 calls, got %d", calls)
	}
}

func TestRetryErrWithContext_DeadlineNotRetried(t *testing.T) {
	calls := 0
	err := RetryErrWithContext(context.Background(), 5, 0, func(ctx context.Context) error {
		calls++
		return fmt.Errorf("call: %w", context.DeadlineExceeded)
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithContext_BackoffInterruptedByCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	start := time.Now()
	_, err := RetryWithContext(ctx, 3, time.Hour, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if time.Since(start) > time.Second {
		t.Fatal("backoff sleep ignored cancellation")
	}
}
