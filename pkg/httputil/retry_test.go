package httputil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: errors.New("boom")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	permanent := errors.New("not found")
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("permanent error should not retry, got %d calls", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	transient := errors.New("flaky")
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return &RetryableError{Err: transient}
	})
	if !errors.Is(err, transient) {
		t.Fatalf("expected wrapped transient error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected attempt ceiling of 3, got %d calls", calls)
	}
}

func TestRetry_HonorsRetryAfter(t *testing.T) {
	const wait = 50 * time.Millisecond
	calls := 0
	start := time.Now()
	err := Retry(context.Background(), 2, time.Hour, func() error {
		calls++
		if calls == 1 {
			return &RetryAfterError{After: wait, Err: errors.New("rate limited")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < wait {
		t.Errorf("retry-after not honored: slept %v, want at least %v", elapsed, wait)
	}
	// The 1h default backoff must not have been used.
	if elapsed > time.Second {
		t.Errorf("retry slept %v, retry-after should override backoff", elapsed)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 3, time.Minute, func() error {
		return &RetryableError{Err: errors.New("boom")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
