package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryErrWithContext_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := RetryErrWithContext(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryErrWithContext_PersistentFailure(t *testing.T) {
	calls := 0
	err := RetryErrWithContext(context.Background(), 3, 0, func(ctx context.Context) error {
		calls++
		return errors.New("persistent")
	})
	if err == nil || err.Error() != "persistent" {
		t.Fatalf("expected persistent error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryErrWithContext_ZeroTries(t *testing.T) {
	calls := 0
	_ = RetryErrWithContext(context.Background(), 0, 0, func(ctx context.Context) error {
		calls++
		return errors.New("fail")
	})
	if calls != 1 {
		t.Fatalf("expected 1 call for maxTries=0, got %d", calls)
	}
}

func TestRetryErrWithContext_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryErrWithContext(ctx, 5, time.Hour, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryErrWithContext_StopsOnContextError(t *testing.T) {
	calls := 0
	err := RetryErrWithContext(context.Background(), 5, 0, func(ctx context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("LODSTATS_TEST_INT", "12")
	t.Setenv("LODSTATS_TEST_BAD", "twelve")
	t.Setenv("LODSTATS_TEST_DURATION", "1m30s")
	t.Setenv("LODSTATS_TEST_BOOL", "true")

	if got := GetEnvInt("LODSTATS_TEST_INT", 1); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	if got := GetEnvInt64("LODSTATS_TEST_BAD", 7); got != 7 {
		t.Fatalf("expected default 7, got %d", got)
	}
	if got := GetEnvDuration("LODSTATS_TEST_DURATION", 0); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
	if got := GetEnvBool("LODSTATS_TEST_BOOL", false); !got {
		t.Fatalf("expected true")
	}
	if got := GetEnvString("LODSTATS_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
