package adapter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseType(t *testing.T) {
	for _, name := range []string{"console", "pipe", "redis", "webhook"} {
		if _, err := ParseType(name); err != nil {
			t.Errorf("ParseType(%q) error = %v", name, err)
		}
	}
	if _, err := ParseType("s3"); err == nil {
		t.Error("ParseType(s3) should fail")
	}
}

func fastBackoff(t *testing.T) {
	t.Helper()
	prev := BackoffBase
	BackoffBase = time.Millisecond
	t.Cleanup(func() { BackoffBase = prev })
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	fastBackoff(t)

	calls := 0
	err := Retry(t.Context(), "test", 3, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_Exhausts(t *testing.T) {
	fastBackoff(t)

	calls := 0
	cause := errors.New("down")
	err := Retry(t.Context(), "test", 2, func(context.Context) error {
		calls++
		return cause
	})

	if !errors.Is(err, cause) {
		t.Fatalf("Retry() error = %v, want wrapping %v", err, cause)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (1 initial + 2 retries)", calls)
	}
}

func TestRetry_PermanentStops(t *testing.T) {
	fastBackoff(t)

	calls := 0
	cause := errors.New("bad request")
	err := Retry(t.Context(), "test", 5, func(context.Context) error {
		calls++
		return &PermanentError{Err: cause}
	})

	if !errors.Is(err, cause) {
		t.Fatalf("Retry() error = %v, want wrapping %v", err, cause)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	called := false
	err := Retry(ctx, "test", 3, func(context.Context) error {
		called = true
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
	if called {
		t.Error("attempt called with canceled context")
	}
}
