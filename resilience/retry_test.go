package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	result, attempts, err := Retry(context.Background(), RetryConfig{MaxAttempts: 3}, func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected 'ok', got %q", result)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if len(attempts) != 0 {
		t.Fatalf("expected no failed attempts, got %d", len(attempts))
	}
}

func TestRetry_FailThenSucceed(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	result, attempts, err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, boom
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Fatalf("expected 42, got %d", result)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 failed attempts, got %d", len(attempts))
	}
	for i, a := range attempts {
		if a.Number != i+1 {
			t.Fatalf("expected attempt %d numbered %d, got %d", i, i+1, a.Number)
		}
		if !errors.Is(a.Err, boom) {
			t.Fatalf("expected boom recorded, got %v", a.Err)
		}
	}
}

func TestRetry_Exhaustion(t *testing.T) {
	boom := errors.New("boom")
	_, attempts, err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, Delay: time.Millisecond}, func() (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the last error, got %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected 3 recorded attempts, got %d", len(attempts))
	}
	if attempts[2].Number != 3 {
		t.Fatalf("expected final attempt numbered 3, got %d", attempts[2].Number)
	}
}

func TestRetry_OnRetryHook(t *testing.T) {
	boom := errors.New("boom")
	var hookAttempts []int
	_, _, _ = Retry(context.Background(), RetryConfig{
		MaxAttempts: 3,
		Delay:       time.Millisecond,
		OnRetry:     func(attempt int, err error) { hookAttempts = append(hookAttempts, attempt) },
	}, func() (int, error) {
		return 0, boom
	})
	// The hook fires between attempts, never after the last one.
	if len(hookAttempts) != 2 || hookAttempts[0] != 1 || hookAttempts[1] != 2 {
		t.Fatalf("expected hook on attempts [1 2], got %v", hookAttempts)
	}
}

func TestRetry_CancelDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	boom := errors.New("boom")
	calls := 0
	_, attempts, err := Retry(ctx, RetryConfig{MaxAttempts: 5, Delay: time.Minute}, func() (int, error) {
		calls++
		cancel()
		return 0, boom
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected the cancellation recorded as a final attempt, got %d", len(attempts))
	}
	if !errors.Is(attempts[1].Err, context.Canceled) {
		t.Fatalf("expected cancellation in the attempt record, got %v", attempts[1].Err)
	}
}

func TestRetry_ZeroMaxAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, attempts, err := Retry(context.Background(), RetryConfig{}, func() (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 || len(attempts) != 1 {
		t.Fatalf("expected exactly 1 attempt, got calls=%d attempts=%d", calls, len(attempts))
	}
}

func TestRetryFunc(t *testing.T) {
	calls := 0
	attempts, err := RetryFunc(context.Background(), RetryConfig{MaxAttempts: 2, Delay: time.Millisecond}, func() error {
		calls++
		if calls == 1 {
			return errors.New("once")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 failed attempt, got %d", len(attempts))
	}
}

func TestComputeDelay(t *testing.T) {
	base := 100 * time.Millisecond
	tests := []struct {
		name     string
		attempt  int
		strategy BackoffStrategy
		maxDelay time.Duration
		want     time.Duration
	}{
		{"fixed attempt 1", 1, BackoffFixed, 0, base},
		{"fixed attempt 3", 3, BackoffFixed, 0, base},
		{"linear attempt 1", 1, BackoffLinear, 0, base},
		{"linear attempt 3", 3, BackoffLinear, 0, 300 * time.Millisecond},
		{"exponential attempt 1", 1, BackoffExponential, 0, base},
		{"exponential attempt 4", 4, BackoffExponential, 0, 800 * time.Millisecond},
		{"exponential capped", 4, BackoffExponential, 250 * time.Millisecond, 250 * time.Millisecond},
		{"unknown strategy falls back to fixed", 3, BackoffStrategy("bogus"), 0, base},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeDelay(base, tc.attempt, tc.strategy, tc.maxDelay)
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
