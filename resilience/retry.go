package resilience

import (
	"context"
	"time"
)

// Attempt records one failed try of a retried call, in order.
type Attempt struct {
	Number int
	Err    error
}

// RetryConfig configures the retry loop composed around one module call.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Delay is the base delay fed into ComputeDelay between attempts.
	Delay time.Duration
	// Backoff selects the delay progression between attempts.
	Backoff BackoffStrategy
	// MaxDelay caps the computed delay when positive.
	MaxDelay time.Duration
	// OnRetry is called after a failed attempt when another try follows.
	OnRetry func(attempt int, err error)
}

// Retry runs fn up to cfg.MaxAttempts times, sleeping
// ComputeDelay(cfg.Delay, attempt, cfg.Backoff, cfg.MaxDelay) between tries.
// Every failed try is recorded and returned so the caller can report
// per-attempt errors. Cancellation during a sleep records ctx.Err() as the
// final attempt and stops early.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, []Attempt, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var attempts []Attempt
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, attempts, nil
		}
		attempts = append(attempts, Attempt{Number: attempt, Err: err})

		if attempt == cfg.MaxAttempts {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		delay := ComputeDelay(cfg.Delay, attempt, cfg.Backoff, cfg.MaxDelay)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				attempts = append(attempts, Attempt{Number: attempt + 1, Err: ctx.Err()})
				return zero, attempts, ctx.Err()
			}
		}
	}
	return zero, attempts, attempts[len(attempts)-1].Err
}

// RetryFunc is Retry for a function with no result.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) ([]Attempt, error) {
	_, attempts, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return attempts, err
}
