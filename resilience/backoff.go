package resilience

import "time"

// BackoffStrategy names one of the three delay progressions applied
// between module call attempts.
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// ComputeDelay returns the delay before attempt i+1 given attempt i's
// 1-based index, the configured base delay, strategy, and an optional cap
// (zero means uncapped). Fixed: base. Linear: base * i. Exponential:
// base * 2^(i-1).
func ComputeDelay(base time.Duration, attempt int, strategy BackoffStrategy, maxDelay time.Duration) time.Duration {
	var delay time.Duration
	switch strategy {
	case BackoffLinear:
		delay = base * time.Duration(attempt)
	case BackoffExponential:
		delay = base * time.Duration(1<<uint(attempt-1))
	case BackoffFixed:
		fallthrough
	default:
		delay = base
	}
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
