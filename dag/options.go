package dag

import (
	"time"

	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/resilience"
)

// ModuleCallOptions configures the execution wrappers composed around one
// module invocation: fallback -> retry -> timeout -> module body, outside
// in.
type ModuleCallOptions struct {
	TimeoutMs int64

	Retry    int
	DelayMs  int64
	Backoff  resilience.BackoffStrategy
	MaxDelay time.Duration

	HasFallback bool
	FallbackVal cvalue.CValue

	OnRetry    func(attempt int, err error)
	OnFallback func(err error)
}

// DefaultModuleCallOptions returns the zero-wrapper configuration: no
// timeout, no retry, no fallback. A module either succeeds or fails on its
// first and only attempt.
func DefaultModuleCallOptions() ModuleCallOptions {
	return ModuleCallOptions{Backoff: resilience.BackoffFixed}
}

// ExecutionOptions is the per-run flag set controlling both metadata
// collection and wrapper knobs: each knob that is set overrides the engine's
// configured default for every module in the run.
type ExecutionOptions struct {
	IncludeTimings           bool
	IncludeProvenance        bool
	IncludeBlockedGraph      bool
	IncludeResolutionSources bool

	Retry     *int
	TimeoutMs *int64
	Fallback  *cvalue.CValue
	Backoff   resilience.BackoffStrategy
	MaxDelay  *time.Duration
}
