package dag

import (
	"context"

	"github.com/kbukum/constellation/cvalue"
)

// Module is a side-effecting computation with a declared input/output
// contract. Implementations are registered by name in a Registry and fired
// by the scheduler once every consumed data node has a value.
type Module interface {
	// Name identifies this module for registry lookup, circuit breaker
	// keying, and provenance reporting.
	Name() string
	// Call invokes the module body. inputs is keyed by the consumes param
	// name; the returned map must be keyed by the produces param name.
	Call(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error)
}

// ModuleFunc adapts a plain function to the Module interface.
type ModuleFunc struct {
	FuncName string
	Fn       func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error)
}

func (m ModuleFunc) Name() string { return m.FuncName }

func (m ModuleFunc) Call(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
	return m.Fn(ctx, inputs)
}

// StatusTag discriminates the variant of a module's firing Status.
type StatusTag string

const (
	StatusUnfired StatusTag = "Unfired"
	StatusFired   StatusTag = "Fired"
	StatusFailed  StatusTag = "Failed"
	StatusTimed   StatusTag = "Timed"
)

// Status is the tagged sum of a module's outcome for one run, recorded by
// the scheduler in the per-run module-status table.
type Status struct {
	Tag     StatusTag
	Latency int64  // nanoseconds; set for Fired and Timed
	Err     error  // set for Failed
	Context string // e.g. "fallback" when Fired via a substituted value
}

// Unfired is the status of every module before the scheduler reaches its
// batch.
func Unfired() Status { return Status{Tag: StatusUnfired} }

// Fired reports a successful invocation (or a fallback substitution, in
// which case ctx should be "fallback").
func Fired(latencyNanos int64, ctx string) Status {
	return Status{Tag: StatusFired, Latency: latencyNanos, Context: ctx}
}

// Failed reports an invocation that exhausted its wrappers without
// producing a value.
func Failed(err error) Status { return Status{Tag: StatusFailed, Err: err} }

// Timed reports an invocation whose final attempt was cancelled by its
// per-attempt timeout.
func Timed(latencyNanos int64) Status { return Status{Tag: StatusTimed, Latency: latencyNanos} }
