package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/dag"
	"github.com/kbukum/constellation/dagspec"
)

// THelper provides testing.T integration for running pipelines.
type THelper struct {
	t   *testing.T
	ctx context.Context
}

// T wraps a testing.T to provide pipeline-running helper methods.
//
// Example:
//
//	state := testutil.T(t).Run(spec, []dag.Module{mod}, inputs)
func T(t *testing.T) *THelper {
	return &THelper{
		t:   t,
		ctx: context.Background(),
	}
}

// WithContext sets a custom context for the helper.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Run drives spec to completion with the given modules registered and
// inputs resolved, failing the test on any runtime error.
func (h *THelper) Run(spec *dagspec.DagSpec, modules []dag.Module, inputs map[string]cvalue.CValue) *dag.State {
	h.t.Helper()

	registry := dag.NewRegistry()
	for _, m := range modules {
		registry.SetModule(m)
	}

	resolutions, aerr := dag.ValidateInputs(spec, inputs)
	if aerr != nil {
		h.t.Fatalf("input validation failed: %v", aerr)
	}
	resolved := make(map[string]cvalue.CValue, len(resolutions))
	for _, r := range resolutions {
		resolved[r.DataID] = r.Value
	}

	state, aerr := dag.Run(h.ctx, spec, resolved, dag.RunConfig{
		Registry:      registry,
		ModuleOptions: func(string) dag.ModuleCallOptions { return dag.DefaultModuleCallOptions() },
	})
	if aerr != nil {
		h.t.Fatalf("run failed: %v", aerr)
	}
	return state
}

// Eventually polls cond every 10ms until it returns true or timeout
// elapses, failing the test on timeout.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
