package dag

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperr "github.com/kbukum/constellation/errors"

	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/dagspec"
	"github.com/kbukum/constellation/logger"
	"github.com/kbukum/constellation/observability"
	"github.com/kbukum/constellation/resilience"
	"github.com/kbukum/constellation/transform"
)

// ModuleOptionsFunc resolves the ModuleCallOptions a module should be fired
// under, keyed by its ModuleMetadata.Name. Returning the same value for
// every name is a valid implementation (a single run-wide default).
type ModuleOptionsFunc func(moduleName string) ModuleCallOptions

// RunConfig bundles everything Run needs beyond the DagSpec and the
// already-resolved top-level values.
type RunConfig struct {
	Registry      *Registry
	ModuleOptions ModuleOptionsFunc
	Deps          WrapperDeps
	// Concurrency caps how many modules may fire at once across the whole
	// run, independent of batch size. Zero means unlimited.
	Concurrency int

	// Logger, when non-nil, records one line per module firing.
	Logger *logger.Logger
	// Metrics, when non-nil, records firing counts, durations, and errors.
	Metrics *observability.Metrics
	// TraceSpanPrefix, when non-empty, opens a span named
	// "{prefix}.{moduleName}" around each firing.
	TraceSpanPrefix string
}

// Run drives spec to completion given resolved, the data node ids already
// known (user inputs the caller validated, plus anything carried over from a
// prior suspension). It never itself decides whether a partial result should
// be suspended — that policy belongs to the suspension package, which
// compares the returned State against spec.UserInputIDs() to find what's
// still missing. A batch whose module depends on a cell that never resolves
// (a missing input, or an upstream module's failure) simply never fires;
// Run returns the partial State rather than an error in that case.
func Run(ctx context.Context, spec *dagspec.DagSpec, resolved map[string]cvalue.CValue, cfg RunConfig) (*State, *apperr.AppError) {
	ids := make([]string, 0, len(spec.Data))
	for id := range spec.Data {
		ids = append(ids, id)
	}
	state := NewState(ids)
	for id, v := range resolved {
		if cell := state.Cell(id); cell != nil && !cell.IsSet() {
			state.Write(id, v)
		}
	}
	return RunFromState(ctx, spec, state, cfg)
}

// RunFromState drives spec to completion starting from a caller-assembled
// State rather than a fresh one seeded only from resolved. A resume uses
// this directly: it builds a State carrying both a suspension's
// previously-computed values and its previously-fired module statuses (so a
// module already marked Fired is not re-run), which Run's own State
// construction has no way to express.
func RunFromState(ctx context.Context, spec *dagspec.DagSpec, state *State, cfg RunConfig) (*State, *apperr.AppError) {
	batches, aerr := ComputeBatches(spec)
	if aerr != nil {
		return nil, aerr
	}

	if err := evalDerivedNodes(spec, state); err != nil {
		return state, err
	}

	sem := newSchedulerBulkhead(cfg.Concurrency)

	for i, batch := range batches {
		if len(batch.ModuleIDs) > 0 {
			if cfg.Logger != nil {
				cfg.Logger.Debug("firing batch", logger.BatchFields(spec.Metadata.Name, i, len(batch.ModuleIDs)))
			}
			fireBatch(ctx, spec, state, batch, cfg, sem)
		}
		if err := evalDerivedNodes(spec, state); err != nil {
			return state, err
		}
	}

	return state, nil
}

// fireBatch fires every runnable module in batch concurrently, respecting
// cfg.Concurrency (enforced by sem) and ordering higher-priority modules
// first among those competing for the gate. A module is skipped (left
// Unfired) if any of its consumed cells never resolved — this is the only
// way a correctly batched DAG can fail to have a dependency ready, and it
// mirrors how an upstream module's failure silently stalls everything
// downstream. A module already recorded Fired (carried over by a resume) is
// skipped too, so RunFromState never re-invokes it.
func fireBatch(ctx context.Context, spec *dagspec.DagSpec, state *State, batch Batch, cfg RunConfig, sem *resilience.Bulkhead) {
	runnable := make([]string, len(batch.ModuleIDs))
	copy(runnable, batch.ModuleIDs)
	sort.SliceStable(runnable, func(i, j int) bool {
		return spec.Modules[runnable[i]].Config.Priority > spec.Modules[runnable[j]].Config.Priority
	})

	var wg sync.WaitGroup
	for _, moduleID := range runnable {
		moduleID := moduleID
		if state.Status(moduleID).Tag == StatusFired {
			continue
		}
		// A module whose every output was already resolved (an operator
		// override supplied on resume) has nothing left to produce.
		if produced := spec.ProducedDataOf(moduleID); len(produced) > 0 && allCellsResolved(state, produced) {
			continue
		}
		if !allCellsResolved(state, spec.ConsumedDataOf(moduleID)) {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem == nil {
				fireModule(ctx, spec, state, moduleID, cfg)
				return
			}
			_ = sem.Execute(ctx, func() error {
				fireModule(ctx, spec, state, moduleID, cfg)
				return nil
			})
		}()
	}
	wg.Wait()
}

func fireModule(ctx context.Context, spec *dagspec.DagSpec, state *State, moduleID string, cfg RunConfig) {
	mod := spec.Modules[moduleID]

	inputs := make(map[string]cvalue.CValue, len(mod.Consumes))
	for _, dataID := range spec.ConsumedDataOf(moduleID) {
		dn := spec.Data[dataID]
		paramName, ok := dn.Nicknames[moduleID]
		if !ok {
			paramName = dn.Name
		}
		inputs[paramName] = state.Value(dataID)
	}

	impl := cfg.Registry.GetModuleByName(mod.Metadata.Name)
	if impl == nil {
		state.SetStatus(moduleID, Failed(fmt.Errorf("dag: no module registered for name %q", mod.Metadata.Name)))
		return
	}

	opts := DefaultModuleCallOptions()
	if cfg.ModuleOptions != nil {
		opts = cfg.ModuleOptions(mod.Metadata.Name)
	}
	if mod.Config.ModuleTimeoutMs > 0 && opts.TimeoutMs == 0 {
		opts.TimeoutMs = mod.Config.ModuleTimeoutMs
	}

	call := instrument(mod.Metadata.Name, cfg, Wrap(mod.Metadata.Name, opts, cfg.Deps, impl.Call))

	start := time.Now()
	outputs, err := call(ctx, inputs)
	latency := time.Since(start).Nanoseconds()

	if err != nil {
		if apperr.IsAppError(err) {
			ae, _ := apperr.AsAppError(err)
			timedOut := ae.Code == apperr.ErrCodeModuleTimeout
			// A retried call reports RetryExhausted; it still counts as Timed
			// when its final attempt was the one cut off by the timeout.
			if attempts, ok := ae.Details["attempts"].([]apperr.AttemptError); ok && ae.Code == apperr.ErrCodeRetryExhausted && len(attempts) > 0 {
				last, isApp := apperr.AsAppError(attempts[len(attempts)-1].Err)
				timedOut = isApp && last.Code == apperr.ErrCodeModuleTimeout
			}
			if timedOut {
				state.SetStatus(moduleID, Timed(latency))
				return
			}
		}
		state.SetStatus(moduleID, Failed(err))
		return
	}

	fallbackCtx := ""
	if v, ok := outputs[fallbackOutputKey]; ok && len(mod.Produces) == 1 {
		for name := range mod.Produces {
			outputs = map[string]cvalue.CValue{name: v}
		}
		fallbackCtx = "fallback"
	}

	for _, dataID := range spec.ProducedDataOf(moduleID) {
		dn := spec.Data[dataID]
		outName, ok := dn.Nicknames[moduleID]
		if !ok {
			outName = dn.Name
		}
		v, ok := outputs[outName]
		if !ok {
			state.SetStatus(moduleID, Failed(fmt.Errorf("dag: module %q did not produce output %q", mod.Metadata.Name, outName)))
			return
		}
		// An override resolved on resume keeps the cell's existing value.
		if state.IsResolved(dataID) {
			continue
		}
		state.Write(dataID, v)
	}
	state.SetStatus(moduleID, Fired(latency, fallbackCtx))
}

// evalDerivedNodes evaluates every inline-derived data node whose transform
// inputs are all resolved and which is not yet itself resolved, repeating to
// a fixpoint so a chain of transforms resolves in one pass.
func evalDerivedNodes(spec *dagspec.DagSpec, state *State) *apperr.AppError {
	for {
		progressed := false
		for _, id := range spec.InlineDerivedIDs() {
			if state.IsResolved(id) {
				continue
			}
			dn := spec.Data[id]
			if !allCellsResolved(state, transformInputValues(dn.TransformInputs)) {
				continue
			}
			if transform.HasMissingClosure(dn.InlineTransform) {
				return apperr.TransformClosureMissing(id)
			}

			rawInputs := make(map[string]transform.RawValue, len(dn.TransformInputs))
			for paramName, srcID := range dn.TransformInputs {
				rv, err := cvalue.ToRaw(state.Value(srcID))
				if err != nil {
					return apperr.CodecError(fmt.Sprintf("data node %q: converting input %q", id, paramName), err)
				}
				rawInputs[paramName] = rv
			}

			result, err := transform.Eval(dn.InlineTransform, rawInputs)
			if err != nil {
				return apperr.CodecError(fmt.Sprintf("data node %q: evaluating inline transform", id), err)
			}
			cv, err := cvalue.FromRaw(dn.CType, result)
			if err != nil {
				return apperr.CodecError(fmt.Sprintf("data node %q: converting transform result", id), err)
			}
			state.Write(id, cv)
			progressed = true
		}
		if !progressed {
			return nil
		}
	}
}

func allCellsResolved(state *State, dataIDs []string) bool {
	for _, id := range dataIDs {
		if !state.IsResolved(id) {
			return false
		}
	}
	return true
}

// newSchedulerBulkhead builds the global concurrency cap a Run/RunFromState
// enforces across all batches, implemented with resilience.Bulkhead rather
// than a bare semaphore so
// it shares the same acquire/release/observability shape as the optional
// bulkhead wrapper in wrapper.go. MaxWait is set far longer than any
// realistic run so a slot is always eventually granted (subject to ctx
// cancellation) rather than rejected outright, which is what "cap" means
// here, not "fail when busy".
func newSchedulerBulkhead(limit int) *resilience.Bulkhead {
	if limit <= 0 {
		return nil
	}
	return resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "scheduler",
		MaxConcurrent: limit,
		MaxWait:       24 * time.Hour,
	})
}
