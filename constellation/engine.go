// Package constellation is the facade a host process embeds: register
// modules, register pipelines, and run them by reference or by value.
package constellation

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperr "github.com/kbukum/constellation/errors"

	"github.com/kbukum/constellation/config"
	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/dag"
	"github.com/kbukum/constellation/dagspec"
	"github.com/kbukum/constellation/logger"
	"github.com/kbukum/constellation/observability"
	"github.com/kbukum/constellation/resilience"
	"github.com/kbukum/constellation/sse"
	"github.com/kbukum/constellation/suspension"
	"github.com/kbukum/constellation/version"
)

// RunStatus is the tri-state outcome of a run.
type RunStatus string

const (
	StatusCompleted RunStatus = "Completed"
	StatusSuspended RunStatus = "Suspended"
	StatusFailed    RunStatus = "Failed"
)

// DataSignature is what a run yields: its outcome, the resolved outputs
// (empty when Suspended; for a Failed run, only the declared outputs that
// did resolve), the metadata report, and the inputs the caller originally
// supplied.
type DataSignature struct {
	Status   RunStatus
	Outputs  map[string]cvalue.CValue
	Metadata *dag.ExecutionMetadata
	Inputs   map[string]cvalue.CValue
}

// Constellation is the facade: a module registry, a pipeline-by-reference
// registry, and the resilience collaborators every run shares.
type Constellation struct {
	cfg         *config.EngineConfig
	registry    *dag.Registry
	deps        dag.WrapperDeps
	store       suspension.Store
	broadcaster sse.Broadcaster

	pipelinesMu sync.RWMutex
	pipelines   map[string]*dagspec.DagSpec
}

// Init constructs a Constellation from cfg, wiring a fresh module registry,
// an in-memory suspension store by default (callers needing persistence
// across restarts swap it with SetStore(suspension.NewFileStore(...))), and
// a circuit breaker registry keyed by module name.
func Init(cfg *config.EngineConfig) *Constellation {
	return &Constellation{
		cfg:       cfg,
		registry:  dag.NewRegistry(),
		deps:      dag.WrapperDeps{Breakers: resilience.NewCircuitBreakerRegistry(nil)},
		store:     suspension.NewMemoryStore(),
		pipelines: make(map[string]*dagspec.DagSpec),
	}
}

// InitFromConfig boots an engine the way a host process does: load the
// engine config (config.yml plus environment), initialize the global logger
// from its logging block, seed the named-logger registry with the engine's
// component names, and back suspensions with a codec-validated file store
// rooted at cfg.SuspensionStoreDir.
func InitFromConfig(opts ...config.LoaderOption) (*Constellation, error) {
	cfg, err := config.LoadEngineConfig(opts...)
	if err != nil {
		return nil, err
	}

	logger.Init(&cfg.Logging)
	logger.RegisterDefaults("dag", "suspension", "constellation", "sse")

	c := Init(cfg)
	c.SetStore(suspension.NewFileStore(cfg.SuspensionStoreDir, true))
	logger.EngineRegistryInstance.RegisterStore("suspensions", "file", cfg.SuspensionStoreDir)
	return c, nil
}

// SetStore replaces the suspension store a Suspended run persists to.
func (c *Constellation) SetStore(store suspension.Store) {
	c.store = store
}

// SetModule registers m, replacing any prior registration under the same
// name.
func (c *Constellation) SetModule(m dag.Module) {
	c.registry.SetModule(m)
	logger.EngineRegistryInstance.RegisterModule(m.Name())
}

// GetModules returns every registered module, sorted by name.
func (c *Constellation) GetModules() []dag.Module {
	return c.registry.GetModules()
}

// GetModuleByName returns the module registered under name, or nil.
func (c *Constellation) GetModuleByName(name string) dag.Module {
	return c.registry.GetModuleByName(name)
}

// RegisterPipeline makes spec resolvable by ref through RunRef. Compiling a
// DagSpec from a pipeline source is outside this engine's scope; callers
// hand it a fully-built DagSpec and a name for later lookup.
func (c *Constellation) RegisterPipeline(ref string, spec *dagspec.DagSpec) {
	c.pipelinesMu.Lock()
	defer c.pipelinesMu.Unlock()
	c.pipelines[ref] = spec
	logger.EngineRegistryInstance.RegisterPipeline(ref, spec.Metadata.Name, len(spec.Modules), len(spec.DeclaredOutputs))
}

// Version reports the engine's build version.
func (c *Constellation) Version() string {
	return version.GetFullVersion()
}

// DumpConfig renders the engine's effective configuration as YAML, for an
// operator inspecting what a config-booted engine actually resolved to.
// Returns nil for an engine constructed with Init rather than
// InitFromConfig, since there is nothing to dump.
func (c *Constellation) DumpConfig() ([]byte, error) {
	if c.cfg == nil {
		return nil, nil
	}
	return config.DumpEffectiveConfig(c.cfg)
}

// CheckHealth aggregates the health of the engine's components: the
// suspension store (probed with a List) and, when the broadcaster is
// health-checkable (an sse.Service), the event transport.
func (c *Constellation) CheckHealth(ctx context.Context) *observability.ServiceHealth {
	checkers := []observability.HealthChecker{storeChecker{store: c.store}}
	if hc, ok := c.broadcaster.(observability.HealthChecker); ok {
		checkers = append(checkers, hc)
	}
	return observability.CheckAll(ctx, "constellation", version.GetShortVersion(), checkers...)
}

type storeChecker struct {
	store suspension.Store
}

func (s storeChecker) CheckHealth(_ context.Context) observability.Health {
	if s.store == nil {
		return observability.Health{Name: "suspension-store", Status: observability.HealthStatusDown, Message: "no store configured"}
	}
	if _, err := s.store.List(suspension.Filter{}); err != nil {
		return observability.Health{Name: "suspension-store", Status: observability.HealthStatusDown, Message: err.Error()}
	}
	return observability.Health{Name: "suspension-store", Status: observability.HealthStatusUp}
}

// Run executes an already-loaded DagSpec with the given inputs and options.
func (c *Constellation) Run(ctx context.Context, spec *dagspec.DagSpec, inputs map[string]cvalue.CValue, opts dag.ExecutionOptions) (*DataSignature, *apperr.AppError) {
	return c.run(ctx, spec, inputs, opts)
}

// RunRef resolves ref against the pipelines registered via RegisterPipeline
// and runs it. An unknown ref fails PipelineNotFoundError.
func (c *Constellation) RunRef(ctx context.Context, ref string, inputs map[string]cvalue.CValue, opts dag.ExecutionOptions) (*DataSignature, *apperr.AppError) {
	c.pipelinesMu.RLock()
	spec, ok := c.pipelines[ref]
	c.pipelinesMu.RUnlock()
	if !ok {
		return nil, apperr.PipelineNotFoundError(ref)
	}
	return c.run(ctx, spec, inputs, opts)
}

// Resume loads the suspension saved under handle, merges in additional
// inputs and manually resolved nodes, and re-drives the graph. A completed
// resume deletes the checkpoint; a still-incomplete one is re-suspended
// under its original executionId with an incremented resumptionCount.
func (c *Constellation) Resume(ctx context.Context, handle suspension.SuspensionHandle, in suspension.ResumeInput, opts dag.ExecutionOptions) (*DataSignature, *apperr.AppError) {
	suspended, found, err := c.store.Load(handle)
	if err != nil {
		return nil, apperr.CodecError(fmt.Sprintf("loading suspension %s", handle), err)
	}
	if !found {
		return nil, apperr.PipelineNotFoundError(string(handle))
	}
	spec := suspended.DagSpec

	startedAt := time.Now()
	state, aerr := suspension.Resume(ctx, suspended, in, c.runConfig(opts))
	completedAt := time.Now()
	if aerr != nil {
		return nil, aerr
	}

	manuallyResolved := make(map[string]bool, len(in.ResolvedNodes))
	for dataID := range in.ResolvedNodes {
		manuallyResolved[dataID] = true
	}

	inputs := make(map[string]cvalue.CValue, len(suspended.ProvidedInputs)+len(in.AdditionalInputs))
	for name, v := range suspended.ProvidedInputs {
		inputs[name] = v
	}
	for name, v := range in.AdditionalInputs {
		inputs[name] = v
	}

	status := classifyStatus(spec, state)
	metadata := dag.BuildMetadata(spec, state, opts, startedAt, completedAt, manuallyResolved)

	if status == StatusSuspended {
		resuspended := suspension.Resuspend(suspended, state, inputs)
		if c.store != nil {
			_, _ = c.store.Save(resuspended)
		}
		publishRun(c.broadcaster, spec, state, StatusSuspended)
		return &DataSignature{
			Status:   StatusSuspended,
			Outputs:  map[string]cvalue.CValue{},
			Metadata: metadata,
			Inputs:   inputs,
		}, nil
	}

	if status == StatusCompleted {
		_, _ = c.store.Delete(handle)
	}

	publishRun(c.broadcaster, spec, state, status)

	return &DataSignature{
		Status:   status,
		Outputs:  collectOutputs(spec, state),
		Metadata: metadata,
		Inputs:   inputs,
	}, nil
}

func (c *Constellation) run(ctx context.Context, spec *dagspec.DagSpec, inputs map[string]cvalue.CValue, opts dag.ExecutionOptions) (*DataSignature, *apperr.AppError) {
	resolutions, aerr := dag.ValidateInputs(spec, inputs)
	if aerr != nil {
		return nil, aerr
	}

	provided := make(map[string]bool, len(resolutions))
	resolvedByID := make(map[string]cvalue.CValue, len(resolutions))
	for _, r := range resolutions {
		provided[r.DataID] = true
		resolvedByID[r.DataID] = r.Value
	}

	cfg := c.runConfig(opts)

	if missing := dag.MissingUserInputs(spec, provided); len(missing) > 0 {
		ids := make([]string, 0, len(spec.Data))
		for id := range spec.Data {
			ids = append(ids, id)
		}
		state := dag.NewState(ids)
		for id, v := range resolvedByID {
			state.Write(id, v)
		}
		return c.suspend(spec, state, cfg, inputs), nil
	}

	startedAt := time.Now()
	state, aerr := dag.Run(ctx, spec, resolvedByID, cfg)
	completedAt := time.Now()
	if aerr != nil {
		return nil, aerr
	}

	status := classifyStatus(spec, state)
	metadata := dag.BuildMetadata(spec, state, opts, startedAt, completedAt, nil)

	if status == StatusSuspended {
		return c.suspendWithMetadata(spec, state, cfg, inputs, metadata), nil
	}

	publishRun(c.broadcaster, spec, state, status)

	return &DataSignature{
		Status:   status,
		Outputs:  collectOutputs(spec, state),
		Metadata: metadata,
		Inputs:   inputs,
	}, nil
}

func (c *Constellation) suspend(spec *dagspec.DagSpec, state *dag.State, cfg dag.RunConfig, inputs map[string]cvalue.CValue) *DataSignature {
	now := time.Now()
	metadata := dag.BuildMetadata(spec, state, dag.ExecutionOptions{}, now, now, nil)
	return c.suspendWithMetadata(spec, state, cfg, inputs, metadata)
}

func (c *Constellation) suspendWithMetadata(spec *dagspec.DagSpec, state *dag.State, cfg dag.RunConfig, inputs map[string]cvalue.CValue, metadata *dag.ExecutionMetadata) *DataSignature {
	suspended := suspension.Build(spec, state, moduleOptionsFor(spec, cfg), inputs)
	if c.store != nil {
		_, _ = c.store.Save(suspended)
	}
	publishRun(c.broadcaster, spec, state, StatusSuspended)
	return &DataSignature{
		Status:   StatusSuspended,
		Outputs:  map[string]cvalue.CValue{},
		Metadata: metadata,
		Inputs:   inputs,
	}
}

func (c *Constellation) runConfig(opts dag.ExecutionOptions) dag.RunConfig {
	defaults := c.cfg
	return dag.RunConfig{
		Registry: c.registry,
		Deps:     c.deps,
		ModuleOptions: func(moduleName string) dag.ModuleCallOptions {
			mo := dag.DefaultModuleCallOptions()
			if defaults != nil {
				mo.Retry = defaults.DefaultRetry
				mo.TimeoutMs = defaults.DefaultTimeoutMs
				mo.DelayMs = defaults.DefaultDelayMs
				mo.Backoff = resilience.BackoffStrategy(defaults.DefaultBackoff)
				mo.MaxDelay = defaults.DefaultMaxDelay()
			}
			if opts.Retry != nil {
				mo.Retry = *opts.Retry
			}
			if opts.TimeoutMs != nil {
				mo.TimeoutMs = *opts.TimeoutMs
			}
			if opts.Fallback != nil {
				mo.HasFallback = true
				mo.FallbackVal = *opts.Fallback
			}
			if opts.Backoff != "" {
				mo.Backoff = opts.Backoff
			}
			if opts.MaxDelay != nil {
				mo.MaxDelay = *opts.MaxDelay
			}
			return mo
		},
		Concurrency: concurrencyOf(defaults),
		Logger:      runLogger(defaults),
	}
}

// runLogger returns the component logger runs fire under, or nil for an
// engine built without a config (library-style embedding keeps the
// scheduler quiet by default).
func runLogger(cfg *config.EngineConfig) *logger.Logger {
	if cfg == nil {
		return nil
	}
	return logger.Get("dag")
}

func concurrencyOf(cfg *config.EngineConfig) int {
	if cfg == nil {
		return 0
	}
	return cfg.GlobalConcurrency
}

func moduleOptionsFor(spec *dagspec.DagSpec, cfg dag.RunConfig) map[string]dag.ModuleCallOptions {
	out := make(map[string]dag.ModuleCallOptions, len(spec.Modules))
	for moduleID, m := range spec.Modules {
		opts := dag.DefaultModuleCallOptions()
		if cfg.ModuleOptions != nil {
			opts = cfg.ModuleOptions(m.Metadata.Name)
		}
		out[moduleID] = opts
	}
	return out
}

// classifyStatus derives a DataSignature's status from a finished run's
// State: every declared output resolved means Completed; any module left
// Failed or Timed means the run stalled on an error rather than a missing
// input, so Failed; anything else unresolved is a Suspended run blocked on
// a missing user input.
func classifyStatus(spec *dagspec.DagSpec, state *dag.State) RunStatus {
	allResolved := true
	for _, name := range spec.DeclaredOutputs {
		dataID, ok := spec.OutputBindings[name]
		if !ok || !state.IsResolved(dataID) {
			allResolved = false
			break
		}
	}
	if allResolved {
		return StatusCompleted
	}
	for _, status := range state.AllStatuses() {
		if status.Tag == dag.StatusFailed || status.Tag == dag.StatusTimed {
			return StatusFailed
		}
	}
	return StatusSuspended
}

func collectOutputs(spec *dagspec.DagSpec, state *dag.State) map[string]cvalue.CValue {
	outputs := make(map[string]cvalue.CValue, len(spec.DeclaredOutputs))
	for _, name := range spec.DeclaredOutputs {
		dataID, ok := spec.OutputBindings[name]
		if !ok || !state.IsResolved(dataID) {
			continue
		}
		outputs[name] = state.Value(dataID)
	}
	return outputs
}
