package logger

import (
	"sync"
	"time"
)

// EngineRegistry tracks what an engine process wired at startup, for
// summary display: registered pipelines, registered modules, the
// suspension store, and any event transports (an SSE hub).
type EngineRegistry struct {
	mu         sync.Mutex
	startTime  time.Time
	pipelines  []PipelineEntry
	modules    []ModuleEntry
	stores     []StoreEntry
	transports []TransportEntry
}

// PipelineEntry records one registered pipeline.
type PipelineEntry struct {
	Ref     string
	Name    string
	Modules int
	Outputs int
}

// ModuleEntry records one registered module implementation.
type ModuleEntry struct {
	Name   string
	Status string // "registered", "replaced"
}

// StoreEntry records the suspension store backing the engine.
type StoreEntry struct {
	Name    string
	Kind    string // "memory", "file"
	Details string
}

// TransportEntry records an event transport (e.g. the SSE hub).
type TransportEntry struct {
	Name    string
	Details string
}

// EngineRegistryInstance is the global engine registry.
var EngineRegistryInstance = NewEngineRegistry()

// NewEngineRegistry creates a new engine registry.
func NewEngineRegistry() *EngineRegistry {
	return &EngineRegistry{
		startTime: time.Now(),
	}
}

// StartTime returns the registry creation time (engine bootstrap start).
func (r *EngineRegistry) StartTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startTime
}

// RegisterPipeline records a registered pipeline.
func (r *EngineRegistry) RegisterPipeline(ref, name string, modules, outputs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelines = append(r.pipelines, PipelineEntry{
		Ref:     ref,
		Name:    name,
		Modules: modules,
		Outputs: outputs,
	})
}

// RegisterModule records a registered module, marking it "replaced" when a
// module of the same name was registered before.
func (r *EngineRegistry) RegisterModule(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := "registered"
	for _, m := range r.modules {
		if m.Name == name {
			status = "replaced"
			break
		}
	}
	r.modules = append(r.modules, ModuleEntry{Name: name, Status: status})
}

// RegisterStore records the suspension store in use.
func (r *EngineRegistry) RegisterStore(name, kind, details string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores = append(r.stores, StoreEntry{Name: name, Kind: kind, Details: details})
}

// RegisterTransport records an event transport.
func (r *EngineRegistry) RegisterTransport(name, details string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports = append(r.transports, TransportEntry{Name: name, Details: details})
}

// Pipelines returns all registered pipelines.
func (r *EngineRegistry) Pipelines() []PipelineEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PipelineEntry, len(r.pipelines))
	copy(out, r.pipelines)
	return out
}

// Modules returns all registered modules.
func (r *EngineRegistry) Modules() []ModuleEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ModuleEntry, len(r.modules))
	copy(out, r.modules)
	return out
}

// Stores returns all registered stores.
func (r *EngineRegistry) Stores() []StoreEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StoreEntry, len(r.stores))
	copy(out, r.stores)
	return out
}

// Transports returns all registered transports.
func (r *EngineRegistry) Transports() []TransportEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TransportEntry, len(r.transports))
	copy(out, r.transports)
	return out
}
