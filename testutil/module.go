package testutil

import (
	"context"
	"sync"

	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/dag"
)

// Invocation records one call to a FakeModule: the inputs it received and
// the attempt number (1-based).
type Invocation struct {
	Attempt int
	Inputs  map[string]cvalue.CValue
}

// FakeModule is a scriptable dag.Module for tests. By default it returns
// an empty output map; configure it with Returns, Fails, FailsTimes, or
// BlocksUntilCancelled. All configuration must happen before the module is
// handed to a registry.
type FakeModule struct {
	name string

	outputs   map[string]cvalue.CValue
	err       error
	failCount int
	blocks    bool

	mu          sync.Mutex
	invocations []Invocation
}

// ensure FakeModule satisfies dag.Module.
var _ dag.Module = (*FakeModule)(nil)

// NewFakeModule creates a FakeModule registered under name.
func NewFakeModule(name string) *FakeModule {
	return &FakeModule{name: name}
}

// Returns scripts the module to succeed with outputs on every call.
func (m *FakeModule) Returns(outputs map[string]cvalue.CValue) *FakeModule {
	m.outputs = outputs
	return m
}

// Fails scripts the module to fail with err on every call.
func (m *FakeModule) Fails(err error) *FakeModule {
	m.err = err
	return m
}

// FailsTimes scripts the module to fail with err for the first n calls and
// succeed with outputs afterwards, for exercising retry behavior.
func (m *FakeModule) FailsTimes(n int, err error, outputs map[string]cvalue.CValue) *FakeModule {
	m.failCount = n
	m.err = err
	m.outputs = outputs
	return m
}

// BlocksUntilCancelled scripts the module to block until its context is
// cancelled, for exercising timeout behavior.
func (m *FakeModule) BlocksUntilCancelled() *FakeModule {
	m.blocks = true
	return m
}

// Name returns the module's registry name.
func (m *FakeModule) Name() string { return m.name }

// Call records the invocation and plays back the scripted behavior.
func (m *FakeModule) Call(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
	m.mu.Lock()
	attempt := len(m.invocations) + 1
	m.invocations = append(m.invocations, Invocation{Attempt: attempt, Inputs: inputs})
	m.mu.Unlock()

	if m.blocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil && (m.failCount == 0 || attempt <= m.failCount) {
		return nil, m.err
	}
	if m.outputs != nil {
		return m.outputs, nil
	}
	return map[string]cvalue.CValue{}, nil
}

// Invocations returns a snapshot of every recorded call.
func (m *FakeModule) Invocations() []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Invocation, len(m.invocations))
	copy(out, m.invocations)
	return out
}

// CallCount returns how many times the module has been invoked.
func (m *FakeModule) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invocations)
}
