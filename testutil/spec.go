package testutil

import (
	"github.com/kbukum/constellation/ctype"
	"github.com/kbukum/constellation/dagspec"
	"github.com/kbukum/constellation/transform"
)

// SpecBuilder assembles a DagSpec for tests without hand-writing edge
// lists. It follows the convention that a module parameter name, the data
// node id it reads from or writes to, and that node's primary name are all
// the same string; tests needing nicknames or divergent ids should build
// the DagSpec literal directly.
type SpecBuilder struct {
	name     string
	modules  map[string]dagspec.ModuleNodeSpec
	data     map[string]dagspec.DataNodeSpec
	inEdges  []dagspec.InEdge
	outEdges []dagspec.OutEdge
	outputs  []string
	bindings map[string]string
}

// ModuleOption configures one module declaration on a SpecBuilder.
type ModuleOption func(b *SpecBuilder, moduleID string, m *dagspec.ModuleNodeSpec)

// NewSpecBuilder starts a builder for a pipeline called name.
func NewSpecBuilder(name string) *SpecBuilder {
	return &SpecBuilder{
		name:     name,
		modules:  map[string]dagspec.ModuleNodeSpec{},
		data:     map[string]dagspec.DataNodeSpec{},
		bindings: map[string]string{},
	}
}

func (b *SpecBuilder) ensureData(id string, t ctype.CType) {
	if _, ok := b.data[id]; !ok {
		b.data[id] = dagspec.DataNodeSpec{ID: id, Name: id, CType: t}
	}
}

// Input declares a top-level user-input data node.
func (b *SpecBuilder) Input(id string, t ctype.CType) *SpecBuilder {
	b.ensureData(id, t)
	return b
}

// Derived declares an inline-derived data node computed by tr from the
// named input data nodes (paramName -> dataNodeId).
func (b *SpecBuilder) Derived(id string, t ctype.CType, tr transform.Transform, inputs map[string]string) *SpecBuilder {
	b.data[id] = dagspec.DataNodeSpec{
		ID:              id,
		Name:            id,
		CType:           t,
		InlineTransform: tr,
		TransformInputs: inputs,
	}
	return b
}

// Module declares a module node with the given id and registry name,
// configured by Consumes/Produces options.
func (b *SpecBuilder) Module(id, name string, opts ...ModuleOption) *SpecBuilder {
	m := dagspec.ModuleNodeSpec{
		ID:       id,
		Metadata: dagspec.ModuleMetadata{Name: name},
		Consumes: map[string]ctype.CType{},
		Produces: map[string]ctype.CType{},
	}
	for _, opt := range opts {
		opt(b, id, &m)
	}
	b.modules[id] = m
	return b
}

// Consumes wires a module parameter to the equally-named data node,
// creating the node if it doesn't exist yet.
func Consumes(param string, t ctype.CType) ModuleOption {
	return func(b *SpecBuilder, moduleID string, m *dagspec.ModuleNodeSpec) {
		m.Consumes[param] = t
		b.ensureData(param, t)
		b.inEdges = append(b.inEdges, dagspec.InEdge{DataID: param, ModuleID: moduleID})
	}
}

// Produces wires a module output to the equally-named data node, creating
// the node if it doesn't exist yet.
func Produces(param string, t ctype.CType) ModuleOption {
	return func(b *SpecBuilder, moduleID string, m *dagspec.ModuleNodeSpec) {
		m.Produces[param] = t
		b.ensureData(param, t)
		b.outEdges = append(b.outEdges, dagspec.OutEdge{ModuleID: moduleID, DataID: param})
	}
}

// Output declares a pipeline output bound to the equally-named data node.
func (b *SpecBuilder) Output(name string) *SpecBuilder {
	b.outputs = append(b.outputs, name)
	b.bindings[name] = name
	return b
}

// Build assembles the DagSpec.
func (b *SpecBuilder) Build() *dagspec.DagSpec {
	return &dagspec.DagSpec{
		Metadata:        dagspec.Metadata{Name: b.name},
		Modules:         b.modules,
		Data:            b.data,
		InEdges:         b.inEdges,
		OutEdges:        b.outEdges,
		DeclaredOutputs: b.outputs,
		OutputBindings:  b.bindings,
	}
}
