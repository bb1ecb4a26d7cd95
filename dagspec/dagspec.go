package dagspec

import (
	"sort"

	"github.com/kbukum/constellation/ctype"
	apperr "github.com/kbukum/constellation/errors"
	"github.com/kbukum/constellation/transform"
)

// Metadata describes a pipeline as a whole.
type Metadata struct {
	Name        string
	Description string
}

// ModuleMetadata describes a single module node.
type ModuleMetadata struct {
	Name         string
	Description  string
	Tags         []string
	MajorVersion int
	MinorVersion int
}

// ModuleConfig carries per-module call configuration that is part of the
// compiled spec (as opposed to the per-run ModuleCallOptions in the dag
// package, which wraps retry/timeout/fallback behavior).
type ModuleConfig struct {
	InputsTimeoutMs int64
	ModuleTimeoutMs int64
	// Priority breaks ties among modules runnable in the same batch: higher
	// fires first among concurrently-runnable modules. A hint only — the
	// scheduler does not guarantee strict firing order within a batch.
	Priority int
}

// ModuleNodeSpec declares one module's contract: what it consumes, what it
// produces, and its static configuration. ID is the graph-unique module id;
// Metadata.Name is the human-facing name used in provenance and timings.
type ModuleNodeSpec struct {
	ID                string
	Metadata          ModuleMetadata
	Consumes          map[string]ctype.CType // paramName -> CType
	Produces          map[string]ctype.CType // paramName -> CType
	Config            ModuleConfig
	DefinitionContext *string
}

// DataNodeSpec declares one data node: its primary external Name, optional
// per-consumer Nicknames, its CType, and — if derived — the InlineTransform
// that computes its value from TransformInputs.
//
// A data node with InlineTransform is derived. A data node without one and
// without an incoming producing edge is a user input.
type DataNodeSpec struct {
	ID              string
	Name            string
	Nicknames       map[string]string // consuming moduleId -> paramName
	CType           ctype.CType
	InlineTransform transform.Transform
	TransformInputs map[string]string // paramName -> dataNodeId
}

// InEdge connects a data node to a module that consumes it.
type InEdge struct {
	DataID   string
	ModuleID string
}

// OutEdge connects a module to a data node it produces.
type OutEdge struct {
	ModuleID string
	DataID   string
}

// DagSpec is the immutable, compiler-produced graph the runtime executes.
type DagSpec struct {
	Metadata        Metadata
	Modules         map[string]ModuleNodeSpec
	Data            map[string]DataNodeSpec
	InEdges         []InEdge
	OutEdges        []OutEdge
	DeclaredOutputs []string
	OutputBindings  map[string]string // outputName -> dataId
}

// ProducedDataIDs returns the set of data node ids that appear as the
// second element of some OutEdge — i.e. module-produced nodes.
func (d *DagSpec) ProducedDataIDs() map[string]bool {
	produced := make(map[string]bool, len(d.OutEdges))
	for _, e := range d.OutEdges {
		produced[e.DataID] = true
	}
	return produced
}

// TopLevelDataIDs returns data node ids outside ProducedDataIDs — the
// complement set within Data, per the DagSpec invariant.
func (d *DagSpec) TopLevelDataIDs() []string {
	produced := d.ProducedDataIDs()
	var ids []string
	for id := range d.Data {
		if !produced[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// UserInputIDs returns the subset of TopLevelDataIDs with no inline
// transform. Per the Open Questions decision, this classification is
// permissive: it does not consult reachability from declared outputs, and
// includes orphan data nodes.
func (d *DagSpec) UserInputIDs() []string {
	var ids []string
	for _, id := range d.TopLevelDataIDs() {
		if d.Data[id].InlineTransform == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// InlineDerivedIDs returns the subset of TopLevelDataIDs with an inline
// transform.
func (d *DagSpec) InlineDerivedIDs() []string {
	var ids []string
	for _, id := range d.TopLevelDataIDs() {
		if d.Data[id].InlineTransform != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// ConsumersOf returns the module ids that consume dataID, derived from
// InEdges.
func (d *DagSpec) ConsumersOf(dataID string) []string {
	var mods []string
	for _, e := range d.InEdges {
		if e.DataID == dataID {
			mods = append(mods, e.ModuleID)
		}
	}
	return mods
}

// ProducerOf returns the module id producing dataID, or "" if none (user
// input or inline-derived node).
func (d *DagSpec) ProducerOf(dataID string) string {
	for _, e := range d.OutEdges {
		if e.DataID == dataID {
			return e.ModuleID
		}
	}
	return ""
}

// ConsumedDataOf returns the data node ids a module consumes, derived from
// InEdges.
func (d *DagSpec) ConsumedDataOf(moduleID string) []string {
	var ids []string
	for _, e := range d.InEdges {
		if e.ModuleID == moduleID {
			ids = append(ids, e.DataID)
		}
	}
	return ids
}

// ProducedDataOf returns the data node ids a module produces, derived from
// OutEdges.
func (d *DagSpec) ProducedDataOf(moduleID string) []string {
	var ids []string
	for _, e := range d.OutEdges {
		if e.ModuleID == moduleID {
			ids = append(ids, e.DataID)
		}
	}
	return ids
}

// Validate checks the structural invariants a compiler-produced DagSpec must
// satisfy: every edge references a module/data node that exists, every data
// node's nicknames reference a module that actually consumes it, and the
// module dependency graph (induced by data nodes connecting an OutEdge
// producer to InEdge consumers) is acyclic.
func (d *DagSpec) Validate() *apperr.AppError {
	for _, e := range d.InEdges {
		if _, ok := d.Data[e.DataID]; !ok {
			return apperr.UnknownNodeError(e.DataID)
		}
		if _, ok := d.Modules[e.ModuleID]; !ok {
			return apperr.UnknownNodeError(e.ModuleID)
		}
	}
	for _, e := range d.OutEdges {
		if _, ok := d.Data[e.DataID]; !ok {
			return apperr.UnknownNodeError(e.DataID)
		}
		if _, ok := d.Modules[e.ModuleID]; !ok {
			return apperr.UnknownNodeError(e.ModuleID)
		}
	}
	for dataID, dn := range d.Data {
		for moduleID := range dn.Nicknames {
			if _, ok := d.Modules[moduleID]; !ok {
				return apperr.UnknownNodeError(moduleID)
			}
			consumes := false
			for _, e := range d.InEdges {
				if e.DataID == dataID && e.ModuleID == moduleID {
					consumes = true
					break
				}
			}
			if !consumes {
				return apperr.UnknownNodeError(dataID)
			}
		}
		if dn.InlineTransform != nil {
			for _, srcID := range dn.TransformInputs {
				if _, ok := d.Data[srcID]; !ok {
					return apperr.UnknownNodeError(srcID)
				}
			}
		}
	}

	if cyclic := d.findModuleCycle(); len(cyclic) > 0 {
		return apperr.CycleDetected(cyclic)
	}
	return nil
}

// findModuleCycle runs Kahn's algorithm over the module-dependency graph
// (module A depends on module B if B produces a data node A consumes) and
// returns the ids still unprocessed when no more progress can be made, or
// nil if the graph is fully acyclic.
func (d *DagSpec) findModuleCycle() []string {
	indegree := make(map[string]int, len(d.Modules))
	dependents := make(map[string][]string, len(d.Modules))
	for id := range d.Modules {
		indegree[id] = 0
	}
	for _, consumerID := range moduleIDsSorted(d.Modules) {
		for _, dataID := range d.ConsumedDataOf(consumerID) {
			producerID := d.ProducerOf(dataID)
			if producerID == "" {
				continue
			}
			// A module that both produces and consumes the same data node
			// (producerID == consumerID) is a self-cycle and must count as a
			// dependency on itself, not be skipped: skipping it left indegree
			// at 0 for such a module, so Kahn's algorithm processed it
			// immediately and Validate silently reported the graph acyclic.
			dependents[producerID] = append(dependents[producerID], consumerID)
			indegree[consumerID]++
		}
	}

	var queue []string
	for _, id := range moduleIDsSorted(d.Modules) {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++
		next := append([]string(nil), dependents[id]...)
		sort.Strings(next)
		for _, depID := range next {
			indegree[depID]--
			if indegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if processed == len(d.Modules) {
		return nil
	}
	var remaining []string
	for id, deg := range indegree {
		if deg > 0 {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)
	return remaining
}

func moduleIDsSorted(m map[string]ModuleNodeSpec) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
