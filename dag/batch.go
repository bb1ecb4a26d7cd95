package dag

import (
	"sort"

	apperr "github.com/kbukum/constellation/errors"

	"github.com/kbukum/constellation/dagspec"
)

// Batch is one level of the scheduler's plan: a set of modules that may
// fire concurrently, plus the data nodes (module outputs and eagerly
// resolved inline transforms) that become available once they do.
type Batch struct {
	ModuleIDs []string
	DataIDs   []string
}

// ComputeBatches runs Kahn's algorithm over the module-dependency graph,
// folding in inline-derived data nodes as pseudo-modules whose "consumed"
// set is TransformInputs: a derived node joins the earliest batch in which
// every one of its inputs is already resolved, so a chain of transforms
// collapses into a single batch.
//
// Batch 0 holds no modules: it is every top-level data node (user inputs
// plus any inline-derived node reachable with no module dependency,
// computed to a fixpoint). Batch k>=1 holds every module whose consumed
// data is entirely resolved by batch 0..k-1, plus the data nodes (module
// outputs and newly-resolvable transforms) that follow.
func ComputeBatches(spec *dagspec.DagSpec) ([]Batch, *apperr.AppError) {
	resolved := make(map[string]bool)
	derivedPending := make(map[string]bool)
	for _, id := range spec.InlineDerivedIDs() {
		derivedPending[id] = true
	}

	batch0 := Batch{}
	for _, id := range spec.UserInputIDs() {
		resolved[id] = true
		batch0.DataIDs = append(batch0.DataIDs, id)
	}
	resolvedNow := resolveDerivedFixpoint(spec, resolved, derivedPending)
	batch0.DataIDs = append(batch0.DataIDs, resolvedNow...)
	sort.Strings(batch0.DataIDs)
	batches := []Batch{batch0}

	fired := make(map[string]bool)
	remaining := len(spec.Modules)

	for remaining > 0 {
		var runnable []string
		for id := range spec.Modules {
			if fired[id] {
				continue
			}
			if allResolved(spec.ConsumedDataOf(id), resolved) {
				runnable = append(runnable, id)
			}
		}
		if len(runnable) == 0 {
			var blocked []string
			for id := range spec.Modules {
				if !fired[id] {
					blocked = append(blocked, id)
				}
			}
			sort.Strings(blocked)
			return nil, apperr.CycleDetected(blocked)
		}
		sort.Strings(runnable)

		batch := Batch{ModuleIDs: runnable}
		for _, id := range runnable {
			fired[id] = true
			remaining--
			produced := spec.ProducedDataOf(id)
			for _, dataID := range produced {
				resolved[dataID] = true
			}
			batch.DataIDs = append(batch.DataIDs, produced...)
		}

		resolvedNow := resolveDerivedFixpoint(spec, resolved, derivedPending)
		batch.DataIDs = append(batch.DataIDs, resolvedNow...)
		sort.Strings(batch.DataIDs)
		batches = append(batches, batch)
	}

	return batches, nil
}

// resolveDerivedFixpoint repeatedly scans derivedPending for nodes whose
// TransformInputs are now entirely in resolved, adding them to resolved and
// removing them from derivedPending, until a pass adds nothing.
func resolveDerivedFixpoint(spec *dagspec.DagSpec, resolved map[string]bool, derivedPending map[string]bool) []string {
	var newlyResolved []string
	for {
		progressed := false
		var ids []string
		for id := range derivedPending {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			dn := spec.Data[id]
			if allResolved(transformInputValues(dn.TransformInputs), resolved) {
				resolved[id] = true
				delete(derivedPending, id)
				newlyResolved = append(newlyResolved, id)
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return newlyResolved
}

func transformInputValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func allResolved(ids []string, resolved map[string]bool) bool {
	for _, id := range ids {
		if !resolved[id] {
			return false
		}
	}
	return true
}
