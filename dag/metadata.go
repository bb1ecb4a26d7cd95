package dag

import (
	"time"

	"github.com/kbukum/constellation/dagspec"
)

// ResolutionSource discriminates how a data node's value came to be resolved,
// for ExecutionMetadata.ResolutionSources.
type ResolutionSource string

const (
	FromInput            ResolutionSource = "FromInput"
	FromManualResolution ResolutionSource = "FromManualResolution"
	FromModuleExecution  ResolutionSource = "FromModuleExecution"
)

// ExecutionMetadata is the opt-in report derived from a final Run's State.
// StartedAt/CompletedAt/TotalDuration are always populated; every other
// field is populated independently, gated by its own ExecutionOptions flag.
type ExecutionMetadata struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	TotalDuration time.Duration

	NodeTimings       map[string]int64
	Provenance        map[string]string
	BlockedGraph      map[string][]string
	ResolutionSources map[string]ResolutionSource
}

// BuildMetadata assembles an ExecutionMetadata from spec and the state a Run
// produced. manuallyResolved names the data node ids a resume supplied via
// resolvedNodes (as opposed to providedInputs or module execution) — pass
// nil for a fresh, non-resumed run.
func BuildMetadata(spec *dagspec.DagSpec, state *State, opts ExecutionOptions, startedAt, completedAt time.Time, manuallyResolved map[string]bool) *ExecutionMetadata {
	md := &ExecutionMetadata{
		StartedAt:     startedAt,
		CompletedAt:   completedAt,
		TotalDuration: completedAt.Sub(startedAt),
	}

	if opts.IncludeTimings {
		md.NodeTimings = buildNodeTimings(spec, state)
	}
	if opts.IncludeProvenance {
		md.Provenance = buildProvenance(spec, state)
	}
	if opts.IncludeBlockedGraph {
		md.BlockedGraph = buildBlockedGraph(spec, state)
	}
	if opts.IncludeResolutionSources {
		md.ResolutionSources = buildResolutionSources(spec, state, manuallyResolved)
	}
	return md
}

func buildNodeTimings(spec *dagspec.DagSpec, state *State) map[string]int64 {
	timings := map[string]int64{}
	for moduleID, status := range state.AllStatuses() {
		if status.Tag != StatusFired {
			continue
		}
		key := moduleID
		if m, ok := spec.Modules[moduleID]; ok {
			key = m.Metadata.Name
		}
		timings[key] = status.Latency
	}
	return timings
}

func buildProvenance(spec *dagspec.DagSpec, state *State) map[string]string {
	userInputs := boolSet(spec.UserInputIDs())
	derived := boolSet(spec.InlineDerivedIDs())

	provenance := map[string]string{}
	for dataID, dn := range spec.Data {
		if !state.IsResolved(dataID) {
			continue
		}
		switch {
		case userInputs[dataID]:
			provenance[dn.Name] = "<input>"
		case derived[dataID]:
			provenance[dn.Name] = "<inline-transform>"
		default:
			if producerID := spec.ProducerOf(dataID); producerID != "" {
				if m, ok := spec.Modules[producerID]; ok {
					provenance[dn.Name] = m.Metadata.Name
				}
			}
		}
	}
	return provenance
}

func buildBlockedGraph(spec *dagspec.DagSpec, state *State) map[string][]string {
	blocked := map[string][]string{}
	for _, id := range spec.UserInputIDs() {
		if state.IsResolved(id) {
			continue
		}
		dn := spec.Data[id]
		downstream := downstreamDataIDs(spec, id)
		names := make([]string, 0, len(downstream))
		for _, downID := range downstream {
			names = append(names, spec.Data[downID].Name)
		}
		blocked[dn.Name] = names
	}
	return blocked
}

// downstreamDataIDs transitively closes over every data node reachable from
// root, whether via a consuming module's produced outputs or via a
// downstream inline transform's TransformInputs.
func downstreamDataIDs(spec *dagspec.DagSpec, root string) []string {
	visited := map[string]bool{}
	queue := []string{root}
	var out []string

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, moduleID := range spec.ConsumersOf(id) {
			for _, produced := range spec.ProducedDataOf(moduleID) {
				if !visited[produced] {
					visited[produced] = true
					out = append(out, produced)
					queue = append(queue, produced)
				}
			}
		}
		for dataID, dn := range spec.Data {
			if dn.InlineTransform == nil || visited[dataID] {
				continue
			}
			for _, srcID := range dn.TransformInputs {
				if srcID == id {
					visited[dataID] = true
					out = append(out, dataID)
					queue = append(queue, dataID)
					break
				}
			}
		}
	}
	return out
}

func buildResolutionSources(spec *dagspec.DagSpec, state *State, manuallyResolved map[string]bool) map[string]ResolutionSource {
	userInputs := boolSet(spec.UserInputIDs())

	sources := map[string]ResolutionSource{}
	for dataID, dn := range spec.Data {
		if !state.IsResolved(dataID) {
			continue
		}
		switch {
		case manuallyResolved[dataID]:
			sources[dn.Name] = FromManualResolution
		case userInputs[dataID]:
			sources[dn.Name] = FromInput
		default:
			sources[dn.Name] = FromModuleExecution
		}
	}
	return sources
}

func boolSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
