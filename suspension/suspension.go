// Package suspension implements checkpointing a partially-completed run and
// resuming it later, possibly in a different process, subject to a
// structural-compatibility check against the original DagSpec.
package suspension

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/constellation/ctype"
	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/dag"
	"github.com/kbukum/constellation/dagspec"
)

// SuspendedExecution is the persistable checkpoint the runtime constructs
// whenever a required user input is missing. ProvidedInputs and
// ComputedValues are distinct: the former tracks only what the caller
// supplied by name, the latter every data node id the runtime actually
// resolved (inputs, inline-transform results, and module outputs alike).
type SuspendedExecution struct {
	ExecutionID     string
	StructuralHash  string
	ResumptionCount int
	DagSpec         *dagspec.DagSpec
	ModuleOptions   map[string]dag.ModuleCallOptions // moduleId -> options
	ProvidedInputs  map[string]cvalue.CValue         // input name -> value
	ComputedValues  map[string]cvalue.CValue         // dataId -> value
	ModuleStatuses  map[string]string                // moduleId -> status tag name
	CreatedAt       time.Time
}

// Build constructs a fresh SuspendedExecution (resumptionCount 1) from a
// partial Run. moduleOptions should be whatever per-module call options the
// run used, so a resume can fire with the same wrapper configuration.
func Build(spec *dagspec.DagSpec, state *dag.State, moduleOptions map[string]dag.ModuleCallOptions, providedInputs map[string]cvalue.CValue) *SuspendedExecution {
	return build(spec, state, moduleOptions, providedInputs, uuid.New().String(), 0)
}

// Resuspend constructs a SuspendedExecution from a re-run of a previously
// suspended execution, preserving its executionId and incrementing
// resumptionCount.
func Resuspend(prior *SuspendedExecution, state *dag.State, providedInputs map[string]cvalue.CValue) *SuspendedExecution {
	return build(prior.DagSpec, state, prior.ModuleOptions, providedInputs, prior.ExecutionID, prior.ResumptionCount)
}

func build(spec *dagspec.DagSpec, state *dag.State, moduleOptions map[string]dag.ModuleCallOptions, providedInputs map[string]cvalue.CValue, executionID string, priorResumptionCount int) *SuspendedExecution {
	computed := map[string]cvalue.CValue{}
	for dataID := range spec.Data {
		if state.IsResolved(dataID) {
			computed[dataID] = state.Value(dataID)
		}
	}

	statuses := map[string]string{}
	for moduleID := range spec.Modules {
		statuses[moduleID] = string(state.Status(moduleID).Tag)
	}

	return &SuspendedExecution{
		ExecutionID:     executionID,
		StructuralHash:  strconv.FormatUint(spec.StructuralHash(), 16),
		ResumptionCount: priorResumptionCount + 1,
		DagSpec:         spec,
		ModuleOptions:   moduleOptions,
		ProvidedInputs:  providedInputs,
		ComputedValues:  computed,
		ModuleStatuses:  statuses,
	}
}

// MissingInputs returns the user-input data nodes (name -> declared type)
// not covered by either ProvidedInputs or ComputedValues, as required by
// SuspensionSummary's precomputed missingInputs field.
func (s *SuspendedExecution) MissingInputs() map[string]ctype.CType {
	missing := map[string]ctype.CType{}
	for _, id := range s.DagSpec.UserInputIDs() {
		dn := s.DagSpec.Data[id]
		if _, ok := s.ComputedValues[id]; ok {
			continue
		}
		if _, ok := s.ProvidedInputs[dn.Name]; ok {
			continue
		}
		missing[dn.Name] = dn.CType
	}
	return missing
}
