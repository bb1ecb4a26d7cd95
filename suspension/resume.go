package suspension

import (
	"context"
	"strconv"
	"sync"

	apperr "github.com/kbukum/constellation/errors"

	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/dag"
	"github.com/kbukum/constellation/logger"
)

// ResumeInput is the caller-supplied data for a resume: additional user
// inputs by name, plus a set of nodes to force-resolve by id without going
// through a module at all (operator-supplied overrides).
type ResumeInput struct {
	AdditionalInputs map[string]cvalue.CValue // input name -> value
	ResolvedNodes    map[string]cvalue.CValue // dataId -> value
}

var resumeLocks sync.Map // executionId -> *sync.Mutex

func lockFor(executionID string) *sync.Mutex {
	actual, _ := resumeLocks.LoadOrStore(executionID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// Resume validates in and merges it into suspended's checkpoint, then runs
// the remaining batches to completion (or to the next suspension point).
// A concurrent resume of the same executionId fails fast with
// ResumeInProgressError rather than waiting for the first to finish.
func Resume(ctx context.Context, suspended *SuspendedExecution, in ResumeInput, cfg dag.RunConfig) (*dag.State, *apperr.AppError) {
	lock := lockFor(suspended.ExecutionID)
	if !lock.TryLock() {
		return nil, apperr.ResumeInProgressError(suspended.ExecutionID)
	}
	defer lock.Unlock()

	spec := suspended.DagSpec
	actualHash := strconv.FormatUint(spec.StructuralHash(), 16)
	if actualHash != suspended.StructuralHash {
		return nil, apperr.PipelineChangedError(suspended.StructuralHash, actualHash)
	}

	resolvedByName := make(map[string]string, len(spec.UserInputIDs()))
	for _, id := range spec.UserInputIDs() {
		resolvedByName[spec.Data[id].Name] = id
	}

	merged := make(map[string]cvalue.CValue, len(suspended.ComputedValues)+len(in.AdditionalInputs)+len(in.ResolvedNodes))
	for dataID, v := range suspended.ComputedValues {
		merged[dataID] = v
	}

	for name, v := range in.AdditionalInputs {
		dataID, ok := resolvedByName[name]
		if !ok {
			return nil, apperr.UnknownNodeError(name)
		}
		if _, already := suspended.ProvidedInputs[name]; already {
			return nil, apperr.InputAlreadyProvidedError(name)
		}
		dn := spec.Data[dataID]
		if !v.Type().Equal(dn.CType) {
			return nil, apperr.InputTypeMismatchError(name, dn.CType.String(), v.Type().String())
		}
		merged[dataID] = v
	}

	for dataID, v := range in.ResolvedNodes {
		dn, ok := spec.Data[dataID]
		if !ok {
			return nil, apperr.UnknownNodeError(dataID)
		}
		if _, already := suspended.ComputedValues[dataID]; already {
			return nil, apperr.NodeAlreadyResolvedError(dataID)
		}
		if !v.Type().Equal(dn.CType) {
			return nil, apperr.NodeTypeMismatchError(dataID, dn.CType.String(), v.Type().String())
		}
		merged[dataID] = v
	}

	ids := make([]string, 0, len(spec.Data))
	for id := range spec.Data {
		ids = append(ids, id)
	}
	state := dag.NewState(ids)
	for dataID, v := range merged {
		if cell := state.Cell(dataID); cell != nil && !cell.IsSet() {
			state.Write(dataID, v)
		}
	}
	for moduleID, statusTag := range suspended.ModuleStatuses {
		if dag.StatusTag(statusTag) == dag.StatusFired {
			state.SetStatus(moduleID, dag.Fired(0, "resumed"))
		}
	}

	if cfg.Logger != nil {
		fields := logger.ExecutionFields(suspended.ExecutionID, suspended.ResumptionCount)
		fields["new_inputs"] = len(in.AdditionalInputs)
		fields["resolved_nodes"] = len(in.ResolvedNodes)
		cfg.Logger.Info("resuming execution", fields)
	}

	return dag.RunFromState(ctx, spec, state, cfg)
}
