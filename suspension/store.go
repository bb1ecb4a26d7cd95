package suspension

import (
	"github.com/kbukum/constellation/ctype"
)

// SuspensionHandle identifies a saved SuspendedExecution within a store.
// Implementations are free to make it opaque; the in-memory and file stores
// both use the executionId.
type SuspensionHandle string

// Filter narrows a List call. Zero-valued fields are unconstrained; both
// ends of the resumption-count range are inclusive when set.
type Filter struct {
	StructuralHash     *string
	ExecutionID        *string
	MinResumptionCount *int
	MaxResumptionCount *int
}

// Summary is the lightweight listing entry List returns, carrying a
// precomputed MissingInputs so callers don't need to load the full
// SuspendedExecution just to see what's blocking it.
type Summary struct {
	Handle          SuspensionHandle
	ExecutionID     string
	StructuralHash  string
	ResumptionCount int
	MissingInputs   map[string]ctype.CType
}

// Store is the persistence contract a SuspendedExecution is saved to and
// loaded from. Implementations may offer codec round-trip validation on
// save (see NewFileStore's withCodecValidation option); Store itself makes
// no guarantee either way.
type Store interface {
	Save(exec *SuspendedExecution) (SuspensionHandle, error)
	Load(handle SuspensionHandle) (*SuspendedExecution, bool, error)
	Delete(handle SuspensionHandle) (bool, error)
	List(filter Filter) ([]Summary, error)
}

func matchesFilter(exec *SuspendedExecution, f Filter) bool {
	if f.StructuralHash != nil && exec.StructuralHash != *f.StructuralHash {
		return false
	}
	if f.ExecutionID != nil && exec.ExecutionID != *f.ExecutionID {
		return false
	}
	if f.MinResumptionCount != nil && exec.ResumptionCount < *f.MinResumptionCount {
		return false
	}
	if f.MaxResumptionCount != nil && exec.ResumptionCount > *f.MaxResumptionCount {
		return false
	}
	return true
}

func summarize(handle SuspensionHandle, exec *SuspendedExecution) Summary {
	return Summary{
		Handle:          handle,
		ExecutionID:     exec.ExecutionID,
		StructuralHash:  exec.StructuralHash,
		ResumptionCount: exec.ResumptionCount,
		MissingInputs:   exec.MissingInputs(),
	}
}
