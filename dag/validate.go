package dag

import (
	apperr "github.com/kbukum/constellation/errors"

	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/dagspec"
)

// InputResolution is the outcome of matching one initialInputs entry against
// the DagSpec's top-level data nodes.
type InputResolution struct {
	DataID string
	Value  cvalue.CValue
}

// ValidateInputs matches every (name, value) pair in initialInputs against a
// top-level user-input data node. Matching by a node's primary Name always
// takes precedence over matching by nickname; a
// name with no matching node is UnknownInputName, and a type disagreement is
// InputTypeMismatchError. Returns one InputResolution per recognized input,
// keyed by the data node id the value should be written to.
func ValidateInputs(spec *dagspec.DagSpec, initialInputs map[string]cvalue.CValue) ([]InputResolution, *apperr.AppError) {
	userInputIDs := spec.UserInputIDs()

	byName := make(map[string]string, len(userInputIDs))
	byNickname := make(map[string]string)
	for _, id := range userInputIDs {
		dn := spec.Data[id]
		byName[dn.Name] = id
		for _, nickname := range dn.Nicknames {
			if _, exists := byNickname[nickname]; !exists {
				byNickname[nickname] = id
			}
		}
	}

	var resolutions []InputResolution
	for name, value := range initialInputs {
		dataID, ok := byName[name]
		if !ok {
			dataID, ok = byNickname[name]
		}
		if !ok {
			return nil, apperr.UnknownInputName(name)
		}
		dn := spec.Data[dataID]
		if !value.Type().Equal(dn.CType) {
			return nil, apperr.InputTypeMismatchError(name, dn.CType.String(), value.Type().String())
		}
		resolutions = append(resolutions, InputResolution{DataID: dataID, Value: value})
	}
	return resolutions, nil
}

// MissingUserInputs returns the user-input data node ids not covered by
// provided (a set of data ids already resolved, e.g. from ValidateInputs's
// output or a SuspendedExecution's providedInputs/computedValues).
func MissingUserInputs(spec *dagspec.DagSpec, provided map[string]bool) []string {
	var missing []string
	for _, id := range spec.UserInputIDs() {
		if !provided[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
