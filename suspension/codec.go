package suspension

import (
	"fmt"
	"time"

	"github.com/kbukum/constellation/ctype"
	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/dag"
	"github.com/kbukum/constellation/dagspec"
	"github.com/kbukum/constellation/resilience"
)

// Encode converts a SuspendedExecution into its JSON-ready object shape:
// executionId, structuralHash, resumptionCount, dagSpec, moduleOptions,
// providedInputs, computedValues, moduleStatuses.
func Encode(s *SuspendedExecution) map[string]any {
	moduleOptions := map[string]any{}
	for moduleID, opts := range s.ModuleOptions {
		moduleOptions[moduleID] = encodeModuleCallOptions(opts)
	}

	providedInputs := map[string]any{}
	for name, v := range s.ProvidedInputs {
		providedInputs[name] = cvalue.Encode(v)
	}

	computedValues := map[string]any{}
	for dataID, v := range s.ComputedValues {
		computedValues[dataID] = cvalue.Encode(v)
	}

	moduleStatuses := map[string]any{}
	for moduleID, status := range s.ModuleStatuses {
		moduleStatuses[moduleID] = status
	}

	return map[string]any{
		"executionId":     s.ExecutionID,
		"structuralHash":  s.StructuralHash,
		"resumptionCount": s.ResumptionCount,
		"dagSpec":         dagspec.Encode(s.DagSpec),
		"moduleOptions":   moduleOptions,
		"providedInputs":  providedInputs,
		"computedValues":  computedValues,
		"moduleStatuses":  moduleStatuses,
	}
}

func encodeModuleCallOptions(opts dag.ModuleCallOptions) map[string]any {
	out := map[string]any{
		"timeoutMs":   opts.TimeoutMs,
		"retry":       opts.Retry,
		"delayMs":     opts.DelayMs,
		"backoff":     string(opts.Backoff),
		"maxDelayMs":  int64(opts.MaxDelay / 1_000_000),
		"hasFallback": opts.HasFallback,
	}
	if opts.HasFallback && opts.FallbackVal != nil {
		out["fallbackVal"] = cvalue.Encode(opts.FallbackVal)
	}
	return out
}

// Decode reconstructs a SuspendedExecution from its JSON-ready object shape.
// A missing executionId/structuralHash, or a non-numeric resumptionCount, is
// a decode error.
func Decode(m map[string]any) (*SuspendedExecution, error) {
	executionID, ok := m["executionId"].(string)
	if !ok || executionID == "" {
		return nil, fmt.Errorf("suspension: decode: missing executionId")
	}
	structuralHash, ok := m["structuralHash"].(string)
	if !ok || structuralHash == "" {
		return nil, fmt.Errorf("suspension: decode: missing structuralHash")
	}
	resumptionCount, err := asInt(m["resumptionCount"])
	if err != nil {
		return nil, fmt.Errorf("suspension: decode: resumptionCount: %w", err)
	}

	dagSpecObj, ok := m["dagSpec"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("suspension: decode: missing dagSpec")
	}
	spec, err := dagspec.Decode(dagSpecObj)
	if err != nil {
		return nil, fmt.Errorf("suspension: decode: dagSpec: %w", err)
	}

	moduleOptions := map[string]dag.ModuleCallOptions{}
	if obj, ok := m["moduleOptions"].(map[string]any); ok {
		for moduleID, raw := range obj {
			optObj, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("suspension: decode: moduleOptions[%q] is not an object", moduleID)
			}
			opts, err := decodeModuleCallOptions(optObj)
			if err != nil {
				return nil, err
			}
			moduleOptions[moduleID] = opts
		}
	}

	providedInputs := map[string]cvalue.CValue{}
	if obj, ok := m["providedInputs"].(map[string]any); ok {
		for name, raw := range obj {
			dn := findDataNodeByName(spec, name)
			if dn == nil {
				return nil, fmt.Errorf("suspension: decode: providedInputs: unknown input name %q", name)
			}
			v, aerr := cvalue.Decode(raw, dn.CType)
			if aerr != nil {
				return nil, aerr
			}
			providedInputs[name] = v
		}
	}

	computedValues := map[string]cvalue.CValue{}
	if obj, ok := m["computedValues"].(map[string]any); ok {
		for dataID, raw := range obj {
			dn, ok := spec.Data[dataID]
			if !ok {
				return nil, fmt.Errorf("suspension: decode: computedValues: unknown data node %q", dataID)
			}
			v, aerr := cvalue.Decode(raw, dn.CType)
			if aerr != nil {
				return nil, aerr
			}
			computedValues[dataID] = v
		}
	}

	moduleStatuses := map[string]string{}
	if obj, ok := m["moduleStatuses"].(map[string]any); ok {
		for moduleID, raw := range obj {
			s, _ := raw.(string)
			moduleStatuses[moduleID] = s
		}
	}

	return &SuspendedExecution{
		ExecutionID:     executionID,
		StructuralHash:  structuralHash,
		ResumptionCount: resumptionCount,
		DagSpec:         spec,
		ModuleOptions:   moduleOptions,
		ProvidedInputs:  providedInputs,
		ComputedValues:  computedValues,
		ModuleStatuses:  moduleStatuses,
	}, nil
}

func decodeModuleCallOptions(m map[string]any) (dag.ModuleCallOptions, error) {
	opts := dag.ModuleCallOptions{
		TimeoutMs:   int64(asIntLoose(m["timeoutMs"])),
		Retry:       asIntLoose(m["retry"]),
		DelayMs:     int64(asIntLoose(m["delayMs"])),
		Backoff:     resilience.BackoffStrategy(asStringLoose(m["backoff"])),
		MaxDelay:    durationFromMillis(asIntLoose(m["maxDelayMs"])),
		HasFallback: asBoolLoose(m["hasFallback"]),
	}
	if opts.HasFallback {
		if raw, ok := m["fallbackVal"]; ok {
			// fallbackVal is self-describing (Encode always embeds a tag plus
			// the full type metadata needed to reconstruct it), so the
			// declared-type argument below is inert except on the no-tag
			// auto-union path, which a tagged payload never takes.
			v, aerr := cvalue.Decode(raw, ctype.String())
			if aerr != nil {
				return dag.ModuleCallOptions{}, aerr
			}
			opts.FallbackVal = v
		}
	}
	return opts, nil
}

func findDataNodeByName(spec *dagspec.DagSpec, name string) *dagspec.DataNodeSpec {
	for _, id := range spec.UserInputIDs() {
		dn := spec.Data[id]
		if dn.Name == name {
			return &dn
		}
	}
	return nil
}

func asInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("not a number: %v", raw)
	}
}

func asIntLoose(raw any) int {
	n, _ := asInt(raw)
	return n
}

func asStringLoose(raw any) string {
	s, _ := raw.(string)
	return s
}

func asBoolLoose(raw any) bool {
	b, _ := raw.(bool)
	return b
}

func durationFromMillis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
