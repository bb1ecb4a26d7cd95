package transform

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/constellation/ctype"
	"github.com/kbukum/constellation/cvalue"
)

// Encode converts t into its JSON-ready representation. Transforms carrying
// a host-language closure (Map, Filter, All, Any, Match) cannot serialize
// their Fn/Predicate/Test/Body fields; Encode drops the closure and writes
// "closureMissing", true when the closure was already absent and false when
// one was present.
func Encode(t Transform) map[string]any {
	switch tr := t.(type) {
	case LiteralTransform:
		return map[string]any{
			"tag":   string(TagLiteral),
			"type":  ctype.Encode(tr.Value.Type),
			"value": cvalue.EncodeRaw(tr.Value.Value),
		}
	case NotTransform:
		return map[string]any{"tag": string(TagNot)}
	case AndTransform:
		return map[string]any{"tag": string(TagAnd)}
	case OrTransform:
		return map[string]any{"tag": string(TagOr)}
	case ConditionalTransform:
		return map[string]any{"tag": string(TagConditional)}
	case GuardTransform:
		return map[string]any{"tag": string(TagGuard), "exprType": ctype.Encode(tr.ExprType)}
	case CoalesceTransform:
		return map[string]any{"tag": string(TagCoalesce)}
	case FieldAccessTransform:
		return map[string]any{
			"tag":        string(TagFieldAccess),
			"fieldName":  tr.FieldName,
			"sourceType": ctype.Encode(tr.SourceType),
		}
	case RecordBuildTransform:
		return map[string]any{"tag": string(TagRecordBuild), "fieldOrder": stringsToAny(tr.FieldOrder)}
	case MergeTransform:
		return map[string]any{
			"tag":       string(TagMerge),
			"leftType":  ctype.Encode(tr.LeftType),
			"rightType": ctype.Encode(tr.RightType),
		}
	case ProjectTransform:
		return map[string]any{
			"tag":        string(TagProject),
			"keepFields": stringsToAny(tr.KeepFields),
			"sourceType": ctype.Encode(tr.SourceType),
		}
	case ListLiteralTransform:
		return map[string]any{"tag": string(TagListLiteral), "count": tr.Count}
	case MapTransform:
		return map[string]any{"tag": string(TagMap), "closureMissing": tr.Fn == nil}
	case FilterTransform:
		return map[string]any{"tag": string(TagFilter), "closureMissing": tr.Predicate == nil}
	case AllTransform:
		return map[string]any{"tag": string(TagAll), "closureMissing": tr.Predicate == nil}
	case AnyTransform:
		return map[string]any{"tag": string(TagAny), "closureMissing": tr.Predicate == nil}
	case StringInterpolationTransform:
		return map[string]any{"tag": string(TagStringInterpolation), "parts": stringsToAny(tr.Parts)}
	case MatchTransform:
		missing := false
		for _, m := range tr.Matchers {
			if m.Test == nil || m.Body == nil {
				missing = true
				break
			}
		}
		return map[string]any{
			"tag":            string(TagMatch),
			"scrutineeType":  ctype.Encode(tr.ScrutineeType),
			"arms":           len(tr.Matchers),
			"closureMissing": missing,
		}
	default:
		panic(fmt.Sprintf("transform: Encode: unhandled tag %q", t.Tag()))
	}
}

// Decode reconstructs a Transform from its JSON-ready representation.
// Config-only transforms (Literal, Not, And, Or, Conditional, Guard,
// Coalesce, FieldAccess, RecordBuild, Merge, Project, ListLiteral,
// StringInterpolation) round-trip fully. Closure-bearing transforms (Map,
// Filter, All, Any, Match) decode with nil closures; Eval on these fails
// with a "closure missing" error until a host re-resolves them by type
// name — this package has no such registry, so every decoded instance has
// nil closures regardless of the encoded closureMissing flag.
func Decode(m map[string]any) (Transform, error) {
	rawTag, ok := m["tag"]
	if !ok {
		return nil, fmt.Errorf("transform: decode: missing tag")
	}
	tagStr, ok := rawTag.(string)
	if !ok {
		return nil, fmt.Errorf("transform: decode: tag is not a string")
	}

	switch Tag(tagStr) {
	case TagLiteral:
		typeObj, err := asObject(m, "type")
		if err != nil {
			return nil, err
		}
		t, err := ctype.Decode(typeObj)
		if err != nil {
			return nil, err
		}
		raw, ok := m["value"]
		if !ok {
			return nil, fmt.Errorf("transform: decode: Literal missing value")
		}
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		rv, aerr := cvalue.DecodeRaw(data, t)
		if aerr != nil {
			return nil, aerr
		}
		return LiteralTransform{Value: RawTyped{Value: rv, Type: t}}, nil
	case TagNot:
		return NotTransform{}, nil
	case TagAnd:
		return AndTransform{}, nil
	case TagOr:
		return OrTransform{}, nil
	case TagConditional:
		return ConditionalTransform{}, nil
	case TagGuard:
		typeObj, err := asObject(m, "exprType")
		if err != nil {
			return nil, err
		}
		t, err := ctype.Decode(typeObj)
		if err != nil {
			return nil, err
		}
		return GuardTransform{ExprType: t}, nil
	case TagCoalesce:
		return CoalesceTransform{}, nil
	case TagFieldAccess:
		name, _ := m["fieldName"].(string)
		typeObj, err := asObject(m, "sourceType")
		if err != nil {
			return nil, err
		}
		t, err := ctype.Decode(typeObj)
		if err != nil {
			return nil, err
		}
		return FieldAccessTransform{FieldName: name, SourceType: t}, nil
	case TagRecordBuild:
		order, err := asStrings(m, "fieldOrder")
		if err != nil {
			return nil, err
		}
		return RecordBuildTransform{FieldOrder: order}, nil
	case TagMerge:
		leftObj, err := asObject(m, "leftType")
		if err != nil {
			return nil, err
		}
		rightObj, err := asObject(m, "rightType")
		if err != nil {
			return nil, err
		}
		left, err := ctype.Decode(leftObj)
		if err != nil {
			return nil, err
		}
		right, err := ctype.Decode(rightObj)
		if err != nil {
			return nil, err
		}
		return MergeTransform{LeftType: left, RightType: right}, nil
	case TagProject:
		keep, err := asStrings(m, "keepFields")
		if err != nil {
			return nil, err
		}
		typeObj, err := asObject(m, "sourceType")
		if err != nil {
			return nil, err
		}
		t, err := ctype.Decode(typeObj)
		if err != nil {
			return nil, err
		}
		return ProjectTransform{KeepFields: keep, SourceType: t}, nil
	case TagListLiteral:
		count, err := asInt(m, "count")
		if err != nil {
			return nil, err
		}
		return ListLiteralTransform{Count: count}, nil
	case TagMap:
		return MapTransform{}, nil
	case TagFilter:
		return FilterTransform{}, nil
	case TagAll:
		return AllTransform{}, nil
	case TagAny:
		return AnyTransform{}, nil
	case TagStringInterpolation:
		parts, err := asStrings(m, "parts")
		if err != nil {
			return nil, err
		}
		return StringInterpolationTransform{Parts: parts}, nil
	case TagMatch:
		typeObj, err := asObject(m, "scrutineeType")
		if err != nil {
			return nil, err
		}
		t, err := ctype.Decode(typeObj)
		if err != nil {
			return nil, err
		}
		arms, _ := asInt(m, "arms")
		matchers := make([]Matcher, arms)
		return MatchTransform{Matchers: matchers, ScrutineeType: t}, nil
	default:
		return nil, fmt.Errorf("transform: decode: unknown tag %q", tagStr)
	}
}

// HasMissingClosure reports whether t is a closure-bearing transform whose
// closures are absent (as every decoded instance's are). The scheduler
// consults this before attempting to fire a derived data node so the
// failure is a structured error rather than a nil-pointer panic deep in
// Eval.
func HasMissingClosure(t Transform) bool {
	switch tr := t.(type) {
	case MapTransform:
		return tr.Fn == nil
	case FilterTransform:
		return tr.Predicate == nil
	case AllTransform:
		return tr.Predicate == nil
	case AnyTransform:
		return tr.Predicate == nil
	case MatchTransform:
		for _, m := range tr.Matchers {
			if m.Test == nil || m.Body == nil {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func asObject(m map[string]any, key string) (map[string]any, error) {
	raw, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("transform: decode: missing field %q", key)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("transform: decode: field %q is not an object", key)
	}
	return obj, nil
}

func asStrings(m map[string]any, key string) ([]string, error) {
	raw, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("transform: decode: missing field %q", key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("transform: decode: field %q is not an array", key)
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("transform: decode: field %q[%d] is not a string", key, i)
		}
		out[i] = s
	}
	return out, nil
}

func asInt(m map[string]any, key string) (int, error) {
	raw, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("transform: decode: missing field %q", key)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("transform: decode: field %q is not a number", key)
	}
}
