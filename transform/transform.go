package transform

import (
	"fmt"

	"github.com/kbukum/constellation/ctype"
	"github.com/kbukum/constellation/cvalue"
)

// Tag discriminates the variant of a Transform.
type Tag string

const (
	TagLiteral             Tag = "Literal"
	TagNot                 Tag = "Not"
	TagAnd                 Tag = "And"
	TagOr                  Tag = "Or"
	TagConditional         Tag = "Conditional"
	TagGuard               Tag = "Guard"
	TagCoalesce            Tag = "Coalesce"
	TagFieldAccess         Tag = "FieldAccess"
	TagRecordBuild         Tag = "RecordBuild"
	TagMerge               Tag = "Merge"
	TagProject             Tag = "Project"
	TagListLiteral         Tag = "ListLiteral"
	TagMap                 Tag = "Map"
	TagFilter              Tag = "Filter"
	TagAll                 Tag = "All"
	TagAny                 Tag = "Any"
	TagStringInterpolation Tag = "StringInterpolation"
	TagMatch               Tag = "Match"
)

// Transform is the tagged sum of inline-transform operators.
type Transform interface {
	Tag() Tag
}

// LiteralTransform has no inputs; Eval returns Value as-is.
type LiteralTransform struct {
	Value RawTyped
}

// RawTyped pairs a RawValue with the CType it must conform to, since
// LiteralTransform carries no other source of type information.
type RawTyped struct {
	Value RawValue
	Type  ctype.CType
}

// RawValue aliases cvalue.RawValue for readability within transform specs.
type RawValue = cvalue.RawValue

func (LiteralTransform) Tag() Tag { return TagLiteral }

// NotTransform negates input "operand".
type NotTransform struct{}

func (NotTransform) Tag() Tag { return TagNot }

// AndTransform combines inputs "left" and "right" (both evaluated,
// short-circuit semantics only in result, not in evaluation).
type AndTransform struct{}

func (AndTransform) Tag() Tag { return TagAnd }

// OrTransform combines inputs "left" and "right".
type OrTransform struct{}

func (OrTransform) Tag() Tag { return TagOr }

// ConditionalTransform selects "thenBr" or "elseBr" based on "cond"; both
// branches are materialized regardless of which is selected.
type ConditionalTransform struct{}

func (ConditionalTransform) Tag() Tag { return TagConditional }

// GuardTransform wraps "expr" in Some if "cond" else returns None.
type GuardTransform struct {
	ExprType ctype.CType
}

func (GuardTransform) Tag() Tag { return TagGuard }

// CoalesceTransform returns the inner of "left" if Some, else "right".
type CoalesceTransform struct{}

func (CoalesceTransform) Tag() Tag { return TagCoalesce }

// FieldAccessTransform reads FieldName from input "source".
type FieldAccessTransform struct {
	FieldName  string
	SourceType ctype.CType
}

func (FieldAccessTransform) Tag() Tag { return TagFieldAccess }

// RecordBuildTransform builds a CProduct from inputs named per FieldOrder.
type RecordBuildTransform struct {
	FieldOrder []string
}

func (RecordBuildTransform) Tag() Tag { return TagRecordBuild }

// MergeTransform combines "left" and "right" CProducts; right fields
// override on name collision.
type MergeTransform struct {
	LeftType  ctype.CType
	RightType ctype.CType
}

func (MergeTransform) Tag() Tag { return TagMerge }

// ProjectTransform restricts input "source" to KeepFields.
type ProjectTransform struct {
	KeepFields []string
	SourceType ctype.CType
}

func (ProjectTransform) Tag() Tag { return TagProject }

// ListLiteralTransform builds a CList from inputs elem0..elem(Count-1).
type ListLiteralTransform struct {
	Count int
}

func (ListLiteralTransform) Tag() Tag { return TagListLiteral }

// MapTransform applies Fn to every element of input "source".
type MapTransform struct {
	Fn func(RawValue) (RawValue, error)
}

func (MapTransform) Tag() Tag { return TagMap }

// FilterTransform keeps elements of input "source" for which Predicate
// returns true.
type FilterTransform struct {
	Predicate func(RawValue) (bool, error)
}

func (FilterTransform) Tag() Tag { return TagFilter }

// AllTransform reports whether Predicate holds for every element of
// input "source".
type AllTransform struct {
	Predicate func(RawValue) (bool, error)
}

func (AllTransform) Tag() Tag { return TagAll }

// AnyTransform reports whether Predicate holds for some element of
// input "source".
type AnyTransform struct {
	Predicate func(RawValue) (bool, error)
}

func (AnyTransform) Tag() Tag { return TagAny }

// StringInterpolationTransform interleaves Parts with inputs
// expr0..expr(n-1): result = p0 + expr0 + p1 + ... + exprN-1 + pn.
type StringInterpolationTransform struct {
	Parts []string
}

func (StringInterpolationTransform) Tag() Tag { return TagStringInterpolation }

// Matcher is one arm of a MatchTransform: Test decides whether this arm
// fires (given the raw scrutinee, unwrapped for non-union types or the
// (tag, inner) pair packaged as an RUnion for union scrutinees), and Body
// computes the result when it does.
type Matcher struct {
	Test func(RawValue) (bool, error)
	Body func(RawValue) (RawValue, error)
}

// MatchTransform tries Matchers top-to-bottom against input "scrutinee";
// the first matching arm's Body supplies the result.
type MatchTransform struct {
	Matchers      []Matcher
	ScrutineeType ctype.CType
}

func (MatchTransform) Tag() Tag { return TagMatch }

// Eval evaluates t given its resolved named inputs, as produced by the
// scheduler fetching each TransformInputs entry's current value.
func Eval(t Transform, inputs map[string]RawValue) (RawValue, error) {
	switch tr := t.(type) {
	case LiteralTransform:
		return tr.Value.Value, nil

	case NotTransform:
		operand, err := requireBool(inputs, "operand")
		if err != nil {
			return nil, err
		}
		return cvalue.RBool{V: !operand}, nil

	case AndTransform:
		left, err := requireBool(inputs, "left")
		if err != nil {
			return nil, err
		}
		right, err := requireBool(inputs, "right")
		if err != nil {
			return nil, err
		}
		return cvalue.RBool{V: left && right}, nil

	case OrTransform:
		left, err := requireBool(inputs, "left")
		if err != nil {
			return nil, err
		}
		right, err := requireBool(inputs, "right")
		if err != nil {
			return nil, err
		}
		return cvalue.RBool{V: left || right}, nil

	case ConditionalTransform:
		cond, err := requireBool(inputs, "cond")
		if err != nil {
			return nil, err
		}
		thenBr, ok := inputs["thenBr"]
		if !ok {
			return nil, fmt.Errorf("transform: Conditional: missing input \"thenBr\"")
		}
		elseBr, ok := inputs["elseBr"]
		if !ok {
			return nil, fmt.Errorf("transform: Conditional: missing input \"elseBr\"")
		}
		if cond {
			return thenBr, nil
		}
		return elseBr, nil

	case GuardTransform:
		cond, err := requireBool(inputs, "cond")
		if err != nil {
			return nil, err
		}
		expr, ok := inputs["expr"]
		if !ok {
			return nil, fmt.Errorf("transform: Guard: missing input \"expr\"")
		}
		if cond {
			return cvalue.RSome{Inner: expr}, nil
		}
		return cvalue.RNone{}, nil

	case CoalesceTransform:
		left, ok := inputs["left"]
		if !ok {
			return nil, fmt.Errorf("transform: Coalesce: missing input \"left\"")
		}
		right, ok := inputs["right"]
		if !ok {
			return nil, fmt.Errorf("transform: Coalesce: missing input \"right\"")
		}
		if some, ok := left.(cvalue.RSome); ok {
			return some.Inner, nil
		}
		return right, nil

	case FieldAccessTransform:
		source, err := requireProduct(inputs, "source")
		if err != nil {
			return nil, err
		}
		v := source.Field(tr.FieldName)
		if v == nil {
			return nil, fmt.Errorf("transform: FieldAccess: field %q not present", tr.FieldName)
		}
		return v, nil

	case RecordBuildTransform:
		fields := make(map[string]RawValue, len(tr.FieldOrder))
		for _, name := range tr.FieldOrder {
			v, ok := inputs[name]
			if !ok {
				return nil, fmt.Errorf("transform: RecordBuild: missing input %q", name)
			}
			fields[name] = v
		}
		return cvalue.NewRProduct(fields), nil

	case MergeTransform:
		left, err := requireProduct(inputs, "left")
		if err != nil {
			return nil, err
		}
		right, err := requireProduct(inputs, "right")
		if err != nil {
			return nil, err
		}
		merged := make(map[string]RawValue, len(left.FieldNames)+len(right.FieldNames))
		for i, n := range left.FieldNames {
			merged[n] = left.Values[i]
		}
		for i, n := range right.FieldNames {
			merged[n] = right.Values[i]
		}
		return cvalue.NewRProduct(merged), nil

	case ProjectTransform:
		source, err := requireProduct(inputs, "source")
		if err != nil {
			return nil, err
		}
		kept := make(map[string]RawValue, len(tr.KeepFields))
		for _, name := range tr.KeepFields {
			v := source.Field(name)
			if v == nil {
				return nil, fmt.Errorf("transform: Project: field %q not present", name)
			}
			kept[name] = v
		}
		return cvalue.NewRProduct(kept), nil

	case ListLiteralTransform:
		items := make([]RawValue, tr.Count)
		for i := 0; i < tr.Count; i++ {
			name := fmt.Sprintf("elem%d", i)
			v, ok := inputs[name]
			if !ok {
				return nil, fmt.Errorf("transform: ListLiteral: missing input %q", name)
			}
			items[i] = v
		}
		return cvalue.RList{V: items}, nil

	case MapTransform:
		if tr.Fn == nil {
			return nil, fmt.Errorf("transform: Map: closure missing (deserialized transform cannot be executed)")
		}
		source, err := requireList(inputs, "source")
		if err != nil {
			return nil, err
		}
		out := make([]RawValue, len(source))
		for i, v := range source {
			mv, err := tr.Fn(v)
			if err != nil {
				return nil, err
			}
			out[i] = mv
		}
		return cvalue.RList{V: out}, nil

	case FilterTransform:
		if tr.Predicate == nil {
			return nil, fmt.Errorf("transform: Filter: closure missing (deserialized transform cannot be executed)")
		}
		source, err := requireList(inputs, "source")
		if err != nil {
			return nil, err
		}
		var out []RawValue
		for _, v := range source {
			keep, err := tr.Predicate(v)
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, v)
			}
		}
		return cvalue.RList{V: out}, nil

	case AllTransform:
		if tr.Predicate == nil {
			return nil, fmt.Errorf("transform: All: closure missing (deserialized transform cannot be executed)")
		}
		source, err := requireList(inputs, "source")
		if err != nil {
			return nil, err
		}
		for _, v := range source {
			ok, err := tr.Predicate(v)
			if err != nil {
				return nil, err
			}
			if !ok {
				return cvalue.RBool{V: false}, nil
			}
		}
		return cvalue.RBool{V: true}, nil

	case AnyTransform:
		if tr.Predicate == nil {
			return nil, fmt.Errorf("transform: Any: closure missing (deserialized transform cannot be executed)")
		}
		source, err := requireList(inputs, "source")
		if err != nil {
			return nil, err
		}
		for _, v := range source {
			ok, err := tr.Predicate(v)
			if err != nil {
				return nil, err
			}
			if ok {
				return cvalue.RBool{V: true}, nil
			}
		}
		return cvalue.RBool{V: false}, nil

	case StringInterpolationTransform:
		if len(tr.Parts) == 0 {
			return cvalue.RString{V: ""}, nil
		}
		result := tr.Parts[0]
		for i := 1; i < len(tr.Parts); i++ {
			name := fmt.Sprintf("expr%d", i-1)
			v, ok := inputs[name]
			if !ok {
				return nil, fmt.Errorf("transform: StringInterpolation: missing input %q", name)
			}
			result += stringify(v) + tr.Parts[i]
		}
		return cvalue.RString{V: result}, nil

	case MatchTransform:
		scrutinee, ok := inputs["scrutinee"]
		if !ok {
			return nil, fmt.Errorf("transform: Match: missing input \"scrutinee\"")
		}
		subject := scrutinee
		if u, ok := scrutinee.(cvalue.RUnion); ok {
			subject = u
		}
		for _, m := range tr.Matchers {
			if m.Test == nil || m.Body == nil {
				return nil, fmt.Errorf("transform: Match: closure missing (deserialized transform cannot be executed)")
			}
			matched, err := m.Test(subject)
			if err != nil {
				return nil, err
			}
			if matched {
				return m.Body(subject)
			}
		}
		return nil, fmt.Errorf("transform: Match: no matcher matched scrutinee")

	default:
		return nil, fmt.Errorf("transform: Eval: unhandled transform tag %q", t.Tag())
	}
}

func requireBool(inputs map[string]RawValue, name string) (bool, error) {
	v, ok := inputs[name]
	if !ok {
		return false, fmt.Errorf("transform: missing input %q", name)
	}
	b, ok := v.(cvalue.RBool)
	if !ok {
		return false, fmt.Errorf("transform: input %q: expected Bool, got %s", name, v.RawTag())
	}
	return b.V, nil
}

func requireProduct(inputs map[string]RawValue, name string) (cvalue.RProduct, error) {
	v, ok := inputs[name]
	if !ok {
		return cvalue.RProduct{}, fmt.Errorf("transform: missing input %q", name)
	}
	p, ok := v.(cvalue.RProduct)
	if !ok {
		return cvalue.RProduct{}, fmt.Errorf("transform: input %q: expected Product, got %s", name, v.RawTag())
	}
	return p, nil
}

func requireList(inputs map[string]RawValue, name string) ([]RawValue, error) {
	v, ok := inputs[name]
	if !ok {
		return nil, fmt.Errorf("transform: missing input %q", name)
	}
	switch l := v.(type) {
	case cvalue.RList:
		return l.V, nil
	case cvalue.RIntList:
		out := make([]RawValue, len(l.V))
		for i, n := range l.V {
			out[i] = cvalue.RInt{V: n}
		}
		return out, nil
	case cvalue.RFloatList:
		out := make([]RawValue, len(l.V))
		for i, n := range l.V {
			out[i] = cvalue.RFloat{V: n}
		}
		return out, nil
	case cvalue.RStringList:
		out := make([]RawValue, len(l.V))
		for i, s := range l.V {
			out[i] = cvalue.RString{V: s}
		}
		return out, nil
	case cvalue.RBoolList:
		out := make([]RawValue, len(l.V))
		for i, b := range l.V {
			out[i] = cvalue.RBool{V: b}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("transform: input %q: expected List, got %s", name, v.RawTag())
	}
}

// stringify renders a RawValue for interpolation: strings are inserted
// as-is, without quotes.
func stringify(v RawValue) string {
	switch t := v.(type) {
	case cvalue.RString:
		return t.V
	case cvalue.RInt:
		return fmt.Sprintf("%d", t.V)
	case cvalue.RFloat:
		return fmt.Sprintf("%g", t.V)
	case cvalue.RBool:
		return fmt.Sprintf("%t", t.V)
	default:
		return fmt.Sprintf("%v", v)
	}
}
