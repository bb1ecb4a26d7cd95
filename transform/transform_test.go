package transform

import (
	"testing"

	"github.com/kbukum/constellation/cvalue"
)

func TestEval_Literal(t *testing.T) {
	tr := LiteralTransform{Value: RawTyped{Value: cvalue.RInt{V: 42}}}
	v, err := Eval(tr, nil)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if i, ok := v.(cvalue.RInt); !ok || i.V != 42 {
		t.Fatalf("expected RInt{42}, got %#v", v)
	}
}

func TestEval_Not(t *testing.T) {
	v, err := Eval(NotTransform{}, map[string]RawValue{"operand": cvalue.RBool{V: true}})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if b, ok := v.(cvalue.RBool); !ok || b.V != false {
		t.Fatalf("expected false, got %#v", v)
	}
}

func TestEval_AndOr(t *testing.T) {
	in := map[string]RawValue{"left": cvalue.RBool{V: true}, "right": cvalue.RBool{V: false}}
	and, err := Eval(AndTransform{}, in)
	if err != nil {
		t.Fatalf("eval and: %v", err)
	}
	if and.(cvalue.RBool).V != false {
		t.Fatal("expected true && false = false")
	}
	or, err := Eval(OrTransform{}, in)
	if err != nil {
		t.Fatalf("eval or: %v", err)
	}
	if or.(cvalue.RBool).V != true {
		t.Fatal("expected true || false = true")
	}
}

func TestEval_Conditional(t *testing.T) {
	in := map[string]RawValue{
		"cond":   cvalue.RBool{V: false},
		"thenBr": cvalue.RString{V: "then"},
		"elseBr": cvalue.RString{V: "else"},
	}
	v, err := Eval(ConditionalTransform{}, in)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if s, ok := v.(cvalue.RString); !ok || s.V != "else" {
		t.Fatalf("expected \"else\", got %#v", v)
	}
}

func TestEval_Guard(t *testing.T) {
	in := map[string]RawValue{"cond": cvalue.RBool{V: true}, "expr": cvalue.RInt{V: 7}}
	v, err := Eval(GuardTransform{}, in)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	some, ok := v.(cvalue.RSome)
	if !ok {
		t.Fatalf("expected RSome, got %#v", v)
	}
	if some.Inner.(cvalue.RInt).V != 7 {
		t.Fatal("expected inner 7")
	}

	in["cond"] = cvalue.RBool{V: false}
	v, err = Eval(GuardTransform{}, in)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if _, ok := v.(cvalue.RNone); !ok {
		t.Fatalf("expected RNone, got %#v", v)
	}
}

func TestEval_Coalesce(t *testing.T) {
	some := map[string]RawValue{"left": cvalue.RSome{Inner: cvalue.RInt{V: 1}}, "right": cvalue.RInt{V: 2}}
	v, err := Eval(CoalesceTransform{}, some)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.(cvalue.RInt).V != 1 {
		t.Fatal("expected left's inner value when Some")
	}

	none := map[string]RawValue{"left": cvalue.RNone{}, "right": cvalue.RInt{V: 2}}
	v, err = Eval(CoalesceTransform{}, none)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.(cvalue.RInt).V != 2 {
		t.Fatal("expected right when left is None")
	}
}

func TestEval_FieldAccess(t *testing.T) {
	p := cvalue.NewRProduct(map[string]RawValue{"a": cvalue.RInt{V: 1}, "b": cvalue.RString{V: "x"}})
	v, err := Eval(FieldAccessTransform{FieldName: "b"}, map[string]RawValue{"source": p})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.(cvalue.RString).V != "x" {
		t.Fatal("expected field b == x")
	}
}

func TestEval_RecordBuild(t *testing.T) {
	in := map[string]RawValue{"a": cvalue.RInt{V: 1}, "b": cvalue.RString{V: "x"}}
	v, err := Eval(RecordBuildTransform{FieldOrder: []string{"a", "b"}}, in)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	p, ok := v.(cvalue.RProduct)
	if !ok {
		t.Fatalf("expected RProduct, got %#v", v)
	}
	if p.Field("a").(cvalue.RInt).V != 1 || p.Field("b").(cvalue.RString).V != "x" {
		t.Fatal("unexpected product fields")
	}
}

func TestEval_Merge_RightOverridesLeft(t *testing.T) {
	left := cvalue.NewRProduct(map[string]RawValue{"a": cvalue.RInt{V: 1}, "b": cvalue.RInt{V: 2}})
	right := cvalue.NewRProduct(map[string]RawValue{"b": cvalue.RInt{V: 99}, "c": cvalue.RInt{V: 3}})
	v, err := Eval(MergeTransform{}, map[string]RawValue{"left": left, "right": right})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	p := v.(cvalue.RProduct)
	if p.Field("a").(cvalue.RInt).V != 1 {
		t.Fatal("expected a preserved from left")
	}
	if p.Field("b").(cvalue.RInt).V != 99 {
		t.Fatal("expected b overridden by right")
	}
	if p.Field("c").(cvalue.RInt).V != 3 {
		t.Fatal("expected c from right")
	}
}

func TestEval_Project(t *testing.T) {
	source := cvalue.NewRProduct(map[string]RawValue{"a": cvalue.RInt{V: 1}, "b": cvalue.RInt{V: 2}, "c": cvalue.RInt{V: 3}})
	v, err := Eval(ProjectTransform{KeepFields: []string{"a", "c"}}, map[string]RawValue{"source": source})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	p := v.(cvalue.RProduct)
	if len(p.FieldNames) != 2 {
		t.Fatalf("expected 2 fields kept, got %d", len(p.FieldNames))
	}
	if p.Field("b") != nil {
		t.Fatal("expected field b dropped")
	}
}

func TestEval_ListLiteral(t *testing.T) {
	in := map[string]RawValue{"elem0": cvalue.RInt{V: 1}, "elem1": cvalue.RInt{V: 2}}
	v, err := Eval(ListLiteralTransform{Count: 2}, in)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	l := v.(cvalue.RList)
	if len(l.V) != 2 || l.V[0].(cvalue.RInt).V != 1 || l.V[1].(cvalue.RInt).V != 2 {
		t.Fatalf("unexpected list contents: %#v", l)
	}
}

func TestEval_Map(t *testing.T) {
	source := cvalue.RIntList{V: []int64{1, 2, 3}}
	double := MapTransform{Fn: func(v RawValue) (RawValue, error) {
		return cvalue.RInt{V: v.(cvalue.RInt).V * 2}, nil
	}}
	v, err := Eval(double, map[string]RawValue{"source": source})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	l := v.(cvalue.RList)
	if len(l.V) != 3 || l.V[0].(cvalue.RInt).V != 2 || l.V[2].(cvalue.RInt).V != 6 {
		t.Fatalf("unexpected mapped list: %#v", l)
	}
}

func TestEval_Filter(t *testing.T) {
	source := cvalue.RIntList{V: []int64{1, 2, 3, 4}}
	even := FilterTransform{Predicate: func(v RawValue) (bool, error) {
		return v.(cvalue.RInt).V%2 == 0, nil
	}}
	v, err := Eval(even, map[string]RawValue{"source": source})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	l := v.(cvalue.RList)
	if len(l.V) != 2 {
		t.Fatalf("expected 2 even elements, got %d", len(l.V))
	}
}

func TestEval_AllAny(t *testing.T) {
	source := cvalue.RIntList{V: []int64{2, 4, 6}}
	even := func(v RawValue) (bool, error) { return v.(cvalue.RInt).V%2 == 0, nil }

	all, err := Eval(AllTransform{Predicate: even}, map[string]RawValue{"source": source})
	if err != nil {
		t.Fatalf("eval all: %v", err)
	}
	if !all.(cvalue.RBool).V {
		t.Fatal("expected all even to be true")
	}

	odd := func(v RawValue) (bool, error) { return v.(cvalue.RInt).V%2 != 0, nil }
	any, err := Eval(AnyTransform{Predicate: odd}, map[string]RawValue{"source": source})
	if err != nil {
		t.Fatalf("eval any: %v", err)
	}
	if any.(cvalue.RBool).V {
		t.Fatal("expected any odd to be false")
	}
}

func TestEval_StringInterpolation(t *testing.T) {
	tr := StringInterpolationTransform{Parts: []string{"hello, ", "!"}}
	v, err := Eval(tr, map[string]RawValue{"expr0": cvalue.RString{V: "world"}})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.(cvalue.RString).V != "hello, world!" {
		t.Fatalf("unexpected interpolation result: %q", v.(cvalue.RString).V)
	}
}

func TestEval_StringInterpolation_NonStringInput(t *testing.T) {
	tr := StringInterpolationTransform{Parts: []string{"count: ", ""}}
	v, err := Eval(tr, map[string]RawValue{"expr0": cvalue.RInt{V: 3}})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.(cvalue.RString).V != "count: 3" {
		t.Fatalf("unexpected interpolation result: %q", v.(cvalue.RString).V)
	}
}

func TestEval_Match_UnionScrutineeSeesTagAndInner(t *testing.T) {
	u := cvalue.RUnion{Tag: "b", Inner: cvalue.RString{V: "hi"}}
	matchers := []Matcher{
		{
			Test: func(v RawValue) (bool, error) { return v.(cvalue.RUnion).Tag == "a", nil },
			Body: func(v RawValue) (RawValue, error) { return cvalue.RString{V: "matched a"}, nil },
		},
		{
			Test: func(v RawValue) (bool, error) { return v.(cvalue.RUnion).Tag == "b", nil },
			Body: func(v RawValue) (RawValue, error) {
				return cvalue.RString{V: "matched b: " + v.(cvalue.RUnion).Inner.(cvalue.RString).V}, nil
			},
		},
	}
	v, err := Eval(MatchTransform{Matchers: matchers}, map[string]RawValue{"scrutinee": u})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.(cvalue.RString).V != "matched b: hi" {
		t.Fatalf("unexpected match result: %q", v.(cvalue.RString).V)
	}
}

func TestEval_Match_NoMatcherErrors(t *testing.T) {
	matchers := []Matcher{
		{Test: func(v RawValue) (bool, error) { return false, nil }, Body: func(v RawValue) (RawValue, error) { return nil, nil }},
	}
	_, err := Eval(MatchTransform{Matchers: matchers}, map[string]RawValue{"scrutinee": cvalue.RInt{V: 1}})
	if err == nil {
		t.Fatal("expected error when no matcher matches")
	}
}
