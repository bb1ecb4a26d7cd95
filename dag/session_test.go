package dag

import (
	"context"
	"strings"
	"testing"

	"github.com/kbukum/constellation/ctype"
	"github.com/kbukum/constellation/cvalue"
)

func TestSession_RequiresInitializedRuntime(t *testing.T) {
	session, aerr := NewSession("s1", uppercaseSpec(), RunConfig{
		Registry:      registryWith(upperModule()),
		ModuleOptions: func(string) ModuleCallOptions { return DefaultModuleCallOptions() },
	})
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}

	_, aerr = session.ExecuteNextBatch(context.Background())
	if aerr == nil {
		t.Fatal("expected an error before InitializeRuntime")
	}
	if aerr.Code != "RUNTIME_NOT_INITIALIZED" {
		t.Fatalf("expected RUNTIME_NOT_INITIALIZED, got %s", aerr.Code)
	}
}

func TestSession_SteppedExecution(t *testing.T) {
	spec := diamondSpec()
	registry := NewRegistry()
	registry.SetModule(arithModule("double", func(v int64) int64 { return v * 2 }))
	registry.SetModule(arithModule("triple", func(v int64) int64 { return v * 3 }))
	registry.SetModule(ModuleFunc{FuncName: "sum", Fn: func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		return map[string]cvalue.CValue{"out": cvalue.Int(cvalue.IntVal(inputs["a"]) + cvalue.IntVal(inputs["b"]))}, nil
	}})

	session, aerr := NewSession("s1", spec, RunConfig{
		Registry:      registry,
		ModuleOptions: func(string) ModuleCallOptions { return DefaultModuleCallOptions() },
	})
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}

	for id, ns := range session.NodeStates() {
		if ns.Tag != NodePending {
			t.Fatalf("expected %s Pending before init, got %s", id, ns.Tag)
		}
	}

	if aerr := session.InitializeRuntime(map[string]cvalue.CValue{"x": cvalue.Int(5)}); aerr != nil {
		t.Fatalf("unexpected init error: %v", aerr)
	}
	if ns := session.NodeStates()["x"]; ns.Tag != NodeCompleted {
		t.Fatalf("expected input node Completed after init, got %s", ns.Tag)
	}

	// Batch 1 fires double and triple; the sink is still pending.
	complete, aerr := session.ExecuteNextBatch(context.Background())
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if complete {
		t.Fatal("expected more batches after the first module batch")
	}
	states := session.NodeStates()
	if states["m1"].Tag != NodeCompleted || states["m2"].Tag != NodeCompleted {
		t.Fatalf("expected m1/m2 Completed, got %s/%s", states["m1"].Tag, states["m2"].Tag)
	}
	if states["m3"].Tag != NodePending {
		t.Fatalf("expected m3 still Pending, got %s", states["m3"].Tag)
	}
	if len(session.GetOutputs()) != 0 {
		t.Fatal("expected no outputs mid-run")
	}

	complete, aerr = session.ExecuteNextBatch(context.Background())
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if !complete {
		t.Fatal("expected run to be complete")
	}

	outputs := session.GetOutputs()
	if got := cvalue.IntVal(outputs["z"]); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
}

func TestSession_ExecuteToCompletion(t *testing.T) {
	session, aerr := NewSession("s1", uppercaseSpec(), RunConfig{
		Registry:      registryWith(upperModule()),
		ModuleOptions: func(string) ModuleCallOptions { return DefaultModuleCallOptions() },
	})
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if aerr := session.InitializeRuntime(map[string]cvalue.CValue{"x": cvalue.String("step me")}); aerr != nil {
		t.Fatalf("unexpected init error: %v", aerr)
	}
	if aerr := session.ExecuteToCompletion(context.Background()); aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if got := cvalue.StringVal(session.GetOutputs()["y"]); got != "STEP ME" {
		t.Fatalf("expected STEP ME, got %q", got)
	}
}

func TestSession_FailedModuleMarksNodeFailed(t *testing.T) {
	session, aerr := NewSession("s1", uppercaseSpec(), RunConfig{
		Registry: registryWith(ModuleFunc{FuncName: "uppercase", Fn: func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
			return nil, context.DeadlineExceeded
		}}),
		ModuleOptions: func(string) ModuleCallOptions { return DefaultModuleCallOptions() },
	})
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if aerr := session.InitializeRuntime(map[string]cvalue.CValue{"x": cvalue.String("boom")}); aerr != nil {
		t.Fatalf("unexpected init error: %v", aerr)
	}
	if aerr := session.ExecuteToCompletion(context.Background()); aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}

	states := session.NodeStates()
	if states["m1"].Tag != NodeFailed {
		t.Fatalf("expected m1 Failed, got %s", states["m1"].Tag)
	}
	if len(session.GetOutputs()) != 0 {
		t.Fatal("expected no outputs from a failed run")
	}
}

func TestValuePreview_Primitives(t *testing.T) {
	for _, tc := range []struct {
		value cvalue.CValue
		want  string
	}{
		{cvalue.String("hi"), `"hi"`},
		{cvalue.Int(42), "42"},
		{cvalue.Float(1.5), "1.5"},
		{cvalue.Boolean(true), "true"},
		{cvalue.None(ctype.String()), "None"},
	} {
		if got := ValuePreview(tc.value, 80); got != tc.want {
			t.Errorf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestValuePreview_Containers(t *testing.T) {
	list := cvalue.List(ctype.Int(), cvalue.Int(1), cvalue.Int(2), cvalue.Int(3))
	if got := ValuePreview(list, 80); got != "[3 items]" {
		t.Errorf("expected [3 items], got %q", got)
	}

	product := cvalue.Product(
		map[string]ctype.CType{"a": ctype.Int(), "b": ctype.String()},
		map[string]cvalue.CValue{"a": cvalue.Int(1), "b": cvalue.String("x")},
	)
	if got := ValuePreview(product, 80); got != `{a: 1, b: "x"}` {
		t.Errorf("unexpected product preview %q", got)
	}

	some := cvalue.Some(ctype.Int(), cvalue.Int(7))
	if got := ValuePreview(some, 80); got != "Some(7)" {
		t.Errorf("expected Some(7), got %q", got)
	}
}

func TestValuePreview_TruncationBoundaries(t *testing.T) {
	// Quoted, the preview of 10 x's is 12 characters.
	v := cvalue.String(strings.Repeat("x", 10))

	if got := ValuePreview(v, 12); got != `"`+strings.Repeat("x", 10)+`"` {
		t.Errorf("len == maxLength must not truncate, got %q", got)
	}
	if got := ValuePreview(v, 11); got != `"`+strings.Repeat("x", 7)+"..." {
		t.Errorf("expected 8 chars + ellipsis, got %q", got)
	}
	for _, max := range []int{3, 2, 1, 0} {
		if got := ValuePreview(v, max); got != "..." {
			t.Errorf("maxLength %d should yield ..., got %q", max, got)
		}
	}
}
