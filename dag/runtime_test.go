package dag

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/constellation/ctype"
	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/dagspec"
)

func uppercaseSpec() *dagspec.DagSpec {
	return &dagspec.DagSpec{
		Metadata: dagspec.Metadata{Name: "uppercase"},
		Modules: map[string]dagspec.ModuleNodeSpec{
			"m1": {
				ID:       "m1",
				Metadata: dagspec.ModuleMetadata{Name: "uppercase"},
				Consumes: map[string]ctype.CType{"in": ctype.String()},
				Produces: map[string]ctype.CType{"out": ctype.String()},
			},
		},
		Data: map[string]dagspec.DataNodeSpec{
			"x": {ID: "x", Name: "x", CType: ctype.String(), Nicknames: map[string]string{"m1": "in"}},
			"y": {ID: "y", Name: "y", CType: ctype.String(), Nicknames: map[string]string{"m1": "out"}},
		},
		InEdges:         []dagspec.InEdge{{DataID: "x", ModuleID: "m1"}},
		OutEdges:        []dagspec.OutEdge{{ModuleID: "m1", DataID: "y"}},
		DeclaredOutputs: []string{"y"},
		OutputBindings:  map[string]string{"y": "y"},
	}
}

func registryWith(modules ...Module) *Registry {
	r := NewRegistry()
	for _, m := range modules {
		r.SetModule(m)
	}
	return r
}

func upperModule() Module {
	return ModuleFunc{
		FuncName: "uppercase",
		Fn: func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
			s := cvalue.StringVal(inputs["in"])
			out := ""
			for _, r := range s {
				if r >= 'a' && r <= 'z' {
					r -= 32
				}
				out += string(r)
			}
			return map[string]cvalue.CValue{"out": cvalue.String(out)}, nil
		},
	}
}

func TestRun_SingleModuleUppercase(t *testing.T) {
	spec := uppercaseSpec()
	cfg := RunConfig{
		Registry:      registryWith(upperModule()),
		ModuleOptions: func(string) ModuleCallOptions { return DefaultModuleCallOptions() },
	}
	state, aerr := Run(context.Background(), spec, map[string]cvalue.CValue{"x": cvalue.String("hello")}, cfg)
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if !state.IsResolved("y") {
		t.Fatal("expected y to be resolved")
	}
	if got := cvalue.StringVal(state.Value("y")); got != "HELLO" {
		t.Fatalf("expected HELLO, got %q", got)
	}
}

// diamondSpec builds x -> {m1, m2} -> m3 -> z, exercising concurrent batch
// firing and a module with two consumed inputs.
func diamondSpec() *dagspec.DagSpec {
	return &dagspec.DagSpec{
		Metadata: dagspec.Metadata{Name: "diamond"},
		Modules: map[string]dagspec.ModuleNodeSpec{
			"m1": {ID: "m1", Metadata: dagspec.ModuleMetadata{Name: "double"}, Consumes: map[string]ctype.CType{"in": ctype.Int()}, Produces: map[string]ctype.CType{"out": ctype.Int()}},
			"m2": {ID: "m2", Metadata: dagspec.ModuleMetadata{Name: "triple"}, Consumes: map[string]ctype.CType{"in": ctype.Int()}, Produces: map[string]ctype.CType{"out": ctype.Int()}},
			"m3": {ID: "m3", Metadata: dagspec.ModuleMetadata{Name: "sum"}, Consumes: map[string]ctype.CType{"a": ctype.Int(), "b": ctype.Int()}, Produces: map[string]ctype.CType{"out": ctype.Int()}},
		},
		Data: map[string]dagspec.DataNodeSpec{
			"x": {ID: "x", Name: "x", CType: ctype.Int(), Nicknames: map[string]string{"m1": "in", "m2": "in"}},
			"a": {ID: "a", Name: "a", CType: ctype.Int(), Nicknames: map[string]string{"m1": "out"}},
			"b": {ID: "b", Name: "b", CType: ctype.Int(), Nicknames: map[string]string{"m2": "out"}},
			"z": {ID: "z", Name: "z", CType: ctype.Int(), Nicknames: map[string]string{"m3": "out"}},
		},
		InEdges: []dagspec.InEdge{
			{DataID: "x", ModuleID: "m1"},
			{DataID: "x", ModuleID: "m2"},
			{DataID: "a", ModuleID: "m3"},
			{DataID: "b", ModuleID: "m3"},
		},
		OutEdges: []dagspec.OutEdge{
			{ModuleID: "m1", DataID: "a"},
			{ModuleID: "m2", DataID: "b"},
			{ModuleID: "m3", DataID: "z"},
		},
		DeclaredOutputs: []string{"z"},
		OutputBindings:  map[string]string{"z": "z"},
	}
}

func arithModule(name string, fn func(int64) int64) Module {
	return ModuleFunc{FuncName: name, Fn: func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		return map[string]cvalue.CValue{"out": cvalue.Int(fn(cvalue.IntVal(inputs["in"])))}, nil
	}}
}

func TestRun_Diamond(t *testing.T) {
	spec := diamondSpec()
	registry := NewRegistry()
	registry.SetModule(arithModule("double", func(v int64) int64 { return v * 2 }))
	registry.SetModule(arithModule("triple", func(v int64) int64 { return v * 3 }))
	registry.SetModule(ModuleFunc{FuncName: "sum", Fn: func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		return map[string]cvalue.CValue{"out": cvalue.Int(cvalue.IntVal(inputs["a"]) + cvalue.IntVal(inputs["b"]))}, nil
	}})
	cfg := RunConfig{Registry: registry, ModuleOptions: func(string) ModuleCallOptions { return DefaultModuleCallOptions() }}

	state, aerr := Run(context.Background(), spec, map[string]cvalue.CValue{"x": cvalue.Int(5)}, cfg)
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if got := cvalue.IntVal(state.Value("z")); got != 25 {
		t.Fatalf("expected 5*2 + 5*3 = 25, got %d", got)
	}
}

func TestRun_TypeMismatchRejectedByValidateInputs(t *testing.T) {
	spec := uppercaseSpec()
	_, aerr := ValidateInputs(spec, map[string]cvalue.CValue{"x": cvalue.Int(5)})
	if aerr == nil {
		t.Fatal("expected a type mismatch error")
	}
	if aerr.Code != "INPUT_TYPE_MISMATCH" {
		t.Fatalf("expected INPUT_TYPE_MISMATCH, got %s", aerr.Code)
	}
}

func TestComputeBatches_DetectsCycle(t *testing.T) {
	spec := &dagspec.DagSpec{
		Modules: map[string]dagspec.ModuleNodeSpec{
			"m1": {ID: "m1", Consumes: map[string]ctype.CType{"b": ctype.Int()}, Produces: map[string]ctype.CType{"a": ctype.Int()}},
			"m2": {ID: "m2", Consumes: map[string]ctype.CType{"a": ctype.Int()}, Produces: map[string]ctype.CType{"b": ctype.Int()}},
		},
		Data: map[string]dagspec.DataNodeSpec{
			"a": {ID: "a", Name: "a", CType: ctype.Int()},
			"b": {ID: "b", Name: "b", CType: ctype.Int()},
		},
		InEdges: []dagspec.InEdge{
			{DataID: "b", ModuleID: "m1"},
			{DataID: "a", ModuleID: "m2"},
		},
		OutEdges: []dagspec.OutEdge{
			{ModuleID: "m1", DataID: "a"},
			{ModuleID: "m2", DataID: "b"},
		},
	}
	_, aerr := ComputeBatches(spec)
	if aerr == nil {
		t.Fatal("expected a cycle-detected error")
	}
	if aerr.Code != "CYCLE_DETECTED" {
		t.Fatalf("expected CYCLE_DETECTED, got %s", aerr.Code)
	}
}

func TestRun_RetryThenFallback(t *testing.T) {
	spec := uppercaseSpec()
	attempts := 0
	flaky := ModuleFunc{FuncName: "uppercase", Fn: func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		attempts++
		return nil, errors.New("boom")
	}}
	cfg := RunConfig{
		Registry: registryWith(flaky),
		ModuleOptions: func(string) ModuleCallOptions {
			opts := DefaultModuleCallOptions()
			opts.Retry = 2
			opts.DelayMs = 1
			opts.HasFallback = true
			opts.FallbackVal = cvalue.String("FALLBACK")
			return opts
		},
	}
	state, aerr := Run(context.Background(), spec, map[string]cvalue.CValue{"x": cvalue.String("hi")}, cfg)
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", attempts)
	}
	if got := cvalue.StringVal(state.Value("y")); got != "FALLBACK" {
		t.Fatalf("expected fallback value, got %q", got)
	}
	if status := state.Status("m1"); status.Tag != StatusFired || status.Context != "fallback" {
		t.Fatalf("expected Fired/fallback status, got %+v", status)
	}
}

func TestRun_MissingInputLeavesModuleUnfired(t *testing.T) {
	spec := uppercaseSpec()
	cfg := RunConfig{
		Registry:      registryWith(upperModule()),
		ModuleOptions: func(string) ModuleCallOptions { return DefaultModuleCallOptions() },
	}
	state, aerr := Run(context.Background(), spec, map[string]cvalue.CValue{}, cfg)
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if state.IsResolved("y") {
		t.Fatal("expected y to remain unresolved")
	}
	if status := state.Status("m1"); status.Tag != StatusUnfired {
		t.Fatalf("expected module to stay Unfired, got %+v", status)
	}
}

func TestNewSchedulerBulkhead_CapsConcurrency(t *testing.T) {
	sem := newSchedulerBulkhead(1)
	if sem == nil {
		t.Fatal("expected a non-nil bulkhead for a positive limit")
	}
	if newSchedulerBulkhead(0) != nil {
		t.Fatal("expected nil bulkhead for a non-positive limit")
	}

	var mu sync.Mutex
	var running, maxRunning int
	done := make(chan struct{})
	for i := 0; i < 3; i++ {
		go func() {
			_ = sem.Execute(context.Background(), func() error {
				mu.Lock()
				running++
				if running > maxRunning {
					maxRunning = running
				}
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				done <- struct{}{}
				return nil
			})
		}()
	}
	for i := 0; i < 3; i++ {
		<-done
	}
	if maxRunning > 1 {
		t.Fatalf("expected at most 1 concurrent execution, observed %d", maxRunning)
	}
}
