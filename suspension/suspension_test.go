package suspension

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	apperr "github.com/kbukum/constellation/errors"

	"github.com/kbukum/constellation/ctype"
	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/dag"
	"github.com/kbukum/constellation/dagspec"
	"github.com/kbukum/constellation/resilience"
)

func uppercaseSpec() *dagspec.DagSpec {
	return &dagspec.DagSpec{
		Metadata: dagspec.Metadata{Name: "uppercase"},
		Modules: map[string]dagspec.ModuleNodeSpec{
			"m1": {
				ID:       "m1",
				Metadata: dagspec.ModuleMetadata{Name: "uppercase"},
				Consumes: map[string]ctype.CType{"text": ctype.String()},
				Produces: map[string]ctype.CType{"result": ctype.String()},
			},
		},
		Data: map[string]dagspec.DataNodeSpec{
			"text":   {ID: "text", Name: "text", CType: ctype.String()},
			"result": {ID: "result", Name: "result", CType: ctype.String()},
		},
		InEdges:         []dagspec.InEdge{{DataID: "text", ModuleID: "m1"}},
		OutEdges:        []dagspec.OutEdge{{ModuleID: "m1", DataID: "result"}},
		DeclaredOutputs: []string{"result"},
		OutputBindings:  map[string]string{"result": "result"},
	}
}

func emptyState(spec *dagspec.DagSpec) *dag.State {
	ids := make([]string, 0, len(spec.Data))
	for id := range spec.Data {
		ids = append(ids, id)
	}
	return dag.NewState(ids)
}

func upperRegistry() *dag.Registry {
	r := dag.NewRegistry()
	r.SetModule(dag.ModuleFunc{
		FuncName: "uppercase",
		Fn: func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
			s := cvalue.StringVal(inputs["text"])
			out := make([]rune, 0, len(s))
			for _, c := range s {
				if c >= 'a' && c <= 'z' {
					c -= 32
				}
				out = append(out, c)
			}
			return map[string]cvalue.CValue{"result": cvalue.String(string(out))}, nil
		},
	})
	return r
}

func runCfg() dag.RunConfig {
	return dag.RunConfig{
		Registry:      upperRegistry(),
		ModuleOptions: func(string) dag.ModuleCallOptions { return dag.DefaultModuleCallOptions() },
	}
}

func TestBuild_MissingInputs(t *testing.T) {
	spec := uppercaseSpec()
	suspended := Build(spec, emptyState(spec), nil, map[string]cvalue.CValue{})

	if suspended.ResumptionCount != 1 {
		t.Fatalf("expected resumptionCount 1, got %d", suspended.ResumptionCount)
	}
	missing := suspended.MissingInputs()
	if len(missing) != 1 {
		t.Fatalf("expected 1 missing input, got %v", missing)
	}
	if !missing["text"].Equal(ctype.String()) {
		t.Fatalf("expected text: CString missing, got %v", missing)
	}
}

func TestBuild_ProvidedInputNotMissing(t *testing.T) {
	spec := uppercaseSpec()
	state := emptyState(spec)
	state.Write("text", cvalue.String("hi"))
	suspended := Build(spec, state, nil, map[string]cvalue.CValue{"text": cvalue.String("hi")})

	if len(suspended.MissingInputs()) != 0 {
		t.Fatalf("expected no missing inputs, got %v", suspended.MissingInputs())
	}
	if _, ok := suspended.ComputedValues["text"]; !ok {
		t.Fatal("expected text in computedValues")
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	spec := uppercaseSpec()
	state := emptyState(spec)
	state.Write("text", cvalue.String("checkpoint"))

	opts := dag.DefaultModuleCallOptions()
	opts.Retry = 2
	opts.TimeoutMs = 500
	opts.DelayMs = 10
	opts.Backoff = resilience.BackoffExponential
	opts.MaxDelay = 2 * time.Second
	opts.HasFallback = true
	opts.FallbackVal = cvalue.String("dflt")

	original := Build(spec, state, map[string]dag.ModuleCallOptions{"m1": opts}, map[string]cvalue.CValue{"text": cvalue.String("checkpoint")})

	// Through real JSON bytes, not just the map shape, so numeric types take
	// the same float64 detour a persisted checkpoint does.
	data, err := json.Marshal(Encode(original))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if decoded.ExecutionID != original.ExecutionID {
		t.Fatalf("executionId mismatch: %q vs %q", decoded.ExecutionID, original.ExecutionID)
	}
	if decoded.StructuralHash != original.StructuralHash {
		t.Fatalf("structuralHash mismatch: %q vs %q", decoded.StructuralHash, original.StructuralHash)
	}
	if decoded.ResumptionCount != 1 {
		t.Fatalf("expected resumptionCount 1, got %d", decoded.ResumptionCount)
	}
	if got := cvalue.StringVal(decoded.ProvidedInputs["text"]); got != "checkpoint" {
		t.Fatalf("providedInputs lost: got %q", got)
	}
	if got := cvalue.StringVal(decoded.ComputedValues["text"]); got != "checkpoint" {
		t.Fatalf("computedValues lost: got %q", got)
	}
	if decoded.ModuleStatuses["m1"] != string(dag.StatusUnfired) {
		t.Fatalf("expected Unfired status, got %q", decoded.ModuleStatuses["m1"])
	}

	gotOpts := decoded.ModuleOptions["m1"]
	if gotOpts.Retry != 2 || gotOpts.TimeoutMs != 500 || gotOpts.DelayMs != 10 {
		t.Fatalf("options lost: %+v", gotOpts)
	}
	if gotOpts.Backoff != resilience.BackoffExponential {
		t.Fatalf("backoff lost: %q", gotOpts.Backoff)
	}
	if gotOpts.MaxDelay != 2*time.Second {
		t.Fatalf("maxDelay lost: %v", gotOpts.MaxDelay)
	}
	if !gotOpts.HasFallback || cvalue.StringVal(gotOpts.FallbackVal) != "dflt" {
		t.Fatalf("fallback lost: %+v", gotOpts)
	}
}

func TestDecode_MissingRequiredFields(t *testing.T) {
	spec := uppercaseSpec()
	base := Encode(Build(spec, emptyState(spec), nil, nil))

	for _, tc := range []struct {
		name   string
		mutate func(m map[string]any)
	}{
		{"missing executionId", func(m map[string]any) { delete(m, "executionId") }},
		{"missing structuralHash", func(m map[string]any) { delete(m, "structuralHash") }},
		{"non-numeric resumptionCount", func(m map[string]any) { m["resumptionCount"] = "three" }},
		{"missing dagSpec", func(m map[string]any) { delete(m, "dagSpec") }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := map[string]any{}
			for k, v := range base {
				m[k] = v
			}
			tc.mutate(m)
			if _, err := Decode(m); err == nil {
				t.Fatal("expected a decode error")
			}
		})
	}
}

func TestResume_CompletesRun(t *testing.T) {
	spec := uppercaseSpec()
	suspended := Build(spec, emptyState(spec), nil, map[string]cvalue.CValue{})

	state, aerr := Resume(context.Background(), suspended, ResumeInput{
		AdditionalInputs: map[string]cvalue.CValue{"text": cvalue.String("hi")},
	}, runCfg())
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if got := cvalue.StringVal(state.Value("result")); got != "HI" {
		t.Fatalf("expected HI, got %q", got)
	}
	if state.Status("m1").Tag != dag.StatusFired {
		t.Fatalf("expected m1 Fired, got %v", state.Status("m1").Tag)
	}
}

func TestResume_ResolvedNodeBypassesModule(t *testing.T) {
	spec := uppercaseSpec()
	state := emptyState(spec)
	state.Write("text", cvalue.String("hi"))
	suspended := Build(spec, state, nil, map[string]cvalue.CValue{"text": cvalue.String("hi")})

	resumed, aerr := Resume(context.Background(), suspended, ResumeInput{
		ResolvedNodes: map[string]cvalue.CValue{"result": cvalue.String("OVERRIDE")},
	}, runCfg())
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if got := cvalue.StringVal(resumed.Value("result")); got != "OVERRIDE" {
		t.Fatalf("expected OVERRIDE, got %q", got)
	}
	if resumed.Status("m1").Tag != dag.StatusUnfired {
		t.Fatalf("expected m1 to stay Unfired, got %v", resumed.Status("m1").Tag)
	}
}

func TestResume_FiredModuleNotRefired(t *testing.T) {
	spec := uppercaseSpec()
	state := emptyState(spec)
	state.Write("text", cvalue.String("hi"))
	state.Write("result", cvalue.String("HI"))
	state.SetStatus("m1", dag.Fired(1, ""))
	suspended := Build(spec, state, nil, map[string]cvalue.CValue{"text": cvalue.String("hi")})

	fired := 0
	registry := dag.NewRegistry()
	registry.SetModule(dag.ModuleFunc{FuncName: "uppercase", Fn: func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		fired++
		return map[string]cvalue.CValue{"result": cvalue.String("AGAIN")}, nil
	}})

	resumed, aerr := Resume(context.Background(), suspended, ResumeInput{}, dag.RunConfig{
		Registry:      registry,
		ModuleOptions: func(string) dag.ModuleCallOptions { return dag.DefaultModuleCallOptions() },
	})
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if fired != 0 {
		t.Fatalf("expected module not to re-fire, fired %d times", fired)
	}
	if got := cvalue.StringVal(resumed.Value("result")); got != "HI" {
		t.Fatalf("expected prior value HI, got %q", got)
	}
}

func TestResume_ValidationErrors(t *testing.T) {
	spec := uppercaseSpec()
	state := emptyState(spec)
	state.Write("text", cvalue.String("hi"))
	provided := map[string]cvalue.CValue{"text": cvalue.String("hi")}

	for _, tc := range []struct {
		name string
		in   ResumeInput
		code apperr.ErrorCode
	}{
		{"unknown input name", ResumeInput{AdditionalInputs: map[string]cvalue.CValue{"nope": cvalue.String("x")}}, apperr.ErrCodeUnknownNode},
		{"input already provided", ResumeInput{AdditionalInputs: map[string]cvalue.CValue{"text": cvalue.String("x")}}, apperr.ErrCodeInputAlreadyProvided},
		{"unknown resolved node", ResumeInput{ResolvedNodes: map[string]cvalue.CValue{"nope": cvalue.String("x")}}, apperr.ErrCodeUnknownNode},
		{"node already resolved", ResumeInput{ResolvedNodes: map[string]cvalue.CValue{"text": cvalue.String("x")}}, apperr.ErrCodeNodeAlreadyResolved},
		{"node type mismatch", ResumeInput{ResolvedNodes: map[string]cvalue.CValue{"result": cvalue.Int(1)}}, apperr.ErrCodeNodeTypeMismatch},
	} {
		t.Run(tc.name, func(t *testing.T) {
			suspended := Build(spec, state, nil, provided)
			_, aerr := Resume(context.Background(), suspended, tc.in, runCfg())
			if aerr == nil {
				t.Fatal("expected an error")
			}
			if aerr.Code != tc.code {
				t.Fatalf("expected %s, got %s", tc.code, aerr.Code)
			}
		})
	}
}

func TestResume_InputTypeMismatch(t *testing.T) {
	spec := uppercaseSpec()
	suspended := Build(spec, emptyState(spec), nil, map[string]cvalue.CValue{})
	_, aerr := Resume(context.Background(), suspended, ResumeInput{
		AdditionalInputs: map[string]cvalue.CValue{"text": cvalue.Int(5)},
	}, runCfg())
	if aerr == nil || aerr.Code != apperr.ErrCodeInputTypeMismatch {
		t.Fatalf("expected INPUT_TYPE_MISMATCH, got %v", aerr)
	}
}

func TestResume_PipelineChanged(t *testing.T) {
	spec := uppercaseSpec()
	suspended := Build(spec, emptyState(spec), nil, map[string]cvalue.CValue{})
	suspended.StructuralHash = "deadbeef"

	_, aerr := Resume(context.Background(), suspended, ResumeInput{
		AdditionalInputs: map[string]cvalue.CValue{"text": cvalue.String("hi")},
	}, runCfg())
	if aerr == nil || aerr.Code != apperr.ErrCodePipelineChanged {
		t.Fatalf("expected PIPELINE_CHANGED, got %v", aerr)
	}
}

func TestResume_ConcurrentResumeFailsFast(t *testing.T) {
	spec := uppercaseSpec()
	suspended := Build(spec, emptyState(spec), nil, map[string]cvalue.CValue{})

	lock := lockFor(suspended.ExecutionID)
	lock.Lock()
	defer lock.Unlock()

	_, aerr := Resume(context.Background(), suspended, ResumeInput{
		AdditionalInputs: map[string]cvalue.CValue{"text": cvalue.String("hi")},
	}, runCfg())
	if aerr == nil || aerr.Code != apperr.ErrCodeResumeInProgress {
		t.Fatalf("expected RESUME_IN_PROGRESS, got %v", aerr)
	}
}

func TestResume_DistinctIDsDoNotInterfere(t *testing.T) {
	spec := uppercaseSpec()
	first := Build(spec, emptyState(spec), nil, map[string]cvalue.CValue{})
	second := Build(spec, emptyState(spec), nil, map[string]cvalue.CValue{})

	lock := lockFor(first.ExecutionID)
	lock.Lock()
	defer lock.Unlock()

	state, aerr := Resume(context.Background(), second, ResumeInput{
		AdditionalInputs: map[string]cvalue.CValue{"text": cvalue.String("ok")},
	}, runCfg())
	if aerr != nil {
		t.Fatalf("unexpected error: %v", aerr)
	}
	if got := cvalue.StringVal(state.Value("result")); got != "OK" {
		t.Fatalf("expected OK, got %q", got)
	}
}

func TestMemoryStore_SaveLoadDeleteList(t *testing.T) {
	spec := uppercaseSpec()
	store := NewMemoryStore()
	suspended := Build(spec, emptyState(spec), nil, map[string]cvalue.CValue{})

	handle, err := store.Save(suspended)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, found, err := store.Load(handle)
	if err != nil || !found {
		t.Fatalf("expected load to succeed, found=%v err=%v", found, err)
	}
	if loaded.ExecutionID != suspended.ExecutionID {
		t.Fatal("loaded wrong suspension")
	}

	if _, found, _ := store.Load("unknown"); found {
		t.Fatal("expected unknown handle to miss")
	}

	summaries, err := store.List(Filter{StructuralHash: &suspended.StructuralHash})
	if err != nil || len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d (err=%v)", len(summaries), err)
	}
	if _, ok := summaries[0].MissingInputs["text"]; !ok {
		t.Fatalf("expected text in missing inputs, got %v", summaries[0].MissingInputs)
	}

	other := "other"
	if summaries, _ := store.List(Filter{StructuralHash: &other}); len(summaries) != 0 {
		t.Fatalf("expected hash filter to exclude, got %d", len(summaries))
	}
	min, max := 2, 5
	if summaries, _ := store.List(Filter{MinResumptionCount: &min, MaxResumptionCount: &max}); len(summaries) != 0 {
		t.Fatalf("expected count filter to exclude resumptionCount 1, got %d", len(summaries))
	}
	one := 1
	if summaries, _ := store.List(Filter{MinResumptionCount: &one, MaxResumptionCount: &one}); len(summaries) != 1 {
		t.Fatalf("expected inclusive bounds to match resumptionCount 1, got %d", len(summaries))
	}

	removed, err := store.Delete(handle)
	if err != nil || !removed {
		t.Fatalf("expected delete to remove, removed=%v err=%v", removed, err)
	}
	if removed, _ := store.Delete(handle); removed {
		t.Fatal("expected second delete to report false")
	}
}

func TestFileStore_RoundTripWithCodecValidation(t *testing.T) {
	spec := uppercaseSpec()
	store := NewFileStore(t.TempDir(), true)
	suspended := Build(spec, emptyState(spec), nil, map[string]cvalue.CValue{})

	handle, err := store.Save(suspended)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, found, err := store.Load(handle)
	if err != nil || !found {
		t.Fatalf("expected load to succeed, found=%v err=%v", found, err)
	}
	if loaded.ExecutionID != suspended.ExecutionID {
		t.Fatal("loaded wrong suspension")
	}
	if len(loaded.MissingInputs()) != 1 {
		t.Fatalf("expected missing inputs to survive persistence, got %v", loaded.MissingInputs())
	}

	summaries, err := store.List(Filter{ExecutionID: &suspended.ExecutionID})
	if err != nil || len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d (err=%v)", len(summaries), err)
	}

	removed, err := store.Delete(handle)
	if err != nil || !removed {
		t.Fatalf("expected delete to remove, removed=%v err=%v", removed, err)
	}
	if _, found, _ := store.Load(handle); found {
		t.Fatal("expected load after delete to miss")
	}
}
