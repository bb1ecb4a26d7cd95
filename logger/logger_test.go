package logger

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNew(t *testing.T) {
	cfg := &Config{
		Level:  "debug",
		Format: "json",
		Output: "stdout",
	}
	l := New(cfg, "my-service")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "my-service" {
		t.Errorf("expected service 'my-service', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	cfg := &Config{
		Level:  "invalid-level",
		Format: "json",
		Output: "stdout",
	}
	l := New(cfg, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestNewFromEnv(t *testing.T) {
	os.Setenv("CONSTELLATION_LOG_LEVEL", "debug")
	os.Setenv("CONSTELLATION_LOG_FORMAT", "json")
	defer os.Unsetenv("CONSTELLATION_LOG_LEVEL")
	defer os.Unsetenv("CONSTELLATION_LOG_FORMAT")

	l := NewFromEnv("env-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithComponent(t *testing.T) {
	l := NewDefault("test")
	cl := l.WithComponent("dag")
	if cl == nil {
		t.Fatal("expected non-nil logger")
	}
	if cl.service != "test" {
		t.Errorf("service should be preserved, got %q", cl.service)
	}
}

func TestWithPipeline(t *testing.T) {
	l := NewDefault("test")
	pl := l.WithPipeline("etl")
	if pl == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithContext(t *testing.T) {
	l := NewDefault("test")
	ctx := ContextWithExecution(context.Background(), "exec-1", "etl")
	cl := l.WithContext(ctx)
	if cl == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithFields(t *testing.T) {
	l := NewDefault("test")
	fl := l.WithFields(map[string]interface{}{"key": "value"})
	if fl == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithError(t *testing.T) {
	l := NewDefault("test")
	el := l.WithError(nil)
	if el == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestInit(t *testing.T) {
	cfg := Config{
		Level:  "info",
		Format: "console",
		Output: "stdout",
	}
	Init(&cfg)
	gl := GetGlobalLogger()
	if gl == nil {
		t.Fatal("expected global logger to be set after Init")
	}
	if gl.service != "constellation" {
		t.Errorf("expected default service name 'constellation', got %q", gl.service)
	}
}

func TestGetGlobalLoggerDefault(t *testing.T) {
	globalLogger = nil
	l := GetGlobalLogger()
	if l == nil {
		t.Fatal("expected default global logger to be created")
	}
}

func TestSetGlobalLogger(t *testing.T) {
	l := NewDefault("custom")
	SetGlobalLogger(l)
	got := GetGlobalLogger()
	if got != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	Init(&Config{Level: "debug", Format: "console", Output: "stdout"})
	// These should not panic
	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.ServiceName != "constellation" {
		t.Errorf("expected service name 'constellation', got %q", cfg.ServiceName)
	}
	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json"}, false},
		{"valid console", Config{Level: "debug", Format: "console"}, false},
		{"valid pretty", Config{Level: "trace", Format: "pretty"}, false},
		{"invalid level", Config{Level: "bad", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConsoleLoggerFormat(t *testing.T) {
	cfg := &Config{
		Level:   "info",
		Format:  "console",
		Output:  "stdout",
		NoColor: true,
	}
	l := New(cfg, "test-svc")
	if l == nil {
		t.Fatal("expected logger with console format")
	}
}

func TestGetLoggerZ(t *testing.T) {
	Init(&Config{Level: "info", Format: "json", Output: "stdout"})
	zl := GetLoggerZ()
	_ = zl
}

func TestGetLoggerMethod(t *testing.T) {
	l := NewDefault("test")
	zl := l.GetLogger()
	_ = zl
}

func TestRegisterAndGet(t *testing.T) {
	l := NewDefault("custom-component")
	Register("suspension", l)

	got := Get("suspension")
	if got != l {
		t.Error("expected Get to return the registered logger")
	}
}

func TestGetUnregistered(t *testing.T) {
	// Getting an unregistered name should return global logger with component tag
	got := Get("unregistered-component")
	if got == nil {
		t.Fatal("expected non-nil logger for unregistered component")
	}
}

func TestRegisterDefaults(t *testing.T) {
	Init(&Config{Level: "info", Format: "json", Output: "stdout"})
	RegisterDefaults("dag", "suspension", "constellation")

	for _, name := range []string{"dag", "suspension", "constellation"} {
		got := Get(name)
		if got == nil {
			t.Errorf("expected non-nil logger for %q", name)
		}
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name     string
		input    []interface{}
		expected map[string]interface{}
	}{
		{
			"key-value pairs",
			[]interface{}{"op", "run", "batch", 2},
			map[string]interface{}{"op": "run", "batch": 2},
		},
		{
			"odd number of args",
			[]interface{}{"op", "run", "trailing"},
			map[string]interface{}{"op": "run"},
		},
		{
			"empty",
			[]interface{}{},
			map[string]interface{}{},
		},
		{
			"non-string key skipped",
			[]interface{}{123, "value", "key", "val"},
			map[string]interface{}{"key": "val"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Fields(tc.input...)
			for k, v := range tc.expected {
				if result[k] != v {
					t.Errorf("Fields[%q] = %v, expected %v", k, result[k], v)
				}
			}
		})
	}
}

func TestModuleFields(t *testing.T) {
	fields := ModuleFields("etl", "uppercase")
	if fields[FieldPipeline] != "etl" {
		t.Errorf("expected pipeline 'etl', got %v", fields[FieldPipeline])
	}
	if fields[FieldModule] != "uppercase" {
		t.Errorf("expected module 'uppercase', got %v", fields[FieldModule])
	}
}

func TestBatchFields(t *testing.T) {
	fields := BatchFields("etl", 2, 3)
	if fields[FieldPipeline] != "etl" || fields[FieldBatch] != 2 || fields["modules"] != 3 {
		t.Errorf("unexpected batch fields %v", fields)
	}
}

func TestExecutionFields(t *testing.T) {
	fields := ExecutionFields("exec-1", 2)
	if fields[FieldExecutionID] != "exec-1" {
		t.Errorf("expected execution id 'exec-1', got %v", fields[FieldExecutionID])
	}
	if fields[FieldResumption] != 2 {
		t.Errorf("expected resumption count 2, got %v", fields[FieldResumption])
	}
}

func TestErrorFields(t *testing.T) {
	err := fmt.Errorf("something broke")
	fields := ErrorFields("fire-module", err)

	if fields[FieldOperation] != "fire-module" {
		t.Errorf("expected operation 'fire-module', got %v", fields[FieldOperation])
	}
	if fields[FieldError] != "something broke" {
		t.Errorf("expected error 'something broke', got %v", fields[FieldError])
	}
}

func TestDurationFields(t *testing.T) {
	d := 150 * time.Millisecond
	fields := DurationFields("run", d)

	if fields[FieldOperation] != "run" {
		t.Errorf("expected operation 'run', got %v", fields[FieldOperation])
	}
	if fields[FieldDuration] != int64(150) {
		t.Errorf("expected duration 150, got %v", fields[FieldDuration])
	}
}

func TestMergeWithError(t *testing.T) {
	err := fmt.Errorf("test error")

	fields := map[string]interface{}{"op": "run"}
	result := MergeWithError(fields, err)
	if result[FieldError] != "test error" {
		t.Errorf("expected error field, got %v", result[FieldError])
	}
	if result["op"] != "run" {
		t.Error("expected existing fields to be preserved")
	}

	result2 := MergeWithError(nil, err)
	if result2[FieldError] != "test error" {
		t.Errorf("expected error field from nil map, got %v", result2[FieldError])
	}
}

func TestMergeWithDuration(t *testing.T) {
	d := 200 * time.Millisecond

	fields := map[string]interface{}{"op": "run"}
	result := MergeWithDuration(fields, d)
	if result[FieldDuration] != int64(200) {
		t.Errorf("expected duration 200, got %v", result[FieldDuration])
	}
	if result["op"] != "run" {
		t.Error("expected existing fields to be preserved")
	}

	result2 := MergeWithDuration(nil, d)
	if result2[FieldDuration] != int64(200) {
		t.Errorf("expected duration from nil map, got %v", result2[FieldDuration])
	}
}

func TestNewWithStderrOutput(t *testing.T) {
	cfg := &Config{
		Level:  "info",
		Format: "json",
		Output: "stderr",
	}
	l := New(cfg, "test")
	if l == nil {
		t.Fatal("expected non-nil logger with stderr output")
	}
}

func TestNewWithPrettyFormat(t *testing.T) {
	cfg := &Config{
		Level:  "info",
		Format: "pretty",
		Output: "stdout",
	}
	l := New(cfg, "test")
	if l == nil {
		t.Fatal("expected non-nil logger with pretty format")
	}
}

func TestEngineRegistry(t *testing.T) {
	er := NewEngineRegistry()
	if er == nil {
		t.Fatal("expected non-nil registry")
	}
	if er.StartTime().IsZero() {
		t.Error("expected non-zero start time")
	}

	er.RegisterPipeline("upper", "uppercase", 1, 1)
	if len(er.Pipelines()) != 1 {
		t.Errorf("expected 1 pipeline, got %d", len(er.Pipelines()))
	}
	if er.Pipelines()[0].Ref != "upper" || er.Pipelines()[0].Modules != 1 {
		t.Errorf("unexpected pipeline entry %+v", er.Pipelines()[0])
	}

	er.RegisterModule("uppercase")
	er.RegisterModule("uppercase")
	modules := er.Modules()
	if len(modules) != 2 {
		t.Errorf("expected 2 module entries, got %d", len(modules))
	}
	if modules[0].Status != "registered" || modules[1].Status != "replaced" {
		t.Errorf("expected registered then replaced, got %+v", modules)
	}

	er.RegisterStore("suspensions", "file", "./suspensions")
	if len(er.Stores()) != 1 || er.Stores()[0].Kind != "file" {
		t.Errorf("unexpected store entries %+v", er.Stores())
	}

	er.RegisterTransport("sse", "/events")
	if len(er.Transports()) != 1 {
		t.Errorf("expected 1 transport, got %d", len(er.Transports()))
	}
}

func TestNewFromEnvDefaults(t *testing.T) {
	os.Unsetenv("CONSTELLATION_LOG_LEVEL")
	os.Unsetenv("CONSTELLATION_LOG_FORMAT")
	os.Unsetenv("CONSTELLATION_LOG_OUTPUT")
	os.Unsetenv("CONSTELLATION_LOG_NO_COLOR")
	os.Unsetenv("CONSTELLATION_LOG_TIMESTAMP")

	l := NewFromEnv("defaults-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestPackageLevelWithContext(t *testing.T) {
	Init(&Config{Level: "debug", Format: "json", Output: "stdout"})
	ctx := context.Background()
	l := WithContext(ctx)
	if l == nil {
		t.Fatal("expected non-nil logger from WithContext")
	}
}

func TestPackageLevelWithComponent(t *testing.T) {
	Init(&Config{Level: "debug", Format: "json", Output: "stdout"})
	l := WithComponent("dag")
	if l == nil {
		t.Fatal("expected non-nil logger from WithComponent")
	}
}

func TestInitWithServiceName(t *testing.T) {
	cfg := Config{
		Level:       "debug",
		Format:      "console",
		Output:      "stdout",
		ServiceName: "init-test",
	}
	Init(&cfg)
	gl := GetGlobalLogger()
	if gl == nil {
		t.Fatal("expected global logger after Init")
	}
	if gl.service != "init-test" {
		t.Errorf("expected service 'init-test', got %q", gl.service)
	}
}
