package validation

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	apperr "github.com/kbukum/constellation/errors"
)

func TestValidator_NoErrors(t *testing.T) {
	v := New()
	if v.HasErrors() {
		t.Fatal("expected no errors on a fresh validator")
	}
	if err := v.Validate(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestValidator_Required(t *testing.T) {
	v := New().Required("pipeline", "").Required("ref", "upper")
	if !v.HasErrors() {
		t.Fatal("expected an error for the empty field")
	}
	errs := v.Errors()
	if len(errs) != 1 || errs[0].Field != "pipeline" {
		t.Fatalf("expected one error on pipeline, got %v", errs)
	}
}

func TestValidator_RequiredUUID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid", uuid.New().String(), false},
		{"empty", "", true},
		{"malformed", "not-a-uuid", true},
		{"nil uuid", uuid.Nil.String(), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := New().RequiredUUID("execution_id", tc.value)
			if v.HasErrors() != tc.wantErr {
				t.Fatalf("HasErrors() = %v, want %v (errors: %v)", v.HasErrors(), tc.wantErr, v.Errors())
			}
		})
	}
}

func TestValidator_OptionalUUID(t *testing.T) {
	if New().OptionalUUID("execution_id", "").HasErrors() {
		t.Fatal("expected empty optional UUID to pass")
	}
	if !New().OptionalUUID("execution_id", "bogus").HasErrors() {
		t.Fatal("expected malformed optional UUID to fail")
	}
}

func TestValidator_LengthAndRange(t *testing.T) {
	v := New().
		MinLength("name", "ab", 3).
		MaxLength("ref", strings.Repeat("x", 10), 5).
		Range("global_concurrency", -1, 0, 64).
		Min("default_retry", -2, 0).
		Max("default_timeout_ms", 100000, 60000)
	if len(v.Errors()) != 5 {
		t.Fatalf("expected 5 errors, got %v", v.Errors())
	}
}

func TestValidator_PatternAndOneOf(t *testing.T) {
	v := New().
		Pattern("node_id", "has space", `^[a-z0-9_-]+$`).
		OneOf("default_backoff", "quadratic", []string{"fixed", "linear", "exponential"})
	if len(v.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %v", v.Errors())
	}

	ok := New().
		Pattern("node_id", "node_1", `^[a-z0-9_-]+$`).
		OneOf("default_backoff", "exponential", []string{"fixed", "linear", "exponential"})
	if ok.HasErrors() {
		t.Fatalf("expected no errors, got %v", ok.Errors())
	}
}

func TestValidator_Custom(t *testing.T) {
	v := New().Custom(false, "outputs", "at least one declared output required")
	if !v.HasErrors() {
		t.Fatal("expected custom condition to record an error")
	}
}

func TestValidator_ValidateReturnsAppError(t *testing.T) {
	err := New().Required("pipeline", "").Validate()
	if err == nil {
		t.Fatal("expected an AppError")
	}
	if err.Code != apperr.ErrCodeConfigInvalid {
		t.Fatalf("expected CONFIG_INVALID, got %s", err.Code)
	}
	if !strings.Contains(err.Error(), "pipeline: is required") {
		t.Fatalf("expected field message in error, got %q", err.Error())
	}
	if _, ok := err.Details["fields"]; !ok {
		t.Fatal("expected field details attached")
	}
}

func TestRequiredHelper(t *testing.T) {
	if err := Required("ref", ""); err == nil {
		t.Fatal("expected error for empty value")
	}
	if err := Required("ref", "upper"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUUIDHelper(t *testing.T) {
	id := uuid.New()
	got, err := ValidateUUID("execution_id", id.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}

	if _, err := ValidateUUID("execution_id", ""); err == nil {
		t.Fatal("expected error for empty value")
	}
	if _, err := ValidateUUID("execution_id", "bogus"); err == nil {
		t.Fatal("expected error for malformed value")
	}
}

// engineKnobs mirrors the struct-tag rules EngineConfig declares, so the
// tag pass is exercised the way the config loader uses it.
type engineKnobs struct {
	GlobalConcurrency  int    `validate:"gte=0"`
	SuspensionStoreDir string `validate:"required"`
	DefaultRetry       int    `validate:"gte=0"`
	DefaultBackoff     string `validate:"oneof=fixed linear exponential"`
}

func TestValidate_StructTags(t *testing.T) {
	valid := engineKnobs{
		GlobalConcurrency:  4,
		SuspensionStoreDir: "./suspensions",
		DefaultBackoff:     "exponential",
	}
	if err := Validate(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	invalid := engineKnobs{
		GlobalConcurrency:  -1,
		SuspensionStoreDir: "",
		DefaultRetry:       -3,
		DefaultBackoff:     "quadratic",
	}
	err := Validate(invalid)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"global_concurrency", "suspension_store_dir", "default_retry", "default_backoff"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in error, got %q", want, msg)
		}
	}
}

func TestValidate_OneOfMessage(t *testing.T) {
	err := Validate(engineKnobs{SuspensionStoreDir: "./s", DefaultBackoff: "bogus"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "must be one of: fixed linear exponential") {
		t.Fatalf("expected oneof message, got %q", err.Error())
	}
}
