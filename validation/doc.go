// Package validation checks the engine's configuration and caller-supplied
// identifiers before a run starts.
//
// It supports both struct tag validation (go-playground/validator, used on
// EngineConfig and ModuleCallOptions defaults) and programmatic validation
// with error collection (for checks such as execution ids and node
// references; the engine itself only calls the struct-tag Validate).
//
// # Struct Tag Validation
//
//	type EngineConfig struct {
//	    GlobalConcurrency int    `validate:"gte=0"`
//	    DefaultBackoff    string `validate:"oneof=fixed linear exponential"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.RequiredUUID("execution_id", id)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
