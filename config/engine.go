package config

import (
	"fmt"
	"time"

	"github.com/kbukum/constellation/validation"
)

// EngineConfig is the process-wide configuration a constellation.Constellation
// loads at startup: the global scheduler concurrency cap, where suspension
// checkpoints are persisted, and the defaults a module's own
// ModuleCallOptions falls back to when it doesn't override them.
type EngineConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	GlobalConcurrency  int    `yaml:"global_concurrency" mapstructure:"global_concurrency" validate:"gte=0"`
	SuspensionStoreDir string `yaml:"suspension_store_dir" mapstructure:"suspension_store_dir" validate:"required"`

	DefaultRetry      int    `yaml:"default_retry" mapstructure:"default_retry" validate:"gte=0"`
	DefaultTimeoutMs  int64  `yaml:"default_timeout_ms" mapstructure:"default_timeout_ms" validate:"gte=0"`
	DefaultBackoff    string `yaml:"default_backoff" mapstructure:"default_backoff" validate:"oneof=fixed linear exponential"`
	DefaultDelayMs    int64  `yaml:"default_delay_ms" mapstructure:"default_delay_ms" validate:"gte=0"`
	DefaultMaxDelayMs int64  `yaml:"default_max_delay_ms" mapstructure:"default_max_delay_ms" validate:"gte=0"`
}

// ApplyDefaults fills in the engine-specific defaults, then delegates to
// ServiceConfig for the name/environment/logging fields.
func (c *EngineConfig) ApplyDefaults() {
	if c.SuspensionStoreDir == "" {
		c.SuspensionStoreDir = "./suspensions"
	}
	if c.DefaultBackoff == "" {
		c.DefaultBackoff = "fixed"
	}
	c.ServiceConfig.ApplyDefaults()
}

// Validate runs the struct-tag rules (go-playground, via the validation
// package) over the engine fields, then delegates to ServiceConfig for the
// name/environment/logging checks struct tags can't express.
func (c *EngineConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	return c.ServiceConfig.Validate()
}

// DefaultMaxDelay returns DefaultMaxDelayMs as a time.Duration.
func (c *EngineConfig) DefaultMaxDelay() time.Duration {
	return time.Duration(c.DefaultMaxDelayMs) * time.Millisecond
}

// LoadEngineConfig loads an EngineConfig the same way any other
// ServiceConfig-embedding struct is loaded: config.yml plus environment overrides via
// LoadConfig, then ApplyDefaults, then Validate. logger.Config validation
// happens inside ServiceConfig.Validate via the embedded Logging field.
func LoadEngineConfig(opts ...LoaderOption) (*EngineConfig, error) {
	cfg := &EngineConfig{}
	if err := LoadConfig("constellation", cfg, opts...); err != nil {
		return nil, fmt.Errorf("config: loading engine config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validating engine config: %w", err)
	}
	return cfg, nil
}
