// Package config loads the engine's configuration: a config.yml (or an
// explicitly named file) merged with environment variables and an optional
// .env file, unmarshalled through Viper.
//
// EngineConfig is the struct the constellation facade boots from; it embeds
// ServiceConfig (name, environment, logging) and adds the engine knobs
// (global concurrency, suspension store directory, default module call
// options). Struct-tag validation runs through the validation package at
// load time.
//
// # Usage
//
//	cfg, err := config.LoadEngineConfig(config.WithConfigFile("config.yml"))
//
// Environment variables override file values using underscore-separated
// paths (e.g., LOGGING_LEVEL, GLOBAL_CONCURRENCY).
package config
