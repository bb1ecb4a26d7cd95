// Package logger provides structured logging for the constellation engine
// using zerolog.
//
// It supports multiple output formats (JSON, console), log level
// configuration, component-scoped loggers, and field helpers for the
// engine's recurring log shapes (module firings, scheduler batches,
// resumed executions).
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("dag")
//	log.Info("batch complete", logger.BatchFields("etl", 2, 3))
package logger
