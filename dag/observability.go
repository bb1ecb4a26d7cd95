package dag

import (
	"context"
	"time"

	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/logger"
	"github.com/kbukum/constellation/observability"
)

// WithTracing wraps a module call with OpenTelemetry span creation.
// Each firing creates a span named "{prefix}.{moduleName}".
func WithTracing(moduleName, prefix string, call ModuleCall) ModuleCall {
	return func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		ctx, span := observability.StartSpan(ctx, prefix+"."+moduleName)
		defer span.End()

		observability.SetSpanAttribute(ctx, "dag.module", moduleName)

		out, err := call(ctx, inputs)
		if err != nil {
			observability.SetSpanError(ctx, err)
		}

		return out, err
	}
}

// WithMetrics wraps a module call with metric recording.
// Records firing count, duration, and errors.
func WithMetrics(moduleName string, metrics *observability.Metrics, call ModuleCall) ModuleCall {
	return func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		start := time.Now()
		out, err := call(ctx, inputs)
		duration := time.Since(start)

		status := "ok"
		if err != nil {
			status = "error"
			metrics.RecordError(ctx, "fire", moduleName)
		}
		metrics.RecordOperation(ctx, moduleName, "dag.fire", status, duration)

		return out, err
	}
}

// WithLogging wraps a module call with execution logging.
// Logs: module name, duration, and success/error status.
func WithLogging(moduleName string, log *logger.Logger, call ModuleCall) ModuleCall {
	return func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		start := time.Now()
		out, err := call(ctx, inputs)
		duration := time.Since(start)

		fields := logger.MergeWithDuration(logger.Fields(logger.FieldModule, moduleName), duration)

		if err != nil {
			log.Error("module firing failed", logger.MergeWithError(fields, err))
		} else {
			log.Debug("module firing completed", fields)
		}

		return out, err
	}
}

// instrument layers the observability decorators cfg enables around call:
// metrics innermost, then logging, tracing outermost so the span covers
// the full instrumented firing.
func instrument(moduleName string, cfg RunConfig, call ModuleCall) ModuleCall {
	if cfg.Metrics != nil {
		call = WithMetrics(moduleName, cfg.Metrics, call)
	}
	if cfg.Logger != nil {
		call = WithLogging(moduleName, cfg.Logger, call)
	}
	if cfg.TraceSpanPrefix != "" {
		call = WithTracing(moduleName, cfg.TraceSpanPrefix, call)
	}
	return call
}
