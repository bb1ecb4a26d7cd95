package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RunContext holds observability context for one tracked pipeline run (or
// resume). It travels down through the scheduler in the context so module
// bodies and wrappers can attach their telemetry to the surrounding run.
type RunContext struct {
	PipelineName  string
	OperationName string // "run", "resume", "step"
	ExecutionID   string // set for resumed executions, empty otherwise
	StartTime     time.Time
	Metrics       *Metrics
}

// NewRunContext creates a new run context.
// If metrics is nil, metric recording is silently skipped.
func NewRunContext(pipelineName, operationName, executionID string, metrics *Metrics) *RunContext {
	return &RunContext{
		PipelineName:  pipelineName,
		OperationName: operationName,
		ExecutionID:   executionID,
		StartTime:     time.Now(),
		Metrics:       metrics,
	}
}

// runContextKey is the context key for RunContext.
type runContextKey struct{}

// WithRunContext stores a RunContext in the context.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, rc)
}

// RunContextFromContext retrieves the RunContext from context, or nil.
func RunContextFromContext(ctx context.Context) *RunContext {
	if rc, ok := ctx.Value(runContextKey{}).(*RunContext); ok {
		return rc
	}
	return nil
}

// StartSpanForRun starts a traced span for the run and records the
// request-start metric.
func (rc *RunContext) StartSpanForRun(ctx context.Context, spanName string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, spanName)
	span.SetAttributes(
		attribute.String(AttrPipelineName, rc.PipelineName),
		attribute.String(AttrOperationName, rc.OperationName),
	)
	if rc.ExecutionID != "" {
		span.SetAttributes(attribute.String(AttrExecutionID, rc.ExecutionID))
	}

	if rc.Metrics != nil {
		rc.Metrics.RecordRequestStart(ctx)
	}
	return ctx, span
}

// EndRun ends the span and records run-end metrics.
func (rc *RunContext) EndRun(ctx context.Context, span trace.Span, status string, err error) {
	duration := time.Since(rc.StartTime)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}

	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	if rc.Metrics != nil {
		rc.Metrics.RecordRequestEnd(ctx, rc.PipelineName, rc.OperationName, status, duration)
	}
}

// Duration returns the elapsed time since the run started.
func (rc *RunContext) Duration() time.Duration {
	return time.Since(rc.StartTime)
}
