// Package observability provides OpenTelemetry tracing and metrics for the
// constellation engine: one span per pipeline run or resume, one per module
// firing, plus aggregate health reporting over the engine's components.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanModuleFire)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("constellation"))
//	metrics.RecordOperation(ctx, "uppercase", "dag.fire", "ok", duration)
//
// Health:
//
//	health := observability.CheckAll(ctx, "constellation", version, sseService)
package observability
