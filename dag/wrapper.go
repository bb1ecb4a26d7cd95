package dag

import (
	"context"
	"time"

	apperr "github.com/kbukum/constellation/errors"

	"github.com/kbukum/constellation/cvalue"
	"github.com/kbukum/constellation/resilience"
)

// ModuleCall is the narrowed shape a wrapped module invocation presents to
// the scheduler: inputs in, outputs or error out.
type ModuleCall func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error)

// WrapperDeps are the process-wide resilience collaborators a wrapped call
// may reach for. Breakers is keyed by module name; Bulkhead and RateLimiter
// are optional caps shared by every module call and skipped when nil. The
// engine facade sets only Breakers; no config option creates the other two,
// so they are applied only when a caller building its own RunConfig sets them.
type WrapperDeps struct {
	Breakers    *resilience.CircuitBreakerRegistry
	Bulkhead    *resilience.Bulkhead
	RateLimiter *resilience.RateLimiter
}

// Wrap composes fallback, retry, and timeout around a module's body in that
// order (outermost to innermost): a fallback only ever substitutes the value
// a fully-retried, fully-timed-out call produced or failed to produce, so it
// sits outside retry, which in turn sits outside the per-attempt timeout.
// When deps carries a circuit breaker registry, every attempt is additionally
// gated by the module's breaker; an open breaker fails the attempt without
// invoking body at all, so it counts against retry like any other error.
func Wrap(moduleName string, opts ModuleCallOptions, deps WrapperDeps, body ModuleCall) ModuleCall {
	timed := withTimeout(opts.TimeoutMs, body)
	guarded := withBreaker(moduleName, deps.Breakers, timed)
	limited := withRateLimit(deps.RateLimiter, guarded)
	bulkheaded := withBulkhead(deps.Bulkhead, limited)
	retried := withRetry(moduleName, opts, bulkheaded)
	return withFallback(opts, retried)
}

func withTimeout(timeoutMs int64, body ModuleCall) ModuleCall {
	if timeoutMs <= 0 {
		return body
	}
	return func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()

		type result struct {
			out map[string]cvalue.CValue
			err error
		}
		done := make(chan result, 1)
		go func() {
			out, err := body(callCtx, inputs)
			done <- result{out, err}
		}()

		select {
		case r := <-done:
			return r.out, r.err
		case <-callCtx.Done():
			return nil, apperr.ModuleTimeoutException(timeoutMs)
		}
	}
}

func withBreaker(moduleName string, registry *resilience.CircuitBreakerRegistry, body ModuleCall) ModuleCall {
	if registry == nil {
		return body
	}
	return func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		var out map[string]cvalue.CValue
		err := registry.Execute(moduleName, func() error {
			var callErr error
			out, callErr = body(ctx, inputs)
			return callErr
		})
		return out, err
	}
}

func withRateLimit(limiter *resilience.RateLimiter, body ModuleCall) ModuleCall {
	if limiter == nil {
		return body
	}
	return func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return body(ctx, inputs)
	}
}

func withBulkhead(bulkhead *resilience.Bulkhead, body ModuleCall) ModuleCall {
	if bulkhead == nil {
		return body
	}
	return func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		return resilience.ExecuteWithResult(bulkhead, ctx, func() (map[string]cvalue.CValue, error) {
			return body(ctx, inputs)
		})
	}
}

func withRetry(moduleName string, opts ModuleCallOptions, body ModuleCall) ModuleCall {
	if opts.Retry <= 0 {
		return body
	}
	return func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		totalAttempts := opts.Retry + 1
		out, attempts, err := resilience.Retry(ctx, resilience.RetryConfig{
			MaxAttempts: totalAttempts,
			Delay:       time.Duration(opts.DelayMs) * time.Millisecond,
			Backoff:     opts.Backoff,
			MaxDelay:    opts.MaxDelay,
			OnRetry:     opts.OnRetry,
		}, func() (map[string]cvalue.CValue, error) {
			return body(ctx, inputs)
		})
		if err == nil {
			return out, nil
		}

		converted := make([]apperr.AttemptError, len(attempts))
		for i, a := range attempts {
			converted[i] = apperr.AttemptError{Attempt: a.Number, Err: a.Err}
		}
		return nil, apperr.RetryExhaustedException(totalAttempts, converted)
	}
}

func withFallback(opts ModuleCallOptions, body ModuleCall) ModuleCall {
	if !opts.HasFallback {
		return body
	}
	return func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		out, err := body(ctx, inputs)
		if err == nil {
			return out, nil
		}
		if opts.OnFallback != nil {
			opts.OnFallback(err)
		}
		return map[string]cvalue.CValue{fallbackOutputKey: opts.FallbackVal}, nil
	}
}

// fallbackOutputKey is the single synthetic output name a module's fallback
// value is published under when the module declares exactly one output; the
// runtime rebinds it onto the module's real produced data id.
const fallbackOutputKey = "__fallback__"
