// Package resilience provides the fault-tolerance patterns the scheduler
// composes around module invocations.
//
// This package includes:
//   - Retry: re-invokes a failed module body with fixed/linear/exponential
//     backoff, recording every attempt
//   - CircuitBreaker: limits calls to a module after repeated failures,
//     with a process-wide registry keyed by module name
//   - Bulkhead: caps concurrent firings (the scheduler's global gate)
//   - RateLimiter: token-bucket cap on firing rate
//
// The wrapper chain combines them around one module call:
//
//	_, attempts, err := resilience.Retry(ctx, retryCfg, func() (out, error) {
//	    return nil, bulkhead.Execute(ctx, func() error {
//	        return breakers.Execute(moduleName, fire)
//	    })
//	})
package resilience
