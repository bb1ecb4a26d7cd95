package resilience

import "sync"

// BreakerStats is a snapshot of one circuit breaker's counters, as returned
// by CircuitBreakerRegistry.AllStats.
type BreakerStats struct {
	State          State
	TotalSuccesses int64
	TotalFailures  int64
}

// CircuitBreakerRegistry is a process-wide, lazily-populated map of circuit
// breakers keyed by module name. Module invocations share one breaker per
// name across every concurrent run; the registry itself only guards map
// access, never the breakers' own state.
type CircuitBreakerRegistry struct {
	mu        sync.Mutex
	breakers  map[string]*trackedBreaker
	newConfig func(name string) CircuitBreakerConfig
}

type trackedBreaker struct {
	breaker        *CircuitBreaker
	mu             sync.Mutex
	totalSuccesses int64
	totalFailures  int64
}

// NewCircuitBreakerRegistry builds a registry. newConfig, if non-nil, is
// called once per distinct module name to build that breaker's config;
// nil falls back to DefaultCircuitBreakerConfig(name).
func NewCircuitBreakerRegistry(newConfig func(name string) CircuitBreakerConfig) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers:  make(map[string]*trackedBreaker),
		newConfig: newConfig,
	}
}

// Get returns the circuit breaker for name, creating it on first access.
func (r *CircuitBreakerRegistry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	tb, ok := r.breakers[name]
	if !ok {
		cfg := DefaultCircuitBreakerConfig(name)
		if r.newConfig != nil {
			cfg = r.newConfig(name)
		}
		tb = &trackedBreaker{breaker: NewCircuitBreaker(cfg)}
		r.breakers[name] = tb
	}
	return tb.breaker
}

// Execute runs fn through the named breaker, tallying the result for
// AllStats.
func (r *CircuitBreakerRegistry) Execute(name string, fn func() error) error {
	r.mu.Lock()
	tb, ok := r.breakers[name]
	if !ok {
		cfg := DefaultCircuitBreakerConfig(name)
		if r.newConfig != nil {
			cfg = r.newConfig(name)
		}
		tb = &trackedBreaker{breaker: NewCircuitBreaker(cfg)}
		r.breakers[name] = tb
	}
	r.mu.Unlock()

	err := tb.breaker.Execute(fn)

	tb.mu.Lock()
	if err != nil {
		tb.totalFailures++
	} else {
		tb.totalSuccesses++
	}
	tb.mu.Unlock()

	return err
}

// AllStats returns a snapshot of every breaker the registry has created.
func (r *CircuitBreakerRegistry) AllStats() map[string]BreakerStats {
	r.mu.Lock()
	names := make([]string, 0, len(r.breakers))
	tbs := make([]*trackedBreaker, 0, len(r.breakers))
	for name, tb := range r.breakers {
		names = append(names, name)
		tbs = append(tbs, tb)
	}
	r.mu.Unlock()

	out := make(map[string]BreakerStats, len(names))
	for i, name := range names {
		tb := tbs[i]
		tb.mu.Lock()
		out[name] = BreakerStats{
			State:          tb.breaker.State(),
			TotalSuccesses: tb.totalSuccesses,
			TotalFailures:  tb.totalFailures,
		}
		tb.mu.Unlock()
	}
	return out
}
