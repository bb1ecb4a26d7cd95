package resilience

import (
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows calls to pass through.
	StateClosed State = iota
	// StateOpen rejects all calls.
	StateOpen
	// StateHalfOpen allows a limited number of probe calls to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected by an open breaker.
// The scheduler sees it as an ordinary attempt failure, so it counts
// against retry like any other error.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker guarding one module.
type CircuitBreakerConfig struct {
	// Name is the module name the breaker guards, for logging hooks.
	Name string
	// FailureThreshold is the number of consecutive failures that open
	// the circuit.
	FailureThreshold int
	// ResetDuration is how long an open circuit rejects calls before
	// transitioning to half-open.
	ResetDuration time.Duration
	// HalfOpenMaxProbes is the number of concurrent probe calls allowed
	// while half-open.
	HalfOpenMaxProbes int
	// OnStateChange is called on every state transition.
	OnStateChange func(name string, from, to State)
}

// DefaultCircuitBreakerConfig returns the defaults a module gets when the
// engine config doesn't override them.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:              name,
		FailureThreshold:  5,
		ResetDuration:     30 * time.Second,
		HalfOpenMaxProbes: 1,
	}
}

// CircuitBreaker limits calls to a module after repeated failures.
//
// States:
//   - Closed: consecutive failures are counted; reaching FailureThreshold
//     opens the circuit
//   - Open: calls fail immediately with ErrCircuitOpen for ResetDuration
//   - Half-Open: up to HalfOpenMaxProbes calls probe the module; all-success
//     closes the circuit, any failure re-opens it
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu              sync.RWMutex
	state           State
	failures        int
	successes       int
	lastFailureTime time.Time
	halfOpenProbes  int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetDuration <= 0 {
		config.ResetDuration = 30 * time.Second
	}
	if config.HalfOpenMaxProbes <= 0 {
		config.HalfOpenMaxProbes = 1
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs the given call through the circuit breaker.
// Returns ErrCircuitOpen if the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowCall() {
		return ErrCircuitOpen
	}

	err := fn()
	cb.recordResult(err)
	return err
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.currentState()
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toState(StateClosed)
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenProbes = 0
}

// Failures returns the current consecutive-failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// allowCall checks if a call should be allowed.
func (cb *CircuitBreaker) allowCall() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		return true
	case StateOpen:
		return false
	case StateHalfOpen:
		if cb.halfOpenProbes < cb.config.HalfOpenMaxProbes {
			cb.halfOpenProbes++
			return true
		}
		return false
	default:
		return false
	}
}

// recordResult records the outcome of a call.
func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

// onSuccess handles a successful call.
func (cb *CircuitBreaker) onSuccess() {
	switch cb.currentState() {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.HalfOpenMaxProbes {
			cb.toState(StateClosed)
		}
	}
}

// onFailure handles a failed call.
func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.currentState() {
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.toState(StateOpen)
		}
	case StateHalfOpen:
		cb.toState(StateOpen)
	}
}

// currentState returns the current state, handling the open -> half-open
// transition once ResetDuration has elapsed.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen {
		if time.Since(cb.lastFailureTime) >= cb.config.ResetDuration {
			cb.toState(StateHalfOpen)
		}
	}
	return cb.state
}

// toState transitions to a new state, resetting the counters that only
// make sense within one state.
func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to

	switch to {
	case StateClosed:
		cb.failures = 0
		cb.successes = 0
		cb.halfOpenProbes = 0
	case StateHalfOpen, StateOpen:
		cb.halfOpenProbes = 0
		cb.successes = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
