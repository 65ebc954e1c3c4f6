package clients

import (
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed lets every request through.
	StateClosed State = iota

	// StateOpen blocks requests until the open timeout elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe requests through.
	StateHalfOpen
)

// String returns a human-readable name for the state.
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

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures int

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration

	// HalfOpenLimit is both the number of concurrent probes allowed and the
	// number of consecutive probe successes that close the circuit.
	HalfOpenLimit int
}

// CircuitStats is a point-in-time view of a circuit breaker.
type CircuitStats struct {
	State    State
	Failures int

	// RetryAt is when an open circuit will admit a probe. Zero unless open.
	RetryAt time.Time
}

// CircuitBreaker stops calling a source page that keeps failing.
//
//	Closed   → Open:     MaxFailures consecutive failures
//	Open     → HalfOpen: Timeout after the last failure
//	HalfOpen → Closed:   HalfOpenLimit consecutive successes
//	HalfOpen → Open:     any failure
type CircuitBreaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	probes      int
	lastFailure time.Time
	cfg         CircuitBreakerConfig

	onStateChange func(from, to State)
	now           func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker. Zero config values are
// raised to 1 so the breaker is always usable.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg.MaxFailures = max(cfg.MaxFailures, 1)
	cfg.HalfOpenLimit = max(cfg.HalfOpenLimit, 1)

	return &CircuitBreaker{
		state: StateClosed,
		cfg:   cfg,
		now:   time.Now,
	}
}

// OnStateChange registers a callback for state transitions. It runs after
// the breaker's lock is released, on the goroutine that caused the change.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.onStateChange = fn
}

// Allow reports whether a request may proceed. An open circuit whose timeout
// has elapsed moves to half-open and admits the caller as the first probe.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()

	var (
		allowed bool
		change  func()
	)

	switch cb.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) >= cb.cfg.Timeout {
			change = cb.transitionTo(StateHalfOpen)
			cb.probes = 1
			allowed = true
		}
	case StateHalfOpen:
		if cb.probes < cb.cfg.HalfOpenLimit {
			cb.probes++
			allowed = true
		}
	}

	cb.mu.Unlock()
	notify(change)

	return allowed
}

// RecordSuccess records a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()

	var change func()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.probes--
		cb.successes++

		if cb.successes >= cb.cfg.HalfOpenLimit {
			change = cb.transitionTo(StateClosed)
		}
	}

	cb.mu.Unlock()
	notify(change)
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()

	var change func()

	cb.lastFailure = cb.now()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.MaxFailures {
			change = cb.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		cb.probes--
		change = cb.transitionTo(StateOpen)
	}

	cb.mu.Unlock()
	notify(change)
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// Stats returns the current state with failure count and reopen time.
func (cb *CircuitBreaker) Stats() CircuitStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := CircuitStats{State: cb.state, Failures: cb.failures}
	if cb.state == StateOpen {
		stats.RetryAt = cb.lastFailure.Add(cb.cfg.Timeout)
	}

	return stats
}

// transitionTo changes state and resets counters. Must be called with the
// lock held; the returned func (possibly nil) must be run after unlocking.
func (cb *CircuitBreaker) transitionTo(next State) func() {
	if cb.state == next {
		return nil
	}

	prev := cb.state
	cb.state = next
	cb.failures = 0
	cb.successes = 0

	if fn := cb.onStateChange; fn != nil {
		return func() { fn(prev, next) }
	}

	return nil
}

func notify(change func()) {
	if change != nil {
		change()
	}
}
