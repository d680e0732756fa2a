package failover

import (
	"sync"
	"time"
)

type (
	circuitBreakerConfig struct {
		failureThreshold    int
		recoveryTimeout     time.Duration
		halfOpenMaxAttempts int
	}

	// CircuitBreakerOption configures the per-candidate circuit breakers.
	CircuitBreakerOption func(*circuitBreakerConfig)

	breakerState uint8

	// CircuitBreaker tracks the health of one candidate so that the
	// strategy can skip it while it is down.
	//
	// Pattern: Circuit Breaker. A closed breaker counts consecutive
	// failures and opens at the threshold; after the recovery timeout one
	// trial attempt at a time is let through, and enough successful trials
	// close it again. Callers turned away fail over to the next candidate.
	CircuitBreaker struct {
		clock     Clock
		hooks     *Hooks
		candidate string
		cfg       circuitBreakerConfig

		mu       sync.Mutex
		openedAt time.Time
		failures int // consecutive, while closed
		trials   int // successful trial attempts, while half-open
		state    breakerState
		inTrial  bool // a half-open trial attempt is in flight
	}
)

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

func defaultCircuitBreakerConfig() circuitBreakerConfig {
	return circuitBreakerConfig{
		failureThreshold:    5,
		recoveryTimeout:     30 * time.Second,
		halfOpenMaxAttempts: 1,
	}
}

// FailureThreshold sets how many consecutive failed attempts open a
// candidate's breaker.
func FailureThreshold(n int) CircuitBreakerOption {
	return func(cfg *circuitBreakerConfig) {
		cfg.failureThreshold = n
	}
}

// RecoveryTimeout sets how long a candidate stays skipped before a trial
// attempt is allowed.
func RecoveryTimeout(d time.Duration) CircuitBreakerOption {
	return func(cfg *circuitBreakerConfig) {
		cfg.recoveryTimeout = d
	}
}

// HalfOpenMaxAttempts sets how many successful trial attempts close a
// recovering breaker.
func HalfOpenMaxAttempts(n int) CircuitBreakerOption {
	return func(cfg *circuitBreakerConfig) {
		cfg.halfOpenMaxAttempts = n
	}
}

// NewCircuitBreaker creates the breaker guarding candidate. Hooks receive
// candidate so that the breakers of one strategy can be told apart.
func NewCircuitBreaker(
	candidate string,
	clock Clock,
	hooks *Hooks,
	opts ...CircuitBreakerOption,
) *CircuitBreaker {
	cfg := defaultCircuitBreakerConfig()
	for _, o := range opts {
		o(&cfg)
	}

	return &CircuitBreaker{
		clock:     clock,
		hooks:     hooks,
		candidate: candidate,
		cfg:       cfg,
	}
}

// Candidate returns the base address this breaker guards.
func (cb *CircuitBreaker) Candidate() string { return cb.candidate }

// Allow reports whether an attempt against the candidate may start. It
// returns ErrCircuitOpen while the breaker is open, and while a trial
// attempt of a half-open breaker is still in flight. Every nil return must
// be followed by RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()

	recovering := false

	if cb.state == breakerOpen {
		if cb.clock.Since(cb.openedAt) < cb.cfg.recoveryTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}

		cb.state = breakerHalfOpen
		cb.trials = 0
		recovering = true
	}

	if cb.state == breakerHalfOpen {
		if cb.inTrial {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}

		cb.inTrial = true
	}

	cb.mu.Unlock()

	if recovering {
		cb.hooks.emitCircuitHalfOpen(cb.candidate)
	}

	return nil
}

// RecordSuccess records an attempt that reached a live candidate.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()

	closed := false

	switch cb.state {
	case breakerClosed:
		cb.failures = 0
	case breakerHalfOpen:
		cb.inTrial = false

		cb.trials++
		if cb.trials >= cb.cfg.halfOpenMaxAttempts {
			cb.state = breakerClosed
			cb.failures = 0
			closed = true
		}
	case breakerOpen:
	}

	cb.mu.Unlock()

	if closed {
		cb.hooks.emitCircuitClose(cb.candidate)
	}
}

// RecordFailure records a failed attempt. A failed trial attempt reopens
// the breaker and restarts the recovery timeout.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()

	opened := false

	switch cb.state {
	case breakerClosed:
		cb.failures++
		opened = cb.failures >= cb.cfg.failureThreshold
	case breakerHalfOpen:
		cb.inTrial = false
		opened = true
	case breakerOpen:
	}

	if opened {
		cb.state = breakerOpen
		cb.openedAt = cb.clock.Now()
		cb.failures = 0
		cb.trials = 0
	}

	cb.mu.Unlock()

	if opened {
		cb.hooks.emitCircuitOpen(cb.candidate)
	}
}

// State returns "closed", "open" or "half_open". An open breaker whose
// recovery timeout has elapsed still reports "open" until the next attempt
// asks to go through.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state.String()
}
