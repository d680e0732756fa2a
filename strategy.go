package failover

import (
	"context"
	"fmt"
	"time"
)

// Operation issues one request against a base address. It is invoked at
// most once per candidate and must not keep state between invocations.
type Operation[T any] func(ctx context.Context, base string) (T, error)

// Strategy holds the immutable configuration [Execute] applies to every
// invocation: the candidate list, hooks, per-attempt timeout and the
// optional per-candidate breakers and invocation rate limiter. A Strategy
// carries no per-invocation state, so one instance serves every call site
// and concurrent invocations are independent.
type Strategy struct {
	name       string
	candidates *CandidateList
	hooks      Hooks
	clock      Clock

	attemptTimeout time.Duration
	failoverIf     func(error) bool

	breakers []*CircuitBreaker // nil unless WithCircuitBreaker
	limiter  *RateLimiter

	registry *Registry
}

// Option configures a [Strategy].
type Option func(*strategySetup)

type strategySetup struct {
	clock          Clock
	hooks          Hooks
	registry       *Registry
	attemptTimeout time.Duration
	failoverIf     func(error) bool
	breakerOpts    []CircuitBreakerOption
	withBreakers   bool
	rateLimit      *rateLimitDesc
}

type rateLimitDesc struct {
	rps   float64
	burst int
	opts  []RateLimitOption
}

// WithClock sets the clock used for attempt timing, breakers and the rate
// limiter.
func WithClock(c Clock) Option {
	return func(s *strategySetup) {
		s.clock = c
	}
}

// WithHooks sets the lifecycle hooks. Use [MergeHooks] to combine several.
func WithHooks(h Hooks) Option {
	return func(s *strategySetup) {
		s.hooks = h
	}
}

// WithRegistry sets an explicit registry for the strategy to register with.
// If not provided, named strategies auto-register with DefaultRegistry.
func WithRegistry(reg *Registry) Option {
	return func(s *strategySetup) {
		s.registry = reg
	}
}

// WithAttemptTimeout bounds every attempt by d. An attempt that runs longer
// fails with ErrTimeout and the next candidate is tried. Zero disables it.
func WithAttemptTimeout(d time.Duration) Option {
	return func(s *strategySetup) {
		s.attemptTimeout = d
	}
}

// WithFailoverIf sets a predicate deciding whether a failed attempt moves on
// to the next candidate. When it returns false the invocation ends with that
// attempt's error.
func WithFailoverIf(fn func(error) bool) Option {
	return func(s *strategySetup) {
		s.failoverIf = fn
	}
}

// StopOnPermanent ends an invocation on the first error marked [Permanent];
// such errors would repeat on every candidate.
func StopOnPermanent() Option {
	return WithFailoverIf(func(err error) bool { return !IsPermanent(err) })
}

// WithCircuitBreaker gives every candidate its own circuit breaker. An open
// breaker fails its candidate's attempt with ErrCircuitOpen without calling
// the operation; trial order is unchanged.
func WithCircuitBreaker(opts ...CircuitBreakerOption) Option {
	return func(s *strategySetup) {
		s.withBreakers = true
		s.breakerOpts = opts
	}
}

// WithRateLimit throttles invocations to rps per second with the given
// burst.
func WithRateLimit(rps float64, burst int, opts ...RateLimitOption) Option {
	return func(s *strategySetup) {
		s.rateLimit = &rateLimitDesc{rps: rps, burst: burst, opts: opts}
	}
}

// NewStrategy creates a [Strategy] over candidates. Named strategies are
// registered for readiness reporting; pass an empty name to stay anonymous.
func NewStrategy(name string, candidates *CandidateList, opts ...Option) *Strategy {
	var setup strategySetup
	for _, opt := range opts {
		opt(&setup)
	}

	if setup.clock == nil {
		setup.clock = RealClock{}
	}

	s := &Strategy{
		name:           name,
		candidates:     candidates,
		hooks:          setup.hooks,
		clock:          setup.clock,
		attemptTimeout: setup.attemptTimeout,
		failoverIf:     setup.failoverIf,
	}

	if setup.withBreakers {
		s.breakers = make([]*CircuitBreaker, candidates.Size())
		for i := range s.breakers {
			s.breakers[i] = NewCircuitBreaker(candidates.At(i), s.clock, &s.hooks, setup.breakerOpts...)
		}
	}

	if rl := setup.rateLimit; rl != nil {
		s.limiter = NewRateLimiter(rl.rps, rl.burst, s.clock, &s.hooks, rl.opts...)
	}

	if name != "" {
		reg := setup.registry
		if reg == nil {
			reg = DefaultRegistry()
		}

		s.registry = reg
		reg.Register(s)
	}

	return s
}

// Name returns the strategy's name.
func (s *Strategy) Name() string { return s.name }

// Candidates returns the candidate list the strategy tries.
func (s *Strategy) Candidates() *CandidateList { return s.candidates }

// Pattern: Failover — retry-with-substitution. The same logical request is
// re-issued against the next base address instead of waiting and retrying
// the same one.

// Execute runs op against the strategy's candidates in list order and
// returns the first successful result. Attempts are strictly sequential:
// the next candidate is only tried after the previous attempt returned.
// Every call starts again from candidate 0.
//
// When every candidate fails, the returned error wraps ErrCandidatesExhausted
// and an [*AttemptError] for the last attempt; earlier errors are dropped.
// If ctx is cancelled between attempts, the returned error wraps both
// ctx.Err() and the last attempt's error.
//
//nolint:ireturn // generic type parameter T, not an interface
func Execute[T any](ctx context.Context, s *Strategy, op Operation[T]) (T, error) {
	var zero T

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx); err != nil {
			return zero, err
		}
	}

	n := s.candidates.Size()

	var lastErr error

	for index := range n {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return zero, err //nolint:wrapcheck // preserving context error identity
			}

			return zero, fmt.Errorf("%w (last attempt: %w)", err, lastErr)
		}

		candidate := s.candidates.At(index)
		s.hooks.emitAttempt(index, candidate)

		start := s.clock.Now()
		result, err := attempt(ctx, s, index, candidate, op)
		elapsed := s.clock.Since(start)

		if err == nil {
			s.hooks.emitSuccess(index, candidate, elapsed)
			return result, nil
		}

		s.hooks.emitAttemptFailed(index, candidate, err, elapsed)
		lastErr = &AttemptError{Index: index, Candidate: candidate, Err: err}

		if s.failoverIf != nil && !s.failoverIf(err) {
			return zero, lastErr
		}

		if index+1 < n {
			s.hooks.emitFailover(candidate, s.candidates.At(index+1), err)
		}
	}

	s.hooks.emitExhausted(n, lastErr)

	return zero, fmt.Errorf("%w: %w", ErrCandidatesExhausted, lastErr)
}

// attempt performs a single trial against candidate, applying the
// candidate's breaker and the per-attempt timeout.
//
//nolint:ireturn // generic type parameter T, not an interface
func attempt[T any](ctx context.Context, s *Strategy, index int, candidate string, op Operation[T]) (T, error) {
	var cb *CircuitBreaker
	if s.breakers != nil {
		cb = s.breakers[index]
		if err := cb.Allow(); err != nil {
			var zero T
			return zero, err
		}
	}

	call := func(ctx context.Context) (T, error) { return op(ctx, candidate) }

	var (
		result T
		err    error
	)

	if s.attemptTimeout > 0 {
		result, err = DoTimeout(ctx, s.attemptTimeout, call)
	} else {
		result, err = call(ctx)
	}

	// A permanent error is an answer from a live candidate, so it does not
	// count against the breaker.
	if cb != nil {
		if err != nil && !IsPermanent(err) {
			cb.RecordFailure()
		} else {
			cb.RecordSuccess()
		}
	}

	return result, err
}
