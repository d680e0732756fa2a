package failover

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

type rateLimitConfig struct {
	blocking bool
}

// RateLimitOption configures rate limiter behavior.
type RateLimitOption func(*rateLimitConfig)

// RateLimitBlocking makes the rate limiter wait for a token instead of
// rejecting the invocation.
func RateLimitBlocking() RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.blocking = true
	}
}

// RateLimiter throttles strategy invocations with a token bucket. One token
// is taken per [Execute] call, never per attempt, so failing over does not
// consume extra budget.
//
// Pattern: Rate Limiter — token bucket from golang.org/x/time/rate, read
// through [Clock] so tests can drive refills.
type RateLimiter struct {
	lim   *rate.Limiter
	clock Clock
	hooks *Hooks
	cfg   rateLimitConfig
}

// NewRateLimiter creates a limiter refilling rps tokens per second with room
// for burst tokens. A burst below 1 is raised to 1.
func NewRateLimiter(rps float64, burst int, clock Clock, hooks *Hooks, opts ...RateLimitOption) *RateLimiter {
	var cfg rateLimitConfig
	for _, o := range opts {
		o(&cfg)
	}

	if burst < 1 {
		burst = 1
	}

	return &RateLimiter{
		lim:   rate.NewLimiter(rate.Limit(rps), burst),
		clock: clock,
		hooks: hooks,
		cfg:   cfg,
	}
}

// Allow takes a token. In reject mode (default) it returns ErrRateLimited
// when none is available; in blocking mode it waits, honouring ctx.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	if rl.lim.AllowN(rl.clock.Now(), 1) {
		return nil
	}

	if !rl.cfg.blocking {
		rl.hooks.emitRateLimited()
		return ErrRateLimited
	}

	// Reserve against the injected clock so the bucket has a single time
	// base; only the wait itself is real time.
	res := rl.lim.ReserveN(rl.clock.Now(), 1)
	if !res.OK() {
		rl.hooks.emitRateLimited()
		return ErrRateLimited
	}

	delay := res.DelayFrom(rl.clock.Now())
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		res.CancelAt(rl.clock.Now())
		rl.hooks.emitRateLimited()

		return fmt.Errorf("%w: %w", ErrRateLimited, ctx.Err())
	}
}

// Saturated reports whether the bucket currently holds less than one token.
func (rl *RateLimiter) Saturated() bool {
	return rl.lim.TokensAt(rl.clock.Now()) < 1
}
