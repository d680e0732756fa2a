package failover

import "time"

// Hooks holds optional callbacks for strategy lifecycle events. All fields
// are nil by default; callers set only the hooks they care about. Once
// passed to [WithHooks], a Hooks value must not be mutated: emit methods
// read the fields without synchronisation.
//
// Pattern: Observer — the strategy never logs; loggers, metrics and stats
// recorders subscribe through hooks.
type Hooks struct {
	OnAttempt         func(index int, candidate string)
	OnAttemptFailed   func(index int, candidate string, err error, elapsed time.Duration)
	OnFailover        func(from, to string, err error)
	OnSuccess         func(index int, candidate string, elapsed time.Duration)
	OnExhausted       func(attempts int, err error)
	OnCircuitOpen     func(candidate string)
	OnCircuitClose    func(candidate string)
	OnCircuitHalfOpen func(candidate string)
	OnRateLimited     func()
}

// MergeHooks returns a Hooks value that calls every non-nil callback of hs
// in order.
func MergeHooks(hs ...Hooks) Hooks {
	var merged Hooks

	for _, h := range hs {
		merged.OnAttempt = chain2(merged.OnAttempt, h.OnAttempt)
		merged.OnAttemptFailed = chain4(merged.OnAttemptFailed, h.OnAttemptFailed)
		merged.OnFailover = chain3(merged.OnFailover, h.OnFailover)
		merged.OnSuccess = chain3(merged.OnSuccess, h.OnSuccess)
		merged.OnExhausted = chain2(merged.OnExhausted, h.OnExhausted)
		merged.OnCircuitOpen = chain1(merged.OnCircuitOpen, h.OnCircuitOpen)
		merged.OnCircuitClose = chain1(merged.OnCircuitClose, h.OnCircuitClose)
		merged.OnCircuitHalfOpen = chain1(merged.OnCircuitHalfOpen, h.OnCircuitHalfOpen)
		merged.OnRateLimited = chain0(merged.OnRateLimited, h.OnRateLimited)
	}

	return merged
}

func chain0(a, b func()) func() {
	if a == nil {
		return b
	}

	if b == nil {
		return a
	}

	return func() { a(); b() }
}

func chain1[A any](a, b func(A)) func(A) {
	if a == nil {
		return b
	}

	if b == nil {
		return a
	}

	return func(x A) { a(x); b(x) }
}

func chain2[A, B any](a, b func(A, B)) func(A, B) {
	if a == nil {
		return b
	}

	if b == nil {
		return a
	}

	return func(x A, y B) { a(x, y); b(x, y) }
}

func chain3[A, B, C any](a, b func(A, B, C)) func(A, B, C) {
	if a == nil {
		return b
	}

	if b == nil {
		return a
	}

	return func(x A, y B, z C) { a(x, y, z); b(x, y, z) }
}

func chain4[A, B, C, D any](a, b func(A, B, C, D)) func(A, B, C, D) {
	if a == nil {
		return b
	}

	if b == nil {
		return a
	}

	return func(x A, y B, z C, w D) { a(x, y, z, w); b(x, y, z, w) }
}

func (h *Hooks) emitAttempt(index int, candidate string) {
	if h.OnAttempt != nil {
		h.OnAttempt(index, candidate)
	}
}

func (h *Hooks) emitAttemptFailed(index int, candidate string, err error, elapsed time.Duration) {
	if h.OnAttemptFailed != nil {
		h.OnAttemptFailed(index, candidate, err, elapsed)
	}
}

func (h *Hooks) emitFailover(from, to string, err error) {
	if h.OnFailover != nil {
		h.OnFailover(from, to, err)
	}
}

func (h *Hooks) emitSuccess(index int, candidate string, elapsed time.Duration) {
	if h.OnSuccess != nil {
		h.OnSuccess(index, candidate, elapsed)
	}
}

func (h *Hooks) emitExhausted(attempts int, err error) {
	if h.OnExhausted != nil {
		h.OnExhausted(attempts, err)
	}
}

func (h *Hooks) emitCircuitOpen(candidate string) {
	if h.OnCircuitOpen != nil {
		h.OnCircuitOpen(candidate)
	}
}

func (h *Hooks) emitCircuitClose(candidate string) {
	if h.OnCircuitClose != nil {
		h.OnCircuitClose(candidate)
	}
}

func (h *Hooks) emitCircuitHalfOpen(candidate string) {
	if h.OnCircuitHalfOpen != nil {
		h.OnCircuitHalfOpen(candidate)
	}
}

func (h *Hooks) emitRateLimited() {
	if h.OnRateLimited != nil {
		h.OnRateLimited()
	}
}
