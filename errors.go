package failover

import (
	"errors"
	"strconv"
)

// ---------------------------------------------------------------------------
// Error classification wrappers
// ---------------------------------------------------------------------------.

type (
	// ResilienceError identifies errors produced by the failover layer
	// itself, as opposed to errors returned by an [Operation].
	//nolint:iface // exported for consumer error classification.
	ResilienceError interface {
		error
		// IsResilience reports whether this error originates from the
		// failover layer.
		IsResilience() bool
	}

	// AttemptError records which candidate produced a failure. The error
	// surfaced by [Execute] after the last candidate fails wraps one of these.
	AttemptError struct {
		Err       error
		Candidate string
		Index     int
	}

	// transientError marks a wrapped error as transient.
	transientError struct {
		err error
	}

	// permanentError marks a wrapped error as permanent.
	permanentError struct {
		err error
	}

	// resilienceError is the concrete type backing all sentinel errors.
	resilienceError string
)

// Sentinel failover errors.
var (
	// ErrNoCandidates is returned when a candidate list would be empty.
	ErrNoCandidates error = resilienceError("no candidates configured")
	// ErrInvalidCandidate is returned for a candidate that is not an
	// absolute base URL.
	ErrInvalidCandidate error = resilienceError("invalid candidate")
	// ErrDuplicateCandidate is returned when the same base address is listed
	// twice.
	ErrDuplicateCandidate error = resilienceError("duplicate candidate")
	// ErrCandidatesExhausted is returned when every candidate has failed.
	ErrCandidatesExhausted error = resilienceError("all candidates failed")
	// ErrTimeout is returned when an attempt exceeds its deadline.
	ErrTimeout error = resilienceError("timeout")
	// ErrCircuitOpen is returned for an attempt skipped because the
	// candidate's circuit breaker is open.
	ErrCircuitOpen error = resilienceError("circuit breaker is open")
	// ErrRateLimited is returned when an invocation is rejected by the
	// strategy's rate limiter.
	ErrRateLimited error = resilienceError("rate limited")
)

func (e *AttemptError) Error() string {
	return "candidate " + strconv.Itoa(e.Index) + " (" + e.Candidate + "): " + e.Err.Error()
}

func (e *AttemptError) Unwrap() error { return e.Err }

func (e *transientError) Error() string { return "transient: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func (e resilienceError) Error() string { return string(e) }

// IsResilience reports whether the error is a failover infrastructure error.
func (resilienceError) IsResilience() bool { return true }

// Transient wraps err to mark it as transient. Returns nil if err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}

	return &transientError{err: err}
}

// Permanent wraps err to mark it as permanent: the same request is expected
// to fail on every candidate. Returns nil if err is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// IsTransient reports whether err is transient. Unclassified errors are
// treated as transient. Returns false for nil.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pe *permanentError

	return !errors.As(err, &pe)
}

// IsPermanent reports whether err was explicitly marked as permanent.
// Returns false for nil and for unclassified errors.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var pe *permanentError

	return errors.As(err, &pe)
}

// LastAttempt extracts the [AttemptError] of the final attempt from an error
// returned by [Execute].
func LastAttempt(err error) (*AttemptError, bool) {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae, true
	}

	return nil, false
}
