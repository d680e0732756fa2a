// Package stats counts failover events per strategy and candidate. Counts
// are kept in memory or in Redis so that several gateway replicas can share
// them.
package stats

import (
	"context"
	"time"

	"github.com/byte4ever/failover"
)

// Kind is the type of a recorded event.
type Kind string

const (
	// KindSuccess is an attempt that succeeded.
	KindSuccess Kind = "success"
	// KindFailure is an attempt that failed.
	KindFailure Kind = "failure"
	// KindFailover is a hand-over from a candidate to the next one.
	KindFailover Kind = "failover"
	// KindExhausted is an invocation on which every candidate failed.
	KindExhausted Kind = "exhausted"
)

// exhaustedCandidate is the candidate label for events not tied to one
// candidate.
const exhaustedCandidate = "*"

// Event is one recorded occurrence.
type Event struct {
	At        time.Time
	Strategy  string
	Candidate string
	Kind      Kind
}

// Counts maps candidate to event kind to count.
type Counts map[string]map[Kind]int64

// Recorder stores events and reports totals.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
	Snapshot(ctx context.Context, strategy string) (Counts, error)
}

// recordTimeout bounds how long a hook may block on the recorder.
const recordTimeout = time.Second

// Hooks returns strategy hooks feeding rec. Hooks have no context, so each
// event is recorded under its own short timeout; recorder errors are passed
// to onErr when non-nil.
func Hooks(strategy string, rec Recorder, onErr func(error)) failover.Hooks {
	record := func(candidate string, kind Kind) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		err := rec.Record(ctx, Event{
			At:        time.Now(),
			Strategy:  strategy,
			Candidate: candidate,
			Kind:      kind,
		})
		if err != nil && onErr != nil {
			onErr(err)
		}
	}

	return failover.Hooks{
		OnSuccess: func(_ int, candidate string, _ time.Duration) {
			record(candidate, KindSuccess)
		},
		OnAttemptFailed: func(_ int, candidate string, _ error, _ time.Duration) {
			record(candidate, KindFailure)
		},
		OnFailover: func(from, _ string, _ error) {
			record(from, KindFailover)
		},
		OnExhausted: func(_ int, _ error) {
			record(exhaustedCandidate, KindExhausted)
		},
	}
}
