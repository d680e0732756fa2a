package stats

import (
	"context"
	"sync"
)

// MemoryStore keeps counts in process memory. The zero value is not usable;
// call [NewMemoryStore].
type MemoryStore struct {
	counts map[string]Counts
	mu     sync.Mutex
}

// NewMemoryStore creates an empty in-memory recorder.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]Counts)}
}

// Record increments the counter for ev.
func (s *MemoryStore) Record(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCandidate, ok := s.counts[ev.Strategy]
	if !ok {
		byCandidate = make(Counts)
		s.counts[ev.Strategy] = byCandidate
	}

	byKind, ok := byCandidate[ev.Candidate]
	if !ok {
		byKind = make(map[Kind]int64)
		byCandidate[ev.Candidate] = byKind
	}

	byKind[ev.Kind]++

	return nil
}

// Snapshot returns a copy of the counts for strategy.
func (s *MemoryStore) Snapshot(_ context.Context, strategy string) (Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(Counts, len(s.counts[strategy]))
	for candidate, byKind := range s.counts[strategy] {
		cp := make(map[Kind]int64, len(byKind))
		for k, v := range byKind {
			cp[k] = v
		}

		out[candidate] = cp
	}

	return out, nil
}
