package failover

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHealthStatusWithoutBreakers(t *testing.T) {
	s := NewStrategy("plain", MustCandidateList(testPrimary), WithRegistry(NewRegistry()))

	st := s.HealthStatus()
	if !st.Healthy || st.State != "healthy" || st.Criticality != CriticalityNone {
		t.Fatalf("HealthStatus() = %+v, want healthy/none", st)
	}

	if st.Candidates != nil {
		t.Fatalf("Candidates = %+v, want nil without breakers", st.Candidates)
	}
}

func TestHealthStatusFollowsBreakers(t *testing.T) {
	s := NewStrategy("todo-api",
		MustCandidateList(testPrimary, testBackup),
		WithRegistry(NewRegistry()),
		WithClock(newFakeClock()),
		WithCircuitBreaker(FailureThreshold(1), RecoveryTimeout(time.Hour)),
	)

	primaryDown := func(_ context.Context, base string) (string, error) {
		if base == testPrimary {
			return "", errors.New("down")
		}

		return base, nil
	}

	_, _ = Execute(context.Background(), s, primaryDown)

	st := s.HealthStatus()
	if !st.Healthy || st.Criticality != CriticalityDegraded || st.State != "failing_over" {
		t.Fatalf("HealthStatus() = %+v, want degraded failing_over", st)
	}

	want := []CandidateStatus{
		{Address: testPrimary, Breaker: "open"},
		{Address: testBackup, Breaker: "closed"},
	}
	for i, c := range want {
		if st.Candidates[i] != c {
			t.Fatalf("Candidates[%d] = %+v, want %+v", i, st.Candidates[i], c)
		}
	}

	_, _ = Execute(context.Background(), s, func(context.Context, string) (string, error) {
		return "", errors.New("down")
	})

	st = s.HealthStatus()
	if st.Healthy || st.Criticality != CriticalityCritical || st.State != "all_candidates_open" {
		t.Fatalf("HealthStatus() = %+v, want critical all_candidates_open", st)
	}
}

func TestHealthStatusRateLimited(t *testing.T) {
	s := NewStrategy("limited",
		MustCandidateList(testPrimary),
		WithRegistry(NewRegistry()),
		WithClock(newFakeClock()),
		WithRateLimit(1, 1),
	)

	_, _ = Execute(context.Background(), s, func(context.Context, string) (int, error) { return 1, nil })

	st := s.HealthStatus()
	if !st.Healthy || st.Criticality != CriticalityDegraded || st.State != "rate_limited" {
		t.Fatalf("HealthStatus() = %+v, want degraded rate_limited", st)
	}
}

func TestCriticalityString(t *testing.T) {
	tests := map[Criticality]string{
		CriticalityNone:     "none",
		CriticalityDegraded: "degraded",
		CriticalityCritical: "critical",
	}

	for c, want := range tests {
		if got := c.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", c, got, want)
		}
	}
}
