package failover

// ---------------------------------------------------------------------------
// HealthReporter interface
// ---------------------------------------------------------------------------.

type (
	// HealthReporter is implemented by [Strategy]. The interface is kept
	// separate so that other components can join a [Registry].
	HealthReporter interface {
		// Name returns the reporter's name.
		Name() string
		// HealthStatus returns the current health state.
		HealthStatus() StrategyStatus
	}

	// Criticality represents how an unhealthy state affects readiness.
	Criticality int

	// StrategyStatus represents the current health state of a strategy.
	// Candidates lists one entry per candidate when breakers are enabled.
	StrategyStatus struct {
		Name        string            `json:"name"`
		State       string            `json:"state"`
		Candidates  []CandidateStatus `json:"candidates,omitempty"`
		Criticality Criticality       `json:"criticality"`
		Healthy     bool              `json:"healthy"`
	}

	// CandidateStatus is the breaker state of one candidate.
	CandidateStatus struct {
		Address string `json:"address"`
		Breaker string `json:"breaker"`
	}
)

const (
	// CriticalityNone means there is no persistent health state.
	CriticalityNone Criticality = iota
	// CriticalityDegraded means the service can still serve but is impaired.
	CriticalityDegraded
	// CriticalityCritical means the service cannot reliably serve requests.
	CriticalityCritical
)

// String returns the criticality level as a human-readable string.
func (c Criticality) String() string {
	switch c {
	case CriticalityDegraded:
		return "degraded"
	case CriticalityCritical:
		return "critical"
	default:
		return "none"
	}
}

// HealthStatus derives the strategy's health from its candidate breakers and
// rate limiter. Every breaker open is critical, since no candidate would be
// tried; some open is degraded.
func (s *Strategy) HealthStatus() StrategyStatus {
	status := StrategyStatus{
		Name:    s.name,
		Healthy: true,
		State:   "healthy",
	}

	if s.breakers != nil {
		open := 0

		for _, cb := range s.breakers {
			state := cb.State()
			if state == "open" {
				open++
			}

			status.Candidates = append(status.Candidates, CandidateStatus{
				Address: cb.Candidate(),
				Breaker: state,
			})
		}

		switch {
		case open == len(s.breakers):
			status.Healthy = false
			status.Criticality = CriticalityCritical
			status.State = "all_candidates_open"
		case open > 0:
			status.Criticality = CriticalityDegraded
			status.State = "failing_over"
		}
	}

	// Rate limiter saturation is degraded, never down.
	if s.limiter != nil && s.limiter.Saturated() {
		if status.Criticality < CriticalityDegraded {
			status.Criticality = CriticalityDegraded
		}

		if status.State == "healthy" {
			status.State = "rate_limited"
		}
	}

	return status
}
