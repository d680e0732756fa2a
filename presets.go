package failover

import "time"

// Pattern: Factory Function — each preset produces a ready-made bundle for a
// common deployment, avoiding boilerplate configuration.

// LocalDevCandidates returns the two local API addresses used during
// development: the primary on :8080 and the backup on :3010.
func LocalDevCandidates() *CandidateList {
	return MustCandidateList(
		"http://localhost:8080/api",
		"http://localhost:3010/api",
	)
}

// Interactive returns options for calls triggered by a person waiting on the
// result: each attempt is bounded to 5s so a hung primary hands over to the
// backup quickly.
func Interactive() []Option {
	return []Option{
		WithAttemptTimeout(5 * time.Second),
	}
}

// Background returns options for unattended callers such as a gateway:
// 10s attempt timeout, no failover on errors marked permanent (a 400 from
// the primary would be a 400 from the backup), and a breaker per candidate
// (5 failures, 30s recovery) so a dead primary is skipped instead of timing
// out every call.
func Background() []Option {
	return []Option{
		WithAttemptTimeout(10 * time.Second),
		StopOnPermanent(),
		WithCircuitBreaker(
			FailureThreshold(5),
			RecoveryTimeout(30*time.Second),
		),
	}
}
