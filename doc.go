// Package failover runs a request against an ordered list of candidate base
// addresses until one succeeds.
//
// The central pieces are [CandidateList], an immutable ordered set of base
// URLs, and [Strategy], which [Execute] uses to try an [Operation] against
// each candidate in turn. Only the last candidate's failure is surfaced.
// Strategies report health for readiness checks the same way the rest of
// the package's stateful patterns do.
package failover
