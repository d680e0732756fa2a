// Package zaphooks logs failover strategy events with zap.
package zaphooks

import (
	"time"

	"go.uber.org/zap"

	"github.com/byte4ever/failover"
)

// New returns hooks that log strategy events on logger: attempts at debug,
// failed attempts at warn, failovers and breaker transitions at info, and
// exhausted invocations at error.
func New(logger *zap.Logger) failover.Hooks {
	return failover.Hooks{
		OnAttempt: func(index int, candidate string) {
			logger.Debug("attempt",
				zap.Int("index", index),
				zap.String("candidate", candidate),
			)
		},
		OnAttemptFailed: func(index int, candidate string, err error, elapsed time.Duration) {
			logger.Warn("attempt failed",
				zap.Int("index", index),
				zap.String("candidate", candidate),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
		},
		OnFailover: func(from, to string, err error) {
			logger.Info("failing over",
				zap.String("from", from),
				zap.String("to", to),
				zap.Error(err),
			)
		},
		OnSuccess: func(index int, candidate string, elapsed time.Duration) {
			logger.Debug("attempt succeeded",
				zap.Int("index", index),
				zap.String("candidate", candidate),
				zap.Duration("elapsed", elapsed),
			)
		},
		OnExhausted: func(attempts int, err error) {
			logger.Error("all candidates failed",
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
		},
		OnCircuitOpen: func(candidate string) {
			logger.Info("circuit opened", zap.String("candidate", candidate))
		},
		OnCircuitHalfOpen: func(candidate string) {
			logger.Info("circuit half-open", zap.String("candidate", candidate))
		},
		OnCircuitClose: func(candidate string) {
			logger.Info("circuit closed", zap.String("candidate", candidate))
		},
		OnRateLimited: func() {
			logger.Warn("invocation rate limited")
		},
	}
}
