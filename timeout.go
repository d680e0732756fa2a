package failover

import (
	"context"
	"time"
)

// Pattern: Timeout — bounds a single attempt with a context deadline and
// joins it before reporting, keeping attempts sequential. Distinguishes
// between deadline expiry and parent context cancellation.

// DoTimeout executes fn with a timeout. If fn does not complete within
// timeout, its context is cancelled and ErrTimeout is returned once fn has
// returned, so a slow attempt is never still running when the caller moves
// on to the next candidate. fn is expected to honour its context; one that
// ignores cancellation delays DoTimeout until it finishes.
//
//nolint:ireturn // generic type parameter T, not an interface
func DoTimeout[T any](
	ctx context.Context,
	timeout time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T

	if ctx.Err() != nil {
		return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}

	ch := make(chan result, 1)

	go func() {
		v, err := fn(timeoutCtx)
		ch <- result{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-timeoutCtx.Done():
		<-ch

		if ctx.Err() != nil {
			return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
		}

		return zero, ErrTimeout
	}
}
