package failover

import "context"

// Do is a convenience function that runs op against addrs without building a
// named [Strategy]. It validates addrs, creates an anonymous strategy and
// calls [Execute]. The strategy is not registered with any [Registry].
//
//nolint:ireturn // generic type parameter T, not an interface
func Do[T any](ctx context.Context, addrs []string, op Operation[T], opts ...Option) (T, error) {
	candidates, err := NewCandidateList(addrs...)
	if err != nil {
		var zero T
		return zero, err
	}

	return Execute(ctx, NewStrategy("", candidates, opts...), op)
}
