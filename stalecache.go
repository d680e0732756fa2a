package failover

import (
	"context"
	"time"
)

type (
	// StaleCache serves the last known good value for a key when every
	// candidate failed. On success the result is stored in the underlying
	// [Cache]; on failure the cached value is returned if still within TTL,
	// otherwise the original error.
	//
	// StaleCache sits outside [Execute]: call Execute inside the function
	// passed to [StaleCache.Do]. Use it for reads only.
	StaleCache[K comparable, V any] struct {
		cache            Cache[K, V]
		onStaleServed    func(K, error)
		onCacheRefreshed func(K)
		ttl              time.Duration
	}

	// StaleCacheOption configures a [StaleCache].
	StaleCacheOption[K comparable, V any] func(*StaleCache[K, V])
)

// OnStaleServed sets a callback invoked with the key and the suppressed
// error when a stale value is served.
func OnStaleServed[K comparable, V any](fn func(K, error)) StaleCacheOption[K, V] {
	return func(sc *StaleCache[K, V]) {
		sc.onStaleServed = fn
	}
}

// OnCacheRefreshed sets a callback invoked when a cache entry is refreshed.
func OnCacheRefreshed[K comparable, V any](fn func(K)) StaleCacheOption[K, V] {
	return func(sc *StaleCache[K, V]) {
		sc.onCacheRefreshed = fn
	}
}

// NewStaleCache creates a keyed stale cache backed by cache. ttl is how long
// entries remain servable.
func NewStaleCache[K comparable, V any](
	cache Cache[K, V],
	ttl time.Duration,
	opts ...StaleCacheOption[K, V],
) *StaleCache[K, V] {
	sc := &StaleCache[K, V]{
		cache: cache,
		ttl:   ttl,
	}

	for _, opt := range opts {
		opt(sc)
	}

	return sc
}

// Do executes fn with key. On success the result is cached; on failure a
// cached value is returned if one exists.
//
//nolint:ireturn // generic type parameter V, not an interface
func (sc *StaleCache[K, V]) Do(
	ctx context.Context,
	key K,
	fn func(context.Context, K) (V, error),
) (V, error) {
	result, err := fn(ctx, key)
	if err == nil {
		sc.cache.Set(key, result, sc.ttl)

		if sc.onCacheRefreshed != nil {
			sc.onCacheRefreshed(key)
		}

		return result, nil
	}

	if cached, ok := sc.cache.Get(key); ok {
		if sc.onStaleServed != nil {
			sc.onStaleServed(key, err)
		}

		return cached, nil
	}

	var zero V

	return zero, err //nolint:wrapcheck // caller's error returned as-is
}

// Invalidate drops the cached entry for key, e.g. after a write made it
// outdated.
func (sc *StaleCache[K, V]) Invalidate(key K) {
	sc.cache.Delete(key)
}
