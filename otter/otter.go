// Package otter backs failover.Cache with the Otter cache, for use with
// failover.StaleCache.
package otter

import (
	"time"

	"github.com/maypok86/otter"

	"github.com/byte4ever/failover"
)

// defaultMaxSize is used when the configuration leaves max_size unset.
const defaultMaxSize = 1000

// adapter wraps an otter.CacheWithVariableTTL to implement failover.Cache.
type adapter[K comparable, V any] struct {
	cache otter.CacheWithVariableTTL[K, V]
}

// MustNew creates a failover.Cache backed by Otter with per-entry TTL.
// MaxSize from cfg is the capacity. It panics if the cache cannot be built.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func MustNew[K comparable, V any](cfg failover.CacheConfig) failover.Cache[K, V] {
	size := cfg.MaxSize
	if size <= 0 {
		size = defaultMaxSize
	}

	cache, err := otter.MustBuilder[K, V](size).
		WithVariableTTL().
		Build()
	if err != nil {
		panic("failover/otter: failed to build cache: " + err.Error())
	}

	return &adapter[K, V]{cache: cache}
}

//nolint:ireturn // generic type parameter V, not an interface
func (a *adapter[K, V]) Get(key K) (V, bool) {
	return a.cache.Get(key)
}

func (a *adapter[K, V]) Set(key K, value V, ttl time.Duration) {
	a.cache.Set(key, value, ttl)
}

func (a *adapter[K, V]) Delete(key K) {
	a.cache.Delete(key)
}
