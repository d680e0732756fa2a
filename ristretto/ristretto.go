// Package ristretto backs failover.Cache with the Ristretto cache, for use
// with failover.StaleCache.
package ristretto

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/byte4ever/failover"
)

// defaultMaxSize is used when the configuration leaves max_size unset.
const defaultMaxSize = 1000

type (
	// Key is the subset of ristretto.Key types that are also comparable,
	// required by the failover.Cache interface.
	Key interface {
		uint64 | string | byte | int | int32 | uint32 | int64
	}

	// adapter wraps a ristretto.Cache to implement failover.Cache.
	adapter[K Key, V any] struct {
		cache *ristretto.Cache[K, V]
	}
)

// MustNew creates a failover.Cache backed by Ristretto. MaxSize from cfg is
// the entry capacity (every entry costs 1). It panics if the cache cannot be
// built.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func MustNew[K Key, V any](cfg failover.CacheConfig) failover.Cache[K, V] {
	size := int64(cfg.MaxSize)
	if size <= 0 {
		size = defaultMaxSize
	}

	// nolint:mnd // Ristretto recommends 10x max size for counters and 64
	// buffer items.
	cache, err := ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
		// Cost counts entries only, so MaxCost equals MaxSize.
		IgnoreInternalCost: true,
	})
	if err != nil {
		panic("failover/ristretto: failed to build cache: " + err.Error())
	}

	return &adapter[K, V]{cache: cache}
}

//nolint:ireturn // generic type parameter V, not an interface
func (a *adapter[K, V]) Get(key K) (V, bool) {
	return a.cache.Get(key)
}

// Set stores value and waits for Ristretto's buffered write to be applied,
// so a stale read right after a refresh sees the new value.
func (a *adapter[K, V]) Set(key K, value V, ttl time.Duration) {
	a.cache.SetWithTTL(key, value, 1, ttl)
	a.cache.Wait()
}

func (a *adapter[K, V]) Delete(key K) {
	a.cache.Del(key)
}
