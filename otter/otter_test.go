package otter_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/byte4ever/failover"
	"github.com/byte4ever/failover/otter"
)

func TestSetGet(t *testing.T) {
	t.Parallel()

	cache := otter.MustNew[string, []byte](failover.CacheConfig{MaxSize: 16})

	cache.Set("/todos", []byte(`[]`), time.Minute)

	got, ok := cache.Get("/todos")
	require.True(t, ok)
	require.Equal(t, []byte(`[]`), got)
}

func TestGetMissingKey(t *testing.T) {
	t.Parallel()

	cache := otter.MustNew[string, int](failover.CacheConfig{})

	_, ok := cache.Get("absent")
	require.False(t, ok)
}

func TestDeleteRemovesEntry(t *testing.T) {
	t.Parallel()

	cache := otter.MustNew[string, int](failover.CacheConfig{})

	cache.Set("k", 1, time.Minute)
	cache.Delete("k")

	_, ok := cache.Get("k")
	require.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	t.Parallel()

	cache := otter.MustNew[string, int](failover.CacheConfig{})

	cache.Set("k", 1, time.Minute)
	cache.Set("k", 2, time.Minute)

	got, ok := cache.Get("k")
	require.True(t, ok)
	require.Equal(t, 2, got)
}

func TestEntryExpires(t *testing.T) {
	t.Parallel()

	cache := otter.MustNew[string, int](failover.CacheConfig{})

	cache.Set("k", 1, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := cache.Get("k")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	cache := otter.MustNew[int, int](failover.CacheConfig{MaxSize: 1000})

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			cache.Set(i, i, time.Minute)
			_, _ = cache.Get(i)
		}()
	}

	wg.Wait()
}

func TestIntegrationWithStaleCacheAndStrategy(t *testing.T) {
	t.Parallel()

	s := failover.NewStrategy("", failover.MustCandidateList("http://primary.test", "http://backup.test"))
	sc := failover.NewStaleCache(otter.MustNew[string, string](failover.CacheConfig{}), time.Minute)

	up := true
	fetch := func(ctx context.Context, path string) (string, error) {
		return failover.Execute(ctx, s, func(_ context.Context, base string) (string, error) {
			if !up {
				return "", errors.New("refused")
			}

			return base + path, nil
		})
	}

	got, err := sc.Do(context.Background(), "/people", fetch)
	require.NoError(t, err)
	require.Equal(t, "http://primary.test/people", got)

	up = false

	got, err = sc.Do(context.Background(), "/people", fetch)
	require.NoError(t, err)
	require.Equal(t, "http://primary.test/people", got)

	_, err = sc.Do(context.Background(), "/todos", fetch)
	require.ErrorIs(t, err, failover.ErrCandidatesExhausted)
}
