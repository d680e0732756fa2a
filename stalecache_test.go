package failover_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/byte4ever/failover"
)

const (
	primaryAPI = "http://localhost:8080/api"
	backupAPI  = "http://localhost:3010/api"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// mapCache is an in-memory Cache that remembers the TTL of every Set.
type mapCache struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (c *mapCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.data[key]

	return v, ok
}

func (c *mapCache) Set(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = value
	c.ttls[key] = ttl
}

func (c *mapCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
}

func (c *mapCache) ttl(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ttls[key]
}

// listAPI serves "<base><path>" as the list body from every candidate that
// is not down.
type listAPI struct {
	mu   sync.Mutex
	down map[string]bool
}

func (a *listAPI) setDown(bases ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.down = make(map[string]bool)
	for _, b := range bases {
		a.down[b] = true
	}
}

func (a *listAPI) fetcher(s *failover.Strategy) func(context.Context, string) (string, error) {
	return func(ctx context.Context, path string) (string, error) {
		return failover.Execute(ctx, s, func(_ context.Context, base string) (string, error) {
			a.mu.Lock()
			down := a.down[base]
			a.mu.Unlock()

			if down {
				return "", errors.New(base + ": connection refused")
			}

			return base + path, nil
		})
	}
}

type staleEvents struct {
	mu        sync.Mutex
	refreshed []string
	served    []string
	lastErr   error
}

func (e *staleEvents) options() []failover.StaleCacheOption[string, string] {
	return []failover.StaleCacheOption[string, string]{
		failover.OnCacheRefreshed[string, string](func(key string) {
			e.mu.Lock()
			defer e.mu.Unlock()

			e.refreshed = append(e.refreshed, key)
		}),
		failover.OnStaleServed[string, string](func(key string, err error) {
			e.mu.Lock()
			defer e.mu.Unlock()

			e.served = append(e.served, key)
			e.lastErr = err
		}),
	}
}

func newListStrategy(opts ...failover.Option) *failover.Strategy {
	return failover.NewStrategy("", failover.MustCandidateList(primaryAPI, backupAPI), opts...)
}

// ---------------------------------------------------------------------------
// Fresh reads
// ---------------------------------------------------------------------------

func TestStaleReadBackupAnswerIsFresh(t *testing.T) {
	var (
		api    listAPI
		events staleEvents
	)

	sc := failover.NewStaleCache[string, string](newMapCache(), time.Minute, events.options()...)
	fetch := api.fetcher(newListStrategy())

	if got, err := sc.Do(context.Background(), "/todos", fetch); err != nil || got != primaryAPI+"/todos" {
		t.Fatalf("Do() = %q, %v; want primary list", got, err)
	}

	// A failover is still a fresh answer: it replaces the cached list.
	api.setDown(primaryAPI)

	if got, err := sc.Do(context.Background(), "/todos", fetch); err != nil || got != backupAPI+"/todos" {
		t.Fatalf("Do() = %q, %v; want backup list", got, err)
	}

	if len(events.served) != 0 {
		t.Fatalf("stale served for %v, want none", events.served)
	}

	if len(events.refreshed) != 2 {
		t.Fatalf("refreshed = %v, want two refreshes", events.refreshed)
	}

	api.setDown(primaryAPI, backupAPI)

	if got, _ := sc.Do(context.Background(), "/todos", fetch); got != backupAPI+"/todos" {
		t.Fatalf("Do() = %q, want the backup's list as the stale value", got)
	}
}

func TestStaleReadCachesWithConfiguredTTL(t *testing.T) {
	var api listAPI

	cache := newMapCache()
	sc := failover.NewStaleCache[string, string](cache, 10*time.Minute)

	_, _ = sc.Do(context.Background(), "/people", api.fetcher(newListStrategy()))

	if got := cache.ttl("/people"); got != 10*time.Minute {
		t.Fatalf("Set() ttl = %v, want 10m", got)
	}
}

// ---------------------------------------------------------------------------
// Stale reads when every candidate fails
// ---------------------------------------------------------------------------

func TestStaleReadServedWhenAllCandidatesFail(t *testing.T) {
	var (
		api    listAPI
		events staleEvents
	)

	sc := failover.NewStaleCache[string, string](newMapCache(), time.Minute, events.options()...)
	fetch := api.fetcher(newListStrategy())

	_, _ = sc.Do(context.Background(), "/todos", fetch)

	api.setDown(primaryAPI, backupAPI)

	got, err := sc.Do(context.Background(), "/todos", fetch)
	if err != nil || got != primaryAPI+"/todos" {
		t.Fatalf("Do() = %q, %v; want stale primary list", got, err)
	}

	if !equalKeys(events.served, "/todos") {
		t.Fatalf("stale served = %v, want [/todos]", events.served)
	}

	if !errors.Is(events.lastErr, failover.ErrCandidatesExhausted) {
		t.Fatalf("OnStaleServed err = %v, want ErrCandidatesExhausted", events.lastErr)
	}

	last, ok := failover.LastAttempt(events.lastErr)
	if !ok || last.Candidate != backupAPI {
		t.Fatalf("LastAttempt() = %+v, %v; want backup", last, ok)
	}
}

func TestStaleReadWithoutCachedListReturnsError(t *testing.T) {
	var api listAPI

	api.setDown(primaryAPI, backupAPI)

	sc := failover.NewStaleCache[string, string](newMapCache(), time.Minute)

	got, err := sc.Do(context.Background(), "/todos", api.fetcher(newListStrategy()))
	if !errors.Is(err, failover.ErrCandidatesExhausted) {
		t.Fatalf("Do() error = %v, want ErrCandidatesExhausted", err)
	}

	if got != "" {
		t.Fatalf("Do() = %q, want zero value", got)
	}
}

func TestStaleReadListsAreCachedPerPath(t *testing.T) {
	var api listAPI

	sc := failover.NewStaleCache[string, string](newMapCache(), time.Minute)
	fetch := api.fetcher(newListStrategy())

	_, _ = sc.Do(context.Background(), "/todos", fetch)

	api.setDown(primaryAPI, backupAPI)

	if got, err := sc.Do(context.Background(), "/todos", fetch); err != nil || got != primaryAPI+"/todos" {
		t.Fatalf("Do(/todos) = %q, %v; want stale todos", got, err)
	}

	if _, err := sc.Do(context.Background(), "/people", fetch); err == nil {
		t.Fatal("Do(/people) error = nil, want error: people were never fetched")
	}
}

func TestStaleReadAfterWriteInvalidation(t *testing.T) {
	var api listAPI

	sc := failover.NewStaleCache[string, string](newMapCache(), time.Minute)
	fetch := api.fetcher(newListStrategy())

	_, _ = sc.Do(context.Background(), "/todos", fetch)
	_, _ = sc.Do(context.Background(), "/people", fetch)

	// A todo was created: the cached todo list no longer reflects the API.
	sc.Invalidate("/todos")

	api.setDown(primaryAPI, backupAPI)

	if _, err := sc.Do(context.Background(), "/todos", fetch); !errors.Is(err, failover.ErrCandidatesExhausted) {
		t.Fatalf("Do(/todos) error = %v, want ErrCandidatesExhausted", err)
	}

	if got, err := sc.Do(context.Background(), "/people", fetch); err != nil || got != primaryAPI+"/people" {
		t.Fatalf("Do(/people) = %q, %v; want stale people", got, err)
	}
}

func TestStaleReadWhenRateLimited(t *testing.T) {
	var (
		api    listAPI
		events staleEvents
	)

	sc := failover.NewStaleCache[string, string](newMapCache(), time.Minute, events.options()...)
	fetch := api.fetcher(newListStrategy(failover.WithRateLimit(0.001, 1)))

	_, _ = sc.Do(context.Background(), "/todos", fetch)

	got, err := sc.Do(context.Background(), "/todos", fetch)
	if err != nil || got != primaryAPI+"/todos" {
		t.Fatalf("Do() = %q, %v; want stale list while rate limited", got, err)
	}

	if !errors.Is(events.lastErr, failover.ErrRateLimited) {
		t.Fatalf("OnStaleServed err = %v, want ErrRateLimited", events.lastErr)
	}
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestStaleReadConcurrentWithOutages(t *testing.T) {
	var (
		api      listAPI
		failures atomic.Int64
	)

	sc := failover.NewStaleCache[string, string](newMapCache(), time.Minute)
	fetch := api.fetcher(newListStrategy())

	if _, err := sc.Do(context.Background(), "/todos", fetch); err != nil {
		t.Fatalf("seeding Do() error = %v", err)
	}

	var wg sync.WaitGroup

	for g := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 50 {
				switch (g + i) % 3 {
				case 0:
					api.setDown()
				case 1:
					api.setDown(primaryAPI)
				default:
					api.setDown(primaryAPI, backupAPI)
				}

				if got, err := sc.Do(context.Background(), "/todos", fetch); err != nil || got == "" {
					failures.Add(1)
				}
			}
		}()
	}

	wg.Wait()

	if n := failures.Load(); n != 0 {
		t.Fatalf("%d reads failed after the list was cached, want 0", n)
	}
}

func equalKeys(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}

	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}

	return true
}

// ---------------------------------------------------------------------------
// Benchmark: every candidate down, list served from cache
// ---------------------------------------------------------------------------

func BenchmarkStaleReadAllDown(b *testing.B) {
	var api listAPI

	sc := failover.NewStaleCache[string, string](newMapCache(), time.Hour)
	fetch := api.fetcher(newListStrategy())

	_, _ = sc.Do(context.Background(), "/todos", fetch)

	api.setDown(primaryAPI, backupAPI)

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = sc.Do(context.Background(), "/todos", fetch)
		}
	})
}
