package failover

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	testPrimary = "http://primary.test/api"
	testBackup  = "http://backup.test/api"
	testThird   = "http://third.test/api"
)

var errTest = errors.New("test error")

// ---------------------------------------------------------------------------
// fakeClock — manually advanced clock
// ---------------------------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// ---------------------------------------------------------------------------
// eventLog — records hook calls as strings
// ---------------------------------------------------------------------------

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.events))
	copy(out, l.events)

	return out
}

func (l *eventLog) hooks() Hooks {
	return Hooks{
		OnAttempt: func(i int, c string) { l.add("attempt %d %s", i, c) },
		OnAttemptFailed: func(i int, c string, err error, _ time.Duration) {
			l.add("failed %d %s: %v", i, c, err)
		},
		OnFailover: func(from, to string, _ error) { l.add("failover %s -> %s", from, to) },
		OnSuccess:  func(i int, c string, _ time.Duration) { l.add("success %d %s", i, c) },
		OnExhausted: func(n int, _ error) {
			l.add("exhausted %d", n)
		},
		OnCircuitOpen:     func(c string) { l.add("open %s", c) },
		OnCircuitHalfOpen: func(c string) { l.add("half_open %s", c) },
		OnCircuitClose:    func(c string) { l.add("close %s", c) },
		OnRateLimited:     func() { l.add("rate_limited") },
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
