// Package clock abstracts wall-clock access so time-dependent logic
// (run-hours gating, lease expiry, stale-instance reaping) can be tested
// deterministically.
//
// Production code uses System(); tests inject a Manual clock and advance
// it explicitly.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time. All times are UTC.
type Clock interface {
	Now() time.Time
}

// System returns a Clock backed by the real wall clock.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Manual is a test clock whose time only moves when told to.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a Manual clock frozen at start (normalized to UTC).
func NewManual(start time.Time) *Manual {
	return &Manual{now: start.UTC()}
}

// Now returns the clock's current frozen time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t (normalized to UTC).
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
