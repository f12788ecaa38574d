// Package clock provides the monotonic time source used to stamp published
// sensor records.
package clock

import (
	"sync"
	"time"
)

// Clock returns monotonic time as a duration since an arbitrary fixed origin.
type Clock interface {
	Now() time.Duration
}

// Monotonic reads the process monotonic clock relative to its creation time.
type Monotonic struct {
	origin time.Time
}

func NewMonotonic() *Monotonic {
	return &Monotonic{origin: time.Now()}
}

// Now returns the elapsed monotonic time since NewMonotonic.
func (m *Monotonic) Now() time.Duration {
	return time.Since(m.origin)
}

// Manual is a Clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Duration
}

func NewManual(start time.Duration) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(t time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

func (m *Manual) Advance(d time.Duration) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
	return m.now
}
