// Package clock provides the time source injected into the radiation counter.
//
// Nothing in the counting core calls time.Now directly; it asks a Clock. Production
// code uses System, tests use Scripted or Manual so elapsed-time math is exact.
package clock

import (
	"sync"
	"time"
)

// Clock reads the current time.
type Clock interface {
	Now() time.Time
}

// System is a Clock backed by the system wall clock.
type System struct{}

// Now returns time.Now()
func (System) Now() time.Time {
	return time.Now()
}

// Func adapts an ordinary function to the Clock interface.
type Func func() time.Time

// Now calls f()
func (f Func) Now() time.Time {
	return f()
}

// Scripted returns a fixed sequence of timestamps, one per call to Now. Once the
// script runs out the last timestamp is repeated. Every call is counted so tests can
// assert how many times an operation consulted the clock.
type Scripted struct {
	mu    sync.Mutex
	times []time.Time
	calls int
}

// NewScripted creates a Scripted clock that will return times in order
func NewScripted(times ...time.Time) *Scripted {
	return &Scripted{times: times}
}

// Now returns the next scripted timestamp
func (s *Scripted) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.times) == 0 {
		s.calls++
		return time.Time{}
	}

	i := s.calls
	if i >= len(s.times) {
		i = len(s.times) - 1
	}
	s.calls++
	return s.times[i]
}

// Calls returns the number of times Now has been called
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Manual is a goroutine-safe Clock that only moves when told to.
type Manual struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManual creates a Manual clock starting at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the clock's current time
func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set moves the clock to t
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock forward by d and returns the new time
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}
