// ABOUTME: Virtual-time scheduler for deterministic tests
// ABOUTME: Fires timers in deadline order as the clock is advanced by hand
package runloop

import "time"

// Manual is a Scheduler whose clock only moves on Advance
type Manual struct {
	timers timerSet
	now    time.Time
}

// NewManual creates a manual scheduler starting at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual time
func (m *Manual) Now() time.Time {
	return m.now
}

// AfterFunc arms a timer d after the current virtual time
func (m *Manual) AfterFunc(d time.Duration, fn func()) *Timer {
	return m.timers.add(m.now.Add(d), fn)
}

// Advance moves the clock forward by d, running every timer that falls due
// on the way with the clock set to that timer's deadline
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		t := m.timers.popDue(target)
		if t == nil {
			break
		}
		if t.when.After(m.now) {
			m.now = t.when
		}
		t.fn()
	}
	m.now = target
}

// Pending returns the number of armed timers
func (m *Manual) Pending() int {
	return m.timers.len()
}
