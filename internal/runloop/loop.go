// ABOUTME: Single-goroutine run loop for the receive pipeline
// ABOUTME: Serializes posted work and timer callbacks in run-to-completion order
package runloop

import (
	"context"
	"sync"
	"time"
)

// Loop runs posted functions and expired timers on one goroutine.
// Post, Call and AfterFunc are safe from any goroutine.
type Loop struct {
	timers timerSet

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}

	now func() time.Time
}

// New creates a run loop on the wall clock
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		now:  time.Now,
	}
}

// Now returns the loop's current time
func (l *Loop) Now() time.Time {
	return l.now()
}

// AfterFunc arms a timer that runs fn on the loop after d
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	t := l.timers.add(l.now().Add(d), fn)
	l.signal()
	return t
}

// Post queues fn to run on the loop
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// Call runs fn on the loop and waits for it to finish. It must not be used
// from the loop goroutine.
func (l *Loop) Call(fn func()) {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	})
	<-done
}

// CallTimeout is Call with an upper bound on the wait. It reports whether
// fn finished in time; a late fn still runs once the loop gets to it.
func (l *Loop) CallTimeout(fn func(), timeout time.Duration) bool {
	done := make(chan struct{})
	l.Post(func() {
		fn()
		close(done)
	})

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}

// Pending returns the number of armed timers
func (l *Loop) Pending() int {
	return l.timers.len()
}

// Run processes work until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	sleep := time.NewTimer(time.Hour)
	defer sleep.Stop()

	for {
		l.runTimers()
		l.runQueue()

		wait := time.Hour
		if when, ok := l.timers.next(); ok {
			wait = when.Sub(l.now())
			if wait < 0 {
				wait = 0
			}
		}
		sleep.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		case <-sleep.C:
		}
	}
}

func (l *Loop) runTimers() {
	for {
		t := l.timers.popDue(l.now())
		if t == nil {
			return
		}
		t.fn()
	}
}

func (l *Loop) runQueue() {
	l.mu.Lock()
	queue := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
