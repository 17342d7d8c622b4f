// ABOUTME: Tests for the run loop and manual scheduler
// ABOUTME: Covers timer ordering, cancellation and cross-goroutine calls
package runloop

import (
	"context"
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	m := NewManual(epoch)

	var order []int
	m.AfterFunc(30*time.Millisecond, func() { order = append(order, 3) })
	m.AfterFunc(10*time.Millisecond, func() { order = append(order, 1) })
	m.AfterFunc(20*time.Millisecond, func() { order = append(order, 2) })
	m.AfterFunc(20*time.Millisecond, func() { order = append(order, 22) })

	m.Advance(25 * time.Millisecond)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 22 {
		t.Fatalf("unexpected order %v", order)
	}
	if m.Pending() != 1 {
		t.Errorf("expected 1 pending timer, got %d", m.Pending())
	}
	if !m.Now().Equal(epoch.Add(25 * time.Millisecond)) {
		t.Errorf("clock at %v", m.Now())
	}
}

func TestManualClockAtDeadlineDuringCallback(t *testing.T) {
	m := NewManual(epoch)

	var seen []time.Duration
	var rearm func()
	rearm = func() {
		seen = append(seen, m.Now().Sub(epoch))
		if len(seen) < 3 {
			m.AfterFunc(10*time.Millisecond, rearm)
		}
	}
	m.AfterFunc(15*time.Millisecond, rearm)

	m.Advance(100 * time.Millisecond)

	want := []time.Duration{15 * time.Millisecond, 25 * time.Millisecond, 35 * time.Millisecond}
	if len(seen) != len(want) {
		t.Fatalf("expected %d firings, got %v", len(want), seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("firing %d at %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestTimerStop(t *testing.T) {
	m := NewManual(epoch)

	fired := false
	timer := m.AfterFunc(time.Millisecond, func() { fired = true })
	if !timer.Stop() {
		t.Error("first Stop should report true")
	}
	if timer.Stop() {
		t.Error("second Stop should report false")
	}
	m.Advance(time.Second)
	if fired {
		t.Error("stopped timer fired")
	}

	var nilTimer *Timer
	if nilTimer.Stop() {
		t.Error("nil timer Stop should report false")
	}
}

func TestTimerStopFromSiblingCallback(t *testing.T) {
	m := NewManual(epoch)

	var second *Timer
	secondFired := false
	m.AfterFunc(time.Millisecond, func() { second.Stop() })
	second = m.AfterFunc(time.Millisecond, func() { secondFired = true })

	m.Advance(time.Millisecond)
	if secondFired {
		t.Error("timer cancelled by an earlier callback still fired")
	}
}

func TestLoopPostAndCall(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("posted function did not run")
	}

	value := 0
	l.Call(func() { value = 42 })
	if value != 42 {
		t.Errorf("Call did not complete before returning")
	}

	if !l.CallTimeout(func() {}, time.Second) {
		t.Error("CallTimeout should succeed on an idle loop")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLoopCallTimeoutExpires(t *testing.T) {
	l := New()
	// Loop is not running, so nothing is served
	if l.CallTimeout(func() {}, 5*time.Millisecond) {
		t.Error("CallTimeout should fail when the loop is not running")
	}
}

func TestLoopAfterFunc(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	fired := make(chan time.Time, 1)
	start := time.Now()
	l.AfterFunc(20*time.Millisecond, func() { fired <- time.Now() })

	stopped := l.AfterFunc(10*time.Millisecond, func() { t.Error("stopped timer fired") })
	stopped.Stop()

	select {
	case at := <-fired:
		if at.Sub(start) < 20*time.Millisecond {
			t.Errorf("timer fired early after %v", at.Sub(start))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	time.Sleep(20 * time.Millisecond)
	if l.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", l.Pending())
	}
}

func TestSchedulerImplementations(t *testing.T) {
	var _ Scheduler = (*Loop)(nil)
	var _ Scheduler = (*Manual)(nil)
}
