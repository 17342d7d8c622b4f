// ABOUTME: Deadline-ordered timer queue shared by the run loops
// ABOUTME: Timers are kept in a heap and can be cancelled until they fire
package runloop

import (
	"container/heap"
	"sync"
	"time"
)

// Scheduler is the timer contract the receive pipeline runs on. Callbacks
// run one at a time on the scheduler's single logical thread.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) *Timer
}

// Timer is a one-shot callback armed on a Scheduler
type Timer struct {
	set   *timerSet
	when  time.Time
	seq   uint64
	fn    func()
	index int
}

// Stop cancels the timer. It returns false if the timer already fired or
// was stopped.
func (t *Timer) Stop() bool {
	if t == nil || t.set == nil {
		return false
	}
	t.set.mu.Lock()
	defer t.set.mu.Unlock()

	if t.index < 0 {
		return false
	}
	heap.Remove(&t.set.queue, t.index)
	return true
}

// Deadline returns when the timer fires
func (t *Timer) Deadline() time.Time {
	return t.when
}

// timerSet owns the heap; its mutex guards every Timer in it
type timerSet struct {
	mu    sync.Mutex
	queue timerQueue
	seq   uint64
}

func (s *timerSet) add(when time.Time, fn func()) *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &Timer{set: s, when: when, seq: s.seq, fn: fn}
	heap.Push(&s.queue, t)
	return t
}

// popDue removes and returns the earliest timer due at now, or nil
func (s *timerSet) popDue(now time.Time) *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 || s.queue[0].when.After(now) {
		return nil
	}
	return heap.Pop(&s.queue).(*Timer)
}

// next returns the earliest deadline
func (s *timerSet) next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return time.Time{}, false
	}
	return s.queue[0].when, true
}

func (s *timerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// timerQueue is a priority queue of timers ordered by deadline, then by
// arming order
type timerQueue []*Timer

// Implement heap.Interface
func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].when.Equal(q[j].when) {
		return q[i].seq < q[j].seq
	}
	return q[i].when.Before(q[j].when)
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x interface{}) {
	t := x.(*Timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
