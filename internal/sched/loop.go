// Package sched is a single-threaded cooperative executor. Every scheduled
// callback runs on one goroutine, one at a time and to completion, so state
// touched only from callbacks needs no locking.
//
// A Loop keeps either real time (NewLoop, driven by Run) or manual virtual
// time (NewManualLoop, driven by Advance).
package sched

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Loop owns a queue of tasks ordered by due time. Tasks due at the same
// instant run in the order they were scheduled.
type Loop struct {
	mu     sync.Mutex
	clock  Clock
	manual bool
	now    time.Time
	queue  taskQueue
	seq    uint64
	wake   chan struct{}
}

// NewLoop returns a real-time loop. A nil clock uses RealClock.
func NewLoop(clock Clock) *Loop {
	if clock == nil {
		clock = RealClock{}
	}
	return &Loop{clock: clock, wake: make(chan struct{}, 1)}
}

// NewManualLoop returns a loop whose time only moves when Advance is called.
func NewManualLoop(start time.Time) *Loop {
	return &Loop{manual: true, now: start, wake: make(chan struct{}, 1)}
}

// Now returns the loop's notion of the current time.
func (l *Loop) Now() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nowLocked()
}

func (l *Loop) nowLocked() time.Time {
	if l.manual {
		return l.now
	}
	return l.clock.Now()
}

// Post schedules fn to run on the next turn of the loop.
func (l *Loop) Post(fn func()) *Task {
	return l.schedule(0, 0, fn)
}

// After schedules fn to run once after d.
func (l *Loop) After(d time.Duration, fn func()) *Task {
	return l.schedule(d, 0, fn)
}

// Every schedules fn to run every d, first after d. It panics if d is not
// positive.
func (l *Loop) Every(d time.Duration, fn func()) *Task {
	if d <= 0 {
		panic("sched: non-positive interval for Every")
	}
	return l.schedule(d, d, fn)
}

// Pending reports the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) schedule(d, period time.Duration, fn func()) *Task {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	t := &Task{
		loop:   l,
		fn:     fn,
		due:    l.nowLocked().Add(d),
		period: period,
		seq:    l.seq,
		index:  -1,
	}
	l.seq++
	heap.Push(&l.queue, t)
	l.mu.Unlock()
	l.notify()
	return t
}

func (l *Loop) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// run executes one popped task and requeues it if it is periodic.
func (l *Loop) run(t *Task) {
	l.mu.Lock()
	cancelled := t.cancelled
	l.mu.Unlock()
	if cancelled {
		return
	}

	t.fn()

	if t.period <= 0 {
		return
	}
	l.mu.Lock()
	if !t.cancelled && t.index < 0 {
		t.due = t.due.Add(t.period)
		t.seq = l.seq
		l.seq++
		heap.Push(&l.queue, t)
	}
	l.mu.Unlock()
}

// Advance moves manual time forward by d, running every task that falls
// due on the way in order. Tasks scheduled by those callbacks run too if
// they are due before the target time. It panics on a real-time loop.
func (l *Loop) Advance(d time.Duration) {
	if !l.manual {
		panic("sched: Advance called on a real-time loop")
	}
	l.mu.Lock()
	target := l.now.Add(d)
	l.mu.Unlock()

	for {
		l.mu.Lock()
		if len(l.queue) == 0 || l.queue[0].due.After(target) {
			l.now = target
			l.mu.Unlock()
			return
		}
		t := heap.Pop(&l.queue).(*Task)
		if t.due.After(l.now) {
			l.now = t.due
		}
		l.mu.Unlock()
		l.run(t)
	}
}

// Run drives a real-time loop until ctx is done. It panics on a manual loop.
func (l *Loop) Run(ctx context.Context) {
	if l.manual {
		panic("sched: Run called on a manual loop")
	}
	for {
		l.mu.Lock()
		var (
			next *Task
			wait time.Duration = -1
		)
		if len(l.queue) > 0 {
			wait = l.queue[0].due.Sub(l.clock.Now())
			if wait <= 0 {
				next = heap.Pop(&l.queue).(*Task)
			}
		}
		l.mu.Unlock()

		if next != nil {
			l.run(next)
			if ctx.Err() != nil {
				return
			}
			continue
		}

		if wait < 0 {
			select {
			case <-ctx.Done():
				return
			case <-l.wake:
			}
			continue
		}

		timer := l.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-l.wake:
			timer.Stop()
		case <-timer.C():
		}
	}
}

// Call runs fn on the loop and waits until it has returned. It must not be
// called from a loop callback. If ctx ends first, fn may still run later.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
