package sched

import (
	"container/heap"
	"time"
)

// Task is a scheduled callback. It doubles as the cancellation token.
type Task struct {
	loop   *Loop
	fn     func()
	due    time.Time
	period time.Duration
	seq    uint64

	// guarded by loop.mu
	index     int
	cancelled bool
}

// Cancel stops the task. Once Cancel returns on the loop goroutine, no
// further callback of this task runs. Cancel is idempotent.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	l := t.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	t.cancelled = true
	if t.index >= 0 {
		heap.Remove(&l.queue, t.index)
	}
}

// Cancelled reports whether Cancel has been called.
func (t *Task) Cancelled() bool {
	if t == nil {
		return true
	}
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	return t.cancelled
}

// Due returns the time the task is next due.
func (t *Task) Due() time.Time {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	return t.due
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
