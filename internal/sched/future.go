package sched

import (
	"context"
	"sync"
	"time"
)

// Future holds a value that becomes available on a later loop turn.
type Future[T any] struct {
	mu       sync.Mutex
	done     chan struct{}
	val      T
	resolved bool
	then     []func(T)
}

// NewFuture returns an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve sets the value and runs registered continuations in order on the
// calling goroutine. Only the first call has an effect.
func (f *Future[T]) Resolve(v T) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.val = v
	f.resolved = true
	cbs := f.then
	f.then = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(v)
	}
	return true
}

// Then registers fn to run with the value when the future resolves. If it
// has already resolved, fn runs immediately.
func (f *Future[T]) Then(fn func(T)) {
	f.mu.Lock()
	if f.resolved {
		v := f.val
		f.mu.Unlock()
		fn(v)
		return
	}
	f.then = append(f.then, fn)
	f.mu.Unlock()
}

// Done is closed once the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result returns the value and whether the future has resolved.
func (f *Future[T]) Result() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.val, f.resolved
}

// Wait blocks until the future resolves or ctx ends. It must not be called
// from a loop callback of the loop that resolves the future.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		v, _ := f.Result()
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Delay returns a future resolved with fn's result on the loop after d.
func Delay[T any](l *Loop, d time.Duration, fn func() T) *Future[T] {
	f := NewFuture[T]()
	l.After(d, func() {
		f.Resolve(fn())
	})
	return f
}
