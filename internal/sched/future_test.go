package sched

import (
	"context"
	"testing"
	"time"
)

func TestDelayResolvesAfterLatency(t *testing.T) {
	l := NewManualLoop(epoch)
	f := Delay(l, 1500*time.Millisecond, func() string { return "ok" })

	l.Advance(1499 * time.Millisecond)
	if _, ok := f.Result(); ok {
		t.Fatalf("resolved too early")
	}
	l.Advance(time.Millisecond)
	v, ok := f.Result()
	if !ok || v != "ok" {
		t.Fatalf("expected ok, got %q resolved=%v", v, ok)
	}
	select {
	case <-f.Done():
	default:
		t.Fatalf("done channel not closed")
	}
}

func TestThenOrderAndLateRegistration(t *testing.T) {
	f := NewFuture[int]()
	var got []int
	f.Then(func(v int) { got = append(got, v) })
	f.Then(func(v int) { got = append(got, v*10) })
	if !f.Resolve(2) {
		t.Fatalf("first resolve should win")
	}
	if f.Resolve(3) {
		t.Fatalf("second resolve should be ignored")
	}
	f.Then(func(v int) { got = append(got, v*100) })
	if len(got) != 3 || got[0] != 2 || got[1] != 20 || got[2] != 200 {
		t.Fatalf("unexpected continuations: %v", got)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	f := NewFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := f.Wait(ctx); err == nil {
		t.Fatalf("expected context error")
	}
	f.Resolve(7)
	v, err := f.Wait(context.Background())
	if err != nil || v != 7 {
		t.Fatalf("wait = %d, %v", v, err)
	}
}
