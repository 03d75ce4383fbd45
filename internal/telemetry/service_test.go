package telemetry

import (
	"math/rand"
	"testing"
	"time"

	"guidanceops-sim/internal/sched"
)

var epoch = time.Unix(0, 0).UTC()

func newTestService() (*sched.Loop, *Service) {
	loop := sched.NewManualLoop(epoch)
	return loop, NewService(loop, NewGenerator(DefaultBatteryConfig(), rand.NewSource(1)))
}

func TestAmbientUpdatesCarryOnlyBattery(t *testing.T) {
	loop, svc := newTestService()
	var got []Update
	svc.Subscribe(func(u Update) { got = append(got, u) })

	svc.Start(2 * time.Second)
	svc.Start(time.Second)
	if svc.Interval() != 2*time.Second {
		t.Fatalf("second start changed interval to %v", svc.Interval())
	}

	loop.Advance(6 * time.Second)
	if len(got) != 3 {
		t.Fatalf("expected 3 ambient updates, got %d", len(got))
	}
	for i, u := range got {
		if u.BatteryLevel == nil {
			t.Fatalf("update %d has no battery level", i)
		}
		if u.Position != nil || u.Velocity != nil || u.AutonomyState != nil {
			t.Errorf("ambient update %d carries movement fields: %+v", i, u)
		}
		want := epoch.Add(time.Duration(i+1) * 2 * time.Second)
		if !u.Timestamp.Equal(want) {
			t.Errorf("update %d at %v, want %v", i, u.Timestamp, want)
		}
	}

	svc.Stop()
	svc.Stop()
	loop.Advance(10 * time.Second)
	if len(got) != 3 {
		t.Errorf("expected no updates after stop, got %d", len(got))
	}
	if svc.Running() {
		t.Errorf("service still running after stop")
	}
}

func TestSimulateMovementEmitsSixtyTicks(t *testing.T) {
	loop, svc := newTestService()
	var got []Update
	svc.Subscribe(func(u Update) { got = append(got, u) })

	points := []Vector3{{X: 0, Z: 0}, {X: 0, Z: 12}}
	done := svc.SimulateMovement(points, 1200*time.Millisecond)
	if done == nil {
		t.Fatalf("expected movement future")
	}
	if len(got) != 1 || got[0].Position != nil || *got[0].AutonomyState != AutonomyAutonomous {
		t.Fatalf("expected start update only, got %+v", got)
	}

	loop.Advance(1200 * time.Millisecond)
	if len(got) != 61 {
		t.Fatalf("expected start plus 60 ticks, got %d", len(got))
	}
	first := got[1]
	if *first.Position != (Vector3{0, RoadLevel, 0}) {
		t.Errorf("first tick should sit on the first point, got %+v", *first.Position)
	}
	for i, u := range got[1:] {
		if u.Position == nil || u.Heading == nil || *u.Velocity != CruiseVelocity {
			t.Fatalf("tick %d incomplete: %+v", i, u)
		}
		if *u.StuckReason != StuckNone {
			t.Errorf("tick %d carries stuck reason %q", i, *u.StuckReason)
		}
	}
	if last := got[60]; *last.Position == (Vector3{0, RoadLevel, 12}) {
		t.Errorf("last tick should stop short of the final point")
	}

	loop.Advance(20 * time.Millisecond)
	if len(got) != 62 {
		t.Fatalf("expected final stop update, got %d updates", len(got))
	}
	final := got[61]
	if final.Velocity == nil || *final.Velocity != 0 || final.Position != nil {
		t.Errorf("unexpected final update: %+v", final)
	}
	if v, ok := done.Result(); !ok || v != MovementCompleted {
		t.Errorf("expected completed outcome, got %q resolved=%v", v, ok)
	}
	if svc.Moving() {
		t.Errorf("movement still active after completion")
	}

	loop.Advance(time.Second)
	if len(got) != 62 {
		t.Errorf("updates after completion: %d", len(got))
	}
}

func TestSimulateMovementReplacesPrevious(t *testing.T) {
	loop, svc := newTestService()
	var positions []Vector3
	svc.Subscribe(func(u Update) {
		if u.Position != nil {
			positions = append(positions, *u.Position)
		}
	})

	first := svc.SimulateMovement([]Vector3{{X: 100}, {X: 200}}, 600*time.Millisecond)
	loop.Advance(50 * time.Millisecond)
	second := svc.SimulateMovement([]Vector3{{X: 0}, {X: 0, Z: 6}}, 600*time.Millisecond)
	if v, ok := first.Result(); !ok || v != MovementCancelled {
		t.Fatalf("expected first movement cancelled, got %q resolved=%v", v, ok)
	}
	if loop.Pending() != 1 {
		t.Fatalf("expected one movement timer, got %d", loop.Pending())
	}

	n := len(positions)
	loop.Advance(700 * time.Millisecond)
	for _, p := range positions[n:] {
		if p.X != 0 {
			t.Fatalf("tick from replaced movement: %+v", p)
		}
	}
	if len(positions)-n != MovementSteps {
		t.Errorf("expected %d ticks from second movement, got %d", MovementSteps, len(positions)-n)
	}
	if _, ok := second.Result(); !ok {
		t.Errorf("second movement did not finish")
	}
}

func TestSimulateMovementRestartedFromStartUpdate(t *testing.T) {
	loop, svc := newTestService()
	var nested *sched.Future[MovementOutcome]
	var positions []Vector3
	restarted := false
	svc.Subscribe(func(u Update) {
		if u.Position != nil {
			positions = append(positions, *u.Position)
			return
		}
		if !restarted && u.Velocity == nil {
			restarted = true
			nested = svc.SimulateMovement([]Vector3{{X: 0}, {X: 0, Z: 6}}, 600*time.Millisecond)
		}
	})

	outer := svc.SimulateMovement([]Vector3{{X: 100}, {X: 200}}, 600*time.Millisecond)
	if v, ok := outer.Result(); !ok || v != MovementCancelled {
		t.Fatalf("expected outer movement cancelled, got %q resolved=%v", v, ok)
	}
	if loop.Pending() != 1 {
		t.Fatalf("expected one movement timer, got %d", loop.Pending())
	}
	if !svc.Moving() {
		t.Fatal("nested movement not running")
	}

	loop.Advance(700 * time.Millisecond)
	for _, p := range positions {
		if p.X != 0 {
			t.Fatalf("tick from replaced movement: %+v", p)
		}
	}
	if len(positions) != MovementSteps {
		t.Errorf("expected %d ticks, got %d", MovementSteps, len(positions))
	}
	if v, ok := nested.Result(); !ok || v != MovementCompleted {
		t.Errorf("nested movement outcome %q resolved=%v", v, ok)
	}
	if loop.Pending() != 0 || svc.Moving() {
		t.Errorf("movement left behind: pending=%d moving=%v", loop.Pending(), svc.Moving())
	}
}

func TestStopMovementIsSilent(t *testing.T) {
	loop, svc := newTestService()
	count := 0
	svc.Subscribe(func(Update) { count++ })

	done := svc.SimulateMovement([]Vector3{{}, {Z: 1}}, time.Second)
	loop.Advance(100 * time.Millisecond)
	before := count
	svc.StopMovement()
	svc.StopMovement()
	loop.Advance(2 * time.Second)
	if count != before {
		t.Errorf("expected no updates after stop, got %d more", count-before)
	}
	if v, _ := done.Result(); v != MovementCancelled {
		t.Errorf("expected cancelled outcome, got %q", v)
	}
}

func TestSimulateMovementIgnoresShortPaths(t *testing.T) {
	loop, svc := newTestService()
	count := 0
	svc.Subscribe(func(Update) { count++ })
	if f := svc.SimulateMovement([]Vector3{{X: 1}}, time.Second); f != nil {
		t.Fatalf("expected nil future for single point")
	}
	loop.Advance(2 * time.Second)
	if count != 0 || svc.Moving() {
		t.Errorf("single point path started movement")
	}
}

func TestUnsubscribeRemovesOneRegistration(t *testing.T) {
	loop, svc := newTestService()
	var calls []string
	fn := func(u Update) { calls = append(calls, "a") }
	unsubA := svc.Subscribe(fn)
	svc.Subscribe(fn)
	svc.Subscribe(func(Update) { calls = append(calls, "b") })

	unsubA()
	unsubA()
	if svc.Listeners() != 2 {
		t.Fatalf("expected 2 listeners, got %d", svc.Listeners())
	}

	svc.Start(time.Second)
	loop.Advance(time.Second)
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Errorf("unexpected calls: %v", calls)
	}
}
