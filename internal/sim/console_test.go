package sim

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"guidanceops-sim/internal/config"
	"guidanceops-sim/internal/operator"
	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/planner"
	"guidanceops-sim/internal/sched"
	"guidanceops-sim/internal/telemetry"
)

var consoleEpoch = time.Unix(1_700_000_000, 0).UTC()

type consoleRecorder struct {
	rows   []telemetry.TelemetryRow
	events []path.EventRow
	scenes []operator.Snapshot
}

func (r *consoleRecorder) Write(row telemetry.TelemetryRow) error {
	r.rows = append(r.rows, row)
	return nil
}

func (r *consoleRecorder) WritePathEvent(e path.EventRow) error {
	r.events = append(r.events, e)
	return nil
}

func (r *consoleRecorder) WriteScene(s operator.Snapshot) error {
	r.scenes = append(r.scenes, s)
	return nil
}

func (r *consoleRecorder) eventNames() []string {
	var out []string
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

func (r *consoleRecorder) count(source string) int {
	n := 0
	for _, row := range r.rows {
		if row.Source == source {
			n++
		}
	}
	return n
}

func newTestConsole(t *testing.T) (*Console, *sched.Loop, *consoleRecorder) {
	t.Helper()
	loop := sched.NewManualLoop(consoleEpoch)
	rec := &consoleRecorder{}
	c, err := NewConsole(config.Default(), loop, rec, WithRandSource(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewConsole: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return c, loop, rec
}

func addPoints(t *testing.T, c *Console, pts ...telemetry.Vector3) {
	t.Helper()
	for _, p := range pts {
		if _, ok := c.Store().AddPathPoint(p); !ok {
			t.Fatalf("AddPathPoint(%v) refused", p)
		}
	}
}

var detour = []telemetry.Vector3{
	{X: -2.5, Z: -4},
	{X: -2.5, Z: 3},
	{X: 0, Z: 8},
}

func TestConsoleStartLoadsScenario(t *testing.T) {
	c, _, rec := newTestConsole(t)
	if len(rec.rows) != 1 {
		t.Fatalf("expected one scenario row, got %d", len(rec.rows))
	}
	row := rec.rows[0]
	if row.Source != telemetry.SourceScenario || row.AutonomyState != telemetry.AutonomyStuck || row.StuckReason != telemetry.StuckBlockedLane {
		t.Errorf("unexpected scenario row: %+v", row)
	}
	if row.VehicleID != "hero-bus" || !row.Timestamp.Equal(consoleEpoch) {
		t.Errorf("row identity: %s %v", row.VehicleID, row.Timestamp)
	}
	if len(rec.scenes) == 0 || len(rec.scenes[len(rec.scenes)-1].Obstacles) != 5 {
		t.Errorf("scene writer should see the loaded obstacles")
	}
	if got := c.Simulator().Generator().Baseline(); got != 85 {
		t.Errorf("generator not seeded from scenario battery: %v", got)
	}
	if err := c.Start(); err != nil || len(rec.rows) != 1 {
		t.Errorf("second Start should be a no-op")
	}
}

func TestConsoleGuidanceRoundTrip(t *testing.T) {
	c, loop, rec := newTestConsole(t)
	addPoints(t, c, detour...)

	f := c.SubmitPath()
	if f == nil {
		t.Fatalf("SubmitPath returned nil")
	}
	if p, _ := c.Store().ActivePath(); p.Status != path.StatusSubmitted {
		t.Fatalf("status after submit = %s", p.Status)
	}

	loop.Advance(planner.DefaultLatency - time.Millisecond)
	if _, ok := f.Result(); ok {
		t.Fatalf("planner answered before its latency")
	}
	loop.Advance(time.Millisecond)
	resp, ok := f.Result()
	if !ok || resp.Status != planner.Accepted || resp.EstimatedTime != 6 {
		t.Fatalf("unexpected planner response: %+v ok=%v", resp, ok)
	}
	if !c.Simulator().Moving() {
		t.Fatalf("accepted path should start movement")
	}

	loop.Advance(6*time.Second + 200*time.Millisecond)
	if c.Simulator().Moving() {
		t.Fatalf("movement should have completed")
	}
	v := c.Store().Vehicle()
	if d := math.Hypot(v.Position.X-0, v.Position.Z-8); d > 0.5 {
		t.Errorf("vehicle should end near the last waypoint, got %+v (%.2fm away)", v.Position, d)
	}
	if v.Velocity != 0 || v.AutonomyState != telemetry.AutonomyAutonomous || v.StuckReason != telemetry.StuckNone {
		t.Errorf("unexpected final vehicle state: %+v", v)
	}
	if p, ok := c.Store().ActivePath(); !ok || p.Status != path.StatusAccepted {
		t.Errorf("accepted path should stay active: %+v", p)
	}

	if diff := cmp.Diff([]string{path.EventSubmitted, path.EventAccepted}, rec.eventNames()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if e := rec.events[1]; e.EstimatedTimeS != 6 || e.Points != 3 || e.Message != planner.MessageAccepted {
		t.Errorf("unexpected accepted event: %+v", e)
	}
	// start update, 60 steps and the final stop
	if n := rec.count(telemetry.SourceMovement); n != telemetry.MovementSteps+2 {
		t.Errorf("movement rows = %d, want %d", n, telemetry.MovementSteps+2)
	}
	if rec.count(telemetry.SourceAmbient) == 0 {
		t.Errorf("ambient telemetry should keep flowing during movement")
	}
	var last telemetry.TelemetryRow
	for _, r := range rec.rows {
		if r.Source == telemetry.SourceMovement {
			last = r
		}
	}
	if last.Velocity != 0 || last.PathID == "" {
		t.Errorf("final movement row: %+v", last)
	}
}

func TestConsoleRejectsShortPath(t *testing.T) {
	c, loop, rec := newTestConsole(t)
	addPoints(t, c, detour[:2]...)
	f := c.SubmitPath()
	loop.Advance(planner.DefaultLatency)
	resp, ok := f.Result()
	if !ok || resp.Status != planner.Rejected || resp.Message != planner.MessageTooShort {
		t.Fatalf("unexpected response: %+v", resp)
	}
	p, ok := c.Store().ActivePath()
	if !ok || p.Status != path.StatusRejected {
		t.Fatalf("rejected path should stay active: %+v", p)
	}
	if c.Simulator().Moving() {
		t.Errorf("rejected path must not move the vehicle")
	}
	if diff := cmp.Diff([]string{path.EventSubmitted, path.EventRejected}, rec.eventNames()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	// rejected paths can be extended and resubmitted
	addPoints(t, c, detour[2])
	if c.SubmitPath() == nil {
		t.Fatalf("resubmit refused")
	}
	loop.Advance(planner.DefaultLatency)
	if p, _ := c.Store().ActivePath(); p.Status != path.StatusAccepted {
		t.Errorf("resubmitted path status = %s", p.Status)
	}
}

func TestConsoleSubmitWithoutPath(t *testing.T) {
	c, _, rec := newTestConsole(t)
	if c.SubmitPath() != nil || c.CancelPath() != nil {
		t.Fatalf("expected nil futures without an active path")
	}
	if len(rec.events) != 0 {
		t.Fatalf("no events expected, got %v", rec.eventNames())
	}
}

func TestConsoleCancelPath(t *testing.T) {
	c, loop, rec := newTestConsole(t)
	addPoints(t, c, detour...)
	c.SubmitPath()
	loop.Advance(planner.DefaultLatency + time.Second)
	if !c.Simulator().Moving() {
		t.Fatalf("expected movement")
	}
	active, _ := c.Store().ActivePath()

	f := c.CancelPath()
	if c.Simulator().Moving() {
		t.Fatalf("cancel should stop movement immediately")
	}
	loop.Advance(planner.DefaultCancelLatency)
	resp, ok := f.Result()
	if !ok || !resp.Success || resp.Message != "Path "+active.ID+" cancelled successfully." {
		t.Fatalf("unexpected cancel response: %+v", resp)
	}
	if _, ok := c.Store().ActivePath(); ok {
		t.Errorf("active path should be cleared")
	}
	if diff := cmp.Diff([]string{path.EventSubmitted, path.EventAccepted, path.EventCancelled}, rec.eventNames()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	moving := rec.count(telemetry.SourceMovement)
	loop.Advance(10 * time.Second)
	if rec.count(telemetry.SourceMovement) != moving {
		t.Errorf("movement rows written after cancel")
	}
}

func TestConsoleIgnoresStaleDecision(t *testing.T) {
	c, loop, rec := newTestConsole(t)
	addPoints(t, c, detour...)
	c.SubmitPath()
	loop.Advance(time.Second)
	c.Store().ClearPath()
	addPoints(t, c, detour[0])

	loop.Advance(time.Second)
	p, ok := c.Store().ActivePath()
	if !ok || p.Status != path.StatusDraft || len(p.Points) != 1 {
		t.Fatalf("new draft should be untouched: %+v", p)
	}
	if c.Simulator().Moving() {
		t.Errorf("stale acceptance must not start movement")
	}
	if diff := cmp.Diff([]string{path.EventSubmitted, path.EventAccepted}, rec.eventNames()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestConsoleAmbientRows(t *testing.T) {
	c, loop, rec := newTestConsole(t)
	loop.Advance(3 * c.cfg.Telemetry.Interval)
	if n := rec.count(telemetry.SourceAmbient); n != 3 {
		t.Fatalf("ambient rows = %d, want 3", n)
	}
	for _, r := range rec.rows[1:] {
		if r.AutonomyState != telemetry.AutonomyStuck || r.StuckReason != telemetry.StuckBlockedLane {
			t.Errorf("ambient update must not touch autonomy: %+v", r)
		}
		if r.BatteryLevel < 0 || r.BatteryLevel > 100 {
			t.Errorf("battery out of range: %v", r.BatteryLevel)
		}
	}
}

func TestConsoleLoadScenarioStopsMovement(t *testing.T) {
	c, loop, rec := newTestConsole(t)
	addPoints(t, c, detour...)
	c.SubmitPath()
	loop.Advance(planner.DefaultLatency + time.Second)

	if err := c.LoadScenario("accident"); err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if c.Simulator().Moving() {
		t.Errorf("loading a scenario should stop movement")
	}
	if _, ok := c.Store().ActivePath(); ok {
		t.Errorf("loading a scenario should clear the path")
	}
	if v := c.Store().Vehicle(); v.StuckReason != telemetry.StuckAccident || v.BatteryLevel != 40 {
		t.Errorf("unexpected vehicle after load: %+v", v)
	}
	if last := rec.rows[len(rec.rows)-1]; last.Source != telemetry.SourceScenario {
		t.Errorf("last row source = %s", last.Source)
	}
	if err := c.LoadScenario("nowhere"); err == nil {
		t.Errorf("expected unknown scenario error")
	}
}

func TestControllerPostsToLoop(t *testing.T) {
	c, loop, _ := newTestConsole(t)
	ctrl := c.Controller()
	ctrl.AddPoint(1, 2)
	ctrl.ToggleLayer(operator.LayerDebug)
	ctrl.SetCameraMode(string(operator.CameraOverhead))
	if _, ok := c.Store().ActivePath(); ok {
		t.Fatalf("controller must not mutate state off the loop")
	}
	loop.Advance(0)
	p, ok := c.Store().ActivePath()
	if !ok || len(p.Points) != 1 || p.Points[0].Position != (telemetry.Vector3{X: 1, Z: 2}) {
		t.Fatalf("point not added: %+v", p)
	}
	if !c.Store().Layers().Debug || c.Store().CameraMode() != operator.CameraOverhead {
		t.Errorf("layer or camera not applied")
	}

	ctrl.RemoveLastPoint()
	ctrl.LoadScenario("construction-zone")
	loop.Advance(0)
	if _, ok := c.Store().ActivePath(); ok {
		t.Errorf("undo should discard the single-point path")
	}
	if c.Store().ScenarioName() != "construction-zone" {
		t.Errorf("scenario = %s", c.Store().ScenarioName())
	}
}

func TestConsoleStop(t *testing.T) {
	c, loop, rec := newTestConsole(t)
	c.Stop()
	n := len(rec.rows)
	loop.Advance(10 * time.Second)
	if len(rec.rows) != n {
		t.Errorf("rows written after Stop")
	}
}
