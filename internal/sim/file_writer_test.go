package sim

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	ts := time.Unix(0, 0).UTC()
	tRow := telemetry.TelemetryRow{
		VehicleID:     "bus",
		X:             1,
		Y:             telemetry.RoadLevel,
		Z:             -5,
		Heading:       0.5,
		Velocity:      2.5,
		Gear:          telemetry.GearDrive,
		AutonomyState: telemetry.AutonomyAutonomous,
		BatteryLevel:  84.9,
		PathID:        "path-1",
		Source:        telemetry.SourceMovement,
		Timestamp:     ts,
	}
	eRow := path.EventRow{VehicleID: "bus", PathID: "path-1", Event: path.EventAccepted, Points: 3, EstimatedTimeS: 6, Timestamp: ts}

	tele := filepath.Join(dir, "run.jsonl")
	events := EventsPath(tele)
	if events != filepath.Join(dir, "run.events.jsonl") {
		t.Fatalf("unexpected events path %s", events)
	}
	fw, err := NewFileWriter(tele, events)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.WriteBatch([]telemetry.TelemetryRow{tRow, tRow}); err != nil {
		t.Fatalf("write telemetry: %v", err)
	}
	if err := fw.WritePathEvent(eRow); err != nil {
		t.Fatalf("write event: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rows := readLines[telemetry.TelemetryRow](t, tele)
	if len(rows) != 2 {
		t.Fatalf("expected 2 telemetry lines, got %d", len(rows))
	}
	if diff := cmp.Diff(tRow, rows[0]); diff != "" {
		t.Errorf("telemetry row (-want +got):\n%s", diff)
	}
	evs := readLines[path.EventRow](t, events)
	if len(evs) != 1 {
		t.Fatalf("expected 1 event line, got %d", len(evs))
	}
	if diff := cmp.Diff(eRow, evs[0]); diff != "" {
		t.Errorf("event row (-want +got):\n%s", diff)
	}
}

func TestFileWriterWithoutEvents(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWriter(filepath.Join(dir, "tele.jsonl"), "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	defer fw.Close()
	if err := fw.WritePathEvent(path.EventRow{Event: path.EventSubmitted}); err != nil {
		t.Fatalf("disabled event log should not fail: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tele.events.jsonl")); !os.IsNotExist(err) {
		t.Fatalf("event log should not be created")
	}
}

func TestEventsPath(t *testing.T) {
	cases := map[string]string{
		"a.jsonl": "a.events.jsonl",
		"a.json":  "a.events.json",
		"a.log":   "a.log.events",
	}
	for in, want := range cases {
		if got := EventsPath(in); got != want {
			t.Errorf("EventsPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func readLines[T any](t *testing.T, name string) []T {
	t.Helper()
	f, err := os.Open(name)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()
	var out []T
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			t.Fatalf("decode %s: %v", name, err)
		}
		out = append(out, v)
	}
	return out
}
