package sim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"guidanceops-sim/internal/config"
	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

func TestStdoutWriterJSONFallback(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &StdoutWriter{out: buf, colorize: false}
	row := telemetry.TelemetryRow{VehicleID: "bus", Source: telemetry.SourceAmbient, Timestamp: time.Unix(0, 0)}
	if err := w.Write(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}

	buf.Reset()
	if err := w.WritePathEvent(path.EventRow{PathID: "path-1", Event: path.EventAccepted}); err != nil {
		t.Fatalf("event write failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got["kind"] != "path_event" || got["path_id"] != "path-1" || got["event"] != "accepted" {
		t.Fatalf("unexpected event json: %v", got)
	}
}

func TestStdoutWriterColorized(t *testing.T) {
	cfg := config.Default()
	buf := &bytes.Buffer{}
	w := &StdoutWriter{cfg: cfg, colorize: true, out: buf}
	row := telemetry.TelemetryRow{
		VehicleID:     "bus",
		AutonomyState: telemetry.AutonomyStuck,
		StuckReason:   telemetry.StuckBlockedLane,
		BatteryLevel:  85,
		Source:        telemetry.SourceScenario,
		Timestamp:     time.Unix(0, 0),
	}
	if err := w.Write(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Console Configuration:") || !strings.Contains(output, "Planner Latency:") {
		t.Fatalf("overview not printed: %q", output)
	}
	if !strings.Contains(output, "\x1b[") || !strings.Contains(output, "reason=blocked_lane") {
		t.Fatalf("expected colored row with reason: %q", output)
	}

	buf.Reset()
	if err := w.Write(row); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if strings.Contains(buf.String(), "Console Configuration:") {
		t.Fatalf("overview printed more than once")
	}

	buf.Reset()
	_ = w.WritePathEvent(path.EventRow{PathID: "path-1", Event: path.EventRejected, Message: planTooShort})
	if !strings.Contains(buf.String(), "PATH rejected") || !strings.Contains(buf.String(), "too short") {
		t.Fatalf("unexpected event line: %q", buf.String())
	}
}

const planTooShort = "Path too short. Please provide at least 3 waypoints."
