package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"guidanceops-sim/internal/admin"
	"guidanceops-sim/internal/config"
	"guidanceops-sim/internal/logging"
	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/sim"
	"guidanceops-sim/internal/telemetry"
)

func TestNewWritersPrintOnly(t *testing.T) {
	w, tui, cleanup, err := newWriters(config.Default(), writerOptions{PrintOnly: true}, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if tui != nil {
		t.Fatalf("expected no TUI writer")
	}
	if _, ok := w.(*sim.StdoutWriter); !ok {
		t.Fatalf("expected *sim.StdoutWriter, got %T", w)
	}
}

func TestNewWritersGreptimeFallback(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	w, _, cleanup, err := newWriters(config.Default(), writerOptions{}, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*sim.StdoutWriter); !ok {
		t.Fatalf("expected *sim.StdoutWriter, got %T", w)
	}
}

func TestNewWritersBadEndpoint(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "localhost:not-a-port")
	if _, _, _, err := newWriters(config.Default(), writerOptions{}, logging.Discard()); err == nil {
		t.Fatalf("expected error for invalid endpoint")
	}
}

func TestNewWritersLogFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "telemetry.jsonl")
	w, _, cleanup, err := newWriters(config.Default(), writerOptions{PrintOnly: true, LogFile: logPath}, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	mw, ok := w.(*sim.MultiWriter)
	if !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", w)
	}
	row := telemetry.TelemetryRow{VehicleID: "v1", Source: telemetry.SourceAmbient, Timestamp: time.Now()}
	if err := mw.Write(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ev := path.EventRow{VehicleID: "v1", PathID: "p1", Event: path.EventSubmitted, Points: 3, Timestamp: time.Now()}
	if err := mw.WritePathEvent(ev); err != nil {
		t.Fatalf("write event failed: %v", err)
	}
	for _, p := range []string{logPath, sim.EventsPath(logPath)} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s failed: %v", p, err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", p)
		}
	}
}

func TestNewWritersExtra(t *testing.T) {
	hub := admin.NewHub()
	w, _, cleanup, err := newWriters(config.Default(), writerOptions{PrintOnly: true, Extra: []sim.TelemetryWriter{hub}}, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", w)
	}
	if _, ok := w.(sim.SceneWriter); !ok {
		t.Fatalf("expected the fan-out to forward scenes")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("VEHICLE_ID", "")
	t.Setenv("TICK_INTERVAL", "")
	cfg, err := loadConfig("", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Telemetry.Interval != 500*time.Millisecond {
		t.Fatalf("tick flag not applied: %s", cfg.Telemetry.Interval)
	}

	t.Setenv("TICK_INTERVAL", "3s")
	t.Setenv("VEHICLE_ID", "bus-7")
	cfg, err = loadConfig("", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Telemetry.Interval != 3*time.Second || cfg.VehicleID != "bus-7" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}

	t.Setenv("TICK_INTERVAL", "soon")
	if _, err := loadConfig("", 0); err == nil {
		t.Fatalf("expected error for invalid TICK_INTERVAL")
	}
}
