package sim

import (
	"errors"
	"testing"

	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

type stubWriter struct {
	rows    []telemetry.TelemetryRow
	events  []path.EventRow
	batches int
	err     error
	ctrl    Controller
	admin   bool
	closed  bool
}

func (s *stubWriter) Write(r telemetry.TelemetryRow) error {
	s.rows = append(s.rows, r)
	return s.err
}

func (s *stubWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	s.batches++
	s.rows = append(s.rows, rows...)
	return s.err
}

func (s *stubWriter) WritePathEvent(e path.EventRow) error {
	s.events = append(s.events, e)
	return s.err
}

func (s *stubWriter) SetController(c Controller)       { s.ctrl = c }
func (s *stubWriter) SetAdminStatus(_ string, on bool) { s.admin = on }
func (s *stubWriter) Close() error                     { s.closed = true; return nil }

type plainWriter struct{ rows []telemetry.TelemetryRow }

func (p *plainWriter) Write(r telemetry.TelemetryRow) error {
	p.rows = append(p.rows, r)
	return nil
}

func TestMultiWriterFanOut(t *testing.T) {
	s := &stubWriter{}
	p := &plainWriter{}
	mw := NewMultiWriter([]TelemetryWriter{s, p}, []PathEventWriter{s})

	if err := mw.WriteBatch([]telemetry.TelemetryRow{{VehicleID: "a"}, {VehicleID: "b"}}); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if s.batches != 1 || len(s.rows) != 2 || len(p.rows) != 2 {
		t.Fatalf("unexpected fan-out: batches=%d stub=%d plain=%d", s.batches, len(s.rows), len(p.rows))
	}
	if err := mw.WritePathEvent(path.EventRow{PathID: "p"}); err != nil {
		t.Fatalf("WritePathEvent: %v", err)
	}
	if len(s.events) != 1 {
		t.Fatalf("event writer registered twice or not at all: %d events", len(s.events))
	}
}

func TestMultiWriterDiscoversEventWriters(t *testing.T) {
	s := &stubWriter{}
	mw := NewMultiWriter([]TelemetryWriter{s}, nil)
	_ = mw.WritePathEvents([]path.EventRow{{PathID: "p1"}, {PathID: "p2"}})
	if len(s.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(s.events))
	}
}

func TestMultiWriterJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	bad := &stubWriter{err: boom}
	good := &plainWriter{}
	mw := NewMultiWriter([]TelemetryWriter{bad, good}, nil)
	err := mw.Write(telemetry.TelemetryRow{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(good.rows) != 1 {
		t.Fatalf("later writers should still receive the row")
	}
}

func TestMultiWriterForwardsControls(t *testing.T) {
	s := &stubWriter{}
	mw := NewMultiWriter([]TelemetryWriter{s, &plainWriter{}}, nil)
	mw.SetController(loopController{})
	mw.SetAdminStatus(":8080", true)
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if s.ctrl == nil || !s.admin || !s.closed {
		t.Fatalf("controls not forwarded: %+v", s)
	}
}
