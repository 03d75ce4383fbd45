package sim

import (
	"errors"

	"guidanceops-sim/internal/operator"
	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

// MultiWriter fan-outs telemetry rows and path events to multiple writers.
// Every writer is attempted; errors are joined.
type MultiWriter struct {
	telewriters  []TelemetryWriter
	eventwriters []PathEventWriter
}

// NewMultiWriter creates a new MultiWriter. Telemetry writers that also
// implement PathEventWriter receive path events too unless they are
// listed in ews already.
func NewMultiWriter(tws []TelemetryWriter, ews []PathEventWriter) *MultiWriter {
	mw := &MultiWriter{telewriters: tws, eventwriters: ews}
	for _, w := range tws {
		ew, ok := w.(PathEventWriter)
		if !ok || mw.hasEventWriter(ew) {
			continue
		}
		mw.eventwriters = append(mw.eventwriters, ew)
	}
	return mw
}

func (mw *MultiWriter) hasEventWriter(ew PathEventWriter) bool {
	for _, existing := range mw.eventwriters {
		if existing == ew {
			return true
		}
	}
	return false
}

// Write sends a telemetry row to all writers.
func (mw *MultiWriter) Write(row telemetry.TelemetryRow) error {
	var errs []error
	for _, w := range mw.telewriters {
		if err := w.Write(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteBatch sends multiple telemetry rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	var errs []error
	for _, w := range mw.telewriters {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

// WritePathEvent sends a path event to all event writers.
func (mw *MultiWriter) WritePathEvent(row path.EventRow) error {
	var errs []error
	for _, w := range mw.eventwriters {
		if err := w.WritePathEvent(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WritePathEvents sends multiple path events to all event writers, using batch if supported.
func (mw *MultiWriter) WritePathEvents(rows []path.EventRow) error {
	var errs []error
	for _, w := range mw.eventwriters {
		if bw, ok := w.(batchPathEventWriter); ok {
			if err := bw.WritePathEvents(rows); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, r := range rows {
			if err := w.WritePathEvent(r); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}

// WriteScene forwards a snapshot to writers implementing SceneWriter.
func (mw *MultiWriter) WriteScene(snap operator.Snapshot) error {
	var errs []error
	for _, w := range mw.telewriters {
		if sw, ok := w.(SceneWriter); ok {
			if err := sw.WriteScene(snap); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SetController forwards the controller to writers accepting operator input.
func (mw *MultiWriter) SetController(c Controller) {
	for _, w := range mw.telewriters {
		if cw, ok := w.(ControllerWriter); ok {
			cw.SetController(c)
		}
	}
}

// SetAdminStatus forwards the admin HTTP status to writers that show it.
func (mw *MultiWriter) SetAdminStatus(addr string, listening bool) {
	for _, w := range mw.telewriters {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(addr, listening)
		}
	}
}

// Close closes every writer that holds resources.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.telewriters {
		if c, ok := w.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
