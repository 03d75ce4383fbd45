// Writer implementation printing telemetry to STDOUT
package sim

import (
	"io"
	"os"

	"golang.org/x/term"

	"guidanceops-sim/internal/config"
	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

// StdoutWriter prints telemetry rows and path events to STDOUT, colorized
// for terminals and as JSON lines otherwise.
type StdoutWriter struct {
	cfg      *config.ConsoleConfig
	out      io.Writer
	colorize bool

	color *ColorStdoutWriter
	json  *JSONStdoutWriter
}

// NewStdoutWriter creates a StdoutWriter that colorizes when STDOUT is a
// terminal.
func NewStdoutWriter(cfg *config.ConsoleConfig) *StdoutWriter {
	return &StdoutWriter{cfg: cfg, out: os.Stdout, colorize: term.IsTerminal(int(os.Stdout.Fd()))}
}

func (w *StdoutWriter) init() {
	if w.color == nil {
		w.color = &ColorStdoutWriter{cfg: w.cfg, out: w.out}
		w.json = &JSONStdoutWriter{out: w.out}
	}
}

// Write outputs a single telemetry row.
func (w *StdoutWriter) Write(row telemetry.TelemetryRow) error {
	w.init()
	if w.colorize {
		return w.color.Write(row)
	}
	return w.json.Write(row)
}

// WriteBatch outputs multiple telemetry rows.
func (w *StdoutWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	w.init()
	if w.colorize {
		return w.color.WriteBatch(rows)
	}
	return w.json.WriteBatch(rows)
}

// WritePathEvent outputs a path lifecycle event.
func (w *StdoutWriter) WritePathEvent(e path.EventRow) error {
	w.init()
	if w.colorize {
		return w.color.WritePathEvent(e)
	}
	return w.json.WritePathEvent(e)
}

// WritePathEvents outputs multiple path events.
func (w *StdoutWriter) WritePathEvents(rows []path.EventRow) error {
	w.init()
	if w.colorize {
		return w.color.WritePathEvents(rows)
	}
	return w.json.WritePathEvents(rows)
}
