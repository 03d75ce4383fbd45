package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

// JSONStdoutWriter prints telemetry rows and path events as JSON lines.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// Write outputs a telemetry row in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.TelemetryRow) error {
	return w.line(row)
}

// WriteBatch outputs multiple telemetry rows in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WritePathEvent outputs a path event in JSON format, tagged with its kind
// so consumers can tell it apart from telemetry.
func (w *JSONStdoutWriter) WritePathEvent(e path.EventRow) error {
	return w.line(struct {
		Kind string `json:"kind"`
		path.EventRow
	}{Kind: "path_event", EventRow: e})
}

// WritePathEvents outputs multiple path events in JSON format.
func (w *JSONStdoutWriter) WritePathEvents(rows []path.EventRow) error {
	for _, e := range rows {
		if err := w.WritePathEvent(e); err != nil {
			return err
		}
	}
	return nil
}

func (w *JSONStdoutWriter) line(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
