package sim

import (
	"encoding/json"
	"os"
	"strings"

	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

// FileWriter writes telemetry rows and path events to JSONL files.
type FileWriter struct {
	teleFile  *os.File
	eventFile *os.File
	teleEnc   *json.Encoder
	eventEnc  *json.Encoder
}

// EventsPath derives the path event log name from a telemetry log name:
// "run.jsonl" becomes "run.events.jsonl".
func EventsPath(telemetryPath string) string {
	for _, ext := range []string{".jsonl", ".json"} {
		if strings.HasSuffix(telemetryPath, ext) {
			return strings.TrimSuffix(telemetryPath, ext) + ".events" + ext
		}
	}
	return telemetryPath + ".events"
}

// NewFileWriter creates a FileWriter. eventsPath may be empty to skip the
// path event log.
func NewFileWriter(telemetryPath, eventsPath string) (*FileWriter, error) {
	tf, err := os.Create(telemetryPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{teleFile: tf, teleEnc: json.NewEncoder(tf)}
	if eventsPath != "" {
		ef, err := os.Create(eventsPath)
		if err != nil {
			tf.Close()
			return nil, err
		}
		fw.eventFile = ef
		fw.eventEnc = json.NewEncoder(ef)
	}
	return fw, nil
}

// Write logs a single telemetry row.
func (f *FileWriter) Write(row telemetry.TelemetryRow) error {
	return f.teleEnc.Encode(row)
}

// WriteBatch logs multiple telemetry rows.
func (f *FileWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WritePathEvent logs a single path event, if enabled.
func (f *FileWriter) WritePathEvent(e path.EventRow) error {
	if f.eventEnc == nil {
		return nil
	}
	return f.eventEnc.Encode(e)
}

// WritePathEvents logs multiple path events.
func (f *FileWriter) WritePathEvents(rows []path.EventRow) error {
	for _, e := range rows {
		if err := f.WritePathEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.teleFile != nil {
		if e := f.teleFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.eventFile != nil {
		if e := f.eventFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
