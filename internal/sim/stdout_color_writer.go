// ColorStdoutWriter prints human-friendly, colorized telemetry to STDOUT.
package sim

import (
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"guidanceops-sim/internal/config"
	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorWhite   = "\x1b[37m"
	colorGray    = "\x1b[90m"
)

var sourceColors = map[string]string{
	telemetry.SourceAmbient:  colorGray,
	telemetry.SourceMovement: colorGreen,
	telemetry.SourceScenario: colorMagenta,
	telemetry.SourceOperator: colorBlue,
}

var eventColors = map[string]string{
	path.EventSubmitted: colorBlue,
	path.EventAccepted:  colorGreen,
	path.EventRejected:  colorRed,
	path.EventCancelled: colorYellow,
}

// ColorStdoutWriter prints telemetry rows using ANSI colors.
type ColorStdoutWriter struct {
	cfg  *config.ConsoleConfig
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.ConsoleConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, "Console Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Vehicle:\t%s\n", w.cfg.VehicleID)
	scenarioName := w.cfg.Scenario
	if w.cfg.ScenarioFile != "" {
		scenarioName = w.cfg.ScenarioFile
	}
	fmt.Fprintf(tw, "Scenario:\t%s\n", scenarioName)
	fmt.Fprintf(tw, "Telemetry Interval:\t%s\n", w.cfg.Telemetry.Interval)
	fmt.Fprintf(tw, "Battery Drift:\t%.3f\n", w.cfg.Telemetry.BatteryDrift)
	fmt.Fprintf(tw, "Planner Latency:\t%s\n", w.cfg.Planner.Latency)
	fmt.Fprintf(tw, "Cancel Latency:\t%s\n", w.cfg.Planner.CancelLatency)
	tw.Flush()
	fmt.Fprintln(w.out)
}

// autonomyColor picks the color used for the autonomy state of a row.
func autonomyColor(s telemetry.AutonomyState) string {
	switch s {
	case telemetry.AutonomyStuck:
		return colorRed
	case telemetry.AutonomyAwaitingGuidance, telemetry.AutonomyManual:
		return colorYellow
	}
	return colorGreen
}

func batteryColor(level float64) string {
	switch {
	case level < 20:
		return colorRed
	case level < 50:
		return colorYellow
	}
	return colorCyan
}

// Write outputs a single telemetry row in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.TelemetryRow) error {
	w.once.Do(w.printOverview)

	srcColor, ok := sourceColors[row.Source]
	if !ok {
		srcColor = colorWhite
	}
	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339Nano), colorReset)
	fmt.Fprintf(w.out, "%s%-8s%s ", srcColor, row.Source, colorReset)
	fmt.Fprintf(w.out, "%svehicle=%s%s ", colorWhite, row.VehicleID, colorReset)
	fmt.Fprintf(w.out, "%spos=(%.2f,%.2f,%.2f)%s ", colorGreen, row.X, row.Y, row.Z, colorReset)
	fmt.Fprintf(w.out, "%shdg=%.0f°%s ", colorCyan, row.Heading*180/math.Pi, colorReset)
	fmt.Fprintf(w.out, "%sspd=%.1f%s ", colorYellow, row.Velocity, colorReset)
	fmt.Fprintf(w.out, "%sgear=%s%s ", colorBlue, row.Gear, colorReset)
	fmt.Fprintf(w.out, "%sbatt=%.1f%s ", batteryColor(row.BatteryLevel), row.BatteryLevel, colorReset)
	fmt.Fprintf(w.out, "%s%s%s", autonomyColor(row.AutonomyState), row.AutonomyState, colorReset)
	if row.StuckReason != telemetry.StuckNone {
		fmt.Fprintf(w.out, " %sreason=%s%s", colorRed, row.StuckReason, colorReset)
	}
	if row.PathID != "" {
		fmt.Fprintf(w.out, " %spath=%s%s", colorMagenta, row.PathID, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple telemetry rows.
func (w *ColorStdoutWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WritePathEvent prints a path lifecycle event.
func (w *ColorStdoutWriter) WritePathEvent(e path.EventRow) error {
	w.once.Do(w.printOverview)
	c, ok := eventColors[e.Event]
	if !ok {
		c = colorWhite
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sPATH %s%s path=%s points=%d",
		colorGray, e.Timestamp.Format(time.RFC3339Nano), colorReset,
		c, e.Event, colorReset, e.PathID, e.Points)
	if e.EstimatedTimeS > 0 {
		fmt.Fprintf(w.out, " eta=%.0fs", e.EstimatedTimeS)
	}
	if e.Message != "" {
		fmt.Fprintf(w.out, " %q", e.Message)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WritePathEvents prints multiple path events.
func (w *ColorStdoutWriter) WritePathEvents(rows []path.EventRow) error {
	for _, e := range rows {
		_ = w.WritePathEvent(e)
	}
	return nil
}
