package main

import (
	"log/slog"
	"os"

	"guidanceops-sim/internal/config"
	"guidanceops-sim/internal/sim"
)

// writerOptions selects the sinks the console output fans out to.
type writerOptions struct {
	PrintOnly bool
	LogFile   string
	TUI       bool
	Extra     []sim.TelemetryWriter
}

// newWriters sets up the telemetry writer chain based on flags and env vars.
// It returns the writer, the TUI writer when one was started and a cleanup
// function to close any resources.
func newWriters(cfg *config.ConsoleConfig, opts writerOptions, log *slog.Logger) (sim.TelemetryWriter, *sim.TUIWriter, func(), error) {
	var (
		tws []sim.TelemetryWriter
		tui *sim.TUIWriter
	)
	if opts.TUI {
		tui = sim.NewTUIWriter(cfg)
		tws = append(tws, tui)
		// The TUI owns STDOUT, so a database sink is the only other base.
		if !opts.PrintOnly && os.Getenv("GREPTIMEDB_ENDPOINT") != "" {
			w, err := baseWriter(cfg, false, log)
			if err != nil {
				tui.Close()
				return nil, nil, nil, err
			}
			tws = append(tws, w)
		}
	} else {
		w, err := baseWriter(cfg, opts.PrintOnly, log)
		if err != nil {
			return nil, nil, nil, err
		}
		tws = append(tws, w)
	}
	if opts.LogFile != "" {
		fw, err := sim.NewFileWriter(opts.LogFile, sim.EventsPath(opts.LogFile))
		if err != nil {
			if tui != nil {
				tui.Close()
			}
			return nil, nil, nil, err
		}
		tws = append(tws, fw)
	}
	tws = append(tws, opts.Extra...)

	if len(tws) == 1 {
		w := tws[0]
		return w, tui, func() { closeWriter(w, log) }, nil
	}
	mw := sim.NewMultiWriter(tws, nil)
	return mw, tui, func() { closeWriter(mw, log) }, nil
}

// baseWriter chooses the underlying writer based on printOnly and env vars.
func baseWriter(cfg *config.ConsoleConfig, printOnly bool, log *slog.Logger) (sim.TelemetryWriter, error) {
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if printOnly || endpoint == "" {
		return sim.NewStdoutWriter(cfg), nil
	}
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	w, err := sim.NewGreptimeDBWriter(endpoint, database, log)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func closeWriter(w sim.TelemetryWriter, log *slog.Logger) {
	c, ok := w.(interface{ Close() error })
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("close writer failed", "error", err)
	}
}
