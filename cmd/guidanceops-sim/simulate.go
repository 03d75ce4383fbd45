package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"guidanceops-sim/internal/admin"
	"guidanceops-sim/internal/config"
	"guidanceops-sim/internal/logging"
	"guidanceops-sim/internal/sched"
	"guidanceops-sim/internal/sim"
)

var (
	simPrintOnly  bool
	simConfigPath string
	simTick       time.Duration
	simLogFile    string
	simTUI        bool
	simAddr       string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time operator console",
	Long:  "simulate starts the console with ambient telemetry, the mocked planner and an optional TUI and admin HTTP surface.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(simConfigPath, simTick)
		if err != nil {
			return err
		}

		logOpts := logging.Options{Level: logLevel}
		if simTUI {
			logOpts.Writer = io.Discard
		}
		log := logging.NewWith(logOpts)

		var (
			hub   *admin.Hub
			extra []sim.TelemetryWriter
		)
		if simAddr != "" {
			hub = admin.NewHub()
			extra = append(extra, hub)
		}
		writer, _, cleanup, err := newWriters(cfg, writerOptions{
			PrintOnly: simPrintOnly,
			LogFile:   simLogFile,
			TUI:       simTUI,
			Extra:     extra,
		}, log)
		if err != nil {
			return err
		}
		defer cleanup()

		loop := sched.NewLoop(nil)
		console, err := sim.NewConsole(cfg, loop, writer, sim.WithLogger(log))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		loopCtx, stopLoop := context.WithCancel(context.Background())
		loopDone := make(chan struct{})
		go func() {
			loop.Run(loopCtx)
			close(loopDone)
		}()
		defer func() {
			stopLoop()
			<-loopDone
		}()

		var startErr error
		if err := loop.Call(ctx, func() { startErr = console.Start() }); err != nil {
			return err
		}
		if startErr != nil {
			return startErr
		}
		if cw, ok := writer.(sim.ControllerWriter); ok {
			cw.SetController(console.Controller())
		}

		if hub != nil {
			srv := admin.NewServer(console, hub, log)
			go func() {
				err := srv.Start(ctx, simAddr, func(addr string) {
					if aw, ok := writer.(sim.AdminStatusWriter); ok {
						aw.SetAdminStatus(addr, true)
					}
				})
				if err != nil {
					log.Error("admin server failed", "addr", simAddr, "error", err)
					if aw, ok := writer.(sim.AdminStatusWriter); ok {
						aw.SetAdminStatus(simAddr, false)
					}
				}
			}()
		}

		log.Info("console running", "vehicle_id", console.VehicleID(), "scenario", cfg.Scenario, "interval", cfg.Telemetry.Interval)
		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := loop.Call(stopCtx, console.Stop); err != nil {
			log.Warn("console stop timed out", "error", err)
		}
		log.Info("console stopped")
		return nil
	},
}

// loadConfig reads the YAML config, then applies the tick flag and the
// environment overrides on top.
func loadConfig(path string, tick time.Duration) (*config.ConsoleConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if tick > 0 {
		cfg.Telemetry.Interval = tick
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "", "Path to console configuration YAML (defaults built in)")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 0, "Ambient telemetry interval (e.g. 500ms, 2s); overrides the config")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export telemetry logs (JSONL); path events go to <file>.events")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Run the interactive terminal console")
	simulateCmd.Flags().StringVar(&simAddr, "addr", ":8080", "Admin HTTP listen address; empty disables it")
}
