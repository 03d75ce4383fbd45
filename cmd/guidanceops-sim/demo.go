package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"guidanceops-sim/internal/config"
	"guidanceops-sim/internal/logging"
	"guidanceops-sim/internal/operator"
	"guidanceops-sim/internal/planner"
	"guidanceops-sim/internal/sched"
	"guidanceops-sim/internal/sim"
	"guidanceops-sim/internal/telemetry"
)

var (
	demoConfigPath string
	demoLogFile    string
	demoSeed       int64
)

// demoRoute is the detour drawn around the default blocked lane.
var demoRoute = []telemetry.Vector3{
	{X: -2.5, Z: -4},
	{X: -2.5, Z: 3},
	{X: 0, Z: 8},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the scripted guidance scenario in virtual time",
	Long:  "demo loads a scenario, submits a path that is too short, fixes it, resubmits and drives the vehicle along it, printing every row.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(demoConfigPath, 0)
		if err != nil {
			return err
		}
		log := logging.NewWith(logging.Options{Level: logLevel})
		writer, _, cleanup, err := newWriters(cfg, writerOptions{PrintOnly: true, LogFile: demoLogFile}, log)
		if err != nil {
			return err
		}
		defer cleanup()

		snap, err := runDemo(cfg, writer, log, demoSeed)
		if err != nil {
			return err
		}
		v := snap.Vehicle
		log.Info("demo finished",
			"position", fmt.Sprintf("%.2f,%.2f", v.Position.X, v.Position.Z),
			"autonomy", v.AutonomyState,
			"battery", fmt.Sprintf("%.1f", v.BatteryLevel),
		)
		return nil
	},
}

// runDemo plays the scripted operator session on a manual loop and returns
// the final console snapshot.
func runDemo(cfg *config.ConsoleConfig, writer sim.TelemetryWriter, log *slog.Logger, seed int64) (operator.Snapshot, error) {
	loop := sched.NewManualLoop(time.Now())
	console, err := sim.NewConsole(cfg, loop, writer, sim.WithLogger(log), sim.WithRandSource(rand.NewSource(seed)))
	if err != nil {
		return operator.Snapshot{}, err
	}
	if err := console.Start(); err != nil {
		return operator.Snapshot{}, err
	}
	defer console.Stop()
	store := console.Store()
	latency := cfg.Planner.Options().WithDefaults().Latency

	for _, p := range demoRoute[:len(demoRoute)-1] {
		store.AddPathPoint(p)
	}
	resp, err := decide(loop, console.SubmitPath(), latency)
	if err != nil {
		return operator.Snapshot{}, err
	}
	log.Info("first attempt", "status", resp.Status, "message", resp.Message)

	store.AddPathPoint(demoRoute[len(demoRoute)-1])
	resp, err = decide(loop, console.SubmitPath(), latency)
	if err != nil {
		return operator.Snapshot{}, err
	}
	log.Info("second attempt", "status", resp.Status, "estimated_time", resp.EstimatedTime)
	if resp.Status != planner.Accepted {
		return store.Snapshot(), fmt.Errorf("demo path was not accepted: %s", resp.Message)
	}

	// One extra step lets the final autonomous update land.
	loop.Advance(resp.Duration() + resp.Duration()/telemetry.MovementSteps)
	if console.Simulator().Moving() {
		return store.Snapshot(), fmt.Errorf("vehicle still moving after %s", resp.Duration())
	}
	return store.Snapshot(), nil
}

func decide(loop *sched.Loop, f *sched.Future[planner.Response], latency time.Duration) (planner.Response, error) {
	if f == nil {
		return planner.Response{}, fmt.Errorf("no path to submit")
	}
	loop.Advance(latency)
	resp, ok := f.Result()
	if !ok {
		return planner.Response{}, fmt.Errorf("planner did not answer within %s", latency)
	}
	return resp, nil
}

func init() {
	demoCmd.Flags().StringVar(&demoConfigPath, "config", "", "Path to console configuration YAML (defaults built in)")
	demoCmd.Flags().StringVar(&demoLogFile, "log-file", "", "Path to export telemetry logs (JSONL)")
	demoCmd.Flags().Int64Var(&demoSeed, "seed", 1, "Seed for the ambient battery jitter")
}
