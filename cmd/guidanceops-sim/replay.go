package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"guidanceops-sim/internal/config"
	"guidanceops-sim/internal/logging"
	"guidanceops-sim/internal/sim"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
	replayEvents    string
	replayLogFile   string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a telemetry log file",
	Long:  "replay feeds telemetry rows, merged with path events when --events is given, from log files back into GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		log := logging.NewWith(logging.Options{Level: logLevel})
		writer, _, cleanup, err := newWriters(config.Default(), writerOptions{PrintOnly: replayPrintOnly, LogFile: replayLogFile}, log)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		n, err := sim.ReplayFiles(ctx, replayInput, replayEvents, writer, replaySpeed)
		log.Info("replay finished", "input", replayInput, "records", n)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to telemetry log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier; 0 replays without delay")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	replayCmd.Flags().StringVar(&replayEvents, "events", "", "Path to the path event log to merge into the replay")
	replayCmd.Flags().StringVar(&replayLogFile, "log-file", "", "Also export the replayed rows to this JSONL file")
	replayCmd.MarkFlagRequired("input")
}
