package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"guidanceops-sim/internal/config"
	"guidanceops-sim/internal/logging"
	"guidanceops-sim/internal/sim"
)

func main() {
	input := flag.String("input", "", "Path to telemetry log file")
	speed := flag.Float64("speed", 1.0, "Playback speed multiplier")
	events := flag.String("events", "", "Path to the path event log to merge into the replay")
	printOnly := flag.Bool("print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	flag.Parse()

	if *input == "" {
		log.Fatal("input file required")
	}

	var writer sim.TelemetryWriter
	if *printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		writer = sim.NewStdoutWriter(config.Default())
	} else {
		database := os.Getenv("GREPTIMEDB_DATABASE")
		if database == "" {
			database = "public"
		}
		w, err := sim.NewGreptimeDBWriter(os.Getenv("GREPTIMEDB_ENDPOINT"), database, logging.NewWith(logging.Options{}))
		if err != nil {
			log.Fatalf("Failed to init GreptimeDB writer: %v", err)
		}
		writer = w
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if _, err := sim.ReplayFiles(ctx, *input, *events, writer, *speed); err != nil {
		log.Fatalf("Replay failed: %v", err)
	}
}
