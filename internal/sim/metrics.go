package sim

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "guidanceops-sim/internal/sim"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type consoleMetrics struct {
	updates   metric.Int64Counter
	decisions metric.Int64Counter
	events    metric.Int64Counter
	battery   metric.Float64ObservableGauge

	// last battery level as float64 bits, read by the gauge callback
	batteryBits atomic.Uint64
}

func newConsoleMetrics() (*consoleMetrics, error) {
	// Get meter from global OTel provider (returns no-op if not configured)
	m := meter()
	cm := &consoleMetrics{}

	var err error
	cm.updates, err = m.Int64Counter(
		"telemetry.updates",
		metric.WithDescription("Vehicle state changes written, by source"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating updates counter: %w", err)
	}
	cm.decisions, err = m.Int64Counter(
		"planner.decisions",
		metric.WithDescription("Planner responses received, by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decisions counter: %w", err)
	}
	cm.events, err = m.Int64Counter(
		"path.events",
		metric.WithDescription("Path lifecycle events written, by event"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}
	cm.battery, err = m.Float64ObservableGauge(
		"vehicle.battery_level",
		metric.WithDescription("Last reported battery level"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating battery gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveFloat64(cm.battery, math.Float64frombits(cm.batteryBits.Load()))
			return nil
		},
		cm.battery,
	)
	if err != nil {
		return nil, fmt.Errorf("registering battery callback: %w", err)
	}
	return cm, nil
}

func (cm *consoleMetrics) update(source string, battery float64) {
	cm.batteryBits.Store(math.Float64bits(battery))
	cm.updates.Add(context.Background(), 1, metric.WithAttributes(attribute.String("source", source)))
}

func (cm *consoleMetrics) decision(status string) {
	cm.decisions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}

func (cm *consoleMetrics) event(event string) {
	cm.events.Add(context.Background(), 1, metric.WithAttributes(attribute.String("event", event)))
}
