// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"guidanceops-sim/internal/planner"
	"guidanceops-sim/internal/scenario"
	"guidanceops-sim/internal/telemetry"
)

// TelemetryConfig tunes the ambient telemetry simulator.
type TelemetryConfig struct {
	Interval       time.Duration `yaml:"interval"`
	InitialBattery float64       `yaml:"initial_battery"`
	BatteryDrift   float64       `yaml:"battery_drift"`
	BatteryJitter  float64       `yaml:"battery_jitter"`
	ClampBattery   bool          `yaml:"clamp_battery"`
}

// Battery converts the battery settings for the generator.
func (t TelemetryConfig) Battery() telemetry.BatteryConfig {
	return telemetry.BatteryConfig{
		Initial: t.InitialBattery,
		Drift:   t.BatteryDrift,
		Jitter:  t.BatteryJitter,
		Clamp:   t.ClampBattery,
	}
}

// PlannerConfig sets the mocked planner latencies.
type PlannerConfig struct {
	Latency       time.Duration `yaml:"latency"`
	CancelLatency time.Duration `yaml:"cancel_latency"`
}

// Options converts the settings for the planner.
func (p PlannerConfig) Options() planner.Options {
	return planner.Options{Latency: p.Latency, CancelLatency: p.CancelLatency}
}

// ConsoleConfig is the root configuration of the console simulation.
type ConsoleConfig struct {
	VehicleID    string          `yaml:"vehicle_id"`
	Scenario     string          `yaml:"scenario"`
	ScenarioFile string          `yaml:"scenario_file"`
	Telemetry    TelemetryConfig `yaml:"telemetry"`
	Planner      PlannerConfig   `yaml:"planner"`
}

// Default returns the configuration used when no file is given.
func Default() *ConsoleConfig {
	b := telemetry.DefaultBatteryConfig()
	return &ConsoleConfig{
		VehicleID: "hero-bus",
		Scenario:  scenario.DefaultName,
		Telemetry: TelemetryConfig{
			Interval:       2 * time.Second,
			InitialBattery: b.Initial,
			BatteryDrift:   b.Drift,
			BatteryJitter:  b.Jitter,
			ClampBattery:   b.Clamp,
		},
		Planner: PlannerConfig{
			Latency:       planner.DefaultLatency,
			CancelLatency: planner.DefaultCancelLatency,
		},
	}
}

// Load reads a YAML config, validates it against the embedded CUE schema
// and decodes it over Default. An empty path returns Default.
func Load(path string) (*ConsoleConfig, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates and decodes YAML config bytes.
func Parse(data []byte) (*ConsoleConfig, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from VEHICLE_ID and TICK_INTERVAL. A nil
// getenv uses os.Getenv.
func (c *ConsoleConfig) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("VEHICLE_ID"); v != "" {
		c.VehicleID = v
	}
	if v := getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL value: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid TICK_INTERVAL value: %s", v)
		}
		c.Telemetry.Interval = d
	}
	return nil
}
