package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"guidanceops-sim/internal/telemetry"
)

// ObstacleType classifies a static scene obstacle.
type ObstacleType string

const (
	ObstacleCone    ObstacleType = "cone"
	ObstacleBarrier ObstacleType = "barrier"
	ObstacleDebris  ObstacleType = "debris"
	ObstacleVehicle ObstacleType = "vehicle"
)

// Valid reports whether t is a known obstacle type.
func (t ObstacleType) Valid() bool {
	switch t {
	case ObstacleCone, ObstacleBarrier, ObstacleDebris, ObstacleVehicle:
		return true
	}
	return false
}

// Obstacle is a static object placed in the scene. Obstacles are never
// modified once placed, only added or removed.
type Obstacle struct {
	ID       string            `json:"id" yaml:"id"`
	Type     ObstacleType      `json:"type" yaml:"type"`
	Position telemetry.Vector3 `json:"position" yaml:"position"`
	Rotation float64           `json:"rotation" yaml:"rotation"` // radians about Y
	Scale    float64           `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// WithDefaults returns o with an unset scale replaced by 1.
func (o Obstacle) WithDefaults() Obstacle {
	if o.Scale == 0 {
		o.Scale = 1
	}
	return o
}

// Scenario is a fixed vehicle snapshot plus an obstacle arrangement.
type Scenario struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description,omitempty"`
	Vehicle     telemetry.VehicleState `yaml:"vehicle"`
	Obstacles   []Obstacle             `yaml:"obstacles,omitempty"`
}

// Clone returns a deep copy of s.
func (s Scenario) Clone() Scenario {
	s.Obstacles = append([]Obstacle(nil), s.Obstacles...)
	return s
}

// Validate checks enum values, the stuck reason rule, the battery range
// and obstacle id uniqueness.
func (s *Scenario) Validate() error {
	v := s.Vehicle
	if !v.Gear.Valid() {
		return fmt.Errorf("vehicle: unknown gear %q", v.Gear)
	}
	if !v.AutonomyState.Valid() {
		return fmt.Errorf("vehicle: unknown autonomy state %q", v.AutonomyState)
	}
	if !v.StuckReason.Valid() {
		return fmt.Errorf("vehicle: unknown stuck reason %q", v.StuckReason)
	}
	if v.StuckReason != telemetry.StuckNone && v.AutonomyState != telemetry.AutonomyStuck {
		return fmt.Errorf("vehicle: stuck reason %q requires autonomy state stuck", v.StuckReason)
	}
	if v.BatteryLevel < 0 || v.BatteryLevel > 100 {
		return fmt.Errorf("vehicle: battery level %.1f out of range", v.BatteryLevel)
	}
	if v.Velocity < 0 {
		return fmt.Errorf("vehicle: negative velocity %.2f", v.Velocity)
	}
	seen := make(map[string]bool, len(s.Obstacles))
	for i, o := range s.Obstacles {
		if o.ID == "" {
			return fmt.Errorf("obstacle %d: missing id", i)
		}
		if seen[o.ID] {
			return fmt.Errorf("obstacle %s: duplicate id", o.ID)
		}
		seen[o.ID] = true
		if !o.Type.Valid() {
			return fmt.Errorf("obstacle %s: unknown type %q", o.ID, o.Type)
		}
		if o.Scale < 0 {
			return fmt.Errorf("obstacle %s: negative scale", o.ID)
		}
	}
	return nil
}

// Parse decodes and validates a YAML scenario.
func Parse(b []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	for i := range s.Obstacles {
		s.Obstacles[i] = s.Obstacles[i].WithDefaults()
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %q: %w", s.Name, err)
	}
	return &s, nil
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(b)
}

// Marshal encodes s as YAML.
func Marshal(s Scenario) ([]byte, error) {
	return yaml.Marshal(s)
}
