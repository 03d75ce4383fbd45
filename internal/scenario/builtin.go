package scenario

import (
	"fmt"
	"math"
	"sort"

	"guidanceops-sim/internal/telemetry"
)

// DefaultName is the scenario loaded when none is configured.
const DefaultName = "blocked-lane"

// BuiltIn returns the predefined demo scenarios.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"blocked-lane": {
			Name:        "blocked-lane",
			Description: "Bus stopped in front of a cone line with barriers beyond; the operator has to draw a way around.",
			Vehicle: telemetry.VehicleState{
				Position:      telemetry.Vector3{X: 0, Y: telemetry.RoadLevel, Z: -5},
				Gear:          telemetry.GearPark,
				AutonomyState: telemetry.AutonomyStuck,
				StuckReason:   telemetry.StuckBlockedLane,
				BatteryLevel:  85,
			},
			Obstacles: []Obstacle{
				{ID: "obstacle-1", Type: ObstacleCone, Position: telemetry.Vector3{X: -1, Z: 2}, Scale: 1},
				{ID: "obstacle-2", Type: ObstacleCone, Position: telemetry.Vector3{X: 0, Z: 2}, Scale: 1},
				{ID: "obstacle-3", Type: ObstacleCone, Position: telemetry.Vector3{X: 1, Z: 2}, Scale: 1},
				{ID: "obstacle-4", Type: ObstacleBarrier, Position: telemetry.Vector3{X: -1.5, Z: 5}, Rotation: math.Pi / 2, Scale: 1},
				{ID: "obstacle-5", Type: ObstacleBarrier, Position: telemetry.Vector3{X: 1.5, Z: 5}, Rotation: math.Pi / 2, Scale: 1},
			},
		},
		"construction-zone": {
			Name:        "construction-zone",
			Description: "Road works close the right lane; debris and a parked truck block the shoulder.",
			Vehicle: telemetry.VehicleState{
				Position:      telemetry.Vector3{X: 1.5, Y: telemetry.RoadLevel, Z: -8},
				Gear:          telemetry.GearPark,
				AutonomyState: telemetry.AutonomyStuck,
				StuckReason:   telemetry.StuckConstruction,
				BatteryLevel:  62,
			},
			Obstacles: []Obstacle{
				{ID: "obstacle-1", Type: ObstacleBarrier, Position: telemetry.Vector3{X: 1.5, Z: -3}, Scale: 1},
				{ID: "obstacle-2", Type: ObstacleBarrier, Position: telemetry.Vector3{X: 1.5, Z: 1}, Scale: 1},
				{ID: "obstacle-3", Type: ObstacleDebris, Position: telemetry.Vector3{X: 3, Z: 0}, Rotation: 0.4, Scale: 0.5},
				{ID: "obstacle-4", Type: ObstacleVehicle, Position: telemetry.Vector3{X: 3.5, Z: 6}, Scale: 1},
			},
		},
		"accident": {
			Name:        "accident",
			Description: "Two cars collided across both lanes; the bus waits for guidance.",
			Vehicle: telemetry.VehicleState{
				Position:      telemetry.Vector3{X: 0, Y: telemetry.RoadLevel, Z: -10},
				Gear:          telemetry.GearPark,
				AutonomyState: telemetry.AutonomyStuck,
				StuckReason:   telemetry.StuckAccident,
				BatteryLevel:  40,
			},
			Obstacles: []Obstacle{
				{ID: "obstacle-1", Type: ObstacleVehicle, Position: telemetry.Vector3{X: -1, Z: 0}, Rotation: math.Pi / 4, Scale: 1},
				{ID: "obstacle-2", Type: ObstacleVehicle, Position: telemetry.Vector3{X: 1.2, Z: 1}, Rotation: -math.Pi / 3, Scale: 1},
				{ID: "obstacle-3", Type: ObstacleDebris, Position: telemetry.Vector3{X: 0, Z: 2.5}, Scale: 0.7},
				{ID: "obstacle-4", Type: ObstacleCone, Position: telemetry.Vector3{X: -2, Z: -3}, Scale: 1},
			},
		},
	}
}

// Names lists the built-in scenario names in sorted order.
func Names() []string {
	all := BuiltIn()
	names := make([]string, 0, len(all))
	for n := range all {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the scenario at file if set, else the built-in called
// name. An empty name selects DefaultName.
func Resolve(name, file string) (Scenario, error) {
	if file != "" {
		s, err := Load(file)
		if err != nil {
			return Scenario{}, err
		}
		return *s, nil
	}
	if name == "" {
		name = DefaultName
	}
	s, ok := BuiltIn()[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q (available: %v)", name, Names())
	}
	return s, nil
}
