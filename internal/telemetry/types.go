// Vehicle state model and telemetry rows
package telemetry

import (
	"math"
	"os"
	"time"
)

// Vector3 is a point or direction in scene coordinates, meters. Y is up.
type Vector3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns the sum of two vectors.
func (v Vector3) Add(o Vector3) Vector3 { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns the difference between two vectors.
func (v Vector3) Sub(o Vector3) Vector3 { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Mul scales a vector by a scalar.
func (v Vector3) Mul(k float64) Vector3 { return Vector3{v.X * k, v.Y * k, v.Z * k} }

// Gear is the transmission selector.
type Gear string

const (
	GearPark    Gear = "P"
	GearDrive   Gear = "D"
	GearReverse Gear = "R"
	GearNeutral Gear = "N"
)

// Valid reports whether g is a known gear.
func (g Gear) Valid() bool {
	switch g {
	case GearPark, GearDrive, GearReverse, GearNeutral:
		return true
	}
	return false
}

// AutonomyState describes who is driving the vehicle.
type AutonomyState string

const (
	AutonomyAutonomous       AutonomyState = "autonomous"
	AutonomyManual           AutonomyState = "manual"
	AutonomyStuck            AutonomyState = "stuck"
	AutonomyAwaitingGuidance AutonomyState = "awaiting_guidance"
)

// Valid reports whether s is a known autonomy state.
func (s AutonomyState) Valid() bool {
	switch s {
	case AutonomyAutonomous, AutonomyManual, AutonomyStuck, AutonomyAwaitingGuidance:
		return true
	}
	return false
}

// StuckReason explains a stuck vehicle. StuckNone means no reason.
type StuckReason string

const (
	StuckNone            StuckReason = ""
	StuckBlockedLane     StuckReason = "blocked_lane"
	StuckConstruction    StuckReason = "construction"
	StuckAccident        StuckReason = "accident"
	StuckUnknownObstacle StuckReason = "unknown_obstacle"
)

// Valid reports whether r is StuckNone or a known reason.
func (r StuckReason) Valid() bool {
	switch r {
	case StuckNone, StuckBlockedLane, StuckConstruction, StuckAccident, StuckUnknownObstacle:
		return true
	}
	return false
}

// RoadLevel is the fixed vertical position of the vehicle body.
const RoadLevel = 0.75

// VehicleState is the full state of the hero vehicle.
type VehicleState struct {
	Position      Vector3       `json:"position" yaml:"position"`
	Heading       float64       `json:"heading" yaml:"heading"`
	Velocity      float64       `json:"velocity" yaml:"velocity"`
	Gear          Gear          `json:"gear" yaml:"gear"`
	AutonomyState AutonomyState `json:"autonomy_state" yaml:"autonomy_state"`
	StuckReason   StuckReason   `json:"stuck_reason,omitempty" yaml:"stuck_reason,omitempty"`
	BatteryLevel  float64       `json:"battery_level" yaml:"battery_level"`
}

// InitialVehicleState is the state of the vehicle at process start.
func InitialVehicleState() VehicleState {
	return VehicleState{
		Position:      Vector3{X: 0, Y: RoadLevel, Z: 0},
		Gear:          GearPark,
		AutonomyState: AutonomyAutonomous,
		StuckReason:   StuckNone,
		BatteryLevel:  85,
	}
}

// Update is a partial vehicle state. Nil fields are left untouched when
// merged; a non-nil StuckReason pointing at StuckNone clears the reason.
type Update struct {
	Timestamp     time.Time      `json:"ts"`
	Position      *Vector3       `json:"position,omitempty"`
	Heading       *float64       `json:"heading,omitempty"`
	Velocity      *float64       `json:"velocity,omitempty"`
	Gear          *Gear          `json:"gear,omitempty"`
	AutonomyState *AutonomyState `json:"autonomy_state,omitempty"`
	StuckReason   *StuckReason   `json:"stuck_reason,omitempty"`
	BatteryLevel  *float64       `json:"battery_level,omitempty"`
}

// Ptr returns a pointer to v, for building Updates.
func Ptr[T any](v T) *T { return &v }

// Apply shallow-merges u into s and returns the result.
func (s VehicleState) Apply(u Update) VehicleState {
	if u.Position != nil {
		s.Position = *u.Position
	}
	if u.Heading != nil {
		s.Heading = NormalizeHeading(*u.Heading)
	}
	if u.Velocity != nil {
		s.Velocity = math.Max(0, *u.Velocity)
	}
	if u.Gear != nil {
		s.Gear = *u.Gear
	}
	if u.AutonomyState != nil {
		s.AutonomyState = *u.AutonomyState
	}
	if u.StuckReason != nil {
		s.StuckReason = *u.StuckReason
	}
	if u.BatteryLevel != nil {
		s.BatteryLevel = *u.BatteryLevel
	}
	if s.AutonomyState != AutonomyStuck {
		s.StuckReason = StuckNone
	}
	return s
}

// NormalizeHeading maps an angle in radians into (-π, π].
func NormalizeHeading(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 2*math.Pi)
	if h <= -math.Pi {
		h += 2 * math.Pi
	} else if h > math.Pi {
		h -= 2 * math.Pi
	}
	return h
}

// Row sources.
const (
	SourceAmbient  = "ambient"
	SourceMovement = "movement"
	SourceScenario = "scenario"
	SourceOperator = "operator"
)

// TelemetryRow represents one vehicle telemetry record for export.
type TelemetryRow struct {
	VehicleID     string        `json:"vehicle_id"` // TAG
	X             float64       `json:"x"`
	Y             float64       `json:"y"`
	Z             float64       `json:"z"`
	Heading       float64       `json:"heading"`
	Velocity      float64       `json:"velocity"`
	Gear          Gear          `json:"gear"`
	AutonomyState AutonomyState `json:"autonomy_state"`
	StuckReason   StuckReason   `json:"stuck_reason"`
	BatteryLevel  float64       `json:"battery_level"`
	PathID        string        `json:"path_id"`
	Source        string        `json:"source"`
	Timestamp     time.Time     `json:"ts"` // TIME INDEX
}

// NewRow flattens a vehicle state into an export row.
func NewRow(vehicleID string, st VehicleState, pathID, source string, ts time.Time) TelemetryRow {
	return TelemetryRow{
		VehicleID:     vehicleID,
		X:             st.Position.X,
		Y:             st.Position.Y,
		Z:             st.Position.Z,
		Heading:       st.Heading,
		Velocity:      st.Velocity,
		Gear:          st.Gear,
		AutonomyState: st.AutonomyState,
		StuckReason:   st.StuckReason,
		BatteryLevel:  st.BatteryLevel,
		PathID:        pathID,
		Source:        source,
		Timestamp:     ts,
	}
}

// TelemetryTableName holds the table name used when writing to GreptimeDB.
// It defaults to "vehicle_telemetry" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var TelemetryTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "vehicle_telemetry"
}()

func (TelemetryRow) TableName() string {
	return TelemetryTableName
}
