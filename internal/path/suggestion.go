// Package path models the operator's guidance path and its lifecycle.
package path

import (
	"os"
	"time"

	"github.com/google/uuid"

	"guidanceops-sim/internal/telemetry"
)

// Status is the lifecycle state of a path suggestion.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Editable reports whether points may still be added to or removed from
// a path in s.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusRejected
}

// Waypoint is one operator-placed point.
type Waypoint struct {
	ID       string            `json:"id"`
	Position telemetry.Vector3 `json:"position"`
	Index    int               `json:"index"`
}

// Suggestion is a proposed guidance path.
type Suggestion struct {
	ID          string     `json:"id"`
	Points      []Waypoint `json:"points"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt time.Time  `json:"submitted_at,omitempty"`
}

// Clone returns a deep copy of s.
func (s Suggestion) Clone() Suggestion {
	s.Points = append([]Waypoint(nil), s.Points...)
	return s
}

// Positions returns the waypoint positions in draw order.
func (s Suggestion) Positions() []telemetry.Vector3 {
	out := make([]telemetry.Vector3, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Position
	}
	return out
}

func newPathID() string     { return "path-" + uuid.NewString() }
func newWaypointID() string { return "wp-" + uuid.NewString() }

// Lifecycle events exported for a path.
const (
	EventSubmitted = "submitted"
	EventAccepted  = "accepted"
	EventRejected  = "rejected"
	EventCancelled = "cancelled"
)

// EventRow is one exported path lifecycle event.
type EventRow struct {
	VehicleID      string    `json:"vehicle_id"` // TAG
	PathID         string    `json:"path_id"`    // TAG
	Event          string    `json:"event"`
	Points         int       `json:"points"`
	Message        string    `json:"message,omitempty"`
	EstimatedTimeS float64   `json:"estimated_time_s"`
	Timestamp      time.Time `json:"ts"` // TIME INDEX
}

// EventTableName is the GreptimeDB table for path events. It defaults to
// "path_events" and can be overridden via PATH_EVENT_TABLE.
var EventTableName = func() string {
	if env := os.Getenv("PATH_EVENT_TABLE"); env != "" {
		return env
	}
	return "path_events"
}()

func (EventRow) TableName() string {
	return EventTableName
}
