package path

import (
	"time"

	"guidanceops-sim/internal/telemetry"
)

// Model holds the active path suggestion and the history of submitted
// snapshots. It performs no geometric validation. Every mutator reports
// whether it changed anything.
type Model struct {
	active  *Suggestion
	history []Suggestion
	now     func() time.Time
}

// NewModel creates an empty model. A nil now uses time.Now.
func NewModel(now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	return &Model{now: now}
}

// Active returns a copy of the active path.
func (m *Model) Active() (Suggestion, bool) {
	if m.active == nil {
		return Suggestion{}, false
	}
	return m.active.Clone(), true
}

// History returns copies of every submitted snapshot, oldest first.
func (m *Model) History() []Suggestion {
	out := make([]Suggestion, len(m.history))
	for i, s := range m.history {
		out[i] = s.Clone()
	}
	return out
}

// AddPoint appends a waypoint, creating a draft path when none is active.
// Points can only be added while the path is editable.
func (m *Model) AddPoint(pos telemetry.Vector3) (Waypoint, bool) {
	if m.active == nil {
		m.active = &Suggestion{
			ID:        newPathID(),
			Status:    StatusDraft,
			CreatedAt: m.now(),
		}
	} else if !m.active.Status.Editable() {
		return Waypoint{}, false
	}
	wp := Waypoint{ID: newWaypointID(), Position: pos, Index: len(m.active.Points)}
	m.active.Points = append(m.active.Points, wp)
	return wp, true
}

// UpdatePoint moves the waypoint with id.
func (m *Model) UpdatePoint(id string, pos telemetry.Vector3) bool {
	if m.active == nil {
		return false
	}
	for i := range m.active.Points {
		if m.active.Points[i].ID == id {
			m.active.Points[i].Position = pos
			return true
		}
	}
	return false
}

// RemoveLastPoint drops the newest waypoint of an editable path. Removing
// the only point discards the path.
func (m *Model) RemoveLastPoint() bool {
	if m.active == nil || !m.active.Status.Editable() {
		return false
	}
	n := len(m.active.Points)
	if n <= 1 {
		m.active = nil
		return true
	}
	m.active.Points = m.active.Points[:n-1]
	return true
}

// Clear discards the active path. History is kept.
func (m *Model) Clear() bool {
	if m.active == nil {
		return false
	}
	m.active = nil
	return true
}

// Submit marks a draft or rejected path as submitted and records a
// snapshot in history.
func (m *Model) Submit() (Suggestion, bool) {
	if m.active == nil || !m.active.Status.Editable() {
		return Suggestion{}, false
	}
	m.active.Status = StatusSubmitted
	m.active.SubmittedAt = m.now()
	snap := m.active.Clone()
	m.history = append(m.history, snap)
	return snap.Clone(), true
}

// SetStatus force-sets the status of the active path.
func (m *Model) SetStatus(status Status) bool {
	if m.active == nil {
		return false
	}
	m.active.Status = status
	return true
}
