// Package operator holds the state the operator console works on: the hero
// vehicle, the guidance path, scene obstacles and view settings.
//
// A Store is not safe for concurrent use. All calls happen on the loop
// goroutine that also runs the simulator and planner callbacks.
package operator

import (
	"time"

	"github.com/google/uuid"

	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/scenario"
	"guidanceops-sim/internal/telemetry"
)

// ChangeKind names the part of the state a mutation touched.
type ChangeKind string

const (
	ChangeVehicle   ChangeKind = "vehicle"
	ChangePath      ChangeKind = "path"
	ChangeObstacles ChangeKind = "obstacles"
	ChangeCamera    ChangeKind = "camera"
	ChangeLayers    ChangeKind = "layers"
	ChangeDrawing   ChangeKind = "drawing"
	ChangeScenario  ChangeKind = "scenario"
)

// Change describes one effective mutation. Source is set for vehicle
// changes and scenario loads.
type Change struct {
	Kind   ChangeKind
	Source string
	Update *telemetry.Update
}

type changeListener struct {
	id uint64
	fn func(Change)
}

// Snapshot is a copy of the whole store.
type Snapshot struct {
	Vehicle     telemetry.VehicleState `json:"vehicle"`
	ActivePath  *path.Suggestion       `json:"active_path"`
	PathHistory []path.Suggestion      `json:"path_history"`
	Obstacles   []scenario.Obstacle    `json:"obstacles"`
	Layers      Layers                 `json:"layers"`
	CameraMode  CameraMode             `json:"camera_mode"`
	DrawingMode bool                   `json:"drawing_mode"`
	Scenario    string                 `json:"scenario,omitempty"`
}

// Store is the operator console state.
type Store struct {
	vehicle   telemetry.VehicleState
	paths     *path.Model
	obstacles []scenario.Obstacle
	layers    Layers
	camera    CameraMode
	drawing   bool
	scenario  string

	listeners []changeListener
	nextID    uint64
}

// NewStore returns a store in the initial state. now stamps path times; nil
// uses time.Now.
func NewStore(now func() time.Time) *Store {
	return &Store{
		vehicle: telemetry.InitialVehicleState(),
		paths:   path.NewModel(now),
		layers:  DefaultLayers(),
		camera:  CameraFree,
	}
}

// Subscribe registers fn for every effective change and returns a function
// removing that registration.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, changeListener{id: id, fn: fn})
	return func() {
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) emit(c Change) {
	ls := make([]changeListener, len(s.listeners))
	copy(ls, s.listeners)
	for _, l := range ls {
		l.fn(c)
	}
}

// Vehicle returns the current vehicle state.
func (s *Store) Vehicle() telemetry.VehicleState { return s.vehicle }

// ActivePath returns a copy of the active path, if any.
func (s *Store) ActivePath() (path.Suggestion, bool) { return s.paths.Active() }

// PathHistory returns every submitted snapshot, oldest first.
func (s *Store) PathHistory() []path.Suggestion { return s.paths.History() }

// Obstacles returns a copy of the placed obstacles.
func (s *Store) Obstacles() []scenario.Obstacle {
	out := make([]scenario.Obstacle, len(s.obstacles))
	copy(out, s.obstacles)
	return out
}

// Layers returns the visualization toggles.
func (s *Store) Layers() Layers { return s.layers }

// CameraMode returns the camera mode.
func (s *Store) CameraMode() CameraMode { return s.camera }

// DrawingMode reports whether the operator is drawing a path.
func (s *Store) DrawingMode() bool { return s.drawing }

// ScenarioName returns the name of the last loaded scenario.
func (s *Store) ScenarioName() string { return s.scenario }

// Snapshot copies the whole state.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Vehicle:     s.vehicle,
		PathHistory: s.paths.History(),
		Obstacles:   s.Obstacles(),
		Layers:      s.layers,
		CameraMode:  s.camera,
		DrawingMode: s.drawing,
		Scenario:    s.scenario,
	}
	if p, ok := s.paths.Active(); ok {
		snap.ActivePath = &p
	}
	return snap
}

// AddPathPoint appends a waypoint to the active path, starting a draft if
// there is none.
func (s *Store) AddPathPoint(pos telemetry.Vector3) (path.Waypoint, bool) {
	wp, ok := s.paths.AddPoint(pos)
	if ok {
		s.emit(Change{Kind: ChangePath})
	}
	return wp, ok
}

// UpdatePathPoint moves the waypoint with id.
func (s *Store) UpdatePathPoint(id string, pos telemetry.Vector3) bool {
	return s.pathChanged(s.paths.UpdatePoint(id, pos))
}

// RemoveLastPathPoint drops the newest waypoint.
func (s *Store) RemoveLastPathPoint() bool {
	return s.pathChanged(s.paths.RemoveLastPoint())
}

// ClearPath discards the active path.
func (s *Store) ClearPath() bool {
	return s.pathChanged(s.paths.Clear())
}

// SubmitPath marks the active path submitted and returns the snapshot.
func (s *Store) SubmitPath() (path.Suggestion, bool) {
	snap, ok := s.paths.Submit()
	s.pathChanged(ok)
	return snap, ok
}

// SetPathStatus force-sets the status of the active path.
func (s *Store) SetPathStatus(status path.Status) bool {
	return s.pathChanged(s.paths.SetStatus(status))
}

func (s *Store) pathChanged(ok bool) bool {
	if ok {
		s.emit(Change{Kind: ChangePath})
	}
	return ok
}

// SetVehicleState merges an operator-supplied partial update.
func (s *Store) SetVehicleState(u telemetry.Update) {
	s.MergeTelemetry(u, telemetry.SourceOperator)
}

// MergeTelemetry merges a partial update from source. A stuck reason never
// survives a merge that leaves the vehicle out of the stuck state.
func (s *Store) MergeTelemetry(u telemetry.Update, source string) {
	s.vehicle = s.vehicle.Apply(u)
	s.emit(Change{Kind: ChangeVehicle, Source: source, Update: &u})
}

// AddObstacle places o. An empty id is generated; a duplicate id is
// rejected.
func (s *Store) AddObstacle(o scenario.Obstacle) (scenario.Obstacle, bool) {
	if o.ID == "" {
		o.ID = "obstacle-" + uuid.NewString()
	}
	for _, existing := range s.obstacles {
		if existing.ID == o.ID {
			return scenario.Obstacle{}, false
		}
	}
	o = o.WithDefaults()
	s.obstacles = append(s.obstacles, o)
	s.emit(Change{Kind: ChangeObstacles})
	return o, true
}

// RemoveObstacle removes the obstacle with id.
func (s *Store) RemoveObstacle(id string) bool {
	for i, o := range s.obstacles {
		if o.ID == id {
			s.obstacles = append(s.obstacles[:i:i], s.obstacles[i+1:]...)
			s.emit(Change{Kind: ChangeObstacles})
			return true
		}
	}
	return false
}

// SetCameraMode switches the camera. Unknown modes are ignored.
func (s *Store) SetCameraMode(mode CameraMode) bool {
	if !mode.Valid() {
		return false
	}
	if mode != s.camera {
		s.camera = mode
		s.emit(Change{Kind: ChangeCamera})
	}
	return true
}

// ToggleSceneLayer flips the named layer and returns its new value. ok is
// false for unknown names.
func (s *Store) ToggleSceneLayer(name string) (value, ok bool) {
	f := s.layers.field(name)
	if f == nil {
		return false, false
	}
	*f = !*f
	s.emit(Change{Kind: ChangeLayers})
	return *f, true
}

// SetDrawingMode turns path drawing on or off.
func (s *Store) SetDrawingMode(on bool) {
	if s.drawing == on {
		return
	}
	s.drawing = on
	s.emit(Change{Kind: ChangeDrawing})
}

// LoadDemoScenario loads the default built-in stuck scenario.
func (s *Store) LoadDemoScenario() {
	s.LoadScenario(scenario.BuiltIn()[scenario.DefaultName])
}

// LoadScenario replaces the vehicle state and obstacles with those of sc
// and clears the active path. Loading the same scenario twice leaves the
// same state.
func (s *Store) LoadScenario(sc scenario.Scenario) {
	v := sc.Vehicle
	v.Heading = telemetry.NormalizeHeading(v.Heading)
	if v.AutonomyState != telemetry.AutonomyStuck {
		v.StuckReason = telemetry.StuckNone
	}
	s.vehicle = v
	s.obstacles = make([]scenario.Obstacle, len(sc.Obstacles))
	for i, o := range sc.Obstacles {
		s.obstacles[i] = o.WithDefaults()
	}
	s.paths.Clear()
	s.scenario = sc.Name
	s.emit(Change{Kind: ChangeScenario, Source: telemetry.SourceScenario})
}
