package telemetry

import (
	"time"

	"guidanceops-sim/internal/sched"
)

// DefaultInterval is the ambient emission interval when none is given.
const DefaultInterval = time.Second

// Listener receives telemetry updates.
type Listener func(Update)

type listener struct {
	id uint64
	fn Listener
}

// MovementOutcome reports how a movement simulation ended.
type MovementOutcome string

const (
	MovementCompleted MovementOutcome = "completed"
	MovementCancelled MovementOutcome = "cancelled"
)

// Service simulates telemetry for the hero vehicle. Idle ambient updates
// and path-following movement are independent tasks on the same loop.
// All methods must be called from the loop goroutine.
type Service struct {
	loop      *sched.Loop
	gen       *Generator
	listeners []listener
	nextID    uint64

	ambient  *sched.Task
	interval time.Duration

	movement     *sched.Task
	movementDone *sched.Future[MovementOutcome]
}

// NewService creates a simulator scheduling on loop.
func NewService(loop *sched.Loop, gen *Generator) *Service {
	if gen == nil {
		gen = NewGenerator(DefaultBatteryConfig(), nil)
	}
	return &Service{loop: loop, gen: gen}
}

// Generator returns the ambient battery generator.
func (s *Service) Generator() *Generator {
	return s.gen
}

// Start begins ambient updates every interval. It is a no-op while already
// running; the first interval stays in effect.
func (s *Service) Start(interval time.Duration) {
	if s.ambient != nil {
		return
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	s.interval = interval
	s.ambient = s.loop.Every(interval, s.ambientTick)
}

// Stop cancels ambient updates. It is idempotent.
func (s *Service) Stop() {
	s.ambient.Cancel()
	s.ambient = nil
}

// Running reports whether ambient updates are active.
func (s *Service) Running() bool {
	return s.ambient != nil
}

// Interval returns the interval of the running ambient task.
func (s *Service) Interval() time.Duration {
	return s.interval
}

func (s *Service) ambientTick() {
	s.notify(Update{
		Timestamp:    s.loop.Now(),
		BatteryLevel: Ptr(s.gen.NextBattery()),
	})
}

// Subscribe registers fn and returns a function removing exactly that
// registration. Listeners run synchronously in subscription order.
func (s *Service) Subscribe(fn Listener) (unsubscribe func()) {
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() { s.unsubscribe(id) }
}

func (s *Service) unsubscribe(id uint64) {
	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// Listeners returns the number of registered listeners.
func (s *Service) Listeners() int {
	return len(s.listeners)
}

func (s *Service) notify(u Update) {
	ls := make([]listener, len(s.listeners))
	copy(ls, s.listeners)
	for _, l := range ls {
		l.fn(u)
	}
}

// SimulateMovement moves the vehicle along points over duration in
// MovementSteps ticks, cancelling any movement already in progress. Paths
// with fewer than two points are ignored and nil is returned. The returned
// future resolves when the movement completes or is cancelled.
func (s *Service) SimulateMovement(points []Vector3, duration time.Duration) *sched.Future[MovementOutcome] {
	if len(points) < 2 {
		return nil
	}
	s.StopMovement()

	path := make([]Vector3, len(points))
	copy(path, points)
	step := duration / MovementSteps
	if step <= 0 {
		step = time.Millisecond
	}

	done := sched.NewFuture[MovementOutcome]()
	current := 0
	var task *sched.Task
	task = s.loop.Every(step, func() {
		if s.movement != task {
			task.Cancel()
			return
		}
		if current >= MovementSteps {
			task.Cancel()
			s.movement = nil
			s.movementDone = nil
			s.notify(Update{
				Timestamp:     s.loop.Now(),
				Velocity:      Ptr(0.0),
				AutonomyState: Ptr(AutonomyAutonomous),
			})
			done.Resolve(MovementCompleted)
			return
		}
		pos, heading := Interpolate(path, float64(current)/MovementSteps)
		current++
		s.notify(Update{
			Timestamp:     s.loop.Now(),
			Position:      Ptr(pos),
			Heading:       Ptr(heading),
			Velocity:      Ptr(CruiseVelocity),
			AutonomyState: Ptr(AutonomyAutonomous),
			StuckReason:   Ptr(StuckNone),
		})
	})
	// Installed before the start update so a listener that restarts or
	// stops the movement replaces this one.
	s.movement = task
	s.movementDone = done

	s.notify(Update{
		Timestamp:     s.loop.Now(),
		AutonomyState: Ptr(AutonomyAutonomous),
		StuckReason:   Ptr(StuckNone),
	})
	return done
}

// StopMovement cancels an in-progress movement without a final update.
func (s *Service) StopMovement() {
	if s.movement == nil {
		return
	}
	s.movement.Cancel()
	s.movement = nil
	if s.movementDone != nil {
		done := s.movementDone
		s.movementDone = nil
		done.Resolve(MovementCancelled)
	}
}

// Moving reports whether a movement simulation is in progress.
func (s *Service) Moving() bool {
	return s.movement != nil
}
