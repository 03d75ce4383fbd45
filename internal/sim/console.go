// Console orchestrating the operator store, planner and telemetry simulator
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"

	"guidanceops-sim/internal/config"
	"guidanceops-sim/internal/logging"
	"guidanceops-sim/internal/operator"
	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/planner"
	"guidanceops-sim/internal/scenario"
	"guidanceops-sim/internal/sched"
	"guidanceops-sim/internal/telemetry"
)

// Option customizes a Console.
type Option func(*Console)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Console) { c.log = l }
}

// WithRandSource seeds the ambient battery jitter.
func WithRandSource(src rand.Source) Option {
	return func(c *Console) { c.src = src }
}

// Console wires the operator store to the planner and simulator and writes
// every vehicle change and path event to the configured writer. It lives
// on its loop: all methods must be called from the loop goroutine, or
// through Controller.
type Console struct {
	cfg     *config.ConsoleConfig
	loop    *sched.Loop
	writer  TelemetryWriter
	events  PathEventWriter
	scenes  SceneWriter
	log     *slog.Logger
	src     rand.Source
	metrics *consoleMetrics

	store   *operator.Store
	sim     *telemetry.Service
	planner *planner.Service

	unsub   []func()
	started bool
}

// NewConsole builds the store, simulator and planner for cfg on loop.
// writer may be nil; it also receives path events when it implements
// PathEventWriter.
func NewConsole(cfg *config.ConsoleConfig, loop *sched.Loop, writer TelemetryWriter, opts ...Option) (*Console, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Console{cfg: cfg, loop: loop, writer: writer, log: logging.Discard()}
	for _, o := range opts {
		o(c)
	}
	if ew, ok := writer.(PathEventWriter); ok {
		c.events = ew
	}
	if sw, ok := writer.(SceneWriter); ok {
		c.scenes = sw
	}
	m, err := newConsoleMetrics()
	if err != nil {
		return nil, err
	}
	c.metrics = m
	c.store = operator.NewStore(loop.Now)
	c.sim = telemetry.NewService(loop, telemetry.NewGenerator(cfg.Telemetry.Battery(), c.src))
	c.planner = planner.New(loop, cfg.Planner.Options())
	return c, nil
}

// Store returns the operator state store.
func (c *Console) Store() *operator.Store { return c.store }

// Simulator returns the telemetry simulator.
func (c *Console) Simulator() *telemetry.Service { return c.sim }

// Loop returns the loop the console runs on.
func (c *Console) Loop() *sched.Loop { return c.loop }

// VehicleID returns the id written into telemetry rows.
func (c *Console) VehicleID() string { return c.cfg.VehicleID }

// Start loads the configured scenario and starts ambient telemetry.
// Calling Start twice is a no-op.
func (c *Console) Start() error {
	if c.started {
		return nil
	}
	sc, err := scenario.Resolve(c.cfg.Scenario, c.cfg.ScenarioFile)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	c.unsub = append(c.unsub,
		c.store.Subscribe(c.onChange),
		c.sim.Subscribe(c.onTelemetry),
	)
	c.started = true
	c.applyScenario(sc)
	c.sim.Start(c.cfg.Telemetry.Interval)
	c.log.Info("console started",
		"vehicle_id", c.cfg.VehicleID,
		"scenario", sc.Name,
		"interval", c.sim.Interval())
	return nil
}

// Stop halts ambient telemetry and any movement and detaches the store.
func (c *Console) Stop() {
	c.sim.Stop()
	c.sim.StopMovement()
	for _, fn := range c.unsub {
		fn()
	}
	c.unsub = nil
	c.started = false
	c.log.Info("console stopped")
}

// LoadScenario stops any movement and loads the built-in scenario called
// name, or the default when name is empty.
func (c *Console) LoadScenario(name string) error {
	sc, err := scenario.Resolve(name, "")
	if err != nil {
		return err
	}
	c.applyScenario(sc)
	return nil
}

func (c *Console) applyScenario(sc scenario.Scenario) {
	c.sim.StopMovement()
	c.store.LoadScenario(sc)
	c.sim.Generator().Seed(c.store.Vehicle().BatteryLevel)
	c.log.Info("scenario loaded",
		"scenario", sc.Name,
		"obstacles", len(sc.Obstacles),
		"autonomy_state", sc.Vehicle.AutonomyState,
		"stuck_reason", sc.Vehicle.StuckReason)
}

// SubmitPath submits the active path to the planner. On acceptance the
// vehicle follows the path for the estimated time. It returns nil when
// there is nothing to submit.
func (c *Console) SubmitPath() *sched.Future[planner.Response] {
	snap, ok := c.store.SubmitPath()
	if !ok {
		return nil
	}
	c.log.Info("path submitted", "path_id", snap.ID, "points", len(snap.Points))
	c.writeEvent(path.EventSubmitted, snap, "", 0)

	f := c.planner.Submit(snap)
	f.Then(func(resp planner.Response) { c.onDecision(snap, resp) })
	return f
}

func (c *Console) onDecision(snap path.Suggestion, resp planner.Response) {
	c.metrics.decision(string(resp.Status))
	event := path.EventRejected
	if resp.Status == planner.Accepted {
		event = path.EventAccepted
	}
	c.writeEvent(event, snap, resp.Message, resp.EstimatedTime)

	active, ok := c.store.ActivePath()
	if !ok || active.ID != snap.ID || active.Status != path.StatusSubmitted {
		c.log.Info("planner decision for inactive path ignored", "path_id", snap.ID, "status", resp.Status)
		return
	}
	if resp.Status != planner.Accepted {
		c.store.SetPathStatus(path.StatusRejected)
		c.log.Info("path rejected", "path_id", snap.ID, "message", resp.Message)
		return
	}
	c.store.SetPathStatus(path.StatusAccepted)
	c.log.Info("path accepted", "path_id", snap.ID, "estimated_time_s", resp.EstimatedTime)

	done := c.sim.SimulateMovement(snap.Positions(), resp.Duration())
	if done == nil {
		c.log.Warn("accepted path too short to execute", "path_id", snap.ID)
		return
	}
	c.log.Info("movement started", "path_id", snap.ID, "duration", resp.Duration())
	done.Then(func(o telemetry.MovementOutcome) {
		c.log.Info("movement finished", "path_id", snap.ID, "outcome", o)
	})
}

// CancelPath stops movement without a final update and asks the planner
// to cancel the active path. On success the active path is cleared. It
// returns nil when there is no active path.
func (c *Console) CancelPath() *sched.Future[planner.CancelResponse] {
	active, ok := c.store.ActivePath()
	if !ok {
		return nil
	}
	c.sim.StopMovement()
	f := c.planner.Cancel(active.ID)
	f.Then(func(resp planner.CancelResponse) {
		if !resp.Success {
			c.log.Warn("path cancel failed", "path_id", active.ID, "message", resp.Message)
			return
		}
		if cur, ok := c.store.ActivePath(); ok && cur.ID == active.ID {
			c.store.ClearPath()
		}
		c.writeEvent(path.EventCancelled, active, resp.Message, 0)
		c.log.Info("path cancelled", "path_id", active.ID)
	})
	return f
}

// StopMovement halts path following without a final update.
func (c *Console) StopMovement() {
	c.sim.StopMovement()
}

func (c *Console) onTelemetry(u telemetry.Update) {
	source := telemetry.SourceMovement
	if u.Position == nil && u.Velocity == nil && u.AutonomyState == nil {
		source = telemetry.SourceAmbient
	}
	c.store.MergeTelemetry(u, source)
}

func (c *Console) onChange(ch operator.Change) {
	if ch.Kind != operator.ChangeVehicle && c.scenes != nil {
		if err := c.scenes.WriteScene(c.store.Snapshot()); err != nil {
			c.log.Warn("scene write failed", "kind", ch.Kind, "error", err)
		}
	}
	if ch.Kind != operator.ChangeVehicle && ch.Kind != operator.ChangeScenario {
		return
	}
	v := c.store.Vehicle()
	var pathID string
	if p, ok := c.store.ActivePath(); ok {
		pathID = p.ID
	}
	ts := c.loop.Now()
	if ch.Update != nil && !ch.Update.Timestamp.IsZero() {
		ts = ch.Update.Timestamp
	}
	row := telemetry.NewRow(c.cfg.VehicleID, v, pathID, ch.Source, ts)
	c.metrics.update(ch.Source, v.BatteryLevel)
	if c.writer == nil {
		return
	}
	if err := c.writer.Write(row); err != nil {
		c.log.Warn("telemetry write failed", "source", ch.Source, "error", err)
	}
}

func (c *Console) writeEvent(event string, s path.Suggestion, msg string, est float64) {
	c.metrics.event(event)
	if c.events == nil {
		return
	}
	row := path.EventRow{
		VehicleID:      c.cfg.VehicleID,
		PathID:         s.ID,
		Event:          event,
		Points:         len(s.Points),
		Message:        msg,
		EstimatedTimeS: est,
		Timestamp:      c.loop.Now(),
	}
	if err := c.events.WritePathEvent(row); err != nil {
		c.log.Warn("path event write failed", "event", event, "path_id", s.ID, "error", err)
	}
}
