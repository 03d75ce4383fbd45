package sim

import (
	"guidanceops-sim/internal/operator"
	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

// TelemetryWriter is an interface to support different output writers.
type TelemetryWriter interface {
	Write(telemetry.TelemetryRow) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.TelemetryRow) error
}

// PathEventWriter handles path lifecycle events.
type PathEventWriter interface {
	WritePathEvent(path.EventRow) error
}

// Optional: path event writers may support batch mode.
type batchPathEventWriter interface {
	WritePathEvents([]path.EventRow) error
}

// Controller lets interactive writers drive the console. Implementations
// are safe to call from any goroutine.
type Controller interface {
	AddPoint(x, z float64)
	RemoveLastPoint()
	ClearPath()
	SubmitPath()
	CancelPath()
	StopMovement()
	LoadScenario(name string)
	ToggleLayer(name string)
	SetCameraMode(mode string)
}

// ControllerWriter is implemented by writers that accept operator input.
type ControllerWriter interface {
	SetController(Controller)
}

// SceneWriter receives a console snapshot whenever the path, obstacles or
// view settings change.
type SceneWriter interface {
	WriteScene(operator.Snapshot) error
}
