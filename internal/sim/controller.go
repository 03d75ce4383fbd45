package sim

import (
	"guidanceops-sim/internal/operator"
	"guidanceops-sim/internal/telemetry"
)

// loopController forwards operator input onto the console's loop.
type loopController struct {
	c *Console
}

// Controller returns a Controller that posts every call to the console's
// loop, so it can be used from UI goroutines.
func (c *Console) Controller() Controller {
	return loopController{c: c}
}

func (lc loopController) post(fn func()) {
	lc.c.loop.Post(fn)
}

func (lc loopController) AddPoint(x, z float64) {
	lc.post(func() {
		lc.c.store.AddPathPoint(telemetry.Vector3{X: x, Z: z})
	})
}

func (lc loopController) RemoveLastPoint() {
	lc.post(func() { lc.c.store.RemoveLastPathPoint() })
}

func (lc loopController) ClearPath() {
	lc.post(func() { lc.c.store.ClearPath() })
}

func (lc loopController) SubmitPath() {
	lc.post(func() { lc.c.SubmitPath() })
}

func (lc loopController) CancelPath() {
	lc.post(func() { lc.c.CancelPath() })
}

func (lc loopController) StopMovement() {
	lc.post(func() { lc.c.StopMovement() })
}

func (lc loopController) LoadScenario(name string) {
	lc.post(func() {
		if err := lc.c.LoadScenario(name); err != nil {
			lc.c.log.Warn("scenario load failed", "scenario", name, "error", err)
		}
	})
}

func (lc loopController) ToggleLayer(name string) {
	lc.post(func() { lc.c.store.ToggleSceneLayer(name) })
}

func (lc loopController) SetCameraMode(mode string) {
	lc.post(func() { lc.c.store.SetCameraMode(operator.CameraMode(mode)) })
}
