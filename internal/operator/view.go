package operator

// CameraMode selects how the renderer frames the scene.
type CameraMode string

const (
	CameraFree     CameraMode = "free"
	CameraFollow   CameraMode = "follow"
	CameraOverhead CameraMode = "overhead"
	CameraStreet   CameraMode = "street"
)

// Valid reports whether m is a known camera mode.
func (m CameraMode) Valid() bool {
	switch m {
	case CameraFree, CameraFollow, CameraOverhead, CameraStreet:
		return true
	}
	return false
}

// Layer names accepted by ToggleSceneLayer.
const (
	LayerPedestrians = "pedestrians"
	LayerTraffic     = "traffic"
	LayerFoliage     = "foliage"
	LayerObstacles   = "obstacles"
	LayerDebug       = "debug"
)

// LayerNames lists the scene layers in display order.
var LayerNames = []string{LayerPedestrians, LayerTraffic, LayerFoliage, LayerObstacles, LayerDebug}

// Layers holds the visualization toggles. They have no effect on the
// simulation.
type Layers struct {
	Pedestrians bool `json:"pedestrians"`
	Traffic     bool `json:"traffic"`
	Foliage     bool `json:"foliage"`
	Obstacles   bool `json:"obstacles"`
	Debug       bool `json:"debug"`
}

// DefaultLayers has everything visible except debug overlays.
func DefaultLayers() Layers {
	return Layers{Pedestrians: true, Traffic: true, Foliage: true, Obstacles: true}
}

func (l *Layers) field(name string) *bool {
	switch name {
	case LayerPedestrians:
		return &l.Pedestrians
	case LayerTraffic:
		return &l.Traffic
	case LayerFoliage:
		return &l.Foliage
	case LayerObstacles:
		return &l.Obstacles
	case LayerDebug:
		return &l.Debug
	}
	return nil
}

// Get returns the value of the named layer and whether the name is known.
func (l Layers) Get(name string) (bool, bool) {
	f := l.field(name)
	if f == nil {
		return false, false
	}
	return *f, true
}
