package telemetry

import "math"

const (
	// MovementSteps is the number of interpolation ticks per movement.
	MovementSteps = 60
	// CruiseVelocity is the reported speed while following a path, m/s.
	CruiseVelocity = 2.5
)

// Interpolate maps progress in [0,1) onto the polyline through points and
// returns the position and segment heading there. The polyline is
// parametrized evenly per segment, not by arc length. Y is held at
// RoadLevel. points must hold at least two entries.
func Interpolate(points []Vector3, progress float64) (Vector3, float64) {
	n := len(points)
	scaled := progress * float64(n-1)
	seg := int(math.Floor(scaled))
	if seg < 0 {
		seg = 0
	}
	if seg > n-1 {
		seg = n - 1
	}
	next := min(seg+1, n-1)
	frac := scaled - float64(seg)

	start, end := points[seg], points[next]
	pos := Vector3{
		X: start.X + (end.X-start.X)*frac,
		Y: RoadLevel,
		Z: start.Z + (end.Z-start.Z)*frac,
	}
	dx := end.X - start.X
	dz := end.Z - start.Z
	return pos, NormalizeHeading(math.Atan2(dx, dz))
}
