package geom

import "math"

// Snapping defaults used by rotation gestures.
const (
	SnapStepDegrees      = 15.0
	SnapToleranceDegrees = 3.0
)

// AngleOf returns atan2(dy, dx) in degrees normalised to [0,360).
func AngleOf(dx, dy float64) float64 {
	return NormalizeDegrees(math.Atan2(dy, dx) * 180 / math.Pi)
}

// NormalizeDegrees maps any finite angle into [0,360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -1e-15 + 360 rounds to 360.
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// SnapAngle snaps deg to the nearest multiple of step when it lies strictly
// within tolerance of it; otherwise deg is returned unchanged. The result is
// normalised to [0,360).
func SnapAngle(deg, step, tolerance float64) float64 {
	if step > 0 {
		snapped := math.Round(deg/step) * step
		if math.Abs(deg-snapped) < tolerance {
			deg = snapped
		}
	}
	return NormalizeDegrees(deg)
}

// Rotate rotates p about origin by deg degrees (clockwise on screen, since y
// grows downwards).
func Rotate(p, origin Point, deg float64) Point {
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	d := p.Sub(origin)
	return Point{
		X: origin.X + d.X*cos - d.Y*sin,
		Y: origin.Y + d.X*sin + d.Y*cos,
	}
}
