// Package geom holds the planar primitives shared by the heatmap engine and
// the floor-plan editor. All coordinates are meters in floor-plan space with
// the origin at the top-left corner and y growing downwards.
package geom

import "math"

// ParallelEpsilon is the determinant magnitude below which two segments are
// treated as parallel (or collinear) and therefore non-intersecting.
const ParallelEpsilon = 1e-10

// Point is a position in world or screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func cross(ax, ay, bx, by float64) float64 {
	return ax*by - ay*bx
}

// SegmentsIntersect reports whether the open segments p1-p2 and p3-p4 cross.
// Touching at an endpoint does not count, and parallel or collinear segments
// never intersect, even when they overlap.
func SegmentsIntersect(p1, p2, p3, p4 Point) bool {
	dx1, dy1 := p2.X-p1.X, p2.Y-p1.Y
	dx2, dy2 := p4.X-p3.X, p4.Y-p3.Y
	d := cross(dx1, dy1, dx2, dy2)
	if math.Abs(d) < ParallelEpsilon {
		return false
	}
	ex, ey := p3.X-p1.X, p3.Y-p1.Y
	t := cross(ex, ey, dx2, dy2) / d
	u := cross(ex, ey, dx1, dy1) / d
	return t > 0 && t < 1 && u > 0 && u < 1
}

// PointToSegmentDistance returns the distance from p to the closest point of
// the segment a-b. A zero-length segment degrades to point distance.
func PointToSegmentDistance(p, a, b Point) float64 {
	return p.Distance(ClosestPointOnSegment(p, a, b))
}

// ClosestPointOnSegment projects p onto a-b, clamped to the segment.
func ClosestPointOnSegment(p, a, b Point) Point {
	dx, dy := b.X-a.X, b.Y-a.Y
	len2 := dx*dx + dy*dy
	if len2 == 0 {
		return a
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / len2
	t = Clamp(t, 0, 1)
	return Point{X: a.X + t*dx, Y: a.Y + t*dy}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
