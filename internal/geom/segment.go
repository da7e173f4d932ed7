package geom

import "math"

// DegenerateLength is the length below which a segment is considered to have
// no extent. Such segments neither occlude nor carry a length label.
const DegenerateLength = 1e-9

// Segment is a straight line between two endpoints.
type Segment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Seg builds a segment from raw coordinates.
func Seg(x1, y1, x2, y2 float64) Segment {
	return Segment{A: Point{X: x1, Y: y1}, B: Point{X: x2, Y: y2}}
}

// Length returns the segment length.
func (s Segment) Length() float64 {
	return s.A.Distance(s.B)
}

// Midpoint returns the point halfway between the endpoints.
func (s Segment) Midpoint() Point {
	return Point{X: (s.A.X + s.B.X) / 2, Y: (s.A.Y + s.B.Y) / 2}
}

// IsFinite reports whether both endpoints are finite.
func (s Segment) IsFinite() bool {
	return s.A.IsFinite() && s.B.IsFinite()
}

// IsDegenerate reports whether the segment has (effectively) zero length or
// non-finite endpoints.
func (s Segment) IsDegenerate() bool {
	return !s.IsFinite() || s.Length() < DegenerateLength
}

// Intersects reports whether s and o cross (see SegmentsIntersect).
func (s Segment) Intersects(o Segment) bool {
	return SegmentsIntersect(s.A, s.B, o.A, o.B)
}

// DistanceTo returns the distance from p to the segment.
func (s Segment) DistanceTo(p Point) float64 {
	return PointToSegmentDistance(p, s.A, s.B)
}

// Translate shifts both endpoints by d.
func (s Segment) Translate(d Point) Segment {
	return Segment{A: s.A.Add(d), B: s.B.Add(d)}
}

// Angle returns the direction from A to B in degrees, in [0,360).
func (s Segment) Angle() float64 {
	return AngleOf(s.B.X-s.A.X, s.B.Y-s.A.Y)
}

// RotatedAbout returns a segment of the same length centred on mid whose
// direction from A to B is deg degrees. Both endpoints move symmetrically.
func (s Segment) RotatedAbout(mid Point, deg float64) Segment {
	half := s.Length() / 2
	rad := deg * math.Pi / 180
	off := Point{X: math.Cos(rad) * half, Y: math.Sin(rad) * half}
	return Segment{A: mid.Sub(off), B: mid.Add(off)}
}

// Bounds returns the axis-aligned bounding box of the segment.
func (s Segment) Bounds() Rect {
	return RectFromPoints(s.A, s.B)
}
