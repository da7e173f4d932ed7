package floorplan

import (
	"fmt"

	"github.com/banshee-data/twin.report/internal/geom"
)

// MinLabelLength is the shortest wall that gets a length label.
const MinLabelLength = 0.5

// Wall is an occluding line segment on a floor plan.
type Wall struct {
	ID       int64   `json:"id"`
	CanvasID int64   `json:"canvas_id"`
	X1       float64 `json:"x1"`
	Y1       float64 `json:"y1"`
	X2       float64 `json:"x2"`
	Y2       float64 `json:"y2"`
}

// Segment returns the wall as a geometry segment.
func (w Wall) Segment() geom.Segment {
	return geom.Seg(w.X1, w.Y1, w.X2, w.Y2)
}

// WithSegment returns a copy of w with new endpoints.
func (w Wall) WithSegment(s geom.Segment) Wall {
	w.X1, w.Y1, w.X2, w.Y2 = s.A.X, s.A.Y, s.B.X, s.B.Y
	return w
}

// Validate rejects non-finite and zero-length walls.
func (w Wall) Validate() error {
	if w.Segment().IsDegenerate() {
		return fmt.Errorf("%w: wall (%v,%v)-(%v,%v)", ErrInvalidGeometry, w.X1, w.Y1, w.X2, w.Y2)
	}
	return nil
}

// LengthLabel returns the "%.1fm" label for walls longer than
// MinLabelLength.
func (w Wall) LengthLabel() (string, bool) {
	s := w.Segment()
	if s.IsDegenerate() {
		return "", false
	}
	l := s.Length()
	if l <= MinLabelLength {
		return "", false
	}
	return fmt.Sprintf("%.1fm", l), true
}

// Segments returns the segments of all walls.
func Segments(walls []Wall) []geom.Segment {
	out := make([]geom.Segment, len(walls))
	for i, w := range walls {
		out[i] = w.Segment()
	}
	return out
}
