package floorplan

import (
	"fmt"
	"math"

	"github.com/banshee-data/twin.report/internal/geom"
)

// Kind names an element variant. The values are the persisted type strings.
type Kind string

const (
	KindRect     Kind = "rect"
	KindCircle   Kind = "circle"
	KindTriangle Kind = "triangle"
	KindText     Kind = "text"
	KindIcon     Kind = "icon"
)

// Element defaults.
const (
	DefaultFill         = "#3b82f6"
	DefaultStroke       = "#1e3a5f"
	DefaultStrokeWidth  = 2.0
	DefaultFontSize     = 14.0
	DefaultShapeSize    = 10.0
	DefaultCircleRadius = 5.0
	DefaultIcon         = "door"
)

// Icons lists the icon names the editor offers.
var Icons = []string{"door", "window", "stairs", "elevator", "server", "hvac", "exit", "fire"}

// Style is the paint applied to an element.
type Style struct {
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"stroke_width"`
}

// DefaultStyle returns the element defaults.
func DefaultStyle() Style {
	return Style{Fill: DefaultFill, Stroke: DefaultStroke, StrokeWidth: DefaultStrokeWidth}
}

// Shape is the variant part of an Element. It is implemented only by Rect,
// Circle, Triangle, Text and Icon.
type Shape interface {
	Kind() Kind
	// Anchor is the point the element is positioned by. Drags move it.
	Anchor() geom.Point
	// Translate returns the shape moved by d.
	Translate(d geom.Point) Shape
	// Validate reports ErrInvalidGeometry for degenerate shapes.
	Validate() error
	isShape()
}

// Rect is an axis-aligned (before rotation) rectangle centred on Center.
type Rect struct {
	Center geom.Point
	W, H   float64
}

// Circle is centred on Center.
type Circle struct {
	Center geom.Point
	R      float64
}

// Triangle is three free vertices. Its anchor is the first vertex.
type Triangle struct {
	V [3]geom.Point
}

// Text is a label whose baseline starts at At.
type Text struct {
	At       geom.Point
	Content  string
	FontSize float64
}

// Icon is a named pictogram in a W x H box centred on Center.
type Icon struct {
	Center geom.Point
	W, H   float64
	Name   string
}

func (Rect) Kind() Kind     { return KindRect }
func (Circle) Kind() Kind   { return KindCircle }
func (Triangle) Kind() Kind { return KindTriangle }
func (Text) Kind() Kind     { return KindText }
func (Icon) Kind() Kind     { return KindIcon }

func (s Rect) Anchor() geom.Point     { return s.Center }
func (s Circle) Anchor() geom.Point   { return s.Center }
func (s Triangle) Anchor() geom.Point { return s.V[0] }
func (s Text) Anchor() geom.Point     { return s.At }
func (s Icon) Anchor() geom.Point     { return s.Center }

func (s Rect) Translate(d geom.Point) Shape   { s.Center = s.Center.Add(d); return s }
func (s Circle) Translate(d geom.Point) Shape { s.Center = s.Center.Add(d); return s }
func (s Text) Translate(d geom.Point) Shape   { s.At = s.At.Add(d); return s }
func (s Icon) Translate(d geom.Point) Shape   { s.Center = s.Center.Add(d); return s }
func (s Triangle) Translate(d geom.Point) Shape {
	for i := range s.V {
		s.V[i] = s.V[i].Add(d)
	}
	return s
}

func (Rect) isShape()     {}
func (Circle) isShape()   {}
func (Triangle) isShape() {}
func (Text) isShape()     {}
func (Icon) isShape()     {}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidGeometry, fmt.Sprintf(format, args...))
}

func (s Rect) Validate() error {
	if !s.Center.IsFinite() || !finiteAll(s.W, s.H) || s.W <= 0 || s.H <= 0 {
		return invalid("rect %vx%v at %v", s.W, s.H, s.Center)
	}
	return nil
}

func (s Circle) Validate() error {
	if !s.Center.IsFinite() || !finite(s.R) || s.R <= 0 {
		return invalid("circle r=%v at %v", s.R, s.Center)
	}
	return nil
}

// Area returns the unsigned triangle area.
func (s Triangle) Area() float64 {
	a, b, c := s.V[0], s.V[1], s.V[2]
	return math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
}

// Bounds returns the bounding box of the vertices.
func (s Triangle) Bounds() geom.Rect {
	return geom.RectFromPoints(s.V[:]...)
}

func (s Triangle) Validate() error {
	for _, v := range s.V {
		if !v.IsFinite() {
			return invalid("triangle vertex %v", v)
		}
	}
	if s.Area() < 1e-9 {
		return invalid("triangle is degenerate")
	}
	return nil
}

func (s Text) Validate() error {
	if !s.At.IsFinite() || !finite(s.FontSize) || s.FontSize <= 0 {
		return invalid("text at %v size %v", s.At, s.FontSize)
	}
	if s.Content == "" {
		return invalid("empty text")
	}
	return nil
}

func (s Icon) Validate() error {
	if !s.Center.IsFinite() || !finiteAll(s.W, s.H) || s.W <= 0 || s.H <= 0 {
		return invalid("icon %vx%v at %v", s.W, s.H, s.Center)
	}
	return nil
}

// Element is a decorative shape on a floor plan. Elements never occlude and
// never contribute to the heatmap.
type Element struct {
	ID       int64
	CanvasID int64
	Style    Style
	// Rotation is in degrees, normalised to [0,360).
	Rotation float64
	Shape    Shape
}

// Kind returns the element's variant.
func (e Element) Kind() Kind { return e.Shape.Kind() }

// Validate checks the shape and the rotation.
func (e Element) Validate() error {
	if e.Shape == nil {
		return invalid("element has no shape")
	}
	if !finite(e.Rotation) {
		return invalid("rotation %v", e.Rotation)
	}
	return e.Shape.Validate()
}

// Rotatable reports whether the element has a rotation handle.
func (e Element) Rotatable() bool {
	switch e.Shape.(type) {
	case Rect, Text, Icon:
		return true
	default:
		return false
	}
}

// Translate returns e moved by d.
func (e Element) Translate(d geom.Point) Element {
	e.Shape = e.Shape.Translate(d)
	return e
}

// MoveTo returns e with its anchor at p.
func (e Element) MoveTo(p geom.Point) Element {
	return e.Translate(p.Sub(e.Shape.Anchor()))
}

// SameGeometry reports whether e and o have identical shape and rotation.
func (e Element) SameGeometry(o Element) bool {
	return e.Rotation == o.Rotation && e.Shape == o.Shape
}
