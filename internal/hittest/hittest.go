// Package hittest resolves a pointer position to the floor-plan entity it
// refers to.
//
// Targets are tested in a fixed precedence: the rotation handle of the
// current selection, then sensor nodes (nearest), then decorative elements
// (topmost first), then walls (nearest). The first match wins.
package hittest

import (
	"math"

	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/geom"
	"github.com/banshee-data/twin.report/internal/view"
)

// Kind identifies what a pointer hit.
type Kind int

const (
	None Kind = iota
	ElementHandle
	WallHandle
	Node
	Element
	Wall
)

func (k Kind) String() string {
	switch k {
	case ElementHandle:
		return "element_handle"
	case WallHandle:
		return "wall_handle"
	case Node:
		return "node"
	case Element:
		return "element"
	case Wall:
		return "wall"
	default:
		return "none"
	}
}

// Target is the result of a hit test. Distance is in pixels for handles and
// meters otherwise.
type Target struct {
	Kind     Kind
	ID       int64
	Distance float64
}

// Selection is the entity currently selected in the editor. Only Node,
// Element and Wall are meaningful kinds.
type Selection struct {
	Kind Kind
	ID   int64
}

// Tolerances are the pick radii. World tolerances are meters; handle
// tolerances and offsets are display pixels.
type Tolerances struct {
	NodeRadius    float64
	WallDistance  float64
	ElementMargin float64
	TextHalfW     float64
	TextHalfH     float64

	HandleOffsetPx  float64
	ElementHandlePx float64
	WallHandlePx    float64
	MinIconPx       float64
}

// DefaultTolerances returns the editor's pick radii.
func DefaultTolerances() Tolerances {
	return Tolerances{
		NodeRadius:      6,
		WallDistance:    4,
		ElementMargin:   6,
		TextHalfW:       20,
		TextHalfH:       10,
		HandleOffsetPx:  20,
		ElementHandlePx: 12,
		WallHandlePx:    14,
		MinIconPx:       10,
	}
}

// Scene is the set of entities to test against. Elements are in z order,
// last drawn on top.
type Scene struct {
	Nodes    []floorplan.SensorNode
	Walls    []floorplan.Wall
	Elements []floorplan.Element
}

// Tester performs hit tests under a view transform.
type Tester struct {
	View view.Transform
	Tol  Tolerances
	// Locked disables handles; only plain selection hits are reported.
	Locked bool
}

// New returns a Tester with default tolerances.
func New(v view.Transform) Tester {
	return Tester{View: v, Tol: DefaultTolerances()}
}

// At resolves a screen point.
func (h Tester) At(screen geom.Point, s Scene, sel Selection) Target {
	if !screen.IsFinite() {
		return Target{}
	}
	if !h.Locked {
		if t, ok := h.handle(screen, s, sel); ok {
			return t
		}
	}
	world := h.View.ScreenToWorld(screen)
	if t, ok := h.node(world, s.Nodes); ok {
		return t
	}
	if t, ok := h.element(world, s.Elements); ok {
		return t
	}
	if t, ok := h.wall(world, s.Walls); ok {
		return t
	}
	return Target{}
}

func (h Tester) handle(screen geom.Point, s Scene, sel Selection) (Target, bool) {
	switch sel.Kind {
	case Element:
		for _, e := range s.Elements {
			if e.ID != sel.ID {
				continue
			}
			p, ok := h.ElementHandle(e)
			if !ok {
				return Target{}, false
			}
			if d := screen.Distance(p); d < h.Tol.ElementHandlePx {
				return Target{Kind: ElementHandle, ID: e.ID, Distance: d}, true
			}
			return Target{}, false
		}
	case Wall:
		for _, w := range s.Walls {
			if w.ID != sel.ID {
				continue
			}
			p, ok := h.WallHandle(w)
			if !ok {
				return Target{}, false
			}
			if d := screen.Distance(p); d < h.Tol.WallHandlePx {
				return Target{Kind: WallHandle, ID: w.ID, Distance: d}, true
			}
			return Target{}, false
		}
	}
	return Target{}, false
}

// FontScale is the text and stroke scale factor at a given pixels-per-meter
// density. Text never shrinks below half size.
func FontScale(ppm float64) float64 {
	if ppm > 2 {
		return 1
	}
	return ppm/2 + 0.5
}

// ElementHandle returns the screen position of e's rotation handle. Circles
// and triangles have none.
func (h Tester) ElementHandle(e floorplan.Element) (geom.Point, bool) {
	if e.Shape == nil {
		return geom.Point{}, false
	}
	anchor := e.Shape.Anchor()
	if !anchor.IsFinite() {
		return geom.Point{}, false
	}
	c := h.View.WorldToScreen(anchor)
	ppm := h.View.PixelsPerMeter()
	off := h.Tol.HandleOffsetPx

	switch s := e.Shape.(type) {
	case floorplan.Rect:
		// The handle sits above the top edge and turns with the rectangle.
		up := geom.Pt(c.X, c.Y-(s.H*ppm/2+off))
		return geom.Rotate(up, c, e.Rotation), true
	case floorplan.Icon:
		size := math.Max(s.W*ppm, h.Tol.MinIconPx)
		return geom.Pt(c.X, c.Y-size/2-off), true
	case floorplan.Text:
		fs := s.FontSize * FontScale(ppm)
		return geom.Pt(c.X, c.Y-fs-off), true
	case floorplan.Circle, floorplan.Triangle:
		return geom.Point{}, false
	default:
		return geom.Point{}, false
	}
}

// WallHandle returns the screen position of w's rotation handle, which is
// its second endpoint.
func (h Tester) WallHandle(w floorplan.Wall) (geom.Point, bool) {
	s := w.Segment()
	if s.IsDegenerate() {
		return geom.Point{}, false
	}
	return h.View.WorldToScreen(s.B), true
}

func (h Tester) node(p geom.Point, nodes []floorplan.SensorNode) (Target, bool) {
	best := Target{Distance: math.Inf(1)}
	for _, n := range nodes {
		at, ok := n.Position()
		if !ok {
			continue
		}
		if d := p.Distance(at); d < h.Tol.NodeRadius && d < best.Distance {
			best = Target{Kind: Node, ID: n.ID, Distance: d}
		}
	}
	return best, best.Kind != None
}

func (h Tester) element(p geom.Point, elements []floorplan.Element) (Target, bool) {
	for i := len(elements) - 1; i >= 0; i-- {
		e := elements[i]
		if e.Shape == nil {
			continue
		}
		if d, ok := h.inElement(p, e.Shape); ok {
			return Target{Kind: Element, ID: e.ID, Distance: d}, true
		}
	}
	return Target{}, false
}

func (h Tester) inElement(p geom.Point, s floorplan.Shape) (float64, bool) {
	m := h.Tol.ElementMargin
	a := s.Anchor()
	if !a.IsFinite() {
		return 0, false
	}
	d := p.Distance(a)
	dx, dy := math.Abs(p.X-a.X), math.Abs(p.Y-a.Y)
	switch s := s.(type) {
	case floorplan.Rect:
		return d, dx < s.W/2+m && dy < s.H/2+m
	case floorplan.Icon:
		return d, dx < s.W/2+m && dy < s.H/2+m
	case floorplan.Circle:
		return d, d < s.R+m
	case floorplan.Triangle:
		return d, s.Bounds().Expand(m).Contains(p)
	case floorplan.Text:
		return d, dx < h.Tol.TextHalfW && dy < h.Tol.TextHalfH
	default:
		return 0, false
	}
}

func (h Tester) wall(p geom.Point, walls []floorplan.Wall) (Target, bool) {
	best := Target{Distance: math.Inf(1)}
	for _, w := range walls {
		s := w.Segment()
		if s.IsDegenerate() {
			continue
		}
		if d := s.DistanceTo(p); d < h.Tol.WallDistance && d < best.Distance {
			best = Target{Kind: Wall, ID: w.ID, Distance: d}
		}
	}
	return best, best.Kind != None
}
