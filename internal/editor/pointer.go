package editor

import (
	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/geom"
	"github.com/banshee-data/twin.report/internal/hittest"
)

// Button identifies the pointer button of a press.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
)

// PointerDown handles a press at a screen point.
func (e *Editor) PointerDown(screen geom.Point, b Button) {
	if !screen.IsFinite() {
		return
	}
	world := e.view.ScreenToWorld(screen)
	if b == ButtonMiddle {
		e.gesture = Gesture{Kind: GesturePan, Start: world, Last: world, LastScreen: screen}
		return
	}
	if e.locked && e.mode != ModeSelect {
		return
	}
	switch e.mode {
	case ModeSelect:
		e.selectDown(screen, world)
	case ModeWall:
		e.wallClick(world)
	case ModeRect, ModeCircle:
		p := e.plan.Clamp(world)
		e.gesture = Gesture{Kind: GestureDrawShapePreview, Anchor: p, Start: p, Last: p, LastScreen: screen}
		e.touch()
	case ModeTriangle:
		e.triangleClick(e.plan.Clamp(world))
	case ModeText:
		if e.textDraft != "" {
			e.createElement(floorplan.Text{At: e.plan.Clamp(world), Content: e.textDraft, FontSize: floorplan.DefaultFontSize})
		}
	case ModeIcon:
		e.createElement(floorplan.Icon{
			Center: e.plan.Clamp(world),
			W:      floorplan.DefaultShapeSize,
			H:      floorplan.DefaultShapeSize,
			Name:   e.icon,
		})
	case ModePlace:
		e.placeClick(world)
	case ModeInspect:
		p := e.plan.Clamp(world)
		band := geom.Rect{Min: p, Max: p}
		e.gesture = Gesture{Kind: GestureInspectRubberBand, Start: p, Last: p, LastScreen: screen, Band: band}
		e.inspect = nil
		e.inspectRect = &band
		e.touch()
	}
}

func (e *Editor) selectDown(screen, world geom.Point) {
	t := e.tester().At(screen, e.hitScene(), e.sel)
	base := Gesture{ID: t.ID, Start: world, Last: world, LastScreen: screen}

	switch t.Kind {
	case hittest.ElementHandle:
		i, _ := e.elementIndex(t.ID)
		base.Kind = GestureRotateElement
		base.OrigElement, base.Element = e.elements[i], e.elements[i]
		e.gesture = base
	case hittest.WallHandle:
		i, _ := e.wallIndex(t.ID)
		base.Kind = GestureRotateWall
		base.OrigWall, base.Wall = e.walls[i], e.walls[i]
		e.gesture = base
	case hittest.Node:
		e.sel = hittest.Selection{Kind: hittest.Node, ID: t.ID}
		if !e.locked {
			i, _ := e.nodeIndex(t.ID)
			n := e.nodes[i]
			pos, _ := n.Position()
			base.Kind = GestureDragNode
			base.Grab = pos.Sub(world)
			base.OrigNode, base.Node = n, n
			e.gesture = base
		}
	case hittest.Element:
		e.sel = hittest.Selection{Kind: hittest.Element, ID: t.ID}
		if !e.locked {
			i, _ := e.elementIndex(t.ID)
			el := e.elements[i]
			base.Kind = GestureDragElement
			base.Grab = el.Shape.Anchor().Sub(world)
			base.OrigElement, base.Element = el, el
			e.gesture = base
		}
	case hittest.Wall:
		e.sel = hittest.Selection{Kind: hittest.Wall, ID: t.ID}
		if !e.locked {
			i, _ := e.wallIndex(t.ID)
			base.Kind = GestureDragWall
			base.OrigWall, base.Wall = e.walls[i], e.walls[i]
			e.gesture = base
		}
	default:
		e.sel = hittest.Selection{}
		base.Kind = GesturePan
		base.ID = 0
		e.gesture = base
	}
	e.touch()
}

// PointerMove updates the gesture in progress. Drags only change the
// gesture's working copy.
func (e *Editor) PointerMove(screen geom.Point) {
	if !screen.IsFinite() {
		return
	}
	world := e.view.ScreenToWorld(screen)
	g := &e.gesture
	prev := g.LastScreen
	g.Last, g.LastScreen = world, screen

	switch g.Kind {
	case GestureNone:
		return
	case GestureDragNode:
		g.Node = g.OrigNode.WithPosition(e.plan.Clamp(world.Add(g.Grab)))
		e.touchHeat()
	case GestureDragElement:
		if tri, ok := g.OrigElement.Shape.(floorplan.Triangle); ok {
			d := world.Add(g.Grab).Sub(tri.Anchor())
			g.Element = g.OrigElement.Translate(e.fitDelta(tri.Bounds(), d))
		} else {
			g.Element = g.OrigElement.MoveTo(e.plan.Clamp(world.Add(g.Grab)))
		}
		e.touch()
	case GestureDragWall:
		seg := g.OrigWall.Segment()
		d := e.fitDelta(seg.Bounds(), world.Sub(g.Start))
		g.Wall = g.OrigWall.WithSegment(seg.Translate(d))
		e.touchHeat()
	case GestureRotateElement:
		origin := g.OrigElement.Shape.Anchor()
		deg := geom.AngleOf(world.X-origin.X, world.Y-origin.Y) + 90
		g.Element = g.OrigElement
		g.Element.Rotation = geom.SnapAngle(deg, geom.SnapStepDegrees, geom.SnapToleranceDegrees)
		e.touch()
	case GestureRotateWall:
		seg := g.OrigWall.Segment()
		mid := seg.Midpoint()
		deg := geom.SnapAngle(geom.AngleOf(world.X-mid.X, world.Y-mid.Y), geom.SnapStepDegrees, geom.SnapToleranceDegrees)
		rot := seg.RotatedAbout(mid, deg)
		g.Wall = g.OrigWall.WithSegment(rot.Translate(e.fitDelta(rot.Bounds(), geom.Point{})))
		e.touchHeat()
	case GestureInspectRubberBand:
		g.Band = geom.RectFromPoints(g.Start, e.plan.Clamp(world))
		band := g.Band
		e.inspectRect = &band
		e.touch()
	case GesturePan:
		e.view = e.view.PanByScreen(screen.Sub(prev))
		e.touch()
	default:
		// Previews follow the pointer.
		e.touch()
	}
}

// fitDelta limits a translation d of geometry with bounds b so the result
// stays on the floor plan. Geometry larger than the floor is aligned to the
// floor's minimum edge.
func (e *Editor) fitDelta(b geom.Rect, d geom.Point) geom.Point {
	f := e.plan.Bounds()
	return geom.Pt(
		fitAxis(d.X, f.Min.X-b.Min.X, f.Max.X-b.Max.X),
		fitAxis(d.Y, f.Min.Y-b.Min.Y, f.Max.Y-b.Max.Y),
	)
}

func fitAxis(v, lo, hi float64) float64 {
	if lo > hi {
		return lo
	}
	return geom.Clamp(v, lo, hi)
}

// PointerUp completes the gesture at a screen point.
func (e *Editor) PointerUp(screen geom.Point) {
	e.PointerMove(screen)
	e.finish()
}

// PointerLeave behaves like a release at the last known position for drags
// and rotations. Shape previews are dropped; pending wall starts and
// triangle vertices are kept.
func (e *Editor) PointerLeave() {
	switch g := e.gesture.Kind; {
	case g.Dragging(), g == GestureInspectRubberBand:
		e.finish()
	case g == GestureDrawShapePreview, g == GesturePan:
		e.gesture = Gesture{}
		e.touch()
	}
}

// Escape cancels pending multi-step gestures and in-progress drags without
// committing. In place mode it also abandons placement.
func (e *Editor) Escape() {
	e.cancelGesture()
	e.inspect, e.inspectRect = nil, nil
	if e.mode == ModePlace {
		e.SetMode(ModeSelect)
	}
	e.touch()
}

// Wheel handles a scroll event. zoom selects pinch/ctrl-wheel zooming
// around the pointer; otherwise the view pans.
func (e *Editor) Wheel(screen geom.Point, dx, dy float64, zoom bool) {
	if !screen.IsFinite() {
		return
	}
	if zoom {
		e.view = e.view.ZoomByWheel(screen, dy)
	} else {
		e.view = e.view.WheelPan(dx, dy)
	}
	e.touch()
}

// ZoomAt zooms by factor around a screen point.
func (e *Editor) ZoomAt(screen geom.Point, factor float64) {
	e.view = e.view.ZoomAt(screen, factor)
	e.touch()
}

// ResetView returns to zoom 1 with no pan.
func (e *Editor) ResetView() {
	e.view = e.view.Reset()
	e.touch()
}

func (e *Editor) cancelGesture() {
	if e.gesture.Kind == GestureNone {
		return
	}
	reverts := e.gesture.Kind == GestureDragNode || e.gesture.Kind == GestureDragWall || e.gesture.Kind == GestureRotateWall
	e.gesture = Gesture{}
	if reverts {
		e.touchHeat()
	} else {
		e.touch()
	}
}

func (e *Editor) finish() {
	g := e.gesture
	switch g.Kind {
	case GestureDragNode:
		e.gesture = Gesture{}
		e.commitNode(g)
	case GestureDragElement, GestureRotateElement:
		e.gesture = Gesture{}
		e.commitElement(g.OrigElement, g.Element)
	case GestureDragWall, GestureRotateWall:
		e.gesture = Gesture{}
		e.commitWall(g.OrigWall, g.Wall)
	case GestureDrawShapePreview:
		e.gesture = Gesture{}
		e.finishShape(g)
	case GestureInspectRubberBand:
		e.gesture = Gesture{}
		e.finishInspect(g.Band)
	case GesturePan:
		e.gesture = Gesture{}
	}
	e.touch()
}

func (e *Editor) commitNode(g Gesture) {
	before, _ := g.OrigNode.Position()
	after, ok := g.Node.Position()
	if !ok || before == after {
		e.touchHeat()
		return
	}
	i, ok := e.nodeIndex(g.ID)
	if !ok {
		return
	}
	n := g.Node
	e.nodes[i] = n
	e.touchHeat()
	e.issue(Mutation{Op: OpMoveNode, ID: n.ID, Node: &n})
}

func (e *Editor) commitElement(orig, next floorplan.Element) {
	if orig.SameGeometry(next) {
		return
	}
	if err := next.Validate(); err != nil {
		e.fail(err)
		return
	}
	i, ok := e.elementIndex(next.ID)
	if !ok {
		return
	}
	e.elements[i] = next
	e.issue(Mutation{Op: OpUpdateElement, ID: next.ID, Element: &next})
}

func (e *Editor) commitWall(orig, next floorplan.Wall) {
	if orig == next {
		e.touchHeat()
		return
	}
	if err := next.Validate(); err != nil {
		e.fail(err)
		e.touchHeat()
		return
	}
	i, ok := e.wallIndex(next.ID)
	if !ok {
		return
	}
	e.walls[i] = next
	e.touchHeat()
	e.issue(Mutation{Op: OpUpdateWall, ID: next.ID, Wall: &next})
}

func (e *Editor) wallClick(world geom.Point) {
	p := e.plan.Clamp(world)
	if e.gesture.Kind != GestureDrawWallPreview {
		e.gesture = Gesture{Kind: GestureDrawWallPreview, Anchor: p, Start: p, Last: p}
		e.touch()
		return
	}
	start := e.gesture.Anchor
	e.gesture = Gesture{}
	e.createWall(geom.Segment{A: start, B: p})
}

func (e *Editor) triangleClick(p geom.Point) {
	if e.gesture.Kind != GestureCollectTrianglePoints {
		e.gesture = Gesture{Kind: GestureCollectTrianglePoints}
	}
	e.gesture.Points = append(e.gesture.Points, p)
	e.gesture.Last = p
	if len(e.gesture.Points) < 3 {
		e.touch()
		return
	}
	pts := e.gesture.Points
	e.gesture = Gesture{}
	e.createElement(floorplan.Triangle{V: [3]geom.Point{pts[0], pts[1], pts[2]}})
}

func (e *Editor) finishShape(g Gesture) {
	end := e.plan.Clamp(g.Last)
	switch e.mode {
	case ModeRect:
		r := geom.RectFromPoints(g.Anchor, end)
		if r.Width() > MinRectSize && r.Height() > MinRectSize {
			e.createElement(floorplan.Rect{Center: r.Center(), W: r.Width(), H: r.Height()})
		}
	case ModeCircle:
		if r := g.Anchor.Distance(end); r > MinCircleRadius {
			e.createElement(floorplan.Circle{Center: g.Anchor, R: r})
		}
	}
}

func (e *Editor) placeClick(world geom.Point) {
	i, ok := e.nodeIndex(e.placing)
	if !ok {
		e.SetMode(ModeSelect)
		return
	}
	n := e.nodes[i].WithPosition(e.plan.Clamp(world))
	canvas := e.plan.ID
	n.CanvasID = &canvas
	e.nodes[i] = n
	e.SetMode(ModeSelect)
	e.sel = hittest.Selection{Kind: hittest.Node, ID: n.ID}
	e.touchHeat()
	e.issue(Mutation{Op: OpMoveNode, ID: n.ID, Node: &n})
}

func (e *Editor) finishInspect(band geom.Rect) {
	e.inspectRect = &band
	e.inspect = nil
	if r, ok := e.InspectRegion(band); ok {
		e.inspect = &r
	}
}

// InspectRegion averages the installed raster over rect. ok is false when
// no raster is installed or every covered cell is missing.
func (e *Editor) InspectRegion(rect geom.Rect) (InspectResult, bool) {
	if e.raster == nil {
		return InspectResult{}, false
	}
	s, ok := e.raster.SampleRect(rect)
	if !ok {
		return InspectResult{}, false
	}
	return InspectResult{Average: s.Average, Unit: e.channelUnit(), SampleCount: s.Count, Rect: rect}, true
}
