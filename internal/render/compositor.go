// Package render composites the heatmap raster and the floor-plan geometry
// into an RGBA frame.
//
// Rendering is a pure function of an editor.Snapshot. The Compositor adds
// the dirty check: Tick only redraws when the snapshot's revision, raster
// generation or display size changed since the last frame.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/banshee-data/twin.report/internal/editor"
	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/geom"
	"github.com/banshee-data/twin.report/internal/heatmap"
	"github.com/banshee-data/twin.report/internal/hittest"
)

// Palette is the set of fixed colours used for non-element geometry.
var (
	Background   = color.NRGBA{0x0f, 0x17, 0x2a, 0xff}
	FloorColor   = color.NRGBA{0xf8, 0xfa, 0xfc, 0xff}
	FloorEdge    = color.NRGBA{0x94, 0xa3, 0xb8, 0xff}
	WallColor    = color.NRGBA{0x33, 0x41, 0x55, 0xff}
	LabelColor   = color.NRGBA{0x1e, 0x29, 0x3b, 0xff}
	NodeActive   = color.NRGBA{0x16, 0xa3, 0x4a, 0xff}
	NodeInactive = color.NRGBA{0x9c, 0xa3, 0xaf, 0xff}
	SelectColor  = color.NRGBA{0xf5, 0x9e, 0x0b, 0xff}
	HandleColor  = color.NRGBA{0xff, 0xff, 0xff, 0xff}
	PreviewColor = color.NRGBA{0x25, 0x63, 0xeb, 0xff}
	InspectColor = color.NRGBA{0xdb, 0x27, 0x77, 0xff}
	fallbackFill = color.NRGBA{0x3b, 0x82, 0xf6, 0xff}
	fallbackEdge = color.NRGBA{0x1e, 0x3a, 0x5f, 0xff}
)

const (
	elementAlpha  = 0xb0
	previewAlpha  = 0x40
	inspectAlpha  = 0x30
	wallWidthPx   = 3.0
	selectWidthPx = 2.0
	handleRadius  = 5.0
)

// Compositor renders snapshots and keeps the most recent frame.
type Compositor struct {
	faces faces

	mu       sync.Mutex
	frame    *image.RGBA
	revision uint64
	gen      uint64
	size     image.Point
	frames   uint64
}

// NewCompositor returns a compositor with no frame.
func NewCompositor() *Compositor {
	return &Compositor{}
}

// Tick redraws the frame if s differs from the last rendered snapshot and
// reports whether it did.
func (c *Compositor) Tick(s editor.Snapshot) bool {
	size := displaySize(s)
	c.mu.Lock()
	clean := c.frame != nil && c.revision == s.Revision && c.gen == s.RasterGen && c.size == size
	c.mu.Unlock()
	if clean {
		return false
	}

	img := c.Render(s)

	c.mu.Lock()
	c.frame, c.revision, c.gen, c.size = img, s.Revision, s.RasterGen, size
	c.frames++
	c.mu.Unlock()
	return true
}

// Latest returns the most recent frame, or nil before the first Tick. The
// returned image must not be modified.
func (c *Compositor) Latest() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Frames returns how many frames have been rendered.
func (c *Compositor) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// WritePNG encodes the latest frame.
func (c *Compositor) WritePNG(w io.Writer) error {
	img := c.Latest()
	if img == nil {
		return fmt.Errorf("no frame rendered yet")
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	return nil
}

func displaySize(s editor.Snapshot) image.Point {
	w := int(math.Ceil(s.View.DisplayW))
	h := int(math.Ceil(s.View.DisplayH))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Pt(w, h)
}

// Render draws s into a new frame: floor, heatmap, walls, elements, nodes,
// then selection, handles, gesture previews and the inspect box.
func (c *Compositor) Render(s editor.Snapshot) *image.RGBA {
	size := displaySize(s)
	img := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	r := &frame{
		canvas: newCanvas(img),
		snap:   s,
		hit:    hittest.Tester{View: s.View, Tol: s.Tolerances, Locked: s.Locked},
		ppm:    s.View.PixelsPerMeter(),
		faces:  &c.faces,
	}
	r.floor()
	r.heatmap()
	r.walls()
	r.elements()
	r.nodes()
	r.selection()
	r.preview()
	r.inspect()
	return img
}

type frame struct {
	*canvas
	snap  editor.Snapshot
	hit   hittest.Tester
	ppm   float64
	faces *faces
}

func (f *frame) screen(p geom.Point) geom.Point { return f.snap.View.WorldToScreen(p) }

func (f *frame) screenRect(r geom.Rect) geom.Rect {
	return geom.RectFromPoints(f.screen(r.Min), f.screen(r.Max))
}

func (f *frame) rectPoints(r geom.Rect) []geom.Point {
	return []geom.Point{r.Min, geom.Pt(r.Max.X, r.Min.Y), r.Max, geom.Pt(r.Min.X, r.Max.Y)}
}

func (f *frame) floor() {
	r := f.screenRect(f.snap.Scene.Plan.Bounds())
	pts := f.rectPoints(r)
	f.fill(pts, FloorColor)
	f.polyline(pts, 1, FloorEdge, true)
}

// heatmap scales the colourised raster onto the floor rectangle.
func (f *frame) heatmap() {
	rs := f.snap.Raster
	if !f.snap.Heatmap.Enabled || rs == nil || rs.Width == 0 || rs.Height == 0 {
		return
	}
	o, err := f.snap.Heatmap.ColorOptions()
	if err != nil {
		return
	}
	src := heatmap.Colorize(rs, o)
	world := geom.Rect{Max: geom.Pt(float64(rs.Width), float64(rs.Height))}
	sr := f.screenRect(world)
	dr := image.Rect(int(math.Floor(sr.Min.X)), int(math.Floor(sr.Min.Y)), int(math.Ceil(sr.Max.X)), int(math.Ceil(sr.Max.Y)))
	if dr.Empty() {
		return
	}
	xdraw.BiLinear.Scale(f.dst, dr, src, src.Bounds(), xdraw.Over, nil)
}

func (f *frame) walls() {
	for _, w := range f.snap.Scene.Walls {
		s := w.Segment()
		if !s.IsFinite() {
			continue
		}
		a, b := f.screen(s.A), f.screen(s.B)
		f.line(a, b, wallWidthPx, WallColor)
		if label, ok := w.LengthLabel(); ok {
			mid := f.screen(s.Midpoint())
			drawLabel(f.dst, geom.Pt(mid.X, mid.Y-6), label, LabelColor)
		}
	}
}

func (f *frame) elements() {
	for _, e := range f.snap.Scene.Elements {
		f.element(e)
	}
}

func (f *frame) element(e floorplan.Element) {
	if e.Shape == nil || !e.Shape.Anchor().IsFinite() {
		return
	}
	fill := paint(e.Style.Fill, fallbackFill)
	stroke := paint(e.Style.Stroke, fallbackEdge)
	sw := e.Style.StrokeWidth * hittest.FontScale(f.ppm)

	switch s := e.Shape.(type) {
	case floorplan.Rect:
		pts := f.rotatedBox(s.Center, s.W*f.ppm, s.H*f.ppm, e.Rotation)
		f.fill(pts, withAlpha(fill, elementAlpha))
		f.polyline(pts, sw, stroke, true)
	case floorplan.Circle:
		c := f.screen(s.Center)
		f.disc(c, s.R*f.ppm, withAlpha(fill, elementAlpha))
		f.ring(c, s.R*f.ppm, sw, stroke)
	case floorplan.Triangle:
		pts := []geom.Point{f.screen(s.V[0]), f.screen(s.V[1]), f.screen(s.V[2])}
		f.fill(pts, withAlpha(fill, elementAlpha))
		f.polyline(pts, sw, stroke, true)
	case floorplan.Text:
		px := s.FontSize * hittest.FontScale(f.ppm)
		drawString(f.dst, f.faces.get(px), f.screen(s.At), s.Content, fill)
	case floorplan.Icon:
		size := math.Max(s.W*f.ppm, f.snap.Tolerances.MinIconPx)
		pts := f.rotatedBox(s.Center, size, size, e.Rotation)
		f.fill(pts, withAlpha(fill, elementAlpha))
		f.polyline(pts, sw, stroke, true)
		if s.Name != "" {
			c := f.screen(s.Center)
			drawLabel(f.dst, geom.Pt(c.X, c.Y+4), s.Name[:1], HandleColor)
		}
	}
}

// rotatedBox returns the screen corners of a w x h pixel box centred on the
// world point c and turned by deg.
func (f *frame) rotatedBox(c geom.Point, w, h, deg float64) []geom.Point {
	sc := f.screen(c)
	pts := f.rectPoints(geom.Rect{Min: geom.Pt(sc.X-w/2, sc.Y-h/2), Max: geom.Pt(sc.X+w/2, sc.Y+h/2)})
	for i := range pts {
		pts[i] = geom.Rotate(pts[i], sc, deg)
	}
	return pts
}

func (f *frame) nodes() {
	for _, n := range f.snap.Scene.Nodes {
		p, ok := n.Position()
		if !ok {
			continue
		}
		c := f.screen(p)
		col := NodeInactive
		if n.Active {
			col = NodeActive
		}
		size := n.PointSize
		if size <= 0 {
			size = floorplan.DefaultPointSize
		}
		f.disc(c, size, col)
		if n.Name != "" {
			drawLabel(f.dst, geom.Pt(c.X, c.Y+size+12), n.Name, LabelColor)
		}
	}
}

func (f *frame) selection() {
	sel := f.snap.Selection
	switch sel.Kind {
	case hittest.Node:
		n, ok := f.snap.Scene.Node(sel.ID)
		if !ok {
			return
		}
		if p, ok := n.Position(); ok {
			size := math.Max(n.PointSize, floorplan.DefaultPointSize)
			f.ring(f.screen(p), size+3, selectWidthPx, SelectColor)
		}
	case hittest.Wall:
		for _, w := range f.snap.Scene.Walls {
			if w.ID != sel.ID {
				continue
			}
			s := w.Segment()
			f.line(f.screen(s.A), f.screen(s.B), selectWidthPx, SelectColor)
			if h, ok := f.hit.WallHandle(w); ok && !f.snap.Locked {
				f.handle(h)
			}
		}
	case hittest.Element:
		for _, e := range f.snap.Scene.Elements {
			if e.ID != sel.ID {
				continue
			}
			f.outline(e)
			if h, ok := f.hit.ElementHandle(e); ok && !f.snap.Locked {
				f.handle(h)
			}
		}
	}
}

func (f *frame) outline(e floorplan.Element) {
	switch s := e.Shape.(type) {
	case floorplan.Rect:
		f.polyline(f.rotatedBox(s.Center, s.W*f.ppm+4, s.H*f.ppm+4, e.Rotation), selectWidthPx, SelectColor, true)
	case floorplan.Circle:
		f.ring(f.screen(s.Center), s.R*f.ppm+2, selectWidthPx, SelectColor)
	case floorplan.Triangle:
		pts := []geom.Point{f.screen(s.V[0]), f.screen(s.V[1]), f.screen(s.V[2])}
		f.polyline(pts, selectWidthPx, SelectColor, true)
	case floorplan.Icon:
		size := math.Max(s.W*f.ppm, f.snap.Tolerances.MinIconPx) + 4
		f.polyline(f.rotatedBox(s.Center, size, size, e.Rotation), selectWidthPx, SelectColor, true)
	case floorplan.Text:
		at := f.screen(s.At)
		px := s.FontSize * hittest.FontScale(f.ppm)
		f.dashed(geom.Rect{Min: geom.Pt(at.X-2, at.Y-px), Max: geom.Pt(at.X+px*float64(len(s.Content))*0.6+2, at.Y+4)}, 1, SelectColor)
	}
}

func (f *frame) handle(p geom.Point) {
	f.disc(p, handleRadius, HandleColor)
	f.ring(p, handleRadius, 1.5, SelectColor)
}

// preview draws the in-progress wall, shape or triangle.
func (f *frame) preview() {
	g := f.snap.Gesture
	switch g.Kind {
	case editor.GestureDrawWallPreview:
		f.line(f.screen(g.Anchor), f.screen(g.Last), wallWidthPx, PreviewColor)
	case editor.GestureDrawShapePreview:
		switch f.snap.Mode {
		case editor.ModeRect:
			pts := f.rectPoints(f.screenRect(geom.RectFromPoints(g.Anchor, g.Last)))
			f.fill(pts, withAlpha(PreviewColor, previewAlpha))
			f.polyline(pts, 1.5, PreviewColor, true)
		case editor.ModeCircle:
			r := g.Anchor.Distance(g.Last) * f.ppm
			f.disc(f.screen(g.Anchor), r, withAlpha(PreviewColor, previewAlpha))
			f.ring(f.screen(g.Anchor), r, 1.5, PreviewColor)
		}
	case editor.GestureCollectTrianglePoints:
		pts := make([]geom.Point, 0, len(g.Points)+1)
		for _, p := range g.Points {
			pts = append(pts, f.screen(p))
		}
		for _, p := range pts {
			f.disc(p, 3, PreviewColor)
		}
		pts = append(pts, f.screen(g.Last))
		f.polyline(pts, 1.5, PreviewColor, false)
	}
}

func (f *frame) inspect() {
	box := f.snap.InspectBox
	if box == nil {
		return
	}
	r := f.screenRect(*box)
	f.fill(f.rectPoints(r), withAlpha(InspectColor, inspectAlpha))
	f.dashed(r, 1.5, InspectColor)
	if res := f.snap.Inspect; res != nil {
		label := fmt.Sprintf("%.1f %s (%d)", res.Average, res.Unit, res.SampleCount)
		drawLabel(f.dst, geom.Pt(r.Center().X, r.Min.Y-4), label, InspectColor)
	}
}

func paint(hex string, fallback color.NRGBA) color.NRGBA {
	c, err := heatmap.ParseHexColor(hex)
	if err != nil {
		return fallback
	}
	return c
}
