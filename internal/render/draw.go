package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"

	"github.com/banshee-data/twin.report/internal/geom"
)

// circleSegments is the polygon resolution used for nodes and circles.
const circleSegments = 32

// canvas wraps the destination frame with the vector primitives used by the
// compositor. All coordinates are screen pixels.
type canvas struct {
	dst *image.RGBA
	z   *vector.Rasterizer
}

func newCanvas(dst *image.RGBA) *canvas {
	b := dst.Bounds()
	return &canvas{dst: dst, z: vector.NewRasterizer(b.Dx(), b.Dy())}
}

func (c *canvas) fill(pts []geom.Point, col color.Color) {
	if len(pts) < 3 || !allFinite(pts) {
		return
	}
	b := c.dst.Bounds()
	c.z.Reset(b.Dx(), b.Dy())
	c.z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		c.z.LineTo(float32(p.X), float32(p.Y))
	}
	c.z.ClosePath()
	c.z.Draw(c.dst, b, image.NewUniform(col), image.Point{})
}

// line draws a segment as a quad of the given pixel width.
func (c *canvas) line(a, b geom.Point, width float64, col color.Color) {
	d := b.Sub(a)
	l := math.Hypot(d.X, d.Y)
	if l < geom.DegenerateLength {
		return
	}
	n := geom.Pt(-d.Y/l*width/2, d.X/l*width/2)
	c.fill([]geom.Point{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)}, col)
}

func (c *canvas) polyline(pts []geom.Point, width float64, col color.Color, closed bool) {
	for i := 1; i < len(pts); i++ {
		c.line(pts[i-1], pts[i], width, col)
	}
	if closed && len(pts) > 2 {
		c.line(pts[len(pts)-1], pts[0], width, col)
	}
}

func (c *canvas) disc(center geom.Point, r float64, col color.Color) {
	c.fill(circlePoints(center, r), col)
}

func (c *canvas) ring(center geom.Point, r, width float64, col color.Color) {
	c.polyline(circlePoints(center, r), width, col, true)
}

// dashed draws a dashed rectangle outline.
func (c *canvas) dashed(r geom.Rect, width float64, col color.Color) {
	corners := []geom.Point{r.Min, geom.Pt(r.Max.X, r.Min.Y), r.Max, geom.Pt(r.Min.X, r.Max.Y), r.Min}
	const dash, gap = 6.0, 4.0
	for i := 1; i < len(corners); i++ {
		a, b := corners[i-1], corners[i]
		l := a.Distance(b)
		if l == 0 {
			continue
		}
		dir := b.Sub(a).Scale(1 / l)
		for t := 0.0; t < l; t += dash + gap {
			end := math.Min(t+dash, l)
			c.line(a.Add(dir.Scale(t)), a.Add(dir.Scale(end)), width, col)
		}
	}
}

func circlePoints(center geom.Point, r float64) []geom.Point {
	if r <= 0 {
		return nil
	}
	pts := make([]geom.Point, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = geom.Pt(center.X+r*math.Cos(a), center.Y+r*math.Sin(a))
	}
	return pts
}

func allFinite(pts []geom.Point) bool {
	for _, p := range pts {
		if !p.IsFinite() {
			return false
		}
	}
	return true
}

func withAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}
