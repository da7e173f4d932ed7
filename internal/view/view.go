// Package view maps between floor-plan meters and display pixels.
//
// The display shows the whole floor plan at zoom 1 with no pan. Screen
// points are first pre-scaled into "base" units (meters at zoom 1), and the
// pan offset is expressed in those base units:
//
//	base  = screen * floor / display
//	world = (base - pan) / zoom
package view

import (
	"math"

	"github.com/banshee-data/twin.report/internal/geom"
)

// Zoom limits.
const (
	MinZoom = 0.5
	MaxZoom = 5.0
)

// Wheel tuning.
const (
	WheelZoomRate = 0.002
	WheelPanRate  = 0.5
)

// Transform is the world/screen mapping for one display.
type Transform struct {
	FloorW, FloorH     float64
	DisplayW, DisplayH float64
	Zoom               float64
	Pan                geom.Point
}

// New returns an identity view of a floor plan on a display.
func New(floorW, floorH, displayW, displayH float64) Transform {
	return Transform{FloorW: floorW, FloorH: floorH, DisplayW: displayW, DisplayH: displayH, Zoom: 1}
}

func (t Transform) scale() (sx, sy float64) {
	sx, sy = 1, 1
	if t.DisplayW > 0 {
		sx = t.FloorW / t.DisplayW
	}
	if t.DisplayH > 0 {
		sy = t.FloorH / t.DisplayH
	}
	return sx, sy
}

func (t Transform) zoom() float64 {
	if t.Zoom <= 0 || math.IsNaN(t.Zoom) {
		return 1
	}
	return t.Zoom
}

// ScreenToBase pre-scales a screen point into base units.
func (t Transform) ScreenToBase(p geom.Point) geom.Point {
	sx, sy := t.scale()
	return geom.Pt(p.X*sx, p.Y*sy)
}

// BaseToScreen is the inverse of ScreenToBase.
func (t Transform) BaseToScreen(p geom.Point) geom.Point {
	sx, sy := t.scale()
	return geom.Pt(p.X/sx, p.Y/sy)
}

// ScreenToWorld maps a display pixel to floor-plan meters.
func (t Transform) ScreenToWorld(p geom.Point) geom.Point {
	return t.ScreenToBase(p).Sub(t.Pan).Scale(1 / t.zoom())
}

// WorldToScreen maps floor-plan meters to a display pixel.
func (t Transform) WorldToScreen(p geom.Point) geom.Point {
	return t.BaseToScreen(p.Scale(t.zoom()).Add(t.Pan))
}

// PixelsPerMeter returns the horizontal display pixels per world meter.
func (t Transform) PixelsPerMeter() float64 {
	sx, _ := t.scale()
	return t.zoom() / sx
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	return geom.Clamp(z, MinZoom, MaxZoom)
}

// ZoomAt multiplies the zoom by factor, clamped, keeping the world point
// under screen fixed on screen.
func (t Transform) ZoomAt(screen geom.Point, factor float64) Transform {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return t
	}
	base := t.ScreenToBase(screen)
	world := base.Sub(t.Pan).Scale(1 / t.zoom())
	t.Zoom = ClampZoom(t.zoom() * factor)
	t.Pan = base.Sub(world.Scale(t.Zoom))
	return t
}

// ZoomByWheel zooms around screen for a wheel delta. Negative deltaY zooms
// in.
func (t Transform) ZoomByWheel(screen geom.Point, deltaY float64) Transform {
	return t.ZoomAt(screen, 1-deltaY*WheelZoomRate)
}

// PanBy moves the view by a raw delta in base units.
func (t Transform) PanBy(d geom.Point) Transform {
	t.Pan = t.Pan.Add(d)
	return t
}

// PanByScreen moves the view by a screen-pixel drag delta.
func (t Transform) PanByScreen(d geom.Point) Transform {
	return t.PanBy(t.ScreenToBase(d))
}

// WheelPan scrolls the view for a two-finger wheel gesture.
func (t Transform) WheelPan(deltaX, deltaY float64) Transform {
	return t.PanBy(geom.Pt(-deltaX*WheelPanRate, -deltaY*WheelPanRate))
}

// Resize changes the display size, keeping zoom and pan.
func (t Transform) Resize(displayW, displayH float64) Transform {
	t.DisplayW, t.DisplayH = displayW, displayH
	return t
}

// Reset returns to zoom 1 with no pan.
func (t Transform) Reset() Transform {
	t.Zoom = 1
	t.Pan = geom.Point{}
	return t
}
