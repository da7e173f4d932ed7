package view

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/twin.report/internal/geom"
)

func assertPointNear(t *testing.T, want, got geom.Point, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
}

func TestScreenToWorld_Identity(t *testing.T) {
	v := New(170, 220, 850, 1100)
	assertPointNear(t, geom.Pt(17, 22), v.ScreenToWorld(geom.Pt(85, 110)), 1e-12)
	assertPointNear(t, geom.Pt(85, 110), v.WorldToScreen(geom.Pt(17, 22)), 1e-12)
	assert.InDelta(t, 5.0, v.PixelsPerMeter(), 1e-12)
}

func TestScreenToWorld_ZoomAndPan(t *testing.T) {
	v := New(100, 100, 100, 100)
	v.Zoom = 2
	v.Pan = geom.Pt(10, -4)
	assertPointNear(t, geom.Pt(20, 27), v.ScreenToWorld(geom.Pt(50, 50)), 1e-12)

	for i := 0; i < 50; i++ {
		p := geom.Pt(rand.Float64()*100, rand.Float64()*100)
		assertPointNear(t, p, v.ScreenToWorld(v.WorldToScreen(p)), 1e-9)
	}
}

func TestZoomAt_AnchorsWorldPoint(t *testing.T) {
	v := New(170, 220, 640, 480)
	screen := geom.Pt(123, 321)
	anchor := v.ScreenToWorld(screen)

	for i := 0; i < 40; i++ {
		v = v.ZoomAt(screen, 1.1)
		assertPointNear(t, anchor, v.ScreenToWorld(screen), 1e-9)
	}
	assert.Equal(t, MaxZoom, v.Zoom, "zoom clamps at the maximum")

	for i := 0; i < 80; i++ {
		v = v.ZoomAt(screen, 0.9)
	}
	assert.Equal(t, MinZoom, v.Zoom)
	assertPointNear(t, anchor, v.ScreenToWorld(screen), 1e-9)
}

func TestZoomAt_InverseRestores(t *testing.T) {
	tests := []struct {
		name   string
		factor float64
	}{
		{"in", 1.5},
		{"out", 0.8},
		{"tiny", 1.0001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := New(170, 220, 800, 600)
			orig.Zoom = 1.7
			orig.Pan = geom.Pt(-12, 8)
			p := geom.Pt(400, 250)

			back := orig.ZoomAt(p, tt.factor).ZoomAt(p, 1/tt.factor)
			assert.InDelta(t, orig.Zoom, back.Zoom, 1e-12)
			assertPointNear(t, orig.Pan, back.Pan, 1e-9)
		})
	}
}

func TestZoomAt_IgnoresBadFactor(t *testing.T) {
	v := New(10, 10, 10, 10)
	assert.Equal(t, v, v.ZoomAt(geom.Pt(1, 1), 0))
	assert.Equal(t, v, v.ZoomAt(geom.Pt(1, 1), -2))
}

func TestZoomByWheel(t *testing.T) {
	v := New(100, 100, 100, 100)
	in := v.ZoomByWheel(geom.Pt(50, 50), -100)
	assert.InDelta(t, 1.2, in.Zoom, 1e-12)
	out := v.ZoomByWheel(geom.Pt(50, 50), 100)
	assert.InDelta(t, 0.8, out.Zoom, 1e-12)
}

func TestPan(t *testing.T) {
	v := New(100, 100, 200, 200)
	v = v.PanBy(geom.Pt(3, 4))
	assert.Equal(t, geom.Pt(3, 4), v.Pan)
	assert.Equal(t, 1.0, v.Zoom)

	v = v.WheelPan(10, -20)
	assert.Equal(t, geom.Pt(-2, 14), v.Pan)

	v = v.PanByScreen(geom.Pt(20, 0))
	assert.Equal(t, geom.Pt(8, 14), v.Pan)

	assert.Equal(t, New(100, 100, 200, 200), v.Reset())
}
