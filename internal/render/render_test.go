package render

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/twin.report/internal/editor"
	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/geom"
	"github.com/banshee-data/twin.report/internal/heatmap"
	"github.com/banshee-data/twin.report/internal/hittest"
)

func fp(v float64) *float64 { return &v }

// newScene returns an editor with a 100 m square plan on a 200 px display,
// so one meter is two pixels.
func newScene(t *testing.T) *editor.Editor {
	t.Helper()
	plan := floorplan.FloorPlan{ID: 1, Name: "Lab", Width: 100, Height: 100}
	ed := editor.New(plan, 200, 200, nil)
	ed.Load(floorplan.Scene{
		Plan: plan,
		Nodes: []floorplan.SensorNode{
			{ID: 1, DeviceID: "esp-1", X: fp(20), Y: fp(20), PointSize: 6, Active: true},
			{ID: 2, DeviceID: "esp-2", X: fp(math.NaN()), Y: fp(10), PointSize: 6, Active: true},
		},
		Walls: []floorplan.Wall{{ID: 10, CanvasID: 1, X1: 10, Y1: 50, X2: 90, Y2: 50}},
	})
	return ed
}

func rgbaAt(t *testing.T, c *Compositor, x, y int) color.RGBA {
	t.Helper()
	img := c.Latest()
	require.NotNil(t, img)
	return img.RGBAAt(x, y)
}

func opaque(c color.NRGBA) color.RGBA {
	return color.RGBA{c.R, c.G, c.B, c.A}
}

func TestCompositor_TickSkipsCleanFrames(t *testing.T) {
	ed := newScene(t)
	c := NewCompositor()

	assert.Nil(t, c.Latest())
	assert.True(t, c.Tick(ed.Snapshot()))
	assert.False(t, c.Tick(ed.Snapshot()), "unchanged snapshot must not redraw")
	assert.Equal(t, uint64(1), c.Frames())

	ed.Select(hittest.Selection{Kind: hittest.Wall, ID: 10})
	assert.True(t, c.Tick(ed.Snapshot()), "selection change is visible")

	r := heatmap.NewRaster(100, 100)
	require.True(t, ed.SetRaster(1, r))
	assert.True(t, c.Tick(ed.Snapshot()), "new raster generation is visible")

	ed.ResizeDisplay(300, 300)
	assert.True(t, c.Tick(ed.Snapshot()))
	assert.Equal(t, uint64(4), c.Frames())
	assert.Equal(t, 300, c.Latest().Bounds().Dx())
}

func TestCompositor_DrawsGeometry(t *testing.T) {
	ed := newScene(t)
	c := NewCompositor()
	c.Tick(ed.Snapshot())

	assert.Equal(t, opaque(FloorColor), rgbaAt(t, c, 150, 150), "empty floor")
	assert.Equal(t, opaque(WallColor), rgbaAt(t, c, 100, 100), "wall midpoint")
	assert.Equal(t, opaque(NodeActive), rgbaAt(t, c, 40, 40), "node centre")
}

func TestCompositor_HeatmapOverlay(t *testing.T) {
	ed := newScene(t)
	require.NoError(t, ed.SetHeatmapConfig(floorplan.DefaultHeatmapConfig()))
	r := heatmap.NewRaster(100, 100)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			r.Set(x, y, 45)
		}
	}
	ed.SetRaster(1, r)

	c := NewCompositor()
	c.Tick(ed.Snapshot())
	assert.NotEqual(t, opaque(FloorColor), rgbaAt(t, c, 150, 150))

	cfg := floorplan.DefaultHeatmapConfig()
	cfg.Enabled = false
	require.NoError(t, ed.SetHeatmapConfig(cfg))
	c.Tick(ed.Snapshot())
	assert.Equal(t, opaque(FloorColor), rgbaAt(t, c, 150, 150), "disabled overlay is not drawn")
}

func TestCompositor_PreviewAndInspect(t *testing.T) {
	ed := newScene(t)
	ed.SetMode(editor.ModeWall)
	ed.PointerDown(geom.Pt(20, 160), editor.ButtonPrimary)
	ed.PointerUp(geom.Pt(20, 160))
	ed.PointerMove(geom.Pt(180, 160))

	c := NewCompositor()
	c.Tick(ed.Snapshot())
	assert.Equal(t, opaque(PreviewColor), rgbaAt(t, c, 100, 160), "wall preview")

	ed.SetMode(editor.ModeInspect)
	ed.PointerDown(geom.Pt(120, 120), editor.ButtonPrimary)
	ed.PointerMove(geom.Pt(180, 180))
	c.Tick(ed.Snapshot())
	assert.NotEqual(t, opaque(FloorColor), rgbaAt(t, c, 150, 150), "inspect band is tinted")
}

func TestCompositor_AllElementKinds(t *testing.T) {
	ed := newScene(t)
	plan := floorplan.FloorPlan{ID: 1, Name: "Lab", Width: 100, Height: 100}
	style := floorplan.DefaultStyle()
	ed.Load(floorplan.Scene{
		Plan: plan,
		Elements: []floorplan.Element{
			{ID: 1, Style: style, Shape: floorplan.Rect{Center: geom.Pt(20, 80), W: 10, H: 6}, Rotation: 30},
			{ID: 2, Style: style, Shape: floorplan.Circle{Center: geom.Pt(50, 80), R: 5}},
			{ID: 3, Style: style, Shape: floorplan.Triangle{V: [3]geom.Point{{X: 70, Y: 70}, {X: 80, Y: 90}, {X: 60, Y: 90}}}},
			{ID: 4, Style: style, Shape: floorplan.Text{At: geom.Pt(10, 10), Content: "Lobby", FontSize: 14}},
			{ID: 5, Style: style, Shape: floorplan.Icon{Center: geom.Pt(90, 20), W: 10, H: 10, Name: "door"}},
			{ID: 6, Style: floorplan.Style{Fill: "not-a-colour"}, Shape: floorplan.Circle{Center: geom.Pt(math.Inf(1), 0), R: 1}},
		},
	})
	ed.Select(hittest.Selection{Kind: hittest.Element, ID: 1})

	c := NewCompositor()
	require.True(t, c.Tick(ed.Snapshot()))
	assert.NotEqual(t, opaque(FloorColor), rgbaAt(t, c, 100, 160), "circle fill")
	assert.NotEqual(t, opaque(FloorColor), rgbaAt(t, c, 40, 160), "rect fill")

	var buf bytes.Buffer
	require.NoError(t, c.WritePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestCompositor_WritePNGBeforeTick(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewCompositor().WritePNG(&buf))
}

func TestFaces_ClampsAndCaches(t *testing.T) {
	var f faces
	a := f.get(2)
	b := f.get(minFontPx)
	assert.Same(t, a, b)
	assert.NotNil(t, f.get(500))
}
