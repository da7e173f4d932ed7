package floorplan

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/twin.report/internal/geom"
	"github.com/banshee-data/twin.report/internal/heatmap"
	"github.com/banshee-data/twin.report/internal/units"
)

func floatPtr(v float64) *float64 { return &v }
func strPtr(s string) *string     { return &s }

func TestFloorPlan(t *testing.T) {
	f := FloorPlan{Width: 170.4, Height: 219.6}
	w, h := f.RasterSize()
	assert.Equal(t, 170, w)
	assert.Equal(t, 220, h)
	assert.Equal(t, geom.Pt(170.4, 0), f.Clamp(geom.Pt(500, -3)))
	assert.NoError(t, f.Validate())

	assert.ErrorIs(t, FloorPlan{Width: 0, Height: 10}.Validate(), ErrInvalidGeometry)
	assert.ErrorIs(t, FloorPlan{Width: math.Inf(1), Height: 10}.Validate(), ErrInvalidGeometry)
	assert.ErrorIs(t, FloorPlan{Width: 1 << 32, Height: 1 << 32}.Validate(), ErrInvalidGeometry)
	assert.NoError(t, FloorPlan{Width: MaxSide, Height: MaxSide}.Validate())
}

func TestSensorNodePosition(t *testing.T) {
	n := SensorNode{ID: 1}
	assert.False(t, n.Placed())

	n = n.WithPosition(geom.Pt(3, 4))
	p, ok := n.Position()
	assert.True(t, ok)
	assert.Equal(t, geom.Pt(3, 4), p)

	n.X = floatPtr(math.NaN())
	assert.False(t, n.Placed(), "non-finite positions are treated as unplaced")
	assert.False(t, n.Unplaced().Placed())
}

func TestSources(t *testing.T) {
	nodes := []SensorNode{
		{ID: 1, Active: true, X: floatPtr(10), Y: floatPtr(20), CoverageRadius: 15},
		{ID: 2, Active: false, X: floatPtr(1), Y: floatPtr(1), CoverageRadius: 15},
		{ID: 3, Active: true, CoverageRadius: 15},
		{ID: 4, Active: true, X: floatPtr(5), Y: floatPtr(5), CoverageRadius: 15},
		{ID: 5, Active: true, X: floatPtr(7), Y: floatPtr(7), CoverageRadius: 8},
	}
	latest := map[int64]Reading{
		1: {NodeID: 1, Values: map[string]float64{units.TemperatureC: 22.5}},
		2: {NodeID: 2, Values: map[string]float64{units.TemperatureC: 30}},
		3: {NodeID: 3, Values: map[string]float64{units.TemperatureC: 30}},
		4: {NodeID: 4, Values: map[string]float64{units.HumidityPct: 40}},
		5: {NodeID: 5, Values: map[string]float64{units.TemperatureC: math.NaN()}},
	}
	got := Sources(nodes, latest, units.TemperatureC)
	want := []heatmap.Source{{X: 10, Y: 20, Value: 22.5, Radius: 15}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sources mismatch (-want +got):\n%s", diff)
	}
}

func TestWall(t *testing.T) {
	w := Wall{ID: 1, X1: 0, Y1: 0, X2: 3, Y2: 4}
	label, ok := w.LengthLabel()
	assert.True(t, ok)
	assert.Equal(t, "5.0m", label)
	assert.NoError(t, w.Validate())

	short := Wall{X1: 0, Y1: 0, X2: 0.5, Y2: 0}
	_, ok = short.LengthLabel()
	assert.False(t, ok)

	zero := Wall{X1: 2, Y1: 2, X2: 2, Y2: 2}
	_, ok = zero.LengthLabel()
	assert.False(t, ok)
	assert.ErrorIs(t, zero.Validate(), ErrInvalidGeometry)

	moved := w.WithSegment(w.Segment().Translate(geom.Pt(1, 1)))
	assert.Equal(t, Wall{ID: 1, X1: 1, Y1: 1, X2: 4, Y2: 5}, moved)
}

func TestDecodeElement(t *testing.T) {
	tests := []struct {
		name    string
		rec     ElementRecord
		want    Shape
		wantErr bool
	}{
		{"rect defaults", ElementRecord{Type: KindRect, X: 5, Y: 6}, Rect{Center: geom.Pt(5, 6), W: 10, H: 10}, false},
		{"rect sized", ElementRecord{Type: KindRect, X: 1, Y: 2, Width: floatPtr(4), Height: floatPtr(3)}, Rect{Center: geom.Pt(1, 2), W: 4, H: 3}, false},
		{"circle default radius", ElementRecord{Type: KindCircle, X: 1, Y: 1}, Circle{Center: geom.Pt(1, 1), R: 5}, false},
		{"triangle", ElementRecord{Type: KindTriangle, Points: []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 10}}},
			Triangle{V: [3]geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 10}}}, false},
		{"triangle missing point", ElementRecord{Type: KindTriangle, Points: []geom.Point{{X: 0, Y: 0}}}, nil, true},
		{"text default font", ElementRecord{Type: KindText, X: 2, Y: 3, Text: strPtr("Lab")}, Text{At: geom.Pt(2, 3), Content: "Lab", FontSize: 14}, false},
		{"icon default name", ElementRecord{Type: KindIcon, X: 2, Y: 3}, Icon{Center: geom.Pt(2, 3), W: 10, H: 10, Name: "door"}, false},
		{"unknown", ElementRecord{Type: "hexagon"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := DecodeElement(tt.rec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Shape)
			assert.Equal(t, DefaultFill, e.Style.Fill)
			assert.Equal(t, DefaultStroke, e.Style.Stroke)
		})
	}
}

func TestElementRecordRoundTrip(t *testing.T) {
	in := Element{
		ID:       7,
		CanvasID: 2,
		Style:    Style{Fill: "#ff0000", Stroke: "#000000", StrokeWidth: 1},
		Rotation: 45,
		Shape:    Text{At: geom.Pt(3, 4), Content: "Server room", FontSize: 18},
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"text"`)

	var out Element
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestDecodeElementNormalisesRotation(t *testing.T) {
	e, err := DecodeElement(ElementRecord{Type: KindRect, Rotation: -90})
	require.NoError(t, err)
	assert.Equal(t, 270.0, e.Rotation)
}

func TestElementTranslateAndValidate(t *testing.T) {
	tri := Element{Shape: Triangle{V: [3]geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 10}}}}
	moved := tri.MoveTo(geom.Pt(1, 1))
	assert.Equal(t, Triangle{V: [3]geom.Point{{X: 1, Y: 1}, {X: 11, Y: 1}, {X: 6, Y: 11}}}, moved.Shape)
	assert.NoError(t, moved.Validate())
	assert.False(t, moved.Rotatable())

	flat := Element{Shape: Triangle{V: [3]geom.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}}}}
	assert.ErrorIs(t, flat.Validate(), ErrInvalidGeometry)

	assert.ErrorIs(t, Element{Shape: Circle{R: 0}}.Validate(), ErrInvalidGeometry)
	assert.ErrorIs(t, Element{Shape: Text{FontSize: 14}}.Validate(), ErrInvalidGeometry)
	assert.ErrorIs(t, Element{Shape: Rect{W: 1, H: 1}, Rotation: math.NaN()}.Validate(), ErrInvalidGeometry)
	assert.True(t, Element{Shape: Icon{}}.Rotatable())
}

func TestHeatmapConfig(t *testing.T) {
	c := DefaultHeatmapConfig()
	require.NoError(t, c.Validate())
	lo, hi := c.Range()
	assert.Equal(t, 20.0, lo)
	assert.Equal(t, 45.0, hi)

	c.Min = floatPtr(18)
	lo, hi = c.Range()
	assert.Equal(t, 18.0, lo)
	assert.Equal(t, 45.0, hi)

	c.Channel = units.BatteryPct
	assert.Error(t, c.Validate())

	c = DefaultHeatmapConfig()
	c.Stops = []heatmap.Stop{{Color: "#000"}}
	assert.ErrorIs(t, c.Validate(), heatmap.ErrInvalidRamp)

	c = DefaultHeatmapConfig()
	c.Power = 0
	assert.ErrorIs(t, c.Validate(), heatmap.ErrInvalidParams)
}

func TestSceneHeatmapInput(t *testing.T) {
	s := Scene{
		Plan:  FloorPlan{Width: 20, Height: 10},
		Nodes: []SensorNode{{ID: 1, Active: true, X: floatPtr(5), Y: floatPtr(5), CoverageRadius: 15}},
		Walls: []Wall{{X1: 0, Y1: 0, X2: 1, Y2: 1}},
	}
	in := s.HeatmapInput(map[int64]Reading{1: {Values: map[string]float64{units.TemperatureC: 21}}}, DefaultHeatmapConfig())
	assert.Equal(t, 20, in.Width)
	assert.Equal(t, 10, in.Height)
	assert.Len(t, in.Sources, 1)
	assert.Equal(t, []geom.Segment{geom.Seg(0, 0, 1, 1)}, in.Walls)
	assert.Equal(t, heatmap.DefaultParams(), in.Params)
}
