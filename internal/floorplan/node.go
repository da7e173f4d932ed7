package floorplan

import (
	"time"

	"github.com/banshee-data/twin.report/internal/geom"
	"github.com/banshee-data/twin.report/internal/heatmap"
)

// Node defaults applied when a node is created without explicit values.
const (
	DefaultCoverageRadius = 15.0
	DefaultPointSize      = 6.0
)

// SensorNode is a physical sensor. X and Y are nil while the node is
// unplaced.
type SensorNode struct {
	ID             int64    `json:"id"`
	DeviceID       string   `json:"device_id"`
	Name           string   `json:"name"`
	Location       string   `json:"location,omitempty"`
	X              *float64 `json:"x"`
	Y              *float64 `json:"y"`
	CoverageRadius float64  `json:"coverage_radius"`
	PointSize      float64  `json:"point_size"`
	Active         bool     `json:"is_active"`
	CanvasID       *int64   `json:"canvas_id"`
}

// Position returns the node's location. ok is false for unplaced nodes and
// nodes with non-finite coordinates.
func (n SensorNode) Position() (geom.Point, bool) {
	if n.X == nil || n.Y == nil {
		return geom.Point{}, false
	}
	p := geom.Pt(*n.X, *n.Y)
	return p, p.IsFinite()
}

// Placed reports whether the node has a usable position.
func (n SensorNode) Placed() bool {
	_, ok := n.Position()
	return ok
}

// WithPosition returns a copy of n placed at p.
func (n SensorNode) WithPosition(p geom.Point) SensorNode {
	x, y := p.X, p.Y
	n.X, n.Y = &x, &y
	return n
}

// Unplaced returns a copy of n with its position and canvas cleared.
func (n SensorNode) Unplaced() SensorNode {
	n.X, n.Y = nil, nil
	n.CanvasID = nil
	return n
}

// Reading is one timestamped sample from a node. Values is keyed by channel
// (see package units).
type Reading struct {
	ID        int64              `json:"id,omitempty"`
	NodeID    int64              `json:"node_id"`
	Timestamp time.Time          `json:"ts"`
	Values    map[string]float64 `json:"values"`
}

// Value returns the finite value of channel, if present.
func (r Reading) Value(channel string) (float64, bool) {
	v, ok := r.Values[channel]
	if !ok || !finite(v) {
		return 0, false
	}
	return v, true
}

// Sources joins nodes with their latest readings into heatmap sources.
// Inactive, unplaced and valueless nodes are skipped.
func Sources(nodes []SensorNode, latest map[int64]Reading, channel string) []heatmap.Source {
	out := make([]heatmap.Source, 0, len(nodes))
	for _, n := range nodes {
		if !n.Active {
			continue
		}
		p, ok := n.Position()
		if !ok {
			continue
		}
		r, ok := latest[n.ID]
		if !ok {
			continue
		}
		v, ok := r.Value(channel)
		if !ok {
			continue
		}
		radius := n.CoverageRadius
		if !finite(radius) || radius < 0 {
			continue
		}
		out = append(out, heatmap.Source{X: p.X, Y: p.Y, Value: v, Radius: radius})
	}
	return out
}
