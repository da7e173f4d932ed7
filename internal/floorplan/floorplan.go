// Package floorplan is the in-memory domain model of a monitored facility:
// the floor plan itself, the sensor nodes placed on it, their readings, the
// walls that occlude interpolation and the decorative elements drawn on top.
package floorplan

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/twin.report/internal/geom"
)

// ErrInvalidGeometry marks degenerate or non-finite geometry.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Default floor-plan size in meters.
const (
	DefaultWidth  = 170.0
	DefaultHeight = 220.0
)

// MaxSide bounds each floor-plan dimension in meters so a full raster stays
// within heatmap.MaxCells.
const MaxSide = 2000.0

// FloorPlan is a canvas: the rectangle every other entity lives in.
type FloorPlan struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Validate rejects non-positive, non-finite or oversized dimensions.
func (f FloorPlan) Validate() error {
	if !finite(f.Width) || !finite(f.Height) || f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: floor plan size %vx%v", ErrInvalidGeometry, f.Width, f.Height)
	}
	if f.Width > MaxSide || f.Height > MaxSide {
		return fmt.Errorf("%w: floor plan size %vx%v exceeds %v m per side", ErrInvalidGeometry, f.Width, f.Height, MaxSide)
	}
	return nil
}

// Bounds returns the floor-plan rectangle anchored at the origin.
func (f FloorPlan) Bounds() geom.Rect {
	return geom.Rect{Max: geom.Pt(f.Width, f.Height)}
}

// RasterSize returns the heatmap raster dimensions, one cell per meter.
func (f FloorPlan) RasterSize() (w, h int) {
	if !finite(f.Width) || !finite(f.Height) {
		return 0, 0
	}
	return max(0, int(math.Round(f.Width))), max(0, int(math.Round(f.Height)))
}

// Clamp moves p inside the floor plan.
func (f FloorPlan) Clamp(p geom.Point) geom.Point {
	return f.Bounds().ClampPoint(p)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteAll(vs ...float64) bool {
	for _, v := range vs {
		if !finite(v) {
			return false
		}
	}
	return true
}
