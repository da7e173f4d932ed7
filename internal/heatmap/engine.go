// Package heatmap turns scattered sensor readings into a scalar raster using
// inverse distance weighting that respects occluding walls.
//
// The raster has one cell per meter. Cell (gx, gy) is sampled at the integer
// grid point (gx, gy) in floor-plan coordinates. A cell is defined only when
// at least one source is within range and visible from it; otherwise it holds
// NaN.
package heatmap

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/twin.report/internal/geom"
)

// WeightEpsilon keeps the weight finite when a cell coincides with a source.
const WeightEpsilon = 0.01

// MaxCells bounds a single computation. Floor plans are at most a few
// hundred meters per side.
const MaxCells = 4_000_000

// visibleDistance is the distance under which a source is always visible
// from a cell, even when a wall passes through the source itself.
const visibleDistance = 1e-9

var (
	// ErrInvalidParams is returned when Params fail validation.
	ErrInvalidParams = errors.New("invalid heatmap parameters")
	// ErrRasterTooLarge is returned when W*H exceeds MaxCells.
	ErrRasterTooLarge = errors.New("raster too large")
)

// Source is a point sensor with a value and an influence radius in meters.
type Source struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Value  float64 `json:"value"`
	Radius float64 `json:"radius"`
}

func (s Source) valid() bool {
	for _, v := range []float64{s.X, s.Y, s.Value, s.Radius} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return s.Radius >= 0
}

// Params are the interpolation parameters.
type Params struct {
	// Power is the IDW distance exponent. 2 is inverse-square.
	Power float64 `json:"power"`
	// RadiusMultiplier scales every source radius.
	RadiusMultiplier float64 `json:"radius_multiplier"`
}

// DefaultParams returns inverse-square weighting at native radius.
func DefaultParams() Params {
	return Params{Power: 2, RadiusMultiplier: 1}
}

// Validate checks power >= 1 and radius multiplier > 0.
func (p Params) Validate() error {
	if math.IsNaN(p.Power) || math.IsInf(p.Power, 0) || p.Power < 1 {
		return fmt.Errorf("%w: power must be >= 1, got %v", ErrInvalidParams, p.Power)
	}
	if math.IsNaN(p.RadiusMultiplier) || math.IsInf(p.RadiusMultiplier, 0) || p.RadiusMultiplier <= 0 {
		return fmt.Errorf("%w: radius multiplier must be > 0, got %v", ErrInvalidParams, p.RadiusMultiplier)
	}
	return nil
}

// Input is everything one computation depends on.
type Input struct {
	Sources []Source
	Walls   []geom.Segment
	Width   int
	Height  int
	Params  Params
}

// Weight returns the IDW weight for a source at distance d.
func Weight(d, power float64) float64 {
	if power == 2 {
		return 1 / (d*d + WeightEpsilon)
	}
	return 1 / (math.Pow(d, power) + WeightEpsilon)
}

// Compute builds the raster for in. Sources with non-finite fields and
// degenerate walls are ignored. The context is checked between rows so a
// superseded computation stops early with ctx.Err().
func Compute(ctx context.Context, in Input) (*Raster, error) {
	if err := in.Params.Validate(); err != nil {
		return nil, err
	}
	if in.Width < 0 || in.Height < 0 {
		return nil, fmt.Errorf("%w: negative raster size %dx%d", ErrInvalidParams, in.Width, in.Height)
	}
	if in.Height > 0 && in.Width > MaxCells/in.Height {
		return nil, fmt.Errorf("%w: %dx%d", ErrRasterTooLarge, in.Width, in.Height)
	}

	r := NewRaster(in.Width, in.Height)
	n := in.Width * in.Height
	if n == 0 {
		return r, nil
	}

	walls := make([]geom.Segment, 0, len(in.Walls))
	for _, w := range in.Walls {
		if !w.IsDegenerate() {
			walls = append(walls, w)
		}
	}

	sumW := make([]float64, n)
	sumWV := make([]float64, n)
	var nearby []geom.Segment

	for _, src := range in.Sources {
		if !src.valid() {
			continue
		}
		radius := src.Radius * in.Params.RadiusMultiplier
		at := geom.Pt(src.X, src.Y)
		reach := geom.Rect{Min: at, Max: at}.Expand(radius)

		// A wall can only block a sight line inside the source's reach box.
		nearby = nearby[:0]
		for _, w := range walls {
			if w.Bounds().Overlaps(reach) {
				nearby = append(nearby, w)
			}
		}

		x0 := max(0, int(math.Ceil(reach.Min.X)))
		x1 := min(in.Width-1, int(math.Floor(reach.Max.X)))
		y0 := max(0, int(math.Ceil(reach.Min.Y)))
		y1 := min(in.Height-1, int(math.Floor(reach.Max.Y)))

		for gy := y0; gy <= y1; gy++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for gx := x0; gx <= x1; gx++ {
				cell := geom.Pt(float64(gx), float64(gy))
				d := cell.Distance(at)
				if d > radius {
					continue
				}
				if d >= visibleDistance && occluded(cell, at, nearby) {
					continue
				}
				w := Weight(d, in.Params.Power)
				i := gy*in.Width + gx
				sumW[i] += w
				sumWV[i] += w * src.Value
			}
		}
	}

	for i := range sumW {
		if sumW[i] > 0 {
			r.Values[i] = sumWV[i] / sumW[i]
		}
	}
	return r, nil
}

func occluded(a, b geom.Point, walls []geom.Segment) bool {
	for _, w := range walls {
		if geom.SegmentsIntersect(a, b, w.A, w.B) {
			return true
		}
	}
	return false
}
