package heatmap

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/twin.report/internal/geom"
)

// Raster is a row-major grid of values, NaN where undefined.
type Raster struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Values []float64 `json:"-"`
}

// NewRaster returns a w x h raster with every cell missing.
func NewRaster(w, h int) *Raster {
	v := make([]float64, w*h)
	for i := range v {
		v[i] = math.NaN()
	}
	return &Raster{Width: w, Height: h, Values: v}
}

// In reports whether (x, y) addresses a cell.
func (r *Raster) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < r.Width && y < r.Height
}

// At returns the value of cell (x, y), or NaN outside the raster.
func (r *Raster) At(x, y int) float64 {
	if !r.In(x, y) {
		return math.NaN()
	}
	return r.Values[y*r.Width+x]
}

// Set stores v at (x, y). Out-of-range writes are ignored.
func (r *Raster) Set(x, y int, v float64) {
	if r.In(x, y) {
		r.Values[y*r.Width+x] = v
	}
}

// Defined returns the non-missing values in row-major order.
func (r *Raster) Defined() []float64 {
	out := make([]float64, 0, len(r.Values))
	for _, v := range r.Values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Stats summarises the defined cells of a raster.
type Stats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	Defined int     `json:"defined"`
	Total   int     `json:"total"`
}

// Stats computes min, max and mean over defined cells. With no defined cells
// Min, Max and Mean are NaN.
func (r *Raster) Stats() Stats {
	vals := r.Defined()
	s := Stats{Defined: len(vals), Total: len(r.Values)}
	if len(vals) == 0 {
		s.Min, s.Max, s.Mean = math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Min = floats.Min(vals)
	s.Max = floats.Max(vals)
	s.Mean = stat.Mean(vals, nil)
	return s
}

// Sample is the result of averaging a region.
type Sample struct {
	Average float64 `json:"average"`
	Count   int     `json:"sample_count"`
}

// SampleRect averages the defined cells covered by rect. The rectangle
// corners are floored to cell indices and clamped to the raster, both ends
// inclusive. ok is false when no covered cell is defined.
func (r *Raster) SampleRect(rect geom.Rect) (Sample, bool) {
	if r.Width == 0 || r.Height == 0 || !rect.Min.IsFinite() || !rect.Max.IsFinite() {
		return Sample{}, false
	}
	x0 := clampIndex(math.Floor(math.Min(rect.Min.X, rect.Max.X)), r.Width)
	x1 := clampIndex(math.Floor(math.Max(rect.Min.X, rect.Max.X)), r.Width)
	y0 := clampIndex(math.Floor(math.Min(rect.Min.Y, rect.Max.Y)), r.Height)
	y1 := clampIndex(math.Floor(math.Max(rect.Min.Y, rect.Max.Y)), r.Height)

	var vals []float64
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if v := r.Values[y*r.Width+x]; !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return Sample{}, false
	}
	return Sample{Average: stat.Mean(vals, nil), Count: len(vals)}, true
}

func clampIndex(v float64, n int) int {
	return int(geom.Clamp(v, 0, float64(n-1)))
}
