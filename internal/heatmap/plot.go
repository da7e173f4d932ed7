package heatmap

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotOptions controls PlotPNG.
type PlotOptions struct {
	Title    string
	Unit     string
	Min, Max float64
	Ramp     Ramp
	// WidthPx and HeightPx size the output image at 96 DPI.
	WidthPx  int
	HeightPx int
}

// rasterGrid adapts a Raster to plotter.GridXYZ.
type rasterGrid struct{ r *Raster }

func (g rasterGrid) Dims() (c, r int)   { return g.r.Width, g.r.Height }
func (g rasterGrid) Z(c, r int) float64 { return g.r.At(c, r) }
func (g rasterGrid) X(c int) float64    { return float64(c) }
func (g rasterGrid) Y(r int) float64    { return float64(r) }

type rampPalette []color.Color

func (p rampPalette) Colors() []color.Color { return p }

var _ palette.Palette = rampPalette(nil)

// PlotPNG writes a labelled chart of r with meter axes. The y axis grows
// downwards to match floor-plan coordinates.
func PlotPNG(w io.Writer, r *Raster, o PlotOptions) error {
	if r.Width < 2 || r.Height < 2 {
		return fmt.Errorf("raster %dx%d too small to plot", r.Width, r.Height)
	}
	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	p.Y.Scale = plot.InvertedScale{Normalizer: p.Y.Scale}

	lo, hi := o.Min, o.Max
	if math.IsNaN(lo) || math.IsNaN(hi) || hi <= lo {
		hi = lo + 1
	}
	hm := plotter.NewHeatMap(rasterGrid{r}, rampPalette(o.Ramp.Palette(64)))
	hm.Min, hm.Max = lo, hi
	hm.NaN = color.Transparent
	hm.Underflow = o.Ramp.At(0)
	hm.Overflow = o.Ramp.At(1)
	p.Add(hm)

	wpx, hpx := o.WidthPx, o.HeightPx
	if wpx <= 0 {
		wpx = 800
	}
	if hpx <= 0 {
		hpx = int(float64(wpx) * float64(r.Height) / float64(r.Width))
	}
	wt, err := p.WriterTo(vg.Length(wpx)*vg.Inch/96, vg.Length(hpx)*vg.Inch/96, "png")
	if err != nil {
		return fmt.Errorf("failed to create plot writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
