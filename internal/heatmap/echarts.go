package heatmap

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// EchartsAssetsHost serves the echarts JavaScript. It is a variable so the
// API can point it at a local mirror.
var EchartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// HTMLOptions controls RenderHTML.
type HTMLOptions struct {
	Title    string
	Subtitle string
	Min, Max float64
	Ramp     Ramp
}

// RenderHTML writes an interactive heat map page of r. Missing cells are
// omitted from the series.
func RenderHTML(w io.Writer, r *Raster, o HTMLOptions) error {
	xs := make([]string, r.Width)
	for i := range xs {
		xs[i] = strconv.Itoa(i)
	}
	// Category axes run bottom to top; label them so row 0 is at the top.
	ys := make([]string, r.Height)
	for j := range ys {
		ys[j] = strconv.Itoa(r.Height - 1 - j)
	}

	data := make([]opts.HeatMapData, 0, len(r.Values))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			v := r.At(x, y)
			if math.IsNaN(v) {
				continue
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{x, r.Height - 1 - y, math.Round(v*100) / 100}})
		}
	}

	colors := make([]string, 0, 5)
	for _, c := range o.Ramp.Palette(5) {
		colors = append(colors, HexColor(toNRGBA(c)))
	}

	lo, hi := o.Min, o.Max
	if hi <= lo {
		hi = lo + 1
	}
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "900px", Height: "900px", AssetsHost: EchartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "x (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ys, Name: "y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			InRange:    &opts.VisualMapInRange{Color: colors},
		}),
	)
	hm.SetXAxis(xs).AddSeries("heatmap", data)

	if err := hm.Render(w); err != nil {
		return fmt.Errorf("failed to render heatmap chart: %w", err)
	}
	return nil
}
