package main

import (
	"context"
	"fmt"
	"image/png"
	"io"

	"github.com/banshee-data/twin.report/internal/db"
	"github.com/banshee-data/twin.report/internal/editor"
	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/heatmap"
	"github.com/banshee-data/twin.report/internal/render"
	"github.com/banshee-data/twin.report/internal/units"
)

// Output formats.
const (
	FormatOverlay = "overlay" // translucent raster, one pixel per meter
	FormatPlot    = "plot"    // gonum/plot chart with a colour legend
	FormatHTML    = "html"    // go-echarts page
	FormatFrame   = "frame"   // full floor plan as the editor draws it
)

// Options selects what to render.
type Options struct {
	CanvasID int64
	Format   string
	Heatmap  floorplan.HeatmapConfig
	// Width and Height size plot and frame output in pixels.
	Width, Height int
}

// RenderCanvas computes the heatmap of the stored canvas and writes it to w
// in o.Format.
func RenderCanvas(ctx context.Context, database *db.DB, o Options, w io.Writer) error {
	if err := o.Heatmap.Validate(); err != nil {
		return err
	}
	if o.Width <= 0 || o.Height <= 0 || o.Width > editor.MaxDisplaySide || o.Height > editor.MaxDisplaySide {
		return fmt.Errorf("output size %dx%d must be between 1 and %d", o.Width, o.Height, editor.MaxDisplaySide)
	}
	scene, err := database.LoadScene(ctx, o.CanvasID)
	if err != nil {
		return fmt.Errorf("failed to load canvas %d: %w", o.CanvasID, err)
	}
	latest, err := database.LatestReadings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load readings: %w", err)
	}
	raster, err := heatmap.Compute(ctx, scene.HeatmapInput(latest, o.Heatmap))
	if err != nil {
		return fmt.Errorf("failed to compute heatmap: %w", err)
	}

	ramp, err := o.Heatmap.Ramp()
	if err != nil {
		return err
	}
	lo, hi := o.Heatmap.Range()
	label, unit := o.Heatmap.Channel, ""
	if ch, ok := units.Lookup(o.Heatmap.Channel); ok {
		label, unit = ch.Label, ch.Unit
	}

	switch o.Format {
	case FormatOverlay:
		opts, err := o.Heatmap.ColorOptions()
		if err != nil {
			return err
		}
		return png.Encode(w, heatmap.Colorize(raster, opts))
	case FormatPlot:
		return heatmap.PlotPNG(w, raster, heatmap.PlotOptions{
			Title:    scene.Plan.Name + " " + label,
			Unit:     unit,
			Min:      lo,
			Max:      hi,
			Ramp:     ramp,
			WidthPx:  o.Width,
			HeightPx: o.Height,
		})
	case FormatHTML:
		return heatmap.RenderHTML(w, raster, heatmap.HTMLOptions{
			Title:    scene.Plan.Name,
			Subtitle: fmt.Sprintf("%s (%s)", label, unit),
			Min:      lo,
			Max:      hi,
			Ramp:     ramp,
		})
	case FormatFrame:
		ed := editor.New(scene.Plan, float64(o.Width), float64(o.Height), nil)
		ed.Load(scene)
		ed.SetReadings(latest)
		if err := ed.SetHeatmapConfig(o.Heatmap); err != nil {
			return err
		}
		ed.SetRaster(1, raster)
		comp := render.NewCompositor()
		comp.Tick(ed.Snapshot())
		return comp.WritePNG(w)
	default:
		return fmt.Errorf("unknown format %q: expected overlay, plot, html or frame", o.Format)
	}
}
