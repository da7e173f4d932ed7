package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/banshee-data/twin.report/internal/editor"
	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/geom"
	"github.com/banshee-data/twin.report/internal/heatmap"
	"github.com/banshee-data/twin.report/internal/httputil"
	"github.com/banshee-data/twin.report/internal/monitoring"
	"github.com/banshee-data/twin.report/internal/units"
)

// Default plot size in pixels.
const (
	defaultPlotWidth  = 800
	defaultPlotHeight = 600
	maxPlotSide       = 4096
)

func queryFloat(q url.Values, name string) (*float64, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &f, nil
}

// heatmapConfig starts from the configured defaults and applies the query
// overrides channel, power, radius_multiplier, opacity, min and max.
func (s *Server) heatmapConfig(q url.Values) (floorplan.HeatmapConfig, error) {
	cfg := s.cfg.Heatmap()
	if ch := q.Get("channel"); ch != "" {
		cfg.Channel = ch
	}
	for name, dst := range map[string]*float64{
		"power":             &cfg.Power,
		"radius_multiplier": &cfg.RadiusMultiplier,
	} {
		v, err := queryFloat(q, name)
		if err != nil {
			return cfg, err
		}
		if v != nil {
			*dst = *v
		}
	}
	if v := q.Get("opacity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 255 {
			return cfg, fmt.Errorf("opacity must be an integer between 0 and 255")
		}
		cfg.Opacity = uint8(n)
	}
	var err error
	if cfg.Min, err = queryFloat(q, "min"); err != nil {
		return cfg, err
	}
	if cfg.Max, err = queryFloat(q, "max"); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// computeHeatmap interpolates the stored scene of canvasID.
func (s *Server) computeHeatmap(ctx context.Context, canvasID int64, cfg floorplan.HeatmapConfig) (floorplan.Scene, *heatmap.Raster, error) {
	scene, err := s.db.LoadScene(ctx, canvasID)
	if err != nil {
		return floorplan.Scene{}, nil, err
	}
	latest, err := s.db.LatestReadings(ctx)
	if err != nil {
		return floorplan.Scene{}, nil, err
	}
	defer monitoring.Timed("heatmap canvas %d %s", canvasID, cfg.Channel)()
	r, err := heatmap.Compute(ctx, scene.HeatmapInput(latest, cfg))
	if err != nil {
		return floorplan.Scene{}, nil, err
	}
	return scene, r, nil
}

// canvasHeatmap parses the overrides and computes the raster, writing the
// error response itself when it fails.
func (s *Server) canvasHeatmap(w http.ResponseWriter, r *http.Request, canvasID int64) (floorplan.HeatmapConfig, floorplan.Scene, *heatmap.Raster, bool) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return floorplan.HeatmapConfig{}, floorplan.Scene{}, nil, false
	}
	cfg, err := s.heatmapConfig(r.URL.Query())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return cfg, floorplan.Scene{}, nil, false
	}
	scene, raster, err := s.computeHeatmap(r.Context(), canvasID, cfg)
	if err != nil {
		if errors.Is(err, heatmap.ErrRasterTooLarge) || errors.Is(err, heatmap.ErrInvalidParams) {
			httputil.BadRequest(w, err.Error())
		} else {
			writeStoreError(w, err, "Canvas")
		}
		return cfg, scene, nil, false
	}
	return cfg, scene, raster, true
}

// writeImage buffers the rendered body so a failed render still gets an
// error status.
func writeImage(w http.ResponseWriter, contentType string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		log.Printf("failed to render heatmap: %v", err)
		httputil.InternalServerError(w, "Failed to render heatmap")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// heatmapPNG serves the raster as the translucent overlay image, one pixel
// per meter.
func (s *Server) heatmapPNG(w http.ResponseWriter, r *http.Request, canvasID int64) {
	cfg, _, raster, ok := s.canvasHeatmap(w, r, canvasID)
	if !ok {
		return
	}
	opts, err := cfg.ColorOptions()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	writeImage(w, "image/png", func(buf *bytes.Buffer) error {
		return png.Encode(buf, heatmap.Colorize(raster, opts))
	})
}

func channelLabel(cfg floorplan.HeatmapConfig) (label, unit string) {
	ch, ok := units.Lookup(cfg.Channel)
	if !ok {
		return cfg.Channel, ""
	}
	return ch.Label, ch.Unit
}

// heatmapPlot serves a gonum/plot chart of the raster with a colour legend.
func (s *Server) heatmapPlot(w http.ResponseWriter, r *http.Request, canvasID int64) {
	q := r.URL.Query()
	size := map[string]int{"width": defaultPlotWidth, "height": defaultPlotHeight}
	for name := range size {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > maxPlotSide {
				httputil.BadRequest(w, fmt.Sprintf("%s must be between 1 and %d", name, maxPlotSide))
				return
			}
			size[name] = n
		}
	}
	cfg, scene, raster, ok := s.canvasHeatmap(w, r, canvasID)
	if !ok {
		return
	}
	ramp, err := cfg.Ramp()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	lo, hi := cfg.Range()
	label, unit := channelLabel(cfg)
	writeImage(w, "image/png", func(buf *bytes.Buffer) error {
		return heatmap.PlotPNG(buf, raster, heatmap.PlotOptions{
			Title:    scene.Plan.Name + " " + label,
			Unit:     unit,
			Min:      lo,
			Max:      hi,
			Ramp:     ramp,
			WidthPx:  size["width"],
			HeightPx: size["height"],
		})
	})
}

// heatmapHTML serves an interactive go-echarts page of the raster.
func (s *Server) heatmapHTML(w http.ResponseWriter, r *http.Request, canvasID int64) {
	cfg, scene, raster, ok := s.canvasHeatmap(w, r, canvasID)
	if !ok {
		return
	}
	ramp, err := cfg.Ramp()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	lo, hi := cfg.Range()
	label, unit := channelLabel(cfg)
	writeImage(w, "text/html; charset=utf-8", func(buf *bytes.Buffer) error {
		return heatmap.RenderHTML(buf, raster, heatmap.HTMLOptions{
			Title:    scene.Plan.Name,
			Subtitle: fmt.Sprintf("%s (%s)", label, unit),
			Min:      lo,
			Max:      hi,
			Ramp:     ramp,
		})
	})
}

// heatmapStats summarises the defined cells. Statistics of an empty raster
// are null.
func (s *Server) heatmapStats(w http.ResponseWriter, r *http.Request, canvasID int64) {
	cfg, _, raster, ok := s.canvasHeatmap(w, r, canvasID)
	if !ok {
		return
	}
	st := raster.Stats()
	_, unit := channelLabel(cfg)
	body := httputil.Envelope{"defined": st.Defined, "total": st.Total, "unit": unit,
		"min": nil, "max": nil, "mean": nil}
	if st.Defined > 0 {
		body["min"], body["max"], body["mean"] = st.Min, st.Max, st.Mean
	}
	httputil.WriteOK(w, body)
}

// inspect averages the heatmap over the rectangle x1,y1 to x2,y2 in meters.
// A region with no data yields a null result rather than an error.
func (s *Server) inspect(w http.ResponseWriter, r *http.Request, canvasID int64) {
	q := r.URL.Query()
	var corners [4]float64
	for i, name := range []string{"x1", "y1", "x2", "y2"} {
		v, err := queryFloat(q, name)
		if err != nil || v == nil {
			httputil.BadRequest(w, "x1, y1, x2, y2 must be numbers")
			return
		}
		corners[i] = *v
	}
	cfg, _, raster, ok := s.canvasHeatmap(w, r, canvasID)
	if !ok {
		return
	}
	rect := geom.RectFromPoints(geom.Pt(corners[0], corners[1]), geom.Pt(corners[2], corners[3]))
	sample, found := raster.SampleRect(rect)
	if !found {
		httputil.WriteJSONOK(w, "result", nil)
		return
	}
	_, unit := channelLabel(cfg)
	httputil.WriteJSONOK(w, "result", editor.InspectResult{
		Average:     sample.Average,
		Unit:        unit,
		SampleCount: sample.Count,
		Rect:        rect,
	})
}
