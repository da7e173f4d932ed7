package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/banshee-data/twin.report/internal/httputil"
	"github.com/banshee-data/twin.report/internal/monitoring"
	"github.com/banshee-data/twin.report/internal/units"
)

// Device is one simulated sensor node. Values drift as a bounded random
// walk around Base.
type Device struct {
	ID     string
	X, Y   float64
	Base   map[string]float64
	values map[string]float64
}

// Simulator posts readings for a fleet of devices to a twin server.
type Simulator struct {
	client   httputil.HTTPClient
	baseURL  string
	canvasID int64
	devices  []*Device
	rng      *rand.Rand
}

// NewSimulator lays out n devices on a grid over a width x height floor.
func NewSimulator(c httputil.HTTPClient, baseURL string, canvasID int64, n int, width, height float64, seed uint64) *Simulator {
	s := &Simulator{
		client:   c,
		baseURL:  strings.TrimRight(baseURL, "/"),
		canvasID: canvasID,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	if cols < 1 {
		cols = 1
	}
	rows := (n + cols - 1) / cols
	for i := 0; i < n; i++ {
		col, row := i%cols, i/cols
		s.devices = append(s.devices, &Device{
			ID: fmt.Sprintf("sim-%02d", i+1),
			X:  width * (float64(col) + 0.5) / float64(cols),
			Y:  height * (float64(row) + 0.5) / float64(rows),
			Base: map[string]float64{
				units.TemperatureC: 21 + 4*s.rng.Float64(),
				units.HumidityPct:  40 + 20*s.rng.Float64(),
				units.ECO2PPM:      450 + 300*s.rng.Float64(),
			},
		})
	}
	return s
}

// Devices returns the simulated fleet.
func (s *Simulator) Devices() []*Device { return s.devices }

// Register creates and places every device on the canvas. Devices the
// server already knows are left as they are.
func (s *Simulator) Register(ctx context.Context) error {
	for _, d := range s.devices {
		body := map[string]interface{}{
			"device_id": d.ID,
			"name":      d.ID,
			"x":         d.X,
			"y":         d.Y,
			"canvas_id": s.canvasID,
		}
		err := httputil.PostJSON(ctx, s.client, s.baseURL+"/api/nodes", body, nil)
		var apiErr *httputil.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
			monitoring.Logf("device %s already registered", d.ID)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", d.ID, err)
		}
	}
	return nil
}

// next advances the device's random walk, keeping each channel within the
// channel's nominal range.
func (s *Simulator) next(d *Device) map[string]float64 {
	if d.values == nil {
		d.values = make(map[string]float64, len(d.Base))
		for k, v := range d.Base {
			d.values[k] = v
		}
	}
	for k, v := range d.values {
		ch, _ := units.Lookup(k)
		step := (ch.Max - ch.Min) * 0.01
		v += step * (2*s.rng.Float64() - 1)
		// pull back towards the base so values do not wander off
		v += (d.Base[k] - v) * 0.05
		d.values[k] = math.Max(ch.Min, math.Min(ch.Max, v))
	}
	out := make(map[string]float64, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// Step posts one reading for every device.
func (s *Simulator) Step(ctx context.Context) error {
	for _, d := range s.devices {
		body := map[string]interface{}{"device_id": d.ID}
		for k, v := range s.next(d) {
			body[k] = math.Round(v*100) / 100
		}
		if err := httputil.PostJSON(ctx, s.client, s.baseURL+"/api/data", body, nil); err != nil {
			return fmt.Errorf("failed to post reading for %s: %w", d.ID, err)
		}
	}
	return nil
}

// Stats is the server's summary of the canvas heatmap.
type Stats struct {
	Defined int      `json:"defined"`
	Total   int      `json:"total"`
	Unit    string   `json:"unit"`
	Mean    *float64 `json:"mean"`
}

// HeatmapStats fetches the heatmap summary for channel.
func (s *Simulator) HeatmapStats(ctx context.Context, channel string) (Stats, error) {
	var st Stats
	url := fmt.Sprintf("%s/api/canvases/%d/heatmap/stats?channel=%s", s.baseURL, s.canvasID, channel)
	if err := httputil.GetJSON(ctx, s.client, url, &st); err != nil {
		return Stats{}, err
	}
	return st, nil
}
