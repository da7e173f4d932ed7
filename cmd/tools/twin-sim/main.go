// Command twin-sim feeds a running twin server with synthetic sensor
// readings.
//
// Usage:
//
//	go run ./cmd/tools/twin-sim [flags]
//
// Flags:
//
//	-url       Server base URL (default: http://localhost:8080)
//	-devices   Number of simulated nodes (default: 6)
//	-interval  Time between reading rounds (default: 5s)
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/twin.report/internal/config"
	"github.com/banshee-data/twin.report/internal/httputil"
	"github.com/banshee-data/twin.report/internal/units"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Server base URL")
	canvasID := flag.Int64("canvas", 1, "Canvas to place the devices on")
	devices := flag.Int("devices", 6, "Number of simulated nodes")
	interval := flag.Duration("interval", 5*time.Second, "Time between reading rounds")
	width := flag.Float64("width", config.DefaultFloorWidth, "Floor width in meters used for the layout")
	height := flag.Float64("height", config.DefaultFloorHeight, "Floor height in meters used for the layout")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := httputil.NewStandardClient(&http.Client{Timeout: 10 * time.Second})
	sim := NewSimulator(client, *baseURL, *canvasID, *devices, *width, *height, *seed)
	if err := sim.Register(ctx); err != nil {
		log.Fatalf("failed to register devices: %v", err)
	}
	log.Printf("simulating %d devices against %s every %s", *devices, *baseURL, *interval)

	t := time.NewTicker(*interval)
	defer t.Stop()
	for {
		if err := sim.Step(ctx); err != nil {
			log.Printf("step failed: %v", err)
		} else if st, err := sim.HeatmapStats(ctx, units.TemperatureC); err == nil && st.Mean != nil {
			log.Printf("heatmap mean %.2f%s over %d/%d cells", *st.Mean, st.Unit, st.Defined, st.Total)
		}
		select {
		case <-ctx.Done():
			log.Print("simulation stopped")
			return
		case <-t.C:
		}
	}
}
