// Command heatmap-render writes the heatmap of a stored floor plan without
// running the server.
//
// Usage:
//
//	go run ./cmd/tools/heatmap-render -db twin.db -canvas 1 -format plot -out floor.png
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/banshee-data/twin.report/internal/config"
	"github.com/banshee-data/twin.report/internal/db"
	"github.com/banshee-data/twin.report/internal/monitoring"
	"github.com/banshee-data/twin.report/internal/security"
)

func main() {
	dbPath := flag.String("db", config.DefaultDBPath, "path to sqlite DB file")
	configFile := flag.String("config", "", "optional JSON config supplying heatmap defaults")
	canvasID := flag.Int64("canvas", 1, "canvas id")
	channel := flag.String("channel", "temperature_c", "reading channel to interpolate")
	format := flag.String("format", FormatOverlay, "overlay, plot, html or frame")
	out := flag.String("out", "heatmap.png", "output file (under the working or temp directory)")
	width := flag.Int("width", 800, "plot and frame width in pixels")
	height := flag.Int("height", 600, "plot and frame height in pixels")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("DB path %s not accessible: %v", *dbPath, err)
	}
	if err := security.ValidateExportPath(*out); err != nil {
		log.Fatalf("invalid output path: %v", err)
	}

	cfg := config.Empty()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	hm := cfg.Heatmap()
	hm.Channel = *channel

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *out, err)
	}

	stop := monitoring.Timed("render canvas %d %s as %s", *canvasID, *channel, *format)
	err = RenderCanvas(context.Background(), database, Options{
		CanvasID: *canvasID,
		Format:   *format,
		Heatmap:  hm,
		Width:    *width,
		Height:   *height,
	}, f)
	stop()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(*out)
		log.Fatalf("render failed: %v", err)
	}
	log.Printf("wrote %s", *out)
}
