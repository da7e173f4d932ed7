// Command twin serves the facility digital twin: floor plans, sensor nodes
// and their readings, interpolated heatmaps and interactive editing
// sessions over HTTP, with optional ingestion from a serial sensor gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/twin.report/internal/api"
	"github.com/banshee-data/twin.report/internal/config"
	"github.com/banshee-data/twin.report/internal/db"
	"github.com/banshee-data/twin.report/internal/serialmux"
	"github.com/banshee-data/twin.report/internal/session"
	"github.com/banshee-data/twin.report/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to a JSON config file (defaults apply when empty)")
	listen      = flag.String("listen", "", "HTTP listen address (overrides config)")
	dbPath      = flag.String("db-path", "", "Path to the sqlite database (overrides config)")
	serialPort  = flag.String("serial-port", "", "Serial gateway device, e.g. /dev/ttyUSB0 (overrides config)")
	baudRate    = flag.Int("baud", 0, "Serial baud rate (overrides config)")
	grpcListen  = flag.String("grpc-listen", ":8081", "gRPC health listen address (empty disables)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// loadConfig reads path when set and applies the command-line overrides.
func loadConfig(path string, o config.Overrides) (*config.Config, error) {
	cfg := config.Empty()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	cfg.Apply(o)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func sessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		Debounce:       cfg.GetHeatmapDebounce(),
		RenderInterval: cfg.GetRenderInterval(),
	}
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configFile, config.Overrides{
		Listen:         *listen,
		DBPath:         *dbPath,
		SerialPort:     *serialPort,
		SerialBaudRate: *baudRate,
	})
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if flag.NArg() > 0 && flag.Arg(0) == "migrate" {
		if err := db.RunMigrateCommand(flag.Args()[1:], cfg.GetDBPath(), os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	log.Printf("starting %s", version.String())

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	m, err := serialmux.New(cfg.GetSerialPort(), serialmux.PortOptions{BaudRate: cfg.GetSerialBaudRate()}, nil)
	if err != nil {
		log.Fatalf("failed to open serial gateway: %v", err)
	}
	defer m.Close()
	if cfg.GetSerialPort() == "" {
		log.Print("no serial port configured, ingesting over HTTP only")
	}

	sessions := session.NewManager(sessionOptions(cfg))
	defer sessions.CloseAll()
	server := api.NewServer(m, database, sessions, cfg)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// store every reading line the gateway forwards
	wg.Add(1)
	go func() {
		defer wg.Done()
		serialmux.Consume(ctx, m, server)
		log.Print("ingest routine terminated")
	}()

	if *grpcListen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runHealth(ctx, *grpcListen, database, m); err != nil {
				log.Printf("gRPC health server error: %v", err)
			}
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := server.ServeMux()
		// mount the admin debugging routes (accessible only over loopback or Tailscale)
		database.AttachAdminRoutes(mux)
		m.AttachAdminRoutes(mux)

		httpServer := &http.Server{
			Addr:              cfg.GetListen(),
			Handler:           api.LoggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Printf("HTTP server listening on %s", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := httpServer.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
