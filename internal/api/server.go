// Package api serves the twin's HTTP API: the canvas, node, wall and element
// registries, reading ingestion and history, rendered heatmaps, and the
// server-side editing sessions.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/twin.report/internal/config"
	"github.com/banshee-data/twin.report/internal/db"
	"github.com/banshee-data/twin.report/internal/editor"
	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/httputil"
	"github.com/banshee-data/twin.report/internal/monitoring"
	"github.com/banshee-data/twin.report/internal/serialmux"
	"github.com/banshee-data/twin.report/internal/session"
	"github.com/banshee-data/twin.report/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Request body limits.
const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 10 << 20
)

type Server struct {
	m        serialmux.SerialMuxInterface
	db       *db.DB
	sessions *session.Manager
	cfg      *config.Config
}

// NewServer wires the API to the gateway, store and session registry. A nil
// cfg means the built-in defaults.
func NewServer(m serialmux.SerialMuxInterface, database *db.DB, sessions *session.Manager, cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Empty()
	}
	return &Server{
		m:        m,
		db:       database,
		sessions: sessions,
		cfg:      cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/command", s.sendCommandHandler)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/data", s.handleIngest)
	mux.HandleFunc("/api/canvases", s.handleCanvases)
	mux.HandleFunc("/api/canvases/", s.handleCanvasRoutes)
	mux.HandleFunc("/api/canvas-elements/", s.handleElementByID)
	mux.HandleFunc("/api/nodes", s.handleNodes)
	mux.HandleFunc("/api/nodes/", s.handleNodeByID)
	mux.HandleFunc("/api/walls", s.handleWalls)
	mux.HandleFunc("/api/walls/", s.handleWallByID)
	mux.HandleFunc("/api/readings", s.handleReadings)
	mux.HandleFunc("/api/readings/latest", s.handleLatestReadings)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionRoutes)
	return mux
}

// sendCommandHandler forwards a console command to the sensor gateway.
func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	command := strings.TrimSpace(r.FormValue("command"))
	if command == "" {
		httputil.BadRequest(w, "command required")
		return
	}
	if err := s.m.SendCommand(command); err != nil {
		log.Printf("failed to send gateway command: %v", err)
		httputil.InternalServerError(w, "Failed to send command")
		return
	}
	httputil.WriteOK(w, nil)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteOK(w, httputil.Envelope{
		"channels":      units.HeatmapChannels(),
		"display_units": units.ValidDisplayUnits,
		"heatmap":       s.cfg.Heatmap(),
		"icons":         floorplan.Icons,
		"default_floor": map[string]float64{
			"width":  s.cfg.GetDefaultFloorWidth(),
			"height": s.cfg.GetDefaultFloorHeight(),
		},
		"default_node": map[string]float64{
			"coverage_radius": s.cfg.GetDefaultCoverageRadius(),
			"point_size":      s.cfg.GetDefaultPointSize(),
		},
		"readings_limit": s.cfg.GetReadingsLimit(),
	})
}

// pathSegments splits the part of path after prefix, dropping a trailing
// slash.
func pathSegments(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

// parseID parses a positive row id from a path segment or query value.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	return nil
}

// writeStoreError maps store errors onto HTTP statuses. what names the
// entity for not-found messages.
func writeStoreError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		httputil.NotFound(w, what+" not found")
	case errors.Is(err, db.ErrDuplicateDevice):
		httputil.Conflict(w, db.ErrDuplicateDevice.Error())
	case errors.Is(err, floorplan.ErrInvalidGeometry), errors.Is(err, db.ErrInvalidBundle):
		httputil.BadRequest(w, err.Error())
	default:
		log.Printf("%s: %v", strings.ToLower(what), err)
		httputil.InternalServerError(w, "Server error")
	}
}

// Ingest stores one gateway payload and pushes the new latest readings to
// the sessions that display the node. It lets the server consume the serial
// gateway directly.
func (s *Server) Ingest(ctx context.Context, p serialmux.Payload) error {
	res, err := s.db.Ingest(ctx, p.DeviceID, p.Values, p.Timestamp, p.Raw)
	if err != nil {
		return fmt.Errorf("failed to ingest reading from %s: %w", p.DeviceID, err)
	}
	s.publishReading(ctx, res)
	return nil
}

var _ serialmux.Ingester = (*Server)(nil)

// publishReading refreshes open sessions after a stored reading. A newly
// registered node shows up in every canvas's unassigned list, so all
// sessions reload; otherwise only the node's canvas needs new values.
func (s *Server) publishReading(ctx context.Context, res db.IngestResult) {
	if s.sessions == nil {
		return
	}
	if res.Created {
		s.reloadAllSessions(ctx)
		return
	}
	if res.Node.CanvasID == nil {
		return
	}
	latest, err := s.db.LatestReadings(ctx)
	if err != nil {
		monitoring.Logf("failed to load latest readings: %v", err)
		return
	}
	s.sessions.Broadcast(ctx, *res.Node.CanvasID, func(ed *editor.Editor) {
		ed.SetReadings(latest)
	})
}

// reloadSessions replaces the scene and readings of every session on
// canvasID with the stored state.
func (s *Server) reloadSessions(ctx context.Context, canvasID int64) {
	if s.sessions == nil {
		return
	}
	scene, err := s.db.LoadScene(ctx, canvasID)
	if err != nil {
		monitoring.Logf("failed to reload canvas %d: %v", canvasID, err)
		return
	}
	latest, err := s.db.LatestReadings(ctx)
	if err != nil {
		monitoring.Logf("failed to load latest readings: %v", err)
		return
	}
	s.sessions.Broadcast(ctx, canvasID, func(ed *editor.Editor) {
		ed.Load(scene)
		ed.SetReadings(latest)
	})
}

// reloadAllSessions reloads every canvas that has an open session.
func (s *Server) reloadAllSessions(ctx context.Context) {
	if s.sessions == nil {
		return
	}
	seen := make(map[int64]bool)
	for _, sess := range s.sessions.List() {
		if seen[sess.CanvasID] {
			continue
		}
		seen[sess.CanvasID] = true
		s.reloadSessions(ctx, sess.CanvasID)
	}
}

// closeCanvasSessions closes the sessions editing canvasID.
func (s *Server) closeCanvasSessions(canvasID int64) {
	if s.sessions == nil {
		return
	}
	for _, sess := range s.sessions.List() {
		if sess.CanvasID == canvasID {
			s.sessions.Close(sess.ID)
		}
	}
}
