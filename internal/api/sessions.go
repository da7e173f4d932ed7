package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/twin.report/internal/editor"
	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/httputil"
	"github.com/banshee-data/twin.report/internal/session"
)

// Session request limits and the display size used when the client sends
// none.
const (
	defaultDisplayWidth  = 1024
	defaultDisplayHeight = 768
	maxEventsPerRequest  = 1000
)

type openSessionRequest struct {
	Width   float64                  `json:"width"`
	Height  float64                  `json:"height"`
	Heatmap *floorplan.HeatmapConfig `json:"heatmap"`
}

type sessionInfo struct {
	ID       uuid.UUID      `json:"id"`
	CanvasID int64          `json:"canvas_id"`
	Created  time.Time      `json:"created"`
	State    *session.State `json:"state,omitempty"`
}

// openSession starts an editing session on canvasID. The session outlives
// the request and is closed through DELETE /api/sessions/{id}.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request, canvasID int64) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.sessions == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "editing sessions disabled")
		return
	}
	req := openSessionRequest{Width: defaultDisplayWidth, Height: defaultDisplayHeight}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
	}
	if req.Width <= 0 || req.Height <= 0 || req.Width > editor.MaxDisplaySide || req.Height > editor.MaxDisplaySide {
		httputil.BadRequest(w, fmt.Sprintf("width and height must be between 1 and %d", editor.MaxDisplaySide))
		return
	}

	scene, err := s.db.LoadScene(r.Context(), canvasID)
	if err != nil {
		writeStoreError(w, err, "Canvas")
		return
	}
	latest, err := s.db.LatestReadings(r.Context())
	if err != nil {
		writeStoreError(w, err, "Reading")
		return
	}
	ed := editor.New(scene.Plan, req.Width, req.Height, nil)
	ed.Load(scene)
	ed.SetReadings(latest)
	hm := s.cfg.Heatmap()
	if req.Heatmap != nil {
		hm = *req.Heatmap
	}
	if err := ed.SetHeatmapConfig(hm); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	sess := s.sessions.Open(context.Background(), canvasID, ed, s.db.Canvas(canvasID))
	st, err := sess.Apply(r.Context(), nil)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{
		"ok":      true,
		"session": sessionInfo{ID: sess.ID, CanvasID: sess.CanvasID, Created: sess.Created, State: &st},
	})
}

// handleSessions lists the open sessions.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	out := []sessionInfo{}
	if s.sessions != nil {
		for _, sess := range s.sessions.List() {
			out = append(out, sessionInfo{ID: sess.ID, CanvasID: sess.CanvasID, Created: sess.Created})
		}
	}
	httputil.WriteJSONOK(w, "sessions", out)
}

// handleSessionRoutes serves /api/sessions/{id}[/events|/frame.png].
func (s *Server) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, "/api/sessions/")
	if len(segs) == 0 {
		s.handleSessions(w, r)
		return
	}
	if len(segs) > 2 {
		httputil.NotFound(w, "Not found")
		return
	}
	id, err := uuid.Parse(segs[0])
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid session id %q", segs[0]))
		return
	}
	if s.sessions == nil {
		httputil.NotFound(w, "Session not found")
		return
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		httputil.NotFound(w, "Session not found")
		return
	}

	if len(segs) == 1 {
		switch r.Method {
		case http.MethodGet:
			st, err := sess.Apply(r.Context(), nil)
			if err != nil {
				writeSessionError(w, err)
				return
			}
			httputil.WriteJSONOK(w, "session", sessionInfo{ID: sess.ID, CanvasID: sess.CanvasID, Created: sess.Created, State: &st})
		case http.MethodDelete:
			s.sessions.Close(id)
			httputil.WriteOK(w, nil)
		default:
			httputil.MethodNotAllowed(w)
		}
		return
	}

	switch segs[1] {
	case "events":
		s.sessionEvents(w, r, sess)
	case "frame.png":
		s.sessionFrame(w, r, sess)
	default:
		httputil.NotFound(w, "Not found")
	}
}

// sessionEvents applies {"events": [...]} in order. A failing event stops
// the batch; the response then carries both the error and the state reached.
func (s *Server) sessionEvents(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req struct {
		Events []session.Event `json:"events"`
	}
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if len(req.Events) > maxEventsPerRequest {
		httputil.BadRequest(w, fmt.Sprintf("at most %d events per request", maxEventsPerRequest))
		return
	}
	st, err := sess.Apply(r.Context(), req.Events)
	if errors.Is(err, session.ErrClosed) || errors.Is(err, context.Canceled) {
		writeSessionError(w, err)
		return
	}
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Envelope{"ok": false, "error": err.Error(), "state": st})
		return
	}
	httputil.WriteJSONOK(w, "state", st)
}

// sessionFrame renders the session now and serves the frame.
func (s *Server) sessionFrame(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if _, err := sess.Frame(r.Context()); err != nil {
		writeSessionError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := sess.Compositor().WritePNG(&buf); err != nil {
		log.Printf("failed to encode session frame: %v", err)
		httputil.InternalServerError(w, "Failed to render frame")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrClosed) {
		httputil.NotFound(w, "Session not found")
		return
	}
	log.Printf("session: %v", err)
	httputil.InternalServerError(w, "Server error")
}
