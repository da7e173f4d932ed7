package api

import (
	"net/http"

	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/httputil"
)

// defaultCanvasID is the canvas seeded by the first migration. Wall
// requests without canvas_id address it.
const defaultCanvasID = 1

type wallRequest struct {
	CanvasID *int64   `json:"canvas_id"`
	X1       *float64 `json:"x1"`
	Y1       *float64 `json:"y1"`
	X2       *float64 `json:"x2"`
	Y2       *float64 `json:"y2"`
}

func (req wallRequest) complete() bool {
	return req.X1 != nil && req.Y1 != nil && req.X2 != nil && req.Y2 != nil
}

// handleWalls lists (GET ?canvas_id=) or creates (POST) walls.
func (s *Server) handleWalls(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		canvasID := int64(defaultCanvasID)
		if v := r.URL.Query().Get("canvas_id"); v != "" {
			id, err := parseID(v)
			if err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}
			canvasID = id
		}
		walls, err := s.db.ListWalls(r.Context(), canvasID)
		if err != nil {
			writeStoreError(w, err, "Wall")
			return
		}
		if walls == nil {
			walls = []floorplan.Wall{}
		}
		httputil.WriteJSONOK(w, "walls", walls)
	case http.MethodPost:
		var req wallRequest
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if !req.complete() {
			httputil.BadRequest(w, "x1, y1, x2, y2 must be numbers")
			return
		}
		canvasID := int64(defaultCanvasID)
		if req.CanvasID != nil {
			canvasID = *req.CanvasID
		}
		if _, err := s.db.GetCanvas(r.Context(), canvasID); err != nil {
			writeStoreError(w, err, "Canvas")
			return
		}
		id, err := s.db.CreateWall(r.Context(), floorplan.Wall{
			CanvasID: canvasID, X1: *req.X1, Y1: *req.Y1, X2: *req.X2, Y2: *req.Y2,
		})
		if err != nil {
			writeStoreError(w, err, "Wall")
			return
		}
		wall, err := s.db.GetWall(r.Context(), id)
		if err != nil {
			writeStoreError(w, err, "Wall")
			return
		}
		s.reloadSessions(r.Context(), canvasID)
		httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{"ok": true, "wall": wall})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleWallByID serves GET, PUT and DELETE on /api/walls/{id}.
func (s *Server) handleWallByID(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, "/api/walls/")
	if len(segs) != 1 {
		httputil.NotFound(w, "Not found")
		return
	}
	id, err := parseID(segs[0])
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	existing, err := s.db.GetWall(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Wall")
		return
	}

	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, "wall", existing)
	case http.MethodPut:
		var req wallRequest
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if !req.complete() {
			httputil.BadRequest(w, "x1, y1, x2, y2 must be numbers")
			return
		}
		wall := existing
		wall.X1, wall.Y1, wall.X2, wall.Y2 = *req.X1, *req.Y1, *req.X2, *req.Y2
		if err := s.db.UpdateWall(r.Context(), wall); err != nil {
			writeStoreError(w, err, "Wall")
			return
		}
		s.reloadSessions(r.Context(), wall.CanvasID)
		httputil.WriteJSONOK(w, "wall", wall)
	case http.MethodDelete:
		if err := s.db.DeleteWall(r.Context(), id); err != nil {
			writeStoreError(w, err, "Wall")
			return
		}
		s.reloadSessions(r.Context(), existing.CanvasID)
		httputil.WriteOK(w, nil)
	default:
		httputil.MethodNotAllowed(w)
	}
}
