package api

import (
	"fmt"
	"net/http"

	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/httputil"
)

// elementRequest is an element record whose anchor must be present. Its X
// and Y shadow the record's so a missing coordinate can be told from zero.
type elementRequest struct {
	floorplan.ElementRecord
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// element validates the request and decodes it for canvasID. Triangles are
// positioned by their points and need no anchor.
func (req elementRequest) element(id, canvasID int64) (floorplan.Element, error) {
	rec := req.ElementRecord
	if rec.Type == "" {
		return floorplan.Element{}, fmt.Errorf("type, x, y required")
	}
	if rec.Type != floorplan.KindTriangle {
		if req.X == nil || req.Y == nil {
			return floorplan.Element{}, fmt.Errorf("type, x, y required")
		}
		rec.X, rec.Y = *req.X, *req.Y
	}
	rec.ID, rec.CanvasID = id, canvasID
	e, err := floorplan.DecodeElement(rec)
	if err != nil {
		return floorplan.Element{}, err
	}
	if err := e.Validate(); err != nil {
		return floorplan.Element{}, err
	}
	return e, nil
}

// handleCanvasElements lists (GET) or creates (POST) the elements of a
// canvas.
func (s *Server) handleCanvasElements(w http.ResponseWriter, r *http.Request, canvasID int64) {
	switch r.Method {
	case http.MethodGet:
		if _, err := s.db.GetCanvas(r.Context(), canvasID); err != nil {
			writeStoreError(w, err, "Canvas")
			return
		}
		elements, err := s.db.ListElements(r.Context(), canvasID)
		if err != nil {
			writeStoreError(w, err, "Element")
			return
		}
		if elements == nil {
			elements = []floorplan.Element{}
		}
		httputil.WriteJSONOK(w, "elements", elements)
	case http.MethodPost:
		var req elementRequest
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		e, err := req.element(0, canvasID)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if _, err := s.db.GetCanvas(r.Context(), canvasID); err != nil {
			writeStoreError(w, err, "Canvas")
			return
		}
		id, err := s.db.CreateElement(r.Context(), e)
		if err != nil {
			writeStoreError(w, err, "Element")
			return
		}
		created, err := s.db.GetElement(r.Context(), id)
		if err != nil {
			writeStoreError(w, err, "Element")
			return
		}
		s.reloadSessions(r.Context(), canvasID)
		httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{"ok": true, "element": created})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleElementByID serves GET, PUT and DELETE on /api/canvas-elements/{id}.
// An element never moves between canvases.
func (s *Server) handleElementByID(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, "/api/canvas-elements/")
	if len(segs) != 1 {
		httputil.NotFound(w, "Not found")
		return
	}
	id, err := parseID(segs[0])
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	existing, err := s.db.GetElement(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Element")
		return
	}

	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, "element", existing)
	case http.MethodPut:
		var req elementRequest
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		e, err := req.element(id, existing.CanvasID)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := s.db.UpdateElement(r.Context(), e); err != nil {
			writeStoreError(w, err, "Element")
			return
		}
		updated, err := s.db.GetElement(r.Context(), id)
		if err != nil {
			writeStoreError(w, err, "Element")
			return
		}
		s.reloadSessions(r.Context(), existing.CanvasID)
		httputil.WriteJSONOK(w, "element", updated)
	case http.MethodDelete:
		if err := s.db.DeleteElement(r.Context(), id); err != nil {
			writeStoreError(w, err, "Element")
			return
		}
		s.reloadSessions(r.Context(), existing.CanvasID)
		httputil.WriteOK(w, nil)
	default:
		httputil.MethodNotAllowed(w)
	}
}
