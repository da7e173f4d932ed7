package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/httputil"
	"github.com/banshee-data/twin.report/internal/serialmux"
)

// nodeRequest is the editable part of a sensor node. On update it replaces
// the stored fields: omitting x and y unplaces the node.
type nodeRequest struct {
	DeviceID       string          `json:"device_id"`
	Name           string          `json:"name"`
	Location       string          `json:"location"`
	X              *float64        `json:"x"`
	Y              *float64        `json:"y"`
	CoverageRadius *float64        `json:"coverage_radius"`
	PointSize      *float64        `json:"point_size"`
	Active         *bool           `json:"is_active"`
	CanvasID       *int64          `json:"canvas_id"`
	InitialReading json.RawMessage `json:"initial_reading"`
}

// applyNodeRequest copies req onto n. Size fields the request leaves out
// take the configured defaults.
func (s *Server) applyNodeRequest(n floorplan.SensorNode, req nodeRequest) floorplan.SensorNode {
	if name := strings.TrimSpace(req.Name); name != "" {
		n.Name = name
	}
	n.Location = strings.TrimSpace(req.Location)
	n.X, n.Y = nil, nil
	if req.X != nil && req.Y != nil {
		n.X, n.Y = req.X, req.Y
	}
	n.CanvasID = req.CanvasID
	if n.X == nil {
		n.CanvasID = nil
	}
	n.CoverageRadius = s.cfg.GetDefaultCoverageRadius()
	if req.CoverageRadius != nil && *req.CoverageRadius > 0 {
		n.CoverageRadius = *req.CoverageRadius
	}
	n.PointSize = s.cfg.GetDefaultPointSize()
	if req.PointSize != nil && *req.PointSize > 0 {
		n.PointSize = *req.PointSize
	}
	if req.Active != nil {
		n.Active = *req.Active
	}
	return n
}

// handleNodes lists (GET) or registers (POST) sensor nodes. A POST may carry
// an initial_reading object stored right after the node.
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		nodes, err := s.db.ListNodes(r.Context())
		if err != nil {
			writeStoreError(w, err, "Node")
			return
		}
		if nodes == nil {
			nodes = []floorplan.SensorNode{}
		}
		httputil.WriteJSONOK(w, "nodes", nodes)
	case http.MethodPost:
		var req nodeRequest
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		req.DeviceID = strings.TrimSpace(req.DeviceID)
		if req.DeviceID == "" || strings.TrimSpace(req.Name) == "" {
			httputil.BadRequest(w, "device_id and name required")
			return
		}
		var initial *serialmux.Payload
		if len(req.InitialReading) > 0 && string(req.InitialReading) != "null" {
			p, err := initialPayload(req.DeviceID, req.InitialReading)
			if err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}
			initial = &p
		}
		if req.CanvasID != nil {
			if _, err := s.db.GetCanvas(r.Context(), *req.CanvasID); err != nil {
				writeStoreError(w, err, "Canvas")
				return
			}
		}

		n := s.applyNodeRequest(floorplan.SensorNode{DeviceID: req.DeviceID, Active: true}, req)
		created, err := s.db.CreateNode(r.Context(), n)
		if err != nil {
			writeStoreError(w, err, "Node")
			return
		}
		if initial != nil {
			if _, err := s.db.Ingest(r.Context(), initial.DeviceID, initial.Values, initial.Timestamp, initial.Raw); err != nil {
				writeStoreError(w, err, "Reading")
				return
			}
		}
		s.reloadAllSessions(r.Context())
		httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{"ok": true, "node": created})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// initialPayload parses an initial reading as if the device had sent it.
func initialPayload(deviceID string, raw json.RawMessage) (serialmux.Payload, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return serialmux.Payload{}, err
	}
	fields["device_id"] = deviceID
	b, err := json.Marshal(fields)
	if err != nil {
		return serialmux.Payload{}, err
	}
	return serialmux.ParsePayload(b)
}

// handleNodeByID serves GET, PUT and DELETE on /api/nodes/{id}. Node changes
// reload every open session because unassigned nodes are listed on all
// canvases.
func (s *Server) handleNodeByID(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, "/api/nodes/")
	if len(segs) != 1 {
		httputil.NotFound(w, "Not found")
		return
	}
	id, err := parseID(segs[0])
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	existing, err := s.db.GetNode(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Node")
		return
	}

	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, "node", existing)
	case http.MethodPut:
		var req nodeRequest
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if req.CanvasID != nil {
			if _, err := s.db.GetCanvas(r.Context(), *req.CanvasID); err != nil {
				writeStoreError(w, err, "Canvas")
				return
			}
		}
		n := s.applyNodeRequest(existing, req)
		if err := s.db.UpdateNode(r.Context(), n); err != nil {
			writeStoreError(w, err, "Node")
			return
		}
		updated, err := s.db.GetNode(r.Context(), id)
		if err != nil {
			writeStoreError(w, err, "Node")
			return
		}
		s.reloadAllSessions(r.Context())
		httputil.WriteJSONOK(w, "node", updated)
	case http.MethodDelete:
		if err := s.db.DeleteNode(r.Context(), id); err != nil {
			writeStoreError(w, err, "Node")
			return
		}
		s.reloadAllSessions(r.Context())
		httputil.WriteOK(w, nil)
	default:
		httputil.MethodNotAllowed(w)
	}
}
