package api

import (
	"net/http"
	"strings"

	"github.com/banshee-data/twin.report/internal/db"
	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/httputil"
	"github.com/banshee-data/twin.report/internal/security"
)

type canvasRequest struct {
	Name   *string  `json:"name"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

// handleCanvases lists canvases (GET) or creates one (POST). Width and
// height default to the configured floor size.
func (s *Server) handleCanvases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		canvases, err := s.db.ListCanvases(r.Context())
		if err != nil {
			writeStoreError(w, err, "Canvas")
			return
		}
		httputil.WriteJSONOK(w, "canvases", canvases)
	case http.MethodPost:
		var req canvasRequest
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
			httputil.BadRequest(w, "name required")
			return
		}
		plan := floorplan.FloorPlan{
			Name:   strings.TrimSpace(*req.Name),
			Width:  s.cfg.GetDefaultFloorWidth(),
			Height: s.cfg.GetDefaultFloorHeight(),
		}
		if req.Width != nil {
			plan.Width = *req.Width
		}
		if req.Height != nil {
			plan.Height = *req.Height
		}
		created, err := s.db.CreateCanvas(r.Context(), plan)
		if err != nil {
			writeStoreError(w, err, "Canvas")
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{"ok": true, "canvas": created})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleCanvasRoutes dispatches /api/canvases/import and
// /api/canvases/{id}[/...].
func (s *Server) handleCanvasRoutes(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, "/api/canvases/")
	if len(segs) == 0 {
		s.handleCanvases(w, r)
		return
	}
	if segs[0] == "import" && len(segs) == 1 {
		s.importCanvas(w, r)
		return
	}
	id, err := parseID(segs[0])
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	if len(segs) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.getCanvas(w, r, id)
		case http.MethodPut:
			s.updateCanvas(w, r, id)
		case http.MethodDelete:
			s.deleteCanvas(w, r, id)
		default:
			httputil.MethodNotAllowed(w)
		}
		return
	}

	switch strings.Join(segs[1:], "/") {
	case "scene":
		s.getScene(w, r, id)
	case "export":
		s.exportCanvas(w, r, id)
	case "elements":
		s.handleCanvasElements(w, r, id)
	case "sessions":
		s.openSession(w, r, id)
	case "heatmap.png":
		s.heatmapPNG(w, r, id)
	case "heatmap.html":
		s.heatmapHTML(w, r, id)
	case "heatmap/plot.png":
		s.heatmapPlot(w, r, id)
	case "heatmap/stats":
		s.heatmapStats(w, r, id)
	case "inspect":
		s.inspect(w, r, id)
	default:
		httputil.NotFound(w, "Not found")
	}
}

func (s *Server) getCanvas(w http.ResponseWriter, r *http.Request, id int64) {
	c, err := s.db.GetCanvas(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Canvas")
		return
	}
	httputil.WriteJSONOK(w, "canvas", c)
}

// updateCanvas renames or resizes a canvas. Omitted fields keep their
// stored values.
func (s *Server) updateCanvas(w http.ResponseWriter, r *http.Request, id int64) {
	var req canvasRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	c, err := s.db.GetCanvas(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Canvas")
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			httputil.BadRequest(w, "name required")
			return
		}
		c.Name = name
	}
	if req.Width != nil {
		c.Width = *req.Width
	}
	if req.Height != nil {
		c.Height = *req.Height
	}
	if err := s.db.UpdateCanvas(r.Context(), c); err != nil {
		writeStoreError(w, err, "Canvas")
		return
	}
	s.reloadSessions(r.Context(), id)
	httputil.WriteJSONOK(w, "canvas", c)
}

// deleteCanvas closes the canvas's sessions, removes it, and reloads the
// other sessions since its nodes become unassigned.
func (s *Server) deleteCanvas(w http.ResponseWriter, r *http.Request, id int64) {
	if _, err := s.db.GetCanvas(r.Context(), id); err != nil {
		writeStoreError(w, err, "Canvas")
		return
	}
	s.closeCanvasSessions(id)
	if err := s.db.DeleteCanvas(r.Context(), id); err != nil {
		writeStoreError(w, err, "Canvas")
		return
	}
	s.reloadAllSessions(r.Context())
	httputil.WriteOK(w, nil)
}

func (s *Server) getScene(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	scene, err := s.db.LoadScene(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Canvas")
		return
	}
	httputil.WriteOK(w, httputil.Envelope{
		"canvas":   scene.Plan,
		"nodes":    scene.Nodes,
		"walls":    scene.Walls,
		"elements": scene.Elements,
	})
}

// exportCanvas serves the canvas bundle as a JSON attachment named after
// the canvas.
func (s *Server) exportCanvas(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	b, err := s.db.ExportCanvas(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Canvas")
		return
	}
	filename := security.SanitizeFilename(b.Canvas.Name) + ".json"
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	httputil.WriteJSON(w, http.StatusOK, b)
}

// importCanvas creates a canvas from an exported bundle.
func (s *Server) importCanvas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var b db.Bundle
	if err := decodeJSON(w, r, maxImportBytes, &b); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	res, err := s.db.ImportCanvas(r.Context(), b)
	if err != nil {
		writeStoreError(w, err, "Canvas")
		return
	}
	s.reloadAllSessions(r.Context())
	httputil.WriteJSON(w, http.StatusCreated, httputil.Envelope{
		"ok":           true,
		"canvas":       res.Canvas,
		"nodesMatched": res.NodesMatched,
		"nodesSkipped": res.NodesSkipped,
	})
}
