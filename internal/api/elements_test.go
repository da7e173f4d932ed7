package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/twin.report/internal/floorplan"
)

type elementResponse struct {
	OK      bool                    `json:"ok"`
	Element floorplan.ElementRecord `json:"element"`
}

func TestHandleCanvasElements_Create(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doRequest(t, server, http.MethodPost, "/api/canvases/1/elements", map[string]any{"type": "rect", "x": 20, "y": 30})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp elementResponse
	decodeResponse(t, w, &resp)
	e := resp.Element
	assert.Equal(t, floorplan.KindRect, e.Type)
	assert.Equal(t, int64(1), e.CanvasID)
	assert.Equal(t, 20.0, e.X)
	require.NotNil(t, e.Width)
	assert.Equal(t, 10.0, *e.Width, "default rect size")
	assert.Equal(t, "#3b82f6", e.Fill)
	assert.Equal(t, "#1e3a5f", e.Stroke)
	assert.Equal(t, 2.0, e.StrokeWidth)

	w = doRequest(t, server, http.MethodPost, "/api/canvases/1/elements", map[string]any{
		"type":   "triangle",
		"points": []map[string]float64{{"x": 0, "y": 0}, {"x": 10, "y": 0}, {"x": 5, "y": 8}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decodeResponse(t, w, &resp)
	assert.Len(t, resp.Element.Points, 3)

	w = doRequest(t, server, http.MethodPost, "/api/canvases/1/elements", map[string]any{
		"type": "text", "x": 5, "y": 5, "text": "Dock A", "rotation": -90,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	decodeResponse(t, w, &resp)
	require.NotNil(t, resp.Element.Text)
	assert.Equal(t, "Dock A", *resp.Element.Text)
	assert.Equal(t, 270.0, resp.Element.Rotation, "rotation normalised to [0, 360)")

	var list struct {
		Elements []floorplan.ElementRecord `json:"elements"`
	}
	w = doRequest(t, server, http.MethodGet, "/api/canvases/1/elements", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &list)
	assert.Len(t, list.Elements, 3)
}

func TestHandleCanvasElements_Invalid(t *testing.T) {
	server, _ := setupTestServer(t)

	tests := []struct {
		name   string
		target string
		body   map[string]any
		code   int
	}{
		{"missing type", "/api/canvases/1/elements", map[string]any{"x": 1, "y": 1}, http.StatusBadRequest},
		{"missing x", "/api/canvases/1/elements", map[string]any{"type": "circle", "y": 1}, http.StatusBadRequest},
		{"unknown type", "/api/canvases/1/elements", map[string]any{"type": "hexagon", "x": 1, "y": 1}, http.StatusBadRequest},
		{"two point triangle", "/api/canvases/1/elements", map[string]any{"type": "triangle", "points": []map[string]float64{{"x": 0, "y": 0}, {"x": 1, "y": 1}}}, http.StatusBadRequest},
		{"negative radius", "/api/canvases/1/elements", map[string]any{"type": "circle", "x": 1, "y": 1, "radius": -2}, http.StatusBadRequest},
		{"unknown canvas", "/api/canvases/55/elements", map[string]any{"type": "rect", "x": 1, "y": 1}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, server, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	w := doRequest(t, server, http.MethodGet, "/api/canvases/55/elements", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleElementByID(t *testing.T) {
	server, dbInst := setupTestServer(t)
	c, err := dbInst.CreateCanvas(t.Context(), floorplan.FloorPlan{Name: "Second", Width: 40, Height: 40})
	require.NoError(t, err)

	w := doRequest(t, server, http.MethodPost, "/api/canvases/"+itoa(c.ID)+"/elements", map[string]any{"type": "circle", "x": 10, "y": 10, "radius": 3})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp elementResponse
	decodeResponse(t, w, &resp)
	path := "/api/canvas-elements/" + itoa(resp.Element.ID)

	w = doRequest(t, server, http.MethodPut, path, map[string]any{"type": "circle", "x": 12, "y": 14, "radius": 6, "canvas_id": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeResponse(t, w, &resp)
	assert.Equal(t, 12.0, resp.Element.X)
	require.NotNil(t, resp.Element.Radius)
	assert.Equal(t, 6.0, *resp.Element.Radius)
	assert.Equal(t, c.ID, resp.Element.CanvasID, "elements stay on their canvas")

	w = doRequest(t, server, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, server, http.MethodPut, path, map[string]any{"type": "circle"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, server, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, server, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Element not found", errorMessage(t, w))
}
