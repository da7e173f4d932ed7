package api

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/session"
)

type sessionResponse struct {
	OK      bool        `json:"ok"`
	Session sessionInfo `json:"session"`
}

func openTestSession(t *testing.T, server *Server) sessionInfo {
	t.Helper()
	w := doRequest(t, server, http.MethodPost, "/api/canvases/1/sessions", map[string]any{"width": 400, "height": 300})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp sessionResponse
	decodeResponse(t, w, &resp)
	require.NotNil(t, resp.Session.State)
	return resp.Session
}

func TestOpenSession(t *testing.T) {
	server, _ := setupTestServer(t)

	info := openTestSession(t, server)
	assert.Equal(t, int64(1), info.CanvasID)
	assert.Equal(t, "select", info.State.Mode)
	assert.Equal(t, "none", info.State.Selection.Kind)

	var list struct {
		Sessions []sessionInfo `json:"sessions"`
	}
	w := doRequest(t, server, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &list)
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, info.ID, list.Sessions[0].ID)

	tests := []struct {
		name string
		body map[string]any
		code int
	}{
		{"zero width", map[string]any{"width": 0, "height": 10}, http.StatusBadRequest},
		{"too tall", map[string]any{"width": 10, "height": 10000}, http.StatusBadRequest},
		{"bad heatmap", map[string]any{"width": 10, "height": 10, "heatmap": map[string]any{"channel": "lux"}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, server, http.MethodPost, "/api/canvases/1/sessions", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	w = doRequest(t, server, http.MethodPost, "/api/canvases/8/sessions", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Canvas not found", errorMessage(t, w))

	// Without a body the default display size is used.
	w = doRequest(t, server, http.MethodPost, "/api/canvases/1/sessions", nil)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestSessionEvents_DrawWall(t *testing.T) {
	server, dbInst := setupTestServer(t)
	info := openTestSession(t, server)
	path := "/api/sessions/" + info.ID.String()

	w := doRequest(t, server, http.MethodPost, path+"/events", map[string]any{"events": []map[string]any{
		{"type": "mode", "mode": "wall"},
		{"type": "pointer_down", "x": 150, "y": 100},
		{"type": "pointer_up", "x": 150, "y": 100},
		{"type": "pointer_move", "x": 200, "y": 100},
		{"type": "pointer_down", "x": 250, "y": 100},
		{"type": "pointer_up", "x": 250, "y": 100},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		State session.State `json:"state"`
	}
	decodeResponse(t, w, &resp)
	assert.Equal(t, "wall", resp.State.Mode)
	assert.Equal(t, "none", resp.State.Gesture, "ready for the next wall")

	require.Eventually(t, func() bool {
		walls, err := dbInst.ListWalls(context.Background(), 1)
		return err == nil && len(walls) == 1
	}, time.Second, 10*time.Millisecond)

	walls, err := dbInst.ListWalls(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, walls[0].Y1, walls[0].Y2, "horizontal wall")
	assert.Less(t, walls[0].X1, walls[0].X2)
}

func TestSessionEvents_StopsAtFirstError(t *testing.T) {
	server, _ := setupTestServer(t)
	info := openTestSession(t, server)
	path := "/api/sessions/" + info.ID.String() + "/events"

	w := doRequest(t, server, http.MethodPost, path, map[string]any{"events": []map[string]any{
		{"type": "mode", "mode": "rect"},
		{"type": "teleport"},
		{"type": "mode", "mode": "circle"},
	}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		OK    bool          `json:"ok"`
		Error string        `json:"error"`
		State session.State `json:"state"`
	}
	decodeResponse(t, w, &resp)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "event 1 (teleport)")
	assert.Equal(t, "rect", resp.State.Mode, "events after the failure are not applied")

	w = postRaw(server, path, `{"events":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doRequest(t, server, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSessionFrame(t *testing.T) {
	server, dbInst := setupTestServer(t)
	placeNode(t, dbInst, "esp-frame", 1, 80, 100, 30)
	info := openTestSession(t, server)

	w := doRequest(t, server, http.MethodGet, "/api/sessions/"+info.ID.String()+"/frame.png", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestSessionLifecycle(t *testing.T) {
	server, _ := setupTestServer(t)
	info := openTestSession(t, server)
	path := "/api/sessions/" + info.ID.String()

	w := doRequest(t, server, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp sessionResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, info.ID, resp.Session.ID)
	require.NotNil(t, resp.Session.State)

	w = doRequest(t, server, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, server, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Session not found", errorMessage(t, w))

	w = doRequest(t, server, http.MethodGet, "/api/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doRequest(t, server, http.MethodGet, path+"/frame.png/extra", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteCanvasClosesSessions(t *testing.T) {
	server, dbInst := setupTestServer(t)
	c, err := dbInst.CreateCanvas(t.Context(), floorplan.FloorPlan{Name: "Temporary", Width: 40, Height: 40})
	require.NoError(t, err)

	w := doRequest(t, server, http.MethodPost, "/api/canvases/"+itoa(c.ID)+"/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp sessionResponse
	decodeResponse(t, w, &resp)

	w = doRequest(t, server, http.MethodDelete, "/api/canvases/"+itoa(c.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doRequest(t, server, http.MethodGet, "/api/sessions/"+resp.Session.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
