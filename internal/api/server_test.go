package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/twin.report/internal/config"
	"github.com/banshee-data/twin.report/internal/db"
	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/serialmux"
	"github.com/banshee-data/twin.report/internal/session"
)

// setupTestServer returns a server over a fresh copy of the template
// database with a fast session manager and a mock gateway.
func setupTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	server, dbInst, _ := setupTestServerWithPort(t)
	return server, dbInst
}

func setupTestServerWithPort(t *testing.T) (*Server, *db.DB, *serialmux.TestablePort) {
	t.Helper()
	dbInst, err := db.NewDB(cloneAPITestDB(t))
	require.NoError(t, err)

	mux, port := serialmux.NewMockSerialMux()
	sessions := session.NewManager(session.Options{
		Debounce:       5 * time.Millisecond,
		RenderInterval: 10 * time.Millisecond,
	})
	server := NewServer(mux, dbInst, sessions, config.Empty())
	t.Cleanup(func() {
		sessions.CloseAll()
		dbInst.Close()
	})
	return server, dbInst, port
}

func floatPtr(f float64) *float64 {
	return &f
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

// doRequest sends a JSON body (when non-nil) through the server's mux.
func doRequest(t *testing.T, server *Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, target, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(w, r)
	return w
}

// decodeResponse unmarshals the recorded body into dst.
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), "body: %s", w.Body.String())
}

// errorMessage returns the "error" field of a failure envelope.
func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	decodeResponse(t, w, &resp)
	assert.False(t, resp.OK)
	return resp.Error
}

// placeNode registers a node at (x, y) on canvasID with one reading.
func placeNode(t *testing.T, dbInst *db.DB, deviceID string, canvasID int64, x, y, value float64) floorplan.SensorNode {
	t.Helper()
	ctx := t.Context()
	n, err := dbInst.CreateNode(ctx, floorplan.SensorNode{DeviceID: deviceID, Name: deviceID, Active: true})
	require.NoError(t, err)
	require.NoError(t, dbInst.PlaceNode(ctx, n.ID, canvasID, x, y))
	_, err = dbInst.Ingest(ctx, deviceID, map[string]float64{"temperature_c": value}, time.Now(), nil)
	require.NoError(t, err)
	n, err = dbInst.GetNode(ctx, n.ID)
	require.NoError(t, err)
	return n
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, colorBoldGreen + "200" + colorReset},
		{201, colorBoldGreen + "201" + colorReset},
		{304, colorYellow + "304" + colorReset},
		{404, colorBoldRed + "404" + colorReset},
		{500, colorBoldRed + "500" + colorReset},
		{101, "101"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCodeColor(tt.code), "code %d", tt.code)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nodes?x=1", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.True(t, w.Flushed)
	line := buf.String()
	assert.Contains(t, line, "418")
	assert.Contains(t, line, "GET")
	assert.Contains(t, line, "/api/nodes?x=1")
}

func TestPathSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/api/canvases/", nil},
		{"/api/canvases/3", []string{"3"}},
		{"/api/canvases/3/", []string{"3"}},
		{"/api/canvases/3/heatmap/plot.png", []string{"3", "heatmap", "plot.png"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pathSegments(tt.path, "/api/canvases/"), tt.path)
	}
}

func TestParseID(t *testing.T) {
	for _, bad := range []string{"", "abc", "0", "-4", "1.5"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestWriteStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"not found", fmt.Errorf("wall 3: %w", db.ErrNotFound), http.StatusNotFound, "Wall not found"},
		{"duplicate", db.ErrDuplicateDevice, http.StatusConflict, "device_id must be unique"},
		{"geometry", fmt.Errorf("%w: size", floorplan.ErrInvalidGeometry), http.StatusBadRequest, "invalid geometry: size"},
		{"bundle", fmt.Errorf("%w: version 2", db.ErrInvalidBundle), http.StatusBadRequest, "invalid canvas file format: version 2"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "Server error"},
	}
	log.SetOutput(&bytes.Buffer{})
	defer log.SetOutput(os.Stderr)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeStoreError(w, tt.err, "Wall")
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.msg, errorMessage(t, w))
		})
	}
}

func TestShowConfig(t *testing.T) {
	server, _ := setupTestServer(t)

	w := doRequest(t, server, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK       bool                    `json:"ok"`
		Channels []map[string]any        `json:"channels"`
		Heatmap  floorplan.HeatmapConfig `json:"heatmap"`
		Icons    []string                `json:"icons"`
		Floor    map[string]float64      `json:"default_floor"`
		Limit    int                     `json:"readings_limit"`
	}
	decodeResponse(t, w, &resp)
	assert.True(t, resp.OK)
	assert.Len(t, resp.Channels, 6)
	assert.Equal(t, "temperature_c", resp.Heatmap.Channel)
	assert.Equal(t, 2.0, resp.Heatmap.Power)
	assert.Equal(t, floorplan.Icons, resp.Icons)
	assert.Equal(t, map[string]float64{"width": 170, "height": 220}, resp.Floor)
	assert.Equal(t, 2000, resp.Limit)

	w = doRequest(t, server, http.MethodPost, "/api/config", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestSendCommandHandler(t *testing.T) {
	server, _, port := setupTestServerWithPort(t)
	log.SetOutput(&bytes.Buffer{})
	defer log.SetOutput(os.Stderr)

	post := func(command string) *httptest.ResponseRecorder {
		form := url.Values{"command": {command}}
		r := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		server.ServeMux().ServeHTTP(w, r)
		return w
	}

	w := post("status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "status\n", port.Written())

	w = post("  ")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	port.WriteError = errors.New("unplugged")
	w = post("status")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = doRequest(t, server, http.MethodGet, "/command", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
