package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/twin.report/internal/httputil"
	"github.com/banshee-data/twin.report/internal/monitoring"
	"github.com/banshee-data/twin.report/internal/units"
)

func TestNewSimulator_Layout(t *testing.T) {
	sim := NewSimulator(httputil.NewMockHTTPClient(), "http://twin/", 1, 4, 100, 200, 1)
	devs := sim.Devices()
	require.Len(t, devs, 4)
	assert.Equal(t, "sim-01", devs[0].ID)
	assert.Equal(t, 25.0, devs[0].X)
	assert.Equal(t, 50.0, devs[0].Y)
	assert.Equal(t, 75.0, devs[3].X)
	assert.Equal(t, 150.0, devs[3].Y)
}

func TestSimulator_Register(t *testing.T) {
	monitoring.SetLogger(nil)
	client := httputil.NewMockHTTPClient().
		AddResponse(http.StatusCreated, `{"ok":true,"node":{}}`).
		AddResponse(http.StatusConflict, `{"ok":false,"error":"device_id must be unique"}`)
	sim := NewSimulator(client, "http://twin/", 2, 2, 10, 10, 1)

	require.NoError(t, sim.Register(t.Context()), "known devices are skipped")
	require.Equal(t, 2, client.RequestCount())

	req, body := client.Request(0)
	assert.Equal(t, "http://twin/api/nodes", req.URL.String())
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "sim-01", got["device_id"])
	assert.Equal(t, 2.0, got["canvas_id"])

	client = httputil.NewMockHTTPClient().AddResponse(http.StatusBadRequest, `{"ok":false,"error":"device_id and name required"}`)
	sim = NewSimulator(client, "http://twin", 1, 1, 10, 10, 1)
	err := sim.Register(t.Context())
	var apiErr *httputil.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "device_id and name required", apiErr.Message)
}

func TestSimulator_StepStaysInRange(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	sim := NewSimulator(client, "http://twin", 1, 2, 10, 10, 7)

	for i := 0; i < 50; i++ {
		require.NoError(t, sim.Step(t.Context()))
	}
	require.Equal(t, 100, client.RequestCount())

	for i := 0; i < client.RequestCount(); i++ {
		req, body := client.Request(i)
		assert.Equal(t, "/api/data", req.URL.Path)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &got))
		for _, key := range []string{units.TemperatureC, units.HumidityPct, units.ECO2PPM} {
			ch, _ := units.Lookup(key)
			v, ok := got[key].(float64)
			require.True(t, ok, key)
			assert.GreaterOrEqual(t, v, ch.Min)
			assert.LessOrEqual(t, v, ch.Max)
		}
	}
}

func TestSimulator_StepError(t *testing.T) {
	client := httputil.NewMockHTTPClient().AddErrorResponse(errors.New("connection refused"))
	sim := NewSimulator(client, "http://twin", 1, 1, 10, 10, 1)
	assert.ErrorContains(t, sim.Step(t.Context()), "sim-01")
}

func TestSimulator_HeatmapStats(t *testing.T) {
	client := httputil.NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"ok":true,"defined":12,"total":100,"unit":"°C","mean":22.5}`)
	sim := NewSimulator(client, "http://twin", 3, 1, 10, 10, 1)

	st, err := sim.HeatmapStats(t.Context(), units.TemperatureC)
	require.NoError(t, err)
	assert.Equal(t, 12, st.Defined)
	require.NotNil(t, st.Mean)
	assert.Equal(t, 22.5, *st.Mean)
	req, _ := client.Request(0)
	assert.Equal(t, "/api/canvases/3/heatmap/stats", req.URL.Path)
	assert.Equal(t, "temperature_c", req.URL.Query().Get("channel"))
}
