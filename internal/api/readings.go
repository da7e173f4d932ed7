package api

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/banshee-data/twin.report/internal/db"
	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/httputil"
	"github.com/banshee-data/twin.report/internal/units"
)

// parseTime accepts RFC 3339 or unix seconds.
func parseTime(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	sec, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return time.Time{}, fmt.Errorf("invalid %s %q; use RFC 3339 or unix seconds", name, v)
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)), nil
}

// displayUnits reads the optional temperature_unit and pressure_unit query
// parameters into a channel to unit map.
func displayUnits(q url.Values) (map[string]string, error) {
	out := map[string]string{}
	for param, channel := range map[string]string{
		"temperature_unit": units.TemperatureC,
		"pressure_unit":    units.PressureHPa,
	} {
		u := q.Get(param)
		if u == "" {
			continue
		}
		if !units.IsValidDisplayUnit(channel, u) {
			return nil, fmt.Errorf("invalid %s %q; must be one of: %v", param, u, units.ValidDisplayUnits[channel])
		}
		out[channel] = u
	}
	return out, nil
}

// convertReadings returns copies of rows in the requested display units and
// the unit label of every channel present.
func convertReadings(rows []floorplan.Reading, display map[string]string) ([]floorplan.Reading, map[string]string) {
	labels := map[string]string{}
	out := make([]floorplan.Reading, len(rows))
	for i, r := range rows {
		values := make(map[string]float64, len(r.Values))
		for ch, v := range r.Values {
			cv, label := units.Convert(ch, v, display[ch])
			values[ch] = cv
			labels[ch] = label
		}
		r.Values = values
		out[i] = r
	}
	return out, labels
}

// handleReadings returns one node's history in ascending time order:
// GET /api/readings?node_id=&from=&to=&limit=.
func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	if q.Get("node_id") == "" {
		httputil.BadRequest(w, "node_id required")
		return
	}
	nodeID, err := parseID(q.Get("node_id"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	from, err := parseTime("from", q.Get("from"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	to, err := parseTime("to", q.Get("to"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	limit := s.cfg.GetReadingsLimit()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, limit)
	}
	display, err := displayUnits(q)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	rows, err := s.db.Readings(r.Context(), db.ReadingsQuery{NodeID: nodeID, From: from, To: to, Limit: limit})
	if err != nil {
		writeStoreError(w, err, "Reading")
		return
	}
	rows, labels := convertReadings(rows, display)
	httputil.WriteOK(w, httputil.Envelope{"rows": rows, "units": labels})
}

// handleLatestReadings returns the newest reading of every node, ordered by
// node id.
func (s *Server) handleLatestReadings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	display, err := displayUnits(r.URL.Query())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	latest, err := s.db.LatestReadings(r.Context())
	if err != nil {
		writeStoreError(w, err, "Reading")
		return
	}
	rows := make([]floorplan.Reading, 0, len(latest))
	for _, rd := range latest {
		rows = append(rows, rd)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].NodeID < rows[j].NodeID })
	rows, labels := convertReadings(rows, display)
	httputil.WriteOK(w, httputil.Envelope{"rows": rows, "units": labels})
}
