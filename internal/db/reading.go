package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/units"
)

// DefaultReadingsLimit caps history queries.
const DefaultReadingsLimit = 2000

var readingColumns = strings.Join(units.ReadingChannels, ", ")

// IngestResult describes one stored reading.
type IngestResult struct {
	Node    floorplan.SensorNode `json:"node"`
	Created bool                 `json:"created"`
	Reading floorplan.Reading    `json:"reading"`
}

// Ingest stores a reading for deviceID, registering an active node named
// after the device when it is unknown. Unknown channels are ignored and
// non-finite values are stored as missing. raw is kept verbatim.
func (db *DB) Ingest(ctx context.Context, deviceID string, values map[string]float64, ts time.Time, raw []byte) (IngestResult, error) {
	if deviceID == "" {
		return IngestResult{}, fmt.Errorf("device_id required")
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var out IngestResult
	node, err := nodeByDevice(ctx, tx, deviceID)
	switch {
	case errors.Is(err, ErrNotFound):
		res, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (device_id, name, is_active, coverage_radius, point_size) VALUES (?, ?, 1, ?, ?)`,
			deviceID, deviceID, floorplan.DefaultCoverageRadius, floorplan.DefaultPointSize)
		if err != nil {
			return IngestResult{}, fmt.Errorf("failed to register node: %w", err)
		}
		if _, err := res.LastInsertId(); err != nil {
			return IngestResult{}, fmt.Errorf("failed to get node id: %w", err)
		}
		if node, err = nodeByDevice(ctx, tx, deviceID); err != nil {
			return IngestResult{}, err
		}
		out.Created = true
	case err != nil:
		return IngestResult{}, err
	}

	kept := make(map[string]float64, len(values))
	args := []interface{}{node.ID, ts.UnixNano()}
	for _, ch := range units.ReadingChannels {
		v, ok := values[ch]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			args = append(args, nil)
			continue
		}
		kept[ch] = v
		args = append(args, v)
	}
	var rawArg interface{}
	if len(raw) > 0 {
		rawArg = string(raw)
	}
	args = append(args, rawArg)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(units.ReadingChannels)), ", ")
	res, err := tx.ExecContext(ctx,
		`INSERT INTO readings (node_id, ts_unix_nanos, `+readingColumns+`, raw_json) VALUES (?, ?, `+placeholders+`, ?)`,
		args...)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to insert reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to get reading id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return IngestResult{}, fmt.Errorf("failed to commit reading: %w", err)
	}

	out.Node = node
	out.Reading = floorplan.Reading{ID: id, NodeID: node.ID, Timestamp: time.Unix(0, ts.UnixNano()).UTC(), Values: kept}
	return out, nil
}

func scanReading(s rowScanner) (floorplan.Reading, error) {
	var (
		r  floorplan.Reading
		ns int64
	)
	vals := make([]sql.NullFloat64, len(units.ReadingChannels))
	dest := []interface{}{&r.ID, &r.NodeID, &ns}
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	if err := s.Scan(dest...); err != nil {
		return floorplan.Reading{}, err
	}
	r.Timestamp = time.Unix(0, ns).UTC()
	r.Values = make(map[string]float64)
	for i, ch := range units.ReadingChannels {
		if vals[i].Valid {
			r.Values[ch] = vals[i].Float64
		}
	}
	return r, nil
}

func (db *DB) queryReadings(ctx context.Context, query string, args ...interface{}) ([]floorplan.Reading, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var out []floorplan.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestReadings returns the most recent reading of every active node,
// keyed by node id.
func (db *DB) LatestReadings(ctx context.Context) (map[int64]floorplan.Reading, error) {
	rs, err := db.queryReadings(ctx, `
		SELECT r.id, r.node_id, r.ts_unix_nanos, `+prefixed("r.", units.ReadingChannels)+`
		FROM readings r
		JOIN nodes n ON n.id = r.node_id AND n.is_active = 1
		WHERE r.id = (
			SELECT r2.id FROM readings r2
			WHERE r2.node_id = r.node_id
			ORDER BY r2.ts_unix_nanos DESC, r2.id DESC
			LIMIT 1
		)
		ORDER BY r.node_id ASC`)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]floorplan.Reading, len(rs))
	for _, r := range rs {
		out[r.NodeID] = r
	}
	return out, nil
}

// ReadingsQuery selects a node's history. Zero From or To leave that side
// open; a non-positive Limit means DefaultReadingsLimit.
type ReadingsQuery struct {
	NodeID int64
	From   time.Time
	To     time.Time
	Limit  int
}

// Readings returns a node's readings in ascending time order.
func (db *DB) Readings(ctx context.Context, q ReadingsQuery) ([]floorplan.Reading, error) {
	if q.NodeID == 0 {
		return nil, fmt.Errorf("node_id required")
	}
	limit := q.Limit
	if limit <= 0 || limit > DefaultReadingsLimit {
		limit = DefaultReadingsLimit
	}
	query := `SELECT id, node_id, ts_unix_nanos, ` + readingColumns + ` FROM readings WHERE node_id = ?`
	args := []interface{}{q.NodeID}
	if !q.From.IsZero() {
		query += ` AND ts_unix_nanos >= ?`
		args = append(args, q.From.UnixNano())
	}
	if !q.To.IsZero() {
		query += ` AND ts_unix_nanos <= ?`
		args = append(args, q.To.UnixNano())
	}
	query += ` ORDER BY ts_unix_nanos ASC, id ASC LIMIT ?`
	args = append(args, limit)
	return db.queryReadings(ctx, query, args...)
}

func prefixed(prefix string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return strings.Join(out, ", ")
}
