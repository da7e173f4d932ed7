package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/twin.report/internal/floorplan"
)

// ErrDuplicateDevice is returned when a node's device id is already taken.
var ErrDuplicateDevice = errors.New("device_id must be unique")

const nodeColumns = `id, device_id, name, location, x, y, coverage_radius, point_size, is_active, canvas_id`

func scanNode(s rowScanner) (floorplan.SensorNode, error) {
	var (
		n        floorplan.SensorNode
		location sql.NullString
		x, y     sql.NullFloat64
		canvas   sql.NullInt64
	)
	if err := s.Scan(&n.ID, &n.DeviceID, &n.Name, &location, &x, &y, &n.CoverageRadius, &n.PointSize, &n.Active, &canvas); err != nil {
		return floorplan.SensorNode{}, err
	}
	n.Location = location.String
	if x.Valid && y.Valid {
		n.X, n.Y = &x.Float64, &y.Float64
	}
	if canvas.Valid {
		n.CanvasID = &canvas.Int64
	}
	return n, nil
}

func queryNodes(ctx context.Context, q execQuerier, where string, args ...interface{}) ([]floorplan.SensorNode, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var out []floorplan.SensorNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListNodes returns every node ordered by name.
func (db *DB) ListNodes(ctx context.Context) ([]floorplan.SensorNode, error) {
	return queryNodes(ctx, db.DB, `ORDER BY name ASC, id ASC`)
}

// CanvasNodes returns the nodes placed on canvasID followed by the
// unassigned ones that could be placed there.
func (db *DB) CanvasNodes(ctx context.Context, canvasID int64) ([]floorplan.SensorNode, error) {
	return queryNodes(ctx, db.DB, `WHERE canvas_id = ? OR canvas_id IS NULL ORDER BY canvas_id IS NULL, name ASC, id ASC`, canvasID)
}

// GetNode returns one node.
func (db *DB) GetNode(ctx context.Context, id int64) (floorplan.SensorNode, error) {
	n, err := scanNode(db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return floorplan.SensorNode{}, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return floorplan.SensorNode{}, fmt.Errorf("failed to get node: %w", err)
	}
	return n, nil
}

// NodeByDevice returns the node registered for deviceID.
func (db *DB) NodeByDevice(ctx context.Context, deviceID string) (floorplan.SensorNode, error) {
	return nodeByDevice(ctx, db.DB, deviceID)
}

func nodeByDevice(ctx context.Context, q execQuerier, deviceID string) (floorplan.SensorNode, error) {
	n, err := scanNode(q.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE device_id = ?`, deviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return floorplan.SensorNode{}, fmt.Errorf("device %q: %w", deviceID, ErrNotFound)
	}
	if err != nil {
		return floorplan.SensorNode{}, fmt.Errorf("failed to get node by device: %w", err)
	}
	return n, nil
}

func nullFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nodeDefaults fills zero radius and point size.
func nodeDefaults(n floorplan.SensorNode) floorplan.SensorNode {
	if n.CoverageRadius <= 0 {
		n.CoverageRadius = floorplan.DefaultCoverageRadius
	}
	if n.PointSize <= 0 {
		n.PointSize = floorplan.DefaultPointSize
	}
	return n
}

// CreateNode registers a node. DeviceID and Name are required.
func (db *DB) CreateNode(ctx context.Context, n floorplan.SensorNode) (floorplan.SensorNode, error) {
	if n.DeviceID == "" || n.Name == "" {
		return floorplan.SensorNode{}, fmt.Errorf("device_id and name are required")
	}
	n = nodeDefaults(n)
	res, err := db.ExecContext(ctx,
		`INSERT INTO nodes (device_id, name, location, x, y, coverage_radius, point_size, is_active, canvas_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.DeviceID, n.Name, nullString(n.Location), nullFloat(n.X), nullFloat(n.Y),
		n.CoverageRadius, n.PointSize, n.Active, nullInt(n.CanvasID))
	if err != nil {
		if isUniqueViolation(err) {
			return floorplan.SensorNode{}, ErrDuplicateDevice
		}
		return floorplan.SensorNode{}, fmt.Errorf("failed to insert node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return floorplan.SensorNode{}, fmt.Errorf("failed to get node id: %w", err)
	}
	return db.GetNode(ctx, id)
}

// UpdateNode replaces a node's editable fields. The device id is fixed.
func (db *DB) UpdateNode(ctx context.Context, n floorplan.SensorNode) error {
	if n.Name == "" {
		return fmt.Errorf("name is required")
	}
	n = nodeDefaults(n)
	res, err := db.ExecContext(ctx,
		`UPDATE nodes SET name = ?, location = ?, x = ?, y = ?, coverage_radius = ?, point_size = ?, is_active = ?, canvas_id = ?
		 WHERE id = ?`,
		n.Name, nullString(n.Location), nullFloat(n.X), nullFloat(n.Y), n.CoverageRadius, n.PointSize, n.Active, nullInt(n.CanvasID), n.ID)
	if err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}
	return affected(res, "node", n.ID)
}

// DeleteNode removes a node and its readings.
func (db *DB) DeleteNode(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}
	return affected(res, "node", id)
}

// PlaceNode positions a node on a canvas.
func (db *DB) PlaceNode(ctx context.Context, id, canvasID int64, x, y float64) error {
	res, err := db.ExecContext(ctx, `UPDATE nodes SET x = ?, y = ?, canvas_id = ? WHERE id = ?`, x, y, canvasID, id)
	if err != nil {
		return fmt.Errorf("failed to place node: %w", err)
	}
	return affected(res, "node", id)
}

// UnplaceNode clears a node's position and canvas.
func (db *DB) UnplaceNode(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `UPDATE nodes SET x = NULL, y = NULL, canvas_id = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to unplace node: %w", err)
	}
	return affected(res, "node", id)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
