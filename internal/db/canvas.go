package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/twin.report/internal/floorplan"
)

const canvasColumns = `id, name, width, height, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCanvas(s rowScanner) (floorplan.FloorPlan, error) {
	var c floorplan.FloorPlan
	var created int64
	if err := s.Scan(&c.ID, &c.Name, &c.Width, &c.Height, &created); err != nil {
		return floorplan.FloorPlan{}, err
	}
	c.CreatedAt = time.Unix(created, 0).UTC()
	return c, nil
}

// ListCanvases returns all canvases ordered by id.
func (db *DB) ListCanvases(ctx context.Context) ([]floorplan.FloorPlan, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+canvasColumns+` FROM canvases ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query canvases: %w", err)
	}
	defer rows.Close()

	var out []floorplan.FloorPlan
	for rows.Next() {
		c, err := scanCanvas(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan canvas: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCanvas returns one canvas.
func (db *DB) GetCanvas(ctx context.Context, id int64) (floorplan.FloorPlan, error) {
	c, err := scanCanvas(db.QueryRowContext(ctx, `SELECT `+canvasColumns+` FROM canvases WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return floorplan.FloorPlan{}, fmt.Errorf("canvas %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return floorplan.FloorPlan{}, fmt.Errorf("failed to get canvas: %w", err)
	}
	return c, nil
}

// CreateCanvas inserts c and returns it with its id and creation time.
func (db *DB) CreateCanvas(ctx context.Context, c floorplan.FloorPlan) (floorplan.FloorPlan, error) {
	return createCanvas(ctx, db.DB, c)
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func createCanvas(ctx context.Context, q execQuerier, c floorplan.FloorPlan) (floorplan.FloorPlan, error) {
	if c.Name == "" {
		return floorplan.FloorPlan{}, fmt.Errorf("canvas name is required")
	}
	if err := c.Validate(); err != nil {
		return floorplan.FloorPlan{}, err
	}
	res, err := q.ExecContext(ctx, `INSERT INTO canvases (name, width, height) VALUES (?, ?, ?)`, c.Name, c.Width, c.Height)
	if err != nil {
		return floorplan.FloorPlan{}, fmt.Errorf("failed to insert canvas: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return floorplan.FloorPlan{}, fmt.Errorf("failed to get canvas id: %w", err)
	}
	return scanCanvas(q.QueryRowContext(ctx, `SELECT `+canvasColumns+` FROM canvases WHERE id = ?`, id))
}

// UpdateCanvas renames or resizes a canvas.
func (db *DB) UpdateCanvas(ctx context.Context, c floorplan.FloorPlan) error {
	if c.Name == "" {
		return fmt.Errorf("canvas name is required")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `UPDATE canvases SET name = ?, width = ?, height = ? WHERE id = ?`, c.Name, c.Width, c.Height, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update canvas: %w", err)
	}
	return affected(res, "canvas", c.ID)
}

// DeleteCanvas removes a canvas with its walls and elements. Its nodes are
// detached, keeping their readings.
func (db *DB) DeleteCanvas(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE nodes SET x = NULL, y = NULL, canvas_id = NULL WHERE canvas_id = ?`, id); err != nil {
		return fmt.Errorf("failed to detach nodes: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM canvases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete canvas: %w", err)
	}
	if err := affected(res, "canvas", id); err != nil {
		return err
	}
	return tx.Commit()
}
