package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/banshee-data/twin.report/internal/floorplan"
)

// ListWalls returns the walls of a canvas in creation order.
func (db *DB) ListWalls(ctx context.Context, canvasID int64) ([]floorplan.Wall, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, canvas_id, x1, y1, x2, y2 FROM walls WHERE canvas_id = ? ORDER BY id ASC`, canvasID)
	if err != nil {
		return nil, fmt.Errorf("failed to query walls: %w", err)
	}
	defer rows.Close()

	var out []floorplan.Wall
	for rows.Next() {
		var w floorplan.Wall
		if err := rows.Scan(&w.ID, &w.CanvasID, &w.X1, &w.Y1, &w.X2, &w.Y2); err != nil {
			return nil, fmt.Errorf("failed to scan wall: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetWall returns one wall.
func (db *DB) GetWall(ctx context.Context, id int64) (floorplan.Wall, error) {
	var w floorplan.Wall
	err := db.QueryRowContext(ctx, `SELECT id, canvas_id, x1, y1, x2, y2 FROM walls WHERE id = ?`, id).
		Scan(&w.ID, &w.CanvasID, &w.X1, &w.Y1, &w.X2, &w.Y2)
	if errors.Is(err, sql.ErrNoRows) {
		return floorplan.Wall{}, fmt.Errorf("wall %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return floorplan.Wall{}, fmt.Errorf("failed to get wall: %w", err)
	}
	return w, nil
}

// CreateWall inserts w and returns its id.
func (db *DB) CreateWall(ctx context.Context, w floorplan.Wall) (int64, error) {
	return createWall(ctx, db.DB, w)
}

func createWall(ctx context.Context, q execQuerier, w floorplan.Wall) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, `INSERT INTO walls (canvas_id, x1, y1, x2, y2) VALUES (?, ?, ?, ?, ?)`,
		w.CanvasID, w.X1, w.Y1, w.X2, w.Y2)
	if err != nil {
		return 0, fmt.Errorf("failed to insert wall: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get wall id: %w", err)
	}
	return id, nil
}

// UpdateWall moves a wall's endpoints.
func (db *DB) UpdateWall(ctx context.Context, w floorplan.Wall) error {
	if err := w.Validate(); err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `UPDATE walls SET x1 = ?, y1 = ?, x2 = ?, y2 = ? WHERE id = ?`, w.X1, w.Y1, w.X2, w.Y2, w.ID)
	if err != nil {
		return fmt.Errorf("failed to update wall: %w", err)
	}
	return affected(res, "wall", w.ID)
}

// DeleteWall removes a wall.
func (db *DB) DeleteWall(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM walls WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete wall: %w", err)
	}
	return affected(res, "wall", id)
}
