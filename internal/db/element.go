package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/monitoring"
)

const elementColumns = `id, canvas_id, type, x, y, width, height, radius, points, text, icon,
	fill_color, stroke_color, stroke_width, font_size, rotation`

func scanElementRecord(s rowScanner) (floorplan.ElementRecord, error) {
	var (
		r                     floorplan.ElementRecord
		width, height, radius sql.NullFloat64
		points, text, icon    sql.NullString
	)
	if err := s.Scan(&r.ID, &r.CanvasID, &r.Type, &r.X, &r.Y, &width, &height, &radius, &points, &text, &icon,
		&r.Fill, &r.Stroke, &r.StrokeWidth, &r.FontSize, &r.Rotation); err != nil {
		return floorplan.ElementRecord{}, err
	}
	if width.Valid {
		r.Width = &width.Float64
	}
	if height.Valid {
		r.Height = &height.Float64
	}
	if radius.Valid {
		r.Radius = &radius.Float64
	}
	if points.Valid && points.String != "" {
		if err := json.Unmarshal([]byte(points.String), &r.Points); err != nil {
			return floorplan.ElementRecord{}, fmt.Errorf("element %d points: %w", r.ID, err)
		}
	}
	if text.Valid {
		r.Text = &text.String
	}
	if icon.Valid {
		r.Icon = &icon.String
	}
	return r, nil
}

// ListElements returns the decodable elements of a canvas in creation
// order. Rows that do not decode are logged and skipped.
func (db *DB) ListElements(ctx context.Context, canvasID int64) ([]floorplan.Element, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+elementColumns+` FROM canvas_elements WHERE canvas_id = ? ORDER BY id ASC`, canvasID)
	if err != nil {
		return nil, fmt.Errorf("failed to query elements: %w", err)
	}
	defer rows.Close()

	var out []floorplan.Element
	for rows.Next() {
		rec, err := scanElementRecord(rows)
		if err != nil {
			monitoring.Logf("db: skipping element: %v", err)
			continue
		}
		e, err := floorplan.DecodeElement(rec)
		if err != nil {
			monitoring.Logf("db: skipping element %d: %v", rec.ID, err)
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetElement returns one element.
func (db *DB) GetElement(ctx context.Context, id int64) (floorplan.Element, error) {
	rec, err := scanElementRecord(db.QueryRowContext(ctx, `SELECT `+elementColumns+` FROM canvas_elements WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return floorplan.Element{}, fmt.Errorf("element %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return floorplan.Element{}, fmt.Errorf("failed to get element: %w", err)
	}
	return floorplan.DecodeElement(rec)
}

func elementArgs(r floorplan.ElementRecord) ([]interface{}, error) {
	var points interface{}
	if len(r.Points) > 0 {
		b, err := json.Marshal(r.Points)
		if err != nil {
			return nil, fmt.Errorf("failed to encode points: %w", err)
		}
		points = string(b)
	}
	var text, icon interface{}
	if r.Text != nil {
		text = *r.Text
	}
	if r.Icon != nil {
		icon = *r.Icon
	}
	return []interface{}{
		r.Type, r.X, r.Y, nullFloat(r.Width), nullFloat(r.Height), nullFloat(r.Radius), points, text, icon,
		r.Fill, r.Stroke, r.StrokeWidth, r.FontSize, r.Rotation,
	}, nil
}

// CreateElement inserts e and returns its id.
func (db *DB) CreateElement(ctx context.Context, e floorplan.Element) (int64, error) {
	return createElement(ctx, db.DB, e)
}

func createElement(ctx context.Context, q execQuerier, e floorplan.Element) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	args, err := elementArgs(e.Record())
	if err != nil {
		return 0, err
	}
	res, err := q.ExecContext(ctx, `INSERT INTO canvas_elements
		(canvas_id, type, x, y, width, height, radius, points, text, icon,
		 fill_color, stroke_color, stroke_width, font_size, rotation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append([]interface{}{e.CanvasID}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert element: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get element id: %w", err)
	}
	return id, nil
}

// UpdateElement replaces every property of an element. Its canvas is fixed.
func (db *DB) UpdateElement(ctx context.Context, e floorplan.Element) error {
	if err := e.Validate(); err != nil {
		return err
	}
	args, err := elementArgs(e.Record())
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `UPDATE canvas_elements SET
		type = ?, x = ?, y = ?, width = ?, height = ?, radius = ?, points = ?, text = ?, icon = ?,
		fill_color = ?, stroke_color = ?, stroke_width = ?, font_size = ?, rotation = ?
		WHERE id = ?`, append(args, e.ID)...)
	if err != nil {
		return fmt.Errorf("failed to update element: %w", err)
	}
	return affected(res, "element", e.ID)
}

// DeleteElement removes an element.
func (db *DB) DeleteElement(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM canvas_elements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete element: %w", err)
	}
	return affected(res, "element", id)
}
