package db

import (
	"context"
	"fmt"

	"github.com/banshee-data/twin.report/internal/editor"
	"github.com/banshee-data/twin.report/internal/floorplan"
)

// LoadScene reads everything drawn on a canvas.
func (db *DB) LoadScene(ctx context.Context, canvasID int64) (floorplan.Scene, error) {
	plan, err := db.GetCanvas(ctx, canvasID)
	if err != nil {
		return floorplan.Scene{}, err
	}
	nodes, err := db.CanvasNodes(ctx, canvasID)
	if err != nil {
		return floorplan.Scene{}, err
	}
	walls, err := db.ListWalls(ctx, canvasID)
	if err != nil {
		return floorplan.Scene{}, err
	}
	elements, err := db.ListElements(ctx, canvasID)
	if err != nil {
		return floorplan.Scene{}, err
	}
	return floorplan.Scene{Plan: plan, Nodes: nodes, Walls: walls, Elements: elements}, nil
}

// CanvasStore binds the store to one canvas so that editor mutations land
// there: moved nodes join the canvas and new walls and elements belong to
// it whatever their CanvasID says.
type CanvasStore struct {
	db       *DB
	canvasID int64
}

var _ editor.Store = (*CanvasStore)(nil)

// Canvas returns the editor store for canvasID.
func (db *DB) Canvas(canvasID int64) *CanvasStore {
	return &CanvasStore{db: db, canvasID: canvasID}
}

func (s *CanvasStore) MoveNode(ctx context.Context, id int64, x, y float64) error {
	return s.db.PlaceNode(ctx, id, s.canvasID, x, y)
}

func (s *CanvasStore) UnplaceNode(ctx context.Context, id int64) error {
	return s.db.UnplaceNode(ctx, id)
}

func (s *CanvasStore) CreateWall(ctx context.Context, w floorplan.Wall) (int64, error) {
	w.CanvasID = s.canvasID
	return s.db.CreateWall(ctx, w)
}

func (s *CanvasStore) UpdateWall(ctx context.Context, w floorplan.Wall) error {
	if err := s.owns(ctx, "walls", w.ID); err != nil {
		return err
	}
	return s.db.UpdateWall(ctx, w)
}

func (s *CanvasStore) DeleteWall(ctx context.Context, id int64) error {
	if err := s.owns(ctx, "walls", id); err != nil {
		return err
	}
	return s.db.DeleteWall(ctx, id)
}

func (s *CanvasStore) CreateElement(ctx context.Context, e floorplan.Element) (int64, error) {
	e.CanvasID = s.canvasID
	return s.db.CreateElement(ctx, e)
}

func (s *CanvasStore) UpdateElement(ctx context.Context, e floorplan.Element) error {
	if err := s.owns(ctx, "canvas_elements", e.ID); err != nil {
		return err
	}
	return s.db.UpdateElement(ctx, e)
}

func (s *CanvasStore) DeleteElement(ctx context.Context, id int64) error {
	if err := s.owns(ctx, "canvas_elements", id); err != nil {
		return err
	}
	return s.db.DeleteElement(ctx, id)
}

// owns checks that row id of table belongs to the bound canvas.
func (s *CanvasStore) owns(ctx context.Context, table string, id int64) error {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = ? AND canvas_id = ?`, id, s.canvasID).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check %s ownership: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d on canvas %d: %w", table, id, s.canvasID, ErrNotFound)
	}
	return nil
}
