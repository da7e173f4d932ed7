package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/twin.report/internal/floorplan"
)

// BundleVersion is the only canvas bundle format understood.
const BundleVersion = 1

// ErrInvalidBundle marks a bundle that cannot be imported.
var ErrInvalidBundle = errors.New("invalid canvas file format")

// Bundle is a portable copy of one canvas. Nodes are carried by device id
// so they can be matched against another installation's registry.
type Bundle struct {
	Version    int                       `json:"version"`
	ExportID   string                    `json:"export_id,omitempty"`
	ExportedAt time.Time                 `json:"exportedAt"`
	Canvas     BundleCanvas              `json:"canvas"`
	Elements   []floorplan.ElementRecord `json:"elements"`
	Walls      []BundleWall              `json:"walls"`
	Nodes      []BundleNode              `json:"nodes"`
}

type BundleCanvas struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type BundleWall struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

type BundleNode struct {
	DeviceID       string   `json:"device_id"`
	Name           string   `json:"name"`
	X              *float64 `json:"x"`
	Y              *float64 `json:"y"`
	CoverageRadius *float64 `json:"coverage_radius,omitempty"`
	PointSize      *float64 `json:"point_size,omitempty"`
}

// ImportResult reports the new canvas and how the bundle's nodes matched.
type ImportResult struct {
	Canvas       floorplan.FloorPlan `json:"canvas"`
	NodesMatched []string            `json:"nodesMatched"`
	NodesSkipped []string            `json:"nodesSkipped"`
}

// ExportCanvas builds the bundle for canvasID.
func (db *DB) ExportCanvas(ctx context.Context, canvasID int64) (Bundle, error) {
	scene, err := db.LoadScene(ctx, canvasID)
	if err != nil {
		return Bundle{}, err
	}
	b := Bundle{
		Version:    BundleVersion,
		ExportID:   uuid.NewString(),
		ExportedAt: time.Now().UTC(),
		Canvas:     BundleCanvas{Name: scene.Plan.Name, Width: scene.Plan.Width, Height: scene.Plan.Height},
		Elements:   make([]floorplan.ElementRecord, 0, len(scene.Elements)),
		Walls:      make([]BundleWall, 0, len(scene.Walls)),
		Nodes:      []BundleNode{},
	}
	for _, e := range scene.Elements {
		r := e.Record()
		r.ID, r.CanvasID = 0, 0
		b.Elements = append(b.Elements, r)
	}
	for _, w := range scene.Walls {
		b.Walls = append(b.Walls, BundleWall{X1: w.X1, Y1: w.Y1, X2: w.X2, Y2: w.Y2})
	}
	for _, n := range scene.Nodes {
		if n.CanvasID == nil || *n.CanvasID != canvasID {
			continue
		}
		radius, size := n.CoverageRadius, n.PointSize
		b.Nodes = append(b.Nodes, BundleNode{
			DeviceID: n.DeviceID, Name: n.Name, X: n.X, Y: n.Y,
			CoverageRadius: &radius, PointSize: &size,
		})
	}
	return b, nil
}

// Validate checks the header and canvas of a bundle.
func (b Bundle) Validate() error {
	if b.Version != BundleVersion {
		return fmt.Errorf("%w: version %d", ErrInvalidBundle, b.Version)
	}
	if b.Canvas.Name == "" {
		return fmt.Errorf("%w: canvas must have name, width, height", ErrInvalidBundle)
	}
	plan := floorplan.FloorPlan{Width: b.Canvas.Width, Height: b.Canvas.Height}
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	return nil
}

// ImportCanvas creates a new canvas named "<name> (imported)" from b in a
// single transaction. Nodes are matched by device id and moved onto the new
// canvas; unknown devices are reported as skipped.
func (db *DB) ImportCanvas(ctx context.Context, b Bundle) (ImportResult, error) {
	if err := b.Validate(); err != nil {
		return ImportResult{}, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	plan, err := createCanvas(ctx, tx, floorplan.FloorPlan{
		Name:   b.Canvas.Name + " (imported)",
		Width:  b.Canvas.Width,
		Height: b.Canvas.Height,
	})
	if err != nil {
		return ImportResult{}, err
	}

	for i, r := range b.Elements {
		r.CanvasID = plan.ID
		e, err := floorplan.DecodeElement(r)
		if err != nil {
			return ImportResult{}, fmt.Errorf("%w: element %d: %v", ErrInvalidBundle, i, err)
		}
		if _, err := createElement(ctx, tx, e); err != nil {
			return ImportResult{}, fmt.Errorf("%w: element %d: %v", ErrInvalidBundle, i, err)
		}
	}
	for i, w := range b.Walls {
		wall := floorplan.Wall{CanvasID: plan.ID, X1: w.X1, Y1: w.Y1, X2: w.X2, Y2: w.Y2}
		if _, err := createWall(ctx, tx, wall); err != nil {
			return ImportResult{}, fmt.Errorf("%w: wall %d: %v", ErrInvalidBundle, i, err)
		}
	}

	res := ImportResult{NodesMatched: []string{}, NodesSkipped: []string{}}
	for _, n := range b.Nodes {
		existing, err := nodeByDevice(ctx, tx, n.DeviceID)
		if errors.Is(err, ErrNotFound) {
			res.NodesSkipped = append(res.NodesSkipped, n.DeviceID)
			continue
		}
		if err != nil {
			return ImportResult{}, err
		}
		radius := floorplan.DefaultCoverageRadius
		if n.CoverageRadius != nil {
			radius = *n.CoverageRadius
		}
		size := floorplan.DefaultPointSize
		if n.PointSize != nil {
			size = *n.PointSize
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE nodes SET x = ?, y = ?, canvas_id = ?, coverage_radius = ?, point_size = ? WHERE id = ?`,
			nullFloat(n.X), nullFloat(n.Y), plan.ID, radius, size, existing.ID); err != nil {
			return ImportResult{}, fmt.Errorf("failed to place imported node: %w", err)
		}
		res.NodesMatched = append(res.NodesMatched, n.DeviceID)
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("failed to commit import: %w", err)
	}
	res.Canvas = plan
	return res, nil
}
