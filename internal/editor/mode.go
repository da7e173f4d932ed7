package editor

import (
	"fmt"

	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/geom"
)

// Mode is the active tool.
type Mode int

const (
	ModeSelect Mode = iota
	ModeWall
	ModeRect
	ModeCircle
	ModeTriangle
	ModeText
	ModeIcon
	ModePlace
	ModeInspect
)

var modeNames = []string{"select", "wall", "rect", "circle", "triangle", "text", "icon", "place", "inspect"}

func (m Mode) String() string {
	if int(m) < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode parses a tool name.
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return ModeSelect, fmt.Errorf("unknown editor mode %q", s)
}

// GestureKind is the pointer interaction in progress.
type GestureKind int

const (
	GestureNone GestureKind = iota
	GestureDragNode
	GestureDragElement
	GestureDragWall
	GestureRotateElement
	GestureRotateWall
	GestureDrawWallPreview
	GestureDrawShapePreview
	GestureCollectTrianglePoints
	GestureInspectRubberBand
	GesturePan
)

var gestureNames = []string{
	"none", "drag_node", "drag_element", "drag_wall", "rotate_element", "rotate_wall",
	"draw_wall_preview", "draw_shape_preview", "collect_triangle_points", "inspect_rubber_band", "pan",
}

func (g GestureKind) String() string {
	if int(g) < 0 || int(g) >= len(gestureNames) {
		return fmt.Sprintf("gesture(%d)", int(g))
	}
	return gestureNames[g]
}

// Dragging reports whether the gesture moves or rotates an existing entity.
// Such gestures commit on release and on pointer leave.
func (g GestureKind) Dragging() bool {
	switch g {
	case GestureDragNode, GestureDragElement, GestureDragWall, GestureRotateElement, GestureRotateWall:
		return true
	}
	return false
}

// Gesture describes the interaction in progress. Drag and rotate gestures
// carry a working copy of the entity next to its original; the editor's
// entity lists are only updated when the gesture commits.
type Gesture struct {
	Kind GestureKind
	ID   int64

	// Start is the world point of the pointer-down; Last the latest pointer
	// position in world and screen space.
	Start      geom.Point
	Last       geom.Point
	LastScreen geom.Point
	// Grab is the entity anchor minus the pointer at pointer-down.
	Grab geom.Point

	OrigNode    floorplan.SensorNode
	Node        floorplan.SensorNode
	OrigWall    floorplan.Wall
	Wall        floorplan.Wall
	OrigElement floorplan.Element
	Element     floorplan.Element

	// Anchor is the pending wall start or shape anchor.
	Anchor geom.Point
	// Points are the triangle vertices collected so far.
	Points []geom.Point
	// Band is the inspect rubber band.
	Band geom.Rect
}
