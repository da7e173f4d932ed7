package session

import (
	"context"
	"fmt"

	"github.com/banshee-data/twin.report/internal/editor"
	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/geom"
	"github.com/banshee-data/twin.report/internal/hittest"
)

// Event is one client input applied to an editor. Which fields matter
// depends on Type.
type Event struct {
	Type string `json:"type"`

	// Screen position in display pixels.
	X float64 `json:"x"`
	Y float64 `json:"y"`
	// Button is "primary" (default) or "middle".
	Button string `json:"button,omitempty"`

	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	Zoom   bool    `json:"zoom,omitempty"`
	Factor float64 `json:"factor,omitempty"`

	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	Mode   string  `json:"mode,omitempty"`
	Locked bool    `json:"locked,omitempty"`
	Kind   string  `json:"kind,omitempty"`
	ID     int64   `json:"id,omitempty"`
	Degree float64 `json:"degrees,omitempty"`
	Text   string  `json:"text,omitempty"`
	Icon   string  `json:"icon,omitempty"`

	Style   *floorplan.Style         `json:"style,omitempty"`
	Heatmap *floorplan.HeatmapConfig `json:"heatmap,omitempty"`
}

func parseButton(s string) (editor.Button, error) {
	switch s {
	case "", "primary", "left":
		return editor.ButtonPrimary, nil
	case "middle":
		return editor.ButtonMiddle, nil
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

func parseSelectionKind(s string) (hittest.Kind, error) {
	switch s {
	case "", "none":
		return hittest.None, nil
	case "node":
		return hittest.Node, nil
	case "element":
		return hittest.Element, nil
	case "wall":
		return hittest.Wall, nil
	}
	return hittest.None, fmt.Errorf("unknown selection kind %q", s)
}

// Apply feeds ev to ed. Unknown event types and malformed arguments are
// errors; the editor is left untouched in that case.
func (ev Event) Apply(ed *editor.Editor) error {
	p := geom.Pt(ev.X, ev.Y)
	switch ev.Type {
	case "pointer_down":
		b, err := parseButton(ev.Button)
		if err != nil {
			return err
		}
		ed.PointerDown(p, b)
	case "pointer_move":
		ed.PointerMove(p)
	case "pointer_up":
		ed.PointerUp(p)
	case "pointer_leave":
		ed.PointerLeave()
	case "escape":
		ed.Escape()
	case "wheel":
		ed.Wheel(p, ev.DX, ev.DY, ev.Zoom)
	case "zoom":
		if ev.Factor <= 0 {
			return fmt.Errorf("zoom factor must be positive")
		}
		ed.ZoomAt(p, ev.Factor)
	case "reset_view":
		ed.ResetView()
	case "display":
		return ed.ResizeDisplay(ev.Width, ev.Height)
	case "mode":
		m, err := editor.ParseMode(ev.Mode)
		if err != nil {
			return err
		}
		ed.SetMode(m)
	case "lock":
		ed.SetLocked(ev.Locked)
	case "select":
		k, err := parseSelectionKind(ev.Kind)
		if err != nil {
			return err
		}
		ed.Select(hittest.Selection{Kind: k, ID: ev.ID})
	case "delete":
		ed.DeleteSelection()
	case "rotate_wall":
		return ed.RotateWallTo(ev.ID, ev.Degree)
	case "text":
		ed.SetTextDraft(ev.Text)
	case "icon":
		ed.SetIcon(ev.Icon)
	case "style":
		if ev.Style == nil {
			return fmt.Errorf("style event without style")
		}
		ed.SetStyle(*ev.Style)
	case "place":
		if !ed.BeginPlacing(ev.ID) {
			return fmt.Errorf("node %d cannot be placed", ev.ID)
		}
	case "heatmap":
		if ev.Heatmap == nil {
			return fmt.Errorf("heatmap event without config")
		}
		return ed.SetHeatmapConfig(*ev.Heatmap)
	case "resize_floor":
		return ed.Resize(ev.Width, ev.Height)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

// State summarises an editor for clients after a batch of events.
type State struct {
	Revision  uint64                `json:"revision"`
	Mode      string                `json:"mode"`
	Locked    bool                  `json:"locked"`
	Selection SelectionState        `json:"selection"`
	Gesture   string                `json:"gesture"`
	Inspect   *editor.InspectResult `json:"inspect"`
	RasterGen uint64                `json:"raster_generation"`
	Errors    []string              `json:"errors,omitempty"`
}

type SelectionState struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id,omitempty"`
}

// StateOf captures the summary of ed and drains its recorded errors.
func StateOf(ed *editor.Editor) State {
	snap := ed.Snapshot()
	st := State{
		Revision:  snap.Revision,
		Mode:      snap.Mode.String(),
		Locked:    snap.Locked,
		Selection: SelectionState{Kind: snap.Selection.Kind.String(), ID: snap.Selection.ID},
		Gesture:   snap.Gesture.Kind.String(),
		Inspect:   snap.Inspect,
		RasterGen: snap.RasterGen,
	}
	for _, err := range ed.Errors() {
		st.Errors = append(st.Errors, err.Error())
	}
	return st
}

// Apply runs events in order on the session goroutine and returns the
// resulting state. Processing stops at the first event that fails; its
// index is reported in the error.
func (s *Session) Apply(ctx context.Context, events []Event) (State, error) {
	var (
		st     State
		failed error
	)
	err := s.Do(ctx, func(ed *editor.Editor) {
		for i, ev := range events {
			if err := ev.Apply(ed); err != nil {
				failed = fmt.Errorf("event %d (%s): %w", i, ev.Type, err)
				break
			}
		}
		st = StateOf(ed)
	})
	if err != nil {
		return State{}, err
	}
	return st, failed
}
