package editor

import (
	"errors"

	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/geom"
	"github.com/banshee-data/twin.report/internal/hittest"
)

// ErrLocked is returned by intents issued while the editor is locked.
var ErrLocked = errors.New("editor is locked")

func (e *Editor) tempID() int64 {
	e.nextTemp--
	return e.nextTemp
}

// issue sends m to the committer. Updates and deletes of entities whose
// create is still in flight are held back until the create resolves.
func (e *Editor) issue(m Mutation) {
	m.RequestID = e.newRequestID()
	if m.ID < 0 && m.Op != OpCreateWall && m.Op != OpCreateElement {
		e.deferred[m.ID] = m
		return
	}
	if e.committer == nil {
		return
	}
	e.committer.Commit(m)
}

func (e *Editor) createWall(s geom.Segment) {
	w := floorplan.Wall{CanvasID: e.plan.ID}.WithSegment(s)
	if err := w.Validate(); err != nil {
		e.fail(err)
		return
	}
	w.ID = e.tempID()
	e.walls = append(e.walls, w)
	e.touchHeat()
	e.issue(Mutation{Op: OpCreateWall, ID: w.ID, Wall: &w})
}

func (e *Editor) createElement(shape floorplan.Shape) {
	el := floorplan.Element{CanvasID: e.plan.ID, Style: e.style, Shape: shape}
	if err := el.Validate(); err != nil {
		e.fail(err)
		return
	}
	el.ID = e.tempID()
	e.elements = append(e.elements, el)
	e.touch()
	e.issue(Mutation{Op: OpCreateElement, ID: el.ID, Element: &el})
}

// UpdateElement replaces an element's full property set, as edited outside
// a gesture.
func (e *Editor) UpdateElement(el floorplan.Element) error {
	if e.locked {
		return ErrLocked
	}
	el.Rotation = geom.NormalizeDegrees(el.Rotation)
	if err := el.Validate(); err != nil {
		return err
	}
	i, ok := e.elementIndex(el.ID)
	if !ok {
		return errors.New("element not found")
	}
	e.elements[i] = el
	e.touch()
	e.issue(Mutation{Op: OpUpdateElement, ID: el.ID, Element: &el})
	return nil
}

// UpdateWall replaces a wall's endpoints.
func (e *Editor) UpdateWall(w floorplan.Wall) error {
	if e.locked {
		return ErrLocked
	}
	if err := w.Validate(); err != nil {
		return err
	}
	i, ok := e.wallIndex(w.ID)
	if !ok {
		return errors.New("wall not found")
	}
	e.walls[i] = w
	e.touchHeat()
	e.issue(Mutation{Op: OpUpdateWall, ID: w.ID, Wall: &w})
	return nil
}

// RotateWallTo rotates a wall about its midpoint to deg degrees.
func (e *Editor) RotateWallTo(id int64, deg float64) error {
	i, ok := e.wallIndex(id)
	if !ok {
		return errors.New("wall not found")
	}
	w := e.walls[i]
	s := w.Segment()
	return e.UpdateWall(w.WithSegment(s.RotatedAbout(s.Midpoint(), deg)))
}

// DeleteSelection deletes the selected wall or element, or unplaces the
// selected node. It reports whether anything was issued.
func (e *Editor) DeleteSelection() bool {
	if e.locked || e.sel.Kind == hittest.None {
		return false
	}
	e.cancelGesture()
	sel := e.sel
	switch sel.Kind {
	case hittest.Node:
		i, ok := e.nodeIndex(sel.ID)
		if !ok {
			return false
		}
		n := e.nodes[i].Unplaced()
		e.nodes[i] = n
		e.issue(Mutation{Op: OpUnplaceNode, ID: n.ID, Node: &n})
	case hittest.Wall:
		i, ok := e.wallIndex(sel.ID)
		if !ok {
			return false
		}
		e.walls = append(e.walls[:i:i], e.walls[i+1:]...)
		e.issue(Mutation{Op: OpDeleteWall, ID: sel.ID})
	case hittest.Element:
		i, ok := e.elementIndex(sel.ID)
		if !ok {
			return false
		}
		e.elements = append(e.elements[:i:i], e.elements[i+1:]...)
		e.issue(Mutation{Op: OpDeleteElement, ID: sel.ID})
	}
	e.sel = hittest.Selection{}
	e.touchHeat()
	return true
}

// Resolve applies a commit result. Failures are recorded and leave local
// state untouched. Successful creates swap the temporary id for the stored
// one and release any held-back follow-up mutation.
func (e *Editor) Resolve(res CommitResult) {
	m := res.Mutation
	if res.Err != nil {
		if m.Op == OpCreateWall || m.Op == OpCreateElement {
			delete(e.deferred, m.ID)
		}
		e.fail(res.Err)
		return
	}

	switch m.Op {
	case OpCreateWall:
		if i, ok := e.wallIndex(m.ID); ok {
			e.walls[i].ID = res.CreatedID
		}
		if e.gesture.ID == m.ID && (e.gesture.Kind == GestureDragWall || e.gesture.Kind == GestureRotateWall) {
			e.gesture.ID = res.CreatedID
			e.gesture.OrigWall.ID = res.CreatedID
			e.gesture.Wall.ID = res.CreatedID
		}
		if e.sel.Kind == hittest.Wall && e.sel.ID == m.ID {
			e.sel.ID = res.CreatedID
		}
	case OpCreateElement:
		if i, ok := e.elementIndex(m.ID); ok {
			e.elements[i].ID = res.CreatedID
		}
		if e.gesture.ID == m.ID && (e.gesture.Kind == GestureDragElement || e.gesture.Kind == GestureRotateElement) {
			e.gesture.ID = res.CreatedID
			e.gesture.OrigElement.ID = res.CreatedID
			e.gesture.Element.ID = res.CreatedID
		}
		if e.sel.Kind == hittest.Element && e.sel.ID == m.ID {
			e.sel.ID = res.CreatedID
		}
	default:
		e.touch()
		return
	}
	e.touch()

	follow, ok := e.deferred[m.ID]
	if !ok {
		return
	}
	delete(e.deferred, m.ID)
	follow.ID = res.CreatedID
	if follow.Wall != nil {
		w := *follow.Wall
		w.ID = res.CreatedID
		follow.Wall = &w
	}
	if follow.Element != nil {
		el := *follow.Element
		el.ID = res.CreatedID
		follow.Element = &el
	}
	e.issue(follow)
}
