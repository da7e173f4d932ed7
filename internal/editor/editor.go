// Package editor is the floor-plan interaction state machine. It turns
// pointer and keyboard events into local geometry changes and, when a
// gesture completes, into exactly one mutation for the persistence
// collaborator.
//
// An Editor is not safe for concurrent use. All events, commit results and
// heatmap results must be delivered from one goroutine (see package
// session).
package editor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/geom"
	"github.com/banshee-data/twin.report/internal/heatmap"
	"github.com/banshee-data/twin.report/internal/hittest"
	"github.com/banshee-data/twin.report/internal/units"
	"github.com/banshee-data/twin.report/internal/view"
)

// Minimum extent for drawn shapes, in meters.
const (
	MinRectSize     = 1.0
	MinCircleRadius = 1.0
)

// InspectResult is the average of the heatmap over a rubber-band region.
type InspectResult struct {
	Average     float64   `json:"average"`
	Unit        string    `json:"unit"`
	SampleCount int       `json:"sample_count"`
	Rect        geom.Rect `json:"rect"`
}

// Editor holds the editing session state.
type Editor struct {
	plan     floorplan.FloorPlan
	nodes    []floorplan.SensorNode
	walls    []floorplan.Wall
	elements []floorplan.Element
	latest   map[int64]floorplan.Reading

	view    view.Transform
	tol     hittest.Tolerances
	mode    Mode
	locked  bool
	sel     hittest.Selection
	gesture Gesture

	placing   int64
	textDraft string
	icon      string
	style     floorplan.Style

	heat      floorplan.HeatmapConfig
	raster    *heatmap.Raster
	rasterGen uint64

	inspect     *InspectResult
	inspectRect *geom.Rect

	committer Committer
	nextTemp  int64
	// deferred holds the latest update for entities whose create has not
	// been acknowledged yet, keyed by temporary id.
	deferred map[int64]Mutation
	errs     []error

	revision     uint64
	heatRevision uint64
}

// New returns an editor for plan displayed at displayW x displayH pixels.
func New(plan floorplan.FloorPlan, displayW, displayH float64, c Committer) *Editor {
	return &Editor{
		plan:      plan,
		latest:    map[int64]floorplan.Reading{},
		view:      view.New(plan.Width, plan.Height, displayW, displayH),
		tol:       hittest.DefaultTolerances(),
		icon:      floorplan.DefaultIcon,
		style:     floorplan.DefaultStyle(),
		heat:      floorplan.DefaultHeatmapConfig(),
		committer: c,
		deferred:  map[int64]Mutation{},
		revision:  1,
	}
}

// SetCommitter replaces the committer.
func (e *Editor) SetCommitter(c Committer) { e.committer = c }

// Load replaces the canonical entity lists with copies of scene's.
func (e *Editor) Load(scene floorplan.Scene) {
	e.cancelGesture()
	if scene.Plan.Width != e.plan.Width || scene.Plan.Height != e.plan.Height {
		e.view = view.New(scene.Plan.Width, scene.Plan.Height, e.view.DisplayW, e.view.DisplayH)
	}
	e.plan = scene.Plan
	e.nodes = append([]floorplan.SensorNode(nil), scene.Nodes...)
	e.walls = append([]floorplan.Wall(nil), scene.Walls...)
	e.elements = append([]floorplan.Element(nil), scene.Elements...)
	if !e.selectionExists() {
		e.sel = hittest.Selection{}
	}
	e.touchHeat()
}

// SetReadings replaces the latest reading per node.
func (e *Editor) SetReadings(latest map[int64]floorplan.Reading) {
	e.latest = make(map[int64]floorplan.Reading, len(latest))
	for k, v := range latest {
		e.latest[k] = v
	}
	e.touchHeat()
}

// Resize changes the floor-plan dimensions.
func (e *Editor) Resize(width, height float64) error {
	p := e.plan
	p.Width, p.Height = width, height
	if err := p.Validate(); err != nil {
		return err
	}
	e.plan = p
	e.view.FloorW, e.view.FloorH = width, height
	e.touchHeat()
	return nil
}

// MaxDisplaySide bounds each display dimension in pixels.
const MaxDisplaySide = 4096

// ResizeDisplay changes the display size in pixels.
func (e *Editor) ResizeDisplay(w, h float64) error {
	if !(w > 0 && w <= MaxDisplaySide && h > 0 && h <= MaxDisplaySide) {
		return fmt.Errorf("display size %vx%v must be between 1 and %d", w, h, MaxDisplaySide)
	}
	e.view = e.view.Resize(w, h)
	e.touch()
	return nil
}

// SetMode switches tool, cancelling any pending multi-step gesture.
func (e *Editor) SetMode(m Mode) {
	if m == e.mode {
		return
	}
	e.cancelGesture()
	if m != ModeInspect {
		e.inspect, e.inspectRect = nil, nil
	}
	if m != ModePlace {
		e.placing = 0
	}
	e.mode = m
	e.touch()
}

// Mode returns the active tool.
func (e *Editor) Mode() Mode { return e.mode }

// SetLocked toggles locked editing.
func (e *Editor) SetLocked(locked bool) {
	e.cancelGesture()
	e.locked = locked
	e.touch()
}

// BeginPlacing enters place mode for an unplaced node.
func (e *Editor) BeginPlacing(nodeID int64) bool {
	if e.locked {
		return false
	}
	if _, ok := e.nodeIndex(nodeID); !ok {
		return false
	}
	e.SetMode(ModePlace)
	e.placing = nodeID
	return true
}

// SetTextDraft sets the content used by the text tool.
func (e *Editor) SetTextDraft(s string) { e.textDraft = s }

// SetIcon sets the icon used by the icon tool.
func (e *Editor) SetIcon(name string) {
	if name == "" {
		name = floorplan.DefaultIcon
	}
	e.icon = name
}

// SetStyle sets the style applied to new elements.
func (e *Editor) SetStyle(s floorplan.Style) { e.style = s }

// SetHeatmapConfig replaces the heatmap configuration.
func (e *Editor) SetHeatmapConfig(c floorplan.HeatmapConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}
	e.heat = c
	e.inspect = nil
	e.touchHeat()
	return nil
}

// HeatmapConfig returns the heatmap configuration.
func (e *Editor) HeatmapConfig() floorplan.HeatmapConfig { return e.heat }

// Selection returns the current selection.
func (e *Editor) Selection() hittest.Selection { return e.sel }

// Select sets the selection directly.
func (e *Editor) Select(sel hittest.Selection) {
	e.sel = sel
	if !e.selectionExists() {
		e.sel = hittest.Selection{}
	}
	e.touch()
}

// Gesture returns the gesture in progress.
func (e *Editor) Gesture() Gesture { return e.gesture }

// View returns the view transform.
func (e *Editor) View() view.Transform { return e.view }

// Revision increases whenever anything visible changes.
func (e *Editor) Revision() uint64 { return e.revision }

// HeatmapRevision increases whenever a heatmap input changes.
func (e *Editor) HeatmapRevision() uint64 { return e.heatRevision }

// Errors returns and clears the errors recorded since the last call.
func (e *Editor) Errors() []error {
	errs := e.errs
	e.errs = nil
	return errs
}

// Inspect returns the last inspect result, if any.
func (e *Editor) Inspect() (InspectResult, bool) {
	if e.inspect == nil {
		return InspectResult{}, false
	}
	return *e.inspect, true
}

// Scene returns the entities as currently displayed: the canonical lists
// with any gesture working copy substituted. The slices are fresh copies.
func (e *Editor) Scene() floorplan.Scene {
	s := floorplan.Scene{
		Plan:     e.plan,
		Nodes:    append([]floorplan.SensorNode(nil), e.nodes...),
		Walls:    append([]floorplan.Wall(nil), e.walls...),
		Elements: append([]floorplan.Element(nil), e.elements...),
	}
	g := e.gesture
	switch g.Kind {
	case GestureDragNode:
		if i, ok := e.nodeIndex(g.ID); ok {
			s.Nodes[i] = g.Node
		}
	case GestureDragWall, GestureRotateWall:
		if i, ok := e.wallIndex(g.ID); ok {
			s.Walls[i] = g.Wall
		}
	case GestureDragElement, GestureRotateElement:
		if i, ok := e.elementIndex(g.ID); ok {
			s.Elements[i] = g.Element
		}
	}
	return s
}

// HeatmapInput returns the engine input for the displayed scene.
func (e *Editor) HeatmapInput() heatmap.Input {
	return e.Scene().HeatmapInput(e.latest, e.heat)
}

// SetRaster installs a computed raster. Results older than the installed
// one are ignored. It reports whether r was installed.
func (e *Editor) SetRaster(gen uint64, r *heatmap.Raster) bool {
	if gen <= e.rasterGen && e.raster != nil {
		return false
	}
	e.rasterGen = gen
	e.raster = r
	e.touch()
	return true
}

// Raster returns the installed raster and its generation.
func (e *Editor) Raster() (*heatmap.Raster, uint64) { return e.raster, e.rasterGen }

// Snapshot is an immutable view of everything the renderer draws.
type Snapshot struct {
	Scene      floorplan.Scene
	View       view.Transform
	Tolerances hittest.Tolerances
	Mode       Mode
	Locked     bool
	Selection  hittest.Selection
	Gesture    Gesture
	Heatmap    floorplan.HeatmapConfig
	Raster     *heatmap.Raster
	RasterGen  uint64
	Inspect    *InspectResult
	InspectBox *geom.Rect
	Revision   uint64
}

// Snapshot captures the current state for rendering.
func (e *Editor) Snapshot() Snapshot {
	g := e.gesture
	g.Points = append([]geom.Point(nil), g.Points...)
	s := Snapshot{
		Scene:      e.Scene(),
		View:       e.view,
		Tolerances: e.tol,
		Mode:       e.mode,
		Locked:     e.locked,
		Selection:  e.sel,
		Gesture:    g,
		Heatmap:    e.heat,
		Raster:     e.raster,
		RasterGen:  e.rasterGen,
		Revision:   e.revision,
	}
	if e.inspect != nil {
		r := *e.inspect
		s.Inspect = &r
	}
	if e.inspectRect != nil {
		r := *e.inspectRect
		s.InspectBox = &r
	}
	return s
}

func (e *Editor) touch() { e.revision++ }

func (e *Editor) touchHeat() {
	e.heatRevision++
	e.touch()
}

func (e *Editor) tester() hittest.Tester {
	return hittest.Tester{View: e.view, Tol: e.tol, Locked: e.locked}
}

func (e *Editor) hitScene() hittest.Scene {
	return hittest.Scene{Nodes: e.nodes, Walls: e.walls, Elements: e.elements}
}

func (e *Editor) nodeIndex(id int64) (int, bool) {
	for i, n := range e.nodes {
		if n.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (e *Editor) wallIndex(id int64) (int, bool) {
	for i, w := range e.walls {
		if w.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (e *Editor) elementIndex(id int64) (int, bool) {
	for i, el := range e.elements {
		if el.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (e *Editor) selectionExists() bool {
	var ok bool
	switch e.sel.Kind {
	case hittest.None:
		return true
	case hittest.Node:
		_, ok = e.nodeIndex(e.sel.ID)
	case hittest.Wall:
		_, ok = e.wallIndex(e.sel.ID)
	case hittest.Element:
		_, ok = e.elementIndex(e.sel.ID)
	}
	return ok
}

func (e *Editor) channelUnit() string {
	if ch, ok := units.Lookup(e.heat.Channel); ok {
		return ch.Unit
	}
	return ""
}

func (e *Editor) fail(err error) {
	e.errs = append(e.errs, err)
	e.touch()
}

func (e *Editor) newRequestID() uuid.UUID { return uuid.New() }
