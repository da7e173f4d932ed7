package floorplan

import "github.com/banshee-data/twin.report/internal/heatmap"

// Scene is everything drawn on one floor plan.
type Scene struct {
	Plan     FloorPlan    `json:"canvas"`
	Nodes    []SensorNode `json:"nodes"`
	Walls    []Wall       `json:"walls"`
	Elements []Element    `json:"elements"`
}

// HeatmapInput builds the engine input for channel from the scene and the
// latest reading per node.
func (s Scene) HeatmapInput(latest map[int64]Reading, cfg HeatmapConfig) heatmap.Input {
	w, h := s.Plan.RasterSize()
	return heatmap.Input{
		Sources: Sources(s.Nodes, latest, cfg.Channel),
		Walls:   Segments(s.Walls),
		Width:   w,
		Height:  h,
		Params:  cfg.Params(),
	}
}

// Node returns the node with id.
func (s Scene) Node(id int64) (SensorNode, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return SensorNode{}, false
}
