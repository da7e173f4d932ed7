package floorplan

import (
	"fmt"

	"github.com/banshee-data/twin.report/internal/heatmap"
	"github.com/banshee-data/twin.report/internal/units"
)

// HeatmapConfig controls how the heatmap overlay is computed and coloured.
type HeatmapConfig struct {
	Enabled          bool           `json:"enabled"`
	Channel          string         `json:"channel"`
	Opacity          uint8          `json:"opacity"`
	Power            float64        `json:"power"`
	RadiusMultiplier float64        `json:"radius_multiplier"`
	Min              *float64       `json:"min,omitempty"`
	Max              *float64       `json:"max,omitempty"`
	Stops            []heatmap.Stop `json:"stops,omitempty"`
}

// DefaultHeatmapConfig returns an enabled temperature overlay with
// inverse-square weighting.
func DefaultHeatmapConfig() HeatmapConfig {
	return HeatmapConfig{
		Enabled:          true,
		Channel:          units.TemperatureC,
		Opacity:          heatmap.DefaultAlpha,
		Power:            2,
		RadiusMultiplier: 1,
	}
}

// Params returns the interpolation parameters.
func (c HeatmapConfig) Params() heatmap.Params {
	return heatmap.Params{Power: c.Power, RadiusMultiplier: c.RadiusMultiplier}
}

// Ramp returns the custom ramp, or the default one when no stops are set.
func (c HeatmapConfig) Ramp() (heatmap.Ramp, error) {
	if len(c.Stops) == 0 {
		return heatmap.DefaultRamp(), nil
	}
	return heatmap.NewRamp(c.Stops)
}

// Range returns the colour-scale bounds: the overrides when set, otherwise
// the channel's nominal range.
func (c HeatmapConfig) Range() (lo, hi float64) {
	if ch, ok := units.Lookup(c.Channel); ok {
		lo, hi = ch.Min, ch.Max
	}
	if c.Min != nil {
		lo = *c.Min
	}
	if c.Max != nil {
		hi = *c.Max
	}
	return lo, hi
}

// ColorOptions assembles the options for heatmap.Colorize.
func (c HeatmapConfig) ColorOptions() (heatmap.ColorOptions, error) {
	ramp, err := c.Ramp()
	if err != nil {
		return heatmap.ColorOptions{}, err
	}
	lo, hi := c.Range()
	return heatmap.ColorOptions{Min: lo, Max: hi, Ramp: ramp, Alpha: c.Opacity}, nil
}

// Validate checks the channel, parameters and ramp.
func (c HeatmapConfig) Validate() error {
	if !units.IsHeatmapChannel(c.Channel) {
		return fmt.Errorf("invalid heatmap channel %q; must be one of: %s", c.Channel, units.GetValidChannelsString())
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if _, err := c.Ramp(); err != nil {
		return err
	}
	return nil
}
