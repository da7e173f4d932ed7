// Package units describes the sensor channels a node can report and the
// display units they may be converted into.
package units

import (
	"sort"
	"strings"
)

// Channel keys as stored in readings and accepted by the heatmap endpoints.
const (
	TemperatureC = "temperature_c"
	HumidityPct  = "humidity_pct"
	PressureHPa  = "pressure_hpa"
	ECO2PPM      = "eco2_ppm"
	TVOCPPB      = "tvoc_ppb"
	PM25UGM3     = "pm25_ugm3"
	BatteryPct   = "battery_pct"
	BatteryV     = "battery_v"
)

// Channel describes a measurement and its nominal display range. The range
// drives the colour scale when a caller does not pass explicit bounds.
type Channel struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Unit  string  `json:"unit"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	// Environmental channels are eligible for heatmaps; battery telemetry is
	// stored but never interpolated.
	Environmental bool `json:"environmental"`
}

var channels = map[string]Channel{
	TemperatureC: {TemperatureC, "Temperature", "°C", 20, 45, true},
	HumidityPct:  {HumidityPct, "Humidity", "%", 30, 100, true},
	PressureHPa:  {PressureHPa, "Pressure", "hPa", 990, 1030, true},
	ECO2PPM:      {ECO2PPM, "eCO2", "ppm", 400, 5000, true},
	TVOCPPB:      {TVOCPPB, "TVOC", "ppb", 0, 1000, true},
	PM25UGM3:     {PM25UGM3, "PM2.5", "µg/m³", 0, 100, true},
	BatteryPct:   {BatteryPct, "Battery", "%", 0, 100, false},
	BatteryV:     {BatteryV, "Battery voltage", "V", 3.0, 4.2, false},
}

// ReadingChannels lists every channel persisted with a reading, in storage
// column order.
var ReadingChannels = []string{
	TemperatureC, HumidityPct, PressureHPa, ECO2PPM, TVOCPPB, PM25UGM3, BatteryPct, BatteryV,
}

// Lookup returns the channel definition for key.
func Lookup(key string) (Channel, bool) {
	c, ok := channels[key]
	return c, ok
}

// IsHeatmapChannel reports whether key names an environmental channel.
func IsHeatmapChannel(key string) bool {
	c, ok := channels[key]
	return ok && c.Environmental
}

// HeatmapChannels returns the environmental channels sorted by key.
func HeatmapChannels() []Channel {
	var out []Channel
	for _, c := range channels {
		if c.Environmental {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// GetValidChannelsString returns a comma-separated list of heatmap channels
// for error messages.
func GetValidChannelsString() string {
	var keys []string
	for _, c := range HeatmapChannels() {
		keys = append(keys, c.Key)
	}
	return strings.Join(keys, ", ")
}

// Display unit options for the channels that have more than one.
const (
	Celsius    = "c"
	Fahrenheit = "f"
	HPa        = "hpa"
	InHg       = "inhg"
)

// ValidDisplayUnits maps a channel to the alternative units it accepts.
var ValidDisplayUnits = map[string][]string{
	TemperatureC: {Celsius, Fahrenheit},
	PressureHPa:  {HPa, InHg},
}

// IsValidDisplayUnit reports whether unit may be used to display channel.
// An empty unit always means the channel's native unit.
func IsValidDisplayUnit(channel, unit string) bool {
	if unit == "" {
		return true
	}
	for _, u := range ValidDisplayUnits[channel] {
		if u == unit {
			return true
		}
	}
	return false
}

// Convert converts a value in the channel's native unit to the requested
// display unit and returns the converted value with its unit label. Unknown
// combinations return the native value and label.
func Convert(channel string, value float64, unit string) (float64, string) {
	native := ""
	if c, ok := channels[channel]; ok {
		native = c.Unit
	}
	switch {
	case channel == TemperatureC && unit == Fahrenheit:
		return value*9/5 + 32, "°F"
	case channel == PressureHPa && unit == InHg:
		return value * 0.0295299830714, "inHg"
	default:
		return value, native
	}
}
