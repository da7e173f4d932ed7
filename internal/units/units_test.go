package units

import (
	"math"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		key      string
		unit     string
		min, max float64
		heatmap  bool
	}{
		{TemperatureC, "°C", 20, 45, true},
		{HumidityPct, "%", 30, 100, true},
		{PressureHPa, "hPa", 990, 1030, true},
		{ECO2PPM, "ppm", 400, 5000, true},
		{TVOCPPB, "ppb", 0, 1000, true},
		{PM25UGM3, "µg/m³", 0, 100, true},
		{BatteryPct, "%", 0, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			c, ok := Lookup(tt.key)
			if !ok {
				t.Fatalf("Lookup(%q) not found", tt.key)
			}
			if c.Unit != tt.unit || c.Min != tt.min || c.Max != tt.max {
				t.Errorf("Lookup(%q) = %+v", tt.key, c)
			}
			if IsHeatmapChannel(tt.key) != tt.heatmap {
				t.Errorf("IsHeatmapChannel(%q) = %v, want %v", tt.key, !tt.heatmap, tt.heatmap)
			}
		})
	}

	if _, ok := Lookup("co_ppm"); ok {
		t.Error("unknown channel should not be found")
	}
}

func TestHeatmapChannels(t *testing.T) {
	got := HeatmapChannels()
	if len(got) != 6 {
		t.Fatalf("got %d heatmap channels, want 6", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Key > got[i].Key {
			t.Errorf("channels not sorted: %s before %s", got[i-1].Key, got[i].Key)
		}
	}
	want := "eco2_ppm, humidity_pct, pm25_ugm3, pressure_hpa, temperature_c, tvoc_ppb"
	if s := GetValidChannelsString(); s != want {
		t.Errorf("GetValidChannelsString() = %q, want %q", s, want)
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name      string
		channel   string
		value     float64
		unit      string
		expected  float64
		wantLabel string
	}{
		{"celsius passthrough", TemperatureC, 21.5, "", 21.5, "°C"},
		{"celsius to fahrenheit", TemperatureC, 100, Fahrenheit, 212, "°F"},
		{"freezing", TemperatureC, 0, Fahrenheit, 32, "°F"},
		{"hpa to inhg", PressureHPa, 1013.25, InHg, 29.92, "inHg"},
		{"unsupported unit falls back", HumidityPct, 55, Fahrenheit, 55, "%"},
		{"unknown channel", "foo", 3, "", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, label := Convert(tt.channel, tt.value, tt.unit)
			if math.Abs(got-tt.expected) > 0.01 {
				t.Errorf("Convert() = %f, want %f", got, tt.expected)
			}
			if label != tt.wantLabel {
				t.Errorf("label = %q, want %q", label, tt.wantLabel)
			}
		})
	}
}

func TestIsValidDisplayUnit(t *testing.T) {
	if !IsValidDisplayUnit(TemperatureC, "") {
		t.Error("empty unit must be valid")
	}
	if !IsValidDisplayUnit(TemperatureC, Fahrenheit) {
		t.Error("fahrenheit must be valid for temperature")
	}
	if IsValidDisplayUnit(HumidityPct, Fahrenheit) {
		t.Error("fahrenheit must not be valid for humidity")
	}
}
