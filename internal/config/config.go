// Package config loads the twin server configuration. Every field is
// optional: the Get* accessors supply the default for anything the file
// omits, so partial files are safe.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/twin.report/internal/floorplan"
	"github.com/banshee-data/twin.report/internal/security"
)

// DefaultConfigPath is the canonical defaults file shipped with the repo.
const DefaultConfigPath = "config/twin.defaults.json"

// maxFileSize bounds config files.
const maxFileSize = 1 * 1024 * 1024

// Defaults for fields the file does not set.
const (
	DefaultListen                  = ":8080"
	DefaultDBPath                  = "twin.db"
	DefaultSerialBaudRate          = 115200
	DefaultHeatmapDebounce         = 150 * time.Millisecond
	DefaultRenderInterval          = 33 * time.Millisecond
	DefaultFloorWidth              = 170.0
	DefaultFloorHeight             = 220.0
	DefaultHeatmapPower            = 2.0
	DefaultHeatmapRadiusMultiplier = 1.0
	DefaultHeatmapOpacity          = 160
	DefaultCoverageRadius          = 15.0
	DefaultPointSize               = 6.0
	DefaultReadingsLimit           = 2000
)

// Config is the root configuration.
type Config struct {
	Listen         *string `json:"listen,omitempty"`
	DBPath         *string `json:"db_path,omitempty"`
	SerialPort     *string `json:"serial_port,omitempty"` // empty disables serial ingestion
	SerialBaudRate *int    `json:"serial_baud_rate,omitempty"`

	HeatmapDebounce *string `json:"heatmap_debounce,omitempty"` // duration string like "150ms"
	RenderInterval  *string `json:"render_interval,omitempty"`  // duration string like "33ms"

	DefaultFloorWidth       *float64 `json:"default_floor_width,omitempty"`
	DefaultFloorHeight      *float64 `json:"default_floor_height,omitempty"`
	HeatmapPower            *float64 `json:"heatmap_power,omitempty"`
	HeatmapRadiusMultiplier *float64 `json:"heatmap_radius_multiplier,omitempty"`
	HeatmapOpacity          *int     `json:"heatmap_opacity,omitempty"`
	DefaultCoverageRadius   *float64 `json:"default_coverage_radius,omitempty"`
	DefaultPointSize        *float64 `json:"default_point_size,omitempty"`
	ReadingsLimit           *int     `json:"readings_limit,omitempty"`
}

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a .json file of at most 1MB and validates it.
func Load(path string) (*Config, error) {
	data, err := security.ReadBoundedFile(path, ".json", maxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or a parent. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func validDuration(name string, v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, *v)
	}
	return nil
}

func positive(name string, v *float64) error {
	if v != nil && !(*v > 0) {
		return fmt.Errorf("%s must be positive, got %v", name, *v)
	}
	return nil
}

// Validate checks that the set values are usable.
func (c *Config) Validate() error {
	if err := validDuration("heatmap_debounce", c.HeatmapDebounce); err != nil {
		return err
	}
	if err := validDuration("render_interval", c.RenderInterval); err != nil {
		return err
	}
	if c.SerialBaudRate != nil && *c.SerialBaudRate <= 0 {
		return fmt.Errorf("serial_baud_rate must be positive, got %d", *c.SerialBaudRate)
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"default_floor_width", c.DefaultFloorWidth},
		{"default_floor_height", c.DefaultFloorHeight},
		{"heatmap_power", c.HeatmapPower},
		{"heatmap_radius_multiplier", c.HeatmapRadiusMultiplier},
		{"default_coverage_radius", c.DefaultCoverageRadius},
		{"default_point_size", c.DefaultPointSize},
	} {
		if err := positive(f.name, f.v); err != nil {
			return err
		}
	}
	if c.HeatmapOpacity != nil && (*c.HeatmapOpacity < 0 || *c.HeatmapOpacity > 255) {
		return fmt.Errorf("heatmap_opacity must be between 0 and 255, got %d", *c.HeatmapOpacity)
	}
	if c.ReadingsLimit != nil && (*c.ReadingsLimit < 1 || *c.ReadingsLimit > DefaultReadingsLimit) {
		return fmt.Errorf("readings_limit must be between 1 and %d, got %d", DefaultReadingsLimit, *c.ReadingsLimit)
	}
	return nil
}

// GetListen returns the HTTP listen address.
func (c *Config) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

// GetDBPath returns the sqlite file path.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetSerialPort returns the serial gateway device, or "" when disabled.
func (c *Config) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

// GetSerialBaudRate returns the serial baud rate.
func (c *Config) GetSerialBaudRate() int {
	if c.SerialBaudRate == nil {
		return DefaultSerialBaudRate
	}
	return *c.SerialBaudRate
}

func duration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def // default on parse error
	}
	return d
}

// GetHeatmapDebounce returns the trailing-edge debounce delay.
func (c *Config) GetHeatmapDebounce() time.Duration {
	return duration(c.HeatmapDebounce, DefaultHeatmapDebounce)
}

// GetRenderInterval returns the compositor tick period.
func (c *Config) GetRenderInterval() time.Duration {
	return duration(c.RenderInterval, DefaultRenderInterval)
}

func float(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// GetDefaultFloorWidth returns the width of new floor plans in meters.
func (c *Config) GetDefaultFloorWidth() float64 {
	return float(c.DefaultFloorWidth, DefaultFloorWidth)
}

// GetDefaultFloorHeight returns the height of new floor plans in meters.
func (c *Config) GetDefaultFloorHeight() float64 {
	return float(c.DefaultFloorHeight, DefaultFloorHeight)
}

// GetHeatmapPower returns the IDW distance exponent.
func (c *Config) GetHeatmapPower() float64 {
	return float(c.HeatmapPower, DefaultHeatmapPower)
}

// GetHeatmapRadiusMultiplier returns the coverage radius scale.
func (c *Config) GetHeatmapRadiusMultiplier() float64 {
	return float(c.HeatmapRadiusMultiplier, DefaultHeatmapRadiusMultiplier)
}

// GetHeatmapOpacity returns the overlay alpha.
func (c *Config) GetHeatmapOpacity() uint8 {
	if c.HeatmapOpacity == nil {
		return DefaultHeatmapOpacity
	}
	return uint8(*c.HeatmapOpacity)
}

// GetDefaultCoverageRadius returns the radius of newly created nodes.
func (c *Config) GetDefaultCoverageRadius() float64 {
	return float(c.DefaultCoverageRadius, DefaultCoverageRadius)
}

// GetDefaultPointSize returns the marker size of newly created nodes.
func (c *Config) GetDefaultPointSize() float64 {
	return float(c.DefaultPointSize, DefaultPointSize)
}

// GetReadingsLimit returns the cap on history queries.
func (c *Config) GetReadingsLimit() int {
	if c.ReadingsLimit == nil {
		return DefaultReadingsLimit
	}
	return *c.ReadingsLimit
}

// Heatmap returns the heatmap configuration new editing sessions start with.
func (c *Config) Heatmap() floorplan.HeatmapConfig {
	h := floorplan.DefaultHeatmapConfig()
	h.Power = c.GetHeatmapPower()
	h.RadiusMultiplier = c.GetHeatmapRadiusMultiplier()
	h.Opacity = c.GetHeatmapOpacity()
	return h
}

// Helpers for flag overrides.
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// Overrides holds command-line values that replace file values when set.
type Overrides struct {
	Listen         string
	DBPath         string
	SerialPort     string
	SerialBaudRate int
}

// Apply copies the non-zero overrides into c.
func (c *Config) Apply(o Overrides) {
	if o.Listen != "" {
		c.Listen = ptrString(o.Listen)
	}
	if o.DBPath != "" {
		c.DBPath = ptrString(o.DBPath)
	}
	if o.SerialPort != "" {
		c.SerialPort = ptrString(o.SerialPort)
	}
	if o.SerialBaudRate > 0 {
		c.SerialBaudRate = ptrInt(o.SerialBaudRate)
	}
}
