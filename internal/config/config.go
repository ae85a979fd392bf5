// Package config loads the radar service configuration from a JSON file.
//
// Every field is optional. Omitted fields fall back to the defaults returned
// by the Get* accessors, so a partial file is always safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/banshee-data/speed.report/internal/units"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/radar.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Defaults used when a field is not set.
const (
	DefaultDevice         = "/dev/ttyAMA0"
	DefaultListen         = ":8080"
	DefaultUnits          = units.MPH
	DefaultSpeedThreshold = 15.0
	DefaultPollInterval   = 33 * time.Millisecond
	DefaultHistorySize    = 10
	DefaultReadTimeout    = time.Second
	DefaultCameraDir      = "captures"
)

// DefaultSpeedLadder is the default set of speed bucket thresholds.
var DefaultSpeedLadder = []float64{1, 5, 10, 15, 20, 25, 30, 35, 40, 45, 50}

// Config is the root configuration of the radar service.
type Config struct {
	// Sensor
	Device      *string `json:"device,omitempty"`
	ReadTimeout *string `json:"read_timeout,omitempty"` // duration string like "1s"

	// Controller
	SpeedUnits     *string   `json:"speed_units,omitempty"`
	SpeedThreshold *float64  `json:"speed_threshold,omitempty"`
	PollInterval   *string   `json:"poll_interval,omitempty"` // duration string like "33ms"
	HistorySize    *int      `json:"history_size,omitempty"`
	SpeedLadder    []float64 `json:"speed_ladder,omitempty"`
	Timezone       *string   `json:"timezone,omitempty"`

	// HTTP
	Listen *string `json:"listen,omitempty"`

	// Camera
	CameraEnabled *bool    `json:"camera_enabled,omitempty"`
	CameraDir     *string  `json:"camera_dir,omitempty"`
	CameraCommand []string `json:"camera_command,omitempty"`
	CameraDryRun  *bool    `json:"camera_dry_run,omitempty"`
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and be no larger than 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.SpeedUnits != nil && !units.IsValid(*c.SpeedUnits) {
		return fmt.Errorf("speed_units must be one of %s, got %q", units.GetValidUnitsString(), *c.SpeedUnits)
	}
	if c.SpeedThreshold != nil && *c.SpeedThreshold < 0 {
		return fmt.Errorf("speed_threshold must be non-negative, got %f", *c.SpeedThreshold)
	}
	if c.HistorySize != nil && *c.HistorySize < 1 {
		return fmt.Errorf("history_size must be at least 1, got %d", *c.HistorySize)
	}
	for name, d := range map[string]*string{"poll_interval": c.PollInterval, "read_timeout": c.ReadTimeout} {
		if d == nil || *d == "" {
			continue
		}
		v, err := time.ParseDuration(*d)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *d, err)
		}
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *d)
		}
	}
	if len(c.SpeedLadder) > 0 {
		if !slices.IsSorted(c.SpeedLadder) {
			return fmt.Errorf("speed_ladder must be ascending, got %v", c.SpeedLadder)
		}
		if c.SpeedLadder[0] < 0 {
			return fmt.Errorf("speed_ladder must be non-negative, got %v", c.SpeedLadder)
		}
	}
	if c.Timezone != nil && *c.Timezone != "" && *c.Timezone != "Local" && !units.IsTimezoneValid(*c.Timezone) {
		return fmt.Errorf("unknown timezone %q", *c.Timezone)
	}
	if c.CameraCommand != nil && len(c.CameraCommand) == 0 {
		return fmt.Errorf("camera_command must name a program")
	}
	return nil
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

// GetDevice returns the serial device path.
func (c *Config) GetDevice() string {
	if c.Device == nil || *c.Device == "" {
		return DefaultDevice
	}
	return *c.Device
}

// GetReadTimeout returns the serial read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return durationOr(c.ReadTimeout, DefaultReadTimeout)
}

// GetSpeedUnits returns the display units.
func (c *Config) GetSpeedUnits() string {
	if c.SpeedUnits == nil {
		return DefaultUnits
	}
	return *c.SpeedUnits
}

// GetSpeedThreshold returns the camera trigger speed in display units.
func (c *Config) GetSpeedThreshold() float64 {
	if c.SpeedThreshold == nil {
		return DefaultSpeedThreshold
	}
	return *c.SpeedThreshold
}

// GetPollInterval returns the detection poll period.
func (c *Config) GetPollInterval() time.Duration {
	return durationOr(c.PollInterval, DefaultPollInterval)
}

// GetHistorySize returns the number of readings kept.
func (c *Config) GetHistorySize() int {
	if c.HistorySize == nil {
		return DefaultHistorySize
	}
	return *c.HistorySize
}

// GetSpeedLadder returns a copy of the speed bucket thresholds.
func (c *Config) GetSpeedLadder() []float64 {
	if len(c.SpeedLadder) == 0 {
		return slices.Clone(DefaultSpeedLadder)
	}
	return slices.Clone(c.SpeedLadder)
}

// GetLocation returns the zone used for the hourly histogram.
func (c *Config) GetLocation() *time.Location {
	tz := ""
	if c.Timezone != nil {
		tz = *c.Timezone
	}
	loc, err := units.LoadLocation(tz)
	if err != nil {
		return time.Local
	}
	return loc
}

// GetListen returns the HTTP listen address.
func (c *Config) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

// GetCameraEnabled reports whether fast targets are photographed.
func (c *Config) GetCameraEnabled() bool {
	return c.CameraEnabled != nil && *c.CameraEnabled
}

// GetCameraDir returns the capture output directory.
func (c *Config) GetCameraDir() string {
	if c.CameraDir == nil || *c.CameraDir == "" {
		return DefaultCameraDir
	}
	return *c.CameraDir
}

// GetCameraCommand returns the capture command, or nil for the camera
// package default.
func (c *Config) GetCameraCommand() []string {
	return slices.Clone(c.CameraCommand)
}

// GetCameraDryRun reports whether captures are only logged.
func (c *Config) GetCameraDryRun() bool {
	return c.CameraDryRun != nil && *c.CameraDryRun
}
