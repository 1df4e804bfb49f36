// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package config loads the composer configuration from YAML.
//
//	backend_override: rcar-du
//	device: /dev/dri/card%
//	scale_with_gpu: false
//	flatten_countdown: 60
//	stages: [protected, greedy]
//	displays:
//	  - driver: rcar-du
//	    width: 1920
//	    height: 1080
//	    primary_planes: 1
//	    overlay_planes: 3
//	    frames: 120
//	    layers:
//	      - {frame: [0, 0, 1920, 1080], format: RGBX8888}
//	      - {frame: [100, 100, 640, 480], format: RGBA8888, alpha: 0.5}
//
// The displays section describes simulated hardware and content for the
// hwcsim tool; a composer driving real hardware ignores it.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/hwc/buffer"
)

// Defaults.
const (
	DefaultDevice           = "/dev/dri/card%"
	DefaultFlattenCountdown = 60
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Config is the composer configuration.
type Config struct {
	// BackendOverride names the backend to use instead of the one the
	// driver name selects.
	BackendOverride string `yaml:"backend_override"`

	// Device is the DRM device path; a trailing '%' probes every minor.
	Device string `yaml:"device"`

	// ScaleWithGPU sends every layer needing scaling to the client.
	ScaleWithGPU bool `yaml:"scale_with_gpu"`

	// FlattenCountdown is the number of idle vsyncs before a static scene
	// is flattened on the client. Zero disables flattening.
	FlattenCountdown int `yaml:"flatten_countdown"`

	// Stages replace the backend's provisioning stages when set.
	Stages []string `yaml:"stages"`

	Displays []Display `yaml:"displays"`
}

// Display describes a simulated display.
type Display struct {
	Driver         string   `yaml:"driver"`
	Width          int      `yaml:"width"`
	Height         int      `yaml:"height"`
	PrimaryPlanes  int      `yaml:"primary_planes"`
	OverlayPlanes  int      `yaml:"overlay_planes"`
	OverlayFormats []string `yaml:"overlay_formats"`
	Frames         int      `yaml:"frames"`
	Layers         []Layer  `yaml:"layers"`
}

// Layer describes a simulated layer. Frame is x, y, width, height.
type Layer struct {
	Frame     [4]int    `yaml:"frame"`
	Crop      []float32 `yaml:"crop"`
	Format    string    `yaml:"format"`
	Type      string    `yaml:"type"`
	Alpha     *float32  `yaml:"alpha"`
	Transform int32     `yaml:"transform"`
	Protected bool      `yaml:"protected"`
	NoBuffer  bool      `yaml:"no_buffer"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Device:           DefaultDevice,
		FlattenCountdown: DefaultFlattenCountdown,
	}
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Device == "" {
		return invalid("device is empty")
	}
	if c.FlattenCountdown < 0 {
		return invalid("flatten_countdown %d is negative", c.FlattenCountdown)
	}
	if _, err := c.PlannerStages(); err != nil {
		return err
	}
	for i, d := range c.Displays {
		if err := d.validate(); err != nil {
			return fmt.Errorf("displays[%d]: %w", i, err)
		}
	}
	return nil
}

func (d *Display) validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return invalid("size %dx%d", d.Width, d.Height)
	}
	if d.PrimaryPlanes < 0 || d.OverlayPlanes < 0 || d.PrimaryPlanes+d.OverlayPlanes == 0 {
		return invalid("%d primary and %d overlay planes", d.PrimaryPlanes, d.OverlayPlanes)
	}
	if d.Frames < 0 {
		return invalid("frames %d is negative", d.Frames)
	}
	for _, f := range d.OverlayFormats {
		if _, ok := DrmFormat(f); !ok {
			return invalid("unknown overlay format %q", f)
		}
	}
	for i, l := range d.Layers {
		if err := l.validate(); err != nil {
			return fmt.Errorf("layers[%d]: %w", i, err)
		}
	}
	return nil
}

func (l *Layer) validate() error {
	if l.Frame[2] <= 0 || l.Frame[3] <= 0 {
		return invalid("frame %v is empty", l.Frame)
	}
	if len(l.Crop) != 0 && len(l.Crop) != 4 {
		return invalid("crop needs 4 values, got %d", len(l.Crop))
	}
	if _, ok := HalFormat(l.Format); !ok {
		return invalid("unknown format %q", l.Format)
	}
	if _, ok := compositionTypes[l.Type]; !ok {
		return invalid("unknown layer type %q", l.Type)
	}
	if l.Alpha != nil && (*l.Alpha < 0 || *l.Alpha > 1) {
		return invalid("alpha %v out of [0, 1]", *l.Alpha)
	}
	return nil
}

// halFormats maps format names to HAL pixel formats.
var halFormats = map[string]uint32{
	"RGBA8888":    buffer.HalFormatRGBA8888,
	"RGBX8888":    buffer.HalFormatRGBX8888,
	"RGB888":      buffer.HalFormatRGB888,
	"RGB565":      buffer.HalFormatRGB565,
	"BGRA8888":    buffer.HalFormatBGRA8888,
	"RGBA1010102": buffer.HalFormatRGBA1010102,
	"YV12":        buffer.HalFormatYV12,
}

// HalFormat returns the HAL pixel format named name. An empty name is
// RGBA8888.
func HalFormat(name string) (uint32, bool) {
	if name == "" {
		return buffer.HalFormatRGBA8888, true
	}
	f, ok := halFormats[name]
	return f, ok
}

// DrmFormat returns the DRM format a HAL format name converts to.
func DrmFormat(name string) (uint32, bool) {
	hal, ok := HalFormat(name)
	if !ok {
		return 0, false
	}
	f := buffer.ConvertHalFormatToDrm(hal)
	return f, f != buffer.FormatInvalid
}
