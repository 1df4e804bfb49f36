// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cli

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/hwc/backend"
	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/config"
	"github.com/gogpu/hwc/display"
	"github.com/gogpu/hwc/importer"
	"github.com/gogpu/hwc/internal/kmssim"
	"github.com/gogpu/hwc/layer"
)

// defaultDisplays is the scenario run when the configuration has none: a
// full-screen background under more layers than the display has planes.
var defaultDisplays = []config.Display{{
	Driver:        "rcar-du",
	Width:         1920,
	Height:        1080,
	PrimaryPlanes: 1,
	OverlayPlanes: 2,
	Frames:        3,
	Layers: []config.Layer{
		{Frame: [4]int{0, 0, 1920, 1080}, Format: "RGBX8888"},
		{Frame: [4]int{0, 0, 1920, 64}, Format: "BGRA8888"},
		{Frame: [4]int{200, 200, 800, 600}},
		{Frame: [4]int{1100, 200, 600, 600}, Format: "RGB565"},
	},
}}

// simulation is a set of displays on simulated devices, one device per
// driver name.
type simulation struct {
	alloc    *kmssim.Allocator
	devices  map[string]*kmssim.Device
	displays *display.Manager
	targets  map[int]*buffer.NativeHandle
	requests map[int]map[uint64]layer.CompositionType
	frames   int
}

func newSimulation(cfg *config.Config, backends *backend.Manager) (*simulation, error) {
	stages, err := cfg.PlannerStages()
	if err != nil {
		return nil, err
	}
	scenario := cfg.Displays
	if len(scenario) == 0 {
		scenario = defaultDisplays
	}

	s := &simulation{
		alloc:    kmssim.NewAllocator(),
		devices:  make(map[string]*kmssim.Device),
		displays: display.NewManager(),
		targets:  make(map[int]*buffer.NativeHandle),
		requests: make(map[int]map[uint64]layer.CompositionType),
	}
	getter := buffer.NewCachedGetter(buffer.NativeGetter{}, 0)
	importers := make(map[string]importer.Importer)

	for id, dc := range scenario {
		dev, ok := s.devices[dc.Driver]
		if !ok {
			dev = kmssim.New(dc.Driver, kmssim.WithModifiers())
			s.devices[dc.Driver] = dev
			importers[dc.Driver] = importer.NewGeneric(dev, getter)
		}

		primary, overlay := kmssim.Planes(dc.PrimaryPlanes, dc.OverlayPlanes)
		if len(dc.OverlayFormats) > 0 {
			formats := make([]uint32, 0, len(dc.OverlayFormats))
			for _, name := range dc.OverlayFormats {
				f, _ := config.DrmFormat(name)
				formats = append(formats, f)
			}
			for _, p := range overlay {
				p.Formats = formats
			}
		}

		d, err := display.New(display.Config{
			ID:               id,
			Width:            dc.Width,
			Height:           dc.Height,
			Crtc:             kmssim.Crtc(id),
			Primary:          primary,
			Overlay:          overlay,
			Device:           dev,
			Getter:           getter,
			Importer:         importers[dc.Driver],
			Backends:         backends,
			BackendOverride:  cfg.BackendOverride,
			Stages:           stages,
			ScaleWithGPU:     cfg.ScaleWithGPU,
			FlattenCountdown: cfg.FlattenCountdown,
		})
		if err != nil {
			return nil, errors.Join(err, s.close())
		}
		s.displays.Add(d)

		s.requests[id] = make(map[uint64]layer.CompositionType, len(dc.Layers))
		for _, lc := range dc.Layers {
			l := d.CreateLayer()
			lc.Apply(l)
			s.requests[id][l.ID] = l.RequestedType
			if lc.NoBuffer {
				continue
			}
			hal, _ := config.HalFormat(lc.Format)
			var usage uint64
			if lc.Protected {
				usage |= buffer.UsageProtected
			}
			w, h := bufferSize(lc)
			l.Buffer = s.alloc.Alloc(w, h, hal, usage)
		}

		s.targets[id] = s.alloc.Alloc(uint32(dc.Width), uint32(dc.Height),
			buffer.HalFormatRGBA8888, buffer.UsageComposerClientTarget)
		d.SetClientTarget(s.targets[id], -1)
		s.frames = max(s.frames, dc.Frames)
	}
	return s, nil
}

// bufferSize returns the size of a buffer that covers the layer's crop.
func bufferSize(lc config.Layer) (w, h uint32) {
	if len(lc.Crop) == 4 {
		return uint32(math.Ceil(float64(lc.Crop[2]))), uint32(math.Ceil(float64(lc.Crop[3])))
	}
	return uint32(lc.Frame[2]), uint32(lc.Frame[3])
}

// request sets the composition types the client asks for at the start of
// a frame. Accepting a frame's changes adopts the validated types, so
// without it a layer sent to the client once would stay there.
func (s *simulation) request() error {
	for _, d := range s.displays.Displays() {
		for id, t := range s.requests[d.ID()] {
			if err := d.SetLayerCompositionType(id, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// prepare stands in for the client: it composes the client layers into the
// display's client target.
func (s *simulation) prepare(d *display.Display) error {
	t, ok := s.targets[d.ID()]
	if !ok {
		return fmt.Errorf("no client target for display %d", d.ID())
	}
	d.SetClientTarget(t, -1)
	return nil
}

// openHandles returns the number of GEM handles still open on every
// device.
func (s *simulation) openHandles() int {
	var n int
	for _, dev := range s.devices {
		n += dev.OpenHandles()
	}
	return n
}

func (s *simulation) close() error {
	return s.displays.Close()
}
