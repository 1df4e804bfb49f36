// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/planner"
)

// Generic is the policy for hardware without quirks.
type Generic struct {
	stages []planner.Stage
}

// NewGeneric returns the generic policy. With no stages it provisions
// protected layers first, then the rest greedily.
func NewGeneric(stages ...planner.Stage) *Generic {
	if len(stages) == 0 {
		stages = planner.Default().Stages()
	}
	return &Generic{stages: stages}
}

// Name implements Backend.
func (*Generic) Name() string { return "generic" }

// Stages implements Backend.
func (g *Generic) Stages() []planner.Stage {
	return append([]planner.Stage(nil), g.stages...)
}

// IsClientLayer implements Backend. A layer goes to the client when the
// display cannot scan out its type, its buffer cannot be imported, a color
// transform is active, or it needs scaling the display leaves to the GPU.
func (*Generic) IsClientLayer(d Display, l *layer.Layer) bool {
	return !d.HardwareSupportsLayerType(l.RequestedType) ||
		!buffer.IsHandleUsable(d.Getter(), l.Buffer) ||
		d.ColorTransformHint() != ColorTransformIdentity ||
		(l.RequireScalingOrPhasing() && d.ForcedScalingWithGPU())
}

// ValidateDisplay implements Backend.
func (g *Generic) ValidateDisplay(d Display) Validation {
	return Validate(d, g)
}

// Client is the policy for hardware whose planes are unusable: every
// layer is composed by the client.
type Client struct {
	Generic
}

// NewClient returns the client-only policy.
func NewClient() *Client {
	return &Client{Generic: *NewGeneric()}
}

// Name implements Backend.
func (*Client) Name() string { return "client" }

// IsClientLayer implements Backend.
func (*Client) IsClientLayer(Display, *layer.Layer) bool { return true }

// ValidateDisplay implements Backend. Nothing is test-committed: the only
// plane in use is the client target.
func (c *Client) ValidateDisplay(d Display) Validation {
	z := layer.NewZMap(d.Layers())
	z.MarkValidated(0, len(z))

	stats := d.TotalStats()
	total := z.PixOps(0, len(z))
	stats.TotalPixOps += total
	stats.GPUPixOps += total
	stats.FramesFlattened = d.Flattener().FlattenedFrames()
	return Validation{ClientLayers: len(z)}
}

// RCarDu is the policy for the Renesas R-Car display unit, whose planes
// cannot scale and mishandle ABGR8888.
type RCarDu struct {
	Generic
}

// NewRCarDu returns the R-Car DU policy.
func NewRCarDu() *RCarDu {
	return &RCarDu{Generic: *NewGeneric()}
}

// Name implements Backend.
func (*RCarDu) Name() string { return "rcar-du" }

// IsClientLayer implements Backend.
func (r *RCarDu) IsClientLayer(d Display, l *layer.Layer) bool {
	g := d.Getter()
	if g == nil {
		return true
	}
	desc, err := g.Describe(l.Buffer)
	if err != nil {
		return true
	}
	if desc.Format == buffer.FormatABGR8888 {
		return true
	}
	if l.RequireScalingOrPhasing() {
		return true
	}
	return r.Generic.IsClientLayer(d, l)
}

// ValidateDisplay implements Backend.
func (r *RCarDu) ValidateDisplay(d Display) Validation {
	return Validate(d, r)
}
