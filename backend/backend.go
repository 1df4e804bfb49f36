// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/drm"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/planner"
)

// ColorTransform is the display color transform hint.
type ColorTransform int32

const (
	ColorTransformIdentity ColorTransform = iota
	ColorTransformArbitraryMatrix
	ColorTransformValueInverse
	ColorTransformGrayscale
	ColorTransformCorrectProtanopia
	ColorTransformCorrectDeuteranopia
	ColorTransformCorrectTritanopia
)

// Flattener decides when a static scene is composed on the client.
type Flattener interface {
	ShouldFlattenOnClient() bool
	FlattenedFrames() uint64
}

// Display is the view of a display the validator works on.
type Display interface {
	Layers() []*layer.Layer
	PrimaryPlanes() []*drm.Plane
	OverlayPlanes() []*drm.Plane

	// CreateComposition builds a composition from the validated layer
	// types. With test set it is only test-committed.
	CreateComposition(test bool) error

	Flattener() Flattener
	ColorTransformHint() ColorTransform
	HardwareSupportsLayerType(t layer.CompositionType) bool
	ForcedScalingWithGPU() bool
	Getter() buffer.Getter
	TotalStats() *Stats
}

// Validation is the result of validating a display.
type Validation struct {
	// ClientLayers is the number of layers the client must compose.
	ClientLayers int
	Requests     int
}

// HasChanges reports whether the client has to look at the assigned
// composition types.
func (v Validation) HasChanges() bool { return v.ClientLayers > 0 }

// Backend is a hardware policy.
type Backend interface {
	Name() string

	// IsClientLayer reports whether l must be composed by the client.
	IsClientLayer(d Display, l *layer.Layer) bool

	// Stages returns the plane provisioning stages, in order.
	Stages() []planner.Stage

	// ValidateDisplay assigns a composition type to every layer of d.
	ValidateDisplay(d Display) Validation
}

// Stats are cumulative frame counters.
type Stats struct {
	Frames            uint64
	FramesFlattened   uint64
	TotalPixOps       uint64
	GPUPixOps         uint64
	FailedKMSValidate uint64
	FailedKMSPresent  uint64
}

// Sub returns the counters accumulated since prev.
func (s Stats) Sub(prev Stats) Stats {
	return Stats{
		Frames:            s.Frames - prev.Frames,
		FramesFlattened:   s.FramesFlattened - prev.FramesFlattened,
		TotalPixOps:       s.TotalPixOps - prev.TotalPixOps,
		GPUPixOps:         s.GPUPixOps - prev.GPUPixOps,
		FailedKMSValidate: s.FailedKMSValidate - prev.FailedKMSValidate,
		FailedKMSPresent:  s.FailedKMSPresent - prev.FailedKMSPresent,
	}
}
