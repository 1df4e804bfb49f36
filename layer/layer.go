// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package layer defines the layers a display composites and the
// normalized z-order map the validator works on.
package layer

import (
	"image"
	"math"

	"github.com/gogpu/hwc/buffer"
)

// CompositionType says who composites a layer.
type CompositionType int

const (
	CompositionInvalid CompositionType = iota
	// CompositionClient layers are drawn by the client into the client target.
	CompositionClient
	// CompositionDevice layers are scanned out by a hardware plane.
	CompositionDevice
	CompositionSolidColor
	CompositionCursor
	CompositionSideband
)

// String returns the composition type name.
func (t CompositionType) String() string {
	switch t {
	case CompositionClient:
		return "Client"
	case CompositionDevice:
		return "Device"
	case CompositionSolidColor:
		return "SolidColor"
	case CompositionCursor:
		return "Cursor"
	case CompositionSideband:
		return "Sideband"
	default:
		return "Invalid"
	}
}

// Blending is the alpha blending mode of a layer.
type Blending int

const (
	BlendingNone Blending = iota
	BlendingPreMult
	BlendingCoverage
)

// FRect is a rectangle with fractional edges, used for source crops.
type FRect struct {
	Left, Top, Right, Bottom float32
}

// Dx returns the width of r.
func (r FRect) Dx() float32 { return r.Right - r.Left }

// Dy returns the height of r.
func (r FRect) Dy() float32 { return r.Bottom - r.Top }

// Layer is one surface of a frame.
//
// A display owns its layers; the validator reads them and writes only
// ValidatedType.
type Layer struct {
	ID     uint64
	ZOrder uint32
	Buffer buffer.Handle

	// RequestedType is what the client asked for; ValidatedType is what the
	// last validation decided.
	RequestedType CompositionType
	ValidatedType CompositionType

	DisplayFrame image.Rectangle
	SourceCrop   FRect
	Transform    Transform
	Blending     Blending
	Alpha        float32

	// Protected marks content that must never be read back by the GPU.
	Protected bool

	// AcquireFence is a sync file fd the buffer is ready on, or -1.
	AcquireFence int
}

// New returns a layer with default state: device composition requested,
// opaque, no fence.
func New(id uint64, z uint32) *Layer {
	return &Layer{
		ID:            id,
		ZOrder:        z,
		RequestedType: CompositionDevice,
		Alpha:         1,
		AcquireFence:  -1,
	}
}

// RequireScalingOrPhasing reports whether the source crop differs in size
// from the display frame or starts at a fractional position.
func (l *Layer) RequireScalingOrPhasing() bool {
	scaling := l.SourceCrop.Dx() != float32(l.DisplayFrame.Dx()) ||
		l.SourceCrop.Dy() != float32(l.DisplayFrame.Dy())
	phasing := l.SourceCrop.Left != float32(math.Floor(float64(l.SourceCrop.Left))) ||
		l.SourceCrop.Top != float32(math.Floor(float64(l.SourceCrop.Top)))
	return scaling || phasing
}

// PixOps returns the workload of scanning or compositing the layer: the
// area of its display frame.
func (l *Layer) PixOps() uint64 {
	r := l.DisplayFrame.Canon()
	return uint64(r.Dx()) * uint64(r.Dy())
}

// TypeChanged reports whether validation picked a different type than the
// client requested.
func (l *Layer) TypeChanged() bool {
	return l.RequestedType != l.ValidatedType
}

// AcceptTypeChange adopts the validated type as the requested one.
func (l *Layer) AcceptTypeChange() {
	l.RequestedType = l.ValidatedType
}
