// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package drm

import "slices"

// PlaneType is the kernel's classification of a plane.
type PlaneType int

const (
	PlaneOverlay PlaneType = iota
	PlanePrimary
	PlaneCursor
)

// String returns the plane type name.
func (t PlaneType) String() string {
	switch t {
	case PlanePrimary:
		return "primary"
	case PlaneOverlay:
		return "overlay"
	case PlaneCursor:
		return "cursor"
	default:
		return "unknown"
	}
}

// Rotation property bits (DRM_MODE_ROTATE_*, DRM_MODE_REFLECT_*).
const (
	Rotate0   uint64 = 1 << 0
	Rotate90  uint64 = 1 << 1
	Rotate180 uint64 = 1 << 2
	Rotate270 uint64 = 1 << 3
	ReflectX  uint64 = 1 << 4
	ReflectY  uint64 = 1 << 5
)

// Atomic property names used when committing a plane.
const (
	PropFbID        = "FB_ID"
	PropCrtcID      = "CRTC_ID"
	PropSrcX        = "SRC_X"
	PropSrcY        = "SRC_Y"
	PropSrcW        = "SRC_W"
	PropSrcH        = "SRC_H"
	PropCrtcX       = "CRTC_X"
	PropCrtcY       = "CRTC_Y"
	PropCrtcW       = "CRTC_W"
	PropCrtcH       = "CRTC_H"
	PropRotation    = "rotation"
	PropAlpha       = "alpha"
	PropBlendMode   = "pixel blend mode"
	PropInFenceFd   = "IN_FENCE_FD"
	PropOutFencePtr = "OUT_FENCE_PTR"
	PropActive      = "ACTIVE"
)

// Plane is a hardware scan-out resource.
type Plane struct {
	ID   uint32
	Type PlaneType

	// PossibleCrtcs has bit n set when the plane can feed the CRTC with
	// pipe index n.
	PossibleCrtcs uint32

	// Formats lists the DRM formats the plane scans out. Empty means the
	// format list is unknown and every format is accepted.
	Formats []uint32

	// Rotations is the mask of supported rotation property bits.
	// Zero means only Rotate0.
	Rotations uint64

	HasAlpha bool
	HasBlend bool

	// ImmutableZpos planes sit at a fixed position in the stack.
	ImmutableZpos bool

	// Props maps atomic property names to property IDs.
	Props map[string]uint32
}

// CrtcSupported reports whether the plane can be attached to c.
func (p *Plane) CrtcSupported(c *Crtc) bool {
	if c == nil || c.Pipe < 0 || c.Pipe > 31 {
		return false
	}
	return p.PossibleCrtcs&(1<<uint(c.Pipe)) != 0
}

// SupportsFormat reports whether the plane can scan out format.
func (p *Plane) SupportsFormat(format uint32) bool {
	return len(p.Formats) == 0 || slices.Contains(p.Formats, format)
}

// SupportsRotation reports whether every bit of rotation is supported.
func (p *Plane) SupportsRotation(rotation uint64) bool {
	supported := p.Rotations
	if supported == 0 {
		supported = Rotate0
	}
	return rotation&^supported == 0
}

// Prop returns the ID of the named property.
func (p *Plane) Prop(name string) (uint32, bool) {
	id, ok := p.Props[name]
	return id, ok && id != 0
}

// Crtc is a display controller a set of planes is blended onto.
type Crtc struct {
	ID      uint32
	Pipe    int
	Display int
	Props   map[string]uint32
}

// Prop returns the ID of the named property.
func (c *Crtc) Prop(name string) (uint32, bool) {
	id, ok := c.Props[name]
	return id, ok && id != 0
}
