// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layer

// Transform is a bitmask of flips and rotations applied at scan-out.
type Transform uint32

const (
	TransformIdentity  Transform = 0
	TransformFlipH     Transform = 1 << 0
	TransformFlipV     Transform = 1 << 1
	TransformRotate90  Transform = 1 << 2
	TransformRotate180 Transform = 1 << 3
	TransformRotate270 Transform = 1 << 4
)

// HWC transform values as clients send them.
const (
	hwcFlipH  = 1
	hwcFlipV  = 2
	hwcRot90  = 4
	hwcRot180 = 3
	hwcRot270 = 7
)

// TransformFromHWC converts a client transform to a Transform.
//
// 180 and 270 degree rotations already contain both flips, so they map to
// a single rotation bit; 90 degrees may be combined with one flip.
func TransformFromHWC(t int32) Transform {
	switch t {
	case hwcRot270:
		return TransformRotate270
	case hwcRot180:
		return TransformRotate180
	}
	var out Transform
	if t&hwcFlipH != 0 {
		out |= TransformFlipH
	}
	if t&hwcFlipV != 0 {
		out |= TransformFlipV
	}
	if t&hwcRot90 != 0 {
		out |= TransformRotate90
	}
	return out
}

// Rotated reports whether the transform rotates the content.
func (t Transform) Rotated() bool {
	return t&(TransformRotate90|TransformRotate180|TransformRotate270) != 0
}
