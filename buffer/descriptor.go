// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package buffer

// MaxPlanes is the number of memory planes a descriptor can describe.
const MaxPlanes = 4

// Gralloc usage bits consulted by the composition code.
const (
	UsageSWReadMask           uint64 = 0x0000000F
	UsageSWWriteMask          uint64 = 0x000000F0
	UsageComposerOverlay      uint64 = 1 << 11
	UsageComposerClientTarget uint64 = 1 << 12
	UsageProtected            uint64 = 1 << 14
)

// Handle is an opaque reference to an externally allocated buffer.
// Key must be stable for the lifetime of the allocation and unique among
// live buffers; it is used to cache descriptors.
type Handle interface {
	Key() uint64
}

// Descriptor describes the memory layout of a buffer as the kernel needs
// it to create a scan-out framebuffer.
//
// PrimeFds holds one dma-buf file descriptor per plane; 0 means the plane
// is unused. Planes of a packed format leave everything past index 0 zero.
type Descriptor struct {
	Width     uint32
	Height    uint32
	Format    uint32 // DRM fourcc
	HalFormat uint32
	Usage     uint64

	Pitches   [MaxPlanes]uint32
	Offsets   [MaxPlanes]uint32
	Modifiers [MaxPlanes]uint64
	PrimeFds  [MaxPlanes]int

	// WithModifiers selects the modifier-aware framebuffer call.
	WithModifiers bool
}

// NumPlanes returns the number of planes with a non-zero prime fd.
func (d *Descriptor) NumPlanes() int {
	n := 0
	for _, fd := range d.PrimeFds {
		if fd != 0 {
			n++
		}
	}
	return n
}

// Protected reports whether the buffer carries protected content.
func (d *Descriptor) Protected() bool {
	return d.Usage&UsageProtected != 0
}
