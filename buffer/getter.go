// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package buffer

import (
	"errors"
	"fmt"
)

// Errors returned by getters.
var (
	// ErrUnsupportedHandle is returned when a getter does not understand
	// the handle it was given (nil, or a handle from another allocator).
	ErrUnsupportedHandle = errors.New("buffer: unsupported handle")

	// ErrUnknownFormat is returned when the handle's pixel format has no
	// DRM equivalent.
	ErrUnknownFormat = errors.New("buffer: unknown pixel format")
)

// Getter extracts a Descriptor from an opaque buffer handle.
//
// There is one implementation per allocator (gralloc) variant. Callers
// depend only on the descriptor's fields; any failure means the buffer
// cannot be scanned out by hardware.
type Getter interface {
	Describe(h Handle) (*Descriptor, error)
}

// GetterFunc adapts a function to the Getter interface.
type GetterFunc func(h Handle) (*Descriptor, error)

// Describe calls f(h).
func (f GetterFunc) Describe(h Handle) (*Descriptor, error) { return f(h) }

// IsHandleUsable reports whether hardware can scan out the buffer behind h:
// the getter must describe it and it must carry at least one prime fd.
func IsHandleUsable(g Getter, h Handle) bool {
	if g == nil || h == nil {
		return false
	}
	d, err := g.Describe(h)
	if err != nil {
		return false
	}
	return d.PrimeFds[0] != 0
}

// NativeHandle is the allocator-side record of a buffer, in the shape most
// gralloc implementations share: a set of dma-buf fds plus geometry and a
// HAL pixel format.
type NativeHandle struct {
	ID        uint64
	Fds       []int
	Width     uint32
	Height    uint32
	HalFormat uint32
	Stride    uint32 // bytes per row of the first plane
	Usage     uint64
	Modifier  uint64
}

// Key implements Handle.
func (h *NativeHandle) Key() uint64 { return h.ID }

// NativeGetter describes *NativeHandle buffers.
type NativeGetter struct{}

// Describe implements Getter.
func (NativeGetter) Describe(h Handle) (*Descriptor, error) {
	nh, ok := h.(*NativeHandle)
	if !ok || nh == nil || len(nh.Fds) == 0 {
		return nil, ErrUnsupportedHandle
	}

	format := ConvertHalFormatToDrm(nh.HalFormat)
	if format == FormatInvalid {
		return nil, fmt.Errorf("%w: hal format %#x", ErrUnknownFormat, nh.HalFormat)
	}

	d := &Descriptor{
		Width:     nh.Width,
		Height:    nh.Height,
		Format:    format,
		HalFormat: nh.HalFormat,
		Usage:     nh.Usage,
	}
	d.Pitches[0] = nh.Stride
	d.PrimeFds[0] = nh.Fds[0]
	d.Modifiers[0] = nh.Modifier
	d.WithModifiers = nh.Modifier != 0

	if format == FormatYVU420 {
		// Y plane followed by V then U, all in one allocation unless the
		// allocator handed out separate fds.
		align := uint32(128)
		if nh.Usage&(UsageSWReadMask|UsageSWWriteMask) != 0 {
			align = 16
		}
		height := alignUp(nh.Height, 2)
		ySize := height * nh.Stride
		cStride := alignUp(nh.Stride/2, align)
		cSize := cStride * (height / 2)

		d.Pitches[1], d.Pitches[2] = cStride, cStride
		d.Offsets[1], d.Offsets[2] = ySize, ySize+cSize
		for i := 1; i < 3; i++ {
			d.PrimeFds[i] = nh.Fds[0]
			if i < len(nh.Fds) {
				d.PrimeFds[i] = nh.Fds[i]
			}
			d.Modifiers[i] = nh.Modifier
		}
	}

	return d, nil
}

func alignUp(v, base uint32) uint32 {
	return (v + base - 1) &^ (base - 1)
}
