// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kmssim

import (
	"sync"

	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/drm"
)

var planeProps = []string{
	drm.PropFbID, drm.PropCrtcID,
	drm.PropSrcX, drm.PropSrcY, drm.PropSrcW, drm.PropSrcH,
	drm.PropCrtcX, drm.PropCrtcY, drm.PropCrtcW, drm.PropCrtcH,
	drm.PropRotation, drm.PropAlpha, drm.PropBlendMode, drm.PropInFenceFd,
}

// Crtc returns a CRTC for pipe with its atomic properties populated.
func Crtc(pipe int) *drm.Crtc {
	base := uint32(1000 + pipe*10)
	return &drm.Crtc{
		ID:      uint32(40 + pipe),
		Pipe:    pipe,
		Display: pipe,
		Props: map[string]uint32{
			drm.PropActive:      base + 1,
			drm.PropOutFencePtr: base + 2,
		},
	}
}

// Planes returns primary and overlay planes usable on every CRTC, with IDs
// starting at 30 and every plane property populated.
func Planes(primary, overlay int) (primaries, overlays []*drm.Plane) {
	id := uint32(30)
	mk := func(t drm.PlaneType) *drm.Plane {
		p := &drm.Plane{
			ID:            id,
			Type:          t,
			PossibleCrtcs: 0xFF,
			Rotations:     drm.Rotate0 | drm.Rotate180 | drm.ReflectX | drm.ReflectY,
			HasAlpha:      true,
			HasBlend:      true,
			Props:         make(map[string]uint32, len(planeProps)),
		}
		for i, name := range planeProps {
			p.Props[name] = id*100 + uint32(i) + 1
		}
		id++
		return p
	}
	for range primary {
		primaries = append(primaries, mk(drm.PlanePrimary))
	}
	for range overlay {
		overlays = append(overlays, mk(drm.PlaneOverlay))
	}
	return primaries, overlays
}

// Allocator hands out native buffer handles with unique keys and fds, the
// way a gralloc allocator would.
type Allocator struct {
	mu     sync.Mutex
	nextID uint64
	nextFd int
}

// NewAllocator returns an allocator whose fds start at 100.
func NewAllocator() *Allocator {
	return &Allocator{nextID: 1, nextFd: 100}
}

// Alloc returns a packed single-plane buffer.
func (a *Allocator) Alloc(width, height, halFormat uint32, usage uint64) *buffer.NativeHandle {
	a.mu.Lock()
	defer a.mu.Unlock()

	h := &buffer.NativeHandle{
		ID:        a.nextID,
		Fds:       []int{a.nextFd},
		Width:     width,
		Height:    height,
		HalFormat: halFormat,
		Stride:    width * 4,
		Usage:     usage,
	}
	a.nextID++
	a.nextFd++
	return h
}

// Share returns a new handle with its own key aliasing the allocation of h,
// as when one buffer is presented on two displays.
func (a *Allocator) Share(h *buffer.NativeHandle) *buffer.NativeHandle {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := *h
	c.Fds = append([]int(nil), h.Fds...)
	c.ID = a.nextID
	a.nextID++
	return &c
}
