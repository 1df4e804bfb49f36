// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package importer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/drm"
)

// Generic imports buffers whose planes all live in one dma-buf.
type Generic struct {
	dev       Device
	getter    buffer.Getter
	modifiers bool

	// mu is held across resolve+increment and decrement+close, so a handle
	// is never closed while another import is about to take a reference.
	mu   sync.Mutex
	refs map[uint32]int
}

// NewGeneric returns an importer for dev that describes handles with getter.
func NewGeneric(dev Device, getter buffer.Getter) *Generic {
	g := &Generic{
		dev:    dev,
		getter: getter,
		refs:   make(map[uint32]int),
	}
	v, err := dev.Cap(drm.CapAddFB2Modifiers)
	if err != nil {
		hwc.Logger().Warn("importer: query modifier support failed, assuming none", "err", err)
	}
	g.modifiers = err == nil && v != 0
	return g
}

// SupportsModifiers reports whether the device accepts format modifiers.
func (g *Generic) SupportsModifiers() bool { return g.modifiers }

// ImportHandle implements Importer.
func (g *Generic) ImportHandle(h buffer.Handle) (*Framebuffer, error) {
	if g.getter == nil {
		return nil, buffer.ErrUnsupportedHandle
	}
	desc, err := g.getter.Describe(h)
	if err != nil {
		return nil, fmt.Errorf("importer: describe buffer: %w", err)
	}
	return g.ImportBuffer(desc)
}

// ImportBuffer implements Importer.
func (g *Generic) ImportBuffer(desc *buffer.Descriptor) (*Framebuffer, error) {
	if desc == nil || desc.PrimeFds[0] <= 0 {
		return nil, ErrNoBuffer
	}
	fd := desc.PrimeFds[0]
	for _, other := range desc.PrimeFds[1:] {
		if other != 0 && other != fd {
			return nil, ErrMultiplanarUnsupported
		}
	}
	if desc.Modifiers[0] != 0 && !g.modifiers {
		return nil, ErrModifiersUnsupported
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	handle, err := g.dev.PrimeFDToHandle(fd)
	if err != nil {
		return nil, &ImportError{Fd: fd, Err: err}
	}

	fb := &Framebuffer{Desc: *desc}
	for i, pfd := range desc.PrimeFds {
		if pfd != 0 {
			fb.GemHandles[i] = handle
		}
	}

	fbID, err := g.dev.AddFB2(desc, fb.GemHandles, desc.WithModifiers)
	if err != nil {
		// A handle already in the table belongs to live framebuffers.
		if g.refs[handle] == 0 {
			if cerr := g.dev.CloseHandle(handle); cerr != nil {
				hwc.Logger().Error("importer: close gem handle failed", "handle", handle, "err", cerr)
			}
		}
		return nil, fmt.Errorf("importer: add framebuffer %dx%d %s: %w",
			desc.Width, desc.Height, buffer.FormatName(desc.Format), err)
	}
	fb.FbID = fbID
	g.refs[handle]++

	hwc.Logger().Debug("importer: imported buffer", "fd", fd, "handle", handle, "fb", fbID, "refs", g.refs[handle])
	return fb, nil
}

// ReleaseBuffer implements Importer. Releasing a framebuffer twice is a
// no-op; its handles are cleared on the first successful release.
func (g *Generic) ReleaseBuffer(fb *Framebuffer) error {
	if fb == nil {
		return ErrNoBuffer
	}
	if fb.FbID != 0 {
		if err := g.dev.RemoveFB(fb.FbID); err != nil {
			hwc.Logger().Error("importer: remove framebuffer failed", "fb", fb.FbID, "err", err)
		}
		fb.FbID = 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	for i := range fb.GemHandles {
		h := fb.GemHandles[i]
		if h == 0 {
			continue
		}
		if err := g.releaseHandleLocked(h); err != nil {
			errs = append(errs, err)
			continue
		}
		// Later planes sharing the handle were covered by this release.
		for j := i; j < len(fb.GemHandles); j++ {
			if fb.GemHandles[j] == h {
				fb.GemHandles[j] = 0
			}
		}
	}
	return errors.Join(errs...)
}

func (g *Generic) releaseHandleLocked(h uint32) error {
	n, ok := g.refs[h]
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownHandle, h)
	}
	if n > 1 {
		g.refs[h] = n - 1
		return nil
	}
	delete(g.refs, h)
	if err := g.dev.CloseHandle(h); err != nil {
		hwc.Logger().Error("importer: close gem handle failed", "handle", h, "err", err)
		return fmt.Errorf("importer: close gem handle %d: %w", h, err)
	}
	hwc.Logger().Debug("importer: closed gem handle", "handle", h)
	return nil
}

// Refcount returns the number of live framebuffers using handle.
func (g *Generic) Refcount(handle uint32) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refs[handle]
}

// Len returns the number of open GEM handles the importer tracks.
func (g *Generic) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.refs)
}
