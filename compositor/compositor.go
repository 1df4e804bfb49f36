// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"fmt"
	"sync"

	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/drm"
)

// DefaultFlattenCountdown is the number of vsyncs without a new frame
// after which the scene is flattened onto the client target.
const DefaultFlattenCountdown = 60

// KMS commits atomic requests. *drm.Device implements it.
type KMS interface {
	AtomicCommit(req *drm.AtomicRequest, flags uint32) error
}

// Compositor commits the compositions of one display.
//
// Besides committing, it decides when a static scene should be flattened:
// every vsync counts down, every applied composition restarts the count,
// and once it runs out with more than one plane lit the next validation
// composes the whole frame on the client so the overlays can power down.
type Compositor struct {
	kms     KMS
	display int

	mu            sync.Mutex
	active        *Composition
	frameNo       uint64
	countdownInit int
	countdown     int
	flattened     uint64
	refresh       func()
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithFlattenCountdown sets the vsync countdown. Zero or less disables
// flattening.
func WithFlattenCountdown(n int) Option {
	return func(c *Compositor) { c.countdownInit = n }
}

// WithRefresh sets the function called when the countdown expires, to ask
// the client for a new frame.
func WithRefresh(fn func()) Option {
	return func(c *Compositor) { c.refresh = fn }
}

// New returns a compositor for display committing through kms.
func New(kms KMS, display int, opts ...Option) *Compositor {
	c := &Compositor{
		kms:           kms,
		display:       display,
		countdownInit: DefaultFlattenCountdown,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.countdown = c.countdownInit
	return c
}

// NewComposition returns an empty composition numbered after the last.
func (c *Compositor) NewComposition(crtc *drm.Crtc) *Composition {
	c.mu.Lock()
	c.frameNo++
	n := c.frameNo
	c.mu.Unlock()
	return NewComposition(crtc, n)
}

// TestComposition asks the kernel whether comp would be accepted, without
// changing what is on screen.
func (c *Compositor) TestComposition(comp *Composition) error {
	req, err := comp.Request()
	if err != nil {
		return err
	}
	if err := c.kms.AtomicCommit(req, drm.AtomicTestOnly); err != nil {
		return fmt.Errorf("compositor: test commit frame %d: %w", comp.FrameNo, err)
	}
	return nil
}

// ApplyComposition commits comp and makes it the active composition. The
// compositor owns comp afterwards: it is released when replaced, or right
// away when the commit fails.
func (c *Compositor) ApplyComposition(comp *Composition) error {
	req, err := comp.Request()
	if err == nil {
		err = c.kms.AtomicCommit(req, 0)
	}
	if err != nil {
		if rerr := comp.Release(); rerr != nil {
			hwc.Logger().Error("compositor: release failed composition", "display", c.display, "err", rerr)
		}
		return fmt.Errorf("compositor: commit frame %d: %w", comp.FrameNo, err)
	}

	c.mu.Lock()
	prev := c.active
	c.active = comp
	c.countdown = c.countdownInit
	c.mu.Unlock()

	if prev != nil {
		if err := prev.Release(); err != nil {
			hwc.Logger().Error("compositor: release previous composition", "display", c.display, "err", err)
		}
	}
	hwc.Logger().Debug("compositor: applied composition", "display", c.display,
		"frame", comp.FrameNo, "planes", comp.LayerPlanes())
	return nil
}

// Active returns the last applied composition, or nil.
func (c *Compositor) Active() *Composition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Vsync counts one vsync toward flattening.
func (c *Compositor) Vsync() {
	c.mu.Lock()
	if c.countdownInit <= 0 {
		c.mu.Unlock()
		return
	}
	c.countdown--
	fire := c.countdown == 0 && c.flatteningNeededLocked()
	refresh := c.refresh
	c.mu.Unlock()

	if fire {
		hwc.Logger().Info("compositor: scene flattening triggered", "display", c.display)
		if refresh != nil {
			refresh()
		}
	}
}

func (c *Compositor) flatteningNeededLocked() bool {
	return c.active != nil && c.active.LayerPlanes() > 1
}

// ShouldFlattenOnClient reports whether the next frame should be composed
// entirely on the client. Every positive answer counts as a flattened
// frame.
func (c *Compositor) ShouldFlattenOnClient() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.countdownInit <= 0 || c.countdown > 0 || !c.flatteningNeededLocked() {
		return false
	}
	c.flattened++
	return true
}

// FlattenedFrames returns how many frames were flattened.
func (c *Compositor) FlattenedFrames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flattened
}

// Close releases the active composition.
func (c *Compositor) Close() error {
	c.mu.Lock()
	active := c.active
	c.active = nil
	c.mu.Unlock()
	if active == nil {
		return nil
	}
	return active.Release()
}
