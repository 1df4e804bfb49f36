// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package compositor turns a planned frame into an atomic commit.
//
// A Composition owns the imported buffers of one frame and the plane plan
// for it. The Compositor test-commits compositions during validation,
// applies them at present time, and keeps the last applied one alive until
// the next replaces it.
package compositor

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/hwc/drm"
	"github.com/gogpu/hwc/importer"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/planner"
)

// Errors returned while building commits.
var (
	ErrNoFramebuffer        = errors.New("compositor: layer has no framebuffer")
	ErrBadSourceLayer       = errors.New("compositor: plane source layer out of range")
	ErrRotationUnsupported  = errors.New("compositor: plane has no rotation property")
	ErrAlphaUnsupported     = errors.New("compositor: plane has no alpha property")
	ErrCompositionFinalized = errors.New("compositor: composition already planned")
)

// PropertyError reports an atomic property an object does not expose.
type PropertyError struct {
	Object uint32
	Name   string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("compositor: object %d has no %q property", e.Object, e.Name)
}

// Layer is a frame layer together with its imported buffer.
type Layer struct {
	Source *layer.Layer
	Buffer importer.Buffer
}

// Composition is one frame: the layers that go to planes, with their
// buffers imported, and the planes they go to.
type Composition struct {
	Crtc    *drm.Crtc
	FrameNo uint64

	layers  []*Layer
	planes  []planner.CompositionPlane
	planned bool
}

// NewComposition returns an empty composition for crtc.
func NewComposition(crtc *drm.Crtc, frameNo uint64) *Composition {
	return &Composition{Crtc: crtc, FrameNo: frameNo}
}

// AddLayer imports the buffer of l and appends it. Layers must be added
// bottom to top.
func (c *Composition) AddLayer(l *layer.Layer, imp importer.Importer) error {
	if c.planned {
		return ErrCompositionFinalized
	}
	cl := &Layer{Source: l}
	if err := cl.Buffer.Import(l.Buffer, imp); err != nil {
		return fmt.Errorf("compositor: import layer %d: %w", l.ID, err)
	}
	c.layers = append(c.layers, cl)
	return nil
}

// Layers returns the composition's layers, bottom to top.
func (c *Composition) Layers() []*Layer { return c.layers }

// Planes returns the plane plan.
func (c *Composition) Planes() []planner.CompositionPlane { return c.planes }

// LayerPlanes returns the number of planes scanning out a layer.
func (c *Composition) LayerPlanes() int {
	n := 0
	for _, cp := range c.planes {
		if cp.Type == planner.PlaneLayer {
			n++
		}
	}
	return n
}

// Plan provisions planes for the layers and disables every other plane
// usable on the CRTC, so planes lit by the previous frame go dark.
func (c *Composition) Plan(p *planner.Planner, primary, overlay []*drm.Plane) error {
	if c.planned {
		return ErrCompositionFinalized
	}
	cands := make([]planner.Candidate, len(c.layers))
	for i, l := range c.layers {
		cands[i] = planner.Candidate{Index: i, Layer: l.Source}
		if fb := l.Buffer.Framebuffer(); fb != nil {
			cands[i].Desc = &fb.Desc
		}
	}

	plan, err := p.ProvisionPlanes(cands, c.Crtc, primary, overlay)
	if err != nil {
		return err
	}

	used := make(map[uint32]bool, len(plan))
	for _, cp := range plan {
		used[cp.Plane.ID] = true
	}
	for _, pl := range planner.UsablePlanes(c.Crtc, primary, overlay) {
		if !used[pl.ID] {
			plan = append(plan, planner.CompositionPlane{
				Type:  planner.PlaneDisable,
				Plane: pl,
				Crtc:  c.Crtc,
			})
		}
	}
	c.planes = plan
	c.planned = true
	return nil
}

// Release drops every imported buffer.
func (c *Composition) Release() error {
	var errs []error
	for _, l := range c.layers {
		if err := l.Buffer.Clear(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Request builds the atomic request that shows the composition.
func (c *Composition) Request() (*drm.AtomicRequest, error) {
	req := drm.NewAtomicRequest()
	for _, cp := range c.planes {
		var err error
		if cp.Type == planner.PlaneDisable {
			err = disablePlane(req, cp.Plane)
		} else {
			err = c.addPlane(req, cp)
		}
		if err != nil {
			return nil, err
		}
	}
	return req, nil
}

func setProp(req *drm.AtomicRequest, p *drm.Plane, name string, value uint64) error {
	id, ok := p.Prop(name)
	if !ok {
		return &PropertyError{Object: p.ID, Name: name}
	}
	req.AddProperty(p.ID, id, value)
	return nil
}

func disablePlane(req *drm.AtomicRequest, p *drm.Plane) error {
	if err := setProp(req, p, drm.PropCrtcID, 0); err != nil {
		return err
	}
	return setProp(req, p, drm.PropFbID, 0)
}

// Kernel blend mode enum values.
const (
	blendPixelNone     = 0
	blendPremultiplied = 1
	blendCoverage      = 2
)

func (c *Composition) addPlane(req *drm.AtomicRequest, cp planner.CompositionPlane) error {
	if len(cp.SourceLayers) != 1 || cp.SourceLayers[0] < 0 || cp.SourceLayers[0] >= len(c.layers) {
		return fmt.Errorf("%w: %v of %d", ErrBadSourceLayer, cp.SourceLayers, len(c.layers))
	}
	l := c.layers[cp.SourceLayers[0]]
	fb := l.Buffer.Framebuffer()
	if fb == nil {
		return fmt.Errorf("%w: layer %d", ErrNoFramebuffer, l.Source.ID)
	}
	src := l.Source
	p := cp.Plane

	rotation := planner.Rotation(src.Transform)
	if _, ok := p.Prop(drm.PropRotation); !ok && rotation != drm.Rotate0 {
		return fmt.Errorf("%w: plane %d", ErrRotationUnsupported, p.ID)
	}
	alpha := uint64(math.Round(float64(src.Alpha) * 0xFFFF))
	if _, ok := p.Prop(drm.PropAlpha); !ok && alpha != 0xFFFF {
		return fmt.Errorf("%w: plane %d", ErrAlphaUnsupported, p.ID)
	}

	frame := src.DisplayFrame.Canon()
	crop := src.SourceCrop
	props := []struct {
		name  string
		value uint64
	}{
		{drm.PropCrtcID, uint64(cp.Crtc.ID)},
		{drm.PropFbID, uint64(fb.FbID)},
		{drm.PropCrtcX, uint64(int64(frame.Min.X))},
		{drm.PropCrtcY, uint64(int64(frame.Min.Y))},
		{drm.PropCrtcW, uint64(frame.Dx())},
		{drm.PropCrtcH, uint64(frame.Dy())},
		{drm.PropSrcX, uint64(int64(crop.Left)) << 16},
		{drm.PropSrcY, uint64(int64(crop.Top)) << 16},
		{drm.PropSrcW, uint64(int64(crop.Dx())) << 16},
		{drm.PropSrcH, uint64(int64(crop.Dy())) << 16},
	}
	for _, pr := range props {
		if err := setProp(req, p, pr.name, pr.value); err != nil {
			return err
		}
	}

	if id, ok := p.Prop(drm.PropRotation); ok {
		req.AddProperty(p.ID, id, rotation)
	}
	if id, ok := p.Prop(drm.PropAlpha); ok {
		req.AddProperty(p.ID, id, alpha)
	}
	if id, ok := p.Prop(drm.PropBlendMode); ok {
		mode := uint64(blendPixelNone)
		switch src.Blending {
		case layer.BlendingPreMult:
			mode = blendPremultiplied
		case layer.BlendingCoverage:
			mode = blendCoverage
		}
		req.AddProperty(p.ID, id, mode)
	}
	if src.AcquireFence >= 0 {
		if err := setProp(req, p, drm.PropInFenceFd, uint64(src.AcquireFence)); err != nil {
			return err
		}
	}
	return nil
}
