// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/drm"
	"github.com/gogpu/hwc/importer"
	"github.com/gogpu/hwc/internal/kmssim"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/planner"
)

type rig struct {
	dev     *kmssim.Device
	alloc   *kmssim.Allocator
	imp     *importer.Generic
	crtc    *drm.Crtc
	primary []*drm.Plane
	overlay []*drm.Plane
}

func newRig(overlays int) *rig {
	dev := kmssim.New("test")
	primary, overlay := kmssim.Planes(1, overlays)
	return &rig{
		dev:     dev,
		alloc:   kmssim.NewAllocator(),
		imp:     importer.NewGeneric(dev, buffer.NativeGetter{}),
		crtc:    kmssim.Crtc(0),
		primary: primary,
		overlay: overlay,
	}
}

func (r *rig) layer(id uint64, z uint32) *layer.Layer {
	l := layer.New(id, z)
	l.Buffer = r.alloc.Alloc(100, 50, buffer.HalFormatRGBA8888, 0)
	l.DisplayFrame = image.Rect(10, 20, 110, 70)
	l.SourceCrop = layer.FRect{Right: 100, Bottom: 50}
	return l
}

func (r *rig) composition(t *testing.T, layers ...*layer.Layer) *Composition {
	t.Helper()
	comp := NewComposition(r.crtc, 1)
	for _, l := range layers {
		if err := comp.AddLayer(l, r.imp); err != nil {
			t.Fatalf("AddLayer: %v", err)
		}
	}
	if err := comp.Plan(planner.Default(), r.primary, r.overlay); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return comp
}

func propValue(t *testing.T, req *drm.AtomicRequest, p *drm.Plane, name string) uint64 {
	t.Helper()
	v, ok := req.Value(p.ID, p.Props[name])
	if !ok {
		t.Fatalf("plane %d: %s not set", p.ID, name)
	}
	return v
}

func TestCompositionPlanDisablesUnusedPlanes(t *testing.T) {
	r := newRig(2)
	comp := r.composition(t, r.layer(1, 0))

	planes := comp.Planes()
	if len(planes) != 3 {
		t.Fatalf("len(Planes) = %d, want 3", len(planes))
	}
	if planes[0].Type != planner.PlaneLayer || planes[0].Plane != r.primary[0] {
		t.Errorf("planes[0] = %v on %d, want layer on primary", planes[0].Type, planes[0].Plane.ID)
	}
	for _, cp := range planes[1:] {
		if cp.Type != planner.PlaneDisable {
			t.Errorf("plane %d type = %v, want disable", cp.Plane.ID, cp.Type)
		}
	}
	if got := comp.LayerPlanes(); got != 1 {
		t.Errorf("LayerPlanes = %d, want 1", got)
	}
	if err := comp.Plan(planner.Default(), r.primary, r.overlay); !errors.Is(err, ErrCompositionFinalized) {
		t.Errorf("second Plan err = %v, want ErrCompositionFinalized", err)
	}
}

func TestCompositionRequest(t *testing.T) {
	r := newRig(1)
	l := r.layer(1, 0)
	l.Alpha = 0.5
	l.Blending = layer.BlendingPreMult
	l.Transform = layer.TransformFlipH
	l.AcquireFence = 9
	comp := r.composition(t, l)

	req, err := comp.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	p := r.primary[0]
	fb := comp.Layers()[0].Buffer.Framebuffer()

	tests := []struct {
		prop string
		want uint64
	}{
		{drm.PropCrtcID, uint64(r.crtc.ID)},
		{drm.PropFbID, uint64(fb.FbID)},
		{drm.PropCrtcX, 10},
		{drm.PropCrtcY, 20},
		{drm.PropCrtcW, 100},
		{drm.PropCrtcH, 50},
		{drm.PropSrcX, 0},
		{drm.PropSrcW, 100 << 16},
		{drm.PropSrcH, 50 << 16},
		{drm.PropRotation, drm.ReflectX | drm.Rotate0},
		{drm.PropAlpha, 0x8000},
		{drm.PropBlendMode, blendPremultiplied},
		{drm.PropInFenceFd, 9},
	}
	for _, tt := range tests {
		if got := propValue(t, req, p, tt.prop); got != tt.want {
			t.Errorf("%s = %d, want %d", tt.prop, got, tt.want)
		}
	}

	o := r.overlay[0]
	if got := propValue(t, req, o, drm.PropFbID); got != 0 {
		t.Errorf("disabled plane FB_ID = %d, want 0", got)
	}
	if got := propValue(t, req, o, drm.PropCrtcID); got != 0 {
		t.Errorf("disabled plane CRTC_ID = %d, want 0", got)
	}
}

func TestCompositionRequestMissingProperties(t *testing.T) {
	r := newRig(0)
	delete(r.primary[0].Props, drm.PropAlpha)
	delete(r.primary[0].Props, drm.PropRotation)

	l := r.layer(1, 0)
	l.Alpha = 0.5
	comp := r.composition(t, l)
	if _, err := comp.Request(); !errors.Is(err, ErrAlphaUnsupported) {
		t.Errorf("alpha err = %v, want ErrAlphaUnsupported", err)
	}

	l.Alpha = 1
	l.Transform = layer.TransformRotate180
	if _, err := comp.Request(); !errors.Is(err, ErrRotationUnsupported) {
		t.Errorf("rotation err = %v, want ErrRotationUnsupported", err)
	}

	l.Transform = layer.TransformIdentity
	delete(r.primary[0].Props, drm.PropSrcW)
	_, err := comp.Request()
	var pe *PropertyError
	if !errors.As(err, &pe) || pe.Name != drm.PropSrcW {
		t.Errorf("err = %v, want PropertyError for %s", err, drm.PropSrcW)
	}
}

func TestCompositionAddLayerImportFailure(t *testing.T) {
	r := newRig(1)
	l := r.layer(1, 0)
	r.dev.FailAddFB(true)

	comp := NewComposition(r.crtc, 1)
	if err := comp.AddLayer(l, r.imp); err == nil {
		t.Fatal("AddLayer succeeded with failing AddFB2")
	}
	if len(comp.Layers()) != 0 {
		t.Errorf("len(Layers) = %d, want 0", len(comp.Layers()))
	}
}

func TestCompositorTestDoesNotApply(t *testing.T) {
	r := newRig(1)
	c := New(r.dev, 0)
	comp := r.composition(t, r.layer(1, 0))

	if err := c.TestComposition(comp); err != nil {
		t.Fatalf("TestComposition: %v", err)
	}
	if c.Active() != nil {
		t.Error("TestComposition changed the active composition")
	}
	tested, applied := r.dev.CountCommits()
	if tested != 1 || applied != 0 {
		t.Errorf("commits = %d test, %d real, want 1, 0", tested, applied)
	}

	r.dev.FailTestCommits(true)
	if err := c.TestComposition(comp); !errors.Is(err, kmssim.ErrRejected) {
		t.Errorf("err = %v, want ErrRejected", err)
	}
	if err := comp.Release(); err != nil {
		t.Fatal(err)
	}
	if n := r.dev.OpenHandles(); n != 0 {
		t.Errorf("OpenHandles = %d, want 0", n)
	}
}

func TestCompositorApplyReleasesPrevious(t *testing.T) {
	r := newRig(1)
	c := New(r.dev, 0)
	l := r.layer(1, 0)

	first := r.composition(t, l)
	if err := c.ApplyComposition(first); err != nil {
		t.Fatalf("ApplyComposition: %v", err)
	}
	h := first.Layers()[0].Buffer.Framebuffer().GemHandles[0]

	second := r.composition(t, l)
	if err := c.ApplyComposition(second); err != nil {
		t.Fatalf("ApplyComposition: %v", err)
	}
	if c.Active() != second {
		t.Error("Active is not the last applied composition")
	}
	if first.Layers()[0].Buffer.Valid() {
		t.Error("previous composition still holds its buffer")
	}
	if got := r.imp.Refcount(h); got != 1 {
		t.Errorf("Refcount = %d, want 1", got)
	}
	if got := r.dev.CloseCount(h); got != 0 {
		t.Errorf("handle closed %d times while on screen", got)
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if got := r.dev.CloseCount(h); got != 1 {
		t.Errorf("CloseCount = %d, want 1", got)
	}
}

func TestCompositorApplyFailureReleases(t *testing.T) {
	r := newRig(1)
	c := New(r.dev, 0)
	boom := errors.New("boom")
	r.dev.SetCommitCheck(func(*drm.AtomicRequest, uint32) error { return boom })

	comp := r.composition(t, r.layer(1, 0))
	if err := c.ApplyComposition(comp); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if c.Active() != nil {
		t.Error("failed composition became active")
	}
	if n := r.dev.OpenHandles(); n != 0 {
		t.Errorf("OpenHandles = %d, want 0", n)
	}
}

func TestCompositorFlatten(t *testing.T) {
	r := newRig(2)
	refreshed := 0
	c := New(r.dev, 0, WithFlattenCountdown(3), WithRefresh(func() { refreshed++ }))

	if err := c.ApplyComposition(r.composition(t, r.layer(1, 0), r.layer(2, 1))); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		c.Vsync()
	}
	if c.ShouldFlattenOnClient() {
		t.Error("flattening before the countdown expired")
	}
	c.Vsync()
	if refreshed != 1 {
		t.Errorf("refresh called %d times, want 1", refreshed)
	}
	if !c.ShouldFlattenOnClient() {
		t.Fatal("no flattening after the countdown expired")
	}
	if got := c.FlattenedFrames(); got != 1 {
		t.Errorf("FlattenedFrames = %d, want 1", got)
	}

	// Applying a new frame restarts the countdown.
	if err := c.ApplyComposition(r.composition(t, r.layer(3, 0), r.layer(4, 1))); err != nil {
		t.Fatal(err)
	}
	if c.ShouldFlattenOnClient() {
		t.Error("flattening right after a new frame")
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCompositorFlattenSinglePlane(t *testing.T) {
	r := newRig(1)
	c := New(r.dev, 0, WithFlattenCountdown(1))
	if err := c.ApplyComposition(r.composition(t, r.layer(1, 0))); err != nil {
		t.Fatal(err)
	}
	c.Vsync()
	if c.ShouldFlattenOnClient() {
		t.Error("flattening a single-plane scene")
	}
}

func TestCompositorFlattenDisabled(t *testing.T) {
	r := newRig(2)
	c := New(r.dev, 0, WithFlattenCountdown(0))
	if err := c.ApplyComposition(r.composition(t, r.layer(1, 0), r.layer(2, 1))); err != nil {
		t.Fatal(err)
	}
	for range 100 {
		c.Vsync()
	}
	if c.ShouldFlattenOnClient() {
		t.Error("flattening while disabled")
	}
}

func TestCompositorFrameNumbers(t *testing.T) {
	r := newRig(0)
	c := New(r.dev, 0)
	a := c.NewComposition(r.crtc)
	b := c.NewComposition(r.crtc)
	if b.FrameNo != a.FrameNo+1 {
		t.Errorf("frame numbers %d, %d are not consecutive", a.FrameNo, b.FrameNo)
	}
}
