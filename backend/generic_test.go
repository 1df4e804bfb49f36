// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"testing"

	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/layer"
)

func TestGenericIsClientLayer(t *testing.T) {
	tests := []struct {
		name  string
		setup func(d *fakeDisplay, l *layer.Layer)
		want  bool
	}{
		{name: "plain", want: false},
		{
			name:  "solid color",
			setup: func(_ *fakeDisplay, l *layer.Layer) { l.RequestedType = layer.CompositionSolidColor },
			want:  true,
		},
		{
			name:  "cursor",
			setup: func(_ *fakeDisplay, l *layer.Layer) { l.RequestedType = layer.CompositionCursor },
			want:  false,
		},
		{
			name:  "no buffer",
			setup: func(_ *fakeDisplay, l *layer.Layer) { l.Buffer = nil },
			want:  true,
		},
		{
			name: "unknown format",
			setup: func(_ *fakeDisplay, l *layer.Layer) {
				l.Buffer.(*buffer.NativeHandle).HalFormat = 0xdead
			},
			want: true,
		},
		{
			name:  "color transform",
			setup: func(d *fakeDisplay, _ *layer.Layer) { d.colorTransform = ColorTransformArbitraryMatrix },
			want:  true,
		},
		{
			name:  "scaling allowed",
			setup: func(_ *fakeDisplay, l *layer.Layer) { l.SourceCrop.Right = 5 },
			want:  false,
		},
		{
			name: "scaling forced to gpu",
			setup: func(d *fakeDisplay, l *layer.Layer) {
				l.SourceCrop.Right = 5
				d.forceScaling = true
			},
			want: true,
		},
		{
			name: "phasing forced to gpu",
			setup: func(d *fakeDisplay, l *layer.Layer) {
				l.SourceCrop.Left = 0.5
				l.SourceCrop.Right = 10.5
				d.forceScaling = true
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDisplay(2, 10)
			l := d.layers[0]
			if tt.setup != nil {
				tt.setup(d, l)
			}
			if got := NewGeneric().IsClientLayer(d, l); got != tt.want {
				t.Errorf("IsClientLayer = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRCarDuIsClientLayer(t *testing.T) {
	tests := []struct {
		name      string
		halFormat uint32
		setup     func(d *fakeDisplay, l *layer.Layer)
		want      bool
	}{
		{name: "xbgr", halFormat: buffer.HalFormatRGBX8888, want: false},
		{name: "abgr", halFormat: buffer.HalFormatRGBA8888, want: true},
		{
			name:      "scaling",
			halFormat: buffer.HalFormatRGBX8888,
			setup:     func(_ *fakeDisplay, l *layer.Layer) { l.SourceCrop.Right = 5 },
			want:      true,
		},
		{
			name:      "undescribable",
			halFormat: 0xdead,
			want:      true,
		},
		{
			name:      "generic rule",
			halFormat: buffer.HalFormatRGBX8888,
			setup:     func(d *fakeDisplay, _ *layer.Layer) { d.colorTransform = ColorTransformGrayscale },
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDisplay(2, 10)
			l := d.layers[0]
			l.Buffer.(*buffer.NativeHandle).HalFormat = tt.halFormat
			if tt.setup != nil {
				tt.setup(d, l)
			}
			if got := NewRCarDu().IsClientLayer(d, l); got != tt.want {
				t.Errorf("IsClientLayer = %v, want %v", got, tt.want)
			}
		})
	}
}

// R-Car DU validation must consult its own predicate, not the generic one.
func TestRCarDuValidateUsesOwnPredicate(t *testing.T) {
	d := newDisplay(4, 10, 10)

	NewRCarDu().ValidateDisplay(d)
	for i, l := range d.layers {
		if l.ValidatedType != layer.CompositionClient {
			t.Errorf("layer %d = %v, want Client for ABGR8888", i, l.ValidatedType)
		}
	}

	d = newDisplay(4, 10, 10)
	NewGeneric().ValidateDisplay(d)
	for i, l := range d.layers {
		if l.ValidatedType != layer.CompositionDevice {
			t.Errorf("generic layer %d = %v, want Device", i, l.ValidatedType)
		}
	}
}

func TestClientValidate(t *testing.T) {
	d := newDisplay(4, 10, 20, 30)

	v := NewClient().ValidateDisplay(d)
	if v.ClientLayers != 3 {
		t.Errorf("ClientLayers = %d, want 3", v.ClientLayers)
	}
	for i, l := range d.layers {
		if l.ValidatedType != layer.CompositionClient {
			t.Errorf("layer %d = %v, want Client", i, l.ValidatedType)
		}
	}
	if d.tests != 0 {
		t.Errorf("test commits = %d, want 0", d.tests)
	}
	if d.stats.GPUPixOps != 60 || d.stats.TotalPixOps != 60 {
		t.Errorf("stats = %+v, want 60 GPU and total pixel ops", d.stats)
	}
}

func TestStagesAreCopies(t *testing.T) {
	g := NewGeneric()
	s := g.Stages()
	if len(s) != 2 {
		t.Fatalf("len(Stages) = %d, want 2", len(s))
	}
	s[0] = nil
	if g.Stages()[0] == nil {
		t.Error("Stages exposes internal slice")
	}
}

func TestStatsSub(t *testing.T) {
	now := Stats{Frames: 10, FramesFlattened: 2, TotalPixOps: 1000, GPUPixOps: 300, FailedKMSValidate: 1, FailedKMSPresent: 3}
	prev := Stats{Frames: 4, TotalPixOps: 400, GPUPixOps: 100, FailedKMSPresent: 1}
	want := Stats{Frames: 6, FramesFlattened: 2, TotalPixOps: 600, GPUPixOps: 200, FailedKMSValidate: 1, FailedKMSPresent: 2}
	if got := now.Sub(prev); got != want {
		t.Errorf("Sub = %+v, want %+v", got, want)
	}
}
