// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package planviz renders the composition plan of a frame to an image:
// one box per layer, colored by who composites it.
package planviz

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"slices"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/hwc/layer"
)

// Colors of the rendering.
var (
	Background = color.RGBA{0x20, 0x20, 0x28, 0xFF}
	DeviceFill = color.RGBA{0x20, 0x90, 0x40, 0xA0}
	ClientFill = color.RGBA{0x98, 0x50, 0x10, 0xA0}
	OtherFill  = color.RGBA{0x70, 0x70, 0x70, 0xA0}
	Outline    = color.RGBA{0xF0, 0xF0, 0xF0, 0xFF}
	LabelColor = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
)

const labelMargin = 3

// Options control the rendering.
type Options struct {
	// MaxWidth scales the output down to at most this width. Zero keeps the
	// display resolution.
	MaxWidth int

	// Labels draws the ID, z-order and type of each layer.
	Labels bool
}

// FillFor returns the fill color of a layer of type t.
func FillFor(t layer.CompositionType) color.RGBA {
	switch t {
	case layer.CompositionDevice, layer.CompositionCursor:
		return DeviceFill
	case layer.CompositionClient:
		return ClientFill
	}
	return OtherFill
}

// Render draws the validated types of layers on a width x height display.
// Layers are stacked by z-order.
func Render(width, height int, layers []*layer.Layer, opts Options) *image.RGBA {
	full := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(full, full.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	stack := slices.Clone(layers)
	slices.SortStableFunc(stack, func(a, b *layer.Layer) int {
		return cmp.Or(cmp.Compare(a.ZOrder, b.ZOrder), cmp.Compare(a.ID, b.ID))
	})

	for _, l := range stack {
		r := l.DisplayFrame.Canon().Intersect(full.Bounds())
		if r.Empty() {
			continue
		}
		draw.Draw(full, r, image.NewUniform(FillFor(l.ValidatedType)), image.Point{}, draw.Over)
	}

	out := full
	scale := 1.0
	if opts.MaxWidth > 0 && width > opts.MaxWidth {
		scale = float64(opts.MaxWidth) / float64(width)
		h := max(int(float64(height)*scale), 1)
		out = image.NewRGBA(image.Rect(0, 0, opts.MaxWidth, h))
		draw.ApproxBiLinear.Scale(out, out.Bounds(), full, full.Bounds(), draw.Src, nil)
	}

	for _, l := range stack {
		r := scaleRect(l.DisplayFrame.Canon(), scale).Intersect(out.Bounds())
		if r.Empty() {
			continue
		}
		outline(out, r, Outline)
		if opts.Labels {
			label(out, r, fmt.Sprintf("%d z%d %s", l.ID, l.ZOrder, l.ValidatedType))
		}
	}
	return out
}

// WritePNG renders the plan and encodes it as PNG.
func WritePNG(w io.Writer, width, height int, layers []*layer.Layer, opts Options) error {
	if err := png.Encode(w, Render(width, height, layers, opts)); err != nil {
		return fmt.Errorf("planviz: %w", err)
	}
	return nil
}

func scaleRect(r image.Rectangle, s float64) image.Rectangle {
	if s == 1 {
		return r
	}
	return image.Rect(
		int(float64(r.Min.X)*s), int(float64(r.Min.Y)*s),
		int(float64(r.Max.X)*s), int(float64(r.Max.Y)*s),
	)
}

func outline(dst *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		dst.Set(x, r.Min.Y, c)
		dst.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dst.Set(r.Min.X, y, c)
		dst.Set(r.Max.X-1, y, c)
	}
}

// label draws s in the top-left corner of r, clipped to r.
func label(dst *image.RGBA, r image.Rectangle, s string) {
	face := basicfont.Face7x13
	m := face.Metrics()
	if r.Dy() < m.Height.Ceil()+labelMargin {
		return
	}
	d := &font.Drawer{
		Dst:  dst.SubImage(r).(*image.RGBA),
		Src:  image.NewUniform(LabelColor),
		Face: face,
		Dot:  fixed.P(r.Min.X+labelMargin, r.Min.Y+labelMargin+m.Ascent.Ceil()),
	}
	d.DrawString(s)
}
