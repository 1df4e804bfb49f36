// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package config

import (
	"image"

	"github.com/gogpu/hwc/layer"
)

var compositionTypes = map[string]layer.CompositionType{
	"":            layer.CompositionDevice,
	"device":      layer.CompositionDevice,
	"cursor":      layer.CompositionCursor,
	"solid-color": layer.CompositionSolidColor,
	"sideband":    layer.CompositionSideband,
	"client":      layer.CompositionClient,
}

// CompositionType returns the type the layer requests.
func (l *Layer) CompositionType() layer.CompositionType {
	return compositionTypes[l.Type]
}

// Apply copies the configured geometry and flags onto dst.
func (l *Layer) Apply(dst *layer.Layer) {
	x, y, w, h := l.Frame[0], l.Frame[1], l.Frame[2], l.Frame[3]
	dst.DisplayFrame = image.Rect(x, y, x+w, y+h)
	if len(l.Crop) == 4 {
		dst.SourceCrop = layer.FRect{Left: l.Crop[0], Top: l.Crop[1], Right: l.Crop[2], Bottom: l.Crop[3]}
	} else {
		dst.SourceCrop = layer.FRect{Right: float32(w), Bottom: float32(h)}
	}
	dst.RequestedType = l.CompositionType()
	dst.Alpha = 1
	if l.Alpha != nil {
		dst.Alpha = *l.Alpha
	}
	dst.Transform = layer.TransformFromHWC(l.Transform)
	dst.Protected = l.Protected
	if l.Alpha != nil && *l.Alpha < 1 {
		dst.Blending = layer.BlendingPreMult
	}
}
