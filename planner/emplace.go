// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package planner

import (
	"github.com/gogpu/hwc/drm"
	"github.com/gogpu/hwc/layer"
)

// Rotation converts a layer transform to the plane rotation property.
func Rotation(t layer.Transform) uint64 {
	var r uint64
	if t&layer.TransformFlipH != 0 {
		r |= drm.ReflectX
	}
	if t&layer.TransformFlipV != 0 {
		r |= drm.ReflectY
	}
	switch {
	case t&layer.TransformRotate90 != 0:
		r |= drm.Rotate90
	case t&layer.TransformRotate180 != 0:
		r |= drm.Rotate180
	case t&layer.TransformRotate270 != 0:
		r |= drm.Rotate270
	default:
		r |= drm.Rotate0
	}
	return r
}

// ValidForLayer reports whether p can scan out c on crtc.
func ValidForLayer(p *drm.Plane, crtc *drm.Crtc, c Candidate) bool {
	if !p.CrtcSupported(crtc) {
		return false
	}
	if c.Desc != nil && !p.SupportsFormat(c.Desc.Format) {
		return false
	}
	if c.Layer == nil {
		return true
	}
	if !p.SupportsRotation(Rotation(c.Layer.Transform)) {
		return false
	}
	if !p.HasAlpha && c.Layer.Alpha < 1 {
		return false
	}
	if !p.HasBlend && c.Layer.Blending != layer.BlendingNone && c.Layer.Blending != layer.BlendingPreMult {
		return false
	}
	return true
}

// Emplace gives c the first free plane that can scan it out.
//
// Planes are tried in order. Skipped planes go back to the front of the
// pool unless their zpos is immutable: a fixed-position plane passed over
// for a lower layer cannot serve the higher layers that follow.
func Emplace(s State, c Candidate) (State, error) {
	if len(s.Planes) == 0 {
		return s, ErrNoPlanesLeft
	}

	var skipped []*drm.Plane
	for i, p := range s.Planes {
		if !ValidForLayer(p, s.Crtc, c) {
			if !p.ImmutableZpos {
				skipped = append(skipped, p)
			}
			continue
		}
		s.Composition = append(s.Composition, CompositionPlane{
			Type:         PlaneLayer,
			Plane:        p,
			Crtc:         s.Crtc,
			SourceLayers: []int{c.Index},
		})
		s.Planes = append(skipped, s.Planes[i+1:]...)
		return s, nil
	}
	s.Planes = skipped
	return s, ErrPlaneUnsuitable
}
