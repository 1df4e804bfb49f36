// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package display

import (
	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/compositor"
	"github.com/gogpu/hwc/layer"
)

// stack returns the layers that go to planes, bottom to top: every device
// layer, and the client target in place of the lowest client layer.
func (d *Display) stack() []*layer.Layer {
	z := layer.NewZMap(d.sortedLayers())
	out := make([]*layer.Layer, 0, len(z)+1)
	clientPlaced := false
	for _, l := range z {
		switch l.ValidatedType {
		case layer.CompositionDevice:
			out = append(out, l)
		case layer.CompositionClient:
			if !clientPlaced {
				out = append(out, d.clientTarget)
				clientPlaced = true
			}
		}
	}
	return out
}

// createComposition builds the composition for the validated layer types
// and test-commits or applies it. Callers hold d.mu.
func (d *Display) createComposition(test bool) error {
	comp := d.compositor.NewComposition(d.crtc)
	for _, l := range d.stack() {
		if err := comp.AddLayer(l, d.imp); err != nil {
			hwc.Logger().Warn("display: failed to import layer", "display", d.id, "layer", l.ID, "err", err)
			d.release(comp)
			return err
		}
	}
	if err := comp.Plan(d.planner, d.primary, d.overlay); err != nil {
		hwc.Logger().Warn("display: plane provisioning failed", "display", d.id, "err", err)
		d.release(comp)
		return err
	}

	if test {
		err := d.compositor.TestComposition(comp)
		d.release(comp)
		return err
	}
	return d.compositor.ApplyComposition(comp)
}

func (d *Display) release(comp *compositor.Composition) {
	if err := comp.Release(); err != nil {
		hwc.Logger().Error("display: release composition", "display", d.id, "err", err)
	}
}
