// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package planner

import (
	"errors"
	"fmt"

	"github.com/gogpu/hwc"
)

// ProtectedStage dedicates a plane to every protected layer. Protected
// content must never reach the GPU, so a protected layer that gets no
// plane is dropped from the frame. The stage never fails.
type ProtectedStage struct{}

// Provision implements Stage.
func (ProtectedStage) Provision(s State) (State, error) {
	rest := make([]Candidate, 0, len(s.Layers))
	for _, c := range s.Layers {
		if !c.Protected() {
			rest = append(rest, c)
			continue
		}
		var err error
		s, err = Emplace(s, c)
		if err != nil {
			hwc.Logger().Error("planner: failed to dedicate protected layer, dropping it",
				"layer", c.Index, "err", err)
		}
	}
	s.Layers = rest
	return s, nil
}

// GreedyStage places the remaining layers in index order until planes run
// out. A layer no free plane can scan out is dropped. The stage never
// fails.
type GreedyStage struct{}

// Provision implements Stage.
func (GreedyStage) Provision(s State) (State, error) {
	for len(s.Layers) > 0 {
		c := s.Layers[0]
		var err error
		s, err = Emplace(s, c)
		if errors.Is(err, ErrNoPlanesLeft) {
			break
		}
		if err != nil {
			hwc.Logger().Warn("planner: failed to emplace layer, dropping it", "layer", c.Index, "err", err)
		}
		s.Layers = s.Layers[1:]
	}
	return s, nil
}

// UsageStage places only layers whose buffer usage carries Mask, as
// hardware that can scan out buffers from one allocator only requires.
// Every other layer is consumed without a plane. The stage fails with
// ErrNothingPlaced when no layer was placed, which rejects the plan.
type UsageStage struct {
	Mask uint64
}

// Provision implements Stage.
func (st UsageStage) Provision(s State) (State, error) {
	placed := 0
	for _, c := range s.Layers {
		if c.Desc == nil || c.Desc.Usage&st.Mask == 0 {
			hwc.Logger().Debug("planner: layer usage not scannable, skipping", "layer", c.Index)
			continue
		}
		var err error
		s, err = Emplace(s, c)
		if errors.Is(err, ErrNoPlanesLeft) {
			break
		}
		if err != nil {
			hwc.Logger().Warn("planner: failed to emplace layer, dropping it", "layer", c.Index, "err", err)
			continue
		}
		placed++
	}
	s.Layers = nil
	if placed == 0 {
		return s, fmt.Errorf("%w: usage %#x", ErrNothingPlaced, st.Mask)
	}
	return s, nil
}

// MinimumStage fails when the plan so far holds fewer than Min layer
// planes, for hardware that cannot light a CRTC with too few planes.
type MinimumStage struct {
	Min int
}

// Provision implements Stage.
func (st MinimumStage) Provision(s State) (State, error) {
	n := 0
	for _, cp := range s.Composition {
		if cp.Type == PlaneLayer {
			n++
		}
	}
	if n < st.Min {
		return s, fmt.Errorf("%w: %d of %d required planes", ErrNothingPlaced, n, st.Min)
	}
	return s, nil
}
