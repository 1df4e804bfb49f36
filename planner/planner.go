// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package planner assigns the layers of a frame to hardware planes.
//
// Provisioning folds a State through an ordered list of stages. Each stage
// takes the layers still waiting for a plane, the planes still free and
// the plan built so far, and returns them updated. Layers no stage places
// are simply absent from the plan.
package planner

import (
	"errors"
	"fmt"

	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/drm"
	"github.com/gogpu/hwc/layer"
)

// Errors returned by provisioning.
var (
	// ErrNoUsablePlanes is returned when no plane can feed the CRTC.
	ErrNoUsablePlanes = errors.New("planner: no usable planes")

	// ErrNoPlanesLeft is returned by Emplace when the plane pool is empty.
	ErrNoPlanesLeft = errors.New("planner: no planes left")

	// ErrPlaneUnsuitable is returned by Emplace when planes remain but none
	// can scan out the layer.
	ErrPlaneUnsuitable = errors.New("planner: no suitable plane for layer")

	// ErrNothingPlaced is returned by stages that require placements.
	ErrNothingPlaced = errors.New("planner: stage placed no layers")
)

// CompositionPlaneType says what a plane does in a commit.
type CompositionPlaneType int

const (
	// PlaneLayer scans out the source layers.
	PlaneLayer CompositionPlaneType = iota
	// PlaneDisable turns the plane off.
	PlaneDisable
)

// String returns the type name.
func (t CompositionPlaneType) String() string {
	if t == PlaneDisable {
		return "disable"
	}
	return "layer"
}

// CompositionPlane is one plane of a plan.
type CompositionPlane struct {
	Type         CompositionPlaneType
	Plane        *drm.Plane
	Crtc         *drm.Crtc
	SourceLayers []int
}

// Candidate is a layer waiting for a plane. Index is the layer's position
// in the frame's z-map; Desc may be nil when the buffer was not described.
type Candidate struct {
	Index int
	Layer *layer.Layer
	Desc  *buffer.Descriptor
}

// Protected reports whether the candidate carries protected content.
func (c Candidate) Protected() bool {
	if c.Layer != nil && c.Layer.Protected {
		return true
	}
	return c.Desc != nil && c.Desc.Protected()
}

// State is the value folded through the stages.
type State struct {
	// Layers waiting for a plane, in ascending index order.
	Layers []Candidate
	// Planes still free, in preference order.
	Planes      []*drm.Plane
	Composition []CompositionPlane
	Crtc        *drm.Crtc
}

// Stage is one step of provisioning.
type Stage interface {
	Provision(s State) (State, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(s State) (State, error)

// Provision calls f(s).
func (f StageFunc) Provision(s State) (State, error) { return f(s) }

// Planner runs a fixed list of stages.
type Planner struct {
	stages []Stage
}

// New returns a planner running stages in order.
func New(stages ...Stage) *Planner {
	return &Planner{stages: append([]Stage(nil), stages...)}
}

// Default returns the planner most hardware uses: protected layers first,
// then everything else greedily.
func Default() *Planner {
	return New(ProtectedStage{}, GreedyStage{})
}

// Stages returns the planner's stages.
func (p *Planner) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// UsablePlanes returns the primary then overlay planes that can feed crtc.
func UsablePlanes(crtc *drm.Crtc, primary, overlay []*drm.Plane) []*drm.Plane {
	planes := make([]*drm.Plane, 0, len(primary)+len(overlay))
	for _, group := range [][]*drm.Plane{primary, overlay} {
		for _, p := range group {
			if p.CrtcSupported(crtc) {
				planes = append(planes, p)
			}
		}
	}
	return planes
}

// ProvisionPlanes builds a plan for layers on crtc. A stage error aborts
// provisioning and is returned with no plan.
func (p *Planner) ProvisionPlanes(layers []Candidate, crtc *drm.Crtc, primary, overlay []*drm.Plane) ([]CompositionPlane, error) {
	planes := UsablePlanes(crtc, primary, overlay)
	if len(planes) == 0 {
		display := -1
		if crtc != nil {
			display = crtc.Display
		}
		return nil, fmt.Errorf("%w on display %d", ErrNoUsablePlanes, display)
	}

	s := State{
		Layers: append([]Candidate(nil), layers...),
		Planes: planes,
		Crtc:   crtc,
	}
	for _, stage := range p.stages {
		var err error
		s, err = stage.Provision(s)
		if err != nil {
			return nil, fmt.Errorf("planner: provision stage %T: %w", stage, err)
		}
	}
	return s.Composition, nil
}
