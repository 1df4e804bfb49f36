// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package drm

// Atomic commit flags (DRM_MODE_ATOMIC_*).
const (
	AtomicTestOnly     uint32 = 0x0100
	AtomicNonBlock     uint32 = 0x0200
	AtomicAllowModeset uint32 = 0x0400
	PageFlipEvent      uint32 = 0x01
)

type atomicProp struct {
	prop  uint32
	value uint64
}

// AtomicRequest accumulates property updates for one atomic commit.
// Setting the same property of an object twice keeps the last value.
type AtomicRequest struct {
	order []uint32
	props map[uint32][]atomicProp
}

// NewAtomicRequest returns an empty request.
func NewAtomicRequest() *AtomicRequest {
	return &AtomicRequest{props: make(map[uint32][]atomicProp)}
}

// AddProperty sets property prop of object obj to value.
func (r *AtomicRequest) AddProperty(obj, prop uint32, value uint64) {
	list, seen := r.props[obj]
	if !seen {
		r.order = append(r.order, obj)
	}
	for i := range list {
		if list[i].prop == prop {
			list[i].value = value
			return
		}
	}
	r.props[obj] = append(list, atomicProp{prop: prop, value: value})
}

// Len returns the number of property updates in the request.
func (r *AtomicRequest) Len() int {
	n := 0
	for _, list := range r.props {
		n += len(list)
	}
	return n
}

// Value returns the value set for prop on obj.
func (r *AtomicRequest) Value(obj, prop uint32) (uint64, bool) {
	for _, p := range r.props[obj] {
		if p.prop == prop {
			return p.value, true
		}
	}
	return 0, false
}

// Objects returns the object IDs in the order they were first touched.
func (r *AtomicRequest) Objects() []uint32 {
	return append([]uint32(nil), r.order...)
}

// flatten produces the parallel arrays the atomic ioctl consumes: one
// entry per object with its property count, then properties and values
// grouped by object.
func (r *AtomicRequest) flatten() (objs, counts, props []uint32, values []uint64) {
	objs = make([]uint32, 0, len(r.order))
	counts = make([]uint32, 0, len(r.order))
	for _, obj := range r.order {
		list := r.props[obj]
		objs = append(objs, obj)
		counts = append(counts, uint32(len(list)))
		for _, p := range list {
			props = append(props, p.prop)
			values = append(values, p.value)
		}
	}
	return objs, counts, props, values
}
