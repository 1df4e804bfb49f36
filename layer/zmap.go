// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package layer

import "slices"

// ZMap is the frame's layers sorted by ascending z-order. A layer's index
// in the slice is its normalized z: 0 is the bottom-most layer and indices
// are contiguous.
type ZMap []*Layer

// NewZMap builds the normalized map for layers. Layers sharing a z-order
// are ordered by ID so the result is deterministic.
func NewZMap(layers []*Layer) ZMap {
	z := make(ZMap, len(layers))
	copy(z, layers)
	slices.SortFunc(z, func(a, b *Layer) int {
		if a.ZOrder != b.ZOrder {
			if a.ZOrder < b.ZOrder {
				return -1
			}
			return 1
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return z
}

// PixOps sums the workload of the layers in [first, first+size). The range
// is clamped to the map.
func (z ZMap) PixOps(first, size int) uint64 {
	if first < 0 {
		size += first
		first = 0
	}
	end := min(first+size, len(z))
	var total uint64
	for i := first; i < end; i++ {
		total += z[i].PixOps()
	}
	return total
}

// MarkValidated assigns CompositionClient to the layers in
// [clientFirst, clientFirst+clientSize) and CompositionDevice to the rest.
func (z ZMap) MarkValidated(clientFirst, clientSize int) {
	for i, l := range z {
		if clientSize > 0 && i >= clientFirst && i < clientFirst+clientSize {
			l.ValidatedType = CompositionClient
		} else {
			l.ValidatedType = CompositionDevice
		}
	}
}
