// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"math"

	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/layer"
)

// GetClientLayers returns the smallest contiguous range of z indices
// covering every layer b says the client must compose. The range is
// (-1, 0) when there is none.
func GetClientLayers(d Display, b Backend, z layer.ZMap) (start, size int) {
	start = -1
	for i, l := range z {
		if b.IsClientLayer(d, l) {
			if start < 0 {
				start = i
			}
			size = i - start + 1
		}
	}
	return start, size
}

// Validate partitions the layers of d between planes and the client using
// b's predicate.
//
// The client range is the smallest contiguous span of layers the planes
// cannot take. When more layers remain than planes, the range grows to
// absorb the surplus, sliding over the positions that keep it contiguous
// and picking the one with the least GPU work. Unless every layer ends up
// on the client, the result is test-committed; a rejected plan falls back
// to client composition of the whole frame.
func Validate(d Display, b Backend) Validation {
	layers := d.Layers()
	n := len(layers)

	availPlanes := len(d.PrimaryPlanes()) + len(d.OverlayPlanes())
	// One plane is kept for the client target when not every layer fits.
	if availPlanes < n {
		availPlanes = max(availPlanes-1, 0)
	}

	z := layer.NewZMap(layers)
	totalPixOps := z.PixOps(0, n)
	var gpuPixOps uint64

	start, size := -1, 0
	stats := d.TotalStats()

	if d.Flattener().ShouldFlattenOnClient() {
		start, size = 0, n
		z.MarkValidated(start, size)
	} else {
		start, size = GetClientLayers(d, b, z)

		if extra := (n - size) - availPlanes; extra > 0 {
			first, steps := 0, 0
			if size != 0 {
				prepend := min(start, extra)
				appendable := min(n-(start+size), extra)
				first = start - prepend
				size += extra
				steps = 1 + min(appendable, prepend, n-(first+size))
			} else {
				size = extra
				steps = 1 + n - extra
			}

			gpuPixOps = math.MaxUint64
			for i := range steps {
				if po := z.PixOps(first+i, size); po < gpuPixOps {
					gpuPixOps = po
					start = first + i
				}
			}
		}

		z.MarkValidated(start, size)

		testingNeeded := !(start == 0 && size == n)
		if testingNeeded {
			if err := d.CreateComposition(true); err != nil {
				hwc.Logger().Warn("backend: test commit rejected, composing frame on client",
					"backend", b.Name(), "client_start", start, "client_size", size, "err", err)
				stats.FailedKMSValidate++
				gpuPixOps = totalPixOps
				start, size = 0, n
				z.MarkValidated(start, size)
			}
		}
	}

	stats.FramesFlattened = d.Flattener().FlattenedFrames()
	stats.GPUPixOps += gpuPixOps
	stats.TotalPixOps += totalPixOps

	hwc.Logger().Debug("backend: validated display", "backend", b.Name(),
		"layers", n, "client_start", start, "client_size", size)

	return Validation{ClientLayers: size}
}
