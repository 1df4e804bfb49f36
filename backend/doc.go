// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package backend decides, for every frame, which layers a display scans
// out with hardware planes and which the client composes on the GPU.
//
// # Backends
//
// A Backend is a hardware policy: a predicate saying which layers planes
// cannot handle, and the provisioning stages that assign planes to the
// rest. Three are built in:
//
//   - "generic": hardware without quirks
//   - "client": every layer composed by the client
//   - "rcar-du": Renesas R-Car DU, no scaling and no ABGR8888 on planes
//
// # Backend Selection
//
// Backends are registered explicitly on a Manager at startup and picked
// per display, by an override name or else the kernel driver name:
//
//	m := backend.NewManager().RegisterDefaults()
//	b, err := m.ForDisplay(0, "rcar-du", "")
//	if err != nil {
//		log.Fatal(err)
//	}
//	v := b.ValidateDisplay(display)
//
// Unknown names fall back to "generic", or to "client" for drivers known
// to need it.
//
// # Validation
//
// Validate computes the client range: the smallest contiguous span of
// z-ordered layers that must go to the client, grown if needed so the
// remaining layers fit the planes, and positioned to minimize GPU work.
// The resulting plan is test-committed; a rejected plan falls back to
// client composition of the whole frame.
package backend
