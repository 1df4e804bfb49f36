// Package hwc plans hardware composition for DRM displays.
//
// # Overview
//
// Every frame a display presents an ordered list of layers. hwc decides
// which of them are scanned out directly by hardware planes and which are
// composited by the client (GPU) into a single client target buffer, then
// commits that plan through the kernel's atomic modesetting interface.
//
// # Architecture
//
// The work is split across sub-packages, leaves first:
//   - buffer: buffer descriptors, DRM fourcc formats, descriptor getters
//   - layer: layers and the normalized z-order map
//   - drm: planes, CRTCs and the kernel device
//   - importer: reference-counted GEM handle import and release
//   - planner: the staged plane provisioning pipeline
//   - compositor: compositions, test-only and real commits, flattening
//   - backend: the composition validator and per-hardware policies
//   - display: per-display state tying everything together
//   - config: YAML configuration
//
// The hwcsim command runs configured scenarios against a simulated KMS
// device and reports how each frame was planned.
//
// # Logging
//
// hwc is silent by default. Call [SetLogger] to receive structured logs
// from every sub-package.
package hwc

// Version is the current version of the module.
const Version = "0.1.0"
