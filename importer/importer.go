// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package importer turns externally allocated buffers into scan-out
// framebuffers and tracks the kernel GEM handles behind them.
//
// Several framebuffers may share one GEM handle: the same dma-buf imported
// twice (two layers, two displays, or the next frame before the previous
// one is released) resolves to the same handle. Generic keeps a reference
// count per handle and closes it with the kernel exactly once, when the
// last framebuffer using it is released.
package importer

import (
	"errors"
	"fmt"

	"github.com/gogpu/hwc/buffer"
)

// Errors returned by importers.
var (
	// ErrNoBuffer is returned for a nil descriptor or framebuffer, or a
	// descriptor without a prime fd.
	ErrNoBuffer = errors.New("importer: no buffer")

	// ErrMultiplanarUnsupported is returned when the planes of a buffer
	// live in different dma-bufs.
	ErrMultiplanarUnsupported = errors.New("importer: planes in separate dma-bufs are not supported")

	// ErrModifiersUnsupported is returned when a buffer carries a format
	// modifier the device cannot accept.
	ErrModifiersUnsupported = errors.New("importer: format modifiers not supported by device")

	// ErrUnknownHandle is returned when releasing a GEM handle that has no
	// reference count.
	ErrUnknownHandle = errors.New("importer: unknown gem handle")
)

// ImportError reports a dma-buf fd the kernel refused to import.
type ImportError struct {
	Fd  int
	Err error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("importer: import prime fd %d: %v", e.Fd, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Device is the kernel surface an importer needs. *drm.Device implements it.
type Device interface {
	Cap(capability uint64) (uint64, error)
	PrimeFDToHandle(fd int) (uint32, error)
	CloseHandle(handle uint32) error
	AddFB2(desc *buffer.Descriptor, handles [buffer.MaxPlanes]uint32, withModifiers bool) (uint32, error)
	RemoveFB(fbID uint32) error
}

// Framebuffer is the result of an import: the GEM handles of each plane and
// the framebuffer ID to put on a plane.
type Framebuffer struct {
	GemHandles [buffer.MaxPlanes]uint32
	FbID       uint32
	Desc       buffer.Descriptor
}

// Importer imports buffers for scan-out. Implementations are safe for
// concurrent use.
type Importer interface {
	// ImportBuffer creates a framebuffer for desc.
	ImportBuffer(desc *buffer.Descriptor) (*Framebuffer, error)

	// ImportHandle describes h and imports the result.
	ImportHandle(h buffer.Handle) (*Framebuffer, error)

	// ReleaseBuffer destroys fb and drops its handle references.
	ReleaseBuffer(fb *Framebuffer) error
}
