// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package importer

import (
	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/buffer"
)

// Buffer holds the framebuffer a layer currently scans out from.
//
// Import takes the new buffer before letting go of the old one, so a
// buffer re-submitted frame after frame keeps its GEM handle open instead
// of closing and reopening it. The zero value holds nothing.
type Buffer struct {
	imp Importer
	fb  *Framebuffer
}

// Import replaces the held framebuffer with an import of h. On failure the
// previous framebuffer is kept.
func (b *Buffer) Import(h buffer.Handle, imp Importer) error {
	fb, err := imp.ImportHandle(h)
	if err != nil {
		return err
	}
	if err := b.Clear(); err != nil {
		hwc.Logger().Warn("importer: release previous buffer failed", "err", err)
	}
	b.imp, b.fb = imp, fb
	return nil
}

// Clear releases the held framebuffer, if any.
func (b *Buffer) Clear() error {
	if b.fb == nil {
		return nil
	}
	fb, imp := b.fb, b.imp
	b.fb, b.imp = nil, nil
	return imp.ReleaseBuffer(fb)
}

// Framebuffer returns the held framebuffer, or nil.
func (b *Buffer) Framebuffer() *Framebuffer { return b.fb }

// Valid reports whether a framebuffer is held.
func (b *Buffer) Valid() bool { return b.fb != nil }
