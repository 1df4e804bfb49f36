// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/internal/kmssim"
)

func TestBufferReimportKeepsHandleOpen(t *testing.T) {
	dev := kmssim.New("test")
	alloc := kmssim.NewAllocator()
	imp := NewGeneric(dev, buffer.NativeGetter{})
	nh := alloc.Alloc(16, 16, buffer.HalFormatRGBA8888, 0)

	var b Buffer
	assert.False(t, b.Valid())
	require.NoError(t, b.Import(nh, imp))
	h := b.Framebuffer().GemHandles[0]

	for range 5 {
		require.NoError(t, b.Import(nh, imp))
		assert.Equal(t, h, b.Framebuffer().GemHandles[0])
		assert.Equal(t, 1, imp.Refcount(h))
	}
	assert.Zero(t, dev.CloseCount(h), "handle reopened between frames")

	require.NoError(t, b.Clear())
	assert.False(t, b.Valid())
	assert.Equal(t, 1, dev.CloseCount(h))
	require.NoError(t, b.Clear())
}

func TestBufferImportFailureKeepsPrevious(t *testing.T) {
	dev := kmssim.New("test")
	alloc := kmssim.NewAllocator()
	imp := NewGeneric(dev, buffer.NativeGetter{})

	var b Buffer
	require.NoError(t, b.Import(alloc.Alloc(16, 16, buffer.HalFormatRGBA8888, 0), imp))
	prev := b.Framebuffer()

	bad := alloc.Alloc(16, 16, buffer.HalFormatRGBA8888, 0)
	dev.FailPrime(bad.Fds[0], true)
	require.Error(t, b.Import(bad, imp))
	assert.Same(t, prev, b.Framebuffer())

	next := alloc.Alloc(16, 16, buffer.HalFormatRGBA8888, 0)
	require.NoError(t, b.Import(next, imp))
	assert.Equal(t, 1, dev.OpenHandles())
	require.NoError(t, b.Clear())
	assert.Zero(t, dev.OpenHandles())
}
