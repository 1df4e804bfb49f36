// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package importer

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/internal/kmssim"
)

func testDesc(fd int) *buffer.Descriptor {
	d := &buffer.Descriptor{
		Width:     64,
		Height:    32,
		Format:    buffer.FormatARGB8888,
		HalFormat: buffer.HalFormatRGBA8888,
	}
	d.Pitches[0] = 256
	d.PrimeFds[0] = fd
	return d
}

func TestGenericImportRelease(t *testing.T) {
	dev := kmssim.New("test")
	imp := NewGeneric(dev, nil)

	fb, err := imp.ImportBuffer(testDesc(10))
	require.NoError(t, err)
	require.NotZero(t, fb.FbID)
	h := fb.GemHandles[0]
	require.NotZero(t, h)
	assert.Equal(t, 1, imp.Refcount(h))
	assert.Equal(t, 1, dev.Framebuffers())

	require.NoError(t, imp.ReleaseBuffer(fb))
	assert.Equal(t, 0, imp.Refcount(h))
	assert.Equal(t, 0, imp.Len())
	assert.Equal(t, 0, dev.Framebuffers())
	assert.Equal(t, 1, dev.CloseCount(h))
	assert.False(t, dev.HandleOpen(h))
}

// Two planes importing the same fd share one handle with two references.
func TestGenericSameFdSharesHandle(t *testing.T) {
	dev := kmssim.New("test")
	imp := NewGeneric(dev, nil)

	a, err := imp.ImportBuffer(testDesc(10))
	require.NoError(t, err)
	b, err := imp.ImportBuffer(testDesc(10))
	require.NoError(t, err)

	h := a.GemHandles[0]
	assert.Equal(t, h, b.GemHandles[0])
	assert.NotEqual(t, a.FbID, b.FbID)
	assert.Equal(t, 2, imp.Refcount(h))
	assert.Equal(t, 1, imp.Len())
	assert.Equal(t, 1, dev.OpenHandles())

	require.NoError(t, imp.ReleaseBuffer(a))
	assert.Equal(t, 1, imp.Refcount(h))
	assert.True(t, dev.HandleOpen(h), "handle closed while still referenced")

	require.NoError(t, imp.ReleaseBuffer(b))
	assert.Equal(t, 0, imp.Refcount(h))
	assert.Equal(t, 1, dev.CloseCount(h))
	assert.Zero(t, dev.BadCloses())
}

func TestGenericMultiPlaneSameFd(t *testing.T) {
	dev := kmssim.New("test")
	imp := NewGeneric(dev, nil)

	d := testDesc(10)
	d.Format = buffer.FormatYVU420
	d.PrimeFds[1], d.PrimeFds[2] = 10, 10

	fb, err := imp.ImportBuffer(d)
	require.NoError(t, err)
	h := fb.GemHandles[0]
	assert.Equal(t, [buffer.MaxPlanes]uint32{h, h, h, 0}, fb.GemHandles)
	assert.Equal(t, 1, imp.Refcount(h))

	require.NoError(t, imp.ReleaseBuffer(fb))
	assert.Equal(t, 1, dev.CloseCount(h))
	assert.Zero(t, dev.BadCloses())
}

func TestGenericMultiPlaneReleaseKeepsSharedHandle(t *testing.T) {
	dev := kmssim.New("test")
	imp := NewGeneric(dev, nil)

	d := testDesc(10)
	d.Format = buffer.FormatYVU420
	d.PrimeFds[1], d.PrimeFds[2] = 10, 10
	yv12, err := imp.ImportBuffer(d)
	require.NoError(t, err)
	single, err := imp.ImportBuffer(testDesc(10))
	require.NoError(t, err)

	h := single.GemHandles[0]
	require.Equal(t, yv12.GemHandles[0], h)
	require.Equal(t, 2, imp.Refcount(h))

	require.NoError(t, imp.ReleaseBuffer(yv12))
	assert.Equal(t, 1, imp.Refcount(h))
	assert.True(t, dev.HandleOpen(h))
	assert.Zero(t, dev.CloseCount(h))

	require.NoError(t, imp.ReleaseBuffer(single))
	assert.False(t, dev.HandleOpen(h))
	assert.Equal(t, 1, dev.CloseCount(h))
	assert.Zero(t, dev.BadCloses())
}

func TestGenericImportErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(dev *kmssim.Device)
		desc  func() *buffer.Descriptor
		want  error
	}{
		{
			name: "nil descriptor",
			desc: func() *buffer.Descriptor { return nil },
			want: ErrNoBuffer,
		},
		{
			name: "no fd",
			desc: func() *buffer.Descriptor { return testDesc(0) },
			want: ErrNoBuffer,
		},
		{
			name: "separate dma-bufs",
			desc: func() *buffer.Descriptor {
				d := testDesc(10)
				d.PrimeFds[1] = 11
				return d
			},
			want: ErrMultiplanarUnsupported,
		},
		{
			name: "modifier without support",
			desc: func() *buffer.Descriptor {
				d := testDesc(10)
				d.Modifiers[0] = 0x0100000000000001
				d.WithModifiers = true
				return d
			},
			want: ErrModifiersUnsupported,
		},
		{
			name:  "prime import rejected",
			setup: func(dev *kmssim.Device) { dev.FailPrime(10, true) },
			desc:  func() *buffer.Descriptor { return testDesc(10) },
			want:  kmssim.ErrInvalid,
		},
		{
			name:  "addfb rejected",
			setup: func(dev *kmssim.Device) { dev.FailAddFB(true) },
			desc:  func() *buffer.Descriptor { return testDesc(10) },
			want:  kmssim.ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := kmssim.New("test")
			if tt.setup != nil {
				tt.setup(dev)
			}
			imp := NewGeneric(dev, nil)

			fb, err := imp.ImportBuffer(tt.desc())
			require.Error(t, err)
			assert.Nil(t, fb)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, imp.Len())
			assert.Zero(t, dev.OpenHandles(), "handle leaked")
		})
	}
}

func TestGenericPrimeErrorType(t *testing.T) {
	dev := kmssim.New("test")
	dev.FailPrime(12, true)
	imp := NewGeneric(dev, nil)

	_, err := imp.ImportBuffer(testDesc(12))
	var ie *ImportError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 12, ie.Fd)
}

func TestGenericModifiersSupported(t *testing.T) {
	dev := kmssim.New("test", kmssim.WithModifiers())
	imp := NewGeneric(dev, nil)
	require.True(t, imp.SupportsModifiers())

	d := testDesc(10)
	d.Modifiers[0] = 0x0100000000000001
	d.WithModifiers = true
	fb, err := imp.ImportBuffer(d)
	require.NoError(t, err)
	require.NoError(t, imp.ReleaseBuffer(fb))
}

// A failed framebuffer creation must not close a handle that live
// framebuffers still use.
func TestGenericAddFBFailureKeepsSharedHandle(t *testing.T) {
	dev := kmssim.New("test")
	imp := NewGeneric(dev, nil)

	live, err := imp.ImportBuffer(testDesc(10))
	require.NoError(t, err)
	h := live.GemHandles[0]

	dev.FailAddFB(true)
	_, err = imp.ImportBuffer(testDesc(10))
	require.Error(t, err)
	dev.FailAddFB(false)

	assert.True(t, dev.HandleOpen(h))
	assert.Equal(t, 1, imp.Refcount(h))
	assert.Zero(t, dev.CloseCount(h))

	require.NoError(t, imp.ReleaseBuffer(live))
	assert.Equal(t, 1, dev.CloseCount(h))
}

func TestGenericReleaseTwice(t *testing.T) {
	dev := kmssim.New("test")
	imp := NewGeneric(dev, nil)

	fb, err := imp.ImportBuffer(testDesc(10))
	require.NoError(t, err)
	h := fb.GemHandles[0]

	require.NoError(t, imp.ReleaseBuffer(fb))
	require.NoError(t, imp.ReleaseBuffer(fb))
	assert.Equal(t, 1, dev.CloseCount(h))
	assert.Zero(t, dev.BadCloses())
}

func TestGenericReleaseUnknownHandle(t *testing.T) {
	dev := kmssim.New("test")
	imp := NewGeneric(dev, nil)

	fb := &Framebuffer{GemHandles: [buffer.MaxPlanes]uint32{7}}
	err := imp.ReleaseBuffer(fb)
	assert.ErrorIs(t, err, ErrUnknownHandle)
	assert.ErrorIs(t, imp.ReleaseBuffer(nil), ErrNoBuffer)
	assert.Zero(t, dev.BadCloses())
}

func TestGenericImportHandle(t *testing.T) {
	dev := kmssim.New("test")
	alloc := kmssim.NewAllocator()
	imp := NewGeneric(dev, buffer.NativeGetter{})

	nh := alloc.Alloc(32, 32, buffer.HalFormatRGBA8888, 0)
	fb, err := imp.ImportHandle(nh)
	require.NoError(t, err)
	assert.Equal(t, buffer.FormatABGR8888, fb.Desc.Format)
	assert.Equal(t, nh.Fds[0], fb.Desc.PrimeFds[0])
	require.NoError(t, imp.ReleaseBuffer(fb))

	_, err = imp.ImportHandle(nil)
	assert.ErrorIs(t, err, buffer.ErrUnsupportedHandle)

	noGetter := NewGeneric(dev, nil)
	_, err = noGetter.ImportHandle(nh)
	assert.ErrorIs(t, err, buffer.ErrUnsupportedHandle)
}

func TestGenericConcurrent(t *testing.T) {
	dev := kmssim.New("test")
	imp := NewGeneric(dev, nil)

	const workers = 16
	const rounds = 200
	fds := []int{10, 11, 12}

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range rounds {
				fb, err := imp.ImportBuffer(testDesc(fds[(w+i)%len(fds)]))
				if err != nil {
					t.Errorf("ImportBuffer: %v", err)
					return
				}
				if err := imp.ReleaseBuffer(fb); err != nil {
					t.Errorf("ReleaseBuffer: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Zero(t, imp.Len())
	assert.Zero(t, dev.OpenHandles())
	assert.Zero(t, dev.Framebuffers())
	assert.Zero(t, dev.BadCloses(), "a handle was closed twice")
}
