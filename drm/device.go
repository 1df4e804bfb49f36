// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package drm is the thin layer over the kernel's DRM/KMS interface that
// composition needs: planes and CRTCs as data, and a Device issuing the
// ioctls for buffer import, framebuffers and atomic commits.
package drm

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/buffer"
)

// Capabilities (DRM_CAP_*, DRM_CLIENT_CAP_*).
const (
	CapAddFB2Modifiers       uint64 = 0x10
	ClientCapUniversalPlanes uint64 = 2
	ClientCapAtomic          uint64 = 3
)

// fbModifiers is DRM_MODE_FB_MODIFIERS.
const fbModifiers = 1 << 1

// ErrClosed is returned by calls on a closed Device.
var ErrClosed = errors.New("drm: device closed")

// Device is an open DRM card node.
type Device struct {
	fd   int
	path string
}

// Open opens the card node at path and enables universal planes and
// atomic modesetting.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("drm: open %s: %w", path, err)
	}
	d := &Device{fd: fd, path: path}

	for _, c := range []uint64{ClientCapUniversalPlanes, ClientCapAtomic} {
		if err := d.SetClientCap(c, 1); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("drm: %s: client cap %d: %w", path, c, err)
		}
	}

	hwc.Logger().Info("drm: device opened", "path", path)
	return d, nil
}

// Path returns the node the device was opened from.
func (d *Device) Path() string { return d.path }

// Close closes the card node.
func (d *Device) Close() error {
	if d.fd < 0 {
		return ErrClosed
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

// DriverName returns the kernel driver name (e.g. "rcar-du").
func (d *Device) DriverName() (string, error) {
	if d.fd < 0 {
		return "", ErrClosed
	}
	var v sysVersion
	if err := ioctl(d.fd, ioctlVersion, unsafe.Pointer(&v)); err != nil {
		return "", fmt.Errorf("drm: version: %w", err)
	}
	if v.nameLen == 0 {
		return "", nil
	}
	name := make([]byte, v.nameLen)
	v = sysVersion{nameLen: uint64(len(name)), name: uintptr(unsafe.Pointer(&name[0]))}
	err := ioctl(d.fd, ioctlVersion, unsafe.Pointer(&v))
	runtime.KeepAlive(name)
	if err != nil {
		return "", fmt.Errorf("drm: version: %w", err)
	}
	return string(name[:v.nameLen]), nil
}

// Cap queries a device capability.
func (d *Device) Cap(capability uint64) (uint64, error) {
	if d.fd < 0 {
		return 0, ErrClosed
	}
	c := sysGetCap{capability: capability}
	if err := ioctl(d.fd, ioctlGetCap, unsafe.Pointer(&c)); err != nil {
		return 0, err
	}
	return c.value, nil
}

// SetClientCap enables a client capability.
func (d *Device) SetClientCap(capability, value uint64) error {
	if d.fd < 0 {
		return ErrClosed
	}
	c := sysSetClientCap{capability: capability, value: value}
	return ioctl(d.fd, ioctlSetClientCap, unsafe.Pointer(&c))
}

// PrimeFDToHandle resolves a dma-buf fd to a GEM handle. Importing the
// same dma-buf twice yields the same handle.
func (d *Device) PrimeFDToHandle(fd int) (uint32, error) {
	if d.fd < 0 {
		return 0, ErrClosed
	}
	p := sysPrimeHandle{fd: int32(fd)}
	if err := ioctl(d.fd, ioctlPrimeFDToHandle, unsafe.Pointer(&p)); err != nil {
		return 0, err
	}
	return p.handle, nil
}

// CloseHandle releases a GEM handle.
func (d *Device) CloseHandle(handle uint32) error {
	if d.fd < 0 {
		return ErrClosed
	}
	c := sysGemClose{handle: handle}
	return ioctl(d.fd, ioctlGemClose, unsafe.Pointer(&c))
}

// AddFB2 creates a framebuffer for desc backed by handles. withModifiers
// selects the modifier-aware variant; the modifier flag is set only when
// the first plane carries a modifier.
func (d *Device) AddFB2(desc *buffer.Descriptor, handles [buffer.MaxPlanes]uint32, withModifiers bool) (uint32, error) {
	if d.fd < 0 {
		return 0, ErrClosed
	}
	cmd := sysFBCmd2{
		width:       desc.Width,
		height:      desc.Height,
		pixelFormat: desc.Format,
		handles:     handles,
		pitches:     desc.Pitches,
		offsets:     desc.Offsets,
	}
	if withModifiers {
		cmd.modifiers = desc.Modifiers
		if desc.Modifiers[0] != 0 {
			cmd.flags = fbModifiers
		}
	}
	if err := ioctl(d.fd, ioctlModeAddFB2, unsafe.Pointer(&cmd)); err != nil {
		return 0, err
	}
	return cmd.fbID, nil
}

// RemoveFB destroys a framebuffer.
func (d *Device) RemoveFB(fbID uint32) error {
	if d.fd < 0 {
		return ErrClosed
	}
	id := fbID
	return ioctl(d.fd, ioctlModeRmFB, unsafe.Pointer(&id))
}

// AtomicCommit submits req. With AtomicTestOnly in flags the kernel only
// checks the configuration.
func (d *Device) AtomicCommit(req *AtomicRequest, flags uint32) error {
	if d.fd < 0 {
		return ErrClosed
	}
	objs, counts, props, values := req.flatten()
	a := sysAtomic{flags: flags, countObjs: uint32(len(objs))}
	if len(objs) > 0 {
		a.objsPtr = uint64(uintptr(unsafe.Pointer(&objs[0])))
		a.countPropsPtr = uint64(uintptr(unsafe.Pointer(&counts[0])))
	}
	if len(props) > 0 {
		a.propsPtr = uint64(uintptr(unsafe.Pointer(&props[0])))
		a.valuesPtr = uint64(uintptr(unsafe.Pointer(&values[0])))
	}
	err := ioctl(d.fd, ioctlModeAtomic, unsafe.Pointer(&a))
	runtime.KeepAlive(objs)
	runtime.KeepAlive(counts)
	runtime.KeepAlive(props)
	runtime.KeepAlive(values)
	if err != nil {
		return fmt.Errorf("drm: atomic commit (flags %#x): %w", flags, err)
	}
	return nil
}
