// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package drm

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	ioctlBase = 'd'

	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | ioctlBase<<8 | nr
}

func iowr(nr, size uintptr) uintptr { return ioc(iocRead|iocWrite, nr, size) }
func iow(nr, size uintptr) uintptr  { return ioc(iocWrite, nr, size) }

// Kernel ABI structs (drm.h, drm_mode.h).
type sysVersion struct {
	major, minor, patch int32
	_                   int32
	nameLen             uint64
	name                uintptr
	dateLen             uint64
	date                uintptr
	descLen             uint64
	desc                uintptr
}

type sysGemClose struct {
	handle uint32
	_      uint32
}

type sysGetCap struct {
	capability uint64
	value      uint64
}

type sysSetClientCap struct {
	capability uint64
	value      uint64
}

type sysPrimeHandle struct {
	handle uint32
	flags  uint32
	fd     int32
}

type sysFBCmd2 struct {
	fbID        uint32
	width       uint32
	height      uint32
	pixelFormat uint32
	flags       uint32
	handles     [4]uint32
	pitches     [4]uint32
	offsets     [4]uint32
	modifiers   [4]uint64
}

type sysAtomic struct {
	flags         uint32
	countObjs     uint32
	objsPtr       uint64
	countPropsPtr uint64
	propsPtr      uint64
	valuesPtr     uint64
	reserved      uint64
	userData      uint64
}

var (
	ioctlVersion         = iowr(0x00, unsafe.Sizeof(sysVersion{}))
	ioctlGemClose        = iow(0x09, unsafe.Sizeof(sysGemClose{}))
	ioctlGetCap          = iowr(0x0C, unsafe.Sizeof(sysGetCap{}))
	ioctlSetClientCap    = iow(0x0D, unsafe.Sizeof(sysSetClientCap{}))
	ioctlPrimeFDToHandle = iowr(0x2E, unsafe.Sizeof(sysPrimeHandle{}))
	ioctlModeRmFB        = iowr(0xAF, unsafe.Sizeof(uint32(0)))
	ioctlModeAddFB2      = iowr(0xB8, unsafe.Sizeof(sysFBCmd2{}))
	ioctlModeAtomic      = iowr(0xBC, unsafe.Sizeof(sysAtomic{}))
)

// ioctl issues request on fd, restarting on EINTR and EAGAIN the way
// libdrm's drmIoctl does.
func ioctl(fd int, request uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), request, uintptr(arg))
		switch errno {
		case 0:
			return nil
		case unix.EINTR, unix.EAGAIN:
			continue
		default:
			return errno
		}
	}
}
