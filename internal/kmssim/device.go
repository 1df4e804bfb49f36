// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package kmssim is an in-memory stand-in for a DRM device. It follows the
// kernel's bookkeeping closely enough to catch leaked or double-closed GEM
// handles, and lets tests inject failures into every call.
package kmssim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/drm"
)

// Errors mimicking the kernel's errno results.
var (
	ErrInvalid  = errors.New("kmssim: invalid argument")
	ErrNotFound = errors.New("kmssim: no such object")
	ErrRejected = errors.New("kmssim: configuration rejected")
)

// Commit is a recorded atomic commit.
type Commit struct {
	Flags   uint32
	Request *drm.AtomicRequest
}

// TestOnly reports whether the commit was a test-only check.
func (c Commit) TestOnly() bool { return c.Flags&drm.AtomicTestOnly != 0 }

type framebuffer struct {
	handles [buffer.MaxPlanes]uint32
	format  uint32
}

// Device is a simulated DRM device. It is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	driver    string
	modifiers bool

	nextHandle uint32
	nextFB     uint32
	byFd       map[int]uint32 // dma-buf fd -> open handle
	open       map[uint32]int // open handle -> fd
	closes     map[uint32]int
	badCloses  int
	fbs        map[uint32]framebuffer
	commits    []Commit

	failPrime       map[int]bool
	failAddFB       bool
	failTestCommits bool
	check           func(req *drm.AtomicRequest, flags uint32) error
}

// Option configures a Device.
type Option func(*Device)

// WithModifiers makes the device report ADDFB2 modifier support.
func WithModifiers() Option {
	return func(d *Device) { d.modifiers = true }
}

// New returns a device reporting driver as its kernel driver name.
func New(driver string, opts ...Option) *Device {
	d := &Device{
		driver:     driver,
		nextHandle: 1,
		nextFB:     100,
		byFd:       make(map[int]uint32),
		open:       make(map[uint32]int),
		closes:     make(map[uint32]int),
		fbs:        make(map[uint32]framebuffer),
		failPrime:  make(map[int]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DriverName returns the simulated driver name.
func (d *Device) DriverName() (string, error) { return d.driver, nil }

// Cap reports device capabilities.
func (d *Device) Cap(capability uint64) (uint64, error) {
	if capability == drm.CapAddFB2Modifiers {
		if d.modifiers {
			return 1, nil
		}
		return 0, nil
	}
	return 0, ErrInvalid
}

// PrimeFDToHandle returns the open handle for fd, creating one if needed.
func (d *Device) PrimeFDToHandle(fd int) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if fd <= 0 || d.failPrime[fd] {
		return 0, fmt.Errorf("%w: prime fd %d", ErrInvalid, fd)
	}
	if h, ok := d.byFd[fd]; ok {
		return h, nil
	}
	h := d.nextHandle
	d.nextHandle++
	d.byFd[fd] = h
	d.open[h] = fd
	return h, nil
}

// CloseHandle closes an open handle. Closing a handle that is not open is
// an error and is counted by BadCloses.
func (d *Device) CloseHandle(handle uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fd, ok := d.open[handle]
	if !ok {
		d.badCloses++
		return fmt.Errorf("%w: gem handle %d", ErrNotFound, handle)
	}
	delete(d.open, handle)
	delete(d.byFd, fd)
	d.closes[handle]++
	return nil
}

// AddFB2 creates a framebuffer; every non-zero handle must be open.
func (d *Device) AddFB2(desc *buffer.Descriptor, handles [buffer.MaxPlanes]uint32, withModifiers bool) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failAddFB {
		return 0, fmt.Errorf("%w: addfb2", ErrInvalid)
	}
	if withModifiers && desc.Modifiers[0] != 0 && !d.modifiers {
		return 0, fmt.Errorf("%w: modifiers unsupported", ErrInvalid)
	}
	for _, h := range handles {
		if h == 0 {
			continue
		}
		if _, ok := d.open[h]; !ok {
			return 0, fmt.Errorf("%w: gem handle %d", ErrNotFound, h)
		}
	}
	id := d.nextFB
	d.nextFB++
	d.fbs[id] = framebuffer{handles: handles, format: desc.Format}
	return id, nil
}

// RemoveFB destroys a framebuffer.
func (d *Device) RemoveFB(fbID uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.fbs[fbID]; !ok {
		return fmt.Errorf("%w: framebuffer %d", ErrNotFound, fbID)
	}
	delete(d.fbs, fbID)
	return nil
}

// AtomicCommit records the commit and applies the injected checks.
func (d *Device) AtomicCommit(req *drm.AtomicRequest, flags uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.commits = append(d.commits, Commit{Flags: flags, Request: req})
	if flags&drm.AtomicTestOnly != 0 && d.failTestCommits {
		return ErrRejected
	}
	if d.check != nil {
		return d.check(req, flags)
	}
	return nil
}

// FailPrime makes importing fd fail.
func (d *Device) FailPrime(fd int, fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failPrime[fd] = fail
}

// FailAddFB makes framebuffer creation fail.
func (d *Device) FailAddFB(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAddFB = fail
}

// FailTestCommits makes every test-only commit fail.
func (d *Device) FailTestCommits(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failTestCommits = fail
}

// SetCommitCheck installs a function every commit is checked with.
func (d *Device) SetCommitCheck(check func(req *drm.AtomicRequest, flags uint32) error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.check = check
}

// OpenHandles returns the number of open GEM handles.
func (d *Device) OpenHandles() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.open)
}

// HandleOpen reports whether handle is open.
func (d *Device) HandleOpen(handle uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.open[handle]
	return ok
}

// CloseCount returns how many times handle was closed.
func (d *Device) CloseCount(handle uint32) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes[handle]
}

// BadCloses returns the number of closes of handles that were not open.
func (d *Device) BadCloses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.badCloses
}

// Framebuffers returns the number of live framebuffers.
func (d *Device) Framebuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.fbs)
}

// Commits returns a copy of the recorded commits.
func (d *Device) Commits() []Commit {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Commit(nil), d.commits...)
}

// CountCommits returns the number of test-only and real commits.
func (d *Device) CountCommits() (tested, applied int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.commits {
		if c.TestOnly() {
			tested++
		} else {
			applied++
		}
	}
	return tested, applied
}
