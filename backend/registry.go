// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/hwc"
)

// ErrNoBackends is returned when a Manager has no backend registered.
var ErrNoBackends = errors.New("backend: no backends registered")

// NotFoundError is returned when a backend name resolves to nothing.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("backend: %q not registered", e.Name)
}

// clientDevices are drivers whose planes are not used at all.
var clientDevices = []string{
	"kirin",
	"mediatek-drm",
}

// Manager maps names to backends.
type Manager struct {
	registry *gpucontext.Registry[Backend]
}

// NewManager returns a manager with nothing registered.
func NewManager() *Manager {
	return &Manager{
		registry: gpucontext.NewRegistry[Backend](gpucontext.WithPriority("generic")),
	}
}

// Register adds a backend factory under name, replacing any previous one.
func (m *Manager) Register(name string, factory func() Backend) {
	m.registry.Register(name, factory)
}

// RegisterDefaults registers the generic, client and rcar-du backends.
func (m *Manager) RegisterDefaults() *Manager {
	m.Register("generic", func() Backend { return NewGeneric() })
	m.Register("client", func() Backend { return NewClient() })
	m.Register("rcar-du", func() Backend { return NewRCarDu() })
	return m
}

// Available returns the registered names in sorted order.
func (m *Manager) Available() []string {
	names := m.registry.Available()
	sort.Strings(names)
	return names
}

// ByName returns a new instance of the named backend. Names nothing is
// registered under resolve to "client" for drivers known to need client
// composition and to "generic" otherwise.
func (m *Manager) ByName(name string) (Backend, error) {
	if m.registry.Count() == 0 {
		return nil, ErrNoBackends
	}
	resolved := name
	if !m.registry.Has(resolved) {
		resolved = "generic"
		if slices.Contains(clientDevices, name) {
			resolved = "client"
		}
	}
	b := m.registry.Get(resolved)
	if b == nil {
		return nil, &NotFoundError{Name: resolved}
	}
	return b, nil
}

// ForDisplay picks the backend for a display driven by driverName. A
// non-empty override takes precedence over the driver name.
func (m *Manager) ForDisplay(display int, driverName, override string) (Backend, error) {
	name := driverName
	if override != "" {
		name = override
	}
	b, err := m.ByName(name)
	if err != nil {
		hwc.Logger().Error("backend: failed to set backend", "display", display,
			"backend", name, "driver", driverName, "err", err)
		return nil, err
	}
	hwc.Logger().Info("backend: backend set", "display", display,
		"backend", b.Name(), "requested", name, "driver", driverName)
	return b, nil
}
