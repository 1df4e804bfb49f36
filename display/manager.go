// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package display

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager holds the displays of a process.
type Manager struct {
	mu       sync.Mutex
	displays map[int]*Display
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{displays: make(map[int]*Display)}
}

// Add registers d. A display with the same ID is replaced.
func (m *Manager) Add(d *Display) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.displays[d.ID()] = d
}

// Display returns the display with id.
func (m *Manager) Display(id int) (*Display, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.displays[id]
	return d, ok
}

// Displays returns the displays ordered by ID.
func (m *Manager) Displays() []*Display {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Display, 0, len(m.displays))
	for _, id := range slices.Sorted(maps.Keys(m.displays)) {
		out = append(out, m.displays[id])
	}
	return out
}

// each runs fn for every display concurrently and returns the first error.
func (m *Manager) each(ctx context.Context, fn func(ctx context.Context, d *Display) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, d := range m.Displays() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, d)
		})
	}
	return g.Wait()
}

// PresentAll presents the validated frame of every display concurrently.
func (m *Manager) PresentAll(ctx context.Context) error {
	return m.each(ctx, func(_ context.Context, d *Display) error {
		return d.Present()
	})
}

// RunFrame validates, accepts and presents one frame on every display
// concurrently. prepare, when set, runs between accepting the changes and
// presenting, for the client to compose and set its client target.
func (m *Manager) RunFrame(ctx context.Context, prepare func(d *Display) error) error {
	return m.each(ctx, func(_ context.Context, d *Display) error {
		d.Validate()
		d.AcceptChanges()
		if prepare != nil {
			if err := prepare(d); err != nil {
				return fmt.Errorf("display %d: prepare: %w", d.ID(), err)
			}
		}
		return d.Present()
	})
}

// VsyncAll delivers a vsync to every display.
func (m *Manager) VsyncAll() {
	for _, d := range m.Displays() {
		d.Vsync()
	}
}

// Dump returns the reports of every display.
func (m *Manager) Dump() string {
	var b strings.Builder
	for _, d := range m.Displays() {
		b.WriteString(d.Dump())
	}
	return b.String()
}

// Close closes every display.
func (m *Manager) Close() error {
	var first error
	for _, d := range m.Displays() {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
