// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package backend

import (
	"errors"
	"slices"
	"testing"
)

func TestManagerByName(t *testing.T) {
	m := NewManager().RegisterDefaults()

	tests := []struct {
		name string
		want string
	}{
		{"generic", "generic"},
		{"client", "client"},
		{"rcar-du", "rcar-du"},
		{"kirin", "client"},
		{"mediatek-drm", "client"},
		{"i915", "generic"},
		{"", "generic"},
	}
	for _, tt := range tests {
		b, err := m.ByName(tt.name)
		if err != nil {
			t.Errorf("ByName(%q): %v", tt.name, err)
			continue
		}
		if b.Name() != tt.want {
			t.Errorf("ByName(%q) = %q, want %q", tt.name, b.Name(), tt.want)
		}
	}
}

func TestManagerForDisplayOverride(t *testing.T) {
	m := NewManager().RegisterDefaults()

	b, err := m.ForDisplay(0, "rcar-du", "client")
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != "client" {
		t.Errorf("override: got %q, want client", b.Name())
	}

	b, err = m.ForDisplay(0, "rcar-du", "")
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != "rcar-du" {
		t.Errorf("driver: got %q, want rcar-du", b.Name())
	}
}

func TestManagerFreshInstances(t *testing.T) {
	m := NewManager().RegisterDefaults()
	a, _ := m.ByName("generic")
	b, _ := m.ByName("generic")
	if a == b {
		t.Error("ByName returned a shared instance")
	}
}

func TestManagerEmpty(t *testing.T) {
	_, err := NewManager().ForDisplay(0, "i915", "")
	if !errors.Is(err, ErrNoBackends) {
		t.Errorf("err = %v, want ErrNoBackends", err)
	}
}

func TestManagerMissingFallback(t *testing.T) {
	m := NewManager()
	m.Register("rcar-du", func() Backend { return NewRCarDu() })

	_, err := m.ByName("i915")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if nf.Name != "generic" {
		t.Errorf("NotFoundError.Name = %q, want generic", nf.Name)
	}
}

func TestManagerAvailable(t *testing.T) {
	m := NewManager().RegisterDefaults()
	want := []string{"client", "generic", "rcar-du"}
	if got := m.Available(); !slices.Equal(got, want) {
		t.Errorf("Available = %v, want %v", got, want)
	}
}
