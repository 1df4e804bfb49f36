// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package display holds the per-display frame state and drives one frame
// through validation, provisioning and commit.
//
// A frame goes:
//
//	d.Validate()                 // pick client vs device per layer
//	d.ChangedCompositionTypes()  // client reads the decisions
//	d.AcceptChanges()
//	d.SetClientTarget(buf, fence) // client composed its layers
//	d.Present()                  // commit
package display

import (
	"errors"
	"fmt"
	"image"
	"maps"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/hwc"
	"github.com/gogpu/hwc/backend"
	"github.com/gogpu/hwc/buffer"
	"github.com/gogpu/hwc/compositor"
	"github.com/gogpu/hwc/drm"
	"github.com/gogpu/hwc/importer"
	"github.com/gogpu/hwc/layer"
	"github.com/gogpu/hwc/planner"
)

// Errors returned by displays.
var (
	ErrNoCrtc       = errors.New("display: no crtc")
	ErrNoBackend    = errors.New("display: no backend")
	ErrNoDevice     = errors.New("display: no device")
	ErrUnknownLayer = errors.New("display: unknown layer")
)

// Device is the kernel surface a display uses. *drm.Device implements it.
type Device interface {
	importer.Device
	compositor.KMS
	DriverName() (string, error)
}

// Config describes a display.
type Config struct {
	ID     int
	Width  int
	Height int

	Crtc    *drm.Crtc
	Primary []*drm.Plane
	Overlay []*drm.Plane

	Device Device
	Getter buffer.Getter

	// Importer defaults to an importer.Generic on Device. Displays on the
	// same device should share one.
	Importer importer.Importer

	// Backend defaults to the one Backends picks for the device driver.
	Backend         backend.Backend
	Backends        *backend.Manager
	BackendOverride string

	// Stages replace the backend's provisioning stages when set.
	Stages []planner.Stage

	ScaleWithGPU     bool
	FlattenCountdown int
	OnRefresh        func()
}

// Display is one display pipeline. Its methods are safe for concurrent
// use; frames of one display are processed one at a time.
type Display struct {
	id     int
	width  int
	height int

	crtc    *drm.Crtc
	primary []*drm.Plane
	overlay []*drm.Plane

	getter       buffer.Getter
	imp          importer.Importer
	backend      backend.Backend
	planner      *planner.Planner
	compositor   *compositor.Compositor
	scaleWithGPU bool

	mu             sync.Mutex
	layers         map[uint64]*layer.Layer
	nextID         uint64
	clientTarget   *layer.Layer
	colorTransform backend.ColorTransform
	stats          backend.Stats
	dumpStats      backend.Stats
}

// New returns a display for cfg.
func New(cfg Config) (*Display, error) {
	if cfg.Crtc == nil {
		return nil, fmt.Errorf("%w for display %d", ErrNoCrtc, cfg.ID)
	}
	if len(planner.UsablePlanes(cfg.Crtc, cfg.Primary, cfg.Overlay)) == 0 {
		return nil, fmt.Errorf("%w on display %d", planner.ErrNoUsablePlanes, cfg.ID)
	}
	if cfg.Device == nil {
		return nil, fmt.Errorf("%w for display %d", ErrNoDevice, cfg.ID)
	}

	b := cfg.Backend
	if b == nil {
		if cfg.Backends == nil {
			return nil, fmt.Errorf("%w for display %d", ErrNoBackend, cfg.ID)
		}
		driver, err := cfg.Device.DriverName()
		if err != nil {
			return nil, fmt.Errorf("display %d: driver name: %w", cfg.ID, err)
		}
		b, err = cfg.Backends.ForDisplay(cfg.ID, driver, cfg.BackendOverride)
		if err != nil {
			return nil, err
		}
	}

	imp := cfg.Importer
	if imp == nil {
		imp = importer.NewGeneric(cfg.Device, cfg.Getter)
	}
	stages := cfg.Stages
	if len(stages) == 0 {
		stages = b.Stages()
	}

	opts := []compositor.Option{compositor.WithFlattenCountdown(cfg.FlattenCountdown)}
	if cfg.OnRefresh != nil {
		opts = append(opts, compositor.WithRefresh(cfg.OnRefresh))
	}

	d := &Display{
		id:           cfg.ID,
		width:        cfg.Width,
		height:       cfg.Height,
		crtc:         cfg.Crtc,
		primary:      cfg.Primary,
		overlay:      cfg.Overlay,
		getter:       cfg.Getter,
		imp:          imp,
		backend:      b,
		planner:      planner.New(stages...),
		compositor:   compositor.New(cfg.Device, cfg.ID, opts...),
		scaleWithGPU: cfg.ScaleWithGPU,
		layers:       make(map[uint64]*layer.Layer),
		nextID:       1,
	}
	d.clientTarget = d.newClientTarget()
	return d, nil
}

func (d *Display) newClientTarget() *layer.Layer {
	l := layer.New(0, 0)
	l.RequestedType = layer.CompositionClient
	l.Blending = layer.BlendingPreMult
	l.DisplayFrame = image.Rect(0, 0, d.width, d.height)
	l.SourceCrop = layer.FRect{Right: float32(d.width), Bottom: float32(d.height)}
	return l
}

// ID returns the display index.
func (d *Display) ID() int { return d.id }

// Backend returns the display's backend.
func (d *Display) Backend() backend.Backend { return d.backend }

// Compositor returns the display's compositor.
func (d *Display) Compositor() *compositor.Compositor { return d.compositor }

// CreateLayer adds a layer on top of the existing ones and returns it.
// The caller may set its fields between frames.
func (d *Display) CreateLayer() *layer.Layer {
	d.mu.Lock()
	defer d.mu.Unlock()

	var top uint32
	for _, l := range d.layers {
		top = max(top, l.ZOrder+1)
	}
	l := layer.New(d.nextID, top)
	d.nextID++
	d.layers[l.ID] = l
	return l
}

// DestroyLayer removes a layer.
func (d *Display) DestroyLayer(id uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.layers[id]; !ok {
		return fmt.Errorf("%w %d", ErrUnknownLayer, id)
	}
	delete(d.layers, id)
	return nil
}

// Layer returns the layer with id.
func (d *Display) Layer(id uint64) (*layer.Layer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.layers[id]
	return l, ok
}

// SetLayerCompositionType records what the client asks for a layer.
func (d *Display) SetLayerCompositionType(id uint64, t layer.CompositionType) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.layers[id]
	if !ok {
		return fmt.Errorf("%w %d", ErrUnknownLayer, id)
	}
	l.RequestedType = t
	return nil
}

// SetClientTarget sets the buffer the client composed its layers into.
func (d *Display) SetClientTarget(h buffer.Handle, acquireFence int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clientTarget.Buffer = h
	d.clientTarget.AcquireFence = acquireFence
}

// SetColorTransform sets the display color transform hint.
func (d *Display) SetColorTransform(hint backend.ColorTransform) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.colorTransform = hint
}

// ClientTargetFormat returns the texture format the client should render
// the client target in.
func (d *Display) ClientTargetFormat() gputypes.TextureFormat {
	d.mu.Lock()
	h := d.clientTarget.Buffer
	d.mu.Unlock()

	if h != nil && d.getter != nil {
		if desc, err := d.getter.Describe(h); err == nil {
			if tf := buffer.TextureFormat(desc.Format); tf != gputypes.TextureFormatUndefined {
				return tf
			}
		}
	}
	return buffer.TextureFormat(buffer.FormatABGR8888)
}

// Validate decides the composition type of every layer.
func (d *Display) Validate() backend.Validation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.ValidateDisplay(frame{d})
}

// ChangedCompositionTypes returns the layers whose validated type differs
// from the requested one, keyed by layer ID.
func (d *Display) ChangedCompositionTypes() map[uint64]layer.CompositionType {
	d.mu.Lock()
	defer d.mu.Unlock()
	changed := make(map[uint64]layer.CompositionType)
	for id, l := range d.layers {
		if l.TypeChanged() {
			changed[id] = l.ValidatedType
		}
	}
	return changed
}

// AcceptChanges adopts the validated types as requested types.
func (d *Display) AcceptChanges() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range d.layers {
		l.AcceptTypeChange()
	}
}

// Present commits the validated frame.
func (d *Display) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.Frames++
	if err := d.createComposition(false); err != nil {
		d.stats.FailedKMSPresent++
		hwc.Logger().Error("display: present failed", "display", d.id, "err", err)
		return fmt.Errorf("display %d: present: %w", d.id, err)
	}
	return nil
}

// Layers returns the display's layers ordered by ID. The layers are shared
// with the display; read them only between frames.
func (d *Display) Layers() []*layer.Layer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sortedLayers()
}

// Size returns the display resolution.
func (d *Display) Size() (width, height int) { return d.width, d.height }

// Vsync forwards a vsync event to the compositor.
func (d *Display) Vsync() { d.compositor.Vsync() }

// Stats returns a copy of the cumulative frame statistics.
func (d *Display) Stats() backend.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Close releases everything the display holds on screen.
func (d *Display) Close() error {
	return d.compositor.Close()
}

// sortedLayers returns the layers ordered by ID. Callers hold d.mu.
func (d *Display) sortedLayers() []*layer.Layer {
	ids := slices.Sorted(maps.Keys(d.layers))
	out := make([]*layer.Layer, len(ids))
	for i, id := range ids {
		out[i] = d.layers[id]
	}
	return out
}

// frame is the backend's view of a display during validation; d.mu is
// held while it is in use.
type frame struct {
	d *Display
}

func (f frame) Layers() []*layer.Layer                     { return f.d.sortedLayers() }
func (f frame) PrimaryPlanes() []*drm.Plane                { return f.d.primary }
func (f frame) OverlayPlanes() []*drm.Plane                { return f.d.overlay }
func (f frame) CreateComposition(test bool) error          { return f.d.createComposition(test) }
func (f frame) Flattener() backend.Flattener               { return f.d.compositor }
func (f frame) ColorTransformHint() backend.ColorTransform { return f.d.colorTransform }
func (f frame) ForcedScalingWithGPU() bool                 { return f.d.scaleWithGPU }
func (f frame) Getter() buffer.Getter                      { return f.d.getter }
func (f frame) TotalStats() *backend.Stats                 { return &f.d.stats }

func (f frame) HardwareSupportsLayerType(t layer.CompositionType) bool {
	return t == layer.CompositionDevice || t == layer.CompositionCursor
}
