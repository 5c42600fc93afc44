package lifecycle

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/1broseidon/deskmod/internal/addon"
	"github.com/1broseidon/deskmod/internal/addonconfig"
	"github.com/1broseidon/deskmod/internal/platform"
	"github.com/1broseidon/deskmod/internal/screen"
)

type phase int32

const (
	phaseCreated phase = iota
	phaseInitializing
	phaseCommitted
	phaseDiscarded
)

// AddonHandle is the host-side record of one addon.
type AddonHandle struct {
	c    *Coordinator
	impl addon.Addon
	name string
	// configName keys the addon's document in the store.
	configName string
	source     string
	host       *addonHost
	phase      atomic.Int32

	// mu serializes config load/modify/save and module transitions.
	mu      sync.Mutex
	doc     *addonconfig.Document
	modules []*ModuleHandle
	active  int
}

// Name returns the addon display name.
func (h *AddonHandle) Name() string { return h.name }

// Source returns the package location, or "builtin".
func (h *AddonHandle) Source() string { return h.source }

// Impl returns the addon implementation.
func (h *AddonHandle) Impl() addon.Addon { return h.impl }

// Modules returns the modules in registration order.
func (h *AddonHandle) Modules() []*ModuleHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*ModuleHandle(nil), h.modules...)
}

// ActiveModules returns how many modules are enabled.
func (h *AddonHandle) ActiveModules() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// HasActiveModules reports whether at least one module is enabled.
func (h *AddonHandle) HasActiveModules() bool {
	return h.ActiveModules() > 0
}

// Config returns the addon's document.
func (h *AddonHandle) Config() *addonconfig.Document {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.doc
}

func (h *AddonHandle) committed() bool {
	return phase(h.phase.Load()) == phaseCommitted
}

// ModuleHandle is the host-side record of one module. The owner is set at
// registration and never changes. surface is non-nil exactly when enabled.
type ModuleHandle struct {
	owner  *AddonHandle
	impl   addon.Module
	key    string
	name   string
	width  int
	height int
	icon   image.Image

	// initialEnabled is the persisted flag read at registration.
	initialEnabled bool

	mu         sync.Mutex
	enabled    bool
	x, y       int
	hasPos     bool
	rightBound bool
	surface    platform.Surface
	drag       screen.Drag
}

// ModuleInfo is a point-in-time view of a module.
type ModuleInfo struct {
	Addon       string `json:"addon"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	RightBound  bool   `json:"right_bound"`
	HasPosition bool   `json:"has_position"`
}

// Owner returns the addon that registered the module.
func (m *ModuleHandle) Owner() *AddonHandle { return m.owner }

// Key returns the stable config key.
func (m *ModuleHandle) Key() string { return m.key }

// Impl returns the module implementation.
func (m *ModuleHandle) Impl() addon.Module { return m.impl }

// Icon returns the decoded icon, or nil.
func (m *ModuleHandle) Icon() image.Image { return m.icon }

// Size returns the fixed module size.
func (m *ModuleHandle) Size() (int, int) { return m.width, m.height }

// Enabled reports whether the module is live.
func (m *ModuleHandle) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// Position returns the module origin and whether one has been set.
func (m *ModuleHandle) Position() (x, y int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.x, m.y, m.hasPos
}

// RightBound reports whether the module center is in the right half of its monitor.
func (m *ModuleHandle) RightBound() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rightBound
}

// Surface returns the live surface, or nil when disabled.
func (m *ModuleHandle) Surface() platform.Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.surface
}

// MouseOver reports whether the pointer is over the module surface.
func (m *ModuleHandle) MouseOver() bool {
	s := m.Surface()
	return s != nil && s.MouseOver()
}

// Info returns a snapshot of the module state.
func (m *ModuleHandle) Info() ModuleInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ModuleInfo{
		Addon:       m.owner.name,
		Key:         m.key,
		Name:        m.name,
		Enabled:     m.enabled,
		X:           m.x,
		Y:           m.y,
		Width:       m.width,
		Height:      m.height,
		RightBound:  m.rightBound,
		HasPosition: m.hasPos,
	}
}

// TickName identifies the module in tick logs.
func (m *ModuleHandle) TickName() string {
	return m.owner.name + "/" + m.key
}

// TickActive reports whether the module should be ticked.
func (m *ModuleHandle) TickActive() bool { return m.Enabled() }

// Tick runs the module's tick hook.
func (m *ModuleHandle) Tick() error { return m.impl.Tick() }

// RequestFrame repaints the module surface if it is live.
func (m *ModuleHandle) RequestFrame() error {
	s := m.Surface()
	if s == nil {
		return nil
	}
	return s.RequestFrame()
}

type positionState struct {
	x, y       int
	hasPos     bool
	rightBound bool
}

func (m *ModuleHandle) savePosition() positionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return positionState{x: m.x, y: m.y, hasPos: m.hasPos, rightBound: m.rightBound}
}

func (m *ModuleHandle) restorePosition(p positionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.x, m.y, m.hasPos, m.rightBound = p.x, p.y, p.hasPos, p.rightBound
}

// applyPosition reads x/y from the module section. The position counts as
// persisted only when both coordinates are present.
func (m *ModuleHandle) applyPosition(sec addonconfig.Section) {
	hasPos := sec.Has("x") && sec.Has("y")
	x, y := 0, 0
	if hasPos {
		x = sec.Int("x", 0)
		y = sec.Int("y", 0)
	}
	m.mu.Lock()
	m.x, m.y, m.hasPos = x, y, hasPos
	m.mu.Unlock()
}
