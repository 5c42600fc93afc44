// Package lifecycle owns addon registration and the module enable/disable
// state machine.
//
// Lock order is addon mutex, then module mutex. Addon callbacks run with the
// addon mutex held, so the addon.Host surface exposes no lifecycle methods.
package lifecycle

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/1broseidon/deskmod/internal/addon"
	"github.com/1broseidon/deskmod/internal/addonconfig"
	"github.com/1broseidon/deskmod/internal/platform"
	"github.com/1broseidon/deskmod/internal/screen"
	"github.com/1broseidon/deskmod/internal/tick"
)

// Config wires a Coordinator to its collaborators.
type Config struct {
	Backend  platform.Backend
	Store    *addonconfig.Store
	Textures addon.TextureLoader
	Logger   *slog.Logger
}

// Coordinator tracks registered addons and drives module transitions.
type Coordinator struct {
	backend  platform.Backend
	bounds   *screen.Bounds
	store    *addonconfig.Store
	textures addon.TextureLoader
	logger   *slog.Logger

	addons  List[*AddonHandle]
	modules List[*ModuleHandle]

	hiddenMu sync.Mutex
	hidden   []*ModuleHandle
}

// New creates a coordinator.
func New(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	textures := cfg.Textures
	if textures == nil {
		textures = noTextures{}
	}
	return &Coordinator{
		backend:  cfg.Backend,
		bounds:   screen.NewBounds(cfg.Backend),
		store:    cfg.Store,
		textures: textures,
		logger:   logger,
	}
}

// Bounds returns the geometry helper bound to the backend.
func (c *Coordinator) Bounds() *screen.Bounds { return c.bounds }

// Addons returns the registered addons in registration order.
func (c *Coordinator) Addons() []*AddonHandle { return c.addons.Snapshot() }

// Modules returns the modules of all registered addons.
func (c *Coordinator) Modules() []*ModuleHandle { return c.modules.Snapshot() }

// TickTargets returns every registered module as a tick target.
func (c *Coordinator) TickTargets() []tick.Target {
	mods := c.modules.Snapshot()
	out := make([]tick.Target, len(mods))
	for i, m := range mods {
		out[i] = m
	}
	return out
}

// NewAddon creates an unregistered handle for impl.
func (c *Coordinator) NewAddon(impl addon.Addon, source string) *AddonHandle {
	if source == "" {
		source = "builtin"
	}
	h := &AddonHandle{
		c:          c,
		impl:       impl,
		name:       addon.DisplayName(impl),
		configName: addon.ConfigName(impl),
		source:     source,
		doc:        addonconfig.NewDocument(),
	}
	h.host = &addonHost{h: h, logger: c.logger.With("addon", h.name)}
	return h
}

// Commit publishes a fully initialized addon and brings up the modules whose
// persisted state is enabled. OnEnable fires once if any came up.
func (c *Coordinator) Commit(h *AddonHandle) error {
	if !h.phase.CompareAndSwap(int32(phaseInitializing), int32(phaseCommitted)) {
		return fmt.Errorf("commit %s: %w", h.name, ErrNotCommitted)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c.addons.Append(h)
	c.modules.Append(h.modules...)

	var started []*ModuleHandle
	positions := make(map[*ModuleHandle]positionState)
	for _, m := range h.modules {
		if !m.initialEnabled {
			continue
		}
		prev := m.savePosition()
		if err := c.activate(h, m); err != nil {
			c.logger.Error("module failed to start", "addon", h.name, "module", m.key, "error", err)
			continue
		}
		started = append(started, m)
		positions[m] = prev
	}

	if len(started) > 0 {
		if err := c.callHook(h, "on_enable", h.impl.OnEnable); err != nil {
			c.logger.Error("addon enable callback failed", "addon", h.name, "error", err)
			for _, m := range started {
				c.teardown(h, m)
				m.restorePosition(positions[m])
			}
		}
	}

	c.logger.Info("addon registered",
		"addon", h.name,
		"source", h.source,
		"modules", len(h.modules),
		"active", h.active)
	return nil
}

// Discard abandons a handle that failed to initialize. An implementation
// that holds resources is closed through io.Closer.
func (c *Coordinator) Discard(h *AddonHandle) {
	h.phase.Store(int32(phaseDiscarded))
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.modules {
		c.teardown(h, m)
	}
	h.modules = nil
	c.release(h)
}

// release closes implementations that hold resources, such as script states.
func (c *Coordinator) release(h *AddonHandle) {
	if closer, ok := h.impl.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.logger.Warn("failed to close addon", "addon", h.name, "error", err)
		}
	}
}

// Change is one requested module transition.
type Change struct {
	Module  *ModuleHandle
	Enabled bool
}

// SetEnabled enables or disables a single module.
func (c *Coordinator) SetEnabled(m *ModuleHandle, enabled bool) error {
	return c.Apply(m.owner, []Change{{Module: m, Enabled: enabled}})
}

// Apply runs a batch of transitions for one addon. OnEnable and OnDisable
// fire at most once, when the active count crosses zero over the batch.
// Failed transitions are rolled back and reported as *LifecycleError.
func (c *Coordinator) Apply(h *AddonHandle, changes []Change) error {
	if !h.committed() {
		return fmt.Errorf("%s: %w", h.name, ErrNotCommitted)
	}
	for _, ch := range changes {
		if ch.Module == nil || ch.Module.owner != h {
			return ErrForeignModule
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	before := h.active
	dormant := before == 0
	reloaded := false

	var errs []error
	var enabled []*ModuleHandle
	positions := make(map[*ModuleHandle]positionState)
	for _, ch := range changes {
		m := ch.Module
		if m.Enabled() == ch.Enabled {
			continue
		}
		if ch.Enabled {
			if dormant && !reloaded {
				c.reload(h)
				reloaded = true
			}
			prev := m.savePosition()
			if err := c.enable(h, m, dormant); err != nil {
				c.logger.Error("enable failed", "addon", h.name, "module", m.key, "error", err)
				errs = append(errs, err)
				continue
			}
			enabled = append(enabled, m)
			positions[m] = prev
		} else {
			if err := c.disable(h, m); err != nil {
				c.logger.Error("disable failed", "addon", h.name, "module", m.key, "error", err)
				errs = append(errs, err)
			}
		}
	}

	after := h.active
	switch {
	case before == 0 && after > 0:
		if err := c.callHook(h, "on_enable", h.impl.OnEnable); err != nil {
			c.logger.Error("addon enable callback failed, rolling back", "addon", h.name, "error", err)
			errs = append(errs, err)
			for _, m := range enabled {
				c.teardown(h, m)
				m.restorePosition(positions[m])
			}
			if err := c.save(h, nil); err != nil {
				c.logger.Error("failed to persist rollback", "addon", h.name, "error", err)
			}
		}
	case before > 0 && after == 0:
		if err := c.callHook(h, "on_disable", h.impl.OnDisable); err != nil {
			c.logger.Error("addon disable callback failed", "addon", h.name, "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// reload replaces the in-memory document with the on-disk one. Called only
// when the addon had no active modules, to pick up external edits.
func (c *Coordinator) reload(h *AddonHandle) {
	fresh, err := c.store.Load(h.configName)
	if err != nil {
		c.logger.Warn("addon config reload failed", "addon", h.name, "error", err)
	}
	h.doc.Replace(fresh)
}

// enable brings m up. When reapply is set the module's position and
// extension fields are re-read from the (freshly reloaded) document.
func (c *Coordinator) enable(h *AddonHandle, m *ModuleHandle, reapply bool) (err error) {
	prev := m.savePosition()
	fail := func(op string, cause error) error {
		m.restorePosition(prev)
		return &LifecycleError{Addon: h.name, Module: m.key, Op: op, Err: cause}
	}

	defer func() {
		if r := recover(); r != nil {
			m.restorePosition(prev)
			err = &LifecycleError{Addon: h.name, Module: m.key, Op: "enable", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if reapply {
		sec := h.doc.Module(m.key)
		m.applyPosition(sec)
		if err := c.loadModuleConfig(h, m, sec); err != nil {
			return fail("enable", err)
		}
	}

	surface, err := c.openSurface(m)
	if err != nil {
		return fail("enable", err)
	}

	if err := c.save(h, map[*ModuleHandle]bool{m: true}); err != nil {
		surface.Destroy()
		return fail("enable", err)
	}

	m.mu.Lock()
	m.enabled = true
	m.surface = surface
	m.mu.Unlock()
	h.active++
	return nil
}

// activate brings m up at startup without persisting.
func (c *Coordinator) activate(h *AddonHandle, m *ModuleHandle) error {
	prev := m.savePosition()
	surface, err := c.openSurface(m)
	if err != nil {
		m.restorePosition(prev)
		return &LifecycleError{Addon: h.name, Module: m.key, Op: "activate", Err: err}
	}
	m.mu.Lock()
	m.enabled = true
	m.surface = surface
	m.mu.Unlock()
	h.active++
	return nil
}

// openSurface resolves the module position, creates its surface and derives
// rightBound. The position is committed to m; callers restore it on failure.
func (c *Coordinator) openSurface(m *ModuleHandle) (platform.Surface, error) {
	x, y, hasPos := m.Position()
	if !hasPos {
		cx, cy, err := c.bounds.CenterUnderPointer(m.width, m.height)
		if err != nil {
			return nil, fmt.Errorf("default position: %w", err)
		}
		x, y = cx, cy
	}

	rightBound, err := c.bounds.RightBound(x, y, m.width, m.height)
	if err != nil {
		return nil, fmt.Errorf("right bound: %w", err)
	}

	surface, err := c.backend.CreateSurface(
		platform.Rect{X: x, Y: y, Width: m.width, Height: m.height},
		&surfaceHandler{c: c, m: m},
	)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}

	m.mu.Lock()
	m.x, m.y, m.hasPos = x, y, true
	m.rightBound = rightBound
	m.mu.Unlock()
	return surface, nil
}

// disable persists the module as disabled, then tears its surface down.
func (c *Coordinator) disable(h *AddonHandle, m *ModuleHandle) error {
	if err := c.save(h, map[*ModuleHandle]bool{m: false}); err != nil {
		return &LifecycleError{Addon: h.name, Module: m.key, Op: "disable", Err: err}
	}
	c.teardown(h, m)
	return nil
}

// teardown destroys the surface of an enabled module and clears its state.
func (c *Coordinator) teardown(h *AddonHandle, m *ModuleHandle) {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	surface := m.surface
	m.surface = nil
	m.enabled = false
	m.drag.Release()
	m.mu.Unlock()
	h.active--

	if surface != nil {
		if err := surface.Destroy(); err != nil {
			c.logger.Warn("surface destroy failed", "addon", h.name, "module", m.key, "error", err)
		}
	}
}

// save serializes every module into the document and writes it. overrides
// force the persisted enabled flag of individual modules.
func (c *Coordinator) save(h *AddonHandle, overrides map[*ModuleHandle]bool) error {
	for _, m := range h.modules {
		sec := h.doc.Module(m.key)

		m.mu.Lock()
		enabled, x, y, hasPos := m.enabled, m.x, m.y, m.hasPos
		m.mu.Unlock()
		if v, ok := overrides[m]; ok {
			enabled = v
		}

		if err := sec.Set("enabled", enabled); err != nil {
			return err
		}
		if hasPos {
			if err := sec.Set("x", x); err != nil {
				return err
			}
			if err := sec.Set("y", y); err != nil {
				return err
			}
		} else {
			if err := sec.Delete("x"); err != nil {
				return err
			}
			if err := sec.Delete("y"); err != nil {
				return err
			}
		}
		if err := c.saveModuleConfig(h, m, sec); err != nil {
			return err
		}
	}
	return c.store.Save(h.configName, h.doc)
}

// Persist saves the addon document with every module's current state.
func (c *Coordinator) Persist(h *AddonHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.save(h, nil)
}

// Shutdown persists every addon, tears surfaces down and runs OnDisable for
// addons that had active modules. The persisted enabled flags are the ones
// in effect before shutdown.
func (c *Coordinator) Shutdown() {
	for _, h := range c.addons.Snapshot() {
		h.mu.Lock()
		if err := c.save(h, nil); err != nil {
			c.logger.Error("failed to save addon config", "addon", h.name, "error", err)
		}
		wasActive := h.active > 0
		for _, m := range h.modules {
			c.teardown(h, m)
		}
		if wasActive {
			if err := c.callHook(h, "on_disable", h.impl.OnDisable); err != nil {
				c.logger.Error("addon disable callback failed", "addon", h.name, "error", err)
			}
		}
		c.release(h)
		h.mu.Unlock()
	}
}

// FindModule resolves a module by key, optionally qualified by addon name.
// Matching is case-insensitive.
func (c *Coordinator) FindModule(addonName, key string) (*ModuleHandle, error) {
	var found *ModuleHandle
	for _, m := range c.modules.Snapshot() {
		if !strings.EqualFold(m.key, key) {
			continue
		}
		if addonName != "" && !strings.EqualFold(m.owner.name, addonName) {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%s: %w", key, ErrAmbiguousModule)
		}
		found = m
	}
	if found == nil {
		if addonName != "" {
			return nil, fmt.Errorf("%s/%s: %w", addonName, key, ErrModuleNotFound)
		}
		return nil, fmt.Errorf("%s: %w", key, ErrModuleNotFound)
	}
	return found, nil
}

// ToggleAll hides every enabled module, or restores the ones hidden by the
// previous call. Each addon receives a single batch.
func (c *Coordinator) ToggleAll() error {
	c.hiddenMu.Lock()
	defer c.hiddenMu.Unlock()

	var targets []*ModuleHandle
	enable := false
	for _, m := range c.modules.Snapshot() {
		if m.Enabled() {
			targets = append(targets, m)
		}
	}
	if len(targets) == 0 {
		targets = c.hidden
		enable = true
	}

	batches := make(map[*AddonHandle][]Change)
	var order []*AddonHandle
	for _, m := range targets {
		if _, ok := batches[m.owner]; !ok {
			order = append(order, m.owner)
		}
		batches[m.owner] = append(batches[m.owner], Change{Module: m, Enabled: enable})
	}

	var errs []error
	for _, h := range order {
		if err := c.Apply(h, batches[h]); err != nil {
			errs = append(errs, err)
		}
	}

	if enable {
		c.hidden = nil
	} else {
		c.hidden = targets
	}
	return errors.Join(errs...)
}

func (c *Coordinator) callHook(h *AddonHandle, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &LifecycleError{Addon: h.name, Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if e := fn(); e != nil {
		return &LifecycleError{Addon: h.name, Op: op, Err: e}
	}
	return nil
}

func (c *Coordinator) loadModuleConfig(h *AddonHandle, m *ModuleHandle, sec addonconfig.Section) (err error) {
	cfg, ok := m.impl.(addon.Configurable)
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load config panic: %v", r)
		}
	}()
	return cfg.LoadConfig(sec)
}

func (c *Coordinator) saveModuleConfig(h *AddonHandle, m *ModuleHandle, sec addonconfig.Section) (err error) {
	cfg, ok := m.impl.(addon.Configurable)
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("save config panic: %v", r)
		}
	}()
	return cfg.SaveConfig(sec)
}
