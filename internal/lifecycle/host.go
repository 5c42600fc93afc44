package lifecycle

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/1broseidon/deskmod/internal/addon"
	"github.com/1broseidon/deskmod/internal/addonconfig"
	"github.com/1broseidon/deskmod/internal/platform"
)

var errNoTextures = errors.New("no texture loader configured")

type noTextures struct{}

func (noTextures) Load(name string) (image.Image, error) {
	return nil, fmt.Errorf("texture %q: %w", name, errNoTextures)
}

// addonHost is the per-addon view of host services handed to addon callbacks.
type addonHost struct {
	h      *AddonHandle
	logger *slog.Logger
}

var _ addon.Host = (*addonHost)(nil)

func (a *addonHost) Logger() *slog.Logger { return a.logger }

func (a *addonHost) Textures() addon.TextureLoader { return a.h.c.textures }

func (a *addonHost) Displays() ([]platform.Display, error) {
	return a.h.c.backend.Displays()
}

func (a *addonHost) Config() addonconfig.Section {
	return a.h.doc.Root()
}

func (a *addonHost) RegisterModule(m addon.Module) error {
	return a.h.registerModule(m)
}

// Services returns the handles passed to PreInitialize.
func (h *AddonHandle) Services() addon.Services {
	return h.host
}

// Host returns the handle passed to Initialize. LoadConfig must run first.
func (h *AddonHandle) Host() addon.Host {
	return h.host
}

// LoadConfig reads the addon document from disk and opens module
// registration. A malformed document is replaced by an empty one and the
// *addonconfig.ConfigError is returned for logging only.
func (h *AddonHandle) LoadConfig() error {
	doc, err := h.c.store.Load(h.configName)
	h.mu.Lock()
	h.doc = doc
	h.mu.Unlock()
	h.phase.Store(int32(phaseInitializing))
	return err
}

func (h *AddonHandle) registerModule(m addon.Module) error {
	if phase(h.phase.Load()) != phaseInitializing {
		return ErrRegistrationClosed
	}
	if m == nil {
		return errors.New("nil module")
	}

	width, height := m.Size()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%s: %w (%dx%d)", addon.TypeName(m), ErrInvalidSize, width, height)
	}

	key := addon.ModuleKey(m)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, existing := range h.modules {
		if existing.key == key {
			return fmt.Errorf("%s: %w", key, ErrDuplicateModule)
		}
	}

	mh := &ModuleHandle{
		owner:  h,
		impl:   m,
		key:    key,
		name:   addon.DisplayName(m),
		width:  width,
		height: height,
	}

	if iconic, ok := m.(addon.Iconic); ok && iconic.IconPath() != "" {
		icon, err := h.c.textures.Load(iconic.IconPath())
		if err != nil {
			h.host.logger.Warn("module icon unavailable", "module", key, "error", err)
		} else {
			mh.icon = icon
		}
	}

	sec := h.doc.Module(key)
	mh.initialEnabled = sec.Bool("enabled", true)
	mh.applyPosition(sec)
	if err := h.c.loadModuleConfig(h, mh, sec); err != nil {
		h.host.logger.Warn("module config hook failed", "module", key, "error", err)
	}

	h.modules = append(h.modules, mh)
	h.host.logger.Debug("module registered", "module", key, "width", width, "height", height, "enabled", mh.initialEnabled)
	return nil
}
