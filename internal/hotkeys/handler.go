package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/deskmod/internal/platform"
)

// ErrUnsupported is returned when the backend cannot grab global keys.
var ErrUnsupported = errors.New("global hotkeys require the X11 backend")

// Toggler hides or restores every module.
type Toggler interface {
	ToggleAll() error
}

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu      *xgbutil.XUtil
	root    xproto.Window
	toggler Toggler
	logger  *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler.
func NewHandler(backend platform.Backend, toggler Toggler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{toggler: toggler, logger: logger}
	if accessor, ok := backend.(x11Accessor); ok {
		h.xu = accessor.XUtil()
		h.root = accessor.RootWindow()
	}

	if h.xu != nil {
		ignoreModsOnce.Do(func() {
			configureIgnoreMods(h.xu)
		})
	}
	return h
}

// RegisterToggle binds keySequence to Toggler.ToggleAll. An empty sequence
// disables the hotkey.
func (h *Handler) RegisterToggle(keySequence string) error {
	if strings.TrimSpace(keySequence) == "" {
		return nil
	}
	if err := h.RegisterFunc(keySequence, h.Toggle); err != nil {
		return fmt.Errorf("failed to register toggle hotkey %q: %w", keySequence, err)
	}
	h.logger.Info("toggle hotkey registered", "keys", keySequence)
	return nil
}

// Toggle runs one toggle and logs the outcome.
func (h *Handler) Toggle() {
	h.logger.Debug("toggle hotkey triggered")
	if err := h.toggler.ToggleAll(); err != nil {
		h.logger.Error("toggle failed", "error", err)
	}
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	if h.xu == nil {
		return ErrUnsupported
	}
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
