package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/1broseidon/deskmod/internal/config"
	"github.com/1broseidon/deskmod/internal/platform"
)

// openBackend returns the configured backend and a function releasing it.
// "auto" tries X11 when DISPLAY is set and falls back to headless.
func openBackend(cfg *config.Config, logger *slog.Logger) (platform.Backend, func(), error) {
	switch cfg.Backend {
	case config.BackendHeadless:
		return headlessBackend(cfg), func() {}, nil
	case config.BackendX11:
		return openX11()
	default:
		if os.Getenv("DISPLAY") != "" {
			backend, release, err := openX11()
			if err == nil {
				return backend, release, nil
			}
			logger.Warn("X11 unavailable, using headless backend", "error", err)
		} else {
			logger.Info("DISPLAY not set, using headless backend")
		}
		return headlessBackend(cfg), func() {}, nil
	}
}

func headlessBackend(cfg *config.Config) *platform.Headless {
	displays := make([]platform.Display, 0, len(cfg.HeadlessMonitors))
	for i, m := range cfg.HeadlessMonitors {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("HEADLESS-%d", i)
		}
		displays = append(displays, platform.Display{
			ID:     i,
			Name:   name,
			Bounds: platform.Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height},
		})
	}
	backend := platform.NewHeadless(displays)
	backend.SetPointer(cfg.HeadlessPointer.X, cfg.HeadlessPointer.Y)
	return backend
}
