// Package addon defines the contracts between the host and addon code.
//
// An Addon is constructed with a zero-argument factory and then initialized
// in two phases. PreInitialize sees only host services. Initialize also
// sees the addon's config document and is the only place modules may be
// registered. Everything else (enabling, positioning, persisting) is driven
// by the host.
package addon

import (
	"image"
	"image/draw"
	"log/slog"

	"github.com/1broseidon/deskmod/internal/addonconfig"
	"github.com/1broseidon/deskmod/internal/platform"
)

// Services are the host handles available from PreInitialize onward.
type Services interface {
	Logger() *slog.Logger
	Textures() TextureLoader
	Displays() ([]platform.Display, error)
}

// Host is passed to Initialize.
type Host interface {
	Services
	// Config is the root of the addon's document.
	Config() addonconfig.Section
	// RegisterModule adds a module owned by the calling addon. It fails
	// outside Initialize.
	RegisterModule(m Module) error
}

// TextureLoader resolves image paths against the addon load path.
type TextureLoader interface {
	Load(name string) (image.Image, error)
}

// Addon is a loaded plugin unit.
type Addon interface {
	PreInitialize(s Services) error
	Initialize(h Host) error
	// OnEnable runs when the addon goes from zero to at least one enabled module.
	OnEnable() error
	// OnDisable runs when the last enabled module is disabled.
	OnDisable() error
}

// Module is one overlay widget.
type Module interface {
	// Size is fixed for the lifetime of the module.
	Size() (width, height int)
	Tick() error
	Paint(dst draw.Image)
}

// Named overrides the display name derived from the implementing type.
type Named interface {
	Name() string
}

// Keyed overrides the config key derived from the implementing type.
type Keyed interface {
	ModuleKey() string
}

// Iconic modules expose an icon texture path.
type Iconic interface {
	IconPath() string
}

// Configurable modules persist extension fields next to enabled/x/y.
type Configurable interface {
	LoadConfig(sec addonconfig.Section) error
	SaveConfig(sec addonconfig.Section) error
}

// Scroller modules receive mouse wheel steps (+1 up, -1 down).
type Scroller interface {
	Scroll(delta int)
}

// Pointer modules receive drags of the non-primary mouse buttons. The
// primary button always moves the module. Coordinates are relative to the
// module origin.
type Pointer interface {
	MousePressed(button, x, y int)
	MouseDragged(button, x, y int)
	MouseReleased(button, x, y int)
}
