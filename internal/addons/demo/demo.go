// Package demo is a built-in addon showing config defaults and a module
// with a zoomable view.
package demo

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync"

	"github.com/1broseidon/deskmod/internal/addon"
	"github.com/1broseidon/deskmod/internal/addonconfig"
	"github.com/1broseidon/deskmod/internal/plugin"
)

// EntryPoint is the registry name of DemoAddon.
const EntryPoint = "demo.DemoAddon"

// IconPath is looked up on the addon load path.
const IconPath = "textures/demo/demo.png"

// DefaultStartupMessage is written to the config on first run.
const DefaultStartupMessage = "Hello World!"

// zoomStep is the zoom change per wheel step.
const zoomStep = 10

var (
	background = color.NRGBA{R: 50, G: 50, B: 50, A: 130}
	tileLight  = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	tileDark   = color.NRGBA{R: 90, G: 90, B: 90, A: 255}
)

func init() {
	plugin.Register(EntryPoint, New)
}

// New constructs an uninitialized DemoAddon.
func New() addon.Addon { return &DemoAddon{} }

// DemoAddon registers a single DemoModule.
type DemoAddon struct {
	logger         *slog.Logger
	startupMessage string
	module         *DemoModule
}

func (a *DemoAddon) PreInitialize(s addon.Services) error {
	a.logger = s.Logger()
	return nil
}

func (a *DemoAddon) Initialize(h addon.Host) error {
	cfg := h.Config()
	if !cfg.Has("flag") {
		if err := cfg.Set("flag", true); err != nil {
			return err
		}
		a.logger.Info("addon started for the first time")
	}

	a.startupMessage = cfg.String("startup_message", DefaultStartupMessage)
	a.logger.Info(a.startupMessage)

	a.module = &DemoModule{}
	if img, err := h.Textures().Load(IconPath); err == nil {
		a.module.texture = img
	} else {
		a.logger.Debug("demo texture unavailable", "path", IconPath, "error", err)
	}
	return h.RegisterModule(a.module)
}

// StartupMessage returns the configured greeting.
func (a *DemoAddon) StartupMessage() string { return a.startupMessage }

func (a *DemoAddon) OnEnable() error {
	a.logger.Info("demo addon enabled")
	return nil
}

func (a *DemoAddon) OnDisable() error {
	a.logger.Info("demo addon disabled")
	return nil
}

// DemoModule renders content that can be zoomed with the mouse wheel and
// panned by dragging with the secondary button. The view is persisted in the
// module's "view" section.
type DemoModule struct {
	texture image.Image

	mu      sync.Mutex
	zoom    int
	offsetX int
	offsetY int

	panning      bool
	grabX, grabY int
}

var (
	_ addon.Scroller = (*DemoModule)(nil)
	_ addon.Pointer  = (*DemoModule)(nil)
)

func (m *DemoModule) Name() string     { return "Demo Module" }
func (m *DemoModule) Size() (int, int) { return 250, 60 }
func (m *DemoModule) IconPath() string { return IconPath }
func (m *DemoModule) Tick() error      { return nil }

// View returns the current zoom and offset.
func (m *DemoModule) View() (zoom, offsetX, offsetY int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.zoom, m.offsetX, m.offsetY
}

func (m *DemoModule) LoadConfig(sec addonconfig.Section) error {
	view := sec.Section("view")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zoom = max(view.Int("zoom", 0), 0)
	m.offsetX = view.Int("offset_x", 0)
	m.offsetY = view.Int("offset_y", 0)
	m.clampLocked()
	return nil
}

func (m *DemoModule) SaveConfig(sec addonconfig.Section) error {
	m.mu.Lock()
	zoom, ox, oy := m.zoom, m.offsetX, m.offsetY
	m.mu.Unlock()

	view := sec.Section("view")
	if err := view.Set("zoom", zoom); err != nil {
		return err
	}
	if err := view.Set("offset_x", ox); err != nil {
		return err
	}
	return view.Set("offset_y", oy)
}

// Scroll zooms in on wheel-down and out on wheel-up.
func (m *DemoModule) Scroll(delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zoom = max(m.zoom-delta*zoomStep, 0)
	m.clampLocked()
}

// MousePressed grabs the content under the pointer.
func (m *DemoModule) MousePressed(button, x, y int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panning = true
	m.grabX = x - m.offsetX
	m.grabY = y - m.offsetY
}

// MouseDragged moves the grabbed point under the pointer.
func (m *DemoModule) MouseDragged(button, x, y int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.panning {
		return
	}
	m.offsetX = x - m.grabX
	m.offsetY = y - m.grabY
	m.clampLocked()
}

func (m *DemoModule) MouseReleased(button, x, y int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panning = false
}

// clampLocked keeps the offset inside [-zoom, 0] on both axes.
func (m *DemoModule) clampLocked() {
	m.offsetX = min(max(m.offsetX, -m.zoom), 0)
	m.offsetY = min(max(m.offsetY, -m.zoom), 0)
}

func (m *DemoModule) Paint(dst draw.Image) {
	m.mu.Lock()
	zoom, ox, oy := m.zoom, m.offsetX, m.offsetY
	m.mu.Unlock()

	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(background), image.Point{}, draw.Src)

	side := b.Dy() + zoom
	view := image.Rect(b.Min.X+ox, b.Min.Y+oy, b.Min.X+ox+side, b.Min.Y+oy+side).Intersect(b)
	for y := view.Min.Y; y < view.Max.Y; y++ {
		for x := view.Min.X; x < view.Max.X; x++ {
			// Content coordinates in [0, side).
			cx, cy := x-b.Min.X-ox, y-b.Min.Y-oy
			dst.Set(x, y, m.sample(cx, cy, side))
		}
	}
}

// sample returns the content colour at (cx, cy) of a side x side view,
// scaling the texture with nearest-neighbour lookup.
func (m *DemoModule) sample(cx, cy, side int) color.Color {
	if m.texture == nil {
		tile := max(side/4, 1)
		if (cx/tile+cy/tile)%2 == 0 {
			return tileLight
		}
		return tileDark
	}
	tb := m.texture.Bounds()
	tx := tb.Min.X + cx*tb.Dx()/side
	ty := tb.Min.Y + cy*tb.Dy()/side
	return m.texture.At(tx, ty)
}
