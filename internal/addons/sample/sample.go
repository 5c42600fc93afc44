// Package sample is the built-in addon loaded when no packages are found.
package sample

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/1broseidon/deskmod/internal/addon"
	"github.com/1broseidon/deskmod/internal/plugin"
)

// EntryPoint is the registry name of SampleAddon.
const EntryPoint = "sample.SampleAddon"

// IconPath is looked up on the addon load path.
const IconPath = "textures/sample/sample.png"

var background = color.NRGBA{R: 50, G: 50, B: 50, A: 130}

func init() {
	plugin.Register(EntryPoint, New)
}

// New constructs an uninitialized SampleAddon.
func New() addon.Addon { return &SampleAddon{} }

// SampleAddon registers a single SampleModule.
type SampleAddon struct {
	logger *slog.Logger
	module *SampleModule
}

func (a *SampleAddon) PreInitialize(s addon.Services) error {
	a.logger = s.Logger()
	return nil
}

func (a *SampleAddon) Initialize(h addon.Host) error {
	cfg := h.Config()
	if !cfg.Has("flag") {
		if err := cfg.Set("flag", true); err != nil {
			return err
		}
		a.logger.Info("addon started for the first time")
	}

	a.module = &SampleModule{}
	if img, err := h.Textures().Load(IconPath); err == nil {
		a.module.texture = img
	} else {
		a.logger.Debug("sample texture unavailable", "path", IconPath, "error", err)
	}
	return h.RegisterModule(a.module)
}

func (a *SampleAddon) OnEnable() error {
	a.logger.Info("sample addon enabled")
	return nil
}

func (a *SampleAddon) OnDisable() error {
	a.logger.Info("sample addon disabled")
	return nil
}

// SampleModule paints a translucent panel with the sample texture.
type SampleModule struct {
	texture image.Image
}

func (m *SampleModule) Name() string     { return "Sample Module" }
func (m *SampleModule) Size() (int, int) { return 250, 60 }
func (m *SampleModule) IconPath() string { return IconPath }
func (m *SampleModule) Tick() error      { return nil }

func (m *SampleModule) Paint(dst draw.Image) {
	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(background), image.Point{}, draw.Src)
	if m.texture == nil {
		return
	}
	side := b.Dy()
	draw.Draw(dst, image.Rect(b.Min.X, b.Min.Y, b.Min.X+side, b.Min.Y+side), m.texture, m.texture.Bounds().Min, draw.Over)
}
