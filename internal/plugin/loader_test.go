package plugin

import (
	"context"
	"errors"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/1broseidon/deskmod/internal/addon"
	"github.com/1broseidon/deskmod/internal/addonconfig"
	"github.com/1broseidon/deskmod/internal/lifecycle"
	"github.com/1broseidon/deskmod/internal/platform"
	"github.com/1broseidon/deskmod/internal/texture"
)

type stubModule struct{}

func (stubModule) Size() (int, int)     { return 20, 10 }
func (stubModule) Tick() error          { return nil }
func (stubModule) Paint(dst draw.Image) {}

type StubAddon struct {
	preErr      error
	initPanic   bool
	sneakyEarly bool
	phases      []string
	closed      int
}

func (a *StubAddon) Close() error {
	a.closed++
	return nil
}

func (a *StubAddon) PreInitialize(s addon.Services) error {
	a.phases = append(a.phases, "pre")
	if a.sneakyEarly {
		if h, ok := s.(addon.Host); ok {
			return h.RegisterModule(stubModule{})
		}
	}
	return a.preErr
}

func (a *StubAddon) Initialize(h addon.Host) error {
	a.phases = append(a.phases, "init")
	if a.initPanic {
		panic("initialize exploded")
	}
	return h.RegisterModule(stubModule{})
}

func (a *StubAddon) OnEnable() error  { return nil }
func (a *StubAddon) OnDisable() error { return nil }

type loaderFixture struct {
	loader  *Loader
	coord   *lifecycle.Coordinator
	backend *platform.Headless
	reg     *Registry
	path    *LoadPath
	store   *addonconfig.Store
}

func newLoaderFixture(t *testing.T) *loaderFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := platform.NewHeadless(nil)
	store := addonconfig.NewStore(filepath.Join(t.TempDir(), "addons"), logger)
	path := &LoadPath{}
	coord := lifecycle.New(lifecycle.Config{Backend: backend, Store: store, Textures: texture.NewLoader(path), Logger: logger})
	reg := NewRegistry()
	loader := NewLoader(LoaderConfig{Registry: reg, LoadPath: path, Coordinator: coord, Logger: logger})
	return &loaderFixture{loader: loader, coord: coord, backend: backend, reg: reg, path: path, store: store}
}

func TestLoadBuiltinEntry(t *testing.T) {
	f := newLoaderFixture(t)
	stub := &StubAddon{}
	f.reg.Register("stub.StubAddon", func() addon.Addon { return stub })

	h, err := f.loader.Load(context.Background(), Builtin("stub.StubAddon"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if h.Name() != "StubAddon" || h.Source() != "builtin" {
		t.Fatalf("handle = %s from %s", h.Name(), h.Source())
	}
	if got := len(h.Modules()); got != 1 {
		t.Fatalf("modules = %d, want 1", got)
	}
	if len(stub.phases) != 2 || stub.phases[0] != "pre" || stub.phases[1] != "init" {
		t.Fatalf("phases = %v, want [pre init]", stub.phases)
	}
	if len(f.coord.Addons()) != 1 || len(f.coord.Modules()) != 1 {
		t.Fatal("addon not published")
	}
}

func TestLoadUnknownEntry(t *testing.T) {
	f := newLoaderFixture(t)
	_, err := f.loader.LoadEntry(context.Background(), "missing.Addon")
	var lerr *LoadError
	if !errors.As(err, &lerr) || !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("LoadEntry() error = %v, want *LoadError wrapping ErrEntryNotFound", err)
	}
}

func TestLoadConstructorPanic(t *testing.T) {
	f := newLoaderFixture(t)
	f.reg.Register("bad.Ctor", func() addon.Addon { panic("no") })

	_, err := f.loader.LoadEntry(context.Background(), "bad.Ctor")
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("LoadEntry() error = %v, want *LoadError", err)
	}
	if len(f.coord.Addons()) != 0 {
		t.Fatal("addon published after constructor panic")
	}
}

func TestLoadInitializationFailuresDiscard(t *testing.T) {
	tests := []struct {
		name  string
		stub  *StubAddon
		phase string
		is    error
	}{
		{name: "pre-initialize error", stub: &StubAddon{preErr: errors.New("nope")}, phase: "pre_initialize"},
		{name: "initialize panic", stub: &StubAddon{initPanic: true}, phase: "initialize"},
		{name: "register during pre-initialize", stub: &StubAddon{sneakyEarly: true}, phase: "pre_initialize", is: lifecycle.ErrRegistrationClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLoaderFixture(t)
			f.reg.Register("stub.StubAddon", func() addon.Addon { return tt.stub })

			_, err := f.loader.LoadEntry(context.Background(), "stub.StubAddon")
			var ierr *InitializationError
			if !errors.As(err, &ierr) || ierr.Phase != tt.phase {
				t.Fatalf("LoadEntry() error = %v, want *InitializationError in %s", err, tt.phase)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("LoadEntry() error = %v, want %v", err, tt.is)
			}
			if len(f.coord.Addons()) != 0 || len(f.coord.Modules()) != 0 {
				t.Fatal("failed addon was published")
			}
			if len(f.backend.Surfaces()) != 0 {
				t.Fatal("failed addon left surfaces behind")
			}
			if tt.stub.closed != 1 {
				t.Fatalf("Close calls = %d, want 1", tt.stub.closed)
			}
		})
	}
}

func TestLoadCancelledContext(t *testing.T) {
	f := newLoaderFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.loader.LoadEntry(ctx, "anything"); !errors.Is(err, context.Canceled) {
		t.Fatalf("LoadEntry() error = %v, want context.Canceled", err)
	}
}

const clockScript = `
local util = require("clock.util")
local clock = {}

function clock.initialize(host)
  local greeting = host.config_get("greeting", "hello")
  host.config_set("greeted", greeting)
  host.register_module({
    id = "clock",
    width = 40,
    height = 20,
    ticks = 0,
    tick = function(self) self.ticks = self.ticks + 1 end,
    paint = function(self, canvas) canvas.fill(0, 0, 4, 4, util.red) end,
  })
end

return clock
`

func TestLoadLuaPackage(t *testing.T) {
	f := newLoaderFixture(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ManifestFile), `{"id":"clock","main":"clock.ClockAddon"}`)
	writeFile(t, filepath.Join(dir, "clock", "ClockAddon.lua"), clockScript)
	writeFile(t, filepath.Join(dir, "clock", "util.lua"), `return { red = 0xff0000 }`)

	cand := Candidate{Location: dir, Manifest: Manifest{ID: "clock", Name: "clock", Main: "clock.ClockAddon"}}
	h, err := f.loader.Load(context.Background(), cand)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !f.path.Mounted(dir) {
		t.Fatal("package not mounted on the load path")
	}
	if h.Name() != "ClockAddon" || h.Source() != dir {
		t.Fatalf("handle = %s from %s", h.Name(), h.Source())
	}

	if got := h.Config().Root().String("greeted", ""); got != "hello" {
		t.Fatalf("greeted = %q, want hello", got)
	}

	mods := h.Modules()
	if len(mods) != 1 || mods[0].Key() != "clock" || !mods[0].Enabled() {
		t.Fatalf("modules = %+v", mods)
	}
	if err := mods[0].Tick(); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if err := mods[0].RequestFrame(); err != nil {
		t.Fatalf("RequestFrame() error = %v", err)
	}

	surfaces := f.backend.Surfaces()
	if len(surfaces) != 1 {
		t.Fatalf("surfaces = %d, want 1", len(surfaces))
	}
	got := surfaces[0].Snapshot().At(1, 1)
	if r, g, b, a := got.RGBA(); r>>8 != 0xff || g != 0 || b != 0 || a>>8 != 0xff {
		t.Fatalf("pixel = %v, want opaque red", got)
	}
	if got := surfaces[0].Snapshot().At(10, 10); got != (color.RGBA{}) {
		t.Fatalf("unpainted pixel = %v, want transparent", got)
	}
}

func TestLoadLuaScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{name: "syntax error", script: `return {`},
		{name: "non-table result", script: `return 42`},
		{name: "runtime error in initialize", script: `return { initialize = function(host) error("bad") end }`},
		{name: "missing module id", script: `return { initialize = function(host) host.register_module({ width = 1, height = 1 }) end }`},
		{name: "zero size module", script: `return { initialize = function(host) host.register_module({ id = "z", width = 0, height = 1 }) end }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLoaderFixture(t)
			f.path.Extend("mem", fstest.MapFS{"broken/Addon.lua": {Data: []byte(tt.script)}})

			_, err := f.loader.LoadEntry(context.Background(), "broken.Addon")
			var ierr *InitializationError
			if !errors.As(err, &ierr) {
				t.Fatalf("LoadEntry() error = %v, want *InitializationError", err)
			}
			if len(f.coord.Addons()) != 0 {
				t.Fatal("broken script was published")
			}
		})
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	r.Register("b.B", func() addon.Addon { return &StubAddon{} })
	r.Register("a.A", func() addon.Addon { return &StubAddon{} })
	if got := r.Names(); len(got) != 2 || got[0] != "a.A" || got[1] != "b.B" {
		t.Fatalf("Names() = %v", got)
	}
	if _, ok := r.Lookup("c.C"); ok {
		t.Fatal("Lookup(c.C) found a factory")
	}
}

const padScript = `
return {
  initialize = function(host)
    host.register_module({
      id = "pad",
      width = 40,
      height = 20,
      px = 0,
      py = 0,
      mouse_dragged = function(self, button, x, y)
        if button == 3 then self.px = x; self.py = y end
      end,
      paint = function(self, canvas) canvas.fill(self.px, self.py, 1, 1, 0x00ff00) end,
    })
  end,
}
`

func TestLuaModuleReceivesPointerDrags(t *testing.T) {
	f := newLoaderFixture(t)
	f.path.Extend("mem", fstest.MapFS{"pad/PadAddon.lua": {Data: []byte(padScript)}})

	h, err := f.loader.LoadEntry(context.Background(), "pad.PadAddon")
	if err != nil {
		t.Fatalf("LoadEntry() error = %v", err)
	}
	s := f.backend.Surfaces()[0]
	b := s.Bounds()
	s.Pan(3, platform.Point{X: b.X, Y: b.Y}, platform.Point{X: b.X + 7, Y: b.Y + 5})

	if err := h.Modules()[0].RequestFrame(); err != nil {
		t.Fatalf("RequestFrame() error = %v", err)
	}
	got := s.Snapshot().At(7, 5)
	if r, g, _, _ := got.RGBA(); r != 0 || g>>8 != 0xff {
		t.Fatalf("pixel = %v, want green at the drag point", got)
	}
}

func TestShutdownClosesLuaState(t *testing.T) {
	f := newLoaderFixture(t)
	f.path.Extend("mem", fstest.MapFS{"pad/PadAddon.lua": {Data: []byte(padScript)}})

	h, err := f.loader.LoadEntry(context.Background(), "pad.PadAddon")
	if err != nil {
		t.Fatalf("LoadEntry() error = %v", err)
	}
	f.coord.Shutdown()
	if h.Impl().(*LuaAddon).L != nil {
		t.Fatal("lua state still open after shutdown")
	}
}
