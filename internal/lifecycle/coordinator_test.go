package lifecycle

import (
	"errors"
	"fmt"
	"image/draw"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/deskmod/internal/addon"
	"github.com/1broseidon/deskmod/internal/addonconfig"
	"github.com/1broseidon/deskmod/internal/platform"
)

type testModule struct {
	key  string
	w, h int

	mu       sync.Mutex
	zoom     int
	scrolled int
	pointer  []string
}

func (m *testModule) ModuleKey() string    { return m.key }
func (m *testModule) Size() (int, int)     { return m.w, m.h }
func (m *testModule) Tick() error          { return nil }
func (m *testModule) Paint(dst draw.Image) {}

func (m *testModule) Scroll(delta int) {
	m.mu.Lock()
	m.scrolled += delta
	m.mu.Unlock()
}

func (m *testModule) MousePressed(button, x, y int)  { m.record("press", button, x, y) }
func (m *testModule) MouseDragged(button, x, y int)  { m.record("drag", button, x, y) }
func (m *testModule) MouseReleased(button, x, y int) { m.record("release", button, x, y) }

func (m *testModule) record(action string, button, x, y int) {
	m.mu.Lock()
	m.pointer = append(m.pointer, fmt.Sprintf("%s %d %d,%d", action, button, x, y))
	m.mu.Unlock()
}

func (m *testModule) LoadConfig(sec addonconfig.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zoom = sec.Section("view").Int("zoom", 1)
	return nil
}

func (m *testModule) SaveConfig(sec addonconfig.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sec.Section("view").Set("zoom", m.zoom)
}

type testAddon struct {
	name      string
	modules   []addon.Module
	enableErr error

	host     addon.Host
	enables  int
	disables int
}

func (a *testAddon) Name() string                         { return a.name }
func (a *testAddon) PreInitialize(s addon.Services) error { return nil }

func (a *testAddon) Initialize(h addon.Host) error {
	a.host = h
	for _, m := range a.modules {
		if err := h.RegisterModule(m); err != nil {
			return err
		}
	}
	return nil
}

func (a *testAddon) OnEnable() error {
	a.enables++
	return a.enableErr
}

func (a *testAddon) OnDisable() error {
	a.disables++
	return nil
}

type fixture struct {
	c       *Coordinator
	backend *platform.Headless
	store   *addonconfig.Store
	dir     string
}

func twoMonitors() []platform.Display {
	return []platform.Display{
		{ID: 0, Name: "left", Bounds: platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
		{ID: 1, Name: "right", Bounds: platform.Rect{X: 1920, Y: 0, Width: 1920, Height: 1080}},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := platform.NewHeadless(twoMonitors())
	store := addonconfig.NewStore(dir, logger)
	c := New(Config{Backend: backend, Store: store, Logger: logger})
	return &fixture{c: c, backend: backend, store: store, dir: dir}
}

// configName is the store key of a testAddon with the given name.
func configName(name string) string {
	return addon.ConfigName(&testAddon{name: name})
}

func (f *fixture) writeConfig(t *testing.T, name, body string) {
	t.Helper()
	path := f.store.Path(configName(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (f *fixture) readConfig(t *testing.T, name string) addonconfig.Section {
	t.Helper()
	doc, err := f.store.Load(configName(name))
	if err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	return doc.Root()
}

func (f *fixture) register(t *testing.T, a *testAddon) *AddonHandle {
	t.Helper()
	h := f.c.NewAddon(a, "")
	if err := a.PreInitialize(h.Services()); err != nil {
		t.Fatalf("PreInitialize: %v", err)
	}
	if err := h.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := a.Initialize(h.Host()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := f.c.Commit(h); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return h
}

func moduleByKey(t *testing.T, h *AddonHandle, key string) *ModuleHandle {
	t.Helper()
	for _, m := range h.Modules() {
		if m.Key() == key {
			return m
		}
	}
	t.Fatalf("module %q not registered", key)
	return nil
}

func TestCommitRestoresPersistedState(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "Sample", `{"modules":{"samplemodule":{"enabled":false,"x":100,"y":50}}}`)
	f.backend.SetPointer(2000, 500)

	a := &testAddon{name: "Sample", modules: []addon.Module{
		&testModule{key: "samplemodule", w: 250, h: 60},
		&testModule{key: "clock", w: 100, h: 40},
	}}
	h := f.register(t, a)

	sample := moduleByKey(t, h, "samplemodule")
	if sample.Enabled() {
		t.Fatal("samplemodule enabled, want disabled")
	}
	if x, y, ok := sample.Position(); !ok || x != 100 || y != 50 {
		t.Fatalf("samplemodule position = (%d,%d,%v), want (100,50,true)", x, y, ok)
	}
	if sample.Surface() != nil {
		t.Fatal("disabled module has a surface")
	}

	clock := moduleByKey(t, h, "clock")
	if !clock.Enabled() {
		t.Fatal("clock disabled, want enabled by default")
	}
	if x, y, _ := clock.Position(); x != 1920+960-50 || y != 540-20 {
		t.Fatalf("clock position = (%d,%d), want centered on right monitor", x, y)
	}
	if a.enables != 1 {
		t.Fatalf("OnEnable calls = %d, want 1", a.enables)
	}
	if got := len(f.backend.Surfaces()); got != 1 {
		t.Fatalf("live surfaces = %d, want 1", got)
	}
}

func TestApplyCascadesOncePerBatch(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "Pair", `{"modules":{"a":{"enabled":false},"b":{"enabled":false}}}`)

	a := &testAddon{name: "Pair", modules: []addon.Module{
		&testModule{key: "a", w: 10, h: 10},
		&testModule{key: "b", w: 10, h: 10},
	}}
	h := f.register(t, a)
	ma, mb := moduleByKey(t, h, "a"), moduleByKey(t, h, "b")

	if err := f.c.Apply(h, []Change{{Module: ma, Enabled: true}, {Module: mb, Enabled: true}}); err != nil {
		t.Fatalf("Apply enable: %v", err)
	}
	if a.enables != 1 || h.ActiveModules() != 2 {
		t.Fatalf("after enable: enables=%d active=%d, want 1/2", a.enables, h.ActiveModules())
	}

	if err := f.c.Apply(h, []Change{{Module: ma, Enabled: false}, {Module: mb, Enabled: false}}); err != nil {
		t.Fatalf("Apply disable: %v", err)
	}
	if a.disables != 1 || h.ActiveModules() != 0 {
		t.Fatalf("after disable: disables=%d active=%d, want 1/0", a.disables, h.ActiveModules())
	}

	root := f.readConfig(t, "Pair")
	for _, key := range []string{"a", "b"} {
		sec := root.Section(addonconfig.ModulesKey).Section(key)
		if sec.Bool("enabled", true) {
			t.Fatalf("%s persisted as enabled", key)
		}
		if !sec.Has("x") || !sec.Has("y") {
			t.Fatalf("%s position not persisted", key)
		}
	}
	if got := len(f.backend.Surfaces()); got != 0 {
		t.Fatalf("live surfaces = %d, want 0", got)
	}
}

func TestSetEnabledIsNoopWhenUnchanged(t *testing.T) {
	f := newFixture(t)
	a := &testAddon{name: "Solo", modules: []addon.Module{&testModule{key: "only", w: 5, h: 5}}}
	h := f.register(t, a)
	m := moduleByKey(t, h, "only")

	if err := f.c.SetEnabled(m, true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if a.enables != 1 {
		t.Fatalf("OnEnable calls = %d, want 1", a.enables)
	}
	if _, err := os.Stat(f.store.Path(configName("Solo"))); !os.IsNotExist(err) {
		t.Fatalf("config written for unchanged module: %v", err)
	}
}

func TestApplyRejectsForeignModule(t *testing.T) {
	f := newFixture(t)
	one := f.register(t, &testAddon{name: "One", modules: []addon.Module{&testModule{key: "m", w: 5, h: 5}}})
	two := f.register(t, &testAddon{name: "Two", modules: []addon.Module{&testModule{key: "m", w: 5, h: 5}}})

	err := f.c.Apply(one, []Change{{Module: moduleByKey(t, two, "m"), Enabled: false}})
	if !errors.Is(err, ErrForeignModule) {
		t.Fatalf("Apply() error = %v, want ErrForeignModule", err)
	}
}

func TestEnableRollsBackOnSaveFailure(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "Fragile", `{"modules":{"widget":{"enabled":false,"x":10,"y":20}}}`)
	a := &testAddon{name: "Fragile", modules: []addon.Module{&testModule{key: "widget", w: 50, h: 50}}}
	h := f.register(t, a)
	m := moduleByKey(t, h, "widget")

	// Replace the addon directory with a plain file so saving fails.
	if err := os.RemoveAll(f.store.Dir(configName("Fragile"))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.store.Dir(configName("Fragile")), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	err := f.c.SetEnabled(m, true)
	var lerr *LifecycleError
	if !errors.As(err, &lerr) || lerr.Module != "widget" {
		t.Fatalf("SetEnabled() error = %v, want *LifecycleError for widget", err)
	}
	if m.Enabled() || m.Surface() != nil {
		t.Fatal("module left enabled after failed save")
	}
	if h.ActiveModules() != 0 || a.enables != 0 {
		t.Fatalf("active=%d enables=%d, want 0/0", h.ActiveModules(), a.enables)
	}
	if got := len(f.backend.Surfaces()); got != 0 {
		t.Fatalf("live surfaces = %d, want 0", got)
	}
}

func TestOnEnableFailureRollsBackBatch(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "Grumpy", `{"modules":{"w":{"enabled":false}}}`)
	a := &testAddon{name: "Grumpy", modules: []addon.Module{&testModule{key: "w", w: 5, h: 5}}}
	h := f.register(t, a)
	m := moduleByKey(t, h, "w")

	a.enableErr = errors.New("refused")
	if err := f.c.SetEnabled(m, true); err == nil {
		t.Fatal("SetEnabled() succeeded, want error")
	}
	if m.Enabled() || h.ActiveModules() != 0 {
		t.Fatal("module enabled after OnEnable failure")
	}
	sec := f.readConfig(t, "Grumpy").Section(addonconfig.ModulesKey).Section("w")
	if sec.Bool("enabled", true) {
		t.Fatal("rollback not persisted")
	}
}

func TestEnableReloadsExternalEdits(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "Edited", `{"modules":{"m":{"enabled":false,"x":1,"y":1}}}`)
	a := &testAddon{name: "Edited", modules: []addon.Module{&testModule{key: "m", w: 20, h: 20}}}
	h := f.register(t, a)
	m := moduleByKey(t, h, "m")

	f.writeConfig(t, "Edited", `{"modules":{"m":{"enabled":false,"x":300,"y":400,"view":{"zoom":3}}}}`)
	if err := f.c.SetEnabled(m, true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if x, y, _ := m.Position(); x != 300 || y != 400 {
		t.Fatalf("position = (%d,%d), want (300,400)", x, y)
	}
	if zoom := m.Impl().(*testModule).zoom; zoom != 3 {
		t.Fatalf("zoom = %d, want 3", zoom)
	}
}

func TestRegisterModuleOutsideInitialize(t *testing.T) {
	f := newFixture(t)
	a := &testAddon{name: "Late"}
	f.register(t, a)

	err := a.host.RegisterModule(&testModule{key: "late", w: 1, h: 1})
	if !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("RegisterModule() error = %v, want ErrRegistrationClosed", err)
	}
}

func TestRegisterModuleValidation(t *testing.T) {
	f := newFixture(t)
	h := f.c.NewAddon(&testAddon{name: "Bad"}, "")
	if err := h.LoadConfig(); err != nil {
		t.Fatal(err)
	}
	host := h.Host()

	if err := host.RegisterModule(&testModule{key: "zero", w: 0, h: 10}); !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("zero width error = %v, want ErrInvalidSize", err)
	}
	if err := host.RegisterModule(&testModule{key: "dup", w: 1, h: 1}); err != nil {
		t.Fatal(err)
	}
	if err := host.RegisterModule(&testModule{key: "DUP", w: 1, h: 1}); !errors.Is(err, ErrDuplicateModule) {
		t.Fatalf("duplicate error = %v, want ErrDuplicateModule", err)
	}
}

func TestDragClampsAndPersists(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "Drag", `{"modules":{"box":{"x":100,"y":50}}}`)
	h := f.register(t, &testAddon{name: "Drag", modules: []addon.Module{&testModule{key: "box", w: 250, h: 60}}})
	m := moduleByKey(t, h, "box")

	surface := m.Surface().(*platform.HeadlessSurface)
	surface.Drag(platform.Point{X: 110, Y: 60}, platform.Point{X: 500, Y: 200}, platform.Point{X: 5000, Y: -300})

	if x, y, _ := m.Position(); x != 3840-250 || y != 0 {
		t.Fatalf("position = (%d,%d), want (%d,0)", x, y, 3840-250)
	}
	if b := surface.Bounds(); b.X != 3840-250 || b.Y != 0 {
		t.Fatalf("surface bounds = %+v", b)
	}
	if !m.RightBound() {
		t.Fatal("RightBound() = false after drag to right edge")
	}

	sec := f.readConfig(t, "Drag").Section(addonconfig.ModulesKey).Section("box")
	if sec.Int("x", 0) != 3840-250 || sec.Int("y", -1) != 0 {
		t.Fatalf("persisted position = (%d,%d)", sec.Int("x", 0), sec.Int("y", -1))
	}
}

func TestScrollReachesModule(t *testing.T) {
	f := newFixture(t)
	h := f.register(t, &testAddon{name: "Wheel", modules: []addon.Module{&testModule{key: "w", w: 10, h: 10}}})
	m := moduleByKey(t, h, "w")

	s := m.Surface().(*platform.HeadlessSurface)
	s.Scroll(1)
	s.Scroll(1)
	s.Scroll(-1)

	if got := m.Impl().(*testModule).scrolled; got != 1 {
		t.Fatalf("scrolled = %d, want 1", got)
	}
}

func TestPointerUsesModuleCoordinates(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "Pad", `{"modules":{"p":{"x":100,"y":50}}}`)
	h := f.register(t, &testAddon{name: "Pad", modules: []addon.Module{&testModule{key: "p", w: 80, h: 40}}})
	m := moduleByKey(t, h, "p")

	m.Surface().(*platform.HeadlessSurface).Pan(3, platform.Point{X: 110, Y: 60}, platform.Point{X: 130, Y: 75})

	want := []string{"press 3 10,10", "drag 3 30,25", "release 3 30,25"}
	got := m.Impl().(*testModule).pointer
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("pointer events = %v, want %v", got, want)
	}
	if x, y, _ := m.Position(); x != 100 || y != 50 {
		t.Fatalf("secondary drag moved the module to (%d,%d)", x, y)
	}
}

func TestPointerIgnoredWhileDisabled(t *testing.T) {
	f := newFixture(t)
	h := f.register(t, &testAddon{name: "Pad", modules: []addon.Module{&testModule{key: "p", w: 80, h: 40}}})
	m := moduleByKey(t, h, "p")
	s := m.Surface().(*platform.HeadlessSurface)

	if err := f.c.SetEnabled(m, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	s.Pan(2, platform.Point{X: 1, Y: 1})
	if got := m.Impl().(*testModule).pointer; len(got) != 0 {
		t.Fatalf("disabled module received %v", got)
	}
}

func TestOnEnableFailureRestoresPositions(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "Grumpy", `{"modules":{"w":{"enabled":false}}}`)
	a := &testAddon{name: "Grumpy", modules: []addon.Module{&testModule{key: "w", w: 5, h: 5}}}
	h := f.register(t, a)
	m := moduleByKey(t, h, "w")

	a.enableErr = errors.New("refused")
	if err := f.c.SetEnabled(m, true); err == nil {
		t.Fatal("SetEnabled() succeeded, want error")
	}
	if _, _, ok := m.Position(); ok {
		t.Fatal("rolled back module kept the position resolved during enable")
	}
	sec := f.readConfig(t, "Grumpy").Section(addonconfig.ModulesKey).Section("w")
	if sec.Has("x") || sec.Has("y") {
		t.Fatal("rollback persisted a position the module never had")
	}

	// A later enable still centers under the pointer.
	a.enableErr = nil
	f.backend.SetPointer(2000, 500)
	if err := f.c.SetEnabled(m, true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if x, y, _ := m.Position(); x != 1920+960-2 || y != 540-2 {
		t.Fatalf("position = (%d,%d), want centered on right monitor", x, y)
	}
}

func TestCommitOnEnableFailureRestoresPositions(t *testing.T) {
	f := newFixture(t)
	a := &testAddon{name: "Early", enableErr: errors.New("refused"), modules: []addon.Module{&testModule{key: "m", w: 4, h: 4}}}
	h := f.register(t, a)
	m := moduleByKey(t, h, "m")

	if m.Enabled() || m.Surface() != nil || h.HasActiveModules() {
		t.Fatal("module left up after OnEnable failure")
	}
	if _, _, ok := m.Position(); ok {
		t.Fatal("position resolved during a failed start was kept")
	}
}

func TestConcurrentToggleAndDrag(t *testing.T) {
	f := newFixture(t)
	a := &testAddon{name: "Busy", modules: []addon.Module{
		&testModule{key: "left", w: 50, h: 50},
		&testModule{key: "right", w: 50, h: 50},
	}}
	h := f.register(t, a)
	mods := []*ModuleHandle{moduleByKey(t, h, "left"), moduleByKey(t, h, "right")}

	// check reads the addon and module state under the package lock order.
	check := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		enabled := 0
		for _, m := range mods {
			m.mu.Lock()
			if (m.surface != nil) != m.enabled {
				t.Errorf("%s: surface=%v enabled=%v", m.key, m.surface != nil, m.enabled)
			}
			if m.enabled {
				enabled++
			}
			m.mu.Unlock()
		}
		if h.active != enabled {
			t.Errorf("active = %d, enabled = %d", h.active, enabled)
		}
		if d := a.enables - a.disables; d != 0 && d != 1 {
			t.Errorf("enables - disables = %d", d)
		}
	}

	const rounds = 100
	var wg sync.WaitGroup
	for i, m := range mods {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				if err := f.c.SetEnabled(m, r%2 == 0); err != nil {
					t.Errorf("SetEnabled(%s): %v", m.key, err)
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				s, ok := m.Surface().(*platform.HeadlessSurface)
				if !ok {
					continue
				}
				b := s.Bounds()
				from := platform.Point{X: b.X + 5, Y: b.Y + 5}
				s.Drag(from, platform.Point{X: from.X + 10*(i+1), Y: from.Y + r%7})
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		check()
		select {
		case <-done:
			check()
			if h.ActiveModules() != 0 || a.enables != a.disables {
				t.Fatalf("final active=%d enables=%d disables=%d", h.ActiveModules(), a.enables, a.disables)
			}
			if got := len(f.backend.Surfaces()); got != 0 {
				t.Fatalf("live surfaces = %d, want 0", got)
			}
			return
		case <-time.After(time.Millisecond):
		}
	}
}

func TestShutdownPersistsAndDisables(t *testing.T) {
	f := newFixture(t)
	a := &testAddon{name: "Bye", modules: []addon.Module{&testModule{key: "m", w: 10, h: 10}}}
	f.register(t, a)

	f.c.Shutdown()

	if a.disables != 1 {
		t.Fatalf("OnDisable calls = %d, want 1", a.disables)
	}
	if got := len(f.backend.Surfaces()); got != 0 {
		t.Fatalf("live surfaces = %d, want 0", got)
	}
	sec := f.readConfig(t, "Bye").Section(addonconfig.ModulesKey).Section("m")
	if !sec.Bool("enabled", false) {
		t.Fatal("shutdown persisted enabled=false, want the pre-shutdown state")
	}
	if sec.Section("view").Int("zoom", 0) != 1 {
		t.Fatal("extension fields not persisted")
	}
}

func TestFindModule(t *testing.T) {
	f := newFixture(t)
	f.register(t, &testAddon{name: "One", modules: []addon.Module{&testModule{key: "shared", w: 1, h: 1}, &testModule{key: "unique", w: 1, h: 1}}})
	f.register(t, &testAddon{name: "Two", modules: []addon.Module{&testModule{key: "shared", w: 1, h: 1}}})

	if m, err := f.c.FindModule("", "UNIQUE"); err != nil || m.Key() != "unique" {
		t.Fatalf("FindModule(unique) = %v, %v", m, err)
	}
	if _, err := f.c.FindModule("", "shared"); !errors.Is(err, ErrAmbiguousModule) {
		t.Fatalf("FindModule(shared) error = %v, want ErrAmbiguousModule", err)
	}
	if m, err := f.c.FindModule("two", "shared"); err != nil || m.Owner().Name() != "Two" {
		t.Fatalf("FindModule(two/shared) = %v, %v", m, err)
	}
	if _, err := f.c.FindModule("", "missing"); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("FindModule(missing) error = %v, want ErrModuleNotFound", err)
	}
}

func TestToggleAllHidesAndRestores(t *testing.T) {
	f := newFixture(t)
	f.writeConfig(t, "Mixed", `{"modules":{"off":{"enabled":false}}}`)
	a := &testAddon{name: "Mixed", modules: []addon.Module{
		&testModule{key: "on", w: 1, h: 1},
		&testModule{key: "off", w: 1, h: 1},
	}}
	h := f.register(t, a)

	if err := f.c.ToggleAll(); err != nil {
		t.Fatalf("ToggleAll hide: %v", err)
	}
	if h.ActiveModules() != 0 || a.disables != 1 {
		t.Fatalf("after hide: active=%d disables=%d", h.ActiveModules(), a.disables)
	}

	if err := f.c.ToggleAll(); err != nil {
		t.Fatalf("ToggleAll restore: %v", err)
	}
	if !moduleByKey(t, h, "on").Enabled() || moduleByKey(t, h, "off").Enabled() {
		t.Fatal("restore did not bring back exactly the hidden modules")
	}
	if a.enables != 2 {
		t.Fatalf("OnEnable calls = %d, want 2", a.enables)
	}
}

func TestTickTargetsCoverAllModules(t *testing.T) {
	f := newFixture(t)
	f.register(t, &testAddon{name: "T", modules: []addon.Module{&testModule{key: "a", w: 1, h: 1}, &testModule{key: "b", w: 1, h: 1}}})

	targets := f.c.TickTargets()
	if len(targets) != 2 {
		t.Fatalf("TickTargets() = %d, want 2", len(targets))
	}
	for _, tg := range targets {
		if !tg.TickActive() {
			t.Fatalf("%s inactive", tg.TickName())
		}
		if err := tg.RequestFrame(); err != nil {
			t.Fatalf("RequestFrame(%s): %v", tg.TickName(), err)
		}
	}
}
