package plugin

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/1broseidon/deskmod/internal/addon"
	"github.com/1broseidon/deskmod/internal/addonconfig"
)

// LuaAddon is an addon implemented by a script on the load path.
//
// The script returns a table with optional functions pre_initialize(services),
// initialize(host), on_enable() and on_disable(). Modules are tables passed to
// host.register_module with id, width and height fields and optional
// tick(self), paint(self, canvas) and scroll(self, delta) methods.
//
// gopher-lua states are not goroutine-safe; every entry into the state holds mu.
type LuaAddon struct {
	entry string
	name  string
	src   []byte
	fsys  fs.FS

	mu       sync.Mutex
	L        *lua.LState
	table    *lua.LTable
	services addon.Services
	logger   *slog.Logger
	required map[string]lua.LValue
}

var (
	_ addon.Addon = (*LuaAddon)(nil)
	_ addon.Named = (*LuaAddon)(nil)
)

// NewLuaAddon wraps a script. The script does not run until PreInitialize.
func NewLuaAddon(entry string, src []byte, fsys fs.FS) *LuaAddon {
	name := entry
	if i := strings.LastIndex(entry, "."); i >= 0 {
		name = entry[i+1:]
	}
	return &LuaAddon{
		entry:    entry,
		name:     name,
		src:      src,
		fsys:     fsys,
		logger:   slog.Default(),
		required: make(map[string]lua.LValue),
	}
}

// Name is the last segment of the entry point.
func (a *LuaAddon) Name() string { return a.name }

// PreInitialize runs the script and calls its pre_initialize function.
func (a *LuaAddon) PreInitialize(s addon.Services) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.services = s
	a.logger = s.Logger()

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	L.SetGlobal("require", L.NewFunction(a.luaRequire))
	a.L = L

	fn, err := L.Load(bytes.NewReader(a.src), "@"+ScriptPath(a.entry))
	if err != nil {
		return fmt.Errorf("compile %s: %w", ScriptPath(a.entry), err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return fmt.Errorf("run %s: %w", ScriptPath(a.entry), err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return fmt.Errorf("%s must return a table, got %s", ScriptPath(a.entry), ret.Type())
	}
	a.table = tbl

	return a.callField(tbl, "pre_initialize", a.servicesTable())
}

// Initialize calls the script's initialize function with the host table.
func (a *LuaAddon) Initialize(h addon.Host) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.table == nil {
		return errors.New("script not loaded")
	}
	return a.callField(a.table, "initialize", a.hostTable(h))
}

func (a *LuaAddon) OnEnable() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.callField(a.table, "on_enable")
}

func (a *LuaAddon) OnDisable() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.callField(a.table, "on_disable")
}

// Close releases the Lua state. Discarded addons are closed by the host.
func (a *LuaAddon) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.L != nil {
		a.L.Close()
		a.L = nil
	}
	return nil
}

// callField calls tbl[field](args...) if it is a function. Callers hold mu.
func (a *LuaAddon) callField(tbl *lua.LTable, field string, args ...lua.LValue) error {
	if a.L == nil || tbl == nil {
		return nil
	}
	fn := a.L.GetField(tbl, field)
	if fn.Type() != lua.LTFunction {
		return nil
	}
	if err := a.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
		return fmt.Errorf("%s.%s: %w", a.name, field, err)
	}
	return nil
}

// luaRequire loads dotted module names from the load path.
func (a *LuaAddon) luaRequire(L *lua.LState) int {
	name := L.CheckString(1)
	if v, ok := a.required[name]; ok {
		L.Push(v)
		return 1
	}

	path := ScriptPath(name)
	src, err := fs.ReadFile(a.fsys, path)
	if err != nil {
		L.RaiseError("module %q not found on the load path", name)
		return 0
	}
	fn, err := L.Load(bytes.NewReader(src), "@"+path)
	if err != nil {
		L.RaiseError("compile %s: %s", path, err.Error())
		return 0
	}
	L.Push(fn)
	L.Call(0, 1)
	ret := L.Get(-1)
	if ret == lua.LNil {
		L.Pop(1)
		ret = lua.LTrue
		L.Push(ret)
	}
	a.required[name] = ret
	return 1
}

func (a *LuaAddon) servicesTable() *lua.LTable {
	L := a.L
	t := L.NewTable()
	L.SetField(t, "log", L.NewFunction(a.luaLog))
	L.SetField(t, "displays", L.NewFunction(a.luaDisplays))
	return t
}

func (a *LuaAddon) hostTable(h addon.Host) *lua.LTable {
	L := a.L
	t := a.servicesTable()
	cfg := h.Config()

	L.SetField(t, "config_get", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		def := L.Get(2)
		if def == lua.LNil {
			res := cfg.Get(key)
			if !res.Exists() {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(goToLua(L, res.Value()))
			return 1
		}
		v := addonconfig.GetOrDefault[any](cfg, key, luaToGo(def))
		L.Push(goToLua(L, v))
		return 1
	}))

	L.SetField(t, "config_set", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		if err := cfg.Set(key, luaToGo(L.Get(2))); err != nil {
			L.RaiseError("config_set %s: %s", key, err.Error())
		}
		return 0
	}))

	L.SetField(t, "register_module", L.NewFunction(func(L *lua.LState) int {
		def := L.CheckTable(1)
		m, err := a.newModule(def)
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		if err := h.RegisterModule(m); err != nil {
			L.RaiseError("register_module: %s", err.Error())
		}
		return 0
	}))
	return t
}

func (a *LuaAddon) luaLog(L *lua.LState) int {
	msg := L.CheckString(1)
	level := strings.ToLower(L.OptString(2, "info"))
	switch level {
	case "debug":
		a.logger.Debug(msg, "script", a.entry)
	case "warn", "warning":
		a.logger.Warn(msg, "script", a.entry)
	case "error":
		a.logger.Error(msg, "script", a.entry)
	default:
		a.logger.Info(msg, "script", a.entry)
	}
	return 0
}

func (a *LuaAddon) luaDisplays(L *lua.LState) int {
	displays, err := a.services.Displays()
	if err != nil {
		L.RaiseError("displays: %s", err.Error())
		return 0
	}
	out := L.NewTable()
	for _, d := range displays {
		t := L.NewTable()
		t.RawSetString("id", lua.LNumber(d.ID))
		t.RawSetString("name", lua.LString(d.Name))
		t.RawSetString("x", lua.LNumber(d.Bounds.X))
		t.RawSetString("y", lua.LNumber(d.Bounds.Y))
		t.RawSetString("width", lua.LNumber(d.Bounds.Width))
		t.RawSetString("height", lua.LNumber(d.Bounds.Height))
		out.Append(t)
	}
	L.Push(out)
	return 1
}

func (a *LuaAddon) newModule(def *lua.LTable) (*luaModule, error) {
	id, ok := def.RawGetString("id").(lua.LString)
	if !ok || id == "" {
		return nil, errors.New("module id is required")
	}
	width, _ := def.RawGetString("width").(lua.LNumber)
	height, _ := def.RawGetString("height").(lua.LNumber)
	name := string(id)
	if n, ok := def.RawGetString("name").(lua.LString); ok && n != "" {
		name = string(n)
	}
	icon, _ := def.RawGetString("icon").(lua.LString)
	return &luaModule{
		a:      a,
		tbl:    def,
		key:    string(id),
		name:   name,
		width:  int(width),
		height: int(height),
		icon:   string(icon),
	}, nil
}

// luaModule is a module backed by a script table.
type luaModule struct {
	a      *LuaAddon
	tbl    *lua.LTable
	key    string
	name   string
	width  int
	height int
	icon   string
}

var (
	_ addon.Module   = (*luaModule)(nil)
	_ addon.Keyed    = (*luaModule)(nil)
	_ addon.Named    = (*luaModule)(nil)
	_ addon.Iconic   = (*luaModule)(nil)
	_ addon.Scroller = (*luaModule)(nil)
	_ addon.Pointer  = (*luaModule)(nil)
)

func (m *luaModule) ModuleKey() string { return m.key }
func (m *luaModule) Name() string      { return m.name }
func (m *luaModule) Size() (int, int)  { return m.width, m.height }
func (m *luaModule) IconPath() string  { return m.icon }

func (m *luaModule) Tick() error {
	m.a.mu.Lock()
	defer m.a.mu.Unlock()
	return m.a.callField(m.tbl, "tick", m.tbl)
}

func (m *luaModule) Paint(dst draw.Image) {
	m.a.mu.Lock()
	defer m.a.mu.Unlock()
	if m.a.L == nil {
		return
	}
	if err := m.a.callField(m.tbl, "paint", m.tbl, m.a.canvasTable(dst)); err != nil {
		m.a.logger.Debug("lua paint failed", "module", m.key, "error", err)
	}
}

func (m *luaModule) Scroll(delta int) {
	m.a.mu.Lock()
	defer m.a.mu.Unlock()
	if err := m.a.callField(m.tbl, "scroll", m.tbl, lua.LNumber(delta)); err != nil {
		m.a.logger.Warn("lua scroll failed", "module", m.key, "error", err)
	}
}

func (m *luaModule) MousePressed(button, x, y int)  { m.mouse("mouse_pressed", button, x, y) }
func (m *luaModule) MouseDragged(button, x, y int)  { m.mouse("mouse_dragged", button, x, y) }
func (m *luaModule) MouseReleased(button, x, y int) { m.mouse("mouse_released", button, x, y) }

func (m *luaModule) mouse(field string, button, x, y int) {
	m.a.mu.Lock()
	defer m.a.mu.Unlock()
	err := m.a.callField(m.tbl, field, m.tbl, lua.LNumber(button), lua.LNumber(x), lua.LNumber(y))
	if err != nil {
		m.a.logger.Warn("lua mouse handler failed", "module", m.key, "handler", field, "error", err)
	}
}

// canvasTable exposes fill and image drawing on dst. Callers hold mu.
func (a *LuaAddon) canvasTable(dst draw.Image) *lua.LTable {
	L := a.L
	t := L.NewTable()
	b := dst.Bounds()
	t.RawSetString("width", lua.LNumber(b.Dx()))
	t.RawSetString("height", lua.LNumber(b.Dy()))

	L.SetField(t, "fill", L.NewFunction(func(L *lua.LState) int {
		x, y := L.CheckInt(1), L.CheckInt(2)
		w, h := L.CheckInt(3), L.CheckInt(4)
		rgb := L.CheckInt(5)
		alpha := L.OptInt(6, 255)
		c := color.NRGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: uint8(alpha)}
		r := image.Rect(x, y, x+w, y+h).Add(b.Min)
		draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
		return 0
	}))

	L.SetField(t, "image", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		x, y := L.CheckInt(2), L.CheckInt(3)
		img, err := a.services.Textures().Load(name)
		if err != nil {
			L.RaiseError("image %s: %s", name, err.Error())
			return 0
		}
		ib := img.Bounds()
		r := image.Rect(x, y, x+ib.Dx(), y+ib.Dy()).Add(b.Min)
		draw.Draw(dst, r, img, ib.Min, draw.Over)
		return 0
	}))
	return t
}

func luaToGo(v lua.LValue) any {
	switch v := v.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if n := v.MaxN(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, luaToGo(v.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any)
		v.ForEach(func(k, val lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				out[string(ks)] = luaToGo(val)
			}
		})
		return out
	default:
		return nil
	}
}

func goToLua(L *lua.LState, v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case float64:
		return lua.LNumber(v)
	case int:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case []any:
		t := L.NewTable()
		for _, item := range v {
			t.Append(goToLua(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range v {
			t.RawSetString(k, goToLua(L, item))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(v))
	}
}
