// Package plugin discovers addon packages and turns them into registered
// addons.
//
// Entry points resolve against the static Registry first and then against
// Lua scripts on the load path. Loading is two-phase: PreInitialize sees only
// host services, Initialize sees the loaded config document and registers
// modules. An addon is published only after both succeed.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/1broseidon/deskmod/internal/addon"
	"github.com/1broseidon/deskmod/internal/lifecycle"
)

// LoaderConfig wires a Loader.
type LoaderConfig struct {
	Registry    *Registry
	LoadPath    *LoadPath
	Coordinator *lifecycle.Coordinator
	Logger      *slog.Logger
}

// Loader resolves, constructs and initializes addons.
type Loader struct {
	registry *Registry
	path     *LoadPath
	coord    *lifecycle.Coordinator
	logger   *slog.Logger
}

// NewLoader creates a loader. Nil registry and load path use the globals.
func NewLoader(cfg LoaderConfig) *Loader {
	l := &Loader{
		registry: cfg.Registry,
		path:     cfg.LoadPath,
		coord:    cfg.Coordinator,
		logger:   cfg.Logger,
	}
	if l.registry == nil {
		l.registry = DefaultRegistry
	}
	if l.path == nil {
		l.path = Global
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// LoadPath returns the search path the loader mounts packages on.
func (l *Loader) LoadPath() *LoadPath { return l.path }

// Mount adds the candidate's package to the load path. Built-in candidates
// are ignored. Mounting is irreversible.
func (l *Loader) Mount(c Candidate) error {
	if c.Location == "" || l.path.Mounted(c.Location) {
		return nil
	}
	fsys, err := c.Open()
	if err != nil {
		return &LoadError{Entry: c.Manifest.Main, Source: c.Location, Err: fmt.Errorf("open package: %w", err)}
	}
	if l.path.Extend(c.Location, fsys) {
		l.logger.Debug("package mounted", "package", c.Location, "id", c.Manifest.ID)
	}
	return nil
}

// Load mounts the candidate and loads its entry point.
func (l *Loader) Load(ctx context.Context, c Candidate) (*lifecycle.AddonHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.Mount(c); err != nil {
		return nil, err
	}
	source := c.Location
	if source == "" {
		source = "builtin"
	}
	return l.load(c.Manifest.Main, source)
}

// LoadEntry loads an entry point that is already reachable, either built in
// or on the load path.
func (l *Loader) LoadEntry(ctx context.Context, entry string) (*lifecycle.AddonHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.load(entry, "")
}

func (l *Loader) load(entry, source string) (*lifecycle.AddonHandle, error) {
	factory, where, err := l.resolve(entry)
	if err != nil {
		return nil, &LoadError{Entry: entry, Source: source, Err: err}
	}
	if source == "" {
		source = where
	}

	impl, err := construct(factory)
	if err != nil {
		return nil, &LoadError{Entry: entry, Source: source, Err: err}
	}

	h := l.coord.NewAddon(impl, source)
	logger := l.logger.With("addon", h.Name(), "entry", entry)

	if err := runPhase(func() error { return impl.PreInitialize(h.Services()) }); err != nil {
		l.coord.Discard(h)
		return nil, &InitializationError{Addon: h.Name(), Phase: "pre_initialize", Err: err}
	}

	if err := h.LoadConfig(); err != nil {
		logger.Warn("addon config unusable, starting from an empty document", "error", err)
	}

	if err := runPhase(func() error { return impl.Initialize(h.Host()) }); err != nil {
		l.coord.Discard(h)
		return nil, &InitializationError{Addon: h.Name(), Phase: "initialize", Err: err}
	}

	if err := l.coord.Commit(h); err != nil {
		l.coord.Discard(h)
		return nil, &InitializationError{Addon: h.Name(), Phase: "commit", Err: err}
	}

	logger.Info("addon loaded", "source", source)
	return h, nil
}

// resolve finds a factory for entry and reports where it came from.
func (l *Loader) resolve(entry string) (Factory, string, error) {
	if f, ok := l.registry.Lookup(entry); ok {
		return f, "builtin", nil
	}

	script := ScriptPath(entry)
	root, ok := l.path.Locate(script)
	if !ok {
		return nil, "", fmt.Errorf("%w: no factory and no %s on the load path", ErrEntryNotFound, script)
	}
	src, err := fs.ReadFile(l.path, script)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", script, err)
	}
	return func() addon.Addon {
		return NewLuaAddon(entry, src, l.path)
	}, root, nil
}

func construct(f Factory) (a addon.Addon, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor panic: %v", r)
		}
	}()
	a = f()
	if a == nil {
		return nil, errors.New("factory returned nil")
	}
	return a, nil
}

func runPhase(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
