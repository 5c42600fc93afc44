// Package host assembles the running deskmod process: addon discovery and
// loading, the tick scheduler, the control socket and the toggle hotkey.
package host

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/deskmod/internal/addonconfig"
	"github.com/1broseidon/deskmod/internal/addons/sample"
	"github.com/1broseidon/deskmod/internal/config"
	"github.com/1broseidon/deskmod/internal/hotkeys"
	"github.com/1broseidon/deskmod/internal/ipc"
	"github.com/1broseidon/deskmod/internal/lifecycle"
	"github.com/1broseidon/deskmod/internal/platform"
	"github.com/1broseidon/deskmod/internal/plugin"
	"github.com/1broseidon/deskmod/internal/texture"
	"github.com/1broseidon/deskmod/internal/tick"
)

// Options configures a Host.
type Options struct {
	Config  *config.Config
	Backend platform.Backend
	// Preload is an entry point loaded before the package scan.
	Preload string
	// Registry and LoadPath default to the process globals.
	Registry *plugin.Registry
	LoadPath *plugin.LoadPath
	// SocketPath overrides the control socket location.
	SocketPath string
	// DisableIPC skips the control socket.
	DisableIPC bool
	Logger     *slog.Logger
}

// eventLooper is implemented by backends that own a blocking event loop.
type eventLooper interface {
	EventLoop()
	Quit()
}

// Host owns every long-running component of the process.
type Host struct {
	cfg     *config.Config
	backend platform.Backend
	preload string
	logger  *slog.Logger

	coord     *lifecycle.Coordinator
	loader    *plugin.Loader
	scheduler *tick.Scheduler

	socketPath string
	disableIPC bool

	stopOnce sync.Once
	stop     chan struct{}
}

// New wires a host without starting anything.
func New(opts Options) (*Host, error) {
	if opts.Config == nil {
		return nil, errors.New("host: config is required")
	}
	if opts.Backend == nil {
		return nil, errors.New("host: backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	path := opts.LoadPath
	if path == nil {
		path = plugin.Global
	}

	coord := lifecycle.New(lifecycle.Config{
		Backend:  opts.Backend,
		Store:    addonconfig.NewStore(opts.Config.AddonsDir, logger),
		Textures: texture.NewLoader(path),
		Logger:   logger,
	})
	loader := plugin.NewLoader(plugin.LoaderConfig{
		Registry:    opts.Registry,
		LoadPath:    path,
		Coordinator: coord,
		Logger:      logger,
	})
	scheduler := tick.NewScheduler(tick.Config{Rate: opts.Config.TickRate, Logger: logger}, coord)

	return &Host{
		cfg:        opts.Config,
		backend:    opts.Backend,
		preload:    opts.Preload,
		logger:     logger,
		coord:      coord,
		loader:     loader,
		scheduler:  scheduler,
		socketPath: opts.SocketPath,
		disableIPC: opts.DisableIPC,
		stop:       make(chan struct{}),
	}, nil
}

// Coordinator returns the lifecycle coordinator.
func (h *Host) Coordinator() *lifecycle.Coordinator { return h.coord }

// Scheduler returns the tick scheduler.
func (h *Host) Scheduler() *tick.Scheduler { return h.scheduler }

// LoadAddons preloads the configured entry point, scans packages_dir and
// loads every candidate on a bounded worker pool. Packages are mounted
// serially in scan order first, so duplicate entry points resolve to the
// last package. Failures are logged and skipped.
func (h *Host) LoadAddons(ctx context.Context) {
	start := time.Now()

	if h.preload != "" {
		if _, err := h.loader.LoadEntry(ctx, h.preload); err != nil {
			h.logger.Error("failed to preload addon", "entry", h.preload, "error", err)
		}
	}

	candidates, errs := plugin.Scan(h.cfg.PackagesDir)
	for _, err := range errs {
		h.logger.Warn("skipping addon package", "error", err)
	}
	if len(candidates) == 0 && h.preload == "" {
		h.logger.Info("no addon packages found, loading sample addon", "dir", h.cfg.PackagesDir)
		candidates = []plugin.Candidate{plugin.Builtin(sample.EntryPoint)}
	}

	mounted := candidates[:0:0]
	for _, c := range candidates {
		if err := h.loader.Mount(c); err != nil {
			h.logger.Error("failed to mount addon package", "error", err)
			continue
		}
		mounted = append(mounted, c)
	}

	pool := plugin.NewPool(ctx, h.cfg.LoadWorkers, h.logger)
	for _, c := range mounted {
		name := c.Manifest.ID
		if name == "" {
			name = c.Manifest.Main
		}
		pool.Go(name, func(ctx context.Context) error {
			_, err := h.loader.Load(ctx, c)
			return err
		})
	}
	pool.Wait()

	h.logger.Info("addons loaded",
		"addons", len(h.coord.Addons()),
		"modules", len(h.coord.Modules()),
		"duration", time.Since(start).Round(time.Millisecond))
}

// Stop asks a running Run to return. It is safe to call more than once.
func (h *Host) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Run starts the background components, loads addons alongside them and
// blocks until ctx is cancelled or Stop is called. Modules tick as soon as
// their addon commits. Addon state is persisted before it returns.
func (h *Host) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var server *ipc.Server
	if !h.disableIPC {
		var err error
		server, err = ipc.NewServer(ipc.ServerConfig{
			SocketPath:  h.socketPath,
			Coordinator: h.coord,
			Backend:     h.backend,
			Shutdown:    h.Stop,
			Logger:      h.logger,
		})
		if err != nil {
			h.coord.Shutdown()
			return err
		}
		if err := server.Start(); err != nil {
			h.coord.Shutdown()
			return err
		}
	}

	keys := hotkeys.NewHandler(h.backend, h.coord, h.logger)
	if err := keys.RegisterToggle(h.cfg.ToggleHotkey); err != nil {
		if errors.Is(err, hotkeys.ErrUnsupported) {
			h.logger.Debug("toggle hotkey unavailable", "error", err)
		} else {
			h.logger.Warn("toggle hotkey not registered", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.scheduler.Run(gctx)
		return nil
	})
	looper, hasLoop := h.backend.(eventLooper)
	if hasLoop {
		g.Go(func() error {
			looper.EventLoop()
			return nil
		})
	}
	g.Go(func() error {
		h.LoadAddons(gctx)
		return nil
	})

	h.logger.Info("deskmod running", "tick_interval", h.scheduler.Interval())

	select {
	case <-ctx.Done():
	case <-h.stop:
	}

	h.logger.Info("shutting down")
	if server != nil {
		server.Stop()
	}
	cancel()
	if hasLoop {
		looper.Quit()
	}
	if err := g.Wait(); err != nil {
		h.logger.Warn("background task failed", "error", err)
	}
	h.coord.Shutdown()
	return nil
}
