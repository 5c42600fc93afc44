package ipc

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/deskmod/internal/addonconfig"
	"github.com/1broseidon/deskmod/internal/addons/sample"
	"github.com/1broseidon/deskmod/internal/lifecycle"
	"github.com/1broseidon/deskmod/internal/platform"
	"github.com/1broseidon/deskmod/internal/plugin"
)

type fixture struct {
	coord    *lifecycle.Coordinator
	backend  *platform.Headless
	client   *Client
	shutdown chan struct{}
}

func startServer(t *testing.T) *fixture {
	t.Helper()

	// Unix socket paths are length-limited; keep it short.
	sockDir, err := os.MkdirTemp("", "dm")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(sockDir) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := platform.NewHeadless([]platform.Display{
		{ID: 0, Name: "left", Bounds: platform.Rect{Width: 1920, Height: 1080}},
		{ID: 1, Name: "right", Bounds: platform.Rect{X: 1920, Width: 2560, Height: 1440}},
	})
	coord := lifecycle.New(lifecycle.Config{
		Backend: backend,
		Store:   addonconfig.NewStore(t.TempDir(), logger),
		Logger:  logger,
	})
	loader := plugin.NewLoader(plugin.LoaderConfig{Coordinator: coord, LoadPath: &plugin.LoadPath{}, Logger: logger})
	if _, err := loader.LoadEntry(context.Background(), sample.EntryPoint); err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}

	shutdown := make(chan struct{}, 1)
	srv, err := NewServer(ServerConfig{
		SocketPath:  filepath.Join(sockDir, "d.sock"),
		Coordinator: coord,
		Backend:     backend,
		Shutdown:    func() { shutdown <- struct{}{} },
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)

	info, err := os.Stat(srv.SocketPath())
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("socket mode = %o, want 600", perm)
	}

	return &fixture{coord: coord, backend: backend, client: NewClientAt(srv.SocketPath()), shutdown: shutdown}
}

func TestStatusAndListings(t *testing.T) {
	f := startServer(t)

	status, err := f.client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.Running || status.Addons != 1 || status.Modules != 1 || status.EnabledModules != 1 {
		t.Fatalf("status = %+v", status)
	}

	addons, err := f.client.ListAddons()
	if err != nil {
		t.Fatalf("ListAddons: %v", err)
	}
	if len(addons) != 1 || addons[0].Name != "SampleAddon" || addons[0].Source != "builtin" {
		t.Fatalf("addons = %+v", addons)
	}
	if !addons[0].Enabled || addons[0].ActiveModules != 1 {
		t.Fatalf("addon activity = %+v, want enabled with 1 active module", addons[0])
	}

	modules, err := f.client.ListModules()
	if err != nil {
		t.Fatalf("ListModules: %v", err)
	}
	if len(modules) != 1 || modules[0].Key != "samplemodule" || modules[0].Width != 250 {
		t.Fatalf("modules = %+v", modules)
	}

	monitors, err := f.client.GetMonitors()
	if err != nil {
		t.Fatalf("GetMonitors: %v", err)
	}
	if len(monitors.Monitors) != 2 || monitors.Monitors[1].X != 1920 {
		t.Fatalf("monitors = %+v", monitors)
	}
}

func TestSetModuleEnabled(t *testing.T) {
	f := startServer(t)

	info, err := f.client.SetModuleEnabled("", "SampleModule", false)
	if err != nil {
		t.Fatalf("SetModuleEnabled: %v", err)
	}
	if info.Enabled {
		t.Fatalf("module still enabled: %+v", info)
	}
	if got := len(f.backend.Surfaces()); got != 0 {
		t.Fatalf("live surfaces = %d, want 0", got)
	}

	info, err = f.client.SetModuleEnabled("sampleaddon", "samplemodule", true)
	if err != nil {
		t.Fatalf("SetModuleEnabled: %v", err)
	}
	if !info.Enabled || !info.HasPosition {
		t.Fatalf("module = %+v", info)
	}

	_, err = f.client.SetModuleEnabled("", "clock", true)
	if err == nil || !strings.Contains(err.Error(), "module not found") {
		t.Fatalf("err = %v, want module not found", err)
	}
}

func TestToggleAll(t *testing.T) {
	f := startServer(t)

	modules, err := f.client.ToggleAll()
	if err != nil {
		t.Fatalf("ToggleAll: %v", err)
	}
	if modules[0].Enabled {
		t.Fatal("first toggle should hide the module")
	}

	modules, err = f.client.ToggleAll()
	if err != nil {
		t.Fatalf("ToggleAll: %v", err)
	}
	if !modules[0].Enabled {
		t.Fatal("second toggle should restore the module")
	}
}

func TestShutdownInvokesCallback(t *testing.T) {
	f := startServer(t)

	if err := f.client.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case <-f.shutdown:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback not invoked")
	}
}

func TestUnknownCommand(t *testing.T) {
	f := startServer(t)

	_, err := f.client.sendRequest(&Request{Command: "REBOOT"})
	if err == nil || !strings.Contains(err.Error(), "Unknown command") {
		t.Fatalf("err = %v, want unknown command", err)
	}
}

func TestClientWithoutServer(t *testing.T) {
	c := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	if err := c.Ping(); err == nil || !strings.Contains(err.Error(), "is deskmod running?") {
		t.Fatalf("Ping err = %v", err)
	}
}
