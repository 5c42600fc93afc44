package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/deskmod/internal/ipc"
	"github.com/1broseidon/deskmod/internal/lifecycle"
)

type fakeClient struct {
	down    bool
	modules []lifecycle.ModuleInfo
	hidden  []int
}

func (f *fakeClient) GetStatus() (*ipc.StatusData, error) {
	if f.down {
		return nil, errors.New("failed to connect to host")
	}
	return &ipc.StatusData{Addons: 1, Modules: len(f.modules), Running: true}, nil
}

func (f *fakeClient) ListModules() ([]lifecycle.ModuleInfo, error) {
	out := make([]lifecycle.ModuleInfo, len(f.modules))
	copy(out, f.modules)
	return out, nil
}

func (f *fakeClient) SetModuleEnabled(addon, module string, enabled bool) (*lifecycle.ModuleInfo, error) {
	for i := range f.modules {
		if f.modules[i].Addon == addon && f.modules[i].Key == module {
			f.modules[i].Enabled = enabled
			info := f.modules[i]
			return &info, nil
		}
	}
	return nil, errors.New("module not found")
}

func (f *fakeClient) ToggleAll() ([]lifecycle.ModuleInfo, error) {
	if f.hidden == nil {
		f.hidden = []int{}
		for i := range f.modules {
			if f.modules[i].Enabled {
				f.modules[i].Enabled = false
				f.hidden = append(f.hidden, i)
			}
		}
	} else {
		for _, i := range f.hidden {
			f.modules[i].Enabled = true
		}
		f.hidden = nil
	}
	return f.ListModules()
}

func newFake() *fakeClient {
	return &fakeClient{modules: []lifecycle.ModuleInfo{
		{Addon: "sampleaddon", Key: "samplemodule", Name: "Sample Module", Enabled: true, Width: 250, Height: 60},
		{Addon: "demoaddon", Key: "demomodule", Name: "Demo Module", Enabled: false, Width: 250, Height: 60},
	}}
}

func sized(t *testing.T, c Client) model {
	t.Helper()
	next, _ := newModel(c).Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(model)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModelLoadsModules(t *testing.T) {
	m := sized(t, newFake())
	if !m.connected {
		t.Fatal("expected connected model")
	}
	if len(m.modules) != 2 || m.shown() != 1 {
		t.Fatalf("modules = %d shown = %d, want 2 and 1", len(m.modules), m.shown())
	}
	if view := m.View(); !strings.Contains(view, "shown:1/2") {
		t.Fatalf("status bar missing counts:\n%s", view)
	}
}

func TestEnterTogglesSelectedModule(t *testing.T) {
	fake := newFake()
	m := sized(t, fake)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if cmd == nil {
		t.Fatal("expected a status timeout command")
	}
	if fake.modules[0].Enabled {
		t.Fatal("first module still enabled on the host")
	}
	if m.modules[0].Enabled {
		t.Fatal("model not updated")
	}
	if m.message != "Sample Module: hidden" {
		t.Fatalf("message = %q", m.message)
	}
}

func TestToggleAllRoundTrip(t *testing.T) {
	fake := newFake()
	m := sized(t, fake)

	next, _ := m.Update(key("t"))
	m = next.(model)
	if m.shown() != 0 {
		t.Fatalf("shown after first toggle = %d, want 0", m.shown())
	}

	next, _ = m.Update(key("t"))
	m = next.(model)
	if m.shown() != 1 || !m.modules[0].Enabled || m.modules[1].Enabled {
		t.Fatalf("second toggle did not restore the hidden set: %+v", m.modules)
	}
}

func TestDisconnectedHost(t *testing.T) {
	m := sized(t, &fakeClient{down: true})
	if m.connected {
		t.Fatal("expected disconnected model")
	}

	next, _ := m.Update(key("t"))
	m = next.(model)
	if m.message != "host not connected" {
		t.Fatalf("message = %q", m.message)
	}
	if view := m.View(); !strings.Contains(view, "host not running") {
		t.Fatalf("view missing disconnected status:\n%s", view)
	}
}

func TestClearStatusAndQuit(t *testing.T) {
	m := sized(t, newFake())
	m.message = "refreshed"

	next, _ := m.Update(clearStatusMsg{})
	m = next.(model)
	if m.message != "" {
		t.Fatalf("message = %q, want empty", m.message)
	}

	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Fatal("q should return a quit command")
	}
}
