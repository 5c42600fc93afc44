// Package tui is an interactive module manager for a running host.
package tui

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/1broseidon/deskmod/internal/ipc"
	"github.com/1broseidon/deskmod/internal/lifecycle"
)

// Client is the part of the control socket the manager needs.
type Client interface {
	GetStatus() (*ipc.StatusData, error)
	ListModules() ([]lifecycle.ModuleInfo, error)
	SetModuleEnabled(addon, module string, enabled bool) (*lifecycle.ModuleInfo, error)
	ToggleAll() ([]lifecycle.ModuleInfo, error)
}

// clearStatusMsg clears the status message after a delay.
type clearStatusMsg struct{}

const statusTimeout = 3 * time.Second

// model is the root bubbletea model.
type model struct {
	client Client
	list   list.Model

	connected bool
	addons    int
	modules   []lifecycle.ModuleInfo
	message   string

	width  int
	height int
}

func newModel(client Client) model {
	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Modules"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	m := model{client: client, list: l}
	m.refresh()
	return m
}

// Run starts the manager on the current terminal.
func Run(client Client) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("tui requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	if client == nil {
		client = ipc.NewClient()
	}
	_, err := tea.NewProgram(newModel(client), tea.WithAltScreen()).Run()
	return err
}

func (m *model) refresh() {
	status, err := m.client.GetStatus()
	if err != nil {
		m.connected = false
		m.addons = 0
		m.setModules(nil)
		return
	}
	modules, err := m.client.ListModules()
	if err != nil {
		m.connected = false
		m.message = fmt.Sprintf("error: %v", err)
		return
	}
	m.connected = true
	m.addons = status.Addons
	m.setModules(modules)
}

func (m *model) setModules(modules []lifecycle.ModuleInfo) {
	m.modules = modules
	m.list.SetItems(buildItems(modules))
}

func (m model) shown() int {
	n := 0
	for _, mod := range m.modules {
		if mod.Enabled {
			n++
		}
	}
	return n
}

func (m model) selected() (lifecycle.ModuleInfo, bool) {
	item, ok := m.list.SelectedItem().(moduleItem)
	if !ok {
		return lifecycle.ModuleInfo{}, false
	}
	return item.info, true
}

func (m *model) flash(text string) tea.Cmd {
	m.message = text
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func (m model) toggleSelected() (model, tea.Cmd) {
	info, ok := m.selected()
	if !ok {
		return m, nil
	}
	if !m.connected {
		return m, m.flash("host not connected")
	}
	updated, err := m.client.SetModuleEnabled(info.Addon, info.Key, !info.Enabled)
	if err != nil {
		return m, m.flash(fmt.Sprintf("error: %v", err))
	}
	modules := make([]lifecycle.ModuleInfo, len(m.modules))
	copy(modules, m.modules)
	for i := range modules {
		if modules[i].Addon == updated.Addon && modules[i].Key == updated.Key {
			modules[i] = *updated
		}
	}
	m.setModules(modules)

	state := "hidden"
	if updated.Enabled {
		state = "shown"
	}
	return m, m.flash(fmt.Sprintf("%s: %s", updated.Name, state))
}

func (m model) toggleAll() (model, tea.Cmd) {
	if !m.connected {
		return m, m.flash("host not connected")
	}
	modules, err := m.client.ToggleAll()
	if err != nil {
		return m, m.flash(fmt.Sprintf("error: %v", err))
	}
	m.setModules(modules)
	return m, m.flash(fmt.Sprintf("%d of %d modules shown", m.shown(), len(modules)))
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			return m.toggleSelected()
		case "t":
			return m.toggleAll()
		case "r":
			m.refresh()
			if !m.connected {
				return m, m.flash("host not running")
			}
			return m, m.flash("refreshed")
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := m.height - 2
		if h < 1 {
			h = 1
		}
		m.list.SetSize(m.width, h)
		return m, nil

	case clearStatusMsg:
		m.message = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.connected, m.addons, m.shown(), len(m.modules), m.width)
	helpBar := renderHelpBar(m.message, m.width)

	var content string
	if len(m.modules) == 0 {
		msg := "no modules registered"
		if !m.connected {
			msg = "start the host with 'deskmod run'"
		}
		content = lipgloss.NewStyle().
			Width(m.width).
			Height(m.height-lipgloss.Height(statusBar)-lipgloss.Height(helpBar)).
			Foreground(lipgloss.Color("241")).
			Align(lipgloss.Center, lipgloss.Center).
			Render(titleStyle.Render("deskmod") + "\n\n" + msg)
	} else {
		content = m.list.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, statusBar, content, helpBar)
}
