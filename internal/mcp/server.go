// Package mcp exposes the running host to MCP clients over stdio. Every tool
// is a thin call through the host control socket.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/deskmod/internal/ipc"
	"github.com/1broseidon/deskmod/internal/lifecycle"
)

const (
	ServerName    = "deskmod"
	ServerVersion = "0.1.0"
)

// Control is the subset of the IPC client the tools use.
type Control interface {
	GetStatus() (*ipc.StatusData, error)
	ListAddons() ([]ipc.AddonInfo, error)
	ListModules() ([]lifecycle.ModuleInfo, error)
	SetModuleEnabled(addonName, module string, enabled bool) (*lifecycle.ModuleInfo, error)
	ToggleAll() ([]lifecycle.ModuleInfo, error)
	GetMonitors() (*ipc.MonitorsData, error)
}

// Server is the MCP server for deskmod.
type Server struct {
	mcpServer *mcpsdk.Server
	control   Control
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards to control. A nil control
// uses the default IPC socket.
func NewServer(control Control, logger *slog.Logger) *Server {
	if control == nil {
		control = ipc.NewClient()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{control: control, logger: logger}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "host_status",
		Description: "Report whether the deskmod host is running and how many addons and modules it has loaded.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_addons",
		Description: "List loaded addons with their package source, module keys and number of shown modules.",
	}, s.handleListAddons)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_modules",
		Description: "List overlay modules with their owner, size, position and whether they are shown.",
	}, s.handleListModules)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_module_enabled",
		Description: "Show or hide one overlay module. The change is persisted in the owning addon's config.",
	}, s.handleSetModuleEnabled)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "toggle_all",
		Description: "Hide every shown module, or restore the modules hidden by the previous toggle.",
	}, s.handleToggleAll)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List the monitors the host places modules on.",
	}, s.handleListMonitors)
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, ipc.StatusData, error) {
	status, err := s.control.GetStatus()
	if err != nil {
		return nil, ipc.StatusData{}, err
	}
	return nil, *status, nil
}

func (s *Server) handleListAddons(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListAddonsInput) (*mcpsdk.CallToolResult, ListAddonsOutput, error) {
	addons, err := s.control.ListAddons()
	if err != nil {
		return nil, ListAddonsOutput{}, err
	}
	if addons == nil {
		addons = []ipc.AddonInfo{}
	}
	return nil, ListAddonsOutput{Addons: addons}, nil
}

func (s *Server) handleListModules(_ context.Context, _ *mcpsdk.CallToolRequest, args ListModulesInput) (*mcpsdk.CallToolResult, ListModulesOutput, error) {
	modules, err := s.control.ListModules()
	if err != nil {
		return nil, ListModulesOutput{}, err
	}

	out := make([]lifecycle.ModuleInfo, 0, len(modules))
	for _, m := range modules {
		if args.Addon != "" && !strings.EqualFold(m.Addon, args.Addon) {
			continue
		}
		if args.EnabledOnly && !m.Enabled {
			continue
		}
		out = append(out, m)
	}
	return nil, ListModulesOutput{Modules: out}, nil
}

func (s *Server) handleSetModuleEnabled(_ context.Context, _ *mcpsdk.CallToolRequest, args SetModuleEnabledInput) (*mcpsdk.CallToolResult, SetModuleEnabledOutput, error) {
	module := strings.TrimSpace(args.Module)
	if module == "" {
		return nil, SetModuleEnabledOutput{}, fmt.Errorf("module is required")
	}

	info, err := s.control.SetModuleEnabled(strings.TrimSpace(args.Addon), module, args.Enabled)
	if err != nil {
		return nil, SetModuleEnabledOutput{}, err
	}
	s.logger.Info("module updated via MCP", "addon", info.Addon, "module", info.Key, "enabled", info.Enabled)
	return nil, SetModuleEnabledOutput{Module: *info}, nil
}

func (s *Server) handleToggleAll(_ context.Context, _ *mcpsdk.CallToolRequest, _ ToggleAllInput) (*mcpsdk.CallToolResult, ListModulesOutput, error) {
	modules, err := s.control.ToggleAll()
	if err != nil {
		return nil, ListModulesOutput{}, err
	}
	if modules == nil {
		modules = []lifecycle.ModuleInfo{}
	}
	return nil, ListModulesOutput{Modules: modules}, nil
}

func (s *Server) handleListMonitors(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListMonitorsInput) (*mcpsdk.CallToolResult, ListMonitorsOutput, error) {
	data, err := s.control.GetMonitors()
	if err != nil {
		return nil, ListMonitorsOutput{}, err
	}
	monitors := data.Monitors
	if monitors == nil {
		monitors = []ipc.MonitorInfo{}
	}
	return nil, ListMonitorsOutput{Monitors: monitors}, nil
}
