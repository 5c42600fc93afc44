package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/deskmod/internal/lifecycle"
	"github.com/1broseidon/deskmod/internal/platform"
	"github.com/1broseidon/deskmod/internal/runtimepath"
)

// ServerConfig wires a Server to the running host.
type ServerConfig struct {
	// SocketPath defaults to runtimepath.SocketPath().
	SocketPath  string
	Coordinator *lifecycle.Coordinator
	Backend     platform.Backend
	// Shutdown is invoked after a SHUTDOWN response has been written.
	Shutdown func()
	Logger   *slog.Logger
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	coord        *lifecycle.Coordinator
	backend      platform.Backend
	shutdown     func()
	logger       *slog.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(cfg ServerConfig) (*Server, error) {
	socketPath := cfg.SocketPath
	if socketPath == "" {
		var err error
		socketPath, err = runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		coord:      cfg.Coordinator,
		backend:    cfg.Backend,
		shutdown:   cfg.Shutdown,
		logger:     logger,
		startTime:  time.Now(),
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// One JSON request per line.
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal IPC response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send IPC response", "error", err)
	}

	if req.Command == CommandShutdown && resp.Status == "OK" && s.shutdown != nil {
		s.shutdown()
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC request", "command", req.Command)

	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListAddons:
		return s.handleListAddons()
	case CommandListModules:
		return s.handleListModules()
	case CommandSetModuleEnabled:
		return s.handleSetModuleEnabled(req.Payload)
	case CommandToggleAll:
		return s.handleToggleAll()
	case CommandGetMonitors:
		return s.handleGetMonitors()
	case CommandShutdown:
		return s.handleShutdown()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleGetStatus() *Response {
	modules := s.coord.Modules()
	enabled := 0
	for _, m := range modules {
		if m.Enabled() {
			enabled++
		}
	}

	status := StatusData{
		Addons:         len(s.coord.Addons()),
		Modules:        len(modules),
		EnabledModules: enabled,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		Running:        true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleListAddons() *Response {
	addons := s.coord.Addons()
	data := AddonsData{Addons: make([]AddonInfo, 0, len(addons))}
	for _, h := range addons {
		mods := h.Modules()
		keys := make([]string, len(mods))
		for i, m := range mods {
			keys[i] = m.Key()
		}
		data.Addons = append(data.Addons, AddonInfo{
			Name:          h.Name(),
			Source:        h.Source(),
			Modules:       keys,
			ActiveModules: h.ActiveModules(),
			Enabled:       h.HasActiveModules(),
		})
	}

	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleListModules() *Response {
	modules := s.coord.Modules()
	data := ModulesData{Modules: make([]lifecycle.ModuleInfo, 0, len(modules))}
	for _, m := range modules {
		data.Modules = append(data.Modules, m.Info())
	}

	resp, _ := NewOKResponse(data)
	return resp
}

func (s *Server) handleSetModuleEnabled(payload json.RawMessage) *Response {
	var req SetModuleEnabledPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid set-module payload: %v", err))
	}
	if req.Module == "" {
		return NewErrorResponse("module is required")
	}

	m, err := s.coord.FindModule(req.Addon, req.Module)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	if err := s.coord.SetEnabled(m, req.Enabled); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to update module: %v", err))
	}

	resp, _ := NewOKResponse(m.Info())
	return resp
}

func (s *Server) handleToggleAll() *Response {
	if err := s.coord.ToggleAll(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to toggle modules: %v", err))
	}
	return s.handleListModules()
}

func (s *Server) handleGetMonitors() *Response {
	displays, err := s.backend.Displays()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get monitors: %v", err))
	}

	monitorInfos := make([]MonitorInfo, len(displays))
	for i, d := range displays {
		monitorInfos[i] = MonitorInfo{
			ID:     d.ID,
			Name:   d.Name,
			X:      d.Bounds.X,
			Y:      d.Bounds.Y,
			Width:  d.Bounds.Width,
			Height: d.Bounds.Height,
		}
	}

	resp, _ := NewOKResponse(MonitorsData{Monitors: monitorInfos})
	return resp
}

func (s *Server) handleShutdown() *Response {
	if s.shutdown == nil {
		return NewErrorResponse("shutdown is not supported by this host")
	}
	s.logger.Info("IPC shutdown requested")
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
