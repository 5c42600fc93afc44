package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/deskmod/internal/lifecycle"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus        CommandType = "GET_STATUS"
	CommandListAddons       CommandType = "LIST_ADDONS"
	CommandListModules      CommandType = "LIST_MODULES"
	CommandSetModuleEnabled CommandType = "SET_MODULE_ENABLED"
	CommandToggleAll        CommandType = "TOGGLE_ALL"
	CommandGetMonitors      CommandType = "GET_MONITORS"
	CommandShutdown         CommandType = "SHUTDOWN"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Addons         int   `json:"addons"`
	Modules        int   `json:"modules"`
	EnabledModules int   `json:"enabled_modules"`
	UptimeSeconds  int64 `json:"uptime_seconds"`
	Running        bool  `json:"running"`
}

// AddonInfo describes one registered addon.
type AddonInfo struct {
	Name          string   `json:"name"`
	Source        string   `json:"source"`
	Modules       []string `json:"modules"`
	ActiveModules int      `json:"active_modules"`
	// Enabled is set while the addon has at least one module shown.
	Enabled bool `json:"enabled"`
}

type AddonsData struct {
	Addons []AddonInfo `json:"addons"`
}

type ModulesData struct {
	Modules []lifecycle.ModuleInfo `json:"modules"`
}

// SetModuleEnabledPayload selects a module by key. Addon is optional and
// disambiguates keys shared by several addons.
type SetModuleEnabledPayload struct {
	Addon   string `json:"addon,omitempty"`
	Module  string `json:"module"`
	Enabled bool   `json:"enabled"`
}

// MonitorInfo represents information about a single monitor
type MonitorInfo struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MonitorsData represents the data returned by GET_MONITORS
type MonitorsData struct {
	Monitors []MonitorInfo `json:"monitors"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data any) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
