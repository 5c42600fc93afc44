package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/deskmod/internal/lifecycle"
	"github.com/1broseidon/deskmod/internal/runtimepath"
)

// Client handles IPC communication with the host
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket path.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for an explicit socket path.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to host: %w (is deskmod running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("host error: %s", resp.Error)
	}

	return &resp, nil
}

func (c *Client) call(cmd CommandType, payload any, out any) error {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// GetStatus retrieves host status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListAddons retrieves the registered addons.
func (c *Client) ListAddons() ([]AddonInfo, error) {
	var data AddonsData
	if err := c.call(CommandListAddons, nil, &data); err != nil {
		return nil, err
	}
	return data.Addons, nil
}

// ListModules retrieves every registered module.
func (c *Client) ListModules() ([]lifecycle.ModuleInfo, error) {
	var data ModulesData
	if err := c.call(CommandListModules, nil, &data); err != nil {
		return nil, err
	}
	return data.Modules, nil
}

// SetModuleEnabled enables or disables one module and returns its new state.
func (c *Client) SetModuleEnabled(addonName, module string, enabled bool) (*lifecycle.ModuleInfo, error) {
	var info lifecycle.ModuleInfo
	payload := SetModuleEnabledPayload{Addon: addonName, Module: module, Enabled: enabled}
	if err := c.call(CommandSetModuleEnabled, payload, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ToggleAll hides or restores every module.
func (c *Client) ToggleAll() ([]lifecycle.ModuleInfo, error) {
	var data ModulesData
	if err := c.call(CommandToggleAll, nil, &data); err != nil {
		return nil, err
	}
	return data.Modules, nil
}

// GetMonitors retrieves monitor information
func (c *Client) GetMonitors() (*MonitorsData, error) {
	var monitors MonitorsData
	if err := c.call(CommandGetMonitors, nil, &monitors); err != nil {
		return nil, err
	}
	return &monitors, nil
}

// Shutdown asks the host to exit.
func (c *Client) Shutdown() error {
	return c.call(CommandShutdown, nil, nil)
}

// Ping checks if the host is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
