package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/runtimepath"
	"github.com/1broseidon/spacetile/internal/tiling"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientWithSocket(socketPath)
}

// NewClientWithSocket creates a client for an explicit socket path.
func NewClientWithSocket(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	// Connect to socket
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	// Set deadline
	conn.SetDeadline(time.Now().Add(c.timeout))

	// Marshal request
	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Send request
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	// Read response
	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Parse response
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Check for error response
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// Raw sends a command with an optional payload and returns the response
// data undecoded.
func (c *Client) Raw(command CommandType, payload any) (json.RawMessage, error) {
	req := &Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = data
	}
	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func call[T any](c *Client, command CommandType, payload any) (T, error) {
	var out T
	data, err := c.Raw(command, payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return out, nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	_, err := c.Raw(CommandReload, nil)
	return err
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	status, err := call[StatusData](c, CommandGetStatus, nil)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Displays() ([]reactor.DisplayInfo, error) {
	return call[[]reactor.DisplayInfo](c, CommandQueryDisplays, nil)
}

func (c *Client) Workspaces(space platform.SpaceID) ([]reactor.SpaceWorkspaces, error) {
	return call[[]reactor.SpaceWorkspaces](c, CommandQueryWorkspaces, SpacePayload{Space: space})
}

func (c *Client) Windows(space platform.SpaceID) ([]reactor.WindowSnapshot, error) {
	return call[[]reactor.WindowSnapshot](c, CommandQueryWindows, SpacePayload{Space: space})
}

func (c *Client) Window(wid platform.WindowID) (reactor.WindowSnapshot, error) {
	return call[reactor.WindowSnapshot](c, CommandQueryWindow, WindowPayload{PID: wid.PID, Idx: wid.Idx})
}

func (c *Client) Layout(space platform.SpaceID) (tiling.LayoutState, error) {
	return call[tiling.LayoutState](c, CommandQueryLayout, SpacePayload{Space: space})
}

func (c *Client) Applications() ([]reactor.AppSnapshot, error) {
	return call[[]reactor.AppSnapshot](c, CommandQueryApplications, nil)
}

func (c *Client) Metrics() (reactor.MetricsReport, error) {
	return call[reactor.MetricsReport](c, CommandQueryMetrics, nil)
}

// Dump returns the daemon's layout state document.
func (c *Client) Dump() (string, error) {
	data, err := call[DumpData](c, CommandDumpState, nil)
	return data.State, err
}

// SaveState asks the daemon to persist its layout state. An empty path
// uses the configured state file.
func (c *Client) SaveState(path string) (string, error) {
	data, err := call[SaveStateData](c, CommandSaveState, SaveStatePayload{Path: path})
	return data.Path, err
}

// RunCommand sends a layout command to the daemon.
func (c *Client) RunCommand(name string, args []string, space platform.SpaceID) error {
	_, err := c.Raw(CommandLayout, CommandPayload{Name: name, Args: args, Space: space})
	return err
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
