package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/luigirizzo/lrtile/internal/runtimepath"
	"github.com/luigirizzo/lrtile/internal/tiling"
)

// DefaultTimeout bounds one request round trip.
const DefaultTimeout = 5 * time.Second

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default runtime socket.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientWithPath(socketPath)
}

// NewClientWithPath creates a client for an explicit socket.
func NewClientWithPath(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    DefaultTimeout,
	}
}

func (c *Client) sendRequest(cmd CommandType, payload any) (*Response, error) {
	req, err := NewRequest(cmd, payload)
	if err != nil {
		return nil, err
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.timeout))

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
	if resp.ID != "" && resp.ID != req.ID {
		return nil, fmt.Errorf("response id %s does not match request %s", resp.ID, req.ID)
	}
	if resp.Status == StatusError {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

func decodeData[T any](resp *Response, what string) (*T, error) {
	var out T
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse %s data: %w", what, err)
	}
	return &out, nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	_, err := c.sendRequest(CommandReload, nil)
	return err
}

// Undo restores the active window to its geometry before the last snap.
func (c *Client) Undo() error {
	_, err := c.sendRequest(CommandUndo, nil)
	return err
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(CommandGetStatus, nil)
	if err != nil {
		return nil, err
	}
	return decodeData[StatusData](resp, "status")
}

// GetDisplays retrieves the daemon's cached display list.
func (c *Client) GetDisplays() (*DisplaysData, error) {
	resp, err := c.sendRequest(CommandGetDisplays, nil)
	if err != nil {
		return nil, err
	}
	return decodeData[DisplaysData](resp, "displays")
}

// RefreshDisplays asks the daemon to re-query displays and returns the new list.
func (c *Client) RefreshDisplays() (*DisplaysData, error) {
	resp, err := c.sendRequest(CommandRefreshDisplays, nil)
	if err != nil {
		return nil, err
	}
	return decodeData[DisplaysData](resp, "displays")
}

// Snap applies a grid command to the active window.
func (c *Client) Snap(cmd tiling.Command) (*SnapData, error) {
	resp, err := c.sendRequest(CommandSnap, SnapPayload{Command: string(cmd)})
	if err != nil {
		return nil, err
	}
	return decodeData[SnapData](resp, "snap")
}

// SetEnabled switches snapping on or off; nil toggles. With persist the new
// value is written back to the config file.
func (c *Client) SetEnabled(enabled *bool, persist bool) (bool, error) {
	resp, err := c.sendRequest(CommandSetEnabled, SetEnabledPayload{Enabled: enabled, Persist: persist})
	if err != nil {
		return false, err
	}
	data, err := decodeData[EnabledData](resp, "enabled")
	if err != nil {
		return false, err
	}
	return data.Enabled, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
