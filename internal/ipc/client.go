package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the daemon serving $DISPLAY.
func NewClient() *Client {
	socketPath, err := SocketPath("")
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

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
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
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

func (c *Client) send(cmd CommandType, payload any) (*Response, error) {
	req := &Request{Command: cmd}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = raw
	}
	return c.sendRequest(req)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.send(CommandGetStatus, nil)
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}
	return &status, nil
}

// Indicate hints window, or the focused window when window is zero. It
// reports whether a hint was started.
func (c *Client) Indicate(window uint32) (bool, error) {
	resp, err := c.send(CommandIndicate, IndicatePayload{Window: window})
	if err != nil {
		return false, err
	}
	var data IndicateData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return false, fmt.Errorf("failed to parse indicate data: %w", err)
	}
	return data.Indicated, nil
}

// Reset cancels the active hint.
func (c *Client) Reset() error {
	_, err := c.send(CommandReset, nil)
	return err
}

// SetStrategy swaps the hint strategy.
func (c *Client) SetStrategy(name string) error {
	_, err := c.send(CommandSetStrategy, StrategyPayload{Strategy: name})
	return err
}

// SwitchSlot activates favorite slot (1-based).
func (c *Client) SwitchSlot(slot int) error {
	_, err := c.send(CommandSwitchSlot, SlotPayload{Slot: slot})
	return err
}

// GestureBegin starts a workspace swipe.
func (c *Client) GestureBegin() error {
	_, err := c.send(CommandGestureBegin, nil)
	return err
}

// GestureUpdate moves the swipe by delta workspaces.
func (c *Client) GestureUpdate(delta float64) error {
	_, err := c.send(CommandGestureUpdate, GesturePayload{Delta: delta})
	return err
}

// GestureEnd releases the swipe.
func (c *Client) GestureEnd(cancel bool) error {
	_, err := c.send(CommandGestureEnd, GesturePayload{Cancel: cancel})
	return err
}

// Enable installs the hint triggers.
func (c *Client) Enable() error {
	_, err := c.send(CommandEnable, nil)
	return err
}

// Disable removes the hint triggers.
func (c *Client) Disable() error {
	_, err := c.send(CommandDisable, nil)
	return err
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	_, err := c.send(CommandReload, nil)
	return err
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
