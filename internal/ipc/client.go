package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/readershell/internal/runtimepath"
)

// Client handles IPC communication with the running shell
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

	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to shell: %w (is it running?)", err)
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
		return nil, fmt.Errorf("shell error: %s", resp.Error)
	}

	return &resp, nil
}

// GetStatus retrieves shell status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// GetDisplays retrieves the current display topology
func (c *Client) GetDisplays() (*DisplaysData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetDisplays})
	if err != nil {
		return nil, err
	}

	var data DisplaysData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse displays data: %w", err)
	}

	return &data, nil
}

// GetSettings retrieves the raw settings document
func (c *Client) GetSettings() (*SettingsData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetSettings})
	if err != nil {
		return nil, err
	}

	var data SettingsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse settings data: %w", err)
	}

	return &data, nil
}

// MoveToDisplay asks the shell to relocate its window
func (c *Client) MoveToDisplay(index int) error {
	payload, err := json.Marshal(MoveToDisplayPayload{Index: index})
	if err != nil {
		return fmt.Errorf("failed to marshal move payload: %w", err)
	}

	_, err = c.sendRequest(&Request{Command: CommandMoveToDisplay, Payload: payload})
	return err
}

// RebuildMenu forces a menu rebuild
func (c *Client) RebuildMenu() error {
	_, err := c.sendRequest(&Request{Command: CommandRebuildMenu})
	return err
}
