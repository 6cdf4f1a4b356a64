package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandIndicate      CommandType = "INDICATE"
	CommandReset         CommandType = "RESET"
	CommandSetStrategy   CommandType = "SET_STRATEGY"
	CommandSwitchSlot    CommandType = "SWITCH_SLOT"
	CommandGestureBegin  CommandType = "GESTURE_BEGIN"
	CommandGestureUpdate CommandType = "GESTURE_UPDATE"
	CommandGestureEnd    CommandType = "GESTURE_END"
	CommandEnable        CommandType = "ENABLE"
	CommandDisable       CommandType = "DISABLE"
	CommandReload        CommandType = "RELOAD"
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
	DaemonRunning bool   `json:"daemon_running"`
	Enabled       bool   `json:"enabled"`
	Locked        bool   `json:"locked"`
	Strategy      string `json:"strategy"`
	Phase         string `json:"phase"`
	Actors        int    `json:"actors"`
	Window        uint32 `json:"window,omitempty"`
	Pending       uint32 `json:"pending,omitempty"`
	Workspace     int    `json:"workspace"`
	Workspaces    int    `json:"workspaces"`
	Switching     bool   `json:"switching"`
	// RestorePending is set while a disable waits for the session unlock.
	RestorePending bool   `json:"restore_pending"`
	ConfigPath     string `json:"config_path,omitempty"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
}

// IndicatePayload selects the window to hint. Zero means the focused window.
type IndicatePayload struct {
	Window uint32 `json:"window,omitempty"`
}

// IndicateData reports whether a hint was started.
type IndicateData struct {
	Indicated bool `json:"indicated"`
}

type StrategyPayload struct {
	Strategy string `json:"strategy"`
}

type SlotPayload struct {
	Slot int `json:"slot"`
}

// GesturePayload carries GESTURE_UPDATE deltas (workspaces) and the
// GESTURE_END cancel flag.
type GesturePayload struct {
	Delta  float64 `json:"delta,omitempty"`
	Cancel bool    `json:"cancel,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
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
	if req.Command == "" {
		return nil, fmt.Errorf("failed to parse request: missing command")
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

func decodePayload(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
