package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/luigirizzo/lrtile/internal/tiling"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload          CommandType = "RELOAD"
	CommandGetStatus       CommandType = "GET_STATUS"
	CommandGetDisplays     CommandType = "GET_DISPLAYS"
	CommandSnap            CommandType = "SNAP"
	CommandUndo            CommandType = "UNDO"
	CommandSetEnabled      CommandType = "SET_ENABLED"
	CommandRefreshDisplays CommandType = "REFRESH_DISPLAYS"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Request represents an IPC request from client to server
type Request struct {
	ID      string          `json:"id,omitempty"`
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	ID     string          `json:"id,omitempty"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	DaemonRunning bool          `json:"daemon_running"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	ConfigPath    string        `json:"config_path"`
	DisplayCount  int           `json:"display_count"`
	Snapper       tiling.Status `json:"snapper"`
}

// DisplayInfo describes one display and its work area.
type DisplayInfo struct {
	ID     int         `json:"id"`
	Name   string      `json:"name"`
	Bounds tiling.Rect `json:"bounds"`
	Usable tiling.Rect `json:"usable"`
}

// DisplaysData represents the data returned by GET_DISPLAYS
type DisplaysData struct {
	Displays []DisplayInfo `json:"displays"`
}

type SnapPayload struct {
	Command string `json:"command"`
}

// SnapData is the engine outcome of a SNAP. A disabled daemon reports
// Enabled false and an empty result.
type SnapData struct {
	Enabled bool          `json:"enabled"`
	Result  tiling.Result `json:"result"`
}

// SetEnabledPayload sets the on/off flag. A nil Enabled toggles it.
type SetEnabledPayload struct {
	Enabled *bool `json:"enabled,omitempty"`
	Persist bool  `json:"persist,omitempty"`
}

type EnabledData struct {
	Enabled bool `json:"enabled"`
}

// NewRequest builds a request with a fresh id.
func NewRequest(cmd CommandType, payload any) (*Request, error) {
	req := &Request{ID: uuid.NewString(), Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}
	return req, nil
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
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: StatusError,
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
