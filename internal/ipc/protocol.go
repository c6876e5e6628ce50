package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/spacetile/internal/platform"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload            CommandType = "RELOAD"
	CommandGetStatus         CommandType = "GET_STATUS"
	CommandQueryDisplays     CommandType = "QUERY_DISPLAYS"
	CommandQueryWorkspaces   CommandType = "QUERY_WORKSPACES"
	CommandQueryWindows      CommandType = "QUERY_WINDOWS"
	CommandQueryWindow       CommandType = "QUERY_WINDOW"
	CommandQueryLayout       CommandType = "QUERY_LAYOUT"
	CommandQueryApplications CommandType = "QUERY_APPLICATIONS"
	CommandQueryMetrics      CommandType = "QUERY_METRICS"
	CommandDumpState         CommandType = "DUMP_STATE"
	CommandSaveState         CommandType = "SAVE_STATE"
	CommandLayout            CommandType = "COMMAND"
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
	UptimeSeconds int64  `json:"uptime_seconds"`
	DaemonRunning bool   `json:"daemon_running"`
	ConfigPath    string `json:"config_path,omitempty"`
	StatePath     string `json:"state_path,omitempty"`
	// Reactor is the reactor's own status, kept raw so clients print it
	// as the daemon sent it.
	Reactor json.RawMessage `json:"reactor"`
}

// SpacePayload selects one space; zero means every active space, or the
// focused one for QUERY_LAYOUT.
type SpacePayload struct {
	Space platform.SpaceID `json:"space,omitempty"`
}

// WindowPayload identifies a window for QUERY_WINDOW.
type WindowPayload struct {
	PID int32  `json:"pid"`
	Idx uint32 `json:"idx"`
}

// SaveStatePayload overrides the configured state file.
type SaveStatePayload struct {
	Path string `json:"path,omitempty"`
}

// SaveStateData reports where SAVE_STATE wrote.
type SaveStateData struct {
	Path string `json:"path"`
}

// CommandPayload is a layout command as typed on the command line.
type CommandPayload struct {
	Name  string           `json:"name"`
	Args  []string         `json:"args,omitempty"`
	Space platform.SpaceID `json:"space,omitempty"`
}

// DumpData carries the serialized engine state.
type DumpData struct {
	State string `json:"state"`
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
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
