package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/tiling"
)

const requestTimeout = 5 * time.Second

// Core is the part of the reactor the server talks to.
type Core interface {
	Send(ctx context.Context, ev reactor.Event) error
	Status(ctx context.Context) (reactor.Status, error)
	Displays(ctx context.Context) ([]reactor.DisplayInfo, error)
	Workspaces(ctx context.Context, space platform.SpaceID) ([]reactor.SpaceWorkspaces, error)
	Windows(ctx context.Context, space platform.SpaceID) ([]reactor.WindowSnapshot, error)
	Window(ctx context.Context, wid platform.WindowID) (reactor.WindowSnapshot, bool, error)
	Layout(ctx context.Context, space platform.SpaceID) (tiling.LayoutState, bool, error)
	Applications(ctx context.Context) ([]reactor.AppSnapshot, error)
	Metrics(ctx context.Context) (reactor.MetricsReport, error)
	Dump(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, path string) error
}

// ServerConfig holds the collaborators of a Server.
type ServerConfig struct {
	SocketPath string
	Core       Core
	// Reload re-reads the configuration and applies it.
	Reload     func() error
	ConfigPath string
	StatePath  string
	Logger     *slog.Logger
}

// Server handles IPC requests from clients
type Server struct {
	socketPath string
	listener   net.Listener
	core       Core
	reload     func() error
	configPath string
	statePath  string
	logger     *slog.Logger
	startTime  time.Time

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.SocketPath == "" {
		return nil, fmt.Errorf("socket path is empty")
	}
	if cfg.Core == nil {
		return nil, fmt.Errorf("no reactor to serve")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(cfg.SocketPath)

	return &Server{
		socketPath: cfg.SocketPath,
		core:       cfg.Core,
		reload:     cfg.Reload,
		configPath: cfg.ConfigPath,
		statePath:  cfg.StatePath,
		logger:     logger.With("component", "ipc"),
		startTime:  time.Now(),
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	// Accept connections
	go s.acceptLoop()

	return nil
}

// Serve runs the server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// acceptLoop accepts incoming connections
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

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Debug("IPC read error", "error", err)
		return
	}

	// Parse request
	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp := s.handleCommand(ctx, req)

	// Send response
	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal response", "command", req.Command, "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Debug("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus(ctx)
	case CommandQueryDisplays:
		return respond(s.core.Displays(ctx))
	case CommandQueryWorkspaces:
		var p SpacePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
		}
		return respond(s.core.Workspaces(ctx, p.Space))
	case CommandQueryWindows:
		var p SpacePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
		}
		return respond(s.core.Windows(ctx, p.Space))
	case CommandQueryWindow:
		return s.handleQueryWindow(ctx, req.Payload)
	case CommandQueryLayout:
		return s.handleQueryLayout(ctx, req.Payload)
	case CommandQueryApplications:
		return respond(s.core.Applications(ctx))
	case CommandQueryMetrics:
		return respond(s.core.Metrics(ctx))
	case CommandDumpState:
		data, err := s.core.Dump(ctx)
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to dump state: %v", err))
		}
		return respond(DumpData{State: string(data)}, nil)
	case CommandSaveState:
		return s.handleSaveState(ctx, req.Payload)
	case CommandLayout:
		return s.handleLayoutCommand(ctx, req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func respond[T any](data T, err error) *Response {
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// handleReload reloads the configuration
func (s *Server) handleReload() *Response {
	s.logger.Info("received RELOAD command")
	if s.reload == nil {
		return NewErrorResponse("reload is not supported")
	}
	if err := s.reload(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus(ctx context.Context) *Response {
	st, err := s.core.Status(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get status: %v", err))
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return respond(StatusData{
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
		ConfigPath:    s.configPath,
		StatePath:     s.statePath,
		Reactor:       raw,
	}, nil)
}

func (s *Server) handleQueryWindow(ctx context.Context, payload json.RawMessage) *Response {
	var p WindowPayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	wid := platform.WindowID{PID: p.PID, Idx: p.Idx}
	if wid.IsZero() {
		return NewErrorResponse("pid and idx are required")
	}
	snap, ok, err := s.core.Window(ctx, wid)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	if !ok {
		return NewErrorResponse(fmt.Sprintf("Unknown window: %s", wid))
	}
	return respond(snap, nil)
}

func (s *Server) handleQueryLayout(ctx context.Context, payload json.RawMessage) *Response {
	var p SpacePayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	state, ok, err := s.core.Layout(ctx, p.Space)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	if !ok {
		return NewErrorResponse(fmt.Sprintf("No layout for space %d", p.Space))
	}
	return respond(state, nil)
}

func (s *Server) handleSaveState(ctx context.Context, payload json.RawMessage) *Response {
	var p SaveStatePayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	path := p.Path
	if path == "" {
		path = s.statePath
	}
	if path == "" {
		return NewErrorResponse("no state file configured")
	}
	if err := s.core.Save(ctx, path); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to save state: %v", err))
	}
	return respond(SaveStateData{Path: path}, nil)
}

// toggleSpaceCommand enables or disables management of a space. It is not
// a layout command, so it is handled before parsing.
const toggleSpaceCommand = "toggle_space"

func (s *Server) handleLayoutCommand(ctx context.Context, payload json.RawMessage) *Response {
	var p CommandPayload
	if err := decodePayload(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	if p.Name == toggleSpaceCommand {
		if err := s.core.Send(ctx, reactor.ToggleSpaceActivated{Space: p.Space}); err != nil {
			return NewErrorResponse(err.Error())
		}
		resp, _ := NewOKResponse(nil)
		return resp
	}
	cmd, err := tiling.ParseCommand(p.Name, p.Args)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	s.logger.Debug("layout command", "command", cmd.Kind, "space", p.Space)
	if err := s.core.Send(ctx, reactor.Command{Command: cmd, Space: p.Space}); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to run command: %v", err))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

// sendError sends an error response
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
