package mcp

import (
	"context"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/spacetile/internal/ipc"
	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/tiling"
)

const (
	ServerName    = "spacetile"
	ServerVersion = "0.1.0"
)

// Daemon is the daemon API the tools are built on. *ipc.Client implements
// it.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	Reload() error
	Displays() ([]reactor.DisplayInfo, error)
	Workspaces(space platform.SpaceID) ([]reactor.SpaceWorkspaces, error)
	Windows(space platform.SpaceID) ([]reactor.WindowSnapshot, error)
	Window(wid platform.WindowID) (reactor.WindowSnapshot, error)
	Layout(space platform.SpaceID) (tiling.LayoutState, error)
	Applications() ([]reactor.AppSnapshot, error)
	Metrics() (reactor.MetricsReport, error)
	Dump() (string, error)
	SaveState(path string) (string, error)
	RunCommand(name string, args []string, space platform.SpaceID) error
}

var _ Daemon = (*ipc.Client)(nil)

// Server exposes the running window manager to MCP clients.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards every tool call to d.
func NewServer(d Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, fmt.Errorf("no daemon client")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		daemon: d,
		logger: logger.With("component", "mcp"),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report whether the spacetile daemon is running, its uptime, and a summary of the reactor (topology state, screen and window counts).",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_displays",
		Description: "List the connected displays with their stable UUID, frame, current space id and active virtual workspace.",
	}, s.handleListDisplays)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_workspaces",
		Description: "List the virtual workspaces of a space (or every active space), including their layout mode and member windows.",
	}, s.handleListWorkspaces)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List tracked windows, optionally restricted to one space. Each entry carries its id (pid, idx), title, frame and whether it is floating, visible or focused.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_window",
		Description: "Describe a single tracked window by its (pid, idx) id.",
	}, s.handleGetWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_layout_state",
		Description: "Report the active layout of a space: mode, selection, visible windows and the mode-specific structure (master/stack or scrolling columns).",
	}, s.handleGetLayoutState)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_applications",
		Description: "List running applications that own tracked windows.",
	}, s.handleListApplications)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_metrics",
		Description: "Return reactor counters (events, quarantined events, relayouts, churn commits) and workspace statistics.",
	}, s.handleGetMetrics)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_layout_commands",
		Description: "List the command names accepted by run_layout_command.",
	}, s.handleListLayoutCommands)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "run_layout_command",
		Description: "Run a layout command (focus, swap, resize, workspace switch, layout mode change) on a space. toggle_space enables or disables management of the space.",
	}, s.handleRunLayoutCommand)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "dump_state",
		Description: "Return the layout state document the daemon would persist, as YAML.",
	}, s.handleDumpState)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "save_state",
		Description: "Persist the layout state to disk now. Returns the path written.",
	}, s.handleSaveState)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Re-read the configuration file and apply it to the running daemon.",
	}, s.handleReloadConfig)
}
