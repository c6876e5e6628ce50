package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/tiling"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		UptimeSeconds: st.UptimeSeconds,
		ConfigPath:    st.ConfigPath,
		StatePath:     st.StatePath,
		Reactor:       string(st.Reactor),
	}, nil
}

func (s *Server) handleListDisplays(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, DisplaysOutput, error) {
	displays, err := s.daemon.Displays()
	if err != nil {
		return nil, DisplaysOutput{}, err
	}
	return nil, DisplaysOutput{Displays: displays}, nil
}

func (s *Server) handleListWorkspaces(_ context.Context, _ *mcpsdk.CallToolRequest, args SpaceInput) (*mcpsdk.CallToolResult, WorkspacesOutput, error) {
	spaces, err := s.daemon.Workspaces(spaceOf(args.Space))
	if err != nil {
		return nil, WorkspacesOutput{}, err
	}
	return nil, WorkspacesOutput{Spaces: spaces}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args SpaceInput) (*mcpsdk.CallToolResult, WindowsOutput, error) {
	windows, err := s.daemon.Windows(spaceOf(args.Space))
	if err != nil {
		return nil, WindowsOutput{}, err
	}
	return nil, WindowsOutput{Windows: windows}, nil
}

func (s *Server) handleGetWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, WindowOutput, error) {
	wid := platform.WindowID{PID: args.PID, Idx: args.Idx}
	if wid.IsZero() {
		return nil, WindowOutput{}, fmt.Errorf("pid and idx are required")
	}
	w, err := s.daemon.Window(wid)
	if err != nil {
		return nil, WindowOutput{}, err
	}
	return nil, WindowOutput{Window: w}, nil
}

func (s *Server) handleGetLayoutState(_ context.Context, _ *mcpsdk.CallToolRequest, args LayoutInput) (*mcpsdk.CallToolResult, LayoutOutput, error) {
	space := spaceOf(args.Space)
	if !space.Valid() {
		return nil, LayoutOutput{}, fmt.Errorf("space is required; see list_displays")
	}
	layout, err := s.daemon.Layout(space)
	if err != nil {
		return nil, LayoutOutput{}, err
	}
	return nil, LayoutOutput{Layout: layout}, nil
}

func (s *Server) handleListApplications(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, ApplicationsOutput, error) {
	apps, err := s.daemon.Applications()
	if err != nil {
		return nil, ApplicationsOutput{}, err
	}
	return nil, ApplicationsOutput{Applications: apps}, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, MetricsOutput, error) {
	report, err := s.daemon.Metrics()
	if err != nil {
		return nil, MetricsOutput{}, err
	}
	return nil, MetricsOutput{Metrics: report}, nil
}

func (s *Server) handleListLayoutCommands(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, CommandsOutput, error) {
	names := append(tiling.CommandNames(), "toggle_space")
	return nil, CommandsOutput{Commands: names}, nil
}

func (s *Server) handleRunLayoutCommand(_ context.Context, _ *mcpsdk.CallToolRequest, args RunLayoutCommandInput) (*mcpsdk.CallToolResult, RunLayoutCommandOutput, error) {
	name := strings.TrimSpace(args.Command)
	if name == "" {
		return nil, RunLayoutCommandOutput{}, fmt.Errorf("command is required; see list_layout_commands")
	}
	if err := s.daemon.RunCommand(name, args.Args, spaceOf(args.Space)); err != nil {
		s.logger.Warn("layout command failed", "command", name, "error", err)
		return nil, RunLayoutCommandOutput{Command: name}, err
	}
	s.logger.Info("layout command sent", "command", name, "args", args.Args, "space", args.Space)
	return nil, RunLayoutCommandOutput{Command: name, Sent: true}, nil
}

func (s *Server) handleDumpState(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, DumpStateOutput, error) {
	state, err := s.daemon.Dump()
	if err != nil {
		return nil, DumpStateOutput{}, err
	}
	return nil, DumpStateOutput{State: state}, nil
}

func (s *Server) handleSaveState(_ context.Context, _ *mcpsdk.CallToolRequest, args SaveStateInput) (*mcpsdk.CallToolResult, SaveStateOutput, error) {
	path, err := s.daemon.SaveState(strings.TrimSpace(args.Path))
	if err != nil {
		return nil, SaveStateOutput{}, err
	}
	return nil, SaveStateOutput{Path: path}, nil
}

func (s *Server) handleReloadConfig(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.Reload(); err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "configuration reloaded"}},
	}, nil, nil
}
