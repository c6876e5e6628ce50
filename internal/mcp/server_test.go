package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/1broseidon/spacetile/internal/ipc"
	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/tiling"
)

type command struct {
	name  string
	args  []string
	space platform.SpaceID
}

type fakeDaemon struct {
	commands  []command
	saved     []string
	reloads   int
	reloadErr error
	spaces    []platform.SpaceID
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	return &ipc.StatusData{UptimeSeconds: 12, DaemonRunning: true, Reactor: []byte(`{"topology":"stable"}`)}, nil
}

func (f *fakeDaemon) Reload() error {
	f.reloads++
	return f.reloadErr
}

func (f *fakeDaemon) Displays() ([]reactor.DisplayInfo, error) {
	return []reactor.DisplayInfo{{ID: 0, Name: "DP-1", Space: platform.DesktopSpace(0, 0), Active: true}}, nil
}

func (f *fakeDaemon) Workspaces(space platform.SpaceID) ([]reactor.SpaceWorkspaces, error) {
	f.spaces = append(f.spaces, space)
	return []reactor.SpaceWorkspaces{{Space: space}}, nil
}

func (f *fakeDaemon) Windows(space platform.SpaceID) ([]reactor.WindowSnapshot, error) {
	f.spaces = append(f.spaces, space)
	return []reactor.WindowSnapshot{{ID: platform.WindowID{PID: 4, Idx: 9}, Space: space}}, nil
}

func (f *fakeDaemon) Window(wid platform.WindowID) (reactor.WindowSnapshot, error) {
	return reactor.WindowSnapshot{ID: wid, Title: "editor"}, nil
}

func (f *fakeDaemon) Layout(space platform.SpaceID) (tiling.LayoutState, error) {
	return tiling.LayoutState{Space: space, Mode: tiling.ModeScrolling}, nil
}

func (f *fakeDaemon) Applications() ([]reactor.AppSnapshot, error) {
	return nil, errors.New("daemon error: boom")
}

func (f *fakeDaemon) Metrics() (reactor.MetricsReport, error) {
	return reactor.MetricsReport{Topology: "stable"}, nil
}

func (f *fakeDaemon) Dump() (string, error) { return "version: 1\n", nil }

func (f *fakeDaemon) SaveState(path string) (string, error) {
	f.saved = append(f.saved, path)
	if path == "" {
		return "/state/default.yaml", nil
	}
	return path, nil
}

func (f *fakeDaemon) RunCommand(name string, args []string, space platform.SpaceID) error {
	f.commands = append(f.commands, command{name, args, space})
	return nil
}

func newTestServer(t *testing.T, d Daemon) *Server {
	t.Helper()
	s, err := NewServer(d, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func TestNewServer_RequiresDaemon(t *testing.T) {
	if _, err := NewServer(nil, nil); err == nil {
		t.Fatal("expected error without a daemon")
	}
}

func TestListTools_ForwardSpace(t *testing.T) {
	d := &fakeDaemon{}
	s := newTestServer(t, d)
	ctx := context.Background()
	space := platform.DesktopSpace(1, 0)

	_, ws, err := s.handleListWorkspaces(ctx, nil, SpaceInput{Space: uint64(space)})
	if err != nil || len(ws.Spaces) != 1 || ws.Spaces[0].Space != space {
		t.Fatalf("list_workspaces = %+v, %v", ws, err)
	}
	_, wins, err := s.handleListWindows(ctx, nil, SpaceInput{})
	if err != nil || len(wins.Windows) != 1 {
		t.Fatalf("list_windows = %+v, %v", wins, err)
	}
	if len(d.spaces) != 2 || d.spaces[0] != space || d.spaces[1] != platform.NoSpace {
		t.Fatalf("spaces forwarded = %v", d.spaces)
	}

	_, displays, err := s.handleListDisplays(ctx, nil, NoInput{})
	if err != nil || len(displays.Displays) != 1 || displays.Displays[0].Name != "DP-1" {
		t.Fatalf("list_displays = %+v, %v", displays, err)
	}
}

func TestGetWindow_RequiresID(t *testing.T) {
	s := newTestServer(t, &fakeDaemon{})
	if _, _, err := s.handleGetWindow(context.Background(), nil, WindowInput{}); err == nil {
		t.Fatal("expected error for empty window id")
	}
	_, out, err := s.handleGetWindow(context.Background(), nil, WindowInput{PID: 4, Idx: 9})
	if err != nil || out.Window.Title != "editor" {
		t.Fatalf("get_window = %+v, %v", out, err)
	}
}

func TestGetLayoutState_RequiresSpace(t *testing.T) {
	s := newTestServer(t, &fakeDaemon{})
	if _, _, err := s.handleGetLayoutState(context.Background(), nil, LayoutInput{}); err == nil {
		t.Fatal("expected error without a space")
	}
	space := platform.DesktopSpace(0, 1)
	_, out, err := s.handleGetLayoutState(context.Background(), nil, LayoutInput{Space: uint64(space)})
	if err != nil || out.Layout.Mode != tiling.ModeScrolling || out.Layout.Space != space {
		t.Fatalf("get_layout_state = %+v, %v", out, err)
	}
}

func TestRunLayoutCommand(t *testing.T) {
	d := &fakeDaemon{}
	s := newTestServer(t, d)

	if _, _, err := s.handleRunLayoutCommand(context.Background(), nil, RunLayoutCommandInput{Command: "  "}); err == nil {
		t.Fatal("expected error for empty command")
	}

	space := platform.DesktopSpace(0, 0)
	_, out, err := s.handleRunLayoutCommand(context.Background(), nil, RunLayoutCommandInput{
		Command: " swap_window ",
		Args:    []string{"right"},
		Space:   uint64(space),
	})
	if err != nil || !out.Sent || out.Command != "swap_window" {
		t.Fatalf("run_layout_command = %+v, %v", out, err)
	}
	if len(d.commands) != 1 {
		t.Fatalf("commands = %+v", d.commands)
	}
	got := d.commands[0]
	if got.name != "swap_window" || len(got.args) != 1 || got.args[0] != "right" || got.space != space {
		t.Fatalf("forwarded command = %+v", got)
	}
}

func TestListLayoutCommands_IncludesToggleSpace(t *testing.T) {
	s := newTestServer(t, &fakeDaemon{})
	_, out, err := s.handleListLayoutCommands(context.Background(), nil, NoInput{})
	if err != nil {
		t.Fatalf("list_layout_commands: %v", err)
	}
	if len(out.Commands) != len(tiling.CommandNames())+1 {
		t.Fatalf("commands = %v", out.Commands)
	}
	if out.Commands[len(out.Commands)-1] != "toggle_space" {
		t.Fatalf("last command = %q", out.Commands[len(out.Commands)-1])
	}
}

func TestSaveStateAndDump(t *testing.T) {
	d := &fakeDaemon{}
	s := newTestServer(t, d)

	_, out, err := s.handleSaveState(context.Background(), nil, SaveStateInput{Path: " "})
	if err != nil || out.Path != "/state/default.yaml" {
		t.Fatalf("save_state = %+v, %v", out, err)
	}
	if len(d.saved) != 1 || d.saved[0] != "" {
		t.Fatalf("saved = %q", d.saved)
	}

	_, dump, err := s.handleDumpState(context.Background(), nil, NoInput{})
	if err != nil || dump.State != "version: 1\n" {
		t.Fatalf("dump_state = %+v, %v", dump, err)
	}
}

func TestErrorsPropagate(t *testing.T) {
	d := &fakeDaemon{reloadErr: errors.New("bad config")}
	s := newTestServer(t, d)

	if _, _, err := s.handleListApplications(context.Background(), nil, NoInput{}); err == nil {
		t.Fatal("expected list_applications error")
	}
	if _, _, err := s.handleReloadConfig(context.Background(), nil, NoInput{}); err == nil {
		t.Fatal("expected reload error")
	}
	if d.reloads != 1 {
		t.Fatalf("reloads = %d, want 1", d.reloads)
	}
}

func TestGetStatus(t *testing.T) {
	s := newTestServer(t, &fakeDaemon{})
	_, out, err := s.handleGetStatus(context.Background(), nil, NoInput{})
	if err != nil || out.UptimeSeconds != 12 || out.Reactor != `{"topology":"stable"}` {
		t.Fatalf("get_status = %+v, %v", out, err)
	}
}
