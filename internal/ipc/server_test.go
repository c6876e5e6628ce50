package ipc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/tiling"
)

type fakeCore struct {
	mu     sync.Mutex
	events []reactor.Event
	saved  []string
	window reactor.WindowSnapshot
}

func (f *fakeCore) Send(ctx context.Context, ev reactor.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeCore) sent() []reactor.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reactor.Event(nil), f.events...)
}

func (f *fakeCore) Status(ctx context.Context) (reactor.Status, error) {
	return reactor.Status{Topology: "stable", Screens: 2, Windows: 3}, nil
}

func (f *fakeCore) Displays(ctx context.Context) ([]reactor.DisplayInfo, error) {
	return []reactor.DisplayInfo{
		{ID: 0, Name: "DP-1", Space: platform.DesktopSpace(0, 0), Active: true},
		{ID: 1, Name: "HDMI-1", Space: platform.DesktopSpace(0, 1), Active: true},
	}, nil
}

func (f *fakeCore) Workspaces(ctx context.Context, space platform.SpaceID) ([]reactor.SpaceWorkspaces, error) {
	return []reactor.SpaceWorkspaces{{Space: space}}, nil
}

func (f *fakeCore) Windows(ctx context.Context, space platform.SpaceID) ([]reactor.WindowSnapshot, error) {
	return []reactor.WindowSnapshot{f.window}, nil
}

func (f *fakeCore) Window(ctx context.Context, wid platform.WindowID) (reactor.WindowSnapshot, bool, error) {
	if wid != f.window.ID {
		return reactor.WindowSnapshot{}, false, nil
	}
	return f.window, true, nil
}

func (f *fakeCore) Layout(ctx context.Context, space platform.SpaceID) (tiling.LayoutState, bool, error) {
	if !space.Valid() {
		return tiling.LayoutState{}, false, nil
	}
	return tiling.LayoutState{Space: space, Mode: tiling.ModeMasterStack}, true, nil
}

func (f *fakeCore) Applications(ctx context.Context) ([]reactor.AppSnapshot, error) {
	return []reactor.AppSnapshot{{AppInfo: reactor.AppInfo{PID: 7, AppID: "term"}, Windows: 1}}, nil
}

func (f *fakeCore) Metrics(ctx context.Context) (reactor.MetricsReport, error) {
	return reactor.MetricsReport{Topology: "stable"}, nil
}

func (f *fakeCore) Dump(ctx context.Context) ([]byte, error) {
	return []byte("version: 1\n"), nil
}

func (f *fakeCore) Save(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, path)
	return nil
}

func startServer(t *testing.T, core Core, reload func() error) *Client {
	t.Helper()
	// unix socket paths are length-limited; t.TempDir can be too deep
	dir, err := os.MkdirTemp("", "stipc")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	socket := filepath.Join(dir, "s.sock")

	srv, err := NewServer(ServerConfig{
		SocketPath: socket,
		Core:       core,
		Reload:     reload,
		StatePath:  "/var/state/layout.yaml",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)

	info, err := os.Stat(socket)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("socket permissions = %o, want 600", perm)
	}
	return NewClientWithSocket(socket)
}

func TestServer_Queries(t *testing.T) {
	core := &fakeCore{window: reactor.WindowSnapshot{ID: platform.WindowID{PID: 7, Idx: 42}, Title: "shell"}}
	c := startServer(t, core, nil)

	status, err := c.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.DaemonRunning || !strings.Contains(string(status.Reactor), `"screens":2`) {
		t.Fatalf("status = %+v (%s)", status, status.Reactor)
	}

	displays, err := c.Displays()
	if err != nil || len(displays) != 2 || displays[1].Name != "HDMI-1" {
		t.Fatalf("Displays = %+v, %v", displays, err)
	}

	ws, err := c.Workspaces(platform.DesktopSpace(1, 0))
	if err != nil || len(ws) != 1 || ws[0].Space != platform.DesktopSpace(1, 0) {
		t.Fatalf("Workspaces = %+v, %v", ws, err)
	}

	w, err := c.Window(platform.WindowID{PID: 7, Idx: 42})
	if err != nil || w.Title != "shell" {
		t.Fatalf("Window = %+v, %v", w, err)
	}
	if _, err := c.Window(platform.WindowID{PID: 7, Idx: 43}); err == nil {
		t.Fatal("expected error for unknown window")
	}

	layout, err := c.Layout(platform.DesktopSpace(0, 0))
	if err != nil || layout.Mode != tiling.ModeMasterStack {
		t.Fatalf("Layout = %+v, %v", layout, err)
	}
	if _, err := c.Layout(platform.NoSpace); err == nil {
		t.Fatal("expected error when no layout exists")
	}

	apps, err := c.Applications()
	if err != nil || len(apps) != 1 || apps[0].AppID != "term" {
		t.Fatalf("Applications = %+v, %v", apps, err)
	}

	dump, err := c.Dump()
	if err != nil || dump != "version: 1\n" {
		t.Fatalf("Dump = %q, %v", dump, err)
	}
}

func TestServer_CommandIsParsedAndSent(t *testing.T) {
	core := &fakeCore{}
	c := startServer(t, core, nil)

	space := platform.DesktopSpace(0, 1)
	if err := c.RunCommand("move-focus", []string{"left"}, space); err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	if err := c.RunCommand("toggle_space", nil, space); err != nil {
		t.Fatalf("RunCommand toggle_space: %v", err)
	}
	if err := c.RunCommand("fly_away", nil, 0); err == nil {
		t.Fatal("expected error for unknown command")
	}

	events := core.sent()
	if len(events) != 2 {
		t.Fatalf("sent %d events, want 2", len(events))
	}
	cmd, ok := events[0].(reactor.Command)
	if !ok || cmd.Command.Kind != tiling.CmdMoveFocus || cmd.Command.Direction != tiling.DirLeft || cmd.Space != space {
		t.Fatalf("command event = %+v", events[0])
	}
	if toggle, ok := events[1].(reactor.ToggleSpaceActivated); !ok || toggle.Space != space {
		t.Fatalf("toggle event = %+v", events[1])
	}
}

func TestServer_SaveState(t *testing.T) {
	core := &fakeCore{}
	c := startServer(t, core, nil)

	path, err := c.SaveState("")
	if err != nil || path != "/var/state/layout.yaml" {
		t.Fatalf("SaveState default = %q, %v", path, err)
	}
	path, err = c.SaveState("/tmp/other.yaml")
	if err != nil || path != "/tmp/other.yaml" {
		t.Fatalf("SaveState override = %q, %v", path, err)
	}
	core.mu.Lock()
	saved := append([]string(nil), core.saved...)
	core.mu.Unlock()
	if len(saved) != 2 {
		t.Fatalf("saved = %v", saved)
	}
}

func TestServer_Reload(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c := startServer(t, &fakeCore{}, func() error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls > 1 {
			return errors.New("bad yaml")
		}
		return nil
	})

	if err := c.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	err := c.Reload()
	if err == nil || !strings.Contains(err.Error(), "bad yaml") {
		t.Fatalf("Reload error = %v", err)
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	c := startServer(t, &fakeCore{}, nil)
	if _, err := c.Raw("EXPLODE", nil); err == nil || !strings.Contains(err.Error(), "Unknown command") {
		t.Fatalf("Raw(EXPLODE) error = %v", err)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	c := NewClientWithSocket(filepath.Join(t.TempDir(), "missing.sock"))
	if err := c.Ping(); err == nil || !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("Ping error = %v", err)
	}
}
