package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/1broseidon/spacetile/internal/tiling"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if _, err := cfg.Bindings(); err != nil {
		t.Fatalf("default keybindings do not parse: %v", err)
	}
}

func TestDefaultConfigPath_UsesXDGConfigHome(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", td)

	got, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath() error: %v", err)
	}
	if want := filepath.Join(td, "spacetile", "config.yaml"); got != want {
		t.Fatalf("DefaultConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadFromPath_MissingAndEmptyFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()

	res, err := LoadFromPath(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if res.Config.Layout.DefaultMode != string(tiling.ModeTraditional) || len(res.Files) != 0 {
		t.Fatalf("unexpected result for missing file: %+v", res)
	}

	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "# empty\n")
	res, err = LoadFromPath(path)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if res.Config.Workspaces.Count != 4 {
		t.Fatalf("expected default workspace count 4, got %d", res.Config.Workspaces.Count)
	}
}

func TestLoadFromPath_Sections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
log_level: debug
gaps:
  outer_x: 4
  per_display:
    abc:
      outer_x: 0
      outer_y: 0
      inner_x: 2
      inner_y: 2
layout:
  default_mode: scrolling
  master_stack:
    side: right
    ratio: 0.7
  scrolling:
    alignment: center
workspaces:
  count: 6
  names: [web, code]
  app_rules:
    - app_id: firefox
      workspace: 0
drag:
  swap_overlap: 0.5
topology:
  churn_settle_ms: 250
focus:
  mouse_follows_focus: true
persistence:
  autosave_interval: 30s
refresh:
  interval: 2s
  burst: 3
`)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.LogLevel != "debug" || cfg.Gaps.OuterX != 4 || cfg.Gaps.OuterY != 8 {
		t.Errorf("gaps/log level not applied: %+v", cfg.Gaps)
	}
	if got := cfg.GapsFor("abc"); got.InnerX != 2 || got.OuterX != 0 {
		t.Errorf("per-display gaps = %+v", got)
	}
	if cfg.Layout.MasterStack.Side != "right" || cfg.Layout.MasterStack.Count != 1 {
		t.Errorf("master stack = %+v, want side right and default count", cfg.Layout.MasterStack)
	}
	if cfg.Workspaces.Count != 6 || len(cfg.Workspaces.AppRules) != 1 {
		t.Errorf("workspaces = %+v", cfg.Workspaces)
	}
	if cfg.ChurnSettle() != 250*time.Millisecond {
		t.Errorf("churn settle = %v", cfg.ChurnSettle())
	}
	if cfg.Persistence.AutosaveInterval != 30*time.Second || cfg.Refresh.Interval != 2*time.Second || cfg.Refresh.Burst != 3 {
		t.Errorf("durations not parsed: %+v %+v", cfg.Persistence, cfg.Refresh)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") && !strings.Contains(err.Error(), "field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()

	configD := filepath.Join(dir, "config.d")
	if err := os.MkdirAll(configD, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(configD, "10-base.yaml"), "gaps:\n  outer_x: 5\n  inner_x: 1\n")
	writeFile(t, filepath.Join(configD, "20-override.yaml"), "gaps:\n  outer_x: 6\n")

	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, strings.Join([]string{
		"include:",
		"  - config.d",
		"gaps:",
		"  outer_x: 7",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Gaps.OuterX != 7 {
		t.Fatalf("expected outer_x 7, got %v", res.Config.Gaps.OuterX)
	}
	if res.Config.Gaps.InnerX != 1 {
		t.Fatalf("expected inner_x from include, got %v", res.Config.Gaps.InnerX)
	}
	if len(res.Files) != 3 || res.Files[2] != mustCanonical(t, path) {
		t.Fatalf("files = %v, want includes then main", res.Files)
	}
}

func mustCanonical(t *testing.T, path string) string {
	t.Helper()
	canon, err := canonicalPath(path)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	return canon
}

func TestLoadFromPath_IncludeMissingPathHasContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "include:\n  - missing.yaml\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "include") || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("expected include error, got %v", err)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeFile(t, a, "include: b.yaml\n")
	writeFile(t, b, "include: a.yaml\n")

	_, err := LoadFromPath(a)
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestLoadFromPath_SharedIncludeMergedOnce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "common.yaml"), "gaps:\n  inner_x: 3\n")
	writeFile(t, filepath.Join(dir, "display.yaml"), "include: common.yaml\ngaps:\n  outer_y: 4\n")
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "include:\n  - common.yaml\n  - display.yaml\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Files) != 3 {
		t.Fatalf("files = %v, want three distinct files", res.Files)
	}
	if res.Config.Gaps.InnerX != 3 || res.Config.Gaps.OuterY != 4 {
		t.Fatalf("gaps = %+v", res.Config.Gaps)
	}
	if src := res.Sources["gaps.outer_y"]; src.File != mustCanonical(t, filepath.Join(dir, "display.yaml")) || src.Line != 3 {
		t.Fatalf("gaps.outer_y source = %+v", src)
	}
}

func TestLoadFromPath_ValidationErrorHasSource(t *testing.T) {
	tests := []struct {
		name string
		data string
		path string
	}{
		{"negative gap", "gaps:\n  inner_y: -1\n", "gaps.inner_y"},
		{"bad mode", "layout:\n  default_mode: spiral\n", "layout.default_mode"},
		{"master ratio", "layout:\n  master_stack:\n    ratio: 2\n", "layout.master_stack"},
		{"overlap", "drag:\n  swap_overlap: 0\n", "drag.swap_overlap"},
		{"workspace max", "workspaces:\n  count: 8\n  max: 4\n", "workspaces"},
		{"bad binding", "keybindings:\n  Mod4-x: frobnicate\n", "keybindings.Mod4-x"},
		{"burst", "refresh:\n  burst: 0\n", "refresh.burst"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, tt.data)

			_, err := LoadFromPath(path)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("path = %q, want %q", verr.Path, tt.path)
			}
			if verr.Source.Kind != SourceFile || verr.Source.Line == 0 {
				t.Fatalf("expected file source, got %+v", verr.Source)
			}
			if !strings.Contains(err.Error(), path+":") {
				t.Fatalf("expected file:line:col prefix, got %v", err)
			}
		})
	}
}

func TestBuildEffectiveConfig_KeybindingOverrides(t *testing.T) {
	cfg, err := BuildEffectiveConfig(RawConfig{Keybindings: map[string]string{
		"Mod4-h":       "",
		"Mod4-Shift-1": "move_window_to_workspace 1",
	}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := cfg.Keybindings["Mod4-h"]; ok {
		t.Errorf("empty command should remove the default binding")
	}
	bindings, err := cfg.Bindings()
	if err != nil {
		t.Fatalf("bindings: %v", err)
	}
	found := false
	for _, b := range bindings {
		if b.Key == "Mod4-Shift-1" {
			found = true
			if b.Command.Kind != tiling.CmdMoveWindowToWorkspace || b.Command.Workspace == nil || *b.Command.Workspace != 0 {
				t.Errorf("command = %+v", b.Command)
			}
		}
	}
	if !found {
		t.Fatalf("binding not present: %+v", bindings)
	}
}

func TestExplain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "layout:\n  master_stack:\n    ratio: 0.55\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "layout.master_stack.ratio")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 0.55 {
		t.Errorf("value = %v", val)
	}
	if src.Kind != SourceFile || src.Line != 3 {
		t.Errorf("source = %+v", src)
	}

	val, src, err = Explain(res, "workspaces.count")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 4 || src.Kind != SourceDefault {
		t.Errorf("workspaces.count = %v from %+v", val, src)
	}

	if _, _, err := Explain(res, "layout.nope"); err == nil {
		t.Errorf("expected unknown path error")
	}
	if _, _, err := Explain(res, "log_level.deeper"); err == nil {
		t.Errorf("expected non-section error")
	}
}

func TestReactorSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Layout.DefaultMode = "master-stack"
	cfg.Drag.SwapOverlap = 0.4
	cfg.Focus.InvertSwipe = true
	cfg.Spaces.DisabledByDefault = true

	s := cfg.ReactorSettings()
	if s.Engine.DefaultMode != tiling.ModeMasterStack {
		t.Errorf("mode = %q", s.Engine.DefaultMode)
	}
	if s.Drag.OverlapThreshold != 0.4 || !s.Drag.Enabled {
		t.Errorf("drag = %+v", s.Drag)
	}
	if !s.InvertSwipe || !s.DisableSpacesByDefault || !s.SwipeOnBoundary {
		t.Errorf("flags not carried: %+v", s)
	}
	if s.ChurnSettle != 500*time.Millisecond || s.FullscreenWait != 50*time.Millisecond {
		t.Errorf("durations = %v %v", s.ChurnSettle, s.FullscreenWait)
	}
	if s.Engine.Gaps.Default.OuterX != 8 {
		t.Errorf("gaps = %+v", s.Engine.Gaps)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Workspaces.Names = []string{"mail", "chat"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := res.Config.Workspaces.Names; len(got) != 2 || got[1] != "chat" {
		t.Fatalf("names = %v", got)
	}
	if res.Config.Persistence.AutosaveInterval != time.Minute {
		t.Fatalf("autosave = %v", res.Config.Persistence.AutosaveInterval)
	}
}

func TestRelevantEvent(t *testing.T) {
	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: "/c/config.yaml", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/c/extra.yml", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/c/config.yaml", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/c/config.yaml.swp", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		if got := relevantEvent(tt.ev); got != tt.want {
			t.Errorf("relevantEvent(%v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "log_level: info\n")

	reloaded := make(chan *Config, 8)
	w := NewWatcher(WatcherConfig{
		Path:     path,
		Debounce: 10 * time.Millisecond,
		OnReload: func(res *LoadResult) { reloaded <- res.Config },
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-reloaded:
			if cfg.LogLevel != "debug" {
				t.Fatalf("log level = %q", cfg.LogLevel)
			}
			return
		case <-tick.C:
			// the watch may not be registered yet
			writeFile(t, path, "log_level: debug\n")
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
