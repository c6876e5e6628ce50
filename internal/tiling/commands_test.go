package tiling

import (
	"encoding/json"
	"testing"

	"github.com/1broseidon/spacetile/internal/platform"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		args    []string
		check   func(t *testing.T, c LayoutCommand)
		wantErr bool
	}{
		{name: "dashes normalized", cmd: "Toggle-Fullscreen", check: func(t *testing.T, c LayoutCommand) {
			if c.Kind != CmdToggleFullscreen {
				t.Errorf("kind = %s", c.Kind)
			}
		}},
		{name: "direction", cmd: "move_focus", args: []string{"up"}, check: func(t *testing.T, c LayoutCommand) {
			if c.Direction != DirUp {
				t.Errorf("direction = %s", c.Direction)
			}
		}},
		{name: "one-based workspace", cmd: "switch_to_workspace", args: []string{"3"}, check: func(t *testing.T, c LayoutCommand) {
			if c.Workspace == nil || *c.Workspace != 2 {
				t.Errorf("workspace = %v, want index 2", c.Workspace)
			}
		}},
		{name: "move with window", cmd: "move_window_to_workspace", args: []string{"1", "0x2a"}, check: func(t *testing.T, c LayoutCommand) {
			if *c.Workspace != 0 || c.Window == nil || *c.Window != 42 {
				t.Errorf("workspace=%v window=%v", c.Workspace, c.Window)
			}
		}},
		{name: "skip empty", cmd: "next_workspace", args: []string{"skip-empty"}, check: func(t *testing.T, c LayoutCommand) {
			if !c.SkipEmpty {
				t.Errorf("skip empty not set")
			}
		}},
		{name: "layout mode", cmd: "set_workspace_layout", args: []string{"scrolling", "2"}, check: func(t *testing.T, c LayoutCommand) {
			if c.Mode != ModeScrolling || *c.Workspace != 1 {
				t.Errorf("mode=%s workspace=%v", c.Mode, c.Workspace)
			}
		}},
		{name: "swap windows", cmd: "swap_windows", args: []string{"100:1", "200:3"}, check: func(t *testing.T, c LayoutCommand) {
			if c.A != (platform.WindowID{PID: 100, Idx: 1}) || c.B != (platform.WindowID{PID: 200, Idx: 3}) {
				t.Errorf("a=%v b=%v", c.A, c.B)
			}
		}},
		{name: "amount", cmd: "scroll_strip", args: []string{"-0.25"}, check: func(t *testing.T, c LayoutCommand) {
			if c.Amount != -0.25 {
				t.Errorf("amount = %v", c.Amount)
			}
		}},
		{name: "unknown command", cmd: "explode", wantErr: true},
		{name: "missing direction", cmd: "move_node", wantErr: true},
		{name: "bad direction", cmd: "move_node", args: []string{"sideways"}, wantErr: true},
		{name: "workspace zero", cmd: "switch_to_workspace", args: []string{"0"}, wantErr: true},
		{name: "bad window id", cmd: "swap_windows", args: []string{"100", "200:1"}, wantErr: true},
		{name: "unexpected argument", cmd: "ascend", args: []string{"now"}, wantErr: true},
		{name: "bad skip flag", cmd: "prev_workspace", args: []string{"maybe"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCommand(tt.cmd, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCommand(%q, %v) error = %v, wantErr %v", tt.cmd, tt.args, err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestLayoutCommand_JSONDirection(t *testing.T) {
	var c LayoutCommand
	if err := json.Unmarshal([]byte(`{"kind":"move_focus","direction":"left"}`), &c); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if c.Kind != CmdMoveFocus || c.Direction != DirLeft {
		t.Fatalf("decoded %+v", c)
	}
	if _, err := json.Marshal(c); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"kind":"move_focus","direction":"nowhere"}`), &c); err == nil {
		t.Fatalf("expected an error for an unknown direction")
	}
}

func TestCommandNamesSorted(t *testing.T) {
	names := CommandNames()
	if len(names) != len(commandKinds) {
		t.Fatalf("names = %d, kinds = %d", len(names), len(commandKinds))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted at %d: %q >= %q", i, names[i-1], names[i])
		}
	}
}
