package tiling

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/1broseidon/spacetile/internal/platform"
)

// CommandKind names a layout command.
type CommandKind string

const (
	CmdNextWindow                 CommandKind = "next_window"
	CmdPrevWindow                 CommandKind = "prev_window"
	CmdMoveFocus                  CommandKind = "move_focus"
	CmdAscend                     CommandKind = "ascend"
	CmdDescend                    CommandKind = "descend"
	CmdMoveNode                   CommandKind = "move_node"
	CmdJoinWindow                 CommandKind = "join_window"
	CmdToggleStack                CommandKind = "toggle_stack"
	CmdToggleOrientation          CommandKind = "toggle_orientation"
	CmdUnjoinWindows              CommandKind = "unjoin_windows"
	CmdToggleFocusFloating        CommandKind = "toggle_focus_floating"
	CmdToggleWindowFloating       CommandKind = "toggle_window_floating"
	CmdToggleFullscreen           CommandKind = "toggle_fullscreen"
	CmdToggleFullscreenWithinGaps CommandKind = "toggle_fullscreen_within_gaps"
	CmdResizeGrow                 CommandKind = "resize_grow"
	CmdResizeShrink               CommandKind = "resize_shrink"
	CmdResizeBy                   CommandKind = "resize_by"
	CmdScrollStrip                CommandKind = "scroll_strip"
	CmdSnapStrip                  CommandKind = "snap_strip"
	CmdCenterSelection            CommandKind = "center_selection"
	CmdNextWorkspace              CommandKind = "next_workspace"
	CmdPrevWorkspace              CommandKind = "prev_workspace"
	CmdSwitchToWorkspace          CommandKind = "switch_to_workspace"
	CmdMoveWindowToWorkspace      CommandKind = "move_window_to_workspace"
	CmdCreateWorkspace            CommandKind = "create_workspace"
	CmdSwitchToLastWorkspace      CommandKind = "switch_to_last_workspace"
	CmdSetWorkspaceLayout         CommandKind = "set_workspace_layout"
	CmdSwapWindows                CommandKind = "swap_windows"
	CmdAdjustMasterRatio          CommandKind = "adjust_master_ratio"
	CmdAdjustMasterCount          CommandKind = "adjust_master_count"
	CmdPromoteToMaster            CommandKind = "promote_to_master"
	CmdSwapMasterStack            CommandKind = "swap_master_stack"
)

// resizeStep is the share change applied by grow and shrink.
const resizeStep = 0.05

// LayoutCommand is a user request against the layout of a space. Only the
// fields relevant to Kind are read.
type LayoutCommand struct {
	Kind      CommandKind       `json:"kind"`
	Direction Direction         `json:"direction"`
	Amount    float64           `json:"amount,omitempty"`
	Count     int               `json:"count,omitempty"`
	SkipEmpty bool              `json:"skip_empty,omitempty"`
	Workspace *int              `json:"workspace,omitempty"`
	Window    *uint32           `json:"window,omitempty"`
	Mode      LayoutMode        `json:"mode,omitempty"`
	A         platform.WindowID `json:"a"`
	B         platform.WindowID `json:"b"`
}

// IsWorkspaceCommand reports whether the command switches or edits virtual
// workspaces rather than the active layout.
func (c LayoutCommand) IsWorkspaceCommand() bool {
	switch c.Kind {
	case CmdNextWorkspace, CmdPrevWorkspace, CmdSwitchToWorkspace, CmdMoveWindowToWorkspace,
		CmdCreateWorkspace, CmdSwitchToLastWorkspace, CmdSetWorkspaceLayout:
		return true
	}
	return false
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

var commandKinds = map[CommandKind]bool{}

func init() {
	for _, k := range []CommandKind{
		CmdNextWindow, CmdPrevWindow, CmdMoveFocus, CmdAscend, CmdDescend, CmdMoveNode,
		CmdJoinWindow, CmdToggleStack, CmdToggleOrientation, CmdUnjoinWindows,
		CmdToggleFocusFloating, CmdToggleWindowFloating, CmdToggleFullscreen,
		CmdToggleFullscreenWithinGaps, CmdResizeGrow, CmdResizeShrink, CmdResizeBy,
		CmdScrollStrip, CmdSnapStrip, CmdCenterSelection, CmdNextWorkspace, CmdPrevWorkspace,
		CmdSwitchToWorkspace, CmdMoveWindowToWorkspace, CmdCreateWorkspace,
		CmdSwitchToLastWorkspace, CmdSetWorkspaceLayout, CmdSwapWindows, CmdAdjustMasterRatio,
		CmdAdjustMasterCount, CmdPromoteToMaster, CmdSwapMasterStack,
	} {
		commandKinds[k] = true
	}
}

// CommandNames lists every command name, sorted.
func CommandNames() []string {
	out := make([]string, 0, len(commandKinds))
	for k := range commandKinds {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

// ParseCommand builds a command from its name and positional arguments, as
// typed on the command line or bound to a key. Workspace numbers are
// one-based.
func ParseCommand(name string, args []string) (LayoutCommand, error) {
	kind := CommandKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_"))
	if !commandKinds[kind] {
		return LayoutCommand{}, fmt.Errorf("unknown command %q", name)
	}
	cmd := LayoutCommand{Kind: kind}
	arg := func(i int) (string, bool) {
		if i < len(args) {
			return args[i], true
		}
		return "", false
	}
	need := func(i int, what string) (string, error) {
		s, ok := arg(i)
		if !ok {
			return "", fmt.Errorf("%s: missing %s", kind, what)
		}
		return s, nil
	}

	switch kind {
	case CmdMoveFocus, CmdMoveNode, CmdJoinWindow:
		s, err := need(0, "direction")
		if err != nil {
			return cmd, err
		}
		if cmd.Direction, err = ParseDirection(s); err != nil {
			return cmd, fmt.Errorf("%s: %w", kind, err)
		}
	case CmdResizeBy, CmdScrollStrip, CmdAdjustMasterRatio:
		s, err := need(0, "amount")
		if err != nil {
			return cmd, err
		}
		if cmd.Amount, err = strconv.ParseFloat(s, 64); err != nil {
			return cmd, fmt.Errorf("%s: invalid amount %q: %w", kind, s, err)
		}
	case CmdAdjustMasterCount:
		s, err := need(0, "count")
		if err != nil {
			return cmd, err
		}
		if cmd.Count, err = strconv.Atoi(s); err != nil {
			return cmd, fmt.Errorf("%s: invalid count %q: %w", kind, s, err)
		}
	case CmdNextWorkspace, CmdPrevWorkspace:
		if s, ok := arg(0); ok {
			switch s {
			case "skip-empty", "skip_empty", "true":
				cmd.SkipEmpty = true
			case "false":
			default:
				return cmd, fmt.Errorf("%s: unexpected argument %q", kind, s)
			}
		}
	case CmdSwitchToWorkspace:
		s, err := need(0, "workspace")
		if err != nil {
			return cmd, err
		}
		idx, err := parseWorkspaceNumber(s)
		if err != nil {
			return cmd, fmt.Errorf("%s: %w", kind, err)
		}
		cmd.Workspace = &idx
	case CmdMoveWindowToWorkspace:
		s, err := need(0, "workspace")
		if err != nil {
			return cmd, err
		}
		idx, err := parseWorkspaceNumber(s)
		if err != nil {
			return cmd, fmt.Errorf("%s: %w", kind, err)
		}
		cmd.Workspace = &idx
		if s, ok := arg(1); ok {
			w, err := strconv.ParseUint(s, 0, 32)
			if err != nil {
				return cmd, fmt.Errorf("%s: invalid window %q: %w", kind, s, err)
			}
			win := uint32(w)
			cmd.Window = &win
		}
	case CmdSetWorkspaceLayout:
		s, err := need(0, "mode")
		if err != nil {
			return cmd, err
		}
		if cmd.Mode, err = ParseLayoutMode(s); err != nil {
			return cmd, fmt.Errorf("%s: %w", kind, err)
		}
		if s, ok := arg(1); ok {
			idx, err := parseWorkspaceNumber(s)
			if err != nil {
				return cmd, fmt.Errorf("%s: %w", kind, err)
			}
			cmd.Workspace = &idx
		}
	case CmdSwapWindows:
		a, err := need(0, "first window")
		if err != nil {
			return cmd, err
		}
		b, err := need(1, "second window")
		if err != nil {
			return cmd, err
		}
		if cmd.A, err = ParseWindowID(a); err != nil {
			return cmd, fmt.Errorf("%s: %w", kind, err)
		}
		if cmd.B, err = ParseWindowID(b); err != nil {
			return cmd, fmt.Errorf("%s: %w", kind, err)
		}
	default:
		if len(args) > 0 {
			return cmd, fmt.Errorf("%s takes no arguments", kind)
		}
	}
	return cmd, nil
}

func parseWorkspaceNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid workspace %q: %w", s, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("workspace numbers start at 1, got %d", n)
	}
	return n - 1, nil
}

// ParseWindowID parses the "pid:idx" form produced by WindowID.String.
func ParseWindowID(s string) (platform.WindowID, error) {
	pidStr, idxStr, ok := strings.Cut(s, ":")
	if !ok {
		return platform.WindowID{}, fmt.Errorf("invalid window id %q, want pid:idx", s)
	}
	pid, err := strconv.ParseInt(pidStr, 10, 32)
	if err != nil {
		return platform.WindowID{}, fmt.Errorf("invalid pid in %q: %w", s, err)
	}
	idx, err := strconv.ParseUint(idxStr, 0, 32)
	if err != nil {
		return platform.WindowID{}, fmt.Errorf("invalid index in %q: %w", s, err)
	}
	return platform.WindowID{PID: int32(pid), Idx: uint32(idx)}, nil
}
