package mcp

import (
	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/tiling"
)

// NoInput is used by tools that take no arguments.
type NoInput struct{}

// SpaceInput selects a space. Zero means every active space.
type SpaceInput struct {
	Space uint64 `json:"space,omitempty" jsonschema:"Space id as reported by list_displays (default: all active spaces)"`
}

// LayoutInput selects the space whose layout to report.
type LayoutInput struct {
	Space uint64 `json:"space" jsonschema:"required,Space id as reported by list_displays"`
}

// WindowInput identifies a tracked window.
type WindowInput struct {
	PID int32  `json:"pid" jsonschema:"required,Process id owning the window"`
	Idx uint32 `json:"idx" jsonschema:"required,Window index within the process (the X window id)"`
}

// RunLayoutCommandInput is the input for the run_layout_command tool.
type RunLayoutCommandInput struct {
	Command string   `json:"command" jsonschema:"required,Layout command name such as move_focus, swap_window or switch_to_workspace"`
	Args    []string `json:"args,omitempty" jsonschema:"Positional arguments, e.g. [\"left\"] or [\"2\"]. Workspace numbers start at 1."`
	Space   uint64   `json:"space,omitempty" jsonschema:"Space to run the command on (default: the space under the cursor)"`
}

// RunLayoutCommandOutput is the output for the run_layout_command tool.
type RunLayoutCommandOutput struct {
	Command string `json:"command"`
	Sent    bool   `json:"sent"`
}

// SaveStateInput is the input for the save_state tool.
type SaveStateInput struct {
	Path string `json:"path,omitempty" jsonschema:"File to write (default: the configured state file)"`
}

// SaveStateOutput is the output for the save_state tool.
type SaveStateOutput struct {
	Path string `json:"path"`
}

// StatusOutput is the output for the get_status tool.
type StatusOutput struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	ConfigPath    string `json:"config_path,omitempty"`
	StatePath     string `json:"state_path,omitempty"`
	Reactor       string `json:"reactor"`
}

type DisplaysOutput struct {
	Displays []reactor.DisplayInfo `json:"displays"`
}

type WorkspacesOutput struct {
	Spaces []reactor.SpaceWorkspaces `json:"spaces"`
}

type WindowsOutput struct {
	Windows []reactor.WindowSnapshot `json:"windows"`
}

type WindowOutput struct {
	Window reactor.WindowSnapshot `json:"window"`
}

type LayoutOutput struct {
	Layout tiling.LayoutState `json:"layout"`
}

type ApplicationsOutput struct {
	Applications []reactor.AppSnapshot `json:"applications"`
}

type MetricsOutput struct {
	Metrics reactor.MetricsReport `json:"metrics"`
}

// DumpStateOutput carries the persisted layout document as YAML.
type DumpStateOutput struct {
	State string `json:"state"`
}

// CommandsOutput lists the layout commands run_layout_command accepts.
type CommandsOutput struct {
	Commands []string `json:"commands"`
}

func spaceOf(v uint64) platform.SpaceID { return platform.SpaceID(v) }
