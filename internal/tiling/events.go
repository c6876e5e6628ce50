package tiling

import "github.com/1broseidon/spacetile/internal/platform"

// LayoutEvent is a state notification the engine folds into its layouts.
type LayoutEvent interface {
	layoutEvent()
}

// WindowDescriptor describes one window reported for an application.
type WindowDescriptor struct {
	Window    platform.WindowID
	Title     string
	Role      string
	Subrole   string
	Resizable bool
	// SizeHint is the size a non-resizable window insists on.
	SizeHint platform.Size
}

// WindowsOnScreenUpdated replaces the set of windows an application has on
// a space.
type WindowsOnScreenUpdated struct {
	Space   platform.SpaceID
	PID     int32
	AppID   string
	Windows []WindowDescriptor
}

type AppClosed struct {
	PID int32
}

type WindowAdded struct {
	Space  platform.SpaceID
	Window platform.WindowID
}

// WindowRemoved drops a window. With PreserveFloating the window keeps its
// floating status and stored positions, which is used when it only left the
// active set temporarily.
type WindowRemoved struct {
	Window           platform.WindowID
	PreserveFloating bool
}

type WindowFocused struct {
	Space  platform.SpaceID
	Window platform.WindowID
}

// ScreenRef identifies a screen a resize may affect.
type ScreenRef struct {
	Space       platform.SpaceID
	Frame       platform.Rect
	DisplayUUID string
}

// WindowResized reports a user-driven frame change.
type WindowResized struct {
	Window   platform.WindowID
	OldFrame platform.Rect
	NewFrame platform.Rect
	Screens  []ScreenRef
}

// SpaceExposed makes sure every workspace of the space has a layout.
type SpaceExposed struct {
	Space platform.SpaceID
	Size  platform.Size
}

func (WindowsOnScreenUpdated) layoutEvent() {}
func (AppClosed) layoutEvent()              {}
func (WindowAdded) layoutEvent()            {}
func (WindowRemoved) layoutEvent()          {}
func (WindowFocused) layoutEvent()          {}
func (WindowResized) layoutEvent()          {}
func (SpaceExposed) layoutEvent()           {}

// BroadcastKind names an outbound notification.
type BroadcastKind string

const (
	BroadcastWorkspaceChanged BroadcastKind = "workspace_changed"
	BroadcastWindowsChanged   BroadcastKind = "windows_changed"
)

// BroadcastEvent is published to external observers when workspace state
// changes.
type BroadcastEvent struct {
	Kind          BroadcastKind      `json:"kind"`
	Space         platform.SpaceID   `json:"space"`
	Workspace     VirtualWorkspaceID `json:"workspace"`
	WorkspaceName string             `json:"workspace_name"`
	DisplayUUID   string             `json:"display_uuid,omitempty"`
	Windows       []string           `json:"windows,omitempty"`
}
