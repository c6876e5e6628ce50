package reactor

import (
	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/tiling"
)

// Event is a message consumed by the reactor loop. The set is closed.
type Event interface {
	kind() string
}

// ScreenParametersChanged reports the current display set, in physical
// order, with the space each display shows.
type ScreenParametersChanged struct {
	Screens []platform.Screen
}

// SpaceChanged reports the space shown on each screen, in screen order.
// platform.NoSpace marks a screen that is not showing a manageable space.
type SpaceChanged struct {
	Spaces []platform.SpaceID
}

// AppInfo describes an application process.
type AppInfo struct {
	PID   int32  `json:"pid"`
	AppID string `json:"app_id"`
	Name  string `json:"name"`
}

// DiscoveredWindow is a window an application reported.
type DiscoveredWindow struct {
	ID   platform.WindowID
	Info platform.WindowInfo
}

type ApplicationLaunched struct {
	App     AppInfo
	Windows []DiscoveredWindow
}

type ApplicationTerminated struct {
	PID int32
}

// ApplicationActivated reports the frontmost application. Window is its
// focused window when the source knows it.
type ApplicationActivated struct {
	PID    int32
	Window platform.WindowID
}

// WindowsDiscovered is an application's answer to a visible-windows
// request. Known lists every window the application still has, so anything
// the reactor tracks for the pid and is missing from it is gone.
type WindowsDiscovered struct {
	PID   int32
	New   []DiscoveredWindow
	Known []platform.WindowID
}

type WindowCreated struct {
	Window DiscoveredWindow
}

type WindowDestroyed struct {
	ID platform.WindowID
}

// WindowServerAppeared is raised by the window server when it starts
// drawing a window on space.
type WindowServerAppeared struct {
	SysID platform.WindowServerID
	Space platform.SpaceID
}

type WindowServerDestroyed struct {
	SysID platform.WindowServerID
	Space platform.SpaceID
}

// ResyncAppForWindow asks the reactor to refresh the owner of a window.
type ResyncAppForWindow struct {
	SysID platform.WindowServerID
}

// WindowFrameChanged reports a new frame. MouseDown is set when the change
// happened with a mouse button held, which starts or continues a drag.
type WindowFrameChanged struct {
	ID        platform.WindowID
	Frame     platform.Rect
	MouseDown bool
}

type WindowTitleChanged struct {
	ID    platform.WindowID
	Title string
}

type MouseUp struct{}

type DisplayChurnBegin struct{}

type DisplayChurnEnd struct{}

// MissionControlEntered marks a modal system overview. On X11 this is the
// show-desktop mode.
type MissionControlEntered struct{}

type MissionControlExited struct{}

type SystemWoke struct{}

type RaiseCompleted struct {
	Sequence uint64
}

type RaiseTimeout struct {
	Sequence uint64
}

// Command runs a layout command against the space that has focus, or
// against Space when it is set.
type Command struct {
	Command tiling.LayoutCommand
	Space   platform.SpaceID
}

// ToggleSpaceActivated enables or disables management of a space. NoSpace
// means the space under the cursor.
type ToggleSpaceActivated struct {
	Space platform.SpaceID
}

// ConfigUpdated carries reloaded settings.
type ConfigUpdated struct {
	Settings Settings
}

// RefreshRequested forces every application to re-report its windows and
// the layout to be recomputed.
type RefreshRequested struct{}

// SaveState persists the layout engine document.
type SaveState struct {
	Path  string
	Reply chan error
}

// churnCheck is a timer callback issued after churn ended. It is ignored
// once the topology epoch has moved on.
type churnCheck struct {
	Epoch uint64
}

func (ScreenParametersChanged) kind() string { return "screen_parameters_changed" }
func (SpaceChanged) kind() string            { return "space_changed" }
func (ApplicationLaunched) kind() string     { return "application_launched" }
func (ApplicationTerminated) kind() string   { return "application_terminated" }
func (ApplicationActivated) kind() string    { return "application_activated" }
func (WindowsDiscovered) kind() string       { return "windows_discovered" }
func (WindowCreated) kind() string           { return "window_created" }
func (WindowDestroyed) kind() string         { return "window_destroyed" }
func (WindowServerAppeared) kind() string    { return "window_server_appeared" }
func (WindowServerDestroyed) kind() string   { return "window_server_destroyed" }
func (ResyncAppForWindow) kind() string      { return "resync_app_for_window" }
func (WindowFrameChanged) kind() string      { return "window_frame_changed" }
func (WindowTitleChanged) kind() string      { return "window_title_changed" }
func (MouseUp) kind() string                 { return "mouse_up" }
func (DisplayChurnBegin) kind() string       { return "display_churn_begin" }
func (DisplayChurnEnd) kind() string         { return "display_churn_end" }
func (MissionControlEntered) kind() string   { return "mission_control_entered" }
func (MissionControlExited) kind() string    { return "mission_control_exited" }
func (SystemWoke) kind() string              { return "system_woke" }
func (RaiseCompleted) kind() string          { return "raise_completed" }
func (RaiseTimeout) kind() string            { return "raise_timeout" }
func (Command) kind() string                 { return "command" }
func (ToggleSpaceActivated) kind() string    { return "toggle_space_activated" }
func (ConfigUpdated) kind() string           { return "config_updated" }
func (RefreshRequested) kind() string        { return "refresh_requested" }
func (SaveState) kind() string               { return "save_state" }
func (churnCheck) kind() string              { return "churn_check" }
func (query) kind() string                   { return "query" }

// allowedDuringChurn lists the structural events that are still applied
// while displays are reconfiguring.
func allowedDuringChurn(ev Event) bool {
	switch ev.(type) {
	case DisplayChurnBegin, DisplayChurnEnd, ScreenParametersChanged, SpaceChanged,
		MissionControlEntered, MissionControlExited, SystemWoke,
		ApplicationLaunched, ApplicationTerminated, ApplicationActivated,
		ConfigUpdated, Command, ToggleSpaceActivated, RaiseCompleted, RaiseTimeout,
		SaveState, churnCheck, query:
		return true
	}
	return false
}

// bufferedDuringChurn lists the events kept for replay after a commit. The
// rest of the disallowed events are dropped; the commit refresh recovers
// what they carried.
func bufferedDuringChurn(ev Event) bool {
	switch ev.(type) {
	case WindowServerAppeared, WindowServerDestroyed, ResyncAppForWindow:
		return true
	}
	return false
}
