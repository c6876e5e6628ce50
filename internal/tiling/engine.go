package tiling

import (
	"log/slog"
	"sort"

	"github.com/1broseidon/spacetile/internal/platform"
)

// defaultWindowSize is assumed for windows whose frame is unknown.
var defaultWindowSize = platform.Size{Width: 500, Height: 500}

// GapSettings resolves the gaps to use on a display.
type GapSettings struct {
	Default    Gaps
	PerDisplay map[string]Gaps
}

// For returns the gaps configured for displayUUID, or the default.
func (g GapSettings) For(displayUUID string) Gaps {
	if gaps, ok := g.PerDisplay[displayUUID]; ok && displayUUID != "" {
		return gaps
	}
	return g.Default
}

// EngineOptions configures a layout engine.
type EngineOptions struct {
	Logger      *slog.Logger
	DefaultMode LayoutMode
	Settings    Settings
	Workspaces  WorkspaceSettings
	Gaps        GapSettings
	// Broadcast, when set, receives workspace and window change
	// notifications. It must not block.
	Broadcast func(BroadcastEvent)
}

// Engine pairs every space with its virtual workspaces and their layout
// systems, and applies layout events and commands to them. It is not safe
// for concurrent use; the reactor owns it.
type Engine struct {
	log       *slog.Logger
	settings  Settings
	gaps      GapSettings
	vwm       *VirtualWorkspaceManager
	floating  *FloatingManager
	focused   platform.WindowID
	broadcast func(BroadcastEvent)

	spaceDisplay     map[platform.SpaceID]string
	displayLastSpace map[string]platform.SpaceID

	lockedResize map[platform.WindowID]bool
	lockedSizes  map[platform.WindowID]platform.Size
}

func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := opts.DefaultMode
	if mode == "" {
		mode = ModeTraditional
	}
	return &Engine{
		log:              logger,
		settings:         opts.Settings,
		gaps:             opts.Gaps,
		vwm:              NewVirtualWorkspaceManager(opts.Workspaces, mode, opts.Settings),
		floating:         NewFloatingManager(),
		broadcast:        opts.Broadcast,
		spaceDisplay:     make(map[platform.SpaceID]string),
		displayLastSpace: make(map[string]platform.SpaceID),
		lockedResize:     make(map[platform.WindowID]bool),
		lockedSizes:      make(map[platform.WindowID]platform.Size),
	}
}

func (e *Engine) Workspaces() *VirtualWorkspaceManager { return e.vwm }

func (e *Engine) Floating() *FloatingManager { return e.floating }

func (e *Engine) Gaps() GapSettings { return e.gaps }

func (e *Engine) FocusedWindow() (platform.WindowID, bool) {
	return e.focused, !e.focused.IsZero()
}

func (e *Engine) IsFloating(wid platform.WindowID) bool { return e.floating.IsFloating(wid) }

// UpdateSettings applies reloaded configuration. Workspaces whose layout
// rule changed are rebuilt in the new mode.
func (e *Engine) UpdateSettings(opts EngineOptions) {
	mode := opts.DefaultMode
	if mode == "" {
		mode = ModeTraditional
	}
	e.settings = opts.Settings
	e.gaps = opts.Gaps
	changed := e.vwm.UpdateSettings(opts.Workspaces, mode, opts.Settings)
	for _, ws := range e.vwm.workspaces {
		switch sys := ws.System.(type) {
		case *MasterStackSystem:
			sys.UpdateSettings(opts.Settings.MasterStack)
		case *ScrollingSystem:
			sys.UpdateSettings(opts.Settings.Scrolling)
		}
	}
	for id, mode := range changed {
		if ws, ok := e.vwm.Workspace(id); ok {
			e.switchWorkspaceLayoutMode(ws, mode)
		}
	}
}

func (e *Engine) workspaceAndLayout(space platform.SpaceID) (*VirtualWorkspace, LayoutID, bool) {
	id, ok := e.vwm.ActiveWorkspace(space)
	if !ok {
		return nil, 0, false
	}
	ws, ok := e.vwm.Workspace(id)
	if !ok {
		return nil, 0, false
	}
	layout, ok := ws.Layout()
	if !ok {
		return ws, 0, false
	}
	return ws, layout, true
}

// ActiveWorkspace returns the active workspace of space.
func (e *Engine) ActiveWorkspace(space platform.SpaceID) (*VirtualWorkspace, bool) {
	id, ok := e.vwm.ActiveWorkspace(space)
	if !ok {
		return nil, false
	}
	return e.vwm.Workspace(id)
}

func (e *Engine) WindowsInActiveWorkspace(space platform.SpaceID) []platform.WindowID {
	return e.vwm.WindowsInActiveWorkspace(space)
}

func (e *Engine) IsWindowInActiveWorkspace(space platform.SpaceID, wid platform.WindowID) bool {
	return e.vwm.IsWindowInActiveWorkspace(space, wid)
}

// SelectedWindow returns the selection of the active layout of space.
func (e *Engine) SelectedWindow(space platform.SpaceID) (platform.WindowID, bool) {
	ws, layout, ok := e.workspaceAndLayout(space)
	if !ok {
		return platform.WindowID{}, false
	}
	return ws.System.SelectedWindow(layout)
}

// LayoutModeAt reports the mode of the active workspace of space.
func (e *Engine) LayoutModeAt(space platform.SpaceID) (LayoutMode, bool) {
	ws, ok := e.ActiveWorkspace(space)
	if !ok {
		return "", false
	}
	return ws.Mode, true
}

func (e *Engine) HasFullscreen(space platform.SpaceID) bool {
	ws, layout, ok := e.workspaceAndLayout(space)
	return ok && ws.System.HasAnyFullscreen(layout)
}

func (e *Engine) activeFloating(space platform.SpaceID) []platform.WindowID {
	var out []platform.WindowID
	for _, wid := range e.floating.ActiveFlat(space) {
		if e.vwm.IsWindowInActiveWorkspace(space, wid) {
			out = append(out, wid)
		}
	}
	return out
}

func (e *Engine) filterActive(space platform.SpaceID, ids []platform.WindowID) []platform.WindowID {
	var out []platform.WindowID
	for _, wid := range ids {
		if e.vwm.IsWindowInActiveWorkspace(space, wid) {
			out = append(out, wid)
		}
	}
	return out
}

func (e *Engine) isResizeLocked(wid platform.WindowID) bool { return e.lockedResize[wid] }

func (e *Engine) applyFocus(space platform.SpaceID, ws *VirtualWorkspace, layout LayoutID, resp EventResponse) {
	if !resp.HasFocus {
		return
	}
	wid := resp.FocusWindow
	e.focused = wid
	if e.floating.IsFloating(wid) {
		e.floating.SetLastFocus(wid)
		return
	}
	ws.System.SelectWindow(layout, wid)
	e.vwm.SetLastFocusedWindow(space, ws.ID, wid)
}

// refocusWorkspace picks what to focus after switching to ws: its focus
// memory, then the layout selection, then the first visible tiled window,
// then floating windows.
func (e *Engine) refocusWorkspace(space platform.SpaceID, ws *VirtualWorkspace) EventResponse {
	belongs := func(wid platform.WindowID) bool {
		id, ok := e.vwm.WorkspaceForWindow(space, wid)
		return ok && id == ws.ID
	}
	var focus platform.WindowID
	if wid, ok := ws.LastFocused(); ok && belongs(wid) {
		focus = wid
	}
	layout, hasLayout := ws.Layout()
	if focus.IsZero() && hasLayout {
		if wid, ok := ws.System.SelectedWindow(layout); ok && belongs(wid) {
			focus = wid
		} else {
			for _, wid := range ws.System.VisibleWindows(layout) {
				if belongs(wid) {
					focus = wid
					break
				}
			}
		}
	}
	if focus.IsZero() {
		floats := e.activeFloating(space)
		if last, ok := e.floating.LastFocus(); ok && containsWindow(floats, last) {
			focus = last
		} else if len(floats) > 0 {
			focus = floats[0]
		}
	}

	if focus.IsZero() {
		e.focused = platform.WindowID{}
		e.vwm.SetLastFocusedWindow(space, ws.ID, platform.WindowID{})
		return EventResponse{}
	}
	e.focused = focus
	e.vwm.SetLastFocusedWindow(space, ws.ID, focus)
	if e.floating.IsFloating(focus) {
		e.floating.SetLastFocus(focus)
	} else if hasLayout {
		ws.System.SelectWindow(layout, focus)
	}
	return focusResponse(focus)
}

// HandleEvent folds a layout event into the engine state.
func (e *Engine) HandleEvent(ev LayoutEvent) EventResponse {
	switch ev := ev.(type) {
	case SpaceExposed:
		for _, ws := range e.vwm.ListWorkspaces(ev.Space) {
			ws.ensureLayout()
		}
	case WindowsOnScreenUpdated:
		e.windowsOnScreenUpdated(ev)
	case AppClosed:
		for _, ws := range e.vwm.workspaces {
			ws.System.RemoveWindowsForApp(ev.PID)
		}
		e.floating.RemoveAllForPID(ev.PID)
		for wid := range e.lockedResize {
			if wid.PID == ev.PID {
				delete(e.lockedResize, wid)
				delete(e.lockedSizes, wid)
			}
		}
		e.vwm.RemoveWindowsForApp(ev.PID)
		e.vwm.RemoveAppFloatingPositions(ev.PID)
		if e.focused.PID == ev.PID {
			e.focused = platform.WindowID{}
		}
	case WindowAdded:
		e.windowAdded(ev.Space, ev.Window)
	case WindowRemoved:
		e.removeWindow(ev.Window, ev.PreserveFloating)
	case WindowFocused:
		e.focused = ev.Window
		if e.floating.IsFloating(ev.Window) {
			e.floating.SetLastFocus(ev.Window)
			break
		}
		ws, layout, ok := e.workspaceAndLayout(ev.Space)
		if !ok {
			e.log.Warn("no active layout for focused window", "window", ev.Window, "space", ev.Space)
			return EventResponse{}
		}
		ws.System.SelectWindow(layout, ev.Window)
		e.vwm.SetLastFocusedWindow(ev.Space, ws.ID, ev.Window)
	case WindowResized:
		if e.isResizeLocked(ev.Window) {
			e.lockedSizes[ev.Window] = ev.NewFrame.Size()
			return EventResponse{}
		}
		for _, screen := range ev.Screens {
			ws, layout, ok := e.workspaceAndLayout(screen.Space)
			if !ok {
				e.log.Debug("no active layout for resized window", "window", ev.Window, "space", screen.Space)
				continue
			}
			ws.System.OnWindowResized(layout, ev.Window, ev.OldFrame, ev.NewFrame, screen.Frame, e.gaps.For(screen.DisplayUUID))
		}
	default:
		e.log.Debug("unhandled layout event", "event", ev)
	}
	return EventResponse{}
}

func (e *Engine) windowsOnScreenUpdated(ev WindowsOnScreenUpdated) {
	space := ev.Space
	e.floating.ClearActiveForApp(space, ev.PID)
	byWorkspace := make(map[VirtualWorkspaceID][]platform.WindowID)
	total := 0

	for _, d := range ev.Windows {
		wid := d.Window
		if d.Resizable {
			delete(e.lockedResize, wid)
			delete(e.lockedSizes, wid)
		} else {
			e.lockedResize[wid] = true
			if d.SizeHint.Width > 0 && d.SizeHint.Height > 0 {
				e.lockedSizes[wid] = d.SizeHint
			}
		}

		wasFloating := e.floating.IsFloating(wid)
		a, managed, err := e.vwm.AssignWindow(wid, space, AppInfo{AppID: ev.AppID, Title: d.Title})
		if err != nil {
			e.log.Warn("app rule assignment failed, using active workspace", "window", wid, "space", space, "error", err)
			id, aerr := e.vwm.AutoAssignWindow(wid, space)
			if aerr != nil {
				e.log.Warn("could not determine workspace for window", "window", wid, "space", space, "error", aerr)
				continue
			}
			a = Assignment{Workspace: id, Floating: wasFloating}
			managed = true
		}
		if !managed {
			continue
		}

		shouldFloat := a.Floating || (!a.RuleFloated && wasFloating)
		if shouldFloat {
			e.floating.AddFloating(wid)
			e.floating.AddActive(space, wid)
		} else if wasFloating {
			e.floating.RemoveFloating(wid)
		}
		if !e.floating.IsFloating(wid) {
			byWorkspace[a.Workspace] = append(byWorkspace[a.Workspace], wid)
			total++
		}
		e.vwm.SetLastRuleDecision(space, wid, a.Ruled && a.Floating)
	}

	for _, ws := range e.vwm.ListWorkspaces(space) {
		layout, ok := ws.Layout()
		if !ok {
			continue
		}
		desired := append([]platform.WindowID(nil), byWorkspace[ws.ID]...)
		for _, wid := range ws.windows {
			if wid.PID != ev.PID || e.floating.IsFloating(wid) || containsWindow(desired, wid) {
				continue
			}
			desired = append(desired, wid)
		}
		if len(desired) == 0 && total == 0 && e.hasWindowsForApp(ws, layout, ev.PID) {
			continue
		}
		ws.System.SetWindowsForApp(layout, ev.PID, desired)
	}
	e.broadcastWindowsChanged(space)
}

func (e *Engine) hasWindowsForApp(ws *VirtualWorkspace, layout LayoutID, pid int32) bool {
	for _, wid := range ws.System.Windows(layout) {
		if wid.PID == pid {
			return true
		}
	}
	return false
}

func (e *Engine) windowAdded(space platform.SpaceID, wid platform.WindowID) {
	id, ok := e.vwm.WorkspaceForWindow(space, wid)
	if !ok {
		var err error
		id, err = e.vwm.AutoAssignWindow(wid, space)
		if err != nil {
			e.log.Warn("failed to auto-assign window", "window", wid, "space", space, "error", err)
			active, ok := e.vwm.ActiveWorkspace(space)
			if !ok {
				return
			}
			id = active
		}
	}
	ws, ok := e.vwm.Workspace(id)
	if !ok {
		return
	}
	if e.floating.IsFloating(wid) {
		e.floating.AddActive(space, wid)
	} else if layout, ok := ws.Layout(); ok {
		if !ws.System.ContainsWindow(layout, wid) {
			ws.System.AddWindowAfterSelection(layout, wid)
		}
	} else {
		e.log.Warn("no active layout for workspace, window not tiled", "workspace", id, "space", space, "window", wid)
	}
	e.broadcastWindowsChanged(space)
}

func (e *Engine) removeWindow(wid platform.WindowID, preserveFloating bool) {
	space, hadSpace := e.spaceWithWindow(wid)
	delete(e.lockedResize, wid)
	delete(e.lockedSizes, wid)

	ids := e.vwm.WorkspacesForWindow(wid)
	if len(ids) == 0 {
		e.removeFromAllTrees(wid)
	}
	for _, id := range ids {
		if ws, ok := e.vwm.Workspace(id); ok {
			ws.System.RemoveWindow(wid)
		}
	}
	if preserveFloating {
		e.floating.RemoveActiveForWindow(wid)
	} else {
		e.floating.RemoveFloating(wid)
	}
	e.vwm.RemoveWindow(wid)
	if !preserveFloating {
		e.vwm.RemoveFloatingPosition(wid)
	}
	if e.focused == wid {
		e.focused = platform.WindowID{}
	}
	if hadSpace {
		e.broadcastWindowsChanged(space)
	}
}

func (e *Engine) removeFromAllTrees(wid platform.WindowID) {
	for _, ws := range e.vwm.workspaces {
		ws.System.RemoveWindow(wid)
	}
}

func (e *Engine) spaceWithWindow(wid platform.WindowID) (platform.SpaceID, bool) {
	for _, space := range e.vwm.Spaces() {
		if ws, layout, ok := e.workspaceAndLayout(space); ok && ws.System.ContainsWindow(layout, wid) {
			return space, true
		}
		if containsWindow(e.floating.ActiveFlat(space), wid) {
			return space, true
		}
	}
	return platform.NoSpace, false
}

// HandleCommand applies a user command to the active layout of space.
// visible lists the spaces currently shown and centers their screen
// midpoints; both drive focus and moves that cross screens.
func (e *Engine) HandleCommand(space platform.SpaceID, visible []platform.SpaceID, centers map[platform.SpaceID]platform.Point, cmd LayoutCommand) EventResponse {
	if cmd.IsWorkspaceCommand() {
		if !space.Valid() {
			return EventResponse{}
		}
		return e.handleWorkspaceCommand(space, cmd)
	}

	isFloating := !e.focused.IsZero() && e.floating.IsFloating(e.focused)

	if cmd.Kind == CmdToggleWindowFloating {
		e.toggleWindowFloating(space, isFloating)
		return EventResponse{}
	}
	if !space.Valid() {
		return EventResponse{}
	}
	ws, layout, ok := e.workspaceAndLayout(space)
	if !ok {
		e.log.Warn("no active layout for space, command ignored", "space", space, "command", cmd.Kind)
		return EventResponse{}
	}
	sys := ws.System

	switch cmd.Kind {
	case CmdToggleFocusFloating:
		var resp EventResponse
		if isFloating {
			raise := sys.VisibleWindows(layout)
			if wid, ok := sys.SelectedWindow(layout); ok {
				resp = EventResponse{RaiseWindows: raise, FocusWindow: wid, HasFocus: true}
			} else if n := len(raise); n > 0 {
				resp = EventResponse{RaiseWindows: raise[:n-1], FocusWindow: raise[n-1], HasFocus: true}
			}
		} else {
			last, hasLast := e.floating.LastFocus()
			var raise []platform.WindowID
			for _, wid := range e.activeFloating(space) {
				if !hasLast || wid != last {
					raise = append(raise, wid)
				}
			}
			switch {
			case hasLast:
				resp = EventResponse{RaiseWindows: raise, FocusWindow: last, HasFocus: true}
			case len(raise) > 0:
				n := len(raise)
				resp = EventResponse{RaiseWindows: raise[:n-1], FocusWindow: raise[n-1], HasFocus: true}
			}
		}
		e.applyFocus(space, ws, layout, resp)
		return resp

	case CmdSwapWindows:
		sys.SwapWindows(layout, cmd.A, cmd.B)

	case CmdNextWindow, CmdPrevWindow:
		var windows []platform.WindowID
		if isFloating {
			windows = e.activeFloating(space)
		} else {
			windows = e.filterActive(space, sys.VisibleWindows(layout))
		}
		for i, wid := range windows {
			if wid != e.focused {
				continue
			}
			n := len(windows)
			next := (i + 1) % n
			if cmd.Kind == CmdPrevWindow {
				next = (i + n - 1) % n
			}
			resp := EventResponse{RaiseWindows: []platform.WindowID{windows[next]}, FocusWindow: windows[next], HasFocus: true}
			e.applyFocus(space, ws, layout, resp)
			return resp
		}

	case CmdMoveFocus:
		return e.moveFocus(space, visible, centers, cmd.Direction, isFloating)

	case CmdAscend:
		if !isFloating {
			sys.AscendSelection(layout)
		}

	case CmdDescend:
		sys.DescendSelection(layout)

	case CmdMoveNode:
		if sys.MoveSelection(layout, cmd.Direction) {
			break
		}
		target, ok := e.nextSpaceForDirection(space, cmd.Direction, visible, centers)
		if !ok {
			break
		}
		tws, tlayout, ok := e.workspaceAndLayout(target)
		if !ok {
			e.log.Debug("no active layout for adjacent space, cross-space move skipped", "space", target)
			break
		}
		wid, ok := sys.SelectedWindow(layout)
		if !ok {
			break
		}
		sys.RemoveWindow(wid)
		tws.System.AddWindowAfterSelection(tlayout, wid)
		e.vwm.AssignWindowToWorkspace(target, wid, tws.ID)
		e.broadcastWindowsChanged(space)
		e.broadcastWindowsChanged(target)

	case CmdToggleFullscreen:
		return EventResponse{RaiseWindows: sys.ToggleFullscreen(layout)}

	case CmdToggleFullscreenWithinGaps:
		return EventResponse{RaiseWindows: sys.ToggleFullscreenWithinGaps(layout)}

	case CmdJoinWindow:
		sys.JoinSelection(layout, cmd.Direction)

	case CmdToggleStack:
		return EventResponse{RaiseWindows: sys.ToggleStack(layout)}

	case CmdUnjoinWindows:
		sys.UnjoinSelection(layout)

	case CmdToggleOrientation:
		sys.ToggleOrientation(layout)

	case CmdResizeGrow, CmdResizeShrink, CmdResizeBy:
		if isFloating {
			break
		}
		if wid, ok := sys.SelectedWindow(layout); ok && e.isResizeLocked(wid) {
			break
		}
		amount := cmd.Amount
		switch cmd.Kind {
		case CmdResizeGrow:
			amount = resizeStep
		case CmdResizeShrink:
			amount = -resizeStep
		}
		sys.ResizeSelectionBy(layout, amount)

	case CmdAdjustMasterRatio:
		if ms, ok := sys.(*MasterStackSystem); ok {
			ms.AdjustMasterRatio(cmd.Amount)
		}

	case CmdAdjustMasterCount:
		if ms, ok := sys.(*MasterStackSystem); ok {
			ms.AdjustMasterCount(cmd.Count)
		}

	case CmdPromoteToMaster:
		if ms, ok := sys.(*MasterStackSystem); ok {
			ms.PromoteToMaster(layout)
		}

	case CmdSwapMasterStack:
		if ms, ok := sys.(*MasterStackSystem); ok {
			ms.SwapMasterStack(layout)
		}

	case CmdScrollStrip:
		if sc, ok := sys.(*ScrollingSystem); ok {
			if dir, hit := sc.ScrollByDelta(layout, cmd.Amount); hit {
				return EventResponse{BoundaryHit: &dir}
			}
		}

	case CmdSnapStrip:
		if sc, ok := sys.(*ScrollingSystem); ok {
			sc.SnapToNearestColumn(layout)
		}

	case CmdCenterSelection:
		if sc, ok := sys.(*ScrollingSystem); ok {
			sc.CenterSelection(layout)
		}

	default:
		e.log.Debug("unhandled layout command", "command", cmd.Kind)
	}
	return EventResponse{}
}

func (e *Engine) toggleWindowFloating(space platform.SpaceID, isFloating bool) {
	wid := e.focused
	if wid.IsZero() {
		return
	}
	if isFloating {
		if space.Valid() {
			id, ok := e.vwm.WorkspaceForWindow(space, wid)
			if !ok {
				id, ok = e.vwm.ActiveWorkspace(space)
			}
			if ws, found := e.vwm.Workspace(id); ok && found {
				if layout, ok := ws.Layout(); ok {
					ws.System.AddWindowAfterSelection(layout, wid)
				}
			}
			e.floating.RemoveActive(space, wid)
		}
		e.floating.RemoveFloating(wid)
		e.floating.SetLastFocus(platform.WindowID{})
		return
	}
	if space.Valid() {
		e.floating.AddActive(space, wid)
		if ws, ok := e.ActiveWorkspace(space); ok {
			ws.System.RemoveWindow(wid)
		}
	}
	e.floating.AddFloating(wid)
	e.floating.SetLastFocus(wid)
}

func (e *Engine) moveFocus(space platform.SpaceID, visible []platform.SpaceID, centers map[platform.SpaceID]platform.Point, dir Direction, isFloating bool) EventResponse {
	ws, layout, ok := e.workspaceAndLayout(space)
	if !ok {
		e.log.Warn("no active layout for space, move_focus ignored", "space", space)
		return EventResponse{}
	}
	sys := ws.System

	if isFloating {
		floats := e.activeFloating(space)
		if dir.Orientation() == Horizontal && len(floats) > 1 {
			for i, wid := range floats {
				if wid != e.focused {
					continue
				}
				n := len(floats)
				next := (i + 1) % n
				if dir == DirLeft {
					next = (i + n - 1) % n
				}
				resp := focusResponse(floats[next])
				e.applyFocus(space, ws, layout, resp)
				return resp
			}
		}
		tiled := e.filterActive(space, sys.VisibleWindows(layout))
		if len(tiled) == 0 {
			return EventResponse{}
		}
		resp := EventResponse{RaiseWindows: tiled, FocusWindow: tiled[0], HasFocus: true}
		e.applyFocus(space, ws, layout, resp)
		return resp
	}

	previous, hadPrevious := sys.SelectedWindow(layout)
	if wid, ok := sys.MoveFocus(layout, dir); ok && e.vwm.IsWindowInActiveWorkspace(space, wid) {
		resp := EventResponse{FocusWindow: wid, HasFocus: true, RaiseWindows: e.filterActive(space, sys.VisibleWindows(layout))}
		e.applyFocus(space, ws, layout, resp)
		return resp
	}
	if hadPrevious {
		sys.SelectWindow(layout, previous)
	}

	if target, ok := e.nextSpaceForDirection(space, dir, visible, centers); ok {
		tws, tlayout, ok := e.workspaceAndLayout(target)
		if !ok {
			e.log.Debug("no active layout for adjacent space, cross-space focus skipped", "space", target)
			return EventResponse{}
		}
		windows := e.filterActive(target, tws.System.VisibleWindows(tlayout))
		if len(windows) > 0 {
			// Enter the neighbour from the edge facing us.
			entry := windows[0]
			if !dir.Forward() {
				entry = windows[len(windows)-1]
			}
			resp := EventResponse{RaiseWindows: windows, FocusWindow: entry, HasFocus: true}
			e.applyFocus(target, tws, tlayout, resp)
			return resp
		}
	}

	if floats := e.activeFloating(space); len(floats) > 0 {
		resp := focusResponse(floats[0])
		e.applyFocus(space, ws, layout, resp)
		return resp
	}

	tiled := e.filterActive(space, sys.VisibleWindows(layout))
	fallback := platform.WindowID{}
	if hadPrevious && e.vwm.IsWindowInActiveWorkspace(space, previous) {
		fallback = previous
	} else if len(tiled) > 0 {
		fallback = tiled[0]
	}
	if fallback.IsZero() {
		return EventResponse{}
	}
	resp := EventResponse{RaiseWindows: tiled, FocusWindow: fallback, HasFocus: true}
	e.applyFocus(space, ws, layout, resp)
	return resp
}

// nextSpaceForDirection finds the visible space whose screen center is
// nearest in dir. Horizontal moves fall back to list order when no screen
// lies strictly in that direction.
func (e *Engine) nextSpaceForDirection(current platform.SpaceID, dir Direction, visible []platform.SpaceID, centers map[platform.SpaceID]platform.Point) (platform.SpaceID, bool) {
	if len(visible) <= 1 {
		return platform.NoSpace, false
	}
	cur, ok := centers[current]
	if !ok {
		return platform.NoSpace, false
	}
	type candidate struct {
		space platform.SpaceID
		delta float64
	}
	var cands []candidate
	for _, s := range visible {
		if s == current {
			continue
		}
		c, ok := centers[s]
		if !ok {
			continue
		}
		if d, ok := directionalDelta(dir, cur, c); ok {
			cands = append(cands, candidate{s, d})
		}
	}
	if len(cands) > 0 {
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].delta < cands[j].delta })
		return cands[0].space, true
	}
	switch dir {
	case DirLeft:
		for i := len(visible) - 1; i >= 0; i-- {
			if visible[i] != current {
				return visible[i], true
			}
		}
	case DirRight:
		for _, s := range visible {
			if s != current {
				return s, true
			}
		}
	}
	return platform.NoSpace, false
}

// directionalDelta measures how far candidate lies from current in dir.
// Screen y grows downward in X11, so Up means a smaller y.
func directionalDelta(dir Direction, current, candidate platform.Point) (float64, bool) {
	var d float64
	switch dir {
	case DirLeft:
		d = current.X - candidate.X
	case DirRight:
		d = candidate.X - current.X
	case DirUp:
		d = current.Y - candidate.Y
	case DirDown:
		d = candidate.Y - current.Y
	}
	return d, d > 0
}

func (e *Engine) handleWorkspaceCommand(space platform.SpaceID, cmd LayoutCommand) EventResponse {
	switch cmd.Kind {
	case CmdNextWorkspace, CmdPrevWorkspace:
		cur, ok := e.vwm.ActiveWorkspace(space)
		if !ok {
			return EventResponse{}
		}
		var next VirtualWorkspaceID
		if cmd.Kind == CmdNextWorkspace {
			next, ok = e.vwm.NextWorkspace(space, cur, cmd.SkipEmpty)
		} else {
			next, ok = e.vwm.PrevWorkspace(space, cur, cmd.SkipEmpty)
		}
		if !ok {
			return EventResponse{}
		}
		return e.switchTo(space, next)

	case CmdSwitchToWorkspace:
		if cmd.Workspace == nil {
			return EventResponse{}
		}
		ws, ok := e.vwm.WorkspaceAt(space, *cmd.Workspace)
		if !ok {
			return EventResponse{}
		}
		if cur, ok := e.vwm.ActiveWorkspace(space); ok && cur == ws.ID {
			if e.vwm.AutoBackAndForth() {
				if last, ok := e.vwm.LastWorkspace(space); ok {
					return e.switchTo(space, last)
				}
			}
			return EventResponse{}
		}
		return e.switchTo(space, ws.ID)

	case CmdSwitchToLastWorkspace:
		if last, ok := e.vwm.LastWorkspace(space); ok {
			return e.switchTo(space, last)
		}

	case CmdCreateWorkspace:
		if _, err := e.vwm.CreateWorkspace(space, ""); err != nil {
			e.log.Warn("failed to create workspace", "space", space, "error", err)
			return EventResponse{}
		}
		for _, ws := range e.vwm.ListWorkspaces(space) {
			ws.ensureLayout()
		}
		e.broadcastWorkspaceChanged(space)

	case CmdMoveWindowToWorkspace:
		return e.moveWindowToWorkspace(space, cmd)

	case CmdSetWorkspaceLayout:
		var ws *VirtualWorkspace
		if cmd.Workspace != nil {
			w, ok := e.vwm.WorkspaceAt(space, *cmd.Workspace)
			if !ok {
				return EventResponse{}
			}
			ws = w
		} else {
			w, ok := e.ActiveWorkspace(space)
			if !ok {
				return EventResponse{}
			}
			ws = w
		}
		if !e.switchWorkspaceLayoutMode(ws, cmd.Mode) {
			return EventResponse{}
		}
		e.broadcastWorkspaceChanged(space)
		e.broadcastWindowsChanged(space)
		if active, ok := e.vwm.ActiveWorkspace(space); !ok || active != ws.ID {
			return EventResponse{}
		}
		resp := EventResponse{RaiseWindows: e.vwm.WindowsInActiveWorkspace(space)}
		if !e.focused.IsZero() {
			resp.FocusWindow, resp.HasFocus = e.focused, true
		}
		return resp
	}
	return EventResponse{}
}

func (e *Engine) switchTo(space platform.SpaceID, id VirtualWorkspaceID) EventResponse {
	if !e.vwm.SetActiveWorkspace(space, id) {
		return EventResponse{}
	}
	e.floating.RebuildActiveForWorkspace(space, e.vwm.WindowsInActiveWorkspace(space))
	e.broadcastWorkspaceChanged(space)
	e.broadcastWindowsChanged(space)
	ws, _ := e.vwm.Workspace(id)
	return e.refocusWorkspace(space, ws)
}

func (e *Engine) moveWindowToWorkspace(space platform.SpaceID, cmd LayoutCommand) EventResponse {
	if cmd.Workspace == nil {
		return EventResponse{}
	}
	var wid platform.WindowID
	if cmd.Window != nil {
		w, ok := e.vwm.FindWindowByIdx(space, *cmd.Window)
		if !ok {
			return EventResponse{}
		}
		wid = w
	} else {
		if e.focused.IsZero() {
			return EventResponse{}
		}
		wid = e.focused
	}

	opSpace := space
	if inferred, ok := e.spaceWithWindow(wid); ok {
		opSpace = inferred
	}
	target, ok := e.vwm.WorkspaceAt(opSpace, *cmd.Workspace)
	if !ok {
		return EventResponse{}
	}
	current, ok := e.vwm.WorkspaceForWindow(opSpace, wid)
	if !ok || current == target.ID {
		return EventResponse{}
	}

	isFloating := e.floating.IsFloating(wid)
	if isFloating {
		e.floating.RemoveActiveForWindow(wid)
	} else {
		e.removeFromAllTrees(wid)
	}

	if !e.vwm.AssignWindowToWorkspace(opSpace, wid, target.ID) {
		if isFloating {
			e.floating.AddActive(opSpace, wid)
		} else if prev, ok := e.vwm.Workspace(current); ok {
			if layout, ok := prev.Layout(); ok {
				prev.System.AddWindowAfterSelection(layout, wid)
			}
		}
		return EventResponse{}
	}
	if !isFloating {
		if layout, ok := target.Layout(); ok {
			target.System.AddWindowAfterSelection(layout, wid)
		}
	}

	active, hasActive := e.vwm.ActiveWorkspace(opSpace)
	switch {
	case hasActive && active == target.ID:
		if isFloating {
			e.floating.AddActive(opSpace, wid)
		}
		return focusResponse(wid)
	case hasActive && active == current:
		e.focused = platform.WindowID{}
		e.vwm.SetLastFocusedWindow(opSpace, current, platform.WindowID{})
		e.vwm.SetLastFocusedWindow(opSpace, target.ID, wid)
		e.broadcastWindowsChanged(opSpace)
		if remaining := e.vwm.WindowsInActiveWorkspace(opSpace); len(remaining) > 0 {
			return focusResponse(remaining[0])
		}
		return EventResponse{}
	}
	e.vwm.SetLastFocusedWindow(opSpace, target.ID, wid)
	e.broadcastWindowsChanged(opSpace)
	return EventResponse{}
}

// switchWorkspaceLayoutMode rebuilds ws in mode, keeping the tiled windows
// in visible order followed by hidden ones, and the selection.
func (e *Engine) switchWorkspaceLayoutMode(ws *VirtualWorkspace, mode LayoutMode) bool {
	if ws.Mode == mode {
		return false
	}
	var order []platform.WindowID
	var selected platform.WindowID
	var hasSelected bool
	if layout, ok := ws.Layout(); ok {
		selected, hasSelected = ws.System.SelectedWindow(layout)
		order = ws.System.VisibleWindows(layout)
	}
	var hidden []platform.WindowID
	for _, wid := range ws.windows {
		if !containsWindow(order, wid) {
			hidden = append(hidden, wid)
		}
	}
	sortWindowIDs(hidden)
	order = append(order, hidden...)

	layout := ws.replaceSystem(mode, e.settings)
	for _, wid := range order {
		if e.floating.IsFloating(wid) {
			continue
		}
		ws.System.AddWindowAfterSelection(layout, wid)
	}
	if hasSelected && !e.floating.IsFloating(selected) {
		ws.System.SelectWindow(layout, selected)
	}
	e.log.Info("workspace layout changed", "workspace", ws.Name, "space", ws.Space, "mode", mode)
	return true
}

// MoveWindowToSpace transfers wid from the workspace it holds on source to
// the active workspace of target, keeping its floating status.
func (e *Engine) MoveWindowToSpace(source, target platform.SpaceID, wid platform.WindowID) EventResponse {
	if source == target {
		return EventResponse{RaiseWindows: []platform.WindowID{wid}, FocusWindow: wid, HasFocus: true}
	}
	e.vwm.ListWorkspaces(source)
	targets := e.vwm.ListWorkspaces(target)

	sourceID, ok := e.vwm.WorkspaceForWindow(source, wid)
	if !ok {
		sourceID, ok = e.vwm.WorkspaceForWindowAny(wid)
	}
	if !ok {
		return EventResponse{}
	}
	targetID, ok := e.vwm.ActiveWorkspace(target)
	if !ok {
		targetID = targets[0].ID
		e.vwm.SetActiveWorkspace(target, targetID)
	}

	wasFloating := e.floating.IsFloating(wid)
	if wasFloating {
		e.floating.RemoveActiveForWindow(wid)
	} else {
		e.removeFromAllTrees(wid)
	}

	if !e.vwm.AssignWindowToWorkspace(target, wid, targetID) {
		if wasFloating {
			e.floating.AddActive(source, wid)
		} else if ws, ok := e.vwm.Workspace(sourceID); ok {
			if layout, ok := ws.Layout(); ok {
				ws.System.AddWindowAfterSelection(layout, wid)
			}
		}
		return EventResponse{}
	}
	for _, ws := range targets {
		ws.ensureLayout()
	}

	tws, _ := e.vwm.Workspace(targetID)
	if wasFloating {
		e.floating.AddActive(target, wid)
		e.floating.SetLastFocus(wid)
	} else if layout, ok := tws.Layout(); ok {
		tws.System.AddWindowAfterSelection(layout, wid)
	}

	if active, ok := e.vwm.ActiveWorkspace(source); ok && active == sourceID {
		e.vwm.SetLastFocusedWindow(source, sourceID, platform.WindowID{})
	}
	e.vwm.SetLastFocusedWindow(target, targetID, wid)
	e.focused = wid

	e.broadcastWindowsChanged(source)
	e.broadcastWindowsChanged(target)
	return EventResponse{RaiseWindows: []platform.WindowID{wid}, FocusWindow: wid, HasFocus: true}
}

// CalculateLayout returns the tiled frames of the active layout of space.
func (e *Engine) CalculateLayout(space platform.SpaceID, screen platform.Rect, gaps Gaps) []WindowFrame {
	ws, layout, ok := e.workspaceAndLayout(space)
	if !ok {
		return nil
	}
	return ws.System.CalculateLayout(layout, screen, gaps)
}

// FrameSource reports the current on-screen frame of a window.
type FrameSource func(platform.WindowID) (platform.Rect, bool)

// CalculateLayoutWithWorkspaces computes every frame the space needs: the
// tiled windows of the active workspace, its floating windows (kept on
// screen), and the windows of inactive workspaces parked in a corner. When
// bound is set, scrolling columns that would spill onto another screen are
// parked instead.
func (e *Engine) CalculateLayoutWithWorkspaces(space platform.SpaceID, screen platform.Rect, gaps Gaps, frameOf FrameSource, all []platform.Rect, bound bool) []WindowFrame {
	var order []platform.WindowID
	positions := make(map[platform.WindowID]platform.Rect)
	put := func(wid platform.WindowID, r platform.Rect) {
		if _, ok := positions[wid]; !ok {
			order = append(order, wid)
		}
		positions[wid] = r
	}
	sizeOf := func(wid platform.WindowID) platform.Size {
		if f, ok := frameOf(wid); ok {
			return f.Size()
		}
		return defaultWindowSize
	}
	centered := func(size platform.Size) platform.Rect {
		mid := screen.Mid()
		return platform.Rect{X: mid.X - size.Width/2, Y: mid.Y - size.Height/2, Width: size.Width, Height: size.Height}
	}
	ensureVisible := func(ws *VirtualWorkspace, wid platform.WindowID, candidate *platform.Rect, ifAbsent bool) {
		rect, ok := positions[wid]
		if candidate != nil {
			rect, ok = *candidate, true
		}
		if !ok || IsHiddenPosition(screen, rect) {
			rect = centered(sizeOf(wid))
		}
		put(wid, rect)
		if ifAbsent {
			e.vwm.StoreFloatingPositionIfAbsent(space, ws.ID, wid, rect)
		} else {
			e.vwm.StoreFloatingPosition(space, ws.ID, wid, rect)
		}
	}

	if ws, ok := e.ActiveWorkspace(space); ok {
		if layout, ok := ws.Layout(); ok {
			scrolling := ws.Mode == ModeScrolling
			for _, f := range ws.System.CalculateLayout(layout, screen, gaps) {
				if bound && scrolling && !screen.Contains(f.Rect.Mid()) {
					put(f.Window, CalculateHiddenPosition(screen, f.Rect.Size(), all))
					continue
				}
				put(f.Window, f.Rect)
			}
		}
		for _, fp := range e.vwm.FloatingPositions(space, ws.ID) {
			if e.floating.IsFloating(fp.Window) {
				rect := fp.Rect
				ensureVisible(ws, fp.Window, &rect, false)
			}
		}
		for _, wid := range e.activeFloating(space) {
			ensureVisible(ws, wid, nil, false)
		}
	}

	for _, wid := range e.vwm.WindowsInInactiveWorkspaces(space) {
		frame, hasFrame := frameOf(wid)
		if e.floating.IsFloating(wid) {
			if id, ok := e.vwm.WorkspaceForWindow(space, wid); ok {
				if ws, ok := e.vwm.Workspace(id); ok {
					var cand *platform.Rect
					if hasFrame {
						cand = &frame
					}
					ensureVisible(ws, wid, cand, true)
				}
			}
		}
		size := defaultWindowSize
		if hasFrame {
			size = frame.Size()
		}
		put(wid, CalculateHiddenPosition(screen, size, all))
	}

	out := make([]WindowFrame, 0, len(order))
	for _, wid := range order {
		rect := positions[wid]
		if e.isResizeLocked(wid) {
			if size, ok := e.lockedSizes[wid]; ok {
				rect.Width, rect.Height = size.Width, size.Height
			}
		}
		out = append(out, WindowFrame{Window: wid, Rect: rect})
	}
	return out
}

// StoreFloatingPositions remembers where floating windows of the active
// workspace of space currently are.
func (e *Engine) StoreFloatingPositions(space platform.SpaceID, frames []WindowFrame) {
	e.vwm.StoreCurrentFloatingPositions(space, frames)
}

// UpdateSpaceDisplay records which display shows space. An empty uuid
// forgets the association.
func (e *Engine) UpdateSpaceDisplay(space platform.SpaceID, displayUUID string) {
	if displayUUID == "" {
		delete(e.spaceDisplay, space)
		return
	}
	e.spaceDisplay[space] = displayUUID
	e.displayLastSpace[displayUUID] = space
}

func (e *Engine) LastSpaceForDisplay(displayUUID string) (platform.SpaceID, bool) {
	s, ok := e.displayLastSpace[displayUUID]
	return s, ok
}

func (e *Engine) DisplaySeenBefore(displayUUID string) bool {
	_, ok := e.displayLastSpace[displayUUID]
	return ok
}

// SpaceForDisplay returns the space currently associated with a display.
func (e *Engine) SpaceForDisplay(displayUUID string) (platform.SpaceID, bool) {
	for space, uuid := range e.spaceDisplay {
		if uuid == displayUUID {
			return space, true
		}
	}
	return platform.NoSpace, false
}

func (e *Engine) DisplayForSpace(space platform.SpaceID) (string, bool) {
	uuid, ok := e.spaceDisplay[space]
	return uuid, ok
}

// RemapSpace moves all per-space layout state from oldSpace to newSpace.
func (e *Engine) RemapSpace(oldSpace, newSpace platform.SpaceID) {
	if oldSpace == newSpace {
		return
	}
	e.vwm.RemapSpace(oldSpace, newSpace)
	e.floating.RemapSpace(oldSpace, newSpace)
	if uuid, ok := e.spaceDisplay[oldSpace]; ok {
		delete(e.spaceDisplay, oldSpace)
		e.spaceDisplay[newSpace] = uuid
	}
	for uuid, s := range e.displayLastSpace {
		if s == oldSpace {
			e.displayLastSpace[uuid] = newSpace
		}
	}
	e.log.Info("remapped space", "from", oldSpace, "to", newSpace)
}

// PruneDisplayState forgets displays that are no longer connected.
func (e *Engine) PruneDisplayState(activeDisplays []string) {
	active := make(map[string]bool, len(activeDisplays))
	for _, uuid := range activeDisplays {
		active[uuid] = true
	}
	for uuid := range e.displayLastSpace {
		if !active[uuid] {
			delete(e.displayLastSpace, uuid)
		}
	}
	for space, uuid := range e.spaceDisplay {
		if !active[uuid] {
			delete(e.spaceDisplay, space)
		}
	}
}

func (e *Engine) broadcastWorkspaceChanged(space platform.SpaceID) {
	if e.broadcast == nil {
		return
	}
	ws, ok := e.ActiveWorkspace(space)
	if !ok {
		return
	}
	e.broadcast(BroadcastEvent{
		Kind:          BroadcastWorkspaceChanged,
		Space:         space,
		Workspace:     ws.ID,
		WorkspaceName: ws.Name,
		DisplayUUID:   e.spaceDisplay[space],
	})
}

func (e *Engine) broadcastWindowsChanged(space platform.SpaceID) {
	if e.broadcast == nil {
		return
	}
	ws, ok := e.ActiveWorkspace(space)
	if !ok {
		return
	}
	var windows []string
	for _, wid := range ws.windows {
		windows = append(windows, wid.String())
	}
	e.broadcast(BroadcastEvent{
		Kind:          BroadcastWindowsChanged,
		Space:         space,
		Workspace:     ws.ID,
		WorkspaceName: ws.Name,
		DisplayUUID:   e.spaceDisplay[space],
		Windows:       windows,
	})
}
