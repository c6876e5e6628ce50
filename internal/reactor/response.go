package reactor

import (
	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/tiling"
)

func (r *Reactor) handleCommand(ev Command) {
	space := ev.Space
	if !space.Valid() {
		space = r.commandSpace()
	}
	if !r.isSpaceActive(space) {
		r.log.Warn("command ignored, no active space", "command", ev.Command.Kind, "space", space)
		return
	}
	cmd := ev.Command
	if isSwitchCommand(cmd.Kind) {
		r.switching = true
	}
	visible, centers := r.visibleSpacesForLayout()
	resp := r.engine.HandleCommand(space, visible, centers, cmd)
	r.handleLayoutResponse(resp, space)
	if cmd.IsWorkspaceCommand() {
		r.broadcastWorkspaceChanged(space)
	}
	r.relayout()
}

func isSwitchCommand(kind tiling.CommandKind) bool {
	switch kind {
	case tiling.CmdNextWorkspace, tiling.CmdPrevWorkspace, tiling.CmdSwitchToWorkspace, tiling.CmdSwitchToLastWorkspace:
		return true
	}
	return false
}

// commandSpace is the space of the focused window, or the one under the
// cursor.
func (r *Reactor) commandSpace() platform.SpaceID {
	if wid, ok := r.engine.FocusedWindow(); ok {
		if space, ok := r.bestSpaceForWindowID(wid); ok && r.isSpaceActive(space) {
			return space
		}
	}
	return r.cursorSpace()
}

// handleLayoutResponse turns an engine response into a raise request.
// space is the space the response is about; switch fallbacks need it.
func (r *Reactor) handleLayoutResponse(resp tiling.EventResponse, space platform.SpaceID) {
	if r.drag.InDrag() {
		return
	}
	if resp.BoundaryHit != nil {
		r.swipeOnBoundary(*resp.BoundaryHit, space)
		return
	}

	skipVisibility := r.switching
	var raise []platform.WindowID
	for _, wid := range resp.RaiseWindows {
		if _, ok := r.isWindowOnActiveSpace(wid, skipVisibility); ok {
			raise = append(raise, wid)
		}
	}
	var focus platform.WindowID
	hasFocus := false
	if resp.HasFocus {
		if _, ok := r.isWindowOnActiveSpace(resp.FocusWindow, skipVisibility); ok {
			focus, hasFocus = resp.FocusWindow, true
		}
	}

	var focusServer platform.WindowServerID
	var warp *platform.Point
	if !hasFocus && len(raise) == 0 && r.switching && space.Valid() {
		switch wid, sysID, kind := r.switchFallback(space); kind {
		case fallbackWindow:
			focus, hasFocus = wid, true
		case fallbackUntracked:
			focusServer = sysID
		case fallbackWarp:
			if screen, ok := r.screenBySpace(space); ok {
				p := screen.Frame.Mid()
				warp = &p
			}
		}
	}

	if hasFocus && r.settings.MouseFollowsFocus {
		if r.switching {
			r.pendingWarp = focus
		} else if w, ok := r.windows[focus]; ok {
			p := w.frame.Mid()
			warp = &p
		}
	}

	if hasFocus && !containsWindow(raise, focus) {
		raise = append(raise, focus)
	}
	groups := r.groupRaises(raise)
	if len(groups) == 0 && !hasFocus && focusServer == 0 && warp == nil {
		return
	}
	if hasFocus {
		if s, ok := r.bestSpaceForWindowID(focus); ok {
			r.engine.HandleEvent(tiling.WindowFocused{Space: s, Window: focus})
		}
	}
	r.sendRaise(platform.RaiseRequest{
		Raise:         groups,
		Focus:         focus,
		HasFocus:      hasFocus,
		FocusServerID: focusServer,
		Warp:          warp,
	})
}

func (r *Reactor) sendRaise(req platform.RaiseRequest) {
	if r.raiser == nil {
		return
	}
	r.raiseSeq++
	req.Sequence = r.raiseSeq
	if err := r.raiser.Raise(req); err != nil {
		r.log.Warn("raise request failed", "sequence", req.Sequence, "error", err)
		return
	}
	r.raising[req.Sequence] = r.now()
	r.metrics.RecordRaise()
}

// groupRaises collapses raise targets into one group per application and
// space, keeping first-seen order.
func (r *Reactor) groupRaises(raise []platform.WindowID) [][]platform.WindowID {
	type key struct {
		pid   int32
		space platform.SpaceID
	}
	index := make(map[key]int)
	var groups [][]platform.WindowID
	seen := make(map[platform.WindowID]bool)
	for _, wid := range raise {
		if seen[wid] {
			continue
		}
		seen[wid] = true
		k := key{pid: wid.PID}
		if w, ok := r.windows[wid]; ok {
			k.space = w.space
		}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], wid)
	}
	return groups
}

type fallbackKind int

const (
	fallbackNone fallbackKind = iota
	fallbackWindow
	fallbackUntracked
	fallbackWarp
)

// switchFallback picks what gets focus after a workspace switch that
// named no window.
func (r *Reactor) switchFallback(space platform.SpaceID) (platform.WindowID, platform.WindowServerID, fallbackKind) {
	if wid, ok := r.lastFocusedWindowInSpace(space); ok {
		return wid, 0, fallbackWindow
	}
	wid, sysID, tracked := r.windowUnderCursor()
	if tracked {
		if s, ok := r.isWindowOnActiveSpace(wid, false); ok && s == space && r.engine.IsWindowInActiveWorkspace(space, wid) {
			return wid, 0, fallbackWindow
		}
	} else if sysID != 0 {
		return platform.WindowID{}, sysID, fallbackUntracked
	}
	if r.settings.MouseFollowsFocus {
		return platform.WindowID{}, 0, fallbackWarp
	}
	return platform.WindowID{}, 0, fallbackNone
}

// lastFocusedWindowInSpace returns the remembered focus of the active
// workspace of space, if it is still there and visible.
func (r *Reactor) lastFocusedWindowInSpace(space platform.SpaceID) (platform.WindowID, bool) {
	ws, ok := r.engine.ActiveWorkspace(space)
	if !ok {
		return platform.WindowID{}, false
	}
	wid, ok := ws.LastFocused()
	if !ok {
		return platform.WindowID{}, false
	}
	if id, ok := r.engine.Workspaces().WorkspaceForWindow(space, wid); !ok || id != ws.ID {
		return platform.WindowID{}, false
	}
	if s, ok := r.isWindowOnActiveSpace(wid, false); !ok || s != space {
		return platform.WindowID{}, false
	}
	return wid, true
}

// swipeOnBoundary turns a scroll past the end of a strip into a workspace
// switch.
func (r *Reactor) swipeOnBoundary(dir tiling.Direction, space platform.SpaceID) {
	if !r.settings.SwipeOnBoundary || !space.Valid() {
		return
	}
	var kind tiling.CommandKind
	switch dir {
	case tiling.DirRight:
		kind = tiling.CmdNextWorkspace
	case tiling.DirLeft:
		kind = tiling.CmdPrevWorkspace
	default:
		return
	}
	if r.settings.InvertSwipe {
		if kind == tiling.CmdNextWorkspace {
			kind = tiling.CmdPrevWorkspace
		} else {
			kind = tiling.CmdNextWorkspace
		}
	}
	r.log.Debug("strip boundary reached, switching workspace", "space", space, "command", kind)
	r.switching = true
	visible, centers := r.visibleSpacesForLayout()
	resp := r.engine.HandleCommand(space, visible, centers, tiling.LayoutCommand{Kind: kind, SkipEmpty: r.settings.SkipEmptyOnSwipe})
	resp.BoundaryHit = nil
	r.handleLayoutResponse(resp, space)
	r.broadcastWorkspaceChanged(space)
}

// prepareRefocus focuses the remembered window of a space that just came
// back from fullscreen.
func (r *Reactor) prepareRefocus() {
	space := r.refocusSpace
	if !space.Valid() {
		return
	}
	r.refocusSpace = platform.NoSpace
	wid, ok := r.lastFocusedWindowInSpace(space)
	if !ok {
		return
	}
	r.handleLayoutResponse(tiling.EventResponse{FocusWindow: wid, HasFocus: true}, space)
}

// finishSwitch ends a workspace switch once its layout has been applied.
func (r *Reactor) finishSwitch() {
	if !r.switching {
		return
	}
	r.switching = false
	wid := r.pendingWarp
	r.pendingWarp = platform.WindowID{}
	if wid.IsZero() || r.raiser == nil {
		return
	}
	w, ok := r.windows[wid]
	if !ok {
		return
	}
	if err := r.raiser.WarpPointer(w.frame.Mid()); err != nil {
		r.log.Warn("failed to warp pointer", "window", wid, "error", err)
	}
}

func containsWindow(ids []platform.WindowID, wid platform.WindowID) bool {
	for _, id := range ids {
		if id == wid {
			return true
		}
	}
	return false
}
