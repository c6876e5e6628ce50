package reactor

import (
	"sort"

	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/tiling"
)

func isManageable(info platform.WindowInfo) bool {
	if !info.Standard {
		return false
	}
	return info.Frame.Width >= minManageableSize && info.Frame.Height >= minManageableSize
}

func (r *Reactor) ensureApp(info AppInfo) *appState {
	app, ok := r.apps[info.PID]
	if !ok {
		app = &appState{info: info}
		r.apps[info.PID] = app
		return app
	}
	if info.AppID != "" {
		app.info.AppID = info.AppID
	}
	if info.Name != "" {
		app.info.Name = info.Name
	}
	return app
}

// trackWindow starts or refreshes bookkeeping for a reported window.
func (r *Reactor) trackWindow(d DiscoveredWindow) {
	if d.ID.IsZero() {
		return
	}
	app := r.ensureApp(AppInfo{PID: d.ID.PID, AppID: d.Info.AppID})
	if d.Info.AppID == "" {
		d.Info.AppID = app.info.AppID
	}

	w, ok := r.windows[d.ID]
	if !ok {
		w = &windowState{space: platform.NoSpace}
		r.windows[d.ID] = w
	} else if w.info.SysID != 0 && w.info.SysID != d.Info.SysID {
		delete(r.sysIDs, w.info.SysID)
	}
	w.info = d.Info
	w.frame = d.Info.Frame
	w.manageable = isManageable(d.Info)
	if d.Info.SysID != 0 {
		r.sysIDs[d.Info.SysID] = d.ID
	}
	if !ok {
		if space, found := r.bestSpaceForWindowID(d.ID); found {
			w.space = space
		}
	}
}

// destroyWindow drops a window from every table and the layout engine.
func (r *Reactor) destroyWindow(wid platform.WindowID) {
	w, ok := r.windows[wid]
	if !ok {
		r.log.Debug("destroy for unknown window", "window", wid)
		return
	}
	if w.info.SysID != 0 {
		if r.sysIDs[w.info.SysID] == wid {
			delete(r.sysIDs, w.info.SysID)
		}
		delete(r.visible, w.info.SysID)
	}
	delete(r.windows, wid)
	r.engine.HandleEvent(tiling.WindowRemoved{Window: wid})

	if s, ok := r.drag.Session(); ok && s.Window == wid {
		r.drag.Reset()
		r.swap.Reset()
	}
	if _, target, ok := r.drag.PendingSwap(); ok && target == wid {
		r.drag.ClearPendingSwap()
		r.swap.Reset()
	}
	if r.mainWindow == wid {
		r.mainWindow = platform.WindowID{}
	}
	if r.pendingWarp == wid {
		r.pendingWarp = platform.WindowID{}
	}
}

func (r *Reactor) handleApplicationLaunched(ev ApplicationLaunched) {
	r.ensureApp(ev.App)
	for _, d := range ev.Windows {
		if d.Info.AppID == "" {
			d.Info.AppID = ev.App.AppID
		}
		r.trackWindow(d)
	}
	r.log.Debug("application launched", "pid", ev.App.PID, "app", ev.App.AppID, "windows", len(ev.Windows))
	r.reconcileApp(ev.App.PID)
	r.relayout()
}

func (r *Reactor) handleApplicationTerminated(pid int32) {
	if _, ok := r.apps[pid]; !ok {
		return
	}
	for wid, w := range r.windows {
		if wid.PID != pid {
			continue
		}
		if w.info.SysID != 0 {
			delete(r.sysIDs, w.info.SysID)
			delete(r.visible, w.info.SysID)
		}
		delete(r.windows, wid)
		if s, ok := r.drag.Session(); ok && s.Window == wid {
			r.drag.Reset()
			r.swap.Reset()
		}
	}
	if r.mainWindow.PID == pid {
		r.mainWindow = platform.WindowID{}
	}
	delete(r.apps, pid)
	for space, tracks := range r.fullscreen {
		kept := tracks[:0]
		for _, t := range tracks {
			if t.pid != pid {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(r.fullscreen, space)
		} else {
			r.fullscreen[space] = kept
		}
	}
	r.engine.HandleEvent(tiling.AppClosed{PID: pid})
	r.log.Debug("application terminated", "pid", pid)
	r.relayout()
}

// handleApplicationActivated follows focus into the virtual workspace that
// holds the activated window.
func (r *Reactor) handleApplicationActivated(ev ApplicationActivated) {
	if _, ok := r.apps[ev.PID]; !ok {
		r.requestWindows(ev.PID)
		return
	}
	wid := ev.Window
	if wid.IsZero() || wid.PID != ev.PID {
		return
	}
	w, ok := r.windows[wid]
	if !ok {
		r.requestWindows(ev.PID)
		return
	}
	r.mainWindow = wid
	space := w.space
	if !r.isSpaceActive(space) || r.drag.InDrag() {
		return
	}

	ws := r.engine.Workspaces()
	if !r.engine.IsWindowInActiveWorkspace(space, wid) {
		id, ok := ws.WorkspaceForWindow(space, wid)
		if !ok {
			return
		}
		idx, ok := ws.WorkspaceIndex(id)
		if !ok {
			return
		}
		r.log.Debug("activated window lives in another workspace, switching", "window", wid, "workspace", id)
		r.switching = true
		resp := r.engine.HandleCommand(space, nil, nil, tiling.LayoutCommand{Kind: tiling.CmdSwitchToWorkspace, Workspace: &idx})
		resp.FocusWindow, resp.HasFocus = wid, true
		r.handleLayoutResponse(resp, space)
		r.broadcastWorkspaceChanged(space)
	}
	r.engine.HandleEvent(tiling.WindowFocused{Space: space, Window: wid})
	r.relayout()
}

// handleWindowsDiscovered reconciles an application's answer to a
// visible-windows request.
func (r *Reactor) handleWindowsDiscovered(ev WindowsDiscovered) {
	r.ensureApp(AppInfo{PID: ev.PID})
	present := make(map[platform.WindowID]bool, len(ev.Known)+len(ev.New))
	for _, wid := range ev.Known {
		present[wid] = true
	}
	for _, d := range ev.New {
		present[d.ID] = true
		r.trackWindow(d)
	}
	var gone []platform.WindowID
	for wid := range r.windows {
		if wid.PID == ev.PID && !present[wid] {
			gone = append(gone, wid)
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i].Less(gone[j]) })
	for _, wid := range gone {
		r.destroyWindow(wid)
	}
	r.reconcileApp(ev.PID)
	r.relayout()
}

// reconcileApp tells the engine which windows pid has on each active space.
func (r *Reactor) reconcileApp(pid int32) {
	app, ok := r.apps[pid]
	if !ok {
		return
	}
	bySpace := make(map[platform.SpaceID][]platform.WindowID)
	for wid, w := range r.windows {
		if wid.PID != pid {
			continue
		}
		space, ok := r.bestSpaceForWindowID(wid)
		if !ok {
			continue
		}
		if w.space != space {
			if w.space.Valid() && r.isSpaceActive(w.space) && r.isSpaceActive(space) && !r.isDragged(wid) {
				r.log.Debug("window changed space", "window", wid, "from", w.space, "to", space)
				r.engine.MoveWindowToSpace(w.space, space, wid)
			}
			w.space = space
		}
		if !w.manageable || !r.isSpaceActive(space) {
			continue
		}
		bySpace[space] = append(bySpace[space], wid)
	}

	spaces := make([]platform.SpaceID, 0, len(r.active))
	for space := range r.active {
		spaces = append(spaces, space)
	}
	sort.Slice(spaces, func(i, j int) bool { return spaces[i] < spaces[j] })
	for _, space := range spaces {
		ids := bySpace[space]
		sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
		descs := make([]tiling.WindowDescriptor, 0, len(ids))
		for _, wid := range ids {
			w := r.windows[wid]
			d := tiling.WindowDescriptor{
				Window:    wid,
				Title:     w.info.Title,
				Role:      w.info.Role,
				Subrole:   w.info.Subrole,
				Resizable: w.info.Resizable,
			}
			if !w.info.Resizable {
				d.SizeHint = w.frame.Size()
			}
			descs = append(descs, d)
		}
		r.engine.HandleEvent(tiling.WindowsOnScreenUpdated{
			Space:   space,
			PID:     pid,
			AppID:   app.info.AppID,
			Windows: descs,
		})
	}
}

func (r *Reactor) reconcileAllApps() {
	pids := make([]int32, 0, len(r.apps))
	for pid := range r.apps {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	for _, pid := range pids {
		r.reconcileApp(pid)
	}
}

func (r *Reactor) isDragged(wid platform.WindowID) bool {
	s, ok := r.drag.Session()
	return ok && s.Window == wid
}

func (r *Reactor) handleWindowServerAppeared(id platform.WindowServerID, space platform.SpaceID) {
	if r.observed[id] {
		return
	}
	if _, known := r.sysIDs[id]; known {
		r.observed[id] = true
		if r.isSpaceActive(space) {
			r.visible[id] = true
		}
		return
	}
	info, ok := r.server.Window(id)
	if !ok {
		r.log.Debug("appeared window already gone", "sys_id", id)
		return
	}
	if info.Layer != 0 {
		return
	}
	if info.Frame.Width < minManageableSize || info.Frame.Height < minManageableSize {
		return
	}
	r.observed[id] = true
	r.serverInfo[id] = info
	if r.isSpaceActive(space) {
		r.visible[id] = true
	}
	if space.Valid() && r.server.SpaceIsFullscreen(space) {
		r.trackFullscreen(space, info)
	}
	r.requestWindows(info.PID)
}

// trackFullscreen remembers where a window that went fullscreen came from.
func (r *Reactor) trackFullscreen(space platform.SpaceID, info platform.WindowServerInfo) {
	track := fullscreenTrack{pid: info.PID}
	for wid, w := range r.windows {
		if wid.PID == info.PID && w.info.SysID == info.ID {
			track.window, track.hasWindow = wid, true
			track.lastSpace = w.space
			break
		}
	}
	if !track.lastSpace.Valid() {
		track.lastSpace, _ = r.firstKnownSpace()
	}
	for _, t := range r.fullscreen[space] {
		if t.pid == track.pid && t.window == track.window {
			return
		}
	}
	r.fullscreen[space] = append(r.fullscreen[space], track)
	r.log.Debug("tracking window in fullscreen space", "space", space, "pid", info.PID, "window", track.window)
}

func (r *Reactor) handleWindowServerDestroyed(id platform.WindowServerID, space platform.SpaceID) {
	delete(r.observed, id)
	delete(r.serverInfo, id)
	delete(r.visible, id)
	wid, ok := r.sysIDs[id]
	if !ok {
		return
	}
	if space.Valid() && r.server.SpaceIsFullscreen(space) {
		// the window only moved into a fullscreen space
		if w := r.windows[wid]; w != nil {
			r.trackFullscreen(space, platform.WindowServerInfo{ID: id, PID: wid.PID})
		}
		return
	}
	r.destroyWindow(wid)
}

func (r *Reactor) handleResync(id platform.WindowServerID) {
	if wid, ok := r.sysIDs[id]; ok {
		r.requestWindows(wid.PID)
		return
	}
	if info, ok := r.server.Window(id); ok {
		r.requestWindows(info.PID)
	}
}

func (r *Reactor) handleWindowTitleChanged(ev WindowTitleChanged) {
	w, ok := r.windows[ev.ID]
	if !ok || w.info.Title == ev.Title {
		return
	}
	w.info.Title = ev.Title
	if !r.settings.ReapplyRulesOnTitleChange {
		return
	}
	r.reconcileApp(ev.ID.PID)
	r.relayout()
}

func (r *Reactor) requestWindows(pid int32) {
	if r.requester == nil || pid <= 0 {
		return
	}
	if err := r.requester.RequestVisibleWindows(pid); err != nil {
		r.log.Warn("failed to request application windows", "pid", pid, "error", err)
	}
}

// authoritativeSnapshot lists the normal-layer windows the server draws.
func (r *Reactor) authoritativeSnapshot() []platform.WindowServerInfo {
	infos, err := r.server.VisibleWindows()
	if err != nil {
		r.log.Warn("failed to query visible windows", "error", err)
		return nil
	}
	out := make([]platform.WindowServerInfo, 0, len(infos))
	for _, info := range infos {
		if info.Layer == 0 {
			out = append(out, info)
		}
	}
	return out
}

// refreshVisible rebuilds the visible set from the window server.
func (r *Reactor) refreshVisible() {
	visible := make(map[platform.WindowServerID]bool)
	for _, info := range r.authoritativeSnapshot() {
		space, ok := r.server.WindowSpace(info.ID)
		if !ok || !r.isSpaceActive(space) {
			continue
		}
		visible[info.ID] = true
		r.serverInfo[info.ID] = info
		if wid, ok := r.sysIDs[info.ID]; ok {
			if w := r.windows[wid]; w != nil && !r.isDragged(wid) {
				w.frame = info.Frame
			}
		}
	}
	r.visible = visible
}

// forceRefresh asks every application for its windows and rebuilds the
// visible set.
func (r *Reactor) forceRefresh() {
	pids := make([]int32, 0, len(r.apps))
	for pid := range r.apps {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	for _, pid := range pids {
		r.requestWindows(pid)
	}
	r.refreshVisible()
	r.reconcileAllApps()
}

// BestSpaceForFrame returns the space of the screen containing the center
// of frame, or else of the screen with the largest intersection. The first
// screen wins ties.
func BestSpaceForFrame(screens []platform.Screen, frame platform.Rect) (platform.SpaceID, bool) {
	mid := frame.Mid()
	for _, s := range screens {
		if s.Space.Valid() && s.Frame.Contains(mid) {
			return s.Space, true
		}
	}
	best := platform.NoSpace
	bestArea := 0.0
	for _, s := range screens {
		if !s.Space.Valid() {
			continue
		}
		area := s.Frame.Intersection(frame).Area()
		if area > bestArea {
			best, bestArea = s.Space, area
		}
	}
	return best, best.Valid()
}

func (r *Reactor) bestSpaceForFrame(frame platform.Rect) (platform.SpaceID, bool) {
	return BestSpaceForFrame(r.screens, frame)
}

// bestSpaceForWindowID prefers the space the server reports, as long as it
// is on screen or a user space, and otherwise goes by the frame.
func (r *Reactor) bestSpaceForWindowID(wid platform.WindowID) (platform.SpaceID, bool) {
	w, ok := r.windows[wid]
	if !ok {
		return platform.NoSpace, false
	}
	if w.info.SysID != 0 {
		if space, ok := r.server.WindowSpace(w.info.SysID); ok && space.Valid() {
			if _, onScreen := r.screenBySpace(space); onScreen || r.server.SpaceIsUser(space) {
				return space, true
			}
		}
	}
	return r.bestSpaceForFrame(w.frame)
}

// isWindowOnActiveSpace reports whether wid is known, on an active space,
// and, unless skipVisibility, confirmed visible.
func (r *Reactor) isWindowOnActiveSpace(wid platform.WindowID, skipVisibility bool) (platform.SpaceID, bool) {
	w, ok := r.windows[wid]
	if !ok {
		return platform.NoSpace, false
	}
	space, ok := r.bestSpaceForWindowID(wid)
	if !ok || !r.isSpaceActive(space) {
		return platform.NoSpace, false
	}
	if skipVisibility || w.info.SysID == 0 {
		return space, true
	}
	if !r.visible[w.info.SysID] && !r.engine.IsWindowInActiveWorkspace(space, wid) {
		return platform.NoSpace, false
	}
	return space, true
}

// windowUnderCursor returns the tracked window under the pointer. The
// server id is returned even when no tracked window owns it.
func (r *Reactor) windowUnderCursor() (platform.WindowID, platform.WindowServerID, bool) {
	id, ok := r.server.WindowUnderCursor()
	if !ok {
		return platform.WindowID{}, 0, false
	}
	wid, tracked := r.sysIDs[id]
	return wid, id, tracked
}
