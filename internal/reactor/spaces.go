package reactor

import (
	"sort"

	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/tiling"
)

// activationPolicy decides which shown spaces are managed. Spaces follow
// the default unless toggled.
type activationPolicy struct {
	defaultActive bool
	toggled       map[platform.SpaceID]bool
}

func newActivationPolicy(defaultActive bool) activationPolicy {
	return activationPolicy{defaultActive: defaultActive, toggled: make(map[platform.SpaceID]bool)}
}

func (p *activationPolicy) setDefault(active bool) { p.defaultActive = active }

func (p *activationPolicy) isActive(space platform.SpaceID) bool {
	return space.Valid() && p.defaultActive != p.toggled[space]
}

func (p *activationPolicy) toggle(space platform.SpaceID) bool {
	if p.toggled[space] {
		delete(p.toggled, space)
	} else {
		p.toggled[space] = true
	}
	return p.isActive(space)
}

func (p *activationPolicy) remap(oldSpace, newSpace platform.SpaceID) {
	if v, ok := p.toggled[oldSpace]; ok {
		delete(p.toggled, oldSpace)
		p.toggled[newSpace] = v
	}
}

func (r *Reactor) screenSpaces() []platform.SpaceID {
	out := make([]platform.SpaceID, len(r.screens))
	for i, s := range r.screens {
		out[i] = s.Space
	}
	return out
}

func (r *Reactor) setScreenSpaces(spaces []platform.SpaceID) {
	for i := range r.screens {
		if i < len(spaces) {
			r.screens[i].Space = spaces[i]
		}
	}
}

// recomputeActiveSpaces derives the managed spaces from the screens.
func (r *Reactor) recomputeActiveSpaces() {
	active := make(map[platform.SpaceID]bool, len(r.screens))
	for _, s := range r.screens {
		if r.policy.isActive(s.Space) {
			active[s.Space] = true
		}
	}
	r.active = active
}

func (r *Reactor) isSpaceActive(space platform.SpaceID) bool {
	return r.active[space]
}

func (r *Reactor) screenBySpace(space platform.SpaceID) (platform.Screen, bool) {
	if !space.Valid() {
		return platform.Screen{}, false
	}
	for _, s := range r.screens {
		if s.Space == space {
			return s, true
		}
	}
	return platform.Screen{}, false
}

func (r *Reactor) screenFrames() []platform.Rect {
	out := make([]platform.Rect, len(r.screens))
	for i, s := range r.screens {
		out[i] = s.Frame
	}
	return out
}

func (r *Reactor) displayUUIDs() []string {
	out := make([]string, 0, len(r.screens))
	for _, s := range r.screens {
		if s.DisplayUUID != "" {
			out = append(out, s.DisplayUUID)
		}
	}
	return out
}

// visibleSpacesForLayout lists the active spaces ordered left to right,
// top to bottom, with the midpoint of each screen.
func (r *Reactor) visibleSpacesForLayout() ([]platform.SpaceID, map[platform.SpaceID]platform.Point) {
	type entry struct {
		space  platform.SpaceID
		center platform.Point
	}
	var entries []entry
	centers := make(map[platform.SpaceID]platform.Point)
	for _, s := range r.screens {
		if !r.isSpaceActive(s.Space) {
			continue
		}
		if _, dup := centers[s.Space]; dup {
			continue
		}
		c := s.Frame.Mid()
		centers[s.Space] = c
		entries = append(entries, entry{s.Space, c})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].center.X != entries[j].center.X {
			return entries[i].center.X < entries[j].center.X
		}
		return entries[i].center.Y < entries[j].center.Y
	})
	spaces := make([]platform.SpaceID, len(entries))
	for i, e := range entries {
		spaces[i] = e.space
	}
	return spaces, centers
}

func (r *Reactor) handleScreenParametersChanged(screens []platform.Screen) {
	prev := r.screens
	prevDisplays := make(map[string]bool, len(prev))
	prevSpaces := make(map[string]platform.SpaceID, len(prev))
	prevSizes := make(map[string]platform.Size, len(prev))
	for _, s := range prev {
		prevDisplays[s.DisplayUUID] = true
		prevSizes[s.DisplayUUID] = s.Frame.Size()
		if s.Space.Valid() {
			prevSpaces[s.DisplayUUID] = s.Space
		}
	}
	newDisplays := make(map[string]bool, len(screens))
	for _, s := range screens {
		newDisplays[s.DisplayUUID] = true
	}

	displaysChanged := len(prevDisplays) != len(newDisplays)
	var flags ReconfigFlags
	for d := range newDisplays {
		if !prevDisplays[d] {
			displaysChanged = true
			flags |= DisplayAdded
		}
	}
	for d := range prevDisplays {
		if !newDisplays[d] {
			displaysChanged = true
			flags |= DisplayRemoved
		}
	}
	orderChanged := len(prev) != len(screens)
	if !orderChanged {
		for i := range prev {
			if prev[i].DisplayUUID != screens[i].DisplayUUID {
				orderChanged = true
				flags |= DisplayReordered
				break
			}
		}
	}
	spaceChanged := false
	for _, s := range screens {
		if old, ok := prevSpaces[s.DisplayUUID]; ok && s.Space.Valid() && old != s.Space {
			spaceChanged = true
			flags |= DisplaySpaceChanged
		}
	}
	topologyChanged := displaysChanged || orderChanged || spaceChanged
	// the first non-empty display set seen at startup is not a transition
	shouldTrigger := topologyChanged && (r.seenDisplays || len(prevDisplays) > 0)

	if displaysChanged {
		if r.topo.Quarantining() {
			// displays vanishing mid-churn are expected back; prune on commit
			r.log.Debug("display set changed during churn", "displays", len(newDisplays))
		} else {
			r.engine.PruneDisplayState(uuidsOf(screens))
		}
	}
	if len(newDisplays) > 0 {
		r.seenDisplays = true
	}

	if len(screens) == 0 {
		r.screens = nil
		r.recomputeActiveSpaces()
		r.visible = make(map[platform.WindowServerID]bool)
		r.log.Info("no displays connected")
	} else {
		r.screens = append([]platform.Screen(nil), screens...)
		spaces := r.screenSpaces()
		for _, s := range r.screens {
			old, ok := prevSizes[s.DisplayUUID]
			if !ok || roundSize(old) != roundSize(s.Frame.Size()) {
				flags |= DisplayResized
			}
		}
		r.recomputeActiveSpaces()

		allowRemap := shouldTrigger && !hasDuplicateSpaces(spaces) && allValid(spaces)
		r.reconcileSpacesWithDisplayHistory(spaces, allowRemap)
		r.finalizeSpaceChange(spaces)
	}
	r.topo.Mark(flags)
	r.tryApplyPendingSpaceChange()
	r.maybeCommit()

	// relayout once the space vector that follows has been applied, so
	// windows return to their displays
	if shouldTrigger {
		r.relayoutAfterTopology = true
	}
	r.relayout()
}

func (r *Reactor) handleSpaceChanged(spaces []platform.SpaceID) {
	if len(spaces) > len(r.screens) {
		r.log.Warn("dropping oversize space vector", "screens", len(r.screens), "spaces", len(spaces))
		return
	}
	if equalSpaces(spaces, r.screenSpaces()) && !r.relayoutAfterTopology && !r.topo.Quarantining() {
		r.metrics.RecordDuplicateSpaces()
		r.log.Debug("ignoring duplicate space change", "spaces", spaces)
		return
	}
	if r.relayoutAfterTopology && len(spaces) != len(r.screens) {
		r.log.Debug("dropping partial space vector while topology relayout is pending", "spaces", spaces)
		return
	}

	spaces, allFullscreen := r.handleFullscreenTransition(spaces)
	if allFullscreen {
		r.log.Debug("all screens fullscreen, suspending reconciliation")
		return
	}
	if r.missionControl {
		r.pendingSpaces = append([]platform.SpaceID(nil), spaces...)
		r.hasPending = true
		r.log.Debug("queued space change while overview is active", "spaces", spaces)
		return
	}
	if allNone(spaces) {
		r.setScreenSpaces(spaces)
		r.recomputeActiveSpaces()
		return
	}
	if len(spaces) != len(r.screens) {
		r.log.Warn("space vector length does not match screens", "screens", len(r.screens), "spaces", len(spaces))
		return
	}

	r.setScreenSpaces(spaces)
	r.recomputeActiveSpaces()
	r.reconcileSpacesWithDisplayHistory(spaces, false)
	r.finalizeSpaceChange(spaces)
	if r.relayoutAfterTopology {
		r.relayoutAfterTopology = false
		r.forceRefresh()
	}
	r.relayout()
	r.maybeCommit()
}

// handleFullscreenTransition blanks spaces that are fullscreen. It reports
// true when every screen is fullscreen. Spaces that stopped being
// fullscreen get their tracked windows moved back.
func (r *Reactor) handleFullscreenTransition(spaces []platform.SpaceID) ([]platform.SpaceID, bool) {
	out := append([]platform.SpaceID(nil), spaces...)
	saw := false
	all := len(out) > 0
	var refresh []platform.SpaceID
	for i, s := range out {
		switch {
		case s.Valid() && r.server.SpaceIsFullscreen(s):
			saw = true
			out[i] = platform.NoSpace
		case s.Valid():
			all = false
			refresh = append(refresh, s)
		default:
			all = false
		}
	}
	if saw && all {
		return out, true
	}

	for _, space := range refresh {
		tracks, ok := r.fullscreen[space]
		if !ok {
			continue
		}
		delete(r.fullscreen, space)
		if r.settings.FullscreenWait > 0 {
			r.sleep(r.settings.FullscreenWait)
		}
		for _, track := range tracks {
			r.requestWindows(track.pid)
			if !track.hasWindow || !track.lastSpace.Valid() {
				continue
			}
			source, ok := r.bestSpaceForWindowID(track.window)
			if !ok {
				source = track.lastSpace
			}
			if source == track.lastSpace {
				continue
			}
			resp := r.engine.MoveWindowToSpace(source, track.lastSpace, track.window)
			if w := r.windows[track.window]; w != nil {
				w.space = track.lastSpace
			}
			r.handleLayoutResponse(resp, platform.NoSpace)
		}
		r.refocusSpace = space
		r.relayout()
	}
	return out, false
}

// reconcileSpacesWithDisplayHistory records which display shows which
// space. With allowRemap, a display that comes back on a new space takes
// the layout state of its previous space along.
func (r *Reactor) reconcileSpacesWithDisplayHistory(spaces []platform.SpaceID, allowRemap bool) {
	seen := make(map[string]bool)
	for i, screen := range r.screens {
		if i >= len(spaces) || !spaces[i].Valid() {
			continue
		}
		space := spaces[i]
		uuid := screen.DisplayUUID
		if uuid == "" || seen[uuid] {
			continue
		}
		seen[uuid] = true

		if allowRemap && r.engine.DisplaySeenBefore(uuid) {
			if prevSpace, ok := r.engine.LastSpaceForDisplay(uuid); ok && prevSpace != space {
				r.log.Info("display moved to a new space, remapping layout", "display", uuid, "from", prevSpace, "to", space)
				r.engine.RemapSpace(prevSpace, space)
				r.policy.remap(prevSpace, space)
				r.remapWindowSpaces(prevSpace, space)
			}
		}
		r.engine.UpdateSpaceDisplay(space, uuid)
	}
}

func (r *Reactor) remapWindowSpaces(oldSpace, newSpace platform.SpaceID) {
	for _, w := range r.windows {
		if w.space == oldSpace {
			w.space = newSpace
		}
	}
	if tracks, ok := r.fullscreen[oldSpace]; ok {
		delete(r.fullscreen, oldSpace)
		r.fullscreen[newSpace] = append(r.fullscreen[newSpace], tracks...)
	}
}

// finalizeSpaceChange brings the engine and window tables in line with
// the newly applied spaces.
func (r *Reactor) finalizeSpaceChange(spaces []platform.SpaceID) {
	r.exposeActiveSpaces()
	if wid, ok := r.engine.FocusedWindow(); ok {
		if space, ok := r.bestSpaceForWindowID(wid); ok && r.isSpaceActive(space) {
			r.engine.HandleEvent(tiling.WindowFocused{Space: space, Window: wid})
		}
	}
	r.refreshVisible()
	r.reconcileAllApps()

	for _, space := range spaces {
		if !r.isSpaceActive(space) {
			continue
		}
		r.broadcastWorkspaceChanged(space)
		break
	}
}

func (r *Reactor) exposeActiveSpaces() {
	for _, s := range r.screens {
		if !r.isSpaceActive(s.Space) {
			continue
		}
		r.engine.HandleEvent(tiling.SpaceExposed{Space: s.Space, Size: s.Frame.Size()})
	}
}

// tryApplyPendingSpaceChange applies a space vector queued while the
// overview was open, once its length matches the screens.
func (r *Reactor) tryApplyPendingSpaceChange() {
	if !r.hasPending || r.missionControl {
		return
	}
	if len(r.pendingSpaces) != len(r.screens) {
		return
	}
	spaces := r.pendingSpaces
	r.pendingSpaces, r.hasPending = nil, false

	spaces, allFullscreen := r.handleFullscreenTransition(spaces)
	if allFullscreen {
		return
	}
	r.setScreenSpaces(spaces)
	r.recomputeActiveSpaces()
	r.reconcileSpacesWithDisplayHistory(spaces, false)
	r.finalizeSpaceChange(spaces)
}

func (r *Reactor) handleToggleSpace(space platform.SpaceID) {
	if !space.Valid() {
		space = r.cursorSpace()
	}
	if !space.Valid() {
		r.log.Warn("no space to toggle")
		return
	}
	now := r.policy.toggle(space)
	r.log.Info("space management toggled", "space", space, "active", now)
	r.recomputeActiveSpaces()
	if now {
		r.exposeActiveSpaces()
		r.reconcileAllApps()
	}
	r.relayout()
}

func (r *Reactor) broadcastWorkspaceChanged(space platform.SpaceID) {
	if r.broadcast == nil {
		return
	}
	ws, ok := r.engine.ActiveWorkspace(space)
	if !ok {
		return
	}
	display, _ := r.engine.DisplayForSpace(space)
	r.broadcast(tiling.BroadcastEvent{
		Kind:          tiling.BroadcastWorkspaceChanged,
		Space:         space,
		Workspace:     ws.ID,
		WorkspaceName: ws.Name,
		DisplayUUID:   display,
	})
}

// maybeCommit finishes a churn period once every screen has a space:
// windows that appeared or vanished purely because of the display shuffle
// are synthesized, held events are replayed, and everything is refreshed.
func (r *Reactor) maybeCommit() {
	if r.topo.Phase() != TopologyAwaitingCommit {
		return
	}
	if len(r.screens) == 0 || !allValid(r.screenSpaces()) {
		r.log.Debug("topology not settled, commit deferred", "epoch", r.topo.Epoch())
		return
	}
	c, ok := r.topo.TakeCommit(r.now())
	if !ok {
		return
	}
	r.engine.PruneDisplayState(r.displayUUIDs())

	post := make(map[platform.WindowServerID]platform.WindowServerInfo)
	for _, info := range r.authoritativeSnapshot() {
		post[info.ID] = info
	}
	var appeared, disappeared []platform.WindowServerID
	for id := range post {
		if _, ok := c.PreKnown[id]; !ok {
			appeared = append(appeared, id)
		}
	}
	for id := range c.PreKnown {
		if _, ok := post[id]; !ok {
			disappeared = append(disappeared, id)
		}
	}
	sort.Slice(appeared, func(i, j int) bool { return appeared[i] < appeared[j] })
	sort.Slice(disappeared, func(i, j int) bool { return disappeared[i] < disappeared[j] })

	synthAppeared, synthDestroyed := 0, 0
	for _, id := range appeared {
		if post[id].Layer != 0 {
			continue
		}
		space, ok := r.server.WindowSpace(id)
		if !ok {
			continue
		}
		if !r.isSpaceActive(space) && !r.server.SpaceIsUser(space) {
			continue
		}
		r.handleWindowServerAppeared(id, space)
		synthAppeared++
	}
	for _, id := range disappeared {
		space, hasSpace := r.server.WindowSpace(id)
		if _, exists := r.server.Window(id); exists && hasSpace && (r.server.SpaceIsUser(space) || r.isSpaceActive(space)) {
			continue
		}
		if !hasSpace {
			space, hasSpace = r.firstKnownSpace()
		}
		if !hasSpace {
			continue
		}
		r.handleWindowServerDestroyed(id, space)
		synthDestroyed++
	}
	for _, ev := range c.Replay {
		r.handleEvent(ev)
	}

	r.forceRefresh()
	r.relayout()
	r.metrics.RecordCommit(synthAppeared, synthDestroyed)
	r.log.Info("display topology commit reconciled",
		"epoch", c.Epoch,
		"duration", c.Duration,
		"synthetic_appeared", synthAppeared,
		"synthetic_destroyed", synthDestroyed,
		"replayed", len(c.Replay),
		"dropped", c.Dropped,
		"screens", len(r.screens))
}

func (r *Reactor) firstKnownSpace() (platform.SpaceID, bool) {
	for _, s := range r.screens {
		if s.Space.Valid() {
			return s.Space, true
		}
	}
	return platform.NoSpace, false
}

// cursorSpace is the active space under the pointer, or the first active
// one.
func (r *Reactor) cursorSpace() platform.SpaceID {
	if p, ok := r.server.CursorPosition(); ok {
		for _, s := range r.screens {
			if s.Space.Valid() && s.Frame.Contains(p) {
				return s.Space
			}
		}
	}
	for _, s := range r.screens {
		if r.isSpaceActive(s.Space) {
			return s.Space
		}
	}
	return platform.NoSpace
}

func uuidsOf(screens []platform.Screen) []string {
	out := make([]string, 0, len(screens))
	for _, s := range screens {
		out = append(out, s.DisplayUUID)
	}
	return out
}

func roundSize(s platform.Size) [2]int {
	return [2]int{int(s.Width + 0.5), int(s.Height + 0.5)}
}

func equalSpaces(a, b []platform.SpaceID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasDuplicateSpaces(spaces []platform.SpaceID) bool {
	seen := make(map[platform.SpaceID]bool, len(spaces))
	for _, s := range spaces {
		if !s.Valid() {
			continue
		}
		if seen[s] {
			return true
		}
		seen[s] = true
	}
	return false
}

func allValid(spaces []platform.SpaceID) bool {
	for _, s := range spaces {
		if !s.Valid() {
			return false
		}
	}
	return true
}

func allNone(spaces []platform.SpaceID) bool {
	for _, s := range spaces {
		if s.Valid() {
			return false
		}
	}
	return true
}
