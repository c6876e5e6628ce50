package reactor

import (
	"github.com/1broseidon/spacetile/internal/dragswap"
	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/tiling"
)

func (r *Reactor) handleWindowFrameChanged(ev WindowFrameChanged) {
	w, ok := r.windows[ev.ID]
	if !ok {
		return
	}
	old := w.frame
	if ev.MouseDown || r.isDragged(ev.ID) {
		w.frame = ev.Frame
		r.onDragFrame(ev.ID, old, ev.Frame)
		return
	}
	if old.Round() == ev.Frame.Round() {
		// echo of a frame we applied
		return
	}
	w.frame = ev.Frame

	space, ok := r.bestSpaceForWindowID(ev.ID)
	if !ok || !r.isSpaceActive(space) {
		return
	}
	if r.engine.IsFloating(ev.ID) {
		r.engine.StoreFloatingPositions(space, []tiling.WindowFrame{{Window: ev.ID, Rect: ev.Frame}})
		return
	}
	if old.Size().Width != ev.Frame.Size().Width || old.Size().Height != ev.Frame.Size().Height {
		r.engine.HandleEvent(tiling.WindowResized{
			Window:   ev.ID,
			OldFrame: old,
			NewFrame: ev.Frame,
			Screens:  r.screenRefs(),
		})
	}
	r.relayout()
}

func (r *Reactor) screenRefs() []tiling.ScreenRef {
	refs := make([]tiling.ScreenRef, 0, len(r.screens))
	for _, s := range r.screens {
		if !r.isSpaceActive(s.Space) {
			continue
		}
		refs = append(refs, tiling.ScreenRef{Space: s.Space, Frame: s.Frame, DisplayUUID: s.DisplayUUID})
	}
	return refs
}

// onDragFrame advances the drag state machine for a frame reported with
// the mouse down. The settled space always comes from the new frame.
func (r *Reactor) onDragFrame(wid platform.WindowID, old, frame platform.Rect) {
	origin, ok := r.bestSpaceForFrame(old)
	if !ok {
		origin = r.windows[wid].space
	}
	if r.drag.Begin(wid, old, origin) {
		r.swap.Reset()
		r.log.Debug("drag started", "window", wid, "origin", origin)
	}
	resolved, ok := r.bestSpaceForFrame(frame)
	if !ok {
		resolved = origin
	}
	if r.drag.Update(wid, frame, resolved) {
		r.drag.ClearPendingSwap()
		r.swap.Reset()
		r.log.Debug("drag crossed spaces", "window", wid, "space", resolved)
	}
	if r.engine.IsFloating(wid) {
		return
	}
	r.maybeSwapOnDrag(wid, frame)
}

// maybeSwapOnDrag records the tiled window the dragged one overlaps enough
// to swap with. The swap itself waits for mouse-up.
func (r *Reactor) maybeSwapOnDrag(wid platform.WindowID, frame platform.Rect) {
	session, ok := r.drag.Session()
	if !ok {
		return
	}
	space := session.SettledSpace
	if space != session.OriginSpace || !r.isSpaceActive(space) {
		r.drag.ClearPendingSwap()
		return
	}
	var candidates []dragswap.Candidate
	for _, other := range r.engine.WindowsInActiveWorkspace(space) {
		if other == wid || r.engine.IsFloating(other) {
			continue
		}
		w, ok := r.windows[other]
		if !ok {
			continue
		}
		candidates = append(candidates, dragswap.Candidate{Window: other, Frame: w.frame})
	}
	if target, changed := r.swap.OnFrameChange(wid, frame, candidates); changed {
		r.log.Debug("drag swap target", "window", wid, "target", target)
	}
	if target, ok := r.swap.LastTarget(); ok {
		r.drag.SetPendingSwap(target)
	} else {
		r.drag.ClearPendingSwap()
	}
}

// finalizeDrag ends the drag on mouse-up: a window dropped on another
// space moves there, otherwise a recorded swap is applied.
func (r *Reactor) finalizeDrag() {
	session, target, ok := r.drag.Take()
	r.swap.Reset()
	if !ok {
		return
	}
	wid := session.Window
	w, ok := r.windows[wid]
	if !ok {
		r.relayout()
		return
	}
	origin, settled := session.OriginSpace, session.SettledSpace
	floating := r.engine.IsFloating(wid)

	switch {
	case origin.Valid() && settled.Valid() && origin != settled && r.isSpaceActive(settled):
		r.log.Debug("drag moved window across spaces", "window", wid, "from", origin, "to", settled)
		resp := r.engine.MoveWindowToSpace(origin, settled, wid)
		w.space = settled
		if floating {
			r.engine.StoreFloatingPositions(settled, []tiling.WindowFrame{{Window: wid, Rect: w.frame}})
		}
		r.handleLayoutResponse(resp, platform.NoSpace)
	case floating:
		if settled.Valid() {
			r.engine.StoreFloatingPositions(settled, []tiling.WindowFrame{{Window: wid, Rect: w.frame}})
		}
	case !target.IsZero():
		if _, ok := r.windows[target]; !ok {
			break
		}
		visible, centers := r.visibleSpacesForLayout()
		resp := r.engine.HandleCommand(settled, visible, centers, tiling.LayoutCommand{
			Kind: tiling.CmdSwapWindows,
			A:    wid,
			B:    target,
		})
		r.log.Debug("drag swapped windows", "window", wid, "target", target)
		r.handleLayoutResponse(resp, platform.NoSpace)
	}
	r.relayout()
}
