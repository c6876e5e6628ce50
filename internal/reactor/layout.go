package reactor

import (
	"github.com/1broseidon/spacetile/internal/platform"
)

// relayout computes the frames of every active space and hands the ones
// that differ from the last known frame to the animator.
func (r *Reactor) relayout() {
	all := r.screenFrames()
	bound := len(r.active) > 1
	frameOf := func(wid platform.WindowID) (platform.Rect, bool) {
		w, ok := r.windows[wid]
		if !ok {
			return platform.Rect{}, false
		}
		return w.frame, true
	}

	var frames []platform.Frame
	done := make(map[platform.SpaceID]bool)
	for _, screen := range r.screens {
		space := screen.Space
		if !r.isSpaceActive(space) || done[space] {
			continue
		}
		done[space] = true
		gaps := r.engine.Gaps().For(screen.DisplayUUID)
		for _, f := range r.engine.CalculateLayoutWithWorkspaces(space, screen.Frame, gaps, frameOf, all, bound) {
			w, ok := r.windows[f.Window]
			if !ok || r.isDragged(f.Window) {
				continue
			}
			target := f.Rect.Round()
			if w.frame.Round() == target {
				continue
			}
			w.frame = target
			frames = append(frames, platform.Frame{Window: f.Window, SysID: w.info.SysID, Rect: target})
		}
	}

	if len(frames) > 0 {
		if r.animator != nil {
			if err := r.animator.Apply(frames); err != nil {
				r.log.Warn("failed to apply layout", "frames", len(frames), "error", err)
			}
		}
		r.metrics.RecordRelayout(len(frames))
	}
	r.finishSwitch()
	r.prepareRefocus()
}
