package tiling

import (
	"sort"

	"github.com/1broseidon/spacetile/internal/platform"
)

// FloatingManager tracks which windows are excluded from tiling and which of
// them are currently shown on each space.
type FloatingManager struct {
	floating  map[platform.WindowID]bool
	active    map[platform.SpaceID][]platform.WindowID
	lastFocus platform.WindowID
}

func NewFloatingManager() *FloatingManager {
	return &FloatingManager{
		floating: make(map[platform.WindowID]bool),
		active:   make(map[platform.SpaceID][]platform.WindowID),
	}
}

func (f *FloatingManager) IsFloating(wid platform.WindowID) bool { return f.floating[wid] }

func (f *FloatingManager) AddFloating(wid platform.WindowID) { f.floating[wid] = true }

// RemoveFloating forgets wid entirely, including its active placements.
func (f *FloatingManager) RemoveFloating(wid platform.WindowID) {
	delete(f.floating, wid)
	f.RemoveActiveForWindow(wid)
	if f.lastFocus == wid {
		f.lastFocus = platform.WindowID{}
	}
}

func (f *FloatingManager) AddActive(space platform.SpaceID, wid platform.WindowID) {
	if containsWindow(f.active[space], wid) {
		return
	}
	f.active[space] = append(f.active[space], wid)
}

func (f *FloatingManager) RemoveActive(space platform.SpaceID, wid platform.WindowID) {
	f.active[space] = removeWindow(f.active[space], wid)
	if len(f.active[space]) == 0 {
		delete(f.active, space)
	}
}

func (f *FloatingManager) RemoveActiveForWindow(wid platform.WindowID) {
	for space := range f.active {
		f.RemoveActive(space, wid)
	}
}

// ClearActiveForApp drops pid's windows from the space's active list. They
// are re-added as the app reports them again.
func (f *FloatingManager) ClearActiveForApp(space platform.SpaceID, pid int32) {
	var keep []platform.WindowID
	for _, w := range f.active[space] {
		if w.PID != pid {
			keep = append(keep, w)
		}
	}
	if len(keep) == 0 {
		delete(f.active, space)
		return
	}
	f.active[space] = keep
}

func (f *FloatingManager) RemoveAllForPID(pid int32) {
	for wid := range f.floating {
		if wid.PID == pid {
			delete(f.floating, wid)
		}
	}
	for space := range f.active {
		f.ClearActiveForApp(space, pid)
	}
	if f.lastFocus.PID == pid {
		f.lastFocus = platform.WindowID{}
	}
}

// ActiveFlat lists the floating windows shown on space in insertion order.
func (f *FloatingManager) ActiveFlat(space platform.SpaceID) []platform.WindowID {
	return append([]platform.WindowID(nil), f.active[space]...)
}

// RebuildActiveForWorkspace keeps only the floating windows that belong to
// the workspace now shown on space.
func (f *FloatingManager) RebuildActiveForWorkspace(space platform.SpaceID, windows []platform.WindowID) {
	var next []platform.WindowID
	for _, w := range windows {
		if f.floating[w] {
			next = append(next, w)
		}
	}
	if len(next) == 0 {
		delete(f.active, space)
		return
	}
	f.active[space] = next
}

func (f *FloatingManager) RemapSpace(oldSpace, newSpace platform.SpaceID) {
	ws, ok := f.active[oldSpace]
	if !ok {
		return
	}
	delete(f.active, oldSpace)
	for _, w := range ws {
		f.AddActive(newSpace, w)
	}
}

func (f *FloatingManager) LastFocus() (platform.WindowID, bool) {
	return f.lastFocus, !f.lastFocus.IsZero()
}

func (f *FloatingManager) SetLastFocus(wid platform.WindowID) { f.lastFocus = wid }

// Windows returns every floating window in a stable order.
func (f *FloatingManager) Windows() []platform.WindowID {
	out := make([]platform.WindowID, 0, len(f.floating))
	for w := range f.floating {
		out = append(out, w)
	}
	sortWindowIDs(out)
	return out
}

func (f *FloatingManager) spaces() []platform.SpaceID {
	out := make([]platform.SpaceID, 0, len(f.active))
	for s := range f.active {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func removeWindow(ids []platform.WindowID, wid platform.WindowID) []platform.WindowID {
	out := ids[:0]
	for _, id := range ids {
		if id != wid {
			out = append(out, id)
		}
	}
	return out
}
