package tiling

import (
	"github.com/1broseidon/spacetile/internal/platform"
)

// WorkspaceSummary describes one virtual workspace for queries.
type WorkspaceSummary struct {
	ID          VirtualWorkspaceID  `json:"id"`
	Index       int                 `json:"index"`
	Name        string              `json:"name"`
	Mode        LayoutMode          `json:"mode"`
	Active      bool                `json:"active"`
	Windows     []platform.WindowID `json:"windows"`
	Floating    []platform.WindowID `json:"floating,omitempty"`
	LastFocused *platform.WindowID  `json:"last_focused,omitempty"`
}

// WorkspaceSummaries lists the workspaces of space in index order.
func (e *Engine) WorkspaceSummaries(space platform.SpaceID) []WorkspaceSummary {
	active, _ := e.vwm.ActiveWorkspace(space)
	var out []WorkspaceSummary
	for i, ws := range e.vwm.ListWorkspaces(space) {
		sum := WorkspaceSummary{
			ID:      ws.ID,
			Index:   i,
			Name:    ws.Name,
			Mode:    ws.Mode,
			Active:  ws.ID == active,
			Windows: ws.Windows(),
		}
		for _, wid := range ws.windows {
			if e.floating.IsFloating(wid) {
				sum.Floating = append(sum.Floating, wid)
			}
		}
		if wid, ok := ws.LastFocused(); ok {
			sum.LastFocused = &wid
		}
		out = append(out, sum)
	}
	return out
}

// LayoutState is the introspection view of the active layout of a space.
type LayoutState struct {
	Space         platform.SpaceID    `json:"space"`
	Workspace     VirtualWorkspaceID  `json:"workspace"`
	WorkspaceName string              `json:"workspace_name"`
	Mode          LayoutMode          `json:"mode"`
	Selected      *platform.WindowID  `json:"selected,omitempty"`
	SelectionPath []string            `json:"selection_path,omitempty"`
	Windows       []platform.WindowID `json:"windows"`
	Visible       []platform.WindowID `json:"visible"`
	Floating      []platform.WindowID `json:"floating,omitempty"`
	Fullscreen    bool                `json:"fullscreen"`

	Master       []platform.WindowID   `json:"master,omitempty"`
	Stack        []platform.WindowID   `json:"stack,omitempty"`
	Columns      [][]platform.WindowID `json:"columns,omitempty"`
	ScrollOffset float64               `json:"scroll_offset,omitempty"`
}

// LayoutState reports the active layout of space.
func (e *Engine) LayoutState(space platform.SpaceID) (LayoutState, bool) {
	ws, layout, ok := e.workspaceAndLayout(space)
	if !ok {
		return LayoutState{}, false
	}
	sys := ws.System
	st := LayoutState{
		Space:         space,
		Workspace:     ws.ID,
		WorkspaceName: ws.Name,
		Mode:          ws.Mode,
		SelectionPath: sys.SelectionPath(layout),
		Windows:       sys.Windows(layout),
		Visible:       sys.VisibleWindows(layout),
		Floating:      e.activeFloating(space),
		Fullscreen:    sys.HasAnyFullscreen(layout),
	}
	if wid, ok := sys.SelectedWindow(layout); ok {
		st.Selected = &wid
	}
	switch s := sys.(type) {
	case *MasterStackSystem:
		st.Master = s.MasterWindows(layout)
		st.Stack = s.StackWindows(layout)
	case *ScrollingSystem:
		st.Columns = s.Columns(layout)
		st.ScrollOffset = s.ScrollOffset(layout)
	}
	return st, true
}

// EngineStats aggregates engine occupancy for the metrics query.
type EngineStats struct {
	Workspaces      WorkspaceStats `json:"workspaces"`
	FloatingWindows int            `json:"floating_windows"`
	LockedWindows   int            `json:"locked_windows"`
	KnownDisplays   int            `json:"known_displays"`
}

func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Workspaces:      e.vwm.Stats(),
		FloatingWindows: len(e.floating.floating),
		LockedWindows:   len(e.lockedResize),
		KnownDisplays:   len(e.displayLastSpace),
	}
}
