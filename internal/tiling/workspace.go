package tiling

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/spacetile/internal/platform"
)

var (
	// ErrNoActiveWorkspace is returned when a space has no active workspace.
	ErrNoActiveWorkspace = errors.New("no active workspace")
	// ErrWorkspaceNotFound is returned for unknown workspace ids or indices.
	ErrWorkspaceNotFound = errors.New("workspace not found")
	// ErrWorkspaceLimit is returned when a space already holds the maximum
	// number of workspaces.
	ErrWorkspaceLimit = errors.New("workspace limit reached")
)

// hiddenThreshold is how close to the parking corner a frame must sit to be
// treated as parked.
const hiddenThreshold = 10.0

// AppRule routes matching windows to a workspace and/or the floating set.
type AppRule struct {
	AppID         string `yaml:"app_id" json:"app_id"`
	TitleContains string `yaml:"title_contains" json:"title_contains"`
	Workspace     *int   `yaml:"workspace" json:"workspace,omitempty"`
	Floating      bool   `yaml:"floating" json:"floating"`
	Ignore        bool   `yaml:"ignore" json:"ignore"`
}

func (r AppRule) matches(appID, title string) bool {
	if r.AppID == "" && r.TitleContains == "" {
		return false
	}
	if r.AppID != "" && !strings.EqualFold(r.AppID, appID) {
		return false
	}
	if r.TitleContains != "" && !strings.Contains(strings.ToLower(title), strings.ToLower(r.TitleContains)) {
		return false
	}
	return true
}

// LayoutRule pins a workspace index to a layout mode.
type LayoutRule struct {
	Workspace int        `yaml:"workspace" json:"workspace"`
	Mode      LayoutMode `yaml:"mode" json:"mode"`
}

// WorkspaceSettings configures how many virtual workspaces each space gets
// and how windows are routed between them.
type WorkspaceSettings struct {
	Count            int          `yaml:"count" json:"count"`
	Names            []string     `yaml:"names" json:"names"`
	AutoBackAndForth bool         `yaml:"auto_back_and_forth" json:"auto_back_and_forth"`
	LayoutRules      []LayoutRule `yaml:"layout_rules" json:"layout_rules"`
	AppRules         []AppRule    `yaml:"app_rules" json:"app_rules"`
	Max              int          `yaml:"max" json:"max"`
}

func DefaultWorkspaceSettings() WorkspaceSettings {
	return WorkspaceSettings{Count: 4, Max: 16}
}

// Validate checks workspace settings for internal consistency.
func (s WorkspaceSettings) Validate() error {
	if s.Count < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if s.Max != 0 && s.Max < s.Count {
		return fmt.Errorf("max (%d) must be at least count (%d)", s.Max, s.Count)
	}
	for i, rule := range s.LayoutRules {
		if rule.Workspace < 0 {
			return fmt.Errorf("layout_rules[%d]: workspace index must not be negative", i)
		}
		if _, err := ParseLayoutMode(string(rule.Mode)); err != nil {
			return fmt.Errorf("layout_rules[%d]: %w", i, err)
		}
	}
	for i, rule := range s.AppRules {
		if rule.AppID == "" && rule.TitleContains == "" {
			return fmt.Errorf("app_rules[%d]: app_id or title_contains is required", i)
		}
		if rule.Workspace != nil && *rule.Workspace < 0 {
			return fmt.Errorf("app_rules[%d]: workspace index must not be negative", i)
		}
	}
	return nil
}

func (s WorkspaceSettings) nameFor(index int) string {
	if index < len(s.Names) && strings.TrimSpace(s.Names[index]) != "" {
		return s.Names[index]
	}
	return fmt.Sprintf("%d", index+1)
}

func (s WorkspaceSettings) modeFor(index int, fallback LayoutMode) LayoutMode {
	for _, rule := range s.LayoutRules {
		if rule.Workspace == index {
			if mode, err := ParseLayoutMode(string(rule.Mode)); err == nil {
				return mode
			}
		}
	}
	return fallback
}

// AppInfo is what the engine knows about a window's owner when routing it.
type AppInfo struct {
	AppID string
	Title string
}

// Assignment is the outcome of routing a window through the app rules.
type Assignment struct {
	Workspace VirtualWorkspaceID
	Floating  bool
	// RuleFloated reports whether the previous rule decision for the window
	// floated it.
	RuleFloated bool
	// Ruled is set when an app rule matched.
	Ruled bool
}

// VirtualWorkspace is an engine-side subdivision of one space. It owns the
// layout system holding its tiled windows.
type VirtualWorkspace struct {
	ID     VirtualWorkspaceID
	Space  platform.SpaceID
	Name   string
	Mode   LayoutMode
	System LayoutSystem

	layout      LayoutID
	hasLayout   bool
	windows     []platform.WindowID
	lastFocused platform.WindowID
	floating    map[platform.WindowID]platform.Rect
}

// Layout returns the active layout instance, if one has been created.
func (w *VirtualWorkspace) Layout() (LayoutID, bool) { return w.layout, w.hasLayout }

// Windows returns the member windows in assignment order.
func (w *VirtualWorkspace) Windows() []platform.WindowID {
	return append([]platform.WindowID(nil), w.windows...)
}

func (w *VirtualWorkspace) LastFocused() (platform.WindowID, bool) {
	return w.lastFocused, !w.lastFocused.IsZero()
}

func (w *VirtualWorkspace) contains(wid platform.WindowID) bool {
	return containsWindow(w.windows, wid)
}

func (w *VirtualWorkspace) ensureLayout() LayoutID {
	if !w.hasLayout {
		w.layout = w.System.CreateLayout()
		w.hasLayout = true
	}
	return w.layout
}

// replaceSystem swaps in a fresh layout system for mode. The old layout is
// discarded.
func (w *VirtualWorkspace) replaceSystem(mode LayoutMode, settings Settings) LayoutID {
	w.Mode = mode
	w.System = NewLayoutSystem(mode, settings)
	w.layout = w.System.CreateLayout()
	w.hasLayout = true
	return w.layout
}

type spaceWindow struct {
	space platform.SpaceID
	wid   platform.WindowID
}

// WorkspaceStats summarizes workspace occupancy.
type WorkspaceStats struct {
	TotalWorkspaces int            `json:"total_workspaces"`
	TotalWindows    int            `json:"total_windows"`
	ActiveSpaces    int            `json:"active_spaces"`
	WindowCounts    map[string]int `json:"window_counts"`
}

// VirtualWorkspaceManager owns every virtual workspace. Workspaces for a
// space are created the first time the space is listed and are only removed
// by remapping or an explicit restore.
type VirtualWorkspaceManager struct {
	settings       WorkspaceSettings
	layoutSettings Settings
	defaultMode    LayoutMode

	nextID     VirtualWorkspaceID
	workspaces map[VirtualWorkspaceID]*VirtualWorkspace
	bySpace    map[platform.SpaceID][]VirtualWorkspaceID
	active     map[platform.SpaceID]VirtualWorkspaceID
	last       map[platform.SpaceID]VirtualWorkspaceID
	assigned   map[spaceWindow]VirtualWorkspaceID
	ruleFloat  map[spaceWindow]bool
}

func NewVirtualWorkspaceManager(settings WorkspaceSettings, defaultMode LayoutMode, layoutSettings Settings) *VirtualWorkspaceManager {
	if settings.Count < 1 {
		settings.Count = 1
	}
	return &VirtualWorkspaceManager{
		settings:       settings,
		layoutSettings: layoutSettings,
		defaultMode:    defaultMode,
		nextID:         1,
		workspaces:     make(map[VirtualWorkspaceID]*VirtualWorkspace),
		bySpace:        make(map[platform.SpaceID][]VirtualWorkspaceID),
		active:         make(map[platform.SpaceID]VirtualWorkspaceID),
		last:           make(map[platform.SpaceID]VirtualWorkspaceID),
		assigned:       make(map[spaceWindow]VirtualWorkspaceID),
		ruleFloat:      make(map[spaceWindow]bool),
	}
}

func (m *VirtualWorkspaceManager) Settings() WorkspaceSettings { return m.settings }

// UpdateSettings applies new names and rules. It returns the workspaces
// whose layout rule now asks for a different mode so the caller can rebuild
// them.
func (m *VirtualWorkspaceManager) UpdateSettings(settings WorkspaceSettings, defaultMode LayoutMode, layoutSettings Settings) map[VirtualWorkspaceID]LayoutMode {
	if settings.Count < 1 {
		settings.Count = 1
	}
	m.settings = settings
	m.defaultMode = defaultMode
	m.layoutSettings = layoutSettings
	changed := make(map[VirtualWorkspaceID]LayoutMode)
	for _, space := range m.Spaces() {
		for i, id := range m.bySpace[space] {
			ws := m.workspaces[id]
			if i < len(settings.Names) && strings.TrimSpace(settings.Names[i]) != "" {
				ws.Name = settings.Names[i]
			}
			if want := settings.modeFor(i, ws.Mode); want != ws.Mode {
				changed[id] = want
			}
		}
	}
	return changed
}

func (m *VirtualWorkspaceManager) newWorkspace(space platform.SpaceID, name string) *VirtualWorkspace {
	index := len(m.bySpace[space])
	if name == "" {
		name = m.settings.nameFor(index)
	}
	mode := m.settings.modeFor(index, m.defaultMode)
	ws := &VirtualWorkspace{
		ID:       m.nextID,
		Space:    space,
		Name:     name,
		Mode:     mode,
		System:   NewLayoutSystem(mode, m.layoutSettings),
		floating: make(map[platform.WindowID]platform.Rect),
	}
	m.nextID++
	m.workspaces[ws.ID] = ws
	m.bySpace[space] = append(m.bySpace[space], ws.ID)
	return ws
}

// ListWorkspaces returns the workspaces of space in index order, creating
// the configured set on first use.
func (m *VirtualWorkspaceManager) ListWorkspaces(space platform.SpaceID) []*VirtualWorkspace {
	if _, ok := m.bySpace[space]; !ok {
		for i := 0; i < m.settings.Count; i++ {
			m.newWorkspace(space, "")
		}
		m.active[space] = m.bySpace[space][0]
	}
	ids := m.bySpace[space]
	out := make([]*VirtualWorkspace, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.workspaces[id])
	}
	return out
}

// Workspace looks a workspace up by id.
func (m *VirtualWorkspaceManager) Workspace(id VirtualWorkspaceID) (*VirtualWorkspace, bool) {
	ws, ok := m.workspaces[id]
	return ws, ok
}

// WorkspaceInfo looks a workspace up by id, restricted to space.
func (m *VirtualWorkspaceManager) WorkspaceInfo(space platform.SpaceID, id VirtualWorkspaceID) (*VirtualWorkspace, bool) {
	ws, ok := m.workspaces[id]
	if !ok || ws.Space != space {
		return nil, false
	}
	return ws, true
}

// WorkspaceIndex returns the position of id within its space.
func (m *VirtualWorkspaceManager) WorkspaceIndex(id VirtualWorkspaceID) (int, bool) {
	ws, ok := m.workspaces[id]
	if !ok {
		return 0, false
	}
	for i, other := range m.bySpace[ws.Space] {
		if other == id {
			return i, true
		}
	}
	return 0, false
}

// WorkspaceAt resolves an index, creating the default set if needed.
func (m *VirtualWorkspaceManager) WorkspaceAt(space platform.SpaceID, index int) (*VirtualWorkspace, bool) {
	list := m.ListWorkspaces(space)
	if index < 0 || index >= len(list) {
		return nil, false
	}
	return list[index], true
}

func (m *VirtualWorkspaceManager) ActiveWorkspace(space platform.SpaceID) (VirtualWorkspaceID, bool) {
	id, ok := m.active[space]
	return id, ok
}

// SetActiveWorkspace makes id the active workspace of space and remembers
// the previous one for back-and-forth switching.
func (m *VirtualWorkspaceManager) SetActiveWorkspace(space platform.SpaceID, id VirtualWorkspaceID) bool {
	ws, ok := m.workspaces[id]
	if !ok || ws.Space != space {
		return false
	}
	if cur, ok := m.active[space]; ok && cur != id {
		m.last[space] = cur
	}
	m.active[space] = id
	return true
}

func (m *VirtualWorkspaceManager) LastWorkspace(space platform.SpaceID) (VirtualWorkspaceID, bool) {
	id, ok := m.last[space]
	if !ok {
		return 0, false
	}
	if _, exists := m.workspaces[id]; !exists {
		return 0, false
	}
	return id, true
}

func (m *VirtualWorkspaceManager) AutoBackAndForth() bool { return m.settings.AutoBackAndForth }

// NextWorkspace returns the workspace after current, wrapping around. With
// skipEmpty it passes over workspaces that hold no windows.
func (m *VirtualWorkspaceManager) NextWorkspace(space platform.SpaceID, current VirtualWorkspaceID, skipEmpty bool) (VirtualWorkspaceID, bool) {
	return m.step(space, current, 1, skipEmpty)
}

func (m *VirtualWorkspaceManager) PrevWorkspace(space platform.SpaceID, current VirtualWorkspaceID, skipEmpty bool) (VirtualWorkspaceID, bool) {
	return m.step(space, current, -1, skipEmpty)
}

func (m *VirtualWorkspaceManager) step(space platform.SpaceID, current VirtualWorkspaceID, delta int, skipEmpty bool) (VirtualWorkspaceID, bool) {
	ids := m.bySpace[space]
	n := len(ids)
	start := -1
	for i, id := range ids {
		if id == current {
			start = i
			break
		}
	}
	if start < 0 || n < 2 {
		return 0, false
	}
	for k := 1; k < n; k++ {
		id := ids[((start+delta*k)%n+n)%n]
		if skipEmpty && len(m.workspaces[id].windows) == 0 {
			continue
		}
		return id, true
	}
	return 0, false
}

// CreateWorkspace appends a workspace to space.
func (m *VirtualWorkspaceManager) CreateWorkspace(space platform.SpaceID, name string) (VirtualWorkspaceID, error) {
	m.ListWorkspaces(space)
	if m.settings.Max > 0 && len(m.bySpace[space]) >= m.settings.Max {
		return 0, fmt.Errorf("space %d: %w (%d)", space, ErrWorkspaceLimit, m.settings.Max)
	}
	return m.newWorkspace(space, name).ID, nil
}

// AssignWindow routes wid through the app rules. managed is false when a
// rule asks for the window to be ignored.
func (m *VirtualWorkspaceManager) AssignWindow(wid platform.WindowID, space platform.SpaceID, app AppInfo) (a Assignment, managed bool, err error) {
	key := spaceWindow{space, wid}
	a.RuleFloated = m.ruleFloat[key]
	for _, rule := range m.settings.AppRules {
		if !rule.matches(app.AppID, app.Title) {
			continue
		}
		if rule.Ignore {
			return Assignment{}, false, nil
		}
		a.Ruled = true
		a.Floating = rule.Floating
		if rule.Workspace != nil {
			ws, ok := m.WorkspaceAt(space, *rule.Workspace)
			if !ok {
				return Assignment{}, true, fmt.Errorf("app rule for %q: index %d: %w", app.AppID, *rule.Workspace, ErrWorkspaceNotFound)
			}
			if cur, ok := m.assigned[key]; !ok || cur != ws.ID {
				m.AssignWindowToWorkspace(space, wid, ws.ID)
			}
			a.Workspace = ws.ID
			return a, true, nil
		}
		break
	}
	id, err := m.AutoAssignWindow(wid, space)
	if err != nil {
		return Assignment{}, true, err
	}
	a.Workspace = id
	return a, true, nil
}

// AutoAssignWindow keeps an existing assignment or places wid on the active
// workspace of space.
func (m *VirtualWorkspaceManager) AutoAssignWindow(wid platform.WindowID, space platform.SpaceID) (VirtualWorkspaceID, error) {
	if id, ok := m.assigned[spaceWindow{space, wid}]; ok {
		return id, nil
	}
	m.ListWorkspaces(space)
	id, ok := m.active[space]
	if !ok {
		return 0, fmt.Errorf("space %d: %w", space, ErrNoActiveWorkspace)
	}
	m.AssignWindowToWorkspace(space, wid, id)
	return id, nil
}

// AssignWindowToWorkspace moves membership of wid to id. Membership in any
// other workspace is dropped.
func (m *VirtualWorkspaceManager) AssignWindowToWorkspace(space platform.SpaceID, wid platform.WindowID, id VirtualWorkspaceID) bool {
	ws, ok := m.workspaces[id]
	if !ok || ws.Space != space {
		return false
	}
	m.removeMembership(wid)
	ws.windows = append(ws.windows, wid)
	m.assigned[spaceWindow{space, wid}] = id
	return true
}

func (m *VirtualWorkspaceManager) removeMembership(wid platform.WindowID) {
	for key, id := range m.assigned {
		if key.wid != wid {
			continue
		}
		delete(m.assigned, key)
		if ws, ok := m.workspaces[id]; ok {
			ws.windows = removeWindow(ws.windows, wid)
			if ws.lastFocused == wid {
				ws.lastFocused = platform.WindowID{}
			}
		}
	}
}

func (m *VirtualWorkspaceManager) SetLastRuleDecision(space platform.SpaceID, wid platform.WindowID, floated bool) {
	m.ruleFloat[spaceWindow{space, wid}] = floated
}

func (m *VirtualWorkspaceManager) WorkspaceForWindow(space platform.SpaceID, wid platform.WindowID) (VirtualWorkspaceID, bool) {
	id, ok := m.assigned[spaceWindow{space, wid}]
	return id, ok
}

// WorkspaceForWindowAny finds the workspace of wid regardless of space.
func (m *VirtualWorkspaceManager) WorkspaceForWindowAny(wid platform.WindowID) (VirtualWorkspaceID, bool) {
	ids := m.WorkspacesForWindow(wid)
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

func (m *VirtualWorkspaceManager) WorkspacesForWindow(wid platform.WindowID) []VirtualWorkspaceID {
	var out []VirtualWorkspaceID
	for key, id := range m.assigned {
		if key.wid == wid {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RemoveWindow drops wid from every workspace.
func (m *VirtualWorkspaceManager) RemoveWindow(wid platform.WindowID) {
	m.removeMembership(wid)
	for key := range m.ruleFloat {
		if key.wid == wid {
			delete(m.ruleFloat, key)
		}
	}
}

func (m *VirtualWorkspaceManager) RemoveWindowsForApp(pid int32) {
	for key := range m.assigned {
		if key.wid.PID == pid {
			m.RemoveWindow(key.wid)
		}
	}
	for key := range m.ruleFloat {
		if key.wid.PID == pid {
			delete(m.ruleFloat, key)
		}
	}
}

func (m *VirtualWorkspaceManager) WorkspaceWindows(space platform.SpaceID, id VirtualWorkspaceID) []platform.WindowID {
	ws, ok := m.WorkspaceInfo(space, id)
	if !ok {
		return nil
	}
	return ws.Windows()
}

func (m *VirtualWorkspaceManager) WindowsInActiveWorkspace(space platform.SpaceID) []platform.WindowID {
	id, ok := m.active[space]
	if !ok {
		return nil
	}
	return m.WorkspaceWindows(space, id)
}

// WindowsInInactiveWorkspaces lists the windows that must be parked
// off-screen on space.
func (m *VirtualWorkspaceManager) WindowsInInactiveWorkspaces(space platform.SpaceID) []platform.WindowID {
	active := m.active[space]
	var out []platform.WindowID
	for _, id := range m.bySpace[space] {
		if id == active {
			continue
		}
		out = append(out, m.workspaces[id].windows...)
	}
	return out
}

func (m *VirtualWorkspaceManager) IsWindowInActiveWorkspace(space platform.SpaceID, wid platform.WindowID) bool {
	id, ok := m.assigned[spaceWindow{space, wid}]
	if !ok {
		return false
	}
	active, ok := m.active[space]
	return ok && active == id
}

func (m *VirtualWorkspaceManager) LastFocusedWindow(space platform.SpaceID, id VirtualWorkspaceID) (platform.WindowID, bool) {
	ws, ok := m.WorkspaceInfo(space, id)
	if !ok {
		return platform.WindowID{}, false
	}
	return ws.LastFocused()
}

// SetLastFocusedWindow records wid as the workspace's focus memory. A zero
// wid clears it.
func (m *VirtualWorkspaceManager) SetLastFocusedWindow(space platform.SpaceID, id VirtualWorkspaceID, wid platform.WindowID) {
	if ws, ok := m.WorkspaceInfo(space, id); ok {
		ws.lastFocused = wid
	}
}

func (m *VirtualWorkspaceManager) StoreFloatingPosition(space platform.SpaceID, id VirtualWorkspaceID, wid platform.WindowID, rect platform.Rect) {
	if ws, ok := m.WorkspaceInfo(space, id); ok {
		ws.floating[wid] = rect
	}
}

func (m *VirtualWorkspaceManager) StoreFloatingPositionIfAbsent(space platform.SpaceID, id VirtualWorkspaceID, wid platform.WindowID, rect platform.Rect) {
	if ws, ok := m.WorkspaceInfo(space, id); ok {
		if _, exists := ws.floating[wid]; !exists {
			ws.floating[wid] = rect
		}
	}
}

// StoreCurrentFloatingPositions records positions for the floating windows
// that belong to the active workspace of space.
func (m *VirtualWorkspaceManager) StoreCurrentFloatingPositions(space platform.SpaceID, frames []WindowFrame) {
	id, ok := m.active[space]
	if !ok {
		return
	}
	ws := m.workspaces[id]
	for _, f := range frames {
		if ws.contains(f.Window) {
			ws.floating[f.Window] = f.Rect
		}
	}
}

// FloatingPositions returns the stored floating positions of a workspace in
// window order.
func (m *VirtualWorkspaceManager) FloatingPositions(space platform.SpaceID, id VirtualWorkspaceID) []WindowFrame {
	ws, ok := m.WorkspaceInfo(space, id)
	if !ok {
		return nil
	}
	out := make([]WindowFrame, 0, len(ws.floating))
	for wid, rect := range ws.floating {
		out = append(out, WindowFrame{Window: wid, Rect: rect})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Window.Less(out[j].Window) })
	return out
}

func (m *VirtualWorkspaceManager) RemoveFloatingPosition(wid platform.WindowID) {
	for _, ws := range m.workspaces {
		delete(ws.floating, wid)
	}
}

func (m *VirtualWorkspaceManager) RemoveAppFloatingPositions(pid int32) {
	for _, ws := range m.workspaces {
		for wid := range ws.floating {
			if wid.PID == pid {
				delete(ws.floating, wid)
			}
		}
	}
}

// RemapSpace moves every workspace of oldSpace onto newSpace. Workspaces
// lazily created for newSpace before the remap are discarded when empty.
func (m *VirtualWorkspaceManager) RemapSpace(oldSpace, newSpace platform.SpaceID) {
	if oldSpace == newSpace {
		return
	}
	ids, ok := m.bySpace[oldSpace]
	if !ok {
		return
	}
	if existing, ok := m.bySpace[newSpace]; ok {
		for _, id := range existing {
			ws := m.workspaces[id]
			if len(ws.windows) > 0 {
				// Keep populated workspaces; they follow the remapped ones.
				ids = append(ids, id)
				continue
			}
			delete(m.workspaces, id)
		}
	}
	delete(m.bySpace, oldSpace)
	m.bySpace[newSpace] = ids
	for _, id := range ids {
		m.workspaces[id].Space = newSpace
	}
	if a, ok := m.active[oldSpace]; ok {
		m.active[newSpace] = a
		delete(m.active, oldSpace)
	}
	if l, ok := m.last[oldSpace]; ok {
		m.last[newSpace] = l
		delete(m.last, oldSpace)
	} else {
		delete(m.last, newSpace)
	}
	for key, id := range m.assigned {
		if key.space == oldSpace {
			delete(m.assigned, key)
			m.assigned[spaceWindow{newSpace, key.wid}] = id
		}
	}
	for key, v := range m.ruleFloat {
		if key.space == oldSpace {
			delete(m.ruleFloat, key)
			m.ruleFloat[spaceWindow{newSpace, key.wid}] = v
		}
	}
}

// FindWindowByIdx resolves a bare window index on space.
func (m *VirtualWorkspaceManager) FindWindowByIdx(space platform.SpaceID, idx uint32) (platform.WindowID, bool) {
	for _, id := range m.bySpace[space] {
		for _, wid := range m.workspaces[id].windows {
			if wid.Idx == idx {
				return wid, true
			}
		}
	}
	return platform.WindowID{}, false
}

// Spaces lists every space that has workspaces.
func (m *VirtualWorkspaceManager) Spaces() []platform.SpaceID {
	out := make([]platform.SpaceID, 0, len(m.bySpace))
	for s := range m.bySpace {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *VirtualWorkspaceManager) Stats() WorkspaceStats {
	st := WorkspaceStats{
		TotalWorkspaces: len(m.workspaces),
		ActiveSpaces:    len(m.active),
		WindowCounts:    make(map[string]int),
	}
	for _, ws := range m.workspaces {
		st.TotalWindows += len(ws.windows)
		st.WindowCounts[fmt.Sprintf("%d/%s", ws.Space, ws.Name)] = len(ws.windows)
	}
	return st
}

// CalculateHiddenPosition parks a window of the given size so that only a
// one pixel sliver remains at the bottom-right corner of screen. If that
// would land on a neighbouring screen the bottom-left corner is used.
func CalculateHiddenPosition(screen platform.Rect, size platform.Size, all []platform.Rect) platform.Rect {
	max := screen.Max()
	rect := platform.Rect{X: max.X - 1, Y: max.Y - 1, Width: size.Width, Height: size.Height}
	if overlapsOther(rect, screen, all) {
		rect.X = screen.X - size.Width + 1
	}
	return rect
}

func overlapsOther(rect, screen platform.Rect, all []platform.Rect) bool {
	for _, other := range all {
		if other == screen {
			continue
		}
		if !rect.Intersection(other).IsEmpty() {
			return true
		}
	}
	return false
}

// IsHiddenPosition reports whether rect sits in one of the parking corners
// of screen.
func IsHiddenPosition(screen, rect platform.Rect) bool {
	max := screen.Max()
	if rect.Y < max.Y-hiddenThreshold {
		return false
	}
	if rect.X >= max.X-hiddenThreshold {
		return true
	}
	return rect.X+rect.Width <= screen.X+hiddenThreshold
}
