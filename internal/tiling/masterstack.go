package tiling

import (
	"fmt"
	"strings"

	"github.com/1broseidon/spacetile/internal/platform"
)

// MasterSide is the edge of the screen the master container sits on.
type MasterSide string

const (
	MasterLeft   MasterSide = "left"
	MasterRight  MasterSide = "right"
	MasterTop    MasterSide = "top"
	MasterBottom MasterSide = "bottom"
)

// Placement decides which container receives a new window once the master
// container is full.
type Placement string

const (
	PlaceMaster  Placement = "master"
	PlaceStack   Placement = "stack"
	PlaceFocused Placement = "focused"
)

// MasterStackSettings are shared by every layout of a master-stack system.
type MasterStackSettings struct {
	Side      MasterSide `yaml:"side" json:"side"`
	Ratio     float64    `yaml:"ratio" json:"ratio"`
	Count     int        `yaml:"count" json:"count"`
	Placement Placement  `yaml:"new_window_placement" json:"new_window_placement"`
}

// DefaultMasterStackSettings returns master on the left taking 60% with one
// master window.
func DefaultMasterStackSettings() MasterStackSettings {
	return MasterStackSettings{Side: MasterLeft, Ratio: 0.6, Count: 1, Placement: PlaceStack}
}

// Validate checks enum values and ranges.
func (s MasterStackSettings) Validate() error {
	switch s.Side {
	case MasterLeft, MasterRight, MasterTop, MasterBottom:
	default:
		return fmt.Errorf("master side must be left, right, top or bottom, got %q", s.Side)
	}
	switch s.Placement {
	case PlaceMaster, PlaceStack, PlaceFocused:
	default:
		return fmt.Errorf("new window placement must be master, stack or focused, got %q", s.Placement)
	}
	if s.Ratio < 0.05 || s.Ratio > 0.95 {
		return fmt.Errorf("master ratio must be within [0.05, 0.95], got %v", s.Ratio)
	}
	if s.Count < 1 {
		return fmt.Errorf("master count must be >= 1, got %d", s.Count)
	}
	return nil
}

func (s MasterStackSettings) normalized() MasterStackSettings {
	s.Side = MasterSide(strings.ToLower(string(s.Side)))
	s.Placement = Placement(strings.ToLower(string(s.Placement)))
	if s.Side == "" {
		s.Side = MasterLeft
	}
	if s.Placement == "" {
		s.Placement = PlaceStack
	}
	if s.Ratio == 0 {
		s.Ratio = 0.6
	}
	s.Ratio = clamp(s.Ratio, 0.05, 0.95)
	if s.Count < 1 {
		s.Count = 1
	}
	return s
}

func (s MasterStackSettings) rootOrientation() Orientation {
	if s.Side == MasterTop || s.Side == MasterBottom {
		return Vertical
	}
	return Horizontal
}

func (s MasterStackSettings) masterFirst() bool {
	return s.Side == MasterLeft || s.Side == MasterTop
}

type msPair struct {
	master NodeID
	stack  NodeID
}

// MasterStackSystem keeps every layout as a root with exactly two pinned
// containers. Windows are direct children of those containers.
type MasterStackSystem struct {
	t        *tree
	settings MasterStackSettings
	pairs    map[LayoutID]msPair
}

var _ LayoutSystem = (*MasterStackSystem)(nil)

func NewMasterStackSystem(settings MasterStackSettings) *MasterStackSystem {
	return &MasterStackSystem{
		t:        newTree(),
		settings: settings.normalized(),
		pairs:    make(map[LayoutID]msPair),
	}
}

func (s *MasterStackSystem) Mode() LayoutMode { return ModeMasterStack }

// Settings returns the current tunables.
func (s *MasterStackSystem) Settings() MasterStackSettings { return s.settings }

// UpdateSettings applies new tunables to every layout, keeping window order.
func (s *MasterStackSystem) UpdateSettings(settings MasterStackSettings) {
	settings = settings.normalized()
	if settings == s.settings {
		return
	}
	s.settings = settings
	for layout := range s.pairs {
		s.normalizeLayout(layout)
	}
}

func (s *MasterStackSystem) CreateLayout() LayoutID {
	t := s.t
	layout := t.createLayout(s.settings.rootOrientation())
	root := t.root(layout)
	master := t.newContainer(layout, s.settings.rootOrientation().Flip())
	stack := t.newContainer(layout, s.settings.rootOrientation().Flip())
	t.get(master).pinned = true
	t.get(stack).pinned = true
	t.insertChild(root, -1, master)
	t.insertChild(root, -1, stack)
	s.pairs[layout] = msPair{master: master, stack: stack}
	s.normalizeLayout(layout)
	t.selectNode(layout, master)
	return layout
}

func (s *MasterStackSystem) CloneLayout(layout LayoutID) LayoutID {
	pair, ok := s.pairs[layout]
	if !ok {
		return 0
	}
	t := s.t
	mi, si := t.indexOf(t.root(layout), pair.master), t.indexOf(t.root(layout), pair.stack)
	clone := t.cloneLayout(layout)
	children := t.get(t.root(clone)).children
	s.pairs[clone] = msPair{master: children[mi], stack: children[si]}
	return clone
}

func (s *MasterStackSystem) RemoveLayout(layout LayoutID) {
	s.t.removeLayout(layout)
	delete(s.pairs, layout)
}

func (s *MasterStackSystem) CalculateLayout(layout LayoutID, screen platform.Rect, gaps Gaps) []WindowFrame {
	return s.t.calculate(layout, screen, gaps)
}

func (s *MasterStackSystem) SelectedWindow(layout LayoutID) (platform.WindowID, bool) {
	return s.t.selectedWindow(layout)
}

func (s *MasterStackSystem) SelectWindow(layout LayoutID, wid platform.WindowID) bool {
	return s.t.selectWindow(layout, wid)
}

func (s *MasterStackSystem) VisibleWindows(layout LayoutID) []platform.WindowID {
	return s.t.visibleWindows(s.t.root(layout))
}

// Windows lists master windows then stack windows regardless of side.
func (s *MasterStackSystem) Windows(layout LayoutID) []platform.WindowID {
	pair, ok := s.pairs[layout]
	if !ok {
		return nil
	}
	return append(s.t.windowsUnder(pair.master), s.t.windowsUnder(pair.stack)...)
}

// MasterWindows returns the master container contents in order.
func (s *MasterStackSystem) MasterWindows(layout LayoutID) []platform.WindowID {
	return s.t.windowsUnder(s.pairs[layout].master)
}

// StackWindows returns the stack container contents in order.
func (s *MasterStackSystem) StackWindows(layout LayoutID) []platform.WindowID {
	return s.t.windowsUnder(s.pairs[layout].stack)
}

func (s *MasterStackSystem) ContainsWindow(layout LayoutID, wid platform.WindowID) bool {
	_, ok := s.t.index[layout][wid]
	return ok
}

func (s *MasterStackSystem) focusedContainer(layout LayoutID) NodeID {
	pair := s.pairs[layout]
	leaf := s.t.selectedLeaf(layout)
	if leaf == noNode {
		if c := s.t.cursor(layout); c == pair.master || c == pair.stack {
			return c
		}
		return noNode
	}
	return s.t.parent(leaf)
}

// focusedInContainer is the window the container's selection points at.
func (s *MasterStackSystem) focusedInContainer(container NodeID) (platform.WindowID, bool) {
	c := s.t.get(container)
	if c == nil || len(c.children) == 0 {
		return platform.WindowID{}, false
	}
	sel := c.selected
	if s.t.get(sel) == nil {
		sel = c.children[0]
	}
	return s.t.get(sel).window, true
}

func (s *MasterStackSystem) AddWindowAfterSelection(layout LayoutID, wid platform.WindowID) {
	pair, ok := s.pairs[layout]
	if !ok {
		return
	}
	t := s.t
	if _, exists := t.index[layout][wid]; exists {
		t.selectWindow(layout, wid)
		return
	}
	target := pair.master
	if len(t.get(pair.master).children) >= s.settings.Count {
		switch s.settings.Placement {
		case PlaceMaster:
			target = pair.master
		case PlaceFocused:
			if c := s.focusedContainer(layout); c != noNode {
				target = c
			}
		default:
			target = pair.stack
		}
	}
	at := -1
	if target == pair.master && len(t.get(pair.master).children) >= s.settings.Count {
		// a full master takes the newcomer at the front; overflow demotes the tail
		at = 0
	} else if sel := t.selectedLeaf(layout); sel != noNode && t.parent(sel) == target {
		at = t.indexOf(target, sel) + 1
	}
	leaf := t.newLeaf(layout, wid)
	t.insertChild(target, at, leaf)
	t.selectNode(layout, leaf)
	s.normalizeLayout(layout)
}

func (s *MasterStackSystem) RemoveWindow(wid platform.WindowID) {
	for _, layout := range s.t.layoutsForWindow(wid) {
		s.t.removeLeaf(layout, wid)
		s.normalizeLayout(layout)
	}
}

func (s *MasterStackSystem) RemoveWindowsForApp(pid int32) {
	for layout, idx := range s.t.index {
		var doomed []platform.WindowID
		for wid := range idx {
			if wid.PID == pid {
				doomed = append(doomed, wid)
			}
		}
		for _, wid := range doomed {
			s.t.removeLeaf(layout, wid)
		}
		if len(doomed) > 0 {
			s.normalizeLayout(layout)
		}
	}
}

func (s *MasterStackSystem) SetWindowsForApp(layout LayoutID, pid int32, desired []platform.WindowID) {
	var current []platform.WindowID
	for wid := range s.t.index[layout] {
		if wid.PID == pid {
			current = append(current, wid)
		}
	}
	add, remove := sortedMerge(desired, current)
	for _, wid := range remove {
		s.t.removeLeaf(layout, wid)
	}
	for _, wid := range add {
		s.AddWindowAfterSelection(layout, wid)
	}
	s.normalizeLayout(layout)
}

// OnWindowResized turns a manual resize along the root axis into a new
// master ratio.
func (s *MasterStackSystem) OnWindowResized(layout LayoutID, wid platform.WindowID, oldFrame, newFrame, screen platform.Rect, gaps Gaps) {
	leaf, ok := s.t.index[layout][wid]
	if !ok {
		return
	}
	pair := s.pairs[layout]
	if len(s.t.get(pair.stack).children) == 0 || len(s.t.get(pair.master).children) == 0 {
		return
	}
	area := gaps.TilingArea(screen)
	delta, extent := newFrame.Width-oldFrame.Width, area.Width
	if s.settings.rootOrientation() == Vertical {
		delta, extent = newFrame.Height-oldFrame.Height, area.Height
	}
	if delta == 0 || extent <= 0 {
		return
	}
	if s.t.parent(leaf) == pair.stack {
		delta = -delta
	}
	s.AdjustMasterRatio(delta / extent)
}

func (s *MasterStackSystem) MoveFocus(layout LayoutID, dir Direction) (platform.WindowID, bool) {
	pair, ok := s.pairs[layout]
	if !ok {
		return platform.WindowID{}, false
	}
	t := s.t
	leaf := t.selectedLeaf(layout)
	if leaf == noNode {
		return platform.WindowID{}, false
	}
	container := t.parent(leaf)
	if dir.Orientation() == s.settings.rootOrientation() {
		towardStack := dir.Forward() == s.settings.masterFirst()
		var other NodeID
		switch {
		case container == pair.master && towardStack:
			other = pair.stack
		case container == pair.stack && !towardStack:
			other = pair.master
		default:
			return platform.WindowID{}, false
		}
		wid, ok := s.focusedInContainer(other)
		if !ok {
			return platform.WindowID{}, false
		}
		t.selectWindow(layout, wid)
		return wid, true
	}
	c := t.get(container)
	idx := t.indexOf(container, leaf)
	next := idx - 1
	if dir.Forward() {
		next = idx + 1
	}
	if next < 0 || next >= len(c.children) {
		return platform.WindowID{}, false
	}
	target := c.children[next]
	t.selectNode(layout, target)
	return t.get(target).window, true
}

func (s *MasterStackSystem) AscendSelection(layout LayoutID) bool {
	t := s.t
	cur := t.cursor(layout)
	p := t.parent(cur)
	if p == noNode || p == t.root(layout) {
		return false
	}
	t.selectNode(layout, p)
	return true
}

func (s *MasterStackSystem) DescendSelection(layout LayoutID) bool {
	t := s.t
	cur := t.cursor(layout)
	n := t.get(cur)
	if n == nil || n.isWindow {
		return false
	}
	leaf := t.descend(cur)
	if ln := t.get(leaf); ln == nil || !ln.isWindow {
		return false
	}
	t.selectNode(layout, leaf)
	return true
}

// MoveSelection reads directions relative to the master/stack axis: toward
// master promotes, toward stack swaps the two focused windows, and moves
// along the container axis reorder within the container.
func (s *MasterStackSystem) MoveSelection(layout LayoutID, dir Direction) bool {
	pair, ok := s.pairs[layout]
	if !ok {
		return false
	}
	container := s.focusedContainer(layout)
	if container == noNode {
		return false
	}
	var towardMaster, towardStack bool
	switch s.settings.Side {
	case MasterLeft:
		towardMaster, towardStack = dir == DirLeft, dir == DirRight
	case MasterRight:
		towardMaster, towardStack = dir == DirRight, dir == DirLeft
	case MasterTop:
		towardMaster, towardStack = dir == DirUp, dir == DirDown
	case MasterBottom:
		towardMaster, towardStack = dir == DirDown, dir == DirUp
	}
	if towardMaster && container == pair.stack {
		s.PromoteToMaster(layout)
		return true
	}
	if towardStack && container == pair.master {
		_, okM := s.focusedInContainer(pair.master)
		_, okS := s.focusedInContainer(pair.stack)
		if okM && okS {
			s.SwapMasterStack(layout)
			return true
		}
		return false
	}
	if dir.Orientation() == s.settings.rootOrientation() {
		return false
	}
	t := s.t
	leaf := t.selectedLeaf(layout)
	c := t.get(container)
	idx := t.indexOf(container, leaf)
	target := idx - 1
	if dir.Forward() {
		target = idx + 1
	}
	if idx < 0 || target < 0 || target >= len(c.children) {
		return false
	}
	c.children[idx], c.children[target] = c.children[target], c.children[idx]
	t.selectNode(layout, leaf)
	return true
}

func (s *MasterStackSystem) JoinSelection(LayoutID, Direction) bool { return false }

func (s *MasterStackSystem) ToggleStack(layout LayoutID) []platform.WindowID {
	s.normalizeLayout(layout)
	return nil
}

func (s *MasterStackSystem) ToggleOrientation(layout LayoutID) { s.normalizeLayout(layout) }

func (s *MasterStackSystem) UnjoinSelection(layout LayoutID) { s.normalizeLayout(layout) }

// ResizeSelectionBy grows whichever container holds the selection.
func (s *MasterStackSystem) ResizeSelectionBy(layout LayoutID, amount float64) {
	if s.focusedContainer(layout) == s.pairs[layout].stack {
		amount = -amount
	}
	s.AdjustMasterRatio(amount)
}

func (s *MasterStackSystem) ToggleFullscreen(layout LayoutID) []platform.WindowID {
	return s.t.toggleFullscreen(layout, false)
}

func (s *MasterStackSystem) ToggleFullscreenWithinGaps(layout LayoutID) []platform.WindowID {
	return s.t.toggleFullscreen(layout, true)
}

func (s *MasterStackSystem) HasAnyFullscreen(layout LayoutID) bool {
	return s.t.anyFullscreen(layout)
}

func (s *MasterStackSystem) SwapWindows(layout LayoutID, a, b platform.WindowID) bool {
	return s.t.swapWindows(layout, a, b)
}

func (s *MasterStackSystem) SelectionPath(layout LayoutID) []string {
	return s.t.selectionPath(layout)
}

// AdjustMasterRatio shifts the master share for every layout.
func (s *MasterStackSystem) AdjustMasterRatio(delta float64) {
	next := clamp(s.settings.Ratio+delta, 0.05, 0.95)
	if next == s.settings.Ratio {
		return
	}
	s.settings.Ratio = next
	for layout := range s.pairs {
		s.normalizeLayout(layout)
	}
}

// AdjustMasterCount changes how many windows the master holds, never below one.
func (s *MasterStackSystem) AdjustMasterCount(delta int) {
	next := max(s.settings.Count+delta, 1)
	if next == s.settings.Count {
		return
	}
	s.settings.Count = next
	for layout := range s.pairs {
		s.normalizeLayout(layout)
	}
}

// PromoteToMaster moves the selected window to the front of the master.
func (s *MasterStackSystem) PromoteToMaster(layout LayoutID) {
	pair, ok := s.pairs[layout]
	if !ok {
		return
	}
	t := s.t
	leaf := t.selectedLeaf(layout)
	if leaf == noNode {
		return
	}
	if m := t.get(pair.master); len(m.children) > 0 && m.children[0] == leaf {
		return
	}
	t.detach(leaf)
	t.insertChild(pair.master, 0, leaf)
	t.selectNode(layout, leaf)
	s.normalizeLayout(layout)
}

// SwapMasterStack exchanges the focused master window with the focused
// stack window. Selection stays on the same window.
func (s *MasterStackSystem) SwapMasterStack(layout LayoutID) {
	pair, ok := s.pairs[layout]
	if !ok {
		return
	}
	mw, okM := s.focusedInContainer(pair.master)
	sw, okS := s.focusedInContainer(pair.stack)
	if !okM || !okS {
		return
	}
	selected, hasSel := s.t.selectedWindow(layout)
	s.t.swapWindows(layout, mw, sw)
	if hasSel {
		s.t.selectWindow(layout, selected)
	}
}

// enforceMasterCount keeps min(count, total) windows in the master. Overflow
// moves to the front of the stack, underflow is drawn from the stack head.
func (s *MasterStackSystem) enforceMasterCount(layout LayoutID) {
	pair, ok := s.pairs[layout]
	if !ok {
		return
	}
	t := s.t
	selected, hasSel := t.selectedWindow(layout)
	total := len(t.get(pair.master).children) + len(t.get(pair.stack).children)
	want := min(s.settings.Count, total)
	for len(t.get(pair.master).children) > want {
		m := t.get(pair.master)
		last := m.children[len(m.children)-1]
		t.detach(last)
		t.insertChild(pair.stack, 0, last)
	}
	for len(t.get(pair.master).children) < want {
		head := t.get(pair.stack).children[0]
		t.detach(head)
		t.insertChild(pair.master, -1, head)
	}
	if hasSel {
		t.selectWindow(layout, selected)
	}
}

// normalizeLayout restores the two-container shape for the current settings:
// orientation, order, ratio, master count and equal shares inside each
// container.
func (s *MasterStackSystem) normalizeLayout(layout LayoutID) {
	pair, ok := s.pairs[layout]
	if !ok {
		return
	}
	t := s.t
	s.enforceMasterCount(layout)

	root := t.get(t.root(layout))
	root.orientation = s.settings.rootOrientation()
	if s.settings.masterFirst() {
		root.children = []NodeID{pair.master, pair.stack}
	} else {
		root.children = []NodeID{pair.stack, pair.master}
	}
	t.get(pair.master).size = s.settings.Ratio
	t.get(pair.stack).size = 1 - s.settings.Ratio
	for _, c := range []NodeID{pair.master, pair.stack} {
		cn := t.get(c)
		cn.orientation = s.settings.rootOrientation().Flip()
		cn.stacked = false
		for _, leaf := range cn.children {
			t.get(leaf).size = 1 / float64(len(cn.children))
		}
	}
	t.fixCursor(layout)
	if c := t.cursor(layout); c == t.root(layout) {
		t.selectNode(layout, pair.master)
	}
	if leaf := t.descend(t.cursor(layout)); t.get(leaf) != nil && t.get(leaf).isWindow {
		t.selectNode(layout, leaf)
	}
}
