package tiling

import (
	"fmt"

	"github.com/1broseidon/spacetile/internal/platform"
)

// TraditionalSystem is the i3-style split tree. With bsp set, new windows
// split the selected leaf instead of joining its container.
type TraditionalSystem struct {
	t   *tree
	bsp bool
}

var _ LayoutSystem = (*TraditionalSystem)(nil)

func NewTraditionalSystem(bsp bool) *TraditionalSystem {
	return &TraditionalSystem{t: newTree(), bsp: bsp}
}

func (s *TraditionalSystem) Mode() LayoutMode {
	if s.bsp {
		return ModeBSP
	}
	return ModeTraditional
}

func (s *TraditionalSystem) CreateLayout() LayoutID {
	return s.t.createLayout(Horizontal)
}

func (s *TraditionalSystem) CloneLayout(layout LayoutID) LayoutID {
	return s.t.cloneLayout(layout)
}

func (s *TraditionalSystem) RemoveLayout(layout LayoutID) {
	s.t.removeLayout(layout)
}

func (s *TraditionalSystem) CalculateLayout(layout LayoutID, screen platform.Rect, gaps Gaps) []WindowFrame {
	return s.t.calculate(layout, screen, gaps)
}

func (s *TraditionalSystem) SelectedWindow(layout LayoutID) (platform.WindowID, bool) {
	return s.t.selectedWindow(layout)
}

func (s *TraditionalSystem) SelectWindow(layout LayoutID, wid platform.WindowID) bool {
	return s.t.selectWindow(layout, wid)
}

func (s *TraditionalSystem) VisibleWindows(layout LayoutID) []platform.WindowID {
	return s.t.visibleWindows(s.t.root(layout))
}

func (s *TraditionalSystem) Windows(layout LayoutID) []platform.WindowID {
	return s.t.windowsUnder(s.t.root(layout))
}

func (s *TraditionalSystem) ContainsWindow(layout LayoutID, wid platform.WindowID) bool {
	_, ok := s.t.index[layout][wid]
	return ok
}

func (s *TraditionalSystem) AddWindowAfterSelection(layout LayoutID, wid platform.WindowID) {
	t := s.t
	if _, ok := t.layouts[layout]; !ok {
		return
	}
	if _, exists := t.index[layout][wid]; exists {
		t.selectWindow(layout, wid)
		return
	}
	root := t.root(layout)
	cursor := t.cursor(layout)
	leaf := t.newLeaf(layout, wid)

	cn := t.get(cursor)
	switch {
	case cn == nil || cursor == root || !cn.isWindow:
		target := cursor
		if cn == nil {
			target = root
		}
		t.insertChild(target, -1, leaf)
	case s.bsp && len(t.get(t.parent(cursor)).children) > 1:
		parent := t.parent(cursor)
		split := t.newContainer(layout, t.get(parent).orientation.Flip())
		t.replaceChild(cursor, split)
		t.insertChild(split, -1, cursor)
		t.insertChild(split, -1, leaf)
	default:
		parent := t.parent(cursor)
		t.insertChild(parent, t.indexOf(parent, cursor)+1, leaf)
	}
	t.selectNode(layout, leaf)
}

func (s *TraditionalSystem) RemoveWindow(wid platform.WindowID) {
	for _, layout := range s.t.layoutsForWindow(wid) {
		s.t.removeLeaf(layout, wid)
	}
}

func (s *TraditionalSystem) RemoveWindowsForApp(pid int32) {
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
	}
}

func (s *TraditionalSystem) SetWindowsForApp(layout LayoutID, pid int32, desired []platform.WindowID) {
	var current []platform.WindowID
	for wid, leaf := range s.t.index[layout] {
		if wid.PID != pid {
			continue
		}
		if n := s.t.get(leaf); n != nil && (n.fullscreen || n.fsGaps) && !containsWindow(desired, wid) {
			// keep fullscreen windows until they leave fullscreen
			continue
		}
		current = append(current, wid)
	}
	add, remove := sortedMerge(desired, current)
	for _, wid := range remove {
		s.t.removeLeaf(layout, wid)
	}
	for _, wid := range add {
		s.AddWindowAfterSelection(layout, wid)
	}
}

func (s *TraditionalSystem) OnWindowResized(layout LayoutID, wid platform.WindowID, oldFrame, newFrame, screen platform.Rect, gaps Gaps) {
	t := s.t
	leaf, ok := t.index[layout][wid]
	if !ok {
		return
	}
	rects := t.containerRects(layout, screen, gaps)
	for _, o := range []Orientation{Horizontal, Vertical} {
		delta := newFrame.Width - oldFrame.Width
		if o == Vertical {
			delta = newFrame.Height - oldFrame.Height
		}
		if delta == 0 {
			continue
		}
		child := leaf
		for p := t.parent(child); p != noNode; child, p = p, t.parent(p) {
			pn := t.get(p)
			if pn.orientation != o || pn.stacked || len(pn.children) < 2 {
				continue
			}
			extent := rects[p].Width
			if o == Vertical {
				extent = rects[p].Height
			}
			if extent > 0 {
				t.resizeShare(child, delta/extent)
			}
			break
		}
	}
}

func (s *TraditionalSystem) MoveFocus(layout LayoutID, dir Direction) (platform.WindowID, bool) {
	t := s.t
	cur := t.cursor(layout)
	for n := cur; n != noNode; n = t.parent(n) {
		p := t.parent(n)
		if p == noNode {
			break
		}
		pn := t.get(p)
		if pn.orientation != dir.Orientation() {
			continue
		}
		idx := t.indexOf(p, n)
		next := idx - 1
		if dir.Forward() {
			next = idx + 1
		}
		for next >= 0 && next < len(pn.children) && !t.hasWindows(pn.children[next]) {
			if dir.Forward() {
				next++
			} else {
				next--
			}
		}
		if next < 0 || next >= len(pn.children) {
			continue
		}
		target := t.descend(pn.children[next])
		tn := t.get(target)
		if tn == nil || !tn.isWindow {
			continue
		}
		t.selectNode(layout, target)
		return tn.window, true
	}
	return platform.WindowID{}, false
}

func (s *TraditionalSystem) AscendSelection(layout LayoutID) bool {
	t := s.t
	cur := t.cursor(layout)
	p := t.parent(cur)
	if p == noNode {
		return false
	}
	t.selectNode(layout, p)
	return true
}

func (s *TraditionalSystem) DescendSelection(layout LayoutID) bool {
	t := s.t
	cur := t.cursor(layout)
	n := t.get(cur)
	if n == nil || n.isWindow || len(n.children) == 0 {
		return false
	}
	next := n.selected
	if t.get(next) == nil {
		next = n.children[0]
	}
	t.selectNode(layout, next)
	return true
}

func (s *TraditionalSystem) MoveSelection(layout LayoutID, dir Direction) bool {
	t := s.t
	root := t.root(layout)
	n := t.cursor(layout)
	if n == root || t.get(n) == nil {
		return false
	}
	parent := t.parent(n)

	// nearest ancestor laid out along the movement axis, and its child on
	// the path down to n
	child, anc := n, parent
	for anc != noNode && t.get(anc).orientation != dir.Orientation() {
		child, anc = anc, t.parent(anc)
	}

	if anc == noNode {
		return s.reorientRoot(layout, n, dir)
	}

	if child == n {
		an := t.get(anc)
		idx := t.indexOf(anc, n)
		target := idx - 1
		if dir.Forward() {
			target = idx + 1
		}
		if target >= 0 && target < len(an.children) {
			an.children[idx], an.children[target] = an.children[target], an.children[idx]
			t.selectNode(layout, n)
			return true
		}
		// at the edge of anc: hop out to the next matching ancestor
		outerChild, outer := anc, t.parent(anc)
		for outer != noNode && t.get(outer).orientation != dir.Orientation() {
			outerChild, outer = outer, t.parent(outer)
		}
		if outer == noNode {
			if anc == root {
				return false
			}
			return s.reorientRoot(layout, n, dir)
		}
		t.detach(n)
		at := t.indexOf(outer, outerChild)
		if dir.Forward() {
			at++
		}
		t.insertChild(outer, at, n)
		t.collapse(layout, anc)
		t.selectNode(layout, n)
		return true
	}

	t.detach(n)
	at := t.indexOf(anc, child)
	if dir.Forward() {
		at++
	}
	t.insertChild(anc, at, n)
	t.collapse(layout, parent)
	t.selectNode(layout, n)
	return true
}

// reorientRoot handles a move along an axis no ancestor is split on: the
// existing contents are wrapped and n becomes their sibling on the new axis.
func (s *TraditionalSystem) reorientRoot(layout LayoutID, n NodeID, dir Direction) bool {
	t := s.t
	root := t.root(layout)
	if len(t.leaves(root)) < 2 {
		return false
	}
	oldParent, _ := t.detach(n)
	wrap := t.newContainer(layout, t.get(root).orientation)
	rn := t.get(root)
	children := append([]NodeID(nil), rn.children...)
	rn.children = nil
	rn.selected = noNode
	for _, c := range children {
		wn := t.get(wrap)
		wn.children = append(wn.children, c)
		t.get(c).parent = wrap
	}
	t.get(wrap).selected = t.firstOr(children)
	rn = t.get(root)
	rn.orientation = dir.Orientation()
	if dir.Forward() {
		t.insertChild(root, -1, wrap)
		t.insertChild(root, -1, n)
	} else {
		t.insertChild(root, -1, n)
		t.insertChild(root, -1, wrap)
	}
	if oldParent != root {
		t.collapse(layout, oldParent)
	}
	t.collapse(layout, wrap)
	t.selectNode(layout, n)
	return true
}

func (t *tree) firstOr(ids []NodeID) NodeID {
	if len(ids) == 0 {
		return noNode
	}
	return ids[0]
}

func (s *TraditionalSystem) JoinSelection(layout LayoutID, dir Direction) bool {
	t := s.t
	n := t.cursor(layout)
	parent := t.parent(n)
	if parent == noNode || t.get(parent).orientation != dir.Orientation() {
		return false
	}
	idx := t.indexOf(parent, n)
	target := idx - 1
	if dir.Forward() {
		target = idx + 1
	}
	pn := t.get(parent)
	if target < 0 || target >= len(pn.children) {
		return false
	}
	sib := pn.children[target]
	if t.get(sib).isWindow {
		group := t.newContainer(layout, t.get(parent).orientation.Flip())
		t.replaceChild(sib, group)
		t.detach(n)
		first, second := sib, n
		if !dir.Forward() {
			first, second = n, sib
		}
		t.insertChild(group, -1, first)
		t.insertChild(group, -1, second)
	} else {
		t.detach(n)
		at := -1
		if dir.Forward() {
			at = 0
		}
		t.insertChild(sib, at, n)
	}
	t.collapse(layout, parent)
	t.selectNode(layout, n)
	return true
}

func (s *TraditionalSystem) ToggleStack(layout LayoutID) []platform.WindowID {
	t := s.t
	container := t.parent(t.cursor(layout))
	if cn := t.get(t.cursor(layout)); cn != nil && !cn.isWindow {
		container = t.cursor(layout)
	}
	c := t.get(container)
	if c == nil {
		return nil
	}
	c.stacked = !c.stacked
	return t.windowsUnder(container)
}

func (s *TraditionalSystem) ToggleOrientation(layout LayoutID) {
	t := s.t
	container := t.parent(t.cursor(layout))
	if cn := t.get(t.cursor(layout)); cn != nil && !cn.isWindow {
		container = t.cursor(layout)
	}
	if c := t.get(container); c != nil {
		c.orientation = c.orientation.Flip()
	}
}

func (s *TraditionalSystem) UnjoinSelection(layout LayoutID) {
	t := s.t
	n := t.cursor(layout)
	group := t.parent(n)
	if group == noNode || group == t.root(layout) || t.get(group).pinned {
		return
	}
	outer := t.parent(group)
	at := t.indexOf(outer, group)
	groupShare := t.get(group).size
	members := append([]NodeID(nil), t.get(group).children...)
	shares := t.shares(members)
	t.detach(group)
	for i, m := range members {
		t.get(m).parent = noNode
		t.insertChild(outer, at+i, m)
		t.get(m).size = shares[i] * groupShare
	}
	t.get(group).children = nil
	t.release(group)
	t.normalize(outer)
	t.selectNode(layout, n)
}

func (s *TraditionalSystem) ResizeSelectionBy(layout LayoutID, amount float64) {
	t := s.t
	n := t.cursor(layout)
	for n != noNode {
		p := t.parent(n)
		if p == noNode {
			return
		}
		if pn := t.get(p); len(pn.children) > 1 && !pn.stacked {
			t.resizeShare(n, amount)
			return
		}
		n = p
	}
}

// resizeShare grows n's share of its parent by amount and scales siblings
// to keep the total at one.
func (t *tree) resizeShare(n NodeID, amount float64) {
	p := t.get(t.parent(n))
	if p == nil || len(p.children) < 2 {
		return
	}
	node := t.get(n)
	maxShare := 1 - minShare*float64(len(p.children)-1)
	next := clamp(node.size+amount, minShare, maxShare)
	rest := 1 - node.size
	newRest := 1 - next
	for _, c := range p.children {
		if c == n {
			continue
		}
		cn := t.get(c)
		if rest > 0 {
			cn.size = cn.size * newRest / rest
		} else {
			cn.size = newRest / float64(len(p.children)-1)
		}
	}
	node.size = next
}

func (s *TraditionalSystem) ToggleFullscreen(layout LayoutID) []platform.WindowID {
	return s.t.toggleFullscreen(layout, false)
}

func (s *TraditionalSystem) ToggleFullscreenWithinGaps(layout LayoutID) []platform.WindowID {
	return s.t.toggleFullscreen(layout, true)
}

func (t *tree) toggleFullscreen(layout LayoutID, withinGaps bool) []platform.WindowID {
	leaf := t.selectedLeaf(layout)
	n := t.get(leaf)
	if n == nil {
		return nil
	}
	if withinGaps {
		n.fsGaps = !n.fsGaps
		n.fullscreen = false
	} else {
		n.fullscreen = !n.fullscreen
		n.fsGaps = false
	}
	return []platform.WindowID{n.window}
}

func (s *TraditionalSystem) HasAnyFullscreen(layout LayoutID) bool {
	return s.t.anyFullscreen(layout)
}

func (s *TraditionalSystem) SwapWindows(layout LayoutID, a, b platform.WindowID) bool {
	return s.t.swapWindows(layout, a, b)
}

func (t *tree) swapWindows(layout LayoutID, a, b platform.WindowID) bool {
	la, okA := t.index[layout][a]
	lb, okB := t.index[layout][b]
	if !okA || !okB || a == b {
		return false
	}
	na, nb := t.get(la), t.get(lb)
	na.window, nb.window = nb.window, na.window
	na.fullscreen, nb.fullscreen = nb.fullscreen, na.fullscreen
	na.fsGaps, nb.fsGaps = nb.fsGaps, na.fsGaps
	t.index[layout][a] = lb
	t.index[layout][b] = la
	return true
}

func (s *TraditionalSystem) SelectionPath(layout LayoutID) []string {
	return s.t.selectionPath(layout)
}

func (t *tree) selectionPath(layout LayoutID) []string {
	var out []string
	id := t.root(layout)
	for {
		n := t.get(id)
		if n == nil {
			return out
		}
		if n.isWindow {
			return append(out, fmt.Sprintf("window(%s)", n.window))
		}
		kind := n.orientation.String()
		if n.stacked {
			kind = "stacked-" + kind
		}
		if len(n.children) == 0 {
			return append(out, fmt.Sprintf("%s[]", kind))
		}
		next := n.selected
		if t.get(next) == nil {
			next = n.children[0]
		}
		out = append(out, fmt.Sprintf("%s[%d/%d]", kind, t.indexOf(id, next), len(n.children)))
		id = next
	}
}
