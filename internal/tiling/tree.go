package tiling

import (
	"sort"

	"github.com/1broseidon/spacetile/internal/platform"
)

// NodeID is a handle into the node arena. Handles stay valid until the node
// is released; released slots are recycled through the free list.
type NodeID int32

const noNode NodeID = -1

const minShare = 0.05

type node struct {
	live        bool
	layout      LayoutID
	parent      NodeID
	children    []NodeID
	isWindow    bool
	window      platform.WindowID
	orientation Orientation
	size        float64
	selected    NodeID
	stacked     bool
	pinned      bool
	fullscreen  bool
	fsGaps      bool
}

type arena struct {
	nodes []node
	free  []NodeID
}

func (a *arena) alloc(n node) NodeID {
	n.live = true
	if k := len(a.free); k > 0 {
		id := a.free[k-1]
		a.free = a.free[:k-1]
		a.nodes[id] = n
		return id
	}
	a.nodes = append(a.nodes, n)
	return NodeID(len(a.nodes) - 1)
}

// get returns the node for id, or nil when the handle is stale. The pointer
// must not be held across alloc.
func (a *arena) get(id NodeID) *node {
	if id < 0 || int(id) >= len(a.nodes) {
		return nil
	}
	n := &a.nodes[id]
	if !n.live {
		return nil
	}
	return n
}

func (a *arena) release(id NodeID) {
	n := a.get(id)
	if n == nil {
		return
	}
	*n = node{}
	a.free = append(a.free, id)
}

type layoutRoot struct {
	root   NodeID
	cursor NodeID
}

// tree is the arena-backed split tree shared by the traditional/BSP system
// and the master-stack system. Every layout instance owns its own subtree.
type tree struct {
	arena
	nextLayout LayoutID
	layouts    map[LayoutID]*layoutRoot
	index      map[LayoutID]map[platform.WindowID]NodeID
}

func newTree() *tree {
	return &tree{
		nextLayout: 1,
		layouts:    make(map[LayoutID]*layoutRoot),
		index:      make(map[LayoutID]map[platform.WindowID]NodeID),
	}
}

func (t *tree) createLayout(orientation Orientation) LayoutID {
	id := t.nextLayout
	t.nextLayout++
	root := t.alloc(node{layout: id, parent: noNode, orientation: orientation, size: 1, selected: noNode, pinned: true})
	t.layouts[id] = &layoutRoot{root: root, cursor: root}
	t.index[id] = make(map[platform.WindowID]NodeID)
	return id
}

func (t *tree) removeLayout(layout LayoutID) {
	lr, ok := t.layouts[layout]
	if !ok {
		return
	}
	t.releaseSubtree(lr.root)
	delete(t.layouts, layout)
	delete(t.index, layout)
}

func (t *tree) releaseSubtree(id NodeID) {
	n := t.get(id)
	if n == nil {
		return
	}
	children := append([]NodeID(nil), n.children...)
	for _, c := range children {
		t.releaseSubtree(c)
	}
	t.release(id)
}

func (t *tree) cloneLayout(src LayoutID) LayoutID {
	lr, ok := t.layouts[src]
	if !ok {
		return 0
	}
	rootNode := t.get(lr.root)
	id := t.createLayout(rootNode.orientation)
	dst := t.layouts[id]
	mapping := map[NodeID]NodeID{lr.root: dst.root}
	t.copyInto(lr.root, dst.root, id, mapping)
	if c, ok := mapping[lr.cursor]; ok {
		dst.cursor = c
	}
	return id
}

func (t *tree) copyInto(src, dst NodeID, layout LayoutID, mapping map[NodeID]NodeID) {
	s := *t.get(src)
	d := t.get(dst)
	d.orientation = s.orientation
	d.stacked = s.stacked
	d.pinned = s.pinned
	d.size = s.size
	for _, c := range s.children {
		cn := *t.get(c)
		clone := node{
			layout:      layout,
			parent:      dst,
			isWindow:    cn.isWindow,
			window:      cn.window,
			orientation: cn.orientation,
			size:        cn.size,
			selected:    noNode,
			stacked:     cn.stacked,
			pinned:      cn.pinned,
			fullscreen:  cn.fullscreen,
			fsGaps:      cn.fsGaps,
		}
		nid := t.alloc(clone)
		mapping[c] = nid
		t.get(dst).children = append(t.get(dst).children, nid)
		if cn.isWindow {
			t.index[layout][cn.window] = nid
		}
		t.copyInto(c, nid, layout, mapping)
	}
	if sel, ok := mapping[s.selected]; ok {
		t.get(dst).selected = sel
	}
}

func (t *tree) root(layout LayoutID) NodeID {
	if lr, ok := t.layouts[layout]; ok {
		return lr.root
	}
	return noNode
}

func (t *tree) parent(id NodeID) NodeID {
	if n := t.get(id); n != nil {
		return n.parent
	}
	return noNode
}

func (t *tree) indexOf(parent, child NodeID) int {
	p := t.get(parent)
	if p == nil {
		return -1
	}
	for i, c := range p.children {
		if c == child {
			return i
		}
	}
	return -1
}

func (t *tree) newLeaf(layout LayoutID, wid platform.WindowID) NodeID {
	id := t.alloc(node{layout: layout, parent: noNode, isWindow: true, window: wid, size: 1, selected: noNode})
	t.index[layout][wid] = id
	return id
}

func (t *tree) newContainer(layout LayoutID, o Orientation) NodeID {
	return t.alloc(node{layout: layout, parent: noNode, orientation: o, size: 1, selected: noNode})
}

// insertChild places child at position at. The new child receives an equal
// share and the existing siblings are scaled to make room.
func (t *tree) insertChild(parent NodeID, at int, child NodeID) {
	p := t.get(parent)
	n := len(p.children) + 1
	share := 1.0 / float64(n)
	for _, c := range p.children {
		t.get(c).size *= 1 - share
	}
	if at < 0 || at > len(p.children) {
		at = len(p.children)
	}
	p.children = append(p.children, noNode)
	copy(p.children[at+1:], p.children[at:])
	p.children[at] = child
	cn := t.get(child)
	cn.parent = parent
	cn.size = share
	if n == 1 {
		cn.size = 1
	}
	if p.selected == noNode {
		p.selected = child
	}
}

// detach unlinks id from its parent and renormalizes the remaining siblings.
// It returns the former parent and index.
func (t *tree) detach(id NodeID) (NodeID, int) {
	n := t.get(id)
	if n == nil || n.parent == noNode {
		return noNode, -1
	}
	parent := n.parent
	idx := t.indexOf(parent, id)
	p := t.get(parent)
	p.children = append(p.children[:idx], p.children[idx+1:]...)
	n.parent = noNode
	t.normalize(parent)
	if p.selected == id {
		p.selected = noNode
		if len(p.children) > 0 {
			p.selected = p.children[min(idx, len(p.children)-1)]
		}
	}
	return parent, idx
}

func (t *tree) normalize(parent NodeID) {
	p := t.get(parent)
	if p == nil || len(p.children) == 0 {
		return
	}
	total := 0.0
	for _, c := range p.children {
		total += t.get(c).size
	}
	if total <= 0 {
		for _, c := range p.children {
			t.get(c).size = 1 / float64(len(p.children))
		}
		return
	}
	for _, c := range p.children {
		t.get(c).size /= total
	}
}

// replaceChild swaps old for repl in old's parent, keeping position and share.
func (t *tree) replaceChild(old, repl NodeID) {
	o := t.get(old)
	parent := o.parent
	if parent == noNode {
		return
	}
	idx := t.indexOf(parent, old)
	p := t.get(parent)
	p.children[idx] = repl
	if p.selected == old {
		p.selected = repl
	}
	r := t.get(repl)
	r.parent = parent
	r.size = o.size
	o.parent = noNode
}

// collapse removes empty containers and folds single-child containers into
// their parent, walking upward from id. Pinned nodes are never touched.
func (t *tree) collapse(layout LayoutID, id NodeID) {
	lr := t.layouts[layout]
	for id != noNode {
		n := t.get(id)
		if n == nil || n.isWindow || n.pinned || id == lr.root {
			return
		}
		switch len(n.children) {
		case 0:
			parent, _ := t.detach(id)
			t.release(id)
			if lr.cursor == id {
				lr.cursor = parent
			}
			id = parent
		case 1:
			child := n.children[0]
			t.replaceChild(id, child)
			t.release(id)
			if lr.cursor == id {
				lr.cursor = child
			}
			return
		default:
			return
		}
	}
}

func (t *tree) leaves(id NodeID) []NodeID {
	n := t.get(id)
	if n == nil {
		return nil
	}
	if n.isWindow {
		return []NodeID{id}
	}
	var out []NodeID
	for _, c := range n.children {
		out = append(out, t.leaves(c)...)
	}
	return out
}

func (t *tree) windowsUnder(id NodeID) []platform.WindowID {
	ls := t.leaves(id)
	out := make([]platform.WindowID, 0, len(ls))
	for _, l := range ls {
		out = append(out, t.get(l).window)
	}
	return out
}

func (t *tree) hasWindows(id NodeID) bool {
	n := t.get(id)
	if n == nil {
		return false
	}
	if n.isWindow {
		return true
	}
	for _, c := range n.children {
		if t.hasWindows(c) {
			return true
		}
	}
	return false
}

// descend follows selected-child pointers down to a leaf.
func (t *tree) descend(id NodeID) NodeID {
	for {
		n := t.get(id)
		if n == nil || n.isWindow {
			return id
		}
		if len(n.children) == 0 {
			return id
		}
		next := n.selected
		if t.get(next) == nil {
			next = n.children[0]
		}
		id = next
	}
}

// selectNode moves the cursor to id and records the path in every ancestor.
func (t *tree) selectNode(layout LayoutID, id NodeID) {
	lr, ok := t.layouts[layout]
	if !ok || t.get(id) == nil {
		return
	}
	lr.cursor = id
	child := id
	for p := t.parent(id); p != noNode; p = t.parent(p) {
		t.get(p).selected = child
		child = p
	}
}

func (t *tree) fixCursor(layout LayoutID) {
	lr, ok := t.layouts[layout]
	if !ok {
		return
	}
	if n := t.get(lr.cursor); n != nil && n.layout == layout {
		return
	}
	lr.cursor = t.descend(lr.root)
}

func (t *tree) cursor(layout LayoutID) NodeID {
	t.fixCursor(layout)
	if lr, ok := t.layouts[layout]; ok {
		return lr.cursor
	}
	return noNode
}

func (t *tree) selectedLeaf(layout LayoutID) NodeID {
	c := t.cursor(layout)
	leaf := t.descend(c)
	if n := t.get(leaf); n != nil && n.isWindow {
		return leaf
	}
	return noNode
}

func (t *tree) selectedWindow(layout LayoutID) (platform.WindowID, bool) {
	leaf := t.selectedLeaf(layout)
	if leaf == noNode {
		return platform.WindowID{}, false
	}
	return t.get(leaf).window, true
}

func (t *tree) selectWindow(layout LayoutID, wid platform.WindowID) bool {
	leaf, ok := t.index[layout][wid]
	if !ok {
		return false
	}
	t.selectNode(layout, leaf)
	return true
}

func (t *tree) layoutsForWindow(wid platform.WindowID) []LayoutID {
	var out []LayoutID
	for layout, idx := range t.index {
		if _, ok := idx[wid]; ok {
			out = append(out, layout)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// removeLeaf detaches a window leaf from one layout, moves the cursor to a
// nearby window, and collapses containers left degenerate.
func (t *tree) removeLeaf(layout LayoutID, wid platform.WindowID) {
	leaf, ok := t.index[layout][wid]
	if !ok {
		return
	}
	lr := t.layouts[layout]
	wasCursor := lr.cursor == leaf || t.descend(lr.cursor) == leaf
	parent, idx := t.detach(leaf)
	t.release(leaf)
	delete(t.index[layout], wid)
	if wasCursor && parent != noNode {
		p := t.get(parent)
		if len(p.children) > 0 {
			t.selectNode(layout, t.descend(p.children[min(idx, len(p.children)-1)]))
		} else {
			lr.cursor = parent
		}
	}
	t.collapse(layout, parent)
	t.fixCursor(layout)
	if n := t.get(lr.cursor); n != nil && !n.isWindow {
		if leaf := t.descend(lr.cursor); t.get(leaf) != nil && t.get(leaf).isWindow {
			t.selectNode(layout, leaf)
		}
	}
}

func (t *tree) visibleWindows(id NodeID) []platform.WindowID {
	n := t.get(id)
	if n == nil {
		return nil
	}
	if n.isWindow {
		return []platform.WindowID{n.window}
	}
	if n.stacked && len(n.children) > 0 {
		sel := n.selected
		if t.get(sel) == nil {
			sel = n.children[0]
		}
		return t.visibleWindows(sel)
	}
	var out []platform.WindowID
	for _, c := range n.children {
		out = append(out, t.visibleWindows(c)...)
	}
	return out
}

func (t *tree) anyFullscreen(layout LayoutID) bool {
	for _, leaf := range t.index[layout] {
		if n := t.get(leaf); n != nil && (n.fullscreen || n.fsGaps) {
			return true
		}
	}
	return false
}
