package tiling

import (
	"github.com/1broseidon/spacetile/internal/platform"
)

// calculate computes frames for every window in a tree layout. Containers
// without windows are skipped so their siblings take the space.
func (t *tree) calculate(layout LayoutID, screen platform.Rect, gaps Gaps) []WindowFrame {
	root := t.root(layout)
	if root == noNode {
		return nil
	}
	tiling := gaps.TilingArea(screen)
	var out []WindowFrame
	t.layoutNode(root, tiling, gaps, &out)
	for i := range out {
		leaf, ok := t.index[layout][out[i].Window]
		if !ok {
			continue
		}
		n := t.get(leaf)
		switch {
		case n.fullscreen:
			out[i].Rect = screen
		case n.fsGaps:
			out[i].Rect = tiling
		default:
			out[i].Rect = out[i].Rect.Round()
		}
	}
	return out
}

func (t *tree) layoutNode(id NodeID, rect platform.Rect, gaps Gaps, out *[]WindowFrame) {
	n := t.get(id)
	if n == nil {
		return
	}
	if n.isWindow {
		*out = append(*out, WindowFrame{Window: n.window, Rect: rect})
		return
	}
	visible := make([]NodeID, 0, len(n.children))
	for _, c := range n.children {
		if t.hasWindows(c) {
			visible = append(visible, c)
		}
	}
	if len(visible) == 0 {
		return
	}
	if n.stacked {
		// every member of a stack shares the container rect; only the
		// selected one is raised
		for _, c := range visible {
			t.layoutNode(c, rect, gaps, out)
		}
		return
	}
	for i, r := range splitRect(rect, n.orientation, t.shares(visible), gaps) {
		t.layoutNode(visible[i], r, gaps, out)
	}
}

func (t *tree) shares(ids []NodeID) []float64 {
	out := make([]float64, len(ids))
	for i, id := range ids {
		out[i] = t.get(id).size
	}
	return out
}

// splitRect divides rect along o in proportion to shares with the inner gap
// between neighbours.
func splitRect(rect platform.Rect, o Orientation, shares []float64, gaps Gaps) []platform.Rect {
	if len(shares) == 0 {
		return nil
	}
	total := 0.0
	for _, s := range shares {
		total += s
	}
	if total <= 0 {
		total = float64(len(shares))
		for i := range shares {
			shares[i] = 1
		}
	}
	gap := gaps.InnerX
	extent := rect.Width
	if o == Vertical {
		gap = gaps.InnerY
		extent = rect.Height
	}
	available := extent - gap*float64(len(shares)-1)
	if available < 0 {
		available = 0
	}
	out := make([]platform.Rect, len(shares))
	cursor := 0.0
	for i, s := range shares {
		length := available * s / total
		r := rect
		if o == Horizontal {
			r.X = rect.X + cursor
			r.Width = length
		} else {
			r.Y = rect.Y + cursor
			r.Height = length
		}
		out[i] = r
		cursor += length + gap
	}
	return out
}

// containerRects maps every container and leaf to its computed rectangle,
// ignoring fullscreen overrides.
func (t *tree) containerRects(layout LayoutID, screen platform.Rect, gaps Gaps) map[NodeID]platform.Rect {
	out := make(map[NodeID]platform.Rect)
	root := t.root(layout)
	if root == noNode {
		return out
	}
	var walk func(id NodeID, r platform.Rect)
	walk = func(id NodeID, r platform.Rect) {
		out[id] = r
		n := t.get(id)
		if n == nil || n.isWindow {
			return
		}
		visible := make([]NodeID, 0, len(n.children))
		for _, c := range n.children {
			if t.hasWindows(c) {
				visible = append(visible, c)
			}
		}
		if n.stacked {
			for _, c := range visible {
				walk(c, r)
			}
			return
		}
		for i, cr := range splitRect(r, n.orientation, t.shares(visible), gaps) {
			walk(visible[i], cr)
		}
	}
	walk(root, gaps.TilingArea(screen))
	return out
}
