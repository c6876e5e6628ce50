package tiling

import (
	"fmt"
	"math"
	"strings"

	"github.com/1broseidon/spacetile/internal/platform"
)

// Alignment anchors the selected column inside the tiling area.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// NavigationStyle picks how focus changes move the strip.
type NavigationStyle string

const (
	// NavClassic re-anchors the selected column on every selection change.
	NavClassic NavigationStyle = "classic"
	// NavReveal keeps the strip where it is and scrolls only as far as needed
	// to show the selected column.
	NavReveal NavigationStyle = "reveal"
)

// ScrollingSettings are shared by every layout of a scrolling system.
type ScrollingSettings struct {
	Ratio               float64         `yaml:"ratio" json:"ratio"`
	MinRatio            float64         `yaml:"min_ratio" json:"min_ratio"`
	MaxRatio            float64         `yaml:"max_ratio" json:"max_ratio"`
	Alignment           Alignment       `yaml:"alignment" json:"alignment"`
	Style               NavigationStyle `yaml:"style" json:"style"`
	OverscrollThreshold float64         `yaml:"overscroll_threshold" json:"overscroll_threshold"`
}

func DefaultScrollingSettings() ScrollingSettings {
	return ScrollingSettings{
		Ratio:               0.5,
		MinRatio:            0.1,
		MaxRatio:            1.0,
		Alignment:           AlignLeft,
		Style:               NavClassic,
		OverscrollThreshold: 1.0,
	}
}

func (s ScrollingSettings) Validate() error {
	switch s.Alignment {
	case AlignLeft, AlignCenter, AlignRight:
	default:
		return fmt.Errorf("alignment must be left, center or right, got %q", s.Alignment)
	}
	switch s.Style {
	case NavClassic, NavReveal:
	default:
		return fmt.Errorf("style must be classic or reveal, got %q", s.Style)
	}
	if s.MinRatio <= 0 || s.MaxRatio > 1 || s.MinRatio > s.MaxRatio {
		return fmt.Errorf("column ratio bounds must satisfy 0 < min_ratio <= max_ratio <= 1, got [%v, %v]", s.MinRatio, s.MaxRatio)
	}
	if s.Ratio < s.MinRatio || s.Ratio > s.MaxRatio {
		return fmt.Errorf("ratio %v outside [%v, %v]", s.Ratio, s.MinRatio, s.MaxRatio)
	}
	if s.OverscrollThreshold <= 0 {
		return fmt.Errorf("overscroll_threshold must be > 0, got %v", s.OverscrollThreshold)
	}
	return nil
}

func (s ScrollingSettings) normalized() ScrollingSettings {
	d := DefaultScrollingSettings()
	s.Alignment = Alignment(strings.ToLower(string(s.Alignment)))
	s.Style = NavigationStyle(strings.ToLower(string(s.Style)))
	if s.Alignment == "" {
		s.Alignment = d.Alignment
	}
	if s.Style == "" {
		s.Style = d.Style
	}
	if s.MinRatio <= 0 {
		s.MinRatio = d.MinRatio
	}
	if s.MaxRatio <= 0 {
		s.MaxRatio = d.MaxRatio
	}
	if s.Ratio <= 0 {
		s.Ratio = d.Ratio
	}
	if s.OverscrollThreshold <= 0 {
		s.OverscrollThreshold = d.OverscrollThreshold
	}
	return s
}

func (s ScrollingSettings) clampRatio(r float64) float64 {
	return math.Max(clamp(r, s.MinRatio, s.MaxRatio), 0.05)
}

type column struct {
	windows     []platform.WindowID
	widthOffset float64
}

// Reveal requests, consumed by the next layout pass.
const (
	revealNone    int8 = 0
	revealLeft    int8 = -1
	revealRight   int8 = 1
	revealNeutral int8 = 2
)

// scrollCell is the continuous strip state. Layout passes write it as a side
// effect; only the reactor goroutine ever touches it.
type scrollCell struct {
	offset        float64
	pendingAlign  bool
	pendingCenter bool
	reveal        int8
	screenWidth   float64
	gapX          float64
	centerDelta   float64
	overscroll    float64
}

type scrollLayout struct {
	columns        []column
	selected       platform.WindowID
	ratio          float64
	centerOverride platform.WindowID
	fullscreen     map[platform.WindowID]bool
	fsGaps         map[platform.WindowID]bool
	cell           *scrollCell
}

func newScrollLayout(ratio float64) *scrollLayout {
	return &scrollLayout{
		ratio:      ratio,
		fullscreen: make(map[platform.WindowID]bool),
		fsGaps:     make(map[platform.WindowID]bool),
		cell:       &scrollCell{},
	}
}

func (l *scrollLayout) clone() *scrollLayout {
	c := newScrollLayout(l.ratio)
	for _, col := range l.columns {
		c.columns = append(c.columns, column{windows: append([]platform.WindowID(nil), col.windows...), widthOffset: col.widthOffset})
	}
	c.selected = l.selected
	c.centerOverride = l.centerOverride
	for w := range l.fullscreen {
		c.fullscreen[w] = true
	}
	for w := range l.fsGaps {
		c.fsGaps[w] = true
	}
	*c.cell = *l.cell
	return c
}

func (l *scrollLayout) locate(wid platform.WindowID) (int, int, bool) {
	if wid.IsZero() {
		return 0, 0, false
	}
	for ci, col := range l.columns {
		for ri, w := range col.windows {
			if w == wid {
				return ci, ri, true
			}
		}
	}
	return 0, 0, false
}

func (l *scrollLayout) firstWindow() platform.WindowID {
	if len(l.columns) == 0 || len(l.columns[0].windows) == 0 {
		return platform.WindowID{}
	}
	return l.columns[0].windows[0]
}

func (l *scrollLayout) selectedOrFirst() platform.WindowID {
	if _, _, ok := l.locate(l.selected); ok {
		return l.selected
	}
	return l.firstWindow()
}

func (l *scrollLayout) allWindows() []platform.WindowID {
	var out []platform.WindowID
	for _, col := range l.columns {
		out = append(out, col.windows...)
	}
	return out
}

// alignToSelected requests a re-anchor on the selected column. A center
// override survives only while the same window stays selected.
func (l *scrollLayout) alignToSelected() {
	if !l.centerOverride.IsZero() && l.centerOverride == l.selected {
		l.cell.pendingCenter = true
		l.cell.pendingAlign = false
		l.cell.reveal = revealNone
		return
	}
	l.centerOverride = platform.WindowID{}
	l.cell.pendingCenter = false
	l.cell.reveal = revealNone
	if _, _, ok := l.locate(l.selected); !ok {
		l.cell.offset = 0
		return
	}
	l.cell.pendingAlign = true
}

func (l *scrollLayout) requestCenter() {
	if _, _, ok := l.locate(l.selected); !ok {
		return
	}
	l.cell.reveal = revealNone
	if !l.centerOverride.IsZero() && l.centerOverride == l.selected {
		// second request on the same window goes back to normal alignment
		l.centerOverride = platform.WindowID{}
		l.cell.pendingCenter = false
		l.cell.pendingAlign = true
		return
	}
	l.centerOverride = l.selected
	l.cell.pendingCenter = true
	l.cell.pendingAlign = false
}

func (l *scrollLayout) revealSelected(code int8) {
	l.centerOverride = platform.WindowID{}
	l.cell.pendingCenter = false
	l.cell.pendingAlign = false
	l.cell.reveal = code
}

// removeWindow drops wid and reports whether it was the selection.
func (l *scrollLayout) removeWindow(wid platform.WindowID) bool {
	ci, ri, ok := l.locate(wid)
	if !ok {
		return false
	}
	col := &l.columns[ci]
	col.windows = append(col.windows[:ri], col.windows[ri+1:]...)
	if len(col.windows) == 0 {
		l.columns = append(l.columns[:ci], l.columns[ci+1:]...)
	}
	delete(l.fullscreen, wid)
	delete(l.fsGaps, wid)

	wasSelected := l.selected == wid
	if wasSelected {
		l.selected = platform.WindowID{}
		if ci < len(l.columns) {
			ws := l.columns[ci].windows
			if ri < len(ws) {
				l.selected = ws[ri]
			} else if len(ws) > 0 {
				l.selected = ws[len(ws)-1]
			}
		}
		if l.selected.IsZero() && ci > 0 {
			ws := l.columns[ci-1].windows
			l.selected = ws[len(ws)-1]
		}
		if l.selected.IsZero() {
			l.selected = l.firstWindow()
		}
	}
	if l.centerOverride == wid {
		l.centerOverride = platform.WindowID{}
	}
	if len(l.columns) == 0 {
		l.cell.offset = 0
	}
	l.cell.pendingAlign = false
	return wasSelected
}

func (l *scrollLayout) insertColumn(at int, wid platform.WindowID) {
	at = max(0, min(at, len(l.columns)))
	l.columns = append(l.columns, column{})
	copy(l.columns[at+1:], l.columns[at:])
	l.columns[at] = column{windows: []platform.WindowID{wid}}
	l.selected = wid
	l.alignToSelected()
}

func (l *scrollLayout) moveToColumnEnd(wid platform.WindowID, target int) {
	ci, ri, ok := l.locate(wid)
	if !ok || ci == target {
		return
	}
	col := &l.columns[ci]
	col.windows = append(col.windows[:ri], col.windows[ri+1:]...)
	removed := len(col.windows) == 0
	if removed {
		l.columns = append(l.columns[:ci], l.columns[ci+1:]...)
		if ci < target {
			target--
		}
	}
	if target >= len(l.columns) {
		l.columns = append(l.columns, column{windows: []platform.WindowID{wid}})
	} else {
		l.columns[target].windows = append(l.columns[target].windows, wid)
	}
	l.selected = wid
	l.alignToSelected()
}

// geometry returns the width and strip start of every column.
func (l *scrollLayout) geometry(s ScrollingSettings, width, gapX float64) (widths, starts []float64) {
	base := s.clampRatio(l.ratio)
	cursor := 0.0
	for _, col := range l.columns {
		starts = append(starts, cursor)
		w := math.Max(width*s.clampRatio(base+col.widthOffset), 1)
		widths = append(widths, w)
		cursor += w + gapX
	}
	return widths, starts
}

func (l *scrollLayout) offsetBounds(starts []float64) (lo, hi float64) {
	last := 0.0
	if len(starts) > 0 {
		last = starts[len(starts)-1]
	}
	if !l.centerOverride.IsZero() {
		return l.cell.centerDelta, last + l.cell.centerDelta
	}
	return 0, last
}

// ScrollingSystem lays windows out as a horizontally scrolling strip of
// columns.
type ScrollingSystem struct {
	settings   ScrollingSettings
	nextLayout LayoutID
	layouts    map[LayoutID]*scrollLayout
}

var _ LayoutSystem = (*ScrollingSystem)(nil)

func NewScrollingSystem(settings ScrollingSettings) *ScrollingSystem {
	return &ScrollingSystem{
		settings:   settings.normalized(),
		nextLayout: 1,
		layouts:    make(map[LayoutID]*scrollLayout),
	}
}

func (s *ScrollingSystem) Mode() LayoutMode { return ModeScrolling }

func (s *ScrollingSystem) Settings() ScrollingSettings { return s.settings }

func (s *ScrollingSystem) UpdateSettings(settings ScrollingSettings) {
	s.settings = settings.normalized()
}

func (s *ScrollingSystem) reveals() bool { return s.settings.Style == NavReveal }

func (s *ScrollingSystem) CreateLayout() LayoutID {
	id := s.nextLayout
	s.nextLayout++
	s.layouts[id] = newScrollLayout(s.settings.Ratio)
	return id
}

func (s *ScrollingSystem) CloneLayout(layout LayoutID) LayoutID {
	id := s.nextLayout
	s.nextLayout++
	if l, ok := s.layouts[layout]; ok {
		s.layouts[id] = l.clone()
	} else {
		s.layouts[id] = newScrollLayout(s.settings.Ratio)
	}
	return id
}

func (s *ScrollingSystem) RemoveLayout(layout LayoutID) { delete(s.layouts, layout) }

func (s *ScrollingSystem) CalculateLayout(layout LayoutID, screen platform.Rect, gaps Gaps) []WindowFrame {
	l, ok := s.layouts[layout]
	if !ok {
		return nil
	}
	tiling := gaps.TilingArea(screen)
	gapX, gapY := gaps.InnerX, gaps.InnerY
	base := s.settings.clampRatio(l.ratio)
	widths, starts := l.geometry(s.settings, tiling.Width, gapX)

	selCol, _, hasSel := l.locate(l.selected)
	selWidth := math.Max(tiling.Width*base, 1)
	if hasSel {
		selWidth = widths[selCol]
	} else if len(widths) > 0 {
		selWidth = widths[0]
	}
	cell := l.cell
	cell.screenWidth = tiling.Width
	cell.gapX = gapX

	var anchor float64
	if s.reveals() && l.centerOverride.IsZero() {
		anchor = tiling.X
	} else {
		switch s.settings.Alignment {
		case AlignCenter:
			anchor = tiling.X + (tiling.Width-selWidth)/2
		case AlignRight:
			anchor = tiling.X + tiling.Width - selWidth
		default:
			anchor = tiling.X
		}
	}
	cell.centerDelta = anchor - (tiling.X + (tiling.Width-selWidth)/2)

	switch {
	case cell.pendingCenter:
		cell.offset = 0
		if hasSel {
			cell.offset = cell.centerDelta + starts[selCol]
		}
		cell.pendingCenter = false
		cell.pendingAlign = false
	case cell.pendingAlign:
		cell.offset = 0
		if hasSel {
			cell.offset = starts[selCol]
		}
		cell.pendingAlign = false
	}

	if code := cell.reveal; code != revealNone {
		cell.reveal = revealNone
		if hasSel {
			start := starts[selCol]
			x := anchor + start - cell.offset
			left, right := tiling.X, tiling.X+tiling.Width
			clippedLeft := x < left
			clippedRight := x+selWidth > right
			showLeft := func() { cell.offset = anchor + start - left }
			showRight := func() { cell.offset = anchor + start + selWidth - right }
			switch code {
			case revealRight:
				if clippedRight {
					showRight()
				} else if clippedLeft {
					showLeft()
				}
			default:
				if clippedLeft {
					showLeft()
				} else if clippedRight {
					showRight()
				}
			}
		}
	}

	lo, hi := l.offsetBounds(starts)
	cell.offset = clamp(cell.offset, lo, hi)

	var out []WindowFrame
	for ci, col := range l.columns {
		if len(col.windows) == 0 {
			continue
		}
		x := anchor + starts[ci] - cell.offset
		available := math.Max(tiling.Height-gapY*float64(len(col.windows)-1), 0)
		rowHeight := math.Max(available/float64(len(col.windows)), 1)
		for ri, wid := range col.windows {
			y := tiling.Y + float64(ri)*(rowHeight+gapY)
			r := platform.Rect{X: math.Round(x), Y: math.Round(y), Width: math.Round(widths[ci]), Height: math.Round(rowHeight)}
			switch {
			case l.fullscreen[wid]:
				r = screen
			case l.fsGaps[wid]:
				r = tiling
			}
			out = append(out, WindowFrame{Window: wid, Rect: r})
		}
	}
	return out
}

// ScrollByDelta moves the strip by delta column steps. Scrolling past either
// end accumulates overscroll; once it reaches the threshold the boundary
// direction is returned and the accumulator resets.
func (s *ScrollingSystem) ScrollByDelta(layout LayoutID, delta float64) (Direction, bool) {
	l, ok := s.layouts[layout]
	if !ok || l.cell.screenWidth <= 0 {
		return DirLeft, false
	}
	cell := l.cell
	widths, starts := l.geometry(s.settings, cell.screenWidth, cell.gapX)
	if len(starts) == 0 {
		return DirLeft, false
	}
	selCol, _, _ := l.locate(l.selected)
	step := widths[selCol] + cell.gapX
	if step <= 0 {
		return DirLeft, false
	}
	lo, hi := l.offsetBounds(starts)
	raw := cell.offset + delta*step
	cell.offset = clamp(raw, lo, hi)

	switch {
	case raw < lo && delta < 0:
		cell.overscroll += (lo - raw) / step
		if cell.overscroll >= s.settings.OverscrollThreshold {
			cell.overscroll = 0
			return DirLeft, true
		}
	case raw > hi && delta > 0:
		cell.overscroll += (raw - hi) / step
		if cell.overscroll >= s.settings.OverscrollThreshold {
			cell.overscroll = 0
			return DirRight, true
		}
	default:
		cell.overscroll = 0
	}
	return DirLeft, false
}

// SnapToNearestColumn moves the strip onto the closest column start.
func (s *ScrollingSystem) SnapToNearestColumn(layout LayoutID) {
	l, ok := s.layouts[layout]
	if !ok || l.cell.screenWidth <= 0 {
		return
	}
	cell := l.cell
	_, starts := l.geometry(s.settings, cell.screenWidth, cell.gapX)
	if len(starts) == 0 {
		return
	}
	lo, hi := l.offsetBounds(starts)
	baseline := lo
	strip := cell.offset - baseline
	target := starts[0]
	for _, st := range starts[1:] {
		if math.Abs(st-strip) < math.Abs(target-strip) {
			target = st
		}
	}
	cell.offset = clamp(baseline+target, lo, hi)
}

// ScrollOffset is the current strip offset in pixels.
func (s *ScrollingSystem) ScrollOffset(layout LayoutID) float64 {
	if l, ok := s.layouts[layout]; ok {
		return l.cell.offset
	}
	return 0
}

// CenterSelection toggles the center override for the selected window.
func (s *ScrollingSystem) CenterSelection(layout LayoutID) {
	if l, ok := s.layouts[layout]; ok {
		l.requestCenter()
	}
}

// ColumnStarts reports the strip start offset of each column as of the last
// layout pass.
func (s *ScrollingSystem) ColumnStarts(layout LayoutID) []float64 {
	l, ok := s.layouts[layout]
	if !ok {
		return nil
	}
	_, starts := l.geometry(s.settings, l.cell.screenWidth, l.cell.gapX)
	return starts
}

func (s *ScrollingSystem) SelectedWindow(layout LayoutID) (platform.WindowID, bool) {
	l, ok := s.layouts[layout]
	if !ok {
		return platform.WindowID{}, false
	}
	w := l.selectedOrFirst()
	return w, !w.IsZero()
}

func (s *ScrollingSystem) SelectWindow(layout LayoutID, wid platform.WindowID) bool {
	l, ok := s.layouts[layout]
	if !ok {
		return false
	}
	if _, _, found := l.locate(wid); !found {
		return false
	}
	if l.selected == wid && l.centerOverride == wid {
		return true
	}
	l.selected = wid
	if s.reveals() {
		l.revealSelected(revealNeutral)
	} else {
		l.alignToSelected()
	}
	return true
}

func (s *ScrollingSystem) VisibleWindows(layout LayoutID) []platform.WindowID {
	if l, ok := s.layouts[layout]; ok {
		return l.allWindows()
	}
	return nil
}

func (s *ScrollingSystem) Windows(layout LayoutID) []platform.WindowID {
	return s.VisibleWindows(layout)
}

func (s *ScrollingSystem) ContainsWindow(layout LayoutID, wid platform.WindowID) bool {
	l, ok := s.layouts[layout]
	if !ok {
		return false
	}
	_, _, found := l.locate(wid)
	return found
}

// Columns returns a copy of the column contents.
func (s *ScrollingSystem) Columns(layout LayoutID) [][]platform.WindowID {
	l, ok := s.layouts[layout]
	if !ok {
		return nil
	}
	out := make([][]platform.WindowID, len(l.columns))
	for i, col := range l.columns {
		out[i] = append([]platform.WindowID(nil), col.windows...)
	}
	return out
}

func (s *ScrollingSystem) AddWindowAfterSelection(layout LayoutID, wid platform.WindowID) {
	l, ok := s.layouts[layout]
	if !ok {
		return
	}
	if _, _, exists := l.locate(wid); exists {
		s.SelectWindow(layout, wid)
		return
	}
	switch ci, _, found := l.locate(l.selected); {
	case found:
		l.insertColumn(ci+1, wid)
	case len(l.columns) > 0:
		l.insertColumn(1, wid)
	default:
		l.insertColumn(0, wid)
	}
}

func (s *ScrollingSystem) RemoveWindow(wid platform.WindowID) {
	for _, l := range s.layouts {
		s.removeFrom(l, wid)
	}
}

// removeFrom removes wid from l and brings a replacement selection into
// view on the next layout pass.
func (s *ScrollingSystem) removeFrom(l *scrollLayout, wid platform.WindowID) {
	if !l.removeWindow(wid) || l.selected.IsZero() {
		return
	}
	if s.reveals() {
		l.revealSelected(revealNeutral)
	} else {
		l.alignToSelected()
	}
}

func (s *ScrollingSystem) RemoveWindowsForApp(pid int32) {
	for _, l := range s.layouts {
		for _, wid := range l.allWindows() {
			if wid.PID == pid {
				s.removeFrom(l, wid)
			}
		}
	}
}

func (s *ScrollingSystem) SetWindowsForApp(layout LayoutID, pid int32, desired []platform.WindowID) {
	l, ok := s.layouts[layout]
	if !ok {
		return
	}
	var current []platform.WindowID
	for _, wid := range l.allWindows() {
		if wid.PID == pid {
			current = append(current, wid)
		}
	}
	add, remove := sortedMerge(desired, current)
	for _, wid := range remove {
		s.removeFrom(l, wid)
	}
	for _, wid := range add {
		l.insertColumn(len(l.columns), wid)
	}
}

// OnWindowResized records a manual width change of the selected window as
// its column's width offset.
func (s *ScrollingSystem) OnWindowResized(layout LayoutID, wid platform.WindowID, _, newFrame, screen platform.Rect, gaps Gaps) {
	l, ok := s.layouts[layout]
	if !ok || l.selected != wid {
		return
	}
	tiling := gaps.TilingArea(screen)
	if tiling.Width <= 0 {
		return
	}
	ci, _, found := l.locate(wid)
	if !found {
		return
	}
	l.columns[ci].widthOffset = s.settings.clampRatio(newFrame.Width/tiling.Width) - l.ratio
	s.afterSelectionResize(l)
}

func (s *ScrollingSystem) afterSelectionResize(l *scrollLayout) {
	if s.reveals() {
		l.revealSelected(revealNeutral)
	} else {
		l.alignToSelected()
	}
}

func (s *ScrollingSystem) MoveFocus(layout LayoutID, dir Direction) (platform.WindowID, bool) {
	l, ok := s.layouts[layout]
	if !ok {
		return platform.WindowID{}, false
	}
	ci, ri, found := l.locate(l.selected)
	if !found {
		l.alignToSelected()
		return platform.WindowID{}, false
	}
	var next platform.WindowID
	switch dir {
	case DirUp:
		if ri > 0 {
			next = l.columns[ci].windows[ri-1]
		}
	case DirDown:
		if ri+1 < len(l.columns[ci].windows) {
			next = l.columns[ci].windows[ri+1]
		}
	case DirLeft, DirRight:
		target := ci - 1
		if dir == DirRight {
			target = ci + 1
		}
		if target >= 0 && target < len(l.columns) {
			ws := l.columns[target].windows
			next = ws[min(ri, len(ws)-1)]
		}
	}
	if next.IsZero() {
		l.alignToSelected()
		return platform.WindowID{}, false
	}
	l.selected = next
	switch {
	case s.reveals() && dir == DirLeft:
		l.revealSelected(revealLeft)
	case s.reveals() && dir == DirRight:
		l.revealSelected(revealRight)
	case s.reveals():
		l.revealSelected(revealNeutral)
	default:
		l.alignToSelected()
	}
	return next, true
}

// SelectedColumn returns the windows sharing the selected column.
func (s *ScrollingSystem) SelectedColumn(layout LayoutID) []platform.WindowID {
	l, ok := s.layouts[layout]
	if !ok {
		return nil
	}
	ci, _, found := l.locate(l.selected)
	if !found {
		return nil
	}
	return append([]platform.WindowID(nil), l.columns[ci].windows...)
}

func (s *ScrollingSystem) AscendSelection(layout LayoutID) bool {
	_, ok := s.MoveFocus(layout, DirUp)
	return ok
}

func (s *ScrollingSystem) DescendSelection(layout LayoutID) bool {
	_, ok := s.MoveFocus(layout, DirDown)
	return ok
}

// MoveSelection reorders columns horizontally or rows vertically. Moving a
// window out of a multi-window column sideways gives it a column of its own.
func (s *ScrollingSystem) MoveSelection(layout LayoutID, dir Direction) bool {
	l, ok := s.layouts[layout]
	if !ok {
		return false
	}
	ci, ri, found := l.locate(l.selected)
	if !found {
		return false
	}
	moved := false
	switch dir {
	case DirUp, DirDown:
		target := ri - 1
		if dir == DirDown {
			target = ri + 1
		}
		ws := l.columns[ci].windows
		if target >= 0 && target < len(ws) {
			ws[ri], ws[target] = ws[target], ws[ri]
			moved = true
		}
	case DirLeft, DirRight:
		if len(l.columns[ci].windows) > 1 {
			wid := l.columns[ci].windows[ri]
			col := &l.columns[ci]
			col.windows = append(col.windows[:ri], col.windows[ri+1:]...)
			at := ci
			if dir == DirRight {
				at = ci + 1
			}
			l.columns = append(l.columns, column{})
			copy(l.columns[at+1:], l.columns[at:])
			l.columns[at] = column{windows: []platform.WindowID{wid}}
			moved = true
			break
		}
		target := ci - 1
		if dir == DirRight {
			target = ci + 1
		}
		if target >= 0 && target < len(l.columns) {
			l.columns[ci], l.columns[target] = l.columns[target], l.columns[ci]
			moved = true
		}
	}
	if moved {
		l.alignToSelected()
	}
	return moved
}

// JoinSelection moves the selected window to the end of the neighbouring
// column.
func (s *ScrollingSystem) JoinSelection(layout LayoutID, dir Direction) bool {
	l, ok := s.layouts[layout]
	if !ok {
		return false
	}
	ci, _, found := l.locate(l.selected)
	if !found {
		return false
	}
	target := -1
	switch dir {
	case DirLeft:
		target = ci - 1
	case DirRight:
		if ci+1 < len(l.columns) {
			target = ci + 1
		}
	}
	if target < 0 {
		return false
	}
	l.moveToColumnEnd(l.selected, target)
	return true
}

// ToggleStack folds the neighbouring column into the selected one, or splits
// a multi-window column back into single columns.
func (s *ScrollingSystem) ToggleStack(layout LayoutID) []platform.WindowID {
	l, ok := s.layouts[layout]
	if !ok {
		return nil
	}
	ci, ri, found := l.locate(l.selected)
	if !found {
		return nil
	}
	if len(l.columns[ci].windows) > 1 {
		selected := l.columns[ci].windows[ri]
		var moved []platform.WindowID
		for _, w := range l.columns[ci].windows {
			if w != selected {
				moved = append(moved, w)
			}
		}
		l.columns[ci].windows = []platform.WindowID{selected}
		tail := append([]column(nil), l.columns[ci+1:]...)
		l.columns = l.columns[:ci+1]
		for _, w := range moved {
			l.columns = append(l.columns, column{windows: []platform.WindowID{w}})
		}
		l.columns = append(l.columns, tail...)
		return moved
	}
	target := ci + 1
	if target >= len(l.columns) {
		target = ci - 1
	}
	if target < 0 {
		return nil
	}
	moved := append([]platform.WindowID(nil), l.columns[target].windows...)
	selected := l.selected
	for _, w := range moved {
		col, _, _ := l.locate(selected)
		l.moveToColumnEnd(w, col)
	}
	l.selected = selected
	l.alignToSelected()
	return moved
}

func (s *ScrollingSystem) ToggleOrientation(LayoutID) {}

// UnjoinSelection pulls the selected window out into a column to the right.
func (s *ScrollingSystem) UnjoinSelection(layout LayoutID) {
	l, ok := s.layouts[layout]
	if !ok {
		return
	}
	ci, ri, found := l.locate(l.selected)
	if !found || len(l.columns[ci].windows) <= 1 {
		return
	}
	wid := l.columns[ci].windows[ri]
	col := &l.columns[ci]
	col.windows = append(col.windows[:ri], col.windows[ri+1:]...)
	l.insertColumn(ci+1, wid)
}

func (s *ScrollingSystem) ResizeSelectionBy(layout LayoutID, amount float64) {
	l, ok := s.layouts[layout]
	if !ok {
		return
	}
	ci, _, found := l.locate(l.selected)
	if !found {
		l.ratio = s.settings.clampRatio(l.ratio + amount)
		return
	}
	next := s.settings.clampRatio(l.ratio + l.columns[ci].widthOffset + amount)
	l.columns[ci].widthOffset = next - l.ratio
	s.afterSelectionResize(l)
}

func (s *ScrollingSystem) ToggleFullscreen(layout LayoutID) []platform.WindowID {
	return s.toggleFullscreen(layout, false)
}

func (s *ScrollingSystem) ToggleFullscreenWithinGaps(layout LayoutID) []platform.WindowID {
	return s.toggleFullscreen(layout, true)
}

func (s *ScrollingSystem) toggleFullscreen(layout LayoutID, withinGaps bool) []platform.WindowID {
	l, ok := s.layouts[layout]
	if !ok {
		return nil
	}
	wid := l.selectedOrFirst()
	if wid.IsZero() {
		return nil
	}
	set, other := l.fullscreen, l.fsGaps
	if withinGaps {
		set, other = l.fsGaps, l.fullscreen
	}
	if set[wid] {
		delete(set, wid)
		return []platform.WindowID{wid}
	}
	delete(other, wid)
	set[wid] = true
	return []platform.WindowID{wid}
}

func (s *ScrollingSystem) HasAnyFullscreen(layout LayoutID) bool {
	l, ok := s.layouts[layout]
	return ok && (len(l.fullscreen) > 0 || len(l.fsGaps) > 0)
}

func (s *ScrollingSystem) SwapWindows(layout LayoutID, a, b platform.WindowID) bool {
	l, ok := s.layouts[layout]
	if !ok {
		return false
	}
	ac, ar, okA := l.locate(a)
	bc, br, okB := l.locate(b)
	if !okA || !okB {
		return false
	}
	l.columns[ac].windows[ar], l.columns[bc].windows[br] = b, a
	return true
}

func (s *ScrollingSystem) SelectionPath(layout LayoutID) []string {
	l, ok := s.layouts[layout]
	if !ok {
		return nil
	}
	ci, ri, found := l.locate(l.selected)
	if !found {
		return []string{fmt.Sprintf("strip[%d columns]", len(l.columns))}
	}
	return []string{
		fmt.Sprintf("column[%d/%d]", ci, len(l.columns)),
		fmt.Sprintf("row[%d/%d]", ri, len(l.columns[ci].windows)),
		fmt.Sprintf("window(%s)", l.selected),
	}
}
