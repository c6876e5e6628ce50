package tiling

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/spacetile/internal/platform"
)

// stateVersion is bumped whenever the document shape changes incompatibly.
const stateVersion = 1

// ErrStateVersion is returned when a saved document was written by an
// incompatible version.
var ErrStateVersion = errors.New("unsupported layout state version")

type nodeDoc struct {
	Window         *platform.WindowID `yaml:"window,omitempty"`
	Vertical       bool               `yaml:"vertical,omitempty"`
	Size           float64            `yaml:"size"`
	Stacked        bool               `yaml:"stacked,omitempty"`
	Fullscreen     bool               `yaml:"fullscreen,omitempty"`
	FullscreenGaps bool               `yaml:"fullscreen_gaps,omitempty"`
	Selected       int                `yaml:"selected"`
	Children       []nodeDoc          `yaml:"children,omitempty"`
}

type columnDoc struct {
	Windows     []platform.WindowID `yaml:"windows"`
	WidthOffset float64             `yaml:"width_offset,omitempty"`
}

// layoutDoc is the serialized form of one layout instance. Which fields are
// set depends on the system that wrote it.
type layoutDoc struct {
	Root           *nodeDoc            `yaml:"root,omitempty"`
	Master         []platform.WindowID `yaml:"master,omitempty"`
	Stack          []platform.WindowID `yaml:"stack,omitempty"`
	Columns        []columnDoc         `yaml:"columns,omitempty"`
	Selected       *platform.WindowID  `yaml:"selected,omitempty"`
	Ratio          float64             `yaml:"ratio,omitempty"`
	Offset         float64             `yaml:"offset,omitempty"`
	Fullscreen     []platform.WindowID `yaml:"fullscreen,omitempty"`
	FullscreenGaps []platform.WindowID `yaml:"fullscreen_gaps,omitempty"`
}

func selectedDoc(wid platform.WindowID, ok bool) *platform.WindowID {
	if !ok {
		return nil
	}
	return &wid
}

func (t *tree) documentNode(id NodeID) nodeDoc {
	n := t.get(id)
	doc := nodeDoc{
		Vertical:       n.orientation == Vertical,
		Size:           n.size,
		Stacked:        n.stacked,
		Fullscreen:     n.fullscreen,
		FullscreenGaps: n.fsGaps,
		Selected:       -1,
	}
	if n.isWindow {
		wid := n.window
		doc.Window = &wid
		return doc
	}
	for i, c := range n.children {
		if c == n.selected {
			doc.Selected = i
		}
		doc.Children = append(doc.Children, t.documentNode(c))
	}
	return doc
}

func (t *tree) restoreChildren(layout LayoutID, parent NodeID, docs []nodeDoc) {
	for _, cd := range docs {
		var id NodeID
		if cd.Window != nil {
			id = t.newLeaf(layout, *cd.Window)
		} else {
			o := Horizontal
			if cd.Vertical {
				o = Vertical
			}
			id = t.newContainer(layout, o)
		}
		n := t.get(id)
		n.parent = parent
		n.size = cd.Size
		n.stacked = cd.Stacked
		n.fullscreen = cd.Fullscreen
		n.fsGaps = cd.FullscreenGaps
		t.get(parent).children = append(t.get(parent).children, id)
		if cd.Window == nil {
			t.restoreChildren(layout, id, cd.Children)
			if len(t.get(id).children) == 0 {
				t.detach(id)
				t.release(id)
				continue
			}
			if cd.Selected >= 0 && cd.Selected < len(t.get(id).children) {
				t.get(id).selected = t.get(id).children[cd.Selected]
			}
		}
	}
	p := t.get(parent)
	if len(p.children) > 0 && p.selected == noNode {
		p.selected = p.children[0]
	}
	t.normalize(parent)
}

func (s *TraditionalSystem) document(layout LayoutID) layoutDoc {
	root := s.t.root(layout)
	if root == noNode {
		return layoutDoc{}
	}
	rd := s.t.documentNode(root)
	wid, ok := s.t.selectedWindow(layout)
	return layoutDoc{Root: &rd, Selected: selectedDoc(wid, ok)}
}

func (s *TraditionalSystem) restore(doc layoutDoc) LayoutID {
	t := s.t
	o := Horizontal
	if doc.Root != nil && doc.Root.Vertical {
		o = Vertical
	}
	layout := t.createLayout(o)
	if doc.Root == nil {
		return layout
	}
	root := t.root(layout)
	t.get(root).stacked = doc.Root.Stacked
	t.restoreChildren(layout, root, doc.Root.Children)
	if doc.Root.Selected >= 0 && doc.Root.Selected < len(t.get(root).children) {
		t.get(root).selected = t.get(root).children[doc.Root.Selected]
	}
	if doc.Selected != nil && t.selectWindow(layout, *doc.Selected) {
		return layout
	}
	t.fixCursor(layout)
	return layout
}

func (s *MasterStackSystem) document(layout LayoutID) layoutDoc {
	wid, ok := s.SelectedWindow(layout)
	doc := layoutDoc{
		Master:   s.MasterWindows(layout),
		Stack:    s.StackWindows(layout),
		Selected: selectedDoc(wid, ok),
		Ratio:    s.settings.Ratio,
	}
	for _, w := range s.Windows(layout) {
		leaf, ok := s.t.index[layout][w]
		if !ok {
			continue
		}
		if n := s.t.get(leaf); n.fullscreen {
			doc.Fullscreen = append(doc.Fullscreen, w)
			if n.fsGaps {
				doc.FullscreenGaps = append(doc.FullscreenGaps, w)
			}
		}
	}
	return doc
}

func (s *MasterStackSystem) restore(doc layoutDoc) LayoutID {
	layout := s.CreateLayout()
	pair := s.pairs[layout]
	t := s.t
	for _, group := range []struct {
		container NodeID
		windows   []platform.WindowID
	}{{pair.master, doc.Master}, {pair.stack, doc.Stack}} {
		for _, w := range group.windows {
			if _, dup := t.index[layout][w]; dup {
				continue
			}
			t.insertChild(group.container, -1, t.newLeaf(layout, w))
		}
	}
	for _, w := range doc.Fullscreen {
		if leaf, ok := t.index[layout][w]; ok {
			t.get(leaf).fullscreen = true
			t.get(leaf).fsGaps = containsWindow(doc.FullscreenGaps, w)
		}
	}
	s.normalizeLayout(layout)
	if doc.Selected != nil {
		t.selectWindow(layout, *doc.Selected)
	}
	return layout
}

func (s *ScrollingSystem) document(layout LayoutID) layoutDoc {
	l, ok := s.layouts[layout]
	if !ok {
		return layoutDoc{}
	}
	doc := layoutDoc{Ratio: l.ratio, Offset: l.cell.offset}
	for _, col := range l.columns {
		doc.Columns = append(doc.Columns, columnDoc{
			Windows:     append([]platform.WindowID(nil), col.windows...),
			WidthOffset: col.widthOffset,
		})
	}
	if !l.selected.IsZero() {
		doc.Selected = selectedDoc(l.selected, true)
	}
	for _, w := range l.allWindows() {
		if l.fullscreen[w] {
			doc.Fullscreen = append(doc.Fullscreen, w)
		}
		if l.fsGaps[w] {
			doc.FullscreenGaps = append(doc.FullscreenGaps, w)
		}
	}
	return doc
}

func (s *ScrollingSystem) restore(doc layoutDoc) LayoutID {
	layout := s.CreateLayout()
	l := s.layouts[layout]
	if doc.Ratio > 0 {
		l.ratio = s.settings.clampRatio(doc.Ratio)
	}
	seen := make(map[platform.WindowID]bool)
	for _, cd := range doc.Columns {
		var col column
		for _, w := range cd.Windows {
			if w.IsZero() || seen[w] {
				continue
			}
			seen[w] = true
			col.windows = append(col.windows, w)
		}
		if len(col.windows) == 0 {
			continue
		}
		col.widthOffset = cd.WidthOffset
		l.columns = append(l.columns, col)
	}
	for _, w := range doc.Fullscreen {
		if seen[w] {
			l.fullscreen[w] = true
		}
	}
	for _, w := range doc.FullscreenGaps {
		if seen[w] {
			l.fsGaps[w] = true
		}
	}
	if doc.Selected != nil && seen[*doc.Selected] {
		l.selected = *doc.Selected
	} else {
		l.selected = l.firstWindow()
	}
	l.cell.offset = doc.Offset
	l.cell.pendingAlign = true
	return layout
}

type floatingDoc struct {
	Window platform.WindowID `yaml:"window"`
	Frame  platform.Rect     `yaml:"frame"`
}

type workspaceDoc struct {
	ID          VirtualWorkspaceID  `yaml:"id"`
	Space       platform.SpaceID    `yaml:"space"`
	Name        string              `yaml:"name"`
	Mode        LayoutMode          `yaml:"mode"`
	Active      bool                `yaml:"active,omitempty"`
	Last        bool                `yaml:"last,omitempty"`
	Windows     []platform.WindowID `yaml:"windows,omitempty"`
	LastFocused *platform.WindowID  `yaml:"last_focused,omitempty"`
	Floating    []floatingDoc       `yaml:"floating,omitempty"`
	Layout      *layoutDoc          `yaml:"layout,omitempty"`
}

// StateDocument is the saved form of the engine: every workspace with its
// layout, plus the set of floating windows.
type StateDocument struct {
	Version    int                 `yaml:"version"`
	ID         string              `yaml:"id"`
	SavedAt    time.Time           `yaml:"saved_at"`
	Workspaces []workspaceDoc      `yaml:"workspaces"`
	Floating   []platform.WindowID `yaml:"floating,omitempty"`
	Displays   map[string]uint64   `yaml:"displays,omitempty"`
}

// Document snapshots the engine.
func (e *Engine) Document() StateDocument {
	doc := StateDocument{
		Version:  stateVersion,
		ID:       uuid.NewString(),
		SavedAt:  time.Now().UTC(),
		Floating: e.floating.Windows(),
	}
	for _, space := range e.vwm.Spaces() {
		active, _ := e.vwm.ActiveWorkspace(space)
		last, _ := e.vwm.LastWorkspace(space)
		for _, ws := range e.vwm.ListWorkspaces(space) {
			wd := workspaceDoc{
				ID:      ws.ID,
				Space:   space,
				Name:    ws.Name,
				Mode:    ws.Mode,
				Active:  ws.ID == active,
				Last:    ws.ID == last && ws.ID != active,
				Windows: ws.Windows(),
			}
			if wid, ok := ws.LastFocused(); ok {
				wd.LastFocused = &wid
			}
			for _, fp := range e.vwm.FloatingPositions(space, ws.ID) {
				wd.Floating = append(wd.Floating, floatingDoc{Window: fp.Window, Frame: fp.Rect})
			}
			if layout, ok := ws.Layout(); ok {
				ld := ws.System.document(layout)
				wd.Layout = &ld
			}
			doc.Workspaces = append(doc.Workspaces, wd)
		}
	}
	if len(e.displayLastSpace) > 0 {
		doc.Displays = make(map[string]uint64, len(e.displayLastSpace))
		for display, space := range e.displayLastSpace {
			doc.Displays[display] = uint64(space)
		}
	}
	return doc
}

// Restore replaces the engine's workspaces with those in doc.
func (e *Engine) Restore(doc StateDocument) error {
	if doc.Version != stateVersion {
		return fmt.Errorf("%w: %d", ErrStateVersion, doc.Version)
	}
	ws := append([]workspaceDoc(nil), doc.Workspaces...)
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].Space < ws[j].Space })

	vwm := NewVirtualWorkspaceManager(e.vwm.settings, e.vwm.defaultMode, e.settings)
	for _, wd := range ws {
		if !wd.Space.Valid() {
			continue
		}
		mode := wd.Mode
		if _, err := ParseLayoutMode(string(mode)); err != nil {
			mode = vwm.defaultMode
		}
		w := vwm.newWorkspace(wd.Space, wd.Name)
		if w.Mode != mode {
			w.Mode = mode
			w.System = NewLayoutSystem(mode, e.settings)
		}
		if wd.Layout != nil {
			w.layout = w.System.restore(*wd.Layout)
			w.hasLayout = true
		}
		for _, wid := range wd.Windows {
			if !vwm.AssignWindowToWorkspace(wd.Space, wid, w.ID) {
				e.log.Warn("dropping window from restored workspace", "window", wid, "workspace", wd.Name)
			}
		}
		if wd.LastFocused != nil {
			w.lastFocused = *wd.LastFocused
		}
		for _, fd := range wd.Floating {
			w.floating[fd.Window] = fd.Frame
		}
		if wd.Active {
			vwm.active[wd.Space] = w.ID
		}
		if wd.Last {
			vwm.last[wd.Space] = w.ID
		}
	}
	for space, ids := range vwm.bySpace {
		if _, ok := vwm.active[space]; !ok && len(ids) > 0 {
			vwm.active[space] = ids[0]
		}
	}

	floating := NewFloatingManager()
	for _, wid := range doc.Floating {
		floating.AddFloating(wid)
	}
	for space := range vwm.bySpace {
		floating.RebuildActiveForWorkspace(space, vwm.WindowsInActiveWorkspace(space))
	}

	e.vwm = vwm
	e.floating = floating
	e.focused = platform.WindowID{}
	e.displayLastSpace = make(map[string]platform.SpaceID, len(doc.Displays))
	for display, space := range doc.Displays {
		e.displayLastSpace[display] = platform.SpaceID(space)
	}
	e.log.Info("restored layout state", "id", doc.ID, "workspaces", len(ws), "saved_at", doc.SavedAt)
	return nil
}

// MarshalState encodes the engine as YAML.
func (e *Engine) MarshalState() ([]byte, error) {
	data, err := yaml.Marshal(e.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to encode layout state: %w", err)
	}
	return data, nil
}

// UnmarshalState decodes YAML written by MarshalState and restores it.
func (e *Engine) UnmarshalState(data []byte) error {
	var doc StateDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode layout state: %w", err)
	}
	return e.Restore(doc)
}

// SaveState writes the engine state to path, replacing it atomically.
func (e *Engine) SaveState(path string) error {
	data, err := e.MarshalState()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write layout state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace layout state: %w", err)
	}
	return nil
}

// LoadState restores the engine from path. A missing file is not an error.
func (e *Engine) LoadState(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read layout state: %w", err)
	}
	return e.UnmarshalState(data)
}
