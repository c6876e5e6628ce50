package tiling

import (
	"github.com/1broseidon/spacetile/internal/platform"
)

// LayoutSystem is the capability set shared by every tiling strategy. The
// engine holds one per virtual workspace and dispatches through it without
// knowing which strategy is active.
type LayoutSystem interface {
	Mode() LayoutMode

	CreateLayout() LayoutID
	CloneLayout(layout LayoutID) LayoutID
	RemoveLayout(layout LayoutID)

	CalculateLayout(layout LayoutID, screen platform.Rect, gaps Gaps) []WindowFrame

	SelectedWindow(layout LayoutID) (platform.WindowID, bool)
	SelectWindow(layout LayoutID, wid platform.WindowID) bool
	VisibleWindows(layout LayoutID) []platform.WindowID
	Windows(layout LayoutID) []platform.WindowID
	ContainsWindow(layout LayoutID, wid platform.WindowID) bool

	AddWindowAfterSelection(layout LayoutID, wid platform.WindowID)
	RemoveWindow(wid platform.WindowID)
	RemoveWindowsForApp(pid int32)
	SetWindowsForApp(layout LayoutID, pid int32, desired []platform.WindowID)
	OnWindowResized(layout LayoutID, wid platform.WindowID, oldFrame, newFrame, screen platform.Rect, gaps Gaps)

	MoveFocus(layout LayoutID, dir Direction) (platform.WindowID, bool)
	AscendSelection(layout LayoutID) bool
	DescendSelection(layout LayoutID) bool
	MoveSelection(layout LayoutID, dir Direction) bool
	JoinSelection(layout LayoutID, dir Direction) bool
	ToggleStack(layout LayoutID) []platform.WindowID
	ToggleOrientation(layout LayoutID)
	UnjoinSelection(layout LayoutID)
	ResizeSelectionBy(layout LayoutID, amount float64)
	ToggleFullscreen(layout LayoutID) []platform.WindowID
	ToggleFullscreenWithinGaps(layout LayoutID) []platform.WindowID
	HasAnyFullscreen(layout LayoutID) bool
	SwapWindows(layout LayoutID, a, b platform.WindowID) bool

	// SelectionPath describes the selection for introspection.
	SelectionPath(layout LayoutID) []string

	document(layout LayoutID) layoutDoc
	restore(doc layoutDoc) LayoutID
}

// Settings groups the strategy tunables the engine hands to new systems.
type Settings struct {
	MasterStack MasterStackSettings
	Scrolling   ScrollingSettings
}

func DefaultSettings() Settings {
	return Settings{
		MasterStack: DefaultMasterStackSettings(),
		Scrolling:   DefaultScrollingSettings(),
	}
}

// NewLayoutSystem builds an empty system for mode.
func NewLayoutSystem(mode LayoutMode, settings Settings) LayoutSystem {
	switch mode {
	case ModeBSP:
		return NewTraditionalSystem(true)
	case ModeMasterStack:
		return NewMasterStackSystem(settings.MasterStack)
	case ModeScrolling:
		return NewScrollingSystem(settings.Scrolling)
	default:
		return NewTraditionalSystem(false)
	}
}

// sortedMerge walks desired and current (both for one app) and reports which
// windows to add and which to remove.
func sortedMerge(desired, current []platform.WindowID) (add, remove []platform.WindowID) {
	d := append([]platform.WindowID(nil), desired...)
	c := append([]platform.WindowID(nil), current...)
	sortWindowIDs(d)
	sortWindowIDs(c)
	i, j := 0, 0
	for i < len(d) || j < len(c) {
		switch {
		case i < len(d) && j < len(c) && d[i] == c[j]:
			i++
			j++
		case j >= len(c) || (i < len(d) && d[i].Less(c[j])):
			if i == 0 || d[i] != d[i-1] {
				add = append(add, d[i])
			}
			i++
		default:
			remove = append(remove, c[j])
			j++
		}
	}
	return add, remove
}
