package tiling

import (
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/spacetile/internal/platform"
)

// Direction is a navigation or movement direction.
type Direction int

const (
	DirLeft Direction = iota
	DirRight
	DirUp
	DirDown
)

func (d Direction) String() string {
	switch d {
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	default:
		return "unknown"
	}
}

// ParseDirection parses left/right/up/down.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l", "west":
		return DirLeft, nil
	case "right", "r", "east":
		return DirRight, nil
	case "up", "u", "north":
		return DirUp, nil
	case "down", "d", "south":
		return DirDown, nil
	}
	return DirLeft, fmt.Errorf("unknown direction %q", s)
}

// Orientation returns the axis the direction moves along.
func (d Direction) Orientation() Orientation {
	if d == DirLeft || d == DirRight {
		return Horizontal
	}
	return Vertical
}

// Forward reports whether the direction moves toward higher indices.
func (d Direction) Forward() bool {
	return d == DirRight || d == DirDown
}

func (d Direction) Opposite() Direction {
	switch d {
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	case DirUp:
		return DirDown
	default:
		return DirUp
	}
}

// Orientation is the split axis of a container.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

func (o Orientation) Flip() Orientation {
	if o == Vertical {
		return Horizontal
	}
	return Vertical
}

// LayoutMode names a tiling strategy.
type LayoutMode string

const (
	ModeTraditional LayoutMode = "traditional"
	ModeBSP         LayoutMode = "bsp"
	ModeMasterStack LayoutMode = "master_stack"
	ModeScrolling   LayoutMode = "scrolling"
)

// ParseLayoutMode accepts the canonical names plus a few aliases.
func ParseLayoutMode(s string) (LayoutMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "traditional", "tree", "i3":
		return ModeTraditional, nil
	case "bsp":
		return ModeBSP, nil
	case "master_stack", "master-stack", "masterstack":
		return ModeMasterStack, nil
	case "scrolling", "scroll", "niri":
		return ModeScrolling, nil
	}
	return ModeTraditional, fmt.Errorf("unknown layout mode %q", s)
}

// LayoutID addresses one layout instance inside a layout system.
type LayoutID uint64

// VirtualWorkspaceID addresses a virtual workspace. Ids are never reused.
type VirtualWorkspaceID uint64

// Gaps are the spacing rules applied when computing frames.
type Gaps struct {
	OuterX float64 `json:"outer_x" yaml:"outer_x"`
	OuterY float64 `json:"outer_y" yaml:"outer_y"`
	InnerX float64 `json:"inner_x" yaml:"inner_x"`
	InnerY float64 `json:"inner_y" yaml:"inner_y"`
}

// TilingArea is the screen minus the outer gaps.
func (g Gaps) TilingArea(screen platform.Rect) platform.Rect {
	return screen.Inset(g.OuterX, g.OuterY)
}

// WindowFrame is a computed target rectangle for a window.
type WindowFrame struct {
	Window platform.WindowID `json:"window"`
	Rect   platform.Rect     `json:"rect"`
}

// EventResponse is what every layout mutation reports back to the reactor.
type EventResponse struct {
	RaiseWindows []platform.WindowID
	FocusWindow  platform.WindowID
	HasFocus     bool
	BoundaryHit  *Direction
}

func focusResponse(wid platform.WindowID) EventResponse {
	return EventResponse{FocusWindow: wid, HasFocus: true}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sortWindowIDs(ids []platform.WindowID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

func containsWindow(ids []platform.WindowID, wid platform.WindowID) bool {
	for _, id := range ids {
		if id == wid {
			return true
		}
	}
	return false
}
