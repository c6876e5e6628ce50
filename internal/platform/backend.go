package platform

import (
	"fmt"
	"math"
)

// WindowServerID is the window system's own identifier for a window. It is not
// stable across every transition (fullscreen enter/exit can reissue it).
type WindowServerID uint32

// WindowID is the stable identity of a managed window: the owning process and
// a per-process index that is never reused while the process lives.
type WindowID struct {
	PID int32  `json:"pid" yaml:"pid"`
	Idx uint32 `json:"idx" yaml:"idx"`
}

// IsZero reports whether the id is unset.
func (w WindowID) IsZero() bool {
	return w.PID == 0 && w.Idx == 0
}

func (w WindowID) String() string {
	return fmt.Sprintf("%d:%d", w.PID, w.Idx)
}

// Less orders window ids by pid, then index.
func (w WindowID) Less(o WindowID) bool {
	if w.PID != o.PID {
		return w.PID < o.PID
	}
	return w.Idx < o.Idx
}

// SpaceID identifies an OS virtual desktop. NoSpace means the screen is not
// showing a manageable space.
type SpaceID uint64

const NoSpace SpaceID = 0

// Valid reports whether the space id refers to a space.
func (s SpaceID) Valid() bool {
	return s != NoSpace
}

// Point is a position in global screen coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Size is a width/height pair.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// NewRect builds a rect from an origin and a size.
func NewRect(origin Point, size Size) Rect {
	return Rect{X: origin.X, Y: origin.Y, Width: size.Width, Height: size.Height}
}

func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// Max returns the bottom-right corner.
func (r Rect) Max() Point { return Point{X: r.X + r.Width, Y: r.Y + r.Height} }

// Mid returns the center point.
func (r Rect) Mid() Point { return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2} }

func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside r. The right and bottom edges are
// exclusive so adjacent screens never both claim a point.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Intersection returns the overlapping region, or an empty rect.
func (r Rect) Intersection(o Rect) Rect {
	x1 := math.Max(r.X, o.X)
	y1 := math.Max(r.Y, o.Y)
	x2 := math.Min(r.X+r.Width, o.X+o.Width)
	y2 := math.Min(r.Y+r.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Round rounds origin and size independently.
func (r Rect) Round() Rect {
	return Rect{
		X:      math.Round(r.X),
		Y:      math.Round(r.Y),
		Width:  math.Round(r.Width),
		Height: math.Round(r.Height),
	}
}

// Inset shrinks the rect by dx on both horizontal edges and dy on both
// vertical edges. The result never has a negative size.
func (r Rect) Inset(dx, dy float64) Rect {
	out := Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width - 2*dx, Height: r.Height - 2*dy}
	if out.Width < 0 {
		out.Width = 0
	}
	if out.Height < 0 {
		out.Height = 0
	}
	return out
}

// Screen is a snapshot of one physical display.
type Screen struct {
	ID          int     `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	DisplayUUID string  `json:"display_uuid" yaml:"display_uuid"`
	Frame       Rect    `json:"frame" yaml:"frame"`
	Space       SpaceID `json:"space" yaml:"space"`
}

// WindowInfo is what the accessibility side knows about a window.
type WindowInfo struct {
	Title     string         `json:"title"`
	AppID     string         `json:"app_id"`
	Role      string         `json:"role,omitempty"`
	Subrole   string         `json:"subrole,omitempty"`
	Frame     Rect           `json:"frame"`
	Standard  bool           `json:"standard"`
	Resizable bool           `json:"resizable"`
	SysID     WindowServerID `json:"sys_id,omitempty"`
}

// WindowServerInfo is what the window server reports for a window id.
type WindowServerInfo struct {
	ID    WindowServerID `json:"id"`
	PID   int32          `json:"pid"`
	Layer int            `json:"layer"`
	Frame Rect           `json:"frame"`
}

// Frame pairs a window with a target rectangle.
type Frame struct {
	Window WindowID
	SysID  WindowServerID
	Rect   Rect
}

// RaiseRequest asks the raise executor to bring windows forward and,
// optionally, focus one of them.
type RaiseRequest struct {
	Sequence uint64
	// Raise holds one group per application and space, in raise order.
	Raise    [][]WindowID
	Focus    WindowID
	HasFocus bool
	// FocusServerID focuses a window the core does not track.
	FocusServerID WindowServerID
	Warp          *Point
}

// Animator applies computed target rectangles to on-screen windows.
type Animator interface {
	Apply(frames []Frame) error
}

// RaiseExecutor raises and focuses windows, and can warp the cursor.
type RaiseExecutor interface {
	Raise(req RaiseRequest) error
	WarpPointer(p Point) error
}

// WindowServer answers authoritative questions about live window state.
type WindowServer interface {
	VisibleWindows() ([]WindowServerInfo, error)
	Window(id WindowServerID) (WindowServerInfo, bool)
	WindowSpace(id WindowServerID) (SpaceID, bool)
	SpaceIsUser(space SpaceID) bool
	SpaceIsFullscreen(space SpaceID) bool
	WindowUnderCursor() (WindowServerID, bool)
	CursorPosition() (Point, bool)
}
