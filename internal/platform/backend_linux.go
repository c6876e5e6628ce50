//go:build linux

package platform

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/1broseidon/spacetile/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// LinuxBackend drives an X11 session through EWMH. It implements
// WindowServer, Animator and RaiseExecutor.
type LinuxBackend struct {
	conn *x11.Connection

	mu       sync.Mutex
	monitors []x11.Monitor

	// OnRaised is called after a raise request has been carried out. It
	// runs on the caller's goroutine and must not block.
	OnRaised func(seq uint64)
}

var (
	_ WindowServer  = (*LinuxBackend)(nil)
	_ Animator      = (*LinuxBackend)(nil)
	_ RaiseExecutor = (*LinuxBackend)(nil)
)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Connection exposes the X11 connection for the event source.
func (b *LinuxBackend) Connection() *x11.Connection {
	return b.conn
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// Screens re-reads the monitor layout. Each screen's frame is the area left
// after dock struts and its space is the current desktop on that screen.
func (b *LinuxBackend) Screens() ([]Screen, error) {
	monitors, err := b.conn.UsableMonitors()
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.monitors = monitors
	b.mu.Unlock()

	spaces := b.spacesFor(len(monitors))
	screens := make([]Screen, len(monitors))
	for i, m := range monitors {
		screens[i] = Screen{
			ID:          i,
			Name:        m.Name,
			DisplayUUID: DisplayUUID(m.Name),
			Frame:       monitorRect(m),
			Space:       spaces[i],
		}
	}
	return screens, nil
}

// Spaces returns the space each known screen shows, in screen order.
func (b *LinuxBackend) Spaces() []SpaceID {
	b.mu.Lock()
	n := len(b.monitors)
	b.mu.Unlock()
	return b.spacesFor(n)
}

func (b *LinuxBackend) spacesFor(n int) []SpaceID {
	spaces := make([]SpaceID, n)
	desktop, err := b.conn.GetCurrentDesktop()
	if err != nil {
		return spaces
	}
	for i := range spaces {
		spaces[i] = DesktopSpace(desktop, i)
	}
	return spaces
}

func (b *LinuxBackend) screenRects() []Rect {
	b.mu.Lock()
	defer b.mu.Unlock()
	rects := make([]Rect, len(b.monitors))
	for i, m := range b.monitors {
		rects[i] = monitorRect(m)
	}
	return rects
}

func (b *LinuxBackend) visibleClient(c x11.Client, desktop int) bool {
	if !c.Normal || c.Hidden {
		return false
	}
	return c.Desktop == desktop || c.Desktop == -1
}

func serverInfo(c x11.Client) WindowServerInfo {
	return WindowServerInfo{
		ID:    WindowServerID(c.ID),
		PID:   c.PID,
		Frame: geometryRect(c.Geometry),
	}
}

// VisibleWindows lists normal windows on the current desktop, bottom of the
// stack first.
func (b *LinuxBackend) VisibleWindows() ([]WindowServerInfo, error) {
	ids, err := b.conn.ClientList()
	if err != nil {
		return nil, err
	}
	desktop, err := b.conn.GetCurrentDesktop()
	if err != nil {
		return nil, err
	}
	out := make([]WindowServerInfo, 0, len(ids))
	for _, id := range ids {
		c, err := b.conn.Client(id)
		if err != nil || !b.visibleClient(c, desktop) {
			continue
		}
		out = append(out, serverInfo(c))
	}
	return out, nil
}

func (b *LinuxBackend) Window(id WindowServerID) (WindowServerInfo, bool) {
	c, err := b.conn.Client(xproto.Window(id))
	if err != nil {
		return WindowServerInfo{}, false
	}
	return serverInfo(c), true
}

// WindowSpace places a window on the screen holding its center, falling
// back to the screen it overlaps most.
func (b *LinuxBackend) WindowSpace(id WindowServerID) (SpaceID, bool) {
	c, err := b.conn.Client(xproto.Window(id))
	if err != nil {
		return NoSpace, false
	}
	desktop := c.Desktop
	if desktop < 0 {
		if desktop, err = b.conn.GetCurrentDesktop(); err != nil {
			return NoSpace, false
		}
	}
	screen, ok := screenForRect(b.screenRects(), geometryRect(c.Geometry))
	if !ok {
		return NoSpace, false
	}
	return DesktopSpace(desktop, screen), true
}

func (b *LinuxBackend) SpaceIsUser(space SpaceID) bool {
	desktop, _, ok := SplitDesktopSpace(space)
	if !ok {
		return false
	}
	count, err := b.conn.GetDesktopCount()
	if err != nil {
		return true
	}
	return desktop < count
}

// SpaceIsFullscreen is always false: X11 fullscreen windows stay on their
// desktop instead of getting a space of their own.
func (b *LinuxBackend) SpaceIsFullscreen(SpaceID) bool {
	return false
}

// WindowUnderCursor returns the topmost visible window containing the
// pointer.
func (b *LinuxBackend) WindowUnderCursor() (WindowServerID, bool) {
	p, ok := b.CursorPosition()
	if !ok {
		return 0, false
	}
	windows, err := b.VisibleWindows()
	if err != nil {
		return 0, false
	}
	for i := len(windows) - 1; i >= 0; i-- {
		if windows[i].Frame.Contains(p) {
			return windows[i].ID, true
		}
	}
	return 0, false
}

func (b *LinuxBackend) CursorPosition() (Point, bool) {
	x, y, _, err := b.conn.PointerPosition()
	if err != nil {
		return Point{}, false
	}
	return Point{X: float64(x), Y: float64(y)}, true
}

// Apply moves every window to its target frame. Failures are collected so
// one dead window does not stop the rest.
func (b *LinuxBackend) Apply(frames []Frame) error {
	var errs []error
	for _, f := range frames {
		id := xproto.Window(f.SysID)
		if id == 0 {
			id = xproto.Window(f.Window.Idx)
		}
		r := f.Rect.Round()
		if err := b.conn.MoveResizeWindow(id, int(r.X), int(r.Y), int(r.Width), int(r.Height)); err != nil {
			errs = append(errs, fmt.Errorf("window %s: %w", f.Window, err))
		}
	}
	return errors.Join(errs...)
}

// Raise restacks each group in order and then focuses the requested window.
func (b *LinuxBackend) Raise(req RaiseRequest) error {
	var errs []error
	for _, group := range req.Raise {
		for _, w := range group {
			if err := b.conn.RaiseWindow(xproto.Window(w.Idx)); err != nil {
				errs = append(errs, fmt.Errorf("raise %s: %w", w, err))
			}
		}
	}
	switch {
	case req.HasFocus:
		if err := b.conn.FocusWindow(req.Focus.Idx); err != nil {
			errs = append(errs, fmt.Errorf("focus %s: %w", req.Focus, err))
		}
	case req.FocusServerID != 0:
		if err := b.conn.FocusWindow(uint32(req.FocusServerID)); err != nil {
			errs = append(errs, fmt.Errorf("focus %d: %w", req.FocusServerID, err))
		}
	}
	if req.Warp != nil {
		if err := b.WarpPointer(*req.Warp); err != nil {
			errs = append(errs, err)
		}
	}
	if b.OnRaised != nil {
		b.OnRaised(req.Sequence)
	}
	return errors.Join(errs...)
}

func (b *LinuxBackend) WarpPointer(p Point) error {
	return b.conn.WarpPointer(int(math.Round(p.X)), int(math.Round(p.Y)))
}
