package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// Geometry is a window rectangle in root coordinates, including the frame
// the window manager draws around it.
type Geometry struct {
	X, Y, Width, Height int
}

// Client is what the window manager reports about a managed window.
type Client struct {
	ID         xproto.Window
	PID        int32
	Class      string
	Title      string
	Desktop    int // -1 when sticky
	Geometry   Geometry
	Normal     bool
	Resizable  bool
	Hidden     bool
	Fullscreen bool
}

// MoveResizeWindow moves and resizes a window so that its frame covers the
// given geometry.
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// Maximized windows ignore move requests in most window managers.
	if err := c.unmaximizeWindow(windowID); err != nil {
		// Some windows do not expose _NET_WM_STATE; move them anyway.
	}

	win := xwindow.New(c.XUtil, windowID)

	// WMMoveResize accounts for decorations so the frame lands on the
	// requested rectangle.
	if err := win.WMMoveResize(x, y, width, height); err != nil {
		// Fallback to direct window manipulation
		win.MoveResize(x, y, width, height)
	}
	return nil
}

// unmaximizeWindow removes maximized state from a window
func (c *Connection) unmaximizeWindow(windowID xproto.Window) error {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return err
	}

	for _, state := range states {
		if state == "_NET_WM_STATE_MAXIMIZED_HORZ" || state == "_NET_WM_STATE_MAXIMIZED_VERT" {
			ewmh.WmStateReq(c.XUtil, windowID, ewmh.StateRemove, state)
		}
	}
	return nil
}

// RaiseWindow restacks a window above its siblings.
func (c *Connection) RaiseWindow(windowID xproto.Window) error {
	frame, err := xwindow.New(c.XUtil, windowID).Parent()
	target := windowID
	if err == nil && frame != nil && frame.Id != c.Root {
		target = frame.Id
	}
	return xproto.ConfigureWindowChecked(c.XUtil.Conn(), target,
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove}).Check()
}

// WindowGeometry returns the frame geometry of a window.
func (c *Connection) WindowGeometry(windowID xproto.Window) (Geometry, error) {
	rect, err := xwindow.New(c.XUtil, windowID).DecorGeometry()
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{X: rect.X(), Y: rect.Y(), Width: rect.Width(), Height: rect.Height()}, nil
}

// GetFrameExtents returns the window decoration sizes (if available)
func (c *Connection) GetFrameExtents(windowID xproto.Window) (left, right, top, bottom int, err error) {
	extents, err := ewmh.FrameExtentsGet(c.XUtil, windowID)
	if err != nil {
		// No frame extents available, return zeros
		return 0, 0, 0, 0, nil
	}

	return int(extents.Left), int(extents.Right), int(extents.Top), int(extents.Bottom), nil
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}
	return normalWindowType(types)
}

func normalWindowType(types []string) bool {
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION",
			"_NET_WM_WINDOW_TYPE_DIALOG",
			"_NET_WM_WINDOW_TYPE_UTILITY",
			"_NET_WM_WINDOW_TYPE_TOOLBAR",
			"_NET_WM_WINDOW_TYPE_MENU":
			return false
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

// IsResizable reports whether the window's size hints allow resizing.
func (c *Connection) IsResizable(windowID xproto.Window) bool {
	hints, err := icccm.WmNormalHintsGet(c.XUtil, windowID)
	if err != nil {
		return true
	}
	fixed := hints.Flags&icccm.SizeHintPMinSize != 0 && hints.Flags&icccm.SizeHintPMaxSize != 0 &&
		hints.MinWidth == hints.MaxWidth && hints.MinHeight == hints.MaxHeight
	return !fixed
}

func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

// ClientList returns managed windows in stacking order, bottom first. It
// falls back to mapping order when the stacking list is unavailable.
func (c *Connection) ClientList() ([]xproto.Window, error) {
	if clients, err := ewmh.ClientListStackingGet(c.XUtil); err == nil {
		return clients, nil
	}
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}
	return clients, nil
}

// Client gathers everything the daemon needs about one window.
func (c *Connection) Client(windowID xproto.Window) (Client, error) {
	geom, err := c.WindowGeometry(windowID)
	if err != nil {
		return Client{}, fmt.Errorf("window %d: %w", windowID, err)
	}
	client := Client{
		ID:        windowID,
		Geometry:  geom,
		Class:     c.windowClass(windowID),
		Title:     c.WindowTitle(windowID),
		Normal:    c.IsNormalWindow(windowID),
		Resizable: c.IsResizable(windowID),
		Desktop:   -1,
	}
	if pid, err := ewmh.WmPidGet(c.XUtil, windowID); err == nil {
		client.PID = int32(pid)
	}
	if desktop, err := c.GetWindowDesktop(uint32(windowID)); err == nil {
		client.Desktop = desktop
	}
	if states, err := ewmh.WmStateGet(c.XUtil, windowID); err == nil {
		for _, state := range states {
			switch state {
			case "_NET_WM_STATE_HIDDEN":
				client.Hidden = true
			case "_NET_WM_STATE_FULLSCREEN":
				client.Fullscreen = true
			}
		}
	}
	return client, nil
}

func (c *Connection) windowClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

// WindowTitle prefers _NET_WM_NAME and falls back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(c.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(c.XUtil, windowID)
	if err == nil {
		return strings.TrimSpace(title)
	}
	return ""
}

// Clients returns every managed normal window, bottom of the stack first.
// Windows that vanish while being read are skipped.
func (c *Connection) Clients() ([]Client, error) {
	ids, err := c.ClientList()
	if err != nil {
		return nil, err
	}
	out := make([]Client, 0, len(ids))
	for _, id := range ids {
		client, err := c.Client(id)
		if err != nil || !client.Normal {
			continue
		}
		out = append(out, client)
	}
	return out, nil
}
