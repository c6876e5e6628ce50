package platform

import "github.com/1broseidon/spacetile/internal/x11"

func monitorRect(m x11.Monitor) Rect {
	return Rect{X: float64(m.X), Y: float64(m.Y), Width: float64(m.Width), Height: float64(m.Height)}
}

func geometryRect(g x11.Geometry) Rect {
	return Rect{X: float64(g.X), Y: float64(g.Y), Width: float64(g.Width), Height: float64(g.Height)}
}

// ClientInfo converts an X client into what applications report about
// their windows.
func ClientInfo(c x11.Client) WindowInfo {
	return WindowInfo{
		Title:     c.Title,
		AppID:     c.Class,
		Frame:     geometryRect(c.Geometry),
		Standard:  c.Normal,
		Resizable: c.Resizable,
		SysID:     WindowServerID(c.ID),
	}
}

// ClientWindowID is the stable id of an X client. X window ids are not
// reused while the owning process keeps the window.
func ClientWindowID(c x11.Client) WindowID {
	return WindowID{PID: c.PID, Idx: uint32(c.ID)}
}
