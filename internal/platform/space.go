package platform

import "github.com/google/uuid"

// X11 has one desktop number for all monitors. Each (desktop, monitor) pair
// becomes its own space so layouts stay per screen.
const spaceScreenBits = 8

// DesktopSpace returns the space shown by screen while desktop is current.
func DesktopSpace(desktop, screen int) SpaceID {
	if desktop < 0 || screen < 0 || screen >= 1<<spaceScreenBits {
		return NoSpace
	}
	return SpaceID(uint64(desktop+1)<<spaceScreenBits | uint64(screen))
}

// SplitDesktopSpace is the inverse of DesktopSpace.
func SplitDesktopSpace(s SpaceID) (desktop, screen int, ok bool) {
	if !s.Valid() {
		return 0, 0, false
	}
	desktop = int(uint64(s)>>spaceScreenBits) - 1
	screen = int(uint64(s) & (1<<spaceScreenBits - 1))
	if desktop < 0 {
		return 0, 0, false
	}
	return desktop, screen, true
}

// DisplayUUID derives a stable identifier for a display from its output
// name, so per-display settings survive reconnects.
func DisplayUUID(output string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("x11:output:"+output)).String()
}

// screenForRect returns the screen holding the center of r, else the one
// it overlaps most.
func screenForRect(screens []Rect, r Rect) (int, bool) {
	center := r.Mid()
	for i, s := range screens {
		if s.Contains(center) {
			return i, true
		}
	}
	best, bestArea := -1, 0.0
	for i, s := range screens {
		if area := s.Intersection(r).Area(); area > bestArea {
			best, bestArea = i, area
		}
	}
	return best, best >= 0
}
