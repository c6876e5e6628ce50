package dragswap

import "github.com/1broseidon/spacetile/internal/platform"

// Phase is the phase of the drag state machine.
type Phase int

const (
	// PhaseInactive means no window is being dragged.
	PhaseInactive Phase = iota
	// PhaseActive means a window is being dragged with the mouse down.
	PhaseActive
	// PhasePendingSwap means the dragged window overlaps a swap target and
	// the swap will be applied on mouse-up.
	PhasePendingSwap
)

func (p Phase) String() string {
	switch p {
	case PhaseInactive:
		return "inactive"
	case PhaseActive:
		return "active"
	case PhasePendingSwap:
		return "pending_swap"
	default:
		return "unknown"
	}
}

// Session tracks one drag of one window.
type Session struct {
	Window    platform.WindowID
	LastFrame platform.Rect
	// OriginSpace is where the drag started; NoSpace if unresolved.
	OriginSpace platform.SpaceID
	// SettledSpace is the space the window currently resolves to.
	SettledSpace platform.SpaceID
	// LayoutDirty is set once the frame or settled space has changed.
	LayoutDirty bool
}

// State holds the drag state machine.
type State struct {
	phase   Phase
	session Session
	target  platform.WindowID
}

func (s *State) Phase() Phase { return s.phase }

// InDrag reports whether a drag is in progress.
func (s *State) InDrag() bool { return s.phase != PhaseInactive }

// Session returns the current session, if any.
func (s *State) Session() (*Session, bool) {
	if s.phase == PhaseInactive {
		return nil, false
	}
	return &s.session, true
}

// ActiveSession returns the session only while no swap is pending.
func (s *State) ActiveSession() (*Session, bool) {
	if s.phase != PhaseActive {
		return nil, false
	}
	return &s.session, true
}

// PendingSwap returns the dragged window and its recorded swap target.
func (s *State) PendingSwap() (dragged, target platform.WindowID, ok bool) {
	if s.phase != PhasePendingSwap {
		return platform.WindowID{}, platform.WindowID{}, false
	}
	return s.session.Window, s.target, true
}

// Begin starts a session for wid unless one is already running for it.
// It reports whether a new session was created.
func (s *State) Begin(wid platform.WindowID, frame platform.Rect, origin platform.SpaceID) bool {
	if s.phase != PhaseInactive && s.session.Window == wid {
		return false
	}
	s.phase = PhaseActive
	s.session = Session{Window: wid, LastFrame: frame, OriginSpace: origin, SettledSpace: origin}
	s.target = platform.WindowID{}
	return true
}

// Update records a new frame and resolved space for the dragged window. It
// reports whether the settled space changed.
func (s *State) Update(wid platform.WindowID, frame platform.Rect, resolved platform.SpaceID) bool {
	if s.phase == PhaseInactive || s.session.Window != wid {
		return false
	}
	if s.session.LastFrame != frame {
		s.session.LastFrame = frame
		s.session.LayoutDirty = true
	}
	if s.session.SettledSpace == resolved {
		return false
	}
	s.session.SettledSpace = resolved
	s.session.LayoutDirty = true
	return true
}

// SetPendingSwap moves the session to PendingSwap with target.
func (s *State) SetPendingSwap(target platform.WindowID) bool {
	if s.phase == PhaseInactive {
		return false
	}
	s.phase = PhasePendingSwap
	s.target = target
	return true
}

// ClearPendingSwap returns a pending swap to Active.
func (s *State) ClearPendingSwap() {
	if s.phase == PhasePendingSwap {
		s.phase = PhaseActive
		s.target = platform.WindowID{}
	}
}

// Take ends the drag and returns its session and pending target, if any.
func (s *State) Take() (Session, platform.WindowID, bool) {
	if s.phase == PhaseInactive {
		return Session{}, platform.WindowID{}, false
	}
	session, target := s.session, s.target
	s.Reset()
	return session, target, true
}

// Reset returns the machine to Inactive.
func (s *State) Reset() {
	s.phase = PhaseInactive
	s.session = Session{}
	s.target = platform.WindowID{}
}
