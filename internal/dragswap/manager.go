package dragswap

import "github.com/1broseidon/spacetile/internal/platform"

// DefaultOverlapThreshold is the share of the smaller window's area that
// must be covered before a candidate becomes a swap target.
const DefaultOverlapThreshold = 0.3

// Settings configures drag swapping.
type Settings struct {
	Enabled bool
	// OverlapThreshold is in (0, 1].
	OverlapThreshold float64
}

func DefaultSettings() Settings {
	return Settings{Enabled: true, OverlapThreshold: DefaultOverlapThreshold}
}

// Candidate is a tiled window the dragged window may be swapped with.
type Candidate struct {
	Window platform.WindowID
	Frame  platform.Rect
}

// Manager tracks swap candidates for the window being dragged.
type Manager struct {
	settings    Settings
	dragged     platform.WindowID
	originFrame platform.Rect
	hasOrigin   bool
	lastTarget  platform.WindowID
}

func NewManager(settings Settings) *Manager {
	return &Manager{settings: normalize(settings)}
}

func normalize(s Settings) Settings {
	if s.OverlapThreshold <= 0 || s.OverlapThreshold > 1 {
		s.OverlapThreshold = DefaultOverlapThreshold
	}
	return s
}

func (m *Manager) UpdateSettings(s Settings) {
	m.settings = normalize(s)
	if !m.settings.Enabled {
		m.Reset()
	}
}

func (m *Manager) Settings() Settings { return m.settings }

// Dragged returns the window being tracked.
func (m *Manager) Dragged() (platform.WindowID, bool) {
	return m.dragged, !m.dragged.IsZero()
}

// OriginFrame returns the frame the dragged window had when tracking began.
func (m *Manager) OriginFrame() (platform.Rect, bool) {
	return m.originFrame, m.hasOrigin
}

// LastTarget returns the current swap target.
func (m *Manager) LastTarget() (platform.WindowID, bool) {
	return m.lastTarget, !m.lastTarget.IsZero()
}

// Reset forgets the dragged window and any target.
func (m *Manager) Reset() {
	m.dragged = platform.WindowID{}
	m.originFrame = platform.Rect{}
	m.hasOrigin = false
	m.lastTarget = platform.WindowID{}
}

// OnFrameChange evaluates frame against candidates. It returns a target
// only when it differs from the previous one; LastTarget always reflects
// the current best candidate, or nothing once overlap ends.
func (m *Manager) OnFrameChange(wid platform.WindowID, frame platform.Rect, candidates []Candidate) (platform.WindowID, bool) {
	if !m.settings.Enabled {
		return platform.WindowID{}, false
	}
	if m.dragged != wid {
		m.Reset()
		m.dragged = wid
		m.originFrame = frame
		m.hasOrigin = true
	}

	best, ok := BestCandidate(frame, candidates, m.settings.OverlapThreshold)
	if !ok {
		m.lastTarget = platform.WindowID{}
		return platform.WindowID{}, false
	}
	if best == m.lastTarget {
		return platform.WindowID{}, false
	}
	m.lastTarget = best
	return best, true
}

// BestCandidate picks the candidate with the largest overlap ratio at or
// above threshold. The ratio is the intersection area over the smaller of
// the two areas. Earlier candidates win ties.
func BestCandidate(frame platform.Rect, candidates []Candidate, threshold float64) (platform.WindowID, bool) {
	var best platform.WindowID
	bestRatio := 0.0
	for _, c := range candidates {
		ratio := OverlapRatio(frame, c.Frame)
		if ratio < threshold || ratio <= bestRatio {
			continue
		}
		best, bestRatio = c.Window, ratio
	}
	return best, !best.IsZero()
}

// OverlapRatio returns how much of the smaller rect a and b share.
func OverlapRatio(a, b platform.Rect) float64 {
	inter := a.Intersection(b).Area()
	if inter <= 0 {
		return 0
	}
	smaller := a.Area()
	if ba := b.Area(); ba < smaller {
		smaller = ba
	}
	if smaller <= 0 {
		return 0
	}
	return inter / smaller
}
