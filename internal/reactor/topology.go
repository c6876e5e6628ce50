package reactor

import (
	"time"

	"github.com/1broseidon/spacetile/internal/platform"
)

// TopologyPhase is the state of the display topology manager.
type TopologyPhase int

const (
	TopologyStable TopologyPhase = iota
	TopologyChurning
	TopologyAwaitingCommit
)

func (p TopologyPhase) String() string {
	switch p {
	case TopologyStable:
		return "stable"
	case TopologyChurning:
		return "churning"
	case TopologyAwaitingCommit:
		return "awaiting_commit"
	default:
		return "unknown"
	}
}

// ReconfigFlags accumulates what changed during a churn period.
type ReconfigFlags uint8

const (
	DisplayAdded ReconfigFlags = 1 << iota
	DisplayRemoved
	DisplayReordered
	DisplayResized
	DisplaySpaceChanged
)

// TopologyManager tracks display churn. While churning or awaiting a
// commit, window-server events are held back and the set of window ids
// known before the churn is kept for diffing.
type TopologyManager struct {
	phase     TopologyPhase
	epoch     uint64
	flags     ReconfigFlags
	startedAt time.Time
	preKnown  map[platform.WindowServerID]struct{}
	held      []Event
	dropped   int
}

// Phase returns the current phase.
func (t *TopologyManager) Phase() TopologyPhase { return t.phase }

// Epoch returns the current churn epoch. It advances on every begin and
// end, and wraps.
func (t *TopologyManager) Epoch() uint64 { return t.epoch }

func (t *TopologyManager) Flags() ReconfigFlags { return t.flags }

// Quarantining reports whether window-server events must be held back.
func (t *TopologyManager) Quarantining() bool {
	return t.phase != TopologyStable
}

// Stale reports whether a callback issued for epoch is out of date.
func (t *TopologyManager) Stale(epoch uint64) bool {
	return epoch != t.epoch
}

// Begin enters the churning phase. known is the set of window-server ids
// the reactor knew about just before. A begin while already churning keeps
// the original snapshot.
func (t *TopologyManager) Begin(known []platform.WindowServerID, now time.Time) uint64 {
	t.epoch++
	if t.phase == TopologyStable {
		t.preKnown = make(map[platform.WindowServerID]struct{}, len(known))
		for _, id := range known {
			t.preKnown[id] = struct{}{}
		}
		t.flags = 0
		t.startedAt = now
		t.held = nil
		t.dropped = 0
	}
	t.phase = TopologyChurning
	return t.epoch
}

// End moves a churning manager to awaiting commit. It is a no-op when
// stable.
func (t *TopologyManager) End() (uint64, bool) {
	if t.phase == TopologyStable {
		return t.epoch, false
	}
	t.epoch++
	t.phase = TopologyAwaitingCommit
	return t.epoch, true
}

// Mark records reconfiguration flags for the current period.
func (t *TopologyManager) Mark(f ReconfigFlags) {
	if t.phase != TopologyStable {
		t.flags |= f
	}
}

// Hold quarantines ev. Events that are not worth replaying are counted and
// dropped. It reports whether ev was kept.
func (t *TopologyManager) Hold(ev Event) bool {
	if bufferedDuringChurn(ev) {
		t.held = append(t.held, ev)
		return true
	}
	t.dropped++
	return false
}

// Held returns the number of buffered events.
func (t *TopologyManager) Held() int { return len(t.held) }

// Commit is the outcome of a churn period.
type Commit struct {
	Epoch    uint64
	Flags    ReconfigFlags
	Duration time.Duration
	PreKnown map[platform.WindowServerID]struct{}
	Replay   []Event
	Dropped  int
}

// TakeCommit ends the period when awaiting commit and returns what the
// reactor needs to reconcile. The manager is stable afterwards.
func (t *TopologyManager) TakeCommit(now time.Time) (Commit, bool) {
	if t.phase != TopologyAwaitingCommit {
		return Commit{}, false
	}
	c := Commit{
		Epoch:    t.epoch,
		Flags:    t.flags,
		Duration: now.Sub(t.startedAt),
		PreKnown: t.preKnown,
		Replay:   t.held,
		Dropped:  t.dropped,
	}
	t.phase = TopologyStable
	t.preKnown = nil
	t.held = nil
	t.flags = 0
	t.dropped = 0
	return c, true
}
