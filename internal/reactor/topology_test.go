package reactor

import (
	"testing"
	"time"

	"github.com/1broseidon/spacetile/internal/platform"
)

func TestTopologyManager_Lifecycle(t *testing.T) {
	var tm TopologyManager
	now := time.Unix(100, 0)

	if tm.Quarantining() {
		t.Fatal("new manager quarantines")
	}
	if _, ok := tm.End(); ok {
		t.Fatal("End on a stable manager succeeded")
	}

	e1 := tm.Begin([]platform.WindowServerID{1, 2}, now)
	if tm.Phase() != TopologyChurning || !tm.Quarantining() {
		t.Fatalf("phase = %v", tm.Phase())
	}
	// a second begin keeps the original snapshot
	e2 := tm.Begin([]platform.WindowServerID{3}, now.Add(time.Second))
	if e2 <= e1 {
		t.Fatalf("epoch did not advance: %d then %d", e1, e2)
	}
	tm.Mark(DisplayAdded)
	tm.Mark(DisplayResized)

	if _, ok := tm.TakeCommit(now); ok {
		t.Fatal("commit taken while churning")
	}
	e3, ok := tm.End()
	if !ok || tm.Phase() != TopologyAwaitingCommit {
		t.Fatalf("End = %d, %v; phase %v", e3, ok, tm.Phase())
	}
	if !tm.Stale(e2) || tm.Stale(e3) {
		t.Fatal("staleness not tracked by epoch")
	}

	c, ok := tm.TakeCommit(now.Add(2 * time.Second))
	if !ok {
		t.Fatal("no commit while awaiting")
	}
	if len(c.PreKnown) != 2 {
		t.Errorf("pre-known = %v, want the first snapshot", c.PreKnown)
	}
	if c.Flags != DisplayAdded|DisplayResized {
		t.Errorf("flags = %b", c.Flags)
	}
	if c.Duration != 2*time.Second {
		t.Errorf("duration = %v", c.Duration)
	}
	if tm.Phase() != TopologyStable || tm.Quarantining() {
		t.Errorf("phase after commit = %v", tm.Phase())
	}
}

func TestTopologyManager_Hold(t *testing.T) {
	var tm TopologyManager
	tm.Begin(nil, time.Now())

	tests := []struct {
		ev   Event
		kept bool
	}{
		{WindowServerAppeared{SysID: 1}, true},
		{WindowServerDestroyed{SysID: 2}, true},
		{ResyncAppForWindow{SysID: 3}, true},
		{WindowFrameChanged{}, false},
		{WindowTitleChanged{}, false},
	}
	for _, tt := range tests {
		if got := tm.Hold(tt.ev); got != tt.kept {
			t.Errorf("Hold(%T) = %v, want %v", tt.ev, got, tt.kept)
		}
	}
	if tm.Held() != 3 {
		t.Fatalf("held = %d, want 3", tm.Held())
	}

	tm.End()
	c, _ := tm.TakeCommit(time.Now())
	if len(c.Replay) != 3 || c.Dropped != 2 {
		t.Fatalf("replay = %d dropped = %d", len(c.Replay), c.Dropped)
	}
	if _, ok := c.Replay[0].(WindowServerAppeared); !ok {
		t.Errorf("replay order lost: first is %T", c.Replay[0])
	}
}

func TestTopologyManager_MarkIgnoredWhenStable(t *testing.T) {
	var tm TopologyManager
	tm.Mark(DisplayRemoved)
	if tm.Flags() != 0 {
		t.Fatalf("flags = %b, want 0", tm.Flags())
	}
}

func TestAllowedDuringChurn(t *testing.T) {
	allowed := []Event{
		DisplayChurnBegin{}, DisplayChurnEnd{}, ScreenParametersChanged{}, SpaceChanged{},
		ApplicationLaunched{}, Command{}, RaiseCompleted{}, query{},
	}
	for _, ev := range allowed {
		if !allowedDuringChurn(ev) {
			t.Errorf("%T should be allowed during churn", ev)
		}
	}
	blocked := []Event{WindowServerAppeared{}, WindowFrameChanged{}, MouseUp{}, WindowCreated{}}
	for _, ev := range blocked {
		if allowedDuringChurn(ev) {
			t.Errorf("%T should be quarantined", ev)
		}
	}
}
