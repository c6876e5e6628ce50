package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestReactor_SnapshotTracksCounters(t *testing.T) {
	m := NewReactor()
	m.RecordEvent("space_changed", time.Millisecond)
	m.RecordEvent("space_changed", time.Millisecond)
	m.RecordEvent("command", time.Millisecond)
	m.RecordQuarantined("window_server_appeared")
	m.RecordBatch(3)
	m.RecordBatch(1)
	m.RecordRelayout(4)
	m.RecordCommit(2, 1)

	snap := m.Snapshot()
	if snap.Events != 3 {
		t.Fatalf("Events = %d, want 3", snap.Events)
	}
	if snap.EventsByKind["space_changed"] != 2 {
		t.Errorf("space_changed = %d, want 2", snap.EventsByKind["space_changed"])
	}
	if snap.Batches != 2 || snap.LargestBatch != 3 {
		t.Errorf("batches = %d largest = %d, want 2 and 3", snap.Batches, snap.LargestBatch)
	}
	if snap.FramesApplied != 4 || snap.Relayouts != 1 {
		t.Errorf("relayouts = %d frames = %d", snap.Relayouts, snap.FramesApplied)
	}
	if snap.SyntheticAppear != 2 || snap.SyntheticDestroy != 1 || snap.ChurnCommits != 1 {
		t.Errorf("commit counters = %+v", snap)
	}

	body := scrape(t, m)
	for _, want := range []string{
		`spacetile_reactor_events_total{kind="space_changed"} 2`,
		`spacetile_reactor_quarantined_events_total{kind="window_server_appeared"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestReactor_SnapshotIsCopy(t *testing.T) {
	m := NewReactor()
	m.RecordEvent("a", 0)
	snap := m.Snapshot()
	snap.EventsByKind["a"] = 99
	if m.Snapshot().EventsByKind["a"] != 1 {
		t.Fatal("snapshot map aliases internal state")
	}
}

func TestReactor_IndependentRegistries(t *testing.T) {
	a := NewReactor()
	b := NewReactor()
	a.RecordPanic()
	if !strings.Contains(scrape(t, b), "spacetile_reactor_panics_total 0") {
		t.Fatal("second registry saw the first one's panic")
	}
}

func TestReactor_Handler(t *testing.T) {
	m := NewReactor()
	m.RecordRelayout(2)

	body := scrape(t, m)
	if !strings.Contains(body, "spacetile_reactor_relayouts_total 1") {
		t.Fatalf("handler output missing relayout counter:\n%s", body)
	}
}

func scrape(t *testing.T, m *Reactor) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("scrape status = %d", rec.Code)
	}
	return rec.Body.String()
}
