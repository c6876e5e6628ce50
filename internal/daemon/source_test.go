package daemon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/x11"
)

func client(id xproto.Window, pid int32, class string) x11.Client {
	return x11.Client{
		ID:       id,
		PID:      pid,
		Class:    class,
		Title:    class,
		Normal:   true,
		Geometry: x11.Geometry{X: 10, Y: 10, Width: 400, Height: 300},
	}
}

func fixedSpace(space platform.SpaceID) func(x11.Client) platform.SpaceID {
	return func(x11.Client) platform.SpaceID { return space }
}

func kinds(events []reactor.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		switch ev.(type) {
		case reactor.ApplicationLaunched:
			out[i] = "launched"
		case reactor.ApplicationTerminated:
			out[i] = "terminated"
		case reactor.WindowCreated:
			out[i] = "created"
		case reactor.WindowDestroyed:
			out[i] = "destroyed"
		case reactor.WindowServerAppeared:
			out[i] = "appeared"
		case reactor.WindowServerDestroyed:
			out[i] = "server_destroyed"
		default:
			out[i] = "other"
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestClientTracker_Lifecycle(t *testing.T) {
	tr := newClientTracker()
	space := platform.DesktopSpace(0, 0)

	events, added, _ := tr.sync([]x11.Client{
		client(100, 1, "term"),
		client(101, 1, "term"),
		client(200, 2, "browser"),
	}, fixedSpace(space))
	if len(added) != 3 {
		t.Fatalf("added = %v, want 3 windows", added)
	}
	want := []string{"launched", "launched", "appeared", "appeared", "appeared"}
	if got := kinds(events); !equalStrings(got, want) {
		t.Fatalf("first sync events = %v, want %v", got, want)
	}
	launched := events[0].(reactor.ApplicationLaunched)
	if launched.App.PID != 1 || len(launched.Windows) != 2 {
		t.Fatalf("launch for pid 1 = %+v", launched)
	}
	if launched.Windows[0].ID != (platform.WindowID{PID: 1, Idx: 100}) {
		t.Fatalf("window id = %v", launched.Windows[0].ID)
	}

	// a second window for a known app is a plain creation
	events, _, _ = tr.sync([]x11.Client{
		client(100, 1, "term"),
		client(101, 1, "term"),
		client(102, 1, "term"),
		client(200, 2, "browser"),
	}, fixedSpace(space))
	if got := kinds(events); !equalStrings(got, []string{"created", "appeared"}) {
		t.Fatalf("second sync events = %v", got)
	}

	events, _, removed := tr.sync([]x11.Client{
		client(100, 1, "term"),
		client(101, 1, "term"),
		client(102, 1, "term"),
	}, fixedSpace(space))
	if len(removed) != 1 || removed[0] != 200 {
		t.Fatalf("removed = %v", removed)
	}
	if got := kinds(events); !equalStrings(got, []string{"server_destroyed", "destroyed", "terminated"}) {
		t.Fatalf("removal events = %v", got)
	}
	if ev := events[0].(reactor.WindowServerDestroyed); ev.Space != space {
		t.Fatalf("destroyed space = %d, want %d", ev.Space, space)
	}
}

func TestClientTracker_SkipsUntrackable(t *testing.T) {
	tr := newClientTracker()
	noPID := client(300, 0, "anon")
	dock := client(301, 4, "panel")
	dock.Normal = false

	events, added, _ := tr.sync([]x11.Client{noPID, dock}, fixedSpace(platform.DesktopSpace(0, 0)))
	if len(events) != 0 || len(added) != 0 {
		t.Fatalf("untrackable clients produced events %v", kinds(events))
	}
}

func TestClientTracker_NoSpaceSkipsAppeared(t *testing.T) {
	tr := newClientTracker()
	events, _, _ := tr.sync([]x11.Client{client(100, 1, "term")}, fixedSpace(platform.NoSpace))
	if got := kinds(events); !equalStrings(got, []string{"launched"}) {
		t.Fatalf("events = %v", got)
	}
}

func TestClientTracker_Retitle(t *testing.T) {
	tr := newClientTracker()
	tr.sync([]x11.Client{client(100, 1, "term")}, fixedSpace(platform.DesktopSpace(0, 0)))

	if _, ok := tr.retitle(100, "term"); ok {
		t.Fatal("unchanged title reported")
	}
	ev, ok := tr.retitle(100, "vim")
	if !ok || ev.Title != "vim" || ev.ID != (platform.WindowID{PID: 1, Idx: 100}) {
		t.Fatalf("retitle = %+v, %v", ev, ok)
	}
	if _, ok := tr.retitle(999, "x"); ok {
		t.Fatal("unknown window retitled")
	}
}

type timerQueue struct {
	mu    sync.Mutex
	funcs []func()
}

func (q *timerQueue) after(_ time.Duration, f func()) {
	q.mu.Lock()
	q.funcs = append(q.funcs, f)
	q.mu.Unlock()
}

func (q *timerQueue) fire(i int) {
	q.mu.Lock()
	f := q.funcs[i]
	q.mu.Unlock()
	f()
}

func TestChurnTracker_BracketsBurst(t *testing.T) {
	timers := &timerQueue{}
	var got []string
	settled := 0
	c := &churnTracker{
		settle:    time.Second,
		afterFunc: timers.after,
		onSettled: func() { settled++ },
		emit: func(ev reactor.Event) {
			switch ev.(type) {
			case reactor.DisplayChurnBegin:
				got = append(got, "begin")
			case reactor.DisplayChurnEnd:
				got = append(got, "end")
			}
		},
	}

	c.notify()
	c.notify()
	c.notify()
	if !c.active() {
		t.Fatal("tracker not churning after notify")
	}

	// earlier timers belong to superseded epochs
	timers.fire(0)
	timers.fire(1)
	if !equalStrings(got, []string{"begin"}) {
		t.Fatalf("events after stale timers = %v", got)
	}

	timers.fire(2)
	if !equalStrings(got, []string{"begin", "end"}) {
		t.Fatalf("events = %v", got)
	}
	if settled != 1 {
		t.Fatalf("onSettled ran %d times", settled)
	}

	timers.fire(2)
	if len(got) != 2 {
		t.Fatalf("repeated settle emitted again: %v", got)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []reactor.Event
	sent   chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{sent: make(chan struct{}, 16)}
}

func (s *recordingSink) Send(ctx context.Context, ev reactor.Event) error {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	s.sent <- struct{}{}
	return nil
}

func (s *recordingSink) snapshot() []reactor.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reactor.Event(nil), s.events...)
}

func TestWindowRequests_Dedup(t *testing.T) {
	q := newWindowRequests()
	for _, pid := range []int32{3, 1, 3, 2, 1} {
		if err := q.RequestVisibleWindows(pid); err != nil {
			t.Fatalf("RequestVisibleWindows: %v", err)
		}
	}
	got := q.drain()
	want := []int32{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("drain = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("drain = %v, want %v", got, want)
		}
	}
	if rest := q.drain(); len(rest) != 0 {
		t.Fatalf("second drain = %v", rest)
	}
}

func TestWindowRequests_RunAnswers(t *testing.T) {
	q := newWindowRequests()
	sink := newRecordingSink()
	list := func() ([]x11.Client, error) {
		return []x11.Client{client(100, 1, "term"), client(101, 1, "term"), client(200, 2, "browser")}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx, list, sink, testLogger()) }()

	q.RequestVisibleWindows(1)
	select {
	case <-sink.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("no WindowsDiscovered sent")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := sink.snapshot()
	ev, ok := events[0].(reactor.WindowsDiscovered)
	if !ok {
		t.Fatalf("event = %T", events[0])
	}
	if ev.PID != 1 || len(ev.New) != 2 || len(ev.Known) != 2 {
		t.Fatalf("discovered = %+v", ev)
	}
}

func TestWaitRelease(t *testing.T) {
	var mu sync.Mutex
	polls := 0
	pressed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		polls++
		return polls < 3
	}
	if !waitRelease(context.Background(), time.Millisecond, pressed) {
		t.Fatal("release not reported")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if waitRelease(ctx, time.Hour, func() bool { return true }) {
		t.Fatal("cancelled wait reported a release")
	}
}
