package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/x11"
)

type trackedClient struct {
	id    platform.WindowID
	space platform.SpaceID
	title string
}

// clientTracker turns successive client lists into window and application
// lifecycle events. It is owned by the X event goroutine.
type clientTracker struct {
	known map[platform.WindowServerID]trackedClient
	apps  map[int32]int
}

func newClientTracker() *clientTracker {
	return &clientTracker{
		known: make(map[platform.WindowServerID]trackedClient),
		apps:  make(map[int32]int),
	}
}

// trackable filters clients the reactor can key. Without _NET_WM_PID there
// is no application to attach the window to.
func trackable(c x11.Client) bool {
	return c.Normal && c.PID > 0
}

// sync diffs clients against the previous call. Removals are reported
// before additions so a reused X id never collides.
func (t *clientTracker) sync(clients []x11.Client, spaceOf func(x11.Client) platform.SpaceID) (events []reactor.Event, added, removed []platform.WindowServerID) {
	current := make(map[platform.WindowServerID]x11.Client, len(clients))
	for _, c := range clients {
		if trackable(c) {
			current[platform.WindowServerID(c.ID)] = c
		}
	}

	for sysID := range t.known {
		if _, ok := current[sysID]; !ok {
			removed = append(removed, sysID)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	for _, sysID := range removed {
		tc := t.known[sysID]
		delete(t.known, sysID)
		events = append(events,
			reactor.WindowServerDestroyed{SysID: sysID, Space: tc.space},
			reactor.WindowDestroyed{ID: tc.id})
		t.apps[tc.id.PID]--
		if t.apps[tc.id.PID] <= 0 {
			delete(t.apps, tc.id.PID)
			events = append(events, reactor.ApplicationTerminated{PID: tc.id.PID})
		}
	}

	launched := make(map[int32]*reactor.ApplicationLaunched)
	var pids []int32
	var appeared []reactor.Event
	for _, c := range clients {
		sysID := platform.WindowServerID(c.ID)
		if _, ok := current[sysID]; !ok {
			continue
		}
		if _, ok := t.known[sysID]; ok {
			continue
		}
		added = append(added, sysID)
		d := reactor.DiscoveredWindow{ID: platform.ClientWindowID(c), Info: platform.ClientInfo(c)}
		space := spaceOf(c)
		t.known[sysID] = trackedClient{id: d.ID, space: space, title: c.Title}

		if t.apps[c.PID] == 0 || launched[c.PID] != nil {
			ev := launched[c.PID]
			if ev == nil {
				ev = &reactor.ApplicationLaunched{App: reactor.AppInfo{PID: c.PID, AppID: c.Class, Name: c.Class}}
				launched[c.PID] = ev
				pids = append(pids, c.PID)
			}
			ev.Windows = append(ev.Windows, d)
		} else {
			events = append(events, reactor.WindowCreated{Window: d})
		}
		t.apps[c.PID]++
		if space.Valid() {
			appeared = append(appeared, reactor.WindowServerAppeared{SysID: sysID, Space: space})
		}
	}
	for _, pid := range pids {
		events = append(events, *launched[pid])
	}
	events = append(events, appeared...)
	return events, added, removed
}

func (t *clientTracker) window(sysID platform.WindowServerID) (platform.WindowID, bool) {
	tc, ok := t.known[sysID]
	return tc.id, ok
}

// retitle records a title and reports whether it changed.
func (t *clientTracker) retitle(sysID platform.WindowServerID, title string) (reactor.WindowTitleChanged, bool) {
	tc, ok := t.known[sysID]
	if !ok || tc.title == title {
		return reactor.WindowTitleChanged{}, false
	}
	tc.title = title
	t.known[sysID] = tc
	return reactor.WindowTitleChanged{ID: tc.id, Title: title}, true
}

// churnTracker brackets bursts of RandR notifications with churn begin and
// end events. The end fires once no notification arrived for settle.
type churnTracker struct {
	settle    time.Duration
	afterFunc func(time.Duration, func())
	// onSettled runs before the end event so it can report the final
	// display set while the reactor still quarantines.
	onSettled func()
	emit      func(reactor.Event)

	mu       sync.Mutex
	epoch    uint64
	churning bool
}

func (c *churnTracker) notify() {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	begin := !c.churning
	c.churning = true
	c.mu.Unlock()

	if begin {
		c.emit(reactor.DisplayChurnBegin{})
	}
	c.afterFunc(c.settle, func() { c.settled(epoch) })
}

func (c *churnTracker) settled(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || !c.churning {
		c.mu.Unlock()
		return
	}
	c.churning = false
	c.mu.Unlock()

	if c.onSettled != nil {
		c.onSettled()
	}
	c.emit(reactor.DisplayChurnEnd{})
}

func (c *churnTracker) active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.churning
}

// windowRequests queues visible-window requests from the reactor. Requests
// never block; a pid already waiting is not queued twice.
type windowRequests struct {
	mu      sync.Mutex
	pending map[int32]bool
	order   []int32
	wake    chan struct{}
}

var _ reactor.AppRequester = (*windowRequests)(nil)

func newWindowRequests() *windowRequests {
	return &windowRequests{
		pending: make(map[int32]bool),
		wake:    make(chan struct{}, 1),
	}
}

func (q *windowRequests) RequestVisibleWindows(pid int32) error {
	q.mu.Lock()
	if !q.pending[pid] {
		q.pending[pid] = true
		q.order = append(q.order, pid)
	}
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// drain returns the queued pids in request order.
func (q *windowRequests) drain() []int32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.order
	q.order = nil
	clear(q.pending)
	return out
}

// Run answers queued requests with WindowsDiscovered events until ctx is
// cancelled.
func (q *windowRequests) Run(ctx context.Context, list func() ([]x11.Client, error), sink EventSink, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-q.wake:
		}
		pids := q.drain()
		if len(pids) == 0 {
			continue
		}
		clients, err := list()
		if err != nil {
			logger.Warn("failed to list clients", "error", err)
			continue
		}
		for _, pid := range pids {
			if err := sink.Send(ctx, discovered(pid, clients)); err != nil {
				if errors.Is(err, reactor.ErrStopped) || errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Warn("failed to report windows", "pid", pid, "error", err)
			}
		}
	}
}

func discovered(pid int32, clients []x11.Client) reactor.WindowsDiscovered {
	ev := reactor.WindowsDiscovered{PID: pid}
	for _, c := range clients {
		if c.PID != pid || !trackable(c) {
			continue
		}
		d := reactor.DiscoveredWindow{ID: platform.ClientWindowID(c), Info: platform.ClientInfo(c)}
		ev.New = append(ev.New, d)
		ev.Known = append(ev.Known, d.ID)
	}
	return ev
}

// waitRelease polls pressed until the button is let go or ctx ends. It
// reports whether a release was seen.
func waitRelease(ctx context.Context, interval time.Duration, pressed func() bool) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if !pressed() {
				return true
			}
		}
	}
}
