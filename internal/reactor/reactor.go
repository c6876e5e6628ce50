package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/1broseidon/spacetile/internal/dragswap"
	"github.com/1broseidon/spacetile/internal/metrics"
	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/tiling"
)

// maxBatch bounds how many events one wake-up drains.
const maxBatch = 64

// minManageableSize filters tooltips and similar tiny windows.
const minManageableSize = 50

// ErrStopped is returned when the reactor loop is no longer running.
var ErrStopped = errors.New("reactor stopped")

// AppRequester asks an application to re-report its windows. The answer
// arrives later as a WindowsDiscovered event.
type AppRequester interface {
	RequestVisibleWindows(pid int32) error
}

// Settings are the reloadable reactor options.
type Settings struct {
	Engine tiling.EngineOptions
	Drag   dragswap.Settings

	MouseFollowsFocus bool
	// ChurnSettle is how long after churn ends the commit is retried.
	ChurnSettle time.Duration
	// FullscreenWait is slept before moving windows back out of a
	// fullscreen space.
	FullscreenWait time.Duration
	// SwipeOnBoundary turns scrolling boundary hits into workspace switches.
	SwipeOnBoundary  bool
	InvertSwipe      bool
	SkipEmptyOnSwipe bool
	// ReapplyRulesOnTitleChange re-routes a window through the app rules
	// when its title changes.
	ReapplyRulesOnTitleChange bool
	// DisableSpacesByDefault leaves spaces unmanaged until toggled on.
	DisableSpacesByDefault bool
}

// DefaultSettings returns the settings used when no configuration exists.
func DefaultSettings() Settings {
	return Settings{
		Engine: tiling.EngineOptions{
			DefaultMode: tiling.ModeTraditional,
			Settings:    tiling.DefaultSettings(),
			Workspaces:  tiling.DefaultWorkspaceSettings(),
		},
		Drag:            dragswap.DefaultSettings(),
		ChurnSettle:     500 * time.Millisecond,
		FullscreenWait:  50 * time.Millisecond,
		SwipeOnBoundary: true,
	}
}

// Config holds the collaborators of a reactor.
type Config struct {
	Logger   *slog.Logger
	Settings Settings

	Server   platform.WindowServer
	Animator platform.Animator
	Raiser   platform.RaiseExecutor
	Apps     AppRequester

	// Engine, when set, is used instead of a fresh one; restored state is
	// passed this way.
	Engine  *tiling.Engine
	Metrics *metrics.Reactor
	// Broadcast receives workspace and window notifications. It must not
	// block.
	Broadcast func(tiling.BroadcastEvent)
	// Notify receives the sorted window-server ids the reactor tracks
	// whenever the set changes.
	Notify func([]platform.WindowServerID)

	QueueSize int
	AfterFunc func(time.Duration, func())
	Now       func() time.Time
	Sleep     func(time.Duration)
}

type appState struct {
	info AppInfo
}

type windowState struct {
	info       platform.WindowInfo
	frame      platform.Rect
	space      platform.SpaceID
	manageable bool
}

type fullscreenTrack struct {
	pid       int32
	window    platform.WindowID
	hasWindow bool
	lastSpace platform.SpaceID
}

// Reactor is the single writer of window, space and layout state. Every
// mutation happens inside Run; other goroutines talk to it through Send
// and the query methods.
type Reactor struct {
	log       *slog.Logger
	settings  Settings
	engine    *tiling.Engine
	server    platform.WindowServer
	animator  platform.Animator
	raiser    platform.RaiseExecutor
	requester AppRequester
	metrics   *metrics.Reactor
	broadcast func(tiling.BroadcastEvent)
	notify    func([]platform.WindowServerID)
	afterFunc func(time.Duration, func())
	now       func() time.Time
	sleep     func(time.Duration)

	inbox chan Event
	done  chan struct{}

	topo                  TopologyManager
	screens               []platform.Screen
	seenDisplays          bool
	active                map[platform.SpaceID]bool
	policy                activationPolicy
	pendingSpaces         []platform.SpaceID
	hasPending            bool
	missionControl        bool
	relayoutAfterTopology bool
	fullscreen            map[platform.SpaceID][]fullscreenTrack

	apps       map[int32]*appState
	windows    map[platform.WindowID]*windowState
	sysIDs     map[platform.WindowServerID]platform.WindowID
	serverInfo map[platform.WindowServerID]platform.WindowServerInfo
	visible    map[platform.WindowServerID]bool
	observed   map[platform.WindowServerID]bool
	notified   []platform.WindowServerID
	mainWindow platform.WindowID

	drag dragswap.State
	swap *dragswap.Manager

	switching    bool
	pendingWarp  platform.WindowID
	refocusSpace platform.SpaceID
	raiseSeq     uint64
	raising      map[uint64]time.Time
}

// New builds a reactor. Run must be called for it to process events.
func New(cfg Config) *Reactor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewReactor()
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1024
	}
	r := &Reactor{
		log:        logger,
		settings:   cfg.Settings,
		server:     cfg.Server,
		animator:   cfg.Animator,
		raiser:     cfg.Raiser,
		requester:  cfg.Apps,
		metrics:    m,
		broadcast:  cfg.Broadcast,
		notify:     cfg.Notify,
		afterFunc:  cfg.AfterFunc,
		now:        cfg.Now,
		sleep:      cfg.Sleep,
		inbox:      make(chan Event, size),
		done:       make(chan struct{}),
		active:     make(map[platform.SpaceID]bool),
		fullscreen: make(map[platform.SpaceID][]fullscreenTrack),
		apps:       make(map[int32]*appState),
		windows:    make(map[platform.WindowID]*windowState),
		sysIDs:     make(map[platform.WindowServerID]platform.WindowID),
		serverInfo: make(map[platform.WindowServerID]platform.WindowServerInfo),
		visible:    make(map[platform.WindowServerID]bool),
		observed:   make(map[platform.WindowServerID]bool),
		raising:    make(map[uint64]time.Time),
		swap:       dragswap.NewManager(cfg.Settings.Drag),
	}
	if r.afterFunc == nil {
		r.afterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.sleep == nil {
		r.sleep = time.Sleep
	}
	r.policy = newActivationPolicy(!cfg.Settings.DisableSpacesByDefault)

	r.engine = cfg.Engine
	opts := r.engineOptions(cfg.Settings)
	if r.engine == nil {
		r.engine = tiling.NewEngine(opts)
	} else {
		r.engine.UpdateSettings(opts)
	}
	return r
}

func (r *Reactor) engineOptions(s Settings) tiling.EngineOptions {
	opts := s.Engine
	opts.Logger = r.log.With("component", "layout")
	opts.Broadcast = r.broadcast
	return opts
}

// Run processes events until ctx is cancelled. It must be called once.
func (r *Reactor) Run(ctx context.Context) error {
	defer close(r.done)
	r.log.Info("reactor started")

	batch := make([]Event, 0, maxBatch)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("reactor stopped")
			return nil
		case ev := <-r.inbox:
			batch = append(batch[:0], ev)
		drain:
			for len(batch) < maxBatch {
				select {
				case ev := <-r.inbox:
					batch = append(batch, ev)
				default:
					break drain
				}
			}
			r.metrics.RecordBatch(len(batch))
			for _, ev := range batch {
				r.dispatch(ev)
			}
			r.metrics.SetOccupancy(len(r.windows), len(r.active), len(r.inbox))
		}
	}
}

// Send enqueues an event. It blocks while the inbox is full.
func (r *Reactor) Send(ctx context.Context, ev Event) error {
	select {
	case <-r.done:
		return ErrStopped
	default:
	}
	select {
	case r.inbox <- ev:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (r *Reactor) Done() <-chan struct{} { return r.done }

func (r *Reactor) dispatch(ev Event) {
	start := r.now()
	kind := ev.kind()
	defer func() {
		if p := recover(); p != nil {
			r.metrics.RecordPanic()
			r.log.Error("reactor panic recovered", "event", kind, "error", p)
		}
	}()

	if q, ok := ev.(query); ok {
		q.run(r)
		return
	}
	if r.topo.Quarantining() && !allowedDuringChurn(ev) {
		kept := r.topo.Hold(ev)
		r.metrics.RecordQuarantined(kind)
		r.log.Debug("quarantined event during display churn", "event", kind, "buffered", kept, "epoch", r.topo.Epoch())
		return
	}
	r.handleEvent(ev)
	r.metrics.RecordEvent(kind, r.now().Sub(start))
}

func (r *Reactor) handleEvent(ev Event) {
	switch ev := ev.(type) {
	case DisplayChurnBegin:
		epoch := r.topo.Begin(r.knownServerIDs(), r.now())
		r.log.Info("display churn started", "epoch", epoch)
	case DisplayChurnEnd:
		epoch, ok := r.topo.End()
		if !ok {
			return
		}
		r.log.Info("display churn ended, awaiting commit", "epoch", epoch)
		r.scheduleChurnCheck(epoch)
	case churnCheck:
		if r.topo.Stale(ev.Epoch) {
			r.log.Debug("stale churn check ignored", "epoch", ev.Epoch, "current", r.topo.Epoch())
			return
		}
		r.maybeCommit()
	case ScreenParametersChanged:
		r.handleScreenParametersChanged(ev.Screens)
	case SpaceChanged:
		r.handleSpaceChanged(ev.Spaces)
	case MissionControlEntered:
		r.missionControl = true
	case MissionControlExited:
		r.missionControl = false
		r.tryApplyPendingSpaceChange()
		r.relayout()
	case SystemWoke:
		r.forceRefresh()
		r.relayout()
	case ApplicationLaunched:
		r.handleApplicationLaunched(ev)
	case ApplicationTerminated:
		r.handleApplicationTerminated(ev.PID)
	case ApplicationActivated:
		r.handleApplicationActivated(ev)
	case WindowsDiscovered:
		r.handleWindowsDiscovered(ev)
	case WindowCreated:
		r.trackWindow(ev.Window)
		r.reconcileApp(ev.Window.ID.PID)
		r.relayout()
	case WindowDestroyed:
		r.destroyWindow(ev.ID)
		r.relayout()
	case WindowServerAppeared:
		r.handleWindowServerAppeared(ev.SysID, ev.Space)
	case WindowServerDestroyed:
		r.handleWindowServerDestroyed(ev.SysID, ev.Space)
		r.relayout()
	case ResyncAppForWindow:
		r.handleResync(ev.SysID)
	case WindowFrameChanged:
		r.handleWindowFrameChanged(ev)
	case WindowTitleChanged:
		r.handleWindowTitleChanged(ev)
	case MouseUp:
		r.finalizeDrag()
	case RaiseCompleted:
		delete(r.raising, ev.Sequence)
	case RaiseTimeout:
		if _, ok := r.raising[ev.Sequence]; ok {
			delete(r.raising, ev.Sequence)
			r.log.Warn("raise request timed out", "sequence", ev.Sequence)
		}
	case Command:
		r.handleCommand(ev)
	case ToggleSpaceActivated:
		r.handleToggleSpace(ev.Space)
	case ConfigUpdated:
		r.applySettings(ev.Settings)
	case RefreshRequested:
		r.forceRefresh()
		r.relayout()
	case SaveState:
		err := r.engine.SaveState(ev.Path)
		if err != nil {
			r.log.Warn("failed to save layout state", "path", ev.Path, "error", err)
		}
		if ev.Reply != nil {
			ev.Reply <- err
		}
	default:
		r.log.Debug("unhandled event", "event", fmt.Sprintf("%T", ev))
	}
	r.updateNotifications()
}

func (r *Reactor) applySettings(s Settings) {
	r.settings = s
	r.engine.UpdateSettings(r.engineOptions(s))
	r.swap.UpdateSettings(s.Drag)
	r.policy.setDefault(!s.DisableSpacesByDefault)
	r.recomputeActiveSpaces()
	r.exposeActiveSpaces()
	r.log.Info("configuration applied")
	r.relayout()
}

func (r *Reactor) scheduleChurnCheck(epoch uint64) {
	delay := r.settings.ChurnSettle
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	r.afterFunc(delay, func() {
		select {
		case r.inbox <- churnCheck{Epoch: epoch}:
		case <-r.done:
		}
	})
}

func (r *Reactor) knownServerIDs() []platform.WindowServerID {
	seen := make(map[platform.WindowServerID]bool)
	for id := range r.sysIDs {
		seen[id] = true
	}
	for id := range r.serverInfo {
		seen[id] = true
	}
	for id := range r.visible {
		seen[id] = true
	}
	return sortedServerIDs(seen)
}

func (r *Reactor) updateNotifications() {
	if r.notify == nil {
		return
	}
	ids := make([]platform.WindowServerID, 0, len(r.sysIDs))
	for id := range r.sysIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if equalServerIDs(ids, r.notified) {
		return
	}
	r.notified = ids
	r.notify(append([]platform.WindowServerID(nil), ids...))
}

func sortedServerIDs(set map[platform.WindowServerID]bool) []platform.WindowServerID {
	out := make([]platform.WindowServerID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func equalServerIDs(a, b []platform.WindowServerID) bool {
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
