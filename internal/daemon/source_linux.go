//go:build linux

package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/x11"
)

const releasePollInterval = 25 * time.Millisecond

// SourceConfig configures the X11 event source.
type SourceConfig struct {
	Backend *platform.LinuxBackend
	Sink    EventSink
	Logger  *slog.Logger
	// ChurnSettle is how long RandR must be quiet before a churn ends.
	ChurnSettle time.Duration
}

// Source translates X11 notifications into reactor events.
type Source struct {
	backend *platform.LinuxBackend
	conn    *x11.Connection
	xu      *xgbutil.XUtil
	sink    EventSink
	logger  *slog.Logger

	clients  *clientTracker
	churn    *churnTracker
	requests *windowRequests

	ctx context.Context

	dragMu   sync.Mutex
	dragging bool
	showing  bool
}

// NewSource wires an event source to backend. Call Run to start it.
func NewSource(cfg SourceConfig) *Source {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	conn := cfg.Backend.Connection()
	s := &Source{
		backend:  cfg.Backend,
		conn:     conn,
		xu:       conn.XUtil,
		sink:     cfg.Sink,
		logger:   logger.With("component", "x11"),
		clients:  newClientTracker(),
		requests: newWindowRequests(),
		ctx:      context.Background(),
	}
	s.churn = &churnTracker{
		settle:    cfg.ChurnSettle,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		onSettled: s.sendScreens,
		emit:      s.emit,
	}
	return s
}

// Requests is the reactor's window requester.
func (s *Source) Requests() reactor.AppRequester {
	return s.requests
}

// Run reports the current state, then follows X events until ctx is
// cancelled.
func (s *Source) Run(ctx context.Context) error {
	s.ctx = ctx
	if err := s.conn.SelectScreenChanges(); err != nil {
		s.logger.Warn("randr notifications unavailable", "error", err)
	}
	root := xwindow.New(s.xu, s.conn.Root)
	if err := root.Listen(xproto.EventMaskPropertyChange); err != nil {
		return err
	}

	s.snapshot()

	xevent.PropertyNotifyFun(s.onRootProperty).Connect(s.xu, s.conn.Root)
	xevent.HookFun(s.onRawEvent).Connect(s.xu)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.requests.Run(gctx, s.conn.Clients, s.sink, s.logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.conn.Quit()
		return nil
	})
	g.Go(func() error {
		s.conn.EventLoop()
		if gctx.Err() == nil {
			return errors.New("x11 event loop exited")
		}
		return nil
	})
	return g.Wait()
}

func (s *Source) emit(ev reactor.Event) {
	if err := s.sink.Send(s.ctx, ev); err != nil {
		if errors.Is(err, reactor.ErrStopped) || errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Warn("failed to deliver event", "error", err)
	}
}

// snapshot reports displays, spaces, windows and focus as they are now.
func (s *Source) snapshot() {
	s.sendScreens()
	s.emit(reactor.SpaceChanged{Spaces: s.backend.Spaces()})
	s.syncClients()
	s.sendActive()
	s.showing = s.conn.ShowingDesktop()
	if s.showing {
		s.emit(reactor.MissionControlEntered{})
	}
}

func (s *Source) sendScreens() {
	screens, err := s.backend.Screens()
	if err != nil {
		s.logger.Warn("failed to read monitors", "error", err)
		return
	}
	s.emit(reactor.ScreenParametersChanged{Screens: screens})
}

func (s *Source) syncClients() {
	clients, err := s.conn.Clients()
	if err != nil {
		s.logger.Warn("failed to read client list", "error", err)
		return
	}
	events, added, removed := s.clients.sync(clients, s.spaceOf)
	for _, id := range removed {
		xevent.Detach(s.xu, xproto.Window(id))
	}
	for _, id := range added {
		s.attach(xproto.Window(id))
	}
	for _, ev := range events {
		s.emit(ev)
	}
}

func (s *Source) spaceOf(c x11.Client) platform.SpaceID {
	space, _ := s.backend.WindowSpace(platform.WindowServerID(c.ID))
	return space
}

func (s *Source) sendActive() {
	active, err := s.conn.GetActiveWindow()
	if err != nil || active == 0 {
		return
	}
	if wid, ok := s.clients.window(platform.WindowServerID(active)); ok {
		s.emit(reactor.ApplicationActivated{PID: wid.PID, Window: wid})
	}
}

func (s *Source) attach(id xproto.Window) {
	win := xwindow.New(s.xu, id)
	if err := win.Listen(xproto.EventMaskStructureNotify | xproto.EventMaskPropertyChange); err != nil {
		s.logger.Debug("failed to listen on window", "window", id, "error", err)
		return
	}
	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		s.onConfigure(id)
	}).Connect(s.xu, id)
	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop.AtomName(xu, ev.Atom)
		if err != nil {
			return
		}
		switch name {
		case "_NET_WM_NAME", "WM_NAME":
			if changed, ok := s.clients.retitle(platform.WindowServerID(id), s.conn.WindowTitle(id)); ok {
				s.emit(changed)
			}
		case "_NET_WM_DESKTOP":
			s.emit(reactor.ResyncAppForWindow{SysID: platform.WindowServerID(id)})
		}
	}).Connect(s.xu, id)
}

func (s *Source) onConfigure(id xproto.Window) {
	wid, ok := s.clients.window(platform.WindowServerID(id))
	if !ok {
		return
	}
	geom, err := s.conn.WindowGeometry(id)
	if err != nil {
		return
	}
	_, _, down, err := s.conn.PointerPosition()
	if err != nil {
		down = false
	}
	s.emit(reactor.WindowFrameChanged{
		ID:        wid,
		Frame:     platform.Rect{X: float64(geom.X), Y: float64(geom.Y), Width: float64(geom.Width), Height: float64(geom.Height)},
		MouseDown: down,
	})
	if down {
		s.watchRelease()
	}
}

// watchRelease starts one poller per drag; X does not report button
// releases that happen inside another client's frame.
func (s *Source) watchRelease() {
	s.dragMu.Lock()
	if s.dragging {
		s.dragMu.Unlock()
		return
	}
	s.dragging = true
	s.dragMu.Unlock()

	go func() {
		released := waitRelease(s.ctx, releasePollInterval, func() bool {
			_, _, down, err := s.conn.PointerPosition()
			return err == nil && down
		})
		s.dragMu.Lock()
		s.dragging = false
		s.dragMu.Unlock()
		if released {
			s.emit(reactor.MouseUp{})
		}
	}()
}

func (s *Source) onRootProperty(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
	name, err := xprop.AtomName(xu, ev.Atom)
	if err != nil {
		return
	}
	switch name {
	case "_NET_CLIENT_LIST", "_NET_CLIENT_LIST_STACKING":
		s.syncClients()
	case "_NET_CURRENT_DESKTOP":
		s.emit(reactor.SpaceChanged{Spaces: s.backend.Spaces()})
	case "_NET_ACTIVE_WINDOW":
		s.sendActive()
	case "_NET_WORKAREA":
		if !s.churn.active() {
			s.sendScreens()
		}
	case "_NET_SHOWING_DESKTOP":
		showing := s.conn.ShowingDesktop()
		if showing == s.showing {
			return
		}
		s.showing = showing
		if showing {
			s.emit(reactor.MissionControlEntered{})
		} else {
			s.emit(reactor.MissionControlExited{})
		}
	}
}

// onRawEvent sees every event before the xevent callbacks. xgbutil has no
// RandR callback type, so screen changes are caught here.
func (s *Source) onRawEvent(xu *xgbutil.XUtil, event interface{}) bool {
	switch event.(type) {
	case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
		s.churn.notify()
	}
	return true
}
