//go:build linux

package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/1broseidon/spacetile/internal/config"
	"github.com/1broseidon/spacetile/internal/hotkeys"
	"github.com/1broseidon/spacetile/internal/ipc"
	"github.com/1broseidon/spacetile/internal/metrics"
	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/runtimepath"
	"github.com/1broseidon/spacetile/internal/tiling"
)

const finalSaveTimeout = 2 * time.Second

// Run starts the daemon and blocks until ctx is cancelled or a component
// fails.
func Run(ctx context.Context, opts Options) error {
	configPath, err := configPathFor(opts)
	if err != nil {
		return err
	}
	res, err := config.LoadFromPath(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := res.Config

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := new(slog.LevelVar)
	level.Set(levelFor(cfg, opts.Debug))
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	logger.Info("configuration loaded", "path", configPath, "files", len(res.Files))

	statePath, err := statePathFor(cfg)
	if err != nil {
		return fmt.Errorf("failed to resolve state path: %w", err)
	}
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return fmt.Errorf("failed to resolve socket path: %w", err)
	}

	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		return err
	}
	defer backend.Disconnect()

	settings := cfg.ReactorSettings()
	engine := tiling.NewEngine(settings.Engine)
	if cfg.Persistence.RestoreOnStart {
		if err := engine.LoadState(statePath); err != nil {
			logger.Warn("failed to restore layout state", "path", statePath, "error", err)
		} else {
			logger.Info("layout state restored", "path", statePath)
		}
	}

	var r *reactor.Reactor
	sink := sinkFunc(func(ctx context.Context, ev reactor.Event) error { return r.Send(ctx, ev) })

	source := NewSource(SourceConfig{
		Backend:     backend,
		Sink:        sink,
		Logger:      logger,
		ChurnSettle: settings.ChurnSettle,
	})

	m := metrics.NewReactor()
	r = reactor.New(reactor.Config{
		Logger:   logger.With("component", "reactor"),
		Settings: settings,
		Server:   backend,
		Animator: backend,
		Raiser:   backend,
		Apps:     source.Requests(),
		Engine:   engine,
		Metrics:  m,
		Broadcast: func(ev tiling.BroadcastEvent) {
			logger.Debug("layout broadcast", "event", ev)
		},
	})

	// The reactor outlives ctx so the final save can still reach it.
	reactorCtx, stopReactor := context.WithCancel(context.Background())
	reactorDone := make(chan error, 1)
	go func() { reactorDone <- r.Run(reactorCtx) }()
	defer func() {
		stopReactor()
		<-reactorDone
	}()

	backend.OnRaised = func(seq uint64) {
		go func() {
			if err := r.Send(ctx, reactor.RaiseCompleted{Sequence: seq}); err != nil {
				logger.Debug("raise completion dropped", "sequence", seq, "error", err)
			}
		}()
	}

	keys := hotkeys.NewHandler(backend.Connection(), func(ev reactor.Event) {
		if err := r.Send(ctx, ev); err != nil {
			logger.Debug("hotkey event dropped", "error", err)
		}
	}, logger)
	applyBindings := func(c *config.Config) {
		bindings, err := c.Bindings()
		if err != nil {
			logger.Warn("invalid keybindings", "error", err)
			return
		}
		if err := keys.Apply(bindings); err != nil {
			logger.Warn("some hotkeys were not registered", "error", err)
		}
	}
	applyBindings(cfg)

	reconciler := NewReconciler(ReconcilerConfig{
		Interval: cfg.Refresh.Interval,
		Burst:    cfg.Refresh.Burst,
		Logger:   logger.With("component", "reconciler"),
	}, r)
	synchronizer := NewStateSynchronizer(SynchronizerConfig{
		Path:     statePath,
		Interval: cfg.Persistence.AutosaveInterval,
		Logger:   logger.With("component", "state"),
	}, r)

	var reloadMu sync.Mutex
	apply := func(res *config.LoadResult) {
		reloadMu.Lock()
		defer reloadMu.Unlock()
		next := res.Config
		if !opts.Debug {
			level.Set(next.SlogLevel())
		}
		if err := r.Send(ctx, reactor.ConfigUpdated{Settings: next.ReactorSettings()}); err != nil {
			logger.Warn("failed to apply configuration", "error", err)
			return
		}
		reconciler.Update(next.Refresh.Interval, next.Refresh.Burst)
		applyBindings(next)
		logger.Info("configuration reloaded", "path", configPath)
	}
	reload := func() error {
		res, err := config.LoadFromPath(configPath)
		if err != nil {
			return err
		}
		apply(res)
		return nil
	}

	server, err := ipc.NewServer(ipc.ServerConfig{
		SocketPath: socketPath,
		Core:       r,
		Reload:     reload,
		ConfigPath: configPath,
		StatePath:  statePath,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	watcher := config.NewWatcher(config.WatcherConfig{
		Path:     configPath,
		Logger:   logger.With("component", "config"),
		OnReload: apply,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return source.Run(gctx) })
	g.Go(func() error { return server.Serve(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error {
		reconciler.Run(gctx)
		return nil
	})
	g.Go(func() error {
		synchronizer.Run(gctx)
		return nil
	})
	g.Go(func() error { return handleHangup(gctx, reload, logger) })
	if opts.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, opts.MetricsAddr, m, logger) })
	}

	logger.Info("spacetile daemon started", "socket", socketPath, "state", statePath)
	err = g.Wait()

	saveCtx, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
	defer cancel()
	if serr := synchronizer.SaveNow(saveCtx); serr != nil {
		logger.Warn("final state save failed", "error", serr)
	}
	logger.Info("spacetile daemon stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func handleHangup(ctx context.Context, reload func() error, logger *slog.Logger) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			logger.Info("received SIGHUP, reloading config")
			if err := reload(); err != nil {
				logger.Warn("config reload failed", "error", err)
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Reactor, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
