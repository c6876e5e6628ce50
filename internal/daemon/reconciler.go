package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/1broseidon/spacetile/internal/reactor"
)

// EventSink accepts events for the reactor loop.
type EventSink interface {
	Send(ctx context.Context, ev reactor.Event) error
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	// Burst is how many refreshes may be requested back to back before the
	// interval applies.
	Burst  int
	Logger *slog.Logger
}

// Reconciler periodically asks the reactor to re-read every window so that
// state the event stream missed is corrected.
type Reconciler struct {
	interval time.Duration
	limiter  *rate.Limiter
	sink     EventSink
	logger   *slog.Logger
	reset    chan time.Duration
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, sink EventSink) *Reconciler {
	interval, burst := normalizeRefresh(cfg.Interval, cfg.Burst)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), burst),
		sink:     sink,
		logger:   logger,
		reset:    make(chan time.Duration, 1),
	}
}

func normalizeRefresh(interval time.Duration, burst int) (time.Duration, int) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if burst < 1 {
		burst = 1
	}
	return interval, burst
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case interval := <-r.reset:
			ticker.Reset(interval)
			r.logger.Debug("reconciler interval changed", "interval", interval)
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// Update applies new refresh settings to a running reconciler.
func (r *Reconciler) Update(interval time.Duration, burst int) {
	interval, burst = normalizeRefresh(interval, burst)
	r.limiter.SetLimit(rate.Every(interval))
	r.limiter.SetBurst(burst)
	select {
	case <-r.reset:
	default:
	}
	r.reset <- interval
}

// reconcile performs a single reconciliation pass and reports whether a
// refresh was requested.
func (r *Reconciler) reconcile(ctx context.Context) (sent bool) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
			sent = false
		}
	}()

	if !r.limiter.Allow() {
		r.logger.Debug("reconciler: refresh rate limited")
		return false
	}
	if err := r.sink.Send(ctx, reactor.RefreshRequested{}); err != nil {
		if errors.Is(err, reactor.ErrStopped) || errors.Is(err, context.Canceled) {
			return false
		}
		r.logger.Warn("reconciler: failed to request refresh", "error", err)
		return false
	}
	return true
}

// ReconcileNow requests an immediate refresh, subject to the rate limit.
func (r *Reconciler) ReconcileNow(ctx context.Context) bool {
	return r.reconcile(ctx)
}
