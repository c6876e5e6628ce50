package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StateSaver persists the layout engine state.
type StateSaver interface {
	Save(ctx context.Context, path string) error
}

// SynchronizerConfig configures a StateSynchronizer.
type SynchronizerConfig struct {
	Path string
	// Interval between autosaves; zero disables autosave.
	Interval time.Duration
	Logger   *slog.Logger
}

// StateSynchronizer keeps the saved layout state in step with the running
// reactor.
type StateSynchronizer struct {
	path     string
	interval time.Duration
	saver    StateSaver
	logger   *slog.Logger

	mu        sync.Mutex
	lastSaved time.Time
	lastErr   error
}

// NewStateSynchronizer creates a new state synchronizer.
func NewStateSynchronizer(cfg SynchronizerConfig, saver StateSaver) *StateSynchronizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StateSynchronizer{
		path:     cfg.Path,
		interval: cfg.Interval,
		saver:    saver,
		logger:   logger,
	}
}

func (s *StateSynchronizer) Path() string { return s.path }

// Run autosaves until ctx is cancelled. The final save on shutdown is the
// caller's job, while the reactor is still running.
func (s *StateSynchronizer) Run(ctx context.Context) {
	if s.interval <= 0 || s.path == "" {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SaveNow(ctx)
		}
	}
}

// SaveNow writes the state once.
func (s *StateSynchronizer) SaveNow(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	err := s.saver.Save(ctx, s.path)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		s.logger.Warn("failed to save layout state", "path", s.path, "error", err)
		return err
	}
	s.lastSaved = time.Now()
	s.logger.Debug("layout state saved", "path", s.path)
	return nil
}

// LastSaved reports when the state was last written successfully and the
// error of the most recent attempt.
func (s *StateSynchronizer) LastSaved() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved, s.lastErr
}
