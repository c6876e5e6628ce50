package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/spacetile/internal/config"
	"github.com/1broseidon/spacetile/internal/reactor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingSink struct {
	mu    sync.Mutex
	count int
	err   error
}

func (s *countingSink) Send(ctx context.Context, ev reactor.Event) error {
	if _, ok := ev.(reactor.RefreshRequested); !ok {
		return errors.New("unexpected event")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.count++
	return nil
}

func (s *countingSink) sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func TestReconciler_RateLimited(t *testing.T) {
	sink := &countingSink{}
	r := NewReconciler(ReconcilerConfig{Interval: time.Hour, Burst: 2, Logger: testLogger()}, sink)

	ctx := context.Background()
	if !r.ReconcileNow(ctx) || !r.ReconcileNow(ctx) {
		t.Fatal("burst refreshes were limited")
	}
	if r.ReconcileNow(ctx) {
		t.Fatal("refresh beyond burst was allowed")
	}
	if sink.sent() != 2 {
		t.Fatalf("sent = %d, want 2", sink.sent())
	}
}

func TestReconciler_StoppedReactorIsQuiet(t *testing.T) {
	sink := &countingSink{err: reactor.ErrStopped}
	r := NewReconciler(ReconcilerConfig{Interval: time.Hour, Logger: testLogger()}, sink)
	if r.ReconcileNow(context.Background()) {
		t.Fatal("refresh reported as sent to a stopped reactor")
	}
}

func TestReconciler_Defaults(t *testing.T) {
	interval, burst := normalizeRefresh(0, 0)
	if interval != 10*time.Second || burst != 1 {
		t.Fatalf("normalizeRefresh(0, 0) = %v, %d", interval, burst)
	}
}

func TestReconciler_RunTicksAndUpdate(t *testing.T) {
	sink := &countingSink{}
	r := NewReconciler(ReconcilerConfig{Interval: time.Hour, Burst: 100, Logger: testLogger()}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	r.Update(5*time.Millisecond, 100)
	deadline := time.After(5 * time.Second)
	for sink.sent() < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d refreshes after interval update", sink.sent())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

type fakeSaver struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (f *fakeSaver) Save(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return f.err
}

func (f *fakeSaver) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paths)
}

func TestStateSynchronizer_SaveNow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	saver := &fakeSaver{}
	s := NewStateSynchronizer(SynchronizerConfig{Path: path, Logger: testLogger()}, saver)

	if err := s.SaveNow(context.Background()); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}
	if saver.paths[0] != path {
		t.Fatalf("saved to %q, want %q", saver.paths[0], path)
	}
	at, err := s.LastSaved()
	if err != nil || at.IsZero() {
		t.Fatalf("LastSaved = %v, %v", at, err)
	}

	saver.err = errors.New("disk full")
	if err := s.SaveNow(context.Background()); err == nil {
		t.Fatal("expected save error")
	}
	at2, err := s.LastSaved()
	if err == nil || !at2.Equal(at) {
		t.Fatalf("failed save changed LastSaved: %v, %v", at2, err)
	}
}

func TestStateSynchronizer_NoPathIsNoop(t *testing.T) {
	saver := &fakeSaver{}
	s := NewStateSynchronizer(SynchronizerConfig{Interval: time.Millisecond, Logger: testLogger()}, saver)
	if err := s.SaveNow(context.Background()); err != nil {
		t.Fatalf("SaveNow: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s.Run(ctx)
	if saver.calls() != 0 {
		t.Fatalf("saver called %d times without a path", saver.calls())
	}
}

func TestStateSynchronizer_Autosave(t *testing.T) {
	saver := &fakeSaver{}
	s := NewStateSynchronizer(SynchronizerConfig{
		Path:     filepath.Join(t.TempDir(), "layout.yaml"),
		Interval: 2 * time.Millisecond,
		Logger:   testLogger(),
	}, saver)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	deadline := time.After(5 * time.Second)
	for saver.calls() < 2 {
		select {
		case <-deadline:
			t.Fatal("autosave did not run")
		case <-time.After(2 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestStatePathFor(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	cfg := config.DefaultConfig()
	cfg.Persistence.StateFile = ""
	got, err := statePathFor(cfg)
	if err != nil || got != filepath.Join("/data", "spacetile", "layout.yaml") {
		t.Fatalf("statePathFor default = %q, %v", got, err)
	}
	cfg.Persistence.StateFile = "/tmp/custom.yaml"
	if got, _ := statePathFor(cfg); got != "/tmp/custom.yaml" {
		t.Fatalf("statePathFor override = %q", got)
	}
}

func TestLevelFor(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogLevel = "warn"
	if got := levelFor(cfg, false); got != slog.LevelWarn {
		t.Fatalf("levelFor = %v, want warn", got)
	}
	if got := levelFor(cfg, true); got != slog.LevelDebug {
		t.Fatalf("levelFor debug = %v, want debug", got)
	}
}

func TestConfigPathFor(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	got, err := configPathFor(Options{})
	if err != nil || got != filepath.Join("/cfg", "spacetile", "config.yaml") {
		t.Fatalf("configPathFor default = %q, %v", got, err)
	}
	if got, _ := configPathFor(Options{ConfigPath: "/etc/st.yaml"}); got != "/etc/st.yaml" {
		t.Fatalf("configPathFor explicit = %q", got)
	}
}

func TestSinkFunc(t *testing.T) {
	var got reactor.Event
	sink := sinkFunc(func(ctx context.Context, ev reactor.Event) error {
		got = ev
		return nil
	})
	if err := sink.Send(context.Background(), reactor.RefreshRequested{}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, ok := got.(reactor.RefreshRequested); !ok {
		t.Fatalf("forwarded %T", got)
	}
}
