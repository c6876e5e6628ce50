package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultReloadDebounce = 150 * time.Millisecond

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	Path   string
	Logger *slog.Logger
	// Debounce collapses bursts of file events; editors often write a file
	// several times when saving.
	Debounce time.Duration
	// OnReload receives every configuration that loaded and validated.
	OnReload func(*LoadResult)
}

// Watcher reloads the configuration when the file or one of its includes
// changes. Invalid files are logged and skipped; the previous configuration
// stays in effect.
type Watcher struct {
	path     string
	log      *slog.Logger
	debounce time.Duration
	onReload func(*LoadResult)
	watched  map[string]bool
}

func NewWatcher(cfg WatcherConfig) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultReloadDebounce
	}
	return &Watcher{
		path:     filepath.Clean(cfg.Path),
		log:      logger,
		debounce: debounce,
		onReload: cfg.OnReload,
		watched:  make(map[string]bool),
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	w.watch(fw, dir)
	if res, err := LoadFromPath(w.path); err == nil {
		w.watchFiles(fw, res.Files)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(ev) {
				continue
			}
			w.log.Debug("config file event", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("config watcher error", "error", err)
		case <-fire:
			fire = nil
			w.reload(fw)
		}
	}
}

func (w *Watcher) reload(fw *fsnotify.Watcher) {
	res, err := LoadFromPath(w.path)
	if err != nil {
		w.log.Warn("config reload failed, keeping previous configuration", "path", w.path, "error", err)
		return
	}
	w.log.Info("config reloaded", "path", w.path, "files", len(res.Files))
	w.watchFiles(fw, res.Files)
	if w.onReload != nil {
		w.onReload(res)
	}
}

func (w *Watcher) watchFiles(fw *fsnotify.Watcher, files []string) {
	for _, f := range files {
		w.watch(fw, filepath.Dir(f))
	}
}

func (w *Watcher) watch(fw *fsnotify.Watcher, dir string) {
	if w.watched[dir] {
		return
	}
	if err := fw.Add(dir); err != nil {
		w.log.Warn("failed to watch config directory", "dir", dir, "error", err)
		return
	}
	w.watched[dir] = true
}

func relevantEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(ev.Name))
	return ext == ".yaml" || ext == ".yml"
}
