package daemon

import (
	"context"
	"log/slog"
	"os"

	"github.com/1broseidon/spacetile/internal/config"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/runtimepath"
)

// Options configures a daemon run.
type Options struct {
	// ConfigPath defaults to the standard config location.
	ConfigPath string
	// Debug forces debug logging regardless of log_level.
	Debug bool
	// MetricsAddr, when set, serves Prometheus metrics on /metrics.
	MetricsAddr string
	// Output receives log records; stderr when nil.
	Output *os.File
}

type sinkFunc func(ctx context.Context, ev reactor.Event) error

func (f sinkFunc) Send(ctx context.Context, ev reactor.Event) error { return f(ctx, ev) }

// statePathFor returns the configured state file or the default one under
// the data directory.
func statePathFor(cfg *config.Config) (string, error) {
	if cfg.Persistence.StateFile != "" {
		return cfg.Persistence.StateFile, nil
	}
	return runtimepath.StatePath()
}

func levelFor(cfg *config.Config, debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return cfg.SlogLevel()
}

func configPathFor(opts Options) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	return config.DefaultConfigPath()
}
