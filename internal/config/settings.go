package config

import (
	"log/slog"

	"github.com/1broseidon/spacetile/internal/dragswap"
	"github.com/1broseidon/spacetile/internal/reactor"
	"github.com/1broseidon/spacetile/internal/tiling"
)

// ReactorSettings converts the configuration into reactor settings. The
// configuration must have been validated.
func (c *Config) ReactorSettings() reactor.Settings {
	mode, _ := tiling.ParseLayoutMode(c.Layout.DefaultMode)
	return reactor.Settings{
		Engine: tiling.EngineOptions{
			DefaultMode: mode,
			Settings: tiling.Settings{
				MasterStack: c.masterStackSettings(),
				Scrolling:   c.scrollingSettings(),
			},
			Workspaces: c.workspaceSettings(),
			Gaps:       c.GapSettings(),
		},
		Drag: dragswap.Settings{
			Enabled:          c.Drag.Enabled,
			OverlapThreshold: c.Drag.SwapOverlap,
		},
		MouseFollowsFocus:         c.Focus.MouseFollowsFocus,
		ChurnSettle:               c.ChurnSettle(),
		FullscreenWait:            c.FullscreenWait(),
		SwipeOnBoundary:           c.Focus.SwipeOnBoundary,
		InvertSwipe:               c.Focus.InvertSwipe,
		SkipEmptyOnSwipe:          c.Focus.SkipEmptyOnSwipe,
		ReapplyRulesOnTitleChange: c.Spaces.ReapplyRulesOnTitleChange,
		DisableSpacesByDefault:    c.Spaces.DisabledByDefault,
	}
}

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
