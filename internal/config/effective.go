package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig applies raw on top of DefaultConfig. A keybinding
// set to an empty command removes the default binding for that key.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}

	if g := raw.Gaps; g != nil {
		set(&cfg.Gaps.OuterX, g.OuterX)
		set(&cfg.Gaps.OuterY, g.OuterY)
		set(&cfg.Gaps.InnerX, g.InnerX)
		set(&cfg.Gaps.InnerY, g.InnerY)
		if g.PerDisplay != nil {
			cfg.Gaps.PerDisplay = g.PerDisplay
		}
	}

	if l := raw.Layout; l != nil {
		set(&cfg.Layout.DefaultMode, l.DefaultMode)
		if ms := l.MasterStack; ms != nil {
			set(&cfg.Layout.MasterStack.Side, ms.Side)
			set(&cfg.Layout.MasterStack.Ratio, ms.Ratio)
			set(&cfg.Layout.MasterStack.Count, ms.Count)
			set(&cfg.Layout.MasterStack.Placement, ms.Placement)
		}
		if sc := l.Scrolling; sc != nil {
			set(&cfg.Layout.Scrolling.Ratio, sc.Ratio)
			set(&cfg.Layout.Scrolling.MinRatio, sc.MinRatio)
			set(&cfg.Layout.Scrolling.MaxRatio, sc.MaxRatio)
			set(&cfg.Layout.Scrolling.Alignment, sc.Alignment)
			set(&cfg.Layout.Scrolling.Style, sc.Style)
			set(&cfg.Layout.Scrolling.OverscrollThreshold, sc.OverscrollThreshold)
		}
	}

	if w := raw.Workspaces; w != nil {
		set(&cfg.Workspaces.Count, w.Count)
		set(&cfg.Workspaces.AutoBackAndForth, w.AutoBackAndForth)
		set(&cfg.Workspaces.Max, w.Max)
		if w.Names != nil {
			cfg.Workspaces.Names = w.Names
		}
		if w.LayoutRules != nil {
			cfg.Workspaces.LayoutRules = w.LayoutRules
		}
		if w.AppRules != nil {
			cfg.Workspaces.AppRules = w.AppRules
		}
	}

	if d := raw.Drag; d != nil {
		set(&cfg.Drag.Enabled, d.Enabled)
		set(&cfg.Drag.SwapOverlap, d.SwapOverlap)
	}
	if t := raw.Topology; t != nil {
		set(&cfg.Topology.ChurnSettleMS, t.ChurnSettleMS)
		set(&cfg.Topology.FullscreenWaitMS, t.FullscreenWaitMS)
	}
	if f := raw.Focus; f != nil {
		set(&cfg.Focus.MouseFollowsFocus, f.MouseFollowsFocus)
		set(&cfg.Focus.SwipeOnBoundary, f.SwipeOnBoundary)
		set(&cfg.Focus.InvertSwipe, f.InvertSwipe)
		set(&cfg.Focus.SkipEmptyOnSwipe, f.SkipEmptyOnSwipe)
	}
	if s := raw.Spaces; s != nil {
		set(&cfg.Spaces.DisabledByDefault, s.DisabledByDefault)
		set(&cfg.Spaces.ReapplyRulesOnTitleChange, s.ReapplyRulesOnTitleChange)
	}
	if p := raw.Persistence; p != nil {
		set(&cfg.Persistence.StateFile, p.StateFile)
		set(&cfg.Persistence.AutosaveInterval, p.AutosaveInterval)
		set(&cfg.Persistence.RestoreOnStart, p.RestoreOnStart)
	}

	for key, line := range raw.Keybindings {
		if strings.TrimSpace(key) == "" {
			return nil, &ValidationError{Path: "keybindings", Err: fmt.Errorf("keybindings contains an empty key")}
		}
		if strings.TrimSpace(line) == "" {
			delete(cfg.Keybindings, key)
			continue
		}
		cfg.Keybindings[key] = line
	}

	if r := raw.Refresh; r != nil {
		set(&cfg.Refresh.Interval, r.Interval)
		set(&cfg.Refresh.Burst, r.Burst)
	}
	return cfg, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
