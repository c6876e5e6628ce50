package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/spacetile/internal/tiling"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

// The Raw types mirror Config with pointer fields so a file can be told
// apart from a default when files are merged.

type RawGaps struct {
	OuterX     *float64               `yaml:"outer_x"`
	OuterY     *float64               `yaml:"outer_y"`
	InnerX     *float64               `yaml:"inner_x"`
	InnerY     *float64               `yaml:"inner_y"`
	PerDisplay map[string]tiling.Gaps `yaml:"per_display"`
}

type RawMasterStack struct {
	Side      *string  `yaml:"side"`
	Ratio     *float64 `yaml:"ratio"`
	Count     *int     `yaml:"count"`
	Placement *string  `yaml:"placement"`
}

type RawScrolling struct {
	Ratio               *float64 `yaml:"ratio"`
	MinRatio            *float64 `yaml:"min_ratio"`
	MaxRatio            *float64 `yaml:"max_ratio"`
	Alignment           *string  `yaml:"alignment"`
	Style               *string  `yaml:"style"`
	OverscrollThreshold *float64 `yaml:"overscroll_threshold"`
}

type RawLayout struct {
	DefaultMode *string         `yaml:"default_mode"`
	MasterStack *RawMasterStack `yaml:"master_stack"`
	Scrolling   *RawScrolling   `yaml:"scrolling"`
}

type RawWorkspaces struct {
	Count            *int                `yaml:"count"`
	Names            []string            `yaml:"names"`
	AutoBackAndForth *bool               `yaml:"auto_back_and_forth"`
	LayoutRules      []tiling.LayoutRule `yaml:"layout_rules"`
	AppRules         []tiling.AppRule    `yaml:"app_rules"`
	Max              *int                `yaml:"max"`
}

type RawDrag struct {
	Enabled     *bool    `yaml:"enabled"`
	SwapOverlap *float64 `yaml:"swap_overlap"`
}

type RawTopology struct {
	ChurnSettleMS    *int `yaml:"churn_settle_ms"`
	FullscreenWaitMS *int `yaml:"fullscreen_wait_ms"`
}

type RawFocus struct {
	MouseFollowsFocus *bool `yaml:"mouse_follows_focus"`
	SwipeOnBoundary   *bool `yaml:"swipe_on_boundary"`
	InvertSwipe       *bool `yaml:"invert_swipe"`
	SkipEmptyOnSwipe  *bool `yaml:"skip_empty_on_swipe"`
}

type RawSpaces struct {
	DisabledByDefault         *bool `yaml:"disabled_by_default"`
	ReapplyRulesOnTitleChange *bool `yaml:"reapply_rules_on_title_change"`
}

type RawPersistence struct {
	StateFile        *string        `yaml:"state_file"`
	AutosaveInterval *time.Duration `yaml:"autosave_interval"`
	RestoreOnStart   *bool          `yaml:"restore_on_start"`
}

type RawRefresh struct {
	Interval *time.Duration `yaml:"interval"`
	Burst    *int           `yaml:"burst"`
}

type RawConfig struct {
	Include     IncludeList       `yaml:"include"`
	LogLevel    *string           `yaml:"log_level"`
	Gaps        *RawGaps          `yaml:"gaps"`
	Layout      *RawLayout        `yaml:"layout"`
	Workspaces  *RawWorkspaces    `yaml:"workspaces"`
	Drag        *RawDrag          `yaml:"drag"`
	Topology    *RawTopology      `yaml:"topology"`
	Focus       *RawFocus         `yaml:"focus"`
	Spaces      *RawSpaces        `yaml:"spaces"`
	Persistence *RawPersistence   `yaml:"persistence"`
	Keybindings map[string]string `yaml:"keybindings"`
	Refresh     *RawRefresh       `yaml:"refresh"`
}

// merge returns c overlaid with every field overlay sets. Maps are merged
// key by key; lists are replaced.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c
	out.Include = nil
	pick(&out.LogLevel, overlay.LogLevel)

	if overlay.Gaps != nil {
		g := deref(out.Gaps)
		pick(&g.OuterX, overlay.Gaps.OuterX)
		pick(&g.OuterY, overlay.Gaps.OuterY)
		pick(&g.InnerX, overlay.Gaps.InnerX)
		pick(&g.InnerY, overlay.Gaps.InnerY)
		g.PerDisplay = mergeMap(g.PerDisplay, overlay.Gaps.PerDisplay)
		out.Gaps = &g
	}

	if overlay.Layout != nil {
		l := deref(out.Layout)
		pick(&l.DefaultMode, overlay.Layout.DefaultMode)
		if overlay.Layout.MasterStack != nil {
			ms := deref(l.MasterStack)
			o := overlay.Layout.MasterStack
			pick(&ms.Side, o.Side)
			pick(&ms.Ratio, o.Ratio)
			pick(&ms.Count, o.Count)
			pick(&ms.Placement, o.Placement)
			l.MasterStack = &ms
		}
		if overlay.Layout.Scrolling != nil {
			sc := deref(l.Scrolling)
			o := overlay.Layout.Scrolling
			pick(&sc.Ratio, o.Ratio)
			pick(&sc.MinRatio, o.MinRatio)
			pick(&sc.MaxRatio, o.MaxRatio)
			pick(&sc.Alignment, o.Alignment)
			pick(&sc.Style, o.Style)
			pick(&sc.OverscrollThreshold, o.OverscrollThreshold)
			l.Scrolling = &sc
		}
		out.Layout = &l
	}

	if overlay.Workspaces != nil {
		w := deref(out.Workspaces)
		o := overlay.Workspaces
		pick(&w.Count, o.Count)
		pick(&w.AutoBackAndForth, o.AutoBackAndForth)
		pick(&w.Max, o.Max)
		if o.Names != nil {
			w.Names = o.Names
		}
		if o.LayoutRules != nil {
			w.LayoutRules = o.LayoutRules
		}
		if o.AppRules != nil {
			w.AppRules = o.AppRules
		}
		out.Workspaces = &w
	}

	if overlay.Drag != nil {
		d := deref(out.Drag)
		pick(&d.Enabled, overlay.Drag.Enabled)
		pick(&d.SwapOverlap, overlay.Drag.SwapOverlap)
		out.Drag = &d
	}

	if overlay.Topology != nil {
		t := deref(out.Topology)
		pick(&t.ChurnSettleMS, overlay.Topology.ChurnSettleMS)
		pick(&t.FullscreenWaitMS, overlay.Topology.FullscreenWaitMS)
		out.Topology = &t
	}

	if overlay.Focus != nil {
		f := deref(out.Focus)
		pick(&f.MouseFollowsFocus, overlay.Focus.MouseFollowsFocus)
		pick(&f.SwipeOnBoundary, overlay.Focus.SwipeOnBoundary)
		pick(&f.InvertSwipe, overlay.Focus.InvertSwipe)
		pick(&f.SkipEmptyOnSwipe, overlay.Focus.SkipEmptyOnSwipe)
		out.Focus = &f
	}

	if overlay.Spaces != nil {
		s := deref(out.Spaces)
		pick(&s.DisabledByDefault, overlay.Spaces.DisabledByDefault)
		pick(&s.ReapplyRulesOnTitleChange, overlay.Spaces.ReapplyRulesOnTitleChange)
		out.Spaces = &s
	}

	if overlay.Persistence != nil {
		p := deref(out.Persistence)
		pick(&p.StateFile, overlay.Persistence.StateFile)
		pick(&p.AutosaveInterval, overlay.Persistence.AutosaveInterval)
		pick(&p.RestoreOnStart, overlay.Persistence.RestoreOnStart)
		out.Persistence = &p
	}

	out.Keybindings = mergeMap(out.Keybindings, overlay.Keybindings)

	if overlay.Refresh != nil {
		r := deref(out.Refresh)
		pick(&r.Interval, overlay.Refresh.Interval)
		pick(&r.Burst, overlay.Refresh.Burst)
		out.Refresh = &r
	}
	return out
}

func pick[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func mergeMap[V any](base, overlay map[string]V) map[string]V {
	if overlay == nil {
		return base
	}
	out := make(map[string]V, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
