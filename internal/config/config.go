package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/spacetile/internal/tiling"
)

// GapsConfig sets the outer and inner gaps, optionally per display UUID.
type GapsConfig struct {
	OuterX     float64                `yaml:"outer_x"`
	OuterY     float64                `yaml:"outer_y"`
	InnerX     float64                `yaml:"inner_x"`
	InnerY     float64                `yaml:"inner_y"`
	PerDisplay map[string]tiling.Gaps `yaml:"per_display,omitempty"`
}

// MasterStackConfig mirrors tiling.MasterStackSettings.
type MasterStackConfig struct {
	Side      string  `yaml:"side"`
	Ratio     float64 `yaml:"ratio"`
	Count     int     `yaml:"count"`
	Placement string  `yaml:"placement"`
}

// ScrollingConfig mirrors tiling.ScrollingSettings.
type ScrollingConfig struct {
	Ratio               float64 `yaml:"ratio"`
	MinRatio            float64 `yaml:"min_ratio"`
	MaxRatio            float64 `yaml:"max_ratio"`
	Alignment           string  `yaml:"alignment"`
	Style               string  `yaml:"style"`
	OverscrollThreshold float64 `yaml:"overscroll_threshold"`
}

// LayoutConfig picks the layout mode new workspaces start with and tunes
// the strategies.
type LayoutConfig struct {
	DefaultMode string            `yaml:"default_mode"`
	MasterStack MasterStackConfig `yaml:"master_stack"`
	Scrolling   ScrollingConfig   `yaml:"scrolling"`
}

// WorkspacesConfig configures the virtual workspaces of every space.
type WorkspacesConfig struct {
	Count            int                 `yaml:"count"`
	Names            []string            `yaml:"names,omitempty"`
	AutoBackAndForth bool                `yaml:"auto_back_and_forth"`
	LayoutRules      []tiling.LayoutRule `yaml:"layout_rules,omitempty"`
	AppRules         []tiling.AppRule    `yaml:"app_rules,omitempty"`
	Max              int                 `yaml:"max"`
}

// DragConfig controls swapping tiled windows by dragging.
type DragConfig struct {
	Enabled     bool    `yaml:"enabled"`
	SwapOverlap float64 `yaml:"swap_overlap"`
}

// TopologyConfig controls display churn handling.
type TopologyConfig struct {
	// ChurnSettleMS is how long a burst of display changes must be quiet
	// before it is considered over.
	ChurnSettleMS int `yaml:"churn_settle_ms"`
	// FullscreenWaitMS is waited before windows are moved back out of a
	// fullscreen space.
	FullscreenWaitMS int `yaml:"fullscreen_wait_ms"`
}

// FocusConfig controls focus and pointer behaviour.
type FocusConfig struct {
	MouseFollowsFocus bool `yaml:"mouse_follows_focus"`
	SwipeOnBoundary   bool `yaml:"swipe_on_boundary"`
	InvertSwipe       bool `yaml:"invert_swipe"`
	SkipEmptyOnSwipe  bool `yaml:"skip_empty_on_swipe"`
}

// SpacesConfig controls which spaces are managed.
type SpacesConfig struct {
	DisabledByDefault         bool `yaml:"disabled_by_default"`
	ReapplyRulesOnTitleChange bool `yaml:"reapply_rules_on_title_change"`
}

// PersistenceConfig controls where layout state is saved and how often.
type PersistenceConfig struct {
	// StateFile defaults to $XDG_DATA_HOME/spacetile/layout.yaml when empty.
	StateFile        string        `yaml:"state_file,omitempty"`
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
	RestoreOnStart   bool          `yaml:"restore_on_start"`
}

// RefreshConfig controls the periodic window refresh.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
	// Burst is how many refreshes may run back to back.
	Burst int `yaml:"burst"`
}

// Config is the effective daemon configuration.
type Config struct {
	LogLevel    string            `yaml:"log_level"`
	Gaps        GapsConfig        `yaml:"gaps"`
	Layout      LayoutConfig      `yaml:"layout"`
	Workspaces  WorkspacesConfig  `yaml:"workspaces"`
	Drag        DragConfig        `yaml:"drag"`
	Topology    TopologyConfig    `yaml:"topology"`
	Focus       FocusConfig       `yaml:"focus"`
	Spaces      SpacesConfig      `yaml:"spaces"`
	Persistence PersistenceConfig `yaml:"persistence"`
	// Keybindings maps a key combination such as "Mod4-h" to a command
	// line such as "move_focus left".
	Keybindings map[string]string `yaml:"keybindings"`
	Refresh     RefreshConfig     `yaml:"refresh"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	ms := tiling.DefaultMasterStackSettings()
	sc := tiling.DefaultScrollingSettings()
	ws := tiling.DefaultWorkspaceSettings()
	return &Config{
		LogLevel: "info",
		Gaps: GapsConfig{
			OuterX: 8,
			OuterY: 8,
			InnerX: 8,
			InnerY: 8,
		},
		Layout: LayoutConfig{
			DefaultMode: string(tiling.ModeTraditional),
			MasterStack: MasterStackConfig{
				Side:      string(ms.Side),
				Ratio:     ms.Ratio,
				Count:     ms.Count,
				Placement: string(ms.Placement),
			},
			Scrolling: ScrollingConfig{
				Ratio:               sc.Ratio,
				MinRatio:            sc.MinRatio,
				MaxRatio:            sc.MaxRatio,
				Alignment:           string(sc.Alignment),
				Style:               string(sc.Style),
				OverscrollThreshold: sc.OverscrollThreshold,
			},
		},
		Workspaces: WorkspacesConfig{
			Count: ws.Count,
			Max:   ws.Max,
		},
		Drag: DragConfig{
			Enabled:     true,
			SwapOverlap: 0.3,
		},
		Topology: TopologyConfig{
			ChurnSettleMS:    500,
			FullscreenWaitMS: 50,
		},
		Focus: FocusConfig{
			SwipeOnBoundary: true,
		},
		Persistence: PersistenceConfig{
			AutosaveInterval: time.Minute,
			RestoreOnStart:   true,
		},
		Keybindings: defaultKeybindings(),
		Refresh: RefreshConfig{
			Interval: 5 * time.Second,
			Burst:    1,
		},
	}
}

func defaultKeybindings() map[string]string {
	return map[string]string{
		"Mod4-h":       "move_focus left",
		"Mod4-j":       "move_focus down",
		"Mod4-k":       "move_focus up",
		"Mod4-l":       "move_focus right",
		"Mod4-Shift-h": "move_node left",
		"Mod4-Shift-j": "move_node down",
		"Mod4-Shift-k": "move_node up",
		"Mod4-Shift-l": "move_node right",
		"Mod4-f":       "toggle_fullscreen",
		"Mod4-space":   "toggle_window_floating",
		"Mod4-1":       "switch_to_workspace 1",
		"Mod4-2":       "switch_to_workspace 2",
		"Mod4-3":       "switch_to_workspace 3",
		"Mod4-4":       "switch_to_workspace 4",
		"Mod4-Tab":     "switch_to_last_workspace",
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/spacetile/config.yaml, or
// ~/.config/spacetile/config.yaml.
func DefaultConfigPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "spacetile", "config.yaml"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "spacetile", "config.yaml"), nil
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path, creating parent directories.
func (c *Config) SaveTo(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func (c *Config) ChurnSettle() time.Duration {
	return time.Duration(c.Topology.ChurnSettleMS) * time.Millisecond
}

func (c *Config) FullscreenWait() time.Duration {
	return time.Duration(c.Topology.FullscreenWaitMS) * time.Millisecond
}

// GapsFor returns the gaps used on displayUUID.
func (c *Config) GapsFor(displayUUID string) tiling.Gaps {
	return c.GapSettings().For(displayUUID)
}

func (c *Config) GapSettings() tiling.GapSettings {
	return tiling.GapSettings{
		Default: tiling.Gaps{
			OuterX: c.Gaps.OuterX,
			OuterY: c.Gaps.OuterY,
			InnerX: c.Gaps.InnerX,
			InnerY: c.Gaps.InnerY,
		},
		PerDisplay: c.Gaps.PerDisplay,
	}
}

// Binding is one parsed keybinding.
type Binding struct {
	Key     string
	Command tiling.LayoutCommand
}

// Bindings parses the keybindings, sorted by key.
func (c *Config) Bindings() ([]Binding, error) {
	keys := sortedKeys(c.Keybindings)
	out := make([]Binding, 0, len(keys))
	for _, key := range keys {
		cmd, err := parseCommandLine(c.Keybindings[key])
		if err != nil {
			return nil, &ValidationError{Path: "keybindings." + key, Err: err}
		}
		out = append(out, Binding{Key: key, Command: cmd})
	}
	return out, nil
}

func parseCommandLine(line string) (tiling.LayoutCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return tiling.LayoutCommand{}, fmt.Errorf("command must not be empty")
	}
	return tiling.ParseCommand(fields[0], fields[1:])
}

// Validate checks the configuration and reports the first problem found.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}

	for name, g := range map[string]float64{
		"gaps.outer_x": c.Gaps.OuterX,
		"gaps.outer_y": c.Gaps.OuterY,
		"gaps.inner_x": c.Gaps.InnerX,
		"gaps.inner_y": c.Gaps.InnerY,
	} {
		if g < 0 {
			return &ValidationError{Path: name, Err: fmt.Errorf("gaps must be >= 0")}
		}
	}
	for _, display := range sortedKeys(c.Gaps.PerDisplay) {
		g := c.Gaps.PerDisplay[display]
		if g.OuterX < 0 || g.OuterY < 0 || g.InnerX < 0 || g.InnerY < 0 {
			return &ValidationError{Path: "gaps.per_display." + display, Err: fmt.Errorf("gaps must be >= 0")}
		}
	}

	if _, err := tiling.ParseLayoutMode(c.Layout.DefaultMode); err != nil {
		return &ValidationError{Path: "layout.default_mode", Err: err}
	}
	if err := c.masterStackSettings().Validate(); err != nil {
		return &ValidationError{Path: "layout.master_stack", Err: err}
	}
	if err := c.scrollingSettings().Validate(); err != nil {
		return &ValidationError{Path: "layout.scrolling", Err: err}
	}
	if err := c.workspaceSettings().Validate(); err != nil {
		return &ValidationError{Path: "workspaces", Err: err}
	}

	if c.Drag.SwapOverlap <= 0 || c.Drag.SwapOverlap > 1 {
		return &ValidationError{Path: "drag.swap_overlap", Err: fmt.Errorf("swap_overlap must be within (0, 1]")}
	}
	if c.Topology.ChurnSettleMS < 0 {
		return &ValidationError{Path: "topology.churn_settle_ms", Err: fmt.Errorf("churn_settle_ms must be >= 0")}
	}
	if c.Topology.FullscreenWaitMS < 0 {
		return &ValidationError{Path: "topology.fullscreen_wait_ms", Err: fmt.Errorf("fullscreen_wait_ms must be >= 0")}
	}
	if c.Persistence.AutosaveInterval < 0 {
		return &ValidationError{Path: "persistence.autosave_interval", Err: fmt.Errorf("autosave_interval must be >= 0")}
	}
	if c.Refresh.Interval < 0 {
		return &ValidationError{Path: "refresh.interval", Err: fmt.Errorf("interval must be >= 0")}
	}
	if c.Refresh.Burst < 1 {
		return &ValidationError{Path: "refresh.burst", Err: fmt.Errorf("burst must be >= 1")}
	}
	if _, err := c.Bindings(); err != nil {
		return err
	}
	return nil
}

func (c *Config) masterStackSettings() tiling.MasterStackSettings {
	return tiling.MasterStackSettings{
		Side:      tiling.MasterSide(strings.ToLower(c.Layout.MasterStack.Side)),
		Ratio:     c.Layout.MasterStack.Ratio,
		Count:     c.Layout.MasterStack.Count,
		Placement: tiling.Placement(strings.ToLower(c.Layout.MasterStack.Placement)),
	}
}

func (c *Config) scrollingSettings() tiling.ScrollingSettings {
	return tiling.ScrollingSettings{
		Ratio:               c.Layout.Scrolling.Ratio,
		MinRatio:            c.Layout.Scrolling.MinRatio,
		MaxRatio:            c.Layout.Scrolling.MaxRatio,
		Alignment:           tiling.Alignment(strings.ToLower(c.Layout.Scrolling.Alignment)),
		Style:               tiling.NavigationStyle(strings.ToLower(c.Layout.Scrolling.Style)),
		OverscrollThreshold: c.Layout.Scrolling.OverscrollThreshold,
	}
}

func (c *Config) workspaceSettings() tiling.WorkspaceSettings {
	return tiling.WorkspaceSettings{
		Count:            c.Workspaces.Count,
		Names:            c.Workspaces.Names,
		AutoBackAndForth: c.Workspaces.AutoBackAndForth,
		LayoutRules:      c.Workspaces.LayoutRules,
		AppRules:         c.Workspaces.AppRules,
		Max:              c.Workspaces.Max,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
