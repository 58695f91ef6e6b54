package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v3"

	"github.com/luigirizzo/lrtile/internal/tiling"
)

const appName = "lrtile"

// LoggingConfig controls the log sinks.
type LoggingConfig struct {
	File       string `yaml:"file"`
	Format     string `yaml:"format"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Config holds the application configuration.
type Config struct {
	On                    bool              `yaml:"on"`
	Rows                  int               `yaml:"rows"`
	Cols                  int               `yaml:"cols"`
	Border                int               `yaml:"border"`
	Step                  int               `yaml:"step"`
	LogLevel              string            `yaml:"log_level"`
	Display               string            `yaml:"display,omitempty"`
	Hotkeys               map[string]string `yaml:"hotkeys"`
	ToggleHotkey          string            `yaml:"toggle_hotkey"`
	UndoHotkey            string            `yaml:"undo_hotkey"`
	DisplayRefreshSeconds int               `yaml:"display_refresh_seconds"`
	Logging               LoggingConfig     `yaml:"logging"`
}

func DefaultConfig() *Config {
	return &Config{
		On:       true,
		Rows:     6,
		Cols:     6,
		Border:   2,
		Step:     2,
		LogLevel: "info",
		Hotkeys: map[string]string{
			string(tiling.CommandLeft):   "Control-Shift-Left",
			string(tiling.CommandRight):  "Control-Shift-Right",
			string(tiling.CommandUp):     "Control-Shift-Up",
			string(tiling.CommandDown):   "Control-Shift-Down",
			string(tiling.CommandNarrow): "Control-Mod4-Left",
			string(tiling.CommandWide):   "Control-Mod4-Right",
			string(tiling.CommandShort):  "Control-Mod4-Up",
			string(tiling.CommandTall):   "Control-Mod4-Down",
			string(tiling.CommandFull):   "Control-Mod4-Return",
		},
		ToggleHotkey:          "Control-Mod4-g",
		UndoHotkey:            "Control-Mod4-z",
		DisplayRefreshSeconds: 10,
		Logging: LoggingConfig{
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/lrtile/config.yaml.
func DefaultConfigPath() (string, error) {
	if xdg.ConfigHome == "" {
		return "", fmt.Errorf("failed to resolve XDG config home")
	}
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml"), nil
}

// DefaultLogPath returns the daemon log file under $XDG_STATE_HOME, creating
// its directory.
func DefaultLogPath() (string, error) {
	path, err := xdg.StateFile(filepath.Join(appName, appName+".log"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve log path: %w", err)
	}
	return path, nil
}

// Grid returns the engine view of the configuration.
func (c *Config) Grid() tiling.GridConfig {
	return tiling.GridConfig{
		Rows:   c.Rows,
		Cols:   c.Cols,
		Border: c.Border,
		Step:   c.Step,
	}
}

// Settings returns the snapper view of the configuration.
func (c *Config) Settings() tiling.Settings {
	return tiling.Settings{Enabled: c.On, Grid: c.Grid()}
}

// Bindings returns hotkey -> command pairs sorted by command name. Empty
// sequences are unbound and skipped.
func (c *Config) Bindings() []Binding {
	names := make([]string, 0, len(c.Hotkeys))
	for name := range c.Hotkeys {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Binding, 0, len(names))
	for _, name := range names {
		seq := strings.TrimSpace(c.Hotkeys[name])
		if seq == "" {
			continue
		}
		out = append(out, Binding{Command: tiling.Command(name), Sequence: seq})
	}
	return out
}

// Binding pairs a key sequence with the command it triggers.
type Binding struct {
	Command  tiling.Command
	Sequence string
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Hotkeys = make(map[string]string, len(c.Hotkeys))
	for k, v := range c.Hotkeys {
		out.Hotkeys[k] = v
	}
	return &out
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Rows < 1 {
		return &ValidationError{Path: "rows", Err: fmt.Errorf("rows must be >= 1")}
	}
	if c.Cols < 1 {
		return &ValidationError{Path: "cols", Err: fmt.Errorf("cols must be >= 1")}
	}
	if c.Border < 0 {
		return &ValidationError{Path: "border", Err: fmt.Errorf("border must be >= 0")}
	}
	if c.Step < 1 {
		return &ValidationError{Path: "step", Err: fmt.Errorf("step must be >= 1")}
	}
	switch c.LogLevel {
	case "debug", "info", "warning", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.Hotkeys == nil {
		return &ValidationError{Path: "hotkeys", Err: fmt.Errorf("hotkeys must not be null")}
	}
	for name := range c.Hotkeys {
		if !tiling.Command(name).Valid() {
			return &ValidationError{Path: "hotkeys." + name, Err: fmt.Errorf("unknown command %q", name)}
		}
	}
	if err := c.checkDuplicateSequences(); err != nil {
		return err
	}
	if c.DisplayRefreshSeconds < 0 {
		return &ValidationError{Path: "display_refresh_seconds", Err: fmt.Errorf("display_refresh_seconds must be >= 0")}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &ValidationError{Path: "logging.format", Err: fmt.Errorf("logging.format must be one of: text, json")}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Logging.MaxBackups < 0 {
		return &ValidationError{Path: "logging.max_backups", Err: fmt.Errorf("max_backups must be >= 0")}
	}
	return nil
}

func (c *Config) checkDuplicateSequences() error {
	type entry struct{ path, seq string }
	var entries []entry
	for _, b := range c.Bindings() {
		entries = append(entries, entry{"hotkeys." + string(b.Command), b.Sequence})
	}
	entries = append(entries,
		entry{"toggle_hotkey", c.ToggleHotkey},
		entry{"undo_hotkey", c.UndoHotkey},
	)

	seen := mapset.NewThreadUnsafeSet[string]()
	owner := make(map[string]string, len(entries))
	for _, e := range entries {
		seq := strings.TrimSpace(e.seq)
		if seq == "" {
			continue
		}
		if !seen.Add(seq) {
			return &ValidationError{Path: e.path, Err: fmt.Errorf("key sequence %q is already bound by %s", seq, owner[seq])}
		}
		owner[seq] = e.path
	}
	return nil
}

// Warnings lists accepted but ineffective settings.
func (c *Config) Warnings() []string {
	if c == nil {
		return nil
	}

	var warnings []string
	if c.Rows < tiling.MinGridCells {
		warnings = append(warnings, fmt.Sprintf("rows %d is below %d; %d rows will be used", c.Rows, tiling.MinGridCells, tiling.MinGridCells))
	}
	if c.Cols < tiling.MinGridCells {
		warnings = append(warnings, fmt.Sprintf("cols %d is below %d; %d cols will be used", c.Cols, tiling.MinGridCells, tiling.MinGridCells))
	}
	if c.Step > max(c.Rows, c.Cols, tiling.MinGridCells) {
		warnings = append(warnings, fmt.Sprintf("step %d exceeds the grid; most commands will be rejected", c.Step))
	}
	return warnings
}
