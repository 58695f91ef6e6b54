package config

import (
	"fmt"
	"strings"

	"github.com/luigirizzo/lrtile/internal/tiling"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	on
//	rows
//	cols
//	border
//	step
//	log_level
//	display
//	hotkeys
//	hotkeys.<command>
//	toggle_hotkey
//	undo_hotkey
//	display_refresh_seconds
//	logging.file
//	logging.format
//	logging.max_size_mb
//	logging.max_backups
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	leaf := func(v any) (any, error) {
		if len(parts) != 1 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return v, nil
	}

	switch parts[0] {
	case "on":
		return leaf(cfg.On)
	case "rows":
		return leaf(cfg.Rows)
	case "cols":
		return leaf(cfg.Cols)
	case "border":
		return leaf(cfg.Border)
	case "step":
		return leaf(cfg.Step)
	case "log_level":
		return leaf(cfg.LogLevel)
	case "display":
		return leaf(cfg.Display)
	case "toggle_hotkey":
		return leaf(cfg.ToggleHotkey)
	case "undo_hotkey":
		return leaf(cfg.UndoHotkey)
	case "display_refresh_seconds":
		return leaf(cfg.DisplayRefreshSeconds)
	case "hotkeys":
		switch len(parts) {
		case 1:
			return cfg.Hotkeys, nil
		case 2:
			if !tiling.Command(parts[1]).Valid() {
				return nil, fmt.Errorf("unknown command: %s", parts[1])
			}
			return cfg.Hotkeys[parts[1]], nil
		}
	case "logging":
		if len(parts) == 1 {
			return cfg.Logging, nil
		}
		if len(parts) != 2 {
			break
		}
		switch parts[1] {
		case "file":
			return cfg.Logging.File, nil
		case "format":
			return cfg.Logging.Format, nil
		case "max_size_mb":
			return cfg.Logging.MaxSizeMB, nil
		case "max_backups":
			return cfg.Logging.MaxBackups, nil
		}
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
