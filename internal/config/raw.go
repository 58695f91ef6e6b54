package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
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

type RawLoggingConfig struct {
	File       *string `yaml:"file"`
	Format     *string `yaml:"format"`
	MaxSizeMB  *int    `yaml:"max_size_mb"`
	MaxBackups *int    `yaml:"max_backups"`
}

type RawConfig struct {
	Include               IncludeList       `yaml:"include"`
	On                    *bool             `yaml:"on"`
	Rows                  *int              `yaml:"rows"`
	Cols                  *int              `yaml:"cols"`
	Border                *int              `yaml:"border"`
	Step                  *int              `yaml:"step"`
	LogLevel              *string           `yaml:"log_level"`
	Display               *string           `yaml:"display"`
	Hotkeys               map[string]string `yaml:"hotkeys"`
	ToggleHotkey          *string           `yaml:"toggle_hotkey"`
	UndoHotkey            *string           `yaml:"undo_hotkey"`
	DisplayRefreshSeconds *int              `yaml:"display_refresh_seconds"`
	Logging               *RawLoggingConfig `yaml:"logging"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.On != nil {
		out.On = overlay.On
	}
	if overlay.Rows != nil {
		out.Rows = overlay.Rows
	}
	if overlay.Cols != nil {
		out.Cols = overlay.Cols
	}
	if overlay.Border != nil {
		out.Border = overlay.Border
	}
	if overlay.Step != nil {
		out.Step = overlay.Step
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.Hotkeys != nil {
		merged := make(map[string]string, len(out.Hotkeys)+len(overlay.Hotkeys))
		for name, seq := range out.Hotkeys {
			merged[name] = seq
		}
		for name, seq := range overlay.Hotkeys {
			merged[name] = seq
		}
		out.Hotkeys = merged
	}
	if overlay.ToggleHotkey != nil {
		out.ToggleHotkey = overlay.ToggleHotkey
	}
	if overlay.UndoHotkey != nil {
		out.UndoHotkey = overlay.UndoHotkey
	}
	if overlay.DisplayRefreshSeconds != nil {
		out.DisplayRefreshSeconds = overlay.DisplayRefreshSeconds
	}

	if overlay.Logging != nil {
		logging := RawLoggingConfig{}
		if out.Logging != nil {
			logging = *out.Logging
		}
		if overlay.Logging.File != nil {
			logging.File = overlay.Logging.File
		}
		if overlay.Logging.Format != nil {
			logging.Format = overlay.Logging.Format
		}
		if overlay.Logging.MaxSizeMB != nil {
			logging.MaxSizeMB = overlay.Logging.MaxSizeMB
		}
		if overlay.Logging.MaxBackups != nil {
			logging.MaxBackups = overlay.Logging.MaxBackups
		}
		out.Logging = &logging
	}

	return out
}
