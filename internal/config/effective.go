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

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BuildEffectiveConfig overlays raw on DefaultConfig. Hotkey names may be
// given in any case; they are stored lower-cased.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.On != nil {
		cfg.On = *raw.On
	}
	if raw.Rows != nil {
		cfg.Rows = *raw.Rows
	}
	if raw.Cols != nil {
		cfg.Cols = *raw.Cols
	}
	if raw.Border != nil {
		cfg.Border = *raw.Border
	}
	if raw.Step != nil {
		cfg.Step = *raw.Step
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	for name, seq := range raw.Hotkeys {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil, &ValidationError{Path: "hotkeys", Err: fmt.Errorf("hotkeys contains an empty command name")}
		}
		cfg.Hotkeys[key] = strings.TrimSpace(seq)
	}
	if raw.ToggleHotkey != nil {
		cfg.ToggleHotkey = strings.TrimSpace(*raw.ToggleHotkey)
	}
	if raw.UndoHotkey != nil {
		cfg.UndoHotkey = strings.TrimSpace(*raw.UndoHotkey)
	}
	if raw.DisplayRefreshSeconds != nil {
		cfg.DisplayRefreshSeconds = *raw.DisplayRefreshSeconds
	}

	if raw.Logging != nil {
		if raw.Logging.File != nil {
			cfg.Logging.File = *raw.Logging.File
		}
		if raw.Logging.Format != nil {
			cfg.Logging.Format = strings.ToLower(strings.TrimSpace(*raw.Logging.Format))
		}
		if raw.Logging.MaxSizeMB != nil {
			cfg.Logging.MaxSizeMB = *raw.Logging.MaxSizeMB
		}
		if raw.Logging.MaxBackups != nil {
			cfg.Logging.MaxBackups = *raw.Logging.MaxBackups
		}
	}

	return cfg, nil
}
