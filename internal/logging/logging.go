package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures Setup. Zero values give an info-level stderr logger.
type Options struct {
	// Level is shared with the caller so verbosity can change at runtime.
	Level *slog.LevelVar

	// Stderr defaults to os.Stderr.
	Stderr io.Writer
	// Quiet drops the stderr sink entirely.
	Quiet bool

	File       string
	Format     string
	MaxSizeMB  int
	MaxBackups int

	Prefix string
}

// Setup builds the process logger. The returned close function flushes and
// closes the file sink, if any.
func Setup(opts Options) (*slog.Logger, func() error, error) {
	level := opts.Level
	if level == nil {
		level = new(slog.LevelVar)
	}

	var handlers []slog.Handler
	closeFn := func() error { return nil }

	if !opts.Quiet {
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		handlers = append(handlers, stderrHandler(w, opts.Prefix))
	}

	if path := strings.TrimSpace(opts.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("logging: create log dir: %w", err)
		}
		rot := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    positiveOr(opts.MaxSizeMB, 10),
			MaxBackups: positiveOr(opts.MaxBackups, 3),
		}
		handlerOpts := &slog.HandlerOptions{Level: slog.LevelDebug}
		switch opts.Format {
		case FormatJSON:
			handlers = append(handlers, slog.NewJSONHandler(rot, handlerOpts))
		case "", FormatText:
			handlers = append(handlers, slog.NewTextHandler(rot, handlerOpts))
		default:
			_ = rot.Close()
			return nil, nil, fmt.Errorf("logging: unknown format %q", opts.Format)
		}
		closeFn = rot.Close
	}

	return slog.New(&fanout{level: level, handlers: handlers}), closeFn, nil
}

// stderrHandler renders with charm log on a terminal and plain text otherwise.
func stderrHandler(w io.Writer, prefix string) slog.Handler {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			Prefix:          prefix,
			Level:           charmlog.DebugLevel,
		})
	}
	h := slog.Handler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if prefix != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("component", prefix)})
	}
	return h
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", value)
	}
}

// fanout gates records on a shared level and forwards them to every sink.
type fanout struct {
	level    slog.Leveler
	handlers []slog.Handler
}

func (f *fanout) Enabled(ctx context.Context, l slog.Level) bool {
	if l < f.level.Level() {
		return false
	}
	for _, h := range f.handlers {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return &fanout{level: f.level, handlers: out}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		out[i] = h.WithGroup(name)
	}
	return &fanout{level: f.level, handlers: out}
}

func positiveOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
