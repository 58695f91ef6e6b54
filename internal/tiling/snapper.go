package tiling

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/luigirizzo/lrtile/internal/platform"
)

// maxUndoDepth bounds the per-window undo history.
const maxUndoDepth = 16

// ErrNothingToUndo is returned by Undo when the active window has no recorded
// pre-snap geometry.
var ErrNothingToUndo = errors.New("nothing to undo for the active window")

// DisplaySource supplies the current display list.
type DisplaySource interface {
	Snapshot() []platform.Display
	RequestRefresh()
}

// Settings is the part of the configuration the snapper consumes.
type Settings struct {
	Enabled bool
	Grid    GridConfig
}

// Status reports the snapper state.
type Status struct {
	Enabled     bool       `json:"enabled"`
	Grid        GridConfig `json:"grid"`
	LastCommand Command    `json:"last_command,omitempty"`
	LastResult  *Result    `json:"last_result,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	LastAt      time.Time  `json:"last_at,omitzero"`
	UndoWindows int        `json:"undo_windows"`
}

// Snapper applies grid commands to the focused window.
type Snapper struct {
	mu       sync.RWMutex
	backend  platform.Backend
	displays DisplaySource
	engine   *Engine
	logger   *slog.Logger
	settings Settings

	history map[platform.WindowID][]platform.Rect

	lastCommand Command
	lastResult  *Result
	lastErr     error
	lastAt      time.Time
}

// NewSnapper creates a snapper. A nil logger uses slog.Default().
func NewSnapper(backend platform.Backend, displays DisplaySource, settings Settings, logger *slog.Logger) *Snapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapper{
		backend:  backend,
		displays: displays,
		engine:   NewEngine(logger),
		logger:   logger,
		settings: settings,
		history:  make(map[platform.WindowID][]platform.Rect),
	}
}

// Snap runs cmd against the active window. A disabled snapper, or a command
// that would not change anything, returns a zero Result and nil.
func (s *Snapper) Snap(cmd Command) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.settings.Enabled {
		s.logger.Debug("snapping disabled, ignoring command", "command", string(cmd))
		return Result{}, nil
	}

	res, err := s.snapLocked(cmd)
	s.lastCommand = cmd
	s.lastErr = err
	s.lastAt = time.Now()
	if err == nil {
		r := res
		s.lastResult = &r
	}
	return res, err
}

func (s *Snapper) snapLocked(cmd Command) (Result, error) {
	wid, err := s.backend.ActiveWindow()
	if err != nil {
		return Result{}, fmt.Errorf("active window: %w", err)
	}

	geom, err := s.backend.WindowGeometry(wid)
	if err != nil {
		return Result{}, fmt.Errorf("window %d geometry: %w", wid, err)
	}
	win := rectFromPlatform(geom)

	display, ok := ResolveDisplay(win.X, win.Y, usableRects(s.displays.Snapshot()))
	if !ok {
		s.logger.Warn("window outside every known display, requesting refresh",
			"window", uint32(wid),
			"geometry", win.String(),
		)
		s.displays.RequestRefresh()
		return Result{}, ErrNoContainingDisplay
	}

	res, err := s.engine.Apply(win, display, s.settings.Grid, cmd)
	if err != nil {
		return res, err
	}
	if !res.Changed {
		s.logger.Debug("command leaves window unchanged", "command", string(cmd), "grid", res.After.String())
		return res, nil
	}

	if err := s.backend.MoveResize(wid, platformFromRect(res.Rect)); err != nil {
		return res, fmt.Errorf("move window %d: %w", wid, err)
	}
	s.pushHistoryLocked(wid, geom)

	s.logger.Info("snapped window",
		"command", string(cmd),
		"window", uint32(wid),
		"from", win.String(),
		"to", res.Rect.String(),
	)
	return res, nil
}

// Undo restores the active window to the geometry it had before its most
// recent snap.
func (s *Snapper) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wid, err := s.backend.ActiveWindow()
	if err != nil {
		return fmt.Errorf("active window: %w", err)
	}

	stack := s.history[wid]
	if len(stack) == 0 {
		return ErrNothingToUndo
	}
	prev := stack[len(stack)-1]

	if err := s.backend.MoveResize(wid, prev); err != nil {
		return fmt.Errorf("restore window %d: %w", wid, err)
	}

	if len(stack) == 1 {
		delete(s.history, wid)
	} else {
		s.history[wid] = stack[:len(stack)-1]
	}
	s.logger.Info("restored window", "window", uint32(wid), "to", rectFromPlatform(prev).String())
	return nil
}

func (s *Snapper) pushHistoryLocked(wid platform.WindowID, r platform.Rect) {
	stack := append(s.history[wid], r)
	if len(stack) > maxUndoDepth {
		stack = stack[len(stack)-maxUndoDepth:]
	}
	s.history[wid] = stack
}

// SetEnabled sets the on/off flag, or flips it when enabled is nil. It
// returns the new value.
func (s *Snapper) SetEnabled(enabled *bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enabled == nil {
		s.settings.Enabled = !s.settings.Enabled
	} else {
		s.settings.Enabled = *enabled
	}
	s.logger.Info("snapping toggled", "enabled", s.settings.Enabled)
	return s.settings.Enabled
}

// UpdateConfig swaps in new settings. Undo history is kept.
func (s *Snapper) UpdateConfig(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// Settings returns the settings currently in use.
func (s *Snapper) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Status returns a copy of the snapper state.
func (s *Snapper) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Enabled:     s.settings.Enabled,
		Grid:        s.settings.Grid,
		LastCommand: s.lastCommand,
		LastAt:      s.lastAt,
		UndoWindows: len(s.history),
	}
	if s.lastResult != nil {
		r := *s.lastResult
		st.LastResult = &r
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func usableRects(displays []platform.Display) []Rect {
	out := make([]Rect, 0, len(displays))
	for _, d := range displays {
		area := d.Usable
		if area.Width <= 0 || area.Height <= 0 {
			area = d.Bounds
		}
		out = append(out, rectFromPlatform(area))
	}
	return out
}

func rectFromPlatform(r platform.Rect) Rect {
	return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func platformFromRect(r Rect) platform.Rect {
	return platform.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}
