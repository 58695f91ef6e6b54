package tiling

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

const (
	// MinGridCells is the smallest number of rows or columns the engine uses.
	MinGridCells = 4

	// Displays wider or taller than these get twice the configured cells.
	hiDPIWidth  = 3000
	hiDPIHeight = 1500
)

var (
	ErrGridTooNarrow       = errors.New("screen too narrow")
	ErrGridTooShort        = errors.New("screen too short")
	ErrUnrecognizedCommand = errors.New("unrecognized command")
	ErrDegenerateGeometry  = errors.New("border leaves no usable window size")
)

// Rect represents a window position and size
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d@%d,%d", r.Width, r.Height, r.X, r.Y)
}

// GridConfig is the user-facing grid description.
type GridConfig struct {
	Rows   int `json:"rows"`
	Cols   int `json:"cols"`
	Border int `json:"border"`
	Step   int `json:"step"`
}

// Grid is the effective grid for one display: cell counts after the minimum
// and hi-dpi adjustments, and the pixel size of one cell.
type Grid struct {
	Rows  int `json:"rows"`
	Cols  int `json:"cols"`
	CellW int `json:"cell_width"`
	CellH int `json:"cell_height"`
}

// GridRect is a window in grid-cell coordinates relative to the display origin.
// X1 and Y1 are exclusive.
type GridRect struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

func (g GridRect) String() string {
	return fmt.Sprintf("%d,%d %d,%d", g.X0, g.Y0, g.X1, g.Y1)
}

// Result describes the outcome of one command.
type Result struct {
	Grid    Grid     `json:"grid"`
	Before  GridRect `json:"before"`
	After   GridRect `json:"after"`
	Rect    Rect     `json:"rect"`
	Changed bool     `json:"changed"`
}

// EffectiveGrid computes the grid used on the given display.
func EffectiveGrid(display Rect, cfg GridConfig) Grid {
	rows := max(cfg.Rows, MinGridCells)
	cols := max(cfg.Cols, MinGridCells)
	if display.Width > hiDPIWidth {
		cols *= 2
	}
	if display.Height > hiDPIHeight {
		rows *= 2
	}
	return Grid{
		Rows:  rows,
		Cols:  cols,
		CellW: display.Width / cols,
		CellH: display.Height / rows,
	}
}

// Project rounds the corners of win to the nearest cell boundaries of the
// grid laid over display.
func (g Grid) Project(win, display Rect) GridRect {
	return GridRect{
		X0: roundDiv(win.X-display.X, g.CellW),
		Y0: roundDiv(win.Y-display.Y, g.CellH),
		X1: roundDiv(win.X+win.Width-display.X, g.CellW),
		Y1: roundDiv(win.Y+win.Height-display.Y, g.CellH),
	}
}

// Pixels converts a grid rect back to absolute coordinates, reserving border
// pixels on the right and bottom edges.
func (g Grid) Pixels(r GridRect, display Rect, border int) Rect {
	return Rect{
		X:      display.X + r.X0*g.CellW,
		Y:      display.Y + r.Y0*g.CellH,
		Width:  (r.X1-r.X0)*g.CellW - border,
		Height: (r.Y1-r.Y0)*g.CellH - border,
	}
}

// roundDiv returns n/d rounded half up.
func roundDiv(n, d int) int {
	return int(math.Floor(float64(n)/float64(d) + 0.5))
}

// Engine applies grid commands. It holds no state besides its logger.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an engine that reports through logger. A nil logger
// uses slog.Default().
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Apply computes the new geometry of win after cmd on the given display.
//
// A Result with Changed false means the caller must not touch the window.
// Errors are all recoverable: the command is simply dropped.
func (e *Engine) Apply(win, display Rect, cfg GridConfig, cmd Command) (Result, error) {
	g := EffectiveGrid(display, cfg)
	if g.CellW <= 0 {
		e.logger.Warn("grid finer than display", "cols", g.Cols, "display", display.String())
		return Result{Grid: g}, ErrGridTooNarrow
	}
	if g.CellH <= 0 {
		e.logger.Warn("grid finer than display", "rows", g.Rows, "display", display.String())
		return Result{Grid: g}, ErrGridTooShort
	}

	r := g.Project(win, display)
	r, err := enforceMinSize(r, g, cfg.Step)
	if err != nil {
		e.logger.Info("command aborted", "command", string(cmd), "error", err, "grid", r.String())
		return Result{Grid: g, Before: r, After: r}, err
	}

	e.logger.Debug("before",
		"command", string(cmd),
		"grid", r.String(),
		"absolute", g.Pixels(r, display, 0).String(),
	)

	after, ok := transform(r, g, cfg.Step, cmd)
	if !ok {
		e.logger.Warn("unrecognized command", "command", string(cmd))
		return Result{Grid: g, Before: r, After: r}, fmt.Errorf("%w: %q", ErrUnrecognizedCommand, cmd)
	}

	e.logger.Debug("after",
		"command", string(cmd),
		"grid", after.String(),
		"absolute", g.Pixels(after, display, 0).String(),
	)

	res := Result{Grid: g, Before: r, After: after}
	if after == r {
		return res, nil
	}

	res.Rect = g.Pixels(after, display, cfg.Border)
	if res.Rect.Width <= 0 || res.Rect.Height <= 0 {
		e.logger.Warn("border too large for cell size",
			"border", cfg.Border,
			"cell_width", g.CellW,
			"cell_height", g.CellH,
		)
		return Result{Grid: g, Before: r, After: r}, ErrDegenerateGeometry
	}
	res.Changed = true
	return res, nil
}

// enforceMinSize grows r to at least step cells on each axis, extending
// right/down first and left/up only when the grid edge is reached.
func enforceMinSize(r GridRect, g Grid, step int) (GridRect, error) {
	if r.X1-r.X0 < step {
		r.X1 = min(g.Cols, r.X0+step)
	}
	if r.X1-r.X0 < step {
		r.X0 = max(0, r.X1-step)
	}
	if r.X1-r.X0 < step {
		return r, ErrGridTooNarrow
	}

	if r.Y1-r.Y0 < step {
		r.Y1 = min(g.Rows, r.Y0+step)
	}
	if r.Y1-r.Y0 < step {
		r.Y0 = max(0, r.Y1-step)
	}
	if r.Y1-r.Y0 < step {
		return r, ErrGridTooShort
	}
	return r, nil
}

// transform applies cmd to r. Directional commands slide the window while
// it fits and shrink it against the edge once it does not.
func transform(r GridRect, g Grid, step int, cmd Command) (GridRect, bool) {
	minW, minH := step, step
	switch cmd {
	case CommandFull:
		r = GridRect{X0: 0, Y0: 0, X1: g.Cols, Y1: g.Rows}

	case CommandWide:
		if r.X1 < g.Cols {
			r.X1++
		} else if r.X0 > 0 {
			r.X0--
		}

	case CommandNarrow:
		if r.X1-r.X0 > minW {
			r.X1--
		}

	case CommandTall:
		if r.Y1 < g.Rows {
			r.Y1++
		} else if r.Y0 > 0 {
			r.Y0--
		}

	case CommandShort:
		if r.Y1-r.Y0 > minH {
			r.Y1--
		}

	case CommandLeft:
		if r.X0 > 0 {
			r.X0--
			r.X1--
		} else if r.X1-r.X0 > minW {
			r.X1--
		}

	case CommandRight:
		if r.X1 < g.Cols {
			r.X0++
			r.X1++
		} else if r.X0 < g.Cols-minW && r.X1-r.X0 > minW {
			r.X0++
		}

	case CommandUp:
		if r.Y0 > 0 {
			r.Y0--
			r.Y1--
		} else if r.Y1-r.Y0 > minH {
			r.Y1--
		}

	case CommandDown:
		if r.Y1 < g.Rows {
			r.Y0++
			r.Y1++
		} else if r.Y0 < g.Rows-minH && r.Y1-r.Y0 > minH {
			r.Y0++
		}

	default:
		return r, false
	}
	return r, true
}
