package mcp

import "github.com/luigirizzo/lrtile/internal/tiling"

// RectInput is a pixel rectangle.
type RectInput struct {
	X      int `json:"x" jsonschema:"Left edge in pixels"`
	Y      int `json:"y" jsonschema:"Top edge in pixels"`
	Width  int `json:"width" jsonschema:"Width in pixels"`
	Height int `json:"height" jsonschema:"Height in pixels"`
}

func (r RectInput) rect() tiling.Rect {
	return tiling.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// SnapWindowInput is the input for the snap_window tool.
type SnapWindowInput struct {
	Command string `json:"command" jsonschema:"required,Grid command: left, right, up, down, narrow, wide, short, tall or full"`
}

// SnapWindowOutput is the output for the snap_window tool.
type SnapWindowOutput struct {
	Enabled bool          `json:"enabled"`
	Changed bool          `json:"changed"`
	Result  tiling.Result `json:"result"`
}

// UndoSnapInput is the input for the undo_snap tool.
type UndoSnapInput struct{}

// UndoSnapOutput is the output for the undo_snap tool.
type UndoSnapOutput struct {
	Restored bool `json:"restored"`
}

// ListDisplaysInput is the input for the list_displays tool.
type ListDisplaysInput struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"When true, ask the daemon to re-query displays first"`
}

// DisplayOutput describes one display and its work area.
type DisplayOutput struct {
	ID     int         `json:"id"`
	Name   string      `json:"name"`
	Bounds tiling.Rect `json:"bounds"`
	Usable tiling.Rect `json:"usable"`
}

// ListDisplaysOutput is the output for the list_displays tool.
type ListDisplaysOutput struct {
	Displays []DisplayOutput `json:"displays"`
}

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	Enabled       bool              `json:"enabled"`
	Grid          tiling.GridConfig `json:"grid"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	ConfigPath    string            `json:"config_path"`
	DisplayCount  int               `json:"display_count"`
	LastCommand   string            `json:"last_command,omitempty"`
	LastError     string            `json:"last_error,omitempty"`
	LastResult    *tiling.Result    `json:"last_result,omitempty"`
}

// SetEnabledInput is the input for the set_enabled tool.
type SetEnabledInput struct {
	Enabled *bool `json:"enabled,omitempty" jsonschema:"New on/off state. Omit to toggle."`
	Persist bool  `json:"persist,omitempty" jsonschema:"When true, write the new state to the config file"`
}

// SetEnabledOutput is the output for the set_enabled tool.
type SetEnabledOutput struct {
	Enabled bool `json:"enabled"`
}

// PreviewSnapInput is the input for the preview_snap tool.
type PreviewSnapInput struct {
	Command string    `json:"command" jsonschema:"required,Grid command to preview"`
	Window  RectInput `json:"window" jsonschema:"required,Current window frame"`
	Display RectInput `json:"display" jsonschema:"required,Usable work area of the display holding the window"`
	Rows    *int      `json:"rows,omitempty" jsonschema:"Grid rows (default: configured rows)"`
	Cols    *int      `json:"cols,omitempty" jsonschema:"Grid columns (default: configured cols)"`
	Border  *int      `json:"border,omitempty" jsonschema:"Border in pixels (default: configured border)"`
	Step    *int      `json:"step,omitempty" jsonschema:"Minimum window span in cells (default: configured step)"`
}

// PreviewSnapOutput is the output for the preview_snap tool.
type PreviewSnapOutput struct {
	Config tiling.GridConfig `json:"config"`
	Result tiling.Result     `json:"result"`
}
