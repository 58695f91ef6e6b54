package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luigirizzo/lrtile/internal/config"
	"github.com/luigirizzo/lrtile/internal/tiling"
)

func newPreviewCmd() *cobra.Command {
	var (
		displayFlag, windowFlag  string
		rows, cols, border, step int
		asJSON                   bool
	)
	cmd := &cobra.Command{
		Use:   "preview <command>",
		Short: "Compute a grid placement without moving any window",
		Long: `Run the grid engine offline. Grid parameters default to the config file;
flags override them.`,
		Example:   "  lrtile preview right --display 0,0,1920,1080 --window 0,0,960,540\n  lrtile preview full --display 0,0,3840,2160 --window 10,10,800,600 --border 0",
		Args:      checkArgs(cobra.ExactArgs(1)),
		ValidArgs: commandNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := tiling.ParseCommand(args[0])
			if err != nil {
				return &usageError{err: err}
			}
			display, err := parseRect(displayFlag)
			if err != nil {
				return usagef("--display: %v", err)
			}
			win, err := parseRect(windowFlag)
			if err != nil {
				return usagef("--window: %v", err)
			}

			grid := config.DefaultConfig().Grid()
			if res, err := loadConfig(); err == nil {
				grid = res.Config.Grid()
			}
			flags := cmd.Flags()
			if flags.Changed("rows") {
				grid.Rows = rows
			}
			if flags.Changed("cols") {
				grid.Cols = cols
			}
			if flags.Changed("border") {
				grid.Border = border
			}
			if flags.Changed("step") {
				grid.Step = step
			}
			if err := checkGrid(grid); err != nil {
				return err
			}

			res, err := tiling.NewEngine(nil).Apply(win, display, grid, c)
			if err != nil {
				return err
			}
			return writePreview(cmd.OutOrStdout(), grid, res, asJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&displayFlag, "display", "", "Display work area as X,Y,W,H (required)")
	flags.StringVar(&windowFlag, "window", "", "Window frame as X,Y,W,H (required)")
	flags.IntVar(&rows, "rows", 0, "Grid rows (default: config)")
	flags.IntVar(&cols, "cols", 0, "Grid columns (default: config)")
	flags.IntVar(&border, "border", 0, "Border in pixels (default: config)")
	flags.IntVar(&step, "step", 0, "Minimum span in cells (default: config)")
	flags.BoolVar(&asJSON, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("display")
	_ = cmd.MarkFlagRequired("window")
	return cmd
}

func checkGrid(g tiling.GridConfig) error {
	switch {
	case g.Rows < 1:
		return usagef("rows must be >= 1")
	case g.Cols < 1:
		return usagef("cols must be >= 1")
	case g.Border < 0:
		return usagef("border must be >= 0")
	case g.Step < 1:
		return usagef("step must be >= 1")
	}
	return nil
}

// parseRect parses "X,Y,W,H".
func parseRect(s string) (tiling.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return tiling.Rect{}, fmt.Errorf("expected X,Y,W,H, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return tiling.Rect{}, fmt.Errorf("invalid number %q", p)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return tiling.Rect{}, fmt.Errorf("width and height must be positive")
	}
	return tiling.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func writePreview(w io.Writer, grid tiling.GridConfig, res tiling.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Config tiling.GridConfig `json:"config"`
			Result tiling.Result     `json:"result"`
		}{grid, res})
	}
	fmt.Fprintf(w, "grid:   %dx%d cells of %dx%d px\n", res.Grid.Cols, res.Grid.Rows, res.Grid.CellW, res.Grid.CellH)
	fmt.Fprintf(w, "before: %s\n", res.Before)
	fmt.Fprintf(w, "after:  %s\n", res.After)
	if res.Changed {
		fmt.Fprintf(w, "window: %s\n", res.Rect)
	} else {
		fmt.Fprintln(w, "window: unchanged")
	}
	return nil
}
