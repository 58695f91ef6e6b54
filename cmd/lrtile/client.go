package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luigirizzo/lrtile/internal/ipc"
	"github.com/luigirizzo/lrtile/internal/tiling"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := newClient().GetStatus()
			if err != nil {
				return err
			}
			writeStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func writeStatus(w io.Writer, st *ipc.StatusData) {
	sn := st.Snapper
	fmt.Fprintf(w, "daemon_running: %v\n", st.DaemonRunning)
	fmt.Fprintf(w, "uptime_seconds: %d\n", st.UptimeSeconds)
	fmt.Fprintf(w, "config_path:    %s\n", st.ConfigPath)
	fmt.Fprintf(w, "displays:       %d\n", st.DisplayCount)
	fmt.Fprintf(w, "enabled:        %v\n", sn.Enabled)
	fmt.Fprintf(w, "grid:           %dx%d border=%d step=%d\n", sn.Grid.Cols, sn.Grid.Rows, sn.Grid.Border, sn.Grid.Step)
	if sn.LastCommand != "" {
		fmt.Fprintf(w, "last_command:   %s\n", sn.LastCommand)
	}
	if sn.LastResult != nil {
		fmt.Fprintf(w, "last_result:    %s\n", describeResult(*sn.LastResult))
	}
	if sn.LastError != "" {
		fmt.Fprintf(w, "last_error:     %s\n", sn.LastError)
	}
	fmt.Fprintf(w, "undo_windows:   %d\n", sn.UndoWindows)
}

func describeResult(res tiling.Result) string {
	if !res.Changed {
		return fmt.Sprintf("unchanged at %s", res.After)
	}
	return fmt.Sprintf("%s -> %s (%s)", res.Before, res.After, res.Rect)
}

func newSnapCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "snap <command>",
		Short:     "Apply a grid command to the focused window",
		Long:      "Apply a grid command to the focused window. Commands: " + commandList() + ".",
		Example:   "  lrtile snap left\n  lrtile snap full",
		Args:      checkArgs(cobra.ExactArgs(1)),
		ValidArgs: commandNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := tiling.ParseCommand(args[0])
			if err != nil {
				return &usageError{err: err}
			}
			data, err := newClient().Snap(c)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !data.Enabled {
				fmt.Fprintln(out, "snapping is disabled")
				return nil
			}
			fmt.Fprintln(out, describeResult(data.Result))
			return nil
		},
	}
}

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Restore the focused window to its geometry before the last snap",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().Undo()
		},
	}
}

func newToggleCmd() *cobra.Command {
	var persist bool
	cmd := &cobra.Command{
		Use:       "toggle [on|off]",
		Short:     "Turn snapping on or off",
		Long:      "Turn snapping on or off. Without an argument the current state is flipped.",
		Args:      checkArgs(cobra.MaximumNArgs(1)),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			enabled, err := parseToggleArg(arg)
			if err != nil {
				return err
			}
			now, err := newClient().SetEnabled(enabled, persist)
			if err != nil {
				return err
			}
			state := "off"
			if now {
				state = "on"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapping %s\n", state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "Write the new state to the config file")
	return cmd
}

func parseToggleArg(arg string) (*bool, error) {
	switch strings.ToLower(arg) {
	case "":
		return nil, nil
	case "on", "true", "1":
		v := true
		return &v, nil
	case "off", "false", "0":
		v := false
		return &v, nil
	default:
		return nil, usagef("toggle expects on or off, got %q", arg)
	}
}

func newDisplaysCmd() *cobra.Command {
	var asJSON, refresh bool
	cmd := &cobra.Command{
		Use:   "displays",
		Short: "List displays known to the daemon",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			fetch := client.GetDisplays
			if refresh {
				fetch = client.RefreshDisplays
			}
			data, err := fetch()
			if err != nil {
				return err
			}
			return writeDisplays(cmd.OutOrStdout(), data.Displays, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-query displays before listing")
	return cmd
}

func writeDisplays(w io.Writer, displays []ipc.DisplayInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(displays)
	}
	if len(displays) == 0 {
		fmt.Fprintln(w, "no displays")
		return nil
	}
	for _, d := range displays {
		fmt.Fprintf(w, "%d  %-10s bounds=%s usable=%s\n", d.ID, d.Name, d.Bounds, d.Usable)
	}
	return nil
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the daemon to reload its configuration",
		Args:  checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().Reload(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config reloaded")
			return nil
		},
	}
}

func commandNames() []string {
	cmds := tiling.Commands()
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = string(c)
	}
	return names
}

func commandList() string {
	return strings.Join(commandNames(), ", ")
}
