package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/luigirizzo/lrtile/internal/config"
	"github.com/luigirizzo/lrtile/internal/ipc"
)

// Version information (set by the release build)
var (
	version = "dev"
	commit  = "none"
)

// Global flags
var (
	configPath string
	socketPath string
)

// usageError marks errors that should exit with status 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// checkArgs wraps a cobra positional validator so its failures count as
// usage errors.
func checkArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var uerr *usageError
	if errors.As(err, &uerr) {
		return 2
	}
	// cobra reports unknown subcommands and flags with plain errors.
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag") ||
		strings.HasPrefix(msg, "required flag") {
		return 2
	}
	return 1
}

func newClient() *ipc.Client {
	if socketPath != "" {
		return ipc.NewClientWithPath(socketPath)
	}
	return ipc.NewClient()
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.LoadResult, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	return config.LoadFromPath(path)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lrtile",
		Short: "Snap the focused X11 window to a display grid",
		Long: `lrtile moves and resizes the focused window on a virtual grid laid over
the usable area of the display holding it.

The daemon grabs the configured hotkeys; the other commands talk to a
running daemon over its unix socket.`,
		Example: `  # Run the daemon in the foreground
  lrtile daemon

  # Move the focused window one cell to the left
  lrtile snap left

  # Compute a placement without a daemon
  lrtile preview right --display 0,0,1920,1080 --window 0,0,960,540`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: $XDG_CONFIG_HOME/lrtile/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "IPC socket path (default: $XDG_RUNTIME_DIR/lrtile.sock)")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	rootCmd.AddCommand(
		newDaemonCmd(),
		newStatusCmd(),
		newSnapCmd(),
		newUndoCmd(),
		newToggleCmd(),
		newDisplaysCmd(),
		newReloadCmd(),
		newPreviewCmd(),
		newConfigCmd(),
		newMCPCmd(),
	)
	return rootCmd
}

func main() {
	err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(fmt.Sprintf("%s\nCommit: %s", version, commit)),
	)
	os.Exit(exitCode(err))
}
