package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luigirizzo/lrtile/internal/config"
	"github.com/luigirizzo/lrtile/internal/logging"
	"github.com/luigirizzo/lrtile/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Long: `Start the MCP server on stdio. Designed to be invoked by MCP clients.
Window tools forward to the running daemon; preview_snap works without one.`,
		Example: "  claude mcp add lrtile -- lrtile mcp serve",
		Args:    checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			grid := config.DefaultConfig().Grid()
			if res, err := loadConfig(); err == nil {
				grid = res.Config.Grid()
			}

			// stdout carries the protocol; logs go to stderr only.
			logger, closeLog, err := logging.Setup(logging.Options{
				Stderr: os.Stderr,
				Prefix: "mcp",
			})
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return mcp.NewServer(newClient(), grid, logger).Run(ctx)
		},
	}

	mcpCmd.AddCommand(serveCmd)
	return mcpCmd
}
