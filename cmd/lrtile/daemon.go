package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luigirizzo/lrtile/internal/config"
	"github.com/luigirizzo/lrtile/internal/daemon"
	"github.com/luigirizzo/lrtile/internal/hotkeys"
	"github.com/luigirizzo/lrtile/internal/ipc"
	"github.com/luigirizzo/lrtile/internal/logging"
	"github.com/luigirizzo/lrtile/internal/platform"
)

func newDaemonCmd() *cobra.Command {
	var display string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Start the lrtile daemon (foreground)",
		Long: `Start the lrtile daemon in the foreground.

The daemon grabs the configured hotkeys, serves IPC requests and reloads
the config when the file changes, on SIGHUP, or on 'lrtile reload'.`,
		Args: checkArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), display)
		},
	}
	cmd.Flags().StringVar(&display, "display", "", "X display to connect to (default: config display, then $DISPLAY)")
	return cmd
}

func runDaemon(ctx context.Context, display string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := res.Config

	level := new(slog.LevelVar)
	if lvl, err := logging.ParseLevel(cfg.LogLevel); err == nil {
		level.Set(lvl)
	}
	logFile := cfg.Logging.File
	if logFile == "" {
		if p, err := config.DefaultLogPath(); err == nil {
			logFile = p
		}
	}
	logger, closeLog, err := logging.Setup(logging.Options{
		Level:      level,
		File:       logFile,
		Format:     cfg.Logging.Format,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Prefix:     "daemon",
	})
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		"path", path,
		"files", len(res.Files),
		"rows", cfg.Rows,
		"cols", cfg.Cols,
		"border", cfg.Border,
		"step", cfg.Step,
		"on", cfg.On,
	)
	for _, w := range cfg.Warnings() {
		logger.Warn("config warning", "warning", w)
	}

	if display == "" {
		display = cfg.Display
	}
	backend, err := platform.NewLinuxBackendFromDisplay(display)
	if err != nil {
		return err
	}
	defer backend.Disconnect()

	d := daemon.New(cfg, backend, daemon.Options{
		ConfigPath: path,
		Level:      level,
		Logger:     logger,
	})

	handler, err := hotkeys.NewHandler(backend, d, logger.With("component", "hotkeys"))
	if err != nil {
		return err
	}
	d.SetBinder(handler)

	ipcServer, err := ipc.NewServer(socketPath, d, logger.With("component", "ipc"))
	if err != nil {
		return err
	}
	if err := ipcServer.Start(); err != nil {
		return err
	}
	defer ipcServer.Stop()

	reloads := make(chan struct{}, 1)
	requestReload := func() {
		select {
		case reloads <- struct{}{}:
		default:
		}
	}

	var changes <-chan struct{}
	watcher, err := config.NewWatcher(path, config.DefaultWatchDebounce, logger.With("component", "watcher"))
	if err != nil {
		logger.Warn("config watching disabled", "error", err)
	} else {
		defer watcher.Close()
		changes = watcher.Changes()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("received SIGHUP, reloading config")
				requestReload()
			case <-changes:
				logger.Info("config file changed, reloading")
				requestReload()
			}
		}
	}()
	go func() {
		defer wg.Done()
		d.Run(ctx, reloads)
	}()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down lrtile daemon")
		backend.Quit()
	}()

	logger.Info("lrtile daemon started", "socket", ipcServer.SocketPath(), "hotkeys", len(handler.Bound()))
	backend.EventLoop()

	stop()
	wg.Wait()
	return nil
}
