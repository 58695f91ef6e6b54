package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/luigirizzo/lrtile/internal/config"
	"github.com/luigirizzo/lrtile/internal/hotkeys"
	"github.com/luigirizzo/lrtile/internal/ipc"
	"github.com/luigirizzo/lrtile/internal/logging"
	"github.com/luigirizzo/lrtile/internal/platform"
	"github.com/luigirizzo/lrtile/internal/tiling"
)

// Binder installs hotkeys for a configuration.
type Binder interface {
	Bind(cfg *config.Config) int
}

// Options configures a Daemon.
type Options struct {
	// ConfigPath is the file reloads read from. Empty uses the default path.
	ConfigPath string
	// Level, when set, follows log_level across reloads.
	Level  *slog.LevelVar
	Logger *slog.Logger
}

// Daemon owns the long-lived state: the current config, display topology and
// snapper. It implements hotkeys.Dispatcher and ipc.Controller.
type Daemon struct {
	mu      sync.RWMutex
	cfg     *config.Config
	cfgPath string
	binder  Binder

	backend  platform.Backend
	topology *Topology
	snapper  *tiling.Snapper
	level    *slog.LevelVar
	logger   *slog.Logger
	started  time.Time
}

// New creates a daemon around backend with an already validated config.
func New(cfg *config.Config, backend platform.Backend, opts Options) *Daemon {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	topology := NewTopology(TopologyConfig{
		Interval: refreshInterval(cfg),
		Logger:   logger.With("component", "topology"),
	}, backend.Displays)

	d := &Daemon{
		cfg:      cfg,
		cfgPath:  opts.ConfigPath,
		backend:  backend,
		topology: topology,
		snapper:  tiling.NewSnapper(backend, topology, cfg.Settings(), logger.With("component", "snapper")),
		level:    opts.Level,
		logger:   logger,
		started:  time.Now(),
	}
	d.applyLevel(cfg)
	return d
}

// SetBinder attaches the hotkey handler and binds the current config.
func (d *Daemon) SetBinder(b Binder) {
	d.mu.Lock()
	d.binder = b
	cfg := d.cfg
	d.mu.Unlock()

	if b != nil {
		b.Bind(cfg)
	}
}

// Topology returns the display cache.
func (d *Daemon) Topology() *Topology { return d.topology }

// Config returns the configuration currently in effect.
func (d *Daemon) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

func (d *Daemon) configPath() (string, error) {
	if d.cfgPath != "" {
		return d.cfgPath, nil
	}
	return config.DefaultConfigPath()
}

// Run refreshes the display snapshot once, then serves the topology loop and
// config reload triggers until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context, reloads <-chan struct{}) {
	if err := d.topology.Refresh(); err != nil {
		d.logger.Warn("initial display query failed", "error", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.topology.Run(ctx)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			_ = d.Reload()
		}
	}
}

// Reload re-reads the config file. A config that fails to load or validate
// leaves the running one in place.
func (d *Daemon) Reload() error {
	path, err := d.configPath()
	if err != nil {
		return err
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		d.logger.Error("config reload failed, keeping previous config", "path", path, "error", err)
		return err
	}
	d.apply(res.Config)
	d.logger.Info("config reloaded", "path", path)
	return nil
}

func (d *Daemon) apply(cfg *config.Config) {
	d.mu.Lock()
	d.cfg = cfg
	binder := d.binder
	d.mu.Unlock()

	for _, w := range cfg.Warnings() {
		d.logger.Warn("config warning", "warning", w)
	}
	d.snapper.UpdateConfig(cfg.Settings())
	d.topology.SetInterval(refreshInterval(cfg))
	d.applyLevel(cfg)
	if binder != nil {
		binder.Bind(cfg)
	}
}

func (d *Daemon) applyLevel(cfg *config.Config) {
	if d.level == nil {
		return
	}
	lvl, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		d.logger.Warn("ignoring log level", "error", err)
		return
	}
	d.level.Set(lvl)
}

// HandleCommand runs a hotkey-triggered grid command.
func (d *Daemon) HandleCommand(cmd tiling.Command) {
	if _, err := d.snapper.Snap(cmd); err != nil {
		d.logSnapError(cmd, err)
	}
}

// HandleToggle flips snapping on or off for this session.
func (d *Daemon) HandleToggle() {
	if _, err := d.SetEnabled(nil, false); err != nil {
		d.logger.Warn("toggle failed", "error", err)
	}
}

// HandleUndo restores the active window's previous geometry.
func (d *Daemon) HandleUndo() {
	if err := d.snapper.Undo(); err != nil {
		if errors.Is(err, tiling.ErrNothingToUndo) {
			d.logger.Info("undo skipped", "reason", err)
			return
		}
		d.logger.Warn("undo failed", "error", err)
	}
}

func (d *Daemon) logSnapError(cmd tiling.Command, err error) {
	switch {
	case errors.Is(err, tiling.ErrNoContainingDisplay):
		// Already reported by the snapper along with the refresh request.
	case errors.Is(err, tiling.ErrGridTooNarrow),
		errors.Is(err, tiling.ErrGridTooShort),
		errors.Is(err, tiling.ErrDegenerateGeometry):
		d.logger.Info("command rejected", "command", string(cmd), "reason", err)
	default:
		d.logger.Warn("snap failed", "command", string(cmd), "error", err)
	}
}

// Status reports daemon and snapper state.
func (d *Daemon) Status() ipc.StatusData {
	path, _ := d.configPath()
	return ipc.StatusData{
		DaemonRunning: true,
		UptimeSeconds: int64(time.Since(d.started).Seconds()),
		ConfigPath:    path,
		DisplayCount:  len(d.topology.Snapshot()),
		Snapper:       d.snapper.Status(),
	}
}

// Displays returns the cached display list.
func (d *Daemon) Displays() []platform.Display {
	return d.topology.Snapshot()
}

// RefreshDisplays re-queries the backend synchronously.
func (d *Daemon) RefreshDisplays() ([]platform.Display, error) {
	if err := d.topology.Refresh(); err != nil {
		return nil, err
	}
	return d.topology.Snapshot(), nil
}

// Snap runs cmd against the active window.
func (d *Daemon) Snap(cmd tiling.Command) (ipc.SnapData, error) {
	res, err := d.snapper.Snap(cmd)
	if err != nil {
		d.logSnapError(cmd, err)
		return ipc.SnapData{}, err
	}
	return ipc.SnapData{Enabled: d.snapper.Settings().Enabled, Result: res}, nil
}

// Undo restores the active window's previous geometry.
func (d *Daemon) Undo() error {
	return d.snapper.Undo()
}

// SetEnabled sets or toggles snapping. With persist the effective config is
// written back to the config file; otherwise the change lasts until the next
// reload.
func (d *Daemon) SetEnabled(enabled *bool, persist bool) (bool, error) {
	now := d.snapper.SetEnabled(enabled)

	d.mu.Lock()
	cfg := d.cfg.Clone()
	cfg.On = now
	d.cfg = cfg
	d.mu.Unlock()

	if !persist {
		return now, nil
	}
	path, err := d.configPath()
	if err != nil {
		return now, err
	}
	if err := cfg.SaveTo(path); err != nil {
		return now, fmt.Errorf("failed to persist on=%t: %w", now, err)
	}
	d.logger.Info("persisted snapping state", "enabled", now, "path", path)
	return now, nil
}

var (
	_ hotkeys.Dispatcher = (*Daemon)(nil)
	_ ipc.Controller     = (*Daemon)(nil)
	_ Binder             = (*hotkeys.Handler)(nil)
)

func refreshInterval(cfg *config.Config) time.Duration {
	return time.Duration(cfg.DisplayRefreshSeconds) * time.Second
}
