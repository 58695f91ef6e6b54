package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/luigirizzo/lrtile/internal/platform"
)

// DisplayLister returns the current displays.
type DisplayLister func() ([]platform.Display, error)

// TopologyConfig holds configuration for the topology cache.
type TopologyConfig struct {
	// Interval between background refreshes. Zero disables the ticker;
	// on-demand refreshes still run.
	Interval time.Duration
	Logger   *slog.Logger
}

// Topology caches the display list and refreshes it periodically and on
// demand.
type Topology struct {
	mu       sync.RWMutex
	displays []platform.Display
	interval time.Duration

	list    DisplayLister
	logger  *slog.Logger
	refresh chan struct{}
	reset   chan struct{}
}

// NewTopology creates a topology cache. The snapshot is empty until the
// first Refresh.
func NewTopology(cfg TopologyConfig, list DisplayLister) *Topology {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval < 0 {
		interval = 0
	}

	return &Topology{
		interval: interval,
		list:     list,
		logger:   logger,
		refresh:  make(chan struct{}, 1),
		reset:    make(chan struct{}, 1),
	}
}

// Snapshot returns a copy of the current display list.
func (t *Topology) Snapshot() []platform.Display {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]platform.Display(nil), t.displays...)
}

// Refresh queries the lister now. On failure the previous snapshot is kept.
func (t *Topology) Refresh() error {
	displays, err := t.list()
	if err != nil {
		t.logger.Warn("display refresh failed, keeping previous snapshot", "error", err)
		return err
	}

	t.mu.Lock()
	changed := !sameDisplays(t.displays, displays)
	t.displays = append([]platform.Display(nil), displays...)
	t.mu.Unlock()

	if changed {
		t.logger.Info("display topology updated", "count", len(displays))
		for _, d := range displays {
			t.logger.Debug("display", "id", d.ID, "name", d.Name, "bounds", d.Bounds, "usable", d.Usable)
		}
	}
	return nil
}

// RequestRefresh schedules a refresh on the Run goroutine. It never blocks;
// requests made while one is pending are coalesced.
func (t *Topology) RequestRefresh() {
	select {
	case t.refresh <- struct{}{}:
	default:
	}
}

// SetInterval changes the background refresh interval.
func (t *Topology) SetInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	if t.interval == d {
		t.mu.Unlock()
		return
	}
	t.interval = d
	t.mu.Unlock()

	select {
	case t.reset <- struct{}{}:
	default:
	}
}

// Interval returns the background refresh interval.
func (t *Topology) Interval() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.interval
}

// Run serves refresh requests and the ticker. Blocks until ctx is cancelled.
func (t *Topology) Run(ctx context.Context) {
	var ticker *time.Ticker
	var tick <-chan time.Time
	arm := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
		if d := t.Interval(); d > 0 {
			ticker = time.NewTicker(d)
			tick = ticker.C
		}
	}
	arm()
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	t.logger.Info("topology refresher started", "interval", t.Interval())

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("topology refresher stopped")
			return
		case <-t.reset:
			arm()
		case <-tick:
			t.safeRefresh()
		case <-t.refresh:
			t.safeRefresh()
		}
	}
}

func (t *Topology) safeRefresh() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			t.logger.Error("topology refresh panic recovered", "error", err)
		}
	}()
	_ = t.Refresh()
}

func sameDisplays(a, b []platform.Display) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
