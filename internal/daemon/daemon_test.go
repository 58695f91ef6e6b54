package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/luigirizzo/lrtile/internal/config"
	"github.com/luigirizzo/lrtile/internal/platform"
	"github.com/luigirizzo/lrtile/internal/tiling"
)

type fakeBackend struct {
	mu       sync.Mutex
	displays []platform.Display
	active   platform.WindowID
	windows  map[platform.WindowID]platform.Rect
	moves    int
}

func (f *fakeBackend) Displays() ([]platform.Display, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.displays, nil
}

func (f *fakeBackend) ActiveWindow() (platform.WindowID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == 0 {
		return 0, errors.New("no active window")
	}
	return f.active, nil
}

func (f *fakeBackend) WindowGeometry(id platform.WindowID) (platform.Rect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.windows[id]
	if !ok {
		return platform.Rect{}, errors.New("unknown window")
	}
	return r, nil
}

func (f *fakeBackend) MoveResize(id platform.WindowID, r platform.Rect) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[id] = r
	f.moves++
	return nil
}

type countingBinder struct {
	mu    sync.Mutex
	calls int
	last  *config.Config
}

func (b *countingBinder) Bind(cfg *config.Config) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	b.last = cfg
	return len(cfg.Bindings())
}

func newTestDaemon(t *testing.T) (*Daemon, *fakeBackend, string, *slog.LevelVar) {
	t.Helper()
	backend := &fakeBackend{
		displays: []platform.Display{displayA},
		active:   3,
		windows:  map[platform.WindowID]platform.Rect{3: {X: 0, Y: 0, Width: 960, Height: 540}},
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	level := new(slog.LevelVar)
	d := New(config.DefaultConfig(), backend, Options{
		ConfigPath: path,
		Level:      level,
		Logger:     quietLogger(),
	})
	if err := d.Topology().Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return d, backend, path, level
}

func TestDaemon_HandleCommandSnaps(t *testing.T) {
	d, backend, _, _ := newTestDaemon(t)

	d.HandleCommand(tiling.CommandRight)
	if backend.moves != 1 {
		t.Fatalf("expected one move, got %d", backend.moves)
	}
	st := d.Status()
	if st.Snapper.LastCommand != tiling.CommandRight || st.Snapper.LastResult == nil {
		t.Fatalf("unexpected status: %+v", st.Snapper)
	}
	if st.DisplayCount != 1 || !st.DaemonRunning {
		t.Fatalf("unexpected daemon status: %+v", st)
	}

	d.HandleUndo()
	if backend.moves != 2 || backend.windows[3].Width != 960 {
		t.Fatalf("expected undo to restore 960 width, got %+v", backend.windows[3])
	}
}

func TestDaemon_SnapWhileDisabled(t *testing.T) {
	d, backend, _, _ := newTestDaemon(t)
	d.HandleToggle()

	data, err := d.Snap(tiling.CommandLeft)
	if err != nil {
		t.Fatalf("snap: %v", err)
	}
	if data.Enabled || data.Result.Changed || backend.moves != 0 {
		t.Fatalf("expected disabled snap to do nothing, got %+v moves=%d", data, backend.moves)
	}
	if d.Config().On {
		t.Fatalf("expected config on=false after toggle")
	}
}

func TestDaemon_ReloadAppliesConfig(t *testing.T) {
	d, _, path, level := newTestDaemon(t)
	binder := &countingBinder{}
	d.SetBinder(binder)

	data := "rows: 8\nlog_level: debug\ndisplay_refresh_seconds: 0\nhotkeys:\n  full: \"\"\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := d.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if got := d.snapper.Settings().Grid.Rows; got != 8 {
		t.Fatalf("expected snapper rows 8, got %d", got)
	}
	if level.Level() != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", level.Level())
	}
	if d.Topology().Interval() != 0 {
		t.Fatalf("expected refresh ticker disabled, got %v", d.Topology().Interval())
	}
	if binder.calls != 2 {
		t.Fatalf("expected bind on attach and reload, got %d", binder.calls)
	}
	if _, ok := binder.last.Hotkeys["full"]; !ok || len(binder.last.Bindings()) != 8 {
		t.Fatalf("expected full unbound in rebind, got %v", binder.last.Bindings())
	}
}

func TestDaemon_ReloadFailureKeepsConfig(t *testing.T) {
	d, _, path, _ := newTestDaemon(t)
	if err := os.WriteFile(path, []byte("rows: 0\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := d.Reload(); err == nil {
		t.Fatalf("expected reload error")
	}
	if d.Config().Rows != 6 || d.snapper.Settings().Grid.Rows != 6 {
		t.Fatalf("expected previous config kept")
	}
}

func TestDaemon_SetEnabledPersist(t *testing.T) {
	d, _, path, _ := newTestDaemon(t)

	off := false
	if _, err := d.SetEnabled(&off, false); err != nil {
		t.Fatalf("set enabled: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file without persist, stat err=%v", err)
	}

	got, err := d.SetEnabled(&off, true)
	if err != nil || got {
		t.Fatalf("expected persisted off, got %v (err=%v)", got, err)
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.On {
		t.Fatalf("expected on=false in saved config")
	}
}

func TestDaemon_RunReloadsOnSignal(t *testing.T) {
	d, _, path, _ := newTestDaemon(t)
	if err := os.WriteFile(path, []byte("cols: 12\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	reloads := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		d.Run(ctx, reloads)
		close(done)
	}()

	reloads <- struct{}{}
	deadline := time.Now().Add(2 * time.Second)
	for d.Config().Cols != 12 {
		if time.Now().After(deadline) {
			t.Fatalf("expected reload to apply cols=12")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestDaemon_RefreshDisplays(t *testing.T) {
	d, backend, _, _ := newTestDaemon(t)
	backend.mu.Lock()
	backend.displays = []platform.Display{displayA, displayB}
	backend.mu.Unlock()

	if got := d.Displays(); len(got) != 1 {
		t.Fatalf("expected cached single display, got %v", got)
	}
	got, err := d.RefreshDisplays()
	if err != nil || len(got) != 2 {
		t.Fatalf("expected two displays after refresh, got %v (err=%v)", got, err)
	}
}
