package ipc

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/luigirizzo/lrtile/internal/platform"
	"github.com/luigirizzo/lrtile/internal/tiling"
)

type fakeController struct {
	mu       sync.Mutex
	enabled  bool
	persist  bool
	reloads  int
	undoErr  error
	snapped  []tiling.Command
	displays []platform.Display
}

func (f *fakeController) Reload() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return nil
}

func (f *fakeController) Status() StatusData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return StatusData{
		DaemonRunning: true,
		DisplayCount:  len(f.displays),
		Snapper:       tiling.Status{Enabled: f.enabled},
	}
}

func (f *fakeController) seen() (snapped []tiling.Command, persist bool, reloads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tiling.Command(nil), f.snapped...), f.persist, f.reloads
}

func (f *fakeController) Displays() []platform.Display {
	return f.displays
}

func (f *fakeController) RefreshDisplays() ([]platform.Display, error) {
	return f.displays, nil
}

func (f *fakeController) Snap(cmd tiling.Command) (SnapData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapped = append(f.snapped, cmd)
	return SnapData{Enabled: f.enabled, Result: tiling.Result{Changed: true, After: tiling.GridRect{X0: 0, Y0: 0, X1: 3, Y1: 6}}}, nil
}

func (f *fakeController) Undo() error {
	return f.undoErr
}

func (f *fakeController) SetEnabled(enabled *bool, persist bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if enabled == nil {
		f.enabled = !f.enabled
	} else {
		f.enabled = *enabled
	}
	f.persist = persist
	return f.enabled, nil
}

func startServer(t *testing.T, ctrl Controller) (*Server, *Client) {
	t.Helper()
	// Unix socket paths are length limited; keep the directory short.
	dir, err := os.MkdirTemp("", "lrtile")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "s.sock")
	srv, err := NewServer(path, ctrl, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, NewClientWithPath(path)
}

func TestServer_SocketPermissions(t *testing.T) {
	srv, _ := startServer(t, &fakeController{})
	info, err := os.Stat(srv.SocketPath())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("expected socket mode 0600, got %o", perm)
	}
}

func TestServer_StatusAndDisplays(t *testing.T) {
	ctrl := &fakeController{
		enabled: true,
		displays: []platform.Display{{
			ID:     0,
			Name:   "DP-1",
			Bounds: platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
			Usable: platform.Rect{X: 0, Y: 40, Width: 1920, Height: 1040},
		}},
	}
	_, client := startServer(t, ctrl)

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.DaemonRunning || !status.Snapper.Enabled || status.DisplayCount != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}

	displays, err := client.GetDisplays()
	if err != nil {
		t.Fatalf("displays: %v", err)
	}
	if len(displays.Displays) != 1 {
		t.Fatalf("expected one display, got %+v", displays)
	}
	d := displays.Displays[0]
	if d.Name != "DP-1" || d.Usable.Y != 40 || d.Usable.Height != 1040 {
		t.Fatalf("unexpected display info: %+v", d)
	}
}

func TestServer_Snap(t *testing.T) {
	ctrl := &fakeController{enabled: true}
	_, client := startServer(t, ctrl)

	data, err := client.Snap(tiling.CommandLeft)
	if err != nil {
		t.Fatalf("snap: %v", err)
	}
	if !data.Enabled || !data.Result.Changed || data.Result.After.X1 != 3 {
		t.Fatalf("unexpected snap data: %+v", data)
	}
	if snapped, _, _ := ctrl.seen(); len(snapped) != 1 || snapped[0] != tiling.CommandLeft {
		t.Fatalf("expected controller to receive left, got %v", snapped)
	}
}

func TestServer_SnapRejectsUnknownCommand(t *testing.T) {
	ctrl := &fakeController{}
	_, client := startServer(t, ctrl)

	_, err := client.Snap(tiling.Command("sideways"))
	if err == nil || !strings.Contains(err.Error(), "sideways") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
	if snapped, _, _ := ctrl.seen(); len(snapped) != 0 {
		t.Fatalf("controller should not see unknown commands")
	}
}

func TestServer_SetEnabled(t *testing.T) {
	ctrl := &fakeController{enabled: true}
	_, client := startServer(t, ctrl)

	got, err := client.SetEnabled(nil, false)
	if err != nil || got {
		t.Fatalf("expected toggle to disable, got %v (err=%v)", got, err)
	}

	on := true
	got, err = client.SetEnabled(&on, true)
	if err != nil || !got {
		t.Fatalf("expected explicit enable, got %v (err=%v)", got, err)
	}
	if _, persist, _ := ctrl.seen(); !persist {
		t.Fatalf("expected persist flag to reach controller")
	}
}

func TestServer_ErrorsPropagate(t *testing.T) {
	ctrl := &fakeController{undoErr: errors.New("nothing to undo")}
	_, client := startServer(t, ctrl)

	err := client.Undo()
	if err == nil || !strings.Contains(err.Error(), "nothing to undo") {
		t.Fatalf("expected undo error, got %v", err)
	}
}

func TestServer_Reload(t *testing.T) {
	ctrl := &fakeController{}
	_, client := startServer(t, ctrl)
	if err := client.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, _, reloads := ctrl.seen(); reloads != 1 {
		t.Fatalf("expected one reload, got %d", reloads)
	}
}

func TestServer_RefusesLiveSocket(t *testing.T) {
	srv, _ := startServer(t, &fakeController{})
	second, err := NewServer(srv.SocketPath(), &fakeController{}, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if err := second.Start(); err == nil {
		second.Stop()
		t.Fatalf("expected second server to refuse a live socket")
	}
}

func TestServer_StopRemovesSocket(t *testing.T) {
	srv, client := startServer(t, &fakeController{})
	srv.Stop()
	if _, err := os.Stat(srv.SocketPath()); !os.IsNotExist(err) {
		t.Fatalf("expected socket removed, stat err=%v", err)
	}
	if err := client.Ping(); err == nil || !strings.Contains(err.Error(), "is the daemon running?") {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestClient_NoDaemon(t *testing.T) {
	client := NewClientWithPath(filepath.Join(t.TempDir(), "missing.sock"))
	if _, err := client.GetStatus(); err == nil {
		t.Fatalf("expected error without daemon")
	}
}
