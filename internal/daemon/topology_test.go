package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/luigirizzo/lrtile/internal/platform"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLister struct {
	mu       sync.Mutex
	displays []platform.Display
	err      error
	calls    int
	called   chan struct{}
}

func newFakeLister(displays ...platform.Display) *fakeLister {
	return &fakeLister{displays: displays, called: make(chan struct{}, 16)}
}

func (f *fakeLister) list() ([]platform.Display, error) {
	f.mu.Lock()
	f.calls++
	displays, err := f.displays, f.err
	f.mu.Unlock()

	select {
	case f.called <- struct{}{}:
	default:
	}
	return displays, err
}

func (f *fakeLister) set(err error, displays ...platform.Display) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	if err == nil {
		f.displays = displays
	}
}

func (f *fakeLister) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.called:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for display query")
	}
}

var (
	displayA = platform.Display{ID: 0, Name: "DP-1", Bounds: platform.Rect{Width: 1920, Height: 1080}, Usable: platform.Rect{Width: 1920, Height: 1080}}
	displayB = platform.Display{ID: 1, Name: "DP-2", Bounds: platform.Rect{X: 1920, Width: 2560, Height: 1440}, Usable: platform.Rect{X: 1920, Width: 2560, Height: 1440}}
)

func TestTopology_RefreshFailureKeepsSnapshot(t *testing.T) {
	lister := newFakeLister(displayA, displayB)
	topo := NewTopology(TopologyConfig{Logger: quietLogger()}, lister.list)

	if got := topo.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty snapshot before first refresh, got %v", got)
	}
	if err := topo.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := topo.Snapshot(); len(got) != 2 {
		t.Fatalf("expected 2 displays, got %v", got)
	}

	lister.set(errors.New("randr unavailable"))
	if err := topo.Refresh(); err == nil {
		t.Fatalf("expected refresh error")
	}
	if got := topo.Snapshot(); len(got) != 2 || got[1] != displayB {
		t.Fatalf("expected previous snapshot kept, got %v", got)
	}
}

func TestTopology_SnapshotIsCopy(t *testing.T) {
	lister := newFakeLister(displayA)
	topo := NewTopology(TopologyConfig{Logger: quietLogger()}, lister.list)
	if err := topo.Refresh(); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap := topo.Snapshot()
	snap[0].Name = "mutated"
	if got := topo.Snapshot(); got[0].Name != "DP-1" {
		t.Fatalf("snapshot aliases internal state: %v", got)
	}
}

func TestTopology_RequestRefreshNeverBlocks(t *testing.T) {
	topo := NewTopology(TopologyConfig{Logger: quietLogger()}, newFakeLister().list)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			topo.RequestRefresh()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("RequestRefresh blocked without a running loop")
	}
}

func TestTopology_RunServesRequests(t *testing.T) {
	lister := newFakeLister(displayA)
	topo := NewTopology(TopologyConfig{Logger: quietLogger()}, lister.list)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		topo.Run(ctx)
		close(stopped)
	}()

	lister.set(nil, displayA, displayB)
	topo.RequestRefresh()
	lister.wait(t)

	deadline := time.Now().Add(2 * time.Second)
	for len(topo.Snapshot()) != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected refreshed snapshot, got %v", topo.Snapshot())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestTopology_SetIntervalStartsTicker(t *testing.T) {
	lister := newFakeLister(displayA)
	topo := NewTopology(TopologyConfig{Logger: quietLogger()}, lister.list)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go topo.Run(ctx)

	select {
	case <-lister.called:
		t.Fatalf("interval 0 should not tick")
	case <-time.After(50 * time.Millisecond):
	}

	topo.SetInterval(10 * time.Millisecond)
	lister.wait(t)
	lister.wait(t)
	if topo.Interval() != 10*time.Millisecond {
		t.Fatalf("unexpected interval %v", topo.Interval())
	}
}
