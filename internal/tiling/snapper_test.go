package tiling

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/luigirizzo/lrtile/internal/platform"
)

type fakeBackend struct {
	active  platform.WindowID
	windows map[platform.WindowID]platform.Rect
	moves   []platform.Rect
	moveErr error
}

func (f *fakeBackend) Displays() ([]platform.Display, error) { return nil, nil }

func (f *fakeBackend) ActiveWindow() (platform.WindowID, error) {
	if f.active == 0 {
		return 0, errors.New("no active window")
	}
	return f.active, nil
}

func (f *fakeBackend) WindowGeometry(id platform.WindowID) (platform.Rect, error) {
	r, ok := f.windows[id]
	if !ok {
		return platform.Rect{}, errors.New("unknown window")
	}
	return r, nil
}

func (f *fakeBackend) MoveResize(id platform.WindowID, r platform.Rect) error {
	if f.moveErr != nil {
		return f.moveErr
	}
	f.moves = append(f.moves, r)
	f.windows[id] = r
	return nil
}

type fakeDisplays struct {
	displays  []platform.Display
	refreshes int
}

func (f *fakeDisplays) Snapshot() []platform.Display { return f.displays }
func (f *fakeDisplays) RequestRefresh()              { f.refreshes++ }

func newTestSnapper(win platform.Rect) (*Snapper, *fakeBackend, *fakeDisplays) {
	backend := &fakeBackend{
		active:  7,
		windows: map[platform.WindowID]platform.Rect{7: win},
	}
	displays := &fakeDisplays{displays: []platform.Display{{
		ID:     0,
		Name:   "HDMI-1",
		Bounds: platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
		Usable: platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
	}}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewSnapper(backend, displays, Settings{Enabled: true, Grid: sixGrid}, logger)
	return s, backend, displays
}

func TestSnapper_SnapMovesWindow(t *testing.T) {
	s, backend, _ := newTestSnapper(platform.Rect{X: 0, Y: 0, Width: 960, Height: 540})

	res, err := s.Snap(CommandRight)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Changed {
		t.Fatalf("expected change")
	}
	if len(backend.moves) != 1 {
		t.Fatalf("expected 1 move, got %d", len(backend.moves))
	}
	if want := (platform.Rect{X: 320, Y: 0, Width: 958, Height: 538}); backend.moves[0] != want {
		t.Fatalf("expected %+v, got %+v", want, backend.moves[0])
	}

	st := s.Status()
	if st.LastCommand != CommandRight || st.LastResult == nil || !st.LastResult.Changed {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.UndoWindows != 1 {
		t.Fatalf("expected one window with undo history, got %d", st.UndoWindows)
	}
}

func TestSnapper_NoChangeIssuesNoMove(t *testing.T) {
	s, backend, _ := newTestSnapper(platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080})

	if _, err := s.Snap(CommandFull); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backend.moves) != 0 {
		t.Fatalf("expected no moves, got %d", len(backend.moves))
	}
	if err := s.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestSnapper_DisabledShortCircuits(t *testing.T) {
	s, backend, _ := newTestSnapper(platform.Rect{X: 0, Y: 0, Width: 960, Height: 540})
	backend.active = 0 // any backend call would fail

	off := false
	if s.SetEnabled(&off) {
		t.Fatalf("expected disabled")
	}
	if _, err := s.Snap(CommandFull); err != nil {
		t.Fatalf("disabled snapper returned error: %v", err)
	}
	if len(backend.moves) != 0 {
		t.Fatalf("disabled snapper moved a window")
	}

	if !s.SetEnabled(nil) {
		t.Fatalf("expected toggle to re-enable")
	}
}

func TestSnapper_OffDisplayRequestsRefresh(t *testing.T) {
	s, backend, displays := newTestSnapper(platform.Rect{X: 2000, Y: 0, Width: 400, Height: 400})

	_, err := s.Snap(CommandFull)
	if !errors.Is(err, ErrNoContainingDisplay) {
		t.Fatalf("expected ErrNoContainingDisplay, got %v", err)
	}
	if displays.refreshes != 1 {
		t.Fatalf("expected one refresh request, got %d", displays.refreshes)
	}
	if len(backend.moves) != 0 {
		t.Fatalf("expected no moves")
	}
	if st := s.Status(); st.LastError == "" {
		t.Fatalf("expected last error in status")
	}
}

func TestSnapper_UsesWorkArea(t *testing.T) {
	s, backend, displays := newTestSnapper(platform.Rect{X: 0, Y: 40, Width: 500, Height: 500})
	displays.displays[0].Usable = platform.Rect{X: 0, Y: 40, Width: 1920, Height: 1040}

	if _, err := s.Snap(CommandFull); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1040/6 = 173 per row.
	if want := (platform.Rect{X: 0, Y: 40, Width: 1918, Height: 6*173 - 2}); backend.moves[0] != want {
		t.Fatalf("expected %+v, got %+v", want, backend.moves[0])
	}
}

func TestSnapper_UndoRestoresInOrder(t *testing.T) {
	start := platform.Rect{X: 0, Y: 0, Width: 960, Height: 540}
	s, backend, _ := newTestSnapper(start)

	if _, err := s.Snap(CommandRight); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	afterFirst := backend.windows[7]
	if _, err := s.Snap(CommandFull); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Undo(); err != nil {
		t.Fatalf("unexpected undo error: %v", err)
	}
	if backend.windows[7] != afterFirst {
		t.Fatalf("expected %+v after first undo, got %+v", afterFirst, backend.windows[7])
	}
	if err := s.Undo(); err != nil {
		t.Fatalf("unexpected undo error: %v", err)
	}
	if backend.windows[7] != start {
		t.Fatalf("expected %+v after second undo, got %+v", start, backend.windows[7])
	}
	if err := s.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestSnapper_FailedMoveRecordsNoHistory(t *testing.T) {
	s, backend, _ := newTestSnapper(platform.Rect{X: 0, Y: 0, Width: 960, Height: 540})
	backend.moveErr = errors.New("BadWindow")

	if _, err := s.Snap(CommandRight); err == nil {
		t.Fatalf("expected move error")
	}
	if st := s.Status(); st.UndoWindows != 0 {
		t.Fatalf("expected no undo history after failed move, got %d", st.UndoWindows)
	}
}

func TestSnapper_UndoHistoryIsBounded(t *testing.T) {
	s, _, _ := newTestSnapper(platform.Rect{X: 0, Y: 0, Width: 960, Height: 540})

	cmds := []Command{CommandRight, CommandLeft}
	for i := 0; i < maxUndoDepth+5; i++ {
		if _, err := s.Snap(cmds[i%2]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	undone := 0
	for s.Undo() == nil {
		undone++
	}
	if undone != maxUndoDepth {
		t.Fatalf("expected %d undo steps, got %d", maxUndoDepth, undone)
	}
}

func TestSnapper_UpdateConfig(t *testing.T) {
	s, backend, _ := newTestSnapper(platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080})
	s.UpdateConfig(Settings{Enabled: true, Grid: GridConfig{Rows: 4, Cols: 4, Border: 0, Step: 1}})

	if _, err := s.Snap(CommandNarrow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := (platform.Rect{X: 0, Y: 0, Width: 1440, Height: 1080}); backend.moves[0] != want {
		t.Fatalf("expected %+v, got %+v", want, backend.moves[0])
	}
	if got := s.Settings().Grid.Cols; got != 4 {
		t.Fatalf("expected cols=4, got %d", got)
	}
}
