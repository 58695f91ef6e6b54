package hotkeys

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/luigirizzo/lrtile/internal/config"
	"github.com/luigirizzo/lrtile/internal/platform"
	"github.com/luigirizzo/lrtile/internal/tiling"
)

// Dispatcher receives triggered hotkeys.
type Dispatcher interface {
	HandleCommand(cmd tiling.Command)
	HandleToggle()
	HandleUndo()
}

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler manages global keyboard shortcuts
type Handler struct {
	mu       sync.Mutex
	xu       *xgbutil.XUtil
	root     xproto.Window
	dispatch Dispatcher
	logger   *slog.Logger
	bound    []string
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler. The backend must expose its X11
// connection.
func NewHandler(backend platform.Backend, dispatch Dispatcher, logger *slog.Logger) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok || accessor.XUtil() == nil {
		return nil, fmt.Errorf("hotkeys: backend has no X11 connection")
	}
	if logger == nil {
		logger = slog.Default()
	}

	xu := accessor.XUtil()
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:       xu,
		root:     accessor.RootWindow(),
		dispatch: dispatch,
		logger:   logger,
	}, nil
}

// Bind replaces every key grab on the root window with the bindings in cfg.
// A sequence that cannot be grabbed is logged and skipped; the returned
// count is the number of grabs that succeeded.
func (h *Handler) Bind(cfg *config.Config) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	keybind.Detach(h.xu, h.root)
	h.bound = h.bound[:0]

	for _, b := range cfg.Bindings() {
		cmd := b.Command
		h.register(b.Sequence, string(cmd), func() { h.dispatch.HandleCommand(cmd) })
	}
	if cfg.ToggleHotkey != "" {
		h.register(cfg.ToggleHotkey, "toggle", h.dispatch.HandleToggle)
	}
	if cfg.UndoHotkey != "" {
		h.register(cfg.UndoHotkey, "undo", h.dispatch.HandleUndo)
	}

	h.logger.Info("hotkeys bound", "count", len(h.bound))
	return len(h.bound)
}

// Bound returns the sequences currently grabbed.
func (h *Handler) Bound() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.bound...)
}

func (h *Handler) register(keySequence, name string, callback func()) {
	err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		h.logger.Debug("hotkey triggered", "action", name, "keys", keySequence)
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
	if err != nil {
		h.logger.Warn("failed to grab hotkey", "action", name, "keys", keySequence, "error", err)
		return
	}
	h.bound = append(h.bound, keySequence)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	xevent.IgnoreMods = ignoreMaskCombinations(base)
}

// ignoreMaskCombinations returns 0 plus every OR-combination of base.
func ignoreMaskCombinations(base []uint16) []uint16 {
	unique := map[uint16]struct{}{0: {}}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		unique[mask] = struct{}{}
	}

	out := make([]uint16, 0, len(unique))
	for mask := range unique {
		out = append(out, mask)
	}
	return out
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
