//go:build linux

package platform

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/luigirizzo/lrtile/internal/x11"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection

	// fallbackDisplays is used when RandR reports no monitors.
	fallbackDisplays func() []Display
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn, fallbackDisplays: ScreenshotDisplays}
}

// NewLinuxBackendFromDisplay opens a fresh X11 connection to display
// ("" means $DISPLAY).
func NewLinuxBackendFromDisplay(display string) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn), nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// Quit stops a running EventLoop.
func (b *LinuxBackend) Quit() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// Displays returns all active displays ordered by ID.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil || len(monitors) == 0 {
		if b.fallbackDisplays != nil {
			if displays := b.fallbackDisplays(); len(displays) > 0 {
				return displays, nil
			}
		}
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("no monitors found")
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, displayFromMonitor(m))
	}

	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})

	return displays, nil
}

// ActiveWindow returns the currently active/focused window ID.
func (b *LinuxBackend) ActiveWindow() (WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}

	wid, err := conn.GetActiveWindow()
	if err != nil {
		return 0, err
	}
	return WindowID(wid), nil
}

// WindowGeometry returns the outer geometry of a window, decorations included.
func (b *LinuxBackend) WindowGeometry(windowID WindowID) (Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return Rect{}, err
	}

	x, y, w, h, err := conn.GetWindowGeometry(xproto.Window(windowID))
	if err != nil {
		return Rect{}, err
	}
	ext := conn.GetFrameExtents(xproto.Window(windowID))

	return Rect{
		X:      x - ext.Left,
		Y:      y - ext.Top,
		Width:  w + ext.Left + ext.Right,
		Height: h + ext.Top + ext.Bottom,
	}, nil
}

// MoveResize places the window frame at bounds.
func (b *LinuxBackend) MoveResize(windowID WindowID, bounds Rect) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	ext := conn.GetFrameExtents(xproto.Window(windowID))
	width := bounds.Width - ext.Left - ext.Right
	height := bounds.Height - ext.Top - ext.Bottom
	if width < 1 || height < 1 {
		return fmt.Errorf("window %d: frame extents leave no client area in %dx%d", windowID, bounds.Width, bounds.Height)
	}

	// _NET_MOVERESIZE_WINDOW positions the frame for the default gravity.
	return conn.MoveResizeWindow(xproto.Window(windowID), bounds.X, bounds.Y, width, height)
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func displayFromMonitor(m x11.Monitor) Display {
	return Display{
		ID:   m.ID,
		Name: m.Name,
		Bounds: Rect{
			X:      m.X,
			Y:      m.Y,
			Width:  m.Width,
			Height: m.Height,
		},
		Usable: Rect{
			X:      m.WorkX,
			Y:      m.WorkY,
			Width:  m.WorkWidth,
			Height: m.WorkHeight,
		},
	}
}
