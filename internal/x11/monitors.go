package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor represents a physical display. Work* fields hold the usable area
// once panels and docks are excluded.
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int

	WorkX      int
	WorkY      int
	WorkWidth  int
	WorkHeight int
}

// GetMonitors retrieves all active monitors using XRandR, with work areas
// filled in.
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Disabled CRTC.
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			outputName = string(outputInfo.Name)
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   outputName,
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		})
	}

	c.applyWorkAreas(monitors)
	return monitors, nil
}

// applyWorkAreas sets the Work* fields of every monitor. Dock struts are
// preferred because _NET_WORKAREA spans the whole root window on multi-head
// setups.
func (c *Connection) applyWorkAreas(monitors []Monitor) {
	docks := c.dockStrutPartials()

	var workArea *ewmh.Workarea
	if areas, err := ewmh.WorkareaGet(c.XUtil); err == nil && len(areas) > 0 {
		idx := 0
		if desktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(desktop) < len(areas) {
			idx = int(desktop)
		}
		workArea = &areas[idx]
	}

	for i := range monitors {
		m := &monitors[i]
		m.WorkX, m.WorkY, m.WorkWidth, m.WorkHeight = m.X, m.Y, m.Width, m.Height

		if docks.len() > 0 {
			var struts dockStruts
			for _, sp := range docks.partials {
				updateStrutsForMonitor(m, docks.rootWidth, docks.rootHeight, sp, &struts)
			}
			if struts != (dockStruts{}) {
				m.WorkX += struts.left
				m.WorkY += struts.top
				m.WorkWidth = max(1, m.Width-struts.left-struts.right)
				m.WorkHeight = max(1, m.Height-struts.top-struts.bottom)
				continue
			}
		}

		if workArea != nil {
			waX, waY := int(workArea.X), int(workArea.Y)
			x1 := max(m.X, waX)
			y1 := max(m.Y, waY)
			x2 := min(m.X+m.Width, waX+int(workArea.Width))
			y2 := min(m.Y+m.Height, waY+int(workArea.Height))
			if x2 > x1 && y2 > y1 {
				m.WorkX, m.WorkY, m.WorkWidth, m.WorkHeight = x1, y1, x2-x1, y2-y1
			}
		}
	}
}

type dockStruts struct {
	left   int
	right  int
	top    int
	bottom int
}

type dockSet struct {
	rootWidth  int
	rootHeight int
	partials   []*ewmh.WmStrutPartial
}

func (d dockSet) len() int { return len(d.partials) }

// dockStrutPartials collects the strut reservations of every dock window.
// Docks that only set _NET_WM_STRUT are converted to full-length partials.
func (c *Connection) dockStrutPartials() dockSet {
	rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return dockSet{}
	}
	set := dockSet{rootWidth: int(rootGeom.Width), rootHeight: int(rootGeom.Height)}

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return dockSet{}
	}

	for _, windowID := range clients {
		if !c.isDock(windowID) {
			continue
		}

		if sp, err := ewmh.WmStrutPartialGet(c.XUtil, windowID); err == nil {
			set.partials = append(set.partials, sp)
			continue
		}

		if s, err := ewmh.WmStrutGet(c.XUtil, windowID); err == nil {
			set.partials = append(set.partials, &ewmh.WmStrutPartial{
				Left:       s.Left,
				Right:      s.Right,
				Top:        s.Top,
				Bottom:     s.Bottom,
				LeftEndY:   uint(set.rootHeight - 1),
				RightEndY:  uint(set.rootHeight - 1),
				TopEndX:    uint(set.rootWidth - 1),
				BottomEndX: uint(set.rootWidth - 1),
			})
		}
	}
	return set
}

func (c *Connection) isDock(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DOCK" {
			return true
		}
	}
	return false
}

func updateStrutsForMonitor(monitor *Monitor, rootWidth, rootHeight int, sp *ewmh.WmStrutPartial, acc *dockStruts) {
	mon := box{monitor.X, monitor.Y, monitor.X + monitor.Width, monitor.Y + monitor.Height}

	// Top strut: y=[0,Top), x=[TopStartX,TopEndX]
	if sp.Top > 0 {
		s := box{int(sp.TopStartX), 0, int(sp.TopEndX) + 1, int(sp.Top)}
		acc.top = max(acc.top, mon.intersect(s).h)
	}

	// Bottom strut: y=[rootHeight-Bottom,rootHeight), x=[BottomStartX,BottomEndX]
	if sp.Bottom > 0 {
		s := box{int(sp.BottomStartX), rootHeight - int(sp.Bottom), int(sp.BottomEndX) + 1, rootHeight}
		acc.bottom = max(acc.bottom, mon.intersect(s).h)
	}

	// Left strut: x=[0,Left), y=[LeftStartY,LeftEndY]
	if sp.Left > 0 {
		s := box{0, int(sp.LeftStartY), int(sp.Left), int(sp.LeftEndY) + 1}
		acc.left = max(acc.left, mon.intersect(s).w)
	}

	// Right strut: x=[rootWidth-Right,rootWidth), y=[RightStartY,RightEndY]
	if sp.Right > 0 {
		s := box{rootWidth - int(sp.Right), int(sp.RightStartY), rootWidth, int(sp.RightEndY) + 1}
		acc.right = max(acc.right, mon.intersect(s).w)
	}
}

// box is an axis-aligned rectangle with exclusive x2/y2.
type box struct {
	x1, y1, x2, y2 int
}

type intersection struct {
	w int
	h int
}

func (a box) intersect(b box) intersection {
	x1 := max(a.x1, b.x1)
	y1 := max(a.y1, b.y1)
	x2 := min(a.x2, b.x2)
	y2 := min(a.y2, b.y2)

	if x2 <= x1 || y2 <= y1 {
		return intersection{}
	}
	return intersection{w: x2 - x1, h: y2 - y1}
}
