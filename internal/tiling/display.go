package tiling

import "errors"

// ErrNoContainingDisplay is returned when a window's top-left corner is not
// on any known display, typically because the display list is stale.
var ErrNoContainingDisplay = errors.New("window is not on any known display")

// Contains reports whether the point lies inside r. The right and bottom
// edges are exclusive.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// ResolveDisplay returns the first display area containing the point.
func ResolveDisplay(x, y int, displays []Rect) (Rect, bool) {
	for _, d := range displays {
		if d.Contains(x, y) {
			return d, true
		}
	}
	return Rect{}, false
}
