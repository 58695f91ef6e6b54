package platform

import (
	"fmt"

	"github.com/kbinani/screenshot"
)

// ScreenshotDisplays enumerates displays through the screenshot library.
// Work areas are not known there, so Usable equals Bounds.
func ScreenshotDisplays() []Display {
	n := screenshot.NumActiveDisplays()
	displays := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		if b.Empty() {
			continue
		}
		r := Rect{X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy()}
		displays = append(displays, Display{
			ID:     i,
			Name:   fmt.Sprintf("screen%d", i),
			Bounds: r,
			Usable: r,
		})
	}
	return displays
}
