// Package render draws the view-model onto an abstract drawing surface.
//
// A Renderer repaints the whole visible area on every Draw call: it wraps
// stale labels, clears the visible rectangle, then paints associations, the
// pending association line and topics, in that order. Concrete surfaces live
// under pkg/surface.
package render

import (
	"errors"
	"image/color"

	"github.com/recera/tmcanvas/pkg/geometry"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// ErrNotLoaded is returned by Surface.Image when the icon has no decoded
// image the surface can draw.
var ErrNotLoaded = errors.New("icon not loaded")

// Surface is a 2D drawing target. All coordinates passed to drawing methods
// are in canvas space; the surface applies the translation last set with
// SetTranslation.
type Surface interface {
	// Size returns the visible size in pixels.
	Size() (width, height int)
	SetTranslation(t topicmap.Point)
	// Clear erases r to the background.
	Clear(r geometry.Rect)

	Line(a, b topicmap.Point, width float64, c color.Color)
	FillRect(r geometry.Rect, c color.Color)
	StrokeRect(r geometry.Rect, width float64, c color.Color)
	// Image draws icon scaled into r.
	Image(icon *style.Icon, r geometry.Rect) error
	// Text draws s with its top-left corner at p.
	Text(s string, p topicmap.Point, c color.Color)

	// MeasureText returns the advance width of s in pixels.
	MeasureText(s string) int
	LineHeight() int
}

// Pull is the rubber-band line shown while a new association is dragged out
// of a topic.
type Pull struct {
	From topicmap.Point
	To   topicmap.Point
}
