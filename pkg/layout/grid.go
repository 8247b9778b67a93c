// Package layout assigns initial positions to topics added without one.
//
// Two strategies exist. Grid fills rows below the existing topics and is
// used while a batch of topics is revealed at once. Free places a topic near
// the current selection, or anywhere in the visible viewport when nothing is
// selected.
package layout

import (
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
	"github.com/recera/tmcanvas/pkg/viewmodel"
)

// GridOptions configures grid positioning. Zero fields take defaults.
type GridOptions struct {
	PitchX int // horizontal distance between columns (default 220)
	PitchY int // vertical distance between rows (default 80)
	StartX int // left margin of the first column (default 50)
	StartY int // margin above the first row when the canvas is empty (default 50)

	// IconWidth is the width reserved for the topic in the last column.
	IconWidth int

	// OnFirst is called with the first position handed out, so the canvas
	// can scroll it into the center of the view.
	OnFirst func(topicmap.Point)
}

func (o GridOptions) withDefaults() GridOptions {
	if o.PitchX <= 0 {
		o.PitchX = 220
	}
	if o.PitchY <= 0 {
		o.PitchY = 80
	}
	if o.StartX <= 0 {
		o.StartX = 50
	}
	if o.StartY <= 0 {
		o.StartY = 50
	}
	if o.IconWidth <= 0 {
		o.IconWidth = style.DefaultIconSize
	}
	return o
}

// Grid hands out positions row by row. The cursor starts one row below the
// lowest displayed topic (or at the top of the view when there is none) and
// advances one column per call, wrapping before the next column would leave
// the visible width.
type Grid struct {
	opts     GridOptions
	store    *viewmodel.Store
	viewport func() viewmodel.Viewport

	started bool
	originX int
	col     int
	y       int
	count   int
}

// NewGrid creates a grid positioner over store. The viewport is read on
// every call so panning between calls is honored.
func NewGrid(store *viewmodel.Store, viewport func() viewmodel.Viewport, opts GridOptions) *Grid {
	return &Grid{
		opts:     opts.withDefaults(),
		store:    store,
		viewport: viewport,
	}
}

func (g *Grid) start() {
	vp := g.viewport()
	g.originX = g.opts.StartX - vp.Translation.X

	if g.store.TopicCount() == 0 {
		g.y = g.opts.StartY - vp.Translation.Y
	} else {
		maxY := 0
		first := true
		g.store.IterateTopics(func(t *viewmodel.Topic) bool {
			if first || t.Y > maxY {
				maxY = t.Y
				first = false
			}
			return false
		})
		g.y = maxY + g.opts.PitchY
	}
	g.started = true
}

// NextPosition implements viewmodel.Placer.
func (g *Grid) NextPosition() topicmap.Point {
	if !g.started {
		g.start()
	}

	p := topicmap.Point{X: g.originX + g.col*g.opts.PitchX, Y: g.y}
	if g.count == 0 && g.opts.OnFirst != nil {
		g.opts.OnFirst(p)
	}
	g.count++
	g.advance()
	return p
}

func (g *Grid) advance() {
	width := g.viewport().Width
	next := g.opts.StartX + (g.col+1)*g.opts.PitchX
	if next+g.opts.IconWidth > width {
		g.col = 0
		g.y += g.opts.PitchY
		return
	}
	g.col++
}

// Count returns the number of positions handed out.
func (g *Grid) Count() int {
	return g.count
}
