package layout

import (
	"math"
	"math/rand/v2"

	"github.com/recera/tmcanvas/pkg/geometry"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
	"github.com/recera/tmcanvas/pkg/viewmodel"
)

// FreeOptions configures free positioning. Zero fields take defaults.
type FreeOptions struct {
	RadiusIncrement int // growth of the search radius per round (default 150)
	MaxRounds       int // rounds before giving up on a free spot (default 10)
	Clearance       int // required gap around existing topics (default 20)
	IconWidth       int // footprint of the new topic (default icon size)
	IconHeight      int

	// Rand supplies randomness; tests pass a seeded source.
	Rand *rand.Rand
}

func (o FreeOptions) withDefaults() FreeOptions {
	if o.RadiusIncrement <= 0 {
		o.RadiusIncrement = 150
	}
	if o.MaxRounds <= 0 {
		o.MaxRounds = 10
	}
	if o.Clearance <= 0 {
		o.Clearance = 20
	}
	if o.IconWidth <= 0 {
		o.IconWidth = style.DefaultIconSize
	}
	if o.IconHeight <= 0 {
		o.IconHeight = style.DefaultIconSize
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}

// Free places topics near the selection or at random in the viewport.
type Free struct {
	opts     FreeOptions
	store    *viewmodel.Store
	viewport func() viewmodel.Viewport
	anchor   func() (topicmap.Point, bool)
}

// NewFree creates a free positioner. anchor reports the position of the
// selected topic, if any; it may be nil.
func NewFree(store *viewmodel.Store, viewport func() viewmodel.Viewport, anchor func() (topicmap.Point, bool), opts FreeOptions) *Free {
	return &Free{
		opts:     opts.withDefaults(),
		store:    store,
		viewport: viewport,
		anchor:   anchor,
	}
}

// NextPosition implements viewmodel.Placer.
func (f *Free) NextPosition() topicmap.Point {
	if f.anchor != nil {
		if p, ok := f.anchor(); ok {
			return f.FindFreePosition(p)
		}
	}
	return f.RandomInViewport()
}

// RandomInViewport returns a uniformly random point of the visible area.
func (f *Free) RandomInViewport() topicmap.Point {
	vp := f.viewport()
	x := f.opts.Rand.Float64()*float64(vp.Width) - float64(vp.Translation.X)
	y := f.opts.Rand.Float64()*float64(vp.Height) - float64(vp.Translation.Y)
	return floorPoint(x, y)
}

// FindFreePosition searches discs of growing radius around start for a
// position where the new topic would not overlap any displayed topic. Each
// round draws 10×round samples. If every round fails the last sample is
// returned.
func (f *Free) FindFreePosition(start topicmap.Point) topicmap.Point {
	radius := 0
	last := start
	for round := 1; round <= f.opts.MaxRounds; round++ {
		radius += f.opts.RadiusIncrement
		for i := 0; i < 10*round; i++ {
			last = f.randomInCircle(start, float64(radius))
			if f.IsFree(last) {
				return last
			}
		}
	}
	return last
}

// IsFree reports whether a topic centered on p keeps the clearance to every
// displayed topic.
func (f *Free) IsFree(p topicmap.Point) bool {
	candidate := geometry.RectAround(p, f.opts.IconWidth, f.opts.IconHeight).Inset(-f.opts.Clearance)
	hit := f.store.IterateTopics(func(t *viewmodel.Topic) bool {
		return candidate.Overlaps(t.Bounds())
	})
	return hit == nil
}

func (f *Free) randomInCircle(c topicmap.Point, radius float64) topicmap.Point {
	r := radius * math.Sqrt(f.opts.Rand.Float64())
	theta := f.opts.Rand.Float64() * 2 * math.Pi
	return floorPoint(float64(c.X)+r*math.Cos(theta), float64(c.Y)+r*math.Sin(theta))
}

func floorPoint(x, y float64) topicmap.Point {
	return topicmap.Point{X: int(math.Floor(x)), Y: int(math.Floor(y))}
}
