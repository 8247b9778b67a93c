// Package canvas is the interactive topicmap canvas: it owns the
// view-model, turns pointer input into drags, pans, association pulls and
// cluster moves, applies server directives and redraws through a Renderer.
//
// A Canvas is not safe for concurrent use. Every method must be called from
// the loop that owns it; collaborator calls run through an Executor whose
// continuations come back to that loop.
package canvas

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/recera/tmcanvas/pkg/animate"
	"github.com/recera/tmcanvas/pkg/layout"
	"github.com/recera/tmcanvas/pkg/render"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
	"github.com/recera/tmcanvas/pkg/viewmodel"
)

// Options configures a Canvas. Zero values take defaults.
type Options struct {
	Logger *slog.Logger
	// Context bounds collaborator calls. Close cancels it.
	Context context.Context

	// Renderer defaults to the renderer registered for TopicmapType.
	Renderer     render.Renderer
	TopicmapType string
	Render       render.Options

	Executor Executor

	// AllowSelfLoops lets an association pull released over its origin
	// topic create an association from the topic to itself.
	AllowSelfLoops bool
	// AssociationType is the type of associations created by pulling.
	AssociationType string

	// DragThreshold is the pointer travel in pixels that turns a press
	// into a drag (default 3).
	DragThreshold int

	ScrollSteps int
	ScrollDelay time.Duration
	// Animate runs animation sequences. The default applies all steps at
	// once; interactive front ends hand the sequence to their timer.
	Animate func(*animate.Sequence)

	Grid layout.GridOptions
	Free layout.FreeOptions
	Rand *rand.Rand

	// Icons, if set, holds drawing back until every icon source it tracks
	// has settled. The first full draw then runs through the Executor.
	Icons *style.Tracker
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Render.Logger == nil {
		o.Render.Logger = o.Logger
	}
	if o.Renderer == nil {
		f, ok := render.Lookup(o.TopicmapType)
		if !ok && o.TopicmapType != "" {
			o.Logger.Warn("unknown topicmap type, using default renderer", "type", o.TopicmapType)
		}
		o.Renderer = f(o.Render)
	}
	if o.Executor == nil {
		o.Executor = SyncExecutor{}
	}
	if o.AssociationType == "" {
		o.AssociationType = "dm4.core.association"
	}
	if o.DragThreshold <= 0 {
		o.DragThreshold = 3
	}
	if o.ScrollSteps <= 0 {
		o.ScrollSteps = animate.DefaultSteps
	}
	if o.ScrollDelay <= 0 {
		o.ScrollDelay = animate.DefaultDelay
	}
	if o.Animate == nil {
		o.Animate = func(seq *animate.Sequence) {
			for seq.Advance() {
			}
		}
	}
	if o.Free.Rand == nil && o.Rand != nil {
		o.Free.Rand = o.Rand
	}
	return o
}

// Collaborators are the services a Canvas calls into. Only Styles is
// needed for display; without Persistence every change stays local.
type Collaborators struct {
	Persistence Persistence
	Styles      style.Styles
	Selection   Selection
	Commands    Commands
}

// Canvas is one interactive topicmap view.
type Canvas struct {
	// Hooks lets callers observe the canvas.
	Hooks Hooks

	opts      Options
	ctx       context.Context
	cancel    context.CancelFunc
	log       *slog.Logger
	surface   render.Surface
	renderer  render.Renderer
	store     *viewmodel.Store
	persist   Persistence
	selection Selection
	commands  Commands
	exec      Executor

	topicmapID   topicmap.ID
	topicmapName string
	viewport     viewmodel.Viewport
	free         *layout.Free

	in        interaction
	menu      *Menu
	scroll    *animate.Sequence
	committed topicmap.Point // last translation handed to persistence
	tempID    topicmap.ID
}

// New creates a canvas drawing on surface. The viewport takes the surface
// size.
func New(surface render.Surface, c Collaborators, opts Options) *Canvas {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(opts.Context)

	cv := &Canvas{
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		log:       opts.Logger,
		surface:   surface,
		renderer:  opts.Renderer,
		store:     viewmodel.NewStore(c.Styles),
		persist:   c.Persistence,
		selection: c.Selection,
		commands:  c.Commands,
		exec:      opts.Executor,
	}
	if cv.selection == nil {
		cv.selection = &localSelection{}
	}
	w, h := surface.Size()
	cv.viewport = viewmodel.Viewport{Width: w, Height: h}

	cv.free = layout.NewFree(cv.store, cv.Viewport, cv.selectedTopicPosition, opts.Free)
	cv.store.SetFreePlacer(cv.free)
	if opts.Icons != nil && !cv.iconsReady() {
		opts.Icons.OnReady(func() {
			cv.exec.Go(func() func() { return cv.Draw })
		})
	}
	return cv
}

// Close cancels pending collaborator calls and animations.
func (c *Canvas) Close() {
	c.stopScroll()
	c.cancel()
}

// Store returns the view-model. Callers may read it; changes should go
// through the canvas so selection and redraws stay consistent.
func (c *Canvas) Store() *viewmodel.Store { return c.store }

// Surface returns the drawing surface.
func (c *Canvas) Surface() render.Surface { return c.surface }

// Renderer returns the active renderer.
func (c *Canvas) Renderer() render.Renderer { return c.renderer }

// TopicmapID returns the id of the loaded topicmap.
func (c *Canvas) TopicmapID() topicmap.ID { return c.topicmapID }

// Viewport returns the current viewport.
func (c *Canvas) Viewport() viewmodel.Viewport { return c.viewport }

// Translation returns the current canvas translation.
func (c *Canvas) Translation() topicmap.Point { return c.viewport.Translation }

// Resize changes the viewport size, for example after the surface grew.
func (c *Canvas) Resize(w, h int) {
	c.viewport.Width, c.viewport.Height = w, h
	c.Draw()
}

// SetSurface switches to another surface and adopts its size.
func (c *Canvas) SetSurface(s render.Surface) {
	c.surface = s
	w, h := s.Size()
	c.Resize(w, h)
}

// Draw repaints the canvas. It does nothing while tracked icons are still
// loading.
func (c *Canvas) Draw() {
	if !c.iconsReady() {
		return
	}
	c.Hooks.PreDraw.Emit(c)
	c.renderer.Draw(c.surface, c.scene())
	c.Hooks.PostDraw.Emit(c)
}

func (c *Canvas) iconsReady() bool {
	if c.opts.Icons == nil {
		return true
	}
	select {
	case <-c.opts.Icons.Ready():
		return true
	default:
		return false
	}
}

func (c *Canvas) scene() render.Scene {
	sc := render.Scene{Store: c.store, Viewport: c.viewport}
	if c.in.mode == ModeAssociationPulling {
		if origin := c.store.Topic(c.in.topicID); origin != nil {
			sc.Pull = &render.Pull{From: origin.Position(), To: c.in.pullEnd}
		}
	}
	return sc
}

// Load replaces the displayed content with a topicmap snapshot. Only
// visible topics are shown.
func (c *Canvas) Load(tm *topicmap.Topicmap) {
	c.stopScroll()
	c.in = interaction{}
	c.closeMenu()
	c.store.Clear()
	c.selection.Reset()

	c.topicmapID = tm.ID
	c.topicmapName = tm.Name
	c.viewport.Translation = tm.Translation
	c.committed = tm.Translation
	for _, pt := range tm.Topics {
		if !pt.Visible {
			continue
		}
		pos := pt.Position()
		c.store.AddTopic(pt.Topic, &pos)
	}
	for _, a := range tm.Associations {
		c.store.AddAssociation(a)
	}
	c.log.Info("topicmap loaded", "id", tm.ID, "name", tm.Name,
		"topics", c.store.TopicCount(), "associations", c.store.AssociationCount())
	c.Draw()
}

// Snapshot exports the displayed content as a topicmap. Topics with
// temporary ids are left out.
func (c *Canvas) Snapshot() *topicmap.Topicmap {
	tm := &topicmap.Topicmap{
		ID:          c.topicmapID,
		Name:        c.topicmapName,
		Type:        c.opts.TopicmapType,
		Translation: c.viewport.Translation,
	}
	for _, t := range c.store.Topics() {
		if t.ID.Temporary() {
			continue
		}
		tm.Topics = append(tm.Topics, topicmap.PlacedTopic{Topic: t.Model(), X: t.X, Y: t.Y, Visible: true})
	}
	for _, a := range c.store.Associations() {
		if a.ID.Temporary() {
			continue
		}
		tm.Associations = append(tm.Associations, a.Model())
	}
	return tm
}

// run executes a collaborator call through the executor. done runs on the
// loop with the call's result; failures are reported on the Error hook.
func (c *Canvas) run(op string, id topicmap.ID, call func(ctx context.Context) error, done func(err error)) {
	ctx := c.ctx
	c.exec.Go(func() func() {
		err := call(ctx)
		return func() {
			if err != nil {
				c.fail(op, id, err)
			}
			if done != nil {
				done(err)
			}
		}
	})
}

func (c *Canvas) fail(op string, id topicmap.ID, err error) *OpError {
	oe := &OpError{Op: op, ID: id, Err: err}
	c.log.Error("canvas operation failed", "op", op, "id", id, "error", err)
	c.Hooks.Error.Emit(oe)
	return oe
}

func (c *Canvas) nextTempID() topicmap.ID {
	c.tempID--
	return c.tempID
}
