package render

import (
	"fmt"
	"image/color"
	"log/slog"
	"runtime/debug"

	"github.com/recera/tmcanvas/pkg/geometry"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
	"github.com/recera/tmcanvas/pkg/viewmodel"
)

// Drawing constants.
const (
	LabelMaxWidth = 200 // maximum width of a wrapped topic label
	HighlightDist = 5   // gap between a highlighted icon and its glow border
	LabelDist     = 4   // gap between icon and label
)

// Scene is everything a Renderer reads during one Draw.
type Scene struct {
	Store    *viewmodel.Store
	Viewport viewmodel.Viewport
	// Pull is non-nil while an association is being pulled.
	Pull *Pull
}

// Renderer paints a Scene onto a Surface.
type Renderer interface {
	Draw(s Surface, scene Scene)
}

// Options configures the topicmap renderers. Zero fields take defaults.
type Options struct {
	Logger         *slog.Logger
	LabelMaxWidth  int
	LineWidth      float64
	HighlightColor color.Color
	LabelColor     color.Color
	PullColor      color.Color
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.LabelMaxWidth <= 0 {
		o.LabelMaxWidth = LabelMaxWidth
	}
	if o.LineWidth <= 0 {
		o.LineWidth = geometry.DefaultLineWidth
	}
	if o.HighlightColor == nil {
		o.HighlightColor = style.MustParseColor("#0000ff")
	}
	if o.LabelColor == nil {
		o.LabelColor = color.Black
	}
	if o.PullColor == nil {
		o.PullColor = style.MustParseColor(style.DefaultAssociationColor)
	}
	return o
}

// Variant selects how topics are painted.
type Variant int

const (
	// VariantIcon draws the type icon with the label below.
	VariantIcon Variant = iota
	// VariantOutline draws a frame in place of the icon. It needs no
	// decoded images and suits low resolution surfaces.
	VariantOutline
)

// TopicmapRenderer is the standard Renderer. It keeps no copy of the
// view-model; the only state carried between draws is which dangling
// associations were already reported and which surface measured the labels.
type TopicmapRenderer struct {
	opts     Options
	variant  Variant
	dangling map[topicmap.ID]struct{}

	measuredBy Surface
}

// NewDefault creates the icon renderer.
func NewDefault(opts Options) *TopicmapRenderer {
	return newTopicmapRenderer(opts, VariantIcon)
}

// NewOutline creates the outline renderer.
func NewOutline(opts Options) *TopicmapRenderer {
	return newTopicmapRenderer(opts, VariantOutline)
}

func newTopicmapRenderer(opts Options, v Variant) *TopicmapRenderer {
	return &TopicmapRenderer{
		opts:     opts.withDefaults(),
		variant:  v,
		dangling: make(map[topicmap.ID]struct{}),
	}
}

// Variant returns the topic painting variant.
func (r *TopicmapRenderer) Variant() Variant {
	return r.variant
}

// Draw implements Renderer.
func (r *TopicmapRenderer) Draw(s Surface, scene Scene) {
	store := scene.Store
	r.measure(s, store)

	s.SetTranslation(scene.Viewport.Translation)
	s.Clear(scene.Viewport.Visible())

	hl := store.Highlight()
	store.IterateAssociations(func(a *viewmodel.Association) bool {
		r.guard("association", a.ID, func() {
			r.drawAssociation(s, store, a, hl.Is(viewmodel.HighlightAssociation, a.ID))
		})
		return false
	})

	if scene.Pull != nil {
		s.Line(scene.Pull.From, scene.Pull.To, r.opts.LineWidth, r.opts.PullColor)
	}

	store.IterateTopics(func(t *viewmodel.Topic) bool {
		r.guard("topic", t.ID, func() {
			r.drawTopic(s, t, hl.Is(viewmodel.HighlightTopic, t.ID))
		})
		return false
	})
}

// measure wraps every stale label. Switching surfaces invalidates all
// labels since fonts differ between surfaces.
func (r *TopicmapRenderer) measure(s Surface, store *viewmodel.Store) {
	if r.measuredBy != s {
		store.IterateTopics(func(t *viewmodel.Topic) bool {
			t.InvalidateLabel()
			return false
		})
		r.measuredBy = s
	}
	lineHeight := s.LineHeight()
	store.IterateTopics(func(t *viewmodel.Topic) bool {
		if t.LabelLines != nil {
			return false
		}
		lines, width := WrapLabel(t.Label, r.opts.LabelMaxWidth, s.MeasureText)
		t.LabelLines = lines
		t.LabelWidth = width
		t.LabelHeight = len(lines) * lineHeight
		return false
	})
}

func (r *TopicmapRenderer) drawAssociation(s Surface, store *viewmodel.Store, a *viewmodel.Association, highlighted bool) {
	t1, t2, ok := store.Endpoints(a)
	if !ok {
		if _, seen := r.dangling[a.ID]; !seen {
			r.dangling[a.ID] = struct{}{}
			r.opts.Logger.Warn("association skipped, endpoint not displayed",
				"association", a.ID, "role1", a.Role1, "role2", a.Role2)
		}
		return
	}
	delete(r.dangling, a.ID)

	p1, p2 := t1.Position(), t2.Position()
	if highlighted {
		s.Line(p1, p2, r.opts.LineWidth+2*HighlightDist, r.opts.HighlightColor)
	}
	c := a.Color
	if c == nil {
		c = r.opts.PullColor
	}
	s.Line(p1, p2, r.opts.LineWidth, c)
}

func (r *TopicmapRenderer) drawTopic(s Surface, t *viewmodel.Topic, highlighted bool) {
	bounds := t.Bounds()
	if highlighted {
		s.FillRect(bounds.Inset(-HighlightDist), r.opts.HighlightColor)
	}

	switch r.variant {
	case VariantOutline:
		s.StrokeRect(bounds, 1, r.opts.LabelColor)
	default:
		if err := s.Image(t.Icon, bounds); err != nil {
			attrs := []any{"topic", t.ID, "type", t.TypeURI, "error", err}
			if t.Icon != nil {
				attrs = append(attrs, "source", t.Icon.Source,
					"width", t.Icon.Width, "height", t.Icon.Height, "loaded", t.Icon.Loaded())
			}
			r.opts.Logger.Debug("icon not drawn", attrs...)
			s.StrokeRect(bounds, 1, r.opts.LabelColor)
		}
	}

	if len(t.LabelLines) == 0 {
		return
	}
	lineHeight := t.LabelHeight / len(t.LabelLines)
	p := topicmap.Point{X: bounds.Min.X, Y: bounds.Max.Y + LabelDist}
	for _, line := range t.LabelLines {
		s.Text(line, p, r.opts.LabelColor)
		p.Y += lineHeight
	}
}

// guard runs one object's drawing and turns a panic into a log entry so the
// remaining objects are still drawn.
func (r *TopicmapRenderer) guard(kind string, id topicmap.ID, draw func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.opts.Logger.Error("draw failed",
				"kind", kind, "id", id,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()))
		}
	}()
	draw()
}
