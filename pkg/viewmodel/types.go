// Package viewmodel owns the in-memory subset of the topicmap currently on
// screen: topics and associations in insertion order, the highlight and the
// viewport. Renderers and the interaction core read it; only the canvas
// mutates it.
package viewmodel

import (
	"image/color"

	"github.com/recera/tmcanvas/pkg/geometry"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Topic is a displayed topic.
type Topic struct {
	ID      topicmap.ID
	TypeURI string
	Label   string

	// X, Y is the center of the icon in canvas space.
	X, Y int

	// Icon and its dimensions, derived from the type.
	Icon   *style.Icon
	Width  int
	Height int

	// Label wrap geometry, filled in by the renderer's measuring pass.
	// LabelLines is nil while the wrap is stale.
	LabelLines  []string
	LabelWidth  int
	LabelHeight int
}

// Position returns the icon center.
func (t *Topic) Position() topicmap.Point {
	return topicmap.Point{X: t.X, Y: t.Y}
}

// Bounds returns the icon rectangle used for hit testing.
func (t *Topic) Bounds() geometry.Rect {
	return geometry.RectAround(t.Position(), t.Width, t.Height)
}

// Model returns the wire representation of the topic.
func (t *Topic) Model() topicmap.Topic {
	return topicmap.Topic{ID: t.ID, TypeURI: t.TypeURI, Label: t.Label}
}

// InvalidateLabel marks the label wrap as stale.
func (t *Topic) InvalidateLabel() {
	t.LabelLines = nil
	t.LabelWidth = 0
	t.LabelHeight = 0
}

func (t *Topic) applyStyle(styles style.Styles) {
	icon := styles.TopicIcon(t.TypeURI)
	t.Icon = icon
	if icon != nil {
		t.Width, t.Height = icon.Width, icon.Height
	} else {
		t.Width, t.Height = style.DefaultIconSize, style.DefaultIconSize
	}
}

// Association is a displayed association.
type Association struct {
	ID      topicmap.ID
	TypeURI string
	Role1   topicmap.ID
	Role2   topicmap.ID
	Color   color.Color
}

// Model returns the wire representation of the association.
func (a *Association) Model() topicmap.Association {
	return topicmap.Association{ID: a.ID, TypeURI: a.TypeURI, Role1: a.Role1, Role2: a.Role2}
}

// Connects reports whether topicID is one of the role players.
func (a *Association) Connects(topicID topicmap.ID) bool {
	return a.Role1 == topicID || a.Role2 == topicID
}

func (a *Association) applyStyle(styles style.Styles) {
	a.Color = styles.AssociationColor(a.TypeURI)
}

// HighlightKind tells what the highlight points at.
type HighlightKind int

const (
	HighlightNone HighlightKind = iota
	HighlightTopic
	HighlightAssociation
)

func (k HighlightKind) String() string {
	switch k {
	case HighlightTopic:
		return "topic"
	case HighlightAssociation:
		return "association"
	default:
		return "none"
	}
}

// Highlight is the single highlighted object.
type Highlight struct {
	Kind HighlightKind
	ID   topicmap.ID
}

// Is reports whether the highlight points at the given object.
func (h Highlight) Is(kind HighlightKind, id topicmap.ID) bool {
	return h.Kind == kind && h.Kind != HighlightNone && h.ID == id
}

// Viewport describes the visible drawing rectangle. Translation is the
// pixel offset applied to the whole drawing; canvas space = screen space
// minus Translation.
type Viewport struct {
	Width       int
	Height      int
	Translation topicmap.Point
}

// ToCanvas converts a screen position to canvas space.
func (v Viewport) ToCanvas(screen topicmap.Point) topicmap.Point {
	return screen.Sub(v.Translation)
}

// ToScreen converts a canvas position to screen space.
func (v Viewport) ToScreen(p topicmap.Point) topicmap.Point {
	return p.Add(v.Translation)
}

// Visible returns the visible rectangle in canvas space.
func (v Viewport) Visible() geometry.Rect {
	return geometry.RectXYWH(-v.Translation.X, -v.Translation.Y, v.Width, v.Height)
}
