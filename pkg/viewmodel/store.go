package viewmodel

import (
	"math"

	"github.com/recera/tmcanvas/pkg/geometry"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Placer picks a position for a topic added without one.
type Placer interface {
	NextPosition() topicmap.Point
}

// PlacerFunc adapts a function to Placer.
type PlacerFunc func() topicmap.Point

// NextPosition implements Placer.
func (f PlacerFunc) NextPosition() topicmap.Point { return f() }

// Store is the authoritative set of displayed topics and associations.
//
// All operations are idempotent: adding an id twice keeps the first entry,
// updating or removing an absent id is a no-op. This lets the same change
// arrive through several paths (a local hide and the server's delete
// directive) without special casing.
//
// Store is not safe for concurrent use.
type Store struct {
	topics    ordered[*Topic]
	assocs    ordered[*Association]
	highlight Highlight
	styles    style.Styles

	grid Placer
	free Placer
}

// NewStore creates an empty store resolving types through styles. A nil
// styles uses an empty style.Table, so every type gets the fallbacks.
func NewStore(styles style.Styles) *Store {
	if styles == nil {
		styles = style.NewTable()
	}
	return &Store{
		topics: newOrdered[*Topic](),
		assocs: newOrdered[*Association](),
		styles: styles,
	}
}

// Styles returns the style lookup the store derives icons and colors from.
func (s *Store) Styles() style.Styles {
	return s.styles
}

// SetGridPlacer activates grid positioning for topics added without a
// position. Pass nil to return to free positioning.
func (s *Store) SetGridPlacer(p Placer) {
	s.grid = p
}

// GridActive reports whether grid positioning is active.
func (s *Store) GridActive() bool {
	return s.grid != nil
}

// SetFreePlacer sets the placer used when grid positioning is inactive.
func (s *Store) SetFreePlacer(p Placer) {
	s.free = p
}

// AddTopic adds t and returns the stored topic together with true if it was
// added. If the id is already present the existing topic is returned
// unchanged with false. A nil pos lets the active placer pick the position.
func (s *Store) AddTopic(t topicmap.Topic, pos *topicmap.Point) (*Topic, bool) {
	if existing, ok := s.topics.get(t.ID); ok {
		return existing, false
	}

	var p topicmap.Point
	switch {
	case pos != nil:
		p = *pos
	case s.grid != nil:
		p = s.grid.NextPosition()
	case s.free != nil:
		p = s.free.NextPosition()
	}

	topic := &Topic{
		ID:      t.ID,
		TypeURI: t.TypeURI,
		Label:   t.Label,
		X:       p.X,
		Y:       p.Y,
	}
	topic.applyStyle(s.styles)
	s.topics.put(topic.ID, topic)
	return topic, true
}

// AddTopicAt is AddTopic with floating point coordinates, floored to whole
// pixels. Pointer input and animations produce fractional positions.
func (s *Store) AddTopicAt(t topicmap.Topic, x, y float64) (*Topic, bool) {
	p := topicmap.Point{X: int(math.Floor(x)), Y: int(math.Floor(y))}
	return s.AddTopic(t, &p)
}

// AddAssociation adds a. Endpoints are not checked here; the renderer skips
// associations whose topics are missing.
func (s *Store) AddAssociation(a topicmap.Association) (*Association, bool) {
	if existing, ok := s.assocs.get(a.ID); ok {
		return existing, false
	}
	assoc := &Association{
		ID:      a.ID,
		TypeURI: a.TypeURI,
		Role1:   a.Role1,
		Role2:   a.Role2,
	}
	assoc.applyStyle(s.styles)
	s.assocs.put(assoc.ID, assoc)
	return assoc, true
}

// UpdateTopic replaces label and type of the stored topic, keeping its
// position. It returns nil if the topic is not displayed.
func (s *Store) UpdateTopic(t topicmap.Topic) *Topic {
	return s.PatchTopic(topicmap.TopicPatch{ID: t.ID, TypeURI: t.TypeURI, Label: &t.Label})
}

// PatchTopic applies the fields present in p to the stored topic. It
// returns nil if the topic is not displayed.
func (s *Store) PatchTopic(p topicmap.TopicPatch) *Topic {
	topic, ok := s.topics.get(p.ID)
	if !ok {
		return nil
	}
	if p.Label != nil && topic.Label != *p.Label {
		topic.Label = *p.Label
		topic.InvalidateLabel()
	}
	if p.TypeURI != "" {
		topic.TypeURI = p.TypeURI
	}
	topic.applyStyle(s.styles)
	return topic
}

// UpdateAssociation replaces type and role players of the stored
// association. Zero role ids keep the current players.
func (s *Store) UpdateAssociation(a topicmap.Association) *Association {
	assoc, ok := s.assocs.get(a.ID)
	if !ok {
		return nil
	}
	if a.TypeURI != "" {
		assoc.TypeURI = a.TypeURI
	}
	if a.Role1 != 0 {
		assoc.Role1 = a.Role1
	}
	if a.Role2 != 0 {
		assoc.Role2 = a.Role2
	}
	assoc.applyStyle(s.styles)
	return assoc
}

// Restyle re-derives icon and color for every object of the given type.
// It returns the number of objects touched.
func (s *Store) Restyle(typeURI string) int {
	n := 0
	for _, t := range s.topics.values() {
		if t.TypeURI == typeURI {
			t.applyStyle(s.styles)
			n++
		}
	}
	for _, a := range s.assocs.values() {
		if a.TypeURI == typeURI {
			a.applyStyle(s.styles)
			n++
		}
	}
	return n
}

// RemoveTopic removes the topic and returns it, or nil if it was absent.
// Associations are left in place; see AssociationsOf.
func (s *Store) RemoveTopic(id topicmap.ID) *Topic {
	t, ok := s.topics.remove(id)
	if !ok {
		return nil
	}
	if s.highlight.Is(HighlightTopic, id) {
		s.highlight = Highlight{}
	}
	return t
}

// RemoveAssociation removes the association and returns it, or nil.
func (s *Store) RemoveAssociation(id topicmap.ID) *Association {
	a, ok := s.assocs.remove(id)
	if !ok {
		return nil
	}
	if s.highlight.Is(HighlightAssociation, id) {
		s.highlight = Highlight{}
	}
	return a
}

// MoveTopic sets the position of a topic. It reports whether the topic exists.
func (s *Store) MoveTopic(id topicmap.ID, p topicmap.Point) bool {
	t, ok := s.topics.get(id)
	if !ok {
		return false
	}
	t.X, t.Y = p.X, p.Y
	return true
}

// ReplaceTopicID swaps a temporary id for the server-assigned one. The topic
// keeps its insertion slot and position; associations and the highlight
// follow the new id.
func (s *Store) ReplaceTopicID(from, to topicmap.ID) bool {
	if !s.topics.rekey(from, to) {
		return false
	}
	t, _ := s.topics.get(to)
	t.ID = to
	for _, a := range s.assocs.values() {
		if a.Role1 == from {
			a.Role1 = to
		}
		if a.Role2 == from {
			a.Role2 = to
		}
	}
	if s.highlight.Is(HighlightTopic, from) {
		s.highlight.ID = to
	}
	return true
}

// ReplaceAssociationID swaps a temporary association id for the server one.
func (s *Store) ReplaceAssociationID(from, to topicmap.ID) bool {
	if !s.assocs.rekey(from, to) {
		return false
	}
	a, _ := s.assocs.get(to)
	a.ID = to
	if s.highlight.Is(HighlightAssociation, from) {
		s.highlight.ID = to
	}
	return true
}

// Topic returns the displayed topic with the given id, or nil.
func (s *Store) Topic(id topicmap.ID) *Topic {
	t, _ := s.topics.get(id)
	return t
}

// Association returns the displayed association with the given id, or nil.
func (s *Store) Association(id topicmap.ID) *Association {
	a, _ := s.assocs.get(id)
	return a
}

// IterateTopics visits topics in insertion order. If visit returns true the
// iteration stops and that topic is returned.
func (s *Store) IterateTopics(visit func(*Topic) bool) *Topic {
	t, _ := s.topics.each(visit)
	return t
}

// IterateAssociations visits associations in insertion order. If visit
// returns true the iteration stops and that association is returned.
func (s *Store) IterateAssociations(visit func(*Association) bool) *Association {
	a, _ := s.assocs.each(visit)
	return a
}

// Topics returns the displayed topics in insertion order.
func (s *Store) Topics() []*Topic {
	return s.topics.values()
}

// Associations returns the displayed associations in insertion order.
func (s *Store) Associations() []*Association {
	return s.assocs.values()
}

// AssociationsOf returns the associations that have topicID as a player.
func (s *Store) AssociationsOf(topicID topicmap.ID) []*Association {
	var out []*Association
	s.assocs.each(func(a *Association) bool {
		if a.Connects(topicID) {
			out = append(out, a)
		}
		return false
	})
	return out
}

// Endpoints returns the two topics of a, with ok false if either is missing.
func (s *Store) Endpoints(a *Association) (t1, t2 *Topic, ok bool) {
	t1, ok1 := s.topics.get(a.Role1)
	t2, ok2 := s.topics.get(a.Role2)
	return t1, t2, ok1 && ok2
}

// TopicCount returns the number of displayed topics.
func (s *Store) TopicCount() int { return s.topics.len() }

// AssociationCount returns the number of displayed associations.
func (s *Store) AssociationCount() int { return s.assocs.len() }

// Bounds returns the union of all topic rectangles.
func (s *Store) Bounds() geometry.Rect {
	var r geometry.Rect
	s.topics.each(func(t *Topic) bool {
		r = r.Union(t.Bounds())
		return false
	})
	return r
}

// Highlight returns the current highlight.
func (s *Store) Highlight() Highlight {
	return s.highlight
}

// SetHighlight highlights the given object. It refuses ids that are not
// displayed and reports whether the highlight was set.
func (s *Store) SetHighlight(kind HighlightKind, id topicmap.ID) bool {
	switch kind {
	case HighlightTopic:
		if _, ok := s.topics.get(id); !ok {
			return false
		}
	case HighlightAssociation:
		if _, ok := s.assocs.get(id); !ok {
			return false
		}
	default:
		s.highlight = Highlight{}
		return true
	}
	s.highlight = Highlight{Kind: kind, ID: id}
	return true
}

// ClearHighlight resets the highlight to none.
func (s *Store) ClearHighlight() {
	s.highlight = Highlight{}
}

// Clear removes everything, including the highlight. Placers are kept.
func (s *Store) Clear() {
	s.topics.clear()
	s.assocs.clear()
	s.highlight = Highlight{}
}
