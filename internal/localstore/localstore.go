// Package localstore is an in-process stand-in for the topicmap server. It
// keeps topics, associations and per-topicmap view state in memory and
// answers changes with the directives the real server would send.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/recera/tmcanvas/pkg/topicmap"
)

var (
	// ErrNotFound is returned for unknown topic or association ids.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for malformed create and update requests.
	ErrInvalid = errors.New("invalid request")
)

type view struct {
	translation topicmap.Point
	positions   map[topicmap.ID]topicmap.Point
}

// Store is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	nextID topicmap.ID
	topics map[topicmap.ID]topicmap.Topic
	assocs map[topicmap.ID]topicmap.Association
	views  map[topicmap.ID]*view
	logger *slog.Logger
}

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		nextID: 1,
		topics: make(map[topicmap.ID]topicmap.Topic),
		assocs: make(map[topicmap.ID]topicmap.Association),
		views:  make(map[topicmap.ID]*view),
		logger: logger,
	}
}

// Seed loads the content and view state of a topicmap snapshot. New ids
// are allocated above the highest seeded id.
func (s *Store) Seed(tm *topicmap.Topicmap) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.viewLocked(tm.ID)
	v.translation = tm.Translation
	for _, pt := range tm.Topics {
		s.topics[pt.ID] = pt.Topic
		v.positions[pt.ID] = pt.Position()
		s.bumpLocked(pt.ID)
	}
	for _, a := range tm.Associations {
		s.assocs[a.ID] = a
		s.bumpLocked(a.ID)
	}
	s.bumpLocked(tm.ID)
}

func (s *Store) bumpLocked(id topicmap.ID) {
	if id >= s.nextID {
		s.nextID = id + 1
	}
}

func (s *Store) allocLocked() topicmap.ID {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) viewLocked(topicmapID topicmap.ID) *view {
	v, ok := s.views[topicmapID]
	if !ok {
		v = &view{positions: make(map[topicmap.ID]topicmap.Point)}
		s.views[topicmapID] = v
	}
	return v
}

func (s *Store) existsLocked(id topicmap.ID) bool {
	if _, ok := s.topics[id]; ok {
		return true
	}
	_, ok := s.assocs[id]
	return ok
}

// CreateTopic creates a topic with a fresh id.
func (s *Store) CreateTopic(ctx context.Context, typeURI, label string) (topicmap.Topic, error) {
	if err := ctx.Err(); err != nil {
		return topicmap.Topic{}, err
	}
	if typeURI == "" {
		return topicmap.Topic{}, fmt.Errorf("create topic: missing type: %w", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := topicmap.Topic{ID: s.allocLocked(), TypeURI: typeURI, Label: label}
	s.topics[t.ID] = t
	s.logger.Debug("topic created", "id", t.ID, "type", typeURI)
	return t, nil
}

// CreateAssociation creates an association between two existing objects.
func (s *Store) CreateAssociation(ctx context.Context, typeURI string, role1, role2 topicmap.ID) (topicmap.Association, error) {
	if err := ctx.Err(); err != nil {
		return topicmap.Association{}, err
	}
	if typeURI == "" {
		return topicmap.Association{}, fmt.Errorf("create association: missing type: %w", ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range []topicmap.ID{role1, role2} {
		if !s.existsLocked(id) {
			return topicmap.Association{}, fmt.Errorf("create association: role player %d: %w", id, ErrNotFound)
		}
	}
	a := topicmap.Association{ID: s.allocLocked(), TypeURI: typeURI, Role1: role1, Role2: role2}
	s.assocs[a.ID] = a
	s.logger.Debug("association created", "id", a.ID, "type", typeURI, "role1", role1, "role2", role2)
	return a, nil
}

// UpdateTopic changes label and, if given, type.
func (s *Store) UpdateTopic(ctx context.Context, t topicmap.Topic) ([]topicmap.Directive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.topics[t.ID]
	if !ok {
		return nil, fmt.Errorf("update topic %d: %w", t.ID, ErrNotFound)
	}
	cur.Label = t.Label
	if t.TypeURI != "" {
		cur.TypeURI = t.TypeURI
	}
	s.topics[t.ID] = cur
	return []topicmap.Directive{topicmap.MustDirective(topicmap.UpdateTopic, cur)}, nil
}

// DeleteTopic deletes a topic together with every association attached to
// it, directly or through other associations.
func (s *Store) DeleteTopic(ctx context.Context, id topicmap.ID) ([]topicmap.Directive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[id]
	if !ok {
		return nil, fmt.Errorf("delete topic %d: %w", id, ErrNotFound)
	}
	dirs := s.deleteAttachedLocked(id)
	delete(s.topics, id)
	for _, v := range s.views {
		delete(v.positions, id)
	}
	return append(dirs, topicmap.MustDirective(topicmap.DeleteTopic, t)), nil
}

// deleteAttachedLocked removes the associations attached to id, innermost
// first, and returns their DELETE_ASSOCIATION directives in ascending id
// order.
func (s *Store) deleteAttachedLocked(id topicmap.ID) []topicmap.Directive {
	var attached []topicmap.Association
	for _, a := range s.assocs {
		if a.Connects(id) {
			attached = append(attached, a)
		}
	}
	sort.Slice(attached, func(i, j int) bool { return attached[i].ID < attached[j].ID })

	var dirs []topicmap.Directive
	for _, a := range attached {
		if _, still := s.assocs[a.ID]; !still {
			continue
		}
		delete(s.assocs, a.ID)
		dirs = append(dirs, s.deleteAttachedLocked(a.ID)...)
		dirs = append(dirs, topicmap.MustDirective(topicmap.DeleteAssociation, a))
	}
	return dirs
}

// UpdateAssociation changes type and, if non-zero, role players.
func (s *Store) UpdateAssociation(ctx context.Context, a topicmap.Association) ([]topicmap.Directive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.assocs[a.ID]
	if !ok {
		return nil, fmt.Errorf("update association %d: %w", a.ID, ErrNotFound)
	}
	if a.TypeURI != "" {
		cur.TypeURI = a.TypeURI
	}
	for _, r := range []struct {
		id  topicmap.ID
		dst *topicmap.ID
	}{{a.Role1, &cur.Role1}, {a.Role2, &cur.Role2}} {
		if r.id == 0 {
			continue
		}
		if !s.existsLocked(r.id) {
			return nil, fmt.Errorf("update association %d: role player %d: %w", a.ID, r.id, ErrNotFound)
		}
		*r.dst = r.id
	}
	s.assocs[a.ID] = cur
	return []topicmap.Directive{topicmap.MustDirective(topicmap.UpdateAssociation, cur)}, nil
}

// DeleteAssociation deletes an association and whatever is attached to it.
func (s *Store) DeleteAssociation(ctx context.Context, id topicmap.ID) ([]topicmap.Directive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assocs[id]
	if !ok {
		return nil, fmt.Errorf("delete association %d: %w", id, ErrNotFound)
	}
	delete(s.assocs, id)
	dirs := s.deleteAttachedLocked(id)
	return append(dirs, topicmap.MustDirective(topicmap.DeleteAssociation, a)), nil
}

// FetchTopic returns a topic by id.
func (s *Store) FetchTopic(ctx context.Context, id topicmap.ID) (topicmap.Topic, error) {
	if err := ctx.Err(); err != nil {
		return topicmap.Topic{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[id]
	if !ok {
		return topicmap.Topic{}, fmt.Errorf("fetch topic %d: %w", id, ErrNotFound)
	}
	return t, nil
}

// FetchAssociation returns an association by id.
func (s *Store) FetchAssociation(ctx context.Context, id topicmap.ID) (topicmap.Association, error) {
	if err := ctx.Err(); err != nil {
		return topicmap.Association{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assocs[id]
	if !ok {
		return topicmap.Association{}, fmt.Errorf("fetch association %d: %w", id, ErrNotFound)
	}
	return a, nil
}

// MoveTopic stores the position of a topic within a topicmap.
func (s *Store) MoveTopic(ctx context.Context, topicmapID, topicID topicmap.ID, p topicmap.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topics[topicID]; !ok {
		return fmt.Errorf("move topic %d: %w", topicID, ErrNotFound)
	}
	s.viewLocked(topicmapID).positions[topicID] = p
	return nil
}

// SetTranslation stores the translation of a topicmap.
func (s *Store) SetTranslation(ctx context.Context, topicmapID topicmap.ID, t topicmap.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewLocked(topicmapID).translation = t
	return nil
}

// Position returns the stored position of a topic in a topicmap.
func (s *Store) Position(topicmapID, topicID topicmap.ID) (topicmap.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[topicmapID]
	if !ok {
		return topicmap.Point{}, false
	}
	p, ok := v.positions[topicID]
	return p, ok
}

// Translation returns the stored translation of a topicmap.
func (s *Store) Translation(topicmapID topicmap.ID) topicmap.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[topicmapID]; ok {
		return v.translation
	}
	return topicmap.Point{}
}

// Len returns the number of topics and associations.
func (s *Store) Len() (topics, assocs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.topics), len(s.assocs)
}
