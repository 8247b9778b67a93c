package canvas

import (
	"context"

	"github.com/recera/tmcanvas/pkg/layout"
	"github.com/recera/tmcanvas/pkg/topicmap"
	"github.com/recera/tmcanvas/pkg/viewmodel"
)

// ShowTopic displays a topic. A nil pos lets grid or free placement pick
// the position. Showing a displayed topic keeps it where it is.
func (c *Canvas) ShowTopic(t topicmap.Topic, pos *topicmap.Point, sel bool) *viewmodel.Topic {
	topic, _ := c.store.AddTopic(t, pos)
	if sel {
		c.SelectTopic(topic.ID)
		return topic
	}
	c.Draw()
	return topic
}

// ShowAssociation displays an association.
func (c *Canvas) ShowAssociation(a topicmap.Association, sel bool) *viewmodel.Association {
	assoc, _ := c.store.AddAssociation(a)
	if sel {
		c.SelectAssociation(assoc.ID)
		return assoc
	}
	c.Draw()
	return assoc
}

// HideTopic removes a topic and its associations from the view only. It
// reports whether the topic was displayed.
func (c *Canvas) HideTopic(id topicmap.ID) bool {
	ok := c.removeTopic(id)
	c.Draw()
	return ok
}

// HideAssociation removes an association from the view only.
func (c *Canvas) HideAssociation(id topicmap.ID) bool {
	ok := c.removeAssociation(id)
	c.Draw()
	return ok
}

// MoveTopic moves a displayed topic and persists the new position.
func (c *Canvas) MoveTopic(id topicmap.ID, p topicmap.Point) error {
	t := c.store.Topic(id)
	if t == nil {
		return &OpError{Op: "move topic", ID: id, Err: ErrNoTopic}
	}
	from := t.Position()
	c.store.MoveTopic(id, p)
	c.commitMove(id, from)
	c.Draw()
	return nil
}

// commitMove reports a finished move and persists the position. Topics
// with temporary ids are persisted once created.
func (c *Canvas) commitMove(id topicmap.ID, from topicmap.Point) {
	t := c.store.Topic(id)
	if t == nil {
		return
	}
	to := t.Position()
	c.Hooks.TopicMoved.Emit(TopicMoved{ID: id, From: from, To: to})
	if c.persist == nil || id.Temporary() {
		return
	}
	tmID := c.topicmapID
	c.run("move topic", id, func(ctx context.Context) error {
		return c.persist.MoveTopic(ctx, tmID, id, to)
	}, nil)
}

// CreateTopic shows a topic under a temporary id at once and creates it
// on the server. When the server answers the temporary id is replaced by
// the real one, keeping position and selection; on failure the topic is
// removed again and the error reported on the Error hook.
func (c *Canvas) CreateTopic(typeURI, label string, pos *topicmap.Point) (*viewmodel.Topic, error) {
	if c.persist == nil {
		return nil, &OpError{Op: "create topic", Err: ErrNoPersistence}
	}
	tempID := c.nextTempID()
	topic := c.ShowTopic(topicmap.Topic{ID: tempID, TypeURI: typeURI, Label: label}, pos, true)

	var created topicmap.Topic
	c.run("create topic", tempID, func(ctx context.Context) error {
		var err error
		created, err = c.persist.CreateTopic(ctx, typeURI, label)
		return err
	}, func(err error) {
		if err != nil {
			c.removeTopic(tempID)
			c.Draw()
			return
		}
		c.adoptTopic(tempID, created)
	})
	return topic, nil
}

func (c *Canvas) adoptTopic(tempID topicmap.ID, created topicmap.Topic) {
	if !c.store.ReplaceTopicID(tempID, created.ID) {
		// the topic arrived by another path or was hidden meanwhile
		c.removeTopic(tempID)
		c.Draw()
		c.Hooks.TopicCreated.Emit(created)
		return
	}
	c.store.UpdateTopic(created)
	c.in.replaceTopicID(tempID, created.ID)
	if t, ok := c.selection.Selected(); ok && t.Kind == TargetTopic && t.ID == tempID {
		t.ID = created.ID
		c.selection.Select(t)
		c.Hooks.SelectionChanged.Emit(t)
	}
	c.Hooks.TopicCreated.Emit(created)
	c.commitMove(created.ID, c.store.Topic(created.ID).Position())
	c.Draw()
}

// CreateAssociation shows an association between two displayed topics
// under a temporary id and creates it on the server.
func (c *Canvas) CreateAssociation(typeURI string, role1, role2 topicmap.ID) (*viewmodel.Association, error) {
	if c.persist == nil {
		return nil, &OpError{Op: "create association", Err: ErrNoPersistence}
	}
	for _, id := range []topicmap.ID{role1, role2} {
		if c.store.Topic(id) == nil {
			return nil, &OpError{Op: "create association", ID: id, Err: ErrNoTopic}
		}
		if id.Temporary() {
			return nil, &OpError{Op: "create association", ID: id, Err: ErrPending}
		}
	}

	tempID := c.nextTempID()
	assoc := c.ShowAssociation(topicmap.Association{ID: tempID, TypeURI: typeURI, Role1: role1, Role2: role2}, true)

	var created topicmap.Association
	c.run("create association", tempID, func(ctx context.Context) error {
		var err error
		created, err = c.persist.CreateAssociation(ctx, typeURI, role1, role2)
		return err
	}, func(err error) {
		if err != nil {
			c.removeAssociation(tempID)
			c.Draw()
			return
		}
		if !c.store.ReplaceAssociationID(tempID, created.ID) {
			c.removeAssociation(tempID)
		} else {
			c.store.UpdateAssociation(created)
			if c.in.assocID == tempID {
				c.in.assocID = created.ID
			}
			if t, ok := c.selection.Selected(); ok && t.Kind == TargetAssociation && t.ID == tempID {
				t.ID = created.ID
				c.selection.Select(t)
				c.Hooks.SelectionChanged.Emit(t)
			}
		}
		c.Hooks.AssociationCreated.Emit(created)
		c.Draw()
	})
	return assoc, nil
}

// UpdateTopic changes a topic's label or type. The view changes at once;
// the server's directives are replayed when they arrive.
func (c *Canvas) UpdateTopic(t topicmap.Topic) error {
	if c.store.UpdateTopic(t) == nil {
		return &OpError{Op: "update topic", ID: t.ID, Err: ErrNoTopic}
	}
	c.Draw()
	if c.persist == nil {
		return nil
	}
	if t.ID.Temporary() {
		return &OpError{Op: "update topic", ID: t.ID, Err: ErrPending}
	}
	c.serverChange("update topic", t.ID, func(ctx context.Context) ([]topicmap.Directive, error) {
		return c.persist.UpdateTopic(ctx, t)
	})
	return nil
}

// UpdateAssociation changes an association's type or role players.
func (c *Canvas) UpdateAssociation(a topicmap.Association) error {
	if c.store.UpdateAssociation(a) == nil {
		return &OpError{Op: "update association", ID: a.ID, Err: ErrNoAssociation}
	}
	c.Draw()
	if c.persist == nil {
		return nil
	}
	if a.ID.Temporary() {
		return &OpError{Op: "update association", ID: a.ID, Err: ErrPending}
	}
	c.serverChange("update association", a.ID, func(ctx context.Context) ([]topicmap.Directive, error) {
		return c.persist.UpdateAssociation(ctx, a)
	})
	return nil
}

// DeleteTopic deletes a topic on the server. The view changes when the
// resulting directives are replayed.
func (c *Canvas) DeleteTopic(id topicmap.ID) error {
	if c.persist == nil {
		return &OpError{Op: "delete topic", ID: id, Err: ErrNoPersistence}
	}
	if id.Temporary() {
		return &OpError{Op: "delete topic", ID: id, Err: ErrPending}
	}
	c.serverChange("delete topic", id, func(ctx context.Context) ([]topicmap.Directive, error) {
		return c.persist.DeleteTopic(ctx, id)
	})
	return nil
}

// DeleteAssociation deletes an association on the server.
func (c *Canvas) DeleteAssociation(id topicmap.ID) error {
	if c.persist == nil {
		return &OpError{Op: "delete association", ID: id, Err: ErrNoPersistence}
	}
	if id.Temporary() {
		return &OpError{Op: "delete association", ID: id, Err: ErrPending}
	}
	c.serverChange("delete association", id, func(ctx context.Context) ([]topicmap.Directive, error) {
		return c.persist.DeleteAssociation(ctx, id)
	})
	return nil
}

// serverChange runs a call that answers with directives and replays them.
func (c *Canvas) serverChange(op string, id topicmap.ID, call func(ctx context.Context) ([]topicmap.Directive, error)) {
	var dirs []topicmap.Directive
	c.run(op, id, func(ctx context.Context) error {
		var err error
		dirs, err = call(ctx)
		return err
	}, func(err error) {
		if err != nil {
			return
		}
		if err := c.ApplyDirectives(dirs); err != nil {
			c.fail(op, id, err)
		}
	})
}

// RevealTopic fetches a topic from the server and shows it, placed
// automatically, unless it is displayed already.
func (c *Canvas) RevealTopic(id topicmap.ID, sel bool) error {
	if t := c.store.Topic(id); t != nil {
		if sel {
			return c.SelectTopic(id)
		}
		return nil
	}
	if c.persist == nil {
		return &OpError{Op: "reveal topic", ID: id, Err: ErrNoPersistence}
	}
	var fetched topicmap.Topic
	c.run("reveal topic", id, func(ctx context.Context) error {
		var err error
		fetched, err = c.persist.FetchTopic(ctx, id)
		return err
	}, func(err error) {
		if err != nil {
			return
		}
		t := c.ShowTopic(fetched, nil, sel)
		c.commitMove(t.ID, t.Position())
	})
	return nil
}

// RevealAssociation fetches an association and shows it together with
// whichever role players are missing.
func (c *Canvas) RevealAssociation(id topicmap.ID, sel bool) error {
	if c.store.Association(id) != nil {
		if sel {
			return c.SelectAssociation(id)
		}
		return nil
	}
	if c.persist == nil {
		return &OpError{Op: "reveal association", ID: id, Err: ErrNoPersistence}
	}
	var (
		fetched topicmap.Association
		players []topicmap.Topic
	)
	c.run("reveal association", id, func(ctx context.Context) error {
		var err error
		fetched, err = c.persist.FetchAssociation(ctx, id)
		if err != nil {
			return err
		}
		for _, rid := range []topicmap.ID{fetched.Role1, fetched.Role2} {
			t, err := c.persist.FetchTopic(ctx, rid)
			if err != nil {
				return err
			}
			players = append(players, t)
		}
		return nil
	}, func(err error) {
		if err != nil {
			return
		}
		for _, p := range players {
			if c.store.Topic(p.ID) == nil {
				t := c.ShowTopic(p, nil, false)
				c.commitMove(t.ID, t.Position())
			}
		}
		c.ShowAssociation(fetched, sel)
	})
	return nil
}

// BeginGrid switches placement of topics added without a position to a
// grid below the displayed topics, for revealing a batch at once. The
// first grid position is scrolled to the center.
func (c *Canvas) BeginGrid() {
	opts := c.opts.Grid
	onFirst := opts.OnFirst
	opts.OnFirst = func(p topicmap.Point) {
		if onFirst != nil {
			onFirst(p)
		}
		c.ScrollToCenter(p)
	}
	c.store.SetGridPlacer(layout.NewGrid(c.store, c.Viewport, opts))
}

// EndGrid returns to free placement.
func (c *Canvas) EndGrid() {
	c.store.SetGridPlacer(nil)
}
