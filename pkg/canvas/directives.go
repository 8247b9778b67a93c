package canvas

import (
	"fmt"

	"github.com/recera/tmcanvas/pkg/topicmap"
)

// ApplyDirectives replays server directives in order and redraws once.
// Replay is idempotent: updates and deletes of objects that are not
// displayed are ignored. An unknown or undecodable directive stops the
// batch; directives before it stay applied.
func (c *Canvas) ApplyDirectives(dirs []topicmap.Directive) error {
	defer c.Draw()
	for i, d := range dirs {
		if err := c.applyDirective(d); err != nil {
			return fmt.Errorf("directive %d (%s): %w", i, d.Type, err)
		}
	}
	return nil
}

func (c *Canvas) applyDirective(d topicmap.Directive) error {
	switch d.Type {
	case topicmap.UpdateTopic:
		p, err := d.TopicPatch()
		if err != nil {
			return err
		}
		c.store.PatchTopic(p)
	case topicmap.DeleteTopic:
		t, err := d.Topic()
		if err != nil {
			return err
		}
		c.removeTopic(t.ID)
	case topicmap.UpdateAssociation:
		a, err := d.Association()
		if err != nil {
			return err
		}
		c.store.UpdateAssociation(a)
	case topicmap.DeleteAssociation:
		a, err := d.Association()
		if err != nil {
			return err
		}
		c.removeAssociation(a.ID)
	case topicmap.UpdateTopicType:
		tt, err := d.TopicType()
		if err != nil {
			return err
		}
		n := c.store.Restyle(tt.URI)
		c.log.Debug("topic type updated", "type", tt.URI, "restyled", n)
	default:
		return topicmap.ErrUnknownDirective
	}
	return nil
}

// removeTopic removes a topic and the associations attached to it.
func (c *Canvas) removeTopic(id topicmap.ID) bool {
	for _, a := range c.store.AssociationsOf(id) {
		c.removeAssociation(a.ID)
	}
	if c.store.RemoveTopic(id) == nil {
		return false
	}
	c.forget(TargetTopic, id)
	return true
}

func (c *Canvas) removeAssociation(id topicmap.ID) bool {
	if c.store.RemoveAssociation(id) == nil {
		return false
	}
	c.forget(TargetAssociation, id)
	return true
}
