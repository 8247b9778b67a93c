package canvas

import (
	"github.com/recera/tmcanvas/pkg/topicmap"
	"github.com/recera/tmcanvas/pkg/viewmodel"
)

// SelectTopic highlights a displayed topic and tells the selection
// collaborator.
func (c *Canvas) SelectTopic(id topicmap.ID) error {
	if !c.store.SetHighlight(viewmodel.HighlightTopic, id) {
		return &OpError{Op: "select topic", ID: id, Err: ErrNoTopic}
	}
	t := Target{Kind: TargetTopic, ID: id, Point: c.store.Topic(id).Position()}
	c.selection.Select(t)
	c.Hooks.SelectionChanged.Emit(t)
	c.Draw()
	return nil
}

// SelectAssociation highlights a displayed association.
func (c *Canvas) SelectAssociation(id topicmap.ID) error {
	if !c.store.SetHighlight(viewmodel.HighlightAssociation, id) {
		return &OpError{Op: "select association", ID: id, Err: ErrNoAssociation}
	}
	t := Target{Kind: TargetAssociation, ID: id}
	c.selection.Select(t)
	c.Hooks.SelectionChanged.Emit(t)
	c.Draw()
	return nil
}

// ResetSelection clears highlight and selection.
func (c *Canvas) ResetSelection() {
	c.store.ClearHighlight()
	c.selection.Reset()
	c.Hooks.SelectionChanged.Emit(Target{})
	c.Draw()
}

// Selected returns the selection as known to the collaborator.
func (c *Canvas) Selected() (Target, bool) {
	return c.selection.Selected()
}

// forget resets the selection if it points at a removed object. The store
// already dropped the highlight.
func (c *Canvas) forget(kind TargetKind, id topicmap.ID) {
	if t, ok := c.selection.Selected(); ok && t.Kind == kind && t.ID == id {
		c.selection.Reset()
		c.Hooks.SelectionChanged.Emit(Target{})
	}
}

// selectedTopicPosition anchors free placement at the selected topic.
func (c *Canvas) selectedTopicPosition() (topicmap.Point, bool) {
	t, ok := c.selection.Selected()
	if !ok || t.Kind != TargetTopic {
		return topicmap.Point{}, false
	}
	topic := c.store.Topic(t.ID)
	if topic == nil {
		return topicmap.Point{}, false
	}
	return topic.Position(), true
}
