package canvas

import (
	"github.com/recera/tmcanvas/pkg/geometry"
	"github.com/recera/tmcanvas/pkg/topicmap"
	"github.com/recera/tmcanvas/pkg/viewmodel"
)

// FindTopicAt returns the first topic, in insertion order, whose icon
// contains the canvas point p.
func (c *Canvas) FindTopicAt(p topicmap.Point) *viewmodel.Topic {
	return c.store.IterateTopics(func(t *viewmodel.Topic) bool {
		return t.Bounds().Contains(p)
	})
}

// FindAssociationAt returns the first association whose line passes near
// the canvas point p. Associations with a missing endpoint never match.
func (c *Canvas) FindAssociationAt(p topicmap.Point) *viewmodel.Association {
	width := c.opts.Render.LineWidth
	if width <= 0 {
		width = geometry.DefaultLineWidth
	}
	return c.store.IterateAssociations(func(a *viewmodel.Association) bool {
		t1, t2, ok := c.store.Endpoints(a)
		if !ok {
			return false
		}
		return geometry.NearLine(p, t1.Position(), t2.Position(), width, geometry.DefaultSlopeTolerance)
	})
}

// TopicAtScreen hit-tests a screen position.
func (c *Canvas) TopicAtScreen(x, y int) *viewmodel.Topic {
	return c.FindTopicAt(c.toCanvas(x, y))
}

// AssociationAtScreen hit-tests a screen position.
func (c *Canvas) AssociationAtScreen(x, y int) *viewmodel.Association {
	return c.FindAssociationAt(c.toCanvas(x, y))
}

func (c *Canvas) toCanvas(x, y int) topicmap.Point {
	return c.viewport.ToCanvas(topicmap.Point{X: x, Y: y})
}
