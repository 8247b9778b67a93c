package canvas

import (
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Mode is the state of the pointer interaction.
type Mode int

const (
	ModeIdle Mode = iota
	ModeTopicDragging
	ModeCanvasPanning
	ModeAssociationPulling
	ModeClusterMoving
)

func (m Mode) String() string {
	switch m {
	case ModeTopicDragging:
		return "topic-dragging"
	case ModeCanvasPanning:
		return "canvas-panning"
	case ModeAssociationPulling:
		return "association-pulling"
	case ModeClusterMoving:
		return "cluster-moving"
	default:
		return "idle"
	}
}

// Button identifies a pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Modifiers is a set of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModAlt
	ModCtrl
)

// PointerEvent is a pointer event in screen coordinates.
type PointerEvent struct {
	X, Y   int
	Button Button
	Mods   Modifiers
}

func (e PointerEvent) point() topicmap.Point {
	return topicmap.Point{X: e.X, Y: e.Y}
}

// interaction is the transient gesture state between press and release.
type interaction struct {
	mode    Mode
	pressed bool // primary button logically held
	moved   bool // travel exceeded the drag threshold

	down topicmap.Point // screen position of the press
	last topicmap.Point // latest screen position

	topicID  topicmap.ID    // dragged topic or pull origin
	assocID  topicmap.ID    // association grabbed for a cluster move
	start    topicmap.Point // topic position or translation at press
	pullEnd  topicmap.Point // canvas position of the rubber band end
	cluster  map[topicmap.ID]topicmap.Point
	clusterO []topicmap.ID // cluster members in store order
}

// replaceTopicID follows a topic whose temporary id was replaced while
// the gesture is running.
func (in *interaction) replaceTopicID(from, to topicmap.ID) {
	if in.topicID == from {
		in.topicID = to
	}
	if p, ok := in.cluster[from]; ok {
		delete(in.cluster, from)
		in.cluster[to] = p
		for i, id := range in.clusterO {
			if id == from {
				in.clusterO[i] = to
			}
		}
	}
}

// Mode returns the current interaction mode.
func (c *Canvas) Mode() Mode { return c.in.mode }

// PointerDown starts a gesture. Topics are hit-tested before associations;
// a press on neither pans the canvas. Shift-press on a topic starts an
// association pull. A press while a menu is open only dismisses the menu.
func (c *Canvas) PointerDown(ev PointerEvent) {
	if c.menu != nil {
		c.closeMenu()
		c.Draw()
		return
	}
	if ev.Button != ButtonPrimary || c.in.mode == ModeAssociationPulling {
		return
	}
	c.interruptScroll()

	p := c.toCanvas(ev.X, ev.Y)
	in := interaction{pressed: true, down: ev.point(), last: ev.point()}

	if t := c.FindTopicAt(p); t != nil {
		in.topicID = t.ID
		in.start = t.Position()
		if ev.Mods&ModShift != 0 {
			in.mode = ModeAssociationPulling
			in.pullEnd = p
		} else {
			in.mode = ModeTopicDragging
		}
	} else if a := c.FindAssociationAt(p); a != nil {
		in.mode = ModeClusterMoving
		in.assocID = a.ID
	} else {
		in.mode = ModeCanvasPanning
		in.start = c.viewport.Translation
	}
	c.in = in
	if in.mode == ModeAssociationPulling {
		c.Draw()
	}
}

// BeginAssociation starts an association pull from a topic without a held
// button, as triggered by a menu command. The rubber band follows pointer
// motion and the pull ends at the next release.
func (c *Canvas) BeginAssociation(topicID topicmap.ID) error {
	t := c.store.Topic(topicID)
	if t == nil {
		return &OpError{Op: "begin association", ID: topicID, Err: ErrNoTopic}
	}
	c.in = interaction{
		mode:    ModeAssociationPulling,
		topicID: topicID,
		start:   t.Position(),
		pullEnd: t.Position(),
	}
	c.Draw()
	return nil
}

// PointerMove routes pointer travel into the active mode.
func (c *Canvas) PointerMove(ev PointerEvent) {
	s := ev.point()
	c.in.last = s

	if c.in.mode == ModeAssociationPulling {
		c.in.pullEnd = c.toCanvas(s.X, s.Y)
		c.Draw()
		return
	}
	if !c.in.pressed {
		return
	}

	d := s.Sub(c.in.down)
	if !c.in.moved {
		if abs(d.X) <= c.opts.DragThreshold && abs(d.Y) <= c.opts.DragThreshold {
			return
		}
		c.in.moved = true
	}

	switch c.in.mode {
	case ModeTopicDragging:
		c.store.MoveTopic(c.in.topicID, c.in.start.Add(d))
	case ModeCanvasPanning:
		c.viewport.Translation = c.in.start.Add(d)
	case ModeClusterMoving:
		if c.in.cluster == nil {
			c.collectCluster()
		}
		for _, id := range c.in.clusterO {
			c.store.MoveTopic(id, c.in.cluster[id].Add(d))
		}
	}
	c.Draw()
}

// PointerUp finishes the active gesture. Only a primary release counts.
func (c *Canvas) PointerUp(ev PointerEvent) {
	if ev.Button != ButtonPrimary {
		return
	}
	in := c.in
	if in.mode == ModeAssociationPulling {
		c.in = interaction{}
		c.finishPull(in, c.toCanvas(ev.X, ev.Y))
		c.Draw()
		return
	}
	if !in.pressed {
		return
	}
	c.in = interaction{}

	switch in.mode {
	case ModeTopicDragging:
		if !in.moved {
			c.SelectTopic(in.topicID)
			return
		}
		c.commitMove(in.topicID, in.start)
	case ModeCanvasPanning:
		if !in.moved {
			c.ResetSelection()
			return
		}
		c.commitTranslation()
	case ModeClusterMoving:
		if !in.moved {
			c.SelectAssociation(in.assocID)
			return
		}
		for _, id := range in.clusterO {
			c.commitMove(id, in.cluster[id])
		}
	}
	c.Draw()
}

// PointerLeave ends the active gesture as if the pointer was released at
// its last position.
func (c *Canvas) PointerLeave() {
	if c.in.mode == ModeIdle {
		return
	}
	c.PointerUp(PointerEvent{X: c.in.last.X, Y: c.in.last.Y})
}

// CancelGesture abandons the active gesture. Dragged topics and the
// translation return to where they were at the press and nothing is
// committed.
func (c *Canvas) CancelGesture() {
	in := c.in
	c.in = interaction{}
	switch in.mode {
	case ModeIdle:
		return
	case ModeTopicDragging:
		c.store.MoveTopic(in.topicID, in.start)
	case ModeCanvasPanning:
		c.viewport.Translation = in.start
	case ModeClusterMoving:
		for id, p := range in.cluster {
			c.store.MoveTopic(id, p)
		}
	}
	c.Draw()
}

// DoubleClick asks collaborators to reveal the topic under the pointer.
func (c *Canvas) DoubleClick(ev PointerEvent) {
	if t := c.TopicAtScreen(ev.X, ev.Y); t != nil {
		c.Hooks.TopicRevealRequested.Emit(t.ID)
	}
}

func (c *Canvas) finishPull(in interaction, p topicmap.Point) {
	target := c.FindTopicAt(p)
	switch {
	case target == nil:
		c.log.Debug("association pull cancelled", "origin", in.topicID)
	case target.ID == in.topicID && !c.opts.AllowSelfLoops:
		c.log.Debug("association pull cancelled on origin", "origin", in.topicID)
	default:
		if _, err := c.CreateAssociation(c.opts.AssociationType, in.topicID, target.ID); err != nil {
			c.log.Warn("association not created", "role1", in.topicID, "role2", target.ID, "error", err)
		}
	}
}

// collectCluster gathers the topics connected to the grabbed association's
// players, transitively through displayed associations.
func (c *Canvas) collectCluster() {
	c.in.cluster = make(map[topicmap.ID]topicmap.Point)
	c.in.clusterO = nil

	a := c.store.Association(c.in.assocID)
	if a == nil {
		return
	}
	queue := []topicmap.ID{a.Role1, a.Role2}
	seen := map[topicmap.ID]bool{}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		t := c.store.Topic(id)
		if t == nil {
			continue
		}
		c.in.cluster[id] = t.Position()
		for _, assoc := range c.store.AssociationsOf(id) {
			other := assoc.Role1
			if other == id {
				other = assoc.Role2
			}
			queue = append(queue, other)
		}
	}
	for _, t := range c.store.Topics() {
		if _, ok := c.in.cluster[t.ID]; ok {
			c.in.clusterO = append(c.in.clusterO, t.ID)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
