package canvas

import (
	"context"

	"github.com/recera/tmcanvas/pkg/animate"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Pan moves the canvas by d screen pixels and commits the translation.
func (c *Canvas) Pan(d topicmap.Point) {
	c.stopScroll()
	c.viewport.Translation = c.viewport.Translation.Add(d)
	c.commitTranslation()
	c.Draw()
}

// SetTranslation sets the translation without animation and commits it.
func (c *Canvas) SetTranslation(t topicmap.Point) {
	c.stopScroll()
	c.viewport.Translation = t
	c.commitTranslation()
	c.Draw()
}

// ScrollToCenter animates the canvas so that the canvas point p ends up in
// the middle of the viewport.
func (c *Canvas) ScrollToCenter(p topicmap.Point) *animate.Sequence {
	target := topicmap.Point{
		X: c.viewport.Width/2 - p.X,
		Y: c.viewport.Height/2 - p.Y,
	}
	return c.PanTo(target)
}

// PanTo animates the translation to t. A running animation is cancelled
// first. The translation is committed after the last step. It returns nil
// when the canvas is already there.
func (c *Canvas) PanTo(t topicmap.Point) *animate.Sequence {
	c.interruptScroll()
	if c.viewport.Translation == t {
		return nil
	}
	seq := animate.Translate(c.viewport.Translation, t, c.opts.ScrollSteps, c.opts.ScrollDelay, func(p topicmap.Point) {
		c.viewport.Translation = p
		if p == t {
			c.scroll = nil
			c.commitTranslation()
		}
		c.Draw()
	})
	c.scroll = seq
	c.opts.Animate(seq)
	return seq
}

// Scrolling reports whether a scroll animation is running.
func (c *Canvas) Scrolling() bool {
	return c.scroll != nil && !c.scroll.Done()
}

// stopScroll cancels a running scroll and reports whether there was one.
func (c *Canvas) stopScroll() bool {
	if c.scroll == nil {
		return false
	}
	c.scroll.Cancel()
	c.scroll = nil
	return true
}

// interruptScroll cancels a running scroll and commits the translation it
// reached.
func (c *Canvas) interruptScroll() {
	if c.stopScroll() && c.viewport.Translation != c.committed {
		c.commitTranslation()
	}
}

func (c *Canvas) commitTranslation() {
	t := c.viewport.Translation
	c.committed = t
	c.Hooks.TranslationChanged.Emit(t)
	if c.persist == nil {
		return
	}
	tmID := c.topicmapID
	c.run("set translation", tmID, func(ctx context.Context) error {
		return c.persist.SetTranslation(ctx, tmID, t)
	}, nil)
}
