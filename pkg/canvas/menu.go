package canvas

import (
	"fmt"

	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Menu is an open context menu. The front end draws it at Screen and
// reports choices through InvokeMenu.
type Menu struct {
	Target   Target
	Screen   topicmap.Point
	Commands []Command
}

// ContextMenu opens the context menu for the object under the pointer:
// a topic, else an association, else the canvas itself. Topics and
// associations get selected. It returns nil when the collaborator offers
// no commands. An active gesture is cancelled, not completed.
func (c *Canvas) ContextMenu(ev PointerEvent) *Menu {
	c.CancelGesture()
	c.closeMenu()

	p := c.toCanvas(ev.X, ev.Y)
	target := Target{Kind: TargetCanvas, Point: p}
	if t := c.FindTopicAt(p); t != nil {
		target = Target{Kind: TargetTopic, ID: t.ID, Point: p}
		c.SelectTopic(t.ID)
	} else if a := c.FindAssociationAt(p); a != nil {
		target = Target{Kind: TargetAssociation, ID: a.ID, Point: p}
		c.SelectAssociation(a.ID)
	}

	if c.commands == nil {
		return nil
	}
	cmds := c.commands.Commands(target, MenuContext)
	if len(cmds) == 0 {
		return nil
	}
	c.menu = &Menu{Target: target, Screen: ev.point(), Commands: cmds}
	c.Hooks.MenuOpened.Emit(c.menu)
	c.Draw()
	return c.menu
}

// Menu returns the open context menu, or nil.
func (c *Canvas) Menu() *Menu { return c.menu }

// InvokeMenu runs the i-th command of the open menu and closes it.
func (c *Canvas) InvokeMenu(i int) error {
	m := c.menu
	if m == nil {
		return fmt.Errorf("invoke menu: no menu open")
	}
	if i < 0 || i >= len(m.Commands) {
		return fmt.Errorf("invoke menu: no command %d", i)
	}
	cmd := m.Commands[i]
	if cmd.Separator {
		return fmt.Errorf("invoke menu: command %d is a separator", i)
	}
	c.closeMenu()
	if cmd.Handler != nil {
		cmd.Handler(m.Target)
	}
	c.Draw()
	return nil
}

// DismissMenu closes the open menu without running a command.
func (c *Canvas) DismissMenu() {
	if c.menu == nil {
		return
	}
	c.closeMenu()
	c.Draw()
}

func (c *Canvas) closeMenu() {
	if c.menu == nil {
		return
	}
	m := c.menu
	c.menu = nil
	c.Hooks.MenuClosed.Emit(m)
}
