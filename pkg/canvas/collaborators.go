package canvas

import (
	"context"

	"github.com/recera/tmcanvas/pkg/topicmap"
)

// Persistence is the server side of the canvas. Changes come back as
// directives which the canvas replays through ApplyDirectives.
type Persistence interface {
	CreateTopic(ctx context.Context, typeURI, label string) (topicmap.Topic, error)
	CreateAssociation(ctx context.Context, typeURI string, role1, role2 topicmap.ID) (topicmap.Association, error)
	UpdateTopic(ctx context.Context, t topicmap.Topic) ([]topicmap.Directive, error)
	DeleteTopic(ctx context.Context, id topicmap.ID) ([]topicmap.Directive, error)
	UpdateAssociation(ctx context.Context, a topicmap.Association) ([]topicmap.Directive, error)
	DeleteAssociation(ctx context.Context, id topicmap.ID) ([]topicmap.Directive, error)
	FetchTopic(ctx context.Context, id topicmap.ID) (topicmap.Topic, error)
	FetchAssociation(ctx context.Context, id topicmap.ID) (topicmap.Association, error)

	// MoveTopic stores a topic position within a topicmap.
	MoveTopic(ctx context.Context, topicmapID, topicID topicmap.ID, p topicmap.Point) error
	// SetTranslation stores the canvas translation of a topicmap.
	SetTranslation(ctx context.Context, topicmapID topicmap.ID, t topicmap.Point) error
}

// TargetKind tells what a Target points at.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetTopic
	TargetAssociation
	TargetCanvas
)

func (k TargetKind) String() string {
	switch k {
	case TargetTopic:
		return "topic"
	case TargetAssociation:
		return "association"
	case TargetCanvas:
		return "canvas"
	default:
		return "none"
	}
}

// Target is the object a selection or command refers to. Point is the
// canvas position of the pointer when the target was picked.
type Target struct {
	Kind  TargetKind
	ID    topicmap.ID
	Point topicmap.Point
}

// Selection keeps collaborators such as a detail panel or browser history
// in sync with what is selected on the canvas.
type Selection interface {
	Select(t Target)
	Reset()
	Selected() (Target, bool)
}

// Command is one context menu entry. Separators carry no handler.
type Command struct {
	Label     string
	Handler   func(Target)
	Separator bool
}

// Commands supplies context menu entries. where names the situation the
// menu is requested for, such as MenuContext.
type Commands interface {
	Commands(t Target, where string) []Command
}

// CommandsFunc adapts a function to Commands.
type CommandsFunc func(t Target, where string) []Command

// Commands implements Commands.
func (f CommandsFunc) Commands(t Target, where string) []Command { return f(t, where) }

// MenuContext is passed to Commands for right-click menus.
const MenuContext = "context-menu"

// localSelection is used when no Selection collaborator is given.
type localSelection struct {
	target Target
	ok     bool
}

func (s *localSelection) Select(t Target)          { s.target, s.ok = t, true }
func (s *localSelection) Reset()                   { s.target, s.ok = Target{}, false }
func (s *localSelection) Selected() (Target, bool) { return s.target, s.ok }
