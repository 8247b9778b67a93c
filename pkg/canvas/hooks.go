package canvas

import "github.com/recera/tmcanvas/pkg/topicmap"

// Event is a typed listener list.
type Event[T any] struct {
	next     int
	handlers []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

// On registers fn and returns a function that removes it again.
func (e *Event[T]) On(fn func(T)) (off func()) {
	e.next++
	id := e.next
	e.handlers = append(e.handlers, listener[T]{id: id, fn: fn})
	return func() {
		for i, l := range e.handlers {
			if l.id == id {
				e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
				return
			}
		}
	}
}

// Emit calls the listeners in registration order.
func (e *Event[T]) Emit(v T) {
	for _, l := range append([]listener[T](nil), e.handlers...) {
		l.fn(v)
	}
}

// Len returns the number of listeners.
func (e *Event[T]) Len() int {
	return len(e.handlers)
}

// TopicMoved is emitted when a topic drag or cluster move is committed.
type TopicMoved struct {
	ID   topicmap.ID
	From topicmap.Point
	To   topicmap.Point
}

// Hooks are the extension points of a Canvas.
type Hooks struct {
	PreDraw  Event[*Canvas]
	PostDraw Event[*Canvas]

	TopicMoved         Event[TopicMoved]
	TranslationChanged Event[topicmap.Point]
	SelectionChanged   Event[Target]

	// TopicRevealRequested carries the id of a double-clicked topic.
	TopicRevealRequested Event[topicmap.ID]

	TopicCreated       Event[topicmap.Topic]
	AssociationCreated Event[topicmap.Association]

	MenuOpened Event[*Menu]
	MenuClosed Event[*Menu]

	// Error receives failures of collaborator calls and directive replay.
	Error Event[*OpError]
}
