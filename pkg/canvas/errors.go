package canvas

import (
	"errors"
	"fmt"

	"github.com/recera/tmcanvas/pkg/topicmap"
)

var (
	// ErrNoTopic is returned when an operation names a topic that is not
	// displayed.
	ErrNoTopic = errors.New("topic not displayed")
	// ErrNoAssociation is returned when an operation names an association
	// that is not displayed.
	ErrNoAssociation = errors.New("association not displayed")
	// ErrPending is returned when an operation needs a server id but the
	// object still carries its temporary one.
	ErrPending = errors.New("object not yet created")
	// ErrNoPersistence is returned by operations that need the server when
	// the canvas was built without one.
	ErrNoPersistence = errors.New("no persistence configured")
)

// OpError describes a failed canvas operation.
type OpError struct {
	Op  string
	ID  topicmap.ID
	Err error
}

func (e *OpError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("canvas: %s %d: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("canvas: %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
