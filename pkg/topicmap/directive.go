package topicmap

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DirectiveType names a side effect the server asks the client to replay.
type DirectiveType string

const (
	UpdateTopic       DirectiveType = "UPDATE_TOPIC"
	DeleteTopic       DirectiveType = "DELETE_TOPIC"
	UpdateAssociation DirectiveType = "UPDATE_ASSOCIATION"
	DeleteAssociation DirectiveType = "DELETE_ASSOCIATION"
	UpdateTopicType   DirectiveType = "UPDATE_TOPIC_TYPE"
)

// ErrUnknownDirective is returned for a directive type the client does not
// understand. It signals a protocol mismatch with the server.
var ErrUnknownDirective = errors.New("unknown directive type")

// Directive is one server-issued instruction. Arg is decoded according to
// Type; see the Topic, Association and TopicType accessors.
type Directive struct {
	Type DirectiveType   `json:"type"`
	Arg  json.RawMessage `json:"arg"`
}

// NewDirective builds a directive with a JSON-encoded argument.
func NewDirective(typ DirectiveType, arg any) (Directive, error) {
	data, err := json.Marshal(arg)
	if err != nil {
		return Directive{}, fmt.Errorf("encode %s argument: %w", typ, err)
	}
	return Directive{Type: typ, Arg: data}, nil
}

// MustDirective is NewDirective for arguments that are known to encode.
func MustDirective(typ DirectiveType, arg any) Directive {
	d, err := NewDirective(typ, arg)
	if err != nil {
		panic(err)
	}
	return d
}

// Topic decodes the argument of an UPDATE_TOPIC or DELETE_TOPIC directive.
func (d Directive) Topic() (Topic, error) {
	var t Topic
	if err := d.decode(&t, UpdateTopic, DeleteTopic); err != nil {
		return Topic{}, err
	}
	return t, nil
}

// TopicPatch decodes the argument of an UPDATE_TOPIC directive, keeping
// track of which fields the server sent.
func (d Directive) TopicPatch() (TopicPatch, error) {
	var p TopicPatch
	if err := d.decode(&p, UpdateTopic); err != nil {
		return TopicPatch{}, err
	}
	return p, nil
}

// Association decodes the argument of an association directive.
func (d Directive) Association() (Association, error) {
	var a Association
	if err := d.decode(&a, UpdateAssociation, DeleteAssociation); err != nil {
		return Association{}, err
	}
	return a, nil
}

// TopicType decodes the argument of an UPDATE_TOPIC_TYPE directive.
func (d Directive) TopicType() (TopicType, error) {
	var tt TopicType
	if err := d.decode(&tt, UpdateTopicType); err != nil {
		return TopicType{}, err
	}
	return tt, nil
}

func (d Directive) decode(v any, allowed ...DirectiveType) error {
	ok := false
	for _, typ := range allowed {
		if d.Type == typ {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("directive %q does not carry %T", d.Type, v)
	}
	if len(d.Arg) == 0 {
		return fmt.Errorf("directive %s: missing argument", d.Type)
	}
	if err := json.Unmarshal(d.Arg, v); err != nil {
		return fmt.Errorf("directive %s: %w", d.Type, err)
	}
	return nil
}

// DecodeDirectives parses a JSON array of directives as sent by the server.
func DecodeDirectives(data []byte) ([]Directive, error) {
	var dirs []Directive
	if err := json.Unmarshal(data, &dirs); err != nil {
		return nil, fmt.Errorf("decode directives: %w", err)
	}
	return dirs, nil
}
