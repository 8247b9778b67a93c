package topicmap

import (
	"testing"
)

func TestDecodeDirectives(t *testing.T) {
	data := []byte(`[
		{"type": "UPDATE_TOPIC", "arg": {"id": 1, "type_uri": "dm4.notes.note", "value": "B"}},
		{"type": "DELETE_ASSOCIATION", "arg": {"id": 10, "type_uri": "dm4.core.association", "role_1": 1, "role_2": 2}}
	]`)

	dirs, err := DecodeDirectives(data)
	if err != nil {
		t.Fatalf("DecodeDirectives failed: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("Expected 2 directives, got %d", len(dirs))
	}

	topic, err := dirs[0].Topic()
	if err != nil {
		t.Fatalf("Topic() failed: %v", err)
	}
	if topic.ID != 1 || topic.Label != "B" {
		t.Errorf("Expected topic 1 labelled B, got %+v", topic)
	}

	assoc, err := dirs[1].Association()
	if err != nil {
		t.Fatalf("Association() failed: %v", err)
	}
	if assoc.Role1 != 1 || assoc.Role2 != 2 {
		t.Errorf("Expected roles 1 and 2, got %d and %d", assoc.Role1, assoc.Role2)
	}
}

func TestTopicPatch(t *testing.T) {
	d := Directive{Type: UpdateTopic, Arg: []byte(`{"id": 1, "type_uri": "dm4.notes.note"}`)}
	p, err := d.TopicPatch()
	if err != nil {
		t.Fatalf("TopicPatch() failed: %v", err)
	}
	if p.ID != 1 || p.TypeURI != "dm4.notes.note" || p.Label != nil {
		t.Errorf("Expected patch without label, got %+v", p)
	}

	d = MustDirective(UpdateTopic, Topic{ID: 1, Label: ""})
	if p, _ := d.TopicPatch(); p.Label == nil || *p.Label != "" {
		t.Errorf("Expected explicit empty label, got %+v", p)
	}
	if _, err := MustDirective(DeleteTopic, Topic{ID: 1}).TopicPatch(); err == nil {
		t.Error("Expected error decoding DELETE_TOPIC as a patch")
	}
}

func TestDirectiveArgumentMismatch(t *testing.T) {
	d := MustDirective(UpdateTopic, Topic{ID: 1})
	if _, err := d.Association(); err == nil {
		t.Error("Expected error decoding a topic directive as association")
	}

	empty := Directive{Type: UpdateTopic}
	if _, err := empty.Topic(); err == nil {
		t.Error("Expected error for missing argument")
	}
}

func TestIDTemporary(t *testing.T) {
	tests := []struct {
		id   ID
		want bool
	}{
		{-1, true},
		{0, false},
		{42, false},
	}
	for _, tt := range tests {
		if got := tt.id.Temporary(); got != tt.want {
			t.Errorf("ID(%d).Temporary() = %v, expected %v", tt.id, got, tt.want)
		}
	}
}
