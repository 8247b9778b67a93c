package topicmap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlacedTopic is a topic together with its stored position in a topicmap.
type PlacedTopic struct {
	Topic   `yaml:",inline"`
	X       int  `json:"x" yaml:"x"`
	Y       int  `json:"y" yaml:"y"`
	Visible bool `json:"visibility" yaml:"visible"`
}

// Position returns the stored position.
func (p PlacedTopic) Position() Point {
	return Point{X: p.X, Y: p.Y}
}

// Topicmap is a persisted view: which topics and associations are shown,
// where, and how far the canvas is translated.
type Topicmap struct {
	ID           ID            `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	Type         string        `json:"type,omitempty" yaml:"type,omitempty"`
	Translation  Point         `json:"translation" yaml:"translation"`
	Topics       []PlacedTopic `json:"topics" yaml:"topics"`
	Associations []Association `json:"associations" yaml:"associations"`
	Types        []TopicType   `json:"types,omitempty" yaml:"types,omitempty"`
}

// LoadFile reads a topicmap snapshot. Files ending in .json are decoded as
// JSON, everything else as YAML.
func LoadFile(path string) (*Topicmap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tm Topicmap
	if isJSON(path) {
		err = json.Unmarshal(data, &tm)
	} else {
		err = yaml.Unmarshal(data, &tm)
	}
	if err != nil {
		return nil, fmt.Errorf("parse topicmap %s: %w", path, err)
	}
	return &tm, nil
}

// SaveFile writes a topicmap snapshot in the format implied by the extension.
func SaveFile(path string, tm *Topicmap) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(tm, "", "  ")
	} else {
		data, err = yaml.Marshal(tm)
	}
	if err != nil {
		return fmt.Errorf("encode topicmap: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks id uniqueness. Dangling association endpoints are allowed;
// the canvas tolerates them at draw time.
func (tm *Topicmap) Validate() error {
	seen := make(map[ID]bool, len(tm.Topics))
	for _, t := range tm.Topics {
		if seen[t.ID] {
			return fmt.Errorf("duplicate topic id %d", t.ID)
		}
		seen[t.ID] = true
	}
	assocs := make(map[ID]bool, len(tm.Associations))
	for _, a := range tm.Associations {
		if assocs[a.ID] {
			return fmt.Errorf("duplicate association id %d", a.ID)
		}
		assocs[a.ID] = true
	}
	return nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
