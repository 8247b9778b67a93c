// Package topicmap holds the wire-level model shared by the canvas core and
// its collaborators: topics, associations, directives and topicmap snapshots.
package topicmap

import "fmt"

// ID identifies a topic or association. Server-assigned ids are positive;
// the canvas uses negative ids for objects whose creation is still pending.
type ID int64

// Temporary reports whether the id was allocated locally for a pending create.
func (id ID) Temporary() bool {
	return id < 0
}

// Point is a position in canvas space, in whole pixels.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p translated by -q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Topic is a graph node as delivered by the server.
type Topic struct {
	ID      ID     `json:"id" yaml:"id"`
	TypeURI string `json:"type_uri" yaml:"type"`
	Label   string `json:"value" yaml:"label"`
}

// TopicPatch is a partial topic as carried by UPDATE_TOPIC. A nil Label
// and an empty TypeURI leave the stored values alone.
type TopicPatch struct {
	ID      ID      `json:"id"`
	TypeURI string  `json:"type_uri"`
	Label   *string `json:"value"`
}

// Association is a typed edge between two role players.
type Association struct {
	ID      ID     `json:"id" yaml:"id"`
	TypeURI string `json:"type_uri" yaml:"type"`
	Role1   ID     `json:"role_1" yaml:"role1"`
	Role2   ID     `json:"role_2" yaml:"role2"`
}

// Connects reports whether the association has topicID as a role player.
func (a Association) Connects(topicID ID) bool {
	return a.Role1 == topicID || a.Role2 == topicID
}

// Other returns the role player opposite to topicID.
func (a Association) Other(topicID ID) ID {
	if a.Role1 == topicID {
		return a.Role2
	}
	return a.Role1
}

// TopicType carries the parts of a type definition the canvas cares about.
type TopicType struct {
	URI   string `json:"uri" yaml:"uri"`
	Label string `json:"value,omitempty" yaml:"label,omitempty"`
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty"`
}
