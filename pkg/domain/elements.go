// Package domain defines the persistent map entities, note aggregates and
// error kinds shared by the mapstore persistence layer.
package domain

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// ElementType discriminates the kinds of map data sharing one element table and
// the kinds of records a quest may point at.
type ElementType string

// Supported element type identifiers used as discriminator values and in quest rows.
const (
	// ElementNode identifies a single point element.
	ElementNode ElementType = "NODE"
	// ElementWay identifies an ordered list of nodes.
	ElementWay ElementType = "WAY"
	// ElementRelation identifies a group of members.
	ElementRelation ElementType = "RELATION"
	// ElementNote identifies a map note.
	ElementNote ElementType = "NOTE"
)

// ParseElementType converts a stored discriminator back into an ElementType.
func ParseElementType(raw string) (ElementType, error) {
	switch t := ElementType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case ElementNode, ElementWay, ElementRelation, ElementNote:
		return t, nil
	default:
		return "", fmt.Errorf("unknown element type %q", raw)
	}
}

// String implements fmt.Stringer.
func (t ElementType) String() string { return string(t) }

// Tags holds free-form key/value attributes of an element.
type Tags map[string]string

// Node is a point on the earth's surface.
type Node struct {
	ID       int64
	Version  int
	Position orb.Point
	Tags     Tags
}

// Way is an ordered list of node references.
type Way struct {
	ID      int64
	Version int
	NodeIDs []int64
	Tags    Tags
}

// RelationMember references another element from within a relation.
type RelationMember struct {
	Type ElementType
	Ref  int64
	Role string
}

// Relation groups elements with roles.
type Relation struct {
	ID      int64
	Version int
	Members []RelationMember
	Tags    Tags
}
