// Package variable defines capture-group identity (Variable) and the
// open/close boundary tokens (Marker) that a variable automaton's
// "assignation edges" carry.
//
// Two variables are equal iff their IDs are equal; Marker carries a total
// order (all Opens precede all Closes; within a side, by variable ID). The
// enumerator does not use this order; it never affects which mappings are
// produced.
package variable

import (
	"github.com/google/uuid"
)

// MatchName is the reserved variable name for the overall match span.
// The parser collaborator guarantees a variable with this name always
// exists in any VA it produces.
const MatchName = "match"

// Variable is a capture group's stable identity.
type Variable struct {
	// ID uniquely identifies this Variable. Two Variables with equal
	// Name but different ID are distinct capture groups.
	ID uuid.UUID

	// Name is the display name used in Match.Groups and in error
	// messages. Not used for equality.
	Name string
}

// New creates a Variable with a fresh random identity.
func New(name string) Variable {
	return Variable{ID: uuid.New(), Name: name}
}

// Equal reports whether v and other denote the same capture group.
func (v Variable) Equal(other Variable) bool {
	return v.ID == other.ID
}

// IsMatch reports whether v is the reserved overall-match variable.
func (v Variable) IsMatch() bool {
	return v.Name == MatchName
}

// String returns the variable's display name.
func (v Variable) String() string {
	return v.Name
}

// Side distinguishes a Marker's open boundary from its close boundary.
type Side int

const (
	// Open marks a capture group's start position.
	Open Side = iota
	// Close marks a capture group's end position.
	Close
)

// String renders the side for debugging.
func (s Side) String() string {
	switch s {
	case Open:
		return "open"
	case Close:
		return "close"
	default:
		return "invalid"
	}
}

// Marker is an assignation-edge label: "open X" or "close X" for some
// Variable X.
type Marker struct {
	Var  Variable
	Side Side
}

// OpenOf builds the Open marker for v.
func OpenOf(v Variable) Marker { return Marker{Var: v, Side: Open} }

// CloseOf builds the Close marker for v.
func CloseOf(v Variable) Marker { return Marker{Var: v, Side: Close} }

// Equal reports whether two markers denote the same side of the same
// variable.
func (m Marker) Equal(other Marker) bool {
	return m.Side == other.Side && m.Var.Equal(other.Var)
}

// Less implements the total order described in the package doc: every
// Open marker precedes every Close marker; within a side, markers are
// ordered by variable ID bytes. Nothing in this module sorts markers by
// it; the enumerator emits entries in the order it discovers them.
func (m Marker) Less(other Marker) bool {
	if m.Side != other.Side {
		return m.Side < other.Side
	}

	return lessUUID(m.Var.ID, other.Var.ID)
}

// String renders the marker using the original work's glyphs, handy in
// test failure output: "⊢X" for an open marker, "X⊣" for a close marker.
func (m Marker) String() string {
	if m.Side == Open {
		return "⊢" + m.Var.Name
	}

	return m.Var.Name + "⊣"
}

// lessUUID compares two UUIDs byte-by-byte.
func lessUUID(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}

	return false
}
