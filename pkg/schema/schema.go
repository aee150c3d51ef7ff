// Package schema describes the tables a query can refer to by name.
//
// The resolver only needs an enumerable set of entities, each exposing its
// fields and a navigation target. Where the entities come from (annotated
// host classes, a YAML file, a live database, a stored snapshot) and how
// they are cached is up to the caller.
package schema

import (
	"errors"
	"fmt"

	"golang.org/x/text/cases"
)

// ErrUnknownSource is returned when a schema source string names no known
// backend.
var ErrUnknownSource = errors.New("unknown schema source")

// Provider enumerates the entities visible to every query. Implementations
// must return the same snapshot for the duration of one resolution and be
// safe for concurrent reads.
type Provider interface {
	Entities() []*Entity
}

// Location is a navigation target outside the query text, e.g. the host
// class that declares an entity.
type Location struct {
	URI    string `json:"uri,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// IsZero reports whether the location is unset.
func (l Location) IsZero() bool {
	return l == Location{}
}

func (l Location) String() string {
	switch {
	case l.URI == "":
		return "-"
	case l.Line > 0:
		return fmt.Sprintf("%s:%d:%d", l.URI, l.Line, l.Column)
	default:
		return l.URI
	}
}

// Entity is a table or view.
type Entity struct {
	Name     string   `json:"name"`
	View     bool     `json:"view,omitempty"`
	Fields   []*Field `json:"fields"`
	Location Location `json:"location,omitzero"`
}

// Field is one column of an entity.
type Field struct {
	Name     string   `json:"name"`
	Type     string   `json:"type,omitempty"`
	Location Location `json:"location,omitzero"`
}

// Field returns the field called name, compared case-insensitively.
func (e *Entity) Field(name string) (*Field, bool) {
	for _, f := range e.Fields {
		if EqualNames(f.Name, name) {
			return f, true
		}
	}
	return nil, false
}

// FoldName returns the case-folded form of a name. Two names refer to the
// same definition iff their folded forms are equal.
func FoldName(name string) string {
	// A Caser keeps state and is not safe for concurrent use.
	return cases.Fold().String(name)
}

// EqualNames compares two names case-insensitively. Empty names never match.
func EqualNames(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return FoldName(a) == FoldName(b)
}
