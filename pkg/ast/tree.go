// Package ast holds the query syntax tree as an immutable arena.
//
// Nodes are addressed by NodeID and store their parent and ordered children
// as indices, so walkers can keep cheap (node, from) pairs on an explicit
// stack and the tree has no pointer cycles. A Tree is never mutated after
// Builder.Finish returns it and is safe for concurrent reads.
package ast

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlscope/pkg/token"
)

// NodeID addresses a node inside one Tree.
type NodeID int32

// NoNode is the absent node.
const NoNode NodeID = -1

// Valid reports whether id refers to some node (it does not check bounds).
func (id NodeID) Valid() bool { return id >= 0 }

// Node is one arena entry.
type Node struct {
	Kind     Kind
	Parent   NodeID
	Children []NodeID
	Text     string
	Span     token.Span
}

// Param is an argument of the host-language call the query is attached to,
// e.g. the method parameters of an annotated DAO method.
type Param struct {
	Name   string
	Type   string
	Source string // free-form host location, e.g. "UserDao.java:42"
}

// Tree is an immutable query syntax tree.
type Tree struct {
	nodes  []Node
	root   NodeID
	Source string  // query text the spans refer to
	Params []Param // arguments of the enclosing host call
}

// Root returns the file node.
func (t *Tree) Root() NodeID { return t.root }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Kind returns the kind of id, or KindInvalid for NoNode.
func (t *Tree) Kind(id NodeID) Kind {
	if n := t.node(id); n != nil {
		return n.Kind
	}
	return KindInvalid
}

// Parent returns the parent of id, or NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	if n := t.node(id); n != nil {
		return n.Parent
	}
	return NoNode
}

// Children returns the ordered children of id. The slice must not be modified.
func (t *Tree) Children(id NodeID) []NodeID {
	if n := t.node(id); n != nil {
		return n.Children
	}
	return nil
}

// Text returns the text attached to id (identifier, alias, operator).
func (t *Tree) Text(id NodeID) string {
	if n := t.node(id); n != nil {
		return n.Text
	}
	return ""
}

// Span returns the source range of id.
func (t *Tree) Span(id NodeID) token.Span {
	if n := t.node(id); n != nil {
		return n.Span
	}
	return token.Span{}
}

// Child returns the first child of id with the given kind.
func (t *Tree) Child(id NodeID, kind Kind) NodeID {
	for _, c := range t.Children(id) {
		if t.Kind(c) == kind {
			return c
		}
	}
	return NoNode
}

// ChildrenOf returns every child of id with the given kind.
func (t *Tree) ChildrenOf(id NodeID, kind Kind) []NodeID {
	var out []NodeID
	for _, c := range t.Children(id) {
		if t.Kind(c) == kind {
			out = append(out, c)
		}
	}
	return out
}

// Ancestor returns the nearest proper ancestor of id with one of the kinds.
func (t *Tree) Ancestor(id NodeID, kinds ...Kind) NodeID {
	for p := t.Parent(id); p != NoNode; p = t.Parent(p) {
		k := t.Kind(p)
		for _, want := range kinds {
			if k == want {
				return p
			}
		}
	}
	return NoNode
}

// IsAncestor reports whether anc is id or one of its ancestors.
func (t *Tree) IsAncestor(anc, id NodeID) bool {
	for n := id; n != NoNode; n = t.Parent(n) {
		if n == anc {
			return true
		}
	}
	return false
}

// Walk visits id and its descendants in pre-order. Returning false from fn
// skips the children of the current node.
func (t *Tree) Walk(id NodeID, fn func(NodeID) bool) {
	if t.node(id) == nil {
		return
	}
	stack := []NodeID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n) {
			continue
		}
		children := t.Children(n)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// FindAll returns every node of the given kind in source order.
// When text is non-empty only nodes whose text matches case-insensitively
// are returned.
func (t *Tree) FindAll(kind Kind, text string) []NodeID {
	var out []NodeID
	t.Walk(t.root, func(id NodeID) bool {
		if t.Kind(id) == kind && (text == "" || strings.EqualFold(t.Text(id), text)) {
			out = append(out, id)
		}
		return true
	})
	return out
}

// NodeAt returns the deepest node whose span contains offset, or NoNode.
// Name leaves win over the expressions that contain them.
func (t *Tree) NodeAt(offset int) NodeID {
	best := NoNode
	t.Walk(t.root, func(id NodeID) bool {
		span := t.Span(id)
		if id != t.root && span.IsValid() && !span.Contains(offset) {
			return false
		}
		if span.IsValid() && span.Contains(offset) {
			if best == NoNode || span.Len() <= t.Span(best).Len() {
				best = id
			}
		}
		return true
	})
	return best
}

// Dump renders the subtree at id as an indented outline, for tests and
// debugging.
func (t *Tree) Dump(id NodeID) string {
	var sb strings.Builder
	var dump func(NodeID, int)
	dump = func(n NodeID, depth int) {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(t.Kind(n).String())
		if text := t.Text(n); text != "" {
			fmt.Fprintf(&sb, " %q", text)
		}
		sb.WriteByte('\n')
		for _, c := range t.Children(n) {
			dump(c, depth+1)
		}
	}
	dump(id, 0)
	return sb.String()
}
