package ast

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/sqlscope/pkg/token"
)

// Builder errors.
var (
	ErrReparent    = errors.New("node already has a parent")
	ErrInvalidRoot = errors.New("invalid root node")
	ErrFinished    = errors.New("builder already finished")
)

// Builder populates a Tree bottom-up: children are added before the node
// that owns them. Parsers other than pkg/parser can use it to hand their
// own syntax trees to the resolver.
type Builder struct {
	nodes  []Node
	source string
	params []Param
	err    error
	done   bool
}

// NewBuilder returns a builder for a tree over source.
func NewBuilder(source string) *Builder {
	return &Builder{source: source}
}

// SetParams attaches the host call parameters bind parameters resolve to.
func (b *Builder) SetParams(params ...Param) {
	b.params = append(b.params[:0], params...)
}

// Add appends a node owning children and returns its id. When span is not
// valid the node spans its children.
func (b *Builder) Add(kind Kind, text string, span token.Span, children ...NodeID) NodeID {
	id := NodeID(len(b.nodes))
	owned := make([]NodeID, 0, len(children))
	for _, c := range children {
		if c == NoNode {
			continue
		}
		if int(c) >= len(b.nodes) || c < 0 {
			b.fail(fmt.Errorf("%s: child %d out of range", kind, c))
			continue
		}
		child := &b.nodes[c]
		if child.Parent != NoNode {
			b.fail(fmt.Errorf("%w: %s %d under %s", ErrReparent, child.Kind, c, kind))
			continue
		}
		child.Parent = id
		owned = append(owned, c)
	}
	if !span.IsValid() {
		for _, c := range owned {
			span = span.Cover(b.nodes[c].Span)
		}
	}
	b.nodes = append(b.nodes, Node{
		Kind:     kind,
		Parent:   NoNode,
		Children: owned,
		Text:     text,
		Span:     span,
	})
	return id
}

// Leaf appends a childless node.
func (b *Builder) Leaf(kind Kind, text string, span token.Span) NodeID {
	return b.Add(kind, text, span)
}

// Adopt appends children to an existing node that has no parent yet and
// widens its span. Parsers use it for nodes whose children are only known
// after the node itself was created.
func (b *Builder) Adopt(parent NodeID, children ...NodeID) {
	if parent < 0 || int(parent) >= len(b.nodes) {
		b.fail(fmt.Errorf("adopt: parent %d out of range", parent))
		return
	}
	// A parent that is already owned could be adopted by its own
	// descendant, closing a cycle.
	if b.nodes[parent].Parent != NoNode {
		b.fail(fmt.Errorf("%w: adopt into %s %d", ErrReparent, b.nodes[parent].Kind, parent))
		return
	}
	for _, c := range children {
		if c == NoNode {
			continue
		}
		if c < 0 || int(c) >= len(b.nodes) || c == parent {
			b.fail(fmt.Errorf("adopt: child %d out of range", c))
			continue
		}
		child := &b.nodes[c]
		if child.Parent != NoNode {
			b.fail(fmt.Errorf("%w: %s %d", ErrReparent, child.Kind, c))
			continue
		}
		child.Parent = parent
		p := &b.nodes[parent]
		p.Children = append(p.Children, c)
		p.Span = p.Span.Cover(child.Span)
	}
}

// Kind returns the kind of an already added node.
func (b *Builder) Kind(id NodeID) Kind {
	if id < 0 || int(id) >= len(b.nodes) {
		return KindInvalid
	}
	return b.nodes[id].Kind
}

// Span returns the span of an already added node.
func (b *Builder) Span(id NodeID) token.Span {
	if id < 0 || int(id) >= len(b.nodes) {
		return token.Span{}
	}
	return b.nodes[id].Span
}

// SetSpan overrides the span of an already added node.
func (b *Builder) SetSpan(id NodeID, span token.Span) {
	if id >= 0 && int(id) < len(b.nodes) {
		b.nodes[id].Span = span
	}
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Finish returns the tree rooted at root. The builder cannot be used
// afterwards.
func (b *Builder) Finish(root NodeID) (*Tree, error) {
	if b.done {
		return nil, ErrFinished
	}
	if b.err != nil {
		return nil, b.err
	}
	if root < 0 || int(root) >= len(b.nodes) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRoot, root)
	}
	if b.nodes[root].Parent != NoNode {
		return nil, fmt.Errorf("%w: %d has a parent", ErrInvalidRoot, root)
	}
	b.done = true
	t := &Tree{
		nodes:  b.nodes,
		root:   root,
		Source: b.source,
		Params: b.params,
	}
	b.nodes = nil
	return t, nil
}
