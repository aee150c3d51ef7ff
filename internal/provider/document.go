package provider

import (
	"time"

	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/parser"
)

// Document holds the parse result for one version of a query text.
// A document with a parse error has no tree.
type Document struct {
	URI     string
	Version int
	Content string

	Tree *ast.Tree
	Err  error

	ParsedAt time.Time
}

// Parse parses content once and records the outcome.
func Parse(content string, uri string, version int, params ...ast.Param) *Document {
	doc := &Document{
		URI:      uri,
		Version:  version,
		Content:  content,
		ParsedAt: time.Now(),
	}
	doc.Tree, doc.Err = parser.Parse(content, parser.WithParams(params...))
	if doc.Err != nil {
		doc.Tree = nil
	}
	return doc
}

// Valid reports whether the content parsed.
func (d *Document) Valid() bool {
	return d.Err == nil && d.Tree != nil
}

// NodeAt returns the deepest node at a byte offset, or ast.NoNode when the
// document did not parse.
func (d *Document) NodeAt(offset int) ast.NodeID {
	if !d.Valid() {
		return ast.NoNode
	}
	return d.Tree.NodeAt(offset)
}
