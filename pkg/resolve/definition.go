package resolve

import (
	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/schema"
)

// Definition is anything a name in a query can resolve to.
type Definition interface {
	// Name is the identity used for lookups, compared case-insensitively.
	// An empty name means the definition can only be reached by flattening.
	Name() string
	// DefiningNode is the node that introduced the definition, or
	// ast.NoNode when it comes from the schema.
	DefiningNode() ast.NodeID
	// Target is where navigation should land.
	Target() Target
}

// Target is either a node in the query or a location in the schema.
type Target struct {
	Node     ast.NodeID
	Location schema.Location
}

// InQuery reports whether the target is a node of the query tree.
func (t Target) InQuery() bool { return t.Node != ast.NoNode }

func nodeTarget(id ast.NodeID) Target { return Target{Node: id} }

func schemaTarget(loc schema.Location) Target { return Target{Node: ast.NoNode, Location: loc} }

// Table is a definition whose columns can be enumerated.
type Table interface {
	Definition
	// IsView is true for views, CTEs and subqueries, none of which can be
	// the target of INSERT, UPDATE or DELETE.
	IsView() bool
	// ProcessColumns feeds the columns to p. Tables whose defining node is
	// already in inProgress produce nothing.
	ProcessColumns(p Processor[Column], inProgress NodeSet) Action
}

// Column is a definition that may carry a declared type.
type Column interface {
	Definition
	// Type is the declared type, or "" when unknown.
	Type() string
}

// NodeSet holds the defining nodes of tables currently being flattened.
type NodeSet map[ast.NodeID]struct{}

// enter adds id and reports whether it was absent.
func (s NodeSet) enter(id ast.NodeID) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s NodeSet) leave(id ast.NodeID) {
	delete(s, id)
}

// rebinder lets the resolver re-attach a definition produced by one call to
// the state of another.
type rebinder interface {
	rebind(q *query) Table
}

// DescribeKind names the variant of a definition for display.
func DescribeKind(d Definition) string {
	switch v := d.(type) {
	case *SchemaTable:
		if v.Entity.View {
			return "view"
		}
		return "table"
	case *AliasTable:
		return "alias of " + DescribeKind(v.delegate)
	case *SubqueryTable:
		return "subquery"
	case *WithClauseTable:
		return "cte"
	case *AliasColumnsTable:
		return "result aliases"
	case *SchemaColumn:
		return "column"
	case *AliasedColumn:
		return "alias"
	case *ExprColumn:
		return "expression"
	case *DefinedColumn:
		return "cte column"
	case *Parameter:
		return "parameter"
	}
	return "unknown"
}
