package resolve

import (
	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/schema"
)

// SchemaColumn is a field of a schema entity.
type SchemaColumn struct {
	Field  *schema.Field
	Entity *schema.Entity
}

func (c *SchemaColumn) Name() string             { return c.Field.Name }
func (c *SchemaColumn) DefiningNode() ast.NodeID { return ast.NoNode }
func (c *SchemaColumn) Target() Target           { return schemaTarget(c.Field.Location) }
func (c *SchemaColumn) Type() string             { return c.Field.Type }

// AliasedColumn renames another column (`SELECT x AS y`).
type AliasedColumn struct {
	delegate Column
	alias    ast.NodeID
	name     string
}

func newAliasedColumn(q *query, delegate Column, alias ast.NodeID) *AliasedColumn {
	return &AliasedColumn{delegate: delegate, alias: alias, name: q.tree.Text(alias)}
}

func (c *AliasedColumn) Name() string             { return c.name }
func (c *AliasedColumn) DefiningNode() ast.NodeID { return c.delegate.DefiningNode() }
func (c *AliasedColumn) Target() Target           { return nodeTarget(c.alias) }
func (c *AliasedColumn) Type() string             { return c.delegate.Type() }

// Unwrap returns the aliased column.
func (c *AliasedColumn) Unwrap() Column { return c.delegate }

// ExprColumn is an anonymous column computed by an expression.
type ExprColumn struct {
	expr ast.NodeID
}

func (c *ExprColumn) Name() string             { return "" }
func (c *ExprColumn) DefiningNode() ast.NodeID { return c.expr }
func (c *ExprColumn) Target() Target           { return nodeTarget(c.expr) }
func (c *ExprColumn) Type() string             { return "" }

// DefinedColumn is a name from a CTE's column list.
type DefinedColumn struct {
	q    *query
	node ast.NodeID
}

func (c *DefinedColumn) Name() string             { return c.q.tree.Text(c.node) }
func (c *DefinedColumn) DefiningNode() ast.NodeID { return c.node }
func (c *DefinedColumn) Target() Target           { return nodeTarget(c.node) }
func (c *DefinedColumn) Type() string             { return "" }
