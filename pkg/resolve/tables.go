package resolve

import (
	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/schema"
)

// SchemaTable is an entity supplied by the schema provider.
type SchemaTable struct {
	Entity *schema.Entity
}

func (t *SchemaTable) Name() string             { return t.Entity.Name }
func (t *SchemaTable) DefiningNode() ast.NodeID { return ast.NoNode }
func (t *SchemaTable) Target() Target           { return schemaTarget(t.Entity.Location) }
func (t *SchemaTable) IsView() bool             { return t.Entity.View }

// ProcessColumns implements Table.
func (t *SchemaTable) ProcessColumns(p Processor[Column], _ NodeSet) Action {
	for _, f := range t.Entity.Fields {
		if p.Process(&SchemaColumn{Field: f, Entity: t.Entity}) == Stop {
			return Stop
		}
	}
	return Continue
}

func (t *SchemaTable) rebind(*query) Table { return t }

// AliasTable renames another table (`FROM user AS u`).
type AliasTable struct {
	delegate Table
	alias    ast.NodeID
	name     string
}

func newAliasTable(q *query, delegate Table, alias ast.NodeID) *AliasTable {
	return &AliasTable{delegate: delegate, alias: alias, name: q.tree.Text(alias)}
}

func (t *AliasTable) Name() string             { return t.name }
func (t *AliasTable) DefiningNode() ast.NodeID { return t.delegate.DefiningNode() }
func (t *AliasTable) Target() Target           { return nodeTarget(t.alias) }
func (t *AliasTable) IsView() bool             { return t.delegate.IsView() }

// Unwrap returns the aliased table.
func (t *AliasTable) Unwrap() Table { return t.delegate }

// ProcessColumns implements Table.
func (t *AliasTable) ProcessColumns(p Processor[Column], inProgress NodeSet) Action {
	return t.delegate.ProcessColumns(p, inProgress)
}

func (t *AliasTable) rebind(q *query) Table {
	c := *t
	c.delegate = rebindTable(q, t.delegate)
	return &c
}

// SubqueryTable is a parenthesized select statement used as a table. Its
// columns come from the first arm of the statement only.
type SubqueryTable struct {
	q    *query
	stmt ast.NodeID
}

func (t *SubqueryTable) Name() string             { return "" }
func (t *SubqueryTable) DefiningNode() ast.NodeID { return t.stmt }
func (t *SubqueryTable) Target() Target           { return nodeTarget(t.stmt) }
func (t *SubqueryTable) IsView() bool             { return true }

// ProcessColumns implements Table.
func (t *SubqueryTable) ProcessColumns(p Processor[Column], inProgress NodeSet) Action {
	if inProgress == nil {
		inProgress = NodeSet{}
	}
	if !inProgress.enter(t.stmt) {
		return Continue
	}
	defer inProgress.leave(t.stmt)
	return t.q.processCoreColumns(t.q.tree.FirstCore(t.stmt), p, inProgress)
}

func (t *SubqueryTable) rebind(q *query) Table { return &SubqueryTable{q: q, stmt: t.stmt} }

// WithClauseTable is one common table expression. Its columns are the
// declared column list, or the columns of its body when no list is given.
type WithClauseTable struct {
	q   *query
	cte ast.NodeID
}

func (t *WithClauseTable) Name() string             { return t.q.tree.Text(t.q.tree.CTEName(t.cte)) }
func (t *WithClauseTable) DefiningNode() ast.NodeID { return t.cte }
func (t *WithClauseTable) IsView() bool             { return true }

func (t *WithClauseTable) Target() Target {
	if name := t.q.tree.CTEName(t.cte); name != ast.NoNode {
		return nodeTarget(name)
	}
	return nodeTarget(t.cte)
}

// ProcessColumns implements Table.
func (t *WithClauseTable) ProcessColumns(p Processor[Column], inProgress NodeSet) Action {
	if inProgress == nil {
		inProgress = NodeSet{}
	}
	if !inProgress.enter(t.cte) {
		return Continue
	}
	defer inProgress.leave(t.cte)

	tree := t.q.tree
	if cols := tree.CTEColumns(t.cte); len(cols) > 0 {
		for _, c := range cols {
			if p.Process(&DefinedColumn{q: t.q, node: c}) == Stop {
				return Stop
			}
		}
		return Continue
	}
	body := tree.CTESelect(t.cte)
	if body == ast.NoNode {
		return Continue
	}
	return (&SubqueryTable{q: t.q, stmt: body}).ProcessColumns(p, inProgress)
}

func (t *WithClauseTable) rebind(q *query) Table { return &WithClauseTable{q: q, cte: t.cte} }

// AliasColumnsTable exposes the aliased result columns of one select core,
// so WHERE, GROUP BY and ORDER BY can refer to `SELECT x + 1 AS y` by y.
type AliasColumnsTable struct {
	q       *query
	columns ast.NodeID // ResultColumns node
}

func (t *AliasColumnsTable) Name() string             { return "" }
func (t *AliasColumnsTable) DefiningNode() ast.NodeID { return t.columns }
func (t *AliasColumnsTable) Target() Target           { return nodeTarget(t.columns) }
func (t *AliasColumnsTable) IsView() bool             { return true }

// ProcessColumns implements Table.
func (t *AliasColumnsTable) ProcessColumns(p Processor[Column], inProgress NodeSet) Action {
	if inProgress == nil {
		inProgress = NodeSet{}
	}
	if !inProgress.enter(t.columns) {
		return Continue
	}
	defer inProgress.leave(t.columns)

	tree := t.q.tree
	for _, rc := range tree.ChildrenOf(t.columns, ast.KindResultColumn) {
		if tree.ResultColumnAlias(rc) == ast.NoNode {
			continue
		}
		col := t.q.expandResultColumn(rc, inProgress)
		if t.q.err != nil {
			return Stop
		}
		if col != nil && p.Process(col) == Stop {
			return Stop
		}
	}
	return Continue
}

func (t *AliasColumnsTable) rebind(q *query) Table {
	return &AliasColumnsTable{q: q, columns: t.columns}
}

func rebindTable(q *query, t Table) Table {
	if r, ok := t.(rebinder); ok {
		return r.rebind(q)
	}
	return t
}
