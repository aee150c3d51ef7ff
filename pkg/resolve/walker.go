package resolve

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/schema"
)

// query is the state of one public call. Definitions produced during the
// call keep a pointer to it so nested flattening shares the context and
// the first cancellation error.
type query struct {
	ctx    context.Context
	tree   *ast.Tree
	schema schema.Provider
	err    error
}

// cancelled polls the context and latches the first error.
func (q *query) cancelled() bool {
	if q.err != nil {
		return true
	}
	if err := q.ctx.Err(); err != nil {
		q.err = fmt.Errorf("%w: %w", ErrCancelled, err)
		return true
	}
	return false
}

// frame is one pending visit. The walk goes down into node when from is
// node's parent and up out of it otherwise.
type frame struct {
	node ast.NodeID
	from ast.NodeID
}

// walkSelectable feeds p every table whose columns can be referenced from
// an expression at start, nearest scope first.
func (q *query) walkSelectable(start ast.NodeID, p Processor[Table]) Action {
	t := q.tree
	stack := []frame{{node: start, from: start}}
	// A well-formed tree is climbed at most once per node.
	climbs := 0
	push := func(node, from ast.NodeID) {
		if node != ast.NoNode {
			stack = append(stack, frame{node: node, from: from})
		}
	}

	for len(stack) > 0 {
		if q.cancelled() {
			return Stop
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := f.node
		parent := t.Parent(node)
		kind := t.Kind(node)

		if f.from == parent {
			// Walking down into a subtree off the original path.
			switch {
			case t.IsTableDefining(node):
				if tbl := q.tableAt(node); tbl != nil && p.Process(tbl) == Stop {
					return Stop
				}
			case kind.IsExpr():
				// Subquery internals never leak out.
			case kind == ast.KindFromClause:
				items := t.TableItems(node)
				for i := len(items) - 1; i >= 0; i-- {
					push(items[i], node)
				}
			default:
				children := t.Children(node)
				for i := len(children) - 1; i >= 0; i-- {
					push(children[i], node)
				}
			}
			continue
		}

		// Walking up from f.from.
		if kind == ast.KindFile || parent == ast.NoNode || climbs >= t.Len() {
			continue
		}
		climbs++
		push(parent, node)

		switch kind {
		case ast.KindSelectCore:
			from := t.From(node)
			if f.from == from {
				break
			}
			if rc := t.ResultColumns(node); rc != f.from {
				push(rc, node)
			}
			push(from, node)

		case ast.KindSelectStmt:
			if ob := t.OrderBy(node); ob == ast.NoNode || f.from != ob {
				break
			}
			// Only the first arm names the output of a compound select.
			core := t.FirstCore(node)
			push(t.ResultColumns(core), core)
			push(t.From(core), core)

		case ast.KindDeleteStmt, ast.KindUpdateStmt:
			push(t.DMLTarget(node), node)

		case ast.KindInsertStmt:
			// The VALUES list cannot see the table it inserts into.
			if ic := t.InsertColumns(node); ic != ast.NoNode && f.from == ic {
				push(t.DMLTarget(node), node)
			}

		case ast.KindFromClause:
			// A join constraint sees every item of its FROM clause,
			// including those after it.
			if t.Kind(f.from) == ast.KindJoinConstraint {
				items := t.TableItems(node)
				for i := len(items) - 1; i >= 0; i-- {
					push(items[i], node)
				}
			}
		}
	}
	return Continue
}

// tableAt turns a table-defining node into its table, or nil when it names
// nothing known.
func (q *query) tableAt(node ast.NodeID) Table {
	t := q.tree
	switch t.Kind(node) {
	case ast.KindResultColumns:
		return &AliasColumnsTable{q: q, columns: node}

	case ast.KindTableOrSubquery, ast.KindSingleTableTarget:
		var tbl Table
		if sub := t.TableItemSubquery(node); sub != ast.NoNode {
			tbl = &SubqueryTable{q: q, stmt: sub}
		} else if name := t.TableItemName(node); name != ast.NoNode {
			found, ok := q.resolveTable(name, Defined)
			if !ok {
				return nil
			}
			tbl = found
		}
		if tbl == nil {
			return nil
		}
		if alias := t.TableItemAlias(node); alias != ast.NoNode {
			tbl = newAliasTable(q, tbl, alias)
		}
		return tbl
	}
	return nil
}

// walkDefined feeds p every table that can be named in FROM or DML target
// position at start: the CTEs of each enclosing WITH clause, nearest first,
// then the schema entities.
func (q *query) walkDefined(start ast.NodeID, p Processor[Table]) Action {
	t := q.tree
	for n, steps := start, 0; n != ast.NoNode && steps <= t.Len(); n, steps = t.Parent(n), steps+1 {
		if q.cancelled() {
			return Stop
		}
		if !t.Kind(n).IsStatement() {
			continue
		}
		for _, cte := range t.CTEs(t.With(n)) {
			if p.Process(&WithClauseTable{q: q, cte: cte}) == Stop {
				return Stop
			}
		}
	}

	if q.schema == nil {
		return Continue
	}
	for _, e := range q.schema.Entities() {
		if q.cancelled() {
			return Stop
		}
		if p.Process(&SchemaTable{Entity: e}) == Stop {
			return Stop
		}
	}
	return Continue
}
