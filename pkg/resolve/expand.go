package resolve

import "github.com/leapstack-labs/sqlscope/pkg/ast"

// expandResultColumn turns one non-wildcard result column into a column.
// A column reference that resolves keeps its identity; one that does not
// still yields a placeholder when aliased, so a single bad reference does
// not hide the alias from enclosing scopes. Wildcards return nil; callers
// flatten them.
func (q *query) expandResultColumn(rc ast.NodeID, inProgress NodeSet) Column {
	t := q.tree
	if t.IsStar(rc) {
		return nil
	}
	expr := t.ResultColumnExpr(rc)
	if expr == ast.NoNode {
		return nil
	}
	alias := t.ResultColumnAlias(rc)

	if t.Kind(expr) == ast.KindColumnRefExpr {
		col, ok := q.resolveColumn(t.ColumnRefName(expr), t.ColumnRefQualifier(expr), inProgress)
		switch {
		case ok && alias != ast.NoNode:
			return newAliasedColumn(q, col, alias)
		case ok:
			return col
		case alias != ast.NoNode:
			return newAliasedColumn(q, &ExprColumn{expr: expr}, alias)
		default:
			return nil
		}
	}

	var col Column = &ExprColumn{expr: expr}
	if alias != ast.NoNode {
		col = newAliasedColumn(q, col, alias)
	}
	return col
}

// processCoreColumns feeds p the output columns of one select core,
// flattening `*` and `t.*`.
func (q *query) processCoreColumns(core ast.NodeID, p Processor[Column], inProgress NodeSet) Action {
	t := q.tree
	if t.Kind(core) == ast.KindValues {
		// VALUES rows have anonymous columns, one per expression of the
		// first row.
		row := t.Child(core, ast.KindValueRow)
		for _, expr := range t.Children(row) {
			if p.Process(&ExprColumn{expr: expr}) == Stop {
				return Stop
			}
		}
		return Continue
	}

	for _, rc := range t.ChildrenOf(t.ResultColumns(core), ast.KindResultColumn) {
		if q.cancelled() {
			return Stop
		}
		if !t.IsStar(rc) {
			col := q.expandResultColumn(rc, inProgress)
			if q.err != nil {
				return Stop
			}
			if col != nil && p.Process(col) == Stop {
				return Stop
			}
			continue
		}

		if qualifier := t.StarQualifier(rc); qualifier != ast.NoNode {
			tbl, ok := q.resolveTable(qualifier, Selected)
			if !ok {
				continue
			}
			if tbl.ProcessColumns(p, inProgress) == Stop {
				return Stop
			}
			continue
		}

		if q.walkSelectable(rc, &AllColumns{Delegate: p, InProgress: inProgress}) == Stop {
			return Stop
		}
	}
	return Continue
}

// resolveColumn finds the column called like name, looking only inside
// qualifier's table when one is given.
func (q *query) resolveColumn(name, qualifier ast.NodeID, inProgress NodeSet) (Column, bool) {
	text := q.tree.Text(name)
	if text == "" {
		return nil, false
	}
	find := NewFindByName[Column](text)
	if qualifier != ast.NoNode {
		tbl, ok := q.resolveTable(qualifier, Selected)
		if !ok {
			return nil, false
		}
		tbl.ProcessColumns(find, inProgress)
	} else {
		q.walkSelectable(name, &AllColumns{Delegate: find, InProgress: inProgress})
	}
	if q.err != nil {
		return nil, false
	}
	return find.Result()
}

// resolveTable finds the table called like name in the given scope.
func (q *query) resolveTable(name ast.NodeID, mode Mode) (Table, bool) {
	text := q.tree.Text(name)
	if text == "" {
		return nil, false
	}
	find := NewFindByName[Table](text)
	q.walk(name, mode, find)
	if q.err != nil {
		return nil, false
	}
	return find.Result()
}

// walk dispatches to the walker for mode.
func (q *query) walk(start ast.NodeID, mode Mode, p Processor[Table]) Action {
	if mode == Defined {
		return q.walkDefined(start, p)
	}
	return q.walkSelectable(start, p)
}
