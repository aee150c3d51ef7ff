package ast

// Shape accessors return NoNode (or nil) when the node does not have the
// asked-for shape, so callers can treat unknown layouts as leaves.

// Statements returns the statements of a file node.
func (t *Tree) Statements(file NodeID) []NodeID {
	var out []NodeID
	for _, c := range t.Children(file) {
		if t.Kind(c).IsStatement() {
			out = append(out, c)
		}
	}
	return out
}

// With returns the WITH clause of a statement.
func (t *Tree) With(stmt NodeID) NodeID { return t.Child(stmt, KindWithClause) }

// SelectCores returns the arms of a (possibly compound) select statement.
func (t *Tree) SelectCores(stmt NodeID) []NodeID {
	var out []NodeID
	for _, c := range t.Children(stmt) {
		if k := t.Kind(c); k == KindSelectCore || k == KindValues {
			out = append(out, c)
		}
	}
	return out
}

// FirstCore returns the first arm of a select statement.
func (t *Tree) FirstCore(stmt NodeID) NodeID {
	for _, c := range t.Children(stmt) {
		if k := t.Kind(c); k == KindSelectCore || k == KindValues {
			return c
		}
	}
	return NoNode
}

// OrderBy returns the ORDER BY clause of a select statement.
func (t *Tree) OrderBy(stmt NodeID) NodeID { return t.Child(stmt, KindOrderByClause) }

// ResultColumns returns the result column list of a select core.
func (t *Tree) ResultColumns(core NodeID) NodeID { return t.Child(core, KindResultColumns) }

// From returns the FROM clause of a select core.
func (t *Tree) From(core NodeID) NodeID { return t.Child(core, KindFromClause) }

// ResultColumnExpr returns the expression of a non-wildcard result column.
func (t *Tree) ResultColumnExpr(col NodeID) NodeID {
	for _, c := range t.Children(col) {
		if t.Kind(c).IsExpr() {
			return c
		}
	}
	return NoNode
}

// ResultColumnAlias returns the alias node of a result column.
func (t *Tree) ResultColumnAlias(col NodeID) NodeID { return t.Child(col, KindColumnAlias) }

// IsStar reports whether a result column is `*` or `t.*`.
func (t *Tree) IsStar(col NodeID) bool { return t.Child(col, KindStar) != NoNode }

// StarQualifier returns the table name of a `t.*` result column.
func (t *Tree) StarQualifier(col NodeID) NodeID {
	if !t.IsStar(col) {
		return NoNode
	}
	return t.Child(col, KindSelectedTableName)
}

// CTEs returns the table definitions of a WITH clause in declaration order.
func (t *Tree) CTEs(with NodeID) []NodeID { return t.ChildrenOf(with, KindWithClauseTable) }

// CTEName returns the declared name node of a CTE.
func (t *Tree) CTEName(cte NodeID) NodeID { return t.Child(cte, KindTableDefinitionName) }

// CTEColumns returns the declared column name nodes of a CTE.
func (t *Tree) CTEColumns(cte NodeID) []NodeID { return t.ChildrenOf(cte, KindColumnDefinitionName) }

// CTESelect returns the body of a CTE.
func (t *Tree) CTESelect(cte NodeID) NodeID { return t.Child(cte, KindSelectStmt) }

// ColumnRefName returns the column name of a column reference expression.
func (t *Tree) ColumnRefName(ref NodeID) NodeID { return t.Child(ref, KindColumnName) }

// ColumnRefQualifier returns the table qualifier of a column reference.
func (t *Tree) ColumnRefQualifier(ref NodeID) NodeID { return t.Child(ref, KindSelectedTableName) }

// TableItems returns the table-or-subquery items of a FROM clause.
func (t *Tree) TableItems(from NodeID) []NodeID { return t.ChildrenOf(from, KindTableOrSubquery) }

// TableItemName returns the table name of a FROM item, or NoNode for a subquery.
func (t *Tree) TableItemName(item NodeID) NodeID { return t.Child(item, KindDefinedTableName) }

// TableItemSubquery returns the select statement of a subquery FROM item.
func (t *Tree) TableItemSubquery(item NodeID) NodeID { return t.Child(item, KindSelectStmt) }

// TableItemAlias returns the alias node of a FROM item or DML target.
func (t *Tree) TableItemAlias(item NodeID) NodeID { return t.Child(item, KindTableAlias) }

// DMLTarget returns the single target table of an INSERT, UPDATE or DELETE.
func (t *Tree) DMLTarget(stmt NodeID) NodeID { return t.Child(stmt, KindSingleTableTarget) }

// InsertColumns returns the column list of an INSERT statement.
func (t *Tree) InsertColumns(stmt NodeID) NodeID { return t.Child(stmt, KindInsertColumns) }

// Qualifier returns the table qualifier sitting next to a name leaf, e.g.
// `t` for the `c` in `t.c`. It returns NoNode for unqualified names.
func (t *Tree) Qualifier(name NodeID) NodeID {
	if t.Kind(name) != KindColumnName {
		return NoNode
	}
	p := t.Parent(name)
	if t.Kind(p) != KindColumnRefExpr {
		return NoNode
	}
	return t.ColumnRefQualifier(p)
}

// IsTableDefining reports whether a node introduces a table into the
// visible scope.
func (t *Tree) IsTableDefining(id NodeID) bool {
	switch t.Kind(id) {
	case KindTableOrSubquery, KindSingleTableTarget, KindResultColumns:
		return true
	}
	return false
}
