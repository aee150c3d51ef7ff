package ast

// Kind identifies the grammatical role of a node.
type Kind uint8

// Node kinds. Any kind not listed in a walker's rules is treated as an
// opaque leaf by that walker.
const (
	KindInvalid Kind = iota

	// Root of one query file (one annotation); holds one or more statements.
	KindFile

	// ---------- SELECT ----------
	KindSelectStmt       // [WithClause] core (CompoundOperator core)* [OrderByClause] [LimitClause]
	KindSelectCore       // ResultColumns [FromClause] [WhereClause] [GroupByClause] [HavingClause]
	KindValues           // VALUES (...), (...) as a core or as an INSERT source; children: ValueRow
	KindValueRow         // children: expressions
	KindCompoundOperator // leaf; text is UNION, UNION ALL, INTERSECT or EXCEPT
	KindResultColumns    // children: ResultColumn
	KindResultColumn     // expr [ColumnAlias] | Star | SelectedTableName Star
	KindStar             // leaf "*"
	KindColumnAlias      // leaf; text is the alias

	KindFromClause       // TableOrSubquery (JoinOperator TableOrSubquery [JoinConstraint])*
	KindTableOrSubquery  // (DefinedTableName | SelectStmt) [TableAlias]
	KindTableAlias       // leaf
	KindJoinOperator     // leaf; text is the operator ("," or "LEFT JOIN", ...)
	KindJoinConstraint   // ON expr | USING ColumnName...
	KindWhereClause      // children: expr
	KindGroupByClause    // children: expr...
	KindHavingClause     // children: expr
	KindOrderByClause    // children: OrderingTerm...
	KindOrderingTerm     // children: expr; text is ASC/DESC when given
	KindLimitClause      // children: expr [expr]

	KindWithClause          // children: WithClauseTable...
	KindWithClauseTable     // TableDefinitionName ColumnDefinitionName* SelectStmt
	KindTableDefinitionName // leaf; the CTE name
	KindColumnDefinitionName

	// ---------- names ----------
	KindColumnRefExpr     // [SelectedTableName] ColumnName
	KindColumnName        // leaf
	KindSelectedTableName // leaf; table qualifier in expression position (t.col, t.*)
	KindDefinedTableName  // leaf; table name in FROM or DML target position
	KindBindParameter     // leaf; text includes the sigil (":id", "?1")

	// ---------- generic expressions ----------
	KindLiteral
	KindBinaryExpr  // text is the operator
	KindUnaryExpr   // text is the operator
	KindFuncCall    // text is the function name; children: args
	KindParenExpr   // children: expr...
	KindCaseExpr    // children: operand/when/then/else expressions in source order
	KindCastExpr    // children: expr TypeName
	KindTypeName    // leaf
	KindInExpr      // children: expr (SelectStmt | expr...)
	KindExistsExpr  // children: SelectStmt
	KindBetweenExpr // children: expr expr expr
	KindLikeExpr    // text is LIKE/GLOB/REGEXP/MATCH; children: expr expr [expr]
	KindIsExpr      // text is IS, IS NOT, ISNULL or NOTNULL
	KindCollateExpr // text is the collation
	KindSubqueryExpr

	// ---------- DML ----------
	KindInsertStmt        // [WithClause] SingleTableTarget [InsertColumns] (Values | SelectStmt | DefaultValues)
	KindInsertColumns     // children: ColumnName...
	KindDefaultValues     // leaf
	KindUpdateStmt        // [WithClause] SingleTableTarget UpdateSet... [WhereClause]
	KindUpdateSet         // ColumnName... expr
	KindDeleteStmt        // [WithClause] SingleTableTarget [WhereClause]
	KindSingleTableTarget // DefinedTableName [TableAlias]

	kindCount
)

var kindNames = [...]string{
	KindInvalid:              "Invalid",
	KindFile:                 "File",
	KindSelectStmt:           "SelectStmt",
	KindSelectCore:           "SelectCore",
	KindValues:               "Values",
	KindValueRow:             "ValueRow",
	KindCompoundOperator:     "CompoundOperator",
	KindResultColumns:        "ResultColumns",
	KindResultColumn:         "ResultColumn",
	KindStar:                 "Star",
	KindColumnAlias:          "ColumnAlias",
	KindFromClause:           "FromClause",
	KindTableOrSubquery:      "TableOrSubquery",
	KindTableAlias:           "TableAlias",
	KindJoinOperator:         "JoinOperator",
	KindJoinConstraint:       "JoinConstraint",
	KindWhereClause:          "WhereClause",
	KindGroupByClause:        "GroupByClause",
	KindHavingClause:         "HavingClause",
	KindOrderByClause:        "OrderByClause",
	KindOrderingTerm:         "OrderingTerm",
	KindLimitClause:          "LimitClause",
	KindWithClause:           "WithClause",
	KindWithClauseTable:      "WithClauseTable",
	KindTableDefinitionName:  "TableDefinitionName",
	KindColumnDefinitionName: "ColumnDefinitionName",
	KindColumnRefExpr:        "ColumnRefExpr",
	KindColumnName:           "ColumnName",
	KindSelectedTableName:    "SelectedTableName",
	KindDefinedTableName:     "DefinedTableName",
	KindBindParameter:        "BindParameter",
	KindLiteral:              "Literal",
	KindBinaryExpr:           "BinaryExpr",
	KindUnaryExpr:            "UnaryExpr",
	KindFuncCall:             "FuncCall",
	KindParenExpr:            "ParenExpr",
	KindCaseExpr:             "CaseExpr",
	KindCastExpr:             "CastExpr",
	KindTypeName:             "TypeName",
	KindInExpr:               "InExpr",
	KindExistsExpr:           "ExistsExpr",
	KindBetweenExpr:          "BetweenExpr",
	KindLikeExpr:             "LikeExpr",
	KindIsExpr:               "IsExpr",
	KindCollateExpr:          "CollateExpr",
	KindSubqueryExpr:         "SubqueryExpr",
	KindInsertStmt:           "InsertStmt",
	KindInsertColumns:        "InsertColumns",
	KindDefaultValues:        "DefaultValues",
	KindUpdateStmt:           "UpdateStmt",
	KindUpdateSet:            "UpdateSet",
	KindDeleteStmt:           "DeleteStmt",
	KindSingleTableTarget:    "SingleTableTarget",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Unknown"
}

// IsExpr reports whether k is an expression kind.
func (k Kind) IsExpr() bool {
	switch k {
	case KindColumnRefExpr, KindBindParameter, KindLiteral, KindBinaryExpr,
		KindUnaryExpr, KindFuncCall, KindParenExpr, KindCaseExpr, KindCastExpr,
		KindInExpr, KindExistsExpr, KindBetweenExpr, KindLikeExpr, KindIsExpr,
		KindCollateExpr, KindSubqueryExpr:
		return true
	}
	return false
}

// IsStatement reports whether k is a top-level statement kind.
func (k Kind) IsStatement() bool {
	switch k {
	case KindSelectStmt, KindInsertStmt, KindUpdateStmt, KindDeleteStmt:
		return true
	}
	return false
}

// IsName reports whether k is a leaf that names something the resolver
// can look up.
func (k Kind) IsName() bool {
	switch k {
	case KindColumnName, KindSelectedTableName, KindDefinedTableName, KindBindParameter:
		return true
	}
	return false
}
