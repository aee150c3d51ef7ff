package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlscope/pkg/ast"
)

// dump parses sql and renders the first statement, dropping the common
// indentation.
func dump(t *testing.T, sql string) string {
	t.Helper()
	tree, err := Parse(sql)
	require.NoError(t, err)
	stmts := tree.Statements(tree.Root())
	require.NotEmpty(t, stmts)
	return tree.Dump(stmts[0])
}

func outline(s string) string {
	s = strings.TrimRight(strings.TrimLeft(s, "\n"), "\n\t ")
	lines := strings.Split(s, "\n")
	indent := len(lines[0]) - len(strings.TrimLeft(lines[0], "\t"))
	for i, l := range lines {
		lines[i] = strings.ReplaceAll(l[indent:], "\t", "  ")
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestParse_Shapes(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "select with join",
			sql:  "SELECT a AS b FROM t x JOIN u ON x.id = u.id WHERE a > 1",
			want: `
				SelectStmt
					SelectCore
						ResultColumns
							ResultColumn
								ColumnRefExpr
									ColumnName "a"
								ColumnAlias "b"
						FromClause
							TableOrSubquery
								DefinedTableName "t"
								TableAlias "x"
							JoinOperator "JOIN"
							TableOrSubquery
								DefinedTableName "u"
							JoinConstraint "ON"
								BinaryExpr "="
									ColumnRefExpr
										SelectedTableName "x"
										ColumnName "id"
									ColumnRefExpr
										SelectedTableName "u"
										ColumnName "id"
						WhereClause
							BinaryExpr ">"
								ColumnRefExpr
									ColumnName "a"
								Literal "1"
			`,
		},
		{
			name: "stars and using",
			sql:  "SELECT *, t.* FROM main.t LEFT OUTER JOIN u USING (id, name)",
			want: `
				SelectStmt
					SelectCore
						ResultColumns
							ResultColumn
								Star "*"
							ResultColumn
								SelectedTableName "t"
								Star "*"
						FromClause
							TableOrSubquery
								DefinedTableName "t"
							JoinOperator "LEFT OUTER JOIN"
							TableOrSubquery
								DefinedTableName "u"
							JoinConstraint "USING"
								ColumnName "id"
								ColumnName "name"
			`,
		},
		{
			name: "with and compound",
			sql:  "WITH RECURSIVE r(n) AS (SELECT 1 UNION ALL SELECT n + 1 FROM r) SELECT n FROM r ORDER BY n DESC LIMIT 5",
			want: `
				SelectStmt
					WithClause "RECURSIVE"
						WithClauseTable
							TableDefinitionName "r"
							ColumnDefinitionName "n"
							SelectStmt
								SelectCore
									ResultColumns
										ResultColumn
											Literal "1"
								CompoundOperator "UNION ALL"
								SelectCore
									ResultColumns
										ResultColumn
											BinaryExpr "+"
												ColumnRefExpr
													ColumnName "n"
												Literal "1"
									FromClause
										TableOrSubquery
											DefinedTableName "r"
					SelectCore
						ResultColumns
							ResultColumn
								ColumnRefExpr
									ColumnName "n"
						FromClause
							TableOrSubquery
								DefinedTableName "r"
					OrderByClause
						OrderingTerm "DESC"
							ColumnRefExpr
								ColumnName "n"
					LimitClause
						Literal "5"
			`,
		},
		{
			name: "insert values",
			sql:  "INSERT OR REPLACE INTO user (id, name) VALUES (:id, ?)",
			want: `
				InsertStmt "INSERT OR REPLACE"
					SingleTableTarget
						DefinedTableName "user"
					InsertColumns
						ColumnName "id"
						ColumnName "name"
					SelectStmt
						Values
							ValueRow
								BindParameter ":id"
								BindParameter "?"
			`,
		},
		{
			name: "update",
			sql:  "UPDATE user AS u SET name = 'x', (a, b) = (1, 2) WHERE id = 1",
			want: `
				UpdateStmt "UPDATE"
					SingleTableTarget
						DefinedTableName "user"
						TableAlias "u"
					UpdateSet
						ColumnName "name"
						Literal "x"
					UpdateSet
						ColumnName "a"
						ColumnName "b"
						ParenExpr
							Literal "1"
							Literal "2"
					WhereClause
						BinaryExpr "="
							ColumnRefExpr
								ColumnName "id"
							Literal "1"
			`,
		},
		{
			name: "delete with subquery",
			sql:  "DELETE FROM book WHERE user_id IN (SELECT id FROM user)",
			want: `
				DeleteStmt
					SingleTableTarget
						DefinedTableName "book"
					WhereClause
						InExpr "IN"
							ColumnRefExpr
								ColumnName "user_id"
							SelectStmt
								SelectCore
									ResultColumns
										ResultColumn
											ColumnRefExpr
												ColumnName "id"
									FromClause
										TableOrSubquery
											DefinedTableName "user"
			`,
		},
		{
			name: "expressions",
			sql:  "SELECT count(*), CAST(x AS VARCHAR(10)), y NOT BETWEEN 1 AND 2, z IS NOT NULL",
			want: `
				SelectStmt
					SelectCore
						ResultColumns
							ResultColumn
								FuncCall "count"
									Literal "*"
							ResultColumn
								CastExpr
									ColumnRefExpr
										ColumnName "x"
									TypeName "VARCHAR"
							ResultColumn
								BetweenExpr "NOT BETWEEN"
									ColumnRefExpr
										ColumnName "y"
									Literal "1"
									Literal "2"
							ResultColumn
								IsExpr "IS NOT"
									ColumnRefExpr
										ColumnName "z"
									Literal "NULL"
			`,
		},
		{
			name: "precedence",
			sql:  "SELECT a OR b AND NOT c = 1 + 2 * 3",
			want: `
				SelectStmt
					SelectCore
						ResultColumns
							ResultColumn
								BinaryExpr "OR"
									ColumnRefExpr
										ColumnName "a"
									BinaryExpr "AND"
										ColumnRefExpr
											ColumnName "b"
										UnaryExpr "NOT"
											BinaryExpr "="
												ColumnRefExpr
													ColumnName "c"
												BinaryExpr "+"
													Literal "1"
													BinaryExpr "*"
														Literal "2"
														Literal "3"
			`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, outline(tt.want), dump(t, tt.sql))
		})
	}
}

func TestParse_MultipleStatements(t *testing.T) {
	tree, err := Parse("SELECT 1; ; DELETE FROM t;")
	require.NoError(t, err)
	stmts := tree.Statements(tree.Root())
	require.Len(t, stmts, 2)
	assert.Equal(t, ast.KindSelectStmt, tree.Kind(stmts[0]))
	assert.Equal(t, ast.KindDeleteStmt, tree.Kind(stmts[1]))
}

func TestParse_Spans(t *testing.T) {
	sql := "SELECT u.name\nFROM user u"
	tree, err := Parse(sql)
	require.NoError(t, err)

	for _, tc := range []struct {
		kind ast.Kind
		text string
	}{
		{ast.KindColumnRefExpr, "u.name"},
		{ast.KindSelectedTableName, "u"},
		{ast.KindTableOrSubquery, "user u"},
		{ast.KindFromClause, "FROM user u"},
	} {
		ids := tree.FindAll(tc.kind, "")
		require.NotEmpty(t, ids, tc.kind.String())
		span := tree.Span(ids[0])
		assert.Equal(t, tc.text, sql[span.Start.Offset:span.End.Offset], tc.kind.String())
	}

	from := tree.FindAll(ast.KindFromClause, "")[0]
	assert.Equal(t, 2, tree.Span(from).Start.Line)
	assert.Equal(t, 1, tree.Span(from).Start.Column)
}

func TestParse_Params(t *testing.T) {
	tree, err := Parse("SELECT * FROM user WHERE id = :id", WithParams(ast.Param{Name: "id", Type: "long"}))
	require.NoError(t, err)
	assert.Equal(t, []ast.Param{{Name: "id", Type: "long"}}, tree.Params)
	assert.Len(t, tree.FindAll(ast.KindBindParameter, ":ID"), 1)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		line    int
		column  int
		message string
	}{
		{name: "not a statement", sql: "CREATE TABLE t", line: 1, column: 1, message: "expected SELECT"},
		{name: "missing table", sql: "SELECT * FROM", line: 1, column: 14, message: "expected table name"},
		{name: "trailing garbage", sql: "SELECT 1 2", line: 1, column: 10, message: "expected ; or EOF"},
		{name: "unterminated string", sql: "SELECT 'abc", line: 1, column: 8, message: ErrUnterminatedString},
		{name: "missing expression", sql: "SELECT a FROM t WHERE", line: 1, column: 22, message: "expected expression"},
		{name: "error on second line", sql: "SELECT a\nFROM t JOIN", line: 2, column: 12, message: "expected table name"},
		{name: "dangling join keyword", sql: "SELECT a FROM t LEFT u", line: 1, column: 22, message: "expected JOIN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(tt.sql)
			require.Error(t, err)
			assert.Nil(t, tree)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.line, perr.Pos.Line)
			assert.Equal(t, tt.column, perr.Pos.Column)
			assert.Contains(t, perr.Message, tt.message)
		})
	}
}
