package resolve_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlscope/internal/testutil"
	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/parser"
	"github.com/leapstack-labs/sqlscope/pkg/resolve"
	"github.com/leapstack-labs/sqlscope/pkg/schema"
)

func entity(name string, view bool, fields ...string) *schema.Entity {
	e := &schema.Entity{Name: name, View: view, Location: schema.Location{URI: "Entities.java", Line: 1}}
	for _, f := range fields {
		e.Fields = append(e.Fields, &schema.Field{Name: f, Type: "TEXT"})
	}
	return e
}

func testSchema() *schema.Catalog {
	return schema.NewCatalog(
		entity("user", false, "id", "name", "email"),
		entity("book", false, "id", "title", "user_id"),
		entity("t1", false, "a", "b"),
		entity("t2", false, "c", "d"),
		entity("t", false, "a", "b", "x"),
		entity("active_user", true, "id", "name"),
	)
}

// setup parses sql, which must contain one caret marker, and returns a
// resolver and the node under the caret.
func setup(t *testing.T, sql string, opts ...parser.Option) (*resolve.Resolver, ast.NodeID) {
	t.Helper()
	text, offset := testutil.SplitCaret(t, sql)
	tree, err := parser.Parse(text, opts...)
	require.NoError(t, err)
	node := tree.NodeAt(offset)
	require.NotEqual(t, ast.NoNode, node, "no node at caret")
	return resolve.New(tree, testSchema(), resolve.WithLogger(testutil.NewTestLogger(t))), node
}

// entityOf returns the schema entity a column or table ultimately comes from.
func entityOf(d resolve.Definition) string {
	for {
		switch v := d.(type) {
		case *resolve.SchemaColumn:
			return v.Entity.Name
		case *resolve.SchemaTable:
			return v.Entity.Name
		case *resolve.AliasedColumn:
			d = v.Unwrap()
		case *resolve.AliasTable:
			d = v.Unwrap()
		default:
			return ""
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		found  bool
		kind   string
		def    string // definition name
		entity string // for columns backed by the schema
	}{
		// Plain lookups
		{name: "column in select list", sql: "SELECT <caret>name FROM user", found: true, kind: "column", def: "name", entity: "user"},
		{name: "case insensitive column and table", sql: "SELECT <caret>NAME FROM USER", found: true, kind: "column", def: "name", entity: "user"},
		{name: "qualified by alias", sql: "SELECT u.<caret>name FROM user u", found: true, kind: "column", def: "name", entity: "user"},
		{name: "alias hides table name", sql: "SELECT user.<caret>name FROM user u", found: false},
		{name: "table alias", sql: "SELECT <caret>u.name FROM user AS u", found: true, kind: "alias of table", def: "u", entity: "user"},
		{name: "defined table", sql: "SELECT * FROM <caret>user", found: true, kind: "table", def: "user", entity: "user"},
		{name: "defined view", sql: "SELECT * FROM <caret>active_user", found: true, kind: "view", def: "active_user", entity: "active_user"},
		{name: "unknown column", sql: "SELECT <caret>nope FROM user", found: false},
		{name: "unknown table", sql: "SELECT * FROM <caret>nope", found: false},
		{name: "column of unknown table", sql: "SELECT <caret>id FROM nope", found: false},

		// Joins
		{name: "join constraint sees later item", sql: "SELECT * FROM user u JOIN book b ON <caret>c.id = b.id JOIN user c", found: true, kind: "alias of table", def: "c", entity: "user"},
		{name: "join using column", sql: "SELECT * FROM user JOIN book USING (<caret>id)", found: true, kind: "column", def: "id", entity: "user"},
		{name: "comma join", sql: "SELECT <caret>title FROM user, book", found: true, kind: "column", def: "title", entity: "book"},

		// Result column aliases
		{name: "alias in where", sql: "SELECT name AS n FROM user WHERE <caret>n = 'x'", found: true, kind: "alias", def: "n", entity: "user"},
		{name: "alias in order by", sql: "SELECT name AS n FROM user ORDER BY <caret>n", found: true, kind: "alias", def: "n", entity: "user"},
		{name: "alias in group by", sql: "SELECT email AS e FROM user GROUP BY <caret>e", found: true, kind: "alias", def: "e", entity: "user"},
		{name: "expression alias in where", sql: "SELECT x + 1 AS y FROM t WHERE <caret>y > 0", found: true, kind: "alias", def: "y"},
		{name: "alias not visible in from subquery", sql: "SELECT name AS n FROM (SELECT <caret>n FROM user)", found: false},
		{name: "alias not visible in own select list", sql: "SELECT name AS n, <caret>n FROM user", found: false},
		{name: "column subquery alias", sql: "SELECT (SELECT title FROM book) AS t FROM user ORDER BY <caret>t", found: true, kind: "alias", def: "t"},

		// CTEs
		{name: "cte table", sql: "WITH w AS (SELECT 1) SELECT * FROM <caret>w", found: true, kind: "cte", def: "w"},
		{name: "cte body column", sql: "WITH w AS (SELECT id, name FROM user) SELECT <caret>name FROM w", found: true, kind: "column", def: "name", entity: "user"},
		{name: "cte column list", sql: "WITH w(x, y) AS (SELECT id, name FROM user) SELECT <caret>x FROM w", found: true, kind: "cte column", def: "x"},
		{name: "cte column list renames", sql: "WITH w(x, y) AS (SELECT id, name FROM user) SELECT <caret>name FROM w", found: false},
		{name: "cte shadows schema", sql: "WITH user AS (SELECT 1 AS one) SELECT <caret>one FROM user", found: true, kind: "alias", def: "one"},
		{name: "nearest cte wins", sql: "WITH w AS (SELECT 1 AS a) SELECT * FROM (WITH w AS (SELECT 2 AS b) SELECT <caret>b FROM w)", found: true, kind: "alias", def: "b"},
		{name: "recursive cte from outside", sql: "WITH RECURSIVE r AS (SELECT 1 AS n UNION ALL SELECT n + 1 FROM r) SELECT <caret>n FROM r", found: true, kind: "alias", def: "n"},
		{name: "recursive cte from inside", sql: "WITH RECURSIVE r AS (SELECT 1 AS n UNION ALL SELECT <caret>n + 1 FROM r) SELECT n FROM r", found: true, kind: "alias", def: "n"},
		{name: "mutually recursive ctes", sql: "WITH x1 AS (SELECT * FROM x2), x2 AS (SELECT * FROM x1) SELECT <caret>a FROM x1", found: false},

		// Subqueries
		{name: "star in from subquery", sql: "SELECT <caret>title FROM (SELECT * FROM book)", found: true, kind: "column", def: "title", entity: "book"},
		{name: "qualified star in from subquery", sql: "SELECT <caret>title FROM (SELECT b.* FROM book b, user u)", found: true, kind: "column", def: "title", entity: "book"},
		{name: "qualified star excludes other tables", sql: "SELECT <caret>email FROM (SELECT b.* FROM book b, user u)", found: false},
		{name: "subquery alias column", sql: "SELECT s.<caret>total FROM (SELECT count(*) AS total FROM book) s", found: true, kind: "alias", def: "total"},
		{name: "nonexistent column of subquery", sql: "SELECT <caret>email FROM (SELECT id FROM user)", found: false},
		{name: "nested where sees outer table", sql: "SELECT * FROM user WHERE EXISTS (SELECT 1 FROM book WHERE book.user_id = user.<caret>id)", found: true, kind: "column", def: "id", entity: "user"},
		{name: "nested where prefers inner table", sql: "SELECT * FROM user WHERE EXISTS (SELECT 1 FROM book WHERE <caret>id = 1)", found: true, kind: "column", def: "id", entity: "book"},
		{name: "nested where falls back to outer", sql: "SELECT * FROM user WHERE EXISTS (SELECT 1 FROM book WHERE <caret>email IS NULL)", found: true, kind: "column", def: "email", entity: "user"},
		{name: "from subquery cannot see sibling", sql: "SELECT * FROM user, (SELECT <caret>email FROM book)", found: false},

		// Compound selects
		{name: "order by sees first arm", sql: "SELECT id, name FROM user UNION SELECT id, title FROM book ORDER BY <caret>name", found: true, kind: "column", def: "name", entity: "user"},
		{name: "order by ignores second arm", sql: "SELECT id, name FROM user UNION SELECT id, title FROM book ORDER BY <caret>title", found: false},
		{name: "second arm sees own from", sql: "SELECT id FROM user UNION SELECT <caret>title FROM book", found: true, kind: "column", def: "title", entity: "book"},

		// DML
		{name: "delete where", sql: "DELETE FROM user WHERE <caret>email IS NULL", found: true, kind: "column", def: "email", entity: "user"},
		{name: "delete subquery sees target", sql: "DELETE FROM book WHERE user_id IN (SELECT id FROM user WHERE name = <caret>title)", found: true, kind: "column", def: "title", entity: "book"},
		{name: "delete target table", sql: "DELETE FROM <caret>user WHERE id = 1", found: true, kind: "table", def: "user", entity: "user"},
		{name: "update set column", sql: "UPDATE user SET <caret>name = 'x' WHERE id = 1", found: true, kind: "column", def: "name", entity: "user"},
		{name: "update where", sql: "UPDATE user SET name = 'x' WHERE <caret>id = 1", found: true, kind: "column", def: "id", entity: "user"},
		{name: "update alias", sql: "UPDATE user AS u SET name = u.<caret>email", found: true, kind: "column", def: "email", entity: "user"},
		{name: "update subquery sees target", sql: "UPDATE book SET title = (SELECT name FROM user WHERE user.id = <caret>user_id)", found: true, kind: "column", def: "user_id", entity: "book"},
		{name: "insert column list", sql: "INSERT INTO user (<caret>name) VALUES ('x')", found: true, kind: "column", def: "name", entity: "user"},
		{name: "insert values cannot see target", sql: "INSERT INTO user (name) VALUES (<caret>email)", found: false},
		{name: "insert select sees own from", sql: "INSERT INTO user (name) SELECT <caret>title FROM book", found: true, kind: "column", def: "title", entity: "book"},
		{name: "insert with cte", sql: "WITH w AS (SELECT title FROM book) INSERT INTO user (name) SELECT <caret>title FROM w", found: true, kind: "column", def: "title", entity: "book"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, node := setup(t, tt.sql)

			def, ok, err := r.Resolve(context.Background(), node)
			require.NoError(t, err)
			require.Equal(t, tt.found, ok, "resolved %v", def)
			if !tt.found {
				assert.Nil(t, def)
				return
			}
			assert.Equal(t, tt.kind, resolve.DescribeKind(def))
			assert.Equal(t, tt.def, def.Name())
			assert.Equal(t, tt.entity, entityOf(def))
		})
	}
}

func TestResolve_NonNameNode(t *testing.T) {
	r, node := setup(t, "SELECT <caret>1 FROM user")
	def, ok, err := r.Resolve(context.Background(), node)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, def)
}

func TestResolveColumn_Type(t *testing.T) {
	r, node := setup(t, "SELECT x AS y FROM t ORDER BY <caret>y")
	col, ok, err := r.ResolveColumn(context.Background(), node, ast.NoNode)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "TEXT", col.Type(), "alias keeps the aliased column's type")
}

func TestLocate(t *testing.T) {
	t.Run("cte lands on its name", func(t *testing.T) {
		r, node := setup(t, "WITH w AS (SELECT 1) SELECT * FROM <caret>w")
		def, ok, err := r.Resolve(context.Background(), node)
		require.NoError(t, err)
		require.True(t, ok)

		loc := r.Locate(def.Target())
		require.True(t, loc.InQuery)
		assert.Equal(t, 5, loc.Span.Start.Offset)
		assert.Equal(t, "query:1:6", loc.String())
	})

	t.Run("alias lands on the alias", func(t *testing.T) {
		r, node := setup(t, "SELECT name AS n FROM user ORDER BY <caret>n")
		def, ok, err := r.Resolve(context.Background(), node)
		require.NoError(t, err)
		require.True(t, ok)

		loc := r.Locate(def.Target())
		require.True(t, loc.InQuery)
		assert.Equal(t, "n", r.Tree().Source[loc.Span.Start.Offset:loc.Span.End.Offset])
	})

	t.Run("schema column lands in the schema", func(t *testing.T) {
		r, node := setup(t, "SELECT * FROM <caret>user")
		def, ok, err := r.Resolve(context.Background(), node)
		require.NoError(t, err)
		require.True(t, ok)

		loc := r.Locate(def.Target())
		assert.False(t, loc.InQuery)
		assert.Equal(t, "Entities.java:1:0", loc.String())
	})
}
