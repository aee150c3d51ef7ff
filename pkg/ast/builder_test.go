package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlscope/pkg/token"
)

func span(start, end int) token.Span {
	return token.Span{
		Start: token.Position{Line: 1, Column: start + 1, Offset: start},
		End:   token.Position{Line: 1, Column: end + 1, Offset: end},
	}
}

// buildSelect builds the tree of "SELECT a FROM t" by hand.
func buildSelect(t *testing.T) *Tree {
	t.Helper()
	b := NewBuilder("SELECT a FROM t")
	name := b.Leaf(KindColumnName, "a", span(7, 8))
	ref := b.Add(KindColumnRefExpr, "", token.Span{}, NoNode, name)
	rc := b.Add(KindResultColumn, "", token.Span{}, ref)
	rcs := b.Add(KindResultColumns, "", token.Span{}, rc)
	tbl := b.Leaf(KindDefinedTableName, "t", span(14, 15))
	item := b.Add(KindTableOrSubquery, "", token.Span{}, tbl)
	from := b.Add(KindFromClause, "", span(9, 15), item)
	core := b.Add(KindSelectCore, "", span(0, 15), rcs, from)
	stmt := b.Add(KindSelectStmt, "", token.Span{}, core)
	file := b.Add(KindFile, "", token.Span{}, stmt)

	tree, err := b.Finish(file)
	require.NoError(t, err)
	return tree
}

func TestBuilder_Add(t *testing.T) {
	tree := buildSelect(t)

	assert.Equal(t, 10, tree.Len())
	assert.Equal(t, KindFile, tree.Kind(tree.Root()))
	assert.Equal(t, NoNode, tree.Parent(tree.Root()))

	refs := tree.FindAll(KindColumnRefExpr, "")
	require.Len(t, refs, 1)
	assert.Len(t, tree.Children(refs[0]), 1, "NoNode children are skipped")
	assert.Equal(t, span(7, 8), tree.Span(refs[0]), "span covers children when not given")

	stmt := tree.Statements(tree.Root())[0]
	assert.Equal(t, span(0, 15), tree.Span(stmt))
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("reparent", func(t *testing.T) {
		b := NewBuilder("x")
		leaf := b.Leaf(KindLiteral, "x", span(0, 1))
		b.Add(KindParenExpr, "", token.Span{}, leaf)
		root := b.Add(KindFile, "", token.Span{}, leaf)
		_, err := b.Finish(root)
		assert.ErrorIs(t, err, ErrReparent)
	})

	t.Run("root with parent", func(t *testing.T) {
		b := NewBuilder("x")
		leaf := b.Leaf(KindLiteral, "x", span(0, 1))
		b.Add(KindFile, "", token.Span{}, leaf)
		_, err := b.Finish(leaf)
		assert.ErrorIs(t, err, ErrInvalidRoot)
	})

	t.Run("root out of range", func(t *testing.T) {
		b := NewBuilder("")
		_, err := b.Finish(3)
		assert.ErrorIs(t, err, ErrInvalidRoot)
	})

	t.Run("finish twice", func(t *testing.T) {
		b := NewBuilder("")
		root := b.Add(KindFile, "", token.Span{})
		_, err := b.Finish(root)
		require.NoError(t, err)
		_, err = b.Finish(root)
		assert.ErrorIs(t, err, ErrFinished)
	})

	t.Run("adopt into owned node", func(t *testing.T) {
		// a <- b <- c; a adopting c would close a parent cycle.
		b := NewBuilder("x")
		col := b.Leaf(KindColumnName, "x", span(0, 1))
		a := b.Add(KindColumnRefExpr, "", token.Span{})
		b.Adopt(a, col)
		bb := b.Add(KindParenExpr, "", token.Span{})
		b.Adopt(bb, a)
		c := b.Add(KindParenExpr, "", token.Span{})
		b.Adopt(c, bb)
		b.Adopt(a, c)
		root := b.Add(KindFile, "", token.Span{})

		_, err := b.Finish(root)
		assert.ErrorIs(t, err, ErrReparent)
	})

	t.Run("child out of range", func(t *testing.T) {
		b := NewBuilder("")
		root := b.Add(KindFile, "", token.Span{}, 7)
		_, err := b.Finish(root)
		assert.Error(t, err)
	})
}

func TestBuilder_Adopt(t *testing.T) {
	b := NewBuilder("a, b")
	list := b.Add(KindGroupByClause, "", span(0, 1))
	first := b.Leaf(KindLiteral, "a", span(0, 1))
	second := b.Leaf(KindLiteral, "b", span(3, 4))
	b.Adopt(list, first, NoNode, second)
	root := b.Add(KindFile, "", token.Span{}, list)

	tree, err := b.Finish(root)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{first, second}, tree.Children(list))
	assert.Equal(t, span(0, 4), tree.Span(list))
	assert.Equal(t, list, tree.Parent(second))
}

func TestBuilder_Params(t *testing.T) {
	b := NewBuilder("?")
	b.SetParams(Param{Name: "id", Type: "long"})
	root := b.Add(KindFile, "", span(0, 1))
	tree, err := b.Finish(root)
	require.NoError(t, err)
	assert.Equal(t, []Param{{Name: "id", Type: "long"}}, tree.Params)
	assert.Equal(t, "?", tree.Source)
}
