// Package resolve answers which table or column a name in a query refers to,
// and which names are visible at a position.
//
// A Resolver is a pure function of a tree, a schema snapshot and a node:
// every call builds its definitions fresh, owns its traversal stack and its
// set of tables being flattened, and may run concurrently with other calls
// on the same Resolver.
//
// Visibility follows SQL's scoping rules rather than text order:
//
//   - a select core sees its FROM items and, outside the select list, its
//     own result column aliases;
//   - ORDER BY of a compound select sees only the first arm;
//   - a join constraint sees every item of its FROM clause;
//   - UPDATE and DELETE see their target, INSERT only from its column list;
//   - nested queries see enclosing scopes, nearest first.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/schema"
	"github.com/leapstack-labs/sqlscope/pkg/token"
)

// ErrCancelled is returned when the caller's context ends during a walk.
// It is never reported as "not found": a cancelled call has no answer.
var ErrCancelled = errors.New("resolution cancelled")

// Mode selects which scope a table name is looked up in.
type Mode uint8

const (
	// Selected is expression position: `t` in `t.col` or `t.*`.
	Selected Mode = iota
	// Defined is FROM or DML target position: CTEs and schema entities.
	Defined
)

func (m Mode) String() string {
	if m == Defined {
		return "defined"
	}
	return "selected"
}

// Resolver resolves names in one tree against one schema snapshot.
type Resolver struct {
	tree   *ast.Tree
	schema schema.Provider
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for debug events. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a resolver. provider may be nil for queries that only use
// CTEs and subqueries.
func New(tree *ast.Tree, provider schema.Provider, opts ...Option) *Resolver {
	r := &Resolver{
		tree:   tree,
		schema: provider,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tree returns the tree the resolver works on.
func (r *Resolver) Tree() *ast.Tree { return r.tree }

func (r *Resolver) newQuery(ctx context.Context) *query {
	if ctx == nil {
		ctx = context.Background()
	}
	return &query{ctx: ctx, tree: r.tree, schema: r.schema}
}

// finish reports the call's cancellation error, if any.
func (r *Resolver) finish(q *query, op string, node ast.NodeID) error {
	if q.err == nil {
		return nil
	}
	r.logger.Debug("resolution cancelled",
		slog.String("op", op),
		slog.Int("node", int(node)),
		slog.String("kind", r.tree.Kind(node).String()),
		slog.Any("error", q.err))
	return q.err
}

// ResolveColumn resolves a column name. qualifier is the table name in
// `t.col`, or ast.NoNode.
func (r *Resolver) ResolveColumn(ctx context.Context, name, qualifier ast.NodeID) (Column, bool, error) {
	q := r.newQuery(ctx)
	col, ok := q.resolveColumn(name, qualifier, NodeSet{})
	if err := r.finish(q, "ResolveColumn", name); err != nil {
		return nil, false, err
	}
	return col, ok, nil
}

// ResolveTable resolves a table name in the given scope.
func (r *Resolver) ResolveTable(ctx context.Context, name ast.NodeID, mode Mode) (Table, bool, error) {
	q := r.newQuery(ctx)
	tbl, ok := q.resolveTable(name, mode)
	if err := r.finish(q, "ResolveTable", name); err != nil {
		return nil, false, err
	}
	return tbl, ok, nil
}

// ColumnCandidates are the column names visible at a position.
type ColumnCandidates struct {
	Columns []Column
	// Tables is the number of tables that were flattened. Zero means
	// nothing was in scope, e.g. a select without a FROM clause yet.
	Tables int
}

// CandidateColumns lists the columns that could be written at name, one
// per distinct name, nearest scope first.
func (r *Resolver) CandidateColumns(ctx context.Context, name, qualifier ast.NodeID) (ColumnCandidates, error) {
	q := r.newQuery(ctx)
	collect := NewCollectUniqueNames[Column]()
	var out ColumnCandidates

	if qualifier != ast.NoNode {
		if tbl, ok := q.resolveTable(qualifier, Selected); ok {
			out.Tables = 1
			tbl.ProcessColumns(collect, NodeSet{})
		}
	} else {
		all := &AllColumns{Delegate: collect, InProgress: NodeSet{}}
		q.walkSelectable(name, all)
		out.Tables = all.Tables
	}

	if err := r.finish(q, "CandidateColumns", name); err != nil {
		return ColumnCandidates{}, err
	}
	out.Columns = collect.Items()
	return out, nil
}

// CandidateTables lists the tables that could be written at name. In a
// DML target position views, CTEs and subqueries are left out.
func (r *Resolver) CandidateTables(ctx context.Context, name ast.NodeID, mode Mode) ([]Table, error) {
	q := r.newQuery(ctx)
	collect := NewCollectUniqueNames[Table]()
	var p Processor[Table] = collect
	if mode == Defined && r.tree.Kind(r.tree.Parent(name)) == ast.KindSingleTableTarget {
		p = IgnoreViews{Delegate: collect}
	}
	q.walk(name, mode, p)
	if err := r.finish(q, "CandidateTables", name); err != nil {
		return nil, err
	}
	return collect.Items(), nil
}

// Resolve resolves any name node: a column name, a table name in either
// position, or a bind parameter. Other nodes resolve to nothing.
func (r *Resolver) Resolve(ctx context.Context, node ast.NodeID) (Definition, bool, error) {
	t := r.tree
	switch t.Kind(node) {
	case ast.KindColumnRefExpr:
		return r.Resolve(ctx, t.ColumnRefName(node))
	case ast.KindColumnName:
		col, ok, err := r.ResolveColumn(ctx, node, t.Qualifier(node))
		return definitionOf(col, ok, err)
	case ast.KindSelectedTableName:
		tbl, ok, err := r.ResolveTable(ctx, node, Selected)
		return definitionOf(tbl, ok, err)
	case ast.KindDefinedTableName:
		tbl, ok, err := r.ResolveTable(ctx, node, Defined)
		return definitionOf(tbl, ok, err)
	case ast.KindBindParameter:
		p, ok, err := r.ResolveParameter(ctx, node)
		return definitionOf(p, ok, err)
	}
	return nil, false, nil
}

func definitionOf[T Definition](d T, ok bool, err error) (Definition, bool, error) {
	if err != nil || !ok {
		return nil, false, err
	}
	return d, true, nil
}

// Candidates lists what could be written at a name node, in the scope the
// node's kind implies.
func (r *Resolver) Candidates(ctx context.Context, node ast.NodeID) ([]Definition, error) {
	t := r.tree
	switch t.Kind(node) {
	case ast.KindColumnRefExpr:
		return r.Candidates(ctx, t.ColumnRefName(node))
	case ast.KindColumnName:
		c, err := r.CandidateColumns(ctx, node, t.Qualifier(node))
		return definitionsOf(c.Columns), err
	case ast.KindSelectedTableName:
		tables, err := r.CandidateTables(ctx, node, Selected)
		return definitionsOf(tables), err
	case ast.KindDefinedTableName:
		tables, err := r.CandidateTables(ctx, node, Defined)
		return definitionsOf(tables), err
	case ast.KindBindParameter:
		params, err := r.CandidateParameters(ctx, node)
		return definitionsOf(params), err
	}
	return nil, nil
}

func definitionsOf[T Definition](items []T) []Definition {
	if len(items) == 0 {
		return nil
	}
	out := make([]Definition, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// ExpandResultColumns returns the output columns of a select statement,
// with wildcards flattened. Unnamed expression columns are included.
func (r *Resolver) ExpandResultColumns(ctx context.Context, stmt ast.NodeID) ([]Column, error) {
	if r.tree.Kind(stmt) != ast.KindSelectStmt {
		return nil, nil
	}
	q := r.newQuery(ctx)
	collect := &CollectAll[Column]{}
	(&SubqueryTable{q: q, stmt: stmt}).ProcessColumns(collect, NodeSet{})
	if err := r.finish(q, "ExpandResultColumns", stmt); err != nil {
		return nil, err
	}
	return collect.Items, nil
}

// TableColumns lists the columns of a table returned by an earlier call.
func (r *Resolver) TableColumns(ctx context.Context, tbl Table) ([]Column, error) {
	q := r.newQuery(ctx)
	collect := &CollectAll[Column]{}
	rebindTable(q, tbl).ProcessColumns(collect, NodeSet{})
	if err := r.finish(q, "TableColumns", tbl.DefiningNode()); err != nil {
		return nil, err
	}
	return collect.Items, nil
}

// Location is a resolved navigation target in printable form.
type Location struct {
	// InQuery is true when Span points into the query text.
	InQuery bool
	Span    token.Span
	Schema  schema.Location
}

func (l Location) String() string {
	if l.InQuery {
		return fmt.Sprintf("query:%s", l.Span.Start)
	}
	return l.Schema.String()
}

// Locate turns a target into a location.
func (r *Resolver) Locate(target Target) Location {
	if target.InQuery() {
		return Location{InQuery: true, Span: r.tree.Span(target.Node)}
	}
	return Location{Schema: target.Location}
}
