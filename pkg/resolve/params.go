package resolve

import (
	"context"
	"strconv"
	"strings"

	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/schema"
)

// Parameter is an argument of the host call a bind parameter refers to.
type Parameter struct {
	Param ast.Param
	// Index is the 1-based position of the argument in the host call.
	Index int
}

func (p *Parameter) Name() string             { return p.Param.Name }
func (p *Parameter) DefiningNode() ast.NodeID { return ast.NoNode }
func (p *Parameter) Target() Target           { return schemaTarget(schema.Location{URI: p.Param.Source}) }
func (p *Parameter) Type() string             { return p.Param.Type }

// processParameters feeds p the host call arguments in declaration order.
func (q *query) processParameters(p Processor[*Parameter]) Action {
	for i, param := range q.tree.Params {
		if q.cancelled() {
			return Stop
		}
		if p.Process(&Parameter{Param: param, Index: i + 1}) == Stop {
			return Stop
		}
	}
	return Continue
}

// ResolveParameter resolves a bind parameter. Named parameters (:name,
// @name, $name) match arguments by name; positional ones (?, ?NNN) by
// index, with a bare ? taking the next index after the largest one used
// before it.
func (r *Resolver) ResolveParameter(ctx context.Context, param ast.NodeID) (*Parameter, bool, error) {
	q := r.newQuery(ctx)
	if q.cancelled() {
		return nil, false, r.finish(q, "ResolveParameter", param)
	}

	text := r.tree.Text(param)
	if strings.HasPrefix(text, "?") {
		idx := r.positionalIndex(param)
		if idx < 1 || idx > len(r.tree.Params) {
			return nil, false, nil
		}
		return &Parameter{Param: r.tree.Params[idx-1], Index: idx}, true, nil
	}
	if len(text) < 2 {
		return nil, false, nil
	}

	find := NewFindByName[*Parameter](text[1:])
	q.processParameters(find)
	if err := r.finish(q, "ResolveParameter", param); err != nil {
		return nil, false, err
	}
	p, ok := find.Result()
	return p, ok, nil
}

// CandidateParameters lists the host call arguments a bind parameter may
// refer to.
func (r *Resolver) CandidateParameters(ctx context.Context, param ast.NodeID) ([]*Parameter, error) {
	q := r.newQuery(ctx)
	collect := NewCollectUniqueNames[*Parameter]()
	q.processParameters(collect)
	if err := r.finish(q, "CandidateParameters", param); err != nil {
		return nil, err
	}
	return collect.Items(), nil
}

// positionalIndex numbers positional parameters the way SQLite does.
func (r *Resolver) positionalIndex(param ast.NodeID) int {
	highest := 0
	for _, p := range r.tree.FindAll(ast.KindBindParameter, "") {
		text := r.tree.Text(p)
		if !strings.HasPrefix(text, "?") {
			continue
		}
		idx := highest + 1
		if len(text) > 1 {
			n, err := strconv.Atoi(text[1:])
			if err != nil {
				return 0
			}
			idx = n
		}
		if idx > highest {
			highest = idx
		}
		if p == param {
			return idx
		}
	}
	return 0
}
