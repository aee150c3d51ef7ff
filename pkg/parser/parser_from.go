package parser

import (
	"strings"

	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/token"
)

// FROM clause parsing.
//
// Grammar:
//
//	from_clause      → FROM table_or_subquery (join_operator table_or_subquery [join_constraint])*
//	table_or_subquery → [schema '.'] name [[AS] alias] [INDEXED BY name | NOT INDEXED]
//	                  | '(' select_stmt ')' [[AS] alias]
//	join_operator    → ',' | [NATURAL] [LEFT [OUTER] | RIGHT [OUTER] | INNER | CROSS] JOIN
//	join_constraint  → ON expr | USING '(' name (',' name)* ')'
//
// The clause is kept flat: items, operators and constraints are siblings in
// source order, so a join constraint's parent is the FROM clause itself.

// parseFromClause parses a FROM clause.
func (p *Parser) parseFromClause() ast.NodeID {
	start := p.token.Pos
	p.expect(token.FROM)

	children := []ast.NodeID{p.parseTableOrSubquery()}
	for !p.failed() {
		opStart := p.token.Pos
		text, ok := p.parseJoinOperator()
		if !ok {
			break
		}
		op := p.b.Leaf(ast.KindJoinOperator, text, token.Span{Start: opStart, End: p.prevEnd})
		children = append(children, op, p.parseTableOrSubquery())

		switch {
		case p.check(token.ON):
			cs := p.token.Pos
			p.nextToken()
			children = append(children, p.node(ast.KindJoinConstraint, "ON", cs, p.parseExpression()))
		case p.check(token.USING):
			cs := p.token.Pos
			p.nextToken()
			p.expect(token.LPAREN)
			var names []ast.NodeID
			for !p.failed() {
				names = append(names, p.parseName(ast.KindColumnName, "column"))
				if !p.match(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN)
			children = append(children, p.node(ast.KindJoinConstraint, "USING", cs, names...))
		}
	}
	return p.node(ast.KindFromClause, "", start, children...)
}

// parseJoinOperator consumes a join operator and returns its normalized text.
func (p *Parser) parseJoinOperator() (string, bool) {
	if p.match(token.COMMA) {
		return ",", true
	}

	var words []string
	if p.check(token.NATURAL) {
		words = append(words, "NATURAL")
		p.nextToken()
	}
	switch p.token.Type {
	case token.LEFT, token.RIGHT:
		words = append(words, strings.ToUpper(p.token.Literal))
		p.nextToken()
		if p.match(token.OUTER) {
			words = append(words, "OUTER")
		}
	case token.INNER, token.CROSS:
		words = append(words, strings.ToUpper(p.token.Literal))
		p.nextToken()
	}

	if !p.check(token.JOIN) {
		if len(words) > 0 {
			p.unexpected("JOIN")
		}
		return "", false
	}
	p.nextToken()
	words = append(words, "JOIN")
	return strings.Join(words, " "), true
}

// parseTableOrSubquery parses one FROM item.
func (p *Parser) parseTableOrSubquery() ast.NodeID {
	start := p.token.Pos

	if p.match(token.LPAREN) {
		if !p.startsSubselect() {
			p.unexpected("SELECT, VALUES or WITH")
			return ast.NoNode
		}
		sub := p.parseSubselect()
		p.expect(token.RPAREN)
		alias := p.parseTableAlias()
		return p.node(ast.KindTableOrSubquery, "", start, sub, alias)
	}

	name := p.parseQualifiedName(ast.KindDefinedTableName, "table")
	alias := p.parseTableAlias()
	switch {
	case p.match(token.INDEXED):
		p.expect(token.BY)
		if isName(p.token) {
			p.nextToken()
		} else {
			p.unexpected("index name")
		}
	case p.check(token.NOT) && p.checkPeek(token.INDEXED):
		p.nextToken()
		p.nextToken()
	}
	return p.node(ast.KindTableOrSubquery, "", start, name, alias)
}

// parseTableAlias parses an optional [AS] alias.
func (p *Parser) parseTableAlias() ast.NodeID {
	if p.match(token.AS) {
		return p.parseName(ast.KindTableAlias, "alias")
	}
	if p.check(token.IDENT) {
		id := p.leaf(ast.KindTableAlias, p.token)
		p.nextToken()
		return id
	}
	return ast.NoNode
}

// parseSingleTableTarget parses the target of an INSERT, UPDATE or DELETE.
func (p *Parser) parseSingleTableTarget() ast.NodeID {
	start := p.token.Pos
	name := p.parseQualifiedName(ast.KindDefinedTableName, "table")
	alias := ast.NoNode
	if p.match(token.AS) {
		alias = p.parseName(ast.KindTableAlias, "alias")
	}
	return p.node(ast.KindSingleTableTarget, "", start, name, alias)
}
