package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/token"
)

// Expression parsing using precedence climbing.
//
// Precedence levels follow SQLite, lowest first:
//
//	precOr         OR
//	precAnd        AND
//	precNot        NOT (prefix)
//	precEquality   = == != <> IS IN LIKE GLOB MATCH REGEXP BETWEEN ISNULL NOTNULL
//	precComparison < <= > >=
//	precBitwise    & | << >>
//	precAddition   + -
//	precMultiply   * / %
//	precConcat     ||
//	precCollate    COLLATE
//	precUnary      - + ~ (prefix)
const (
	precNone = iota
	precOr
	precAnd
	precNot
	precEquality
	precComparison
	precBitwise
	precAddition
	precMultiply
	precConcat
	precCollate
	precUnary
)

// parseExpression parses an expression.
func (p *Parser) parseExpression() ast.NodeID {
	return p.parseExpressionWithPrecedence(precOr)
}

// parseExpressionList parses a comma-separated list of expressions.
func (p *Parser) parseExpressionList() []ast.NodeID {
	var exprs []ast.NodeID
	for !p.failed() {
		exprs = append(exprs, p.parseExpression())
		if !p.match(token.COMMA) {
			break
		}
	}
	return exprs
}

// parseExpressionWithPrecedence parses operators binding at least as tight
// as minPrecedence.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) ast.NodeID {
	left := p.parsePrefixExpr()
	for !p.failed() {
		prec := p.infixPrecedence()
		if prec == precNone || prec < minPrecedence {
			break
		}
		left = p.parseInfixExpr(left, prec)
	}
	return left
}

// parsePrefixExpr parses unary operators and primary expressions.
func (p *Parser) parsePrefixExpr() ast.NodeID {
	start := p.token.Pos
	switch p.token.Type {
	case token.NOT:
		p.nextToken()
		operand := p.parseExpressionWithPrecedence(precNot)
		return p.node(ast.KindUnaryExpr, "NOT", start, operand)
	case token.MINUS, token.PLUS, token.TILDE:
		op := p.token.Literal
		p.nextToken()
		operand := p.parseExpressionWithPrecedence(precUnary)
		return p.node(ast.KindUnaryExpr, op, start, operand)
	}
	return p.parsePrimary()
}

// infixPrecedence returns the precedence of the current token as an infix
// or postfix operator, or precNone.
func (p *Parser) infixPrecedence() int {
	switch p.token.Type {
	case token.OR:
		return precOr
	case token.AND:
		return precAnd
	case token.EQ, token.NE, token.IS, token.IN, token.LIKE, token.GLOB, token.MATCH,
		token.REGEXP, token.BETWEEN, token.ISNULL, token.NOTNULL:
		return precEquality
	case token.NOT:
		switch p.peek.Type {
		case token.IN, token.LIKE, token.GLOB, token.MATCH, token.REGEXP, token.BETWEEN, token.NULL:
			return precEquality
		}
		return precNone
	case token.LT, token.LE, token.GT, token.GE:
		return precComparison
	case token.AMP, token.PIPE, token.SHL, token.SHR:
		return precBitwise
	case token.PLUS, token.MINUS:
		return precAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return precMultiply
	case token.DPIPE:
		return precConcat
	case token.COLLATE:
		return precCollate
	}
	return precNone
}

// parseInfixExpr parses the operator at the current token applied to left.
func (p *Parser) parseInfixExpr(left ast.NodeID, prec int) ast.NodeID {
	start := p.b.Span(left).Start

	switch p.token.Type {
	case token.NOT:
		p.nextToken()
		if p.match(token.NULL) {
			return p.node(ast.KindIsExpr, "NOTNULL", start, left)
		}
		return p.parseNegatable(left, start, true)

	case token.IN, token.LIKE, token.GLOB, token.MATCH, token.REGEXP, token.BETWEEN:
		return p.parseNegatable(left, start, false)

	case token.ISNULL, token.NOTNULL:
		text := strings.ToUpper(p.token.Literal)
		p.nextToken()
		return p.node(ast.KindIsExpr, text, start, left)

	case token.IS:
		p.nextToken()
		text := "IS"
		if p.match(token.NOT) {
			text = "IS NOT"
		}
		if p.match(token.DISTINCT) {
			p.expect(token.FROM)
			text += " DISTINCT FROM"
		}
		right := p.parseExpressionWithPrecedence(precEquality + 1)
		return p.node(ast.KindIsExpr, text, start, left, right)

	case token.COLLATE:
		p.nextToken()
		if !isName(p.token) && !p.check(token.STRING) {
			p.unexpected("collation name")
			return left
		}
		collation := p.token.Literal
		p.nextToken()
		return p.node(ast.KindCollateExpr, collation, start, left)
	}

	op := strings.ToUpper(p.token.Literal)
	p.nextToken()
	// Right operand binds tighter, so operators are left-associative.
	right := p.parseExpressionWithPrecedence(prec + 1)
	return p.node(ast.KindBinaryExpr, op, start, left, right)
}

// parseNegatable parses [NOT] IN / BETWEEN / LIKE-family operators.
func (p *Parser) parseNegatable(left ast.NodeID, start token.Position, not bool) ast.NodeID {
	prefix := ""
	if not {
		prefix = "NOT "
	}
	opTok := p.token
	p.nextToken()

	switch opTok.Type {
	case token.IN:
		return p.parseInExpr(left, start, prefix+"IN")

	case token.BETWEEN:
		// Bounds are parsed above AND so the separator is not swallowed.
		low := p.parseExpressionWithPrecedence(precEquality + 1)
		p.expect(token.AND)
		high := p.parseExpressionWithPrecedence(precEquality + 1)
		return p.node(ast.KindBetweenExpr, prefix+"BETWEEN", start, left, low, high)

	case token.LIKE, token.GLOB, token.MATCH, token.REGEXP:
		pattern := p.parseExpressionWithPrecedence(precEquality + 1)
		children := []ast.NodeID{left, pattern}
		if p.match(token.ESCAPE) {
			children = append(children, p.parseExpressionWithPrecedence(precEquality+1))
		}
		return p.node(ast.KindLikeExpr, prefix+strings.ToUpper(opTok.Literal), start, children...)
	}

	p.unexpected("IN, BETWEEN or LIKE")
	return left
}

// parseInExpr parses the right side of IN: a subquery, a list, or a table.
func (p *Parser) parseInExpr(left ast.NodeID, start token.Position, text string) ast.NodeID {
	if !p.check(token.LPAREN) {
		table := p.parseQualifiedName(ast.KindDefinedTableName, "table")
		return p.node(ast.KindInExpr, text, start, left, table)
	}
	p.nextToken()

	children := []ast.NodeID{left}
	switch {
	case p.startsSubselect():
		children = append(children, p.parseSubselect())
	case p.check(token.RPAREN):
	default:
		children = append(children, p.parseExpressionList()...)
	}
	p.expect(token.RPAREN)
	return p.node(ast.KindInExpr, text, start, children...)
}

// parsePrimary parses literals, names, calls and parenthesized forms.
func (p *Parser) parsePrimary() ast.NodeID {
	start := p.token.Pos
	tok := p.token

	switch tok.Type {
	case token.NUMBER, token.STRING, token.BLOB, token.NULL, token.TRUE, token.FALSE:
		p.nextToken()
		return p.leaf(ast.KindLiteral, tok)

	case token.PARAM:
		p.nextToken()
		return p.leaf(ast.KindBindParameter, tok)

	case token.LPAREN:
		p.nextToken()
		if p.startsSubselect() {
			sub := p.parseSubselect()
			p.expect(token.RPAREN)
			return p.node(ast.KindSubqueryExpr, "", start, sub)
		}
		exprs := p.parseExpressionList()
		p.expect(token.RPAREN)
		return p.node(ast.KindParenExpr, "", start, exprs...)

	case token.CASE:
		return p.parseCaseExpr()

	case token.CAST:
		return p.parseCastExpr()

	case token.EXISTS:
		p.nextToken()
		if !p.expect(token.LPAREN) {
			return ast.NoNode
		}
		sub := p.parseSubselect()
		p.expect(token.RPAREN)
		return p.node(ast.KindExistsExpr, "", start, sub)

	case token.ILLEGAL:
		p.illegal()
		return ast.NoNode
	}

	if isName(tok) {
		if p.checkPeek(token.LPAREN) {
			return p.parseFuncCall()
		}
		return p.parseColumnRef()
	}

	p.addError(fmt.Sprintf(ErrExpectedExpression, tok))
	return ast.NoNode
}

// parseColumnRef parses `col`, `table.col` or `schema.table.col`.
func (p *Parser) parseColumnRef() ast.NodeID {
	start := p.token.Pos
	first := p.token
	p.nextToken()
	if !p.check(token.DOT) {
		return p.node(ast.KindColumnRefExpr, "", start, p.leaf(ast.KindColumnName, first))
	}
	p.nextToken()

	table := first
	if isName(p.token) && p.checkPeek(token.DOT) {
		table = p.token
		p.nextToken()
		p.nextToken()
	}
	qualifier := p.leaf(ast.KindSelectedTableName, table)
	column := p.parseName(ast.KindColumnName, "column")
	return p.node(ast.KindColumnRefExpr, "", start, qualifier, column)
}

// parseFuncCall parses name '(' [DISTINCT] args | '*' ')'.
func (p *Parser) parseFuncCall() ast.NodeID {
	start := p.token.Pos
	name := p.token.Literal
	p.nextToken()
	p.expect(token.LPAREN)

	var args []ast.NodeID
	switch {
	case p.check(token.STAR):
		args = append(args, p.leaf(ast.KindLiteral, p.token))
		p.nextToken()
	case p.check(token.RPAREN):
	default:
		p.match(token.DISTINCT)
		args = p.parseExpressionList()
	}
	p.expect(token.RPAREN)
	return p.node(ast.KindFuncCall, name, start, args...)
}

// parseCaseExpr parses CASE [operand] (WHEN expr THEN expr)+ [ELSE expr] END.
func (p *Parser) parseCaseExpr() ast.NodeID {
	start := p.token.Pos
	p.expect(token.CASE)

	var children []ast.NodeID
	if !p.check(token.WHEN) {
		children = append(children, p.parseExpression())
	}
	for p.match(token.WHEN) && !p.failed() {
		children = append(children, p.parseExpression())
		p.expect(token.THEN)
		children = append(children, p.parseExpression())
	}
	if p.match(token.ELSE) {
		children = append(children, p.parseExpression())
	}
	p.expect(token.END)
	return p.node(ast.KindCaseExpr, "", start, children...)
}

// parseCastExpr parses CAST '(' expr AS type_name ')'.
func (p *Parser) parseCastExpr() ast.NodeID {
	start := p.token.Pos
	p.expect(token.CAST)
	p.expect(token.LPAREN)
	expr := p.parseExpression()
	p.expect(token.AS)

	ts := p.token.Pos
	var words []string
	for isName(p.token) {
		words = append(words, p.token.Literal)
		p.nextToken()
	}
	if len(words) == 0 {
		p.unexpected("type name")
		return ast.NoNode
	}
	// Size arguments such as VARCHAR(10) or DECIMAL(10, 2)
	if p.match(token.LPAREN) {
		for !p.failed() && !p.check(token.RPAREN) && !p.check(token.EOF) {
			p.nextToken()
		}
		p.expect(token.RPAREN)
	}
	typeName := p.b.Leaf(ast.KindTypeName, strings.Join(words, " "), token.Span{Start: ts, End: p.prevEnd})
	p.expect(token.RPAREN)
	return p.node(ast.KindCastExpr, "", start, expr, typeName)
}
