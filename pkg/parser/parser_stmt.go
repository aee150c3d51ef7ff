package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/token"
)

// Statement parsing.
//
// Grammar:
//
//	file        → [statement] (';' [statement])*
//	statement   → [with_clause] (select_stmt | insert_stmt | update_stmt | delete_stmt)
//	with_clause → WITH [RECURSIVE] cte (',' cte)*
//	cte         → name ['(' name (',' name)* ')'] AS [[NOT] MATERIALIZED] '(' select_stmt ')'

// parseFile parses statements separated by semicolons.
func (p *Parser) parseFile() ast.NodeID {
	var stmts []ast.NodeID
	for !p.check(token.EOF) && !p.failed() {
		if p.match(token.SEMICOLON) {
			continue
		}
		stmts = append(stmts, p.parseStatement())
		if !p.check(token.EOF) && !p.check(token.SEMICOLON) && !p.failed() {
			p.unexpected("; or EOF")
		}
	}
	span := token.Span{
		Start: token.Position{Line: 1, Column: 1, Offset: 0},
		End:   p.token.Pos,
	}
	return p.b.Add(ast.KindFile, "", span, stmts...)
}

// parseStatement parses one statement with its optional WITH clause.
func (p *Parser) parseStatement() ast.NodeID {
	start := p.token.Pos
	with := ast.NoNode
	if p.check(token.WITH) {
		with = p.parseWithClause()
		if p.failed() {
			return ast.NoNode
		}
	}

	switch p.token.Type {
	case token.SELECT, token.VALUES:
		return p.parseSelectStmt(start, with)
	case token.INSERT, token.REPLACE:
		return p.parseInsert(start, with)
	case token.UPDATE:
		return p.parseUpdate(start, with)
	case token.DELETE:
		return p.parseDelete(start, with)
	}
	if p.check(token.ILLEGAL) {
		p.illegal()
	} else {
		p.addError(fmt.Sprintf(ErrExpectedStatement, p.token))
	}
	return ast.NoNode
}

// parseSubselect parses a select statement nested in parentheses, which may
// carry its own WITH clause.
func (p *Parser) parseSubselect() ast.NodeID {
	start := p.token.Pos
	with := ast.NoNode
	if p.check(token.WITH) {
		with = p.parseWithClause()
	}
	if !p.check(token.SELECT) && !p.check(token.VALUES) {
		p.unexpected("SELECT or VALUES")
		return ast.NoNode
	}
	return p.parseSelectStmt(start, with)
}

// startsSubselect reports whether the current token opens a select statement.
func (p *Parser) startsSubselect() bool {
	return p.check(token.SELECT) || p.check(token.VALUES) || p.check(token.WITH)
}

// parseWithClause parses WITH [RECURSIVE] cte, ...
func (p *Parser) parseWithClause() ast.NodeID {
	start := p.token.Pos
	p.expect(token.WITH)
	text := ""
	if p.match(token.RECURSIVE) {
		text = "RECURSIVE"
	}

	var ctes []ast.NodeID
	for !p.failed() {
		ctes = append(ctes, p.parseCTE())
		if !p.match(token.COMMA) {
			break
		}
	}
	return p.node(ast.KindWithClause, text, start, ctes...)
}

// parseCTE parses one common table expression.
func (p *Parser) parseCTE() ast.NodeID {
	start := p.token.Pos
	children := []ast.NodeID{p.parseName(ast.KindTableDefinitionName, "table")}

	if p.match(token.LPAREN) {
		for !p.failed() {
			children = append(children, p.parseName(ast.KindColumnDefinitionName, "column"))
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}

	p.expect(token.AS)
	switch {
	case p.check(token.NOT) && isMaterialized(p.peek):
		p.nextToken()
		p.nextToken()
	case isMaterialized(p.token):
		p.nextToken()
	}

	if !p.expect(token.LPAREN) {
		return ast.NoNode
	}
	children = append(children, p.parseSubselect())
	p.expect(token.RPAREN)
	return p.node(ast.KindWithClauseTable, "", start, children...)
}

func isMaterialized(tok token.Token) bool {
	return tok.Type == token.IDENT && !tok.Quoted && strings.EqualFold(tok.Literal, "materialized")
}

// parseSelectStmt parses a possibly compound select statement.
//
//	select_stmt → core ((UNION [ALL]|INTERSECT|EXCEPT) core)* [ORDER BY ...] [LIMIT ...]
func (p *Parser) parseSelectStmt(start token.Position, with ast.NodeID) ast.NodeID {
	children := []ast.NodeID{with, p.parseCore()}

	for !p.failed() {
		opTok := p.token
		var text string
		switch opTok.Type {
		case token.UNION:
			text = "UNION"
		case token.INTERSECT:
			text = "INTERSECT"
		case token.EXCEPT:
			text = "EXCEPT"
		}
		if text == "" {
			break
		}
		p.nextToken()
		if opTok.Type == token.UNION && p.match(token.ALL) {
			text = "UNION ALL"
		}
		op := p.b.Leaf(ast.KindCompoundOperator, text, token.Span{Start: opTok.Pos, End: p.prevEnd})
		children = append(children, op, p.parseCore())
	}

	if p.check(token.ORDER) && !p.failed() {
		children = append(children, p.parseOrderBy())
	}
	if p.check(token.LIMIT) && !p.failed() {
		children = append(children, p.parseLimit())
	}
	return p.node(ast.KindSelectStmt, "", start, children...)
}

// parseCore parses one arm of a select statement.
func (p *Parser) parseCore() ast.NodeID {
	if p.check(token.VALUES) {
		return p.parseValues()
	}
	return p.parseSelectCore()
}

// parseSelectCore parses SELECT ... [FROM ...] [WHERE ...] [GROUP BY ...] [HAVING ...].
func (p *Parser) parseSelectCore() ast.NodeID {
	start := p.token.Pos
	if !p.expect(token.SELECT) {
		return ast.NoNode
	}
	text := ""
	if p.match(token.DISTINCT) {
		text = "DISTINCT"
	} else {
		p.match(token.ALL)
	}

	children := []ast.NodeID{p.parseResultColumns()}
	if p.check(token.FROM) && !p.failed() {
		children = append(children, p.parseFromClause())
	}
	if p.check(token.WHERE) && !p.failed() {
		children = append(children, p.parseWhere())
	}
	if p.check(token.GROUP) && !p.failed() {
		gs := p.token.Pos
		p.nextToken()
		p.expect(token.BY)
		children = append(children, p.node(ast.KindGroupByClause, "", gs, p.parseExpressionList()...))
	}
	if p.check(token.HAVING) && !p.failed() {
		hs := p.token.Pos
		p.nextToken()
		children = append(children, p.node(ast.KindHavingClause, "", hs, p.parseExpression()))
	}
	return p.node(ast.KindSelectCore, text, start, children...)
}

// parseWhere parses WHERE expr.
func (p *Parser) parseWhere() ast.NodeID {
	start := p.token.Pos
	p.expect(token.WHERE)
	return p.node(ast.KindWhereClause, "", start, p.parseExpression())
}

// parseValues parses VALUES (expr, ...), (expr, ...).
func (p *Parser) parseValues() ast.NodeID {
	start := p.token.Pos
	p.expect(token.VALUES)

	var rows []ast.NodeID
	for !p.failed() {
		rs := p.token.Pos
		if !p.expect(token.LPAREN) {
			break
		}
		exprs := p.parseExpressionList()
		p.expect(token.RPAREN)
		rows = append(rows, p.node(ast.KindValueRow, "", rs, exprs...))
		if !p.match(token.COMMA) {
			break
		}
	}
	return p.node(ast.KindValues, "", start, rows...)
}

// parseResultColumns parses the select list.
func (p *Parser) parseResultColumns() ast.NodeID {
	start := p.token.Pos
	var cols []ast.NodeID
	for !p.failed() {
		cols = append(cols, p.parseResultColumn())
		if !p.match(token.COMMA) {
			break
		}
	}
	return p.node(ast.KindResultColumns, "", start, cols...)
}

// parseResultColumn parses `*`, `table.*`, or `expr [[AS] alias]`.
func (p *Parser) parseResultColumn() ast.NodeID {
	start := p.token.Pos

	if p.check(token.STAR) {
		star := p.leaf(ast.KindStar, p.token)
		p.nextToken()
		return p.node(ast.KindResultColumn, "", start, star)
	}

	if isName(p.token) && p.checkPeek(token.DOT) && p.peek2.Type == token.STAR {
		table := p.leaf(ast.KindSelectedTableName, p.token)
		p.nextToken()
		p.nextToken()
		star := p.leaf(ast.KindStar, p.token)
		p.nextToken()
		return p.node(ast.KindResultColumn, "", start, table, star)
	}

	expr := p.parseExpression()
	alias := ast.NoNode
	switch {
	case p.match(token.AS):
		if p.check(token.STRING) {
			alias = p.leaf(ast.KindColumnAlias, p.token)
			p.nextToken()
		} else {
			alias = p.parseName(ast.KindColumnAlias, "alias")
		}
	case p.check(token.IDENT):
		alias = p.leaf(ast.KindColumnAlias, p.token)
		p.nextToken()
	}
	return p.node(ast.KindResultColumn, "", start, expr, alias)
}

// parseOrderBy parses ORDER BY term [ASC|DESC] [NULLS FIRST|LAST], ...
func (p *Parser) parseOrderBy() ast.NodeID {
	start := p.token.Pos
	p.expect(token.ORDER)
	p.expect(token.BY)

	var terms []ast.NodeID
	for !p.failed() {
		ts := p.token.Pos
		expr := p.parseExpression()
		dir := ""
		if p.match(token.ASC) {
			dir = "ASC"
		} else if p.match(token.DESC) {
			dir = "DESC"
		}
		if isWord(p.token, "nulls") && (isWord(p.peek, "first") || isWord(p.peek, "last")) {
			p.nextToken()
			p.nextToken()
		}
		terms = append(terms, p.node(ast.KindOrderingTerm, dir, ts, expr))
		if !p.match(token.COMMA) {
			break
		}
	}
	return p.node(ast.KindOrderByClause, "", start, terms...)
}

// parseLimit parses LIMIT expr [(OFFSET|,) expr].
func (p *Parser) parseLimit() ast.NodeID {
	start := p.token.Pos
	p.expect(token.LIMIT)
	children := []ast.NodeID{p.parseExpression()}
	if p.match(token.OFFSET) || p.match(token.COMMA) {
		children = append(children, p.parseExpression())
	}
	return p.node(ast.KindLimitClause, "", start, children...)
}

func isWord(tok token.Token, word string) bool {
	return tok.Type == token.IDENT && !tok.Quoted && strings.EqualFold(tok.Literal, word)
}
