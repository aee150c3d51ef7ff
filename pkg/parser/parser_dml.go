package parser

import (
	"strings"

	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/token"
)

// DML parsing.
//
// Grammar:
//
//	insert_stmt → (INSERT [OR conflict] | REPLACE) INTO target ['(' name (',' name)* ')']
//	              (select_stmt | DEFAULT VALUES)
//	update_stmt → UPDATE [OR conflict] target SET set_item (',' set_item)* [WHERE expr]
//	set_item    → (name | '(' name (',' name)* ')') '=' expr
//	delete_stmt → DELETE FROM target [WHERE expr]
//	conflict    → ROLLBACK | ABORT | REPLACE | FAIL | IGNORE

// parseConflict parses the optional OR <resolution> after INSERT/UPDATE.
func (p *Parser) parseConflict(verb string) string {
	if !p.match(token.OR) {
		return verb
	}
	switch p.token.Type {
	case token.ROLLBACK, token.ABORT, token.REPLACE, token.FAIL, token.IGNORE:
		text := verb + " OR " + strings.ToUpper(p.token.Literal)
		p.nextToken()
		return text
	}
	p.unexpected("ROLLBACK, ABORT, REPLACE, FAIL or IGNORE")
	return verb
}

// parseInsert parses an INSERT or REPLACE statement.
func (p *Parser) parseInsert(start token.Position, with ast.NodeID) ast.NodeID {
	var text string
	if p.match(token.REPLACE) {
		text = "REPLACE"
	} else {
		p.expect(token.INSERT)
		text = p.parseConflict("INSERT")
	}
	if !p.expect(token.INTO) {
		return ast.NoNode
	}

	children := []ast.NodeID{with, p.parseSingleTableTarget()}

	if p.check(token.LPAREN) && !p.failed() {
		cs := p.token.Pos
		p.nextToken()
		var names []ast.NodeID
		for !p.failed() {
			names = append(names, p.parseName(ast.KindColumnName, "column"))
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
		children = append(children, p.node(ast.KindInsertColumns, "", cs, names...))
	}

	switch {
	case p.failed():
	case p.check(token.DEFAULT):
		ds := p.token.Pos
		p.nextToken()
		p.expect(token.VALUES)
		children = append(children, p.node(ast.KindDefaultValues, "DEFAULT VALUES", ds))
	default:
		children = append(children, p.parseSubselect())
	}
	return p.node(ast.KindInsertStmt, text, start, children...)
}

// parseUpdate parses an UPDATE statement.
func (p *Parser) parseUpdate(start token.Position, with ast.NodeID) ast.NodeID {
	p.expect(token.UPDATE)
	text := p.parseConflict("UPDATE")

	children := []ast.NodeID{with, p.parseSingleTableTarget()}
	if !p.expect(token.SET) {
		return ast.NoNode
	}

	for !p.failed() {
		children = append(children, p.parseUpdateSet())
		if !p.match(token.COMMA) {
			break
		}
	}

	if p.check(token.WHERE) && !p.failed() {
		children = append(children, p.parseWhere())
	}
	return p.node(ast.KindUpdateStmt, text, start, children...)
}

// parseUpdateSet parses `col = expr` or `(a, b) = expr`.
func (p *Parser) parseUpdateSet() ast.NodeID {
	start := p.token.Pos
	var children []ast.NodeID
	if p.match(token.LPAREN) {
		for !p.failed() {
			children = append(children, p.parseName(ast.KindColumnName, "column"))
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	} else {
		children = append(children, p.parseName(ast.KindColumnName, "column"))
	}
	p.expect(token.EQ)
	children = append(children, p.parseExpression())
	return p.node(ast.KindUpdateSet, "", start, children...)
}

// parseDelete parses a DELETE statement.
func (p *Parser) parseDelete(start token.Position, with ast.NodeID) ast.NodeID {
	p.expect(token.DELETE)
	if !p.expect(token.FROM) {
		return ast.NoNode
	}
	children := []ast.NodeID{with, p.parseSingleTableTarget()}
	if p.check(token.WHERE) && !p.failed() {
		children = append(children, p.parseWhere())
	}
	return p.node(ast.KindDeleteStmt, "", start, children...)
}
