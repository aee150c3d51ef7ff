// Package parser turns embedded query text into an *ast.Tree.
//
// # Usage
//
//	tree, err := parser.Parse("SELECT name FROM user WHERE id = :id",
//	    parser.WithParams(ast.Param{Name: "id", Type: "long"}))
//	if err != nil {
//	    // handle error
//	}
//
// # Grammar Overview
//
// The parser implements a recursive descent parser for the SQLite flavour
// used in annotated data-access code:
//
//	file          → statement (';' statement)*
//	statement     → [WITH [RECURSIVE] cte_list] (select_stmt | insert | update | delete)
//	select_stmt   → select_core ((UNION [ALL]|INTERSECT|EXCEPT) select_core)*
//	                [ORDER BY order_list] [LIMIT expr [(OFFSET|,) expr]]
//	select_core   → SELECT [DISTINCT|ALL] result_columns [FROM from_clause]
//	                [WHERE expr] [GROUP BY expr_list] [HAVING expr]
//	              | VALUES '(' expr_list ')' (',' '(' expr_list ')')*
//
// See each file for detailed grammar rules for that section.
package parser

import (
	"fmt"

	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/token"
)

// Parser parses query text into an arena tree.
type Parser struct {
	lexer   *Lexer
	b       *ast.Builder
	token   token.Token // current token
	peek    token.Token // lookahead token
	peek2   token.Token // second lookahead token
	prevEnd token.Position
	errors  []error
	params  []ast.Param
}

// Option configures a Parser.
type Option func(*Parser)

// WithParams attaches the parameters of the host call the query belongs
// to. Bind parameters in the query resolve against them.
func WithParams(params ...ast.Param) Option {
	return func(p *Parser) {
		p.params = append(p.params, params...)
	}
}

// NewParser creates a new parser for the given input.
func NewParser(sql string, opts ...Option) *Parser {
	p := &Parser{
		lexer: NewLexer(sql),
		b:     ast.NewBuilder(sql),
	}
	for _, opt := range opts {
		opt(p)
	}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses every statement in sql and returns the tree.
func Parse(sql string, opts ...Option) (*ast.Tree, error) {
	return NewParser(sql, opts...).ParseFile()
}

// ParseFile parses the whole input. The first syntax error is returned.
func (p *Parser) ParseFile() (*ast.Tree, error) {
	root := p.parseFile()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	p.b.SetParams(p.params...)
	return p.b.Finish(root)
}

// Errors returns every error collected so far.
func (p *Parser) Errors() []error {
	return p.errors
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	if p.token.End.IsValid() {
		p.prevEnd = p.token.End
	}
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.unexpected(t.String())
	return false
}

func (p *Parser) unexpected(want string) {
	if p.check(token.ILLEGAL) {
		p.illegal()
		return
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token, want))
}

func (p *Parser) illegal() {
	switch p.token.Literal {
	case ErrUnterminatedString, ErrUnterminatedIdent:
		p.addError(p.token.Literal)
	default:
		p.addError(fmt.Sprintf(ErrIllegalCharacter, p.token.Literal))
	}
}

// addError adds a parse error at the current token.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}

// failed reports whether an error was recorded. Loops check it so the
// parser stops at the first error instead of cascading.
func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

// ---------- Node Helpers ----------

// node adds a node spanning from start to the end of the last consumed token.
func (p *Parser) node(kind ast.Kind, text string, start token.Position, children ...ast.NodeID) ast.NodeID {
	return p.b.Add(kind, text, token.Span{Start: start, End: p.prevEnd}, children...)
}

// leaf adds a childless node for tok.
func (p *Parser) leaf(kind ast.Kind, tok token.Token) ast.NodeID {
	return p.b.Leaf(kind, tok.Literal, tok.Span())
}

// nonReserved keywords may be used as names.
var nonReserved = map[token.TokenType]bool{
	token.ABORT:     true,
	token.FAIL:      true,
	token.IGNORE:    true,
	token.REPLACE:   true,
	token.ROLLBACK:  true,
	token.RECURSIVE: true,
}

// isName returns true if tok can stand for an identifier.
func isName(tok token.Token) bool {
	return tok.Type == token.IDENT || nonReserved[tok.Type]
}

// parseName consumes a name token and returns it as a leaf of kind.
func (p *Parser) parseName(kind ast.Kind, what string) ast.NodeID {
	if !isName(p.token) {
		if p.check(token.ILLEGAL) {
			p.illegal()
		} else {
			p.addError(fmt.Sprintf(ErrExpectedName, what, p.token))
		}
		return ast.NoNode
	}
	id := p.leaf(kind, p.token)
	p.nextToken()
	return id
}

// parseQualifiedName consumes `[schema.]name` and returns the name leaf.
// The schema prefix is accepted but not kept.
func (p *Parser) parseQualifiedName(kind ast.Kind, what string) ast.NodeID {
	if isName(p.token) && p.checkPeek(token.DOT) && isName(p.peek2) {
		p.nextToken()
		p.nextToken()
	}
	return p.parseName(kind, what)
}
