// Package token defines the lexical tokens of the embedded query language.
//
// The keyword set follows the SQLite dialect used by annotation-embedded
// queries: SELECT with compound operators and CTEs plus the three DML
// statements. Keyword matching is case-insensitive.
package token

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier, possibly quoted
	NUMBER // 123, 45.67, 1e10, 0x1F
	STRING // 'hello'
	BLOB   // x'00ff'
	PARAM  // :name, @name, $name, ?, ?1

	// Operators
	PLUS      // +
	MINUS     // -
	STAR      // *
	SLASH     // /
	PERCENT   // %
	DPIPE     // ||
	EQ        // = or ==
	NE        // != or <>
	LT        // <
	GT        // >
	LE        // <=
	GE        // >=
	AMP       // &
	PIPE      // |
	TILDE     // ~
	SHL       // <<
	SHR       // >>
	DOT       // .
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )

	// Keywords (alphabetical)
	ABORT
	ALL
	AND
	AS
	ASC
	BETWEEN
	BY
	CASE
	CAST
	COLLATE
	CROSS
	DEFAULT
	DELETE
	DESC
	DISTINCT
	ELSE
	END
	ESCAPE
	EXCEPT
	EXISTS
	FAIL
	FALSE
	FROM
	GLOB
	GROUP
	HAVING
	IGNORE
	IN
	INDEXED
	INNER
	INSERT
	INTERSECT
	INTO
	IS
	ISNULL
	JOIN
	LEFT
	LIKE
	LIMIT
	MATCH
	NATURAL
	NOT
	NOTNULL
	NULL
	OFFSET
	ON
	OR
	ORDER
	OUTER
	RECURSIVE
	REGEXP
	REPLACE
	RIGHT
	ROLLBACK
	SELECT
	SET
	THEN
	TRUE
	UNION
	UPDATE
	USING
	VALUES
	WHEN
	WHERE
	WITH
)

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",
	IDENT:   "IDENT",
	NUMBER:  "NUMBER",
	STRING:  "STRING",
	BLOB:    "BLOB",
	PARAM:   "PARAM",

	PLUS:      "+",
	MINUS:     "-",
	STAR:      "*",
	SLASH:     "/",
	PERCENT:   "%",
	DPIPE:     "||",
	EQ:        "=",
	NE:        "!=",
	LT:        "<",
	GT:        ">",
	LE:        "<=",
	GE:        ">=",
	AMP:       "&",
	PIPE:      "|",
	TILDE:     "~",
	SHL:       "<<",
	SHR:       ">>",
	DOT:       ".",
	COMMA:     ",",
	SEMICOLON: ";",
	LPAREN:    "(",
	RPAREN:    ")",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"abort":     ABORT,
	"all":       ALL,
	"and":       AND,
	"as":        AS,
	"asc":       ASC,
	"between":   BETWEEN,
	"by":        BY,
	"case":      CASE,
	"cast":      CAST,
	"collate":   COLLATE,
	"cross":     CROSS,
	"default":   DEFAULT,
	"delete":    DELETE,
	"desc":      DESC,
	"distinct":  DISTINCT,
	"else":      ELSE,
	"end":       END,
	"escape":    ESCAPE,
	"except":    EXCEPT,
	"exists":    EXISTS,
	"fail":      FAIL,
	"false":     FALSE,
	"from":      FROM,
	"glob":      GLOB,
	"group":     GROUP,
	"having":    HAVING,
	"ignore":    IGNORE,
	"in":        IN,
	"indexed":   INDEXED,
	"inner":     INNER,
	"insert":    INSERT,
	"intersect": INTERSECT,
	"into":      INTO,
	"is":        IS,
	"isnull":    ISNULL,
	"join":      JOIN,
	"left":      LEFT,
	"like":      LIKE,
	"limit":     LIMIT,
	"match":     MATCH,
	"natural":   NATURAL,
	"not":       NOT,
	"notnull":   NOTNULL,
	"null":      NULL,
	"offset":    OFFSET,
	"on":        ON,
	"or":        OR,
	"order":     ORDER,
	"outer":     OUTER,
	"recursive": RECURSIVE,
	"regexp":    REGEXP,
	"replace":   REPLACE,
	"right":     RIGHT,
	"rollback":  ROLLBACK,
	"select":    SELECT,
	"set":       SET,
	"then":      THEN,
	"true":      TRUE,
	"union":     UNION,
	"update":    UPDATE,
	"using":     USING,
	"values":    VALUES,
	"when":      WHEN,
	"where":     WHERE,
	"with":      WITH,
}

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	if IsKeyword(t) {
		for kw, tt := range keywords {
			if tt == t {
				return strings.ToUpper(kw)
			}
		}
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// LookupIdent returns the token type for the given identifier.
// If the identifier is a keyword, the keyword token type is returned.
// Otherwise, IDENT is returned.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= ABORT && t <= WITH
}

// IsOperator returns true if the token type is an operator or punctuation.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= RPAREN
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
	End     Position
	Quoted  bool // identifier was written with quotes, brackets or backticks
}

// Span returns the source range covered by the token.
func (t Token) Span() Span {
	return Span{Start: t.Pos, End: t.End}
}

func (t Token) String() string {
	switch t.Type {
	case IDENT, NUMBER, STRING, PARAM:
		return fmt.Sprintf("%s(%s)", t.Type, t.Literal)
	default:
		return t.Type.String()
	}
}
