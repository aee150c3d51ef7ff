package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/sqlscope/pkg/token"
)

// Lexer tokenizes query text.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// currentPos returns the position of the current character.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	start := l.currentPos()
	tok := l.scan()
	tok.Pos = start
	tok.End = l.currentPos()
	return tok
}

func (l *Lexer) scan() token.Token {
	if l.atEOF() {
		return token.Token{Type: token.EOF}
	}

	switch l.ch {
	case '+':
		return l.single(token.PLUS)
	case '-':
		return l.single(token.MINUS)
	case '*':
		return l.single(token.STAR)
	case '/':
		return l.single(token.SLASH)
	case '%':
		return l.single(token.PERCENT)
	case '&':
		return l.single(token.AMP)
	case '~':
		return l.single(token.TILDE)
	case ',':
		return l.single(token.COMMA)
	case ';':
		return l.single(token.SEMICOLON)
	case '(':
		return l.single(token.LPAREN)
	case ')':
		return l.single(token.RPAREN)
	case '=':
		if l.peekChar() == '=' {
			return l.double(token.EQ)
		}
		return l.single(token.EQ)
	case '<':
		switch l.peekChar() {
		case '=':
			return l.double(token.LE)
		case '>':
			return l.double(token.NE)
		case '<':
			return l.double(token.SHL)
		}
		return l.single(token.LT)
	case '>':
		switch l.peekChar() {
		case '=':
			return l.double(token.GE)
		case '>':
			return l.double(token.SHR)
		}
		return l.single(token.GT)
	case '!':
		if l.peekChar() == '=' {
			return l.double(token.NE)
		}
		return l.single(token.ILLEGAL)
	case '|':
		if l.peekChar() == '|' {
			return l.double(token.DPIPE)
		}
		return l.single(token.PIPE)
	case '.':
		if isDigit(l.peekChar()) {
			return token.Token{Type: token.NUMBER, Literal: l.readNumber()}
		}
		return l.single(token.DOT)
	case '\'':
		return l.readString(token.STRING)
	case '"', '`':
		return l.readQuotedIdentifier(l.ch)
	case '[':
		return l.readQuotedIdentifier(']')
	case '?':
		start := l.pos
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
		return token.Token{Type: token.PARAM, Literal: l.input[start:l.pos]}
	case ':', '@', '$':
		start := l.pos
		l.readChar()
		if !isIdentStart(l.ch) && !isDigit(l.ch) {
			return token.Token{Type: token.ILLEGAL, Literal: l.input[start:l.pos]}
		}
		for isIdentPart(l.ch) {
			l.readChar()
		}
		return token.Token{Type: token.PARAM, Literal: l.input[start:l.pos]}
	}

	switch {
	case (l.ch == 'x' || l.ch == 'X') && l.peekChar() == '\'':
		l.readChar()
		tok := l.readString(token.BLOB)
		return tok
	case isIdentStart(l.ch):
		ident := l.readIdentifier()
		return token.Token{Type: token.LookupIdent(ident), Literal: ident}
	case isDigit(l.ch):
		return token.Token{Type: token.NUMBER, Literal: l.readNumber()}
	}
	return l.single(token.ILLEGAL)
}

func (l *Lexer) single(t token.TokenType) token.Token {
	lit := l.input[l.pos : l.pos+1]
	l.readChar()
	return token.Token{Type: t, Literal: lit}
}

func (l *Lexer) double(t token.TokenType) token.Token {
	lit := l.input[l.pos : l.pos+2]
	l.readChar()
	l.readChar()
	return token.Token{Type: t, Literal: lit}
}

// skipWhitespaceAndComments skips whitespace, line and block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		// Line comment (-- ...)
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}

		// Block comment (/* ... */); an unterminated one runs to EOF
		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for !l.atEOF() && (l.ch != '*' || l.peekChar() != '/') {
				l.readChar()
			}
			if !l.atEOF() {
				l.readChar()
				l.readChar()
			}
			continue
		}

		break
	}
}

// readString reads a single-quoted literal.
// Handles doubled single quotes as escape: 'it''s' -> it's
func (l *Lexer) readString(t token.TokenType) token.Token {
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.atEOF() {
			return token.Token{Type: token.ILLEGAL, Literal: ErrUnterminatedString}
		}
		if l.ch == '\'' {
			if l.peekChar() != '\'' {
				l.readChar()
				break
			}
			l.readChar()
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return token.Token{Type: t, Literal: result.String()}
}

// readQuotedIdentifier reads an identifier quoted with "", ``, or [].
// A doubled closing quote is an escape.
func (l *Lexer) readQuotedIdentifier(closing byte) token.Token {
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.atEOF() {
			return token.Token{Type: token.ILLEGAL, Literal: ErrUnterminatedIdent}
		}
		if l.ch == closing {
			if closing == ']' || l.peekChar() != closing {
				l.readChar()
				break
			}
			l.readChar()
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return token.Token{Type: token.IDENT, Literal: result.String(), Quoted: true}
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, hex or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
		return l.input[start:l.pos]
	}

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// Exponent part (e.g., 1e10, 1E-5)
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch >= utf8.RuneSelf || unicode.IsLetter(rune(ch))
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '$'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string) []token.Token {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens
}
