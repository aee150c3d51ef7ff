package parser

import (
	"fmt"

	"github.com/leapstack-labs/sqlscope/pkg/token"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken    = "unexpected token %s, expected %s"
	ErrUnterminatedString = "unterminated string literal"
	ErrUnterminatedIdent  = "unterminated quoted identifier"
	ErrIllegalCharacter   = "illegal character %q"
	ErrExpectedStatement  = "expected SELECT, VALUES, INSERT, REPLACE, UPDATE, DELETE or WITH, got %s"
	ErrExpectedExpression = "expected expression, got %s"
	ErrExpectedName       = "expected %s name, got %s"
)
