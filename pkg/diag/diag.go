// Package diag defines the compile error taxonomy shared by every stage of the
// pipeline and renders errors and warnings against the source text.
package diag

import (
	"fmt"
	"strings"

	"github.com/xplshn/r9cc/pkg/token"
)

type Category int

const (
	Tokenizing Category = iota
	Parsing
	Codegen
)

func (c Category) String() string {
	switch c {
	case Tokenizing:
		return "tokenizing"
	case Parsing:
		return "parsing"
	case Codegen:
		return "codegen"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

type Kind int

const (
	// Tokenizing
	IllegalToken Kind = iota
	NumberOutOfRange

	// Parsing
	NotANumber
	TrailingOperator
	CannotParse
	MissingClosingParen
	MissingSemicolon
	EmptyInput

	// Codegen
	LValueNotVariable
	RValueMissing
)

type kindInfo struct {
	Category Category
	Name     string
	Message  string
}

var kinds = map[Kind]kindInfo{
	IllegalToken:        {Tokenizing, "IllegalToken", "cannot tokenize"},
	NumberOutOfRange:    {Tokenizing, "NumberOutOfRange", "integer literal out of range"},
	NotANumber:          {Parsing, "NotANumber", "expected a number, identifier or '('"},
	TrailingOperator:    {Parsing, "TrailingOperator", "operator is missing its right-hand operand"},
	CannotParse:         {Parsing, "CannotParse", "expected an operator between operands"},
	MissingClosingParen: {Parsing, "MissingClosingParen", "expected ')'"},
	MissingSemicolon:    {Parsing, "MissingSemicolon", "expected ';' after statement"},
	EmptyInput:          {Parsing, "EmptyInput", "no statements to compile"},
	LValueNotVariable:   {Codegen, "LValueNotVariable", "left side of assignment is not a variable"},
	RValueMissing:       {Codegen, "RValueMissing", "assignment has no right-hand side"},
}

func (k Kind) Category() Category { return kinds[k].Category }

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.Name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a single compile error. Text holds the offending source run for
// tokenizing errors and is empty otherwise.
type Error struct {
	Kind Kind
	Text string
	Span *token.Span
}

func New(kind Kind, span *token.Span) *Error {
	return &Error{Kind: kind, Span: span}
}

// At is New with the span of tok.
func At(kind Kind, tok token.Token) *Error {
	span := tok.Span
	return &Error{Kind: kind, Span: &span}
}

func Illegal(text string, span token.Span) *Error {
	return &Error{Kind: IllegalToken, Text: text, Span: &span}
}

func (e *Error) Category() Category { return e.Kind.Category() }

// Message is the human readable description without position information.
func (e *Error) Message() string {
	msg := kinds[e.Kind].Message
	if e.Text != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Text)
	}
	return msg
}

func (e *Error) Error() string {
	if e.Span == nil {
		return fmt.Sprintf("%s: %s", e.Category(), e.Message())
	}
	return fmt.Sprintf("%s: %s at %s", e.Category(), e.Message(), e.Span)
}

// List is the uniform error result of a compilation: every tokenizing error,
// or exactly one parsing or codegen error.
type List []*Error

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d errors: %s", len(l), strings.Join(msgs, "; "))
}

// Err returns nil for an empty list so callers can write `if err := l.Err(); err != nil`.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Warning is a non-fatal diagnostic. Name is the flag name that controls it.
type Warning struct {
	Name    string
	Message string
	Span    *token.Span
}
