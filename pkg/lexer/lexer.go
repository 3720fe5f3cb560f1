package lexer

import (
	"strconv"

	"github.com/xplshn/r9cc/pkg/config"
	"github.com/xplshn/r9cc/pkg/diag"
	"github.com/xplshn/r9cc/pkg/token"
)

// Lexer scans a source string byte by byte. Spans are byte offsets into the
// original string. A Lexer is single use: once it returns EOF it keeps
// returning EOF.
type Lexer struct {
	source string
	pos    int
	cfg    *config.Config
}

func NewLexer(source string, cfg *config.Config) *Lexer {
	return &Lexer{source: source, cfg: cfg}
}

// Next returns the next token, or a tokenizing error for an unscannable run.
// Errors do not stop the scan; calling Next again continues after the run.
func (l *Lexer) Next() (token.Token, *diag.Error) {
	l.skipWhitespace()
	start := l.pos

	if l.isAtEnd() {
		return l.makeToken(token.EOF, start), nil
	}

	ch := l.peek()
	if isDigit(ch) {
		return l.numberLiteral(start)
	}
	if isLower(ch) {
		return l.identifierOrKeyword(start), nil
	}

	l.advance()
	switch ch {
	case '+':
		return l.makeToken(token.Plus, start), nil
	case '-':
		return l.makeToken(token.Minus, start), nil
	case '*':
		return l.makeToken(token.Star, start), nil
	case '/':
		return l.makeToken(token.Slash, start), nil
	case '(':
		return l.makeToken(token.LParen, start), nil
	case ')':
		return l.makeToken(token.RParen, start), nil
	case ';':
		return l.makeToken(token.Semi, start), nil
	case '=':
		return l.matchThen('=', token.EqEq, token.Eq, start), nil
	case '<':
		return l.matchThen('=', token.Lte, token.Lt, start), nil
	case '>':
		return l.matchThen('=', token.Gte, token.Gt, start), nil
	case '!':
		if l.match('=') {
			return l.makeToken(token.Neq, start), nil
		}
	}

	l.pos = start
	return token.Token{}, l.unknownRun(start)
}

// Tokenize scans the whole source. It returns every token (terminated by an
// EOF token) when the scan is clean, and otherwise every tokenizing error in
// source order and no tokens.
func Tokenize(source string, cfg *config.Config) ([]token.Token, diag.List) {
	l := NewLexer(source, cfg)
	var tokens []token.Token
	var errs diag.List
	for {
		tok, err := l.Next()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return tokens, nil
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) advance() byte {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	return ch
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.pos++
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, start int) token.Token {
	return token.Token{
		Type:  tokType,
		Value: l.source[start:l.pos],
		Span:  token.Span{Pos: start, End: l.pos},
	}
}

func (l *Lexer) matchThen(expected byte, thenType, elseType token.Type, start int) token.Token {
	if l.match(expected) {
		return l.makeToken(thenType, start)
	}
	return l.makeToken(elseType, start)
}

func (l *Lexer) skipWhitespace() {
	for !l.isAtEnd() && isSpace(l.peek()) {
		l.pos++
	}
}

func (l *Lexer) numberLiteral(start int) (token.Token, *diag.Error) {
	for isDigit(l.peek()) {
		l.advance()
	}
	tok := l.makeToken(token.Number, start)
	val, err := strconv.ParseInt(tok.Value, 10, 64)
	if err != nil {
		return token.Token{}, &diag.Error{Kind: diag.NumberOutOfRange, Text: tok.Value, Span: &tok.Span}
	}
	tok.Num = val
	return tok, nil
}

// identifierOrKeyword scans a single-letter identifier. A keyword is only
// recognized as a whole word so that e.g. "r" and "re" stay identifiers.
func (l *Lexer) identifierOrKeyword(start int) token.Token {
	if l.cfg.IsFeatureEnabled(config.FeatReturn) {
		for word, typ := range token.KeywordMap {
			end := start + len(word)
			if end <= len(l.source) && l.source[start:end] == word && !isWordByte(l.peekAt(end)) {
				l.pos = end
				return l.makeToken(typ, start)
			}
		}
	}
	l.advance()
	return l.makeToken(token.Ident, start)
}

func (l *Lexer) peekAt(i int) byte {
	if i >= len(l.source) {
		return 0
	}
	return l.source[i]
}

// unknownRun consumes everything up to the next whitespace and reports it.
func (l *Lexer) unknownRun(start int) *diag.Error {
	for !l.isAtEnd() && !isSpace(l.peek()) {
		l.pos++
	}
	return diag.Illegal(l.source[start:l.pos], token.Span{Pos: start, End: l.pos})
}

func isDigit(ch byte) bool    { return ch >= '0' && ch <= '9' }
func isLower(ch byte) bool    { return ch >= 'a' && ch <= 'z' }
func isWordByte(ch byte) bool { return isLower(ch) || isDigit(ch) }

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}
