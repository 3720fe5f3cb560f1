package parser

import (
	"github.com/xplshn/r9cc/pkg/ast"
	"github.com/xplshn/r9cc/pkg/config"
	"github.com/xplshn/r9cc/pkg/diag"
	"github.com/xplshn/r9cc/pkg/token"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	locals   *Locals
}

// NewParser creates and initializes a new Parser from a token stream. The
// stream is terminated with an EOF token if it is not already.
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		end := 0
		if len(tokens) > 0 {
			end = tokens[len(tokens)-1].Span.End
		}
		tokens = append(tokens[:len(tokens):len(tokens)], token.Token{Type: token.EOF, Span: token.Span{Pos: end, End: end}})
	}
	return &Parser{
		tokens:  tokens,
		current: tokens[0],
		locals:  NewLocals(cfg.WordSize),
	}
}

// Parse is a shortcut for NewParser(tokens, cfg).Program().
func Parse(tokens []token.Token, cfg *config.Config) ([]*ast.Node, *Locals, *diag.Error) {
	p := NewParser(tokens, cfg)
	prog, err := p.Program()
	return prog, p.Locals(), err
}

// Locals returns the identifier table built so far.
func (p *Parser) Locals() *Locals { return p.locals }

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

// errorHere reports kind at the current token, or without a span at end of input.
func (p *Parser) errorHere(kind diag.Kind) *diag.Error {
	if p.check(token.EOF) {
		return diag.New(kind, nil)
	}
	return diag.At(kind, p.current)
}

func (p *Parser) expect(tokType token.Type, kind diag.Kind) *diag.Error {
	if p.match(tokType) {
		return nil
	}
	return p.errorHere(kind)
}

// Program parses every statement up to EOF. Parsing stops at the first error.
func (p *Parser) Program() ([]*ast.Node, *diag.Error) {
	if p.check(token.EOF) {
		return nil, diag.New(diag.EmptyInput, nil)
	}
	var stmts []*ast.Node
	for !p.check(token.EOF) {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *Parser) parseStmt() (*ast.Node, *diag.Error) {
	var node *ast.Node
	if p.match(token.Return) {
		tok := p.previous
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		node = ast.NewReturn(tok, expr)
	} else {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		node = expr
	}
	if err := p.expect(token.Semi, diag.MissingSemicolon); err != nil {
		return nil, err
	}
	return node, nil
}

// Expression Parsing
func (p *Parser) parseExpr() (*ast.Node, *diag.Error) {
	return p.parseAssignmentExpr()
}

// parseAssignmentExpr is right-associative. The target is not checked here;
// code generation rejects targets that are not variables.
func (p *Parser) parseAssignmentExpr() (*ast.Node, *diag.Error) {
	left, err := p.parseEqualityExpr()
	if err != nil {
		return nil, err
	}
	if p.match(token.Eq) {
		tok := p.previous
		right, err := p.parseAssignmentExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewAssign(tok, left, right), nil
	}
	return left, nil
}

func (p *Parser) parseEqualityExpr() (*ast.Node, *diag.Error) {
	node, err := p.parseRelationalExpr()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current
		var op ast.BinOp
		switch tok.Type {
		case token.EqEq: op = ast.Eq
		case token.Neq: op = ast.NotEq
		default:
			return node, nil
		}
		p.advance()
		right, err := p.parseRelationalExpr()
		if err != nil {
			return nil, err
		}
		node = ast.NewBinaryOp(tok, op, node, right)
	}
}

// parseRelationalExpr normalizes a > b to b < a and a >= b to b <= a.
func (p *Parser) parseRelationalExpr() (*ast.Node, *diag.Error) {
	node, err := p.parseAdditiveExpr()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current
		if tok.Type != token.Lt && tok.Type != token.Lte && tok.Type != token.Gt && tok.Type != token.Gte {
			return node, nil
		}
		p.advance()
		right, err := p.parseAdditiveExpr()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case token.Lt: node = ast.NewBinaryOp(tok, ast.Less, node, right)
		case token.Lte: node = ast.NewBinaryOp(tok, ast.LessEq, node, right)
		case token.Gt: node = ast.NewBinaryOp(tok, ast.Less, right, node)
		case token.Gte: node = ast.NewBinaryOp(tok, ast.LessEq, right, node)
		}
	}
}

func (p *Parser) parseAdditiveExpr() (*ast.Node, *diag.Error) {
	node, err := p.parseTermExpr()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current
		var op ast.BinOp
		switch tok.Type {
		case token.Plus: op = ast.Add
		case token.Minus: op = ast.Sub
		default:
			return node, nil
		}
		p.advance()
		right, err := p.parseTermExpr()
		if err != nil {
			return nil, err
		}
		node = ast.NewBinaryOp(tok, op, node, right)
	}
}

// parseTermExpr also catches two operands with nothing between them, e.g. "1 2".
func (p *Parser) parseTermExpr() (*ast.Node, *diag.Error) {
	node, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current
		var op ast.BinOp
		switch tok.Type {
		case token.Star: op = ast.Mul
		case token.Slash: op = ast.Div
		case token.Number:
			return nil, diag.At(diag.CannotParse, tok)
		default:
			return node, nil
		}
		p.advance()
		right, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		node = ast.NewBinaryOp(tok, op, node, right)
	}
}

// parseUnaryExpr drops unary '+' and rewrites unary '-x' as '0 - x'.
func (p *Parser) parseUnaryExpr() (*ast.Node, *diag.Error) {
	if p.check(token.EOF) {
		return nil, diag.New(diag.TrailingOperator, nil)
	}
	tok := p.current
	if p.match(token.Plus) {
		return p.parseUnaryExpr()
	}
	if p.match(token.Minus) {
		operand, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewBinaryOp(tok, ast.Sub, ast.NewNumber(tok, 0), operand), nil
	}
	return p.parsePrimaryExpr()
}

func (p *Parser) parsePrimaryExpr() (*ast.Node, *diag.Error) {
	tok := p.current
	if p.check(token.EOF) {
		return nil, diag.New(diag.TrailingOperator, nil)
	}
	if p.match(token.Number) {
		return ast.NewNumber(tok, tok.Num), nil
	}
	if p.match(token.Ident) {
		return ast.NewVar(tok, tok.Value, p.locals.Resolve(tok.Value)), nil
	}
	if p.match(token.LParen) {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, diag.MissingClosingParen); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, diag.At(diag.NotANumber, tok)
}
