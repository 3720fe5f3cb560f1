package ast

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xplshn/r9cc/pkg/token"
)

func num(v int64) *Node { return NewNumber(token.Token{Type: token.Number}, v) }

func TestSexpr(t *testing.T) {
	a := NewVar(token.Token{Type: token.Ident, Value: "a"}, "a", 8)
	stmt := NewAssign(token.Token{Type: token.Eq}, a, NewBinaryOp(token.Token{}, Add, num(1), NewBinaryOp(token.Token{}, LessEq, num(2), a)))
	require.Equal(t, "(= a@8 (+ 1 (<= 2 a@8)))", Sexpr(stmt))
	require.Equal(t, "(return <nil>)", Sexpr(NewReturn(token.Token{}, nil)))

	var buf bytes.Buffer
	Dump(&buf, []*Node{num(1), NewReturn(token.Token{}, a)})
	require.Equal(t, "0: 1\n1: (return a@8)\n", buf.String())
}

func TestWalkPreOrder(t *testing.T) {
	tree := NewBinaryOp(token.Token{}, Mul, NewBinaryOp(token.Token{}, Sub, num(1), num(2)), num(3))
	var got []NodeType
	Walk(tree, func(n *Node) { got = append(got, n.Type) })
	require.Equal(t, []NodeType{BinaryOp, BinaryOp, Number, Number, Number}, got)
}

func TestHasSideEffects(t *testing.T) {
	a := NewVar(token.Token{}, "a", 8)
	require.False(t, HasSideEffects(NewBinaryOp(token.Token{}, Add, a, num(1))))
	require.True(t, HasSideEffects(NewBinaryOp(token.Token{}, Add, NewAssign(token.Token{}, a, num(1)), num(1))))
	require.False(t, HasSideEffects(nil))
}
