// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"github.com/xplshn/r9cc/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	Number NodeType = iota
	Var
	Assign
	BinaryOp

	// Statements
	Return
)

func (t NodeType) String() string {
	switch t {
	case Number:
		return "Number"
	case Var:
		return "Var"
	case Assign:
		return "Assign"
	case BinaryOp:
		return "BinaryOp"
	case Return:
		return "Return"
	}
	return "NodeType(?)"
}

// Node represents a node in the Abstract Syntax Tree. Children are owned by
// exactly one parent; nodes are never shared between trees.
type Node struct {
	Type NodeType
	Tok  token.Token // The primary token associated with this node for error reporting
	Data interface{}
}

// BinOp is the operator of a BinaryOp node. The parser rewrites '>' and '>='
// into Less and LessEq with swapped operands, so no Greater variants exist.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Eq
	NotEq
	Less
	LessEq
)

var binOpStrings = [...]string{Add: "+", Sub: "-", Mul: "*", Div: "/", Eq: "==", NotEq: "!=", Less: "<", LessEq: "<="}

func (op BinOp) String() string {
	if int(op) < len(binOpStrings) {
		return binOpStrings[op]
	}
	return "BinOp(?)"
}

// --- Node Data Structs ---
type NumberNode struct{ Value int64 }
type VarNode struct {
	Name   string
	Offset int // distance below the frame base
}
type AssignNode struct{ Lhs, Rhs *Node }
type BinaryOpNode struct {
	Op          BinOp
	Left, Right *Node
}
type ReturnNode struct{ Expr *Node }

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data}
}

func NewNumber(tok token.Token, value int64) *Node {
	return newNode(tok, Number, NumberNode{Value: value})
}
func NewVar(tok token.Token, name string, offset int) *Node {
	return newNode(tok, Var, VarNode{Name: name, Offset: offset})
}
func NewAssign(tok token.Token, lhs, rhs *Node) *Node {
	return newNode(tok, Assign, AssignNode{Lhs: lhs, Rhs: rhs})
}
func NewBinaryOp(tok token.Token, op BinOp, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right})
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr})
}

// Walk visits node and its children in pre-order.
func Walk(node *Node, visitor func(n *Node)) {
	if node == nil {
		return
	}
	visitor(node)

	switch d := node.Data.(type) {
	case AssignNode:
		Walk(d.Lhs, visitor)
		Walk(d.Rhs, visitor)
	case BinaryOpNode:
		Walk(d.Left, visitor)
		Walk(d.Right, visitor)
	case ReturnNode:
		Walk(d.Expr, visitor)
	}
}

// HasSideEffects reports whether evaluating node writes a variable.
func HasSideEffects(node *Node) bool {
	found := false
	Walk(node, func(n *Node) {
		if n.Type == Assign {
			found = true
		}
	})
	return found
}
