package ast

import (
	"fmt"
	"io"
	"strings"
)

// Sexpr renders node as an s-expression, e.g. (= a@8 (+ 1 2)).
func Sexpr(node *Node) string {
	var sb strings.Builder
	writeSexpr(&sb, node)
	return sb.String()
}

func writeSexpr(sb *strings.Builder, node *Node) {
	if node == nil {
		sb.WriteString("<nil>")
		return
	}
	switch d := node.Data.(type) {
	case NumberNode:
		fmt.Fprintf(sb, "%d", d.Value)
	case VarNode:
		fmt.Fprintf(sb, "%s@%d", d.Name, d.Offset)
	case AssignNode:
		sb.WriteString("(= ")
		writeSexpr(sb, d.Lhs)
		sb.WriteByte(' ')
		writeSexpr(sb, d.Rhs)
		sb.WriteByte(')')
	case BinaryOpNode:
		fmt.Fprintf(sb, "(%s ", d.Op)
		writeSexpr(sb, d.Left)
		sb.WriteByte(' ')
		writeSexpr(sb, d.Right)
		sb.WriteByte(')')
	case ReturnNode:
		sb.WriteString("(return ")
		writeSexpr(sb, d.Expr)
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "<%s?>", node.Type)
	}
}

// Dump writes one s-expression line per statement.
func Dump(w io.Writer, prog []*Node) {
	for i, stmt := range prog {
		fmt.Fprintf(w, "%d: %s\n", i, Sexpr(stmt))
	}
}
