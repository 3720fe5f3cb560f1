package codegen

import (
	"github.com/xplshn/r9cc/pkg/ast"
	"github.com/xplshn/r9cc/pkg/config"
	"github.com/xplshn/r9cc/pkg/diag"
)

// Check returns the warnings enabled in cfg for prog. It never fails; code
// generation reports the errors.
func Check(prog []*ast.Node, cfg *config.Config) []diag.Warning {
	var warnings []diag.Warning
	warn := func(wt config.Warning, msg string, node *ast.Node) {
		if !cfg.IsWarningEnabled(wt) {
			return
		}
		span := leftmost(node).Tok.Span
		warnings = append(warnings, diag.Warning{Name: cfg.Warnings[wt].Name, Message: msg, Span: &span})
	}

	for i, stmt := range prog {
		if stmt == nil {
			continue
		}
		ast.Walk(stmt, func(n *ast.Node) {
			if d, ok := n.Data.(ast.BinaryOpNode); ok && d.Op == ast.Div && isZero(d.Right) {
				warn(config.WarnExtra, "division by zero", n)
			}
		})

		if stmt.Type == ast.Return {
			if i+1 < len(prog) && prog[i+1] != nil {
				warn(config.WarnUnreachableCode, "code after 'return' is never executed", prog[i+1])
			}
			break
		}
		if i+1 < len(prog) && !ast.HasSideEffects(stmt) {
			warn(config.WarnUnusedValue, "statement value is computed and discarded", stmt)
		}
	}
	return warnings
}

func isZero(n *ast.Node) bool {
	if n == nil {
		return false
	}
	d, ok := n.Data.(ast.NumberNode)
	return ok && d.Value == 0
}

// leftmost finds the node whose token starts the source text of n.
func leftmost(n *ast.Node) *ast.Node {
	for {
		switch d := n.Data.(type) {
		case ast.BinaryOpNode:
			if d.Left == nil {
				return n
			}
			n = d.Left
		case ast.AssignNode:
			if d.Lhs == nil {
				return n
			}
			n = d.Lhs
		default:
			return n
		}
	}
}
