package codegen

import (
	"fmt"

	"github.com/xplshn/r9cc/pkg/ast"
	"github.com/xplshn/r9cc/pkg/config"
	"github.com/xplshn/r9cc/pkg/diag"
	"github.com/xplshn/r9cc/pkg/ir"
)

// lowerer turns the statement list into a single exported main function.
type lowerer struct {
	prog  *ir.Program
	fn    *ir.Func
	slots map[int]*ir.Temporary // frame offset -> stack slot address
}

// Lower builds the IR for prog. Each distinct variable gets one word-sized
// stack slot; the value of the last executed statement is returned.
func Lower(prog []*ast.Node, cfg *config.Config) (*ir.Program, *diag.Error) {
	l := &lowerer{
		prog:  &ir.Program{WordSize: cfg.WordSize},
		slots: make(map[int]*ir.Temporary),
	}
	l.fn = &ir.Func{Name: "main", ReturnType: l.prog.WordType()}
	l.prog.Funcs = append(l.prog.Funcs, l.fn)

	l.allocSlots(prog)

	var last ir.Value = &ir.Const{Value: 0}
	for _, stmt := range prog {
		if stmt.Type == ast.Return {
			v, err := l.lowerExpr(stmt.Data.(ast.ReturnNode).Expr)
			if err != nil {
				return nil, err
			}
			l.fn.Emit(&ir.Instruction{Op: ir.OpRet, Args: []ir.Value{v}})
			break
		}
		v, err := l.lowerExpr(stmt)
		if err != nil {
			return nil, err
		}
		last = v
	}
	if !l.fn.Terminated() {
		l.fn.Emit(&ir.Instruction{Op: ir.OpRet, Args: []ir.Value{last}})
	}
	return l.prog, nil
}

func (l *lowerer) allocSlots(prog []*ast.Node) {
	// Emit into the start block even when no variable exists.
	l.fn.Blocks = append(l.fn.Blocks, &ir.BasicBlock{Label: "start"})
	for _, stmt := range prog {
		ast.Walk(stmt, func(n *ast.Node) {
			v, ok := n.Data.(ast.VarNode)
			if !ok {
				return
			}
			if _, seen := l.slots[v.Offset]; seen {
				return
			}
			slot := l.prog.NewTemp(v.Name)
			l.slots[v.Offset] = slot
			l.fn.Emit(&ir.Instruction{
				Op:     ir.OpAlloc,
				Typ:    l.prog.WordType(),
				Result: slot,
				Args:   []ir.Value{&ir.Const{Value: int64(l.prog.WordSize)}},
				Align:  l.prog.WordSize,
			})
		})
	}
}

func (l *lowerer) slot(node *ast.Node) (*ir.Temporary, *diag.Error) {
	if node == nil {
		return nil, diag.New(diag.LValueNotVariable, nil)
	}
	if node.Type != ast.Var {
		return nil, diag.At(diag.LValueNotVariable, node.Tok)
	}
	return l.slots[node.Data.(ast.VarNode).Offset], nil
}

func (l *lowerer) lowerExpr(node *ast.Node) (ir.Value, *diag.Error) {
	if node == nil {
		panic("codegen: nil expression node")
	}
	wt := l.prog.WordType()

	switch node.Type {
	case ast.Number:
		return &ir.Const{Value: node.Data.(ast.NumberNode).Value}, nil

	case ast.Var:
		addr, err := l.slot(node)
		if err != nil {
			return nil, err
		}
		res := l.prog.NewTemp("")
		l.fn.Emit(&ir.Instruction{Op: ir.OpLoad, Typ: wt, Result: res, Args: []ir.Value{addr}})
		return res, nil

	case ast.Assign:
		d := node.Data.(ast.AssignNode)
		addr, err := l.slot(d.Lhs)
		if err != nil {
			return nil, err
		}
		if d.Rhs == nil {
			return nil, diag.At(diag.RValueMissing, node.Tok)
		}
		val, err := l.lowerExpr(d.Rhs)
		if err != nil {
			return nil, err
		}
		l.fn.Emit(&ir.Instruction{Op: ir.OpStore, Typ: wt, Args: []ir.Value{val, addr}})
		return val, nil

	case ast.BinaryOp:
		d := node.Data.(ast.BinaryOpNode)
		lhs, err := l.lowerExpr(d.Left)
		if err != nil {
			return nil, err
		}
		rhs, err := l.lowerExpr(d.Right)
		if err != nil {
			return nil, err
		}
		res := l.prog.NewTemp("")
		l.fn.Emit(&ir.Instruction{Op: binOpToIR(d.Op), Typ: wt, Result: res, Args: []ir.Value{lhs, rhs}})
		return res, nil
	}
	panic(fmt.Sprintf("codegen: unexpected %s node in expression", node.Type))
}

func binOpToIR(op ast.BinOp) ir.Op {
	switch op {
	case ast.Add: return ir.OpAdd
	case ast.Sub: return ir.OpSub
	case ast.Mul: return ir.OpMul
	case ast.Div: return ir.OpDiv
	case ast.Eq: return ir.OpCEq
	case ast.NotEq: return ir.OpCNeq
	case ast.Less: return ir.OpCLt
	case ast.LessEq: return ir.OpCLe
	}
	panic(fmt.Sprintf("codegen: unknown binary operator %d", int(op)))
}
