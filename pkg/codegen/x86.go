package codegen

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/xplshn/r9cc/pkg/ast"
	"github.com/xplshn/r9cc/pkg/config"
	"github.com/xplshn/r9cc/pkg/diag"
)

// x86Backend emits Intel-syntax x86-64 for a stack machine: every expression
// leaves exactly one word on the machine stack.
type x86Backend struct {
	lines []string
}

func NewX86Backend() Backend { return &x86Backend{} }

func (b *x86Backend) Generate(prog []*ast.Node, cfg *config.Config) (*Output, error) {
	lines, err := b.compile(prog, cfg.FrameSize())
	if err != nil {
		return nil, err
	}
	var asm bytes.Buffer
	asm.WriteString(strings.Join(lines, "\n"))
	asm.WriteByte('\n')
	return &Output{Lines: lines, Asm: &asm}, nil
}

// Compile lowers prog with the default frame layout.
func Compile(prog []*ast.Node) ([]string, *diag.Error) {
	b := &x86Backend{}
	return b.compile(prog, config.NewConfig().FrameSize())
}

func (b *x86Backend) compile(prog []*ast.Node, frameSize int) ([]string, *diag.Error) {
	b.lines = []string{".intel_syntax noprefix", ".global main", "main:"}

	b.emit("push rbp")
	b.emit("mov rbp, rsp")
	b.emit("sub rsp, %d", frameSize)

	for _, stmt := range prog {
		if stmt.Type == ast.Return {
			if err := b.genExpr(stmt.Data.(ast.ReturnNode).Expr); err != nil {
				return nil, err
			}
			b.emit("pop rax")
			b.epilogue()
			return b.lines, nil
		}
		if err := b.genExpr(stmt); err != nil {
			return nil, err
		}
		b.emit("pop rax")
	}

	b.epilogue()
	return b.lines, nil
}

func (b *x86Backend) emit(format string, args ...interface{}) {
	b.lines = append(b.lines, "\t"+fmt.Sprintf(format, args...))
}

func (b *x86Backend) epilogue() {
	b.emit("mov rsp, rbp")
	b.emit("pop rbp")
	b.emit("ret")
}

// genLval pushes the address of a variable.
func (b *x86Backend) genLval(node *ast.Node) *diag.Error {
	if node == nil {
		return diag.New(diag.LValueNotVariable, nil)
	}
	if node.Type != ast.Var {
		return diag.At(diag.LValueNotVariable, node.Tok)
	}
	b.emit("mov rax, rbp")
	b.emit("sub rax, %d", node.Data.(ast.VarNode).Offset)
	b.emit("push rax")
	return nil
}

func (b *x86Backend) genExpr(node *ast.Node) *diag.Error {
	if node == nil {
		panic("codegen: nil expression node")
	}

	switch node.Type {
	case ast.Number:
		v := node.Data.(ast.NumberNode).Value
		// push only takes a sign-extended 32-bit immediate
		if v < math.MinInt32 || v > math.MaxInt32 {
			b.emit("mov rax, %d", v)
			b.emit("push rax")
		} else {
			b.emit("push %d", v)
		}

	case ast.Var:
		if err := b.genLval(node); err != nil {
			return err
		}
		b.emit("pop rax")
		b.emit("mov rax, [rax]")
		b.emit("push rax")

	case ast.Assign:
		d := node.Data.(ast.AssignNode)
		if err := b.genLval(d.Lhs); err != nil {
			return err
		}
		if d.Rhs == nil {
			return diag.At(diag.RValueMissing, node.Tok)
		}
		if err := b.genExpr(d.Rhs); err != nil {
			return err
		}
		b.emit("pop rdi")
		b.emit("pop rax")
		b.emit("mov [rax], rdi")
		b.emit("push rdi")

	case ast.BinaryOp:
		d := node.Data.(ast.BinaryOpNode)
		if err := b.genExpr(d.Left); err != nil {
			return err
		}
		if err := b.genExpr(d.Right); err != nil {
			return err
		}
		b.emit("pop rdi")
		b.emit("pop rax")
		b.genBinaryOp(d.Op)
		b.emit("push rax")

	default:
		panic(fmt.Sprintf("codegen: unexpected %s node in expression", node.Type))
	}
	return nil
}

func (b *x86Backend) genBinaryOp(op ast.BinOp) {
	switch op {
	case ast.Add: b.emit("add rax, rdi")
	case ast.Sub: b.emit("sub rax, rdi")
	case ast.Mul: b.emit("imul rax, rdi")
	case ast.Div:
		b.emit("cqo")
		b.emit("idiv rdi")
	case ast.Eq: b.genCompare("sete")
	case ast.NotEq: b.genCompare("setne")
	case ast.Less: b.genCompare("setl")
	case ast.LessEq: b.genCompare("setle")
	default:
		panic(fmt.Sprintf("codegen: unknown binary operator %d", int(op)))
	}
}

func (b *x86Backend) genCompare(set string) {
	b.emit("cmp rax, rdi")
	b.emit("%s al", set)
	b.emit("movzb rax, al")
}
