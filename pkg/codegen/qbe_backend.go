package codegen

import (
	"fmt"
	"strings"

	"github.com/xplshn/r9cc/pkg/ast"
	"github.com/xplshn/r9cc/pkg/config"
	"github.com/xplshn/r9cc/pkg/ir"
)

type qbeBackend struct {
	out  *strings.Builder
	prog *ir.Program
}

func NewQBEBackend() Backend { return &qbeBackend{} }

func (b *qbeBackend) Generate(prog []*ast.Node, cfg *config.Config) (*Output, error) {
	irProg, derr := Lower(prog, cfg)
	if derr != nil {
		return nil, derr
	}
	qbeIR := b.GenerateIR(irProg)
	asm, err := compileIL(qbeIR, cfg)
	if err != nil {
		return nil, err
	}
	return &Output{IR: qbeIR, Asm: asm}, nil
}

// GenerateIR prints prog as QBE IL.
func (b *qbeBackend) GenerateIR(prog *ir.Program) string {
	var sb strings.Builder
	b.out = &sb
	b.prog = prog
	for _, fn := range prog.Funcs {
		b.genFunc(fn)
	}
	return sb.String()
}

func (b *qbeBackend) genFunc(fn *ir.Func) {
	retTypeStr := b.formatType(fn.ReturnType)
	if retTypeStr != "" {
		retTypeStr = " " + retTypeStr
	}
	fmt.Fprintf(b.out, "export function%s $%s() {\n", retTypeStr, fn.Name)
	for _, block := range fn.Blocks {
		b.genBlock(block)
	}
	b.out.WriteString("}\n")
}

func (b *qbeBackend) genBlock(block *ir.BasicBlock) {
	fmt.Fprintf(b.out, "@%s\n", block.Label)
	for _, instr := range block.Instructions {
		b.genInstr(instr)
	}
}

func (b *qbeBackend) genInstr(instr *ir.Instruction) {
	b.out.WriteString("\t")
	if instr.Result != nil {
		fmt.Fprintf(b.out, "%s =%s ", b.formatValue(instr.Result), b.formatType(instr.Typ))
	}
	b.out.WriteString(b.formatOp(instr))
	for i, arg := range instr.Args {
		b.out.WriteString(" ")
		b.out.WriteString(b.formatValue(arg))
		if i < len(instr.Args)-1 {
			b.out.WriteString(",")
		}
	}
	b.out.WriteString("\n")
}

func (b *qbeBackend) formatValue(v ir.Value) string {
	switch val := v.(type) {
	case *ir.Const: return fmt.Sprintf("%d", val.Value)
	case *ir.Temporary: return "%" + val.String()
	}
	return ""
}

func (b *qbeBackend) formatType(t ir.Type) string {
	switch t {
	case ir.TypeW: return "w"
	case ir.TypeL: return "l"
	}
	return ""
}

func (b *qbeBackend) formatOp(instr *ir.Instruction) string {
	typeStr := b.formatType(instr.Typ)
	switch instr.Op {
	case ir.OpAlloc:
		if instr.Align <= 4 { return "alloc4" }
		if instr.Align <= 8 { return "alloc8" }
		return "alloc16"
	case ir.OpLoad, ir.OpStore: return instr.Op.String() + typeStr
	}
	if instr.Op.IsComparison() {
		return instr.Op.String() + typeStr
	}
	return instr.Op.String()
}
