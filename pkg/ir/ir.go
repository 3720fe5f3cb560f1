// Package ir is the three-address form the QBE backend lowers the AST into
// before printing it as QBE IL.
package ir

import "fmt"

type Op int

const (
	OpAlloc Op = iota
	OpLoad
	OpStore
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpCEq
	OpCNeq
	OpCLt
	OpCLe
	OpRet
)

var opNames = [...]string{
	OpAlloc: "alloc", OpLoad: "load", OpStore: "store", OpAdd: "add", OpSub: "sub",
	OpMul: "mul", OpDiv: "div", OpCEq: "ceq", OpCNeq: "cne", OpCLt: "cslt",
	OpCLe: "csle", OpRet: "ret",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// IsComparison reports whether op yields 0 or 1.
func (op Op) IsComparison() bool { return op >= OpCEq && op <= OpCLe }

type Type int

const (
	TypeNone Type = iota
	TypeW         // word (32-bit)
	TypeL         // long (64-bit)
)

type Value interface {
	isValue()
	String() string
}

type Const struct{ Value int64 }
type Temporary struct {
	Name string
	ID   int
}

func (c *Const) isValue()     {}
func (t *Temporary) isValue() {}

func (c *Const) String() string { return fmt.Sprintf("%d", c.Value) }
func (t *Temporary) String() string {
	if t.Name != "" {
		return fmt.Sprintf("%s_%d", t.Name, t.ID)
	}
	return fmt.Sprintf("t%d", t.ID)
}

type Instruction struct {
	Op     Op
	Typ    Type
	Result Value
	Args   []Value
	Align  int
}

type BasicBlock struct {
	Label        string
	Instructions []*Instruction
}

type Func struct {
	Name       string
	ReturnType Type
	Blocks     []*BasicBlock
}

type Program struct {
	Funcs     []*Func
	WordSize  int
	TempCount int
}

// WordType is the integer type matching the target word.
func (p *Program) WordType() Type {
	if p.WordSize == 4 {
		return TypeW
	}
	return TypeL
}

// NewTemp allocates a fresh temporary. name is a readability hint only.
func (p *Program) NewTemp(name string) *Temporary {
	p.TempCount++
	return &Temporary{Name: name, ID: p.TempCount}
}

// Emit appends an instruction to the last block of fn.
func (fn *Func) Emit(instr *Instruction) {
	if len(fn.Blocks) == 0 {
		fn.Blocks = append(fn.Blocks, &BasicBlock{Label: "start"})
	}
	b := fn.Blocks[len(fn.Blocks)-1]
	b.Instructions = append(b.Instructions, instr)
}

// Terminated reports whether the last block already ends in a return.
func (fn *Func) Terminated() bool {
	if len(fn.Blocks) == 0 {
		return false
	}
	b := fn.Blocks[len(fn.Blocks)-1]
	n := len(b.Instructions)
	return n > 0 && b.Instructions[n-1].Op == OpRet
}
