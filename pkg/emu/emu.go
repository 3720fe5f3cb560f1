// Package emu interprets the x86-64 subset emitted by the x86 backend so that
// programs can be run without an assembler.
package emu

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

var (
	ErrDivideByZero   = errors.New("integer divide by zero")
	ErrDivideOverflow = errors.New("integer divide overflow")
	ErrBadReturn      = errors.New("return to unknown address")
	ErrNoReturn       = errors.New("program ended without ret")
)

const (
	stackTop   int64 = 1 << 20
	returnAddr int64 = 0x5afe
)

// Result describes one run of a program.
type Result struct {
	Value    int64 // rax when main returned
	ExitCode int   // Value as a process exit status
	MaxDepth int   // deepest stack use in words, the return address included
	Balanced bool  // the frame held no leftover words when it was torn down
	Steps    int
}

type operandKind int

const (
	opReg operandKind = iota
	opImm
	opMem // [reg]
)

type operand struct {
	kind operandKind
	reg  string
	imm  int64
}

type instr struct {
	line int // 1-based line in the listing
	text string
	op   string
	args []operand
}

// Machine is the register file and memory of one run.
type Machine struct {
	regs  map[string]int64
	mem   map[int64]int64
	cmpL  int64
	cmpR  int64
	minSP int64

	frameSP  int64 // rsp right after the locals were reserved
	leftover bool  // words were still pushed when rsp was reset
}

func NewMachine() *Machine {
	m := &Machine{regs: map[string]int64{"rax": 0, "rdi": 0, "rdx": 0, "rbp": 0, "rsp": stackTop}, mem: make(map[int64]int64)}
	m.minSP = stackTop
	m.frameSP = -1
	return m
}

// Run executes listing from the main label (or the first instruction when
// there is none) until main returns.
func Run(listing []string) (*Result, error) {
	prog, err := Assemble(listing)
	if err != nil {
		return nil, err
	}
	return NewMachine().Exec(prog)
}

// RunText is Run for a newline separated listing.
func RunText(text string) (*Result, error) {
	return Run(strings.Split(strings.TrimRight(text, "\n"), "\n"))
}

// Program is an assembled listing.
type Program struct {
	instrs []instr
}

func (p *Program) Len() int { return len(p.instrs) }

// Assemble parses listing into instructions. Directives are skipped and the
// main label marks the entry point.
func Assemble(listing []string) (*Program, error) {
	var all []instr
	entry := 0
	for i, raw := range listing {
		text := strings.TrimSpace(raw)
		switch {
		case text == "" || strings.HasPrefix(text, "."):
			continue
		case strings.HasSuffix(text, ":"):
			if text == "main:" {
				entry = len(all)
			}
			continue
		}
		in, err := parseInstr(text)
		if err != nil {
			return nil, errors.Wrap(err, "line %d: %q", i+1, text)
		}
		in.line = i + 1
		all = append(all, in)
	}
	return &Program{instrs: all[entry:]}, nil
}

func parseInstr(text string) (instr, error) {
	in := instr{text: text}
	op, rest, _ := strings.Cut(text, " ")
	in.op = op
	rest = strings.TrimSpace(rest)
	if rest != "" {
		for _, a := range strings.Split(rest, ",") {
			arg, err := parseOperand(strings.TrimSpace(a))
			if err != nil {
				return in, err
			}
			in.args = append(in.args, arg)
		}
	}

	want, ok := arity[in.op]
	if !ok {
		return in, errors.New("unsupported instruction %v", in.op)
	}
	if len(in.args) != want {
		return in, errors.New("%v takes %d operands, got %d", in.op, want, len(in.args))
	}
	return in, nil
}

var arity = map[string]int{
	"push": 1, "pop": 1, "mov": 2, "add": 2, "sub": 2, "imul": 2,
	"cqo": 0, "idiv": 1, "cmp": 2, "sete": 1, "setne": 1, "setl": 1,
	"setle": 1, "movzb": 2, "ret": 0,
}

var registers = map[string]bool{"rax": true, "rdi": true, "rdx": true, "rbp": true, "rsp": true, "al": true}

func parseOperand(s string) (operand, error) {
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		reg := strings.TrimSpace(s[1 : len(s)-1])
		if !registers[reg] || reg == "al" {
			return operand{}, errors.New("bad memory operand %v", s)
		}
		return operand{kind: opMem, reg: reg}, nil
	}
	if registers[s] {
		return operand{kind: opReg, reg: s}, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return operand{}, errors.New("bad operand %v", s)
	}
	return operand{kind: opImm, imm: v}, nil
}

// Exec runs prog on m. The machine starts as if main had just been called.
func (m *Machine) Exec(prog *Program) (*Result, error) {
	m.push(returnAddr)
	res := &Result{}

	for pc := 0; pc < len(prog.instrs); pc++ {
		in := prog.instrs[pc]
		res.Steps++
		done, err := m.step(in)
		if err != nil {
			return nil, errors.Wrap(err, "line %d: %v", in.line, in.text)
		}
		if done {
			res.Value = m.regs["rax"]
			res.ExitCode = int(res.Value & 0xff)
			res.MaxDepth = int((stackTop - m.minSP) / 8)
			res.Balanced = m.regs["rsp"] == stackTop && !m.leftover
			return res, nil
		}
	}
	return nil, ErrNoReturn
}

func (m *Machine) push(v int64) {
	sp := m.regs["rsp"] - 8
	m.regs["rsp"] = sp
	m.mem[sp] = v
	if sp < m.minSP {
		m.minSP = sp
	}
}

func (m *Machine) pop() int64 {
	sp := m.regs["rsp"]
	v := m.mem[sp]
	m.regs["rsp"] = sp + 8
	return v
}

func (m *Machine) read(o operand) int64 {
	switch o.kind {
	case opImm: return o.imm
	case opMem: return m.mem[m.regs[o.reg]]
	}
	if o.reg == "al" {
		return m.regs["rax"] & 0xff
	}
	return m.regs[o.reg]
}

func (m *Machine) write(o operand, v int64) error {
	switch o.kind {
	case opImm:
		return errors.New("cannot write to an immediate")
	case opMem:
		m.mem[m.regs[o.reg]] = v
		return nil
	}
	if o.reg == "al" {
		m.regs["rax"] = m.regs["rax"]&^0xff | v&0xff
		return nil
	}
	m.regs[o.reg] = v
	return nil
}

func isReg(o operand, name string) bool { return o.kind == opReg && o.reg == name }

func (m *Machine) setcc(o operand, cond bool) error {
	var v int64
	if cond {
		v = 1
	}
	return m.write(o, v)
}

func (m *Machine) step(in instr) (done bool, err error) {
	a := in.args
	switch in.op {
	case "push":
		m.push(m.read(a[0]))
	case "pop":
		err = m.write(a[0], m.pop())
	case "mov":
		if isReg(a[0], "rsp") && isReg(a[1], "rbp") && m.frameSP >= 0 && m.regs["rsp"] != m.frameSP {
			m.leftover = true
		}
		err = m.write(a[0], m.read(a[1]))
	case "add":
		err = m.write(a[0], m.read(a[0])+m.read(a[1]))
	case "sub":
		err = m.write(a[0], m.read(a[0])-m.read(a[1]))
		if isReg(a[0], "rsp") && m.frameSP < 0 {
			m.frameSP = m.regs["rsp"]
			m.minSP = min(m.minSP, m.frameSP)
		}
	case "imul":
		err = m.write(a[0], m.read(a[0])*m.read(a[1]))
	case "cqo":
		m.regs["rdx"] = m.regs["rax"] >> 63
	case "idiv":
		d := m.read(a[0])
		n := m.regs["rax"]
		if d == 0 {
			return false, ErrDivideByZero
		}
		if d == -1 && n == -1<<63 {
			return false, ErrDivideOverflow
		}
		m.regs["rax"], m.regs["rdx"] = n/d, n%d
	case "cmp":
		m.cmpL, m.cmpR = m.read(a[0]), m.read(a[1])
	case "sete":
		err = m.setcc(a[0], m.cmpL == m.cmpR)
	case "setne":
		err = m.setcc(a[0], m.cmpL != m.cmpR)
	case "setl":
		err = m.setcc(a[0], m.cmpL < m.cmpR)
	case "setle":
		err = m.setcc(a[0], m.cmpL <= m.cmpR)
	case "movzb":
		err = m.write(a[0], m.read(a[1])&0xff)
	case "ret":
		if m.pop() != returnAddr {
			return false, ErrBadReturn
		}
		return true, nil
	}
	return false, err
}
