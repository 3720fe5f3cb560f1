package diag

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	cRed    = "\033[31m"
	cYellow = "\033[33m"
	cGreen  = "\033[32m"
	cNone   = "\033[0m"
)

// Printer renders diagnostics for one source string.
type Printer struct {
	W     io.Writer
	Name  string // shown in place of a file name
	Src   string
	Color bool
}

func NewPrinter(w io.Writer, name, src string, color bool) *Printer {
	return &Printer{W: w, Name: name, Src: src, Color: color}
}

func (p *Printer) paint(color, s string) string {
	if !p.Color {
		return s
	}
	return color + s + cNone
}

// lineCol converts a byte offset into a 1-based line and column.
func (p *Printer) lineCol(offset int) (line, col int) {
	line, col = 1, 1
	for i := 0; i < offset && i < len(p.Src); i++ {
		if p.Src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// printErrorLine prints the source line containing pos and a caret under [pos, end)
func (p *Printer) printErrorLine(pos, end int) {
	lineStart := strings.LastIndexByte(p.Src[:min(pos, len(p.Src))], '\n') + 1
	lineEnd := len(p.Src)
	if i := strings.IndexByte(p.Src[lineStart:], '\n'); i >= 0 {
		lineEnd = lineStart + i
	}

	fmt.Fprintf(p.W, "  %s\n", p.Src[lineStart:lineEnd])

	caret := "^"
	if n := min(end, lineEnd) - pos; n > 1 {
		caret += strings.Repeat("~", n-1)
	}
	fmt.Fprintf(p.W, "  %s%s\n", padding(p.Src[lineStart:pos]), p.paint(cGreen, caret))
}

// padding blanks out prefix but keeps its tabs so the caret lines up.
func padding(prefix string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return r
		}
		return ' '
	}, prefix)
}

// lastLine is the final non-empty line of the source, where a spanless
// (end of input) error points.
func (p *Printer) lastLine() string {
	src := strings.TrimRight(p.Src, "\r\n")
	return src[strings.LastIndexByte(src, '\n')+1:]
}

func (p *Printer) Error(e *Error) {
	if e.Span == nil {
		fmt.Fprintf(p.W, "%s: %s %s: %s\n", p.Name, p.paint(cRed, "error:"), e.Category(), e.Message())
		fmt.Fprintf(p.W, "  %s\n", p.lastLine())
		return
	}
	line, col := p.lineCol(e.Span.Pos)
	fmt.Fprintf(p.W, "%s:%d:%d: %s %s: %s [%s]\n", p.Name, line, col, p.paint(cRed, "error:"), e.Category(), e.Message(), e.Span)
	p.printErrorLine(e.Span.Pos, e.Span.End)
}

func (p *Printer) Warn(w Warning) {
	if w.Span == nil {
		fmt.Fprintf(p.W, "%s: %s %s [-W%s]\n", p.Name, p.paint(cYellow, "warning:"), w.Message, w.Name)
		return
	}
	line, col := p.lineCol(w.Span.Pos)
	fmt.Fprintf(p.W, "%s:%d:%d: %s %s [-W%s]\n", p.Name, line, col, p.paint(cYellow, "warning:"), w.Message, w.Name)
	p.printErrorLine(w.Span.Pos, w.Span.End)
}

// Report prints err. Compile errors get source carets, anything else is
// printed as a plain error line.
func (p *Printer) Report(err error) {
	var list List
	var single *Error
	switch {
	case errors.As(err, &list):
		for _, e := range list {
			p.Error(e)
		}
	case errors.As(err, &single):
		p.Error(single)
	default:
		fmt.Fprintf(p.W, "%s: %s %v\n", p.Name, p.paint(cRed, "error:"), err)
	}
}
