package parser

// Locals maps identifiers to frame offsets. The first identifier seen gets
// one word, the next two words, and so on; an identifier keeps its offset for
// the rest of the parse.
type Locals struct {
	offsets  map[string]int
	order    []string
	wordSize int
}

func NewLocals(wordSize int) *Locals {
	return &Locals{offsets: make(map[string]int), wordSize: wordSize}
}

// Resolve returns the offset of name, allocating the next slot on first sight.
func (l *Locals) Resolve(name string) int {
	if off, ok := l.offsets[name]; ok {
		return off
	}
	l.order = append(l.order, name)
	off := len(l.order) * l.wordSize
	l.offsets[name] = off
	return off
}

func (l *Locals) Lookup(name string) (int, bool) {
	off, ok := l.offsets[name]
	return off, ok
}

func (l *Locals) Len() int { return len(l.order) }

// Names returns identifiers in allocation order.
func (l *Locals) Names() []string {
	return append([]string(nil), l.order...)
}
