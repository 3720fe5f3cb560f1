package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Ident
	Number
	Return
	LParen
	RParen
	Semi
	Eq
	Plus
	Minus
	Star
	Slash
	EqEq
	Neq
	Lt
	Gt
	Lte
	Gte
)

var KeywordMap = map[string]Type{
	"return": Return,
}

// Reverse mapping from Type to its source spelling
var TypeStrings = map[Type]string{
	EOF:    "EOF",
	Ident:  "identifier",
	Number: "number",
	LParen: "(",
	RParen: ")",
	Semi:   ";",
	Eq:     "=",
	Plus:   "+",
	Minus:  "-",
	Star:   "*",
	Slash:  "/",
	EqEq:   "==",
	Neq:    "!=",
	Lt:     "<",
	Gt:     ">",
	Lte:    "<=",
	Gte:    ">=",
}

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Span is a half-open byte range [Pos, End) into the source string.
type Span struct {
	Pos int
	End int
}

func (s Span) Len() int { return s.End - s.Pos }

func (s Span) String() string { return fmt.Sprintf("%d..%d", s.Pos, s.End) }

type Token struct {
	Type  Type
	Value string // source text of the token
	Num   int64  // parsed value, Number only
	Span  Span
}

func (t Token) String() string {
	if t.Type == EOF {
		return "EOF"
	}
	return fmt.Sprintf("%s %q @%s", t.Type, t.Value, t.Span)
}
