package diag

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xplshn/r9cc/pkg/token"
)

func TestCategories(t *testing.T) {
	for kind, want := range map[Kind]Category{
		IllegalToken:        Tokenizing,
		NumberOutOfRange:    Tokenizing,
		NotANumber:          Parsing,
		TrailingOperator:    Parsing,
		CannotParse:         Parsing,
		MissingClosingParen: Parsing,
		MissingSemicolon:    Parsing,
		EmptyInput:          Parsing,
		LValueNotVariable:   Codegen,
		RValueMissing:       Codegen,
	} {
		require.Equal(t, want, kind.Category(), kind.String())
	}
}

func TestErrorStrings(t *testing.T) {
	require.Equal(t, `tokenizing: cannot tokenize "$$" at 4..6`, Illegal("$$", token.Span{Pos: 4, End: 6}).Error())
	require.Equal(t, "codegen: assignment has no right-hand side", New(RValueMissing, nil).Error())

	l := List{New(EmptyInput, nil), At(CannotParse, token.Token{Span: token.Span{Pos: 2, End: 3}})}
	require.Equal(t, "2 errors: parsing: no statements to compile; parsing: expected an operator between operands at 2..3", l.Error())
	require.NoError(t, List(nil).Err())
	require.Error(t, l.Err())
}

func TestPrinterError(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "prog", "a=1;\nb=(a+2;\n", false)
	p.Error(&Error{Kind: MissingClosingParen, Span: &token.Span{Pos: 11, End: 12}})
	require.Equal(t, "prog:2:7: error: parsing: expected ')' [11..12]\n  b=(a+2;\n        ^\n", buf.String())
}

func TestPrinterCaretCoversSpan(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "prog", "1 + $$$ 2;", false)
	p.Error(Illegal("$$$", token.Span{Pos: 4, End: 7}))
	require.Contains(t, buf.String(), "\n      ^~~\n")
}

func TestPrinterWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "prog", "", false)
	p.Error(New(EmptyInput, nil))
	require.Equal(t, "prog: error: parsing: no statements to compile\n  \n", buf.String())

	buf.Reset()
	p.Warn(Warning{Name: "extra", Message: "something odd"})
	require.Equal(t, "prog: warning: something odd [-Wextra]\n", buf.String())
}

func TestPrinterColor(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "prog", "x", true)
	p.Warn(Warning{Name: "unused-value", Message: "value is discarded", Span: &token.Span{Pos: 0, End: 1}})
	require.Contains(t, buf.String(), cYellow+"warning:"+cNone)
	require.Contains(t, buf.String(), cGreen+"^"+cNone)
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "prog", "1 $ 2 $", false)
	p.Report(List{
		Illegal("$", token.Span{Pos: 2, End: 3}),
		Illegal("$", token.Span{Pos: 6, End: 7}),
	})
	require.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("error: tokenizing")))

	buf.Reset()
	p.Report(fmt.Errorf("qbe failed"))
	require.Equal(t, "prog: error: qbe failed\n", buf.String())
}

func TestPrinterSpanlessShowsLastLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "prog", "a=1;\nb=2;\n(a+\n\n", false)
	p.Error(New(TrailingOperator, nil))
	require.Equal(t, "prog: error: parsing: operator is missing its right-hand operand\n  (a+\n", buf.String())
}

func TestPrinterCaretKeepsTabs(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, "prog", "\ta =\t1 2;", false)
	p.Error(&Error{Kind: CannotParse, Span: &token.Span{Pos: 7, End: 8}})
	require.Equal(t, "prog:1:8: error: parsing: expected an operator between operands [7..8]\n  \ta =\t1 2;\n  \t   \t  ^\n", buf.String())
}
