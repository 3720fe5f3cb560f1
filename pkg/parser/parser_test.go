package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/r9cc/pkg/ast"
	"github.com/xplshn/r9cc/pkg/config"
	"github.com/xplshn/r9cc/pkg/diag"
	"github.com/xplshn/r9cc/pkg/lexer"
	"github.com/xplshn/r9cc/pkg/token"
)

func parse(t *testing.T, src string) ([]*ast.Node, *Locals, *diag.Error) {
	t.Helper()
	cfg := config.NewConfig()
	toks, errs := lexer.Tokenize(src, cfg)
	require.Empty(t, errs, "tokenize %q", src)
	return Parse(toks, cfg)
}

func sexprs(prog []*ast.Node) []string {
	out := make([]string, len(prog))
	for i, n := range prog {
		out[i] = ast.Sexpr(n)
	}
	return out
}

func TestParseShapes(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"1+2*3;", []string{"(+ 1 (* 2 3))"}},
		{"(1+2)*3;", []string{"(* (+ 1 2) 3)"}},
		{"1-2-3;", []string{"(- (- 1 2) 3)"}},
		{"8/4/2;", []string{"(/ (/ 8 4) 2)"}},
		{"-x;", []string{"(- 0 x@8)"}},
		{"+5;", []string{"5"}},
		{"1++++22;", []string{"(+ 1 22)"}},
		{"- -3;", []string{"(- 0 (- 0 3))"}},
		{"a>b;", []string{"(< b@16 a@8)"}},
		{"a>=b;", []string{"(<= b@16 a@8)"}},
		{"a<b;", []string{"(< a@8 b@16)"}},
		{"1<2==3>4;", []string{"(== (< 1 2) (< 4 3))"}},
		{"1!=2;", []string{"(!= 1 2)"}},
		{"a=b=3;", []string{"(= a@8 (= b@16 3))"}},
		{"a=3; a;", []string{"(= a@8 3)", "a@8"}},
		{"return 1+1;", []string{"(return (+ 1 1))"}},
		{"a=1; return a; b;", []string{"(= a@8 1)", "(return a@8)", "b@16"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			prog, _, err := parse(t, tt.src)
			require.Nil(t, err)
			if diff := cmp.Diff(tt.want, sexprs(prog)); diff != "" {
				t.Errorf("AST mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFirstSeenOffsets(t *testing.T) {
	prog, locals, err := parse(t, "z=1; a=z; z+a+m;")
	require.Nil(t, err)
	require.Len(t, prog, 3)

	require.Equal(t, []string{"z", "a", "m"}, locals.Names())
	for name, want := range map[string]int{"z": 8, "a": 16, "m": 24} {
		off, ok := locals.Lookup(name)
		require.True(t, ok, name)
		require.Equal(t, want, off, name)
	}

	seen := map[string]int{}
	for _, stmt := range prog {
		ast.Walk(stmt, func(n *ast.Node) {
			if v, ok := n.Data.(ast.VarNode); ok {
				if prev, dup := seen[v.Name]; dup {
					require.Equal(t, prev, v.Offset, "offset of %s changed", v.Name)
				}
				seen[v.Name] = v.Offset
			}
		})
	}
}

func TestAllLettersFitTheFrame(t *testing.T) {
	src := ""
	for c := 'a'; c <= 'z'; c++ {
		src += string(c) + ";"
	}
	_, locals, err := parse(t, src)
	require.Nil(t, err)
	require.Equal(t, 26, locals.Len())
	off, _ := locals.Lookup("z")
	require.Equal(t, config.NewConfig().FrameSize(), off)
}

func TestParseErrors(t *testing.T) {
	span := func(p, e int) *token.Span { return &token.Span{Pos: p, End: e} }
	tests := []struct {
		src  string
		kind diag.Kind
		span *token.Span
	}{
		{"", diag.EmptyInput, nil},
		{"   ", diag.EmptyInput, nil},
		{"1 2;", diag.CannotParse, span(2, 3)},
		{"1 3 23", diag.CannotParse, span(2, 3)},
		{"1+", diag.TrailingOperator, nil},
		{"a=", diag.TrailingOperator, nil},
		{"-", diag.TrailingOperator, nil},
		{"1+2", diag.MissingSemicolon, nil},
		{"1+2 )", diag.MissingSemicolon, span(4, 5)},
		{"a b;", diag.MissingSemicolon, span(2, 3)},
		{"(1+2;", diag.MissingClosingParen, span(4, 5)},
		{"(1+2", diag.MissingClosingParen, nil},
		{"1+;", diag.NotANumber, span(2, 3)},
		{"*1;", diag.NotANumber, span(0, 1)},
		{");", diag.NotANumber, span(0, 1)},
		{"return;", diag.NotANumber, span(6, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			prog, _, err := parse(t, tt.src)
			require.Nil(t, prog)
			require.NotNil(t, err)
			require.Equal(t, tt.kind, err.Kind, err.Error())
			require.Equal(t, diag.Parsing, err.Category())
			if diff := cmp.Diff(tt.span, err.Span); diff != "" {
				t.Errorf("span mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAssignmentTargetIsNotChecked(t *testing.T) {
	prog, _, err := parse(t, "1=2;")
	require.Nil(t, err)
	require.Equal(t, []string{"(= 1 2)"}, sexprs(prog))
}

func TestReturnKeywordDisabled(t *testing.T) {
	cfg := config.NewConfig()
	require.NoError(t, cfg.ApplyFlag("-Fno-return"))
	toks, errs := lexer.Tokenize("return 1;", cfg)
	require.Empty(t, errs)
	_, _, err := Parse(toks, cfg)
	require.NotNil(t, err)
	require.Equal(t, diag.MissingSemicolon, err.Kind)
}

func TestParserAddsMissingEOF(t *testing.T) {
	toks := []token.Token{
		{Type: token.Number, Value: "4", Num: 4, Span: token.Span{Pos: 0, End: 1}},
		{Type: token.Semi, Value: ";", Span: token.Span{Pos: 1, End: 2}},
	}
	prog, _, err := Parse(toks, config.NewConfig())
	require.Nil(t, err)
	require.Equal(t, []string{"4"}, sexprs(prog))

	_, _, err = Parse(nil, config.NewConfig())
	require.NotNil(t, err)
	require.Equal(t, diag.EmptyInput, err.Kind)
}
