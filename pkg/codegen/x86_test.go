package codegen

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/r9cc/pkg/ast"
	"github.com/xplshn/r9cc/pkg/config"
	"github.com/xplshn/r9cc/pkg/diag"
	"github.com/xplshn/r9cc/pkg/lexer"
	"github.com/xplshn/r9cc/pkg/parser"
	"github.com/xplshn/r9cc/pkg/token"
)

func parseSrc(t *testing.T, src string) []*ast.Node {
	t.Helper()
	cfg := config.NewConfig()
	toks, errs := lexer.Tokenize(src, cfg)
	require.Empty(t, errs)
	prog, _, err := parser.Parse(toks, cfg)
	require.Nil(t, err)
	return prog
}

func compileSrc(t *testing.T, src string) []string {
	t.Helper()
	lines, err := Compile(parseSrc(t, src))
	require.Nil(t, err)
	return lines
}

var (
	header   = []string{".intel_syntax noprefix", ".global main", "main:", "\tpush rbp", "\tmov rbp, rsp", "\tsub rsp, 208"}
	epilogue = []string{"\tmov rsp, rbp", "\tpop rbp", "\tret"}
)

func program(body ...string) []string {
	out := append([]string{}, header...)
	out = append(out, body...)
	return append(out, epilogue...)
}

func TestCompileExactLines(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"42;", program("\tpush 42", "\tpop rax")},
		{"1+22;", program(
			"\tpush 1", "\tpush 22",
			"\tpop rdi", "\tpop rax", "\tadd rax, rdi", "\tpush rax",
			"\tpop rax",
		)},
		{"6/3;", program(
			"\tpush 6", "\tpush 3",
			"\tpop rdi", "\tpop rax", "\tcqo", "\tidiv rdi", "\tpush rax",
			"\tpop rax",
		)},
		{"1<=2;", program(
			"\tpush 1", "\tpush 2",
			"\tpop rdi", "\tpop rax", "\tcmp rax, rdi", "\tsetle al", "\tmovzb rax, al", "\tpush rax",
			"\tpop rax",
		)},
		{"a=3;", program(
			"\tmov rax, rbp", "\tsub rax, 8", "\tpush rax",
			"\tpush 3",
			"\tpop rdi", "\tpop rax", "\tmov [rax], rdi", "\tpush rdi",
			"\tpop rax",
		)},
		{"a;", program(
			"\tmov rax, rbp", "\tsub rax, 8", "\tpush rax",
			"\tpop rax", "\tmov rax, [rax]", "\tpush rax",
			"\tpop rax",
		)},
		{"return 5; 6;", program("\tpush 5", "\tpop rax")},
		{"3000000000;", program("\tmov rax, 3000000000", "\tpush rax", "\tpop rax")},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, compileSrc(t, tt.src)); diff != "" {
				t.Errorf("lines mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompileOperators(t *testing.T) {
	for src, instr := range map[string][]string{
		"1-2;":  {"\tsub rax, rdi"},
		"1*2;":  {"\timul rax, rdi"},
		"1==2;": {"\tcmp rax, rdi", "\tsete al"},
		"1!=2;": {"\tcmp rax, rdi", "\tsetne al"},
		"1<2;":  {"\tcmp rax, rdi", "\tsetl al"},
	} {
		got := strings.Join(compileSrc(t, src), "\n")
		require.Contains(t, got, strings.Join(instr, "\n"), src)
	}
}

func TestCompileDeterministic(t *testing.T) {
	src := "a=1; b=a*2+3; c=(a<b)==(b>=a); -c;"
	first := compileSrc(t, src)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, compileSrc(t, src))
	}
}

func TestUnaryAndSwapRewrites(t *testing.T) {
	require.Equal(t, compileSrc(t, "0-x;"), compileSrc(t, "-x;"))
	require.Equal(t, compileSrc(t, "x;"), compileSrc(t, "+x;"))
	require.Equal(t, compileSrc(t, "a=1;b=2;b<a;"), compileSrc(t, "a=1;b=2;a>b;"))
	require.Equal(t, compileSrc(t, "a=1;b=2;b<=a;"), compileSrc(t, "a=1;b=2;a>=b;"))
}

// Every expression leaves one word on the stack; the statement pop clears it.
func TestStackBalancedPerStatement(t *testing.T) {
	lines := compileSrc(t, "a=1; b=a+2*3; (a-b)/2 == a; c=b=a;")
	depth := 0
	for _, l := range lines[len(header) : len(lines)-len(epilogue)] {
		switch {
		case strings.HasPrefix(l, "\tpush"): depth++
		case strings.HasPrefix(l, "\tpop"): depth--
		}
		require.GreaterOrEqual(t, depth, 0)
	}
	require.Zero(t, depth)
}

func TestLValueNotVariable(t *testing.T) {
	_, err := Compile(parseSrc(t, "1=2;"))
	require.NotNil(t, err)
	require.Equal(t, diag.LValueNotVariable, err.Kind)
	require.Equal(t, diag.Codegen, err.Category())
	require.Equal(t, &token.Span{Pos: 0, End: 1}, err.Span)

	_, err = Compile(parseSrc(t, "a=1; (a+1)=2;"))
	require.NotNil(t, err)
	require.Equal(t, diag.LValueNotVariable, err.Kind)
	require.Equal(t, &token.Span{Pos: 7, End: 8}, err.Span)
}

func TestRValueMissing(t *testing.T) {
	eq := token.Token{Type: token.Eq, Value: "=", Span: token.Span{Pos: 1, End: 2}}
	a := ast.NewVar(token.Token{Type: token.Ident, Value: "a", Span: token.Span{Pos: 0, End: 1}}, "a", 8)
	_, err := Compile([]*ast.Node{ast.NewAssign(eq, a, nil)})
	require.NotNil(t, err)
	require.Equal(t, diag.RValueMissing, err.Kind)
	require.Equal(t, &token.Span{Pos: 1, End: 2}, err.Span)
}

func TestUnknownNodePanics(t *testing.T) {
	bogus := &ast.Node{Type: ast.NodeType(99)}
	require.Panics(t, func() { _, _ = Compile([]*ast.Node{bogus}) })
}

func TestX86BackendOutput(t *testing.T) {
	be, err := New(config.NewConfig())
	require.NoError(t, err)
	out, err := be.Generate(parseSrc(t, "1;"), config.NewConfig())
	require.NoError(t, err)
	require.Equal(t, strings.Join(out.Lines, "\n")+"\n", out.Asm.String())
	require.Empty(t, out.IR)

	_, err = be.Generate(parseSrc(t, "1=1;"), config.NewConfig())
	var derr *diag.Error
	require.ErrorAs(t, err, &derr)
	require.Equal(t, diag.LValueNotVariable, derr.Kind)
}
