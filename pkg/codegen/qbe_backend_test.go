package codegen

import (
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/r9cc/pkg/ast"
	"github.com/xplshn/r9cc/pkg/config"
	"github.com/xplshn/r9cc/pkg/diag"
	"github.com/xplshn/r9cc/pkg/ir"
)

func lowerIL(t *testing.T, src string) string {
	t.Helper()
	irProg, err := Lower(parseSrc(t, src), config.NewConfig())
	require.Nil(t, err)
	return (&qbeBackend{}).GenerateIR(irProg)
}

func TestQBEGenerateIR(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a=3; a+1;", `export function l $main() {
@start
	%a_1 =l alloc8 8
	storel 3, %a_1
	%t2 =l loadl %a_1
	%t3 =l add %t2, 1
	ret %t3
}
`},
		{"b=1; return b<2; 9;", `export function l $main() {
@start
	%b_1 =l alloc8 8
	storel 1, %b_1
	%t2 =l loadl %b_1
	%t3 =l csltl %t2, 2
	ret %t3
}
`},
		{"7;", `export function l $main() {
@start
	ret 7
}
`},
		{"1==2; 3!=4; 5<=6; 8/2;", `export function l $main() {
@start
	%t1 =l ceql 1, 2
	%t2 =l cnel 3, 4
	%t3 =l cslel 5, 6
	%t4 =l div 8, 2
	ret %t4
}
`},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, lowerIL(t, tt.src)); diff != "" {
				t.Errorf("IL mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQBESlotsFollowFirstSeenOrder(t *testing.T) {
	irProg, err := Lower(parseSrc(t, "z=1; a=z; z+a;"), config.NewConfig())
	require.Nil(t, err)
	require.Len(t, irProg.Funcs, 1)
	fn := irProg.Funcs[0]
	require.Equal(t, "main", fn.Name)

	var allocs []string
	for _, instr := range fn.Blocks[0].Instructions {
		if instr.Op == ir.OpAlloc {
			allocs = append(allocs, instr.Result.String())
		}
	}
	require.Equal(t, []string{"z_1", "a_2"}, allocs)
	require.True(t, fn.Terminated())
}

func TestQBELoweringErrors(t *testing.T) {
	_, err := Lower(parseSrc(t, "1=2;"), config.NewConfig())
	require.NotNil(t, err)
	require.Equal(t, diag.LValueNotVariable, err.Kind)

	a := parseSrc(t, "a;")[0]
	_, err = Lower([]*ast.Node{ast.NewAssign(a.Tok, a, nil)}, config.NewConfig())
	require.NotNil(t, err)
	require.Equal(t, diag.RValueMissing, err.Kind)
}

func TestQBEBackendAssembles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses the system qbe on windows")
	}
	cfg := config.NewConfig()
	if err := cfg.SetBackend(config.BackendQBE, runtime.GOOS, runtime.GOARCH, ""); err != nil {
		t.Skipf("no QBE target for this host: %v", err)
	}
	be, err := New(cfg)
	require.NoError(t, err)

	out, err := be.Generate(parseSrc(t, "a=2; a*21;"), cfg)
	require.NoError(t, err)
	require.Contains(t, out.IR, "export function l $main()")
	require.Contains(t, out.Asm.String(), "main")
	require.Empty(t, out.Lines)
}

func TestQBEReturnEndsFunction(t *testing.T) {
	irProg, err := Lower(parseSrc(t, "a=1; return a; a+2;"), config.NewConfig())
	require.Nil(t, err)
	fn := irProg.Funcs[0]
	require.True(t, fn.Terminated())

	rets := 0
	for _, b := range fn.Blocks {
		for _, instr := range b.Instructions {
			if instr.Op == ir.OpRet {
				rets++
			}
		}
	}
	require.Equal(t, 1, rets)
}
