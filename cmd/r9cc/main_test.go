package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestPrintsAssembly(t *testing.T) {
	code, out, errOut := runCLI(t, "", "1+2*3;")
	require.Equal(t, 0, code, errOut)
	require.True(t, strings.HasPrefix(out, ".intel_syntax noprefix\n.global main\nmain:\n"))
	require.True(t, strings.HasSuffix(out, "\tret\n"))
}

func TestRunExitsWithProgramStatus(t *testing.T) {
	code, _, errOut := runCLI(t, "", "--run", "a=3; b=4; a*b+a;")
	require.Equal(t, 15, code, errOut)

	code, _, _ = runCLI(t, "x=2; return x*21;", "-r", "-")
	require.Equal(t, 42, code)
}

func TestReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.r9")
	require.NoError(t, os.WriteFile(path, []byte("5+5;\n"), 0o644))
	code, _, _ := runCLI(t, "", "--run", "-f", path)
	require.Equal(t, 10, code)

	code, _, errOut := runCLI(t, "", "-f", filepath.Join(t.TempDir(), "missing"))
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "read file")
}

func TestCompileErrorsAreReported(t *testing.T) {
	code, out, errOut := runCLI(t, "", "1 2;")
	require.Equal(t, 1, code)
	require.Empty(t, out)
	require.Contains(t, errOut, "<arg>:1:3: error: parsing: expected an operator between operands")
	require.Contains(t, errOut, "  1 2;\n    ^\n")

	code, _, errOut = runCLI(t, "", "1 + $$ 2 ## 3;")
	require.Equal(t, 1, code)
	require.Equal(t, 2, strings.Count(errOut, "tokenizing"))
}

func TestDumps(t *testing.T) {
	code, out, _ := runCLI(t, "", "--dump-ast", "a=1; -a;")
	require.Equal(t, 0, code)
	require.Equal(t, "0: (= a@8 1)\n1: (- 0 a@8)\n", out)

	code, out, _ = runCLI(t, "", "--dump-tokens", "1;")
	require.Equal(t, 0, code)
	require.Equal(t, 3, strings.Count(out, "\n"))

	code, _, errOut := runCLI(t, "", "--dump-ir", "1;")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "qbe")
}

func TestFlags(t *testing.T) {
	code, _, errOut := runCLI(t, "", "-Wbogus", "1;")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "unknown warning 'bogus'")

	code, _, errOut = runCLI(t, "", "-b", "arm", "1;")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "unsupported backend")

	code, _, errOut = runCLI(t, "", "return 1; 2;")
	require.Equal(t, 0, code)
	require.Contains(t, errOut, "warning:")
	require.Contains(t, errOut, "[-Wunreachable-code]")

	code, _, errOut = runCLI(t, "", "-Wno-all", "return 1; 2;")
	require.Equal(t, 0, code)
	require.Empty(t, errOut)

	code, _, _ = runCLI(t, "", "-Fno-return", "return 1;")
	require.Equal(t, 1, code)
}

func TestUsage(t *testing.T) {
	code, out, _ := runCLI(t, "", "--help")
	require.Equal(t, 0, code)
	require.Contains(t, out, "Warning Flags")
	require.Contains(t, out, "unreachable-code")

	code, _, errOut := runCLI(t, "")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "no program given")

	code, _, errOut = runCLI(t, "", "--frobnicate")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "Usage: r9cc")
}
