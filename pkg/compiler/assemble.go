package compiler

import (
	"context"
	"os"
	"os/exec"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

// CC is the C compiler driver used to assemble and link.
var CC = "cc"

// AssembleAndLink writes asm to a temporary file and has cc turn it into the
// executable outFile.
func AssembleAndLink(ctx context.Context, outFile, asm string, linkerArgs []string) (err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "assemble", "out", outFile, "cc", CC)
	defer tr.Finish("err", &err)

	asmFile, err := os.CreateTemp("", "r9cc-main-*.s")
	if err != nil {
		return errors.Wrap(err, "create temp file for asm")
	}
	defer os.Remove(asmFile.Name())

	_, err = asmFile.WriteString(asm)
	if cerr := asmFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(err, "write %v", asmFile.Name())
	}

	ccArgs := []string{"-no-pie", "-o", outFile, asmFile.Name()}
	ccArgs = append(ccArgs, linkerArgs...)

	cmd := exec.CommandContext(ctx, CC, ccArgs...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrap(err, "%v failed\nOutput:\n%s", CC, output)
	}
	tr.Printw("linked", "args", ccArgs)
	return nil
}

// HaveCC reports whether the assembler driver can be found.
func HaveCC() bool {
	_, err := exec.LookPath(CC)
	return err == nil
}

// RunExecutable runs path and returns its exit status.
func RunExecutable(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, path)
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, errors.Wrap(err, "run %v", path)
}
