//go:build windows

package codegen

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"tlog.app/go/errors"

	"github.com/xplshn/r9cc/pkg/config"
)

func compileIL(qbeIR string, cfg *config.Config) (*bytes.Buffer, error) {
	fmt.Fprintln(os.Stderr, "Self-contained QBE backend is not supported on Windows. Falling back to the system's 'qbe'.")
	if _, err := exec.LookPath("qbe"); err != nil {
		return nil, errors.Wrap(err, "qbe not found in PATH")
	}

	inputFile, err := os.CreateTemp("", "r9cc-qbe-*.ssa")
	if err != nil {
		return nil, errors.Wrap(err, "create temp file")
	}
	defer os.Remove(inputFile.Name())

	_, err = inputFile.WriteString(qbeIR)
	if cerr := inputFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, errors.Wrap(err, "write %v", inputFile.Name())
	}

	outputName := inputFile.Name() + ".s"
	defer os.Remove(outputName)

	var stderr bytes.Buffer
	cmd := exec.Command("qbe", "-o", outputName, "-t", cfg.QbeTarget, inputFile.Name())
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(err, "qbe: %s\n--- generated IL ---\n%s", stderr.String(), qbeIR)
	}

	asm, err := os.ReadFile(outputName)
	if err != nil {
		return nil, errors.Wrap(err, "read qbe output")
	}
	return bytes.NewBuffer(asm), nil
}
