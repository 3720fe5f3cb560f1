package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/r9cc/pkg/ast"
	"github.com/xplshn/r9cc/pkg/config"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate lowers a parsed program. Compile errors are returned as
	// *diag.Error; anything else is an infrastructure failure.
	Generate(prog []*ast.Node, cfg *config.Config) (*Output, error)
}

// Output is what a backend produced for one program.
type Output struct {
	Lines []string      // instruction lines, x86 backend only
	IR    string        // QBE IL, qbe backend only
	Asm   *bytes.Buffer // text for the system assembler
}

// New returns the backend selected by cfg.Backend.
func New(cfg *config.Config) (Backend, error) {
	switch cfg.Backend {
	case config.BackendX86, "":
		return NewX86Backend(), nil
	case config.BackendQBE:
		return NewQBEBackend(), nil
	}
	return nil, fmt.Errorf("unsupported backend '%s'", cfg.Backend)
}
