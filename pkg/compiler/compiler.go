// Package compiler drives the pipeline from source text to assembly and on
// to an executable or an emulated run.
package compiler

import (
	"context"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/xplshn/r9cc/pkg/ast"
	"github.com/xplshn/r9cc/pkg/codegen"
	"github.com/xplshn/r9cc/pkg/config"
	"github.com/xplshn/r9cc/pkg/diag"
	"github.com/xplshn/r9cc/pkg/emu"
	"github.com/xplshn/r9cc/pkg/lexer"
	"github.com/xplshn/r9cc/pkg/parser"
	"github.com/xplshn/r9cc/pkg/token"
)

// Result holds every intermediate product of one compilation.
type Result struct {
	Tokens   []token.Token
	Program  []*ast.Node
	Locals   *parser.Locals
	Output   *codegen.Output
	Warnings []diag.Warning
}

// Compile tokenizes, parses and generates code for src. Compile errors are
// returned as a diag.List: every tokenizing error, or the single parsing or
// code generation error. Other errors come from the backend toolchain.
func Compile(ctx context.Context, src string, cfg *config.Config) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "backend", cfg.Backend, "size", len(src))
	defer tr.Finish("err", &err)

	res = &Result{}

	toks, errs := lexer.Tokenize(src, cfg)
	tr.Printw("tokenize", "tokens", len(toks), "errors", len(errs))
	if len(errs) > 0 {
		return nil, errs
	}
	res.Tokens = toks

	prog, locals, perr := parser.Parse(toks, cfg)
	if perr != nil {
		return nil, diag.List{perr}
	}
	tr.Printw("parse", "statements", len(prog), "locals", locals.Len())
	res.Program, res.Locals = prog, locals

	res.Warnings = codegen.Check(prog, cfg)

	backend, err := codegen.New(cfg)
	if err != nil {
		return nil, err
	}
	out, err := backend.Generate(prog, cfg)
	if err != nil {
		if derr, ok := err.(*diag.Error); ok {
			return nil, diag.List{derr}
		}
		return nil, errors.Wrap(err, "%v backend", cfg.Backend)
	}
	tr.Printw("codegen", "lines", len(out.Lines), "asm_bytes", out.Asm.Len(), "warnings", len(res.Warnings))
	res.Output = out

	return res, nil
}

// Lines compiles src with the x86 backend and the default configuration and
// returns the instruction lines.
func Lines(src string) ([]string, diag.List) {
	cfg := config.NewConfig()
	res, err := Compile(context.Background(), src, cfg)
	if err != nil {
		if list, ok := err.(diag.List); ok {
			return nil, list
		}
		panic(err) // the x86 backend has no failure modes outside diag
	}
	return res.Output.Lines, nil
}

// Emulate runs the instructions of an x86 compilation in the emulator.
func Emulate(ctx context.Context, res *Result) (*emu.Result, error) {
	if res.Output == nil || len(res.Output.Lines) == 0 {
		return nil, errors.New("emulation needs the %v backend", config.BackendX86)
	}
	r, err := emu.Run(res.Output.Lines)
	if err != nil {
		return nil, errors.Wrap(err, "emulate")
	}
	tlog.SpanFromContext(ctx).Printw("emulate", "value", r.Value, "exit", r.ExitCode, "depth", r.MaxDepth, "steps", r.Steps)
	return r, nil
}

// Listing is the assembler text of res.
func Listing(res *Result) string {
	if res.Output.Asm != nil {
		return res.Output.Asm.String()
	}
	return strings.Join(res.Output.Lines, "\n") + "\n"
}
