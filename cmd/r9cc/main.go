package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/term"
	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/xplshn/r9cc/pkg/ast"
	"github.com/xplshn/r9cc/pkg/cli"
	"github.com/xplshn/r9cc/pkg/compiler"
	"github.com/xplshn/r9cc/pkg/config"
	"github.com/xplshn/r9cc/pkg/diag"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	app := cli.NewApp("r9cc")
	app.Synopsis = "[options] <program | -f file | ->"
	app.Description = "Compiles a sequence of arithmetic and assignment statements into x86-64 assembly for a stack machine."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/r9cc>"
	app.Stdout, app.Stderr = stdout, stderr

	var (
		outFile    string
		inFile     string
		backend    string
		target     string
		linkerArgs []string
		asmOnly    bool
		dumpTokens bool
		dumpAST    bool
		dumpIR     bool
		runProg    bool
		verbose    bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Assemble and link the program into <file>.", "file")
	fs.String(&inFile, "file", "f", "", "Read the program from <file> ('-' for stdin).", "file")
	fs.String(&backend, "backend", "b", config.BackendX86, "Code generator: x86 or qbe.", "backend")
	fs.String(&target, "target", "t", "", "QBE target, defaults to the host's.", "target")
	fs.List(&linkerArgs, "linker-arg", "L", "Pass an argument to the linker.", "arg")
	fs.Bool(&asmOnly, "asm-only", "S", false, "Print the assembly. This is the default without -o or --run.")
	fs.Bool(&dumpTokens, "dump-tokens", "", false, "Print the token stream and exit.")
	fs.Bool(&dumpAST, "dump-ast", "", false, "Print the syntax tree and exit.")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Print the QBE IL (qbe backend) and exit.")
	fs.Bool(&runProg, "run", "r", false, "Run the program in the emulator and exit with its status.")
	fs.Bool(&verbose, "verbose", "v", false, "Trace the compiler phases.")

	cfg := config.NewConfig()
	warnings, features := setupFlagGroups(fs, cfg)

	defer func() {
		if p := recover(); p != nil {
			tlog.Root().Printw("internal compiler error", "panic", p, "from", loc.Caller(2))
			fmt.Fprintf(stderr, "r9cc: internal compiler error: %v\n", p)
			code = 2
		}
	}()

	app.Action = func(args []string) error {
		if err := cfg.ProcessFlags(append(warnings.Seen, features.Seen...)); err != nil {
			return err
		}
		if err := cfg.SetBackend(backend, runtime.GOOS, runtime.GOARCH, target); err != nil {
			return err
		}

		src, name, err := readSource(args, inFile, stdin)
		if err != nil {
			return err
		}

		ctx := context.Background()
		if verbose {
			ctx = tlog.ContextWithSpan(ctx, tlog.Root())
		}

		printer := diag.NewPrinter(stderr, name, src, isTerminal(stderr))

		res, err := compiler.Compile(ctx, src, cfg)
		if err != nil {
			printer.Report(err)
			return errReported
		}
		for _, w := range res.Warnings {
			printer.Warn(w)
		}

		switch {
		case dumpTokens:
			for _, tok := range res.Tokens {
				fmt.Fprintln(stdout, tok)
			}
			return nil
		case dumpAST:
			ast.Dump(stdout, res.Program)
			return nil
		case dumpIR:
			if res.Output.IR == "" {
				return errors.New("--dump-ir needs the %v backend", config.BackendQBE)
			}
			fmt.Fprint(stdout, res.Output.IR)
			return nil
		case runProg:
			r, err := compiler.Emulate(ctx, res)
			if err != nil {
				return err
			}
			return exitStatus(r.ExitCode)
		case outFile != "":
			if err := compiler.AssembleAndLink(ctx, outFile, compiler.Listing(res), linkerArgs); err != nil {
				return err
			}
			if asmOnly {
				fmt.Fprint(stdout, compiler.Listing(res))
			}
			return nil
		}

		fmt.Fprint(stdout, compiler.Listing(res))
		return nil
	}

	err := app.Run(args)
	if status, ok := err.(exitStatus); ok {
		return int(status)
	}
	switch err {
	case nil, cli.ErrHelp:
		return 0
	case errReported:
		return 1
	}
	fmt.Fprintf(stderr, "r9cc: error: %v\n", err)
	return 1
}

var errReported = errors.New("reported")

// exitStatus carries the emulated program's status out of the action.
type exitStatus int

func (s exitStatus) Error() string { return fmt.Sprintf("exit status %d", int(s)) }

func setupFlagGroups(fs *cli.FlagSet, cfg *config.Config) (warnings, features *cli.FlagGroup) {
	var wEntries, fEntries []cli.GroupEntry
	for i := config.Warning(0); i < config.WarnCount; i++ {
		info := cfg.Warnings[i]
		wEntries = append(wEntries, cli.GroupEntry{Name: info.Name, Usage: info.Description, Enabled: info.Enabled})
	}
	for i := config.Feature(0); i < config.FeatCount; i++ {
		info := cfg.Features[i]
		fEntries = append(fEntries, cli.GroupEntry{Name: info.Name, Usage: info.Description, Enabled: info.Enabled})
	}
	warnings = fs.AddFlagGroup("Warning Flags", "W", "warning", wEntries)
	features = fs.AddFlagGroup("Feature Flags", "F", "feature", fEntries)
	return warnings, features
}

// readSource picks the program text: -f wins over a positional argument and
// "-" reads stdin.
func readSource(args []string, inFile string, stdin io.Reader) (src, name string, err error) {
	switch {
	case inFile == "-" || inFile == "" && len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", errors.Wrap(err, "read stdin")
		}
		return string(data), "<stdin>", nil
	case inFile != "":
		data, err := os.ReadFile(inFile)
		if err != nil {
			return "", "", errors.Wrap(err, "read file")
		}
		return string(data), inFile, nil
	case len(args) == 1:
		return args[0], "<arg>", nil
	case len(args) == 0:
		return "", "", errors.New("no program given")
	}
	return "", "", errors.New("expected one program, got %d arguments", len(args))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
