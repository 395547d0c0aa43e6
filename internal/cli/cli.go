// Package cli implements the driver's cobra command surface: run,
// repl, compile, disassemble, and version. It is the thin outer shell
// spec.md §1 treats as out of the core's scope — everything here does
// is glue between pkg/vm, pkg/compiler, and the OS.
package cli

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roselang/rose/pkg/bytecode"
	"github.com/roselang/rose/pkg/compiler"
	"github.com/roselang/rose/pkg/vm"
)

// Version is the driver's reported version; overridable at link time
// with `-ldflags "-X .../internal/cli.Version=..."`.
var Version = "0.1.0"

// Exit codes, per spec.md §6's driver CLI contract.
const (
	ExitOK           = 0
	ExitUsage        = 64
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
)

// exitError pairs an error with the specific exit code its failure
// class maps to, so Execute can recover the right code from whatever
// cobra.Command.Execute returns.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Execute runs the root command and returns the process exit code.
func Execute() int {
	var verbose bool
	root := &cobra.Command{
		Use:           "rose",
		Short:         "rose runs and compiles rose-language source",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable structured logging to stderr")

	root.AddCommand(
		newRunCmd(&verbose),
		newReplCmd(&verbose),
		newCompileCmd(&verbose),
		newDisassembleCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		var ee *exitError
		if stderrors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, ee.err)
			return ee.code
		}
		fmt.Fprintln(os.Stderr, err)
		return ExitUsage
	}
	return ExitOK
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newVM wires a VM to the real OS filesystem and the front end's
// compiler. WithCompiler is ordinarily passed as a vm.New option, but
// compiler.CompileFunc needs the *vm.VM itself as the heap it
// allocates Functions and Strings through, so construction is two
// steps: build the VM, then apply WithCompiler against it directly —
// Option is just a func(*VM), so this is not a special case, only a
// dependency the option list itself can't express.
func newVM(fs afero.Fs, logger *zap.Logger) *vm.VM {
	v := vm.New(vm.WithFilesystem(fs), vm.WithLogger(logger))
	vm.WithCompiler(compiler.CompileFunc(v))(v)
	return v
}

func execDir() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	return filepath.Dir(exe)
}

func resultToExitError(result vm.InterpretResult) error {
	switch result {
	case vm.InterpretOK:
		return nil
	case vm.InterpretCompileError:
		return &exitError{ExitCompileError, errors.New("compile error")}
	case vm.InterpretRuntimeError:
		return &exitError{ExitRuntimeError, errors.New("runtime error")}
	case vm.InterpretIOError:
		return &exitError{ExitIOError, errors.New("I/O error")}
	default:
		return &exitError{ExitUsage, errors.Errorf("unknown interpret result %d", result)}
	}
}

func newRunCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "run <path>",
		Short: "compile and run a rose source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0], *verbose)
		},
	}
}

func runFile(path string, verbose bool) error {
	fs := afero.NewOsFs()
	source, err := afero.ReadFile(fs, path)
	if err != nil {
		return &exitError{ExitIOError, errors.Wrapf(err, "reading %s", path)}
	}
	logger := newLogger(verbose)
	defer logger.Sync() //nolint:errcheck

	v := newVM(fs, logger)
	result := v.Interpret(string(source), filepath.Dir(path), execDir())
	return resultToExitError(result)
}

func newReplCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "start an interactive read-eval-print loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runREPL(*verbose)
			return nil
		},
	}
}

// runREPL keeps one VM alive across every line so globals defined on
// one line are visible on the next (spec.md §7: a runtime error
// resets the stacks but the heap, globals included, survives — "the
// next interpret call may reuse them, e.g. in the REPL").
func runREPL(verbose bool) {
	fmt.Printf("rose %s — ctrl-d to exit\n", Version)
	fs := afero.NewOsFs()
	logger := newLogger(verbose)
	defer logger.Sync() //nolint:errcheck

	v := newVM(fs, logger)
	exeDir := execDir()
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}
		v.Interpret(line, ".", exeDir)
		fmt.Print("> ")
	}
	fmt.Println()
}

func newCompileCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <path>",
		Short: "compile a rose source file and report success or the compile error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileFile(args[0], *verbose, false)
		},
	}
}

func newDisassembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "disassemble <path>",
		Aliases: []string{"disasm"},
		Short:   "compile a rose source file and print its disassembled bytecode",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileFile(args[0], false, true)
		},
	}
}

// compileFile runs the front end (parser + compiler) without handing
// the result to the VM's dispatch loop. Chunk bytes are never
// persisted (spec.md §6: the binary layout is "in-process only"), so
// this is the closest the driver gets to a standalone compile step:
// it proves the source parses and compiles, and optionally prints the
// disassembly pkg/bytecode.Disassemble produces.
func compileFile(path string, verbose, disassemble bool) error {
	fs := afero.NewOsFs()
	source, err := afero.ReadFile(fs, path)
	if err != nil {
		return &exitError{ExitIOError, errors.Wrapf(err, "reading %s", path)}
	}
	logger := newLogger(verbose)
	defer logger.Sync() //nolint:errcheck

	v := newVM(fs, logger)
	comp := compiler.New(v)
	fn, err := comp.Compile(string(source), filepath.Dir(path), execDir())
	if err != nil {
		return &exitError{ExitCompileError, err}
	}
	if disassemble {
		chunk, ok := fn.Chunk.(*bytecode.Chunk)
		if !ok {
			return &exitError{ExitUsage, errors.New("compiled function carries no chunk")}
		}
		fmt.Print(bytecode.Disassemble(chunk, path))
		return nil
	}
	fmt.Printf("%s compiled OK\n", path)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the rose version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("rose %s\n", Version)
			return nil
		},
	}
}
